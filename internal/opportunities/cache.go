package opportunities

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/volunteerhub/backend/internal/models"
)

const statsKeyPrefix = "dashboard:stats:"

// StatsCache caches per-NGO dashboard counts in Redis with a short TTL.
// Cache failures are logged and treated as misses; the database stays authoritative.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewStatsCache creates a dashboard stats cache.
func NewStatsCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *StatsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsCache{client: client, ttl: ttl, logger: logger}
}

// Get returns cached stats for the NGO, or (nil, false) on miss.
func (s *StatsCache) Get(ctx context.Context, ngoID uuid.UUID) (*models.DashboardStats, bool) {
	raw, err := s.client.Get(ctx, statsKeyPrefix+ngoID.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Debug("stats cache get", zap.Error(err))
		}
		return nil, false
	}
	var stats models.DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.logger.Warn("stats cache decode", zap.Error(err))
		return nil, false
	}
	return &stats, true
}

// Set stores stats for the NGO with the cache TTL.
func (s *StatsCache) Set(ctx context.Context, ngoID uuid.UUID, stats *models.DashboardStats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, statsKeyPrefix+ngoID.String(), raw, s.ttl).Err(); err != nil {
		s.logger.Debug("stats cache set", zap.Error(err))
	}
}

// Invalidate drops the NGO's cached stats. Called on every opportunity write.
func (s *StatsCache) Invalidate(ctx context.Context, ngoID uuid.UUID) {
	if err := s.client.Del(ctx, statsKeyPrefix+ngoID.String()).Err(); err != nil {
		s.logger.Debug("stats cache invalidate", zap.Error(err))
	}
}
