package opportunities

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/volunteerhub/backend/internal/middleware"
	"github.com/volunteerhub/backend/internal/models"
	"github.com/volunteerhub/backend/pkg/response"
)

const defaultPageSize = 6

// Store is the persistence surface the opportunities handler needs.
type Store interface {
	Create(ctx context.Context, o *models.Opportunity) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Opportunity, error)
	TitleExists(ctx context.Context, ngoID uuid.UUID, title string, exclude *uuid.UUID) (bool, error)
	Update(ctx context.Context, o *models.Opportunity) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListOpen(ctx context.Context, f ListFilter) ([]models.OpportunityWithNGO, int, error)
	ListByNGO(ctx context.Context, ngoID uuid.UUID) ([]models.Opportunity, error)
	CountByNGO(ctx context.Context, ngoID uuid.UUID) (*models.DashboardStats, error)
}

// CreateRequest is the body for POST /api/opportunities. Dates are RFC3339.
type CreateRequest struct {
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description" binding:"required"`
	Skills        []string `json:"skills"`
	Duration      string   `json:"duration"`
	Location      string   `json:"location"`
	Stipend       *int     `json:"stipend"`
	StartDate     string   `json:"start_date" binding:"required"`
	EndDate       string   `json:"end_date" binding:"required"`
	ApplyDeadline string   `json:"apply_deadline" binding:"required"`
}

// UpdateRequest is the body for PUT /api/opportunities/:id. All fields optional.
type UpdateRequest struct {
	Title         *string   `json:"title"`
	Description   *string   `json:"description"`
	Skills        *[]string `json:"skills"`
	Duration      *string   `json:"duration"`
	Location      *string   `json:"location"`
	Stipend       *int      `json:"stipend"`
	StartDate     *string   `json:"start_date"`
	EndDate       *string   `json:"end_date"`
	ApplyDeadline *string   `json:"apply_deadline"`
	Status        *string   `json:"status"`
}

// ListResponse is the paginated public listing payload.
type ListResponse struct {
	Total         int                         `json:"total"`
	Page          int                         `json:"page"`
	Pages         int                         `json:"pages"`
	Opportunities []models.OpportunityWithNGO `json:"opportunities"`
}

// Handler handles opportunity HTTP endpoints.
type Handler struct {
	store  Store
	cache  *StatsCache
	logger *zap.Logger
}

// NewHandler creates an opportunities handler. cache may be nil.
func NewHandler(store Store, cache *StatsCache, logger *zap.Logger) *Handler {
	return &Handler{store: store, cache: cache, logger: logger}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// normalizeTitle trims and lowercases a title for case-insensitive duplicate detection.
func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// validateDates checks applyDeadline <= startDate <= endDate. The returned message
// is empty when the ordering holds.
func validateDates(startDate, endDate, applyDeadline time.Time) string {
	if startDate.After(endDate) {
		return "start date must be before end date"
	}
	if applyDeadline.After(startDate) {
		return "apply deadline must be before start date"
	}
	return ""
}

// Create handles POST /api/opportunities (NGO only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "please provide all required fields")
		return
	}
	ngoID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	title := normalizeTitle(req.Title)
	if title == "" {
		response.BadRequest(c, "please provide all required fields")
		return
	}

	startDate, err := parseTime(req.StartDate)
	if err != nil {
		response.BadRequest(c, "invalid start_date")
		return
	}
	endDate, err := parseTime(req.EndDate)
	if err != nil {
		response.BadRequest(c, "invalid end_date")
		return
	}
	applyDeadline, err := parseTime(req.ApplyDeadline)
	if err != nil {
		response.BadRequest(c, "invalid apply_deadline")
		return
	}
	if msg := validateDates(startDate, endDate, applyDeadline); msg != "" {
		response.BadRequest(c, msg)
		return
	}

	ctx := c.Request.Context()
	exists, err := h.store.TitleExists(ctx, ngoID, title, nil)
	if err != nil {
		response.Internal(c, "failed to check title")
		return
	}
	if exists {
		response.BadRequest(c, "you already created an opportunity with this title")
		return
	}

	o := &models.Opportunity{
		Title:         title,
		Description:   req.Description,
		Skills:        req.Skills,
		Duration:      req.Duration,
		Location:      req.Location,
		Stipend:       req.Stipend,
		StartDate:     startDate,
		EndDate:       endDate,
		ApplyDeadline: applyDeadline,
		Status:        models.OpportunityOpen,
		NGOID:         ngoID,
	}
	if err := h.store.Create(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicateTitle) {
			response.BadRequest(c, "you already created an opportunity with this title")
			return
		}
		h.logger.Error("create opportunity", zap.Error(err))
		response.Internal(c, "failed to create opportunity")
		return
	}
	h.invalidateStats(ctx, ngoID)
	response.Created(c, o)
}

// Update handles PUT /api/opportunities/:id (owning NGO only).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid opportunity id")
		return
	}
	ngoID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ctx := c.Request.Context()

	o, err := h.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "opportunity not found")
			return
		}
		response.Internal(c, "failed to load opportunity")
		return
	}
	if o.NGOID != ngoID {
		response.Forbidden(c, "not authorized")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}

	if req.Title != nil {
		title := normalizeTitle(*req.Title)
		if title == "" {
			response.BadRequest(c, "title cannot be empty")
			return
		}
		if title != o.Title {
			exists, err := h.store.TitleExists(ctx, ngoID, title, &id)
			if err != nil {
				response.Internal(c, "failed to check title")
				return
			}
			if exists {
				response.BadRequest(c, "another opportunity with this title already exists")
				return
			}
		}
		o.Title = title
	}
	if req.Description != nil {
		o.Description = *req.Description
	}
	if req.Skills != nil {
		o.Skills = *req.Skills
	}
	if req.Duration != nil {
		o.Duration = *req.Duration
	}
	if req.Location != nil {
		o.Location = *req.Location
	}
	if req.Stipend != nil {
		o.Stipend = req.Stipend
	}
	if req.Status != nil {
		switch models.OpportunityStatus(*req.Status) {
		case models.OpportunityOpen, models.OpportunityClosed:
			o.Status = models.OpportunityStatus(*req.Status)
		default:
			response.BadRequest(c, "status must be Open or Closed")
			return
		}
	}

	// Date ordering is re-validated over the merged record, so a patch cannot
	// push a previously valid triple out of order.
	if req.StartDate != nil {
		t, err := parseTime(*req.StartDate)
		if err != nil {
			response.BadRequest(c, "invalid start_date")
			return
		}
		o.StartDate = t
	}
	if req.EndDate != nil {
		t, err := parseTime(*req.EndDate)
		if err != nil {
			response.BadRequest(c, "invalid end_date")
			return
		}
		o.EndDate = t
	}
	if req.ApplyDeadline != nil {
		t, err := parseTime(*req.ApplyDeadline)
		if err != nil {
			response.BadRequest(c, "invalid apply_deadline")
			return
		}
		o.ApplyDeadline = t
	}
	if msg := validateDates(o.StartDate, o.EndDate, o.ApplyDeadline); msg != "" {
		response.BadRequest(c, msg)
		return
	}

	if err := h.store.Update(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicateTitle) {
			response.BadRequest(c, "another opportunity with this title already exists")
			return
		}
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "opportunity not found")
			return
		}
		h.logger.Error("update opportunity", zap.Error(err))
		response.Internal(c, "failed to update opportunity")
		return
	}
	h.invalidateStats(ctx, ngoID)
	response.OK(c, o)
}

// Delete handles DELETE /api/opportunities/:id (owning NGO only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid opportunity id")
		return
	}
	ngoID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ctx := c.Request.Context()

	o, err := h.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "opportunity not found")
			return
		}
		response.Internal(c, "failed to load opportunity")
		return
	}
	if o.NGOID != ngoID {
		response.Forbidden(c, "not authorized")
		return
	}

	if err := h.store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "opportunity not found")
			return
		}
		h.logger.Error("delete opportunity", zap.Error(err))
		response.Internal(c, "failed to delete opportunity")
		return
	}
	h.invalidateStats(ctx, ngoID)
	response.OK(c, gin.H{"message": "deleted successfully"})
}

// List handles GET /api/opportunities (public). Expired postings are always hidden.
// Query params: page, limit, search, location, ngo, skill, minStipend, maxStipend.
func (h *Handler) List(c *gin.Context) {
	f := ListFilter{
		Search:   c.Query("search"),
		Location: c.Query("location"),
		Skill:    c.Query("skill"),
		Page:     1,
		Limit:    defaultPageSize,
	}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		f.Page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		f.Limit = v
	}
	if s := c.Query("status"); s != "" {
		switch models.OpportunityStatus(s) {
		case models.OpportunityOpen, models.OpportunityClosed:
			f.Status = models.OpportunityStatus(s)
		default:
			response.BadRequest(c, "status must be Open or Closed")
			return
		}
	}
	if s := c.Query("ngo"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid ngo id")
			return
		}
		f.NGO = &id
	}
	if s := c.Query("minStipend"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			response.BadRequest(c, "invalid minStipend")
			return
		}
		f.MinStipend = &v
	}
	if s := c.Query("maxStipend"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			response.BadRequest(c, "invalid maxStipend")
			return
		}
		f.MaxStipend = &v
	}

	list, total, err := h.store.ListOpen(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list opportunities", zap.Error(err))
		response.Internal(c, "failed to list opportunities")
		return
	}
	pages := (total + f.Limit - 1) / f.Limit
	response.OK(c, ListResponse{Total: total, Page: f.Page, Pages: pages, Opportunities: list})
}

// ListMine handles GET /api/opportunities/my (NGO only).
func (h *Handler) ListMine(c *gin.Context) {
	ngoID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.store.ListByNGO(c.Request.Context(), ngoID)
	if err != nil {
		h.logger.Error("list my opportunities", zap.Error(err))
		response.Internal(c, "failed to list opportunities")
		return
	}
	response.OK(c, list)
}

// DashboardStats handles GET /api/opportunities/dashboard/stats (NGO only).
func (h *Handler) DashboardStats(c *gin.Context) {
	ngoID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ctx := c.Request.Context()

	if h.cache != nil {
		if stats, ok := h.cache.Get(ctx, ngoID); ok {
			response.OK(c, stats)
			return
		}
	}

	stats, err := h.store.CountByNGO(ctx, ngoID)
	if err != nil {
		h.logger.Error("dashboard stats", zap.Error(err))
		response.Internal(c, "failed to load dashboard stats")
		return
	}
	if h.cache != nil {
		h.cache.Set(ctx, ngoID, stats)
	}
	response.OK(c, stats)
}

func (h *Handler) invalidateStats(ctx context.Context, ngoID uuid.UUID) {
	if h.cache != nil {
		h.cache.Invalidate(ctx, ngoID)
	}
}
