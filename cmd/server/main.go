// Package main runs the volunteer opportunity platform HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/volunteerhub/backend/config"
	"github.com/volunteerhub/backend/internal/applications"
	"github.com/volunteerhub/backend/internal/auth"
	"github.com/volunteerhub/backend/internal/middleware"
	"github.com/volunteerhub/backend/internal/models"
	"github.com/volunteerhub/backend/internal/opportunities"
	"github.com/volunteerhub/backend/pkg/database"
	"github.com/volunteerhub/backend/pkg/redis"
	"github.com/volunteerhub/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Identity
	userRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(userRepo, jwtService, logger)

	// Opportunities
	opportunityRepo := opportunities.NewRepository(pool)
	statsCache := opportunities.NewStatsCache(rdb.Client, time.Minute, logger)
	opportunityHandler := opportunities.NewHandler(opportunityRepo, statsCache, logger)

	// Applications
	applicationRepo := applications.NewRepository(pool)
	applicationHandler := applications.NewHandler(applicationRepo, opportunityRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("/api")

	// Identity (public)
	ngo := api.Group("/ngo")
	{
		ngo.POST("/register", authHandler.RegisterNGO)
		ngo.POST("/login", authHandler.LoginNGO)
	}
	volunteer := api.Group("/volunteer")
	{
		volunteer.POST("/register", authHandler.RegisterVolunteer)
		volunteer.POST("/login", authHandler.LoginVolunteer)
	}

	// Opportunities (listing is public; writes are NGO-only)
	opps := api.Group("/opportunities")
	{
		opps.GET("", opportunityHandler.List)

		owned := opps.Group("", middleware.JWT(jwtService), middleware.RequireRole(string(models.RoleNGO)))
		{
			owned.POST("", opportunityHandler.Create)
			owned.GET("/my", opportunityHandler.ListMine)
			owned.GET("/dashboard/stats", opportunityHandler.DashboardStats)
			owned.PUT("/:id", opportunityHandler.Update)
			owned.DELETE("/:id", opportunityHandler.Delete)
		}
	}

	// Applications (JWT required throughout)
	apps := api.Group("/applications", middleware.JWT(jwtService))
	{
		apps.POST("", middleware.RequireRole(string(models.RoleVolunteer)), applicationHandler.Apply)
		apps.GET("/my", middleware.RequireRole(string(models.RoleVolunteer)), applicationHandler.MyApplications)
		apps.GET("/opportunity/:opportunityId", middleware.RequireRole(string(models.RoleNGO)), applicationHandler.GetApplicants)
		apps.PUT("/:id", middleware.RequireRole(string(models.RoleNGO)), applicationHandler.UpdateStatus)
		apps.DELETE("/undo/:opportunityId", middleware.RequireRole(string(models.RoleVolunteer)), applicationHandler.Withdraw)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
