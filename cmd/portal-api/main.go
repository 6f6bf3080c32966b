package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/smart-workplace/portal-api/api/swagger"
	"github.com/smart-workplace/portal-api/internal/handler"
	"github.com/smart-workplace/portal-api/internal/middleware"
	"github.com/smart-workplace/portal-api/internal/repository"
	"github.com/smart-workplace/portal-api/internal/service"
	"github.com/smart-workplace/portal-api/pkg/cache"
	"github.com/smart-workplace/portal-api/pkg/config"
	"github.com/smart-workplace/portal-api/pkg/database"
	"github.com/smart-workplace/portal-api/pkg/logger"
	corsmiddleware "github.com/smart-workplace/portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/smart-workplace/portal-api/pkg/middleware/requestid"
)

// @title Workplace Portal API
// @version 1.0.0
// @description Role-gated workplace portal: leave requests, complaints, administration
// @BasePath /api
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var identityCache *repository.IdentityCache
	if cfg.Identity.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			// The portal stays up without redis; identity lookups just
			// always hit postgres.
			logr.Warn("redis unavailable, identity cache disabled", zap.Error(err))
		} else {
			identityCache = repository.NewIdentityCache(redisClient, cfg.Identity.TTL, logr)
			defer identityCache.Close()
		}
	}

	userRepo := repository.NewUserRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)

	metricsSvc := service.NewMetricsService()
	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	authSvc := service.NewAuthService(userRepo, tokenSvc, nil, logr)
	identitySvc := service.NewIdentityService(userRepo, identityCache, metricsSvc, logr)
	leaveSvc := service.NewLeaveService(leaveRepo, nil, metricsSvc, logr)
	complaintSvc := service.NewComplaintService(complaintRepo, userRepo, nil, logr)
	adminSvc := service.NewAdminService(userRepo, leaveRepo, complaintRepo, identityCache, nil, logr)
	assistantSvc := service.NewAssistantService(cfg.Assistant, leaveRepo, complaintRepo, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	leaveHandler := handler.NewLeaveHandler(leaveSvc)
	complaintHandler := handler.NewComplaintHandler(complaintSvc)
	adminHandler := handler.NewAdminHandler(adminSvc)
	assistantHandler := handler.NewAssistantHandler(assistantSvc)

	// The policy table must be built from the same prefix the routes are
	// mounted under.
	authorizer := middleware.NewAuthorizer(tokenSvc, identitySvc, middleware.PoliciesFor(cfg.APIPrefix), metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(authorizer.Handler())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/me", authHandler.Me)

		leave := api.Group("/leave")
		leave.POST("/submit", leaveHandler.Submit)
		leave.GET("/my-requests", leaveHandler.MyRequests)
		leave.GET("/all", leaveHandler.All)
		leave.PUT("/:id/approve", leaveHandler.Approve)
		leave.PUT("/:id/reject", leaveHandler.Reject)

		complaints := api.Group("/complaints")
		complaints.POST("", complaintHandler.Submit)
		complaints.GET("/my", complaintHandler.My)
		complaints.GET("/all", complaintHandler.All)
		complaints.GET("/assigned", complaintHandler.Assigned)
		complaints.GET("/unassigned", complaintHandler.Unassigned)
		complaints.PUT("/:id/assign/:staffId", complaintHandler.Assign)
		complaints.PUT("/:id", complaintHandler.Update)
		complaints.DELETE("/:id", complaintHandler.Delete)

		admin := api.Group("/admin")
		admin.GET("/users", adminHandler.ListUsers)
		admin.GET("/users/:id", adminHandler.GetUser)
		admin.PUT("/users/:id/role", adminHandler.UpdateRole)
		admin.PUT("/users/:id/active", adminHandler.SetActive)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)
		admin.GET("/dashboard", adminHandler.Dashboard)
		admin.GET("/stats/users", adminHandler.UserStats)
		admin.GET("/stats/leaves", adminHandler.LeaveStats)
		admin.GET("/stats/leaves/monthly", adminHandler.MonthlyLeaves)
		admin.GET("/stats/complaints", adminHandler.ComplaintStats)
		admin.GET("/export/leaves", adminHandler.ExportLeaves)

		assistant := api.Group("/assistant")
		assistant.POST("/chat", assistantHandler.Chat)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
