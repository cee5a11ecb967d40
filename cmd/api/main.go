package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "ideahub/api/swagger" // swagger docs
	"ideahub/internal/auth"
	"ideahub/internal/config"
	"ideahub/internal/database"
	"ideahub/internal/handler"
	"ideahub/internal/logging"
	"ideahub/internal/metrics"
	"ideahub/internal/middleware"
	"ideahub/internal/observability"
	"ideahub/internal/service"
	"ideahub/internal/validation"
	"ideahub/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Idea Hub API
// @version         1.0
// @description     Idea submission, evaluation and role dashboards.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, err := database.OpenStore(connectCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer func() { _ = store.Close(context.Background()) }()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run(ctx)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	gate := middleware.NewAuth(tokens, cfg.IsRelease())

	// Set up dependencies (Store -> Service -> Handler)
	authService := service.NewAuthService(store, tokens, logger)
	profileService := service.NewProfileService(store, logger)
	ideaService := service.NewIdeaService(store, wsHub, logger)
	dashboardService := service.NewDashboardService(store, wsHub, logger, cfg.EvaluationDuplicates)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService, gate)
	profileHandler := handler.NewProfileHandler(profileService, gate)
	ideaHandler := handler.NewIdeaHandler(ideaService, gate)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, gate)
	healthHandler := handler.NewHealthHandler(store, logger)

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	validation.Install()

	// Set up Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.Metrics())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	healthHandler.RegisterRoutes(router)

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, tokens)
	})

	// API Routing
	authHandler.RegisterRoutes(router.Group(""))
	api := router.Group("/api")
	profileHandler.RegisterRoutes(api)
	ideaHandler.RegisterRoutes(api)
	dashboardHandler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port), zap.String("backend", store.Backend()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
