package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatlink-backend/internal/database"
	authHandler "chatlink-backend/internal/handler/http/auth"
	callHandler "chatlink-backend/internal/handler/http/call"
	groupHandler "chatlink-backend/internal/handler/http/group"
	pushHandler "chatlink-backend/internal/handler/http/push"
	wsHandler "chatlink-backend/internal/handler/ws"
	"chatlink-backend/internal/middleware"
	"chatlink-backend/internal/notifier"
	"chatlink-backend/internal/repository/postgres"
	redisrepo "chatlink-backend/internal/repository/redis"
	authService "chatlink-backend/internal/service/auth"
	callService "chatlink-backend/internal/service/call"
	groupService "chatlink-backend/internal/service/group"
	"chatlink-backend/pkg/config"
	"chatlink-backend/pkg/jwt"
	"chatlink-backend/pkg/lockout"
	"chatlink-backend/pkg/logger"
	"chatlink-backend/pkg/metrics"
	"chatlink-backend/pkg/push"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Databases
	pg, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", zap.Error(err))
		os.Exit(1)
	}
	defer pg.Close()
	logger.Info("connected to PostgreSQL", zap.String("host", cfg.Database.Host))

	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		logger.Error("failed to connect to Redis", zap.Error(err))
		os.Exit(1)
	}
	defer rdb.Close()
	logger.Info("connected to Redis", zap.String("host", cfg.Redis.Host))

	// Metrics
	appMetrics := metrics.NewMetrics(cfg.Server.ServiceName)

	// Repositories and event publisher
	store := postgres.NewStore(pg.Pool)
	presenceRepo := redisrepo.NewPresenceRepository(rdb.Client)
	pushTokenRepo := redisrepo.NewPushTokenRepository(rdb.Client)
	publisher := notifier.NewRedisPublisher(rdb.Client, appMetrics)

	// Push notifications are optional; without providers the services
	// simply skip dispatch.
	var dispatcher *push.Dispatcher
	if cfg.Push.Enabled {
		providers := push.NewProvidersFromConfig(&cfg.Push)
		if len(providers) > 0 {
			dispatcher = push.NewDispatcher(providers, pushTokenRepo)
			logger.Info("push notifications enabled", zap.Int("providers", len(providers)))
		} else {
			logger.Warn("push enabled but no providers configured")
		}
	}

	// Services
	jwtManager := jwt.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)
	loginLocker := lockout.NewManager(rdb.Client)
	authSvc := authService.NewService(store, jwtManager, loginLocker)
	callSvc := callService.NewService(callService.NewStore(store), publisher, dispatcher, presenceRepo, appMetrics)
	groupSvc := groupService.NewService(groupService.NewStore(store), publisher, dispatcher, appMetrics)

	// Handlers
	authHdlr := authHandler.NewHandler(authSvc)
	callHdlr := callHandler.NewHandler(callSvc)
	groupHdlr := groupHandler.NewHandler(groupSvc)
	pushHdlr := pushHandler.NewHandler(pushTokenRepo)
	hub := wsHandler.NewHub(rdb.Client, presenceRepo, groupSvc, jwtManager, appMetrics)

	// Router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Prometheus(appMetrics))

	router.GET("/health", func(c *gin.Context) {
		if err := pg.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "postgres": err.Error()})
			return
		}
		if err := rdb.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(appMetrics.Handler()))

	v1 := router.Group("/v1")
	{
		authRoutes := v1.Group("/auth")
		authRoutes.Use(middleware.RateLimit(rdb.Client, middleware.DefaultAuthRateLimit()))
		{
			authRoutes.POST("/register", authHdlr.Register)
			authRoutes.POST("/login", authHdlr.Login)
			authRoutes.POST("/refresh", authHdlr.Refresh)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager))
		protected.Use(middleware.RateLimit(rdb.Client, middleware.DefaultAPIRateLimit()))
		{
			protected.POST("/calls", callHdlr.InitiateCall)
			protected.GET("/calls", callHdlr.ListCalls)
			protected.GET("/calls/:id", callHdlr.GetCall)
			protected.POST("/calls/:id/respond", callHdlr.RespondToCall)
			protected.POST("/calls/:id/end", callHdlr.EndCall)

			protected.POST("/groups", groupHdlr.CreateGroup)
			protected.GET("/groups", groupHdlr.ListGroups)
			protected.GET("/groups/:id", groupHdlr.GetGroup)
			protected.PUT("/groups/:id", groupHdlr.UpdateGroup)
			protected.DELETE("/groups/:id", groupHdlr.DeleteGroup)
			protected.GET("/groups/:id/members", groupHdlr.GetMembers)
			protected.POST("/groups/:id/members", groupHdlr.AddMember)
			protected.DELETE("/groups/:id/members/:userId", groupHdlr.RemoveMember)
			protected.PUT("/groups/:id/members/:userId/role", groupHdlr.UpdateMemberRole)
			protected.POST("/groups/:id/leave", groupHdlr.LeaveGroup)
			protected.POST("/groups/:id/mute", groupHdlr.MuteGroup)
			protected.POST("/groups/:id/unmute", groupHdlr.UnmuteGroup)

			protected.POST("/push/tokens", pushHdlr.RegisterToken)
			protected.DELETE("/push/tokens", pushHdlr.UnregisterToken)
		}

		// WebSocket authenticates via token query parameter since
		// browsers cannot set headers on the upgrade request.
		v1.GET("/ws", hub.ServeWS)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
