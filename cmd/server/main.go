package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	attachmentHandler "telecare-backend/internal/handler/http/attachment"
	callHandler "telecare-backend/internal/handler/http/call"
	conversationHandler "telecare-backend/internal/handler/http/conversation"
	wsHandler "telecare-backend/internal/handler/ws"
	"telecare-backend/internal/middleware"
	"telecare-backend/internal/repository/postgres"
	redisrepo "telecare-backend/internal/repository/redis"
	callService "telecare-backend/internal/service/call"
	chatService "telecare-backend/internal/service/chat"
	storageService "telecare-backend/internal/service/storage"
	"telecare-backend/pkg/config"
	"telecare-backend/pkg/constants"
	"telecare-backend/pkg/database"
	"telecare-backend/pkg/jwt"
	"telecare-backend/pkg/logger"
	"telecare-backend/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	jwtManager := jwt.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	ctx := context.Background()

	postgresDB, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer postgresDB.Close()
	logger.Info("connected to postgres", zap.String("database", cfg.Database.Database))

	redisDB, err := database.NewRedisDB(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisDB.Close()
	logger.Info("connected to redis", zap.String("host", cfg.Redis.Host))

	// Repositories
	userRepo := postgres.NewUserRepository(postgresDB.Pool)
	conversationRepo := postgres.NewConversationRepository(postgresDB.Pool)
	messageRepo := postgres.NewMessageRepository(postgresDB.Pool)
	attachmentRepo := postgres.NewAttachmentRepository(postgresDB.Pool)
	callRepo := postgres.NewCallRepository(postgresDB.Pool)
	presenceRepo := redisrepo.NewPresenceRepository(redisDB.Client)

	// Services
	chatSvc := chatService.NewService(messageRepo, attachmentRepo, userRepo,
		conversationRepo, callRepo, presenceRepo, cfg.Media.BaseURL)
	callSvc := callService.NewService(callRepo, conversationRepo)
	storageSvc, err := storageService.NewMinIOService(cfg.MinIO, attachmentRepo)
	if err != nil {
		logger.Fatal("failed to initialize object storage", zap.Error(err))
	}
	logger.Info("connected to object storage", zap.String("bucket", cfg.MinIO.Bucket))

	// Metrics
	appMetrics := metrics.New(cfg.Server.ServiceName)

	// WebSocket hub and handlers
	revocationChecker := middleware.NewRedisRevocationChecker(redisDB.Client)
	authenticator := wsHandler.NewAuthenticator(jwtManager, revocationChecker, userRepo)
	hub := wsHandler.NewHub()
	chatWS := wsHandler.NewChatHandler(hub, chatSvc, authenticator, appMetrics)
	callWS := wsHandler.NewCallHandler(hub, callSvc, chatSvc, authenticator, appMetrics)

	// HTTP handlers
	conversationHdlr := conversationHandler.NewHandler(chatSvc, storageSvc, hub)
	callHdlr := callHandler.NewHandler(callSvc)
	attachmentHdlr := attachmentHandler.NewHandler(storageSvc)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.SetTrustedProxies(nil)
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigins))
	router.Use(middleware.Prometheus(appMetrics))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": cfg.Server.ServiceName,
			"time":    time.Now().UTC(),
		})
	})
	router.GET("/metrics", middleware.MetricsHandler(appMetrics))

	// WebSocket routes. The credential rides in the query string, so no
	// auth middleware here; the sessions authenticate during handshake.
	router.GET("/conversation/:conversationID/", chatWS.ServeWS)
	router.GET("/call/:callID/", callWS.ServeWS)

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(jwtManager, revocationChecker))
	{
		v1.POST("/conversations", conversationHdlr.CreateConversation)
		v1.GET("/conversations", conversationHdlr.GetConversations)
		v1.GET("/conversations/:conversationID/messages", conversationHdlr.GetHistory)
		v1.POST("/conversations/:conversationID/messages", conversationHdlr.SendMessage)

		v1.POST("/calls", callHdlr.CreateCall)
		v1.GET("/calls/:callID", callHdlr.GetCall)
		v1.PATCH("/calls/:callID", callHdlr.UpdateCall)

		v1.POST("/attachments", attachmentHdlr.Upload)
		v1.GET("/attachments/:attachmentID/url", attachmentHdlr.DownloadURL)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
