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

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chat_relay/internal/broker"
	"chat_relay/internal/config"
	"chat_relay/internal/handler"
	"chat_relay/internal/middleware"
	"chat_relay/internal/repository"
	"chat_relay/internal/service"
	"chat_relay/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level)
	defer appLogger.Sync()

	ctx := context.Background()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		appLogger.Fatal("Failed to connect to MongoDB", "error", err)
	}
	defer mongoClient.Disconnect(context.Background())

	if err := mongoClient.Ping(ctx, nil); err != nil {
		appLogger.Fatal("Failed to ping MongoDB", "error", err)
	}
	appLogger.Info("MongoDB connection established")
	db := mongoClient.Database(cfg.Mongo.Database)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	brokerClient := broker.NewClient(cfg.Broker, appLogger)
	if err := brokerClient.Connect(); err != nil {
		appLogger.Fatal("Failed to connect to message broker", "error", err)
	}
	defer brokerClient.Close()
	appLogger.Info("Broker connection established", "exchange", cfg.Broker.Exchange)

	s3Client, err := newS3Client(ctx, cfg.Storage)
	if err != nil {
		appLogger.Fatal("Failed to configure object storage", "error", err)
	}

	repos := repository.NewRepositories(db, rdb, appLogger)

	// The registry doubles as the presence oracle the relay consults
	// before falling back to push notifications.
	registry := handler.NewRegistry()

	services := service.NewServices(repos, cfg, brokerClient, registry, s3Client, appLogger)
	defer services.Notification.Close()

	handlers := handler.NewHandlers(services, cfg, registry, handler.NewMailboxSource(brokerClient), appLogger)

	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	router := setupRouter(handlers, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func newS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg), nil
}

func setupRouter(
	handlers *handler.Handlers,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	// Health check
	router.GET("/health", handlers.Health.Check)

	api := router.Group("/api")
	{
		api.POST("/chats", rateLimitMiddleware.Limit(), handlers.Chat.CreateChat)
		api.GET("/chats/:userId", handlers.Chat.GetUserChats)
		api.GET("/messages/:chatId", handlers.Chat.GetMessages)
		api.POST("/chat/upload", rateLimitMiddleware.Limit(), handlers.Upload.Upload)

		// Admin listing endpoints, behind the static API key.
		admin := api.Group("")
		admin.Use(middleware.APIKey(cfg.API.AdminKey))
		{
			admin.GET("/getChats", handlers.Chat.ListChats)
			admin.GET("/getChatDetails/:bookingId", handlers.Chat.GetChatDetails)
		}
	}

	// Streaming endpoint: one connection per user per booking.
	router.GET("/ws/:userId/:bookingId", handlers.WebSocket.HandleChat)

	return router
}
