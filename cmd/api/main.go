package main

import (
	"context"
	"log"

	"agrilink/internal/config"
	"agrilink/internal/events"
	"agrilink/internal/handler"
	"agrilink/internal/repository"
	"agrilink/internal/server"
	"agrilink/internal/services"
	"agrilink/internal/websocket"
	"agrilink/pkg/database"
	"agrilink/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l := logger.New(cfg.Server.Environment)
	defer l.Sync()
	logger.SetGlobalLogger(l)

	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		l.Errorf("Failed to connect to database: %s", err)
		return
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		l.Errorf("Failed to connect to redis: %s", err)
		return
	}
	defer redisClient.Close()

	bus := events.NewRedisBus(redisClient)

	userRepo := repository.NewUserRepository(pool)
	directory := repository.NewProfileDirectory(pool)
	connRepo := repository.NewConnectionRepository(pool)
	convRepo := repository.NewConversationRepository(pool)
	notifRepo := repository.NewNotificationRepository(pool)
	catalog := repository.NewCatalogReader(pool)

	authService := services.NewAuthService(userRepo, cfg)
	notificationService := services.NewNotificationService(notifRepo, bus, l)
	connectionService := services.NewConnectionService(connRepo, directory, notificationService, bus, l)
	messagingService := services.NewMessagingService(connRepo, convRepo, directory, catalog, notificationService, bus, l)
	quoteService := services.NewQuoteService(connRepo, convRepo, directory, notificationService, bus, l)

	hub := websocket.NewHub()
	hubCtx, cancelHub := context.WithCancel(ctx)
	defer cancelHub()
	go hub.Run(hubCtx)

	bridge := websocket.NewBusBridge(bus, hub)
	go func() {
		if err := bridge.Run(hubCtx); err != nil && hubCtx.Err() == nil {
			l.Errorf("Event bridge stopped: %s", err)
		}
	}()

	authorizer := websocket.NewAuthorizer(connRepo, directory)

	handlers := &server.Handlers{
		Auth:         handler.NewAuthHandler(authService, directory, l),
		Connection:   handler.NewConnectionHandler(connectionService, l),
		Message:      handler.NewMessageHandler(messagingService, l),
		Quote:        handler.NewQuoteHandler(quoteService, l),
		Notification: handler.NewNotificationHandler(notificationService, l),
		WS:           websocket.NewHandler(authService, authorizer, hub, l),
	}

	srv := server.New(cfg, l, pool)
	srv.SetupRoutes(handlers, authService)

	if err := srv.Start(); err != nil {
		l.Errorf("Server exited with error: %s", err)
	}
}
