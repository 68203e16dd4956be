package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agrilink/internal/config"
	"agrilink/internal/handler"
	"agrilink/internal/middleware"
	"agrilink/internal/services"
	"agrilink/internal/transport/httpdto"
	"agrilink/internal/websocket"
	"agrilink/pkg/database"
	"agrilink/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
	pool       *pgxpool.Pool
}

var (
	ProductionMode  = "production"
	DevelopmentMode = "development"
	TestMode        = "test"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	Connection   *handler.ConnectionHandler
	Message      *handler.MessageHandler
	Quote        *handler.QuoteHandler
	Notification *handler.NotificationHandler
	WS           *websocket.Handler
}

func New(cfg *config.Config, l *logger.Logger, pool *pgxpool.Pool) *Server {
	if cfg.Server.Environment == ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.Server.Environment == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
		pool:   pool,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(c.Request.Context(), s.pool); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	authRequired := middleware.AuthMiddleware(authService)

	auth := s.engine.Group("/v1/auth")
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
	}

	profile := s.engine.Group("/v1/profile", authRequired)
	{
		profile.POST("", handlers.Auth.CreateProfile)
		profile.GET("", handlers.Auth.MyProfile)
	}

	connections := s.engine.Group("/v1/connections", authRequired)
	{
		connections.POST("", handlers.Connection.Request)
		connections.GET("", handlers.Connection.List)
		connections.GET("/incoming", handlers.Connection.ListIncoming)
		connections.POST("/:id/respond", handlers.Connection.Respond)
		connections.POST("/:id/resign", handlers.Connection.Resign)
		connections.POST("/:id/messages", handlers.Message.Send)
		connections.GET("/:id/messages", handlers.Message.Fetch)
		connections.POST("/:id/quotes", handlers.Quote.Create)
	}

	quotes := s.engine.Group("/v1/quotes", authRequired)
	{
		quotes.POST("/:id/respond", handlers.Quote.Respond)
	}

	inquiries := s.engine.Group("/v1/inquiries", authRequired)
	{
		inquiries.POST("", handlers.Message.RecordInquiry)
	}

	notifications := s.engine.Group("/v1/notifications", authRequired)
	{
		notifications.GET("", handlers.Notification.List)
		notifications.POST("/:id/read", handlers.Notification.MarkRead)
		notifications.POST("/read-all", handlers.Notification.MarkAllRead)
	}

	// WebSocket auth happens inside the handler; the token arrives as a
	// query parameter because browsers cannot set headers on upgrades.
	s.engine.GET("/ws", handlers.WS.Connect)
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.Server.Port)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.Server.Port)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
