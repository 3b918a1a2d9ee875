// Package http provides the HTTP server adapter for the application layer.
// A thin layer that translates requests to service calls; authentication and
// authorization happen upstream, the authenticated actor id arrives in the
// X-Actor-ID header.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siades/backend/internal/application/service"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config            ServerConfig
	httpServer        *http.Server
	router            *gin.Engine
	letterService     service.LetterService
	residentService   service.ResidentService
	statisticsService service.StatisticsService
	logger            *zap.Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	letterService service.LetterService,
	residentService service.ResidentService,
	statisticsService service.StatisticsService,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:            config,
		router:            gin.New(),
		letterService:     letterService,
		residentService:   residentService,
		statisticsService: statisticsService,
		logger:            logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
}

// requestIDMiddleware assigns each request an id, honoring an upstream
// X-Request-ID when present
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.letterService, s.residentService, s.statisticsService, s.logger)

	s.router.GET("/health", handlers.HealthCheck)

	api := s.router.Group("/api")
	api.Use(actorMiddleware())
	{
		api.POST("/letter-types", handlers.CreateLetterType)
		api.GET("/letter-types", handlers.ListLetterTypes)
		api.PUT("/letter-types/:id", handlers.UpdateLetterType)
		api.DELETE("/letter-types/:id", handlers.DeleteLetterType)

		api.POST("/letter-requests", handlers.CreateLetterRequest)
		api.GET("/letter-requests", handlers.ListLetterRequests)
		api.GET("/letter-requests/:id", handlers.GetLetterRequest)
		api.POST("/letter-requests/:id/verify", handlers.VerifyLetterRequest)
		api.POST("/letter-requests/:id/approve", handlers.ApproveLetterRequest)
		api.POST("/letter-requests/:id/reject", handlers.RejectLetterRequest)

		api.POST("/residents", handlers.CreateResident)
		api.GET("/residents", handlers.ListResidents)
		api.GET("/residents/:id", handlers.GetResident)
		api.POST("/residents/:id/death", handlers.RecordResidentDeath)
		api.PATCH("/residents/:id/domicile", handlers.UpdateResidentDomicile)
		api.DELETE("/residents/:id", handlers.DeleteResident)

		api.GET("/statistics/summary", handlers.StatisticsSummary)
	}
}

// actorMiddleware requires the authenticated actor id propagated by the
// upstream gate
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetHeader("X-Actor-ID")
		if actorID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing X-Actor-ID header",
			})
			return
		}
		c.Set("actor_id", actorID)
		c.Next()
	}
}

// Start starts the HTTP server and blocks until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
