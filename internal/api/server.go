package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/camstream/internal/database"
	"github.com/yourusername/camstream/internal/stream"
	"go.uber.org/zap"
)

// StreamDefaults are server-wide settings applied to every camera stream.
type StreamDefaults struct {
	TargetFPS int
	MaxWidth  int
}

// Server is the HTTP API server. It owns no stream state; everything goes
// through the manager and the camera repository.
type Server struct {
	logger     *zap.Logger
	httpServer *http.Server
	router     *gin.Engine
	port       int

	manager     *stream.Manager
	cameras     *database.CameraRepository
	defaults    StreamDefaults
	snapshotDir string
	startedAt   time.Time
}

// ServerConfig carries the API server's dependencies.
type ServerConfig struct {
	Port        int
	Production  bool
	Logger      *zap.Logger
	Manager     *stream.Manager
	Cameras     *database.CameraRepository
	Defaults    StreamDefaults
	SnapshotDir string
}

// NewServer builds the server and registers its routes.
func NewServer(config ServerConfig) *Server {
	if !config.Production {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(loggerMiddleware(config.Logger))

	server := &Server{
		logger:      config.Logger,
		router:      router,
		port:        config.Port,
		manager:     config.Manager,
		cameras:     config.Cameras,
		defaults:    config.Defaults,
		snapshotDir: config.SnapshotDir,
		startedAt:   time.Now(),
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/api/health", s.handleHealth)

	cameras := s.router.Group("/api/cameras")
	{
		cameras.GET("", s.handleListCameras)
		cameras.POST("", s.handleCreateCamera)
		cameras.GET("/:id", s.handleGetCamera)
		cameras.PUT("/:id", s.handleUpdateCamera)
		cameras.DELETE("/:id", s.handleDeleteCamera)
		cameras.POST("/:id/snapshot", s.handleSaveSnapshot)
	}

	s.router.GET("/api/stream/:id", s.handleStream)
	s.router.GET("/api/snapshot/:id", s.handleSnapshot)

	// WebSocket status push
	s.router.GET("/ws/status", s.handleStatusSocket)
}

// Router exposes the gin engine for in-process tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins serving in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: MJPEG responses stay open as long as the
		// viewer does.
		IdleTimeout: 60 * time.Second,
	}

	s.logger.Info("Starting API server",
		zap.String("addr", addr),
	)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop shuts the server down.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	if s.httpServer != nil {
		return s.httpServer.Close()
	}

	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
