// Package api provides the HTTP API server for Sentra.
// It uses Echo framework to serve REST endpoints and a WebSocket event
// stream for real-time camera, recording and plate-read monitoring.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/sentra-video/sentra/internal/auth"
	"github.com/sentra-video/sentra/internal/bus"
	"github.com/sentra-video/sentra/internal/config"
	"github.com/sentra-video/sentra/internal/storage"
	"github.com/sentra-video/sentra/internal/supervisor"
	"github.com/sentra-video/sentra/internal/validation"
	"github.com/sentra-video/sentra/internal/vault"
	"github.com/sentra-video/sentra/internal/version"
)

// Server represents the Sentra API server.
type Server struct {
	echo       *echo.Echo
	storage    *storage.Storage
	config     *config.Config
	manager    *supervisor.Manager
	vault      *vault.Vault
	bus        *bus.Bus
	wsHub      *Hub
	validator  *validation.Validator
	jwtService *auth.JWTService
	authMiddle *auth.Middleware
}

// debugLog logs a message only if debug mode is enabled in config
func (s *Server) debugLog(format string, args ...interface{}) {
	if s.config.Server.Debug {
		log.Printf(format, args...)
	}
}

// New creates a new API server instance.
func New(cfg *config.Config, store *storage.Storage, manager *supervisor.Manager, v *vault.Vault, b *bus.Bus) (*Server, error) {
	e := echo.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Server.Debug

	// Set custom error handler
	e.HTTPErrorHandler = HTTPErrorHandler

	// Create WebSocket hub fed by the event bus
	hub, err := NewHub(b)
	if err != nil {
		return nil, fmt.Errorf("failed to create websocket hub: %w", err)
	}

	jwtService := auth.NewJWTService(cfg)

	// Create server instance
	server := &Server{
		echo:       e,
		storage:    store,
		config:     cfg,
		manager:    manager,
		vault:      v,
		bus:        b,
		wsHub:      hub,
		validator:  validation.New(),
		jwtService: jwtService,
		authMiddle: auth.NewMiddleware(jwtService),
	}

	// Start WebSocket hub in background
	go hub.Run()

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes()

	return server, nil
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	// Logger middleware
	s.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${uri} (${latency_human})\n",
	}))

	// Recover middleware
	s.echo.Use(middleware.Recover())

	// Security headers middleware
	s.echo.Use(SecurityHeaders)

	// CORS middleware
	if len(s.config.Security.AllowedOrigins) > 0 {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.config.Security.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Rate limiting
	if s.config.Security.RateLimit > 0 {
		s.echo.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
			rate.Limit(s.config.Security.RateLimit),
		)))
	}

	// Content-Type validation middleware for API routes
	s.echo.Use(ValidateContentType)

	// Accept header validation middleware
	s.echo.Use(ValidateAcceptHeader)
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/", s.healthCheck)

	// Media delivery. HLS players and <img> tags cannot attach headers,
	// so playlists, segments and snapshots are served without JWT auth.
	s.echo.Static("/streams", filepath.Join(s.config.Media.BaseDir, "streams"))
	s.echo.Static("/media/snapshots", filepath.Join(s.config.Media.BaseDir, "snapshots"))

	// API v1 group
	v1 := s.echo.Group("/api/v1")

	// Authentication routes
	authRoutes := v1.Group("/auth")
	authRoutes.POST("/login", s.login)
	authRoutes.POST("/register", s.register)
	authRoutes.GET("/me", s.me, s.authMiddle.RequireAuth)

	// User management routes
	users := v1.Group("/users")
	users.POST("", s.createUser, s.authMiddle.RequireAuth, s.authMiddle.RequireAdmin)
	users.GET("", s.listUsers, s.authMiddle.RequireAuth, s.authMiddle.RequireAdmin)
	users.GET("/:id", s.getUser, ValidateIDFormat, s.authMiddle.RequireAuth, s.authMiddle.RequireAdmin)
	users.PUT("/:id", s.updateUser, ValidateIDFormat, s.authMiddle.RequireAuth, s.authMiddle.RequireAdmin)
	users.DELETE("/:id", s.deleteUser, ValidateIDFormat, s.authMiddle.RequireAuth, s.authMiddle.RequireAdmin)
	users.POST("/password", s.changePassword, s.authMiddle.RequireAuth)

	// Camera routes
	cameras := v1.Group("/cameras", s.authMiddle.RequireAuth)
	cameras.GET("", s.listCameras)
	cameras.GET("/:id", s.getCamera, ValidateIDFormat)
	cameras.POST("", s.createCamera, s.authMiddle.RequireAdmin)
	cameras.PUT("/:id", s.updateCamera, ValidateIDFormat, s.authMiddle.RequireAdmin)
	cameras.DELETE("/:id", s.deleteCamera, ValidateIDFormat, s.authMiddle.RequireAdmin)

	// Camera pipeline actions
	cameras.POST("/:id/start", s.startCamera, ValidateIDFormat, s.authMiddle.RequireAdmin)
	cameras.POST("/:id/stop", s.stopCamera, ValidateIDFormat, s.authMiddle.RequireAdmin)
	cameras.POST("/:id/restart", s.restartCamera, ValidateIDFormat, s.authMiddle.RequireAdmin)
	cameras.POST("/:id/snapshot", s.snapshotCamera, ValidateIDFormat)
	cameras.GET("/:id/stream", s.getStreamInfo, ValidateIDFormat)

	// HLS delivery with explicit MIME types and cache policy. Players
	// pass the token as a query parameter, like the WebSocket clients.
	cameras.GET("/:id/hls/playlist.m3u8", s.getHLSPlaylist, ValidateIDFormat)
	cameras.GET("/:id/hls/:segment", s.getHLSSegment, ValidateIDFormat)

	// Recording control
	cameras.POST("/:id/recordings/start", s.startRecording, ValidateIDFormat, s.authMiddle.RequireAdmin)
	cameras.POST("/:id/recordings/stop", s.stopRecording, ValidateIDFormat, s.authMiddle.RequireAdmin)
	cameras.GET("/:id/recordings", s.listCameraRecordings, ValidateIDFormat)

	// Plate recognition control
	cameras.POST("/:id/anpr/trigger", s.triggerANPR, ValidateIDFormat)
	cameras.GET("/:id/anpr/events", s.listCameraANPREvents, ValidateIDFormat)

	// Recording routes
	recordings := v1.Group("/recordings", s.authMiddle.RequireAuth)
	recordings.GET("", s.listRecordings)
	recordings.GET("/:id", s.getRecording, ValidateIDFormat)
	recordings.GET("/:id/download", s.downloadRecording, ValidateIDFormat)
	recordings.DELETE("/:id", s.deleteRecording, ValidateIDFormat, s.authMiddle.RequireAdmin)

	// Plate read routes
	anpr := v1.Group("/anpr", s.authMiddle.RequireAuth)
	anpr.POST("/process", s.processANPR)
	anprEvents := anpr.Group("/events")
	anprEvents.GET("", s.listANPREvents)
	anprEvents.GET("/:id", s.getANPREvent, ValidateIDFormat)
	anprEvents.DELETE("/:id", s.deleteANPREvent, ValidateIDFormat, s.authMiddle.RequireAdmin)

	// System routes
	system := v1.Group("/system", s.authMiddle.RequireAuth)
	system.GET("/stats", s.getStatistics)

	// WebSocket routes. RequireAuth accepts a token query parameter
	// because browsers cannot set headers on upgrade requests.
	ws := v1.Group("/ws")
	ws.GET("", s.handleWebSocket, s.authMiddle.RequireAuth)
	ws.GET("/stats", s.getWebSocketStats, s.authMiddle.RequireAuth)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	log.Printf("starting Sentra API server on http://%s (database %s, debug %v)",
		addr, s.config.CouchDB.Database, s.config.Server.Debug)

	// Configure server timeouts
	s.echo.Server.ReadTimeout = s.config.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.WriteTimeout

	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server. The WebSocket hub is closed
// after the listener so in-flight clients get their close frames.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	s.wsHub.Close()
	return nil
}

// healthCheck handles health check requests.
func (s *Server) healthCheck(c echo.Context) error {
	stats, err := s.storage.GetStatistics()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   "database connection failed",
			"details": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "sentra",
		"version": version.Version,
		"cameras": map[string]interface{}{
			"total":  stats.TotalCameras,
			"online": stats.CamerasOnline,
		},
	})
}

// ServeHTTP allows Server to implement http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
