// Package server is the conversion service: it accepts a PDF with
// preferences and answers with the produced episode's transcript.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alkime/docucast/internal/config"
	"github.com/alkime/docucast/internal/podcast"
	"github.com/alkime/docucast/internal/prefs"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

// Producer turns an uploaded document into an episode.
type Producer interface {
	Produce(ctx context.Context, path, name string, p prefs.Preferences) (podcast.Episode, error)
}

// Server represents the HTTP server
type Server struct {
	config   *config.Server
	logger   *slog.Logger
	router   *gin.Engine
	producer Producer
}

// New creates a new Server instance
func New(cfg *config.Server, logger *slog.Logger, producer Producer) *Server {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Configure proxy trust for production (Fly.io)
	if cfg.Env == config.EnvProduction {
		router.TrustedPlatform = gin.PlatformFlyIO
		logger.Debug("Configured trusted platform", "platform", "fly.io")
	}

	server := &Server{
		config:   cfg,
		logger:   logger,
		router:   router,
		producer: producer,
	}

	setupSecurityMiddleware(router, cfg, logger)
	server.setupRoutes()

	return server
}

// Router exposes the engine for tests and embedding.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server
func Run(s *Server) error {
	s.logger.Info("Server listening", "port", s.config.Port, "audio_dir", s.config.AudioDir)
	return s.router.Run(":" + s.config.Port)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.POST("/upload", s.handleUpload)

	// Episodes are static files; LocalFile refuses paths outside AudioDir.
	s.router.Use(static.Serve("/audio", episodeFS{static.LocalFile(s.config.AudioDir, false)}))
}

// episodeFS hides dot-prefixed names from the audio route.
type episodeFS struct {
	static.ServeFileSystem
}

func (e episodeFS) Exists(prefix, path string) bool {
	for _, part := range strings.Split(strings.TrimPrefix(path, prefix), "/") {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}

	return e.ServeFileSystem.Exists(prefix, path)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "docucast",
	})
}
