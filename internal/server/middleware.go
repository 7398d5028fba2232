package server

import (
	"log/slog"

	"github.com/alkime/docucast/internal/config"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

// setupSecurityMiddleware configures and applies security middleware to the router
func setupSecurityMiddleware(router *gin.Engine, cfg *config.Server, logger *slog.Logger) {
	production := cfg.Env == config.EnvProduction

	// HSTS only makes sense behind TLS in production.
	stsSeconds := int64(0)
	if production {
		stsSeconds = int64(cfg.HSTSMaxAge)
	}

	secureMiddleware := secure.New(secure.Config{
		STSSeconds:            stsSeconds,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: config.BuildCSP(cfg.CSPMode),
	})
	router.Use(secureMiddleware)

	logger.Debug("Configured security middleware",
		"hsts_enabled", production,
		"csp_mode", cfg.CSPMode,
	)
}
