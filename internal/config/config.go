// Package config loads settings for the client and the conversion service
// from the environment, with an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvProduction represents the production environment.
	EnvProduction = "production"

	// ClientPrefix namespaces the client's variables, e.g. DOCUCAST_API_URL.
	ClientPrefix = "DOCUCAST"

	// DefaultAPIURL is used when neither the flag nor the environment name a
	// conversion service.
	DefaultAPIURL = "http://localhost:8000"
)

// Server holds the conversion service's configuration.
type Server struct {
	// Server settings
	Env  string `envconfig:"ENV" default:"development"`
	Port string `envconfig:"PORT" default:"8000"`

	// Security settings
	HSTSMaxAge int    `envconfig:"HSTS_MAX_AGE" default:"31536000"`
	CSPMode    string `envconfig:"CSP_MODE" default:"relaxed"`

	// Logging settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// AudioDir holds produced episodes, served under /audio.
	AudioDir       string `envconfig:"AUDIO_DIR" default:"./audio"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"52428800"`

	// API keys. Empty keys fall back to the keychain, then to offline mode.
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
}

// Client holds the terminal client's configuration.
type Client struct {
	APIURL        string        `envconfig:"API_URL"`
	SubmitTimeout time.Duration `envconfig:"SUBMIT_TIMEOUT" default:"15m"`
	// DownloadDir defaults to the working directory when empty.
	DownloadDir string `envconfig:"DOWNLOAD_DIR"`
	// LogFile defaults to docucast.log in the working directory when empty.
	LogFile  string `envconfig:"LOG_FILE"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// ResolveAPIURL picks the service address: flag, then environment, then the
// fixed default.
func (c *Client) ResolveAPIURL(flag string) string {
	switch {
	case flag != "":
		return flag
	case c.APIURL != "":
		return c.APIURL
	default:
		return DefaultAPIURL
	}
}

// LoadServer loads the service configuration.
func LoadServer() (*Server, error) {
	loadDotEnv()

	var cfg Server
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	return &cfg, nil
}

// LoadClient loads the client configuration from DOCUCAST_* variables.
func LoadClient() (*Client, error) {
	loadDotEnv()

	var cfg Client
	if err := envconfig.Process(ClientPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if cfg.SubmitTimeout <= 0 {
		return nil, fmt.Errorf("%s_SUBMIT_TIMEOUT must be positive, got %s", ClientPrefix, cfg.SubmitTimeout)
	}

	return &cfg, nil
}

// loadDotEnv reads .env if present. It never overrides variables already set.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Error loading .env file", "error", err)
	}
}

// BuildCSP constructs Content Security Policy based on mode.
func BuildCSP(mode string) string {
	if mode == "strict" {
		return "default-src 'self'; " +
			"media-src 'self'; " +
			"script-src 'self'; " +
			"object-src 'none'; " +
			"base-uri 'self'; " +
			"form-action 'self'"
	}

	// Development/relaxed CSP
	return "default-src 'self'; " +
		"media-src 'self' blob:; " +
		"style-src 'self' 'unsafe-inline'"
}
