package main

import (
	"log"
	"os"

	"github.com/alkime/docucast/internal/config"
	"github.com/alkime/docucast/internal/keyring"
	"github.com/alkime/docucast/internal/logger"
	"github.com/alkime/docucast/internal/podcast"
	"github.com/alkime/docucast/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	logger := logger.SetupLogger(cfg)

	// Environment wins, the keychain fills gaps.
	anthropicKey := keyring.Resolve(keyring.Anthropic, cfg.AnthropicAPIKey)
	openAIKey := keyring.Resolve(keyring.OpenAI, cfg.OpenAIAPIKey)

	if err := os.MkdirAll(cfg.AudioDir, 0o755); err != nil {
		log.Fatalf("Failed to create audio directory: %v", err)
	}

	// Log startup information
	logger.Info("Starting docucast server",
		"env", cfg.Env,
		"port", cfg.Port,
		"audio_dir", cfg.AudioDir,
		"scriptwriter", describe(anthropicKey, "anthropic", "excerpt"),
		"narrator", describe(openAIKey, "openai", "tones"),
	)

	producer := podcast.NewFromKeys(anthropicKey, openAIKey, cfg.AudioDir)

	srv := server.New(cfg, logger, producer)
	if err := server.Run(srv); err != nil {
		logger.Error("Failed to start server", "error", err)
		log.Fatalf("Fatal: %v", err)
	}
}

func describe(key, online, offline string) string {
	if key == "" {
		return offline
	}

	return online
}
