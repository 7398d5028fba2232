package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/alkime/docucast/internal/audio"
	"github.com/alkime/docucast/internal/config"
	"github.com/alkime/docucast/internal/conversion"
	"github.com/alkime/docucast/internal/keyring"
	"github.com/alkime/docucast/internal/lifecycle"
	"github.com/alkime/docucast/internal/logger"
	"github.com/alkime/docucast/internal/playback"
	"github.com/alkime/docucast/internal/prefs"
	"github.com/alkime/docucast/internal/tui"
	"github.com/alkime/docucast/internal/workdir"
	tea "github.com/charmbracelet/bubbletea"
)

// CLI defines the docucast command structure.
type CLI struct {
	// Default TUI command (runs when no subcommand given)
	TUI TUICmd `cmd:"" default:"withargs" help:"Turn a PDF into a podcast and play it"`

	// Subcommands
	Devices DevicesCmd `cmd:"" help:"List available playback devices"`
	Config  ConfigCmd  `cmd:"" help:"Manage configuration"`
}

// TUICmd is the default command that runs the TUI.
type TUICmd struct {
	File        string  `arg:"" optional:"" type:"path" help:"PDF to select on start"`
	APIURL      string  `flag:"" name:"api-url" help:"Conversion service address (default: DOCUCAST_API_URL or http://localhost:8000)"`
	Tone        string  `flag:"" default:"conversational" enum:"casual,conversational,professional" help:"Conversation tone"`
	Length      string  `flag:"" default:"medium" enum:"short,medium,long" help:"Episode length"`
	Depth       string  `flag:"" default:"balanced" enum:"overview,balanced,deep-dive" help:"Level of detail"`
	Humor       bool    `flag:"" help:"Let the hosts joke around"`
	Rate        float64 `flag:"" default:"1" help:"Initial playback rate (up to 4)"`
	DownloadDir string  `flag:"" optional:"" type:"path" help:"Where saved episodes go (default: ~/Documents/Docucast)"`
}

// Run executes the TUI command.
//
//nolint:funlen // CLI command with multiple setup steps
func (c *TUICmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	p, err := c.preferences()
	if err != nil {
		return err
	}

	root, err := workdir.Prep()
	if err != nil {
		return fmt.Errorf("failed to prepare working directory: %w", err)
	}

	// The TUI owns the terminal, so logs go to a file.
	logPath := cfg.LogFile
	if logPath == "" {
		if logPath, err = workdir.FilePath("docucast.log"); err != nil {
			return fmt.Errorf("failed to determine log path: %w", err)
		}
	}

	log, closer, err := logger.SetupFileLogger(logPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()

	downloadDir := firstNonEmpty(c.DownloadDir, cfg.DownloadDir, root)
	apiURL := cfg.ResolveAPIURL(c.APIURL)

	log.Info("Starting docucast",
		"api_url", apiURL,
		"download_dir", downloadDir,
		"preferences", p,
	)

	ctrl, err := lifecycle.New(lifecycle.Options{
		Converter:     conversion.NewClient(apiURL, nil),
		Opener:        audio.NewOpener(nil, audio.PlayerConfig{}, nil),
		SubmitTimeout: cfg.SubmitTimeout,
		DownloadDir:   downloadDir,
		Preferences:   p,
		Rate:          c.Rate,
	})
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}

	err = tui.Run(ctx, tui.Config{Path: c.File, Cancel: cancel}, ctrl, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if err != nil {
		return err
	}

	fmt.Println("bye!")

	return nil
}

func (c *TUICmd) preferences() (prefs.Preferences, error) {
	tone, err := prefs.ParseTone(c.Tone)
	if err != nil {
		return prefs.Preferences{}, err
	}

	length, err := prefs.ParseLength(c.Length)
	if err != nil {
		return prefs.Preferences{}, err
	}

	depth, err := prefs.ParseDepth(c.Depth)
	if err != nil {
		return prefs.Preferences{}, err
	}

	if err := playback.ValidateRate(c.Rate); err != nil {
		return prefs.Preferences{}, fmt.Errorf("--rate: %w", err)
	}

	return prefs.Preferences{Tone: tone, Length: length, Depth: depth, Humor: c.Humor}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

// DevicesCmd lists available playback devices.
type DevicesCmd struct{}

// Run executes the devices command.
func (dcmd *DevicesCmd) Run() error {
	slog.Info("Enumerating playback devices...")

	devices, err := audio.EnumeratePlaybackDevices()
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	for _, dev := range devices {
		slog.Info("Audio Device",
			"name", dev.Name,
			"isDefault", dev.IsDefault,
			"formatCount", dev.FormatCount,
			"formats", dev.Formats,
		)
	}

	return nil
}

// ConfigCmd groups configuration-related subcommands.
type ConfigCmd struct {
	SetKey   SetKeyCmd   `cmd:"" help:"Store a service API key in system keychain"`
	ListKeys ListKeysCmd `cmd:"" name:"list-keys" help:"Show which API keys are configured"`
}

// SetKeyCmd stores an API key in the system keychain. The conversion service
// reads these when its environment leaves them unset.
type SetKeyCmd struct {
	Service string `arg:"" enum:"openai,anthropic" help:"Service name (openai or anthropic)"`
	Secret  string `arg:"" help:"API key value"`
}

// Run executes the set-key command.
func (c *SetKeyCmd) Run() error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("API key cannot be empty")
	}

	apiKey, err := keyring.APIKeyFromServiceName(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Set(apiKey, c.Secret); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("%s API key stored in keychain\n", c.Service)

	return nil
}

// ListKeysCmd shows which API keys are configured.
type ListKeysCmd struct{}

// Run executes the list-keys command.
//
//nolint:unparam // error return required by Kong interface
func (c *ListKeysCmd) Run() error {
	allSet := true

	for _, apiKey := range keyring.AllAPIKeys() {
		if keyring.IsSet(apiKey) {
			fmt.Printf("%s: configured\n", apiKey.DisplayName())
		} else {
			fmt.Printf("%s: not set\n", apiKey.DisplayName())
			allSet = false
		}
	}

	if !allSet {
		fmt.Println("\nWithout keys the service falls back to offline excerpts and tones.")
		fmt.Println("Run 'docucast config set-key <service> <key>' to configure.")
	}

	return nil
}

func main() {
	// Set up text-based logger for CLI output
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))

	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli,
		kong.Name("docucast"),
		kong.Description("Turn PDF documents into two-voice podcasts."),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
	os.Exit(0)
}
