package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/icelocator/locator-core/internal/app"
	"github.com/icelocator/locator-core/pkg/cli"
	"github.com/icelocator/locator-core/pkg/config"
	"github.com/icelocator/locator-core/pkg/telemetry/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "icelocator",
	Short: "ICE Locator MCP core — a detainee-lookup search client",
	Long: `icelocator drives structured searches against a public detainee-lookup
upstream: session/CSRF-aware form submission, proxy rotation, anti-detection
pacing, and fuzzy name matching, exposed as a small set of tool-invocation
operations (search_by_name, search_by_alien_number, search_by_facility,
bulk_search, parse_natural_query).`,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config.yaml (defaults to an empty, all-default configuration)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads cfgFile if set, or returns config.Default() otherwise.
// The loaded config also becomes the process singleton, which the serve
// command's hot-reload watcher keeps current.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
	}
	config.Set(cfg)
	return cfg, nil
}

// newLogger builds the process logger with PII redaction on, so detainee
// identifiers never reach a log sink even at debug level.
func newLogger() *slog.Logger {
	level := "info"
	if verbose {
		level = "debug"
	}
	l, err := logging.New(logging.Config{
		Level:     level,
		Format:    "text",
		RedactPII: true,
		Writer:    os.Stderr,
	})
	if err != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return l.Slog()
}

// buildApp loads configuration and wires a fully-constructed App, the
// shared entry point every subcommand that touches the search core uses.
func buildApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) && len(verr.Errors) > 0 {
			return nil, cli.NewConfigError(verr.Errors[0].Field, verr.Errors[0].Message)
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(cfg, newLogger())
}
