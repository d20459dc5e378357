package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ckanloader/internal/ckan"
	"github.com/JonMunkholm/ckanloader/internal/config"
	"github.com/JonMunkholm/ckanloader/internal/loader"
	"github.com/JonMunkholm/ckanloader/internal/logging"
)

var (
	flagBaseURL   string
	flagAPIKey    string
	flagLogLevel  string
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:   "ckanloader",
	Short: "Load CKAN resources into the CKAN Datastore",
	Long: `ckanloader downloads tabular resource files from a CKAN instance,
resolves a loading schema for each one (format, header, column names and
types), and replaces the resource's Datastore table with the parsed rows.

Detection is a starting point, not a verdict: every resolved value can be
overridden through a schema file, and the resolved schema can be written
back out, corrected, and fed into the next run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "",
		"CKAN base URL (overrides CKAN_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "",
		"CKAN API key (overrides CKAN_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "",
		"log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "",
		"log format: text or json (overrides LOG_FORMAT)")
}

// setup loads .env and environment configuration, applies flag overrides,
// validates the result, and installs the logger. Every subcommand calls it
// first.
func setup() (*config.Config, error) {
	dotenvLoaded := godotenv.Overload() == nil

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if flagBaseURL != "" {
		cfg.CKAN.BaseURL = flagBaseURL
	}
	if flagAPIKey != "" {
		cfg.CKAN.APIKey = flagAPIKey
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Logging.Format = flagLogFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if dotenvLoaded {
		slog.Debug("loaded .env file")
	}
	slog.Debug("configuration loaded", "config", cfg)
	return cfg, nil
}

// newDriver wires the action client and driver from configuration.
func newDriver(cfg *config.Config) *loader.Driver {
	client := ckan.NewClient(cfg.CKAN.BaseURL, cfg.CKAN.APIKey, cfg.CKAN.RequestTimeout)
	return loader.NewDriver(client, cfg, slog.Default())
}
