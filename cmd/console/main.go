// Package main provides the console CLI: the moderation console HTTP server
// plus schema and demo-data maintenance commands.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/config"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

var (
	// envFiles is set by the --env-file flag.
	envFiles []string

	// cfg is loaded once by PersistentPreRunE for every subcommand.
	cfg config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "console",
	Short: "Moderation console for articles, advertisements and tours",
	Long: `console serves the moderation console API: cached lists and details
of articles, advertisements and tours kept in sync with the system of record,
plus admin actions and edits issued against it.

Running without a subcommand starts the server.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runServe,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading the environment (default: .env if present)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads dotenv files, reads the configuration and sets up the
// global logger.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == versionCmd.Name() {
		return nil
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return fmt.Errorf("load env files: %w", err)
		}
	} else {
		// Missing .env is fine.
		_ = godotenv.Load()
	}

	c, err := config.Load()
	if err != nil {
		return err
	}
	cfg = c
	setupLogger(cfg)
	return nil
}

func setupLogger(cfg config.Config) {
	sysutil.SetupLogger(sysutil.LogOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Out:     os.Stderr,
	})
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "console "+strings.TrimPrefix(version, "v"))
	},
}
