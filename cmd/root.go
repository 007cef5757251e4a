package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/plexaddons/versioncheck/internal/config"
	"github.com/plexaddons/versioncheck/internal/logger"
)

// Version info set via ldflags at build time
var (
	version = "dev"
	commit  = "unknown"
)

var (
	verbose    bool
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:     "plexaddons",
	Short:   "Version checker for PlexAddons",
	Version: version + " (" + commit + ")",
	Long: `Check PlexAddons plugins against the published version registry.

Reports whether an installed addon is outdated, up to date, or a
development build, along with release details for available updates.

Quick start:
  plexaddons check Tickets 1.0.0   Check one addon
  plexaddons registry list         Show every addon in the registry`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Init(verbose)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		logger.Close()
		os.Exit(1)
	}
}

// loadConfig resolves configuration for a command, binding its flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	opts := []config.Option{config.WithFlags(cmd.Flags())}
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	return config.Load(opts...)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default $XDG_CONFIG_HOME/plexaddons/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file (default ./.env if present)")
}
