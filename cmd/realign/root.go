package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/realign/internal/cli"
	"github.com/aretw0/realign/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "realign",
	Short: "ReAlign is a conversational wellness assistant",
	Long: `ReAlign walks a user through a short health questionnaire, asks the advice
service for a personalised workout and diet plan, and then relays follow-up chat.

Run 'realign chat' for the terminal wizard or 'realign serve' for the HTTP API.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file (REALIGN_* env vars override it)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
}

// loadConfig reads the config named by --config, overlaid with the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loggerFor(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.NewLogger(cfg.LogLevel, debug)
}
