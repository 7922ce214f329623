// Package commands implements the brainbox CLI.
package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Gasburger/BrainBox/internal/config"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var flagConfigPath string

// logLevel backs the default slog handler so a running stream session can
// change verbosity on config reload.
var logLevel = new(slog.LevelVar)

var rootCmd = &cobra.Command{
	Use:   "brainbox",
	Short: "EOG event detection and classification toolchain",
	Long: `brainbox processes SpikerBox electrooculography recordings.

The pipeline runs in stages: annotated recordings are cut into labelled
snippet files (snip), a classifier is fitted on the snippet corpus (train,
eval), and new signals are scanned for eye events either from a capture
file (scan) or from a live source (stream).

All commands read the same YAML configuration file; most settings can be
overridden with command flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfigPath, "config", "c", "config.yaml", "path to the YAML configuration file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("brainbox %s\n", version)
		},
	})
}

// loadConfig loads the configuration file named by --config. When the flag
// was left at its default and no file exists, built-in defaults are used so
// the CLI works out of the box.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfigPath)
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		slog.Debug("no config file found, using defaults", "path", flagConfigPath)
		return config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging installs the default text logger at the configured level.
func setupLogging(level config.LogLevel) {
	logLevel.Set(slogLevel(level))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
