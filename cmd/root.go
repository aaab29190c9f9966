package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lightorchestralab/lightorchestra/internal/config"
)

var (
	cfg          *config.Config
	cfgFile      string
	verboseLevel int
)

var rootCmd = &cobra.Command{
	Use:   "lightorchestra",
	Short: "Light-driven music sequencer",
	Long: `Light Orchestra turns light intensity into music. A light sensor
drives a note mapper and a mono synth; the sequencer records the resulting
note events against a millisecond clock, quantizes them to a grid and
replays them as a loop.

Patterns persist as JSON and can be exchanged with DAWs as standard MIDI
files. Without a real sensor the simulated backend sweeps a light curve so
everything works on a desktop.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(verboseLevel)

		// Missing default config is fine; built-in defaults apply.
		path := cfgFile
		if path == "" {
			candidate := os.ExpandEnv("$HOME/.config/lightorchestra.yaml")
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}

		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/lightorchestra.yaml)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dashCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(configCmd)
}

// setupLogging configures slog based on the verbose level
func setupLogging(level int) {
	slogLevel := slog.LevelInfo
	if level >= 1 {
		slogLevel = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel,
	})
	slog.SetDefault(slog.New(handler))
}
