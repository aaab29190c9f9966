package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lightorchestralab/lightorchestra/internal/service"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine headless",
	Long: `Run the light-to-music engine without a dashboard. The sensor is
sampled continuously; recording and playback are controlled through the
hardware panel (or not at all, for a pure light-to-tone installation).
Stops on SIGINT/SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service.New(cfg, slog.Default(), service.Options{})
		if err != nil {
			return fmt.Errorf("starting engine: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return svc.Run(ctx)
	},
}
