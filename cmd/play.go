package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lightorchestralab/lightorchestra/internal/service"
)

var playLoop bool

var playCmd = &cobra.Command{
	Use:   "play [pattern]",
	Short: "Play a stored pattern",
	Long: `Load a pattern from the store and play it through the synth. With
no argument the selected pattern plays. Loops until interrupted; with
--loop=false playback stops after a single pass while the engine keeps
listening to the light sensor.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service.New(cfg, slog.Default(), service.Options{})
		if err != nil {
			return fmt.Errorf("starting engine: %w", err)
		}

		name := ""
		if len(args) == 1 {
			name = args[0]
		} else {
			name, err = svc.Store().Selected()
			if err != nil {
				return fmt.Errorf("no pattern selected: %w", err)
			}
		}

		meta, rows, err := svc.Store().Load(name)
		if err != nil {
			return fmt.Errorf("loading pattern %q: %w", name, err)
		}

		seq := svc.Sequencer()
		if meta.BPM > 0 {
			seq.SetBPM(meta.BPM)
		}
		seq.ImportRows(rows)
		seq.StartPlayback(playLoop)

		slog.Info("playing pattern", "name", name, "events", len(rows), "loop", playLoop)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return svc.Run(ctx)
	},
}

func init() {
	playCmd.Flags().BoolVar(&playLoop, "loop", true, "loop the pattern (use --loop=false for a single pass)")
}
