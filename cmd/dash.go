package cmd

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/lightorchestralab/lightorchestra/internal/service"
	"github.com/lightorchestralab/lightorchestra/internal/tui"
)

var dashCmd = &cobra.Command{
	Use:   "dash",
	Short: "Run the engine with the interactive dashboard",
	Long: `Run the engine and render a live dashboard: sequencer state, light
level, current note and panel LEDs. Keyboard keys stand in for the panel
buttons.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service.New(cfg, slog.Default(), service.Options{})
		if err != nil {
			return fmt.Errorf("starting engine: %w", err)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		engineDone := make(chan error, 1)
		go func() { engineDone <- svc.Run(ctx) }()

		p := tea.NewProgram(tui.NewModel(svc), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			cancel()
			<-engineDone
			return fmt.Errorf("dashboard failed: %w", err)
		}

		cancel()
		return <-engineDone
	},
}
