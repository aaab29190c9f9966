package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lightorchestralab/lightorchestra/internal/store"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Manage stored patterns",
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored patterns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.New(cfg.Patterns.Directory)
		if err != nil {
			return err
		}
		names, err := st.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("no patterns stored")
			return nil
		}
		selected, _ := st.Selected()
		for _, name := range names {
			marker := " "
			if name == selected {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, name)
		}
		return nil
	},
}

var patternsShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a pattern's metadata and events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.New(cfg.Patterns.Directory)
		if err != nil {
			return err
		}
		meta, rows, err := st.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("pattern: %s\nbpm: %d\nchannels: %d\nevents: %d\n\n", args[0], meta.BPM, meta.Channels, len(rows))
		for _, r := range rows {
			pitch := "-"
			if r.Pitch != nil {
				pitch = fmt.Sprintf("%d", *r.Pitch)
			}
			dur := "-"
			if r.DurationMS != nil {
				dur = fmt.Sprintf("%dms", *r.DurationMS)
			}
			fmt.Printf("  t=%-6d ch=%d mag=%.4f pitch=%s dur=%s\n", r.TimestampMS, r.Channel, r.Magnitude, pitch, dur)
		}
		return nil
	},
}

var patternsDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a stored pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.New(cfg.Patterns.Directory)
		if err != nil {
			return err
		}
		if err := st.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

var patternsSelectCmd = &cobra.Command{
	Use:   "select [name]",
	Short: "Mark a pattern as the selected one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.New(cfg.Patterns.Directory)
		if err != nil {
			return err
		}
		if err := st.SetSelected(args[0]); err != nil {
			return err
		}
		fmt.Printf("selected %s\n", args[0])
		return nil
	},
}

func init() {
	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsShowCmd)
	patternsCmd.AddCommand(patternsDeleteCmd)
	patternsCmd.AddCommand(patternsSelectCmd)
}
