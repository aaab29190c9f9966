package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lightorchestralab/lightorchestra/internal/store"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export [pattern]",
	Short: "Export a pattern as a standard MIDI file",
	Long: `Write a stored pattern to a type-1 standard MIDI file so it can be
opened in a DAW. Event magnitudes become velocities; events without a
duration get a fixed note length.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		st, err := store.New(cfg.Patterns.Directory)
		if err != nil {
			return err
		}
		meta, rows, err := st.Load(name)
		if err != nil {
			return fmt.Errorf("loading pattern %q: %w", name, err)
		}

		out := exportOutput
		if out == "" {
			out = store.SanitizeName(name) + ".mid"
		}
		bpm := meta.BPM
		if bpm <= 0 {
			bpm = cfg.Sequencer.BPM
		}
		if err := st.ExportSMF(out, bpm, rows); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d events, %d bpm)\n", out, len(rows), bpm)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file.mid] [pattern]",
	Short: "Import a standard MIDI file as a pattern",
	Long: `Read note events from a standard MIDI file and store them as a
pattern. Velocities become magnitudes; the file's first tempo becomes the
pattern's bpm. The pattern name defaults to the file name.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		st, err := store.New(cfg.Patterns.Directory)
		if err != nil {
			return err
		}
		rows, bpm, err := st.ImportSMF(path)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("%s contains no note events", path)
		}

		name := ""
		if len(args) == 2 {
			name = args[1]
		} else {
			base := path
			if i := strings.LastIndexByte(base, '/'); i >= 0 {
				base = base[i+1:]
			}
			name = strings.TrimSuffix(base, ".mid")
		}
		name = store.SanitizeName(name)

		channels := 1
		for _, r := range rows {
			if r.Channel+1 > channels {
				channels = r.Channel + 1
			}
		}
		if err := st.Save(name, store.Metadata{BPM: bpm, Channels: channels}, rows); err != nil {
			return err
		}
		fmt.Printf("imported %s as %s (%d events, %d bpm)\n", path, name, len(rows), bpm)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (defaults to <pattern>.mid)")
}
