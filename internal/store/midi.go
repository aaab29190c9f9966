package store

import (
	"fmt"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/lightorchestralab/lightorchestra/internal/sequencer"
)

// Standard MIDI file interchange: patterns export to a type-1 SMF (tempo
// track plus one note track) so recordings open in any DAW, and an SMF can
// be pulled back in as event rows.

const (
	smfTicksPerQuarter = 960

	// defaultNoteMS stands in for rows that carry no duration.
	defaultNoteMS = 500
)

// ExportSMF writes the rows as a .mid file at the given tempo. Rows
// without a resolved pitch are skipped; there is no note to write.
func (p *PatternStore) ExportSMF(path string, bpm int, rows []sequencer.Row) error {
	if bpm < 1 {
		bpm = 1
	}
	if len(rows) == 0 {
		return fmt.Errorf("refusing to export empty pattern to %s", path)
	}

	mt := smf.MetricTicks(smfTicksPerQuarter)

	// Expand rows into absolute-tick note-on/off moments. At equal times
	// note-offs sort first so releases never swallow a retrigger.
	type moment struct {
		tick uint32
		on   bool
		ch   uint8
		key  uint8
		vel  uint8
	}
	var moments []moment
	for _, r := range rows {
		if r.Pitch == nil {
			continue
		}
		durMS := defaultNoteMS
		if r.DurationMS != nil && *r.DurationMS > 0 {
			durMS = *r.DurationMS
		}
		vel := int(r.Magnitude*127 + 0.5)
		if vel < 1 {
			vel = 1
		}
		if vel > 127 {
			vel = 127
		}
		ch := uint8(r.Channel % 16)
		key := uint8(clampInt(*r.Pitch, 0, 127))
		onTick := mt.Ticks(float64(bpm), time.Duration(r.TimestampMS)*time.Millisecond)
		offTick := mt.Ticks(float64(bpm), time.Duration(r.TimestampMS+durMS)*time.Millisecond)
		moments = append(moments,
			moment{tick: onTick, on: true, ch: ch, key: key, vel: uint8(vel)},
			moment{tick: offTick, on: false, ch: ch, key: key},
		)
	}
	if len(moments) == 0 {
		return fmt.Errorf("no pitched events to export to %s", path)
	}
	sort.SliceStable(moments, func(i, j int) bool {
		if moments[i].tick != moments[j].tick {
			return moments[i].tick < moments[j].tick
		}
		return !moments[i].on && moments[j].on
	})

	sm := smf.New()
	sm.TimeFormat = mt

	var tempo smf.Track
	tempo.Add(0, smf.MetaTrackSequenceName("lightorchestra"))
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(float64(bpm)))
	tempo.Close(0)
	if err := sm.Add(tempo); err != nil {
		return fmt.Errorf("adding tempo track: %w", err)
	}

	var notes smf.Track
	last := uint32(0)
	for _, m := range moments {
		delta := m.tick - last
		last = m.tick
		if m.on {
			notes.Add(delta, midi.NoteOn(m.ch, m.key, m.vel))
		} else {
			notes.Add(delta, midi.NoteOff(m.ch, m.key))
		}
	}
	notes.Close(0)
	if err := sm.Add(notes); err != nil {
		return fmt.Errorf("adding note track: %w", err)
	}

	if err := sm.WriteFile(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ImportSMF reads a .mid file back into event rows ordered by timestamp,
// plus the file's tempo. Note-ons without a matching off get the default
// duration treatment on the way out (their duration is left absent).
func (p *PatternStore) ImportSMF(path string) ([]sequencer.Row, int, error) {
	sm, err := smf.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}

	bpm := 120
	if tempos := sm.TempoChanges(); len(tempos) > 0 {
		bpm = int(tempos[0].BPM + 0.5)
	}
	mt, ok := sm.TimeFormat.(smf.MetricTicks)
	if !ok {
		mt = smf.MetricTicks(smfTicksPerQuarter)
	}

	type onset struct {
		ms  int
		idx int
	}
	type noteKey struct {
		ch, key uint8
	}

	var rows []sequencer.Row
	for _, tr := range sm.Tracks {
		open := map[noteKey]onset{}
		abs := uint32(0)
		for _, ev := range tr {
			abs += ev.Delta
			var ch, key, vel uint8
			switch {
			case ev.Message.GetNoteStart(&ch, &key, &vel):
				ms := int(mt.Duration(float64(bpm), abs).Milliseconds())
				pitch := int(key)
				rows = append(rows, sequencer.Row{
					TimestampMS: ms,
					Channel:     int(ch),
					Magnitude:   float64(vel) / 127.0,
					Pitch:       &pitch,
				})
				open[noteKey{ch, key}] = onset{ms: ms, idx: len(rows) - 1}
			case ev.Message.GetNoteEnd(&ch, &key):
				if o, found := open[noteKey{ch, key}]; found {
					ms := int(mt.Duration(float64(bpm), abs).Milliseconds())
					dur := ms - o.ms
					if dur > 0 {
						rows[o.idx].DurationMS = &dur
					}
					delete(open, noteKey{ch, key})
				}
			}
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TimestampMS < rows[j].TimestampMS
	})
	return rows, bpm, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
