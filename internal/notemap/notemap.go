// Package notemap converts light-intensity readings into musical note
// parameters: pitch from a configurable scale, velocity from a perceptual
// curve, duration from an inverse brightness mapping.
package notemap

import (
	"math"
	"sort"

	"github.com/lightorchestralab/lightorchestra/internal/sequencer"
)

// Scale names accepted by SetScale and the config layer.
const (
	ScaleChromatic  = "chromatic"
	ScaleMajor      = "major"
	ScaleMinor      = "minor"
	ScalePentatonic = "pentatonic"
	ScaleBlues      = "blues"
	ScaleDorian     = "dorian"
)

// scaleIntervals maps a scale name to its semitone offsets from the root.
var scaleIntervals = map[string][]int{
	ScaleChromatic:  {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	ScaleMajor:      {0, 2, 4, 5, 7, 9, 11},
	ScaleMinor:      {0, 2, 3, 5, 7, 8, 10},
	ScalePentatonic: {0, 2, 4, 7, 9},
	ScaleBlues:      {0, 3, 5, 6, 7, 10},
	ScaleDorian:     {0, 2, 3, 5, 7, 9, 10},
}

// Scales returns the known scale names in stable order.
func Scales() []string {
	names := make([]string, 0, len(scaleIntervals))
	for name := range scaleIntervals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mapper maps light intensity in [0, 100] to note events. Configuration
// setters clamp instead of failing so a bad call can never leave the
// mapper unusable mid-performance.
type Mapper struct {
	minNote int
	maxNote int
	scale   string
	notes   []int

	velMin float64
	velMax float64

	minDurationMS int
	maxDurationMS int
}

// New returns a mapper over the given MIDI note range and scale.
// Unknown scales fall back to chromatic.
func New(minNote, maxNote int, scale string) *Mapper {
	m := &Mapper{
		velMin:        0.1,
		velMax:        1.0,
		minDurationMS: 100,
		maxDurationMS: 1000,
	}
	m.SetRange(minNote, maxNote)
	m.SetScale(scale)
	return m
}

// SetScale selects the musical scale. Unknown names keep the current scale,
// or chromatic if none was ever valid.
func (m *Mapper) SetScale(scale string) {
	if _, ok := scaleIntervals[scale]; !ok {
		if m.scale == "" {
			m.scale = ScaleChromatic
		}
		m.rebuild()
		return
	}
	m.scale = scale
	m.rebuild()
}

// Scale returns the active scale name.
func (m *Mapper) Scale() string { return m.scale }

// SetRange clamps the note bounds to the MIDI range and guarantees at
// least an octave between them.
func (m *Mapper) SetRange(minNote, maxNote int) {
	m.minNote = clampInt(minNote, 0, 127)
	m.maxNote = clampInt(maxNote, 0, 127)
	if m.minNote >= m.maxNote {
		m.maxNote = clampInt(m.minNote+12, 0, 127)
	}
	m.rebuild()
}

// Range returns the active note bounds.
func (m *Mapper) Range() (minNote, maxNote int) { return m.minNote, m.maxNote }

// SetDurationRange sets the bounds of the duration mapping in milliseconds.
func (m *Mapper) SetDurationRange(minMS, maxMS int) {
	if minMS < 1 {
		minMS = 1
	}
	if maxMS < minMS {
		maxMS = minMS
	}
	m.minDurationMS = minMS
	m.maxDurationMS = maxMS
}

// rebuild regenerates the playable note sequence for the current scale and range.
func (m *Mapper) rebuild() {
	intervals, ok := scaleIntervals[m.scale]
	if !ok {
		intervals = scaleIntervals[ScaleChromatic]
	}

	seen := make(map[int]bool)
	var notes []int
	for root := m.minNote - m.minNote%12; root <= m.maxNote; root += 12 {
		for _, iv := range intervals {
			n := root + iv
			if n >= m.minNote && n <= m.maxNote && !seen[n] {
				seen[n] = true
				notes = append(notes, n)
			}
		}
	}
	sort.Ints(notes)
	m.notes = notes
}

// Note maps intensity to a pitch from the scale. An empty sequence falls
// back to middle C.
func (m *Mapper) Note(intensity float64) int {
	if len(m.notes) == 0 {
		return 60
	}
	norm := clamp01(intensity / 100.0)
	idx := int(norm * float64(len(m.notes)-1))
	return m.notes[idx]
}

// Velocity maps intensity to [velMin, velMax] through a square-root curve,
// which keeps low light levels musically responsive.
func (m *Mapper) Velocity(intensity float64) float64 {
	curved := math.Sqrt(clamp01(intensity / 100.0))
	return m.velMin + curved*(m.velMax-m.velMin)
}

// Duration maps intensity inversely: bright light gives short staccato
// notes, dim light gives long sustained ones.
func (m *Mapper) Duration(intensity float64) int {
	norm := clamp01(intensity / 100.0)
	span := float64(m.maxDurationMS - m.minDurationMS)
	return m.maxDurationMS - int(norm*span)
}

// EventFrom builds a complete note event for the given channel. The
// timestamp is left at zero: the sequencer assigns track-relative time
// when the event is recorded.
func (m *Mapper) EventFrom(intensity float64, channel int) sequencer.NoteEvent {
	return sequencer.NoteEvent{
		Channel:    channel,
		Magnitude:  m.Velocity(intensity),
		Pitch:      m.Note(intensity),
		DurationMS: m.Duration(intensity),
	}
}

// Info describes the active mapping for dashboards.
type Info struct {
	Scale          string
	MinNote        int
	MaxNote        int
	AvailableNotes int
}

// ScaleInfo returns a snapshot of the mapping configuration.
func (m *Mapper) ScaleInfo() Info {
	return Info{
		Scale:          m.scale,
		MinNote:        m.minNote,
		MaxNote:        m.maxNote,
		AvailableNotes: len(m.notes),
	}
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

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
