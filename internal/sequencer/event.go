package sequencer

import "math"

// Sentinels for the optional NoteEvent fields. Pitch 0 and duration 0 are
// both meaningful values, so absence needs its own marker.
const (
	NoPitch    = -1
	NoDuration = -1
)

// NoteEvent is the minimal musical event shared across the instrument.
// TimestampMS is track-relative: zero at the start of the recording that
// produced it. Magnitude acts as velocity in [0, 1]. Pitch is a MIDI-style
// note number, or NoPitch when mapping happens downstream.
type NoteEvent struct {
	Channel     int
	TimestampMS int
	Magnitude   float64
	Pitch       int
	DurationMS  int
}

// HasPitch reports whether the event carries a resolved pitch.
func (e NoteEvent) HasPitch() bool { return e.Pitch != NoPitch }

// HasDuration reports whether the event carries an explicit duration.
func (e NoteEvent) HasDuration() bool { return e.DurationMS != NoDuration }

// Row is the flat, fixed-shape form of a NoteEvent used by the storage
// collaborator. Optional fields serialize as absent rather than as sentinels.
type Row struct {
	TimestampMS int     `json:"t"`
	Channel     int     `json:"ch"`
	Magnitude   float64 `json:"mag"`
	Pitch       *int    `json:"pitch,omitempty"`
	DurationMS  *int    `json:"dur,omitempty"`
}

// ToRow flattens the event for persistence. Magnitude is rounded to four
// decimal places so the stored form is stable across round trips.
func (e NoteEvent) ToRow() Row {
	r := Row{
		TimestampMS: e.TimestampMS,
		Channel:     e.Channel,
		Magnitude:   math.Round(e.Magnitude*10000) / 10000,
	}
	if e.HasPitch() {
		p := e.Pitch
		r.Pitch = &p
	}
	if e.HasDuration() {
		d := e.DurationMS
		r.DurationMS = &d
	}
	return r
}

// EventFromRow rebuilds an event from its stored form. Out-of-range values
// are clamped rather than rejected, matching the sequencer's degrade-don't-fail
// policy for external input.
func EventFromRow(r Row) NoteEvent {
	e := NoteEvent{
		Channel:     r.Channel,
		TimestampMS: r.TimestampMS,
		Magnitude:   clamp01(r.Magnitude),
		Pitch:       NoPitch,
		DurationMS:  NoDuration,
	}
	if e.TimestampMS < 0 {
		e.TimestampMS = 0
	}
	if r.Pitch != nil {
		e.Pitch = *r.Pitch
	}
	if r.DurationMS != nil {
		e.DurationMS = *r.DurationMS
	}
	return e
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
