// Package synth is a minimal monophonic tone controller: one voice, an
// ADSR-lite envelope, non-blocking. The control loop must call Tick every
// few milliseconds to advance the envelope. Actual sound rendering lives
// behind the ToneDriver interface; this package never touches hardware.
package synth

import (
	"math"

	"github.com/lightorchestralab/lightorchestra/internal/sequencer"
)

// ToneDriver is the boundary to whatever produces sound: a PWM pin, a MIDI
// port, a test recorder. Implementations must not block.
type ToneDriver interface {
	SetFreq(hz float64) error
	SetDuty(level float64) error
	Stop() error
}

// NopDriver discards everything. Useful for headless runs and tests.
type NopDriver struct{}

func (NopDriver) SetFreq(float64) error { return nil }
func (NopDriver) SetDuty(float64) error { return nil }
func (NopDriver) Stop() error           { return nil }

// Envelope holds the ADSR timing parameters in milliseconds, with the
// sustain level in [0, 1].
type Envelope struct {
	AttackMS  int
	DecayMS   int
	Sustain   float64
	ReleaseMS int
}

// DefaultEnvelope is a snappy setting suited to short light-triggered notes.
var DefaultEnvelope = Envelope{AttackMS: 5, DecayMS: 30, Sustain: 0.7, ReleaseMS: 40}

type voice struct {
	pitch      int
	freq       float64
	vel        float64
	t0         uint32
	released   bool
	tRelease   uint32
	durationMS int // NoDuration means sustain until NoteOff
	level      float64
}

// Synth drives a single voice through a ToneDriver. Driver errors silence
// the voice rather than propagating; a dead output must not derail the
// control loop.
type Synth struct {
	driver ToneDriver
	env    Envelope
	master float64
	voice  *voice
}

// New returns a synth over the given driver with the default envelope.
// A nil driver falls back to NopDriver.
func New(driver ToneDriver) *Synth {
	if driver == nil {
		driver = NopDriver{}
	}
	return &Synth{
		driver: driver,
		env:    DefaultEnvelope,
		master: 0.6,
	}
}

// MIDIToHz converts a MIDI note number to its equal-temperament frequency.
// Out-of-range pitches clamp to the MIDI range.
func MIDIToHz(pitch int) float64 {
	if pitch < 0 {
		pitch = 0
	}
	if pitch > 127 {
		pitch = 127
	}
	return 440.0 * math.Pow(2, float64(pitch-69)/12.0)
}

// SetEnvelope replaces the envelope parameters, clamping negatives to zero
// and sustain into [0, 1].
func (s *Synth) SetEnvelope(env Envelope) {
	if env.AttackMS < 0 {
		env.AttackMS = 0
	}
	if env.DecayMS < 0 {
		env.DecayMS = 0
	}
	if env.ReleaseMS < 0 {
		env.ReleaseMS = 0
	}
	if env.Sustain < 0 {
		env.Sustain = 0
	}
	if env.Sustain > 1 {
		env.Sustain = 1
	}
	s.env = env
}

// SetVolume clamps the master volume into [0, 1].
func (s *Synth) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	s.master = v
}

// NoteOn starts a new note, replacing the running voice. durationMS of
// sequencer.NoDuration sustains until NoteOff.
func (s *Synth) NoteOn(pitch int, velocity float64, durationMS int, now uint32) {
	if velocity < 0 {
		velocity = 0
	}
	if velocity > 1 {
		velocity = 1
	}
	freq := MIDIToHz(pitch)
	s.voice = &voice{
		pitch:      pitch,
		freq:       freq,
		vel:        velocity,
		t0:         now,
		durationMS: durationMS,
	}
	// Prime the frequency early to cut start latency; duty follows on Tick.
	if err := s.driver.SetFreq(freq); err != nil {
		s.AllNotesOff()
		return
	}
	if err := s.driver.SetDuty(0); err != nil {
		s.AllNotesOff()
	}
}

// PlayEvent starts a note from a sequencer event, mapping magnitude to
// velocity. Events without a pitch are ignored: mapping was deferred and
// never resolved, so there is nothing to sound.
func (s *Synth) PlayEvent(ev sequencer.NoteEvent, now uint32) {
	if !ev.HasPitch() {
		return
	}
	dur := sequencer.NoDuration
	if ev.HasDuration() {
		dur = ev.DurationMS
	}
	s.NoteOn(ev.Pitch, ev.Magnitude, dur, now)
}

// NoteOff begins the release phase of the running voice.
func (s *Synth) NoteOff(now uint32) {
	if s.voice != nil && !s.voice.released {
		s.voice.released = true
		s.voice.tRelease = now
	}
}

// AllNotesOff drops the voice and silences the driver immediately.
func (s *Synth) AllNotesOff() {
	s.voice = nil
	_ = s.driver.Stop()
}

// Playing reports whether a voice is active.
func (s *Synth) Playing() bool { return s.voice != nil }

// CurrentPitch returns the running voice's pitch, or sequencer.NoPitch.
func (s *Synth) CurrentPitch() int {
	if s.voice == nil {
		return sequencer.NoPitch
	}
	return s.voice.pitch
}

// Level returns the current envelope level for dashboards.
func (s *Synth) Level() float64 {
	if s.voice == nil {
		return 0
	}
	return s.voice.level
}

// Tick advances the envelope and pushes the resulting duty to the driver.
// Call it every cycle; it does nothing when no voice is running.
func (s *Synth) Tick(now uint32) {
	v := s.voice
	if v == nil {
		return
	}

	t := elapsed(now, v.t0)

	// Duration expiry triggers the release automatically.
	if v.durationMS != sequencer.NoDuration && !v.released && t >= v.durationMS {
		v.released = true
		v.tRelease = now
	}

	if !v.released {
		v.level = s.attackDecayLevel(t)
	} else {
		if s.env.ReleaseMS <= 0 {
			s.AllNotesOff()
			return
		}
		tr := elapsed(now, v.tRelease)
		start := v.level
		if start <= 0 {
			start = s.env.Sustain
		}
		level := start * (1.0 - float64(tr)/float64(s.env.ReleaseMS))
		if tr >= s.env.ReleaseMS || level <= 0 {
			s.AllNotesOff()
			return
		}
		v.level = level
	}

	duty := v.level * v.vel * s.master
	if duty < 0 {
		duty = 0
	}
	if duty > 1 {
		duty = 1
	}
	if err := s.driver.SetDuty(duty); err != nil {
		s.AllNotesOff()
	}
}

// attackDecayLevel computes the pre-release envelope level at t ms after
// note start: linear attack to 1.0, then linear decay toward sustain.
func (s *Synth) attackDecayLevel(t int) float64 {
	level := 1.0
	if s.env.AttackMS > 0 && t < s.env.AttackMS {
		return float64(t) / float64(s.env.AttackMS)
	}
	td := t - s.env.AttackMS
	if s.env.DecayMS <= 0 {
		return s.env.Sustain
	}
	if td >= s.env.DecayMS {
		return s.env.Sustain
	}
	progress := float64(td) / float64(s.env.DecayMS)
	return level - progress*(1.0-s.env.Sustain)
}

func elapsed(now, then uint32) int {
	d := int(int32(now - then))
	if d < 0 {
		return 0
	}
	return d
}
