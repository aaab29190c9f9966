// Package sequencer records timestamped note events against a wrapping
// millisecond clock and replays them on a scheduler tick, with optional
// quantization and loop-point handling. It is pure in-memory state: no
// goroutines, no I/O, no blocking calls. One owner drives every method
// from a single control loop.
package sequencer

import "sort"

// State is the sequencer's mode. Recording and playing are mutually
// exclusive; starting one stops the other.
type State int

const (
	Idle State = iota
	Recording
	Playing
)

func (s State) String() string {
	switch s {
	case Recording:
		return "RECORDING"
	case Playing:
		return "PLAYING"
	default:
		return "IDLE"
	}
}

// Summary is a side-effect-free snapshot for dashboards and logs.
type Summary struct {
	State       State
	BPM         int
	QuantizeMS  int
	BeatsPerBar int
	EventCount  int
	TrackLenMS  int
	Loop        bool
}

// Sequencer owns the recorded event list, the current state and the
// playback cursors. The event list is always sorted ascending by
// timestamp; equal timestamps keep insertion order.
type Sequencer struct {
	state    State
	events   []NoteEvent
	bpm      int
	quantize int
	beatsBar int
	channels int
	loop     bool

	recT0 uint32

	playT0   uint32
	lastTick uint32
	playIdx  int

	trackLenMS int

	now func() uint32
}

// Option configures a Sequencer at construction time.
type Option func(*Sequencer)

// BPM sets the tempo used for bar rounding. Values below 1 are clamped.
func BPM(n int) Option {
	return func(s *Sequencer) { s.bpm = clampMin(n, 1) }
}

// Quantize sets the recording grid in milliseconds. Zero disables quantization.
func Quantize(ms int) Option {
	return func(s *Sequencer) { s.quantize = clampMin(ms, 0) }
}

// BeatsPerBar sets the bar length used when rounding the loop point.
func BeatsPerBar(n int) Option {
	return func(s *Sequencer) { s.beatsBar = clampMin(n, 1) }
}

// Channels sets the number of input channels reported to storage metadata.
func Channels(n int) Option {
	return func(s *Sequencer) { s.channels = clampMin(n, 1) }
}

// Clock replaces the tick source. Tests use this to drive time explicitly.
func Clock(now func() uint32) Option {
	return func(s *Sequencer) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns an idle sequencer with looped playback enabled.
func New(opts ...Option) *Sequencer {
	s := &Sequencer{
		bpm:      120,
		quantize: 0,
		beatsBar: 4,
		channels: 1,
		loop:     true,
		now:      NowTicks,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartRecording clears the event list and begins a new take. Playback is
// stopped first; there is no simultaneous record-and-play state.
func (s *Sequencer) StartRecording() {
	s.StopPlayback()
	s.events = s.events[:0]
	s.trackLenMS = 0
	s.recT0 = s.now()
	s.state = Recording
}

// StopRecording ends the take and fixes the loop length. With looping
// enabled the length is the last event's timestamp rounded up to a whole
// bar, so the loop seam lands on a musical boundary; otherwise it is
// exactly the last timestamp. Calling it outside RECORDING is a no-op.
func (s *Sequencer) StopRecording() {
	if s.state != Recording {
		return
	}
	s.state = Idle
	lastT := 0
	if len(s.events) > 0 {
		lastT = s.events[len(s.events)-1].TimestampMS
	}
	if s.loop {
		s.trackLenMS = roundUp(lastT, s.beatMS()*s.beatsBar)
	} else {
		s.trackLenMS = lastT
	}
}

// StartPlayback begins playing the recorded events from time zero.
// An in-progress recording is stopped first so its loop length is computed.
func (s *Sequencer) StartPlayback(loop bool) {
	s.StopRecording()
	s.loop = loop
	s.playIdx = 0
	s.playT0 = s.now()
	s.lastTick = s.playT0
	if s.trackLenMS <= 0 && len(s.events) > 0 {
		s.trackLenMS = s.events[len(s.events)-1].TimestampMS
	}
	s.state = Playing
}

// StopPlayback halts playback and clears the cursors. Idempotent.
func (s *Sequencer) StopPlayback() {
	if s.state == Playing {
		s.state = Idle
	}
	s.playT0 = 0
	s.lastTick = 0
	s.playIdx = 0
}

// Panic forces the sequencer back to IDLE. Silencing the tone generator is
// the caller's job; the sequencer only guarantees no further events come due.
func (s *Sequencer) Panic() {
	s.StopPlayback()
	if s.state == Recording {
		s.state = Idle
	}
}

// HasContent reports whether any events are recorded.
func (s *Sequencer) HasContent() bool { return len(s.events) > 0 }

// RecordEvent timestamps the event relative to the recording start,
// quantizes it if a grid is set, and inserts it keeping the list sorted.
// Outside RECORDING it is a no-op: the control loop calls every hook every
// cycle regardless of state.
func (s *Sequencer) RecordEvent(ev NoteEvent) {
	if s.state != Recording {
		return
	}
	rel := TicksDiff(s.now(), s.recT0)
	if rel < 0 {
		rel = 0
	}
	ev.TimestampMS = quantizeMS(rel, s.quantize)
	s.insert(ev)
}

// insert keeps the ascending-timestamp invariant. Appending is the common
// case; out-of-order arrivals take a stable rightmost binary-search insert.
func (s *Sequencer) insert(ev NoteEvent) {
	n := len(s.events)
	if n == 0 || ev.TimestampMS >= s.events[n-1].TimestampMS {
		s.events = append(s.events, ev)
		return
	}
	i := bisectRight(s.events, ev.TimestampMS)
	s.events = append(s.events, NoteEvent{})
	copy(s.events[i+1:], s.events[i:])
	s.events[i] = ev
}

// Tick returns the events that became due since the previous call, in
// temporal order. It is the per-cycle scheduling primitive: callable at an
// irregular cadence, never double-delivering and never skipping within a
// single loop pass. Outside PLAYING it returns nothing.
//
// A stall longer than one full loop period is handled as a single wrap:
// the intervening repeats are not replayed, but the phase bookkeeping
// stays correct for the ticks that follow.
func (s *Sequencer) Tick(now uint32) []NoteEvent {
	if s.state != Playing {
		return nil
	}

	prev := s.lastTick
	s.lastTick = now

	if len(s.events) == 0 {
		// Rebase t0 so elapsed stays within one loop period over long runs.
		if s.loop && s.trackLenMS > 0 {
			elapsed := TicksDiff(now, s.playT0)
			if elapsed >= s.trackLenMS {
				loops := elapsed / s.trackLenMS
				s.playT0 += uint32(loops * s.trackLenMS)
			}
		}
		return nil
	}

	elapsed := TicksDiff(now, s.playT0)
	if elapsed < 0 {
		elapsed = 0
	}

	var out []NoteEvent

	if s.loop && s.trackLenMS > 0 {
		tIn := elapsed % s.trackLenMS
		prevIn := TicksDiff(prev, s.playT0)
		if prevIn < 0 {
			prevIn = 0
		}
		prevIn %= s.trackLenMS

		if tIn >= prevIn {
			lo := bisectRight(s.events, prevIn)
			hi := bisectRight(s.events, tIn)
			out = append(out, s.events[lo:hi]...)
		} else {
			// The tick crossed the loop seam: tail of the track first,
			// then the head, which is temporal order across the wrap.
			lo := bisectRight(s.events, prevIn)
			out = append(out, s.events[lo:]...)
			hi := bisectRight(s.events, tIn)
			out = append(out, s.events[:hi]...)
		}
		s.playIdx = bisectRight(s.events, tIn)
		return out
	}

	// Non-looping: advance the cursor and stop at the definite end.
	n := len(s.events)
	for s.playIdx < n && s.events[s.playIdx].TimestampMS <= elapsed {
		out = append(out, s.events[s.playIdx])
		s.playIdx++
	}
	if s.playIdx >= n && !s.loop {
		s.StopPlayback()
	}
	return out
}

// ExportRows flattens the event list for the storage collaborator.
func (s *Sequencer) ExportRows() []Row {
	rows := make([]Row, len(s.events))
	for i, e := range s.events {
		rows[i] = e.ToRow()
	}
	return rows
}

// ImportRows replaces the event list wholesale and resets to IDLE with the
// cursors cleared. The store is trusted to keep rows ordered, but a stable
// re-sort is cheap and keeps a corrupted file from breaking the binary
// searches, so the order is re-established defensively here.
func (s *Sequencer) ImportRows(rows []Row) {
	s.events = make([]NoteEvent, len(rows))
	for i, r := range rows {
		s.events[i] = EventFromRow(r)
	}
	sort.SliceStable(s.events, func(i, j int) bool {
		return s.events[i].TimestampMS < s.events[j].TimestampMS
	})
	s.trackLenMS = 0
	if len(s.events) > 0 {
		s.trackLenMS = s.events[len(s.events)-1].TimestampMS
	}
	s.state = Idle
	s.playIdx = 0
	s.playT0 = 0
	s.lastTick = 0
}

// BPM returns the configured tempo.
func (s *Sequencer) BPM() int { return s.bpm }

// SetBPM clamps to a minimum of 1; the scheduler must never become unusable
// from a bad configuration call.
func (s *Sequencer) SetBPM(n int) { s.bpm = clampMin(n, 1) }

// QuantizeMS returns the recording grid, 0 when disabled.
func (s *Sequencer) QuantizeMS() int { return s.quantize }

// SetQuantize clamps negative grids to 0 (disabled).
func (s *Sequencer) SetQuantize(ms int) { s.quantize = clampMin(ms, 0) }

// ChannelCount returns the configured input channel count.
func (s *Sequencer) ChannelCount() int { return s.channels }

// SetLoop selects looped or one-shot playback for the next start.
func (s *Sequencer) SetLoop(loop bool) { s.loop = loop }

// IsLooping reports the current loop flag.
func (s *Sequencer) IsLooping() bool { return s.loop }

// CurrentState returns the sequencer's mode.
func (s *Sequencer) CurrentState() State { return s.state }

// TrackLenMS returns the loop period in track-relative milliseconds.
func (s *Sequencer) TrackLenMS() int { return s.trackLenMS }

// Summary returns an introspection snapshot with no side effects.
func (s *Sequencer) Summary() Summary {
	return Summary{
		State:       s.state,
		BPM:         s.bpm,
		QuantizeMS:  s.quantize,
		BeatsPerBar: s.beatsBar,
		EventCount:  len(s.events),
		TrackLenMS:  s.trackLenMS,
		Loop:        s.loop,
	}
}

func (s *Sequencer) beatMS() int {
	return 60000 / s.bpm
}

// quantizeMS snaps t to the nearest multiple of q, rounding half up.
// Idempotent: an already-quantized value maps to itself.
func quantizeMS(t, q int) int {
	if q <= 0 {
		return t
	}
	return (t + q/2) / q * q
}

// roundUp rounds val up to the next whole multiple of base.
func roundUp(val, base int) int {
	if base <= 0 {
		return val
	}
	return (val + base - 1) / base * base
}

// bisectRight returns the first index whose timestamp is strictly greater
// than t, which is both the stable insertion point and the half-open slice
// bound used by Tick.
func bisectRight(events []NoteEvent, t int) int {
	lo, hi := 0, len(events)
	for lo < hi {
		mid := (lo + hi) / 2
		if events[mid].TimestampMS <= t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func clampMin(v, min int) int {
	if v < min {
		return min
	}
	return v
}
