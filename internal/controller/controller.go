// Package controller mediates between panel inputs and the sequencer.
// Buttons arrive through Press (the dashboard key bindings feed it today,
// a GPIO scanner can feed it later) and LEDs go out through the Lights
// interface.
package controller

import (
	"fmt"
	"log/slog"

	"github.com/lightorchestralab/lightorchestra/internal/sequencer"
	"github.com/lightorchestralab/lightorchestra/internal/store"
)

// DebounceMS is the minimum spacing between accepted presses of the same
// button. Anything faster is treated as contact chatter and dropped.
const DebounceMS = 120

// Button names the five panel buttons.
type Button string

const (
	ButtonRec  Button = "REC"
	ButtonPlay Button = "PLAY"
	ButtonStop Button = "STOP"
	ButtonSave Button = "SAVE"
	ButtonLoad Button = "LOAD"
)

// Lights drives the panel LEDs. Implementations must tolerate being called
// from the poll loop at tick rate.
type Lights interface {
	Set(name string, on bool)
	Flash(name string, times int)
}

// NopLights discards all LED updates.
type NopLights struct{}

func (NopLights) Set(string, bool) {}

func (NopLights) Flash(string, int) {}

// LogLights mirrors LED updates to the logger, useful headless.
type LogLights struct {
	Log *slog.Logger
}

func (l LogLights) Set(name string, on bool) {
	l.Log.Debug("led", "name", name, "on", on)
}

func (l LogLights) Flash(name string, times int) {
	l.Log.Debug("led flash", "name", name, "times", times)
}

type press struct {
	button Button
	at     uint32
}

// Controller queues button presses and drains one per Poll so a burst of
// input never reorders sequencer transitions within a single cycle.
type Controller struct {
	seq    *sequencer.Sequencer
	store  *store.PatternStore
	lights Lights
	log    *slog.Logger

	now       func() uint32
	queue     []press
	lastPress map[Button]uint32
	pattern   string
	panicFn   func()
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock swaps the tick source, for tests.
func WithClock(now func() uint32) Option {
	return func(c *Controller) { c.now = now }
}

// WithPatternName sets the name used for SAVE until a LOAD replaces it.
func WithPatternName(name string) Option {
	return func(c *Controller) { c.pattern = name }
}

// WithPanicHook registers a callback run on STOP after the sequencer halts.
// The engine silences the synth here.
func WithPanicHook(fn func()) Option {
	return func(c *Controller) { c.panicFn = fn }
}

func New(seq *sequencer.Sequencer, st *store.PatternStore, lights Lights, log *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		seq:       seq,
		store:     st,
		lights:    lights,
		log:       log,
		now:       sequencer.NowTicks,
		lastPress: make(map[Button]uint32),
		pattern:   "take1",
	}
	if c.lights == nil {
		c.lights = NopLights{}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PatternName reports the pattern SAVE will write to.
func (c *Controller) PatternName() string { return c.pattern }

// Press queues a button press stamped with the current tick.
func (c *Controller) Press(b Button) {
	c.queue = append(c.queue, press{button: b, at: c.now()})
}

// Pending reports how many presses are queued.
func (c *Controller) Pending() int { return len(c.queue) }

// Poll drains at most one queued press, debounces it and dispatches.
// Handler failures degrade to an error flash; the loop must keep running.
func (c *Controller) Poll() {
	if len(c.queue) == 0 {
		return
	}
	p := c.queue[0]
	c.queue = c.queue[1:]

	if last, seen := c.lastPress[p.button]; seen {
		if d := int(int32(p.at - last)); d >= 0 && d < DebounceMS {
			return
		}
	}
	c.lastPress[p.button] = p.at

	if err := c.handle(p.button); err != nil {
		c.log.Warn("button handling failed", "button", p.button, "error", err)
		c.errorFlash()
	}
}

func (c *Controller) handle(b Button) error {
	switch b {
	case ButtonRec:
		if c.seq.CurrentState() != sequencer.Recording {
			c.seq.StartRecording()
			c.lights.Set("REC", true)
			c.lights.Set("PLAY", false)
		} else {
			c.seq.StopRecording()
			c.lights.Set("REC", false)
		}
	case ButtonPlay:
		if c.seq.CurrentState() != sequencer.Playing {
			if !c.seq.HasContent() {
				c.errorFlash()
				return nil
			}
			c.seq.StartPlayback(true)
			c.lights.Set("PLAY", true)
			c.lights.Set("REC", false)
		} else {
			c.seq.StopPlayback()
			c.lights.Set("PLAY", false)
		}
	case ButtonStop:
		c.seq.StopPlayback()
		c.seq.StopRecording()
		c.seq.Panic()
		if c.panicFn != nil {
			c.panicFn()
		}
		c.lights.Set("PLAY", false)
		c.lights.Set("REC", false)
	case ButtonSave:
		rows := c.seq.ExportRows()
		if len(rows) == 0 {
			c.errorFlash()
			return nil
		}
		meta := store.Metadata{BPM: c.seq.BPM(), Channels: c.seq.ChannelCount()}
		if err := c.store.Save(c.pattern, meta, rows); err != nil {
			return fmt.Errorf("saving %q: %w", c.pattern, err)
		}
		c.lights.Flash("SAVE", 2)
	case ButtonLoad:
		name, err := c.store.Selected()
		if err != nil {
			c.errorFlash()
			return nil
		}
		_, rows, err := c.store.Load(name)
		if err != nil {
			return fmt.Errorf("loading %q: %w", name, err)
		}
		c.seq.ImportRows(rows)
		c.pattern = name
		c.lights.Flash("LOAD", 2)
	}
	return nil
}

func (c *Controller) errorFlash() {
	c.lights.Flash("ERR", 3)
}
