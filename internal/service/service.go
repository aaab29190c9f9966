package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lightorchestralab/lightorchestra/internal/config"
	"github.com/lightorchestralab/lightorchestra/internal/controller"
	"github.com/lightorchestralab/lightorchestra/internal/notemap"
	"github.com/lightorchestralab/lightorchestra/internal/sensor"
	"github.com/lightorchestralab/lightorchestra/internal/sequencer"
	"github.com/lightorchestralab/lightorchestra/internal/store"
	"github.com/lightorchestralab/lightorchestra/internal/synth"
)

// Service is the orchestra engine seen by the commands and the dashboard.
type Service interface {
	// Run drives the engine loop until the context is cancelled.
	Run(ctx context.Context) error

	// Step executes one engine cycle at the given tick. Exposed so tests
	// and the dashboard can drive time explicitly.
	Step(now uint32)

	// Press queues a panel button for the next cycle.
	Press(b controller.Button)

	// Status returns a snapshot for display.
	Status() Status

	// SetScale switches the musical scale. Unknown names fall back to
	// chromatic, matching the mapper.
	SetScale(name string)

	// CycleScale advances to the next scale in the list.
	CycleScale() string

	// Sequencer exposes the underlying sequencer for direct operations
	// like import and export.
	Sequencer() *sequencer.Sequencer

	// Store exposes pattern persistence.
	Store() *store.PatternStore

	// Config returns the active configuration.
	Config() *config.Config
}

// Status is a point-in-time snapshot of the engine.
type Status struct {
	State       string          `json:"state"`
	BPM         int             `json:"bpm"`
	QuantizeMS  int             `json:"quantize_ms"`
	BeatsPerBar int             `json:"beats_per_bar"`
	Loop        bool            `json:"loop"`
	Events      int             `json:"events"`
	TrackLenMS  int             `json:"track_len_ms"`
	Scale       string          `json:"scale"`
	Light       float64         `json:"light"`
	Pattern     string          `json:"pattern"`
	NotePitch   int             `json:"note_pitch"`
	NoteLevel   float64         `json:"note_level"`
	LEDs        map[string]bool `json:"leds"`
}

type orchestraService struct {
	mu sync.Mutex

	cfg *config.Config
	log *slog.Logger

	seq    *sequencer.Sequencer
	mapper *notemap.Mapper
	syn    *synth.Synth
	light  *sensor.Sensor
	ctl    *controller.Controller
	store  *store.PatternStore
	lights *panelLights

	currentLight  float64
	lastLightRead uint32
	lastNote      uint32
	haveLightRead bool
	haveNote      bool
}

// Options override the default collaborators, mostly for tests.
type Options struct {
	Driver synth.ToneDriver
	Source sensor.Source
	Clock  func() uint32
}

func New(cfg *config.Config, log *slog.Logger, opts Options) (Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = slog.Default()
	}

	st, err := store.New(cfg.Patterns.Directory)
	if err != nil {
		return nil, fmt.Errorf("opening pattern store: %w", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = sequencer.NowTicks
	}

	seq := sequencer.New(
		sequencer.BPM(cfg.Sequencer.BPM),
		sequencer.Quantize(cfg.Sequencer.QuantizeMS),
		sequencer.BeatsPerBar(cfg.Sequencer.BeatsPerBar),
		sequencer.Channels(cfg.Sequencer.Channels),
		sequencer.Clock(clock),
	)
	seq.SetLoop(cfg.Sequencer.Loop)

	mapper := notemap.New(cfg.Mapping.MinNote, cfg.Mapping.MaxNote, cfg.Mapping.Scale)
	mapper.SetDurationRange(cfg.Mapping.MinDurationMS, cfg.Mapping.MaxDurationMS)

	driver := opts.Driver
	if driver == nil {
		driver = synth.NopDriver{}
	}
	syn := synth.New(driver)
	syn.SetVolume(cfg.Synth.Volume)
	syn.SetEnvelope(synth.Envelope{
		AttackMS:  cfg.Synth.Envelope.AttackMS,
		DecayMS:   cfg.Synth.Envelope.DecayMS,
		Sustain:   cfg.Synth.Envelope.Sustain,
		ReleaseMS: cfg.Synth.Envelope.ReleaseMS,
	})

	source := opts.Source
	if source == nil {
		source = sensor.NewSource(cfg.Sensor.Backend)
	}
	light := sensor.New(source)
	light.SetSamples(cfg.Sensor.Samples)

	lights := newPanelLights()
	ctl := controller.New(seq, st, lights, log,
		controller.WithClock(clock),
		controller.WithPanicHook(syn.AllNotesOff))

	return &orchestraService{
		cfg:    cfg,
		log:    log,
		seq:    seq,
		mapper: mapper,
		syn:    syn,
		light:  light,
		ctl:    ctl,
		store:  st,
		lights: lights,
	}, nil
}

func (s *orchestraService) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.Engine.TickIntervalMS) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("engine started",
		"tick_interval", interval,
		"bpm", s.cfg.Sequencer.BPM,
		"scale", s.mapper.Scale(),
		"sensor_backend", s.cfg.Sensor.Backend)

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.seq.Panic()
			s.syn.AllNotesOff()
			s.mu.Unlock()
			s.log.Info("engine stopped")
			return nil
		case <-ticker.C:
			s.Step(sequencer.NowTicks())
		}
	}
}

// Step runs one cooperative cycle: panel input, light sampling, recording,
// sequencer playback, envelope update. Everything is driven by the single
// now tick so the cycle stays deterministic under test clocks.
func (s *orchestraService) Step(now uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctl.Poll()
	s.sampleLight(now)
	s.triggerFromLight(now)

	for _, ev := range s.seq.Tick(now) {
		s.syn.PlayEvent(ev, now)
	}

	s.syn.Tick(now)
}

func (s *orchestraService) sampleLight(now uint32) {
	if s.haveLightRead && sequencer.TicksDiff(now, s.lastLightRead) < s.cfg.Engine.LightReadIntervalMS {
		return
	}
	intensity, err := s.light.Intensity()
	if err != nil {
		s.log.Warn("light read failed", "error", err)
		return
	}
	s.currentLight = intensity
	s.lastLightRead = now
	s.haveLightRead = true
}

func (s *orchestraService) triggerFromLight(now uint32) {
	if s.currentLight <= s.cfg.Sensor.Threshold {
		return
	}
	if s.haveNote && sequencer.TicksDiff(now, s.lastNote) < s.cfg.Engine.MinNoteIntervalMS {
		return
	}

	ev := s.mapper.EventFrom(s.currentLight, 0)
	s.seq.RecordEvent(ev)
	s.syn.PlayEvent(ev, now)
	s.lastNote = now
	s.haveNote = true

	s.log.Debug("note from light",
		"light", s.currentLight,
		"pitch", ev.Pitch,
		"magnitude", ev.Magnitude,
		"duration_ms", ev.DurationMS)
}

func (s *orchestraService) Press(b controller.Button) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctl.Press(b)
}

func (s *orchestraService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := s.seq.Summary()
	return Status{
		State:       sum.State.String(),
		BPM:         sum.BPM,
		QuantizeMS:  sum.QuantizeMS,
		BeatsPerBar: sum.BeatsPerBar,
		Loop:        sum.Loop,
		Events:      sum.EventCount,
		TrackLenMS:  sum.TrackLenMS,
		Scale:       s.mapper.Scale(),
		Light:       s.currentLight,
		Pattern:     s.ctl.PatternName(),
		NotePitch:   s.syn.CurrentPitch(),
		NoteLevel:   s.syn.Level(),
		LEDs:        s.lights.Snapshot(),
	}
}

func (s *orchestraService) SetScale(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapper.SetScale(name)
	s.log.Info("scale changed", "scale", s.mapper.Scale())
}

func (s *orchestraService) CycleScale() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	scales := notemap.Scales()
	current := s.mapper.Scale()
	next := scales[0]
	for i, name := range scales {
		if name == current {
			next = scales[(i+1)%len(scales)]
			break
		}
	}
	s.mapper.SetScale(next)
	s.log.Info("scale changed", "scale", next)
	return next
}

func (s *orchestraService) Sequencer() *sequencer.Sequencer { return s.seq }

func (s *orchestraService) Store() *store.PatternStore { return s.store }

func (s *orchestraService) Config() *config.Config { return s.cfg }

// panelLights keeps LED state in memory so the dashboard can render it.
type panelLights struct {
	mu    sync.Mutex
	state map[string]bool
}

func newPanelLights() *panelLights {
	return &panelLights{state: make(map[string]bool)}
}

func (p *panelLights) Set(name string, on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state[name] = on
}

// Flash leaves the LED off. The blink itself surfaces through the log;
// the dashboard redraws too slowly for it to read well.
func (p *panelLights) Flash(name string, times int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state[name] = false
}

func (p *panelLights) Snapshot() map[string]bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]bool, len(p.state))
	for k, v := range p.state {
		out[k] = v
	}
	return out
}
