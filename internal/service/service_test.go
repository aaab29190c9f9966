package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/lightorchestralab/lightorchestra/internal/config"
	"github.com/lightorchestralab/lightorchestra/internal/controller"
	"github.com/lightorchestralab/lightorchestra/internal/sensor"
)

type countingDriver struct {
	freqs []float64
}

func (d *countingDriver) SetFreq(hz float64) error {
	d.freqs = append(d.freqs, hz)
	return nil
}

func (d *countingDriver) SetDuty(float64) error { return nil }

func (d *countingDriver) Stop() error { return nil }

type testRig struct {
	svc    Service
	driver *countingDriver
	clock  uint32
	level  int
}

func newTestRig(t *testing.T, mutate func(*config.Config)) *testRig {
	t.Helper()
	cfg := config.Default()
	cfg.Patterns.Directory = t.TempDir()
	cfg.Engine.MinNoteIntervalMS = 100
	if mutate != nil {
		mutate(cfg)
	}
	cfg.Normalize()

	rig := &testRig{driver: &countingDriver{}, clock: 1000, level: 100}
	svc, err := New(cfg, slog.Default(), Options{
		Driver: rig.driver,
		Source: sensor.SourceFunc(func() (int, error) { return rig.level, nil }),
		Clock:  func() uint32 { return rig.clock },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rig.svc = svc
	return rig
}

// step advances the clock and runs one cycle.
func (r *testRig) step(ms int) {
	r.clock += uint32(ms)
	r.svc.Step(r.clock)
}

func TestStatusDefaults(t *testing.T) {
	rig := newTestRig(t, nil)
	st := rig.svc.Status()
	if st.State != "IDLE" {
		t.Errorf("state = %q, want IDLE", st.State)
	}
	if st.BPM != 120 {
		t.Errorf("bpm = %d, want 120", st.BPM)
	}
	if st.Scale != "pentatonic" {
		t.Errorf("scale = %q, want pentatonic", st.Scale)
	}
}

func TestBrightLightTriggersNote(t *testing.T) {
	rig := newTestRig(t, nil)
	// Calibration defaults sit at [100,65535]; 40000 reads well above
	// the noise threshold.
	rig.level = 40000

	rig.step(60)
	if len(rig.driver.freqs) == 0 {
		t.Fatal("bright light should trigger a note")
	}
}

func TestDarkLightStaysSilent(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.level = 100 // calibration floor reads as intensity 0

	for i := 0; i < 10; i++ {
		rig.step(60)
	}
	if len(rig.driver.freqs) != 0 {
		t.Errorf("dark light triggered %d notes", len(rig.driver.freqs))
	}
}

func TestMinNoteIntervalRateLimits(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.level = 40000

	// 10ms ticks for 95ms: at most one new note inside the 100ms window.
	for i := 0; i < 9; i++ {
		rig.step(10)
	}
	if len(rig.driver.freqs) != 1 {
		t.Errorf("got %d notes inside the interval, want 1", len(rig.driver.freqs))
	}

	rig.step(60) // crosses the 100ms boundary
	if len(rig.driver.freqs) != 2 {
		t.Errorf("got %d notes after the interval, want 2", len(rig.driver.freqs))
	}
}

func TestRateLimitHoldsAtTickZero(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.clock = 0
	rig.level = 40000

	rig.svc.Step(0)
	if len(rig.driver.freqs) != 1 {
		t.Fatalf("got %d notes at tick 0, want 1", len(rig.driver.freqs))
	}

	// A note triggered at tick 0 must still arm the interval.
	rig.step(10)
	if len(rig.driver.freqs) != 1 {
		t.Errorf("note at tick 0 escaped the rate limit: %d notes", len(rig.driver.freqs))
	}
}

func TestRecordPlayCycle(t *testing.T) {
	rig := newTestRig(t, func(c *config.Config) {
		c.Sequencer.BPM = 240 // 1000ms bar keeps the arithmetic readable
	})

	rig.svc.Press(controller.ButtonRec)
	rig.step(10)
	if st := rig.svc.Status(); st.State != "RECORDING" {
		t.Fatalf("state = %q, want RECORDING", st.State)
	}

	rig.level = 40000
	rig.step(100)
	rig.level = 100
	rig.step(50)

	rig.svc.Press(controller.ButtonRec)
	rig.step(10)
	st := rig.svc.Status()
	if st.State != "IDLE" {
		t.Fatalf("state = %q, want IDLE", st.State)
	}
	if st.Events == 0 {
		t.Fatal("recording captured no events")
	}
	if st.TrackLenMS%1000 != 0 {
		t.Errorf("track length %d not bar-rounded", st.TrackLenMS)
	}

	before := len(rig.driver.freqs)
	rig.svc.Press(controller.ButtonPlay)
	rig.step(10)
	if st := rig.svc.Status(); st.State != "PLAYING" {
		t.Fatalf("state = %q, want PLAYING", st.State)
	}

	// Walk a few loops; the recorded note must come back around.
	for i := 0; i < 250; i++ {
		rig.step(10)
	}
	if len(rig.driver.freqs) <= before {
		t.Error("playback delivered no notes")
	}
}

func TestStopButtonSilences(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.level = 40000
	rig.step(60)

	rig.svc.Press(controller.ButtonStop)
	rig.step(10)
	st := rig.svc.Status()
	if st.State != "IDLE" {
		t.Errorf("state = %q, want IDLE", st.State)
	}
	if st.NotePitch != -1 {
		t.Errorf("note pitch = %d, want -1 after stop", st.NotePitch)
	}
}

func TestCycleScale(t *testing.T) {
	rig := newTestRig(t, nil)
	first := rig.svc.Status().Scale
	next := rig.svc.CycleScale()
	if next == first {
		t.Errorf("CycleScale stayed on %q", first)
	}
	if got := rig.svc.Status().Scale; got != next {
		t.Errorf("status scale = %q, want %q", got, next)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- rig.svc.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
