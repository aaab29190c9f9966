package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sequencer.BPM != 120 {
		t.Errorf("default bpm = %d, want 120", cfg.Sequencer.BPM)
	}
	if !cfg.Sequencer.Loop {
		t.Error("loop should default to true")
	}
	if cfg.Mapping.Scale != "pentatonic" {
		t.Errorf("default scale = %q, want pentatonic", cfg.Mapping.Scale)
	}
	if cfg.Mapping.MinNote != 48 || cfg.Mapping.MaxNote != 84 {
		t.Errorf("default note range = [%d,%d], want [48,84]", cfg.Mapping.MinNote, cfg.Mapping.MaxNote)
	}
	if cfg.Engine.TickIntervalMS != 10 {
		t.Errorf("default tick interval = %d, want 10", cfg.Engine.TickIntervalMS)
	}
	if cfg.Synth.Volume != 0.6 {
		t.Errorf("default volume = %f, want 0.6", cfg.Synth.Volume)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
sequencer:
  bpm: 90
  quantize_ms: 50
  loop: false
mapping:
  scale: Blues
sensor:
  backend: SIM
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sequencer.BPM != 90 {
		t.Errorf("bpm = %d, want 90", cfg.Sequencer.BPM)
	}
	if cfg.Sequencer.QuantizeMS != 50 {
		t.Errorf("quantize = %d, want 50", cfg.Sequencer.QuantizeMS)
	}
	if cfg.Sequencer.Loop {
		t.Error("loop should be false")
	}
	if cfg.Mapping.Scale != "blues" {
		t.Errorf("scale = %q, want lowercased blues", cfg.Mapping.Scale)
	}
	if cfg.Sensor.Backend != "sim" {
		t.Errorf("backend = %q, want lowercased sim", cfg.Sensor.Backend)
	}
	// Untouched sections keep defaults.
	if cfg.Sequencer.BeatsPerBar != 4 {
		t.Errorf("beats_per_bar = %d, want default 4", cfg.Sequencer.BeatsPerBar)
	}
	if cfg.Engine.LightReadIntervalMS != 50 {
		t.Errorf("light_read_interval_ms = %d, want default 50", cfg.Engine.LightReadIntervalMS)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestNormalizeClamps(t *testing.T) {
	cfg := Default()
	cfg.Sequencer.BPM = -10
	cfg.Sequencer.BeatsPerBar = 0
	cfg.Sequencer.Channels = 99
	cfg.Mapping.MinNote = 90
	cfg.Mapping.MaxNote = 40
	cfg.Mapping.MaxDurationMS = 10
	cfg.Mapping.MinDurationMS = 200
	cfg.Sensor.Threshold = 250
	cfg.Synth.Volume = 1.5
	cfg.Synth.Envelope.Sustain = -0.2
	cfg.Engine.TickIntervalMS = 0
	cfg.Engine.LightReadIntervalMS = 0
	cfg.Normalize()

	if cfg.Sequencer.BPM != 1 {
		t.Errorf("bpm = %d, want clamped to 1", cfg.Sequencer.BPM)
	}
	if cfg.Sequencer.BeatsPerBar != 1 {
		t.Errorf("beats_per_bar = %d, want 1", cfg.Sequencer.BeatsPerBar)
	}
	if cfg.Sequencer.Channels != 16 {
		t.Errorf("channels = %d, want 16", cfg.Sequencer.Channels)
	}
	if cfg.Mapping.MinNote != 40 || cfg.Mapping.MaxNote != 90 {
		t.Errorf("note range = [%d,%d], want swapped to [40,90]", cfg.Mapping.MinNote, cfg.Mapping.MaxNote)
	}
	if cfg.Mapping.MaxDurationMS < cfg.Mapping.MinDurationMS {
		t.Errorf("duration range inverted: [%d,%d]", cfg.Mapping.MinDurationMS, cfg.Mapping.MaxDurationMS)
	}
	if cfg.Sensor.Threshold != 100 {
		t.Errorf("threshold = %f, want 100", cfg.Sensor.Threshold)
	}
	if cfg.Synth.Volume != 1 {
		t.Errorf("volume = %f, want 1", cfg.Synth.Volume)
	}
	if cfg.Synth.Envelope.Sustain != 0 {
		t.Errorf("sustain = %f, want 0", cfg.Synth.Envelope.Sustain)
	}
	if cfg.Engine.TickIntervalMS != 1 {
		t.Errorf("tick interval = %d, want 1", cfg.Engine.TickIntervalMS)
	}
	if cfg.Engine.LightReadIntervalMS < cfg.Engine.TickIntervalMS {
		t.Error("light read interval should not undercut tick interval")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Sequencer.BPM = 77
	cfg.Mapping.Scale = "minor"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Sequencer.BPM != 77 {
		t.Errorf("bpm = %d, want 77", got.Sequencer.BPM)
	}
	if got.Mapping.Scale != "minor" {
		t.Errorf("scale = %q, want minor", got.Mapping.Scale)
	}
}
