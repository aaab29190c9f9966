package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Sequencer SequencerConfig `mapstructure:"sequencer" yaml:"sequencer"`
	Mapping   MappingConfig   `mapstructure:"mapping" yaml:"mapping"`
	Sensor    SensorConfig    `mapstructure:"sensor" yaml:"sensor"`
	Synth     SynthConfig     `mapstructure:"synth" yaml:"synth"`
	Engine    EngineConfig    `mapstructure:"engine" yaml:"engine"`
	Patterns  PatternsConfig  `mapstructure:"patterns" yaml:"patterns"`
}

type SequencerConfig struct {
	BPM         int  `mapstructure:"bpm" yaml:"bpm"`
	QuantizeMS  int  `mapstructure:"quantize_ms" yaml:"quantize_ms"`
	BeatsPerBar int  `mapstructure:"beats_per_bar" yaml:"beats_per_bar"`
	Channels    int  `mapstructure:"channels" yaml:"channels"`
	Loop        bool `mapstructure:"loop" yaml:"loop"`
}

type MappingConfig struct {
	Scale         string `mapstructure:"scale" yaml:"scale"`
	MinNote       int    `mapstructure:"min_note" yaml:"min_note"`
	MaxNote       int    `mapstructure:"max_note" yaml:"max_note"`
	MinDurationMS int    `mapstructure:"min_duration_ms" yaml:"min_duration_ms"`
	MaxDurationMS int    `mapstructure:"max_duration_ms" yaml:"max_duration_ms"`
}

type SensorConfig struct {
	Backend   string  `mapstructure:"backend" yaml:"backend"` // "sim", "auto"
	Samples   int     `mapstructure:"samples" yaml:"samples"`
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"` // intensity floor, 0..100
}

type SynthConfig struct {
	Volume   float64        `mapstructure:"volume" yaml:"volume"`
	Envelope EnvelopeConfig `mapstructure:"envelope" yaml:"envelope"`
}

type EnvelopeConfig struct {
	AttackMS  int     `mapstructure:"attack_ms" yaml:"attack_ms"`
	DecayMS   int     `mapstructure:"decay_ms" yaml:"decay_ms"`
	Sustain   float64 `mapstructure:"sustain" yaml:"sustain"`
	ReleaseMS int     `mapstructure:"release_ms" yaml:"release_ms"`
}

type EngineConfig struct {
	TickIntervalMS      int `mapstructure:"tick_interval_ms" yaml:"tick_interval_ms"`
	LightReadIntervalMS int `mapstructure:"light_read_interval_ms" yaml:"light_read_interval_ms"`
	MinNoteIntervalMS   int `mapstructure:"min_note_interval_ms" yaml:"min_note_interval_ms"`
}

type PatternsConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
}

var defaultConfig = Config{
	Sequencer: SequencerConfig{
		BPM:         120,
		QuantizeMS:  0,
		BeatsPerBar: 4,
		Channels:    1,
		Loop:        true,
	},
	Mapping: MappingConfig{
		Scale:         "pentatonic",
		MinNote:       48,
		MaxNote:       84,
		MinDurationMS: 100,
		MaxDurationMS: 1000,
	},
	Sensor: SensorConfig{
		Backend:   "auto",
		Samples:   10,
		Threshold: 5.0,
	},
	Synth: SynthConfig{
		Volume: 0.6,
		Envelope: EnvelopeConfig{
			AttackMS:  5,
			DecayMS:   30,
			Sustain:   0.7,
			ReleaseMS: 40,
		},
	},
	Engine: EngineConfig{
		TickIntervalMS:      10,
		LightReadIntervalMS: 50,
		MinNoteIntervalMS:   100,
	},
	Patterns: PatternsConfig{
		Directory: filepath.Join(os.Getenv("HOME"), ".lightorchestra", "patterns"),
	},
}

// Default returns a copy of the built-in configuration.
func Default() *Config {
	c := defaultConfig
	return &c
}

// Load reads the YAML config file and merges it over the defaults. An empty
// path means defaults only. The result is always normalized; out-of-range
// values clamp rather than fail so a hand-edited file cannot brick the box.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("LIGHTORCHESTRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Patterns.Directory = expandPath(cfg.Patterns.Directory)
	cfg.Normalize()
	return cfg, nil
}

// Save writes the configuration back to the given path as YAML.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.Set("sequencer", c.Sequencer)
	v.Set("mapping", c.Mapping)
	v.Set("sensor", c.Sensor)
	v.Set("synth", c.Synth)
	v.Set("engine", c.Engine)
	v.Set("patterns", c.Patterns)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sequencer.bpm", defaultConfig.Sequencer.BPM)
	v.SetDefault("sequencer.quantize_ms", defaultConfig.Sequencer.QuantizeMS)
	v.SetDefault("sequencer.beats_per_bar", defaultConfig.Sequencer.BeatsPerBar)
	v.SetDefault("sequencer.channels", defaultConfig.Sequencer.Channels)
	v.SetDefault("sequencer.loop", defaultConfig.Sequencer.Loop)

	v.SetDefault("mapping.scale", defaultConfig.Mapping.Scale)
	v.SetDefault("mapping.min_note", defaultConfig.Mapping.MinNote)
	v.SetDefault("mapping.max_note", defaultConfig.Mapping.MaxNote)
	v.SetDefault("mapping.min_duration_ms", defaultConfig.Mapping.MinDurationMS)
	v.SetDefault("mapping.max_duration_ms", defaultConfig.Mapping.MaxDurationMS)

	v.SetDefault("sensor.backend", defaultConfig.Sensor.Backend)
	v.SetDefault("sensor.samples", defaultConfig.Sensor.Samples)
	v.SetDefault("sensor.threshold", defaultConfig.Sensor.Threshold)

	v.SetDefault("synth.volume", defaultConfig.Synth.Volume)
	v.SetDefault("synth.envelope.attack_ms", defaultConfig.Synth.Envelope.AttackMS)
	v.SetDefault("synth.envelope.decay_ms", defaultConfig.Synth.Envelope.DecayMS)
	v.SetDefault("synth.envelope.sustain", defaultConfig.Synth.Envelope.Sustain)
	v.SetDefault("synth.envelope.release_ms", defaultConfig.Synth.Envelope.ReleaseMS)

	v.SetDefault("engine.tick_interval_ms", defaultConfig.Engine.TickIntervalMS)
	v.SetDefault("engine.light_read_interval_ms", defaultConfig.Engine.LightReadIntervalMS)
	v.SetDefault("engine.min_note_interval_ms", defaultConfig.Engine.MinNoteIntervalMS)

	v.SetDefault("patterns.directory", defaultConfig.Patterns.Directory)
}

// Normalize clamps every field into its working range.
func (c *Config) Normalize() {
	c.Sequencer.BPM = clampInt(c.Sequencer.BPM, 1, 1000)
	c.Sequencer.QuantizeMS = maxInt(c.Sequencer.QuantizeMS, 0)
	c.Sequencer.BeatsPerBar = clampInt(c.Sequencer.BeatsPerBar, 1, 32)
	c.Sequencer.Channels = clampInt(c.Sequencer.Channels, 1, 16)

	c.Mapping.MinNote = clampInt(c.Mapping.MinNote, 0, 127)
	c.Mapping.MaxNote = clampInt(c.Mapping.MaxNote, 0, 127)
	if c.Mapping.MaxNote < c.Mapping.MinNote {
		c.Mapping.MinNote, c.Mapping.MaxNote = c.Mapping.MaxNote, c.Mapping.MinNote
	}
	c.Mapping.MinDurationMS = maxInt(c.Mapping.MinDurationMS, 1)
	if c.Mapping.MaxDurationMS < c.Mapping.MinDurationMS {
		c.Mapping.MaxDurationMS = c.Mapping.MinDurationMS
	}
	c.Mapping.Scale = strings.ToLower(strings.TrimSpace(c.Mapping.Scale))

	c.Sensor.Samples = clampInt(c.Sensor.Samples, 1, 1000)
	c.Sensor.Threshold = clampFloat(c.Sensor.Threshold, 0, 100)
	c.Sensor.Backend = strings.ToLower(strings.TrimSpace(c.Sensor.Backend))

	c.Synth.Volume = clampFloat(c.Synth.Volume, 0, 1)
	c.Synth.Envelope.AttackMS = maxInt(c.Synth.Envelope.AttackMS, 0)
	c.Synth.Envelope.DecayMS = maxInt(c.Synth.Envelope.DecayMS, 0)
	c.Synth.Envelope.Sustain = clampFloat(c.Synth.Envelope.Sustain, 0, 1)
	c.Synth.Envelope.ReleaseMS = maxInt(c.Synth.Envelope.ReleaseMS, 0)

	c.Engine.TickIntervalMS = clampInt(c.Engine.TickIntervalMS, 1, 1000)
	c.Engine.LightReadIntervalMS = maxInt(c.Engine.LightReadIntervalMS, c.Engine.TickIntervalMS)
	c.Engine.MinNoteIntervalMS = maxInt(c.Engine.MinNoteIntervalMS, 0)

	if c.Patterns.Directory == "" {
		c.Patterns.Directory = defaultConfig.Patterns.Directory
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
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

func maxInt(v, lo int) int {
	if v < lo {
		return lo
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
