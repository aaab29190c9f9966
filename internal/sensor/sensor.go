// Package sensor abstracts the ambient-light input. A Source delivers raw
// 16-bit readings; the Sensor layers averaging, a short history filter and
// min/max calibration on top and reports intensity as a percentage.
package sensor

import (
	"fmt"
	"log/slog"
)

// Source is the raw reading boundary. Hardware ADCs, file replays and
// simulations all satisfy it.
type Source interface {
	// ReadRaw returns a 16-bit sample in [0, 65535].
	ReadRaw() (int, error)
}

const (
	rawMax             = 65535
	defaultSamples     = 10
	defaultHistorySize = 5

	// Default calibration: a dark room never reads exactly zero.
	defaultMinReading = 100
	defaultMaxReading = rawMax
)

// Sensor converts raw Source samples into calibrated light intensity.
type Sensor struct {
	source  Source
	samples int

	minReading int
	maxReading int

	history []int
}

// New returns a sensor over the given source with default calibration.
func New(source Source) *Sensor {
	return &Sensor{
		source:     source,
		samples:    defaultSamples,
		minReading: defaultMinReading,
		maxReading: defaultMaxReading,
	}
}

// SetSamples sets how many raw reads are averaged per call, minimum 1.
func (s *Sensor) SetSamples(n int) {
	if n < 1 {
		n = 1
	}
	s.samples = n
}

// ReadRaw returns the average of a burst of raw samples.
func (s *Sensor) ReadRaw() (int, error) {
	total := 0
	for i := 0; i < s.samples; i++ {
		v, err := s.source.ReadRaw()
		if err != nil {
			return 0, fmt.Errorf("reading light source: %w", err)
		}
		if v < 0 {
			v = 0
		}
		if v > rawMax {
			v = rawMax
		}
		total += v
	}
	return total / s.samples, nil
}

// Intensity returns the filtered, calibrated light level in [0, 100].
func (s *Sensor) Intensity() (float64, error) {
	raw, err := s.ReadRaw()
	if err != nil {
		return 0, err
	}

	s.history = append(s.history, raw)
	if len(s.history) > defaultHistorySize {
		s.history = s.history[1:]
	}
	filtered := 0
	for _, v := range s.history {
		filtered += v
	}
	filtered /= len(s.history)

	span := s.maxReading - s.minReading
	if span <= 0 {
		return 0, nil
	}
	clamped := filtered
	if clamped < s.minReading {
		clamped = s.minReading
	}
	if clamped > s.maxReading {
		clamped = s.maxReading
	}
	intensity := float64(clamped-s.minReading) / float64(span) * 100.0
	return intensity, nil
}

// Calibrate samples the current conditions and fixes them as the dark and
// bright ends of the range. The caller arranges the lighting around the
// two closures (covering the sensor, shining a light).
func (s *Sensor) Calibrate(dark, bright func() error, samplesEach int) error {
	if samplesEach < 1 {
		samplesEach = 1
	}

	sampleAvg := func() (int, error) {
		total := 0
		for i := 0; i < samplesEach; i++ {
			v, err := s.ReadRaw()
			if err != nil {
				return 0, err
			}
			total += v
		}
		return total / samplesEach, nil
	}

	if dark != nil {
		if err := dark(); err != nil {
			return fmt.Errorf("dark calibration setup: %w", err)
		}
	}
	minR, err := sampleAvg()
	if err != nil {
		return fmt.Errorf("dark calibration: %w", err)
	}

	if bright != nil {
		if err := bright(); err != nil {
			return fmt.Errorf("bright calibration setup: %w", err)
		}
	}
	maxR, err := sampleAvg()
	if err != nil {
		return fmt.Errorf("bright calibration: %w", err)
	}

	if maxR <= minR {
		return fmt.Errorf("calibration range collapsed: dark %d, bright %d", minR, maxR)
	}

	s.minReading = minR
	s.maxReading = maxR
	s.history = nil
	slog.Debug("light sensor calibrated", "dark", minR, "bright", maxR)
	return nil
}

// Calibration returns the active min/max raw bounds.
func (s *Sensor) Calibration() (minReading, maxReading int) {
	return s.minReading, s.maxReading
}

// SetCalibration installs explicit raw bounds, e.g. from config.
func (s *Sensor) SetCalibration(minReading, maxReading int) {
	if maxReading <= minReading {
		return
	}
	s.minReading = minReading
	s.maxReading = maxReading
	s.history = nil
}

// DebugInfo is a snapshot of the sensor internals for dashboards.
type DebugInfo struct {
	Raw       int
	Intensity float64
	MinCal    int
	MaxCal    int
}

// Debug reads the sensor once and reports the internals.
func (s *Sensor) Debug() (DebugInfo, error) {
	raw, err := s.ReadRaw()
	if err != nil {
		return DebugInfo{}, err
	}
	intensity, err := s.Intensity()
	if err != nil {
		return DebugInfo{}, err
	}
	return DebugInfo{
		Raw:       raw,
		Intensity: intensity,
		MinCal:    s.minReading,
		MaxCal:    s.maxReading,
	}, nil
}
