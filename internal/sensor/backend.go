package sensor

import (
	"math"
	"strings"
)

// BackendType selects where raw light readings come from.
type BackendType string

const (
	// BackendSim is a deterministic simulated source for PC runs.
	BackendSim BackendType = "sim"
	// BackendAuto picks the best available backend.
	BackendAuto BackendType = "auto"
)

// NewSource creates a raw source for the requested backend. Hardware ADC
// access is out of scope here, so both "sim" and "auto" resolve to the
// simulation; the indirection keeps the call sites stable when a real
// backend appears.
func NewSource(backend string) Source {
	switch BackendType(strings.ToLower(backend)) {
	case BackendSim, BackendAuto:
		return NewSimSource()
	default:
		return NewSimSource()
	}
}

// AvailableBackends lists the backends usable on this system.
func AvailableBackends() []BackendType {
	return []BackendType{BackendSim}
}

// SimSource produces a slow sine sweep across the raw range, so a PC run
// of the instrument plays an audible rising and falling melody without
// any hardware attached.
type SimSource struct {
	step   int
	period int
}

// NewSimSource returns a sweep with a period long enough to hear the
// scale walk up and down.
func NewSimSource() *SimSource {
	return &SimSource{period: 600}
}

// ReadRaw returns the next sample of the sweep.
func (s *SimSource) ReadRaw() (int, error) {
	phase := 2 * math.Pi * float64(s.step%s.period) / float64(s.period)
	s.step++
	v := (math.Sin(phase) + 1) / 2
	return int(v * rawMax), nil
}

// SourceFunc adapts a plain function to the Source interface, mirroring
// http.HandlerFunc. Tests use it heavily.
type SourceFunc func() (int, error)

func (f SourceFunc) ReadRaw() (int, error) { return f() }
