package sensor

import (
	"errors"
	"testing"
)

func constantSource(v int) Source {
	return SourceFunc(func() (int, error) { return v, nil })
}

func TestReadRawAverages(t *testing.T) {
	vals := []int{100, 200, 300, 400}
	i := 0
	s := New(SourceFunc(func() (int, error) {
		v := vals[i%len(vals)]
		i++
		return v, nil
	}))
	s.SetSamples(4)

	got, err := s.ReadRaw()
	if err != nil {
		t.Fatal(err)
	}
	if got != 250 {
		t.Errorf("averaged raw = %d, want 250", got)
	}
}

func TestReadRawClampsSamples(t *testing.T) {
	s := New(constantSource(999999))
	s.SetSamples(1)

	got, err := s.ReadRaw()
	if err != nil {
		t.Fatal(err)
	}
	if got != rawMax {
		t.Errorf("raw = %d, want clamp at %d", got, rawMax)
	}
}

func TestIntensityBounds(t *testing.T) {
	dark := New(constantSource(0))
	v, err := dark.Intensity()
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Errorf("dark intensity = %v, want 0", v)
	}

	bright := New(constantSource(rawMax))
	v, err = bright.Intensity()
	if err != nil {
		t.Fatal(err)
	}
	if v != 100 {
		t.Errorf("bright intensity = %v, want 100", v)
	}
}

func TestIntensityUsesCalibration(t *testing.T) {
	s := New(constantSource(3000))
	s.SetCalibration(1000, 5000)

	v, err := s.Intensity()
	if err != nil {
		t.Fatal(err)
	}
	if v != 50 {
		t.Errorf("intensity = %v, want 50 (midpoint of calibrated range)", v)
	}
}

func TestHistoryFilterSmooths(t *testing.T) {
	vals := []int{0, 65535}
	i := 0
	s := New(SourceFunc(func() (int, error) {
		v := vals[i%2]
		i++
		return v, nil
	}))
	s.SetSamples(1)
	s.SetCalibration(0, 65535)

	s.Intensity() // seeds history with one extreme
	v, err := s.Intensity()
	if err != nil {
		t.Fatal(err)
	}
	if v == 0 || v == 100 {
		t.Errorf("intensity = %v, want a smoothed value between the extremes", v)
	}
}

func TestCalibrate(t *testing.T) {
	level := 500
	s := New(SourceFunc(func() (int, error) { return level, nil }))
	s.SetSamples(1)

	err := s.Calibrate(
		func() error { level = 500; return nil },
		func() error { level = 60000; return nil },
		3,
	)
	if err != nil {
		t.Fatal(err)
	}
	lo, hi := s.Calibration()
	if lo != 500 || hi != 60000 {
		t.Errorf("calibration = [%d, %d], want [500, 60000]", lo, hi)
	}
}

func TestCalibrateRejectsCollapsedRange(t *testing.T) {
	s := New(constantSource(1234))
	s.SetSamples(1)

	if err := s.Calibrate(nil, nil, 2); err == nil {
		t.Error("expected an error when dark and bright read the same")
	}
	if lo, hi := s.Calibration(); lo != defaultMinReading || hi != defaultMaxReading {
		t.Errorf("failed calibration must not alter bounds, got [%d, %d]", lo, hi)
	}
}

func TestSourceErrorPropagates(t *testing.T) {
	wantErr := errors.New("adc gone")
	s := New(SourceFunc(func() (int, error) { return 0, wantErr }))

	if _, err := s.ReadRaw(); !errors.Is(err, wantErr) {
		t.Errorf("ReadRaw error = %v, want wrap of %v", err, wantErr)
	}
	if _, err := s.Intensity(); !errors.Is(err, wantErr) {
		t.Errorf("Intensity error = %v, want wrap of %v", err, wantErr)
	}
}

func TestSimSourceSweeps(t *testing.T) {
	src := NewSimSource()

	lo, hi := rawMax, 0
	for i := 0; i < 600; i++ {
		v, err := src.ReadRaw()
		if err != nil {
			t.Fatal(err)
		}
		if v < 0 || v > rawMax {
			t.Fatalf("sample %d out of range: %d", i, v)
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi-lo < rawMax/2 {
		t.Errorf("sweep range [%d, %d] too narrow to be audible", lo, hi)
	}
}

func TestNewSourceDefaultsToSim(t *testing.T) {
	for _, backend := range []string{"sim", "auto", "", "unknown"} {
		if _, ok := NewSource(backend).(*SimSource); !ok {
			t.Errorf("NewSource(%q) did not return the simulated source", backend)
		}
	}
}
