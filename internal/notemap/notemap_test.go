package notemap

import "testing"

func TestNoteStaysInScaleAndRange(t *testing.T) {
	m := New(48, 84, ScalePentatonic)

	pentatonic := map[int]bool{0: true, 2: true, 4: true, 7: true, 9: true}
	for intensity := 0.0; intensity <= 100.0; intensity += 2.5 {
		n := m.Note(intensity)
		if n < 48 || n > 84 {
			t.Errorf("intensity %.1f: note %d outside [48, 84]", intensity, n)
		}
		if !pentatonic[n%12] {
			t.Errorf("intensity %.1f: note %d not in pentatonic scale", intensity, n)
		}
	}
}

func TestNoteMonotonicInIntensity(t *testing.T) {
	m := New(36, 84, ScaleMajor)

	prev := -1
	for intensity := 0.0; intensity <= 100.0; intensity += 1.0 {
		n := m.Note(intensity)
		if n < prev {
			t.Fatalf("note mapping not monotonic: %d after %d at intensity %.0f", n, prev, intensity)
		}
		prev = n
	}
	if m.Note(0) == m.Note(100) {
		t.Error("expected full intensity span to cover more than one note")
	}
}

func TestUnknownScaleFallsBackToChromatic(t *testing.T) {
	m := New(60, 72, "klingon")
	if got := m.Scale(); got != ScaleChromatic {
		t.Errorf("scale = %q, want chromatic fallback", got)
	}
	if got := m.ScaleInfo().AvailableNotes; got != 13 {
		t.Errorf("chromatic notes in [60, 72] = %d, want 13", got)
	}
}

func TestSetRangeClampsAndKeepsOctave(t *testing.T) {
	m := New(60, 72, ScaleChromatic)

	m.SetRange(-10, 300)
	if lo, hi := m.Range(); lo != 0 || hi != 127 {
		t.Errorf("range = [%d, %d], want [0, 127]", lo, hi)
	}

	m.SetRange(80, 70) // inverted
	if lo, hi := m.Range(); hi-lo < 12 {
		t.Errorf("range = [%d, %d], want at least an octave", lo, hi)
	}
}

func TestVelocityCurve(t *testing.T) {
	m := New(48, 84, ScaleChromatic)

	if got := m.Velocity(0); got != 0.1 {
		t.Errorf("Velocity(0) = %v, want velMin 0.1", got)
	}
	if got := m.Velocity(100); got != 1.0 {
		t.Errorf("Velocity(100) = %v, want velMax 1.0", got)
	}
	// sqrt curve: a quarter of full intensity maps to half the span.
	mid := m.Velocity(25)
	if mid < 0.54 || mid > 0.56 {
		t.Errorf("Velocity(25) = %v, want ~0.55", mid)
	}
	if m.Velocity(-5) != m.Velocity(0) || m.Velocity(200) != m.Velocity(100) {
		t.Error("velocity must clamp out-of-range intensity")
	}
}

func TestDurationInverseMapping(t *testing.T) {
	m := New(48, 84, ScaleChromatic)

	if got := m.Duration(0); got != 1000 {
		t.Errorf("Duration(0) = %d, want 1000 (dim is sustained)", got)
	}
	if got := m.Duration(100); got != 100 {
		t.Errorf("Duration(100) = %d, want 100 (bright is staccato)", got)
	}
	if m.Duration(20) <= m.Duration(80) {
		t.Error("duration must decrease with intensity")
	}
}

func TestEventFrom(t *testing.T) {
	m := New(48, 84, ScaleMinor)

	ev := m.EventFrom(75, 2)
	if ev.Channel != 2 {
		t.Errorf("channel = %d, want 2", ev.Channel)
	}
	if ev.TimestampMS != 0 {
		t.Errorf("timestamp = %d, want 0 (assigned at record time)", ev.TimestampMS)
	}
	if !ev.HasPitch() || !ev.HasDuration() {
		t.Errorf("event must carry pitch and duration: %+v", ev)
	}
	if ev.Magnitude <= 0 || ev.Magnitude > 1 {
		t.Errorf("magnitude = %v, want (0, 1]", ev.Magnitude)
	}
}

func TestScalesListsAllKnownScales(t *testing.T) {
	got := Scales()
	if len(got) != 6 {
		t.Fatalf("Scales() returned %d names, want 6: %v", len(got), got)
	}
	for _, name := range got {
		if _, ok := scaleIntervals[name]; !ok {
			t.Errorf("Scales() returned unknown name %q", name)
		}
	}
}
