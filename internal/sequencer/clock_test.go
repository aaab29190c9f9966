package sequencer

import "testing"

func TestTicksDiff(t *testing.T) {
	cases := []struct {
		name string
		a, b uint32
		want int
	}{
		{"forward", 1500, 1000, 500},
		{"equal", 42, 42, 0},
		{"backward", 1000, 1500, -500},
		{"across wrap", 100, 0xFFFFFF9C, 200},
		{"backward across wrap", 0xFFFFFF9C, 100, -200},
	}
	for _, c := range cases {
		if got := TicksDiff(c.a, c.b); got != c.want {
			t.Errorf("%s: TicksDiff(%#x, %#x) = %d, want %d", c.name, c.a, c.b, got, c.want)
		}
	}
}

func TestNowTicksAdvances(t *testing.T) {
	a := NowTicks()
	b := NowTicks()
	if TicksDiff(b, a) < 0 {
		t.Errorf("NowTicks went backwards: %d then %d", a, b)
	}
}
