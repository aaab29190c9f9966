package sequencer

import "time"

// The sequencer treats time as a millisecond counter that wraps at 32 bits,
// the way microcontroller tick clocks do. All comparisons go through
// TicksDiff so arithmetic stays correct across the wrap.

var processStart = time.Now()

// NowTicks returns milliseconds from a monotonic reference, truncated to 32 bits.
func NowTicks() uint32 {
	return uint32(time.Since(processStart).Milliseconds())
}

// TicksDiff returns the signed forward interval a-b, computed modulo 2^32.
// It stays correct when the raw counter has wrapped through zero between b and a.
func TicksDiff(a, b uint32) int {
	return int(int32(a - b))
}
