package dedup

import (
	"math"
	"sync/atomic"
)

// Threshold is the tunable similarity cutoff shared between the engine and
// the tuner. The engine only reads the current value; adjustment policy
// lives in the Tuner.
type Threshold struct {
	bits atomic.Uint64
}

// NewThreshold creates a Threshold at the given initial value.
func NewThreshold(value float64) *Threshold {
	t := &Threshold{}
	t.Set(value)
	return t
}

// Value returns the current threshold.
func (t *Threshold) Value() float64 {
	return math.Float64frombits(t.bits.Load())
}

// Set replaces the threshold.
func (t *Threshold) Set(value float64) {
	t.bits.Store(math.Float64bits(value))
}
