package usecase

import (
	"math"
	"sync/atomic"
)

// TrailingWatermark holds the highest recommended stop price seen in the session.
// It only moves up; there is no way to store a value directly.
// The zero value is ready to use and reads as 0 (no stop computed yet).
type TrailingWatermark struct {
	bits atomic.Uint64
}

func (w *TrailingWatermark) Load() float64 {
	return math.Float64frombits(w.bits.Load())
}

// Raise sets the watermark to max(current, candidate) and returns the resulting
// value and whether it moved. NaN candidates are ignored.
func (w *TrailingWatermark) Raise(candidate float64) (float64, bool) {
	for {
		old := w.bits.Load()
		current := math.Float64frombits(old)
		if math.IsNaN(candidate) || candidate <= current {
			return current, false
		}
		if w.bits.CompareAndSwap(old, math.Float64bits(candidate)) {
			return candidate, true
		}
	}
}
