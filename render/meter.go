package render

import (
	"math"
	"sync/atomic"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Meter keeps the block peak of every output channel. It is written by the
// render loop and read from anywhere.
type Meter struct {
	scratch []float64
	peaks   []atomic.Uint64
}

func NewMeter(channels, quantum int) *Meter {
	return &Meter{
		scratch: make([]float64, quantum),
		peaks:   make([]atomic.Uint64, channels),
	}
}

func (m *Meter) update(ch int, block []float32) {
	if ch >= len(m.peaks) || len(block) > len(m.scratch) {
		return
	}
	buf := m.scratch[:len(block)]
	for i, s := range block {
		buf[i] = float64(s)
	}
	m.peaks[ch].Store(math.Float64bits(vecmath.MaxAbs(buf)))
}

func (m *Meter) Peak(ch int) float64 {
	if ch < 0 || ch >= len(m.peaks) {
		return 0
	}
	return math.Float64frombits(m.peaks[ch].Load())
}
