// Package render runs the per-quantum audio callback.
//
// Nothing on the Process path allocates, blocks, logs or panics on bad
// input: a block that cannot be rendered is reported through the return
// value, with silent outputs.
package render

import (
	"fmt"
	"sync/atomic"
)

// Processor computes audio one tick at a time, with interleaved buffers.
type Processor interface {
	BlockSize() int
	Process(ticks int, in, out []float32) error
}

type Loop struct {
	processor Processor
	quantum   int
	ticks     int
	inputs    int
	outputs   int

	in  []float32
	out []float32

	meter    *Meter
	blocks   atomic.Uint64
	failures atomic.Uint64
}

func NewLoop(p Processor, quantum, inputs, outputs int) (*Loop, error) {
	if p == nil {
		return nil, fmt.Errorf("no processor")
	}
	if inputs < 0 || outputs < 0 {
		return nil, fmt.Errorf("invalid channel count: %d in, %d out", inputs, outputs)
	}
	bs := p.BlockSize()
	if bs <= 0 || quantum <= 0 || quantum%bs != 0 {
		return nil, fmt.Errorf("quantum %d is not a multiple of the engine block size %d", quantum, bs)
	}
	return &Loop{
		processor: p,
		quantum:   quantum,
		ticks:     quantum / bs,
		inputs:    inputs,
		outputs:   outputs,
		in:        make([]float32, quantum*inputs),
		out:       make([]float32, quantum*outputs),
		meter:     NewMeter(outputs, quantum),
	}, nil
}

// Process pulls exactly one quantum from the processor. Inputs beyond the
// declared count are ignored, missing ones read as silence.
func (l *Loop) Process(in, out [][]float32) bool {
	if len(out) != l.outputs {
		l.fail(out)
		return false
	}
	for _, ch := range out {
		if len(ch) != l.quantum {
			l.fail(out)
			return false
		}
	}

	for ch := 0; ch < l.inputs; ch++ {
		if ch < len(in) && len(in[ch]) == l.quantum {
			src := in[ch]
			for i, s := range src {
				l.in[i*l.inputs+ch] = s
			}
		} else {
			for i := 0; i < l.quantum; i++ {
				l.in[i*l.inputs+ch] = 0
			}
		}
	}

	if err := l.processor.Process(l.ticks, l.in, l.out); err != nil {
		l.fail(out)
		return false
	}

	for ch, dst := range out {
		for i := range dst {
			dst[i] = l.out[i*l.outputs+ch]
		}
		l.meter.update(ch, dst)
	}
	l.blocks.Add(1)
	return true
}

func (l *Loop) fail(out [][]float32) {
	for _, ch := range out {
		clear(ch)
	}
	l.failures.Add(1)
}

func (l *Loop) Quantum() int {
	return l.quantum
}

// Blocks is the number of quanta rendered successfully.
func (l *Loop) Blocks() uint64 {
	return l.blocks.Load()
}

func (l *Loop) Failures() uint64 {
	return l.failures.Load()
}

// Peak is the absolute peak of output channel ch in the last rendered block.
func (l *Loop) Peak(ch int) float64 {
	return l.meter.Peak(ch)
}
