package host

import (
	"errors"
	"sync/atomic"
)

// Pull is a host whose runtime calls Render itself, once per quantum: the
// JavaScript audio worklet under wasm, or a test.
//
// Like a Web Audio worklet, a block that fails halts the chain until the
// host is resumed.
type Pull struct {
	ctx       *Context
	cb        atomic.Pointer[Callback]
	suspended atomic.Bool
	halted    atomic.Bool
	closed    atomic.Bool
	failures  atomic.Uint64
}

func NewPull() *Pull {
	return &Pull{}
}

func (p *Pull) CreateContext(cfg Config) (*Context, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	if cfg.SampleRate <= 0 || cfg.Quantum <= 0 || cfg.Outputs < 0 || cfg.Inputs < 0 {
		return nil, errors.New("invalid render context config")
	}
	p.ctx = NewContext(cfg)
	return p.ctx, nil
}

func (p *Pull) Register(ctx *Context, cb Callback) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if ctx == nil || ctx != p.ctx {
		return ErrNoContext
	}
	if !p.cb.CompareAndSwap(nil, &cb) {
		return ErrRegistered
	}
	return nil
}

func (p *Pull) Suspend() error {
	if p.closed.Load() {
		return ErrClosed
	}
	p.suspended.Store(true)
	return nil
}

func (p *Pull) Resume() error {
	if p.closed.Load() {
		return ErrClosed
	}
	p.halted.Store(false)
	p.suspended.Store(false)
	return nil
}

func (p *Pull) Close() error {
	p.closed.Store(true)
	p.cb.Store(nil)
	return nil
}

// Render runs the registered callback for one quantum. While suspended,
// unregistered or halted it writes silence; it returns false only when
// the chain is halted or nothing is registered.
func (p *Pull) Render(in, out [][]float32) bool {
	cb := p.cb.Load()
	if cb == nil || p.halted.Load() {
		silence(out)
		return false
	}
	if p.suspended.Load() {
		silence(out)
		return true
	}
	if !(*cb)(in, out) {
		p.failures.Add(1)
		p.halted.Store(true)
		return false
	}
	return true
}

func (p *Pull) Context() *Context {
	return p.ctx
}

func (p *Pull) Suspended() bool {
	return p.suspended.Load()
}

func (p *Pull) Halted() bool {
	return p.halted.Load()
}

func (p *Pull) Failures() uint64 {
	return p.failures.Load()
}
