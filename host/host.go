// Package host abstracts the runtime that drives the render callback: a Web
// Audio worklet, a PortAudio stream, or a test.
package host

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNoContext  = errors.New("no render context")
	ErrRegistered = errors.New("render callback already registered")
	ErrClosed     = errors.New("host closed")
)

// Callback renders one quantum. Channels are planar: in[ch][frame].
// Returning false reports a failed block; the host may stop calling.
type Callback func(in, out [][]float32) bool

type Config struct {
	SampleRate float64
	Quantum    int // frames per callback
	Inputs     int
	Outputs    int
	StackSize  int // bytes reserved for the render context, if the host has to
}

// Context is the render context created by a host.
type Context struct {
	ID uuid.UUID
	Config
}

// NewContext gives cfg a fresh context ID. Hosts call it from CreateContext.
func NewContext(cfg Config) *Context {
	return &Context{ID: uuid.New(), Config: cfg}
}

type Host interface {
	CreateContext(cfg Config) (*Context, error)
	Register(ctx *Context, cb Callback) error
	Suspend() error
	Resume() error
	Close() error
}

func silence(out [][]float32) {
	for _, ch := range out {
		clear(ch)
	}
}
