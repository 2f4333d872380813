// Package bridge connects an audio-graph engine running on the audio
// context with a control context (a scripting host, a UI loop, a CLI).
//
// The audio context only ever runs the render callback and the receiver
// callbacks the engine fires from it; those write into per-receiver
// mailboxes and publish a Signal, all without locks. Every exported method
// of Bridge belongs to the control context: call them from a single
// goroutine, typically the one running Run, or hand work to it with Do.
package bridge

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"

	"github.com/JeanRibes/pdbridge/engine"
	"github.com/JeanRibes/pdbridge/host"
	"github.com/JeanRibes/pdbridge/render"
	"github.com/JeanRibes/pdbridge/shared"
)

const (
	DEFAULT_SAMPLE_RATE = 48000
	// jobs waiting for the control loop, and engine prints waiting for Poll
	QUEUE_SIZE = 64
	// stack reserved for the render context, as for the wasm audio worklet
	DEFAULT_STACK_SIZE = 1024 * 1024
)

type Options struct {
	SampleRate float64
	Quantum    int
	Inputs     int
	Outputs    int
	StackSize  int

	// bound during Init; names starting with shared.GUI_PREFIX get a Connector
	Receivers    []string
	GuiReceivers []string

	// Externals registers engine extensions, once the audio graph is up.
	Externals func(engine.Engine) error

	// nil discards all logging
	Logger *log.Logger
}

type Bridge struct {
	engine engine.Engine
	host   host.Host
	opts   Options
	logger *log.Logger

	state  atomic.Int32
	signal *Signal
	ctx    *host.Context
	loop   *render.Loop

	registry registry
	pending  *outbound
	handler  func(shared.Event)
	jobs     chan func()
	done     chan struct{}
	stop     sync.Once
	prints   chan string
}

func New(e engine.Engine, h host.Host, opts Options) *Bridge {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DEFAULT_SAMPLE_RATE
	}
	if opts.Quantum <= 0 {
		opts.Quantum = shared.BLOCK_SIZE
	}
	if opts.StackSize <= 0 {
		opts.StackSize = DEFAULT_STACK_SIZE
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Bridge{
		engine:   e,
		host:     h,
		opts:     opts,
		logger:   logger,
		signal:   NewSignal(),
		registry: newRegistry(),
		jobs:     make(chan func(), QUEUE_SIZE),
		done:     make(chan struct{}),
		prints:   make(chan string, QUEUE_SIZE),
	}
}

func (b *Bridge) State() shared.State {
	return shared.State(b.state.Load())
}

func (b *Bridge) setState(s shared.State) {
	old := shared.State(b.state.Swap(int32(s)))
	if old != s {
		b.logger.Debug("state", "from", old, "to", s)
	}
}

// ready reports whether the engine can take messages.
func (b *Bridge) ready() error {
	switch b.State() {
	case shared.Uninitialized, shared.Terminated:
		return ErrNotInitialized
	}
	return nil
}

// Signal exposes the token the audio side publishes on every receiver event.
func (b *Bridge) Signal() *Signal {
	return b.signal
}

// Loop is nil until Init succeeded.
func (b *Bridge) Loop() *render.Loop {
	return b.loop
}

func (b *Bridge) SendBang(receiver string) bool {
	return b.check("send bang", receiver, func() error {
		return b.engine.SendBang(receiver)
	})
}

func (b *Bridge) SendFloat(receiver string, f float32) bool {
	return b.check("send float", receiver, func() error {
		return b.engine.SendFloat(receiver, f)
	})
}

func (b *Bridge) SendSymbol(receiver string, s string) bool {
	return b.check("send symbol", receiver, func() error {
		return b.engine.SendSymbol(receiver, s)
	})
}

func (b *Bridge) check(op, receiver string, send func() error) bool {
	err := b.ready()
	if err == nil && receiver == "" {
		err = ErrNoReceiver
	}
	if err == nil {
		err = send()
	}
	if err != nil {
		b.logger.Warn(op, "receiver", receiver, "err", err)
		return false
	}
	return true
}

// NoteOn sends a note to the engine; velocity 0 releases it.
func (b *Bridge) NoteOn(channel, pitch, velocity int) bool {
	if channel < 0 || channel > 15 || pitch < 0 || pitch > 127 || velocity < 0 || velocity > 127 {
		b.logger.Warn("note on", "channel", channel, "pitch", pitch, "velocity", velocity, "err", ErrMIDIRange)
		return false
	}
	return b.SendMIDI(midi.NoteOn(uint8(channel), uint8(pitch), uint8(velocity)))
}

// SendMIDI forwards note on, note off and control change messages.
func (b *Bridge) SendMIDI(msg midi.Message) bool {
	var ch, key, vel uint8
	err := b.ready()
	if err == nil {
		switch {
		case msg.GetNoteOn(&ch, &key, &vel):
			err = b.engine.NoteOn(int(ch), int(key), int(vel))
		case msg.GetNoteOff(&ch, &key, &vel):
			err = b.engine.NoteOn(int(ch), int(key), 0)
		case msg.GetControlChange(&ch, &key, &vel):
			err = b.engine.ControlChange(int(ch), int(key), int(vel))
		default:
			err = ErrUnsupportedMIDI
		}
	}
	if err != nil {
		b.logger.Warn("midi", "msg", msg.String(), "err", err)
		return false
	}
	return true
}
