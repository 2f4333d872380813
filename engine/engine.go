// Package engine declares what the bridge needs from an audio-graph
// engine, and ships Loopback, a small in-process engine.
package engine

import (
	"errors"

	"github.com/JeanRibes/pdbridge/shared"
)

// Pd computes audio in ticks of 64 frames
const TICK = 64

var (
	ErrNotInitialized = errors.New("engine not initialized")
	ErrNoReceiver     = errors.New("empty receiver name")
	ErrAlreadyBound   = errors.New("receiver already bound")
	ErrNotBound       = errors.New("receiver not bound")
	ErrBadLength      = errors.New("negative message length")
	ErrNoMessage      = errors.New("no message started")
	ErrBufferSize     = errors.New("buffer size does not match ticks and channels")
	ErrQueueFull      = errors.New("engine message queue full")
	ErrMIDIRange      = errors.New("midi value out of range")
)

// Receiver is called by the engine, on the audio context, whenever a bound
// receiver fires. Atom slices belong to the engine and are only valid for
// the duration of the call.
type Receiver interface {
	ReceiveBang()
	ReceiveFloat(f float32)
	ReceiveSymbol(s string)
	ReceiveList(atoms []shared.Atom)
	ReceiveMessage(selector string, atoms []shared.Atom)
}

// Engine is the audio-graph engine, seen through a pull-one-block interface.
//
// Process runs on the audio context. Everything else is called from the
// control context.
type Engine interface {
	Init(sampleRate float64, inputs, outputs int) error
	// BlockSize is the number of frames computed per tick.
	BlockSize() int
	// Process computes ticks*BlockSize() frames. in and out are interleaved.
	Process(ticks int, in, out []float32) error

	Bind(name string, r Receiver) error
	Unbind(name string) error

	SendBang(receiver string) error
	SendFloat(receiver string, f float32) error
	SendSymbol(receiver string, s string) error

	StartMessage(length int) error
	AddFloat(f float32)
	AddSymbol(s string)
	FinishList(receiver string) error
	FinishMessage(receiver, selector string) error

	NoteOn(channel, pitch, velocity int) error
	ControlChange(channel, controller, value int) error

	// Print sets the hook for the engine's console output. The hook may
	// be called on the audio context and must not block.
	Print(fn func(string))
}
