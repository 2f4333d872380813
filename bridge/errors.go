package bridge

import "errors"

var (
	ErrMessagePending     = errors.New("a message is already being built")
	ErrNoMessage          = errors.New("no message being built")
	ErrReceiverMismatch   = errors.New("receiver does not match the message being built")
	ErrCountMismatch      = errors.New("item count does not match the declared length")
	ErrNotInitialized     = errors.New("bridge not initialized")
	ErrAlreadyInitialized = errors.New("bridge already initialized")
	ErrBadState           = errors.New("operation not allowed in this state")
	ErrNoReceiver         = errors.New("empty receiver name")
	ErrMIDIRange          = errors.New("midi value out of range")
	ErrUnsupportedMIDI    = errors.New("unsupported midi message")
	ErrStopped            = errors.New("control loop stopped")
)
