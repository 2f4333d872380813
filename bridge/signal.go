package bridge

import "sync/atomic"

// Token is the state shared between the audio side and the control side.
type Token struct {
	Vec  uint32 // bumped on every publish
	Wait bool   // true: nothing new for the control side to consume
}

// Signal hands "new data is ready" from the audio context to the control
// context without either side ever waiting on the other.
//
// Both fields live in one word, vec<<1 | wait. Only the audio side changes
// vec, only the control side sets wait. Publish clears wait in the same
// store that carries the new vec, so a poller that sees wait=false also
// sees every write the audio side made before publishing.
type Signal struct {
	word atomic.Uint64
}

func NewSignal() *Signal {
	s := &Signal{}
	s.word.Store(1)
	return s
}

// Publish is called from the audio context after the payload is written.
// Two publishes before a poll collapse into one.
func (s *Signal) Publish() {
	old := s.word.Load()
	s.word.Store(((old >> 1) + 1) << 1)
}

// Poll is called from the control context. It reports false while wait is
// set and never blocks: the caller retries on its next scheduling step.
// On success wait is re-armed.
func (s *Signal) Poll() (Token, bool) {
	old := s.word.Load()
	if old&1 == 1 {
		return Token{Vec: uint32(old >> 1), Wait: true}, false
	}
	if !s.word.CompareAndSwap(old, old|1) {
		// a newer publish landed, leave it for the next poll
		return Token{Vec: uint32(old >> 1)}, false
	}
	return Token{Vec: uint32(old >> 1)}, true
}

func (s *Signal) Peek() Token {
	w := s.word.Load()
	return Token{Vec: uint32(w >> 1), Wait: w&1 == 1}
}
