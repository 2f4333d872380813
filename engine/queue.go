package engine

import (
	"sync/atomic"

	"github.com/JeanRibes/pdbridge/shared"
)

const QUEUE_SIZE = 256

type eventKind uint8

const (
	evSend eventKind = iota
	evNote
	evControl
)

// event travels from the control context to the audio context, where it is
// applied at the start of the next tick.
type event struct {
	kind     eventKind
	receiver string
	typ      shared.Kind
	float    float32
	symbol   string
	atoms    []shared.Atom
	midi     [3]int
}

// queue is a single-producer single-consumer ring. The control context
// pushes, the audio context pops; neither side ever waits.
type queue struct {
	buf  [QUEUE_SIZE]event
	head atomic.Uint32 // next slot to pop, written by the consumer
	tail atomic.Uint32 // next slot to push, written by the producer
}

func (q *queue) push(ev event) bool {
	t := q.tail.Load()
	if t-q.head.Load() == QUEUE_SIZE {
		return false
	}
	q.buf[t%QUEUE_SIZE] = ev
	q.tail.Store(t + 1)
	return true
}

func (q *queue) pop(ev *event) bool {
	h := q.head.Load()
	if h == q.tail.Load() {
		return false
	}
	slot := &q.buf[h%QUEUE_SIZE]
	*ev = *slot
	*slot = event{}
	q.head.Store(h + 1)
	return true
}

func (q *queue) len() int {
	return int(q.tail.Load() - q.head.Load())
}
