package bridge

import (
	"context"
	"slices"
	"time"

	"github.com/JeanRibes/pdbridge/shared"
)

// OnReceive sets the handler Poll calls for every event on a plain receiver.
// Inside the handler the list accessors read the event being handled.
func (b *Bridge) OnReceive(fn func(shared.Event)) {
	b.handler = fn
}

// Poll checks the Signal and, if the audio side published since the last
// poll, forwards the newest event of every plain receiver, in bind order.
// It returns the number of events forwarded. GUI receivers are left for
// their Connector to poll.
//
// Engine prints are logged first, whether or not anything was published.
func (b *Bridge) Poll() int {
	b.flushPrints()
	if _, ok := b.signal.Poll(); !ok {
		return 0
	}
	n := 0
	// the handler may bind or unbind
	for _, name := range slices.Clone(b.registry.order) {
		e, ok := b.registry.entries[name]
		if !ok || e.gui != nil {
			continue
		}
		if !e.box.acquire() {
			continue
		}
		n++
		if b.handler != nil {
			b.handler(e.box.message())
		}
	}
	return n
}

// Do queues fn to run on the goroutine executing Run. Use it to reach the
// bridge from other goroutines, MIDI callbacks for instance. It returns
// false, without waiting, once Run has returned or the bridge is closed;
// jobs still queued at that point are dropped.
func (b *Bridge) Do(fn func()) bool {
	select {
	case <-b.done:
		return false
	default:
	}
	select {
	case b.jobs <- fn:
		return true
	case <-b.done:
		return false
	}
}

func (b *Bridge) shutdown() {
	b.stop.Do(func() { close(b.done) })
}

// post hands an engine print to the control context. It runs on the audio
// context, so a print that does not fit is dropped.
func (b *Bridge) post(line string) {
	select {
	case b.prints <- line:
	default:
	}
}

func (b *Bridge) flushPrints() {
	for {
		select {
		case line := <-b.prints:
			b.logger.Info("print", "msg", line)
		default:
			return
		}
	}
}

// Run is the control loop: it polls every interval and runs queued jobs
// until ctx is done. Do stops accepting jobs when it returns.
func (b *Bridge) Run(ctx context.Context, interval time.Duration) {
	defer b.shutdown()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	b.logger.Debug("control loop start", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			b.logger.Debug("context Done")
			return
		case fn := <-b.jobs:
			fn()
		case <-ticker.C:
			b.Poll()
		}
	}
}
