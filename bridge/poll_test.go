package bridge

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/JeanRibes/pdbridge/engine"
	"github.com/JeanRibes/pdbridge/shared"
)

func TestPollOrder(t *testing.T) {
	b, _, p := newTestBridge(t, Options{})
	b.BindReceiver("first")
	b.BindReceiver("second")

	var got []shared.Event
	b.OnReceive(func(msg shared.Event) { got = append(got, msg) })

	if b.Poll() != 0 {
		t.Fatal("nothing published yet")
	}

	b.SendSymbol("second", "b")
	b.SendBang("first")
	b.SendFloat("second", 2)
	tick(t, p)

	if n := b.Poll(); n != 2 {
		t.Fatalf("expected 2 events, got %d", n)
	}
	if len(got) != 2 || got[0].Receiver != "first" || got[1].Receiver != "second" {
		t.Fatalf("expected bind order, got %+v", got)
	}
	if got[0].Type != shared.Bang {
		t.Errorf("expected bang, got %v", got[0].Type)
	}
	if got[1].Type != shared.Float || got[1].Float != 2 {
		t.Errorf("only the newest event of a receiver is kept, got %+v", got[1])
	}
	if b.Poll() != 0 {
		t.Error("events are forwarded once")
	}
}

func TestPollMessage(t *testing.T) {
	b, _, p := newTestBridge(t, Options{})
	b.BindReceiver("m")

	var got shared.Event
	var second string
	b.OnReceive(func(msg shared.Event) {
		got = msg
		second = b.ItemAsSymbol(msg.Receiver, 1)
	})

	b.SendMessage("m", "set", shared.FloatAtom(1), shared.SymbolAtom("x"))
	tick(t, p)
	b.Poll()
	if got.Type != shared.Message || got.Symbol != "set" || got.Size != 2 {
		t.Errorf("unexpected message %+v", got)
	}
	if second != "x" {
		t.Errorf("message arguments should be readable in the handler, got %q", second)
	}
}

func TestRun(t *testing.T) {
	b, _, p := newTestBridge(t, Options{})

	received := make(chan shared.Event, 1)
	b.OnReceive(func(msg shared.Event) { received <- msg })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx, time.Millisecond)
		close(done)
	}()

	bound := make(chan struct{})
	b.Do(func() {
		b.BindReceiver("r")
		b.SendFloat("r", 42)
		close(bound)
	})
	<-bound
	tick(t, p)

	select {
	case msg := <-received:
		if msg.Receiver != "r" || msg.Float != 42 {
			t.Errorf("unexpected message %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not forward the event")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestPollHandlerUnbinds(t *testing.T) {
	b, _, p := newTestBridge(t, Options{})
	b.BindReceiver("a")
	b.BindReceiver("b")
	b.BindReceiver("c")

	var got []string
	b.OnReceive(func(msg shared.Event) {
		got = append(got, msg.Receiver)
		if msg.Receiver == "a" {
			b.Unbind("a")
		}
	})

	b.SendBang("a")
	b.SendBang("b")
	b.SendBang("c")
	tick(t, p)
	if n := b.Poll(); n != 3 {
		t.Errorf("expected 3 events, got %d", n)
	}
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("expected [a b c], got %v", got)
	}
}

func TestDoAfterRun(t *testing.T) {
	b, _, _ := newTestBridge(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.Run(ctx, time.Millisecond)

	accepted := make(chan int)
	go func() {
		n := 0
		for i := 0; i < 100; i++ {
			if b.Do(func() {}) {
				n++
			}
		}
		accepted <- n
	}()
	select {
	case n := <-accepted:
		if n != 0 {
			t.Errorf("%d jobs accepted after Run returned", n)
		}
	case <-time.After(time.Second):
		t.Fatal("Do blocked after Run returned")
	}
}

func TestDoAfterClose(t *testing.T) {
	b, _, _ := newTestBridge(t, Options{})
	if !b.Do(func() {}) {
		t.Fatal("Do should queue while the bridge is up")
	}
	b.Close()
	for i := 0; i < QUEUE_SIZE+1; i++ {
		if b.Do(func() {}) {
			t.Fatal("Do accepted a job after Close")
		}
	}
}

func TestPrintLogged(t *testing.T) {
	var buf bytes.Buffer
	b, _, p := newTestBridge(t, Options{Logger: log.New(&buf)})

	b.SendFloat(engine.PRINT, 3)
	b.SendMessage(engine.PRINT, "set", shared.SymbolAtom("x"))
	tick(t, p)
	if n := b.Poll(); n != 0 {
		t.Errorf("prints are not receiver events, got %d", n)
	}
	out := buf.String()
	for _, want := range []string{"print: 3", "print: set x"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in the log, got %q", want, out)
		}
	}

	buf.Reset()
	b.Close()
	b.SendFloat(engine.PRINT, 4)
	b.Poll()
	if strings.Contains(buf.String(), "print: 4") {
		t.Error("printed after Close")
	}
}
