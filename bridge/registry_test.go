package bridge

import (
	"slices"
	"testing"

	"github.com/JeanRibes/pdbridge/engine"
	"github.com/JeanRibes/pdbridge/host"
	"github.com/JeanRibes/pdbridge/shared"
)

func TestBindTwice(t *testing.T) {
	b, lb, p := newTestBridge(t, Options{})

	var got []shared.Event
	b.OnReceive(func(msg shared.Event) { got = append(got, msg) })

	if !b.BindReceiver("r") || !b.BindReceiver("r") {
		t.Fatal("BindReceiver failed")
	}
	if names := b.Receivers(); !slices.Equal(names, []string{"r"}) {
		t.Fatalf("expected [r], got %v", names)
	}
	if !lb.Bound("r") {
		t.Fatal("engine should have the binding")
	}

	b.SendFloat("r", 3)
	tick(t, p)
	b.Poll()
	if len(got) != 1 {
		t.Fatalf("expected one delivery, got %d", len(got))
	}
	if got[0].Receiver != "r" || got[0].Type != shared.Float || got[0].Float != 3 {
		t.Errorf("unexpected message: %+v", got[0])
	}
}

func TestAddGuiReceiverTwice(t *testing.T) {
	b, _, _ := newTestBridge(t, Options{})

	b.AddGuiReceiver("slider1")
	first, ok := b.Connector("slider1")
	if !ok {
		t.Fatal("no connector")
	}
	b.AddGuiReceiver("slider1")
	second, _ := b.Connector("slider1")
	if first != second {
		t.Error("second bind created another connector")
	}
	if first.Receiver != "slider1" {
		t.Errorf("unexpected receiver %q", first.Receiver)
	}
}

func TestPromotePlainReceiver(t *testing.T) {
	b, _, p := newTestBridge(t, Options{})

	handled := 0
	b.OnReceive(func(shared.Event) { handled++ })

	b.BindReceiver("knob")
	if _, ok := b.Connector("knob"); ok {
		t.Fatal("plain receivers have no connector")
	}
	b.AddGuiReceiver("knob")
	c, ok := b.Connector("knob")
	if !ok {
		t.Fatal("receiver should have been converted")
	}
	if names := b.GuiReceivers(); !slices.Equal(names, []string{"knob"}) {
		t.Errorf("expected [knob], got %v", names)
	}

	b.SendFloat("knob", 1)
	tick(t, p)
	b.Poll()
	if handled != 0 {
		t.Error("gui receivers are polled, not forwarded")
	}
	if !c.Poll() || c.Float() != 1 {
		t.Error("connector should hold the value")
	}
}

func TestUnbindReceiver(t *testing.T) {
	b, lb, p := newTestBridge(t, Options{})

	handled := 0
	b.OnReceive(func(shared.Event) { handled++ })

	b.BindReceiver("a")
	b.AddGuiReceiver("b")
	b.UnbindReceiver()

	if len(b.Receivers()) != 0 {
		t.Errorf("expected no receivers, got %v", b.Receivers())
	}
	if lb.Bound("a") || lb.Bound("b") {
		t.Error("engine bindings should be revoked")
	}
	b.SendFloat("a", 1)
	tick(t, p)
	if b.Poll() != 0 || handled != 0 {
		t.Error("unbound receiver still delivered")
	}

	if !b.BindReceiver("a") {
		t.Error("rebinding after unbind should work")
	}
}

func TestUnbindOne(t *testing.T) {
	b, lb, _ := newTestBridge(t, Options{})

	b.BindReceiver("a")
	b.BindReceiver("b")
	if !b.Unbind("a") {
		t.Fatal("Unbind failed")
	}
	if b.Unbind("a") {
		t.Error("second Unbind should report false")
	}
	if names := b.Receivers(); !slices.Equal(names, []string{"b"}) {
		t.Errorf("expected [b], got %v", names)
	}
	if lb.Bound("a") || !lb.Bound("b") {
		t.Error("only a should be unbound")
	}
}

func TestBindBeforeInit(t *testing.T) {
	b := New(engine.NewLoopback(), host.NewPull(), Options{})
	if b.BindReceiver("a") || b.AddGuiReceiver("b") {
		t.Error("binding needs an initialized engine")
	}
	if b.BindReceiver("") {
		t.Error("empty names are rejected")
	}
}
