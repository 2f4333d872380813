package bridge

import (
	"testing"

	"github.com/JeanRibes/pdbridge/shared"
)

func TestListSizeWithoutList(t *testing.T) {
	b, _, _ := newTestBridge(t, Options{})

	if n := b.ReceivedListSize("nobody"); n != 0 {
		t.Errorf("unknown receiver: expected 0, got %d", n)
	}
	b.BindReceiver("l")
	if n := b.ReceivedListSize("l"); n != 0 {
		t.Errorf("no list yet: expected 0, got %d", n)
	}
	if typ := b.ItemType("l", 0); typ != "" {
		t.Errorf("no list yet: expected no type, got %q", typ)
	}
}

func TestDecodeReceivedList(t *testing.T) {
	b, _, p := newTestBridge(t, Options{})
	b.BindReceiver("l")

	var sizes []int
	b.OnReceive(func(msg shared.Event) {
		if msg.Type == shared.List {
			sizes = append(sizes, b.ReceivedListSize(msg.Receiver))
		}
	})

	b.SendList("l", shared.FloatAtom(1.5), shared.SymbolAtom("two"), shared.FloatAtom(-3))
	tick(t, p)
	if n := b.Poll(); n != 1 {
		t.Fatalf("expected 1 event, got %d", n)
	}
	if len(sizes) != 1 || sizes[0] != 3 {
		t.Fatalf("handler should see a 3 item list, saw %v", sizes)
	}

	for i := 0; i < 2; i++ {
		if n := b.ReceivedListSize("l"); n != 3 {
			t.Fatalf("expected 3 items, got %d", n)
		}
	}

	tests := []struct {
		index  int
		typ    string
		float  float32
		symbol string
	}{
		{0, shared.TagFloat, 1.5, ""},
		{1, shared.TagSymbol, 0, "two"},
		{2, shared.TagFloat, -3, ""},
		{3, "", 0, ""},
		{-1, "", 0, ""},
	}
	for _, tt := range tests {
		if got := b.ItemType("l", tt.index); got != tt.typ {
			t.Errorf("ItemType(%d): expected %q, got %q", tt.index, tt.typ, got)
		}
		if got := b.ItemAsFloat("l", tt.index); got != tt.float {
			t.Errorf("ItemAsFloat(%d): expected %v, got %v", tt.index, tt.float, got)
		}
		if got := b.ItemAsSymbol("l", tt.index); got != tt.symbol {
			t.Errorf("ItemAsSymbol(%d): expected %q, got %q", tt.index, tt.symbol, got)
		}
	}
}

func TestListKeptUntilNextList(t *testing.T) {
	b, _, p := newTestBridge(t, Options{})
	b.BindReceiver("l")

	b.SendList("l", shared.FloatAtom(1), shared.FloatAtom(2))
	tick(t, p)
	b.Poll()

	b.SendFloat("l", 9)
	tick(t, p)
	b.Poll()
	if n := b.ReceivedListSize("l"); n != 2 {
		t.Errorf("a float should not erase the list, got size %d", n)
	}

	b.SendList("l", shared.SymbolAtom("a"))
	tick(t, p)
	b.Poll()
	if n := b.ReceivedListSize("l"); n != 1 {
		t.Errorf("expected the new list, got size %d", n)
	}
	if s := b.ItemAsSymbol("l", 0); s != "a" {
		t.Errorf("expected a, got %q", s)
	}
}

func TestDecodeGuiReceiverList(t *testing.T) {
	b, _, p := newTestBridge(t, Options{})
	b.AddGuiReceiver("ui_xy")

	b.SendList("ui_xy", shared.FloatAtom(0.1), shared.FloatAtom(0.9))
	tick(t, p)
	if n := b.ReceivedListSize("ui_xy"); n != 0 {
		t.Errorf("list is not visible before the connector polls, got %d", n)
	}

	c, _ := b.Connector("ui_xy")
	if !c.Poll() {
		t.Fatal("expected an update")
	}
	if n := b.ReceivedListSize("ui_xy"); n != 2 {
		t.Fatalf("expected 2 items, got %d", n)
	}
	if f := b.ItemAsFloat("ui_xy", 1); f != 0.9 {
		t.Errorf("expected 0.9, got %v", f)
	}
}
