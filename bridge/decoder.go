package bridge

import "github.com/JeanRibes/pdbridge/shared"

// The list accessors read the control side copy of the last list received
// on a receiver, as made visible by Poll (plain receivers) or
// Connector.Poll (GUI receivers). They never fail: an unknown receiver, a
// bad index or the wrong interpretation yields the zero value.

func (b *Bridge) receivedList(receiver string) []shared.Atom {
	e, ok := b.registry.entries[receiver]
	if !ok {
		return nil
	}
	return e.box.view.list
}

func (b *Bridge) item(receiver string, i int) (shared.Atom, bool) {
	list := b.receivedList(receiver)
	if i < 0 || i >= len(list) {
		return shared.Atom{}, false
	}
	return list[i], true
}

func (b *Bridge) ReceivedListSize(receiver string) int {
	return len(b.receivedList(receiver))
}

// ItemType returns shared.TagFloat or shared.TagSymbol, or "" when i is out
// of range.
func (b *Bridge) ItemType(receiver string, i int) string {
	a, ok := b.item(receiver, i)
	if !ok {
		return ""
	}
	return a.Type.String()
}

func (b *Bridge) ItemAsFloat(receiver string, i int) float32 {
	a, ok := b.item(receiver, i)
	if !ok || a.Type != shared.AtomFloat {
		return 0
	}
	return a.Float
}

func (b *Bridge) ItemAsSymbol(receiver string, i int) string {
	a, ok := b.item(receiver, i)
	if !ok || a.Type != shared.AtomSymbol {
		return ""
	}
	return a.Symbol
}
