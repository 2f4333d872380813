package bridge

import (
	"fmt"

	"github.com/JeanRibes/pdbridge/engine"
	"github.com/JeanRibes/pdbridge/shared"
)

// statuses returned by FinishMessage, as the engine reports them
const (
	StatusOK     = 0
	StatusFailed = -1
)

// outbound is the message between StartMessage and FinishMessage. Items are
// kept here and replayed into the engine on finish, so a rejected message
// never reaches it.
type outbound struct {
	receiver string
	count    int
	items    []shared.Atom
}

// StartMessage opens a message of count items for receiver. Only one
// message can be open at a time.
func (b *Bridge) StartMessage(receiver string, count int) bool {
	if err := b.startMessage(receiver, count); err != nil {
		b.logger.Warn("start message", "receiver", receiver, "count", count, "err", err)
		return false
	}
	return true
}

func (b *Bridge) startMessage(receiver string, count int) error {
	if b.pending != nil {
		return ErrMessagePending
	}
	if err := b.ready(); err != nil {
		return err
	}
	if count < 0 {
		return engine.ErrBadLength
	}
	b.pending = &outbound{receiver: receiver, count: count, items: make([]shared.Atom, 0, max(count, 0))}
	return nil
}

// AddFloat appends to the open message. Without an open message for
// receiver, or once the declared count is reached, it does nothing.
func (b *Bridge) AddFloat(receiver string, f float32) {
	if err := b.add(receiver, shared.FloatAtom(f)); err != nil {
		b.logger.Debug("add float", "receiver", receiver, "err", err)
	}
}

func (b *Bridge) AddSymbol(receiver string, s string) {
	if err := b.add(receiver, shared.SymbolAtom(s)); err != nil {
		b.logger.Debug("add symbol", "receiver", receiver, "err", err)
	}
}

func (b *Bridge) add(receiver string, a shared.Atom) error {
	p := b.pending
	if p == nil {
		return ErrNoMessage
	}
	if p.receiver != receiver {
		return ErrReceiverMismatch
	}
	if len(p.items) >= p.count {
		return fmt.Errorf("%w: %d declared", ErrCountMismatch, p.count)
	}
	p.items = append(p.items, a)
	return nil
}

// FinishMessage dispatches the open message as a list. A message with fewer
// items than declared, or opened for another receiver, is dropped without
// reaching the engine. Either way the message is closed.
func (b *Bridge) FinishMessage(receiver string) int {
	if err := b.finish(receiver, ""); err != nil {
		b.logger.Warn("finish message", "receiver", receiver, "err", err)
		return StatusFailed
	}
	return StatusOK
}

func (b *Bridge) finish(receiver, selector string) error {
	p := b.pending
	if p == nil {
		return ErrNoMessage
	}
	b.pending = nil
	if p.receiver != receiver {
		return fmt.Errorf("%w: started for %q", ErrReceiverMismatch, p.receiver)
	}
	if len(p.items) != p.count {
		return fmt.Errorf("%w: %d declared, %d added", ErrCountMismatch, p.count, len(p.items))
	}
	if err := b.ready(); err != nil {
		return err
	}
	if err := b.engine.StartMessage(p.count); err != nil {
		return err
	}
	for _, a := range p.items {
		if a.Type == shared.AtomSymbol {
			b.engine.AddSymbol(a.Symbol)
		} else {
			b.engine.AddFloat(a.Float)
		}
	}
	if selector != "" {
		return b.engine.FinishMessage(receiver, selector)
	}
	return b.engine.FinishList(receiver)
}

// Pending reports whether a message is open.
func (b *Bridge) Pending() bool {
	return b.pending != nil
}

// SendList sends atoms as one list. An empty list is a bang.
func (b *Bridge) SendList(receiver string, atoms ...shared.Atom) bool {
	if len(atoms) == 0 {
		return b.SendBang(receiver)
	}
	if !b.build(receiver, atoms) {
		return false
	}
	return b.FinishMessage(receiver) == StatusOK
}

// SendMessage sends a message with a selector, like "set 1 2" in a Pd
// message box.
func (b *Bridge) SendMessage(receiver, selector string, atoms ...shared.Atom) bool {
	if selector == "" {
		return b.SendList(receiver, atoms...)
	}
	if !b.build(receiver, atoms) {
		return false
	}
	if err := b.finish(receiver, selector); err != nil {
		b.logger.Warn("send message", "receiver", receiver, "selector", selector, "err", err)
		return false
	}
	return true
}

func (b *Bridge) build(receiver string, atoms []shared.Atom) bool {
	if !b.StartMessage(receiver, len(atoms)) {
		return false
	}
	for _, a := range atoms {
		if err := b.add(receiver, a); err != nil {
			b.pending = nil
			b.logger.Warn("build message", "receiver", receiver, "err", err)
			return false
		}
	}
	return true
}
