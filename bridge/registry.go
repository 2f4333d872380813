package bridge

import (
	"errors"
	"fmt"
	"slices"
)

type entry struct {
	box *mailbox
	gui *Connector // nil for plain receivers
}

// registry lives on the control context only; the audio side reaches a
// mailbox through the engine binding, never through the map.
type registry struct {
	order   []string
	entries map[string]*entry
}

func newRegistry() registry {
	return registry{entries: map[string]*entry{}}
}

// BindReceiver subscribes to a receiver whose events are forwarded to the
// OnReceive handler by Poll. Binding a name twice is a no-op.
func (b *Bridge) BindReceiver(name string) bool {
	if _, err := b.bind(name); err != nil {
		b.logger.Warn("bind", "receiver", name, "err", err)
		return false
	}
	return true
}

// AddGuiReceiver binds a receiver whose values are buffered in a Connector
// for the UI to poll. A receiver already bound plainly is converted.
func (b *Bridge) AddGuiReceiver(name string) bool {
	e, err := b.bind(name)
	if err != nil {
		b.logger.Warn("bind gui", "receiver", name, "err", err)
		return false
	}
	if e.gui == nil {
		e.gui = &Connector{Receiver: name, box: e.box}
		b.logger.Debug("gui receiver", "receiver", name)
	}
	return true
}

func (b *Bridge) bind(name string) (*entry, error) {
	if name == "" {
		return nil, ErrNoReceiver
	}
	if err := b.ready(); err != nil {
		return nil, err
	}
	if e, ok := b.registry.entries[name]; ok {
		return e, nil
	}
	box := newMailbox(name, b.signal)
	if err := b.engine.Bind(name, box); err != nil {
		return nil, err
	}
	e := &entry{box: box}
	b.registry.entries[name] = e
	b.registry.order = append(b.registry.order, name)
	b.logger.Debug("bound", "receiver", name)
	return e, nil
}

// UnbindReceiver revokes every binding, plain and GUI.
func (b *Bridge) UnbindReceiver() {
	var errs error
	for _, name := range b.registry.order {
		if err := b.engine.Unbind(name); err != nil {
			errs = errors.Join(errs, fmt.Errorf("unbind %q: %w", name, err))
		}
	}
	b.registry = newRegistry()
	if errs != nil {
		b.logger.Warn("unbind", "err", errs)
	}
}

// Unbind revokes a single binding.
func (b *Bridge) Unbind(name string) bool {
	if _, ok := b.registry.entries[name]; !ok {
		return false
	}
	delete(b.registry.entries, name)
	b.registry.order = slices.DeleteFunc(b.registry.order, func(s string) bool { return s == name })
	if err := b.engine.Unbind(name); err != nil {
		b.logger.Warn("unbind", "receiver", name, "err", err)
		return false
	}
	return true
}

func (b *Bridge) Connector(name string) (*Connector, bool) {
	e, ok := b.registry.entries[name]
	if !ok || e.gui == nil {
		return nil, false
	}
	return e.gui, true
}

// Receivers returns every bound receiver, in bind order.
func (b *Bridge) Receivers() []string {
	return slices.Clone(b.registry.order)
}

func (b *Bridge) GuiReceivers() []string {
	var names []string
	for _, name := range b.registry.order {
		if b.registry.entries[name].gui != nil {
			names = append(names, name)
		}
	}
	return names
}
