package bridge

import (
	"sync/atomic"

	"github.com/JeanRibes/pdbridge/shared"
)

// list slots are allocated up front so the audio side only copies
const LIST_PREALLOCATION = 64

const fresh = 1 << 2

type value struct {
	kind   shared.Kind
	float  float32
	symbol string
	list   []shared.Atom
}

// view is the control side's copy of the latest values. Float, symbol and
// list are kept separately, so a float event does not erase the last list.
type view struct {
	kind     shared.Kind
	float    float32
	symbol   string
	selector string
	list     []shared.Atom
}

func (v *view) update(s *value) {
	v.kind = s.kind
	switch s.kind {
	case shared.Float:
		v.float = s.float
	case shared.Symbol:
		v.symbol = s.symbol
	case shared.List:
		v.list = append(v.list[:0], s.list...)
	case shared.Message:
		v.selector = s.symbol
		v.list = append(v.list[:0], s.list...)
	}
}

// mailbox is the per-receiver handoff between the engine callback (writer,
// audio context) and the control context (reader). It is a triple buffer:
// the writer fills the back slot and swaps it into the middle, the reader
// swaps the middle into the front. An update nobody read yet is simply
// replaced by the next one.
type mailbox struct {
	name   string
	signal *Signal

	slots        [3]value
	back         int           // writer only
	middle       atomic.Uint32 // slot index | fresh
	front        int           // reader only
	beingUpdated atomic.Bool

	view view // reader only
}

func newMailbox(name string, signal *Signal) *mailbox {
	m := &mailbox{name: name, signal: signal, back: 0, front: 2}
	m.middle.Store(1)
	for i := range m.slots {
		m.slots[i].list = make([]shared.Atom, 0, LIST_PREALLOCATION)
	}
	m.view.list = make([]shared.Atom, 0, LIST_PREALLOCATION)
	return m
}

func (m *mailbox) begin() *value {
	m.beingUpdated.Store(true)
	return &m.slots[m.back]
}

func (m *mailbox) commit() {
	m.beingUpdated.Store(false)
	prev := m.middle.Swap(uint32(m.back) | fresh)
	m.back = int(prev &^ fresh)
	if m.signal != nil {
		m.signal.Publish()
	}
}

func (m *mailbox) ReceiveBang() {
	v := m.begin()
	v.kind = shared.Bang
	m.commit()
}

func (m *mailbox) ReceiveFloat(f float32) {
	v := m.begin()
	v.kind = shared.Float
	v.float = f
	m.commit()
}

func (m *mailbox) ReceiveSymbol(s string) {
	v := m.begin()
	v.kind = shared.Symbol
	v.symbol = s
	m.commit()
}

func (m *mailbox) ReceiveList(atoms []shared.Atom) {
	v := m.begin()
	v.kind = shared.List
	v.list = append(v.list[:0], atoms...)
	m.commit()
}

func (m *mailbox) ReceiveMessage(selector string, atoms []shared.Atom) {
	v := m.begin()
	v.kind = shared.Message
	v.symbol = selector
	v.list = append(v.list[:0], atoms...)
	m.commit()
}

// acquire moves the newest update, if any, into the view.
func (m *mailbox) acquire() bool {
	if m.middle.Load()&fresh == 0 {
		return false
	}
	prev := m.middle.Swap(uint32(m.front))
	m.front = int(prev &^ fresh)
	m.view.update(&m.slots[m.front])
	return true
}

func (m *mailbox) message() shared.Event {
	msg := shared.Event{Receiver: m.name, Type: m.view.kind}
	switch m.view.kind {
	case shared.Float:
		msg.Float = m.view.float
	case shared.Symbol:
		msg.Symbol = m.view.symbol
	case shared.List:
		msg.Size = len(m.view.list)
	case shared.Message:
		msg.Symbol = m.view.selector
		msg.Size = len(m.view.list)
	}
	return msg
}

// Connector buffers the values of a GUI receiver until the UI polls them.
// Poll, Clear and the getters belong to the control context.
type Connector struct {
	Receiver string
	Sender   string

	box     *mailbox
	updated bool
}

// Poll pulls the newest value across, if there is one, and reports whether
// an update is waiting to be consumed.
func (c *Connector) Poll() bool {
	if c.box.acquire() {
		c.updated = true
	}
	return c.updated
}

func (c *Connector) Updated() bool {
	return c.updated
}

// Clear marks the current value as consumed.
func (c *Connector) Clear() {
	c.updated = false
}

// BeingUpdated is true while the audio side is writing an event.
func (c *Connector) BeingUpdated() bool {
	return c.box.beingUpdated.Load()
}

func (c *Connector) Type() shared.Kind {
	return c.box.view.kind
}

func (c *Connector) Float() float32 {
	return c.box.view.float
}

func (c *Connector) Symbol() string {
	return c.box.view.symbol
}

func (c *Connector) Selector() string {
	return c.box.view.selector
}

// List returns a copy of the last list (or message arguments).
func (c *Connector) List() []shared.Atom {
	return append([]shared.Atom(nil), c.box.view.list...)
}

func (c *Connector) Message() shared.Event {
	return c.box.message()
}
