package shared

import "fmt"

// Kind is the payload kind of an event fired on a receiver.
type Kind int

const (
	Bang Kind = iota
	Float
	Symbol
	List
	Message
)

func (k Kind) String() string {
	switch k {
	case Bang:
		return "bang"
	case Float:
		return "float"
	case Symbol:
		return "symbol"
	case List:
		return "list"
	case Message:
		return "message"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type AtomType uint8

const (
	AtomFloat AtomType = iota
	AtomSymbol
)

// item type tags handed to scripting hosts
const (
	TagFloat  = "float"
	TagSymbol = "symbol"
)

func (t AtomType) String() string {
	if t == AtomSymbol {
		return TagSymbol
	}
	return TagFloat
}

// Atom is one item of a list: a number or a text token, selected by Type.
type Atom struct {
	Type   AtomType
	Float  float32
	Symbol string
}

func FloatAtom(f float32) Atom {
	return Atom{Type: AtomFloat, Float: f}
}

func SymbolAtom(s string) Atom {
	return Atom{Type: AtomSymbol, Symbol: s}
}

func (a Atom) String() string {
	if a.Type == AtomSymbol {
		return a.Symbol
	}
	return fmt.Sprintf("%g", a.Float)
}

// Event is what the control side hands to receive handlers once an
// event has crossed over from the audio side. List payloads are not
// carried here: Size tells how many items the list decoder can read.
type Event struct {
	Receiver string
	Type     Kind
	Float    float32
	Symbol   string // symbol payload, or selector when Type == Message
	Size     int
}

// State of the audio side, in lifecycle order.
type State int32

const (
	Uninitialized State = iota
	AudioGraphReady
	WorkletReady
	Running
	Suspended
	Terminated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case AudioGraphReady:
		return "audio graph ready"
	case WorkletReady:
		return "worklet ready"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// render quantum of Web Audio worklets, also the default for desktop hosts
const BLOCK_SIZE = 128

// receivers whose name starts with this prefix are polled, not forwarded
const GUI_PREFIX = "ui_"
