package engine

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/JeanRibes/pdbridge/shared"
)

const MAX_VOICES = 16

// pseudo receivers under which MIDI input is recorded, named after Pd's
// notein and ctlin objects
const (
	NOTEIN = "#notein"
	CTLIN  = "#ctlin"
)

// PRINT is the receiver standing in for a [print] object: whatever is sent
// to it goes to the print hook.
const PRINT = "print"

// Sent is one message accepted by the Loopback, as seen by the control side.
type Sent struct {
	Receiver string
	Type     shared.Kind
	Float    float32
	Symbol   string // symbol payload, or selector of a message
	Atoms    []shared.Atom
}

type voice struct {
	pitch  int
	phase  float64
	step   float64
	gain   float64
	age    int
	decay  int
	active bool
}

// Loopback is an engine without a patch. Whatever is sent to a name is
// delivered to the receiver bound to that name, at the start of the next
// tick and on the audio context, like [send]/[receive] pairs in Pd. Inputs
// are passed through to outputs, and every note-on plays a decaying sine.
type Loopback struct {
	sampleRate  float64
	inputs      int
	outputs     int
	initialized atomic.Bool

	// copy-on-write so the audio context reads it without locking
	bindings atomic.Pointer[map[string]Receiver]

	events queue

	// message under construction, control context only
	building bool
	maxlen   int
	pending  []shared.Atom

	// audio context only
	voices [MAX_VOICES]voice
	next   int

	print atomic.Pointer[func(string)]

	// ring of the last history accepted messages
	mu      sync.Mutex
	history int
	sent    []Sent
	head    int
}

type Option func(*Loopback)

// WithHistory keeps the last n accepted messages for Sent. Without it
// nothing is kept.
func WithHistory(n int) Option {
	return func(l *Loopback) {
		l.history = max(n, 0)
	}
}

func NewLoopback(opts ...Option) *Loopback {
	l := &Loopback{}
	for _, opt := range opts {
		opt(l)
	}
	empty := map[string]Receiver{}
	l.bindings.Store(&empty)
	return l
}

func (l *Loopback) Init(sampleRate float64, inputs, outputs int) error {
	if sampleRate <= 0 || inputs < 0 || outputs < 0 {
		return ErrBufferSize
	}
	l.sampleRate = sampleRate
	l.inputs = inputs
	l.outputs = outputs
	l.initialized.Store(true)
	return nil
}

func (l *Loopback) BlockSize() int {
	return TICK
}

func (l *Loopback) Process(ticks int, in, out []float32) error {
	if !l.initialized.Load() {
		return ErrNotInitialized
	}
	frames := ticks * TICK
	if ticks <= 0 || len(in) != frames*l.inputs || len(out) != frames*l.outputs {
		return ErrBufferSize
	}

	var ev event
	for l.events.pop(&ev) {
		l.apply(&ev)
	}

	for i := 0; i < frames; i++ {
		s := float32(l.nextSample())
		for ch := 0; ch < l.outputs; ch++ {
			x := s
			if l.inputs > 0 {
				x += in[i*l.inputs+ch%l.inputs]
			}
			out[i*l.outputs+ch] = x
		}
	}
	return nil
}

func (l *Loopback) apply(ev *event) {
	switch ev.kind {
	case evNote:
		l.note(ev.midi[1], ev.midi[2])
		return
	case evControl:
		return
	}
	if ev.receiver == PRINT {
		if fn := l.print.Load(); fn != nil {
			(*fn)(ev.String())
		}
	}
	r, ok := (*l.bindings.Load())[ev.receiver]
	if !ok {
		return
	}
	switch ev.typ {
	case shared.Bang:
		r.ReceiveBang()
	case shared.Float:
		r.ReceiveFloat(ev.float)
	case shared.Symbol:
		r.ReceiveSymbol(ev.symbol)
	case shared.List:
		if len(ev.atoms) == 0 {
			r.ReceiveBang()
			return
		}
		r.ReceiveList(ev.atoms)
	case shared.Message:
		r.ReceiveMessage(ev.symbol, ev.atoms)
	}
}

// Print sets the hook called, on the audio context, with every line the
// engine prints. nil removes it.
func (l *Loopback) Print(fn func(string)) {
	if fn == nil {
		l.print.Store(nil)
		return
	}
	l.print.Store(&fn)
}

func (l *Loopback) Bind(name string, r Receiver) error {
	if name == "" {
		return ErrNoReceiver
	}
	old := *l.bindings.Load()
	if _, ok := old[name]; ok {
		return ErrAlreadyBound
	}
	next := make(map[string]Receiver, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[name] = r
	l.bindings.Store(&next)
	return nil
}

func (l *Loopback) Unbind(name string) error {
	old := *l.bindings.Load()
	if _, ok := old[name]; !ok {
		return ErrNotBound
	}
	next := make(map[string]Receiver, len(old))
	for k, v := range old {
		if k != name {
			next[k] = v
		}
	}
	l.bindings.Store(&next)
	return nil
}

// Bound reports whether a receiver is bound to name.
func (l *Loopback) Bound(name string) bool {
	_, ok := (*l.bindings.Load())[name]
	return ok
}

func (l *Loopback) SendBang(receiver string) error {
	return l.send(event{receiver: receiver, typ: shared.Bang})
}

func (l *Loopback) SendFloat(receiver string, f float32) error {
	return l.send(event{receiver: receiver, typ: shared.Float, float: f})
}

func (l *Loopback) SendSymbol(receiver string, s string) error {
	return l.send(event{receiver: receiver, typ: shared.Symbol, symbol: s})
}

func (l *Loopback) StartMessage(length int) error {
	if length < 0 {
		return ErrBadLength
	}
	l.building = true
	l.maxlen = length
	l.pending = make([]shared.Atom, 0, length)
	return nil
}

// AddFloat and AddSymbol silently drop items past the declared length.
func (l *Loopback) AddFloat(f float32) {
	if l.building && len(l.pending) < l.maxlen {
		l.pending = append(l.pending, shared.FloatAtom(f))
	}
}

func (l *Loopback) AddSymbol(s string) {
	if l.building && len(l.pending) < l.maxlen {
		l.pending = append(l.pending, shared.SymbolAtom(s))
	}
}

func (l *Loopback) FinishList(receiver string) error {
	if !l.building {
		return ErrNoMessage
	}
	l.building = false
	return l.send(event{receiver: receiver, typ: shared.List, atoms: l.pending})
}

func (l *Loopback) FinishMessage(receiver, selector string) error {
	if !l.building {
		return ErrNoMessage
	}
	l.building = false
	return l.send(event{receiver: receiver, typ: shared.Message, symbol: selector, atoms: l.pending})
}

func (l *Loopback) NoteOn(channel, pitch, velocity int) error {
	if channel < 0 || pitch < 0 || pitch > 127 || velocity < 0 || velocity > 127 {
		return ErrMIDIRange
	}
	if !l.initialized.Load() {
		return ErrNotInitialized
	}
	if !l.events.push(event{kind: evNote, midi: [3]int{channel, pitch, velocity}}) {
		return ErrQueueFull
	}
	l.record(Sent{Receiver: NOTEIN, Type: shared.List, Atoms: []shared.Atom{
		shared.FloatAtom(float32(pitch)),
		shared.FloatAtom(float32(velocity)),
		shared.FloatAtom(float32(channel)),
	}})
	return nil
}

func (l *Loopback) ControlChange(channel, controller, value int) error {
	if channel < 0 || controller < 0 || controller > 127 || value < 0 || value > 127 {
		return ErrMIDIRange
	}
	if !l.initialized.Load() {
		return ErrNotInitialized
	}
	if !l.events.push(event{kind: evControl, midi: [3]int{channel, controller, value}}) {
		return ErrQueueFull
	}
	l.record(Sent{Receiver: CTLIN, Type: shared.List, Atoms: []shared.Atom{
		shared.FloatAtom(float32(value)),
		shared.FloatAtom(float32(controller)),
		shared.FloatAtom(float32(channel)),
	}})
	return nil
}

func (l *Loopback) send(ev event) error {
	if !l.initialized.Load() {
		return ErrNotInitialized
	}
	if ev.receiver == "" {
		return ErrNoReceiver
	}
	if !l.events.push(ev) {
		return ErrQueueFull
	}
	l.record(Sent{Receiver: ev.receiver, Type: ev.typ, Float: ev.float, Symbol: ev.symbol, Atoms: ev.atoms})
	return nil
}

func (l *Loopback) record(s Sent) {
	if l.history == 0 {
		return
	}
	l.mu.Lock()
	if len(l.sent) < l.history {
		l.sent = append(l.sent, s)
	} else {
		l.sent[l.head] = s
		l.head = (l.head + 1) % l.history
	}
	l.mu.Unlock()
}

// Sent returns the messages kept by WithHistory, oldest first.
func (l *Loopback) Sent() []Sent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Sent, 0, len(l.sent))
	out = append(out, l.sent[l.head:]...)
	return append(out, l.sent[:l.head]...)
}

// Pending is the number of events waiting for the next tick.
func (l *Loopback) Pending() int {
	return l.events.len()
}

// String formats an event the way [print] does.
func (ev *event) String() string {
	var b strings.Builder
	b.WriteString(ev.receiver)
	b.WriteString(":")
	switch ev.typ {
	case shared.Bang:
		b.WriteString(" bang")
	case shared.Float:
		fmt.Fprintf(&b, " %g", ev.float)
	case shared.Symbol:
		b.WriteString(" symbol ")
		b.WriteString(ev.symbol)
	case shared.List:
		if len(ev.atoms) == 0 {
			b.WriteString(" bang")
		} else if ev.atoms[0].Type == shared.AtomSymbol {
			b.WriteString(" list")
		}
	case shared.Message:
		b.WriteString(" ")
		b.WriteString(ev.symbol)
	}
	if ev.typ == shared.List || ev.typ == shared.Message {
		for _, a := range ev.atoms {
			b.WriteString(" ")
			b.WriteString(a.String())
		}
	}
	return b.String()
}

func (l *Loopback) note(pitch, velocity int) {
	if velocity == 0 {
		for i := range l.voices {
			v := &l.voices[i]
			if v.active && v.pitch == pitch && v.decay > v.age+int(0.05*l.sampleRate) {
				v.decay = v.age + int(0.05*l.sampleRate)
			}
		}
		return
	}
	freq := 440 * math.Pow(2, float64(pitch-69)/12)
	decay := int(1.5 * l.sampleRate)
	if decay < 1 {
		decay = 1
	}
	l.voices[l.next] = voice{
		pitch:  pitch,
		step:   2 * math.Pi * freq / l.sampleRate,
		gain:   0.2 * float64(velocity) / 127,
		decay:  decay,
		active: true,
	}
	l.next = (l.next + 1) % MAX_VOICES
}

func (l *Loopback) nextSample() float64 {
	sum := 0.0
	for i := range l.voices {
		v := &l.voices[i]
		if !v.active {
			continue
		}
		if v.age >= v.decay {
			v.active = false
			continue
		}
		env := 1 - float64(v.age)/float64(v.decay)
		sum += v.gain * env * env * math.Sin(v.phase)
		v.phase += v.step
		if v.phase > math.Pi {
			v.phase -= 2 * math.Pi
		}
		v.age++
	}
	return sum
}
