//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/charmbracelet/log"

	"github.com/JeanRibes/pdbridge/bridge"
	"github.com/JeanRibes/pdbridge/engine"
	"github.com/JeanRibes/pdbridge/host"
	"github.com/JeanRibes/pdbridge/shared"
)

var (
	b     *bridge.Bridge
	pull  *host.Pull
	funcs []js.Func

	// planar render buffers, sized by init
	in, out [][]float32
)

func main() {
	api := js.Global().Get("Object").New()

	api.Set("init", export(func(args []js.Value) any {
		if b != nil {
			return "already initialized"
		}
		opts := bridge.Options{Outputs: 2}
		if len(args) > 0 && args[0].Type() == js.TypeObject {
			o := args[0]
			opts.SampleRate = number(o.Get("sampleRate"), 0)
			opts.Inputs = int(number(o.Get("inputs"), 0))
			opts.Outputs = int(number(o.Get("outputs"), 2))
			opts.Receivers = strings(o.Get("receivers"))
			opts.GuiReceivers = strings(o.Get("guiReceivers"))
			if o.Get("debug").Truthy() {
				opts.Logger = log.New(consoleWriter{})
				opts.Logger.SetLevel(log.DebugLevel)
			}
		}
		pull = host.NewPull()
		b = bridge.New(engine.NewLoopback(), pull, opts)
		if err := b.Init(); err != nil {
			return err.Error()
		}
		in = planar(opts.Inputs, b.Loop().Quantum())
		out = planar(opts.Outputs, b.Loop().Quantum())
		return js.Null()
	}))

	api.Set("state", export(func(args []js.Value) any {
		if b == nil {
			return shared.Uninitialized.String()
		}
		return b.State().String()
	}))

	api.Set("suspendAudio", export(func(args []js.Value) any {
		return b != nil && b.SuspendAudio()
	}))
	api.Set("resumeAudio", export(func(args []js.Value) any {
		return b != nil && b.ResumeAudio()
	}))

	api.Set("sendBang", export(func(args []js.Value) any {
		if b == nil || len(args) < 1 {
			return false
		}
		return b.SendBang(args[0].String())
	}))
	api.Set("sendFloat", export(func(args []js.Value) any {
		if b == nil || len(args) < 2 {
			return false
		}
		return b.SendFloat(args[0].String(), float32(args[1].Float()))
	}))
	api.Set("sendSymbol", export(func(args []js.Value) any {
		if b == nil || len(args) < 2 {
			return false
		}
		return b.SendSymbol(args[0].String(), args[1].String())
	}))

	api.Set("_startMessage", export(func(args []js.Value) any {
		if b == nil || len(args) < 2 {
			return false
		}
		return b.StartMessage(args[0].String(), args[1].Int())
	}))
	api.Set("_addFloat", export(func(args []js.Value) any {
		if b != nil && len(args) >= 2 {
			b.AddFloat(args[0].String(), float32(args[1].Float()))
		}
		return js.Null()
	}))
	api.Set("_addSymbol", export(func(args []js.Value) any {
		if b != nil && len(args) >= 2 {
			b.AddSymbol(args[0].String(), args[1].String())
		}
		return js.Null()
	}))
	api.Set("_finishMessage", export(func(args []js.Value) any {
		if b == nil || len(args) < 1 {
			return bridge.StatusFailed
		}
		return b.FinishMessage(args[0].String())
	}))

	api.Set("_getReceivedListSize", export(func(args []js.Value) any {
		if b == nil || len(args) < 1 {
			return 0
		}
		return b.ReceivedListSize(args[0].String())
	}))
	api.Set("_getItemFromListType", export(func(args []js.Value) any {
		if b == nil || len(args) < 2 {
			return ""
		}
		return b.ItemType(args[0].String(), args[1].Int())
	}))
	api.Set("_getItemFromListSymbol", export(func(args []js.Value) any {
		if b == nil || len(args) < 2 {
			return ""
		}
		return b.ItemAsSymbol(args[0].String(), args[1].Int())
	}))
	api.Set("_getItemFromListFloat", export(func(args []js.Value) any {
		if b == nil || len(args) < 2 {
			return 0
		}
		return b.ItemAsFloat(args[0].String(), args[1].Int())
	}))

	api.Set("noteOn", export(func(args []js.Value) any {
		if b == nil || len(args) < 3 {
			return false
		}
		return b.NoteOn(args[0].Int(), args[1].Int(), args[2].Int())
	}))

	api.Set("bindReceiver", export(func(args []js.Value) any {
		if b == nil || len(args) < 1 {
			return false
		}
		return b.BindReceiver(args[0].String())
	}))
	api.Set("addGuiReceiver", export(func(args []js.Value) any {
		if b == nil || len(args) < 1 {
			return false
		}
		ok := b.AddGuiReceiver(args[0].String())
		if c, found := b.Connector(args[0].String()); ok && found && len(args) > 1 {
			c.Sender = args[1].String()
		}
		return ok
	}))
	api.Set("unbindReceiver", export(func(args []js.Value) any {
		if b == nil {
			return js.Null()
		}
		if len(args) > 0 {
			return b.Unbind(args[0].String())
		}
		b.UnbindReceiver()
		return js.Null()
	}))

	api.Set("onReceive", export(func(args []js.Value) any {
		if b == nil || len(args) < 1 || args[0].Type() != js.TypeFunction {
			return js.Null()
		}
		fn := args[0]
		b.OnReceive(func(msg shared.Event) {
			fn.Invoke(toJS(msg))
		})
		return js.Null()
	}))

	// process is the worklet callback: arrays of Float32Array channels.
	api.Set("process", export(func(args []js.Value) any {
		if b == nil || len(args) < 2 {
			return false
		}
		for ch := range in {
			if ch < args[0].Length() {
				copyIn(in[ch], args[0].Index(ch))
			} else {
				clear(in[ch])
			}
		}
		ok := pull.Render(in, out)
		for ch := range out {
			if ch < args[1].Length() {
				copyOut(args[1].Index(ch), out[ch])
			}
		}
		return ok
	}))

	// poll forwards plain receiver events to the onReceive handler and
	// returns the GUI receivers updated since the last poll.
	api.Set("poll", export(func(args []js.Value) any {
		updates := js.Global().Get("Array").New()
		if b == nil {
			return updates
		}
		b.Poll()
		for _, name := range b.GuiReceivers() {
			c, ok := b.Connector(name)
			if !ok || c.BeingUpdated() || !c.Poll() {
				continue
			}
			u := toJS(c.Message())
			u.Set("sender", c.Sender)
			updates.Call("push", u)
			c.Clear()
		}
		return updates
	}))

	api.Set("peak", export(func(args []js.Value) any {
		if b == nil || b.Loop() == nil || len(args) < 1 {
			return 0
		}
		return b.Loop().Peak(args[0].Int())
	}))

	js.Global().Set("PdBridge", api)
	select {}
}

func export(fn func([]js.Value) any) js.Func {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any {
		return fn(args)
	})
	funcs = append(funcs, f)
	return f
}

func toJS(msg shared.Event) js.Value {
	o := js.Global().Get("Object").New()
	o.Set("receiver", msg.Receiver)
	o.Set("type", msg.Type.String())
	switch msg.Type {
	case shared.Float:
		o.Set("value", msg.Float)
	case shared.Symbol:
		o.Set("value", msg.Symbol)
	case shared.List, shared.Message:
		if msg.Type == shared.Message {
			o.Set("selector", msg.Symbol)
		}
		items := js.Global().Get("Array").New()
		for i := 0; i < b.ReceivedListSize(msg.Receiver); i++ {
			if b.ItemType(msg.Receiver, i) == shared.TagSymbol {
				items.Call("push", b.ItemAsSymbol(msg.Receiver, i))
			} else {
				items.Call("push", b.ItemAsFloat(msg.Receiver, i))
			}
		}
		o.Set("value", items)
	}
	return o
}

func planar(channels, frames int) [][]float32 {
	bufs := make([][]float32, channels)
	for i := range bufs {
		bufs[i] = make([]float32, frames)
	}
	return bufs
}

func copyIn(dst []float32, src js.Value) {
	n := min(len(dst), src.Length())
	for i := 0; i < n; i++ {
		dst[i] = float32(src.Index(i).Float())
	}
	clear(dst[n:])
}

func copyOut(dst js.Value, src []float32) {
	n := min(len(src), dst.Length())
	for i := 0; i < n; i++ {
		dst.SetIndex(i, src[i])
	}
}

func number(v js.Value, def float64) float64 {
	if v.Type() != js.TypeNumber {
		return def
	}
	return v.Float()
}

func strings(v js.Value) []string {
	if v.Type() != js.TypeObject {
		return nil
	}
	names := make([]string, v.Length())
	for i := range names {
		names[i] = v.Index(i).String()
	}
	return names
}

// consoleWriter sends log lines to the browser console.
type consoleWriter struct{}

func (consoleWriter) Write(p []byte) (int, error) {
	js.Global().Get("console").Call("log", string(p))
	return len(p), nil
}
