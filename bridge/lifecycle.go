package bridge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JeanRibes/pdbridge/host"
	"github.com/JeanRibes/pdbridge/render"
	"github.com/JeanRibes/pdbridge/shared"
)

// Init brings the audio side up: engine, render context, static receivers,
// externals, render callback. Each step needs the previous one; on failure
// the bridge is left Terminated and the error is returned.
func (b *Bridge) Init() error {
	if b.State() != shared.Uninitialized {
		return ErrAlreadyInitialized
	}
	cfg := host.Config{
		SampleRate: b.opts.SampleRate,
		Quantum:    b.opts.Quantum,
		Inputs:     b.opts.Inputs,
		Outputs:    b.opts.Outputs,
		StackSize:  b.opts.StackSize,
	}

	if err := b.engine.Init(cfg.SampleRate, cfg.Inputs, cfg.Outputs); err != nil {
		return b.fatal(fmt.Errorf("audio graph: %w", err))
	}
	b.setState(shared.AudioGraphReady)
	b.engine.Print(b.post)

	loop, err := render.NewLoop(b.engine, cfg.Quantum, cfg.Inputs, cfg.Outputs)
	if err != nil {
		return b.fatal(fmt.Errorf("render loop: %w", err))
	}

	ctx, err := b.host.CreateContext(cfg)
	if err != nil {
		return b.fatal(fmt.Errorf("worklet: %w", err))
	}
	b.ctx = ctx
	b.setState(shared.WorkletReady)

	b.bindStatic()

	if b.opts.Externals != nil {
		if err := b.opts.Externals(b.engine); err != nil {
			return b.fatal(fmt.Errorf("externals: %w", err))
		}
	}

	if err := b.host.Register(ctx, loop.Process); err != nil {
		return b.fatal(fmt.Errorf("render callback: %w", err))
	}
	b.loop = loop
	b.setState(shared.Running)
	b.logger.Info("running", "sr", cfg.SampleRate, "quantum", cfg.Quantum, "in", cfg.Inputs, "out", cfg.Outputs, "context", ctx.ID)
	return nil
}

// bindStatic binds the receivers declared in Options. A receiver that fails
// to bind is logged, it does not stop the bridge.
func (b *Bridge) bindStatic() {
	for _, name := range b.opts.Receivers {
		if strings.HasPrefix(name, shared.GUI_PREFIX) {
			b.AddGuiReceiver(name)
		} else {
			b.BindReceiver(name)
		}
	}
	for _, name := range b.opts.GuiReceivers {
		b.AddGuiReceiver(name)
	}
}

func (b *Bridge) fatal(err error) error {
	b.setState(shared.Terminated)
	b.shutdown()
	if b.ctx != nil {
		if cerr := b.host.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	b.logger.Error("init", "err", err)
	return err
}

// SuspendAudio stops the render callback; engine and receivers are kept.
func (b *Bridge) SuspendAudio() bool {
	if err := b.transition(shared.Running, shared.Suspended, b.host.Suspend); err != nil {
		b.logger.Warn("suspend", "err", err)
		return false
	}
	return true
}

func (b *Bridge) ResumeAudio() bool {
	if err := b.transition(shared.Suspended, shared.Running, b.host.Resume); err != nil {
		b.logger.Warn("resume", "err", err)
		return false
	}
	return true
}

func (b *Bridge) transition(from, to shared.State, step func() error) error {
	if s := b.State(); s != from {
		return fmt.Errorf("%w: %s", ErrBadState, s)
	}
	if err := step(); err != nil {
		return err
	}
	b.setState(to)
	return nil
}

// Close unbinds every receiver and releases the host. The bridge cannot be
// initialized again.
func (b *Bridge) Close() error {
	if b.State() == shared.Terminated {
		return nil
	}
	wasUp := b.State() != shared.Uninitialized
	b.setState(shared.Terminated)
	b.shutdown()
	b.pending = nil
	b.UnbindReceiver()
	if wasUp {
		b.engine.Print(nil)
		return b.host.Close()
	}
	return nil
}
