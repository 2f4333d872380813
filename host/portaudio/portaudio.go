// Package portaudio is the native host. It links the cgo PortAudio bindings,
// so only the desktop command imports it.
package portaudio

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	pa "github.com/gordonklaus/portaudio"

	"github.com/JeanRibes/pdbridge/host"
)

var _ host.Host = (*PortAudio)(nil)

// PortAudio drives the render callback from the default output device.
type PortAudio struct {
	logger      *log.Logger
	initialized bool
	ctx         *host.Context
	stream      *pa.Stream
}

func New(logger *log.Logger) *PortAudio {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &PortAudio{logger: logger}
}

func (p *PortAudio) CreateContext(cfg host.Config) (*host.Context, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("unable to setup portaudio: %w", err)
	}
	p.initialized = true
	d, err := pa.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("error opening default output: %w", err)
	}
	if d.MaxOutputChannels < cfg.Outputs {
		return nil, fmt.Errorf("%s has %d output channels, %d wanted", d.Name, d.MaxOutputChannels, cfg.Outputs)
	}
	if cfg.Inputs > 0 {
		in, err := pa.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("error opening default input: %w", err)
		}
		if in.MaxInputChannels < cfg.Inputs {
			return nil, fmt.Errorf("%s has %d input channels, %d wanted", in.Name, in.MaxInputChannels, cfg.Inputs)
		}
	}
	p.ctx = host.NewContext(cfg)
	p.logger.Info("audio output", "device", d.Name, "channels", cfg.Outputs, "sr", cfg.SampleRate, "context", p.ctx.ID)
	return p.ctx, nil
}

func (p *PortAudio) Register(ctx *host.Context, cb host.Callback) error {
	if ctx == nil || ctx != p.ctx {
		return host.ErrNoContext
	}
	if p.stream != nil {
		return host.ErrRegistered
	}
	var (
		stream *pa.Stream
		err    error
	)
	if ctx.Inputs == 0 {
		stream, err = pa.OpenDefaultStream(0, ctx.Outputs, ctx.SampleRate, ctx.Quantum, func(out [][]float32) {
			cb(nil, out)
		})
	} else {
		stream, err = pa.OpenDefaultStream(ctx.Inputs, ctx.Outputs, ctx.SampleRate, ctx.Quantum, func(in, out [][]float32) {
			cb(in, out)
		})
	}
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start stream: %w", err)
	}
	p.stream = stream
	return nil
}

func (p *PortAudio) Suspend() error {
	if p.stream == nil {
		return host.ErrNoContext
	}
	return p.stream.Stop()
}

func (p *PortAudio) Resume() error {
	if p.stream == nil {
		return host.ErrNoContext
	}
	return p.stream.Start()
}

func (p *PortAudio) Close() error {
	var err error
	if p.stream != nil {
		err = p.stream.Close()
		p.stream = nil
	}
	if p.initialized {
		p.initialized = false
		if terr := pa.Terminate(); terr != nil {
			p.logger.Error("termination error", "err", terr)
		}
	}
	return err
}
