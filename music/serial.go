package music

import (
	"context"
	"errors"
	"io"

	"github.com/albenik/go-serial/v2"
	charmlog "github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
)

const (
	BAUDRATE = 115200
	// ms, so Feed notices cancellation on an idle keyboard
	READ_TIMEOUT = 200
)

// SerialPorts lists the serial ports present on the machine.
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}

// OpenSerial opens a keyboard port. An empty name picks the first port.
func OpenSerial(name string) (io.ReadCloser, error) {
	if name == "" {
		ports, err := SerialPorts()
		if err != nil {
			return nil, err
		}
		if len(ports) == 0 {
			return nil, errors.New("no serial ports found")
		}
		name = ports[0]
	}
	port, err := serial.Open(name,
		serial.WithBaudrate(BAUDRATE),
		serial.WithReadTimeout(READ_TIMEOUT),
	)
	if err != nil {
		return nil, err
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

// Feed reads frames from r until ctx is done or r fails, and sends the
// decoded messages. It returns nil on cancellation and on io.EOF.
func (k *Keyboard) Feed(ctx context.Context, r io.Reader, send func(midi.Message) error) error {
	logger := charmlog.FromContext(ctx)
	frame := make([]byte, 2)
	have := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := r.Read(frame[have:])
		have += n
		if have == len(frame) {
			have = 0
			if msg, ok := k.Decode(frame[0], frame[1]); ok {
				logger.Debug("key", "status", frame[0], "code", frame[1], "msg", msg.String())
				if err := send(msg); err != nil {
					logger.Warn("send", "err", err)
				}
			} else if _, mapped := k.keymap[int(frame[1])]; !mapped {
				logger.Debug("unassigned", "code", frame[1])
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
