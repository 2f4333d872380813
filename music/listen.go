package music

import (
	charmlog "github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver
)

// InPorts describes the MIDI input ports the driver can see.
func InPorts() string {
	return midi.GetInPorts().String()
}

// Listen forwards note and control change messages from the named input
// port. fn runs on the driver's goroutine.
func Listen(port string, logger *charmlog.Logger, fn func(midi.Message)) (stop func(), err error) {
	in, err := midi.FindInPort(port)
	if err != nil {
		return nil, err
	}
	logger.Info("connecting to", "input", in.String())
	return midi.ListenTo(in, func(msg midi.Message, absms int32) {
		var ch, key, vel uint8
		switch {
		case msg.GetNoteOn(&ch, &key, &vel),
			msg.GetNoteOff(&ch, &key, &vel),
			msg.GetControlChange(&ch, &key, &vel):
			fn(msg)
		default:
			logger.Debug("ignored", "msg", msg.String(), "ms", absms)
		}
	})
}

// CloseDriver releases the MIDI driver. Call it once, at exit.
func CloseDriver() {
	midi.CloseDriver()
}
