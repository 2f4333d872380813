package music

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gitlab.com/gomidi/midi/v2"
)

// Keymap maps a serial key code to a MIDI note (0..127). A negative value
// -n makes the key a toggle for controller n.
type Keymap map[int]int

// LoadKeymap reads one "code:note" pair per line. Blank lines and lines
// starting with # are skipped.
func LoadKeymap(r io.Reader) (Keymap, error) {
	keymap := Keymap{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		k, v, ok := strings.Cut(text, ":")
		if !ok {
			return nil, fmt.Errorf("keymap line %d: missing ':'", line)
		}
		code, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("keymap line %d: %w", line, err)
		}
		note, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("keymap line %d: %w", line, err)
		}
		if code < 0 || code > 255 || note > 127 || note < -127 {
			return nil, fmt.Errorf("keymap line %d: %d:%d out of range", line, code, note)
		}
		keymap[code] = note
	}
	return keymap, sc.Err()
}

func LoadKeymapFile(path string) (Keymap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadKeymap(f)
}

const (
	KEY_VELOCITY = 64
	TOGGLE_ON    = 64
)

// Keyboard decodes the two byte frames sent by the serial keyboard: a
// status byte whose high bit is set on release, then the key code.
type Keyboard struct {
	keymap  Keymap
	down    [256]bool
	toggled [256]bool
}

func NewKeyboard(keymap Keymap) *Keyboard {
	return &Keyboard{keymap: keymap}
}

// Decode returns the message for one frame, or false when the frame maps
// to nothing: unassigned keys, key repeats, toggle releases.
func (k *Keyboard) Decode(status, code byte) (midi.Message, bool) {
	pressed := status>>7 == 0
	if pressed && k.down[code] {
		return nil, false
	}
	k.down[code] = pressed

	note, ok := k.keymap[int(code)]
	if !ok {
		return nil, false
	}
	if note < 0 {
		if !pressed {
			return nil, false
		}
		k.toggled[code] = !k.toggled[code]
		val := uint8(0)
		if k.toggled[code] {
			val = TOGGLE_ON
		}
		return midi.ControlChange(0, uint8(-note), val), true
	}
	if pressed {
		return midi.NoteOn(0, uint8(note), KEY_VELOCITY), true
	}
	return midi.NoteOff(0, uint8(note)), true
}
