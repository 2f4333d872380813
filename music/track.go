// Package music turns MIDI sources into messages for the bridge: Standard
// MIDI Files, live input ports and serial keyboards.
package music

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	charmlog "github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"gitlab.com/gomidi/quantizer/lib/quantizer"
)

const TICKS = smf.MetricTicks(960)

// tempo until the file sets one
const DEFAULT_BPM = 120.0

// Step is a message to send after waiting Wait since the previous one.
type Step struct {
	Wait    time.Duration
	Message midi.Message
}

type timed struct {
	abs uint64
	msg smf.Message
}

// Steps merges the tracks of a file into one timeline of playable
// messages. Tempo changes in any track apply from where they occur.
func Steps(tracks []smf.Track, ticks smf.MetricTicks) []Step {
	var all []timed
	for _, tr := range tracks {
		var abs uint64
		for _, ev := range tr {
			abs += uint64(ev.Delta)
			all = append(all, timed{abs: abs, msg: ev.Message})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].abs < all[j].abs })

	bpm := DEFAULT_BPM
	var steps []Step
	var wait time.Duration
	var last uint64
	for _, ev := range all {
		wait += ticks.Duration(bpm, uint32(ev.abs-last))
		last = ev.abs

		var t float64
		if ev.msg.GetMetaTempo(&t) {
			bpm = t
			continue
		}
		if !ev.msg.IsPlayable() {
			continue
		}
		steps = append(steps, Step{Wait: wait, Message: midi.Message(ev.msg)})
		wait = 0
	}
	return steps
}

// Load reads a Standard MIDI File, quantizing it first if asked.
func Load(r io.Reader, quantize bool) ([]Step, error) {
	if quantize {
		var q bytes.Buffer
		if err := quantizer.Quantize(r, &q); err != nil {
			return nil, fmt.Errorf("quantize: %w", err)
		}
		r = &q
	}
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, err
	}
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("unsupported time format %v", s.TimeFormat)
	}
	return Steps(s.Tracks, ticks), nil
}

func LoadFile(path string, quantize bool) ([]Step, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, quantize)
}

// Play sends every step on time until the steps run out or ctx is done.
func Play(ctx context.Context, steps []Step, send func(midi.Message) error) error {
	logger := charmlog.FromContext(ctx)
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for i, st := range steps {
		timer.Reset(st.Wait)
		select {
		case <-ctx.Done():
			logger.Debug("play cancelled", "step", i)
			return ctx.Err()
		case <-timer.C:
		}
		if err := send(st.Message); err != nil {
			return err
		}
	}
	logger.Debug("play finished", "steps", len(steps))
	return nil
}

// Track builds a single track file from steps, the inverse of Steps at a
// constant tempo.
func Track(steps []Step, ticks smf.MetricTicks, bpm float64) smf.Track {
	tr := smf.Track{}
	tr.Add(0, smf.MetaTempo(bpm))
	for _, st := range steps {
		tr.Add(ticks.Ticks(bpm, st.Wait), st.Message)
	}
	tr.Close(0)
	return tr
}
