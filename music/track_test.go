package music

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func near(a, b time.Duration) bool {
	d := a - b
	return d < time.Millisecond && d > -time.Millisecond
}

func TestSteps(t *testing.T) {
	tr := smf.Track{}
	tr.Add(0, smf.MetaTempo(60))
	tr.Add(960, midi.NoteOn(0, 60, 100))
	tr.Add(480, midi.NoteOff(0, 60))
	tr.Close(0)

	steps := Steps([]smf.Track{tr}, TICKS)
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if !near(steps[0].Wait, time.Second) || !near(steps[1].Wait, 500*time.Millisecond) {
		t.Errorf("unexpected waits %v %v", steps[0].Wait, steps[1].Wait)
	}
	var ch, key, vel uint8
	if !steps[0].Message.GetNoteOn(&ch, &key, &vel) || key != 60 || vel != 100 {
		t.Errorf("expected note on 60, got %v", steps[0].Message)
	}
	if !steps[1].Message.GetNoteOff(&ch, &key, &vel) {
		t.Errorf("expected note off, got %v", steps[1].Message)
	}
}

func TestStepsMergesTracks(t *testing.T) {
	tempo := smf.Track{}
	tempo.Add(0, smf.MetaTempo(120))
	tempo.Close(0)

	a := smf.Track{}
	a.Add(960, midi.NoteOn(0, 60, 100))
	a.Close(0)
	b := smf.Track{}
	b.Add(480, midi.NoteOn(1, 64, 100))
	b.Close(0)

	steps := Steps([]smf.Track{tempo, a, b}, TICKS)
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	var ch, key, vel uint8
	steps[0].Message.GetNoteOn(&ch, &key, &vel)
	if key != 64 || !near(steps[0].Wait, 250*time.Millisecond) {
		t.Errorf("first step: key %d after %v", key, steps[0].Wait)
	}
	steps[1].Message.GetNoteOn(&ch, &key, &vel)
	if key != 60 || !near(steps[1].Wait, 250*time.Millisecond) {
		t.Errorf("second step: key %d after %v", key, steps[1].Wait)
	}
}

func TestLoad(t *testing.T) {
	steps := []Step{
		{Wait: 0, Message: midi.NoteOn(0, 60, 100)},
		{Wait: 500 * time.Millisecond, Message: midi.NoteOff(0, 60)},
	}
	s := smf.New()
	if err := s.Add(Track(steps, TICKS, 120)); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	got, err := Load(&buf, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || !near(got[1].Wait, 500*time.Millisecond) {
		t.Errorf("unexpected steps %+v", got)
	}
}

func TestPlay(t *testing.T) {
	steps := []Step{
		{Message: midi.NoteOn(0, 60, 100)},
		{Wait: time.Millisecond, Message: midi.NoteOff(0, 60)},
	}
	var sent []midi.Message
	err := Play(context.Background(), steps, func(m midi.Message) error {
		sent = append(sent, m)
		return nil
	})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(sent) != 2 {
		t.Errorf("expected 2 messages, got %d", len(sent))
	}
}

func TestPlayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	steps := []Step{{Wait: time.Hour, Message: midi.NoteOn(0, 60, 100)}}
	err := Play(ctx, steps, func(midi.Message) error {
		t.Error("nothing should be sent")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
