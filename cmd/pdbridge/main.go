package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"

	"github.com/JeanRibes/pdbridge/bridge"
	"github.com/JeanRibes/pdbridge/engine"
	"github.com/JeanRibes/pdbridge/host/portaudio"
	"github.com/JeanRibes/pdbridge/music"
	"github.com/JeanRibes/pdbridge/shared"
)

func main() {
	configFile := flag.String("config", "config.yaml", "config file")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (overrides the config)")
	inPort := flag.String("input", "", "MIDI input port name")
	fileName := flag.String("file", "", "play a MIDI file into the engine")
	quantize := flag.Bool("quantize", false, "quantize the MIDI file before playing it")
	serialPort := flag.String("serial", "", "serial keyboard port, e.g. /dev/ttyACM0")
	keymapFile := flag.String("keymap", "", "path of keymap file (format: one 'keycode:note' per line)")
	list := flag.Bool("list", false, "list MIDI inputs and serial ports, then exit")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "pdbridge",
	})

	if *list {
		fmt.Println(music.InPorts())
		ports, err := music.SerialPorts()
		if err != nil {
			logger.Fatal("serial ports", "err", err)
		}
		for _, port := range ports {
			fmt.Printf("Found port: %v\n", port)
		}
		music.CloseDriver()
		return
	}

	config, err := LoadConfig(*configFile)
	if err != nil {
		logger.Fatal("config", "file", *configFile, "err", err)
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}
	if *inPort != "" {
		config.Midi.Input = *inPort
	}
	if *fileName != "" {
		config.Midi.File = *fileName
		config.Midi.Quantize = *quantize
	}
	if *serialPort != "" {
		config.Serial.Port = *serialPort
	}
	if *keymapFile != "" {
		config.Serial.Keymap = *keymapFile
	}
	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		logger.Fatal("log level", "err", err)
	}
	logger.SetLevel(level)

	if err := run(config, logger); err != nil {
		logger.Fatal(err)
	}
}

func run(config Config, logger *log.Logger) error {
	defer music.CloseDriver()

	opts := config.Options()
	opts.Logger = logger.WithPrefix("bridge")
	b := bridge.New(engine.NewLoopback(), portaudio.New(logger.WithPrefix("portaudio")), opts)
	if err := b.Init(); err != nil {
		return err
	}
	defer b.Close()

	for _, g := range config.GuiReceivers {
		if c, ok := b.Connector(g.Receiver); ok {
			c.Sender = g.Sender
		}
	}
	b.OnReceive(func(msg shared.Event) {
		logger.Info("received", "receiver", msg.Receiver, "type", msg.Type, "value", describe(b, msg))
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = log.WithContext(ctx, logger.WithPrefix("music"))

	// MIDI arrives on driver and feed goroutines, the bridge is reached
	// through its control loop
	send := func(msg midi.Message) error {
		if !b.Do(func() { b.SendMIDI(msg) }) {
			return bridge.ErrStopped
		}
		return nil
	}

	if config.Midi.Input != "" {
		stop, err := music.Listen(config.Midi.Input, logger.WithPrefix("midi"), func(msg midi.Message) { send(msg) })
		if err != nil {
			return fmt.Errorf("midi input %q: %w", config.Midi.Input, err)
		}
		defer stop()
	}

	if config.Midi.File != "" {
		steps, err := music.LoadFile(config.Midi.File, config.Midi.Quantize)
		if err != nil {
			return fmt.Errorf("midi file: %w", err)
		}
		logger.Info("playing", "file", config.Midi.File, "steps", len(steps), "quantize", config.Midi.Quantize)
		go func() {
			if err := music.Play(ctx, steps, send); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, bridge.ErrStopped) {
				logger.Error("play", "err", err)
			}
		}()
	}

	if config.Serial.Port != "" || config.Serial.Keymap != "" {
		keymap, err := music.LoadKeymapFile(config.Serial.Keymap)
		if err != nil {
			return fmt.Errorf("keymap: %w", err)
		}
		port, err := music.OpenSerial(config.Serial.Port)
		if err != nil {
			return fmt.Errorf("serial: %w", err)
		}
		defer port.Close()
		go func() {
			if err := music.NewKeyboard(keymap).Feed(ctx, port, send); err != nil && !errors.Is(err, bridge.ErrStopped) {
				logger.Error("serial keyboard", "err", err)
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(config.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !b.Do(func() { pollGui(b, logger.WithPrefix("gui")) }) {
					return
				}
			}
		}
	}()

	b.Run(ctx, config.PollInterval)
	logger.Info("stop", "blocks", b.Loop().Blocks(), "failures", b.Loop().Failures())
	return nil
}

func pollGui(b *bridge.Bridge, logger *log.Logger) {
	for _, name := range b.GuiReceivers() {
		c, ok := b.Connector(name)
		if !ok || c.BeingUpdated() || !c.Poll() {
			continue
		}
		msg := c.Message()
		logger.Info("update", "receiver", name, "type", msg.Type, "value", describe(b, msg), "sender", c.Sender)
		c.Clear()
	}
}

func describe(b *bridge.Bridge, msg shared.Event) string {
	switch msg.Type {
	case shared.Float:
		return fmt.Sprint(msg.Float)
	case shared.Symbol:
		return msg.Symbol
	case shared.List, shared.Message:
		items := make([]string, 0, msg.Size+1)
		if msg.Type == shared.Message {
			items = append(items, msg.Symbol)
		}
		for i := 0; i < b.ReceivedListSize(msg.Receiver); i++ {
			if b.ItemType(msg.Receiver, i) == shared.TagSymbol {
				items = append(items, b.ItemAsSymbol(msg.Receiver, i))
			} else {
				items = append(items, fmt.Sprint(b.ItemAsFloat(msg.Receiver, i)))
			}
		}
		return strings.Join(items, " ")
	}
	return ""
}
