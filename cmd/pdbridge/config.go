package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JeanRibes/pdbridge/bridge"
	"github.com/JeanRibes/pdbridge/shared"
)

type GuiReceiver struct {
	Receiver string `yaml:"receiver"`
	// where UI edits of the value are sent back, empty for display only
	Sender string `yaml:"sender"`
}

type Config struct {
	SampleRate   float64       `yaml:"sample_rate"`
	BlockSize    int           `yaml:"block_size"`
	StackSize    int           `yaml:"stack_size"`
	Receivers    []string      `yaml:"receivers"`
	GuiReceivers []GuiReceiver `yaml:"gui_receivers"`
	PollInterval time.Duration `yaml:"poll_interval"`
	LogLevel     string        `yaml:"log_level"`
	Channels     struct {
		Input  int `yaml:"input"`
		Output int `yaml:"output"`
	} `yaml:"channels"`
	Midi struct {
		Input    string `yaml:"input"`
		File     string `yaml:"file"`
		Quantize bool   `yaml:"quantize"`
	} `yaml:"midi"`
	Serial struct {
		Port   string `yaml:"port"`
		Keymap string `yaml:"keymap"`
	} `yaml:"serial"`
}

func DefaultConfig() Config {
	var c Config
	c.SampleRate = bridge.DEFAULT_SAMPLE_RATE
	c.BlockSize = shared.BLOCK_SIZE
	c.StackSize = bridge.DEFAULT_STACK_SIZE
	c.PollInterval = 20 * time.Millisecond
	c.LogLevel = "info"
	c.Channels.Output = 2
	return c
}

// LoadConfig reads filename over the defaults. A missing file is not an
// error.
func LoadConfig(filename string) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return config, err
	}
	err = yaml.Unmarshal(data, &config)
	return config, err
}

func (c Config) Options() bridge.Options {
	opts := bridge.Options{
		SampleRate: c.SampleRate,
		Quantum:    c.BlockSize,
		Inputs:     c.Channels.Input,
		Outputs:    c.Channels.Output,
		StackSize:  c.StackSize,
		Receivers:  c.Receivers,
	}
	for _, g := range c.GuiReceivers {
		opts.GuiReceivers = append(opts.GuiReceivers, g.Receiver)
	}
	return opts
}
