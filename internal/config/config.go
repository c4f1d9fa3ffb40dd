// Package config holds the JSON settings file read by the command-line hosts.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the host configuration. A sample rate, block size or polyphony
// of zero or less reads as the default; gain 0 is a valid mute.
type Config struct {
	InstrumentDir   string  `json:"instrument_dir"`
	Engine          string  `json:"engine"` // sf2|wavetable
	SampleRate      int     `json:"sample_rate"`
	BlockSize       int     `json:"block_size"`
	Polyphony       int     `json:"polyphony"`
	MIDIDevice      string  `json:"midi_device"`
	SoundfontPath   string  `json:"soundfont_path"`
	OctaveTranspose int     `json:"octave_transpose"`
	Gain            float64 `json:"gain"`
	StateFile       string  `json:"state_file"`
}

func Default() *Config {
	return &Config{
		InstrumentDir: ".",
		Engine:        "sf2",
		SampleRate:    44100,
		BlockSize:     128,
		Polyphony:     64,
		Gain:          1,
	}
}

// Load reads path over the defaults. A missing file returns an error
// wrapping os.ErrNotExist.
func Load(path string) (*Config, error) {
	bt, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c := Default()
	if err := json.Unmarshal(bt, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	c.fillDefaults()
	return c, nil
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.SampleRate <= 0 {
		c.SampleRate = d.SampleRate
	}
	if c.BlockSize <= 0 {
		c.BlockSize = d.BlockSize
	}
	if c.Polyphony <= 0 {
		c.Polyphony = d.Polyphony
	}
}

// Save writes c to path as indented JSON, creating parent directories.
func Save(path string, c *Config) error {
	if c == nil {
		return errors.New("nil config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	bt, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, bt, 0o644)
}

// DefaultsBlob renders the construction-time defaults an instrument reads.
func (c *Config) DefaultsBlob() string {
	if c.SoundfontPath == "" {
		return ""
	}
	bt, _ := json.Marshal(struct {
		SoundfontPath string `json:"soundfont_path"`
	}{c.SoundfontPath})
	return string(bt)
}
