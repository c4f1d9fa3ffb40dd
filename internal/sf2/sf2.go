// Package sf2 implements the SoundFont 2 backend on top of go-meltysynth.
package sf2

import (
	"errors"
	"fmt"
	"os"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/cbegin/sfsampler-go/internal/engine"
)

// Backend describes the SoundFont engine to the instrument core.
var Backend = engine.Backend{
	Name:      "sf2",
	Label:     "SF2",
	Noun:      "soundfont",
	Extension: ".sf2",
	New:       New,
}

// meltysynth's own master volume default; gain 1.0 maps onto it.
const unityVolume = 0.5

// Limits meltysynth places on its synthesizer settings.
const (
	minSampleRate = 16000
	maxSampleRate = 192000
	minBlockSize  = 8
	maxBlockSize  = 1024
	minPolyphony  = 8
	maxPolyphony  = 256
)

// Engine renders a loaded SoundFont. The synthesizer is rebuilt on every
// bank load because meltysynth binds it to a single SoundFont.
type Engine struct {
	settings engine.Settings
	font     *meltysynth.SoundFont
	synth    *meltysynth.Synthesizer
	gain     float64
	held     [16][128]bool
	active   int
}

// New returns an engine with no bank loaded.
func New(s engine.Settings) (engine.Engine, error) {
	if s.SampleRate < minSampleRate || s.SampleRate > maxSampleRate {
		return nil, fmt.Errorf("sf2: sample rate %d outside %d..%d", s.SampleRate, minSampleRate, maxSampleRate)
	}
	if s.BlockSize != 0 && (s.BlockSize < minBlockSize || s.BlockSize > maxBlockSize) {
		return nil, fmt.Errorf("sf2: block size %d outside %d..%d", s.BlockSize, minBlockSize, maxBlockSize)
	}
	if s.Polyphony != 0 && (s.Polyphony < minPolyphony || s.Polyphony > maxPolyphony) {
		return nil, fmt.Errorf("sf2: polyphony %d outside %d..%d", s.Polyphony, minPolyphony, maxPolyphony)
	}
	return &Engine{settings: s, gain: 1}, nil
}

func (e *Engine) LoadBank(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("sf2: open bank: %w", err)
	}
	defer f.Close()

	font, err := meltysynth.NewSoundFont(f)
	if err != nil {
		return fmt.Errorf("sf2: parse %s: %w", path, err)
	}
	settings := meltysynth.NewSynthesizerSettings(int32(e.settings.SampleRate))
	if e.settings.BlockSize > 0 {
		settings.BlockSize = int32(e.settings.BlockSize)
	}
	if e.settings.Polyphony > 0 {
		settings.MaximumPolyphony = int32(e.settings.Polyphony)
	}
	settings.EnableReverbAndChorus = false
	synth, err := meltysynth.NewSynthesizer(font, settings)
	if err != nil {
		return fmt.Errorf("sf2: synthesizer: %w", err)
	}
	e.font = font
	e.synth = synth
	e.applyGain()
	e.clearHeld()
	return nil
}

func (e *Engine) UnloadBank() error {
	if e.synth == nil {
		return errors.New("sf2: no bank loaded")
	}
	e.synth.NoteOffAll(true)
	e.synth = nil
	e.font = nil
	e.clearHeld()
	return nil
}

func (e *Engine) Loaded() bool { return e.synth != nil }

func (e *Engine) VisitPresets(fn func(engine.PresetInfo) bool) {
	if e.font == nil {
		return
	}
	for _, p := range e.font.Presets {
		info := engine.PresetInfo{
			Name:     p.Name,
			Bank:     int(p.BankNumber),
			Program:  int(p.PatchNumber),
			Numbered: true,
		}
		if !fn(info) {
			return
		}
	}
}

func (e *Engine) SelectProgram(channel, bank, program int) {
	if e.synth == nil {
		return
	}
	ch := int32(channel)
	e.synth.ProcessMidiMessage(ch, 0xB0, 0x00, int32(bank))
	e.synth.ProcessMidiMessage(ch, 0xC0, int32(program), 0)
}

func (e *Engine) NoteOn(channel, key, velocity int) {
	if e.synth == nil {
		return
	}
	e.synth.NoteOn(int32(channel), int32(key), int32(velocity))
	if !e.held[channel&15][key&127] {
		e.held[channel&15][key&127] = true
		e.active++
	}
}

func (e *Engine) NoteOff(channel, key int) {
	if e.synth == nil {
		return
	}
	e.synth.NoteOff(int32(channel), int32(key))
	if e.held[channel&15][key&127] {
		e.held[channel&15][key&127] = false
		e.active--
	}
}

func (e *Engine) AllNotesOff() {
	if e.synth == nil {
		return
	}
	e.synth.NoteOffAll(false)
	e.clearHeld()
}

func (e *Engine) ControlChange(channel, controller, value int) {
	if e.synth == nil {
		return
	}
	e.synth.ProcessMidiMessage(int32(channel), 0xB0, int32(controller), int32(value))
	if controller == 120 || controller == 123 {
		e.clearHeld()
	}
}

func (e *Engine) PitchBend(channel, value int) {
	if e.synth == nil {
		return
	}
	e.synth.ProcessMidiMessage(int32(channel), 0xE0, int32(value&0x7F), int32(value>>7&0x7F))
}

func (e *Engine) Render(left, right []float32) {
	if e.synth == nil {
		clear(left)
		clear(right)
		return
	}
	e.synth.Render(left, right)
}

// ActiveVoiceCount reports held keys. meltysynth does not expose its voice
// list, so release tails are not counted.
func (e *Engine) ActiveVoiceCount() int { return e.active }

// SetGain scales meltysynth's master volume; 1.0 is its default level.
func (e *Engine) SetGain(gain float64) {
	e.gain = gain
	e.applyGain()
}

func (e *Engine) Close() error {
	if e.synth != nil {
		e.synth.NoteOffAll(true)
	}
	e.synth = nil
	e.font = nil
	return nil
}

func (e *Engine) applyGain() {
	if e.synth != nil {
		e.synth.MasterVolume = float32(unityVolume * e.gain)
	}
}

func (e *Engine) clearHeld() {
	e.held = [16][128]bool{}
	e.active = 0
}

var (
	_ engine.Engine     = (*Engine)(nil)
	_ engine.GainSetter = (*Engine)(nil)
)
