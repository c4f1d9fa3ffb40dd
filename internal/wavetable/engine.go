// Package wavetable implements a single-cycle wavetable backend. A bank is a
// WAV file cut into fixed-size frames; each frame is one preset.
package wavetable

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/wav"

	"github.com/cbegin/sfsampler-go/internal/engine"
	"github.com/cbegin/sfsampler-go/internal/lfo"
)

const twoPi = math.Pi * 2

const (
	// FrameSize is the length of one single-cycle frame in samples.
	FrameSize = 2048
	// MaxFrames bounds the frames taken from one file.
	MaxFrames  = 256
	numChannel = 16

	bendRange    = 2.0 // semitones each way
	vibratoDepth = 0.5 // semitones at full modulation
	vibratoRate  = 5.5 // Hz
)

// Backend describes the wavetable engine to the instrument core.
var Backend = engine.Backend{
	Name:      "wavetable",
	Label:     "Wavetable",
	Noun:      "wavetable",
	Extension: ".wav",
	New:       New,
}

// Params shapes every voice of the engine.
type Params struct {
	AttackSec   float64
	DecaySec    float64
	SustainLvl  float64
	ReleaseSec  float64
	MasterGain  float64
	VelocityAmp float64
	LPFCutoff   float64 // one-pole lowpass cutoff in Hz (0 = disabled)
}

// DefaultParams returns a soft pad-like envelope.
func DefaultParams() Params {
	return Params{
		AttackSec:   0.005,
		DecaySec:    0.12,
		SustainLvl:  0.75,
		ReleaseSec:  0.2,
		MasterGain:  0.3,
		VelocityAmp: 0.8,
		LPFCutoff:   12000,
	}
}

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type voice struct {
	active    bool
	channel   int
	key       int
	age       uint64
	velocity  float64
	freq      float64
	phase     float64 // position in the frame [0, FrameSize)
	env       float64
	envState  envState
	frame     int
	sustained bool // released while the sustain pedal was down
}

type channelState struct {
	program  int
	volume   float64 // CC7, 0-1
	pan      float64 // CC10, 0 (left) to 1 (right)
	bendMul  float64
	mod      float64 // CC1, 0-1
	pressure float64 // 0-1
	sustain  bool
}

func defaultChannel() channelState {
	return channelState{volume: 100.0 / 127.0, pan: 0.5, bendMul: 1}
}

// Engine renders wavetable voices.
type Engine struct {
	sampleRate float64
	params     Params
	voices     []voice
	frames     [][]float32
	channels   [numChannel]channelState
	vibrato    [numChannel]lfo.LFO
	gain       float64
	clock      uint64
	lpfAlpha   float64
	lpfL       float64
	lpfR       float64
}

// New creates a wavetable engine with DefaultParams.
func New(s engine.Settings) (engine.Engine, error) {
	return NewWithParams(s, DefaultParams())
}

// NewWithParams creates a wavetable engine with explicit voice parameters.
func NewWithParams(s engine.Settings, params Params) (*Engine, error) {
	if s.SampleRate <= 0 {
		return nil, fmt.Errorf("wavetable: invalid sample rate %d", s.SampleRate)
	}
	poly := s.Polyphony
	if poly <= 0 {
		poly = 16
	}
	e := &Engine{
		sampleRate: float64(s.SampleRate),
		params:     params,
		voices:     make([]voice, poly),
		gain:       1,
	}
	if params.LPFCutoff > 0 && params.LPFCutoff < e.sampleRate/2 {
		rc := 1.0 / (twoPi * params.LPFCutoff)
		dt := 1.0 / e.sampleRate
		e.lpfAlpha = dt / (rc + dt)
	}
	e.resetControllers()
	return e, nil
}

// LoadBank decodes a WAV file and cuts it into frames. Multichannel files
// are mixed to mono and every frame is peak-normalized. A file shorter than
// FrameSize becomes a single frame.
func (e *Engine) LoadBank(path string) error {
	samples, err := readMono(path)
	if err != nil {
		return err
	}
	frames := Slice(samples)
	if len(frames) == 0 {
		return fmt.Errorf("wavetable: %s has no audio", path)
	}
	e.killAll()
	e.frames = frames
	return nil
}

func (e *Engine) UnloadBank() error {
	if e.frames == nil {
		return errors.New("wavetable: no bank loaded")
	}
	e.killAll()
	e.frames = nil
	return nil
}

func (e *Engine) Loaded() bool { return e.frames != nil }

// VisitPresets reports one unnamed, unnumbered preset per frame.
func (e *Engine) VisitPresets(fn func(engine.PresetInfo) bool) {
	for range e.frames {
		if !fn(engine.PresetInfo{}) {
			return
		}
	}
}

// SelectProgram binds channel to a frame. Banks are flat, so bank is
// ignored; programs past the last frame select frame 0.
func (e *Engine) SelectProgram(channel, bank, program int) {
	if channel < 0 || channel >= numChannel {
		return
	}
	if program < 0 || program >= len(e.frames) {
		program = 0
	}
	e.channels[channel].program = program
}

func (e *Engine) NoteOn(channel, key, velocity int) {
	if len(e.frames) == 0 || channel < 0 || channel >= numChannel {
		return
	}
	if velocity <= 0 {
		e.NoteOff(channel, key)
		return
	}
	slot := e.allocVoice(channel, key)
	e.clock++
	e.voices[slot] = voice{
		active:   true,
		channel:  channel,
		key:      key,
		age:      e.clock,
		velocity: clamp(float64(velocity)/127.0, 0, 1),
		freq:     midiToFreq(key),
		envState: envAttack,
		frame:    e.channels[channel].program,
	}
}

func (e *Engine) NoteOff(channel, key int) {
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active || v.channel != channel || v.key != key || v.envState == envRelease || v.sustained {
			continue
		}
		if e.channels[channel&15].sustain {
			v.sustained = true
			continue
		}
		v.envState = envRelease
	}
}

func (e *Engine) AllNotesOff() {
	for i := range e.voices {
		if e.voices[i].active {
			e.voices[i].envState = envRelease
			e.voices[i].sustained = false
		}
	}
}

func (e *Engine) ControlChange(channel, controller, value int) {
	if channel < 0 || channel >= numChannel {
		return
	}
	ch := &e.channels[channel]
	v := clamp(float64(value)/127.0, 0, 1)
	switch controller {
	case 1:
		ch.mod = v
		e.updateVibrato(channel)
	case 7:
		ch.volume = v
	case 10:
		ch.pan = v
	case 64:
		ch.sustain = value >= 64
		if !ch.sustain {
			e.releaseSustained(channel)
		}
	case 120:
		for i := range e.voices {
			if e.voices[i].channel == channel {
				e.voices[i] = voice{}
			}
		}
	case 121:
		program := ch.program
		*ch = defaultChannel()
		ch.program = program
		e.updateVibrato(channel)
		e.releaseSustained(channel)
	case 123:
		for i := range e.voices {
			v := &e.voices[i]
			if v.active && v.channel == channel {
				v.envState = envRelease
				v.sustained = false
			}
		}
	}
}

// PitchBend sets the channel pitch wheel; 8192 is centre, the range is two
// semitones each way.
func (e *Engine) PitchBend(channel, value int) {
	if channel < 0 || channel >= numChannel {
		return
	}
	semis := float64(value-8192) / 8192.0 * bendRange
	e.channels[channel].bendMul = math.Pow(2, semis/12.0)
}

// ChannelPressure deepens vibrato like the modulation wheel.
func (e *Engine) ChannelPressure(channel, pressure int) {
	if channel < 0 || channel >= numChannel {
		return
	}
	e.channels[channel].pressure = clamp(float64(pressure)/127.0, 0, 1)
	e.updateVibrato(channel)
}

// SetGain scales the engine output.
func (e *Engine) SetGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	e.gain = gain
}

func (e *Engine) Render(left, right []float32) {
	n := min(len(left), len(right))
	if len(e.frames) == 0 {
		clear(left)
		clear(right)
		return
	}
	level := e.params.MasterGain * e.gain
	for i := 0; i < n; i++ {
		var mods [numChannel]float64
		for c := range e.vibrato {
			if e.vibrato[c].Depth() != 0 {
				mods[c] = e.vibrato[c].Sample(e.sampleRate)
			}
		}
		var l, r float64
		for vi := range e.voices {
			v := &e.voices[vi]
			if !v.active {
				continue
			}
			env := e.advanceEnv(v)
			if !v.active {
				continue
			}
			table := e.frames[v.frame]
			size := len(table)
			idx := int(v.phase)
			frac := v.phase - float64(idx)
			i0 := idx % size
			i1 := (i0 + 1) % size
			sig := float64(table[i0])*(1-frac) + float64(table[i1])*frac

			ch := &e.channels[v.channel]
			sig *= env * level * ch.volume * (0.2 + v.velocity*e.params.VelocityAmp)

			// Equal-power stereo panning.
			angle := ch.pan * (math.Pi / 2.0)
			l += sig * math.Cos(angle)
			r += sig * math.Sin(angle)

			mul := ch.bendMul
			if m := mods[v.channel]; m != 0 {
				mul *= math.Pow(2, m/12.0)
			}
			v.phase += v.freq * mul * float64(size) / e.sampleRate
			for v.phase >= float64(size) {
				v.phase -= float64(size)
			}
		}
		if e.lpfAlpha > 0 {
			e.lpfL += e.lpfAlpha * (l - e.lpfL)
			e.lpfR += e.lpfAlpha * (r - e.lpfR)
			l, r = e.lpfL, e.lpfR
		}
		left[i] = float32(l)
		right[i] = float32(r)
	}
}

// ActiveVoiceCount returns the number of voices still sounding, release
// tails included.
func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}

func (e *Engine) Close() error {
	e.killAll()
	e.frames = nil
	return nil
}

// Slice cuts samples into peak-normalized frames of FrameSize samples,
// dropping a trailing partial frame. Input shorter than one frame yields a
// single frame of its own length.
func Slice(samples []float32) [][]float32 {
	if len(samples) == 0 {
		return nil
	}
	if len(samples) < FrameSize {
		f := append([]float32(nil), samples...)
		normalize(f)
		return [][]float32{f}
	}
	count := min(len(samples)/FrameSize, MaxFrames)
	out := make([][]float32, count)
	for i := range out {
		f := make([]float32, FrameSize)
		copy(f, samples[i*FrameSize:])
		normalize(f)
		out[i] = f
	}
	return out
}

func readMono(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wavetable: open bank: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("wavetable: invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wavetable: decode %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("wavetable: invalid wav buffer: %s", path)
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]float32, frames)
	for i := range frames {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(buf.Data[i*ch+c])
		}
		out[i] = float32(sum / float64(ch))
	}
	return out, nil
}

func normalize(f []float32) {
	var peak float32
	for _, s := range f {
		if s < 0 {
			s = -s
		}
		peak = max(peak, s)
	}
	if peak == 0 {
		return
	}
	for i := range f {
		f[i] /= peak
	}
}

func (e *Engine) updateVibrato(channel int) {
	ch := &e.channels[channel]
	e.vibrato[channel].SetDepth(max(ch.mod, ch.pressure) * vibratoDepth)
}

func (e *Engine) resetControllers() {
	for c := range e.channels {
		e.channels[c] = defaultChannel()
		e.vibrato[c] = lfo.New(vibratoRate, lfo.Sine)
	}
}

func (e *Engine) releaseSustained(channel int) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.channel == channel && v.sustained {
			v.sustained = false
			v.envState = envRelease
		}
	}
}

func (e *Engine) killAll() {
	for i := range e.voices {
		e.voices[i] = voice{}
	}
	e.lpfL, e.lpfR = 0, 0
}

// allocVoice retriggers a voice already playing key on channel, otherwise
// takes a free voice, then the quietest releasing voice, then the oldest.
func (e *Engine) allocVoice(channel, key int) int {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.channel == channel && v.key == key {
			return i
		}
	}
	for i := range e.voices {
		if !e.voices[i].active {
			return i
		}
	}
	quiet, oldest := -1, 0
	for i := range e.voices {
		v := &e.voices[i]
		if v.envState == envRelease && (quiet < 0 || v.env < e.voices[quiet].env) {
			quiet = i
		}
		if v.age < e.voices[oldest].age {
			oldest = i
		}
	}
	if quiet >= 0 {
		return quiet
	}
	return oldest
}

func (e *Engine) advanceEnv(v *voice) float64 {
	switch v.envState {
	case envAttack:
		step := 1.0
		if e.params.AttackSec > 0 {
			step = 1.0 / (e.params.AttackSec * e.sampleRate)
		}
		v.env += step
		if v.env >= 1 {
			v.env = 1
			v.envState = envDecay
		}
	case envDecay:
		step := 1.0
		if e.params.DecaySec > 0 {
			step = (1 - e.params.SustainLvl) / (e.params.DecaySec * e.sampleRate)
		}
		v.env -= step
		if v.env <= e.params.SustainLvl {
			v.env = e.params.SustainLvl
			v.envState = envSustain
		}
	case envSustain:
		// hold
	case envRelease:
		step := 1.0
		if e.params.ReleaseSec > 0 {
			step = max(e.params.SustainLvl, 0.01) / (e.params.ReleaseSec * e.sampleRate)
		}
		v.env -= step
		if v.env <= 0.0001 {
			*v = voice{}
		}
	case envOff:
		*v = voice{}
	}
	return v.env
}

func midiToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var (
	_ engine.Engine           = (*Engine)(nil)
	_ engine.GainSetter       = (*Engine)(nil)
	_ engine.PressureReceiver = (*Engine)(nil)
)
