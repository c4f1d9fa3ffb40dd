// Package lfo provides the low-frequency oscillator behind wavetable vibrato.
package lfo

import "math"

// Shape selects the oscillator waveform.
type Shape int

const (
	Triangle Shape = iota
	Sine
	Square
	Saw
)

// LFO produces one modulation value per sample. Depth is in caller units
// (semitones for vibrato). The zero value is silent.
type LFO struct {
	depth  float64
	rateHz float64
	shape  Shape
	phase  float64 // [0, 1)
}

// New returns an LFO with the given rate and shape and zero depth.
func New(rateHz float64, shape Shape) LFO {
	return LFO{rateHz: rateHz, shape: shape}
}

// SetDepth changes the modulation depth without disturbing the phase.
func (l *LFO) SetDepth(depth float64) { l.depth = depth }

// Depth returns the current modulation depth.
func (l *LFO) Depth() float64 { return l.depth }

// Sample returns the current value in [-depth, +depth] and advances the phase.
// The phase keeps running at zero depth so modulation resumes smoothly.
func (l *LFO) Sample(sampleRate float64) float64 {
	if l.rateHz == 0 || sampleRate <= 0 {
		return 0
	}
	var v float64
	switch l.shape {
	case Sine:
		v = math.Sin(2 * math.Pi * l.phase)
	case Square:
		if l.phase < 0.5 {
			v = 1
		} else {
			v = -1
		}
	case Saw:
		v = 1 - 2*l.phase
	default:
		if l.phase < 0.5 {
			v = 4*l.phase - 1
		} else {
			v = 3 - 4*l.phase
		}
	}
	l.phase += l.rateHz / sampleRate
	for l.phase >= 1 {
		l.phase--
	}
	return v * l.depth
}

// Reset zeros the phase.
func (l *LFO) Reset() { l.phase = 0 }
