// Package mml parses Music Macro Language text into tick-timed note and
// control events, one track per ';'-separated part.
package mml

type EventType int

const (
	EventNote EventType = iota + 1
	EventRest
	EventTempo
	EventVolume
	EventProgram
	EventPan
	EventExpression
	EventTranspose
	EventQuantize
	EventControl
)

// Event is one timed item of a track. Tick and Duration are in parser
// ticks; Value holds the velocity for notes and the new setting otherwise.
type Event struct {
	Type       EventType
	Tick       int
	Duration   int
	Note       int
	Value      int
	Program    int
	Pan        int
	Controller int
}

type Track struct {
	Events  []Event
	EndTick int
}

type Score struct {
	Resolution int
	InitialBPM float64
	Tracks     []Track
}

// ParserConfig sets the defaults every track starts from. Resolution is
// ticks per whole note; OctavePolarize -1 makes '>' raise the octave.
type ParserConfig struct {
	Resolution     int
	DefaultBPM     float64
	DefaultLValue  int
	DefaultOctave  int
	MinOctave      int
	MaxOctave      int
	DefaultVolume  int
	MaxVolume      int
	OctavePolarize int
}

func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		Resolution:     1920,
		DefaultBPM:     120,
		DefaultLValue:  4,
		DefaultOctave:  5,
		MinOctave:      0,
		MaxOctave:      9,
		DefaultVolume:  16,
		MaxVolume:      16,
		OctavePolarize: -1,
	}
}
