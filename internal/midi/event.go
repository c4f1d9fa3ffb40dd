// Package midi decodes channel-voice messages for the instrument core and
// connects to live MIDI input ports.
package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// Kind classifies a decoded channel-voice message.
type Kind uint8

const (
	NoteOn Kind = iota + 1
	NoteOff
	ControlChange
	ProgramChange
	PitchBend
	ChannelPressure
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "note_on"
	case NoteOff:
		return "note_off"
	case ControlChange:
		return "control_change"
	case ProgramChange:
		return "program_change"
	case PitchBend:
		return "pitch_bend"
	case ChannelPressure:
		return "channel_pressure"
	default:
		return "unknown"
	}
}

// Controller numbers with fixed meaning in the core.
const (
	CCModulation    = 1
	CCVolume        = 7
	CCPan           = 10
	CCSustain       = 64
	CCAllSoundOff   = 120
	CCResetAll      = 121
	CCAllNotesOff   = 123
	PitchBendCenter = 8192
)

// Event is a normalized channel-voice message. Channel is 0-15. Data1 holds the
// key, controller, program or pressure; Data2 the velocity or controller value.
// Bend is the 14-bit pitch wheel position.
type Event struct {
	Kind    Kind
	Channel uint8
	Data1   uint8
	Data2   uint8
	Bend    uint16
}

// Source tags where a message entered the instrument.
type Source int

const (
	SourceInternal Source = iota
	SourceExternal
)

func (s Source) String() string {
	if s == SourceExternal {
		return "external"
	}
	return "internal"
}

// Parse decodes a 2 or 3 byte channel-voice message. Missing trailing data
// bytes read as zero, so a two byte note-on is a note-off. Messages shorter
// than two bytes, system messages and polyphonic aftertouch are rejected.
func Parse(raw []byte) (Event, bool) {
	if len(raw) < 2 {
		return Event{}, false
	}
	status := raw[0]
	if status < 0x80 || status >= 0xF0 {
		return Event{}, false
	}
	var buf [3]byte
	copy(buf[:], raw)
	buf[1] &= 0x7F
	buf[2] &= 0x7F
	size := 3
	if hi := status & 0xF0; hi == 0xC0 || hi == 0xD0 {
		size = 2
	}
	msg := gomidi.Message(buf[:size])

	var ch, a, b uint8
	switch {
	case msg.GetNoteStart(&ch, &a, &b):
		return Event{Kind: NoteOn, Channel: ch, Data1: a, Data2: b}, true
	case msg.GetNoteEnd(&ch, &a):
		return Event{Kind: NoteOff, Channel: ch, Data1: a}, true
	case msg.GetControlChange(&ch, &a, &b):
		return Event{Kind: ControlChange, Channel: ch, Data1: a, Data2: b}, true
	case msg.GetProgramChange(&ch, &a):
		return Event{Kind: ProgramChange, Channel: ch, Data1: a}, true
	case msg.GetAfterTouch(&ch, &a):
		return Event{Kind: ChannelPressure, Channel: ch, Data1: a}, true
	}
	if status&0xF0 == 0xE0 {
		bend := uint16(buf[2])<<7 | uint16(buf[1])
		return Event{Kind: PitchBend, Channel: status & 0x0F, Data1: buf[1], Data2: buf[2], Bend: bend}, true
	}
	return Event{}, false
}

// Transpose shifts key by whole octaves and clamps the result to the MIDI
// key range.
func Transpose(key, octaves int) int {
	k := key + octaves*12
	if k < 0 {
		return 0
	}
	if k > 127 {
		return 127
	}
	return k
}
