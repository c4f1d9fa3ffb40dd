package sfsampler

import (
	"github.com/cbegin/sfsampler-go/internal/engine"
	"github.com/cbegin/sfsampler-go/internal/midi"
)

// OnMIDI applies one channel-voice message. Note numbers are shifted by the
// octave transpose and clamped; every other message passes through
// unshifted. Program change selects a preset by position when it exists.
// Malformed messages are ignored. src does not affect routing.
func (in *Instrument) OnMIDI(msg []byte, src Source) {
	ev, ok := midi.Parse(msg)
	if !ok {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.engine == nil {
		return
	}
	in.dispatch(ev)
}

func (in *Instrument) dispatch(ev midi.Event) {
	ch := int(ev.Channel)
	switch ev.Kind {
	case midi.NoteOn:
		in.engine.NoteOn(ch, midi.Transpose(int(ev.Data1), in.transpose), int(ev.Data2))
	case midi.NoteOff:
		in.engine.NoteOff(ch, midi.Transpose(int(ev.Data1), in.transpose))
	case midi.ControlChange:
		if ev.Data1 == midi.CCAllNotesOff {
			in.engine.AllNotesOff()
			return
		}
		in.engine.ControlChange(ch, int(ev.Data1), int(ev.Data2))
	case midi.PitchBend:
		in.engine.PitchBend(ch, int(ev.Bend))
	case midi.ProgramChange:
		if int(ev.Data1) < len(in.presets) {
			in.selectPreset(int(ev.Data1))
		}
	case midi.ChannelPressure:
		if pr, ok := in.engine.(engine.PressureReceiver); ok {
			pr.ChannelPressure(ch, int(ev.Data1))
		}
	}
}
