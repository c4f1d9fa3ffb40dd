package sfsampler

import (
	"errors"
	"io"
	"sort"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// TimedMessage is a MIDI message scheduled at an absolute frame.
type TimedMessage struct {
	Frame int
	Msg   []byte
}

// RenderOffline renders frames stereo frames, applying each message at its
// frame before the audio from that frame on is rendered. Messages past the
// end are dropped. The result is interleaved 16-bit stereo.
func RenderOffline(inst *Instrument, events []TimedMessage, frames int) []int16 {
	if frames <= 0 {
		return nil
	}
	evs := make([]TimedMessage, len(events))
	copy(evs, events)
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].Frame < evs[j].Frame })

	out := make([]int16, frames*2)
	pos, next := 0, 0
	for pos < frames {
		for next < len(evs) && evs[next].Frame <= pos {
			inst.OnMIDI(evs[next].Msg, SourceInternal)
			next++
		}
		end := frames
		if next < len(evs) && evs[next].Frame < end {
			end = evs[next].Frame
		}
		inst.RenderBlock(out[pos*2 : end*2])
		pos = end
	}
	return out
}

// WriteWAV encodes interleaved 16-bit stereo samples as a PCM WAV file.
func WriteWAV(w io.WriteSeeker, sampleRate int, samples []int16) error {
	if sampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}
	data := make([]float32, len(samples))
	for i, s := range samples {
		data[i] = float32(s) / 32767
	}
	enc := wav.NewEncoder(w, sampleRate, 16, 2, 1)
	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 2,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
