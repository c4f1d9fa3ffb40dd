package sfsampler

import (
	"fmt"
	"sort"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/sfsampler-go/internal/mml"
)

// ParseMML converts MML text into timed MIDI messages at sampleRate. Each
// ';'-separated track plays on its own channel, track 0 on channel 0. Tempo
// changes apply to every track from their tick on. The second result is the
// frame at which the longest track ends.
func ParseMML(text string, sampleRate int) ([]TimedMessage, int, error) {
	if sampleRate <= 0 {
		return nil, 0, fmt.Errorf("mml: sample rate %d must be positive", sampleRate)
	}
	score, err := mml.NewParser(mml.DefaultParserConfig()).Parse(text)
	if err != nil {
		return nil, 0, err
	}
	if len(score.Tracks) > 16 {
		return nil, 0, fmt.Errorf("mml: %d tracks, at most 16 channels", len(score.Tracks))
	}
	clock := newTempoMap(score, sampleRate)

	type timed struct {
		TimedMessage
		release bool
	}
	var (
		out []timed
		end int
	)
	add := func(tick int, msg gomidi.Message, release bool) {
		out = append(out, timed{TimedMessage{Frame: clock.frame(tick), Msg: msg.Bytes()}, release})
	}
	for n, tr := range score.Tracks {
		ch := uint8(n)
		for _, ev := range tr.Events {
			switch ev.Type {
			case mml.EventNote:
				if ev.Duration <= 0 || ev.Value <= 0 {
					continue
				}
				key := uint8(ev.Note)
				add(ev.Tick, gomidi.NoteOn(ch, key, uint8(ev.Value)), false)
				add(ev.Tick+ev.Duration, gomidi.NoteOff(ch, key), true)
			case mml.EventProgram:
				add(ev.Tick, gomidi.ProgramChange(ch, uint8(ev.Value)), false)
			case mml.EventPan:
				add(ev.Tick, gomidi.ControlChange(ch, 10, uint8(max(0, min(127, 64+ev.Value)))), false)
			case mml.EventExpression:
				add(ev.Tick, gomidi.ControlChange(ch, 11, uint8(ev.Value)), false)
			case mml.EventControl:
				add(ev.Tick, gomidi.ControlChange(ch, uint8(ev.Controller), uint8(ev.Value)), false)
			}
		}
		end = max(end, clock.frame(tr.EndTick))
	}

	// At equal frames note-offs sort first.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Frame != out[j].Frame {
			return out[i].Frame < out[j].Frame
		}
		return out[i].release && !out[j].release
	})
	msgs := make([]TimedMessage, len(out))
	for i, t := range out {
		msgs[i] = t.TimedMessage
	}
	return msgs, end, nil
}

type tempoChange struct {
	tick    int
	seconds float64
	bpm     float64
}

// tempoMap converts score ticks to frames across tempo changes.
type tempoMap struct {
	resolution int
	sampleRate int
	changes    []tempoChange
}

func newTempoMap(score *mml.Score, sampleRate int) *tempoMap {
	type point struct {
		tick int
		bpm  float64
	}
	var points []point
	for _, tr := range score.Tracks {
		for _, ev := range tr.Events {
			if ev.Type == mml.EventTempo {
				points = append(points, point{ev.Tick, float64(ev.Value)})
			}
		}
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].tick < points[j].tick })

	m := &tempoMap{resolution: score.Resolution, sampleRate: sampleRate}
	m.changes = []tempoChange{{tick: 0, bpm: score.InitialBPM}}
	for _, p := range points {
		last := &m.changes[len(m.changes)-1]
		if p.tick == last.tick {
			last.bpm = p.bpm
			continue
		}
		m.changes = append(m.changes, tempoChange{
			tick:    p.tick,
			seconds: last.seconds + m.span(p.tick-last.tick, last.bpm),
			bpm:     p.bpm,
		})
	}
	return m
}

// span is the length in seconds of ticks at bpm quarter notes per minute.
func (m *tempoMap) span(ticks int, bpm float64) float64 {
	return float64(ticks) * 60 / (bpm * float64(m.resolution) / 4)
}

func (m *tempoMap) frame(tick int) int {
	i := sort.Search(len(m.changes), func(i int) bool { return m.changes[i].tick > tick }) - 1
	c := m.changes[max(i, 0)]
	sec := c.seconds + m.span(tick-c.tick, c.bpm)
	return int(sec*float64(m.sampleRate) + 0.5)
}
