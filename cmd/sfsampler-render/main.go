package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/sfsampler-go"
)

// A note script has one event per line:
//
//	<start seconds> <key> <velocity> <duration seconds>
//	cc <start seconds> <controller> <value>
//	program <start seconds> <program>
//
// Blank lines and lines starting with # are skipped. Files ending in .mml
// and the -mml flag are read as MML instead.

// defaultPhrase is rendered when neither -script nor -mml is given.
const defaultPhrase = "t120 o5 l8 c e g > c < g e c4 r8 q8 [c e g]2 c2; t120 o4 l2 r1 c g c1"

func main() {
	var (
		dir        = flag.String("dir", ".", "instrument directory (banks are read from <dir>/soundfonts)")
		engineName = flag.String("engine", "sf2", "synthesis engine: sf2|wavetable")
		sampleRate = flag.Int("sample-rate", sfsampler.DefaultSampleRate, "output sample rate")
		soundfont  = flag.String("soundfont", "", "bank file to render with")
		preset     = flag.Int("preset", 0, "preset index")
		octave     = flag.Int("octave", 0, "octave transpose (-4..+4)")
		gain       = flag.Float64("gain", 1.0, "output gain (0..2)")
		scriptPath = flag.String("script", "", "note script or .mml file (default: a short phrase)")
		mmlText    = flag.String("mml", "", "MML text to render")
		tail       = flag.Float64("tail", 1.0, "seconds rendered after the last event")
		outPath    = flag.String("o", "out.wav", "output WAV path")
	)
	flag.Parse()

	events, end, err := loadEvents(*scriptPath, *mmlText, *sampleRate)
	if err != nil {
		log.Fatal(err)
	}

	defaults := ""
	if *soundfont != "" {
		defaults = fmt.Sprintf(`{"soundfont_path":%q}`, *soundfont)
	}
	inst, err := sfsampler.New(*dir, defaults,
		sfsampler.WithEngine(sfsampler.EngineMode(*engineName)),
		sfsampler.WithSampleRate(*sampleRate),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer inst.Close()
	if msg := inst.Error(); msg != "" {
		log.Fatal(msg)
	}
	inst.SetParam("preset", strconv.Itoa(*preset))
	inst.SetParam("octave_transpose", strconv.Itoa(*octave))
	inst.SetParam("gain", strconv.FormatFloat(*gain, 'f', -1, 64))

	frames := end + int(*tail*float64(*sampleRate))
	samples := sfsampler.RenderOffline(inst, events, frames)

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := sfsampler.WriteWAV(f, *sampleRate, samples); err != nil {
		f.Close()
		log.Fatal(err)
	}
	if err := f.Close(); err != nil {
		log.Fatal(err)
	}
	name, _ := inst.GetParam("preset_name")
	fmt.Printf("wrote %s (%d frames, preset %s)\n", *outPath, frames, name)
}

// loadEvents reads the events to render from an inline MML string, a script
// file or the default phrase, in that order of preference.
func loadEvents(scriptPath, mmlText string, sampleRate int) ([]sfsampler.TimedMessage, int, error) {
	switch {
	case mmlText != "":
		return sfsampler.ParseMML(mmlText, sampleRate)
	case scriptPath == "":
		return sfsampler.ParseMML(defaultPhrase, sampleRate)
	}
	bt, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, 0, err
	}
	if strings.EqualFold(filepath.Ext(scriptPath), ".mml") {
		return sfsampler.ParseMML(string(bt), sampleRate)
	}
	return parseScript(strings.NewReader(string(bt)), sampleRate)
}

// parseScript converts a note script into timed messages on channel 0 and
// returns the frame of the last event.
func parseScript(r io.Reader, sampleRate int) ([]sfsampler.TimedMessage, int, error) {
	toFrame := func(sec float64) int { return int(sec * float64(sampleRate)) }
	var (
		events []sfsampler.TimedMessage
		end    int
	)
	add := func(frame int, msg gomidi.Message) {
		events = append(events, sfsampler.TimedMessage{Frame: frame, Msg: msg.Bytes()})
		end = max(end, frame)
	}

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "cc":
			if len(fields) != 4 {
				return nil, 0, fmt.Errorf("line %d: want cc <time> <controller> <value>", line)
			}
			at, err1 := cast.ToFloat64E(fields[1])
			ctl, err2 := cast.ToUint8E(fields[2])
			val, err3 := cast.ToUint8E(fields[3])
			if err := firstErr(err1, err2, err3); err != nil {
				return nil, 0, fmt.Errorf("line %d: %w", line, err)
			}
			add(toFrame(at), gomidi.ControlChange(0, ctl, val))
		case "program":
			if len(fields) != 3 {
				return nil, 0, fmt.Errorf("line %d: want program <time> <program>", line)
			}
			at, err1 := cast.ToFloat64E(fields[1])
			prog, err2 := cast.ToUint8E(fields[2])
			if err := firstErr(err1, err2); err != nil {
				return nil, 0, fmt.Errorf("line %d: %w", line, err)
			}
			add(toFrame(at), gomidi.ProgramChange(0, prog))
		default:
			if len(fields) != 4 {
				return nil, 0, fmt.Errorf("line %d: want <time> <key> <velocity> <duration>", line)
			}
			at, err1 := cast.ToFloat64E(fields[0])
			key, err2 := cast.ToUint8E(fields[1])
			vel, err3 := cast.ToUint8E(fields[2])
			dur, err4 := cast.ToFloat64E(fields[3])
			if err := firstErr(err1, err2, err3, err4); err != nil {
				return nil, 0, fmt.Errorf("line %d: %w", line, err)
			}
			add(toFrame(at), gomidi.NoteOn(0, key&0x7F, vel&0x7F))
			add(toFrame(at+dur), gomidi.NoteOff(0, key&0x7F))
		}
	}
	return events, end, sc.Err()
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
