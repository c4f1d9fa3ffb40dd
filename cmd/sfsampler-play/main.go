package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cbegin/sfsampler-go"
	"github.com/cbegin/sfsampler-go/internal/config"
	"github.com/cbegin/sfsampler-go/internal/midi"
)

// demoPhrase is played when no MIDI device is given: a rising arpeggio over
// a held bass line and a final chord.
const demoPhrase = "t120 o5 l16 c e g > c e g > c4 < < q8 [c e g]2 c2; t120 o3 l2 q8 c g c1"

func main() {
	var (
		configPath  = flag.String("config", "", "path to a JSON config file")
		dir         = flag.String("dir", ".", "instrument directory (banks are read from <dir>/soundfonts)")
		engineName  = flag.String("engine", "sf2", "synthesis engine: sf2|wavetable")
		sampleRate  = flag.Int("sample-rate", sfsampler.DefaultSampleRate, "output sample rate")
		blockSize   = flag.Int("block-size", sfsampler.DefaultBlockSize, "render block size in frames")
		polyphony   = flag.Int("polyphony", sfsampler.DefaultPolyphony, "maximum voices")
		device      = flag.String("device", "", "MIDI input device name (substring match); empty plays a demo phrase")
		soundfont   = flag.String("soundfont", "", "bank file to start with")
		octave      = flag.Int("octave", 0, "octave transpose (-4..+4)")
		gain        = flag.Float64("gain", 1.0, "output gain (0..2)")
		stateFile   = flag.String("state", "", "file to restore the instrument state from and save it to on exit")
		bufferSize  = flag.Duration("buffer", 20*time.Millisecond, "audio output buffer")
		mmlText     = flag.String("mml", demoPhrase, "MML played when no MIDI device is given")
		listDevices = flag.Bool("list-devices", false, "print MIDI input devices and exit")
	)
	flag.Parse()

	if *listDevices {
		names, err := midi.ListInputs()
		if err != nil {
			log.Fatal(err)
		}
		for i, name := range names {
			fmt.Printf("%d: %s\n", i, name)
		}
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dir":
			cfg.InstrumentDir = *dir
		case "engine":
			cfg.Engine = *engineName
		case "sample-rate":
			cfg.SampleRate = *sampleRate
		case "block-size":
			cfg.BlockSize = *blockSize
		case "polyphony":
			cfg.Polyphony = *polyphony
		case "device":
			cfg.MIDIDevice = *device
		case "soundfont":
			cfg.SoundfontPath = *soundfont
		case "octave":
			cfg.OctaveTranspose = *octave
		case "gain":
			cfg.Gain = *gain
		case "state":
			cfg.StateFile = *stateFile
		}
	})

	inst, err := sfsampler.New(cfg.InstrumentDir, cfg.DefaultsBlob(),
		sfsampler.WithEngine(sfsampler.EngineMode(cfg.Engine)),
		sfsampler.WithSampleRate(cfg.SampleRate),
		sfsampler.WithBlockSize(cfg.BlockSize),
		sfsampler.WithPolyphony(cfg.Polyphony),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer inst.Close()

	inst.SetParam("octave_transpose", strconv.Itoa(cfg.OctaveTranspose))
	inst.SetParam("gain", strconv.FormatFloat(cfg.Gain, 'f', -1, 64))
	restoreState(inst, cfg.StateFile)
	if msg := inst.Error(); msg != "" {
		log.Printf("warning: %s", msg)
	}
	name, _ := inst.GetParam("soundfont_name")
	preset, _ := inst.GetParam("preset_name")
	fmt.Printf("bank: %s, preset: %s\n", name, preset)

	pl, err := sfsampler.NewPlayer(inst, sfsampler.WithBufferSize(*bufferSize))
	if err != nil {
		log.Fatal(err)
	}
	if err := pl.Play(); err != nil {
		log.Fatal(err)
	}
	defer pl.Stop()

	if cfg.MIDIDevice == "" {
		events, end, err := sfsampler.ParseMML(*mmlText, inst.SampleRate())
		if err != nil {
			log.Fatalf("mml: %v", err)
		}
		playEvents(events, end+inst.SampleRate()/2, inst.SampleRate(), func(msg []byte) {
			inst.OnMIDI(msg, sfsampler.SourceInternal)
		})
	} else {
		in, err := midi.OpenInput(cfg.MIDIDevice, func(raw []byte) {
			inst.OnMIDI(raw, sfsampler.SourceExternal)
		})
		if err != nil {
			log.Fatal(err)
		}
		defer in.Close()
		fmt.Println("listening; press Ctrl-C to quit")
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
	}

	inst.SetParam("all_notes_off", "")
	saveState(inst, cfg.StateFile)
}

// playEvents sends each message when the wall clock reaches its frame and
// returns once end frames have elapsed.
func playEvents(events []sfsampler.TimedMessage, end, sampleRate int, send func([]byte)) {
	start := time.Now()
	at := func(frame int) time.Time {
		return start.Add(time.Duration(frame) * time.Second / time.Duration(sampleRate))
	}
	for _, ev := range events {
		time.Sleep(time.Until(at(ev.Frame)))
		send(ev.Msg)
	}
	time.Sleep(time.Until(at(end)))
}

func restoreState(inst *sfsampler.Instrument, path string) {
	if path == "" {
		return
	}
	bt, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("read state: %v", err)
		}
		return
	}
	inst.SetParam("state", string(bt))
}

func saveState(inst *sfsampler.Instrument, path string) {
	if path == "" {
		return
	}
	state, _ := inst.GetParam("state")
	if err := os.WriteFile(path, []byte(state+"\n"), 0o644); err != nil {
		log.Printf("write state: %v", err)
	}
}
