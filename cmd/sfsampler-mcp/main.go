package main

import (
	"flag"
	"log"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/cbegin/sfsampler-go"
	"github.com/cbegin/sfsampler-go/internal/config"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a JSON config file")
		dir        = flag.String("dir", ".", "instrument directory (banks are read from <dir>/soundfonts)")
		engineName = flag.String("engine", "sf2", "synthesis engine: sf2|wavetable")
		mute       = flag.Bool("mute", false, "do not open the audio output")
		bufferSize = flag.Duration("buffer", 30*time.Millisecond, "audio output buffer")
	)
	flag.Parse()

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

	if !*mute {
		pl, err := sfsampler.NewPlayer(inst, sfsampler.WithBufferSize(*bufferSize))
		if err != nil {
			log.Fatal(err)
		}
		if err := pl.Play(); err != nil {
			log.Printf("audio output unavailable: %v", err)
		} else {
			defer pl.Stop()
		}
	}

	s := newServer(inst)
	log.Println("Starting sampler MCP server...")
	if err := server.ServeStdio(s); err != nil {
		log.Printf("Server error: %v", err)
	}
}
