// Package sfsampler is a polyphonic sampler instrument. An Instrument maps
// channel-voice MIDI messages and string-keyed parameters onto presets of a
// bank file and renders interleaved stereo 16-bit blocks.
package sfsampler

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/buger/jsonparser"

	"github.com/cbegin/sfsampler-go/internal/catalog"
	"github.com/cbegin/sfsampler-go/internal/engine"
	"github.com/cbegin/sfsampler-go/internal/midi"
	"github.com/cbegin/sfsampler-go/internal/preset"
	"github.com/cbegin/sfsampler-go/internal/sf2"
	"github.com/cbegin/sfsampler-go/internal/wavetable"
)

type (
	// SynthesisEngine is the backend capability surface an Instrument drives.
	SynthesisEngine = engine.Engine
	// PresetInfo describes one preset as a backend reports it.
	PresetInfo = engine.PresetInfo
	// EngineSettings carries the audio configuration into a backend.
	EngineSettings = engine.Settings
	// Backend names a backend and constructs it.
	Backend = engine.Backend
	// Source tags where a MIDI message came from.
	Source = midi.Source
)

const (
	SourceInternal = midi.SourceInternal
	SourceExternal = midi.SourceExternal
)

// Logger is the logging sink of an Instrument. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

type EngineMode string

const (
	EngineSF2       EngineMode = "sf2"
	EngineWavetable EngineMode = "wavetable"
)

const (
	DefaultSampleRate = 44100
	DefaultBlockSize  = 128
	DefaultPolyphony  = 64

	minTranspose = -4
	maxTranspose = 4
	maxGain      = 2.0
)

type Option func(*instrumentConfig)

type instrumentConfig struct {
	sampleRate int
	blockSize  int
	polyphony  int
	logger     Logger
	backend    engine.Backend
	modeErr    error
}

func defaultInstrumentConfig() instrumentConfig {
	return instrumentConfig{
		sampleRate: DefaultSampleRate,
		blockSize:  DefaultBlockSize,
		polyphony:  DefaultPolyphony,
		backend:    sf2.Backend,
	}
}

func WithSampleRate(rate int) Option {
	return func(cfg *instrumentConfig) {
		cfg.sampleRate = rate
	}
}

// WithBlockSize sets the render chunk in frames. Larger RenderBlock requests
// are rendered in chunks of this size.
func WithBlockSize(frames int) Option {
	return func(cfg *instrumentConfig) {
		cfg.blockSize = frames
	}
}

func WithPolyphony(voices int) Option {
	return func(cfg *instrumentConfig) {
		cfg.polyphony = voices
	}
}

// WithLogger replaces the default stderr logger.
func WithLogger(l Logger) Option {
	return func(cfg *instrumentConfig) {
		cfg.logger = l
	}
}

// WithEngine selects one of the built-in backends.
func WithEngine(mode EngineMode) Option {
	return func(cfg *instrumentConfig) {
		b, err := BackendFor(mode)
		if err != nil {
			cfg.modeErr = err
			return
		}
		cfg.backend = b
	}
}

// WithBackend installs a custom synthesis backend.
func WithBackend(b Backend) Option {
	return func(cfg *instrumentConfig) {
		cfg.backend = b
	}
}

// BackendFor returns the built-in backend for mode.
func BackendFor(mode EngineMode) (Backend, error) {
	switch EngineMode(strings.ToLower(string(mode))) {
	case EngineSF2, "":
		return sf2.Backend, nil
	case EngineWavetable:
		return wavetable.Backend, nil
	default:
		return Backend{}, errors.New("unknown engine mode")
	}
}

// Instrument is one sampler instance. It owns its synthesis engine
// exclusively. Control methods are safe for concurrent use; RenderBlock never
// waits on them.
type Instrument struct {
	mu sync.Mutex

	root       string
	backend    engine.Backend
	engine     engine.Engine
	logger     Logger
	sampleRate int

	banks     catalog.List
	bankIndex int
	bankName  string
	bankPath  string
	loadError string

	presets     []preset.Entry
	presetIndex int
	presetName  string

	transpose int
	gain      float64

	left  []float32
	right []float32

	uiHierarchy string
}

// New creates an instrument rooted at root. Bank files are discovered under
// root/soundfonts. defaults is an optional JSON object whose soundfont_path
// names the bank to start with. New fails only when the backend cannot be
// constructed; a missing or broken bank leaves a silent, usable instrument.
func New(root, defaults string, opts ...Option) (*Instrument, error) {
	cfg := defaultInstrumentConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.modeErr != nil {
		return nil, cfg.modeErr
	}
	if cfg.sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	if cfg.blockSize <= 0 {
		return nil, errors.New("block size must be positive")
	}
	if cfg.backend.New == nil {
		return nil, errors.New("backend has no constructor")
	}
	if cfg.logger == nil {
		cfg.logger = log.New(os.Stderr, "["+cfg.backend.Name+"] ", log.LstdFlags)
	}

	in := &Instrument{
		root:       root,
		backend:    cfg.backend,
		logger:     cfg.logger,
		sampleRate: cfg.sampleRate,
		bankName:   "No " + cfg.backend.Label + " loaded",
		gain:       1,
		left:       make([]float32, cfg.blockSize),
		right:      make([]float32, cfg.blockSize),
	}
	in.logf("Creating instance from: %s", root)

	eng, err := cfg.backend.New(engine.Settings{
		SampleRate: cfg.sampleRate,
		BlockSize:  cfg.blockSize,
		Polyphony:  cfg.polyphony,
	})
	if err != nil {
		in.logf("Failed to create %s engine: %v", cfg.backend.Label, err)
		return nil, err
	}
	in.engine = eng
	in.uiHierarchy = buildUIHierarchy(cfg.backend.Label)
	in.applyGain()

	hint := defaultsHint(defaults)
	in.banks = catalog.Scan(root, cfg.backend.Extension, in.logger)
	if idx, ok := in.banks.ResolveDefault(hint); ok {
		in.bankIndex = idx
		in.load(in.banks[idx].Path)
	} else if hint != "" {
		in.load(hint)
	} else {
		in.load(filepath.Join(root, "instrument"+cfg.backend.Extension))
	}

	in.logf("Instance created")
	return in, nil
}

// defaultsHint extracts soundfont_path from the defaults blob.
func defaultsHint(defaults string) string {
	if strings.TrimSpace(defaults) == "" {
		return ""
	}
	hint, err := jsonparser.GetString([]byte(defaults), "soundfont_path")
	if err != nil {
		return ""
	}
	return hint
}

// Close releases the engine. The instrument renders silence afterwards.
func (in *Instrument) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.engine == nil {
		return nil
	}
	in.logf("Instance destroying")
	err := in.engine.Close()
	in.engine = nil
	in.presets = nil
	return err
}

// SampleRate returns the rate blocks are rendered at.
func (in *Instrument) SampleRate() int { return in.sampleRate }

// Backend returns the backend descriptor the instrument was built with.
func (in *Instrument) Backend() Backend { return in.backend }

// Error returns the last bank load error, or "" after a successful load.
func (in *Instrument) Error() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.loadError
}

func (in *Instrument) logf(format string, v ...any) {
	in.logger.Printf(format, v...)
}
