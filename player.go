package sfsampler

import (
	"errors"
	"sync"
	"time"

	intaudio "github.com/cbegin/sfsampler-go/internal/audio"
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	bufferSize time.Duration
	sampleTap  func([]int16)
}

// WithBufferSize sets the output driver buffer. Smaller buffers lower the
// latency between OnMIDI and sound.
func WithBufferSize(d time.Duration) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.bufferSize = d
	}
}

// WithSampleTap installs a callback invoked with each rendered block.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]int16)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

// Player streams an Instrument to the system audio output.
type Player struct {
	mu    sync.Mutex
	inst  *Instrument
	cfg   playerConfig
	audio *intaudio.Player
}

type tappedSource struct {
	inst *Instrument
	tap  func([]int16)
}

func (s tappedSource) RenderBlock(dst []int16) {
	s.inst.RenderBlock(dst)
	if s.tap != nil {
		s.tap(dst)
	}
}

func NewPlayer(inst *Instrument, opts ...PlayerOption) (*Player, error) {
	if inst == nil {
		return nil, errors.New("nil instrument")
	}
	cfg := playerConfig{bufferSize: 20 * time.Millisecond}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Player{inst: inst, cfg: cfg}, nil
}

// Play opens the output stream if needed and starts it.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		var src intaudio.BlockSource = p.inst
		if p.cfg.sampleTap != nil {
			src = tappedSource{inst: p.inst, tap: p.cfg.sampleTap}
		}
		backend, err := intaudio.NewPlayer(p.inst.SampleRate(), p.cfg.bufferSize, src)
		if err != nil {
			return err
		}
		p.audio = backend
	}
	p.audio.Play()
	return nil
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audio != nil && p.audio.IsPlaying()
}

// Stop closes the output stream. Play opens a new one.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	return err
}

// PlaybackPosition returns the output position in frames, i.e. what the
// listener hears right now. Returns 0 if not playing.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	return int64(a.Position().Seconds() * float64(p.inst.SampleRate()))
}
