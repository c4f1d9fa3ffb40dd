package sfsampler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeEngine records every command the instrument issues. A bank loads when
// the file exists and does not contain "broken".
type fakeEngine struct {
	calls    []string
	presets  []PresetInfo
	loaded   bool
	level    float32
	renders  []int
	gain     float64
	settings EngineSettings
}

func (f *fakeEngine) record(format string, v ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, v...))
}

func (f *fakeEngine) LoadBank(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if strings.Contains(string(data), "broken") {
		return errors.New("corrupt bank")
	}
	f.loaded = true
	f.record("load %s", filepath.Base(path))
	return nil
}

func (f *fakeEngine) UnloadBank() error {
	f.loaded = false
	f.record("unload")
	return nil
}

func (f *fakeEngine) Loaded() bool { return f.loaded }

func (f *fakeEngine) VisitPresets(fn func(PresetInfo) bool) {
	for _, p := range f.presets {
		if !fn(p) {
			return
		}
	}
}

func (f *fakeEngine) SelectProgram(channel, bank, program int) {
	f.record("select %d %d %d", channel, bank, program)
}
func (f *fakeEngine) NoteOn(channel, key, velocity int) {
	f.record("on %d %d %d", channel, key, velocity)
}
func (f *fakeEngine) NoteOff(channel, key int) { f.record("off %d %d", channel, key) }
func (f *fakeEngine) AllNotesOff()             { f.record("all_notes_off") }
func (f *fakeEngine) ControlChange(channel, controller, value int) {
	f.record("cc %d %d %d", channel, controller, value)
}
func (f *fakeEngine) PitchBend(channel, value int) { f.record("bend %d %d", channel, value) }
func (f *fakeEngine) ChannelPressure(channel, pressure int) {
	f.record("pressure %d %d", channel, pressure)
}
func (f *fakeEngine) SetGain(gain float64) { f.gain = gain }

func (f *fakeEngine) Render(left, right []float32) {
	f.renders = append(f.renders, len(left))
	for i := range left {
		left[i] = f.level
		right[i] = -f.level
	}
}

func (f *fakeEngine) ActiveVoiceCount() int { return 3 }
func (f *fakeEngine) Close() error          { f.record("close"); return nil }

func (f *fakeEngine) reset() { f.calls = nil }

type captureLogger struct{ lines []string }

func (l *captureLogger) Printf(format string, v ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *captureLogger) contains(s string) bool {
	for _, line := range l.lines {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}

var defaultPresets = []PresetInfo{
	{Name: "Piano", Bank: 0, Program: 0, Numbered: true},
	{Name: "Organ", Bank: 0, Program: 16, Numbered: true},
	{Name: "Drums", Bank: 128, Program: 0, Numbered: true},
}

type fixture struct {
	root   string
	engine *fakeEngine
	logger *captureLogger
}

func newFixture(t *testing.T, banks ...string) *fixture {
	t.Helper()
	root := t.TempDir()
	if len(banks) > 0 {
		dir := filepath.Join(root, "soundfonts")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		for _, b := range banks {
			if err := os.WriteFile(filepath.Join(dir, b), []byte("bank"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return &fixture{
		root:   root,
		engine: &fakeEngine{presets: defaultPresets, level: 0.5},
		logger: &captureLogger{},
	}
}

func (fx *fixture) backend() Backend {
	return Backend{
		Name:      "sf2",
		Label:     "SF2",
		Noun:      "soundfont",
		Extension: ".sf2",
		New: func(s EngineSettings) (SynthesisEngine, error) {
			fx.engine.settings = s
			return fx.engine, nil
		},
	}
}

func (fx *fixture) open(t *testing.T, defaults string, opts ...Option) *Instrument {
	t.Helper()
	opts = append([]Option{WithBackend(fx.backend()), WithLogger(fx.logger)}, opts...)
	in, err := New(fx.root, defaults, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = in.Close() })
	return in
}

func mustGet(t *testing.T, in *Instrument, key string) string {
	t.Helper()
	v, ok := in.GetParam(key)
	if !ok {
		t.Fatalf("GetParam(%q) not found", key)
	}
	return v
}

func wantCalls(t *testing.T, f *fakeEngine, want ...string) {
	t.Helper()
	if len(f.calls) != len(want) {
		t.Fatalf("calls = %q, want %q", f.calls, want)
	}
	for i := range want {
		if f.calls[i] != want[i] {
			t.Fatalf("calls = %q, want %q", f.calls, want)
		}
	}
}
