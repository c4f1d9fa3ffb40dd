package sf2

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cbegin/sfsampler-go/internal/engine"
)

func newEngine(t *testing.T) engine.Engine {
	t.Helper()
	e, err := New(engine.Settings{SampleRate: 44100, BlockSize: 128, Polyphony: 64})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestNewRejectsInvalidSampleRate(t *testing.T) {
	if _, err := New(engine.Settings{}); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
}

func TestLoadBankFailures(t *testing.T) {
	e := newEngine(t)
	if err := e.LoadBank(filepath.Join(t.TempDir(), "missing.sf2")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	junk := filepath.Join(t.TempDir(), "junk.sf2")
	if err := os.WriteFile(junk, []byte("RIFF\x04\x00\x00\x00nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := e.LoadBank(junk); err == nil {
		t.Fatalf("expected error for malformed file")
	}
	if e.Loaded() {
		t.Fatalf("engine reports a bank after failed loads")
	}
}

func TestUnloadedEngineIsSilentAndInert(t *testing.T) {
	e := newEngine(t)
	left := []float32{1, 1, 1, 1}
	right := []float32{-1, -1, -1, -1}

	e.SelectProgram(0, 0, 1)
	e.NoteOn(0, 60, 100)
	e.PitchBend(0, 9000)
	e.ControlChange(0, 7, 100)
	e.Render(left, right)

	for i := range left {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("frame %d = (%v,%v), want silence", i, left[i], right[i])
		}
	}
	if n := e.ActiveVoiceCount(); n != 0 {
		t.Fatalf("ActiveVoiceCount = %d, want 0", n)
	}
	if err := e.UnloadBank(); err == nil {
		t.Fatalf("expected error unloading with no bank")
	}
	calls := 0
	e.VisitPresets(func(engine.PresetInfo) bool { calls++; return true })
	if calls != 0 {
		t.Fatalf("VisitPresets visited %d presets with no bank", calls)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewRejectsSettingsOutsideSynthLimits(t *testing.T) {
	cases := []engine.Settings{
		{SampleRate: 8000, BlockSize: 128, Polyphony: 64},
		{SampleRate: 200000, BlockSize: 128, Polyphony: 64},
		{SampleRate: 44100, BlockSize: 4, Polyphony: 64},
		{SampleRate: 44100, BlockSize: 2048, Polyphony: 64},
		{SampleRate: 44100, BlockSize: 128, Polyphony: 4},
		{SampleRate: 44100, BlockSize: 128, Polyphony: 300},
	}
	for _, s := range cases {
		if _, err := New(s); err == nil {
			t.Fatalf("New(%+v) accepted settings meltysynth rejects", s)
		}
	}
	if _, err := New(engine.Settings{SampleRate: 44100}); err != nil {
		t.Fatalf("zero block size and polyphony should mean meltysynth defaults: %v", err)
	}
}

func peak(buf []float32) float32 {
	var p float32
	for _, s := range buf {
		if s < 0 {
			s = -s
		}
		p = max(p, s)
	}
	return p
}

func TestValidBankPlays(t *testing.T) {
	path := writeTestBank(t, []testPreset{
		{name: "Strings", bank: 0, program: 48},
		{name: "Piano", bank: 0, program: 0},
	})
	e := newEngine(t)
	if err := e.LoadBank(path); err != nil {
		t.Fatalf("LoadBank: %v", err)
	}
	if !e.Loaded() {
		t.Fatalf("Loaded = false after successful load")
	}

	var got []engine.PresetInfo
	e.VisitPresets(func(p engine.PresetInfo) bool {
		got = append(got, p)
		return true
	})
	want := []engine.PresetInfo{
		{Name: "Strings", Bank: 0, Program: 48, Numbered: true},
		{Name: "Piano", Bank: 0, Program: 0, Numbered: true},
	}
	if len(got) != len(want) {
		t.Fatalf("presets = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("preset %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	left := make([]float32, 1024)
	right := make([]float32, 1024)
	e.SelectProgram(0, 0, 48)
	e.NoteOn(0, 60, 100)
	e.NoteOn(0, 64, 100)
	if n := e.ActiveVoiceCount(); n != 2 {
		t.Fatalf("ActiveVoiceCount = %d, want 2", n)
	}
	e.Render(left, right)
	if peak(left) == 0 || peak(right) == 0 {
		t.Fatalf("held notes rendered silence")
	}

	gs := e.(engine.GainSetter)
	gs.SetGain(0)
	e.Render(left, right)
	if p := peak(left); p != 0 {
		t.Fatalf("gain 0 peak = %v, want silence", p)
	}
	gs.SetGain(1)

	e.NoteOff(0, 60)
	if n := e.ActiveVoiceCount(); n != 1 {
		t.Fatalf("ActiveVoiceCount after NoteOff = %d, want 1", n)
	}
	e.AllNotesOff()
	if n := e.ActiveVoiceCount(); n != 0 {
		t.Fatalf("ActiveVoiceCount after AllNotesOff = %d, want 0", n)
	}

	if err := e.UnloadBank(); err != nil {
		t.Fatalf("UnloadBank: %v", err)
	}
	if e.Loaded() {
		t.Fatalf("Loaded = true after unload")
	}
}
