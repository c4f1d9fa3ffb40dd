// Package engine declares the capability surface a sample-based synthesis
// backend exposes to the instrument core.
package engine

// PresetInfo describes one preset of the loaded bank as the backend reports it.
// Name is empty when the backend has no name for the preset. Numbered is false
// when the backend cannot report bank/program numbers.
type PresetInfo struct {
	Name     string
	Bank     int
	Program  int
	Numbered bool
}

// Engine is the synthesis backend driven by an instrument instance. Channels
// are 0-15, keys and controller values 0-127, pitch bend 0-16383 (8192 centre).
type Engine interface {
	// LoadBank loads the bank file at path, replacing nothing: callers unload first.
	LoadBank(path string) error
	// UnloadBank drops the current bank and silences every voice bound to it.
	UnloadBank() error
	// Loaded reports whether a bank is currently loaded.
	Loaded() bool
	// VisitPresets calls fn for every preset of the loaded bank in the backend's
	// native order until fn returns false.
	VisitPresets(fn func(PresetInfo) bool)
	// SelectProgram binds channel to the preset addressed by bank/program.
	SelectProgram(channel, bank, program int)
	NoteOn(channel, key, velocity int)
	NoteOff(channel, key int)
	// AllNotesOff releases every sounding voice on every channel.
	AllNotesOff()
	ControlChange(channel, controller, value int)
	PitchBend(channel, value int)
	// Render writes len(left) stereo frames. It must not allocate.
	Render(left, right []float32)
	// ActiveVoiceCount returns the number of voices still sounding.
	ActiveVoiceCount() int
	// Close releases the backend. The engine is unusable afterwards.
	Close() error
}

// GainSetter is implemented by engines with an output gain control.
type GainSetter interface {
	SetGain(gain float64)
}

// PressureReceiver is implemented by engines that respond to channel pressure.
type PressureReceiver interface {
	ChannelPressure(channel, pressure int)
}

// Settings carries the host audio configuration into a backend constructor.
type Settings struct {
	SampleRate int
	BlockSize  int
	Polyphony  int
}

// Factory constructs a backend engine.
type Factory func(Settings) (Engine, error)

// Backend describes a concrete engine: its short name (used as the log
// prefix), the display label used in load errors and UI descriptors, the noun
// for its bank files and the bank file extension it scans for.
type Backend struct {
	Name      string
	Label     string
	Noun      string
	Extension string
	New       Factory
}
