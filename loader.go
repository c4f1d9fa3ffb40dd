package sfsampler

import (
	"fmt"
	"path/filepath"

	"github.com/cbegin/sfsampler-go/internal/engine"
	"github.com/cbegin/sfsampler-go/internal/preset"
)

// load replaces the current bank with the file at path. The previous preset
// index is dropped before the attempt, so a failed load leaves none.
func (in *Instrument) load(path string) bool {
	if in.engine == nil {
		return false
	}
	if in.engine.Loaded() {
		if err := in.engine.UnloadBank(); err != nil {
			in.logf("Unload failed: %v", err)
		}
	}
	in.presets = nil
	in.presetIndex = 0

	label := in.backend.Label
	in.logf("Loading %s: %s", label, path)
	if err := in.engine.LoadBank(path); err != nil {
		in.logf("Failed to load %s: %s (%v)", label, path, err)
		in.bankName = "Load failed"
		in.presetName = ""
		in.loadError = fmt.Sprintf("%s: failed to load %s", label, in.backend.Noun)
		return false
	}
	in.loadError = ""
	in.presets = preset.Rebuild(in.engine, in.logger)
	in.bankName = filepath.Base(path)
	in.bankPath = path
	in.logf("%s loaded: %d presets", label, len(in.presets))

	if len(in.presets) > 0 {
		p := in.presets[0]
		in.presetName = p.Name
		in.engine.SelectProgram(0, p.Bank, p.Program)
	} else {
		in.presetName = ""
	}
	in.applyGain()
	return true
}

// selectBank wraps index onto the catalog and loads that entry.
func (in *Instrument) selectBank(index int) {
	if len(in.banks) == 0 {
		return
	}
	in.bankIndex = preset.Wrap(index, len(in.banks))
	in.load(in.banks[in.bankIndex].Path)
}

// selectPreset wraps index onto the preset index and binds channel 0 to it.
// Sounding voices are released first when the preset actually changes.
func (in *Instrument) selectPreset(index int) {
	if in.engine == nil || len(in.presets) == 0 {
		return
	}
	index = preset.Wrap(index, len(in.presets))
	if index != in.presetIndex {
		in.engine.AllNotesOff()
	}
	in.presetIndex = index
	p := in.presets[index]
	in.presetName = p.Name
	in.engine.SelectProgram(0, p.Bank, p.Program)
	in.logf("Preset %d: %s (bank %d, prog %d)", index, p.Name, p.Bank, p.Program)
}

func (in *Instrument) applyGain() {
	if g, ok := in.engine.(engine.GainSetter); ok {
		g.SetGain(in.gain)
	}
}
