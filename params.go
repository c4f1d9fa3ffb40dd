package sfsampler

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/spf13/cast"

	"github.com/cbegin/sfsampler-go/internal/catalog"
)

// SetParam applies a parameter write. Unknown keys are ignored and numeric
// values parse permissively (unparseable text reads as 0) before clamping.
//
//	soundfont_path              load a bank by path
//	soundfont_index             load a catalog entry (wraps)
//	next_soundfont, prev_soundfont
//	preset                      select a preset by position (wraps)
//	octave_transpose            -4..4
//	gain                        0.0..2.0
//	all_notes_off, panic        release every voice
//	state                       restore a snapshot produced by GetParam("state")
func (in *Instrument) SetParam(key, value string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	switch key {
	case "soundfont_path":
		in.load(value)
		if i, ok := in.banks.Locate(value); ok {
			in.bankIndex = i
		}
	case "soundfont_index":
		in.selectBank(parseInt(value))
	case "next_soundfont":
		in.selectBank(in.bankIndex + 1)
	case "prev_soundfont":
		in.selectBank(in.bankIndex - 1)
	case "preset":
		in.selectPreset(parseInt(value))
	case "octave_transpose":
		in.setTranspose(parseInt(value))
	case "gain":
		in.setGain(parseFloat(value))
	case "all_notes_off", "panic":
		if in.engine != nil {
			in.engine.AllNotesOff()
		}
	case "state":
		in.restoreState([]byte(value))
	}
}

// GetParam reads a parameter. ok is false for unknown keys. Reading
// soundfont_list rescans the bank directory.
func (in *Instrument) GetParam(key string) (string, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	switch key {
	case "load_error":
		return in.loadError, true
	case "soundfont_name", "bank_name":
		return in.bankName, true
	case "soundfont_path":
		return in.bankPath, true
	case "soundfont_count", "bank_count":
		return strconv.Itoa(len(in.banks)), true
	case "soundfont_index":
		return strconv.Itoa(in.bankIndex), true
	case "preset", "current_patch":
		return strconv.Itoa(in.presetIndex), true
	case "patch_in_bank":
		return strconv.Itoa(in.presetIndex + 1), true
	case "preset_name", "patch_name", "name":
		return in.presetName, true
	case "preset_count", "total_patches":
		return strconv.Itoa(len(in.presets)), true
	case "octave_transpose":
		return strconv.Itoa(in.transpose), true
	case "gain":
		return fmt.Sprintf("%.2f", in.gain), true
	case "active_voices":
		if in.engine == nil {
			return "0", true
		}
		return strconv.Itoa(in.engine.ActiveVoiceCount()), true
	case "soundfont_list":
		in.rescan()
		return in.bankListJSON(), true
	case "state":
		return in.stateJSON(), true
	case "ui_hierarchy":
		return in.uiHierarchy, true
	}
	return "", false
}

// rescan reloads the catalog and moves bankIndex onto the entry of the bank
// that is loaded, so state snapshots and next/prev stay on it.
func (in *Instrument) rescan() {
	in.banks = catalog.Scan(in.root, in.backend.Extension, in.logger)
	if i, ok := in.banks.Locate(in.bankPath); ok && in.bankPath != "" {
		in.bankIndex = i
		return
	}
	if in.bankIndex >= len(in.banks) {
		in.bankIndex = max(0, len(in.banks)-1)
	}
}

func (in *Instrument) setTranspose(octaves int) {
	in.transpose = max(minTranspose, min(maxTranspose, octaves))
}

func (in *Instrument) setGain(gain float64) {
	in.gain = math.Max(0, math.Min(maxGain, gain))
	in.applyGain()
}

type bankListItem struct {
	Label string `json:"label"`
	Index int    `json:"index"`
}

func (in *Instrument) bankListJSON() string {
	items := make([]bankListItem, 0, len(in.banks))
	for i, b := range in.banks {
		items = append(items, bankListItem{Label: b.Name, Index: i})
	}
	bt, _ := json.Marshal(items)
	return string(bt)
}

type stateSnapshot struct {
	SoundfontName   string      `json:"soundfont_name"`
	SoundfontIndex  int         `json:"soundfont_index"`
	Preset          int         `json:"preset"`
	OctaveTranspose int         `json:"octave_transpose"`
	Gain            json.Number `json:"gain"`
}

// stateJSON records the bank by name as well as index: names survive files
// being added to or removed from the directory.
func (in *Instrument) stateJSON() string {
	s := stateSnapshot{
		SoundfontIndex:  in.bankIndex,
		Preset:          in.presetIndex,
		OctaveTranspose: in.transpose,
		Gain:            json.Number(fmt.Sprintf("%.2f", in.gain)),
	}
	if in.bankIndex >= 0 && in.bankIndex < len(in.banks) {
		s.SoundfontName = in.banks[in.bankIndex].Name
	}
	bt, _ := json.Marshal(s)
	return string(bt)
}

// restoreState applies bank, preset, transpose and gain in that order. The
// bank is found by name first and by index only when the name is unknown.
func (in *Instrument) restoreState(data []byte) {
	idx := -1
	if name, err := jsonparser.GetString(data, "soundfont_name"); err == nil && name != "" {
		if i, ok := in.banks.FindByName(name); ok {
			idx = i
		}
	}
	if idx < 0 {
		if f, ok := jsonNumber(data, "soundfont_index"); ok {
			if i := int(f); i >= 0 && i < len(in.banks) {
				idx = i
			}
		}
	}
	if idx >= 0 {
		in.selectBank(idx)
	}
	if f, ok := jsonNumber(data, "preset"); ok {
		in.selectPreset(clampInt(f))
	}
	if f, ok := jsonNumber(data, "octave_transpose"); ok {
		in.setTranspose(clampInt(f))
	}
	if f, ok := jsonNumber(data, "gain"); ok {
		in.setGain(f)
	}
}

// jsonNumber reads key as a number, accepting numeric strings.
func jsonNumber(data []byte, key string) (float64, bool) {
	v, typ, _, err := jsonparser.Get(data, key)
	if err != nil {
		return 0, false
	}
	switch typ {
	case jsonparser.Number, jsonparser.String:
		return parseFloat(string(v)), true
	}
	return 0, false
}

func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if f, err := cast.ToFloat64E(s); err == nil {
		return clampInt(f)
	}
	if n, err := cast.ToIntE(s); err == nil {
		return n
	}
	return 0
}

func parseFloat(s string) float64 {
	f, err := cast.ToFloat64E(strings.TrimSpace(s))
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return f
}

func clampInt(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	return int(math.Max(math.MinInt32, math.Min(math.MaxInt32, f)))
}
