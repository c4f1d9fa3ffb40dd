// Package preset builds the flat preset index of a loaded bank.
package preset

import (
	"fmt"

	"github.com/cbegin/sfsampler-go/internal/engine"
)

// MaxEntries bounds the number of presets indexed from one bank.
const MaxEntries = 1024

// Logger receives indexing diagnostics.
type Logger interface {
	Printf(format string, v ...any)
}

// Visitor enumerates presets in the backend's native order.
type Visitor interface {
	VisitPresets(fn func(engine.PresetInfo) bool)
}

// Entry is one addressable preset.
type Entry struct {
	Name    string
	Bank    int
	Program int
}

// Rebuild walks the presets of src. Presets without a name become "Preset N"
// and presets without numbers are addressed as bank 0, program N, where N is
// the position in the index.
func Rebuild(src Visitor, logger Logger) []Entry {
	var out []Entry
	truncated := false
	src.VisitPresets(func(info engine.PresetInfo) bool {
		if len(out) >= MaxEntries {
			truncated = true
			return false
		}
		n := len(out)
		e := Entry{Name: info.Name, Bank: info.Bank, Program: info.Program}
		if e.Name == "" {
			e.Name = fmt.Sprintf("Preset %d", n)
		}
		if !info.Numbered {
			e.Bank, e.Program = 0, n
		}
		out = append(out, e)
		return true
	})
	if truncated && logger != nil {
		logger.Printf("preset index full at %d entries", MaxEntries)
	}
	return out
}

// Wrap maps an out-of-range selection onto the index: below zero selects the
// last entry and past the end selects the first. count must be positive.
func Wrap(index, count int) int {
	if index < 0 {
		return count - 1
	}
	if index >= count {
		return 0
	}
	return index
}
