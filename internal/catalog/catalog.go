// Package catalog discovers bank files under an instrument directory.
package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MaxEntries bounds the number of banks a scan keeps.
const MaxEntries = 64

// Dir is the subdirectory of the instrument root that holds bank files.
const Dir = "soundfonts"

// Logger receives scan diagnostics.
type Logger interface {
	Printf(format string, v ...any)
}

// Entry is a bank file found by a scan.
type Entry struct {
	Path string
	Name string
}

// List is a scanned catalog, sorted case-insensitively by Name.
type List []Entry

// Scan lists root/soundfonts for files whose extension matches ext
// (case-insensitive). A missing or unreadable directory yields an empty list.
func Scan(root, ext string, logger Logger) List {
	dir := filepath.Join(root, Dir)
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out List
	for _, it := range items {
		name := it.Name()
		if strings.HasPrefix(name, ".") || it.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		if len(out) >= MaxEntries {
			if logger != nil {
				logger.Printf("soundfont list full, skipping extras")
			}
			break
		}
		out = append(out, Entry{Path: filepath.Join(dir, name), Name: name})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// FindByName returns the index of the entry whose display name equals name
// exactly.
func (l List) FindByName(name string) (int, bool) {
	for i, e := range l {
		if e.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Locate matches path against the entries, preferring a full path match over
// a match on the file name alone.
func (l List) Locate(path string) (int, bool) {
	for i, e := range l {
		if e.Path == path {
			return i, true
		}
	}
	return l.FindByName(filepath.Base(path))
}

// ResolveDefault picks the entry a construction-time hint refers to, falling
// back to the first entry. ok is false only when the list is empty, in which
// case the caller should load the hint as a literal path.
func (l List) ResolveDefault(hint string) (index int, ok bool) {
	if len(l) == 0 {
		return 0, false
	}
	if hint != "" {
		if i, found := l.Locate(hint); found {
			return i, true
		}
	}
	return 0, true
}
