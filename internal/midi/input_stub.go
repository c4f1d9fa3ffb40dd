//go:build !midi_native

package midi

import "errors"

var errNoDriver = errors.New("native MIDI driver is not included in this build (build with -tags midi_native)")

// OpenInput is unavailable without the midi_native build tag.
func OpenInput(deviceName string, fn Handler) (Input, error) {
	return nil, errNoDriver
}

// ListInputs is unavailable without the midi_native build tag.
func ListInputs() ([]string, error) {
	return nil, errNoDriver
}
