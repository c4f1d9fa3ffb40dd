//go:build midi_native

package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type listener struct {
	stop func()
	once sync.Once
}

// OpenInput starts listening on the first input port whose name contains
// deviceName and forwards channel-voice messages to fn.
func OpenInput(deviceName string, fn Handler) (Input, error) {
	in, err := gomidi.FindInPort(deviceName)
	if err != nil {
		return nil, fmt.Errorf("midi input %q: %w", deviceName, err)
	}
	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, _ int32) {
		b := msg.Bytes()
		if len(b) == 0 || b[0] >= 0xF0 {
			return
		}
		fn(b)
	})
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", in.String(), err)
	}
	return &listener{stop: stop}, nil
}

func (l *listener) Close() error {
	l.once.Do(func() {
		l.stop()
		gomidi.CloseDriver()
	})
	return nil
}

// ListInputs returns the names of the available input ports.
func ListInputs() ([]string, error) {
	ins := gomidi.GetInPorts()
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}
