package midi

// Handler receives raw message bytes from a live input port. It runs on the
// driver's goroutine.
type Handler func(raw []byte)

// Input is an open live MIDI input.
type Input interface {
	Close() error
}
