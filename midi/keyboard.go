package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Keyboard forwards key presses and releases from a MIDI input
type Keyboard struct {
	id   string
	stop func()

	mu     sync.Mutex
	closed bool
	pads   chan PadEvent
	notes  chan NoteEvent
}

// NewKeyboard opens an input port
func NewKeyboard(id string, inPort drivers.In) (*Keyboard, error) {
	kb := newKeyboard(id)
	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
			kb.handle(msg)
		})
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		kb.stop = stop
	}
	return kb, nil
}

func newKeyboard(id string) *Keyboard {
	return &Keyboard{
		id:    id,
		pads:  make(chan PadEvent, 32),
		notes: make(chan NoteEvent, 32),
	}
}

func (kb *Keyboard) handle(msg gomidi.Message) {
	var channel, note, velocity uint8
	var ev NoteEvent
	switch {
	case msg.GetNoteOn(&channel, &note, &velocity):
		ev = NoteEvent{Note: note, Velocity: velocity, Channel: channel}
	case msg.GetNoteOff(&channel, &note, &velocity):
		ev = NoteEvent{Note: note, Velocity: 0, Channel: channel}
	default:
		return
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()
	if kb.closed {
		return
	}
	select {
	case kb.notes <- ev:
	default:
	}
}

func (kb *Keyboard) ID() string {
	return kb.id
}

func (kb *Keyboard) Type() ControllerType {
	return ControllerKeyboard
}

func (kb *Keyboard) PadEvents() <-chan PadEvent {
	return kb.pads // Keyboards don't have pads
}

func (kb *Keyboard) NoteEvents() <-chan NoteEvent {
	return kb.notes
}

// SetLEDBatch is a no-op for keyboards
func (kb *Keyboard) SetLEDBatch(updates []LEDUpdate) error {
	return nil
}

func (kb *Keyboard) Close() error {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if kb.closed {
		return nil
	}
	kb.closed = true
	if kb.stop != nil {
		kb.stop()
	}
	close(kb.pads)
	close(kb.notes)
	return nil
}
