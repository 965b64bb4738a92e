package midi

// ControllerType is the role an input port plays.
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerLaunchpad
	ControllerKeyboard
)

var controllerNames = [...]string{"unknown", "launchpad", "keyboard"}

func (t ControllerType) String() string {
	if t < 0 || int(t) >= len(controllerNames) {
		return controllerNames[0]
	}
	return controllerNames[t]
}

// Pad coordinates: rows 0-7 bottom to top, Row 8 is the top button strip
// and Col 8 the side buttons.
const (
	TopRow  = 8
	SideCol = 8
)

// PadEvent is a grid press (Velocity > 0) or release.
type PadEvent struct {
	Row, Col int
	Velocity uint8
}

// NoteEvent is a key from a keyboard. Velocity 0 is a release.
type NoteEvent struct {
	Note     uint8
	Velocity uint8
	Channel  uint8
}

// LEDUpdate colours a single pad.
type LEDUpdate struct {
	Row, Col int
	Color    [3]uint8
	Channel  uint8
}

// LED lighting modes, sent as the MIDI channel of the LED message.
const (
	ChannelStatic uint8 = iota
	ChannelFlash
	ChannelPulse
)

// Controller is an input device the studio listens to. Grids deliver
// PadEvents, keyboards NoteEvents; the other channel stays silent.
type Controller interface {
	ID() string
	Type() ControllerType
	PadEvents() <-chan PadEvent
	NoteEvents() <-chan NoteEvent
	// SetLEDBatch is a no-op on devices without lights.
	SetLEDBatch(updates []LEDUpdate) error
	Close() error
}
