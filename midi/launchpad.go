package midi

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go-stepseq/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var ledSendCount atomic.Uint64

// Launchpad drives a Novation Launchpad X in programmer mode
type Launchpad struct {
	id   string
	send func(msg gomidi.Message) error
	stop func()

	mu     sync.Mutex
	closed bool
	pads   chan PadEvent
	notes  chan NoteEvent
}

// Programmer mode, full brightness, external LED feedback
var launchpadInit = [][]byte{
	{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F},
	{0x00, 0x20, 0x29, 0x02, 0x0C, 0x08, 0x7F},
	{0x00, 0x20, 0x29, 0x02, 0x0C, 0x0A, 0x01, 0x01},
}

// NewLaunchpad opens both ports and switches the device to programmer mode
func NewLaunchpad(id string, inPort drivers.In, outPort drivers.Out) (*Launchpad, error) {
	var send func(gomidi.Message) error
	if outPort != nil {
		s, err := gomidi.SendTo(outPort)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
		send = s
	}

	lp := newLaunchpad(id, send)
	if send != nil {
		for _, sysex := range launchpadInit {
			lp.send(gomidi.SysEx(sysex))
		}
	}

	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
			lp.handle(msg)
		})
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		lp.stop = stop
	}

	return lp, nil
}

func newLaunchpad(id string, send func(gomidi.Message) error) *Launchpad {
	return &Launchpad{
		id:    id,
		send:  send,
		pads:  make(chan PadEvent, 32),
		notes: make(chan NoteEvent, 32),
	}
}

// handle decodes pad presses: notes for the grid and side column, CC 91-98
// for the top row. Releases are ignored.
func (lp *Launchpad) handle(msg gomidi.Message) {
	var channel, note, velocity, cc, value uint8
	row, col := -1, -1

	switch {
	case msg.GetNoteOn(&channel, &note, &velocity) && velocity > 0:
		row, col = noteToRowCol(note)
	case msg.GetControlChange(&channel, &cc, &value) && value > 0:
		row, col = ccToRowCol(cc)
		velocity = value
	}
	if row < 0 {
		return
	}

	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.closed {
		return
	}
	select {
	case lp.pads <- PadEvent{Row: row, Col: col, Velocity: velocity}:
	default:
	}
}

func (lp *Launchpad) ID() string {
	return lp.id
}

func (lp *Launchpad) Type() ControllerType {
	return ControllerLaunchpad
}

func (lp *Launchpad) PadEvents() <-chan PadEvent {
	return lp.pads
}

func (lp *Launchpad) NoteEvents() <-chan NoteEvent {
	return lp.notes // never sends; pads are not keys
}

// SetLEDBatch sends one NoteOn per update; the caller diffs so only
// changed pads arrive here
func (lp *Launchpad) SetLEDBatch(updates []LEDUpdate) error {
	if lp.send == nil || len(updates) == 0 {
		return nil
	}

	for _, u := range updates {
		if err := lp.send(gomidi.NoteOn(u.Channel, rowColToNote(u.Row, u.Col), nearestPaletteColor(u.Color))); err != nil {
			return err
		}
	}

	count := ledSendCount.Add(uint64(len(updates)))
	if count%100 < uint64(len(updates)) {
		debug.Log("ctrl", "led batch count=%d (this batch=%d)", count, len(updates))
	}
	return nil
}

// Launchpad X palette entries: {velocity, R, G, B}
var launchpadPalette = [][4]uint8{
	{0, 0, 0, 0},         // off
	{5, 255, 0, 0},       // red
	{6, 255, 80, 80},     // bright red
	{7, 180, 60, 60},     // dim red
	{9, 255, 100, 0},     // orange
	{11, 180, 80, 40},    // dim orange
	{13, 255, 200, 0},    // yellow
	{17, 0, 180, 0},      // green
	{19, 0, 100, 0},      // dim green
	{21, 0, 255, 0},      // bright green
	{37, 0, 200, 200},    // cyan
	{43, 40, 60, 120},    // dim blue
	{45, 0, 100, 255},    // blue
	{47, 80, 150, 255},   // bright blue
	{49, 150, 0, 200},    // purple
	{53, 255, 80, 180},   // pink
	{78, 100, 100, 255},  // light blue
	{84, 255, 150, 50},   // bright orange
	{87, 150, 255, 100},  // lime
	{97, 180, 180, 60},   // dim yellow
	{119, 255, 255, 255}, // white
}

// nearestPaletteColor returns the palette velocity closest to rgb
func nearestPaletteColor(rgb [3]uint8) uint8 {
	best := uint8(0)
	bestDist := 1 << 30
	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])

	for _, p := range launchpadPalette {
		dr, dg, db := r-int(p[1]), g-int(p[2]), b-int(p[3])
		if dist := dr*dr + dg*dg + db*db; dist < bestDist {
			bestDist = dist
			best = p[0]
		}
	}
	return best
}

// Close blanks every LED and stops listening
func (lp *Launchpad) Close() error {
	lp.mu.Lock()
	if lp.closed {
		lp.mu.Unlock()
		return nil
	}
	lp.closed = true
	lp.mu.Unlock()

	if lp.send != nil {
		var updates []LEDUpdate
		for row := 0; row <= TopRow; row++ {
			for col := 0; col <= SideCol; col++ {
				if row == TopRow && col == SideCol {
					continue
				}
				updates = append(updates, LEDUpdate{Row: row, Col: col})
			}
		}
		lp.SetLEDBatch(updates)
	}
	if lp.stop != nil {
		lp.stop()
	}

	lp.mu.Lock()
	close(lp.pads)
	close(lp.notes)
	lp.mu.Unlock()
	return nil
}

// Programmer-mode layout: grid pad (row, col) is note 10*(row+1)+col+1, so
// row 0 is 11-18 and the side column 19..89. The top strip sends CC 91-98 and
// is lit with the same note numbers.
const topBase = 91

func rowColToNote(row, col int) uint8 {
	if row == TopRow {
		return uint8(topBase + col)
	}
	return uint8(10*(row+1) + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	if row, col = ccToRowCol(note); row == TopRow {
		return row, col
	}
	row, col = int(note)/10-1, int(note)%10-1
	if row < 0 || row >= TopRow || col < 0 || col > SideCol {
		return -1, -1
	}
	return row, col
}

func ccToRowCol(cc uint8) (row, col int) {
	if cc < topBase || cc >= topBase+8 {
		return -1, -1
	}
	return TopRow, int(cc) - topBase
}
