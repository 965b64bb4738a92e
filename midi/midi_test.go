package midi

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-stepseq/clock"
	"go-stepseq/device"
)

type sink struct {
	mu   sync.Mutex
	msgs []gomidi.Message
}

func (s *sink) send(msg gomidi.Message) error {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
	return nil
}

func (s *sink) all() []gomidi.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]gomidi.Message(nil), s.msgs...)
}

func fmParams() []device.Param {
	return []device.Param{
		{Name: "modulator", Min: 1, Max: 4, Steps: 4, Value: 1},
		{Name: "index", Min: 0, Max: 10, Value: 0},
	}
}

func TestRowColNote(t *testing.T) {
	tests := []struct {
		row, col int
		note     uint8
	}{
		{0, 0, 11},
		{0, 7, 18},
		{7, 0, 81},
		{7, 7, 88},
		{3, 8, 49}, // side column
		{8, 0, 91}, // top row
		{8, 7, 98},
	}

	for _, tt := range tests {
		if got := rowColToNote(tt.row, tt.col); got != tt.note {
			t.Errorf("rowColToNote(%d, %d) = %d, want %d", tt.row, tt.col, got, tt.note)
		}
		row, col := noteToRowCol(tt.note)
		if row != tt.row || col != tt.col {
			t.Errorf("noteToRowCol(%d) = (%d, %d), want (%d, %d)", tt.note, row, col, tt.row, tt.col)
		}
	}

	if row, _ := noteToRowCol(5); row != -1 {
		t.Errorf("noteToRowCol(5) row = %d, want -1", row)
	}
}

func TestLaunchpadHandle(t *testing.T) {
	lp := newLaunchpad("lp", nil)

	lp.handle(gomidi.NoteOn(0, 11, 100))
	lp.handle(gomidi.NoteOn(0, 11, 0)) // release
	lp.handle(gomidi.ControlChange(0, 91, 127))
	lp.handle(gomidi.ControlChange(0, 91, 0))
	lp.handle(gomidi.ControlChange(0, 7, 127)) // not a button

	want := []PadEvent{
		{Row: 0, Col: 0, Velocity: 100},
		{Row: 8, Col: 0, Velocity: 127},
	}
	for _, w := range want {
		select {
		case got := <-lp.PadEvents():
			if got != w {
				t.Errorf("pad event = %+v, want %+v", got, w)
			}
		default:
			t.Fatalf("missing pad event %+v", w)
		}
	}
	select {
	case extra := <-lp.PadEvents():
		t.Errorf("unexpected pad event %+v", extra)
	default:
	}

	lp.Close()
	lp.handle(gomidi.NoteOn(0, 11, 100)) // must not panic after close
}

func TestLaunchpadLEDs(t *testing.T) {
	var s sink
	lp := newLaunchpad("lp", s.send)

	err := lp.SetLEDBatch([]LEDUpdate{
		{Row: 7, Col: 0, Color: [3]uint8{255, 255, 255}, Channel: ChannelPulse},
		{Row: 8, Col: 0, Color: [3]uint8{0, 0, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}

	got := s.all()
	want := []gomidi.Message{
		gomidi.NoteOn(ChannelPulse, 81, 119),
		gomidi.NoteOn(ChannelStatic, 91, 0),
	}
	if len(got) != len(want) {
		t.Fatalf("sent %d messages, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("message %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNearestPaletteColor(t *testing.T) {
	tests := []struct {
		rgb  [3]uint8
		want uint8
	}{
		{[3]uint8{0, 0, 0}, 0},
		{[3]uint8{250, 250, 250}, 119},
		{[3]uint8{250, 5, 5}, 5},
		{[3]uint8{0, 250, 10}, 21},
	}
	for _, tt := range tests {
		if got := nearestPaletteColor(tt.rgb); got != tt.want {
			t.Errorf("nearestPaletteColor(%v) = %d, want %d", tt.rgb, got, tt.want)
		}
	}
}

func TestKeyboardHandle(t *testing.T) {
	kb := newKeyboard("keys")
	kb.handle(gomidi.NoteOn(2, 60, 90))
	kb.handle(gomidi.NoteOff(2, 60))
	kb.handle(gomidi.ControlChange(2, 1, 64))

	want := []NoteEvent{
		{Note: 60, Velocity: 90, Channel: 2},
		{Note: 60, Velocity: 0, Channel: 2},
	}
	for _, w := range want {
		select {
		case got := <-kb.NoteEvents():
			if got != w {
				t.Errorf("note event = %+v, want %+v", got, w)
			}
		default:
			t.Fatalf("missing note event %+v", w)
		}
	}
	kb.Close()
	kb.Close()
}

func TestOutFlush(t *testing.T) {
	var s sink
	clk := clock.NewManual()
	out := NewOut("ext", s.send, 3, map[string]uint8{"index": 74}, clk, fmParams())

	out.ScheduleEvent(0.25, device.Event{Type: device.NoteOff, Note: 60})
	out.ScheduleEvent(0, device.Event{Type: device.NoteOn, Note: 60, Velocity: 100})
	out.ScheduleEvent(0, device.Event{Type: device.ParamChange, Param: "index", Value: 5})
	out.ScheduleEvent(0, device.Event{Type: device.ParamChange, Param: "modulator", Value: 3})

	wait, ok := out.flush(0.125)
	if !ok || wait != 125*time.Millisecond {
		t.Errorf("flush wait = %v %v, want 125ms true", wait, ok)
	}

	got := s.all()
	want := []gomidi.Message{
		gomidi.NoteOn(2, 60, 100),
		gomidi.ControlChange(2, 74, 64),
	}
	if len(got) != len(want) {
		t.Fatalf("sent %v, want %v", got, want)
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("message %d = %v, want %v", i, got[i], want[i])
		}
	}

	// unmapped parameters still update the device
	if p, _ := out.Param("modulator"); p.Value != 3 {
		t.Errorf("modulator = %v, want 3", p.Value)
	}

	if _, ok := out.flush(0.3); ok {
		t.Error("events left after final flush")
	}
	if n := len(s.all()); n != 3 {
		t.Errorf("sent %d messages, want 3", n)
	}
}

func TestOutPanic(t *testing.T) {
	var s sink
	out := NewOut("ext", s.send, 1, nil, clock.NewManual(), fmParams())
	out.ScheduleEvent(0, device.Event{Type: device.NoteOn, Note: 64, Velocity: 100})
	out.ScheduleEvent(1, device.Event{Type: device.NoteOff, Note: 64})
	out.flush(0)

	out.Panic()
	if out.Pending() != 0 {
		t.Errorf("Pending() = %d after panic, want 0", out.Pending())
	}
	got := s.all()
	if last := got[len(got)-1]; !bytes.Equal(last, gomidi.NoteOff(0, 64)) {
		t.Errorf("last message = %v, want note-off 64", last)
	}
}

func TestOutRun(t *testing.T) {
	var s sink
	w := clock.NewWall()
	w.Resume()
	out := NewOut("ext", s.send, 1, nil, w, fmParams())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		out.Run(ctx)
		close(done)
	}()

	out.ScheduleEvent(w.Now()+0.02, device.Event{Type: device.NoteOn, Note: 60, Velocity: 1})

	deadline := time.After(2 * time.Second)
	for len(s.all()) == 0 {
		select {
		case <-deadline:
			t.Fatal("event never dispatched")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestClassify(t *testing.T) {
	dm := NewDeviceManager(true, []string{"keystation", "Arturia"})
	dm.Ignore("go-stepseq")

	tests := []struct {
		name string
		want ControllerType
	}{
		{"Launchpad X LPX MIDI", ControllerLaunchpad},
		{"Launchpad X LPX DAW", ControllerUnknown},
		{"Keystation 49 MK3", ControllerKeyboard},
		{"arturia minilab", ControllerKeyboard},
		{"IAC Driver Bus 1", ControllerUnknown},
		{"go-stepseq keystation loop", ControllerUnknown},
	}
	for _, tt := range tests {
		if got := dm.classify(tt.name); got != tt.want {
			t.Errorf("classify(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	off := NewDeviceManager(false, nil)
	if got := off.classify("Launchpad X LPX MIDI"); got != ControllerUnknown {
		t.Errorf("launchpad with auto-connect off = %v", got)
	}
}

func TestMatchPort(t *testing.T) {
	names := []string{"IAC Driver Bus 1", "IAC Driver Bus 10", "Blofeld"}
	tests := []struct {
		name string
		want int
	}{
		{"IAC Driver Bus 1", 0},
		{"bus 10", 1},
		{"blofeld", 2},
		{"Volca", -1},
	}
	for _, tt := range tests {
		if got := matchPort(names, tt.name); got != tt.want {
			t.Errorf("matchPort(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}
