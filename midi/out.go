package midi

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-stepseq/clock"
	"go-stepseq/debug"
	"go-stepseq/device"
)

// maxWait bounds how long the dispatch loop sleeps before re-reading the
// clock, since audio clocks advance in buffer-sized jumps
const maxWait = 10 * time.Millisecond

type queued struct {
	at float64
	ev device.Event
}

// Out is a device that plays on an external MIDI port. Events are held
// until the clock reaches their time, then sent by the Run loop.
type Out struct {
	name    string
	send    func(gomidi.Message) error
	channel uint8 // 0-15
	cc      map[string]uint8
	params  *device.ParamSet
	clock   clock.Clock

	mu       sync.Mutex
	pending  []queued // sorted by at, ties in submission order
	sounding map[uint8]bool

	interrupt chan struct{}
}

// NewOut creates a MIDI output device on channel 1-16. cc maps parameter
// names to controller numbers.
func NewOut(name string, send func(gomidi.Message) error, channel uint8, cc map[string]uint8, c clock.Clock, params []device.Param) *Out {
	if channel < 1 || channel > 16 {
		channel = 1
	}
	if cc == nil {
		cc = DefaultCC
	}
	return &Out{
		name:      name,
		send:      send,
		channel:   channel - 1,
		cc:        cc,
		params:    device.NewParamSet(params...),
		clock:     c,
		sounding:  make(map[uint8]bool),
		interrupt: make(chan struct{}, 1),
	}
}

// Name returns the voice label
func (o *Out) Name() string { return o.name }

// ScheduleEvent queues ev for audio time at and wakes the dispatch loop
func (o *Out) ScheduleEvent(at float64, ev device.Event) {
	o.mu.Lock()
	q := queued{at: at, ev: ev}
	i := sort.Search(len(o.pending), func(i int) bool { return o.pending[i].at > at })
	o.pending = append(o.pending, queued{})
	copy(o.pending[i+1:], o.pending[i:])
	o.pending[i] = q
	o.mu.Unlock()

	select {
	case o.interrupt <- struct{}{}:
	default:
	}
}

func (o *Out) Params() []device.Param { return o.params.List() }

func (o *Out) Param(name string) (device.Param, bool) { return o.params.Get(name) }

// SetParam stores the value and sends its CC immediately
func (o *Out) SetParam(name string, value float64) error {
	p, err := o.params.Set(name, value)
	if err != nil {
		return err
	}
	if msg, ok := Encode(o.channel, device.Event{Type: device.ParamChange, Param: name, Value: p.Value}, o.cc, o.params); ok {
		o.write(msg)
	}
	return nil
}

// OnParamChange registers fn for every parameter update
func (o *Out) OnParamChange(fn func(device.Param)) {
	o.params.Subscribe(fn)
}

// Pending returns the number of events not yet sent
func (o *Out) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// flush sends every event due at now and returns the delay until the next
// one (ok false when nothing is pending)
func (o *Out) flush(now float64) (wait time.Duration, ok bool) {
	o.mu.Lock()
	n := 0
	for n < len(o.pending) && o.pending[n].at <= now {
		n++
	}
	due := append([]queued(nil), o.pending[:n]...)
	o.pending = o.pending[n:]
	if len(o.pending) > 0 {
		wait = time.Duration((o.pending[0].at - now) * float64(time.Second))
		ok = true
	}
	o.mu.Unlock()

	for _, q := range due {
		o.dispatch(q.ev)
	}
	return wait, ok
}

func (o *Out) dispatch(ev device.Event) {
	if ev.Type == device.ParamChange {
		if _, err := o.params.Set(ev.Param, ev.Value); err != nil {
			debug.Warn("midi", "%s: %v", o.name, err)
			return
		}
	}
	msg, ok := Encode(o.channel, ev, o.cc, o.params)
	if !ok {
		return
	}

	o.mu.Lock()
	switch {
	case ev.Type == device.NoteOn && ev.Velocity > 0:
		o.sounding[ev.Note] = true
	case ev.Type == device.NoteOn, ev.Type == device.NoteOff:
		delete(o.sounding, ev.Note)
	}
	o.mu.Unlock()

	o.write(msg)
	debug.LogEvery(32, "midi", "%s ch=%d %s", o.name, o.channel+1, msg)
}

func (o *Out) write(msg gomidi.Message) {
	if o.send == nil {
		return
	}
	if err := o.send(msg); err != nil {
		debug.Warn("midi", "%s send: %v", o.name, err)
	}
}

// Run dispatches events at their clock time until ctx is done, then
// releases any sounding notes.
func (o *Out) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		wait, ok := o.flush(o.clock.Now())

		var fire <-chan time.Time
		if ok {
			timer.Reset(min(max(wait, time.Millisecond), maxWait))
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			o.Panic()
			return
		case <-o.interrupt:
			// queue changed, recalculate
		case <-fire:
		}
		timer.Stop()
	}
}

// Panic drops pending events and sends note-off for every sounding note
func (o *Out) Panic() {
	o.mu.Lock()
	o.pending = nil
	notes := make([]uint8, 0, len(o.sounding))
	for n := range o.sounding {
		notes = append(notes, n)
	}
	o.sounding = make(map[uint8]bool)
	o.mu.Unlock()

	for _, n := range notes {
		o.write(gomidi.NoteOff(o.channel, n))
	}
}
