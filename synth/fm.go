// Package synth renders the software voices with beep. The Engine mixes
// every voice and counts rendered frames, which makes it the audio clock
// the sequencer schedules against.
package synth

import (
	"math"
	"sort"
	"sync"

	"github.com/gopxl/beep"

	"go-stepseq/debug"
	"go-stepseq/device"
)

// Parameter names
const (
	ParamModulator = "modulator"
	ParamCarrier   = "carrier"
	ParamIndex     = "index"
)

// FMParams returns the parameter table of an FM voice
func FMParams() []device.Param {
	return []device.Param{
		{Name: ParamModulator, Min: 1, Max: 4, Steps: 4, Value: 1},
		{Name: ParamCarrier, Min: 1, Max: 11, Steps: 11, Value: 1},
		{Name: ParamIndex, Min: 0, Max: 10, Steps: 101, Value: 2},
	}
}

type timedEvent struct {
	frame int64
	ev    device.Event
}

// FM is a monophonic two-operator FM voice. The carrier plays the note and
// the modulator runs at note * modulator / carrier.
type FM struct {
	name   string
	sr     beep.SampleRate
	params *device.ParamSet

	mu      sync.Mutex
	pending []timedEvent // sorted by frame
	pos     int64        // frames rendered

	note     uint8
	freq     float64
	velocity float64
	gate     bool
	env      float64
	phaseC   float64
	phaseM   float64

	attack  float64 // envelope rise per frame
	release float64 // envelope fall per frame
	gain    float64
}

// NewFM creates a silent voice at the given sample rate
func NewFM(name string, sr beep.SampleRate) *FM {
	return &FM{
		name:    name,
		sr:      sr,
		params:  device.NewParamSet(FMParams()...),
		attack:  1 / (0.005 * float64(sr)),
		release: 1 / (0.08 * float64(sr)),
		gain:    0.3,
	}
}

// Name returns the voice label
func (f *FM) Name() string { return f.name }

// ScheduleEvent queues ev to apply at the first frame at or after audio time at
func (f *FM) ScheduleEvent(at float64, ev device.Event) {
	frame := int64(math.Round(at * float64(f.sr)))

	f.mu.Lock()
	defer f.mu.Unlock()
	// Insert after any event with the same frame to keep submission order
	i := sort.Search(len(f.pending), func(i int) bool { return f.pending[i].frame > frame })
	f.pending = append(f.pending, timedEvent{})
	copy(f.pending[i+1:], f.pending[i:])
	f.pending[i] = timedEvent{frame: frame, ev: ev}
}

func (f *FM) Params() []device.Param { return f.params.List() }

func (f *FM) Param(name string) (device.Param, bool) { return f.params.Get(name) }

func (f *FM) SetParam(name string, value float64) error {
	_, err := f.params.Set(name, value)
	return err
}

// OnParamChange registers fn for every parameter update, including ones
// applied from scheduled events on the audio goroutine
func (f *FM) OnParamChange(fn func(device.Param)) {
	f.params.Subscribe(fn)
}

// SetGain sets the output level (0..1)
func (f *FM) SetGain(g float64) {
	f.mu.Lock()
	f.gain = math.Max(0, math.Min(1, g))
	f.mu.Unlock()
}

// Pending returns the number of events not yet applied
func (f *FM) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// apply handles one due event (caller holds mu)
func (f *FM) apply(ev device.Event) {
	switch ev.Type {
	case device.NoteOn:
		if ev.Velocity == 0 {
			if ev.Note == f.note {
				f.gate = false
			}
			return
		}
		f.note = ev.Note
		f.freq = midiToFreq(ev.Note)
		f.velocity = float64(ev.Velocity) / 127
		f.gate = true
	case device.NoteOff:
		if ev.Note == f.note {
			f.gate = false
		}
	case device.ParamChange:
		if _, err := f.params.Set(ev.Param, ev.Value); err != nil {
			debug.Warn("synth", "%s: %v", f.name, err)
		}
	}
}

func (f *FM) Stream(samples [][2]float64) (n int, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sr := float64(f.sr)
	mod, car, index := f.load()

	for i := range samples {
		for len(f.pending) > 0 && f.pending[0].frame <= f.pos {
			ev := f.pending[0].ev
			f.pending = f.pending[1:]
			f.apply(ev)
			if ev.Type == device.ParamChange {
				mod, car, index = f.load()
			}
		}

		if f.gate {
			f.env = math.Min(1, f.env+f.attack)
		} else {
			f.env = math.Max(0, f.env-f.release)
		}

		var value float64
		if f.env > 0 {
			m := math.Sin(2 * math.Pi * f.phaseM)
			value = math.Sin(2*math.Pi*f.phaseC+index*m) * f.env * f.velocity * f.gain

			f.phaseC += f.freq / sr
			f.phaseC -= math.Floor(f.phaseC)
			f.phaseM += f.freq * mod / car / sr
			f.phaseM -= math.Floor(f.phaseM)
		}
		samples[i][0] = value
		samples[i][1] = value
		f.pos++
	}
	if len(f.pending) == 0 {
		f.pending = nil
	}
	return len(samples), true
}

// seek aligns the voice with the engine's frame counter
func (f *FM) seek(frame int64) {
	f.mu.Lock()
	f.pos = frame
	f.mu.Unlock()
}

func (f *FM) Err() error {
	return nil
}

func (f *FM) load() (mod, car, index float64) {
	m, _ := f.params.Get(ParamModulator)
	c, _ := f.params.Get(ParamCarrier)
	x, _ := f.params.Get(ParamIndex)
	car = c.Value
	if car <= 0 {
		car = 1
	}
	return m.Value, car, x.Value
}

func midiToFreq(note uint8) float64 {
	return 440 * math.Pow(2, (float64(note)-69)/12)
}
