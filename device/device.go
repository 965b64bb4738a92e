// Package device defines the contract between the sequencer and the
// sound-generating units it drives.
package device

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// Event types
const (
	NoteOn      uint8 = 0x90
	NoteOff     uint8 = 0x80
	ParamChange uint8 = 0xB0
)

// Event is a timed command for a device
type Event struct {
	Type     uint8 // NoteOn, NoteOff, ParamChange
	Note     uint8
	Velocity uint8
	Param    string  // ParamChange only
	Value    float64 // ParamChange only
}

// Device accepts events scheduled against the audio clock and exposes its
// synthesis parameters by name.
type Device interface {
	// ScheduleEvent queues ev for audio time at (seconds). Never blocks.
	ScheduleEvent(at float64, ev Event)

	Params() []Param
	Param(name string) (Param, bool)
	SetParam(name string, value float64) error
}

// ErrUnknownParam is returned when a parameter name is not defined
var ErrUnknownParam = errors.New("unknown parameter")

// Param describes one synthesis parameter. Steps > 1 quantizes the range
// into that many values.
type Param struct {
	Name  string  `json:"name"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Steps int     `json:"steps"`
	Value float64 `json:"value"`
}

// Resolution returns the size of one step for a slider or nudge control
func (p Param) Resolution() float64 {
	if p.Steps > 1 {
		return (p.Max - p.Min) / float64(p.Steps-1)
	}
	return (p.Max - p.Min) / 1000.0
}

// Quantize clamps v to [Min, Max] and snaps it to the step grid
func (p Param) Quantize(v float64) float64 {
	if math.IsNaN(v) {
		return p.Value
	}
	v = math.Max(p.Min, math.Min(p.Max, v))
	if p.Steps > 1 {
		res := p.Resolution()
		v = p.Min + math.Round((v-p.Min)/res)*res
		v = math.Max(p.Min, math.Min(p.Max, v))
	}
	return v
}

// Normalized maps the current value to 0..1
func (p Param) Normalized() float64 {
	if p.Max <= p.Min {
		return 0
	}
	return (p.Value - p.Min) / (p.Max - p.Min)
}

// ParamSet is an ordered, concurrency-safe parameter table shared by device
// implementations.
type ParamSet struct {
	mu       sync.RWMutex
	order    []string
	params   map[string]*Param
	onChange []func(Param)
}

// NewParamSet creates a set from definitions; each Value is quantized
func NewParamSet(defs ...Param) *ParamSet {
	s := &ParamSet{params: make(map[string]*Param, len(defs))}
	for _, d := range defs {
		p := d
		p.Value = p.Quantize(p.Value)
		s.order = append(s.order, p.Name)
		s.params[p.Name] = &p
	}
	return s
}

// List returns a snapshot in definition order
func (s *ParamSet) List() []Param {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Param, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, *s.params[name])
	}
	return out
}

// Get returns a parameter by name
func (s *ParamSet) Get(name string) (Param, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.params[name]
	if !ok {
		return Param{}, false
	}
	return *p, true
}

// Set quantizes and stores a value, then notifies subscribers
func (s *ParamSet) Set(name string, v float64) (Param, error) {
	s.mu.Lock()
	p, ok := s.params[name]
	if !ok {
		s.mu.Unlock()
		return Param{}, fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	p.Value = p.Quantize(v)
	snapshot := *p
	subs := s.onChange
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
	return snapshot, nil
}

// Subscribe registers fn to be called after every Set
func (s *ParamSet) Subscribe(fn func(Param)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}
