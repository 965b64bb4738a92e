package midi

import (
	"math"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-stepseq/device"
)

// DefaultCC maps the FM parameter names to controller numbers
var DefaultCC = map[string]uint8{
	"modulator": 20,
	"carrier":   21,
	"index":     22,
}

// scaleCC maps a parameter value onto 0..127
func scaleCC(p device.Param, v float64) uint8 {
	if p.Max <= p.Min {
		return 0
	}
	n := (v - p.Min) / (p.Max - p.Min)
	return uint8(math.Round(math.Max(0, math.Min(1, n)) * 127))
}

// Encode converts a device event to a channel message. ok is false when
// the event has no MIDI form (an unmapped parameter).
func Encode(channel uint8, ev device.Event, cc map[string]uint8, params *device.ParamSet) (msg gomidi.Message, ok bool) {
	switch ev.Type {
	case device.NoteOn:
		if ev.Velocity == 0 {
			return gomidi.NoteOff(channel, ev.Note), true
		}
		return gomidi.NoteOn(channel, ev.Note, ev.Velocity), true
	case device.NoteOff:
		return gomidi.NoteOff(channel, ev.Note), true
	case device.ParamChange:
		num, mapped := cc[ev.Param]
		if !mapped {
			return nil, false
		}
		p, known := params.Get(ev.Param)
		if !known {
			return nil, false
		}
		return gomidi.ControlChange(channel, num, scaleCC(p, p.Quantize(ev.Value))), true
	}
	return nil, false
}
