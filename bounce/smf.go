package bounce

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync"

	"gitlab.com/gomidi/midi/v2/smf"

	"go-stepseq/device"
	"go-stepseq/midi"
)

// TicksPerQuarter is the SMF resolution
const TicksPerQuarter = 960

// Recording collects device events into a Standard MIDI File, one track per
// voice. Times are converted to ticks at a fixed tempo.
type Recording struct {
	tempo  float64
	mu     sync.Mutex
	tracks []*Track
	end    float64 // 0 = keep everything
}

// NewRecording creates an empty recording at tempo BPM
func NewRecording(tempo float64) *Recording {
	return &Recording{tempo: tempo}
}

// SetEnd drops note-ons and parameter changes at or after end seconds.
// Note-offs are kept so every recorded note is closed.
func (r *Recording) SetEnd(end float64) {
	r.mu.Lock()
	r.end = end
	r.mu.Unlock()
}

type stamped struct {
	at float64
	ev device.Event
}

// Track is a device that records what it is asked to play
type Track struct {
	name    string
	channel uint8 // 0-15
	cc      map[string]uint8
	params  *device.ParamSet

	mu     sync.Mutex
	events []stamped
}

// Track adds a voice track on MIDI channel 1-16
func (r *Recording) Track(name string, channel uint8, cc map[string]uint8, params []device.Param) *Track {
	if channel < 1 || channel > 16 {
		channel = 1
	}
	if cc == nil {
		cc = midi.DefaultCC
	}
	t := &Track{
		name:    name,
		channel: channel - 1,
		cc:      cc,
		params:  device.NewParamSet(params...),
	}
	r.mu.Lock()
	r.tracks = append(r.tracks, t)
	r.mu.Unlock()
	return t
}

func (t *Track) ScheduleEvent(at float64, ev device.Event) {
	t.mu.Lock()
	t.events = append(t.events, stamped{at: at, ev: ev})
	t.mu.Unlock()
}

func (t *Track) Params() []device.Param { return t.params.List() }

func (t *Track) Param(name string) (device.Param, bool) { return t.params.Get(name) }

func (t *Track) SetParam(name string, value float64) error {
	_, err := t.params.Set(name, value)
	return err
}

// Len returns the number of recorded events
func (t *Track) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

// ticks converts audio seconds to SMF ticks
func (r *Recording) ticks(seconds float64) uint32 {
	if seconds <= 0 {
		return 0
	}
	return uint32(math.Round(seconds * r.tempo / 60 * TicksPerQuarter))
}

func (r *Recording) smfTrack(t *Track, end float64) smf.Track {
	t.mu.Lock()
	events := append([]stamped(nil), t.events...)
	t.mu.Unlock()
	sort.SliceStable(events, func(i, j int) bool { return events[i].at < events[j].at })

	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName(t.name))

	var last uint32
	for _, e := range events {
		if end > 0 && e.at >= end && e.ev.Type != device.NoteOff {
			continue
		}
		if e.ev.Type == device.ParamChange {
			if _, err := t.params.Set(e.ev.Param, e.ev.Value); err != nil {
				continue
			}
		}
		msg, ok := midi.Encode(t.channel, e.ev, t.cc, t.params)
		if !ok {
			continue
		}
		tick := r.ticks(e.at)
		track.Add(tick-last, msg)
		last = tick
	}
	track.Close(0)
	return track
}

// WriteTo writes a format 1 SMF: a tempo track followed by one track per voice
func (r *Recording) WriteTo(w io.Writer) (int64, error) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var meta smf.Track
	meta.Add(0, smf.MetaTempo(r.tempo))
	meta.Add(0, smf.MetaMeter(4, 4))
	meta.Close(0)
	if err := s.Add(meta); err != nil {
		return 0, fmt.Errorf("add tempo track: %w", err)
	}

	r.mu.Lock()
	tracks := append([]*Track(nil), r.tracks...)
	end := r.end
	r.mu.Unlock()

	for _, t := range tracks {
		if err := s.Add(r.smfTrack(t, end)); err != nil {
			return 0, fmt.Errorf("add track %s: %w", t.name, err)
		}
	}
	return s.WriteTo(w)
}

// WriteFile writes the recording to path
func (r *Recording) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := r.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
