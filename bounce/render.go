// Package bounce renders a sequence offline: the scheduler runs against the
// synth engine's frame clock with manually fired timers, so a bounce is
// faster than real time and reproducible for a given seed.
package bounce

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"go-stepseq/clock"
	"go-stepseq/debug"
	"go-stepseq/device"
	"go-stepseq/midi"
	"go-stepseq/sequencer"
	"go-stepseq/synth"
)

// Voice is one row of the bounced pattern
type Voice struct {
	Name        string
	Pattern     string // "x..." per step, see sequencer.Grid.SetRow
	ParamChance float64
}

// Job describes a bounce
type Job struct {
	SampleRate beep.SampleRate
	Loops      int // passes over the active steps
	Seed       uint64
	Options    sequencer.Options
	Voices     []Voice
	Key        sequencer.Key
}

// Result reports what was rendered
type Result struct {
	Frames   int
	Duration time.Duration
	Notes    int
}

// Render writes the job as a 16-bit stereo WAV to w and, if mid is not nil,
// the same events as an SMF.
func Render(job Job, w io.WriteSeeker, mid io.Writer) (Result, error) {
	if job.SampleRate <= 0 {
		return Result{}, errors.New("sample rate must be positive")
	}
	if job.Loops < 1 {
		job.Loops = 1
	}

	opts := job.Options
	if opts.Tempo == 0 {
		opts.Tempo = sequencer.DefaultOptions().Tempo
	}
	if opts.StepCount == 0 {
		opts.StepCount = sequencer.DefaultOptions().StepCount
	}
	if opts.Lookahead == 0 {
		opts.Lookahead = sequencer.DefaultOptions().Lookahead
	}

	eng := synth.NewEngine(job.SampleRate)
	timers := clock.NewManual()
	rec := NewRecording(opts.Tempo)

	voices := make([]sequencer.Voice, len(job.Voices))
	tracks := make([]*Track, len(job.Voices))
	for i, v := range job.Voices {
		fm := eng.NewVoice(v.Name)
		tracks[i] = rec.Track(v.Name, uint8(i+1), midi.DefaultCC, synth.FMParams())
		voices[i] = sequencer.Voice{
			Name:        v.Name,
			Device:      device.Fanout{fm, tracks[i]},
			ParamChance: v.ParamChance,
		}
	}

	opts.Timers = timers
	opts.FPS = 0
	opts.Rand = rand.New(rand.NewPCG(job.Seed, job.Seed^0x9e3779b97f4a7c15))

	seq, err := sequencer.New(eng, voices, job.Key, opts)
	if err != nil {
		return Result{}, err
	}
	for i, v := range job.Voices {
		if err := seq.SetPattern(i, v.Pattern); err != nil {
			return Result{}, fmt.Errorf("voice %s: %w", v.Name, err)
		}
	}

	seconds := float64(job.Loops*opts.StepCount) * seq.SecondsPerStep()
	frames := job.SampleRate.N(time.Duration(seconds * float64(time.Second)))

	rec.SetEnd(seconds)

	seq.Play()
	timers.Advance(0) // first tick before the first frame

	r := &renderer{
		eng:    eng,
		timers: timers,
		sr:     job.SampleRate,
		block:  max(1, job.SampleRate.N(opts.Lookahead)),
	}
	debug.Log("bounce", "rendering %d frames (%.2fs) seed=%d", frames, seconds, job.Seed)

	err = wav.Encode(w, beep.Take(frames, r), beep.Format{
		SampleRate:  job.SampleRate,
		NumChannels: 2,
		Precision:   2,
	})
	seq.Stop()
	if err != nil {
		return Result{}, fmt.Errorf("encode wav: %w", err)
	}

	if mid != nil {
		if _, err := rec.WriteTo(mid); err != nil {
			return Result{}, fmt.Errorf("write midi: %w", err)
		}
	}

	res := Result{Frames: frames, Duration: job.SampleRate.D(frames)}
	for _, t := range tracks {
		res.Notes += t.noteOns(seconds)
	}
	return res, nil
}

// renderer streams the engine in lookahead-sized blocks and fires the
// scheduler's timers in step with the rendered frames
type renderer struct {
	eng    *synth.Engine
	timers *clock.Manual
	sr     beep.SampleRate
	block  int

	frames   int
	advanced time.Duration
}

func (r *renderer) Stream(samples [][2]float64) (int, bool) {
	for off := 0; off < len(samples); {
		n := min(r.block, len(samples)-off)
		r.eng.Stream(samples[off : off+n])
		off += n
		r.frames += n

		target := r.sr.D(r.frames)
		r.timers.Advance(target - r.advanced)
		r.advanced = target
	}
	return len(samples), true
}

func (r *renderer) Err() error {
	return nil
}

// noteOns counts note-ons that start before end
func (t *Track) noteOns(end float64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.events {
		if e.ev.Type == device.NoteOn && e.ev.Velocity > 0 && e.at < end {
			n++
		}
	}
	return n
}
