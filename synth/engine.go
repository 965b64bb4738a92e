package synth

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"go-stepseq/clock"
	"go-stepseq/debug"
)

// Engine mixes the voices and is the audio clock. It starts suspended:
// while suspended it renders silence and time does not advance.
type Engine struct {
	sr beep.SampleRate

	mu     sync.Mutex
	fms    []*FM
	voices []beep.Streamer

	frames  atomic.Int64
	running atomic.Bool

	speakerOn bool
}

var _ clock.Clock = (*Engine)(nil)

// NewEngine creates a suspended engine
func NewEngine(sr beep.SampleRate) *Engine {
	return &Engine{sr: sr}
}

// SampleRate returns the engine's rate
func (e *Engine) SampleRate() beep.SampleRate { return e.sr }

// NewVoice creates an FM voice and adds it to the mix
func (e *Engine) NewVoice(name string) *FM {
	f := NewFM(name, e.sr)
	e.mu.Lock()
	f.pos = e.frames.Load()
	e.fms = append(e.fms, f)
	e.voices = append(e.voices, f)
	e.mu.Unlock()
	return f
}

func (e *Engine) Stream(samples [][2]float64) (n int, ok bool) {
	if !e.running.Load() {
		for i := range samples {
			samples[i] = [2]float64{}
		}
		return len(samples), true
	}

	e.mu.Lock()
	start := e.frames.Load()
	for _, f := range e.fms {
		f.seek(start)
	}
	mixed := beep.Mix(e.voices...)
	n, _ = mixed.Stream(samples)
	e.mu.Unlock()

	// Mix stops early when it has no voices
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	e.frames.Add(int64(len(samples)))
	return len(samples), true
}

func (e *Engine) Err() error {
	return nil
}

// Now returns rendered frames in seconds
func (e *Engine) Now() float64 {
	return float64(e.frames.Load()) / float64(e.sr)
}

func (e *Engine) State() clock.State {
	if e.running.Load() {
		return clock.Running
	}
	return clock.Suspended
}

// Resume starts the clock
func (e *Engine) Resume() error {
	if !e.running.Swap(true) {
		debug.Log("synth", "engine resumed at %.3f", e.Now())
	}
	return nil
}

// Suspend freezes the clock and silences output
func (e *Engine) Suspend() {
	e.running.Store(false)
}

// Open starts speaker output with the given buffer length
func (e *Engine) Open(buffer time.Duration) error {
	if err := speaker.Init(e.sr, e.sr.N(buffer)); err != nil {
		return err
	}
	speaker.Play(e)
	e.mu.Lock()
	e.speakerOn = true
	e.mu.Unlock()
	debug.Log("synth", "speaker open: rate=%d buffer=%v", e.sr, buffer)
	return nil
}

// Close stops speaker output
func (e *Engine) Close() {
	e.mu.Lock()
	on := e.speakerOn
	e.speakerOn = false
	e.mu.Unlock()
	if on {
		speaker.Clear()
		speaker.Close()
	}
}
