// Package studio assembles a running sequencer from the config: the audio
// clock, the voice devices, the key, and any connected MIDI controllers.
package studio

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gopxl/beep"

	"go-stepseq/clock"
	"go-stepseq/config"
	"go-stepseq/debug"
	"go-stepseq/device"
	"go-stepseq/midi"
	"go-stepseq/scale"
	"go-stepseq/sequencer"
	"go-stepseq/synth"
	"go-stepseq/theme"
)

const ledFPS = 30

// Studio owns the sequencer and everything plugged into it
type Studio struct {
	cfg    *config.Config
	seq    *sequencer.Sequencer
	clock  clock.Clock
	engine *synth.Engine // nil when every voice is MIDI
	outs   []*midi.Out
	theme  *theme.Theme

	mu          sync.Mutex
	controllers map[string]midi.Controller
	prevLEDs    map[string]map[[2]int]LEDState // per controller, for diffing
	ledDirty    bool
	selected    int // voice that receives keyboard notes and auditions

	// UpdateChan signals the TUI that something changed (buffered 1)
	UpdateChan chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds the voices, key and sequencer described by cfg. Nothing is
// opened until Start.
func New(cfg *config.Config, th *theme.Theme) (*Studio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Studio{cfg: cfg, theme: th}

	// The synth engine is the audio clock when any voice uses it
	for _, vc := range cfg.Voices {
		if vc.Output == config.OutputSynth {
			s.engine = synth.NewEngine(beep.SampleRate(cfg.Audio.SampleRate))
			s.clock = s.engine
			break
		}
	}
	if s.clock == nil {
		s.clock = clock.NewWall()
	}

	var voices []sequencer.Voice
	for _, vc := range cfg.Voices {
		dev, err := s.buildVoice(vc)
		if err != nil {
			return nil, fmt.Errorf("voice %q: %w", vc.Name, err)
		}
		voices = append(voices, sequencer.Voice{Name: vc.Name, Device: dev, ParamChance: vc.ParamChance})
	}

	key, err := scale.Parse(cfg.Key.Tonic, cfg.Key.Mode, cfg.Key.Octave)
	if err != nil {
		return nil, err
	}

	seq, err := sequencer.New(s.clock, voices, key, SequencerOptions(cfg))
	if err != nil {
		return nil, err
	}
	for i, vc := range cfg.Voices {
		if vc.Pattern == "" {
			continue
		}
		if err := seq.SetPattern(i, vc.Pattern); err != nil {
			return nil, fmt.Errorf("voice %q pattern: %w", vc.Name, err)
		}
	}

	return newStudio(s, seq), nil
}

// SequencerOptions converts the config's timing section
func SequencerOptions(cfg *config.Config) sequencer.Options {
	return sequencer.Options{
		Tempo:         cfg.Sequencer.Tempo,
		StepCount:     cfg.Sequencer.Steps,
		Lookahead:     cfg.Lookahead(),
		ScheduleAhead: cfg.Sequencer.ScheduleAhead,
		NoteLength:    cfg.Sequencer.NoteLength,
		Velocity:      uint8(cfg.Sequencer.Velocity),
		FPS:           cfg.UI.FPS,
	}
}

// newStudio finishes wiring around an existing sequencer
func newStudio(s *Studio, seq *sequencer.Sequencer) *Studio {
	s.seq = seq
	s.controllers = make(map[string]midi.Controller)
	s.prevLEDs = make(map[string]map[[2]int]LEDState)
	s.UpdateChan = make(chan struct{}, 1)
	if s.clock == nil {
		s.clock = seq.Clock()
	}

	seq.Playhead().AddHighlighter(sequencer.HighlighterFunc(func(from, to int) {
		s.notifyUpdate()
	}))
	seq.OnTransport(func(playing bool) {
		debug.Log("seq", "transport playing=%v", playing)
		s.notifyUpdate()
	})
	seq.OnChange(s.notifyUpdate)

	for _, v := range seq.Voices() {
		if pn, ok := v.Device.(paramNotifier); ok {
			name := v.Name
			pn.OnParamChange(func(p device.Param) {
				debug.LogEvery(16, "ui", "%s %s=%.2f", name, p.Name, p.Value)
				s.notifyUpdate()
			})
		}
	}
	return s
}

// paramNotifier is a device that reports parameter updates, including ones
// applied from scheduled events
type paramNotifier interface {
	OnParamChange(fn func(device.Param))
}

func (s *Studio) buildVoice(vc config.VoiceConfig) (device.Device, error) {
	switch vc.Output {
	case config.OutputSynth:
		return s.engine.NewVoice(vc.Name), nil
	case config.OutputMIDI:
		send, err := midi.OpenOut(vc.Port)
		if err != nil {
			return nil, err
		}
		out := midi.NewOut(vc.Name, send, uint8(vc.Channel), vc.CC, s.clock, synth.FMParams())
		s.outs = append(s.outs, out)
		return out, nil
	}
	return nil, fmt.Errorf("%w: output %q", config.ErrInvalid, vc.Output)
}

// Start opens the audio device, the MIDI dispatch loops, the LED loop and
// (when enabled) controller hot-plug detection.
func (s *Studio) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if s.engine != nil {
		if err := s.engine.Open(s.cfg.Buffer()); err != nil {
			s.cancel()
			return fmt.Errorf("open audio: %w", err)
		}
	}

	for _, out := range s.outs {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			out.Run(ctx)
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.ledLoop(ctx)
	}()

	if s.cfg.LaunchpadAutoConnect() || len(s.cfg.KeyboardPorts()) > 0 {
		dm := midi.NewDeviceManager(s.cfg.LaunchpadAutoConnect(), s.cfg.KeyboardPorts())
		for _, vc := range s.cfg.Voices {
			if vc.Output == config.OutputMIDI && vc.Port != "" {
				dm.Ignore(vc.Port)
			}
		}
		s.wg.Add(2)
		go func() {
			defer s.wg.Done()
			dm.Run(ctx)
		}()
		go func() {
			defer s.wg.Done()
			for ev := range dm.Events() {
				switch ev.Type {
				case midi.DeviceConnected:
					s.Attach(ev.Controller)
				case midi.DeviceDisconnected:
					s.Detach(ev.ID)
				}
			}
		}()
	}
	return nil
}

// Attach starts reading a controller and mirrors the grid on its LEDs
func (s *Studio) Attach(c midi.Controller) {
	s.mu.Lock()
	s.controllers[c.ID()] = c
	s.prevLEDs[c.ID()] = make(map[[2]int]LEDState) // diff will repaint everything
	s.ledDirty = true
	s.mu.Unlock()
	debug.Log("ctrl", "attached %s (%s)", c.ID(), c.Type())

	go func() {
		for ev := range c.PadEvents() {
			s.HandlePad(ev.Row, ev.Col)
		}
	}()
	go func() {
		for ev := range c.NoteEvents() {
			s.HandleNote(ev)
		}
	}()
	s.notifyUpdate()
}

// Detach forgets a controller; the device manager closes it
func (s *Studio) Detach(id string) {
	s.mu.Lock()
	delete(s.controllers, id)
	delete(s.prevLEDs, id)
	s.mu.Unlock()
	debug.Log("ctrl", "detached %s", id)
	s.notifyUpdate()
}

// Controllers lists attached controller IDs
func (s *Studio) Controllers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.controllers))
	for id := range s.controllers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HandlePad maps a Launchpad press to a sequencer action
func (s *Studio) HandlePad(row, col int) {
	switch {
	case row == midi.TopRow && col == 0:
		s.seq.TogglePlayback()
	case row == midi.TopRow && col == 1:
		if err := s.seq.RandomizeParams(s.Selected()); err != nil {
			debug.Warn("ctrl", "randomize voice %d: %v", s.Selected(), err)
		}
	case row >= 0 && row < 8 && col >= 0 && col < 8:
		if voice, step, ok := padStep(row, col); ok {
			if voice >= len(s.seq.Voices()) {
				return
			}
			if _, err := s.seq.ToggleGate(voice, step); err != nil {
				debug.Warn("ctrl", "pad %d,%d: %v", row, col, err)
				return
			}
			s.SelectVoice(voice)
			return
		}
		if row == 0 {
			if err := s.seq.Audition(s.Selected(), col+1); err != nil {
				debug.Warn("ctrl", "audition: %v", err)
			}
		}
	}
	s.markLEDsDirty()
}

// HandleNote echoes a keyboard note to the selected voice
func (s *Studio) HandleNote(ev midi.NoteEvent) {
	if err := s.seq.PlayNote(s.Selected(), ev.Note, ev.Velocity); err != nil {
		debug.Warn("ctrl", "note %d: %v", ev.Note, err)
	}
}

// SelectVoice picks the voice for live input
func (s *Studio) SelectVoice(v int) {
	if v < 0 || v >= len(s.seq.Voices()) {
		return
	}
	s.mu.Lock()
	changed := s.selected != v
	s.selected = v
	s.mu.Unlock()
	if changed {
		s.notifyUpdate()
	}
}

func (s *Studio) Selected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Sequencer returns the running sequencer
func (s *Studio) Sequencer() *sequencer.Sequencer {
	return s.seq
}

// Engine returns the synth engine, or nil for an all-MIDI setup
func (s *Studio) Engine() *synth.Engine {
	return s.engine
}

// notifyUpdate refreshes LEDs and notifies TUI
func (s *Studio) notifyUpdate() {
	s.markLEDsDirty()
	select {
	case s.UpdateChan <- struct{}{}:
	default:
	}
}

// Close stops playback and releases every device
func (s *Studio) Close() {
	s.seq.Close()
	if s.cancel != nil {
		s.cancel()
	}

	s.mu.Lock()
	ctrls := make([]midi.Controller, 0, len(s.controllers))
	for _, c := range s.controllers {
		ctrls = append(ctrls, c)
	}
	s.controllers = make(map[string]midi.Controller)
	s.mu.Unlock()
	for _, c := range ctrls {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		debug.Warn("seq", "shutdown timed out")
	}

	if s.engine != nil {
		s.engine.Close()
	}
}
