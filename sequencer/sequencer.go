// Package sequencer is the look-ahead step sequencer: a coarse timer wakes
// the scheduler, which queues every step due within the schedule-ahead
// horizon on the devices at its exact audio-clock time, and a playhead that
// follows the same clock to move the step highlight.
package sequencer

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"go-stepseq/clock"
	"go-stepseq/debug"
	"go-stepseq/device"
)

var (
	ErrInvalidTempo     = errors.New("tempo must be a positive number")
	ErrInvalidStepCount = fmt.Errorf("step count must be between 1 and %d", MaxSteps)
	ErrNoKey            = errors.New("no key selected")
)

// Key resolves scale degrees to MIDI pitches
type Key interface {
	DegreeToPitch(degree int) int
	NumDegrees() int
}

// Voice is one grid row and the device it plays
type Voice struct {
	Name   string
	Device device.Device
	// ParamChance is the probability that a triggered step also
	// randomizes the device parameters.
	ParamChance float64
}

// Options configures a Sequencer. Zero fields take the defaults.
type Options struct {
	Tempo         float64       // BPM
	StepCount     int           // active steps, 1..MaxSteps
	Lookahead     time.Duration // how often the scheduler wakes up
	ScheduleAhead float64       // seconds of audio scheduled in advance
	NoteLength    float64       // seconds between note-on and note-off
	Velocity      uint8
	FPS           int // playhead frame rate, 0 = driven by the caller
	Timers        clock.Timers
	Rand          *rand.Rand
}

// DefaultOptions returns the standard timing: 120 BPM, 16 steps, wake every
// 25ms and schedule 100ms ahead.
func DefaultOptions() Options {
	return Options{
		Tempo:         120,
		StepCount:     16,
		Lookahead:     25 * time.Millisecond,
		ScheduleAhead: 0.1,
		NoteLength:    0.25,
		Velocity:      100,
		FPS:           DefaultFPS,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Tempo == 0 {
		o.Tempo = d.Tempo
	}
	if o.StepCount == 0 {
		o.StepCount = d.StepCount
	}
	if o.Lookahead == 0 {
		o.Lookahead = d.Lookahead
	}
	if o.ScheduleAhead == 0 {
		o.ScheduleAhead = d.ScheduleAhead
	}
	if o.NoteLength == 0 {
		o.NoteLength = d.NoteLength
	}
	if o.Velocity == 0 {
		o.Velocity = d.Velocity
	}
	if o.Timers == nil {
		o.Timers = clock.Real{}
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	return o
}

// Sequencer owns the step grid, the scheduler state and the playback queue.
// One mutex serializes timer callbacks, transport changes and edits.
type Sequencer struct {
	mu sync.Mutex

	clock    clock.Clock
	timers   clock.Timers
	voices   []Voice
	grid     *Grid
	queue    *Queue
	playhead *Playhead
	key      Key
	rng      *rand.Rand

	tempo          float64
	secondsPerStep float64
	stepCount      int
	lookahead      time.Duration
	scheduleAhead  float64
	noteLength     float64
	velocity       uint8

	// Scheduler state
	playing      bool
	currentStep  int
	nextStepTime float64
	timer        clock.Timer
	gen          uint64 // bumped on stop; stale timer callbacks compare against it

	onTransport []func(playing bool)
	onChange    []func()
}

// New creates a stopped sequencer
func New(c clock.Clock, voices []Voice, key Key, opts Options) (*Sequencer, error) {
	opts = opts.withDefaults()
	if !validTempo(opts.Tempo) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTempo, opts.Tempo)
	}
	if opts.StepCount < 1 || opts.StepCount > MaxSteps {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStepCount, opts.StepCount)
	}

	s := &Sequencer{
		clock:         c,
		timers:        opts.Timers,
		voices:        append([]Voice(nil), voices...),
		grid:          NewGrid(len(voices)),
		queue:         &Queue{},
		key:           key,
		rng:           opts.Rand,
		stepCount:     opts.StepCount,
		lookahead:     opts.Lookahead,
		scheduleAhead: opts.ScheduleAhead,
		noteLength:    opts.NoteLength,
		velocity:      opts.Velocity,
	}
	s.setTempo(opts.Tempo)
	s.playhead = NewPlayhead(c, s.queue, opts.StepCount, opts.FPS)
	return s, nil
}

func validTempo(bpm float64) bool {
	return bpm > 0 && !math.IsNaN(bpm) && !math.IsInf(bpm, 0)
}

// setTempo updates tempo and its derived step length together (caller holds mu)
func (s *Sequencer) setTempo(bpm float64) {
	s.tempo = bpm
	s.secondsPerStep = 60.0 / bpm / 4
}

// Transport

// TogglePlayback starts or stops playback and returns the new state
func (s *Sequencer) TogglePlayback() bool {
	s.mu.Lock()
	if s.playing {
		s.stop()
	} else {
		s.play()
	}
	playing := s.playing
	subs := s.onTransport
	s.mu.Unlock()

	s.notifyTransport(subs, playing)
	return playing
}

// Play starts playback; no-op if already playing
func (s *Sequencer) Play() {
	s.mu.Lock()
	if s.playing {
		s.mu.Unlock()
		return
	}
	s.play()
	subs := s.onTransport
	s.mu.Unlock()
	s.notifyTransport(subs, true)
}

// Stop stops playback; no-op if already stopped
func (s *Sequencer) Stop() {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	s.stop()
	subs := s.onTransport
	s.mu.Unlock()
	s.notifyTransport(subs, false)
}

func (s *Sequencer) play() {
	if s.clock.State() == clock.Suspended {
		if err := s.clock.Resume(); err != nil {
			debug.Warn("seq", "resume audio clock: %v", err)
		}
	}

	s.playing = true
	s.currentStep = 0
	s.nextStepTime = s.clock.Now()

	// First tick runs from a zero-delay timer so an immediate Stop can
	// still cancel it.
	s.arm(0)
	s.playhead.Start()
	debug.Log("seq", "play at %.3f tempo=%.1f steps=%d", s.nextStepTime, s.tempo, s.stepCount)
}

func (s *Sequencer) stop() {
	s.playing = false
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	debug.Log("seq", "stop at step %d", s.currentStep)
}

func (s *Sequencer) notifyTransport(subs []func(bool), playing bool) {
	for _, fn := range subs {
		fn(playing)
	}
	s.changed()
}

// Playing reports whether the scheduler is running
func (s *Sequencer) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// OnTransport registers fn to be called after every play/stop transition
func (s *Sequencer) OnTransport(fn func(playing bool)) {
	s.mu.Lock()
	s.onTransport = append(s.onTransport, fn)
	s.mu.Unlock()
}

// OnChange registers fn to be called after any edit or transport change
func (s *Sequencer) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

func (s *Sequencer) changed() {
	s.mu.Lock()
	subs := s.onChange
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// Scheduler

// arm schedules the next tick (caller holds mu)
func (s *Sequencer) arm(d time.Duration) {
	gen := s.gen
	s.timer = s.timers.AfterFunc(d, func() { s.fire(gen) })
}

// fire is the timer callback; callbacks from a cancelled generation do nothing
func (s *Sequencer) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing || gen != s.gen {
		return
	}
	s.timer = nil
	s.tick()
}

// tick schedules every step that falls inside the horizon, then re-arms
// (caller holds mu)
func (s *Sequencer) tick() {
	horizon := s.clock.Now() + s.scheduleAhead
	for s.nextStepTime < horizon {
		s.scheduleStep(s.currentStep, s.nextStepTime)
		s.advance()
	}
	s.arm(s.lookahead)
}

// advance moves to the next step (caller holds mu)
func (s *Sequencer) advance() {
	s.nextStepTime += s.secondsPerStep
	s.currentStep = (s.currentStep + 1) % s.stepCount
}

// scheduleStep queues the step for the playhead and triggers every voice
// whose gate is set at audio time t (caller holds mu)
func (s *Sequencer) scheduleStep(step int, t float64) {
	s.queue.Push(QueuedStep{Index: step, Time: t})
	debug.LogEvery(16, "tick", "step %d at %.3f", step, t)

	for v, voice := range s.voices {
		if !s.grid.Gate(v, step) || voice.Device == nil {
			continue
		}
		if s.rng.Float64() < voice.ParamChance {
			s.randomizeParams(voice.Device, t)
		}
		if !hasDegrees(s.key) {
			debug.Warn("tick", "voice %d step %d: no key, trigger skipped", v, step)
			continue
		}
		degree := s.rng.IntN(s.key.NumDegrees()) + 1
		s.trigger(voice.Device, s.key.DegreeToPitch(degree), t)
	}
}

// hasDegrees reports whether k can resolve a degree to a pitch
func hasDegrees(k Key) bool {
	return k != nil && k.NumDegrees() > 0
}

// trigger schedules a note-on at t and its note-off one note length later
func (s *Sequencer) trigger(d device.Device, pitch int, t float64) {
	note := uint8(max(0, min(127, pitch)))
	d.ScheduleEvent(t, device.Event{Type: device.NoteOn, Note: note, Velocity: s.velocity})
	d.ScheduleEvent(t+s.noteLength, device.Event{Type: device.NoteOff, Note: note})
}

// randomizeParams draws every parameter uniformly within its range
func (s *Sequencer) randomizeParams(d device.Device, t float64) {
	for _, p := range d.Params() {
		v := p.Quantize(p.Min + s.rng.Float64()*(p.Max-p.Min))
		d.ScheduleEvent(t, device.Event{Type: device.ParamChange, Param: p.Name, Value: v})
	}
}

// Edits

// SetTempo changes the tempo; the next scheduled step uses the new length
func (s *Sequencer) SetTempo(bpm float64) error {
	if !validTempo(bpm) {
		return fmt.Errorf("%w: %v", ErrInvalidTempo, bpm)
	}
	s.mu.Lock()
	s.setTempo(bpm)
	s.mu.Unlock()
	s.changed()
	return nil
}

// Tempo returns the BPM
func (s *Sequencer) Tempo() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tempo
}

// SecondsPerStep returns the length of one sixteenth at the current tempo
func (s *Sequencer) SecondsPerStep() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secondsPerStep
}

// SetStepCount changes the active window. Stored gates beyond it are kept.
func (s *Sequencer) SetStepCount(n int) error {
	if n < 1 || n > MaxSteps {
		return fmt.Errorf("%w: %d", ErrInvalidStepCount, n)
	}
	s.mu.Lock()
	s.stepCount = n
	if s.currentStep >= n {
		s.currentStep = 0
	}
	s.playhead.resize(n)
	s.mu.Unlock()
	s.changed()
	return nil
}

// StepCount returns the active window size
func (s *Sequencer) StepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepCount
}

// ToggleGate flips one gate and returns its new value
func (s *Sequencer) ToggleGate(voice, step int) (bool, error) {
	s.mu.Lock()
	on, err := s.grid.ToggleGate(voice, step)
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	s.changed()
	return on, nil
}

// SetPattern replaces a voice's gates from a string like "x...x..."
func (s *Sequencer) SetPattern(voice int, pattern string) error {
	s.mu.Lock()
	err := s.grid.SetRow(voice, pattern)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.changed()
	return nil
}

// Gate reports one gate
func (s *Sequencer) Gate(voice, step int) bool {
	return s.grid.Gate(voice, step)
}

// SetKey swaps the key collaborator; nil disables note triggers
func (s *Sequencer) SetKey(k Key) {
	s.mu.Lock()
	s.key = k
	s.mu.Unlock()
	s.changed()
}

// Key returns the current key (may be nil)
func (s *Sequencer) Key() Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// Audition plays a scale degree one octave up on a voice right now
func (s *Sequencer) Audition(voice, degree int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if voice < 0 || voice >= len(s.voices) || s.voices[voice].Device == nil {
		return fmt.Errorf("%w: voice %d", ErrOutOfRange, voice)
	}
	if !hasDegrees(s.key) {
		return ErrNoKey
	}
	s.trigger(s.voices[voice].Device, s.key.DegreeToPitch(degree)+12, s.clock.Now())
	return nil
}

// PlayNote sends a note straight to a voice at the current audio time.
// Velocity 0 is a note-off.
func (s *Sequencer) PlayNote(voice int, note, velocity uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if voice < 0 || voice >= len(s.voices) || s.voices[voice].Device == nil {
		return fmt.Errorf("%w: voice %d", ErrOutOfRange, voice)
	}
	ev := device.Event{Type: device.NoteOn, Note: note, Velocity: velocity}
	if velocity == 0 {
		ev.Type = device.NoteOff
	}
	s.voices[voice].Device.ScheduleEvent(s.clock.Now(), ev)
	return nil
}

// RandomizeParams re-rolls every parameter of a voice immediately
func (s *Sequencer) RandomizeParams(voice int) error {
	s.mu.Lock()
	if voice < 0 || voice >= len(s.voices) || s.voices[voice].Device == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: voice %d", ErrOutOfRange, voice)
	}
	s.randomizeParams(s.voices[voice].Device, s.clock.Now())
	s.mu.Unlock()
	s.changed()
	return nil
}

// Accessors

func (s *Sequencer) Voices() []Voice     { return append([]Voice(nil), s.voices...) }
func (s *Sequencer) Grid() *Grid         { return s.grid }
func (s *Sequencer) Queue() *Queue       { return s.queue }
func (s *Sequencer) Playhead() *Playhead { return s.playhead }
func (s *Sequencer) Clock() clock.Clock  { return s.clock }

// VoiceState is a voice as seen by control surfaces
type VoiceState struct {
	Name        string         `json:"name"`
	ParamChance float64        `json:"paramChance"`
	Gates       []bool         `json:"gates"`
	Params      []device.Param `json:"params"`
}

// State is a point-in-time copy of everything a control surface shows
type State struct {
	Playing        bool         `json:"playing"`
	Tempo          float64      `json:"tempo"`
	SecondsPerStep float64      `json:"secondsPerStep"`
	StepCount      int          `json:"stepCount"`
	CurrentStep    int          `json:"currentStep"`
	NextStepTime   float64      `json:"nextStepTime"`
	Playhead       int          `json:"playhead"`
	Key            string       `json:"key"`
	Voices         []VoiceState `json:"voices"`
}

// Snapshot copies the current state
func (s *Sequencer) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Playing:        s.playing,
		Tempo:          s.tempo,
		SecondsPerStep: s.secondsPerStep,
		StepCount:      s.stepCount,
		CurrentStep:    s.currentStep,
		NextStepTime:   s.nextStepTime,
		Playhead:       s.playhead.Step(),
	}
	if s.key != nil {
		st.Key = fmt.Sprint(s.key)
	}
	for i, v := range s.voices {
		row := s.grid.Row(i)
		vs := VoiceState{
			Name:        v.Name,
			ParamChance: v.ParamChance,
			Gates:       append([]bool(nil), row[:s.stepCount]...),
		}
		if v.Device != nil {
			vs.Params = v.Device.Params()
		}
		st.Voices = append(st.Voices, vs)
	}
	return st
}

// Close stops playback and the playhead goroutine
func (s *Sequencer) Close() {
	s.Stop()
	s.playhead.Close()
}
