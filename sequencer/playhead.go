package sequencer

import (
	"context"
	"sync"
	"time"

	"go-stepseq/clock"
	"go-stepseq/debug"
)

// DefaultFPS is the playhead refresh rate
const DefaultFPS = 60

// Highlighter is notified when the drawn playhead moves
type Highlighter interface {
	MoveHighlight(from, to int)
}

// HighlighterFunc adapts a function to Highlighter
type HighlighterFunc func(from, to int)

func (f HighlighterFunc) MoveHighlight(from, to int) { f(from, to) }

// Playhead follows the audio clock: each frame it drains the queue entries
// that are already audible and moves the highlight to the newest one. It
// never touches scheduler state.
type Playhead struct {
	clock clock.Clock
	queue *Queue
	fps   int

	mu           sync.Mutex
	last         int // last drawn step
	highlighters []Highlighter

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPlayhead creates a playhead whose first drawn step wraps to 0
func NewPlayhead(c clock.Clock, q *Queue, stepCount, fps int) *Playhead {
	if stepCount < 1 {
		stepCount = 1
	}
	return &Playhead{
		clock: c,
		queue: q,
		fps:   fps,
		last:  stepCount - 1,
	}
}

// AddHighlighter registers a view to move with the playhead
func (p *Playhead) AddHighlighter(h Highlighter) {
	p.mu.Lock()
	p.highlighters = append(p.highlighters, h)
	p.mu.Unlock()
}

// Step returns the last drawn step
func (p *Playhead) Step() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// resize keeps the drawn step inside a shrunken window
func (p *Playhead) resize(stepCount int) {
	p.mu.Lock()
	if p.last > stepCount-1 {
		p.last = 0
	}
	p.mu.Unlock()
}

// Render draws one frame. It returns true if the highlight moved.
func (p *Playhead) Render() bool {
	entry, ok := p.queue.DrainBefore(p.clock.Now())
	if !ok {
		return false
	}

	p.mu.Lock()
	from := p.last
	if entry.Index == from {
		p.mu.Unlock()
		return false
	}
	p.last = entry.Index
	hs := p.highlighters
	p.mu.Unlock()

	debug.LogEvery(64, "render", "highlight %d -> %d", from, entry.Index)
	for _, h := range hs {
		h.MoveHighlight(from, entry.Index)
	}
	return true
}

// Run renders at the configured frame rate until ctx is done. With fps 0
// it returns immediately and the caller drives Render.
func (p *Playhead) Run(ctx context.Context) {
	if p.fps <= 0 {
		return
	}
	ticker := time.NewTicker(time.Second / time.Duration(p.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Render()
		}
	}
}

// Start launches Run on its own goroutine; calling it again is a no-op
func (p *Playhead) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil || p.fps <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		p.Run(ctx)
	}(p.done)
}

// Close stops the render goroutine and waits for it to exit
func (p *Playhead) Close() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
