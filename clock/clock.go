// Package clock provides the time sources the scheduler polls and the
// one-shot timers it re-arms.
package clock

import (
	"sync"
	"time"
)

// State reports whether an audio clock is advancing
type State int

const (
	Running State = iota
	Suspended
)

func (s State) String() string {
	if s == Suspended {
		return "suspended"
	}
	return "running"
}

// Clock is a monotonic, high-resolution audio time reference in seconds.
type Clock interface {
	Now() float64
	State() State
	Resume() error
}

// Timer is a pending one-shot callback. Stop returns false if the callback
// already fired or was already stopped.
type Timer interface {
	Stop() bool
}

// Timers arms one-shot callbacks.
type Timers interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Real arms callbacks on the Go runtime timer.
type Real struct{}

// AfterFunc wraps time.AfterFunc
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Wall is a Clock derived from the monotonic wall clock. It starts suspended
// and does not advance while suspended, like a browser audio context before
// the first user gesture.
type Wall struct {
	mu      sync.Mutex
	now     func() time.Time
	start   time.Time     // when last resumed
	elapsed time.Duration // accumulated before the last suspend
	running bool
}

// NewWall creates a suspended wall clock at time zero
func NewWall() *Wall {
	return &Wall{now: time.Now}
}

func (w *Wall) Now() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.elapsed
	if w.running {
		d += w.now().Sub(w.start)
	}
	return d.Seconds()
}

func (w *Wall) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return Running
	}
	return Suspended
}

// Resume starts the clock advancing. Resuming a running clock is a no-op.
func (w *Wall) Resume() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		w.start = w.now()
		w.running = true
	}
	return nil
}

// Suspend freezes the clock at its current value
func (w *Wall) Suspend() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		w.elapsed += w.now().Sub(w.start)
		w.running = false
	}
}
