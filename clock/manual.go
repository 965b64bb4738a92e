package clock

import (
	"sync"
	"time"
)

// Manual is a deterministic Clock and Timers pair. Time only moves when
// Advance is called; due timers fire in order on the caller's goroutine.
// It drives tests and offline rendering.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	state   State
	pending []*manualTimer
	seq     int

	created int
	stopped int
	fired   int
	resumes int
}

type manualTimer struct {
	m    *Manual
	at   time.Duration
	seq  int
	f    func()
	done bool
}

// NewManual creates a running manual clock at time zero
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now.Seconds()
}

func (m *Manual) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manual) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Suspended {
		m.resumes++
	}
	m.state = Running
	return nil
}

// Suspend marks the clock suspended (time still moves with Advance)
func (m *Manual) Suspend() {
	m.mu.Lock()
	m.state = Suspended
	m.mu.Unlock()
}

// AfterFunc arms f to fire once Advance reaches now+d
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{m: m, at: m.now + d, seq: m.seq, f: f}
	m.pending = append(m.pending, t)
	m.created++
	return t
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.m.stopped++
	t.m.remove(t)
	return true
}

// remove drops t from the pending list (caller holds mu)
func (m *Manual) remove(t *manualTimer) {
	for i, p := range m.pending {
		if p == t {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

// Advance moves time forward by d, firing every timer that comes due,
// including timers armed by callbacks during the advance.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		var next *manualTimer
		for _, t := range m.pending {
			if t.at > target {
				continue
			}
			if next == nil || t.at < next.at || (t.at == next.at && t.seq < next.seq) {
				next = t
			}
		}
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		if next.at > m.now {
			m.now = next.at
		}
		next.done = true
		m.fired++
		m.remove(next)
		m.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of armed timers
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Counts returns how many timers were created, stopped and fired
func (m *Manual) Counts() (created, stopped, fired int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created, m.stopped, m.fired
}

// Resumes returns how many times Resume moved the clock out of Suspended
func (m *Manual) Resumes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resumes
}
