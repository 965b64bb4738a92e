package sequencer

import "sync"

// QueuedStep records that a step was scheduled to sound at Time
type QueuedStep struct {
	Index int     `json:"index"`
	Time  float64 `json:"time"`
}

// Queue is the FIFO between the scheduler (producer) and the playhead
// (consumer). Entries are appended in non-decreasing time order.
type Queue struct {
	mu    sync.Mutex
	steps []QueuedStep
}

// Push appends an entry at the back
func (q *Queue) Push(s QueuedStep) {
	q.mu.Lock()
	q.steps = append(q.steps, s)
	q.mu.Unlock()
}

// Front returns the oldest entry without removing it
func (q *Queue) Front() (QueuedStep, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.steps) == 0 {
		return QueuedStep{}, false
	}
	return q.steps[0], true
}

// Pop removes and returns the oldest entry
func (q *Queue) Pop() (QueuedStep, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.steps) == 0 {
		return QueuedStep{}, false
	}
	s := q.steps[0]
	q.steps = q.steps[1:]
	if len(q.steps) == 0 {
		q.steps = nil // let the backing array go
	}
	return s, true
}

// DrainBefore pops every entry with Time < now and returns the last one
func (q *Queue) DrainBefore(now float64) (QueuedStep, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for n < len(q.steps) && q.steps[n].Time < now {
		n++
	}
	if n == 0 {
		return QueuedStep{}, false
	}
	last := q.steps[n-1]
	q.steps = q.steps[n:]
	if len(q.steps) == 0 {
		q.steps = nil
	}
	return last, true
}

// Len returns the number of queued entries
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.steps)
}

// Snapshot copies the queue contents, oldest first
func (q *Queue) Snapshot() []QueuedStep {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]QueuedStep(nil), q.steps...)
}
