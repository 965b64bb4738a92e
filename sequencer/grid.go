package sequencer

import (
	"errors"
	"fmt"
	"sync"
)

// MaxSteps is the number of gates stored per voice
const MaxSteps = 16

var ErrOutOfRange = errors.New("index out of range")

// Grid stores one gate per (voice, step). The active window is chosen by
// the sequencer's step count; steps beyond it keep their values.
type Grid struct {
	mu    sync.RWMutex
	gates [][MaxSteps]bool
}

// NewGrid creates an empty grid for the given number of voices
func NewGrid(voices int) *Grid {
	return &Grid{gates: make([][MaxSteps]bool, voices)}
}

// Voices returns the number of rows
func (g *Grid) Voices() int {
	return len(g.gates)
}

func (g *Grid) check(voice, step int) error {
	if voice < 0 || voice >= len(g.gates) {
		return fmt.Errorf("%w: voice %d", ErrOutOfRange, voice)
	}
	if step < 0 || step >= MaxSteps {
		return fmt.Errorf("%w: step %d", ErrOutOfRange, step)
	}
	return nil
}

// Gate reports whether a step fires; out-of-range reads are false
func (g *Grid) Gate(voice, step int) bool {
	if g.check(voice, step) != nil {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.gates[voice][step]
}

// SetGate sets a single gate
func (g *Grid) SetGate(voice, step int, on bool) error {
	if err := g.check(voice, step); err != nil {
		return err
	}
	g.mu.Lock()
	g.gates[voice][step] = on
	g.mu.Unlock()
	return nil
}

// ToggleGate flips a gate and returns its new value
func (g *Grid) ToggleGate(voice, step int) (bool, error) {
	if err := g.check(voice, step); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gates[voice][step] = !g.gates[voice][step]
	return g.gates[voice][step], nil
}

// Clear turns off every gate of a voice
func (g *Grid) Clear(voice int) error {
	if err := g.check(voice, 0); err != nil {
		return err
	}
	g.mu.Lock()
	g.gates[voice] = [MaxSteps]bool{}
	g.mu.Unlock()
	return nil
}

// Row returns a copy of a voice's gates
func (g *Grid) Row(voice int) [MaxSteps]bool {
	if g.check(voice, 0) != nil {
		return [MaxSteps]bool{}
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.gates[voice]
}

// SetRow replaces a voice's gates from a pattern string like "x...x..."
// where 'x' or '1' is on. Characters past MaxSteps are ignored.
func (g *Grid) SetRow(voice int, pattern string) error {
	if err := g.check(voice, 0); err != nil {
		return err
	}
	var row [MaxSteps]bool
	for i, c := range pattern {
		if i >= MaxSteps {
			break
		}
		row[i] = c == 'x' || c == 'X' || c == '1'
	}
	g.mu.Lock()
	g.gates[voice] = row
	g.mu.Unlock()
	return nil
}

// Pattern renders a voice's gates in the SetRow format
func (g *Grid) Pattern(voice, steps int) string {
	row := g.Row(voice)
	if steps > MaxSteps {
		steps = MaxSteps
	}
	b := make([]byte, 0, steps)
	for i := 0; i < steps; i++ {
		if row[i] {
			b = append(b, 'x')
		} else {
			b = append(b, '.')
		}
	}
	return string(b)
}
