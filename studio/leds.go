package studio

import (
	"context"
	"time"

	"go-stepseq/debug"
	"go-stepseq/midi"
	"go-stepseq/theme"
)

// LEDState is one lit pad
type LEDState struct {
	Row, Col int
	Color    [3]uint8
	Channel  uint8
}

var (
	colorPlayhead = [3]uint8{255, 255, 255}
	colorStopped  = [3]uint8{40, 40, 40}
)

// padStep maps grid rows 7-4 to two voices, two rows of eight steps each
func padStep(row, col int) (voice, step int, ok bool) {
	if row < 4 || row > 7 || col < 0 || col > 7 {
		return 0, 0, false
	}
	line := 7 - row
	return line / 2, (line%2)*8 + col, true
}

// stepPad is the inverse of padStep
func stepPad(voice, step int) (row, col int) {
	return 7 - (voice*2 + step/8), step % 8
}

// RenderLEDs computes the full pad state. Steps past the step count stay
// dark; the playhead pulses white while playing.
func (s *Studio) RenderLEDs() []LEDState {
	st := s.seq.Snapshot()
	selected := s.Selected()
	var leds []LEDState

	lanes := min(len(st.Voices), 2)
	for v, vs := range st.Voices[:lanes] {
		on := s.theme.VoiceRGB(v, lanes)
		off := on.Scale(0.15)
		if v != selected {
			on = on.Scale(0.6)
		}
		for step := 0; step < st.StepCount; step++ {
			row, col := stepPad(v, step)
			led := LEDState{Row: row, Col: col, Color: off}
			switch {
			case st.Playing && step == st.Playhead:
				led.Color = colorPlayhead
				led.Channel = midi.ChannelPulse
			case vs.Gates[step]:
				led.Color = on
			}
			leds = append(leds, led)
		}
	}

	// Audition row
	for col := 0; col < 8; col++ {
		leds = append(leds, LEDState{Row: 0, Col: col, Color: s.theme.RGB(float64(col) / 7).Scale(0.3)})
	}

	play := LEDState{Row: midi.TopRow, Col: 0, Color: colorStopped}
	if st.Playing {
		play.Color = s.theme.RGB(theme.RoleSuccess)
	}
	leds = append(leds, play, LEDState{Row: midi.TopRow, Col: 1, Color: s.theme.RGB(theme.RoleAccent)})
	return leds
}

// PadGrid returns the LEDs as the 8x8 grid plus top row, for on-screen
// previews
func (s *Studio) PadGrid() (grid [8][8][3]uint8, top [8][3]uint8) {
	for _, led := range s.RenderLEDs() {
		switch {
		case led.Row == midi.TopRow && led.Col < 8:
			top[led.Col] = led.Color
		case led.Row >= 0 && led.Row < 8 && led.Col < 8:
			grid[led.Row][led.Col] = led.Color
		}
	}
	return grid, top
}

// markLEDsDirty flags that LEDs need refresh
func (s *Studio) markLEDsDirty() {
	s.mu.Lock()
	s.ledDirty = true
	s.mu.Unlock()
}

// ledLoop runs at fixed FPS and flushes LED updates
func (s *Studio) ledLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second / ledFPS)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			dirty := s.ledDirty
			s.ledDirty = false
			s.mu.Unlock()

			if dirty {
				s.flushLEDs()
			}
		}
	}
}

// flushLEDs sends only changed LEDs to each controller (diffing + batching)
func (s *Studio) flushLEDs() {
	s.mu.Lock()
	if len(s.controllers) == 0 {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	leds := s.RenderLEDs()
	newMap := make(map[[2]int]LEDState, len(leds))
	for _, led := range leds {
		newMap[[2]int{led.Row, led.Col}] = led
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.controllers {
		prev := s.prevLEDs[id]
		var updates []midi.LEDUpdate

		for key, led := range newMap {
			// Only send if changed
			if p, ok := prev[key]; !ok || p != led {
				updates = append(updates, midi.LEDUpdate{Row: led.Row, Col: led.Col, Color: led.Color, Channel: led.Channel})
			}
		}
		// Clear LEDs that are no longer present
		for key := range prev {
			if _, ok := newMap[key]; !ok {
				updates = append(updates, midi.LEDUpdate{Row: key[0], Col: key[1]})
			}
		}

		if len(updates) > 0 {
			debug.Log("ctrl", "flushLEDs %s: batch=%d prev=%d", id, len(updates), len(prev))
			if err := c.SetLEDBatch(updates); err != nil {
				debug.Warn("ctrl", "LEDs %s: %v", id, err)
			}
		}
		s.prevLEDs[id] = newMap
	}
}
