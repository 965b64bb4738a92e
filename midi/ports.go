package midi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// ErrPortTimeout is returned when the MIDI driver does not answer in time
// (CoreMIDI can hang; fix with: sudo killall coreaudiod midiserver)
var ErrPortTimeout = errors.New("timed out listing MIDI ports")

// ErrPortNotFound is returned when no port matches a name
var ErrPortNotFound = errors.New("MIDI port not found")

// ScanTimeout bounds each port listing
const ScanTimeout = 3 * time.Second

// Ports lists the input and output ports, giving up after timeout
func Ports(timeout time.Duration) ([]drivers.In, []drivers.Out, error) {
	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ins := gomidi.GetInPorts()
		outs := gomidi.GetOutPorts()
		ch <- result{ins: ins, outs: outs}
	}()

	select {
	case r := <-ch:
		return r.ins, r.outs, nil
	case <-time.After(timeout):
		return nil, nil, ErrPortTimeout
	}
}

// PortNames returns the names of the given ports
func PortNames[P interface{ String() string }](ports []P) []string {
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.String()
	}
	return names
}

// matchPort returns the index of the port named name, preferring an exact
// match over a case-insensitive substring match
func matchPort(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	lower := strings.ToLower(name)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), lower) {
			return i
		}
	}
	return -1
}

// OpenOut opens an output port by name and returns its sender
func OpenOut(name string) (func(gomidi.Message) error, error) {
	_, outs, err := Ports(ScanTimeout)
	if err != nil {
		return nil, err
	}
	i := matchPort(PortNames(outs), name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrPortNotFound, name)
	}
	send, err := gomidi.SendTo(outs[i])
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", outs[i].String(), err)
	}
	return send, nil
}

// CloseDriver releases the MIDI driver
func CloseDriver() {
	gomidi.CloseDriver()
}
