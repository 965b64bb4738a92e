package midi

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2/drivers"

	"go-stepseq/debug"
)

// DeviceEventType says whether a controller appeared or went away.
type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// DeviceEvent reports a hot-plug change. Controller is nil on disconnect.
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

// DeviceManager polls the MIDI ports and opens matching controllers as
// they appear.
type DeviceManager struct {
	mu       sync.RWMutex
	open     map[string]Controller
	events   chan DeviceEvent
	interval time.Duration

	launchpads bool
	keyboards  []string
	ignore     []string
}

// NewDeviceManager watches for Launchpads (when launchpads is set) and for
// input ports whose names contain one of the keyboards fragments.
func NewDeviceManager(launchpads bool, keyboards []string) *DeviceManager {
	return &DeviceManager{
		open:       make(map[string]Controller),
		events:     make(chan DeviceEvent, 16),
		interval:   time.Second,
		launchpads: launchpads,
		keyboards:  keyboards,
	}
}

// Ignore excludes ports by name fragment, e.g. the ports voices play on.
func (dm *DeviceManager) Ignore(fragments ...string) {
	dm.mu.Lock()
	dm.ignore = append(dm.ignore, fragments...)
	dm.mu.Unlock()
}

// Events is closed when Run returns.
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a copy of the open controllers keyed by port name.
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	out := make(map[string]Controller, len(dm.open))
	for id, c := range dm.open {
		out[id] = c
	}
	return out
}

// Run rescans every interval until ctx is done, then closes everything.
func (dm *DeviceManager) Run(ctx context.Context) {
	defer close(dm.events)
	defer dm.closeAll()

	t := time.NewTicker(dm.interval)
	defer t.Stop()
	for {
		dm.scan()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func containsAny(name string, fragments []string) bool {
	return slices.ContainsFunc(fragments, func(f string) bool {
		return f != "" && strings.Contains(name, strings.ToLower(f))
	})
}

func (dm *DeviceManager) classify(name string) ControllerType {
	lower := strings.ToLower(name)
	dm.mu.RLock()
	ignored := containsAny(lower, dm.ignore)
	dm.mu.RUnlock()
	switch {
	case ignored:
		return ControllerUnknown
	case isLaunchpad(lower):
		if dm.launchpads {
			return ControllerLaunchpad
		}
		return ControllerUnknown
	case containsAny(lower, dm.keyboards):
		return ControllerKeyboard
	}
	return ControllerUnknown
}

func (dm *DeviceManager) connect(kind ControllerType, in drivers.In, outs []drivers.Out) (Controller, error) {
	id := in.String()
	if kind == ControllerKeyboard {
		return NewKeyboard(id, in)
	}
	var out drivers.Out
	if i := slices.IndexFunc(outs, func(o drivers.Out) bool { return strings.EqualFold(o.String(), id) }); i >= 0 {
		out = outs[i]
	}
	return NewLaunchpad(id, in, out)
}

func (dm *DeviceManager) scan() {
	ins, outs, err := Ports(ScanTimeout)
	if err != nil {
		debug.Warn("ctrl", "scan skipped: %v", err)
		return
	}

	present := make(map[string]bool, len(ins))
	for _, in := range ins {
		id := in.String()
		kind := dm.classify(id)
		if kind == ControllerUnknown {
			continue
		}
		present[id] = true

		dm.mu.RLock()
		_, known := dm.open[id]
		dm.mu.RUnlock()
		if known {
			continue
		}

		c, err := dm.connect(kind, in, outs)
		if err != nil {
			debug.Warn("ctrl", "connect %s: %v", id, err)
			continue
		}
		dm.mu.Lock()
		dm.open[id] = c
		dm.mu.Unlock()
		debug.Log("ctrl", "connected %s (%s)", id, kind)
		dm.events <- DeviceEvent{Type: DeviceConnected, Controller: c, ID: id}
	}

	for _, id := range dm.prune(present) {
		debug.Log("ctrl", "disconnected %s", id)
		dm.events <- DeviceEvent{Type: DeviceDisconnected, ID: id}
	}
}

// prune closes controllers whose ports vanished and returns their ids.
func (dm *DeviceManager) prune(present map[string]bool) []string {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	var gone []string
	for id, c := range dm.open {
		if present[id] {
			continue
		}
		c.Close()
		delete(dm.open, id)
		gone = append(gone, id)
	}
	return gone
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for id, c := range dm.open {
		c.Close()
		delete(dm.open, id)
	}
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}
