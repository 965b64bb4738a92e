package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid config")

// Output kinds for a voice
const (
	OutputSynth = "synth"
	OutputMIDI  = "midi"
)

// ControllerType identifies the kind of controller
type ControllerType string

const (
	ControllerLaunchpadX ControllerType = "launchpad-x"
	ControllerKeyboard   ControllerType = "keyboard"
)

// ControllerConfig defines a saved controller configuration. For keyboards
// PortName may be a fragment of the port name.
type ControllerConfig struct {
	PortName    string         `json:"portName"`
	Type        ControllerType `json:"type"`
	AutoConnect bool           `json:"autoConnect"`
}

// SequencerConfig holds the scheduler timing
type SequencerConfig struct {
	Tempo         float64 `json:"tempo"`
	Steps         int     `json:"steps"`
	LookaheadMs   int     `json:"lookaheadMs"`
	ScheduleAhead float64 `json:"scheduleAhead"` // seconds
	NoteLength    float64 `json:"noteLength"`    // seconds
	Velocity      int     `json:"velocity"`
}

// VoiceConfig describes one grid row and where it plays
type VoiceConfig struct {
	Name        string           `json:"name"`
	Output      string           `json:"output"`         // synth or midi
	Port        string           `json:"port,omitempty"` // midi output port (name or fragment)
	Channel     int              `json:"channel,omitempty"`
	ParamChance float64          `json:"paramChance"`
	CC          map[string]uint8 `json:"cc,omitempty"`
	Pattern     string           `json:"pattern,omitempty"` // initial gates, "x..."
}

// KeyConfig selects the scale
type KeyConfig struct {
	Tonic  string `json:"tonic"`
	Mode   string `json:"mode"`
	Octave int    `json:"octave"`
}

// AudioConfig sets up the software synth output
type AudioConfig struct {
	SampleRate int `json:"sampleRate"`
	BufferMs   int `json:"bufferMs"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	FPS     int    `json:"fps"`
	Palette string `json:"palette,omitempty"`
}

// APIConfig configures the HTTP control surface
type APIConfig struct {
	Addr string `json:"addr,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Sequencer   SequencerConfig    `json:"sequencer"`
	Voices      []VoiceConfig      `json:"voices"`
	Key         KeyConfig          `json:"key"`
	Audio       AudioConfig        `json:"audio"`
	UI          UIConfig           `json:"ui"`
	Controllers []ControllerConfig `json:"controllers,omitempty"`
	API         APIConfig          `json:"api"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Sequencer: SequencerConfig{
			Tempo:         120,
			Steps:         16,
			LookaheadMs:   25,
			ScheduleAhead: 0.1,
			NoteLength:    0.25,
			Velocity:      100,
		},
		Voices: []VoiceConfig{
			{Name: "Voice 1", Output: OutputSynth, Channel: 1, ParamChance: 0.3},
			{Name: "Voice 2", Output: OutputSynth, Channel: 2, ParamChance: 0.7},
		},
		Key:   KeyConfig{Tonic: "C", Mode: "Minor", Octave: 4},
		Audio: AudioConfig{SampleRate: 44100, BufferMs: 100},
		UI:    UIConfig{FPS: 60},
		Controllers: []ControllerConfig{
			{
				PortName:    "Launchpad X LPX MIDI",
				Type:        ControllerLaunchpadX,
				AutoConnect: true,
			},
		},
		API: APIConfig{Addr: ":8080"},
	}
}

// Lookahead returns the scheduler wake-up interval
func (c *Config) Lookahead() time.Duration {
	return time.Duration(c.Sequencer.LookaheadMs) * time.Millisecond
}

// Buffer returns the speaker buffer length
func (c *Config) Buffer() time.Duration {
	return time.Duration(c.Audio.BufferMs) * time.Millisecond
}

// Validate checks ranges; the error lists the first problem found
func (c *Config) Validate() error {
	s := c.Sequencer
	switch {
	case s.Tempo <= 0:
		return fmt.Errorf("%w: sequencer.tempo must be positive, got %v", ErrInvalid, s.Tempo)
	case s.Steps < 1 || s.Steps > 16:
		return fmt.Errorf("%w: sequencer.steps must be 1-16, got %d", ErrInvalid, s.Steps)
	case s.LookaheadMs < 1:
		return fmt.Errorf("%w: sequencer.lookaheadMs must be positive, got %d", ErrInvalid, s.LookaheadMs)
	case s.ScheduleAhead*1000 <= float64(s.LookaheadMs):
		return fmt.Errorf("%w: sequencer.scheduleAhead (%vs) must exceed the lookahead (%dms)", ErrInvalid, s.ScheduleAhead, s.LookaheadMs)
	case s.NoteLength <= 0:
		return fmt.Errorf("%w: sequencer.noteLength must be positive", ErrInvalid)
	case s.Velocity < 1 || s.Velocity > 127:
		return fmt.Errorf("%w: sequencer.velocity must be 1-127, got %d", ErrInvalid, s.Velocity)
	}

	if len(c.Voices) == 0 {
		return fmt.Errorf("%w: at least one voice is required", ErrInvalid)
	}
	for i, v := range c.Voices {
		if v.Output != OutputSynth && v.Output != OutputMIDI {
			return fmt.Errorf("%w: voices[%d].output must be %q or %q, got %q", ErrInvalid, i, OutputSynth, OutputMIDI, v.Output)
		}
		if v.Output == OutputMIDI && v.Port == "" {
			return fmt.Errorf("%w: voices[%d] plays MIDI but has no port", ErrInvalid, i)
		}
		if v.Channel < 0 || v.Channel > 16 {
			return fmt.Errorf("%w: voices[%d].channel must be 1-16, got %d", ErrInvalid, i, v.Channel)
		}
		if v.ParamChance < 0 || v.ParamChance > 1 {
			return fmt.Errorf("%w: voices[%d].paramChance must be 0-1, got %v", ErrInvalid, i, v.ParamChance)
		}
	}

	if c.Audio.SampleRate < 8000 {
		return fmt.Errorf("%w: audio.sampleRate too low: %d", ErrInvalid, c.Audio.SampleRate)
	}
	if c.Audio.BufferMs < 1 {
		return fmt.Errorf("%w: audio.bufferMs must be positive", ErrInvalid)
	}
	if c.UI.FPS < 1 {
		return fmt.Errorf("%w: ui.fps must be at least 1, got %d", ErrInvalid, c.UI.FPS)
	}
	return nil
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-stepseq"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads a config file over the defaults, so missing keys keep
// their default values
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory
func (c *Config) SaveFile(path string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// FindController finds a controller config by port name
func (c *Config) FindController(portName string) *ControllerConfig {
	for i := range c.Controllers {
		if c.Controllers[i].PortName == portName {
			return &c.Controllers[i]
		}
	}
	return nil
}

// AddController adds or updates a controller config
func (c *Config) AddController(ctrl ControllerConfig) {
	for i := range c.Controllers {
		if c.Controllers[i].PortName == ctrl.PortName {
			c.Controllers[i] = ctrl
			return
		}
	}
	c.Controllers = append(c.Controllers, ctrl)
}

// AutoConnectControllers returns controllers with autoConnect enabled
func (c *Config) AutoConnectControllers() []ControllerConfig {
	var result []ControllerConfig
	for _, ctrl := range c.Controllers {
		if ctrl.AutoConnect {
			result = append(result, ctrl)
		}
	}
	return result
}

// LaunchpadAutoConnect reports whether any Launchpad is set to auto-connect
func (c *Config) LaunchpadAutoConnect() bool {
	for _, ctrl := range c.AutoConnectControllers() {
		if ctrl.Type == ControllerLaunchpadX {
			return true
		}
	}
	return false
}

// KeyboardPorts returns the port name fragments of auto-connect keyboards
func (c *Config) KeyboardPorts() []string {
	var ports []string
	for _, ctrl := range c.AutoConnectControllers() {
		if ctrl.Type == ControllerKeyboard {
			ports = append(ports, ctrl.PortName)
		}
	}
	return ports
}
