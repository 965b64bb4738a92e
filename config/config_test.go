package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tempo", func(c *Config) { c.Sequencer.Tempo = 0 }},
		{"too many steps", func(c *Config) { c.Sequencer.Steps = 17 }},
		{"horizon inside lookahead", func(c *Config) { c.Sequencer.ScheduleAhead = 0.02 }},
		{"velocity", func(c *Config) { c.Sequencer.Velocity = 128 }},
		{"no voices", func(c *Config) { c.Voices = nil }},
		{"bad output", func(c *Config) { c.Voices[0].Output = "cv" }},
		{"midi without port", func(c *Config) { c.Voices[1].Output = OutputMIDI }},
		{"chance above one", func(c *Config) { c.Voices[0].ParamChance = 1.5 }},
		{"channel", func(c *Config) { c.Voices[0].Channel = 17 }},
		{"sample rate", func(c *Config) { c.Audio.SampleRate = 100 }},
		{"zero fps", func(c *Config) { c.UI.FPS = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			if err := c.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sequencer.Tempo != 120 {
		t.Errorf("Tempo = %v, want default 120", cfg.Sequencer.Tempo)
	}
}

func TestLoadFileMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"sequencer": {"tempo": 93.5, "steps": 12, "lookaheadMs": 25, "scheduleAhead": 0.1, "noteLength": 0.2, "velocity": 90},
	          "key": {"tonic": "D", "mode": "Dorian", "octave": 3}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sequencer.Tempo != 93.5 || cfg.Sequencer.Steps != 12 {
		t.Errorf("sequencer = %+v", cfg.Sequencer)
	}
	if cfg.Key.Mode != "Dorian" {
		t.Errorf("key = %+v", cfg.Key)
	}
	if len(cfg.Voices) != 2 || cfg.Voices[1].ParamChance != 0.7 {
		t.Errorf("voices lost their defaults: %+v", cfg.Voices)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"sequencer": {"tempo": -1}}`), 0644)

	if _, err := LoadFile(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("LoadFile() err = %v, want ErrInvalid", err)
	}

	os.WriteFile(path, []byte(`{not json`), 0644)
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() accepted malformed JSON")
	}
}

func TestSaveFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := DefaultConfig()
	cfg.AddController(ControllerConfig{PortName: "Keystation", Type: ControllerKeyboard, AutoConnect: true})

	if err := cfg.SaveFile(path); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if ports := got.KeyboardPorts(); len(ports) != 1 || ports[0] != "Keystation" {
		t.Errorf("KeyboardPorts() = %v", ports)
	}
	if !got.LaunchpadAutoConnect() {
		t.Error("LaunchpadAutoConnect() = false")
	}
}

func TestAddControllerReplaces(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AddController(ControllerConfig{PortName: "Launchpad X LPX MIDI", Type: ControllerLaunchpadX})

	if len(cfg.Controllers) != 1 {
		t.Fatalf("controllers = %d, want 1", len(cfg.Controllers))
	}
	if c := cfg.FindController("Launchpad X LPX MIDI"); c == nil || c.AutoConnect {
		t.Errorf("FindController() = %+v, want auto-connect off", c)
	}
	if cfg.LaunchpadAutoConnect() {
		t.Error("LaunchpadAutoConnect() = true after disabling")
	}
}
