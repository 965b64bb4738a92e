package main

import (
	"testing"

	"github.com/spf13/cobra"

	"go-stepseq/config"
)

func newPlayFlags(t *testing.T, set map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "play"}
	cmd.Flags().StringVar(&midiPort, "midi", "", "")
	cmd.Flags().Float64Var(&tempo, "tempo", 0, "")
	cmd.Flags().IntVar(&steps, "steps", 0, "")
	cmd.Flags().StringVar(&apiAddr, "api", "", "")
	for k, v := range set {
		if err := cmd.Flags().Set(k, v); err != nil {
			t.Fatal(err)
		}
	}
	t.Cleanup(func() { serveAPI = false })
	return cmd
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags map[string]string
		check func(t *testing.T, cfg *config.Config)
		err   bool
	}{
		{
			name:  "no flags keeps config",
			flags: nil,
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Sequencer.Tempo != 120 || cfg.Voices[0].Output != config.OutputSynth || serveAPI {
					t.Errorf("config changed: %+v", cfg.Sequencer)
				}
			},
		},
		{
			name:  "tempo and steps",
			flags: map[string]string{"tempo": "96", "steps": "12"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Sequencer.Tempo != 96 || cfg.Sequencer.Steps != 12 {
					t.Errorf("sequencer = %+v", cfg.Sequencer)
				}
			},
		},
		{
			name:  "midi routes every voice",
			flags: map[string]string{"midi": "IAC"},
			check: func(t *testing.T, cfg *config.Config) {
				for i, v := range cfg.Voices {
					if v.Output != config.OutputMIDI || v.Port != "IAC" || v.Channel != i+1 {
						t.Errorf("voice %d = %+v", i, v)
					}
				}
			},
		},
		{
			name:  "api address",
			flags: map[string]string{"api": ":9000"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.API.Addr != ":9000" || !serveAPI {
					t.Errorf("api = %q serve=%v", cfg.API.Addr, serveAPI)
				}
			},
		},
		{name: "bad steps", flags: map[string]string{"steps": "40"}, err: true},
		{name: "bad tempo", flags: map[string]string{"tempo": "-1"}, err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newPlayFlags(t, tt.flags)
			cfg := config.DefaultConfig()
			err := applyFlags(cmd, cfg)
			if tt.err {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadTheme(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.UI.Palette = "mono"
	th, err := loadTheme(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if th.Palette.Name != "mono" {
		t.Errorf("palette = %q", th.Palette.Name)
	}

	cfg.UI.Palette = "missing"
	if _, err := loadTheme(cfg); err == nil {
		t.Error("unknown palette accepted")
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"play": false, "serve": false, "mcp": false, "bounce": false, "ports": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
