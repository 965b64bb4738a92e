package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-stepseq/config"
	"go-stepseq/debug"
	"go-stepseq/theme"
)

var version = "dev"

var (
	configPath string
	debugLog   bool
	palette    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "go-stepseq",
	Short: "Look-ahead step sequencer for an FM synth, MIDI gear and a Launchpad",
	Long: `go-stepseq plays a 16-step gate grid on two voices. Each triggered step
picks a random degree of the current key and may re-roll the voice's
synthesis parameters.

Examples:
  go-stepseq play
  go-stepseq play --midi "IAC Driver Bus 1" --tempo 96
  go-stepseq bounce -o loop.wav --mid loop.mid --bars 4 --seed 7
  go-stepseq serve --addr :8080
  go-stepseq mcp`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debugLog {
			return debug.Enable(debug.DefaultPath())
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.config/go-stepseq/config.json)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Write a debug log to ~/.config/go-stepseq/debug.log")
	rootCmd.PersistentFlags().StringVar(&palette, "palette", "", "Color palette: a built-in name or a .gpl file")

	rootCmd.AddCommand(playCmd, serveCmd, mcpCmd, bounceCmd, portsCmd)
}

// loadConfig reads the config file, or the defaults when there is none
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

// loadTheme resolves --palette, then the config, then the built-in default
func loadTheme(cfg *config.Config) (*theme.Theme, error) {
	name := palette
	if name == "" {
		name = cfg.UI.Palette
	}
	p, err := theme.LoadPalette(name)
	if err != nil {
		return nil, err
	}
	return theme.New(p), nil
}
