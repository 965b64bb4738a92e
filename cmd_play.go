package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"go-stepseq/api"
	"go-stepseq/config"
	"go-stepseq/debug"
	"go-stepseq/mcpserver"
	"go-stepseq/midi"
	"go-stepseq/studio"
	"go-stepseq/theme"
	"go-stepseq/tui"
	"go-stepseq/widgets"
)

var (
	midiPort string
	tempo    float64
	steps    int
	apiAddr  string
	headless bool
	serveAPI bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Run the sequencer with the terminal UI",
	RunE:  runPlay,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run headless with the HTTP control API",
	RunE: func(cmd *cobra.Command, args []string) error {
		headless = true
		serveAPI = true
		return runPlay(cmd, args)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run headless as an MCP tool server on stdio",
	RunE:  runMCP,
}

func init() {
	for _, c := range []*cobra.Command{playCmd, serveCmd, mcpCmd} {
		c.Flags().StringVar(&midiPort, "midi", "", "Play every voice on this MIDI output port instead of the synth")
		c.Flags().Float64Var(&tempo, "tempo", 0, "Tempo in BPM")
		c.Flags().IntVar(&steps, "steps", 0, "Active steps (1-16)")
	}
	playCmd.Flags().StringVar(&apiAddr, "api", "", "Also serve the HTTP API on this address")
	playCmd.Flags().BoolVar(&headless, "headless", false, "No terminal UI; start playing immediately")
	serveCmd.Flags().StringVar(&apiAddr, "addr", "", "Listen address (default from config)")
}

// applyFlags lets command-line flags override the loaded config
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("midi") {
		for i := range cfg.Voices {
			cfg.Voices[i].Output = config.OutputMIDI
			cfg.Voices[i].Port = midiPort
			if cfg.Voices[i].Channel == 0 {
				cfg.Voices[i].Channel = i + 1
			}
		}
	}
	if cmd.Flags().Changed("tempo") {
		cfg.Sequencer.Tempo = tempo
	}
	if cmd.Flags().Changed("steps") {
		cfg.Sequencer.Steps = steps
	}
	if cmd.Flags().Changed("addr") || cmd.Flags().Changed("api") {
		cfg.API.Addr = apiAddr
		serveAPI = true
	}
	if serveAPI && cfg.API.Addr == "" {
		return fmt.Errorf("%w: no API address", config.ErrInvalid)
	}
	return cfg.Validate()
}

type session struct {
	studio *studio.Studio
	cfg    *config.Config
	theme  *theme.Theme
}

func openStudio(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	th, err := loadTheme(cfg)
	if err != nil {
		return nil, err
	}
	st, err := studio.New(cfg, th)
	if err != nil {
		return nil, err
	}
	return &session{studio: st, cfg: cfg, theme: th}, nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	sess, err := openStudio(cmd)
	if err != nil {
		return err
	}
	st := sess.studio
	defer midi.CloseDriver()
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := st.Start(ctx); err != nil {
		return err
	}

	addr := sess.cfg.API.Addr
	apiErr := make(chan error, 1)
	if serveAPI {
		go func() { apiErr <- api.Serve(ctx, addr, st.Sequencer()) }()
	}

	if headless {
		fmt.Println("go-stepseq", version)
		fmt.Println(widgets.RenderKeyHelp(padHelp))
		if serveAPI {
			fmt.Printf("\nHTTP API on %s\n", addr)
		}
		fmt.Println("\nCtrl+C to stop")

		st.Sequencer().Play()
		select {
		case <-ctx.Done():
			return nil
		case err := <-apiErr:
			return err
		}
	}

	p := tea.NewProgram(tui.NewModel(st, sess.theme, sess.cfg.UI.FPS), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func runMCP(cmd *cobra.Command, args []string) error {
	sess, err := openStudio(cmd)
	if err != nil {
		return err
	}
	st := sess.studio
	defer midi.CloseDriver()
	defer st.Close()

	if err := st.Start(context.Background()); err != nil {
		return err
	}
	debug.Log("mcp", "studio started")
	return mcpserver.Serve(st.Sequencer(), version)
}

var padHelp = []widgets.KeySection{
	{
		Title: "Launchpad",
		Keys: []widgets.KeyBinding{
			{Key: "top 1", Desc: "play / stop"},
			{Key: "top 2", Desc: "randomize selected voice"},
			{Key: "rows 8-7", Desc: "voice 1 steps 1-16"},
			{Key: "rows 6-5", Desc: "voice 2 steps 1-16"},
			{Key: "row 1", Desc: "audition degrees 1-8"},
		},
	},
	{
		Title: "Keyboard",
		Keys: []widgets.KeyBinding{
			{Key: "any key", Desc: "plays on the selected voice"},
		},
	},
}
