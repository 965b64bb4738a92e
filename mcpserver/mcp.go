// Package mcpserver exposes sequencer controls as MCP tools over stdio
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"go-stepseq/debug"
	"go-stepseq/scale"
	"go-stepseq/sequencer"
)

// Controller is the part of the sequencer the tools drive
type Controller interface {
	Snapshot() sequencer.State
	TogglePlayback() bool
	SetTempo(bpm float64) error
	SetStepCount(n int) error
	ToggleGate(voice, step int) (bool, error)
	SetKey(k sequencer.Key)
}

type tools struct {
	ctrl Controller
}

// NewServer registers every sequencer tool
func NewServer(ctrl Controller, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"go-stepseq",
		version,
		server.WithToolCapabilities(false),
	)
	t := &tools{ctrl: ctrl}

	s.AddTool(mcp.NewTool("sequencer_state",
		mcp.WithDescription("Returns the sequencer state as JSON: transport, tempo, step count, playhead, key, and every voice's gates and parameters."),
	), t.state)

	s.AddTool(mcp.NewTool("sequencer_toggle-playback",
		mcp.WithDescription("Starts playback when stopped and stops it when playing. Returns the new transport state."),
	), t.togglePlayback)

	s.AddTool(mcp.NewTool("sequencer_toggle-step",
		mcp.WithDescription("Flips one gate in the step grid."),
		mcp.WithNumber("voice", mcp.Required(), mcp.Description("Voice (grid row), starting at 0.")),
		mcp.WithNumber("step", mcp.Required(), mcp.Description("Step (grid column), 0-15.")),
	), t.toggleStep)

	s.AddTool(mcp.NewTool("sequencer_set-tempo",
		mcp.WithDescription("Sets the tempo in beats per minute. Each step is a sixteenth note."),
		mcp.WithNumber("bpm", mcp.Required(), mcp.Description("Tempo in BPM, greater than 0.")),
	), t.setTempo)

	s.AddTool(mcp.NewTool("sequencer_set-steps",
		mcp.WithDescription("Sets how many steps of the grid are played (1-16). Gates beyond the count are kept."),
		mcp.WithNumber("steps", mcp.Required(), mcp.Description("Active step count, 1-16.")),
	), t.setSteps)

	s.AddTool(mcp.NewTool("sequencer_set-key",
		mcp.WithDescription("Selects the key that random note degrees are drawn from."),
		mcp.WithString("tonic", mcp.Required(), mcp.Description("Tonic pitch class, e.g. C, F#, Bb.")),
		mcp.WithString("mode", mcp.Required(), mcp.Enum(scale.Modes()...), mcp.Description("Scale mode.")),
		mcp.WithNumber("octave", mcp.Description("Octave of degree 1 (default 4, C4 = MIDI 60).")),
	), t.setKey)

	return s
}

// Serve runs the MCP server on stdin/stdout until the client disconnects
func Serve(ctrl Controller, version string) error {
	debug.Log("mcp", "serving on stdio")
	return server.ServeStdio(NewServer(ctrl, version))
}

func (t *tools) state(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	asJson, err := json.MarshalIndent(t.ctrl.Snapshot(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %v", err)
	}
	return mcp.NewToolResultText(string(asJson)), nil
}

func (t *tools) togglePlayback(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.ctrl.TogglePlayback() {
		return mcp.NewToolResultText("Playing."), nil
	}
	return mcp.NewToolResultText("Stopped."), nil
}

func (t *tools) toggleStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	voice, err := request.RequireInt("voice")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	step, err := request.RequireInt("step")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	debug.Log("mcp", "toggle step voice=%d step=%d", voice, step)

	on, err := t.ctrl.ToggleGate(voice, step)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	state := "off"
	if on {
		state = "on"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Voice %d step %d is now %s.", voice, step, state)), nil
}

func (t *tools) setTempo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bpm, err := request.RequireFloat("bpm")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := t.ctrl.SetTempo(bpm); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Tempo set to %g BPM.", bpm)), nil
}

func (t *tools) setSteps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	steps, err := request.RequireInt("steps")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := t.ctrl.SetStepCount(steps); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Playing %d steps.", steps)), nil
}

func (t *tools) setKey(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tonic, err := request.RequireString("tonic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, err := request.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	octave := request.GetInt("octave", scale.DefaultOctave)

	key, err := scale.Parse(tonic, mode, octave)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t.ctrl.SetKey(key)
	return mcp.NewToolResultText(fmt.Sprintf("Key set to %s (degree 1 = MIDI %d).", key, key.Root)), nil
}
