package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/sfsampler-go"
)

type tools struct {
	inst *sfsampler.Instrument
}

func newServer(inst *sfsampler.Instrument) *server.MCPServer {
	s := server.NewMCPServer(
		"Sampler MCP",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	t := &tools{inst: inst}

	s.AddTool(mcp.NewTool("sampler_get-param",
		mcp.WithDescription("Reads an instrument parameter (preset, preset_name, soundfont_name, state, ...)."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Parameter key.")),
	), t.getParam)

	s.AddTool(mcp.NewTool("sampler_set-param",
		mcp.WithDescription("Writes an instrument parameter. Numeric values are clamped to their range."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Parameter key.")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Parameter value as text.")),
	), t.setParam)

	s.AddTool(mcp.NewTool("sampler_send-midi",
		mcp.WithDescription("Sends one channel-voice MIDI message to the instrument."),
		mcp.WithString("bytes", mcp.Required(), mcp.Description("Message bytes in hex, e.g. \"90 3C 64\".")),
	), t.sendMIDI)

	s.AddTool(mcp.NewTool("sampler_list-soundfonts",
		mcp.WithDescription("Rescans the bank directory and lists the banks as JSON."),
	), t.listSoundfonts)

	s.AddTool(mcp.NewTool("sampler_ui-hierarchy",
		mcp.WithDescription("Returns the editor navigation document for the instrument."),
	), t.uiHierarchy)

	s.AddTool(mcp.NewTool("sampler_play-note",
		mcp.WithDescription("Plays a single note on channel 1 and releases it after a duration."),
		mcp.WithNumber("key", mcp.Required(), mcp.Description("MIDI key (0-127).")),
		mcp.WithNumber("velocity", mcp.Description("Velocity (1-127), default 100.")),
		mcp.WithNumber("duration_ms", mcp.Description("Hold time in milliseconds, default 500.")),
	), t.playNote)

	return s
}

func (t *tools) getParam(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := request.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	log.Println("[mcp] get", key)
	v, ok := t.inst.GetParam(key)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown parameter %q", key)), nil
	}
	return mcp.NewToolResultText(v), nil
}

func (t *tools) setParam(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := request.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := request.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	log.Println("[mcp] set", key, value)
	t.inst.SetParam(key, value)
	if msg := t.inst.Error(); msg != "" && strings.Contains(key, "soundfont") {
		return mcp.NewToolResultError(msg), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (t *tools) sendMIDI(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("bytes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg, err := parseHexMessage(text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t.inst.OnMIDI(msg, sfsampler.SourceExternal)
	return mcp.NewToolResultText(gomidi.Message(msg).String()), nil
}

func (t *tools) listSoundfonts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, _ := t.inst.GetParam("soundfont_list")
	return mcp.NewToolResultText(v), nil
}

func (t *tools) uiHierarchy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, _ := t.inst.GetParam("ui_hierarchy")
	return mcp.NewToolResultText(v), nil
}

func (t *tools) playNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := request.RequireInt("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if key < 0 || key > 127 {
		return mcp.NewToolResultError("key must be 0-127"), nil
	}
	velocity := request.GetInt("velocity", 100)
	if velocity < 1 || velocity > 127 {
		return mcp.NewToolResultError("velocity must be 1-127"), nil
	}
	hold := time.Duration(request.GetInt("duration_ms", 500)) * time.Millisecond

	t.inst.OnMIDI(gomidi.NoteOn(0, uint8(key), uint8(velocity)).Bytes(), sfsampler.SourceInternal)
	select {
	case <-time.After(hold):
	case <-ctx.Done():
	}
	t.inst.OnMIDI(gomidi.NoteOff(0, uint8(key)).Bytes(), sfsampler.SourceInternal)
	return mcp.NewToolResultText(fmt.Sprintf("played key %d velocity %d for %s", key, velocity, hold)), nil
}

// parseHexMessage accepts space separated hex bytes with an optional 0x prefix.
func parseHexMessage(text string) ([]byte, error) {
	fields := strings.Fields(strings.ReplaceAll(text, ",", " "))
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty message")
	}
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimPrefix(strings.ToLower(f), "0x")
		b, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("bad byte %q", f)
		}
		out = append(out, byte(b))
	}
	return out, nil
}
