package mcpserver

import (
	"context"
	"fmt"

	"annotator/internal/domain"
	"annotator/internal/editor"

	"github.com/mark3labs/mcp-go/mcp"
)

// commandResult is returned by every editing tool.
type commandResult struct {
	Effects []editor.Effect `json:"effects"`
	State   editor.State    `json:"state"`
}

func positionOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("x", mcp.Description("X position (optional, defaults to the last pointer position)")),
		mcp.WithNumber("y", mcp.Description("Y position (optional, defaults to the last pointer position)")),
		mcp.WithString("space",
			mcp.Description("Coordinate space of x/y: screen (default) or image pixels"),
			mcp.Enum("screen", "image"),
		),
	}
}

func toolWithPosition(name, description string) mcp.Tool {
	opts := append([]mcp.ToolOption{mcp.WithDescription(description)}, positionOptions()...)
	return mcp.NewTool(name, opts...)
}

func (s *Server) registerEditorTools() {
	// ── set_mode ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_mode",
		mcp.WithDescription("Switch the editing mode. Discards a half-drawn rectangle or polygon."),
		mcp.WithString("mode",
			mcp.Description("point, rectangle or calibration"),
			mcp.Enum(string(domain.ModePoint), string(domain.ModeRectangle), string(domain.ModeCalibration)),
			mcp.Required(),
		),
	), s.handleSetMode)

	// ── pointer_move ───────────────────────────────────
	s.mcp.AddTool(toolWithPosition("pointer_move",
		"Move the pointer. Updates rectangle and polygon previews."), s.command(editor.CmdPointerMove))

	// ── add / delete ───────────────────────────────────
	s.mcp.AddTool(toolWithPosition("add",
		"Add at the pointer: a point, a rectangle corner, or a calibration vertex depending on mode"), s.command(editor.CmdAdd))
	s.mcp.AddTool(toolWithPosition("delete",
		"Delete the nearest point or the rectangle under the pointer"), s.command(editor.CmdDelete))

	// ── polygon editing ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("cancel_polygon",
		mcp.WithDescription("Discard the calibration polygon being drawn"),
	), s.command(editor.CmdCancelPolygon))
	s.mcp.AddTool(mcp.NewTool("undo_vertex",
		mcp.WithDescription("Remove the last vertex of the calibration polygon being drawn"),
	), s.command(editor.CmdUndoVertex))
	s.mcp.AddTool(mcp.NewTool("remove_last_polygon",
		mcp.WithDescription("Erase the most recently completed calibration polygon"),
	), s.command(editor.CmdRemoveLastPolygon))

	// ── grid ───────────────────────────────────────────
	s.mcp.AddTool(toolWithPosition("toggle_grid_cell",
		"Mark or unmark the grid cell under the pointer as verified"), s.command(editor.CmdToggleGridCell))
	s.mcp.AddTool(mcp.NewTool("toggle_grid",
		mcp.WithDescription("Show or hide the verification grid"),
	), s.command(editor.CmdToggleGrid))

	// ── layers ─────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_layer_visible",
		mcp.WithDescription("Show or hide the point or rectangle overlay layer"),
		mcp.WithString("layer", mcp.Enum(string(editor.LayerPoints), string(editor.LayerRects)), mcp.Required()),
		mcp.WithBoolean("visible", mcp.Required()),
	), s.handleSetLayerVisible)

	// ── press_key ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("press_key",
		mcp.WithDescription("Press a key as the keyboard bindings define it (e.g. e, r, Escape, Backspace)"),
		mcp.WithString("key", mcp.Description("Key name"), mcp.Required()),
	), s.handlePressKey)
	s.mcp.AddTool(mcp.NewTool("list_keybindings",
		mcp.WithDescription("List the keyboard bindings press_key understands, one per action"),
	), s.handleListKeybindings)

	// ── get_state / pan_to / zoom_to ───────────────────
	s.mcp.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Return the full editor state: mode, annotations, polygons, grid and sync counters"),
	), s.handleGetState)
	s.mcp.AddTool(mcp.NewTool("pan_to",
		mcp.WithDescription("Center the viewer on an image pixel"),
		mcp.WithNumber("x", mcp.Description("Image X"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Image Y"), mcp.Required()),
	), s.handlePanTo)
	s.mcp.AddTool(mcp.NewTool("zoom_to",
		mcp.WithDescription("Set the viewer zoom (1 fits the image width)"),
		mcp.WithNumber("zoom", mcp.Required()),
	), s.handleZoomTo)
}

// command returns a handler that dispatches kind with an optional position.
func (s *Server) command(kind editor.CommandKind) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		screen, err := s.positionArg(req.GetArguments())
		if err != nil {
			return nil, err
		}
		return s.dispatch(ctx, editor.Command{Kind: kind, Screen: screen})
	}
}

func (s *Server) dispatch(ctx context.Context, cmd editor.Command) (*mcp.CallToolResult, error) {
	effects := s.session.Dispatch(ctx, cmd)
	s.emitChanged(ctx, effects)
	if effects == nil {
		effects = []editor.Effect{}
	}
	return jsonResult(commandResult{Effects: effects, State: s.session.Snapshot()})
}

func (s *Server) handleSetMode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := domain.ParseMode(req.GetString("mode", ""))
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, editor.Command{Kind: editor.CmdSetMode, Mode: mode})
}

func (s *Server) handleSetLayerVisible(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	layer := editor.Layer(stringArg(args, "layer"))
	if layer != editor.LayerPoints && layer != editor.LayerRects {
		return nil, fmt.Errorf("layer must be points or rects")
	}
	visible, _ := args["visible"].(bool)
	return s.dispatch(ctx, editor.Command{Kind: editor.CmdSetLayerVisible, Layer: layer, Visible: visible})
}

func (s *Server) handlePressKey(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := req.GetString("key", "")
	if key == "" {
		return nil, fmt.Errorf("key is required")
	}
	if !s.session.Keymap().Intercepts(key) {
		return textResult(fmt.Sprintf("Key %q is not bound; passed through to the viewer", key)), nil
	}
	return s.dispatch(ctx, editor.Press(key))
}

type keyBinding struct {
	Action editor.Action `json:"action"`
	Key    string        `json:"key"`
}

func (s *Server) handleListKeybindings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	km := s.session.Keymap()
	bindings := km.Bindings()
	out := make([]keyBinding, 0, len(bindings))
	for _, a := range km.Actions() {
		out = append(out, keyBinding{Action: a, Key: bindings[a]})
	}
	return jsonResult(out)
}

func (s *Server) handleGetState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.session.Snapshot())
}

func (s *Server) handlePanTo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	x, okX := numberArg(args, "x")
	y, okY := numberArg(args, "y")
	if !okX || !okY {
		return nil, fmt.Errorf("x and y are required")
	}
	if err := s.session.PanToPoint(domain.Point{X: int(x), Y: int(y)}); err != nil {
		return nil, fmt.Errorf("pan: %w", err)
	}
	s.emitChanged(ctx, s.session.OnViewportChange())
	return textResult(fmt.Sprintf("Centered on (%d, %d)", int(x), int(y))), nil
}

func (s *Server) handleZoomTo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	zoom, ok := numberArg(req.GetArguments(), "zoom")
	if !ok || zoom <= 0 {
		return nil, fmt.Errorf("zoom must be a positive number")
	}
	if !s.session.Transformer().Ready() {
		return nil, domain.ErrNotReady
	}
	s.viewer.ZoomTo(zoom)
	s.emitChanged(ctx, s.session.OnViewportChange())
	return textResult(fmt.Sprintf("Zoom set to %g", zoom)), nil
}
