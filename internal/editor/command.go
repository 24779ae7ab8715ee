package editor

import "annotator/internal/domain"

// CommandKind names an input the session understands.
type CommandKind string

const (
	CmdPointerMove       CommandKind = "pointer_move"
	CmdAdd               CommandKind = "add"
	CmdDelete            CommandKind = "delete"
	CmdSetMode           CommandKind = "set_mode"
	CmdCancelPolygon     CommandKind = "cancel_polygon"
	CmdUndoVertex        CommandKind = "undo_vertex"
	CmdRemoveLastPolygon CommandKind = "remove_last_polygon"
	CmdToggleGridCell    CommandKind = "toggle_grid_cell"
	CmdToggleGrid        CommandKind = "toggle_grid"
	CmdSetLayerVisible   CommandKind = "set_layer_visible"
	CmdKey               CommandKind = "key"
)

// Layer is an independently hideable overlay group.
type Layer string

const (
	LayerPoints Layer = "points"
	LayerRects  Layer = "rects"
)

// Command is one user input. Screen, when set, also updates the last known
// pointer position before the command runs.
type Command struct {
	Kind    CommandKind         `json:"kind"`
	Screen  *domain.ScreenPoint `json:"screen,omitempty"`
	Mode    domain.Mode         `json:"mode,omitempty"`
	Key     string              `json:"key,omitempty"`
	Layer   Layer               `json:"layer,omitempty"`
	Visible bool                `json:"visible,omitempty"`
}

// Move is shorthand for a pointer move to (x, y) screen pixels.
func Move(x, y float64) Command {
	return Command{Kind: CmdPointerMove, Screen: &domain.ScreenPoint{X: x, Y: y}}
}

// Press is shorthand for a key press.
func Press(key string) Command {
	return Command{Kind: CmdKey, Key: key}
}

// EffectKind names a redraw or UI update a command produced.
type EffectKind string

const (
	EffectPoints      EffectKind = "redraw_points"
	EffectRects       EffectKind = "redraw_rects"
	EffectRectPreview EffectKind = "rect_preview"
	EffectPolygons    EffectKind = "redraw_polygons"
	EffectGrid        EffectKind = "redraw_grid"
	EffectMode        EffectKind = "mode_changed"
	EffectSubmitState EffectKind = "submit_state"
)

// Effect is an instruction for the rendering side.
type Effect struct {
	Kind      EffectKind  `json:"kind"`
	Mode      domain.Mode `json:"mode,omitempty"`
	CanSubmit bool        `json:"canSubmit,omitempty"`
}
