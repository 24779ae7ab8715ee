package editor

import (
	"context"
	"fmt"
	"log"
	"sync"

	"annotator/internal/annotation"
	"annotator/internal/calibration"
	"annotator/internal/coords"
	"annotator/internal/domain"
	"annotator/internal/service"
	"annotator/internal/viewer"

	"github.com/samber/lo"
)

// ─────────────────────────────────────────────────────────────
// Session: one editing session over one image
// ─────────────────────────────────────────────────────────────

// SessionStore persists per-image editor settings.
type SessionStore interface {
	LoadSession(imageID int) domain.SessionState
	SaveSession(state domain.SessionState) error
}

// CalibrationRecorder keeps a local history of submitted calibrations.
type CalibrationRecorder interface {
	SaveRun(run *domain.CalibrationRun) error
}

// Options configures a Session. Zero values fall back to defaults.
type Options struct {
	ImageID         int
	PointTolerance  float64
	CloseThreshold  float64
	GridSize        int
	Keymap          *Keymap
	CalibrationMode string
	Settings        SessionStore
	Recorder        CalibrationRecorder
}

// DefaultCalibrationMode is sent with a calibration when none is given.
const DefaultCalibrationMode = "MICRO"

// Session owns all mutable editor state behind one mutex: every command,
// remote completion and hydration runs serialized through it.
type Session struct {
	mu sync.Mutex

	imageID   int
	tr        *coords.Transformer
	v         viewer.Viewer
	store     *annotation.Store
	modes     *ModeController
	polygons  *calibration.Builder
	grid      *Grid
	keymap    *Keymap
	sync      *service.SyncService
	settings  SessionStore
	recorder  CalibrationRecorder
	renderer  *Renderer
	tolerance float64
	calMode   string

	pointer    *domain.ScreenPoint
	showPoints bool
	showRects  bool
}

// NewSession creates a session and registers it as syncSvc's listener.
func NewSession(v viewer.Viewer, syncSvc *service.SyncService, opts Options) *Session {
	tr := coords.New(v)
	if opts.PointTolerance <= 0 {
		opts.PointTolerance = annotation.DefaultPointTolerance
	}
	if opts.CloseThreshold <= 0 {
		opts.CloseThreshold = calibration.DefaultCloseThreshold
	}
	if opts.Keymap == nil {
		opts.Keymap = MustDefaultKeymap()
	}
	if opts.CalibrationMode == "" {
		opts.CalibrationMode = DefaultCalibrationMode
	}
	polygons := calibration.NewBuilder(tr.ScreenDistance, opts.CloseThreshold)

	s := &Session{
		imageID:    opts.ImageID,
		tr:         tr,
		v:          v,
		store:      annotation.NewStore(),
		modes:      NewModeController(polygons),
		polygons:   polygons,
		grid:       NewGrid(opts.GridSize),
		keymap:     opts.Keymap,
		sync:       syncSvc,
		settings:   opts.Settings,
		recorder:   opts.Recorder,
		tolerance:  opts.PointTolerance,
		calMode:    opts.CalibrationMode,
		showPoints: true,
		showRects:  true,
	}
	if s.settings != nil {
		st := s.settings.LoadSession(s.imageID)
		if m, err := domain.ParseMode(string(st.Mode)); err == nil {
			s.modes.SetMode(m)
		}
		s.grid.SetVisible(st.GridVisible)
	}
	s.modes.AddListener(func(prev, next domain.Mode) {
		log.Printf("editor: image %d mode %s -> %s", s.imageID, prev, next)
	})
	syncSvc.SetListener(s)
	return s
}

// SetRenderer attaches the renderer Dispatch and sync callbacks draw through.
func (s *Session) SetRenderer(r *Renderer) {
	s.mu.Lock()
	s.renderer = r
	s.mu.Unlock()
}

// ImageID returns the image this session edits.
func (s *Session) ImageID() int { return s.imageID }

// Transformer returns the coordinate transformer bound to the viewer.
func (s *Session) Transformer() *coords.Transformer { return s.tr }

// Keymap returns the active key bindings.
func (s *Session) Keymap() *Keymap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keymap
}

// Reconfigure swaps tunables at runtime, e.g. after a config reload.
// Zero values leave the current setting untouched.
func (s *Session) Reconfigure(k *Keymap, pointTolerance, closeThreshold float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k != nil {
		s.keymap = k
	}
	if pointTolerance > 0 {
		s.tolerance = pointTolerance
	}
	if closeThreshold > 0 {
		s.polygons.SetThreshold(closeThreshold)
	}
}

// ── Input dispatch ─────────────────────────────────────────

// Dispatch handles cmd and draws the resulting effects.
func (s *Session) Dispatch(ctx context.Context, cmd Command) []Effect {
	effects := s.HandleInput(ctx, cmd)
	s.render(effects)
	return effects
}

// HandleInput applies cmd to the session state and returns the redraws it
// requires. Commands that need an image position are silently ignored while
// no image is loaded or no pointer position is known.
func (s *Session) HandleInput(ctx context.Context, cmd Command) []Effect {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cmd.Screen != nil {
		p := *cmd.Screen
		s.pointer = &p
	}
	return s.handleLocked(ctx, cmd)
}

func (s *Session) handleLocked(ctx context.Context, cmd Command) []Effect {
	switch cmd.Kind {
	case CmdPointerMove:
		return s.pointerMoved()
	case CmdAdd:
		return s.add(ctx)
	case CmdDelete:
		return s.delete(ctx)
	case CmdSetMode:
		return s.setMode(cmd.Mode)
	case CmdCancelPolygon:
		if s.modes.Current() != domain.ModeCalibration {
			return nil
		}
		s.polygons.Cancel()
		return []Effect{{Kind: EffectPolygons}}
	case CmdUndoVertex:
		if s.modes.Current() != domain.ModeCalibration || !s.polygons.UndoVertex() {
			return nil
		}
		return []Effect{{Kind: EffectPolygons}}
	case CmdRemoveLastPolygon:
		if s.modes.Current() != domain.ModeCalibration || !s.polygons.RemoveLast() {
			return nil
		}
		return []Effect{{Kind: EffectPolygons}, s.submitState()}
	case CmdToggleGridCell:
		return s.toggleGridCell(ctx)
	case CmdToggleGrid:
		s.grid.ToggleVisible()
		s.saveSettings()
		return []Effect{{Kind: EffectGrid}}
	case CmdSetLayerVisible:
		return s.setLayerVisible(cmd.Layer, cmd.Visible)
	case CmdKey:
		return s.key(ctx, cmd.Key)
	}
	return nil
}

func (s *Session) key(ctx context.Context, key string) []Effect {
	action, ok := s.keymap.Lookup(key)
	if !ok {
		return nil
	}
	var kind CommandKind
	switch action {
	case ActionAdd:
		kind = CmdAdd
	case ActionDelete:
		kind = CmdDelete
	case ActionCancelPolygon:
		kind = CmdCancelPolygon
	case ActionUndoVertex:
		kind = CmdUndoVertex
	case ActionRemovePolygon:
		kind = CmdRemoveLastPolygon
	case ActionToggleGridCell:
		kind = CmdToggleGridCell
	case ActionToggleGrid:
		kind = CmdToggleGrid
	default:
		return nil
	}
	return s.handleLocked(ctx, Command{Kind: kind})
}

// pointerImage converts the last pointer position to image pixels.
func (s *Session) pointerImage() (domain.Point, bool) {
	if s.pointer == nil {
		return domain.Point{}, false
	}
	p, err := s.tr.ScreenToImage(*s.pointer)
	if err != nil {
		return domain.Point{}, false
	}
	return p, true
}

func (s *Session) pointerMoved() []Effect {
	pos, ok := s.pointerImage()
	if !ok {
		return nil
	}
	switch s.modes.Current() {
	case domain.ModeRectangle:
		if s.modes.StretchPreview(pos) {
			return []Effect{{Kind: EffectRectPreview}}
		}
	case domain.ModeCalibration:
		if len(s.polygons.Current()) > 0 {
			s.polygons.SetPreview(pos)
			return []Effect{{Kind: EffectPolygons}}
		}
	}
	return nil
}

func (s *Session) add(ctx context.Context) []Effect {
	pos, ok := s.pointerImage()
	if !ok {
		return nil
	}
	switch s.modes.Current() {
	case domain.ModePoint:
		p := s.store.AddPoint(pos.X, pos.Y)
		op := service.NewOperation(domain.OpAddPoint, s.imageID)
		op.Point = &domain.Point{X: p.X, Y: p.Y}
		s.sync.Submit(ctx, op)
		return []Effect{{Kind: EffectPoints}}

	case domain.ModeRectangle:
		corner, placed := s.modes.Corner()
		if !placed {
			s.modes.PlaceCorner(pos)
			return []Effect{{Kind: EffectRectPreview}}
		}
		r := s.store.AddRect(corner, pos)
		s.modes.ClearCorner()
		op := service.NewOperation(domain.OpAddRect, s.imageID)
		geom := *r
		op.Rect = &geom
		s.sync.Submit(ctx, op)
		return []Effect{{Kind: EffectRects}, {Kind: EffectRectPreview}}

	case domain.ModeCalibration:
		closed := s.polygons.Click(pos)
		effects := []Effect{{Kind: EffectPolygons}}
		if closed {
			effects = append(effects, s.submitState())
		}
		return effects
	}
	return nil
}

func (s *Session) delete(ctx context.Context) []Effect {
	pos, ok := s.pointerImage()
	if !ok {
		return nil
	}
	switch s.modes.Current() {
	case domain.ModePoint:
		removed := s.store.RemoveNearestPoint(pos.X, pos.Y, s.tolerance)
		if removed == nil {
			return nil
		}
		op := service.NewOperation(domain.OpRemovePoint, s.imageID)
		op.Point = &domain.Point{X: removed.X, Y: removed.Y}
		s.sync.Submit(ctx, op)
		return []Effect{{Kind: EffectPoints}}

	case domain.ModeRectangle:
		r := s.store.FindRectAt(pos.X, pos.Y)
		if r == nil {
			return nil
		}
		geom := *r
		s.store.RemoveRect(r)
		op := service.NewOperation(domain.OpRemoveRect, s.imageID)
		op.Rect = &geom
		s.sync.Submit(ctx, op)
		return []Effect{{Kind: EffectRects}}
	}
	return nil
}

func (s *Session) setMode(m domain.Mode) []Effect {
	if _, err := domain.ParseMode(string(m)); err != nil {
		return nil
	}
	if !s.modes.SetMode(m) {
		return nil
	}
	s.saveSettings()
	return []Effect{
		{Kind: EffectMode, Mode: m},
		{Kind: EffectRectPreview},
		{Kind: EffectPolygons},
		s.submitState(),
	}
}

func (s *Session) toggleGridCell(ctx context.Context) []Effect {
	pos, ok := s.pointerImage()
	if !ok {
		return nil
	}
	cell := s.grid.CellAt(pos.X, pos.Y)
	s.grid.Toggle(cell)
	s.sync.ToggleGridCell(ctx, s.imageID, cell)
	return []Effect{{Kind: EffectGrid}}
}

func (s *Session) setLayerVisible(layer Layer, visible bool) []Effect {
	switch layer {
	case LayerPoints:
		s.showPoints = visible
		return []Effect{{Kind: EffectPoints}}
	case LayerRects:
		s.showRects = visible
		return []Effect{{Kind: EffectRects}}
	}
	return nil
}

func (s *Session) submitState() Effect {
	return Effect{Kind: EffectSubmitState, CanSubmit: s.polygons.CanSubmit()}
}

func (s *Session) saveSettings() {
	if s.settings == nil {
		return
	}
	st := domain.SessionState{ImageID: s.imageID, Mode: s.modes.Current(), GridVisible: s.grid.Visible()}
	if err := s.settings.SaveSession(st); err != nil {
		log.Printf("editor: save session settings: %v", err)
	}
}

// ── Viewer lifecycle ───────────────────────────────────────

// OnOpen redraws everything once the viewer has loaded the image.
func (s *Session) OnOpen() []Effect {
	effects := allEffects()
	s.render(effects)
	return effects
}

// OnResize redraws the overlays that depend on container geometry.
func (s *Session) OnResize() []Effect {
	effects := []Effect{{Kind: EffectPolygons}, {Kind: EffectGrid}}
	s.render(effects)
	return effects
}

// OnViewportChange redraws the polygon layer after a pan or zoom.
func (s *Session) OnViewportChange() []Effect {
	effects := []Effect{{Kind: EffectPolygons}}
	s.render(effects)
	return effects
}

func allEffects() []Effect {
	return []Effect{
		{Kind: EffectPoints},
		{Kind: EffectRects},
		{Kind: EffectRectPreview},
		{Kind: EffectPolygons},
		{Kind: EffectGrid},
	}
}

// PanToPoint centers the viewer on p.
func (s *Session) PanToPoint(p domain.Point) error {
	if !s.tr.Ready() {
		return domain.ErrNotReady
	}
	s.v.PanTo(s.tr.PointToViewport(p))
	return nil
}

// ── Hydration ──────────────────────────────────────────────

// Hydrate replaces the local annotations with the server's, then replays
// this image's still-pending operations on top so unsynced work stays
// visible (adds as unconfirmed).
func (s *Session) Hydrate(ctx context.Context, src domain.AnnotationSource) error {
	set, err := src.FetchAnnotations(ctx, s.imageID)
	if err != nil {
		return fmt.Errorf("hydrate image %d: %w", s.imageID, err)
	}
	pending, err := s.sync.Pending()
	if err != nil {
		return fmt.Errorf("hydrate image %d: pending: %w", s.imageID, err)
	}

	s.mu.Lock()
	s.store.LoadPoints(set.Points)
	s.store.LoadRects(set.Rects)
	s.grid.Load(set.VerifiedCells)
	mine := lo.Filter(pending, func(op domain.PendingOperation, _ int) bool {
		return op.ImageID == s.imageID
	})
	for _, op := range mine {
		s.replayLocked(op)
	}
	s.mu.Unlock()

	s.sync.SetTotal(set.TotalEggs)
	s.render(allEffects())
	return nil
}

func (s *Session) replayLocked(op domain.PendingOperation) {
	switch op.Kind {
	case domain.OpAddPoint:
		if op.Point != nil {
			s.store.AddPoint(op.Point.X, op.Point.Y)
			s.store.MarkPoint(op.Point.X, op.Point.Y, true)
		}
	case domain.OpRemovePoint:
		if op.Point != nil {
			s.store.RemoveNearestPoint(op.Point.X, op.Point.Y, 0)
		}
	case domain.OpAddRect:
		if op.Rect != nil {
			r := s.store.AddRect(domain.Point{X: op.Rect.X, Y: op.Rect.Y},
				domain.Point{X: op.Rect.X + op.Rect.Width, Y: op.Rect.Y + op.Rect.Height})
			r.Unconfirmed = true
		}
	case domain.OpRemoveRect:
		if op.Rect != nil {
			target := s.store.FindRect(*op.Rect)
			if op.Rect.ID != nil {
				target = &domain.Rect{ID: op.Rect.ID}
			}
			s.store.RemoveRect(target)
		}
	}
}

// ── Sync callbacks ─────────────────────────────────────────

// OnConfirmed clears the unconfirmed marker of a delivered add and records
// the server id of a delivered rect.
func (s *Session) OnConfirmed(op domain.PendingOperation, rectID *int) {
	if op.ImageID != s.imageID {
		return
	}
	var effects []Effect
	s.mu.Lock()
	switch op.Kind {
	case domain.OpAddPoint:
		if op.Point != nil && s.store.MarkPoint(op.Point.X, op.Point.Y, false) {
			effects = append(effects, Effect{Kind: EffectPoints})
		}
	case domain.OpAddRect:
		if op.Rect != nil {
			if rectID != nil {
				s.store.SetRectID(*op.Rect, *rectID)
			}
			if s.store.MarkRect(*op.Rect, false) {
				effects = append(effects, Effect{Kind: EffectRects})
			}
		}
	}
	s.mu.Unlock()
	s.render(effects)
}

// OnQueued marks a failed add as unconfirmed until a retry delivers it.
func (s *Session) OnQueued(op domain.PendingOperation) {
	if op.ImageID != s.imageID {
		return
	}
	var effects []Effect
	s.mu.Lock()
	switch op.Kind {
	case domain.OpAddPoint:
		if op.Point != nil && s.store.MarkPoint(op.Point.X, op.Point.Y, true) {
			effects = append(effects, Effect{Kind: EffectPoints})
		}
	case domain.OpAddRect:
		if op.Rect != nil && s.store.MarkRect(*op.Rect, true) {
			effects = append(effects, Effect{Kind: EffectRects})
		}
	}
	s.mu.Unlock()
	s.render(effects)
}

// ── Calibration submit ─────────────────────────────────────

// CalibrationResult is the outcome of a successful calibration submit.
type CalibrationResult struct {
	ImageID       int     `json:"imageId"`
	Mode          string  `json:"mode"`
	Polygons      int     `json:"polygons"`
	AveragePixels float64 `json:"averagePixels"`
	Redirect      string  `json:"redirect,omitempty"`
}

// SubmitCalibration sends the average area of the completed polygons.
// At least calibration.MinPolygons polygons are required. On success the
// polygons are cleared and, when a recorder is set, the run is saved.
func (s *Session) SubmitCalibration(ctx context.Context, mode string) (*CalibrationResult, error) {
	s.mu.Lock()
	if mode == "" {
		mode = s.calMode
	}
	if !s.polygons.CanSubmit() {
		n := len(s.polygons.Completed())
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: need %d polygons, have %d", domain.ErrValidation, calibration.MinPolygons, n)
	}
	polygons := s.polygons.Completed()
	avg, err := s.polygons.AverageArea()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	req := domain.CalibrationRequest{ImageID: s.imageID, AveragePixels: avg, Mode: mode}
	redirect, err := s.sync.Recalibrate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("submit calibration: %w", err)
	}

	if s.recorder != nil {
		run := &domain.CalibrationRun{
			ImageID:       s.imageID,
			Mode:          mode,
			Polygons:      polygons,
			AveragePixels: avg,
			Redirect:      redirect,
		}
		if err := s.recorder.SaveRun(run); err != nil {
			log.Printf("editor: record calibration run: %v", err)
		}
	}

	s.mu.Lock()
	s.polygons.Reset()
	effects := []Effect{{Kind: EffectPolygons}, s.submitState()}
	s.mu.Unlock()
	s.render(effects)

	return &CalibrationResult{
		ImageID:       s.imageID,
		Mode:          mode,
		Polygons:      len(polygons),
		AveragePixels: avg,
		Redirect:      redirect,
	}, nil
}

// ── Snapshot ───────────────────────────────────────────────

// State is a consistent copy of everything the session shows.
type State struct {
	ImageID        int               `json:"imageId"`
	Mode           domain.Mode       `json:"mode"`
	Points         []domain.Point    `json:"points"`
	Rects          []domain.Rect     `json:"rects"`
	RectPreview    *domain.Rect      `json:"rectPreview,omitempty"`
	Polygon        domain.Polygon    `json:"polygon,omitempty"`
	PolygonPreview []domain.Point    `json:"polygonPreview,omitempty"`
	Completed      []domain.Polygon  `json:"completed,omitempty"`
	CanSubmit      bool              `json:"canSubmit"`
	GridVisible    bool              `json:"gridVisible"`
	GridSize       int               `json:"gridSize"`
	VerifiedCells  []domain.GridCell `json:"verifiedCells"`
	ShowPoints     bool              `json:"showPoints"`
	ShowRects      bool              `json:"showRects"`
	Total          int               `json:"total"`
	Pending        int               `json:"pending"`
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	st := State{
		ImageID:       s.imageID,
		Mode:          s.modes.Current(),
		Points:        s.store.Points(),
		Rects:         s.store.Rects(),
		RectPreview:   s.modes.Preview(),
		Polygon:       s.polygons.Current(),
		Completed:     s.polygons.Completed(),
		CanSubmit:     s.polygons.CanSubmit(),
		GridVisible:   s.grid.Visible(),
		GridSize:      s.grid.Size(),
		VerifiedCells: s.grid.Cells(),
		ShowPoints:    s.showPoints,
		ShowRects:     s.showRects,
	}
	if from, to, ok := s.polygons.Preview(); ok {
		st.PolygonPreview = []domain.Point{from, to}
	}
	s.mu.Unlock()

	st.Total = s.sync.Total()
	st.Pending = s.sync.PendingCount()
	return st
}

func (s *Session) render(effects []Effect) {
	s.mu.Lock()
	r := s.renderer
	s.mu.Unlock()
	if r == nil || len(effects) == 0 {
		return
	}
	r.Apply(s.Snapshot(), effects)
}
