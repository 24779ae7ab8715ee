package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"annotator/internal/domain"
	"annotator/internal/editor"
	"annotator/internal/service"
	"annotator/internal/viewer"

	"github.com/mark3labs/mcp-go/mcp"
)

type fakeHistory struct {
	runs []domain.CalibrationRun
}

func (f *fakeHistory) ListRuns(imageID int) ([]domain.CalibrationRun, error) {
	var out []domain.CalibrationRun
	for _, r := range f.runs {
		if r.ImageID == imageID {
			out = append(out, r)
		}
	}
	return out, nil
}

type testServer struct {
	*Server
	remote  *service.MockRemote
	emitter *service.MockEmitter
	view    *viewer.Headless
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	view := viewer.NewHeadless(800, 600)
	view.Open(1000, 500)
	remote := &service.MockRemote{}
	emitter := &service.MockEmitter{}
	svc := service.NewSyncService(remote, service.NewMemoryQueue(), emitter, time.Second)
	session := editor.NewSession(view, svc, editor.Options{ImageID: 3})
	history := &fakeHistory{runs: []domain.CalibrationRun{{ID: "a", ImageID: 3, AveragePixels: 12}}}
	s := New(Deps{Emitter: emitter, Session: session, Viewer: view, Sync: svc, History: history})
	return &testServer{Server: s, remote: remote, emitter: emitter, view: view}
}

func callReq(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return tc.Text
}

func decodeCommand(t *testing.T, res *mcp.CallToolResult) commandResult {
	t.Helper()
	var out commandResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func (ts *testServer) settle() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ts.sync.Wait(ctx)
}

func TestAddPointInImageSpace(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	res, err := ts.command(editor.CmdAdd)(ctx, callReq(map[string]any{"x": 120.0, "y": 80.0, "space": "image"}))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	out := decodeCommand(t, res)
	if len(out.State.Points) != 1 || out.State.Points[0].X != 120 || out.State.Points[0].Y != 80 {
		t.Fatalf("unexpected points %+v", out.State.Points)
	}
	ts.settle()

	if calls := ts.remote.Calls(); len(calls) != 1 || calls[0].Method != "AddPoint" {
		t.Errorf("unexpected remote calls %+v", calls)
	}
	if got := len(ts.emitter.Named("editor:changed")); got != 1 {
		t.Errorf("expected 1 change event, got %d", got)
	}
}

func TestPositionArgValidation(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	if _, err := ts.command(editor.CmdAdd)(ctx, callReq(map[string]any{"x": 1.0})); err == nil {
		t.Error("expected error for x without y")
	}
	if _, err := ts.command(editor.CmdAdd)(ctx, callReq(map[string]any{"x": 1.0, "y": 1.0, "space": "world"})); err == nil {
		t.Error("expected error for unknown space")
	}

	// No position and no pointer yet: the command is a no-op.
	res, err := ts.command(editor.CmdAdd)(ctx, callReq(nil))
	if err != nil {
		t.Fatalf("add without position: %v", err)
	}
	if out := decodeCommand(t, res); len(out.Effects) != 0 {
		t.Errorf("expected no effects, got %v", out.Effects)
	}
}

func TestSetModeTool(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	res, err := ts.handleSetMode(ctx, callReq(map[string]any{"mode": "rectangle"}))
	if err != nil {
		t.Fatalf("set_mode: %v", err)
	}
	if out := decodeCommand(t, res); out.State.Mode != domain.ModeRectangle {
		t.Errorf("expected rectangle mode, got %s", out.State.Mode)
	}
	if _, err := ts.handleSetMode(ctx, callReq(map[string]any{"mode": "lasso"})); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestCalibrationFlowThroughTools(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	ts.handleSetMode(ctx, callReq(map[string]any{"mode": "calibration"}))

	add := ts.command(editor.CmdAdd)
	for _, origin := range [][2]float64{{100, 100}, {300, 100}, {500, 100}} {
		x, y := origin[0], origin[1]
		for _, v := range [][2]float64{{x, y}, {x + 50, y}, {x + 50, y + 50}, {x, y + 50}, {x + 1, y + 1}} {
			if _, err := add(ctx, callReq(map[string]any{"x": v[0], "y": v[1], "space": "image"})); err != nil {
				t.Fatalf("add vertex: %v", err)
			}
		}
	}

	res, err := ts.handlePolygonArea(ctx, callReq(map[string]any{"knownArea": 25.0}))
	if err != nil {
		t.Fatalf("polygon_area: %v", err)
	}
	var report areaReport
	json.Unmarshal([]byte(resultText(t, res)), &report)
	if report.Average != 2500 || len(report.Areas) != 3 {
		t.Errorf("unexpected report %+v", report)
	}
	if report.PixelsPerUnit == nil || *report.PixelsPerUnit != 100 {
		t.Errorf("unexpected pixels per unit %v", report.PixelsPerUnit)
	}

	res, err = ts.handleSubmitCalibration(ctx, callReq(map[string]any{"mode": "MACRO"}))
	if err != nil {
		t.Fatalf("submit_calibration: %v", err)
	}
	if !strings.Contains(resultText(t, res), "/edit/3/") {
		t.Errorf("redirect missing from %s", resultText(t, res))
	}
}

func TestSubmitCalibrationTooFewPolygons(t *testing.T) {
	ts := newTestServer(t)
	_, err := ts.handleSubmitCalibration(context.Background(), callReq(nil))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestPendingTools(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	ts.remote.SetFailing(true)
	ts.command(editor.CmdAdd)(ctx, callReq(map[string]any{"x": 10.0, "y": 10.0, "space": "image"}))
	ts.settle()

	res, err := ts.handleListPending(ctx, callReq(nil))
	if err != nil {
		t.Fatalf("list_pending: %v", err)
	}
	var ops []domain.PendingOperation
	json.Unmarshal([]byte(resultText(t, res)), &ops)
	if len(ops) != 1 || ops[0].Kind != domain.OpAddPoint {
		t.Fatalf("unexpected pending ops %+v", ops)
	}

	ts.remote.SetFailing(false)
	if _, err := ts.handleRetryNow(ctx, callReq(nil)); err != nil {
		t.Fatalf("retry_now: %v", err)
	}
	if n := ts.sync.PendingCount(); n != 0 {
		t.Errorf("expected empty queue, got %d", n)
	}

	ts.remote.SetFailing(true)
	ts.command(editor.CmdAdd)(ctx, callReq(map[string]any{"x": 20.0, "y": 20.0, "space": "image"}))
	ts.settle()
	res, err = ts.handleDiscardPending(ctx, callReq(nil))
	if err != nil {
		t.Fatalf("discard_pending: %v", err)
	}
	if !strings.Contains(resultText(t, res), "Discarded 1") {
		t.Errorf("unexpected discard result %q", resultText(t, res))
	}
}

func TestPressKeyUnbound(t *testing.T) {
	ts := newTestServer(t)
	res, err := ts.handlePressKey(context.Background(), callReq(map[string]any{"key": "z"}))
	if err != nil {
		t.Fatalf("press_key: %v", err)
	}
	if !strings.Contains(resultText(t, res), "not bound") {
		t.Errorf("unexpected result %q", resultText(t, res))
	}
}

func TestListKeybindings(t *testing.T) {
	ts := newTestServer(t)
	res, err := ts.handleListKeybindings(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("list_keybindings: %v", err)
	}
	var got []keyBinding
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(editor.DefaultBindings()) {
		t.Fatalf("expected %d bindings, got %d", len(editor.DefaultBindings()), len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Action >= got[i].Action {
			t.Fatalf("bindings not sorted by action: %+v", got)
		}
	}
	for _, b := range got {
		if b.Action == editor.ActionAdd && b.Key != "e" {
			t.Errorf("expected add bound to e, got %q", b.Key)
		}
	}
}

func TestPanAndZoom(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	if _, err := ts.handlePanTo(ctx, callReq(map[string]any{"x": 250.0, "y": 100.0})); err != nil {
		t.Fatalf("pan_to: %v", err)
	}
	if c := ts.view.Center(); c.X != 0.25 || c.Y != 0.1 {
		t.Errorf("unexpected center %+v", c)
	}
	if _, err := ts.handleZoomTo(ctx, callReq(map[string]any{"zoom": 2.0})); err != nil {
		t.Fatalf("zoom_to: %v", err)
	}
	if ts.view.Zoom() != 2 {
		t.Errorf("unexpected zoom %v", ts.view.Zoom())
	}
	if _, err := ts.handleZoomTo(ctx, callReq(map[string]any{"zoom": -1.0})); err == nil {
		t.Error("expected error for negative zoom")
	}
}

func TestCalibrationHistoryResource(t *testing.T) {
	ts := newTestServer(t)
	var req mcp.ReadResourceRequest
	req.Params.URI = "annotator://image/3/calibrations"
	contents, err := ts.handleCalibrationsResource(context.Background(), req)
	if err != nil {
		t.Fatalf("resource: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, `"id": "a"`) {
		t.Errorf("unexpected resource body %s", text)
	}

	if _, err := imageIDFromURI("annotator://image/abc/calibrations"); err == nil {
		t.Error("expected error for non-numeric id")
	}
	if id, err := imageIDFromURI("annotator://image/42/calibrations"); err != nil || id != 42 {
		t.Errorf("imageIDFromURI = %d, %v", id, err)
	}
}
