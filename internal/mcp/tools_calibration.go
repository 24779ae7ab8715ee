package mcpserver

import (
	"context"
	"fmt"

	"annotator/internal/calibration"
	"annotator/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerCalibrationTools() {
	// ── submit_calibration ─────────────────────────────
	s.mcp.AddTool(mcp.NewTool("submit_calibration",
		mcp.WithDescription(fmt.Sprintf(
			"Submit the average area of the completed calibration polygons. Needs at least %d polygons.",
			calibration.MinPolygons)),
		mcp.WithString("mode", mcp.Description("Calibration mode sent to the server, e.g. MICRO or MACRO (optional)")),
	), s.handleSubmitCalibration)

	// ── calibration_history ────────────────────────────
	s.mcp.AddTool(mcp.NewTool("calibration_history",
		mcp.WithDescription("List calibrations submitted from this machine for the current image"),
	), s.handleCalibrationHistory)

	// ── polygon_area ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("polygon_area",
		mcp.WithDescription("Compute the area in pixels of each completed calibration polygon and their average"),
		mcp.WithNumber("knownArea", mcp.Description("Physical area of the calibration target; adds a pixels-per-unit ratio (optional)")),
	), s.handlePolygonArea)
}

func (s *Server) handleSubmitCalibration(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.session.SubmitCalibration(ctx, req.GetString("mode", ""))
	if err != nil {
		return nil, fmt.Errorf("submit calibration: %w", err)
	}
	return jsonResult(res)
}

func (s *Server) handleCalibrationHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.history == nil {
		return textResult("No calibration history is kept in this mode"), nil
	}
	runs, err := s.history.ListRuns(s.session.ImageID())
	if err != nil {
		return nil, fmt.Errorf("list calibration runs: %w", err)
	}
	if runs == nil {
		runs = []domain.CalibrationRun{}
	}
	return jsonResult(runs)
}

type areaReport struct {
	Areas         []float64 `json:"areas"`
	Average       float64   `json:"average"`
	PixelsPerUnit *float64  `json:"pixelsPerUnit,omitempty"`
}

func (s *Server) handlePolygonArea(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	completed := s.session.Snapshot().Completed
	avg, err := calibration.AverageArea(completed)
	if err != nil {
		return nil, err
	}
	report := areaReport{Average: avg}
	for _, p := range completed {
		report.Areas = append(report.Areas, calibration.PolygonArea(p))
	}
	if known, ok := numberArg(req.GetArguments(), "knownArea"); ok {
		ppu, err := calibration.PixelsPerUnit(avg, known)
		if err != nil {
			return nil, err
		}
		report.PixelsPerUnit = &ppu
	}
	return jsonResult(report)
}
