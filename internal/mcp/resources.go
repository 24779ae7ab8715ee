package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	stateURI   = "annotator://session/state"
	pendingURI = "annotator://sync/pending"
)

func (s *Server) registerResources() {
	// ── annotator://session/state ──────────────────────
	s.mcp.AddResource(mcp.NewResource(
		stateURI,
		"Editor State",
		mcp.WithMIMEType("application/json"),
	), s.handleStateResource)

	// ── annotator://sync/pending ───────────────────────
	s.mcp.AddResource(mcp.NewResource(
		pendingURI,
		"Pending Operations",
		mcp.WithMIMEType("application/json"),
	), s.handlePendingResource)

	// ── annotator://image/{imageId}/calibrations ───────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"annotator://image/{imageId}/calibrations",
			"Calibration Runs for an Image",
		),
		s.handleCalibrationsResource,
	)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleStateResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(stateURI, s.session.Snapshot())
}

func (s *Server) handlePendingResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ops, err := s.sync.Pending()
	if err != nil {
		return nil, err
	}
	return jsonContents(pendingURI, ops)
}

func (s *Server) handleCalibrationsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	imageID, err := imageIDFromURI(uri)
	if err != nil {
		return nil, err
	}
	if s.history == nil {
		return jsonContents(uri, []any{})
	}
	runs, err := s.history.ListRuns(imageID)
	if err != nil {
		return nil, err
	}
	return jsonContents(uri, runs)
}

// imageIDFromURI extracts the id from "annotator://image/{id}/calibrations".
func imageIDFromURI(uri string) (int, error) {
	const prefix = "annotator://image/"
	rest, ok := strings.CutPrefix(uri, prefix)
	if !ok {
		return 0, fmt.Errorf("could not extract imageId from URI: %s", uri)
	}
	idx := strings.IndexByte(rest, '/')
	if idx <= 0 {
		return 0, fmt.Errorf("could not extract imageId from URI: %s", uri)
	}
	id, err := strconv.Atoi(rest[:idx])
	if err != nil {
		return 0, fmt.Errorf("bad imageId in URI %s: %w", uri, err)
	}
	return id, nil
}
