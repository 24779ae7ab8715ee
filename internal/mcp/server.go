package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"annotator/internal/domain"
	"annotator/internal/editor"
	"annotator/internal/service"
	"annotator/internal/viewer"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// EventEmitter lets tool calls notify whoever is rendering the session.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// CalibrationHistory lists previously submitted calibrations.
type CalibrationHistory interface {
	ListRuns(imageID int) ([]domain.CalibrationRun, error)
}

// Server is the MCP server for the annotator.
// It exposes the editing session as tools, resources and prompts so an
// agent can annotate and calibrate an image.
type Server struct {
	mcp     *server.MCPServer
	emitter EventEmitter

	session *editor.Session
	viewer  viewer.Viewer
	sync    *service.SyncService
	history CalibrationHistory
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Emitter EventEmitter
	Session *editor.Session
	Viewer  viewer.Viewer
	Sync    *service.SyncService
	History CalibrationHistory // optional
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	s := &Server{
		emitter: deps.Emitter,
		session: deps.Session,
		viewer:  deps.Viewer,
		sync:    deps.Sync,
		history: deps.History,
	}

	s.mcp = server.NewMCPServer(
		"annotator-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerEditorTools()
	s.registerCalibrationTools()
	s.registerSyncTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// emitChanged notifies the renderer side that the session changed.
func (s *Server) emitChanged(ctx context.Context, effects []editor.Effect) {
	if len(effects) == 0 || s.emitter == nil {
		return
	}
	s.emitter.Emit(ctx, "editor:changed", effects)
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }
