package mcpserver

import (
	"context"
	"fmt"

	"annotator/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSyncTools() {
	s.mcp.AddTool(mcp.NewTool("list_pending",
		mcp.WithDescription("List operations that failed to reach the server and are waiting for retry"),
	), s.handleListPending)

	s.mcp.AddTool(mcp.NewTool("retry_now",
		mcp.WithDescription("Run one retry pass over the pending operations immediately"),
	), s.handleRetryNow)

	// ── discard_pending (destructive) ──────────────────
	s.mcp.AddTool(mcp.NewTool("discard_pending",
		mcp.WithDescription("🛑 DESTRUCTIVE: Drop every pending operation. The server will never see them."),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDiscardPending)
}

func (s *Server) handleListPending(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ops, err := s.sync.Pending()
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	if ops == nil {
		ops = []domain.PendingOperation{}
	}
	return jsonResult(ops)
}

func (s *Server) handleRetryNow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.sync.RetryPass(ctx)
	if err != nil {
		return nil, fmt.Errorf("retry: %w", err)
	}
	return jsonResult(res)
}

func (s *Server) handleDiscardPending(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ops, err := s.sync.Discard(ctx)
	if err != nil {
		return nil, fmt.Errorf("discard pending: %w", err)
	}
	return textResult(fmt.Sprintf("Discarded %d pending operation(s)", len(ops))), nil
}
