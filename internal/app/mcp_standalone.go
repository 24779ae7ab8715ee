package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"annotator/internal/config"
	mcpserver "annotator/internal/mcp"
)

const shutdownTimeout = 10 * time.Second

// ServeMCP runs the annotator as a standalone MCP server on stdin/stdout.
// It blocks until stdin closes or the process is interrupted.
func ServeMCP(cfg *config.Config, cfgPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, Options{ConfigPath: cfgPath})
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		a.Shutdown(sctx)
	}()
	if err := a.Start(); err != nil {
		return err
	}

	mcpSrv := mcpserver.New(mcpserver.Deps{
		Emitter: noopEmitter{},
		Session: a.session,
		Viewer:  a.viewer,
		Sync:    a.sync,
		History: a.runs,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- mcpSrv.ServeStdio() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
