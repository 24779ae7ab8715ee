package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"annotator/internal/domain"
	"annotator/internal/storage"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var pendingJSON bool

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List edits waiting to reach the server",
	RunE:  runPending,
}

var pendingDiscardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Drop every pending edit (the server will never see them)",
	RunE:  runPendingDiscard,
}

func init() {
	rootCmd.AddCommand(pendingCmd)
	pendingCmd.AddCommand(pendingDiscardCmd)

	pendingCmd.Flags().BoolVar(&pendingJSON, "json", false, "output as JSON")
}

func openQueue() (*storage.DB, *storage.PendingStore, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.New(filepath.Join(cfg.DataDir, "annotator.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return db, storage.NewPendingStore(db), nil
}

func runPending(cmd *cobra.Command, args []string) error {
	db, queue, err := openQueue()
	if err != nil {
		return err
	}
	defer db.Close()

	ops, err := queue.PeekAll()
	if err != nil {
		return err
	}
	if pendingJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if ops == nil {
			ops = []domain.PendingOperation{}
		}
		return enc.Encode(ops)
	}
	return printPending(cmd.OutOrStdout(), ops)
}

func printPending(w io.Writer, ops []domain.PendingOperation) error {
	if len(ops) == 0 {
		fmt.Fprintln(w, "No pending edits.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tIMAGE\tTARGET\tATTEMPTS\tQUEUED\tLAST ERROR")
	for _, op := range ops {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\t%s\n",
			shortID(op.ID), op.Kind, op.ImageID, describeTarget(op), op.Attempts,
			humanize.Time(op.CreatedAt), op.LastError)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%s pending edit(s)\n", humanize.Comma(int64(len(ops))))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func describeTarget(op domain.PendingOperation) string {
	switch {
	case op.Point != nil:
		return fmt.Sprintf("(%d,%d)", op.Point.X, op.Point.Y)
	case op.Rect != nil:
		return fmt.Sprintf("(%d,%d %dx%d)", op.Rect.X, op.Rect.Y, op.Rect.Width, op.Rect.Height)
	}
	return "-"
}

func runPendingDiscard(cmd *cobra.Command, args []string) error {
	db, queue, err := openQueue()
	if err != nil {
		return err
	}
	defer db.Close()

	ops, err := queue.Drain()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Discarded %d pending edit(s)\n", len(ops))
	return nil
}
