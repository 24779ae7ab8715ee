package cli

import (
	"context"
	"fmt"
	"time"

	"annotator/internal/app"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Retry every pending edit once",
	Long: `Send each queued edit to the server in the order it was made. Edits the
server accepts leave the queue; the rest stay queued with their attempt
count increased.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg, app.Options{SkipHydrate: true})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.Shutdown(sctx)
	}()

	res, err := a.Sync().RetryPass(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "attempted %d, delivered %d, failed %d, remaining %d\n",
		res.Attempted, res.Delivered, res.Failed, res.Remaining)
	if res.Failed > 0 {
		return fmt.Errorf("%d edit(s) still pending", res.Remaining)
	}
	return nil
}
