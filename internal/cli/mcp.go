package cli

import (
	"fmt"

	"annotator/internal/app"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the editor as an MCP server on stdin/stdout",
	Long: `Start a headless editing session for one image and expose it as MCP
tools, resources and prompts on stdin/stdout. Logs go to stderr.

The config file is watched; changes to keybindings, point tolerance and
the polygon close threshold apply without a restart.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.ImageID == 0 {
		return fmt.Errorf("no image selected: set image_id in %s or pass --image", path)
	}
	return app.ServeMCP(cfg, path)
}
