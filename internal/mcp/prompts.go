package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("calibrate_image",
		mcp.WithPromptDescription("Guide through drawing calibration polygons and submitting them"),
		mcp.WithArgument("mode",
			mcp.ArgumentDescription("Calibration mode to submit, e.g. MICRO or MACRO"),
		),
	), s.handleCalibratePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("count_specimens",
		mcp.WithPromptDescription("Annotate every specimen on the image as points and rectangles"),
	), s.handleCountPrompt)
}

func (s *Server) handleCalibratePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	mode := req.Params.Arguments["mode"]
	if mode == "" {
		mode = "MICRO"
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Calibrate image %d (%s)", s.session.ImageID(), mode),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Calibrate the current image. Follow these steps:

1. Call set_mode with mode "calibration"
2. Outline one isolated specimen: call add with space "image" at each vertex of its outline, in order
3. Close the polygon by calling add again near the first vertex (within 10 screen pixels)
4. Repeat for at least three separate specimens; use undo_vertex or cancel_polygon to fix mistakes
5. Check the areas with polygon_area; use remove_last_polygon to drop an outlier
6. Call submit_calibration with mode "%s"

Report the submitted average area and the redirect returned by the server.`, mode),
				},
			},
		},
	}, nil
}

func (s *Server) handleCountPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Count specimens on image %d", s.session.ImageID()),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: `Annotate the specimens on the current image:

1. Call get_state to see existing annotations and the running total
2. In point mode, call add with space "image" at the center of each unmarked specimen
3. For clumps, switch to rectangle mode and call add twice, once per opposite corner
4. Use toggle_grid and toggle_grid_cell to mark each 512px cell once it is fully checked
5. Finish with list_pending; if anything is pending, call retry_now

Never call discard_pending unless the user asks.`,
				},
			},
		},
	}, nil
}
