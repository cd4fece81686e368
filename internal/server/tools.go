package server

import (
	"github.com/mark3labs/mcp-go/mcp"
)

const pathDescription = "Absolute path to the frame image (JPEG, PNG, GIF, BMP or TIFF)"

// readOnlyTool builds a tool that only inspects frames or session state.
func readOnlyTool(name string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append(opts,
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)
	return mcp.NewTool(name, opts...)
}

// registerTools registers every scanner tool with the MCP server.
func (s *Server) registerTools() {
	// Frames

	s.mcpServer.AddTool(readOnlyTool(
		"scan_frame_info",
		mcp.WithDescription("Load a frame and return its dimensions, format and file size. EXIF orientation is applied."),
		mcp.WithString("path", mcp.Required(), mcp.Description(pathDescription)),
	), s.handleFrameInfo)

	// Outline detection

	s.mcpServer.AddTool(readOnlyTool(
		"scan_detect_outline",
		mcp.WithDescription("Find the most prominent document outline in a frame. "+
			"Returns the largest contour's simplified polygon; when it has exactly four vertices they are the page corners in traced order."),
		mcp.WithString("path", mcp.Required(), mcp.Description(pathDescription)),
		mcp.WithBoolean("include_contour",
			mcp.Description("Also return every point of the selected contour"),
			mcp.DefaultBool(false),
		),
	), s.handleDetectOutline)

	s.mcpServer.AddTool(readOnlyTool(
		"scan_edge_map",
		mcp.WithDescription("Return the Canny edge map the outline detector works on, as a PNG image."),
		mcp.WithString("path", mcp.Required(), mcp.Description(pathDescription)),
	), s.handleEdgeMap)

	s.mcpServer.AddTool(readOnlyTool(
		"scan_overlay",
		mcp.WithDescription("Draw the detected outline and numbered corners onto the frame and return it as a PNG image. "+
			"Use this to check which corner will become the top-left of the rectified page."),
		mcp.WithString("path", mcp.Required(), mcp.Description(pathDescription)),
	), s.handleOverlay)

	// Rectification

	s.mcpServer.AddTool(mcp.NewTool(
		"scan_rectify",
		mcp.WithDescription("Flatten the document region of a frame into an upright page. "+
			"Corners map in order to the output's top-left, top-right, bottom-right and bottom-left; "+
			"when omitted they are detected."),
		mcp.WithString("path", mcp.Required(), mcp.Description(pathDescription)),
		mcp.WithArray("corners",
			mcp.Description("Optional corners as [x0, y0, x1, y1, x2, y2, x3, y3] in frame pixels"),
			mcp.Items(map[string]any{"type": "integer"}),
			mcp.MinItems(8),
			mcp.MaxItems(8),
		),
		mcp.WithString("format",
			mcp.Description("Output encoding"),
			mcp.Enum("jpeg", "png"),
			mcp.DefaultString("jpeg"),
		),
		mcp.WithString("output",
			mcp.Description("Optional file path to write the page to instead of returning the image"),
		),
	), s.handleRectify)

	// Session

	s.mcpServer.AddTool(mcp.NewTool(
		"scan_preview_start",
		mcp.WithDescription("Start continuous outline detection on a frame file or on every frame file of a directory."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Frame file or directory of frame files")),
		mcp.WithBoolean("loop",
			mcp.Description("Replay a directory from the start when it runs out of frames"),
			mcp.DefaultBool(false),
		),
	), s.handlePreviewStart)

	s.mcpServer.AddTool(mcp.NewTool(
		"scan_preview_stop",
		mcp.WithDescription("Stop the running preview."),
	), s.handlePreviewStop)

	s.mcpServer.AddTool(mcp.NewTool(
		"scan_capture",
		mcp.WithDescription("Detect, rectify and store a page. "+
			"Without a path the current preview frame is captured."),
		mcp.WithString("path", mcp.Description(pathDescription)),
	), s.handleCapture)

	s.mcpServer.AddTool(readOnlyTool(
		"scan_session_status",
		mcp.WithDescription("Report the session state, the number of pages and preview statistics."),
	), s.handleSessionStatus)

	// Pages

	s.mcpServer.AddTool(readOnlyTool(
		"scan_pages_list",
		mcp.WithDescription("List the captured pages in order."),
	), s.handlePagesList)

	s.mcpServer.AddTool(readOnlyTool(
		"scan_page_get",
		mcp.WithDescription("Return one captured page as a JPEG image."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based page index")),
		mcp.WithNumber("max_size",
			mcp.Description("Optional bounding box in pixels to scale the page down to"),
			mcp.Min(0),
		),
	), s.handlePageGet)

	s.mcpServer.AddTool(mcp.NewTool(
		"scan_page_delete",
		mcp.WithDescription("Delete a captured page. Later pages move up by one."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based page index")),
		mcp.WithDestructiveHintAnnotation(true),
	), s.handlePageDelete)

	s.mcpServer.AddTool(mcp.NewTool(
		"scan_pages_clear",
		mcp.WithDescription("Delete every captured page."),
		mcp.WithDestructiveHintAnnotation(true),
	), s.handlePagesClear)

	s.mcpServer.AddTool(mcp.NewTool(
		"scan_pages_save",
		mcp.WithDescription("Write the captured pages to a directory as page-001.jpg, page-002.jpg and so on."),
		mcp.WithString("dir", mcp.Description("Output directory (uses the configured output directory if empty)")),
	), s.handlePagesSave)
}
