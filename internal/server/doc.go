// Package server exposes the document scanner over the Model Context
// Protocol.
//
// The server speaks JSON-RPC 2.0 on stdio through mcp-go. Every tool works
// on frame files given by absolute path; decoded frames are cached by path
// for the lifetime of the process.
//
// # Tools
//
// Frames and detection:
//   - scan_frame_info: dimensions and format of a frame
//   - scan_detect_outline: largest outline and its simplified polygon
//   - scan_edge_map: the Canny edge map as a PNG
//   - scan_overlay: the frame with the detected outline drawn on it
//
// Rectification:
//   - scan_rectify: flatten a quadrilateral region into an upright page
//
// Session:
//   - scan_preview_start, scan_preview_stop: continuous detection on a
//     frame file or a directory of frames
//   - scan_capture: detect, rectify and store a page
//   - scan_session_status: state, page count and preview statistics
//
// Pages:
//   - scan_pages_list, scan_page_get, scan_page_delete, scan_pages_clear
//   - scan_pages_save: write pages as page-001.jpg, page-002.jpg, ...
//
// # Errors
//
// Failures inside a tool are reported as tool results with isError set,
// never as JSON-RPC errors, so the client can show them to the model.
package server
