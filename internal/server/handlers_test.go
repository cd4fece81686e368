package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/doc-scanner-mcp/internal/imaging"
	"github.com/ironsheep/doc-scanner-mcp/internal/rectify"
	"github.com/ironsheep/doc-scanner-mcp/internal/scanner"
)

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// call invokes h with args the way the MCP server would.
func call(t *testing.T, h toolHandler, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	if args != nil {
		req.Params.Arguments = args
	}
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "first content is %T", res.Content[0])
	return text.Text
}

func decodeResult(t *testing.T, res *mcp.CallToolResult, v interface{}) {
	t.Helper()
	require.False(t, res.IsError, resultText(t, res))
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), v))
}

func resultImage(t *testing.T, res *mcp.CallToolResult) mcp.ImageContent {
	t.Helper()
	require.Len(t, res.Content, 2)
	img, ok := res.Content[1].(mcp.ImageContent)
	require.True(t, ok, "second content is %T", res.Content[1])
	return img
}

func assertToolError(t *testing.T, res *mcp.CallToolResult, contains string) {
	t.Helper()
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), contains)
}

// pageFile writes a 200x150 frame with a page at (30,20)-(170,130).
func pageFile(t *testing.T) string {
	t.Helper()
	return writeFrameFile(t, t.TempDir(), "page.png", deskFrame(200, 150, 30, 20, 170, 130))
}

func blankFile(t *testing.T) string {
	t.Helper()
	return writeFrameFile(t, t.TempDir(), "blank.png", deskFrame(120, 90, -1, -1, -1, -1))
}

func TestHandleFrameInfo(t *testing.T) {
	s := newTestServer(t)
	path := pageFile(t)

	var info imaging.FrameInfo
	decodeResult(t, call(t, s.handleFrameInfo, map[string]interface{}{"path": path}), &info)
	assert.Equal(t, 200, info.Width)
	assert.Equal(t, 150, info.Height)
	assert.Positive(t, info.FileSizeBytes)

	assertToolError(t, call(t, s.handleFrameInfo, nil), "path")
	assertToolError(t, call(t, s.handleFrameInfo,
		map[string]interface{}{"path": filepath.Join(t.TempDir(), "missing.png")}), "missing.png")
}

func TestHandleDetectOutline(t *testing.T) {
	s := newTestServer(t)
	path := pageFile(t)

	var resp outlineResponse
	decodeResult(t, call(t, s.handleDetectOutline, map[string]interface{}{"path": path}), &resp)

	assert.Equal(t, 200, resp.Width)
	assert.Equal(t, 150, resp.Height)
	assert.True(t, resp.Found)
	assert.True(t, resp.IsQuad)
	require.NotNil(t, resp.Corners)
	assert.Len(t, resp.Approx, 4)
	assert.InDelta(t, 140*110, resp.Area, 1000)
	assert.Positive(t, resp.ContourPoints)
	assert.Empty(t, resp.Contour)

	for _, p := range resp.Corners {
		assert.True(t, p.X <= 34 || p.X >= 166, "corner %v", p)
		assert.True(t, p.Y <= 24 || p.Y >= 126, "corner %v", p)
	}
}

func TestHandleDetectOutline_IncludeContour(t *testing.T) {
	s := newTestServer(t)

	var resp outlineResponse
	decodeResult(t, call(t, s.handleDetectOutline, map[string]interface{}{
		"path":            pageFile(t),
		"include_contour": true,
	}), &resp)
	assert.Len(t, resp.Contour, resp.ContourPoints)
}

func TestHandleDetectOutline_NoEdges(t *testing.T) {
	s := newTestServer(t)

	var resp outlineResponse
	decodeResult(t, call(t, s.handleDetectOutline, map[string]interface{}{"path": blankFile(t)}), &resp)
	assert.False(t, resp.Found)
	assert.False(t, resp.IsQuad)
	assert.Nil(t, resp.Corners)
	assert.NotNil(t, resp.Approx)
	assert.Zero(t, resp.Contours)

	// approx is always present in the JSON, even when empty
	assert.Contains(t, resultText(t, call(t, s.handleDetectOutline,
		map[string]interface{}{"path": blankFile(t)})), `"approx": []`)
}

func TestHandleEdgeMap(t *testing.T) {
	s := newTestServer(t)

	res := call(t, s.handleEdgeMap, map[string]interface{}{"path": pageFile(t)})
	require.False(t, res.IsError)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &meta))
	assert.Equal(t, float64(200), meta["width"])
	assert.Positive(t, meta["edge_pixels"])

	img := resultImage(t, res)
	assert.Equal(t, "image/png", img.MIMEType)
	decoded, err := base64.StdEncoding.DecodeString(img.Data)
	require.NoError(t, err)
	edges, err := imaging.DecodeBytes(decoded)
	require.NoError(t, err)
	assert.Equal(t, 200, edges.Bounds().Dx())
}

func TestHandleOverlay(t *testing.T) {
	s := newTestServer(t)

	res := call(t, s.handleOverlay, map[string]interface{}{"path": pageFile(t)})
	require.False(t, res.IsError)

	var meta struct {
		Found  bool `json:"found"`
		Width  int  `json:"width"`
		Height int  `json:"height"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &meta))
	assert.True(t, meta.Found)
	assert.Equal(t, 200, meta.Width)
	assert.Equal(t, 150, meta.Height)
	assert.Equal(t, "image/png", resultImage(t, res).MIMEType)

	assertToolError(t, call(t, s.handleOverlay, map[string]interface{}{}), "path")
}

func TestHandleRectify_GivenCorners(t *testing.T) {
	s := newTestServer(t)

	res := call(t, s.handleRectify, map[string]interface{}{
		"path":    pageFile(t),
		"corners": []int{30, 20, 170, 20, 170, 130, 30, 130},
		"format":  "png",
	})

	var resp rectifyResponse
	decodeResult(t, res, &resp)
	assert.Equal(t, 140, resp.Width)
	assert.Equal(t, 110, resp.Height)
	assert.Equal(t, "given", resp.Source)
	assert.Positive(t, resp.Bytes)

	img := resultImage(t, res)
	assert.Equal(t, "image/png", img.MIMEType)
	data, err := base64.StdEncoding.DecodeString(img.Data)
	require.NoError(t, err)
	page, err := imaging.DecodeBytes(data)
	require.NoError(t, err)
	assert.Equal(t, 140, page.Bounds().Dx())
	assert.Equal(t, 110, page.Bounds().Dy())

	r, g, b, _ := page.At(70, 55).RGBA()
	assert.Greater(t, r>>8, uint32(200))
	assert.Greater(t, g>>8, uint32(200))
	assert.Greater(t, b>>8, uint32(200))
}

func TestHandleRectify_Detected(t *testing.T) {
	s := newTestServer(t)

	res := call(t, s.handleRectify, map[string]interface{}{"path": pageFile(t)})

	var resp rectifyResponse
	decodeResult(t, res, &resp)
	assert.Equal(t, "detected", resp.Source)
	assert.Equal(t, "image/jpeg", resultImage(t, res).MIMEType)

	// The bounding box does not depend on corner order.
	assert.InDelta(t, 140, resp.Width, 4)
	assert.InDelta(t, 110, resp.Height, 4)
}

func TestHandleRectify_Output(t *testing.T) {
	s := newTestServer(t)
	out := filepath.Join(t.TempDir(), "nested", "page.jpg")

	res := call(t, s.handleRectify, map[string]interface{}{
		"path":    pageFile(t),
		"corners": []int{30, 20, 170, 20, 170, 130, 30, 130},
		"output":  out,
	})

	var resp rectifyResponse
	decodeResult(t, res, &resp)
	assert.Equal(t, out, resp.Output)
	assert.Len(t, res.Content, 1)

	st, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, int64(resp.Bytes), st.Size())
}

func TestHandleRectify_Errors(t *testing.T) {
	s := newTestServer(t)
	path := pageFile(t)

	tests := []struct {
		name     string
		args     map[string]interface{}
		contains string
	}{
		{"missing path", map[string]interface{}{}, "path"},
		{"short corners", map[string]interface{}{"path": path, "corners": []int{1, 2, 3}}, "8 integers"},
		{"collinear corners", map[string]interface{}{
			"path": path, "corners": []int{10, 10, 50, 10, 90, 10, 120, 10},
		}, rectify.ErrInvalidGeometry.Error()},
		{"bad format", map[string]interface{}{"path": path, "format": "webp"}, "webp"},
		{"no document", map[string]interface{}{"path": blankFile(t)}, scanner.ErrNoDocumentFound.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertToolError(t, call(t, s.handleRectify, tt.args), tt.contains)
		})
	}
}

func TestHandleCapture_File(t *testing.T) {
	s := newTestServer(t)

	var resp captureResponse
	decodeResult(t, call(t, s.handleCapture, map[string]interface{}{"path": pageFile(t)}), &resp)
	assert.Equal(t, 0, resp.Index)
	assert.Equal(t, 1, resp.Pages)
	assert.Equal(t, 1, resp.Page.ID)
	assert.Equal(t, "idle", resp.Status)
	assert.Positive(t, resp.Area)

	assertToolError(t, call(t, s.handleCapture, map[string]interface{}{"path": blankFile(t)}),
		scanner.ErrNoDocumentFound.Error())
	assertToolError(t, call(t, s.handleCapture, nil), scanner.ErrNoFrame.Error())
	assert.Equal(t, 1, s.Session().Pages().Len())
}

func TestHandlePreview(t *testing.T) {
	s := newTestServer(t)
	path := pageFile(t)

	var status scanner.Status
	decodeResult(t, call(t, s.handlePreviewStart, map[string]interface{}{"path": path}), &status)
	assert.Equal(t, scanner.StatePreviewing, status.State)

	assertToolError(t, call(t, s.handlePreviewStart, map[string]interface{}{"path": path}),
		scanner.ErrInvalidTransition.Error())

	assert.Eventually(t, func() bool {
		return s.Session().Status().LastSeq > 0
	}, 5*time.Second, 10*time.Millisecond)

	var captured captureResponse
	decodeResult(t, call(t, s.handleCapture, nil), &captured)
	assert.Equal(t, "previewing", captured.Status)

	decodeResult(t, call(t, s.handleSessionStatus, nil), &status)
	assert.Equal(t, scanner.StatePreviewing, status.State)
	assert.Equal(t, 1, status.Pages)
	assert.NotNil(t, status.Outline)

	// capture restarts the preview with fresh counters
	assert.Eventually(t, func() bool {
		return s.Session().Status().Preview.Processed > 0
	}, 5*time.Second, 10*time.Millisecond)

	decodeResult(t, call(t, s.handlePreviewStop, nil), &status)
	assert.Equal(t, scanner.StateIdle, status.State)
	assert.Positive(t, status.Preview.Processed)

	assertToolError(t, call(t, s.handlePreviewStop, nil), scanner.ErrInvalidTransition.Error())
}

func TestHandlePreviewStart_Directory(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	writeFrameFile(t, dir, "0001.png", deskFrame(200, 150, 30, 20, 170, 130))
	writeFrameFile(t, dir, "0002.png", deskFrame(200, 150, 40, 30, 160, 120))

	var status scanner.Status
	decodeResult(t, call(t, s.handlePreviewStart, map[string]interface{}{"path": dir, "loop": true}), &status)
	assert.Equal(t, scanner.StatePreviewing, status.State)

	assert.Eventually(t, func() bool {
		return s.Session().Status().Preview.Frames >= 3
	}, 5*time.Second, 10*time.Millisecond)

	decodeResult(t, call(t, s.handlePreviewStop, nil), &status)
	assert.Equal(t, scanner.StateIdle, status.State)
}

func TestHandlePreviewStart_Errors(t *testing.T) {
	s := newTestServer(t)

	assertToolError(t, call(t, s.handlePreviewStart, nil), "path")
	assertToolError(t, call(t, s.handlePreviewStart, map[string]interface{}{"path": t.TempDir()}), "no frame")
	assert.Equal(t, scanner.StateIdle, s.Session().State())
}

// capturePages captures n pages from the same frame.
func capturePages(t *testing.T, s *Server, n int) {
	t.Helper()
	path := pageFile(t)
	for i := 0; i < n; i++ {
		res := call(t, s.handleCapture, map[string]interface{}{"path": path})
		require.False(t, res.IsError, resultText(t, res))
	}
}

func TestHandlePages(t *testing.T) {
	s := newTestServer(t)
	capturePages(t, s, 3)

	var list struct {
		Count int `json:"count"`
		Pages []struct {
			Index int `json:"index"`
			ID    int `json:"id"`
			Width int `json:"width"`
			Bytes int `json:"bytes"`
		} `json:"pages"`
	}
	decodeResult(t, call(t, s.handlePagesList, nil), &list)
	require.Equal(t, 3, list.Count)
	for i, p := range list.Pages {
		assert.Equal(t, i, p.Index)
		assert.Equal(t, i+1, p.ID)
		assert.Positive(t, p.Bytes)
	}

	var deleted map[string]int
	decodeResult(t, call(t, s.handlePageDelete, map[string]interface{}{"index": 1}), &deleted)
	assert.Equal(t, 2, deleted["deleted"])
	assert.Equal(t, 2, deleted["pages"])

	decodeResult(t, call(t, s.handlePagesList, nil), &list)
	assert.Equal(t, 1, list.Pages[0].ID)
	assert.Equal(t, 3, list.Pages[1].ID)

	assertToolError(t, call(t, s.handlePageDelete, map[string]interface{}{"index": 5}),
		scanner.ErrPageIndex.Error())
	assertToolError(t, call(t, s.handlePageDelete, nil), "index")

	var cleared map[string]int
	decodeResult(t, call(t, s.handlePagesClear, nil), &cleared)
	assert.Equal(t, 2, cleared["cleared"])
	assert.Zero(t, s.Session().Pages().Len())
}

func TestHandlePageGet(t *testing.T) {
	s := newTestServer(t)
	capturePages(t, s, 1)

	res := call(t, s.handlePageGet, map[string]interface{}{"index": 0})
	require.False(t, res.IsError, resultText(t, res))
	img := resultImage(t, res)
	assert.Equal(t, "image/jpeg", img.MIMEType)

	stored, err := s.Session().Pages().Get(0)
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(stored.Data), img.Data)

	res = call(t, s.handlePageGet, map[string]interface{}{"index": 0, "max_size": 50})
	require.False(t, res.IsError, resultText(t, res))
	var meta struct {
		ImageWidth  int `json:"image_width"`
		ImageHeight int `json:"image_height"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &meta))
	assert.LessOrEqual(t, meta.ImageWidth, 50)
	assert.LessOrEqual(t, meta.ImageHeight, 50)

	assertToolError(t, call(t, s.handlePageGet, map[string]interface{}{"index": 3}), scanner.ErrPageIndex.Error())
	assertToolError(t, call(t, s.handlePageGet, map[string]interface{}{}), "index")
}

func TestHandlePagesSave(t *testing.T) {
	s := newTestServer(t)

	assertToolError(t, call(t, s.handlePagesSave, nil), "no pages")

	capturePages(t, s, 2)
	dir := filepath.Join(t.TempDir(), "out")

	var saved struct {
		Dir   string   `json:"dir"`
		Files []string `json:"files"`
	}
	decodeResult(t, call(t, s.handlePagesSave, map[string]interface{}{"dir": dir}), &saved)
	assert.Equal(t, dir, saved.Dir)
	require.Len(t, saved.Files, 2)
	assert.Equal(t, filepath.Join(dir, "page-001.jpg"), saved.Files[0])
	assert.Equal(t, filepath.Join(dir, "page-002.jpg"), saved.Files[1])
	for _, f := range saved.Files {
		assert.FileExists(t, f)
	}

	decodeResult(t, call(t, s.handlePagesSave, nil), &saved)
	assert.Equal(t, s.cfg.OutputDir, saved.Dir)
}
