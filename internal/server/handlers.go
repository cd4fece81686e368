package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/doc-scanner-mcp/internal/geometry"
	"github.com/ironsheep/doc-scanner-mcp/internal/imaging"
	"github.com/ironsheep/doc-scanner-mcp/internal/overlay"
	"github.com/ironsheep/doc-scanner-mcp/internal/preview"
	"github.com/ironsheep/doc-scanner-mcp/internal/rectify"
	"github.com/ironsheep/doc-scanner-mcp/internal/scanner"
)

// mustMarshalJSON converts a value to a pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// jsonResult wraps v as a text tool result.
func jsonResult(v interface{}) *mcp.CallToolResult {
	return mcp.NewToolResultText(mustMarshalJSON(v))
}

// imageResult returns meta as text followed by the encoded image.
func imageResult(meta interface{}, img *imaging.EncodedImage) *mcp.CallToolResult {
	return mcp.NewToolResultImage(mustMarshalJSON(meta), img.ImageBase64, img.MimeType)
}

// bindArgs decodes the call arguments into a.
func bindArgs(request mcp.CallToolRequest, a interface{}) error {
	if request.GetRawArguments() == nil {
		return nil
	}
	if err := request.BindArguments(a); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

type pathArgs struct {
	Path string `json:"path"`
}

func (s *Server) loadFrame(path string) (image.Image, error) {
	if path == "" {
		return nil, errors.New("required argument \"path\" not found")
	}
	return s.cache.Load(path)
}

// === Frames ===

func (s *Server) handleFrameInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	info, err := imaging.LoadFrameInfo(s.cache, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(info), nil
}

// === Outline detection ===

type detectOutlineArgs struct {
	Path           string `json:"path"`
	IncludeContour bool   `json:"include_contour"`
}

// outlineResponse is the JSON form of a detection result.
type outlineResponse struct {
	Width         int              `json:"width"`
	Height        int              `json:"height"`
	Found         bool             `json:"found"`
	IsQuad        bool             `json:"is_quad"`
	Corners       *geometry.Quad   `json:"corners,omitempty"`
	Approx        geometry.Contour `json:"approx"`
	Area          float64          `json:"area"`
	ContourPoints int              `json:"contour_points"`
	Contour       geometry.Contour `json:"contour,omitempty"`
	Contours      int              `json:"contours"`
	ElapsedMs     float64          `json:"elapsed_ms"`
}

func (s *Server) handleDetectOutline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var a detectOutlineArgs
	if err := bindArgs(request, &a); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	frame, err := s.loadFrame(a.Path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.detector.Detect(frame)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	b := frame.Bounds()
	resp := outlineResponse{
		Width:         b.Dx(),
		Height:        b.Dy(),
		Found:         res.Found(),
		Approx:        res.Approx,
		Area:          res.Area,
		ContourPoints: len(res.Contour),
		Contours:      res.Contours,
		ElapsedMs:     float64(res.Elapsed) / float64(time.Millisecond),
	}
	if resp.Approx == nil {
		resp.Approx = geometry.Contour{}
	}
	if q, ok := res.Quad(); ok {
		resp.IsQuad = true
		resp.Corners = &q
	}
	if a.IncludeContour {
		resp.Contour = res.Contour
	}
	return jsonResult(resp), nil
}

func (s *Server) handleEdgeMap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var a pathArgs
	if err := bindArgs(request, &a); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	frame, err := s.loadFrame(a.Path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := imaging.EdgeDetect(frame, s.detector.Options().Edges)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	meta := map[string]interface{}{
		"width":       res.Width,
		"height":      res.Height,
		"edge_pixels": res.EdgePixels,
	}
	return mcp.NewToolResultImage(mustMarshalJSON(meta), res.ImageBase64, res.MimeType), nil
}

func (s *Server) handleOverlay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var a pathArgs
	if err := bindArgs(request, &a); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	frame, err := s.loadFrame(a.Path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.detector.Detect(frame)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	drawn, err := overlay.Draw(frame, res, s.style)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	enc, err := imaging.Encode(drawn, imaging.FormatPNG, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	meta := map[string]interface{}{
		"width":  enc.Width,
		"height": enc.Height,
		"found":  res.Found(),
		"approx": res.Approx,
	}
	return imageResult(meta, enc), nil
}

// === Rectification ===

type rectifyArgs struct {
	Path    string `json:"path"`
	Corners []int  `json:"corners"`
	Format  string `json:"format"`
	Output  string `json:"output"`
}

type rectifyResponse struct {
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Corners geometry.Quad `json:"corners"`
	Source  string        `json:"source"`
	Output  string        `json:"output,omitempty"`
	Bytes   int           `json:"bytes"`
}

func (s *Server) handleRectify(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var a rectifyArgs
	if err := bindArgs(request, &a); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format := imaging.FormatJPEG
	if a.Format != "" {
		f, err := imaging.ParseFormat(a.Format)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		format = f
	}

	frame, err := s.loadFrame(a.Path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var (
		q      geometry.Quad
		source = "given"
	)
	if len(a.Corners) > 0 {
		q, err = quadFromInts(a.Corners)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	} else {
		source = "detected"
		res, err := s.detector.Detect(frame)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var ok bool
		if q, ok = res.Quad(); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("%v: largest outline has %d vertices",
				scanner.ErrNoDocumentFound, len(res.Approx))), nil
		}
	}

	page, err := rectify.Rectify(frame, q, rectify.DefaultOptions())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	enc, err := imaging.Encode(page, format, s.cfg.JPEGQuality)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp := rectifyResponse{
		Width:   enc.Width,
		Height:  enc.Height,
		Corners: q,
		Source:  source,
		Bytes:   len(enc.Data),
	}
	if a.Output != "" {
		if err := writeFile(a.Output, enc.Data); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		resp.Output = a.Output
		return jsonResult(resp), nil
	}
	return imageResult(resp, enc), nil
}

// quadFromInts reads four corners from [x0, y0, ..., x3, y3].
func quadFromInts(v []int) (geometry.Quad, error) {
	if len(v) != 8 {
		return geometry.Quad{}, fmt.Errorf("corners must hold 8 integers, got %d", len(v))
	}
	var q geometry.Quad
	for i := range q {
		q[i] = geometry.Pt(v[2*i], v[2*i+1])
	}
	return q, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, scanner.DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// === Session ===

type previewStartArgs struct {
	Path string `json:"path"`
	Loop bool   `json:"loop"`
}

func (s *Server) handlePreviewStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var a previewStartArgs
	if err := bindArgs(request, &a); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if a.Path == "" {
		return mcp.NewToolResultError("required argument \"path\" not found"), nil
	}

	var src preview.FrameSource
	if st, err := os.Stat(a.Path); err == nil && st.IsDir() {
		dir, err := preview.NewDirSource(a.Path, s.cache, a.Loop)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		src = dir
	} else {
		frame, err := s.loadFrame(a.Path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		src = preview.StillSource{Frame: frame}
	}

	if err := s.session.StartPreview(s.ctx, src); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.logger.WithField("path", a.Path).Info("preview started")
	return jsonResult(s.session.Status()), nil
}

func (s *Server) handlePreviewStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.session.StopPreview(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.logger.Info("preview stopped")
	return jsonResult(s.session.Status()), nil
}

type captureResponse struct {
	Index  int          `json:"index"`
	Page   scanner.Page `json:"page"`
	Pages  int          `json:"pages"`
	Area   float64      `json:"area"`
	Status string       `json:"state"`
}

func (s *Server) handleCapture(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var a pathArgs
	if err := bindArgs(request, &a); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var frame image.Image
	if a.Path != "" {
		f, err := s.loadFrame(a.Path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		frame = f
	}

	c, err := s.session.Capture(frame)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(captureResponse{
		Index:  c.Index,
		Page:   c.Page,
		Pages:  s.session.Pages().Len(),
		Area:   c.Detection.Area,
		Status: s.session.State().String(),
	}), nil
}

func (s *Server) handleSessionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.session.Status()), nil
}

// === Pages ===

type pageEntry struct {
	Index int `json:"index"`
	scanner.Page
	Bytes int `json:"bytes"`
}

func pageEntries(pages []scanner.Page) []pageEntry {
	out := make([]pageEntry, len(pages))
	for i, p := range pages {
		out[i] = pageEntry{Index: i, Page: p, Bytes: p.Size()}
	}
	return out
}

func (s *Server) handlePagesList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages := s.session.Pages().Snapshot()
	return jsonResult(map[string]interface{}{
		"count": len(pages),
		"pages": pageEntries(pages),
	}), nil
}

type pageGetArgs struct {
	Index   *int `json:"index"`
	MaxSize int  `json:"max_size"`
}

func (s *Server) handlePageGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var a pageGetArgs
	if err := bindArgs(request, &a); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if a.Index == nil {
		return mcp.NewToolResultError("required argument \"index\" not found"), nil
	}
	p, err := s.session.Pages().Get(*a.Index)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entry := pageEntry{Index: *a.Index, Page: p, Bytes: p.Size()}
	enc := &imaging.EncodedImage{
		Width:    p.Width,
		Height:   p.Height,
		MimeType: imaging.FormatJPEG.MimeType(),
		Data:     p.Data,
	}
	if a.MaxSize > 0 && (p.Width > a.MaxSize || p.Height > a.MaxSize) {
		img, err := imaging.DecodeBytes(p.Data)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		enc, err = imaging.Encode(imaging.Thumbnail(img, a.MaxSize, a.MaxSize), imaging.FormatJPEG, s.cfg.JPEGQuality)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	} else {
		enc.ImageBase64 = base64.StdEncoding.EncodeToString(p.Data)
	}

	return imageResult(map[string]interface{}{
		"page":         entry,
		"image_width":  enc.Width,
		"image_height": enc.Height,
	}, enc), nil
}

type pageIndexArgs struct {
	Index *int `json:"index"`
}

func (s *Server) handlePageDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var a pageIndexArgs
	if err := bindArgs(request, &a); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if a.Index == nil {
		return mcp.NewToolResultError("required argument \"index\" not found"), nil
	}
	p, err := s.session.Pages().Delete(*a.Index)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]interface{}{
		"deleted": p.ID,
		"pages":   s.session.Pages().Len(),
	}), nil
}

func (s *Server) handlePagesClear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := s.session.Pages().Clear()
	return jsonResult(map[string]interface{}{
		"cleared": n,
		"pages":   0,
	}), nil
}

type pagesSaveArgs struct {
	Dir string `json:"dir"`
}

func (s *Server) handlePagesSave(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var a pagesSaveArgs
	if err := bindArgs(request, &a); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir := a.Dir
	if dir == "" {
		dir = s.cfg.OutputDir
	}

	pages := s.session.Pages().Snapshot()
	if len(pages) == 0 {
		return mcp.NewToolResultError("no pages to save"), nil
	}
	paths, err := scanner.SavePages(dir, pages)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.logger.WithFields(logrus.Fields{"dir": dir, "pages": len(paths)}).Info("pages saved")
	return jsonResult(map[string]interface{}{
		"dir":   dir,
		"files": paths,
	}), nil
}
