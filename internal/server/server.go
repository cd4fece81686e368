package server

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/doc-scanner-mcp/internal/config"
	"github.com/ironsheep/doc-scanner-mcp/internal/detection"
	"github.com/ironsheep/doc-scanner-mcp/internal/imaging"
	"github.com/ironsheep/doc-scanner-mcp/internal/overlay"
	"github.com/ironsheep/doc-scanner-mcp/internal/scanner"
)

// Server exposes the document scanner as MCP tools.
type Server struct {
	cfg       *config.Config
	cache     *imaging.FrameCache
	detector  *detection.Detector
	session   *scanner.Session
	style     overlay.Style
	logger    *logrus.Logger
	mcpServer *server.MCPServer

	// ctx bounds background work such as a running preview.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a server for cfg and registers its tools. A nil logger
// discards log output.
func New(cfg *config.Config, logger *logrus.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	session := scanner.NewSession(cfg.SessionOptions(), logger)
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:       cfg,
		cache:     imaging.NewFrameCache(),
		detector:  session.Detector(),
		session:   session,
		style:     cfg.OverlayStyle(),
		logger:    logger,
		mcpServer: mcpServer,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Session returns the scanning session shared by all tool calls.
func (s *Server) Session() *scanner.Session {
	return s.session
}

// Run serves MCP over the given streams until ctx is cancelled or in is
// closed. Protocol errors are logged, never written to out.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	defer s.Close()

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(log.New(s.logger.WriterLevel(logrus.ErrorLevel), "", 0))

	s.logger.WithFields(logrus.Fields{
		"name":    s.cfg.ServerName,
		"version": s.cfg.Version,
	}).Debug("serving MCP over stdio")

	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// Close stops any running preview and releases cached frames.
func (s *Server) Close() {
	s.cancel()
	if s.session.State() == scanner.StatePreviewing {
		_ = s.session.StopPreview()
	}
	s.cache.Clear()
}
