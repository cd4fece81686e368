// Command docscan rectifies document photos from the command line.
//
//	docscan [options] photo.jpg [photo2.png ...]
//	docscan --preview frames/ [options]
//
// Each photo becomes one page in --output-dir (page-001.jpg, ...). Photos
// without a four-cornered outline are reported and skipped. With --preview
// the frames of a directory are replayed through the live detector and each
// detection is logged.
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ironsheep/doc-scanner-mcp/internal/config"
	"github.com/ironsheep/doc-scanner-mcp/internal/detection"
	"github.com/ironsheep/doc-scanner-mcp/internal/imaging"
	"github.com/ironsheep/doc-scanner-mcp/internal/logging"
	"github.com/ironsheep/doc-scanner-mcp/internal/overlay"
	"github.com/ironsheep/doc-scanner-mcp/internal/preview"
	"github.com/ironsheep/doc-scanner-mcp/internal/scanner"
)

// Version information - set by ldflags during build
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := pflag.NewFlagSet("docscan", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	previewDir := fs.String("preview", "", "Replay the frames of a directory through the live detector")
	withOverlay := fs.Bool("overlay", false, "Also write each photo with its detected outline drawn on it")
	version := fs.BoolP("version", "v", false, "Print version information")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: docscan [options] photo [photo ...]")
		fmt.Fprintln(stderr, "       docscan --preview dir [options]")
		fmt.Fprintln(stderr)
		fmt.Fprint(stderr, fs.FlagUsages())
	}

	cfg, err := config.Load(fs, args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "docscan: %v\n", err)
		return 2
	}
	if *version {
		fmt.Fprintf(stderr, "docscan %s\n", Version)
		return 0
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "docscan: %v\n", err)
		return 2
	}

	if *previewDir != "" {
		if err := replay(ctx, cfg, *previewDir, logger); err != nil {
			logger.WithError(err).Error("preview failed")
			return 1
		}
		return 0
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	if err := scanFiles(cfg, fs.Args(), *withOverlay, logger); err != nil {
		logger.WithError(err).Error("scan failed")
		return 1
	}
	return 0
}

// scanFiles captures one page per photo and saves the pages. It fails when
// no photo produced a page or the pages could not be written.
func scanFiles(cfg *config.Config, paths []string, withOverlay bool, logger *logrus.Logger) error {
	cache := imaging.NewFrameCache()
	session := scanner.NewSession(cfg.SessionOptions(), logger)
	style := cfg.OverlayStyle()

	skipped := 0
	for _, path := range paths {
		log := logger.WithField("path", path)

		frame, err := cache.Load(path)
		if err != nil {
			log.WithError(err).Warn("skipping photo")
			skipped++
			continue
		}
		cache.Evict(path)

		if withOverlay {
			if err := writeOverlay(cfg.OutputDir, path, frame, session.Detector(), style); err != nil {
				log.WithError(err).Warn("overlay not written")
			}
		}

		c, err := session.Capture(frame)
		if err != nil {
			log.WithError(err).Warn("skipping photo")
			skipped++
			continue
		}
		log.WithFields(logrus.Fields{
			"page":   c.Index + 1,
			"width":  c.Page.Width,
			"height": c.Page.Height,
		}).Info("page scanned")
	}

	pages := session.Pages().Snapshot()
	if len(pages) == 0 {
		return fmt.Errorf("no pages scanned from %d photos", len(paths))
	}
	files, err := scanner.SavePages(cfg.OutputDir, pages)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"dir":     cfg.OutputDir,
		"pages":   len(files),
		"skipped": skipped,
	}).Info("pages saved")
	return nil
}

// writeOverlay writes <name>-outline.png to dir.
func writeOverlay(dir, path string, frame image.Image, detector *detection.Detector, style overlay.Style) error {
	res, err := detector.Detect(frame)
	if err != nil {
		return err
	}
	drawn, err := overlay.Draw(frame, res, style)
	if err != nil {
		return err
	}
	data, err := imaging.EncodeBytes(drawn, imaging.FormatPNG, 0)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, scanner.DefaultDirPerm); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", dir, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "-outline.png"
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

// replay runs the live detector over the frames of dir once, logging every
// detection, and reports the loop statistics.
func replay(ctx context.Context, cfg *config.Config, dir string, logger *logrus.Logger) error {
	src, err := preview.NewDirSource(dir, imaging.NewFrameCache(), false)
	if err != nil {
		return err
	}
	detector := detection.NewDetector(cfg.DetectorOptions(), logger)

	handler := func(d preview.Detection) {
		log := logger.WithField("seq", d.Seq)
		if q, ok := d.Result.Quad(); ok {
			log.WithField("corners", q).Info("document outline")
			return
		}
		log.WithField("vertices", len(d.Result.Approx)).Debug("no document outline")
	}

	loop := preview.NewLoop(src, detector, cfg.PreviewFPS, handler, logger)
	logger.WithFields(logrus.Fields{"dir": dir, "frames": src.Len(), "fps": cfg.PreviewFPS}).Info("preview started")
	if err := loop.Run(ctx); err != nil {
		return err
	}

	stats := loop.Stats()
	logger.WithFields(logrus.Fields{
		"frames":    stats.Frames,
		"processed": stats.Processed,
		"dropped":   stats.Dropped,
		"failed":    stats.Failed,
	}).Info("preview finished")
	return nil
}
