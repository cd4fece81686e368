package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ironsheep/doc-scanner-mcp/internal/detection"
	"github.com/ironsheep/doc-scanner-mcp/internal/imaging"
	"github.com/ironsheep/doc-scanner-mcp/internal/overlay"
	"github.com/ironsheep/doc-scanner-mcp/internal/preview"
	"github.com/ironsheep/doc-scanner-mcp/internal/rectify"
	"github.com/ironsheep/doc-scanner-mcp/internal/scanner"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. DOCSCAN_CANNY_LOW.
	EnvPrefix = "DOCSCAN"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "auto"
	DefaultOutputDir = "scans"
)

// Config holds all settings shared by the server and the batch scanner.
type Config struct {
	// Application
	ServerName string
	Version    string
	LogLevel   string
	LogFormat  string
	ConfigFile string

	// Outline detection
	CannyLow     int
	CannyHigh    int
	BlurKernel   int
	EpsilonRatio float64

	// Output
	JPEGQuality      int
	OverlayColor     string
	OverlayThickness int
	OutputDir        string

	// Session
	PreviewFPS int
	MaxPages   int
}

// DefaultConfig returns the standard document-scanner settings.
func DefaultConfig() *Config {
	edges := imaging.DefaultEdgeOptions()
	return &Config{
		ServerName:       "doc-scanner-mcp",
		Version:          "1.0.0",
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
		CannyLow:         edges.Low,
		CannyHigh:        edges.High,
		BlurKernel:       edges.BlurKernel,
		EpsilonRatio:     detection.DefaultOptions().EpsilonRatio,
		JPEGQuality:      imaging.DefaultJPEGQuality,
		OverlayColor:     overlay.DefaultColor,
		OverlayThickness: overlay.DefaultThickness,
		OutputDir:        DefaultOutputDir,
		PreviewFPS:       preview.DefaultFPS,
		MaxPages:         0,
	}
}

// Load registers the common flags on fs, parses args and resolves every
// setting with the precedence flags > environment > config file > defaults.
//
// Callers may register their own flags on fs before calling Load and read
// them, along with fs.Args(), afterwards.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	setupViperEnvironment(v, cfg)
	defineFlags(fs, cfg)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	populateFromViper(v, cfg)

	if cfg.OutputDir != "" {
		if abs, err := filepath.Abs(cfg.OutputDir); err == nil {
			cfg.OutputDir = abs
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("loglevel", cfg.LogLevel)
	v.SetDefault("logformat", cfg.LogFormat)
	v.SetDefault("canny-low", cfg.CannyLow)
	v.SetDefault("canny-high", cfg.CannyHigh)
	v.SetDefault("blur-kernel", cfg.BlurKernel)
	v.SetDefault("epsilon-ratio", cfg.EpsilonRatio)
	v.SetDefault("jpeg-quality", cfg.JPEGQuality)
	v.SetDefault("overlay-color", cfg.OverlayColor)
	v.SetDefault("overlay-thickness", cfg.OverlayThickness)
	v.SetDefault("output-dir", cfg.OutputDir)
	v.SetDefault("preview-fps", cfg.PreviewFPS)
	v.SetDefault("max-pages", cfg.MaxPages)
}

func defineFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("config", "", "Optional config file (yaml, json or toml)")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.String("logformat", cfg.LogFormat, "Log format (auto, text, json)")
	fs.Int("canny-low", cfg.CannyLow, "Canny hysteresis low threshold")
	fs.Int("canny-high", cfg.CannyHigh, "Canny hysteresis high threshold")
	fs.Int("blur-kernel", cfg.BlurKernel, "Gaussian blur kernel size (odd)")
	fs.Float64("epsilon-ratio", cfg.EpsilonRatio, "Polygon approximation tolerance as a fraction of the perimeter")
	fs.Int("jpeg-quality", cfg.JPEGQuality, "JPEG quality for captured pages (1-100)")
	fs.String("overlay-color", cfg.OverlayColor, "Outline colour for overlays (#RRGGBB)")
	fs.Int("overlay-thickness", cfg.OverlayThickness, "Outline width in pixels for overlays")
	fs.String("output-dir", cfg.OutputDir, "Directory captured pages are saved to")
	fs.Int("preview-fps", cfg.PreviewFPS, "Preview detection rate in frames per second")
	fs.Int("max-pages", cfg.MaxPages, "Maximum pages per session (0 = unlimited)")
}

func populateFromViper(v *viper.Viper, cfg *Config) {
	cfg.ConfigFile = v.GetString("config")
	cfg.LogLevel = v.GetString("loglevel")
	cfg.LogFormat = v.GetString("logformat")
	cfg.CannyLow = v.GetInt("canny-low")
	cfg.CannyHigh = v.GetInt("canny-high")
	cfg.BlurKernel = v.GetInt("blur-kernel")
	cfg.EpsilonRatio = v.GetFloat64("epsilon-ratio")
	cfg.JPEGQuality = v.GetInt("jpeg-quality")
	cfg.OverlayColor = v.GetString("overlay-color")
	cfg.OverlayThickness = v.GetInt("overlay-thickness")
	cfg.OutputDir = v.GetString("output-dir")
	cfg.PreviewFPS = v.GetInt("preview-fps")
	cfg.MaxPages = v.GetInt("max-pages")
}

// Validate checks that the configuration describes a usable pipeline.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	switch c.LogFormat {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be one of: auto, text, json)", c.LogFormat)
	}

	if c.CannyLow < 0 || c.CannyHigh <= 0 {
		return errors.New("canny thresholds must be positive")
	}
	if c.CannyLow >= c.CannyHigh {
		return fmt.Errorf("canny low threshold %d must be below high threshold %d", c.CannyLow, c.CannyHigh)
	}
	if c.BlurKernel < 1 || c.BlurKernel%2 == 0 {
		return fmt.Errorf("blur kernel must be a positive odd number, got %d", c.BlurKernel)
	}
	if c.EpsilonRatio <= 0 || c.EpsilonRatio >= 1 {
		return fmt.Errorf("epsilon ratio must be between 0 and 1, got %g", c.EpsilonRatio)
	}

	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be between 1 and 100, got %d", c.JPEGQuality)
	}
	if _, err := overlay.ParseColor(c.OverlayColor); err != nil {
		return err
	}
	if c.OverlayThickness < 1 {
		return errors.New("overlay thickness must be at least 1")
	}

	if c.PreviewFPS <= 0 {
		return errors.New("preview fps must be positive")
	}
	if c.MaxPages < 0 {
		return errors.New("max pages cannot be negative")
	}
	return nil
}

// IsDebug returns true if debug logging is enabled.
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// DetectorOptions returns the outline detection settings.
func (c *Config) DetectorOptions() detection.Options {
	return detection.Options{
		Edges: imaging.EdgeOptions{
			BlurKernel: c.BlurKernel,
			Low:        c.CannyLow,
			High:       c.CannyHigh,
		},
		EpsilonRatio: c.EpsilonRatio,
	}
}

// OverlayStyle returns the overlay drawing style. The colour has already
// been checked by Validate.
func (c *Config) OverlayStyle() overlay.Style {
	style := overlay.DefaultStyle()
	if col, err := overlay.ParseColor(c.OverlayColor); err == nil {
		style.Color = col
	}
	style.Thickness = c.OverlayThickness
	return style
}

// SessionOptions returns the scanning session settings.
func (c *Config) SessionOptions() scanner.Options {
	return scanner.Options{
		Detection:   c.DetectorOptions(),
		Rectify:     rectify.DefaultOptions(),
		JPEGQuality: c.JPEGQuality,
		MaxPages:    c.MaxPages,
		PreviewFPS:  c.PreviewFPS,
	}
}

// String returns a one-line summary of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Canny: %d/%d, Blur: %d, Epsilon: %g, JPEGQuality: %d, PreviewFPS: %d, MaxPages: %d, OutputDir: %s, LogLevel: %s}",
		c.CannyLow, c.CannyHigh, c.BlurKernel, c.EpsilonRatio, c.JPEGQuality, c.PreviewFPS, c.MaxPages, c.OutputDir, c.LogLevel)
}
