// Package logging builds the logrus logger shared by the scanner commands.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// TimestampFormat is used by the JSON formatter.
const TimestampFormat = "2006-01-02 15:04:05"

// New creates a logger writing to w (stderr when nil).
//
// format "text" selects the human-readable formatter, "json" the JSON one,
// and "auto" picks text at debug level and JSON otherwise. The text
// formatter forces colours at debug level.
func New(level, format string, w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if w == nil {
		w = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)

	if format == "" || format == "auto" {
		format = "json"
		if lvl >= logrus.DebugLevel {
			format = "text"
		}
	}

	switch format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   lvl >= logrus.DebugLevel,
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: TimestampFormat,
		})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	return logger, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
