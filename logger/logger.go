// Package logger configures the process-wide charmbracelet logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// ParseLevel maps a level name onto a log level. Unknown names fall back to
// info.
func ParseLevel(name string) log.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// New builds a logger writing to stderr and installs it as the default.
func New(level string, json bool) *log.Logger {
	l := NewWithWriter(os.Stderr, level, json)
	log.SetDefault(l)
	return l
}

// NewWithWriter builds a logger writing to w.
func NewWithWriter(w io.Writer, level string, json bool) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           ParseLevel(level),
	})
	if json {
		l.SetFormatter(log.JSONFormatter)
	} else {
		l.SetFormatter(log.TextFormatter)
	}
	return l
}
