// Package logging provides the structured logger shared by every component.
// Output always goes to stderr (or a caller-provided writer) so the stdio
// transport keeps stdout for protocol traffic.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Config selects the level and output format of a Logger.
type Config struct {
	Level  string // trace, debug, info, warn, error
	Format string // console or json
	Output io.Writer
}

// Logger wraps phuslu/log to provide a consistent interface
type Logger struct {
	*log.Logger
}

// New creates a logger from cfg. Unknown levels fall back to info.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level := strings.ToLower(strings.TrimSpace(cfg.Level))
	if level == "" {
		level = "info"
	}

	var writer log.Writer
	switch strings.ToLower(cfg.Format) {
	case "json":
		writer = &log.IOWriter{Writer: out}
	default:
		writer = &log.ConsoleWriter{
			Writer:         out,
			ColorOutput:    false,
			EndWithMessage: true,
		}
	}

	return &Logger{Logger: &log.Logger{
		Level:      log.ParseLevel(level),
		TimeFormat: "2006-01-02T15:04:05Z07:00",
		Writer:     writer,
	}}
}

// NewDefault creates an info-level console logger on stderr.
func NewDefault() *Logger {
	return New(Config{})
}

// NewSilent creates a logger that discards all output.
func NewSilent() *Logger {
	return &Logger{Logger: &log.Logger{
		Level:  log.ParseLevel("error"),
		Writer: &log.IOWriter{Writer: io.Discard},
	}}
}

// WithComponent returns a copy of l that tags every entry with component.
func (l *Logger) WithComponent(component string) *Logger {
	child := *l.Logger
	child.Context = log.NewContext(nil).Str("component", component).Value()
	return &Logger{Logger: &child}
}

// Mask hides all but the first four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***"
}
