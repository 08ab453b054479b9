// Package logging wraps zerolog behind the small printf-style surface the
// rest of the codebase uses.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

type Config struct {
	Level  string // debug, info, warn or error; defaults to info
	Format string // json or text; defaults to text
	Output io.Writer
}

type Logger struct {
	logger zerolog.Logger
}

func New(c Config) *Logger {
	out := c.Output
	if out == nil {
		out = os.Stderr
	}
	if c.Format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	level := zerolog.InfoLevel
	switch strings.ToLower(c.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn", "warning":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	return &Logger{logger: zerolog.New(out).Level(level).With().Timestamp().Logger()}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

func (l *Logger) Debugf(format string, args ...any) {
	l.logger.Debug().Msgf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.logger.Info().Msgf(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.logger.Warn().Msgf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf(format, args...)
}

// WithPackage returns a logger with the package name attached to every entry.
func (l *Logger) WithPackage(name string) *Logger {
	return &Logger{logger: l.logger.With().Str("package", name).Logger()}
}

// DebugEnabled reports whether debug entries will be emitted, so callers can
// skip expensive formatting.
func (l *Logger) DebugEnabled() bool {
	return l.logger.GetLevel() <= zerolog.DebugLevel
}
