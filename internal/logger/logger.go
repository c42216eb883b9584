// Package logger provides the structured logger used across the service.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the logging surface handed to every component. Key/value pairs
// alternate string keys and arbitrary values.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Infof(format string, args ...any)
	Error(msg string, keyvals ...any)
	Errorf(format string, args ...any)
	With(keyvals ...any) Logger
}

// New returns a JSON logger writing to stdout at the given level
// (debug, info, warn, error). Unknown levels fall back to info.
func New(level string) Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level string) Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zl := zerolog.New(w).
		With().
		Timestamp().
		Logger().
		Level(lvl)

	return &zeroLogger{zl: zl}
}

type zeroLogger struct {
	zl zerolog.Logger
}

func (l *zeroLogger) Debug(msg string, keyvals ...any) {
	l.zl.Debug().Fields(normalize(keyvals)).Msg(msg)
}

func (l *zeroLogger) Info(msg string, keyvals ...any) {
	l.zl.Info().Fields(normalize(keyvals)).Msg(msg)
}

func (l *zeroLogger) Infof(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *zeroLogger) Error(msg string, keyvals ...any) {
	l.zl.Error().Fields(normalize(keyvals)).Msg(msg)
}

func (l *zeroLogger) Errorf(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

func (l *zeroLogger) With(keyvals ...any) Logger {
	return &zeroLogger{zl: l.zl.With().Fields(normalize(keyvals)).Logger()}
}

// normalize makes keyvals safe for zerolog: keys become strings, a dangling
// key gets a placeholder value and errors are rendered as text.
func normalize(keyvals []any) []any {
	if len(keyvals) == 0 {
		return nil
	}
	out := make([]any, 0, len(keyvals)+1)
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		var val any = "(MISSING)"
		if i+1 < len(keyvals) {
			val = keyvals[i+1]
		}
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		out = append(out, key, val)
	}
	return out
}

// NewNoop returns a logger that discards everything.
func NewNoop() Logger {
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any)  {}
func (noopLogger) Info(string, ...any)   {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Error(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}
func (n noopLogger) With(...any) Logger  { return n }
