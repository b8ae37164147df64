// Package logging provides structured logging for the page runtime and the dev server.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with the settings used across the app.
type Logger struct {
	zlog zerolog.Logger
}

// New creates a logger writing human-readable lines to w.
// Browser consoles do not render ANSI colours, so colouring is off.
func New(w io.Writer, debug bool) *Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: "15:04:05",
	}
	return &Logger{
		zlog: zerolog.New(output).Level(level).With().Timestamp().Logger(),
	}
}

// NewDefault creates a logger writing to stdout, which the wasm runtime forwards to console.log.
func NewDefault(debug bool) *Logger {
	return New(os.Stdout, debug)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Component returns a child logger tagged with a component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", name).Logger()}
}

// RetryLogger adapts Logger to retryablehttp.LeveledLogger.
type RetryLogger struct {
	L *Logger
}

func (r RetryLogger) Error(msg string, keysAndValues ...interface{}) {
	r.L.Error().Fields(keysAndValues).Msg(msg)
}

func (r RetryLogger) Info(msg string, keysAndValues ...interface{}) {
	r.L.Debug().Fields(keysAndValues).Msg(msg)
}

func (r RetryLogger) Debug(msg string, keysAndValues ...interface{}) {
	r.L.Debug().Fields(keysAndValues).Msg(msg)
}

func (r RetryLogger) Warn(msg string, keysAndValues ...interface{}) {
	r.L.Warn().Fields(keysAndValues).Msg(msg)
}
