// Package logging provides structured logging for the dashboard CLI.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/invdash/invdash/internal/constants"
)

// Options configures a Logger.
type Options struct {
	// Console is where human-readable lines go (default: stdout)
	Console io.Writer

	// File enables a rotating JSON log file when non-empty
	File string

	// ConsoleLevel hides console lines below this level while the file
	// still receives them. The zero value (debug) filters nothing.
	ConsoleLevel zerolog.Level
}

// Logger wraps zerolog with a console writer and an optional rotating file.
type Logger struct {
	zlog         zerolog.Logger
	output       io.Writer // current console writer
	consoleLevel zerolog.Level
	file         *lumberjack.Logger
}

// NewLogger creates a logger from options.
func NewLogger(opts Options) *Logger {
	console := opts.Console
	if console == nil {
		// stdout for logs, stderr is left to progress bars
		console = os.Stdout
	}

	l := &Logger{output: console, consoleLevel: opts.ConsoleLevel}
	if opts.File != "" {
		l.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    constants.LogFileMaxSizeMB,
			MaxBackups: constants.LogFileMaxBackups,
			MaxAge:     constants.LogFileMaxAgeDays,
			Compress:   true,
		}
	}
	l.rebuild()
	return l
}

// NewDefaultCLILogger creates a default CLI logger.
func NewDefaultCLILogger() *Logger {
	return NewLogger(Options{})
}

// NewNopLogger discards everything; used by tests and library callers.
func NewNopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop(), output: io.Discard}
}

func (l *Logger) rebuild() {
	var w io.Writer = levelFilter{
		w: zerolog.ConsoleWriter{
			Out:        l.output,
			TimeFormat: "15:04:05",
		},
		min: l.consoleLevel,
	}
	if l.file != nil {
		w = zerolog.MultiLevelWriter(w, l.file)
	}
	l.zlog = zerolog.New(w).With().Timestamp().Logger()
}

// levelFilter drops lines below min.
type levelFilter struct {
	w   io.Writer
	min zerolog.Level
}

func (f levelFilter) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f levelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < f.min {
		return len(p), nil
	}
	return f.w.Write(p)
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// With creates a child logger with additional context.
func (l *Logger) With() zerolog.Context {
	return l.zlog.With()
}

// SetOutput changes the console writer, keeping the file sink.
// Used to route lines above mpb bars while a workflow is rendering.
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
	l.rebuild()
}

// Output returns the current console writer.
func (l *Logger) Output() io.Writer {
	return l.output
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Debugf logs a debug message with printf-style formatting.
// This is only shown when debug/verbose mode is enabled.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zlog.Debug().Msgf(format, args...)
}

// Infof logs an info message with printf-style formatting.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

// Errorf logs an error message with printf-style formatting.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zlog.Error().Msgf(format, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zlog.Warn().Msgf(format, args...)
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func init() {
	// Dashboard output is driven by the activity log and toasts; zerolog
	// lines below WARN only show with --verbose.
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}
