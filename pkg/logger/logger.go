package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LogLevel is the textual level accepted on the command line and in settings.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Logger wraps slog with intention-aware helpers.
type Logger struct {
	*slog.Logger
}

// ParseLevel maps a LogLevel to its slog level; unknown values fall back to info.
func ParseLevel(level LogLevel) slog.Level {
	switch LogLevel(strings.ToLower(string(level))) {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a logger writing plain lines to stderr and JSON lines to the log file.
func NewLogger(level LogLevel) *Logger {
	return NewLoggerWithConsoleWriter(level, os.Stderr)
}

// NewLoggerWithConsoleWriter builds a logger whose console output goes to consoleWriter.
// A nil writer disables console output entirely, which is what the MCP stdio
// server needs since stdout carries protocol frames.
func NewLoggerWithConsoleWriter(level LogLevel, consoleWriter io.Writer) *Logger {
	slogLevel := ParseLevel(level)

	handlers := []slog.Handler{}
	if consoleWriter != nil {
		handlers = append(handlers, newPlainHandler(consoleWriter, slogLevel))
	}
	if fh := newFileHandler(slogLevel); fh != nil {
		handlers = append(handlers, fh)
	}
	return &Logger{Logger: slog.New(newMultiHandler(handlers...))}
}

// NewConsoleLogger creates a logger that never touches the filesystem.
func NewConsoleLogger(level LogLevel, w io.Writer) *Logger {
	return &Logger{Logger: slog.New(newPlainHandler(w, ParseLevel(level)))}
}

// WithComponent tags every record with the component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.With("component", component)}
}

// WithSession tags every record with a conversation session id.
func (l *Logger) WithSession(sessionID string) *Logger {
	return &Logger{Logger: l.With("session", sessionID)}
}

// LogWithIntention logs msg with an "intention" attribute the console handler turns into an icon.
func (l *Logger) LogWithIntention(level slog.Level, intention Intention, msg string, args ...any) {
	kv := append([]any{"intention", string(intention)}, args...)
	l.Log(context.Background(), level, msg, kv...)
}

func (l *Logger) InfoWithIntention(intention Intention, msg string, args ...any) {
	l.LogWithIntention(slog.LevelInfo, intention, msg, args...)
}

func (l *Logger) DebugWithIntention(intention Intention, msg string, args ...any) {
	l.LogWithIntention(slog.LevelDebug, intention, msg, args...)
}

// Warnings and errors carry no icon; the level already says enough.
func (l *Logger) WarnWithIntention(_ Intention, msg string, args ...any) {
	l.Warn(msg, args...)
}

func (l *Logger) ErrorWithIntention(_ Intention, msg string, args ...any) {
	l.Error(msg, args...)
}

// Default is the process-wide logger. Until SetGlobalLogger is called it
// writes to stderr only.
var Default = NewConsoleLogger(LogLevelInfo, os.Stderr)

// NewComponentLogger derives a component logger from Default.
func NewComponentLogger(component string) *Logger {
	return Default.WithComponent(component)
}

// SetGlobalLogger replaces Default with a console+file logger.
func SetGlobalLogger(level LogLevel) {
	Default = NewLogger(level)
}

// SetGlobalLoggerWithConsoleWriter replaces Default using the given console writer.
func SetGlobalLoggerWithConsoleWriter(level LogLevel, consoleWriter io.Writer) {
	Default = NewLoggerWithConsoleWriter(level, consoleWriter)
}

// LogFilePath returns ~/.cobrowse/logs/cobrowse.log.
func LogFilePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cobrowse", "logs", "cobrowse.log")
}

// newFileHandler appends JSON records to LogFilePath. It returns nil when the
// file cannot be opened; console logging still works in that case.
func newFileHandler(level slog.Level) slog.Handler {
	path := LogFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil
	}
	return slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})
}
