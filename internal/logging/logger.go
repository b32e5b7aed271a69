package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogFileName is the file written by EnableFileLogging.
const LogFileName = "chatdev.log"

var (
	logger  *slog.Logger
	logFile *os.File
	mu      sync.RWMutex
)

func init() {
	// Discard by default: stdout belongs to the TUI.
	logger = slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Level represents a logging level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ParseLevel parses a level string to Level. Unknown values map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slogLevel() slog.Level {
	switch ParseLevel(string(l)) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EnableFileLogging routes logs to chatdev.log inside dir.
// Call it before the TUI starts.
func EnableFileLogging(dir string, level Level) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	logger = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: level.slogLevel(),
	}))
	return nil
}

// Configure points the global logger at w (stderr when nil).
func Configure(level Level, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}

	mu.Lock()
	defer mu.Unlock()

	logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level.slogLevel(),
	}))
}

// DisableLogging discards all output and closes the log file.
func DisableLogging() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	logger = slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// Close closes the log file if open.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs a debug message.
func Debug(msg string, args ...any) { current().Debug(msg, args...) }

// Info logs an info message.
func Info(msg string, args ...any) { current().Info(msg, args...) }

// Warn logs a warning message.
func Warn(msg string, args ...any) { current().Warn(msg, args...) }

// Error logs an error message.
func Error(msg string, args ...any) { current().Error(msg, args...) }

// With returns a logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

// Logger returns the underlying slog.Logger.
func Logger() *slog.Logger {
	return current()
}
