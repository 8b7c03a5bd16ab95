package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Format represents the log format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Logger represents a logger instance
type Logger struct {
	*slog.Logger
	mu      sync.Mutex
	writers []io.Writer
	level   slog.Level
	format  Format
}

func newHandler(level slog.Level, format Format, writers []io.Writer) slog.Handler {
	w := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// New creates a new logger
func New(level slog.Level, format Format, writers ...io.Writer) *Logger {
	return &Logger{
		Logger:  slog.New(newHandler(level, format, writers)),
		writers: writers,
		level:   level,
		format:  format,
	}
}

// rebuild must be called with mu held.
func (l *Logger) rebuild() {
	l.Logger = slog.New(newHandler(l.level, l.format, l.writers))
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level slog.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.rebuild()
}

// AddOutput adds a new output destination
func (l *Logger) AddOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writers = append(l.writers, w)
	l.rebuild()
}

// SetFormat changes the log format
func (l *Logger) SetFormat(format Format) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.format = format
	l.rebuild()
}

// Rotate closes the current log files and continues in the file at path.
func (l *Logger) Rotate(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var kept []io.Writer
	for _, writer := range l.writers {
		if file, ok := writer.(*os.File); ok && !isConsole(file) {
			file.Close()
			continue
		}
		kept = append(kept, writer)
	}

	file, err := openLogFile(path)
	if err != nil {
		return err
	}
	l.writers = append(kept, file)
	l.rebuild()
	return nil
}

// Close closes all file writers
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, writer := range l.writers {
		if file, ok := writer.(*os.File); ok && !isConsole(file) {
			if err := file.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Level returns the current log level
func (l *Logger) Level() slog.Level {
	return l.level
}

func isConsole(f *os.File) bool {
	return f == os.Stdout || f == os.Stderr
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// Init replaces the default logger. console receives every entry; pass
// os.Stderr when stdout carries protocol traffic.
func Init(level slog.Level, format Format, console io.Writer, paths ...string) error {
	var writers []io.Writer
	if console != nil {
		writers = append(writers, console)
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		file, err := openLogFile(path)
		if err != nil {
			return err
		}
		writers = append(writers, file)
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	defaultLogger = New(level, format, writers...)
	return nil
}

// Default returns the logger used by the package-level helpers.
func Default() *Logger {
	return defaultLogger
}

// SetDefault installs l as the default logger.
func SetDefault(l *Logger) {
	defaultLogger = l
}

// ParseFormat maps a config value to a Format. Anything but "text" is JSON.
func ParseFormat(format string) Format {
	if strings.EqualFold(strings.TrimSpace(format), string(FormatText)) {
		return FormatText
	}
	return FormatJSON
}

// GetLevelFromString returns the log level from a string
func GetLevelFromString(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// defaultLogger writes to stderr until Init is called.
var defaultLogger = New(slog.LevelInfo, FormatText, os.Stderr)

// Helper functions for common logging patterns
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

func DebugContext(ctx context.Context, msg string, args ...any) {
	defaultLogger.DebugContext(ctx, msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	defaultLogger.InfoContext(ctx, msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	defaultLogger.WarnContext(ctx, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	defaultLogger.ErrorContext(ctx, msg, args...)
}
