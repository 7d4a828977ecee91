package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level is a log severity level
type Level int

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
	PanicLevel
)

var (
	mu    sync.Mutex
	level = InfoLevel
	std   = log.New(os.Stderr, "", log.LstdFlags)
)

// ParseLevel converts a level name to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TraceLevel, nil
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	case "panic":
		return PanicLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %s", s)
	}
}

// SetLevel sets the minimum level that will be printed
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// SetOutput redirects log output (default: stderr)
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std = log.New(w, "", log.LstdFlags)
}

func logf(l Level, tag, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}
	std.Printf("["+tag+"] "+format, args...)
}

// Trace logs at trace level
func Trace(format string, args ...any) { logf(TraceLevel, "TRACE", format, args...) }

// Debug logs at debug level
func Debug(format string, args ...any) { logf(DebugLevel, "DEBUG", format, args...) }

// Info logs at info level
func Info(format string, args ...any) { logf(InfoLevel, "INFO", format, args...) }

// Warn logs at warn level
func Warn(format string, args ...any) { logf(WarnLevel, "WARN", format, args...) }

// Error logs at error level
func Error(format string, args ...any) { logf(ErrorLevel, "ERROR", format, args...) }

// Fatal logs at fatal level and exits
func Fatal(format string, args ...any) {
	logf(FatalLevel, "FATAL", format, args...)
	os.Exit(1)
}
