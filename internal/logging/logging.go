// Package logging provides leveled wrappers around the standard logger.
// The TUI redirects the standard logger to a file, so everything written here
// ends up in the diagnostics pane rather than on the terminal.
package logging

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"
)

// Level represents logging severity.
type Level int32

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

var (
	currentLevel     atomic.Int32
	currentVerbosity atomic.Int32
)

func init() {
	currentLevel.Store(int32(LevelWarn))
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
}

// SetVerbosity configures logger output from the count of -v flags (0-4).
func SetVerbosity(count int) {
	if count < 0 {
		count = 0
	}
	if count > 4 {
		count = 4
	}
	currentVerbosity.Store(int32(count))
	switch count {
	case 0:
		currentLevel.Store(int32(LevelWarn))
	case 1:
		currentLevel.Store(int32(LevelInfo))
	case 2:
		currentLevel.Store(int32(LevelDebug))
	default:
		currentLevel.Store(int32(LevelTrace))
	}
}

// SetLevel applies a named level such as "info" or "debug".
func SetLevel(name string) error {
	_, count, err := ParseLevel(name)
	if err != nil {
		return err
	}
	SetVerbosity(count)
	return nil
}

// Verbosity returns the stored -v count.
func Verbosity() int {
	return int(currentVerbosity.Load())
}

// LevelName returns the current level label.
func LevelName() string {
	return LevelToString(Level(currentLevel.Load()))
}

// LevelToString converts a Level to human readable text.
func LevelToString(l Level) string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// ParseLevel returns Level + verbosity count from string.
func ParseLevel(s string) (Level, int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, 0, nil
	case "warn", "warning", "":
		return LevelWarn, 0, nil
	case "info":
		return LevelInfo, 1, nil
	case "debug":
		return LevelDebug, 2, nil
	case "trace":
		return LevelTrace, 4, nil
	default:
		return LevelWarn, Verbosity(), fmt.Errorf("unknown level %s", s)
	}
}

// Enabled reports whether messages at l are currently emitted.
func Enabled(l Level) bool {
	return int32(l) <= currentLevel.Load()
}

func logf(l Level, prefix, format string, args ...any) {
	if !Enabled(l) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	log.Printf("[%s] %s", strings.ToUpper(prefix), msg)
}

// Errorf always prints.
func Errorf(format string, args ...any) {
	logf(LevelError, "error", format, args...)
}

func Warnf(format string, args ...any) {
	logf(LevelWarn, "warn", format, args...)
}

func Infof(format string, args ...any) {
	logf(LevelInfo, "info", format, args...)
}

func Debugf(format string, args ...any) {
	logf(LevelDebug, "debug", format, args...)
}

func Tracef(format string, args ...any) {
	logf(LevelTrace, "trace", format, args...)
}
