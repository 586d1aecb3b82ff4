// Package logger prints pipeline diagnostics for docqa.
//
// Nothing is written unless verbose mode is on (--verbose). Long-running
// commands such as 'docqa serve' and 'docqa watch' also turn on timestamps
// so interleaved request and batch lines can be ordered.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const timeLayout = "2006-01-02T15:04:05.000"

var (
	mu         sync.RWMutex
	verbose    bool
	timestamps bool
	output     io.Writer = os.Stderr
	now                  = time.Now
)

// SetVerbose turns diagnostics on or off.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether diagnostics are printed.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetTimestamps prefixes every line with the local time.
func SetTimestamps(on bool) {
	mu.Lock()
	defer mu.Unlock()
	timestamps = on
}

// SetOutput redirects diagnostics. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug logs pipeline detail such as scores and counts.
func Debug(format string, args ...any) { emit("DEBUG", format, args) }

// Info logs progress of an ingest, answer or request.
func Info(format string, args ...any) { emit("INFO", format, args) }

// Warn logs a recoverable failure.
func Warn(format string, args ...any) { emit("WARN", format, args) }

// Section starts a named block of output, e.g. one ingest batch.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if !verbose {
		return
	}
	fmt.Fprintf(output, "\n%s=== %s ===\n", stamp(), name)
}

func emit(level, format string, args []any) {
	mu.RLock()
	defer mu.RUnlock()
	if !verbose {
		return
	}
	fmt.Fprintf(output, "%s[%s] %s\n", stamp(), level, fmt.Sprintf(format, args...))
}

// stamp must be called with mu held.
func stamp() string {
	if !timestamps {
		return ""
	}
	return now().Format(timeLayout) + " "
}
