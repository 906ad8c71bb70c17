// Package debug provides the opt-in diagnostic logger used throughout the
// playback stack. Playback-time failures (a missing sample, a backend that
// cannot start) are swallowed by design so a bad note never halts the
// transport; this logger is where those swallowed failures end up.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.Mutex
	out     io.Writer
	file    *os.File
	enabled bool
)

// Enable starts logging to stderr.
func Enable() {
	mu.Lock()
	defer mu.Unlock()
	out = os.Stderr
	enabled = true
}

// EnableFile starts logging to the given path, truncating any previous log.
func EnableFile(path string) error {
	mu.Lock()
	defer mu.Unlock()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if file != nil {
		file.Close()
	}
	file = f
	out = f
	enabled = true
	return nil
}

// Disable stops logging and closes the log file if one is open.
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
	}
	out = nil
	enabled = false
}

// Logf writes one log line tagged with a category, e.g. "engine" or "synth".
func Logf(category, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !enabled || out == nil {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(out, "[%s] %-9s %s\n", ts, category, fmt.Sprintf(format, args...))
	if file != nil {
		file.Sync()
	}
}
