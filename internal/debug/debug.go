// Package debug is a high-volume trace logger for the scan/watch hot
// paths — deliberately separate from internal/obslog, which is for the
// handful of run-level events an operator actually wants to see.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// EnableDebug is a build flag that can be overridden at link time:
// go build -ldflags "-X github.com/mdbarr/indexer/internal/debug.EnableDebug=true"
var EnableDebug = "false"

var (
	debugOutput io.Writer
	debugMutex  sync.Mutex
)

// SetDebugOutput sets a custom writer for debug output.
// Pass nil to disable debug output entirely.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// IsDebugEnabled reports whether trace output should be written: via the
// build flag, or at runtime via the DEBUG environment variable.
func IsDebugEnabled() bool {
	if EnableDebug == "true" {
		return true
	}
	return os.Getenv("DEBUG") == "1" || os.Getenv("DEBUG") == "true"
}

func getDebugWriter() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput
}

// Printf prints debug information only when debug mode is enabled and
// output is configured.
func Printf(format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG] "+format, args...)
}

// Println prints debug information only when debug mode is enabled and
// output is configured.
func Println(args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprint(w, "[DEBUG] ")
	fmt.Fprintln(w, args...)
}

// Log provides structured debug logging with component names.
func Log(component, format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG:%s] "+format, append([]interface{}{component}, args...)...)
}

// LogIndexing provides debug logging for pipeline conversion steps.
func LogIndexing(format string, args ...interface{}) {
	Log("INDEX", format, args...)
}

// LogScan provides debug logging for the directory scanner and the
// supplemental file watcher.
func LogScan(format string, args ...interface{}) {
	Log("SCAN", format, args...)
}
