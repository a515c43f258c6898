// Package debug provides a process-wide, mutex-guarded debug trace sink.
// It is off by default and never writes to stdout/stderr when the HTTP
// server is serving requests (ServerMode), an MCP-stdio-safety convention:
// anything written to stdout while a stdio-transport server is live would
// corrupt the protocol stream.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug can be overridden at build time:
// go build -ldflags "-X github.com/standardbeagle/plagscan/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// ServerMode suppresses all debug output to stdio; set by cmd/plagscan
// when running the HTTP server, whose stdout/stderr may be consumed by a
// process supervisor.
var ServerMode = false

var (
	debugOutput io.Writer
	debugFile   *os.File
	debugMutex  sync.Mutex
)

// SetServerMode toggles stdio suppression.
func SetServerMode(enabled bool) {
	ServerMode = enabled
}

// SetDebugOutput sets a custom writer for debug output. Pass nil to disable.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// InitDebugLogFile initializes debug logging to a timestamped file under
// the OS temp directory and returns its path.
func InitDebugLogFile() (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "plagscan-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugFile = file
	debugOutput = file
	return logPath, nil
}

// CloseDebugLog closes the debug log file if one is open.
func CloseDebugLog() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile != nil {
		err := debugFile.Close()
		debugFile = nil
		debugOutput = nil
		return err
	}
	return nil
}

// IsDebugEnabled reports whether debug tracing is active.
func IsDebugEnabled() bool {
	if ServerMode {
		return false
	}
	if EnableDebug == "true" {
		return true
	}
	if v := os.Getenv("DEBUG"); v == "1" || v == "true" {
		return true
	}
	return false
}

func getDebugWriter() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput
}

// Printf writes a debug line when tracing is enabled.
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

// Log writes a component-tagged debug line.
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

// LogParse traces parser-adapter activity.
func LogParse(format string, args ...interface{}) { Log("PARSE", format, args...) }

// LogFingerprint traces fingerprinter activity.
func LogFingerprint(format string, args ...interface{}) { Log("FINGERPRINT", format, args...) }

// LogCompare traces comparator activity.
func LogCompare(format string, args ...interface{}) { Log("COMPARE", format, args...) }

// LogIngest traces file-watch and remote-fetch activity.
func LogIngest(format string, args ...interface{}) { Log("INGEST", format, args...) }

// CatastrophicError records an unrecoverable condition without exiting the
// process: the message goes to the debug writer, and nothing is written in
// ServerMode.
func CatastrophicError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !ServerMode {
		if w := getDebugWriter(); w != nil {
			fmt.Fprintf(w, "[CATASTROPHIC] %s", msg)
		}
	}
}
