package ingest

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures Watcher.Stop leaves no fsnotify/debouncer goroutines
// running after a test finishes.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}
