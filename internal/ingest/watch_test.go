package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/plagscan/internal/config"
)

func watchConfig(root string) *config.Config {
	return &config.Config{
		Project: config.Project{Root: root},
		Ingest: config.Ingest{
			MaxFileSize:     1 << 20,
			WatchMode:       true,
			WatchDebounceMs: 50,
		},
	}
}

func TestWatcher_DetectsFileWrite(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.py"), []byte("x = 1\n"), 0o644))

	w, err := NewWatcher(watchConfig(root))
	require.NoError(t, err)

	changes := make(chan map[string]ChangeEventType, 1)
	w.OnChange(func(batch map[string]ChangeEventType) { changes <- batch })

	require.NoError(t, w.Start(root))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.py"), []byte("x = 2\n"), 0o644))

	select {
	case batch := <-changes:
		assert.Contains(t, batch, filepath.Join(root, "main.py"))
	case <-time.After(2 * time.Second):
		t.Fatal("expected a debounced change notification")
	}
}

func TestWatcher_StartIsNoOpWhenWatchModeDisabled(t *testing.T) {
	root := t.TempDir()
	cfg := watchConfig(root)
	cfg.Ingest.WatchMode = false

	w, err := NewWatcher(cfg)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.Start(root))
}

func TestWatcher_StopReleasesGoroutines(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(watchConfig(root))
	require.NoError(t, err)

	require.NoError(t, w.Start(root))
	assert.NoError(t, w.Stop())
}

func TestChangeDebouncer_CoalescesBurstsIntoOneBatch(t *testing.T) {
	w := &Watcher{}
	received := make(chan map[string]ChangeEventType, 4)
	w.OnChange(func(batch map[string]ChangeEventType) { received <- batch })

	d := newChangeDebouncer(20 * time.Millisecond)
	d.owner = w
	d.addEvent("a.py", ChangeWrite)
	d.addEvent("a.py", ChangeWrite)
	d.addEvent("b.py", ChangeCreate)

	select {
	case batch := <-received:
		assert.Len(t, batch, 2)
	case <-time.After(time.Second):
		t.Fatal("expected one coalesced batch")
	}
}
