package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/plagscan/internal/config"
	"github.com/standardbeagle/plagscan/internal/debug"
)

// ChangeEventType categorises one debounced filesystem change.
type ChangeEventType int

const (
	ChangeCreate ChangeEventType = iota
	ChangeWrite
	ChangeRemove
)

// Watcher re-triggers analysis when source files under a watched root
// change, for the CLI's optional --watch mode. It never re-analyses on
// every individual write: events are debounced and delivered as one batch.
type Watcher struct {
	fsw        *fsnotify.Watcher
	cfg        *config.Config
	gitignore  *config.GitignoreParser
	debouncer  *changeDebouncer
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	onChange   func(changes map[string]ChangeEventType)
}

// NewWatcher builds a Watcher scoped to cfg's include/exclude patterns and
// (if cfg.Ingest.RespectGitignore) the root's .gitignore.
func NewWatcher(cfg *config.Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	var gi *config.GitignoreParser
	if cfg.Ingest.RespectGitignore {
		gi = config.NewGitignoreParser()
		_ = gi.LoadGitignore(cfg.Project.Root)
	}

	ctx, cancel := context.WithCancel(context.Background())
	debounceMs := cfg.Ingest.WatchDebounceMs
	if debounceMs <= 0 {
		debounceMs = 300
	}

	w := &Watcher{
		fsw:       fsw,
		cfg:       cfg,
		gitignore: gi,
		debouncer: newChangeDebouncer(time.Duration(debounceMs) * time.Millisecond),
		ctx:       ctx,
		cancel:    cancel,
	}
	w.debouncer.owner = w
	return w, nil
}

// OnChange registers the callback invoked once per debounce window with the
// batch of paths that changed.
func (w *Watcher) OnChange(fn func(changes map[string]ChangeEventType)) {
	w.onChange = fn
}

// Start recursively watches root and begins dispatching debounced events.
func (w *Watcher) Start(root string) error {
	if !w.cfg.Ingest.WatchMode {
		return nil
	}
	if err := w.addWatches(root); err != nil {
		return fmt.Errorf("adding watches under %s: %w", root, err)
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.debouncer.run(w.ctx, &w.wg)
	debug.LogIngest("watcher started for %s\n", root)
	return nil
}

// Stop tears down the watcher and waits for its goroutines to exit.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if w.shouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			log.Printf("plagscan: failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) shouldIgnoreDir(path string) bool {
	for _, pattern := range w.cfg.Exclude {
		dirPattern := strings.TrimSuffix(pattern, "/**")
		if matched, _ := filepath.Match(dirPattern, filepath.Base(path)); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
	}
	if w.gitignore != nil {
		rel, err := filepath.Rel(w.cfg.Project.Root, path)
		if err == nil && w.gitignore.ShouldIgnore(filepath.ToSlash(rel), true) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldProcessPath(path string) bool {
	if len(w.cfg.Include) == 0 {
		return true
	}
	for _, pattern := range w.cfg.Include {
		if matched, _ := doublestar.Match(pattern, filepath.ToSlash(path)); matched {
			return true
		}
		if w.cfg.Project.Root != "" {
			if rel, err := filepath.Rel(w.cfg.Project.Root, path); err == nil {
				if matched, _ := doublestar.Match(pattern, filepath.ToSlash(rel)); matched {
					return true
				}
			}
		}
	}
	return false
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("plagscan: watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	info, err := os.Stat(path)
	if err != nil {
		if event.Op&fsnotify.Remove != 0 && w.shouldProcessPath(path) {
			w.debouncer.addEvent(path, ChangeRemove)
		}
		return
	}

	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 && !w.shouldIgnoreDir(path) {
			if err := w.fsw.Add(path); err != nil {
				log.Printf("plagscan: failed to watch new directory %s: %v", path, err)
			}
		}
		return
	}

	if info.Size() > w.cfg.Ingest.MaxFileSize {
		return
	}
	if !w.shouldProcessPath(path) {
		return
	}

	var eventType ChangeEventType
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = ChangeCreate
	case event.Op&fsnotify.Write != 0:
		eventType = ChangeWrite
	case event.Op&fsnotify.Remove != 0:
		eventType = ChangeRemove
	default:
		return
	}
	w.debouncer.addEvent(path, eventType)
}

// changeDebouncer coalesces bursts of filesystem events (editors routinely
// fire several writes per save) into one callback per settle window.
type changeDebouncer struct {
	mu       sync.Mutex
	events   map[string]ChangeEventType
	debounce time.Duration
	timer    *time.Timer
	owner    *Watcher
}

func newChangeDebouncer(debounce time.Duration) *changeDebouncer {
	return &changeDebouncer{events: make(map[string]ChangeEventType), debounce: debounce}
}

func (d *changeDebouncer) addEvent(path string, eventType ChangeEventType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events[path] = eventType
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.flush)
}

func (d *changeDebouncer) flush() {
	d.mu.Lock()
	batch := d.events
	d.events = make(map[string]ChangeEventType)
	d.mu.Unlock()

	if len(batch) == 0 || d.owner.onChange == nil {
		return
	}
	d.owner.onChange(batch)
}

func (d *changeDebouncer) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	<-ctx.Done()
}
