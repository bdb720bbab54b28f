// Package watch re-triggers ingestion when the files behind a session change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docent/internal/logger"
)

// DefaultDebounce coalesces the burst of events most editors emit on save.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reports changes to a fixed set of files.
type Watcher struct {
	files    map[string]struct{}
	debounce time.Duration
	onChange func(path string)

	fs *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New watches the directories containing paths. Editors often save by
// renaming a temp file over the original, so watching the file itself
// loses track of it after the first save.
func New(paths []string, debounce time.Duration, onChange func(path string)) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("watch: no files")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	w := &Watcher{
		files:    make(map[string]struct{}, len(paths)),
		debounce: debounce,
		onChange: onChange,
		fs:       fw,
		pending:  make(map[string]*time.Timer),
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run delivers debounced change notifications until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if path, ok := w.relevant(ev); ok {
				w.schedule(path)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)
		}
	}
}

// relevant reports whether ev touches a watched file in a way that
// changes its content.
func (w *Watcher) relevant(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return "", false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return "", false
	}
	if _, ok := w.files[abs]; !ok {
		return "", false
	}
	return abs, true
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		logger.Debug("watch: %s changed", path)
		w.onChange(path)
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.fs.Close()
}
