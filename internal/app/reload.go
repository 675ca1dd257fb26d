package app

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/giantswarm/conductor/internal/config"
	"github.com/giantswarm/conductor/pkg/logging"
)

// reloadDebounce coalesces the burst of events editors produce on save.
const reloadDebounce = 200 * time.Millisecond

// configWatcher reports changes to a single configuration file. It watches
// the parent directory so that files replaced by rename are still seen.
type configWatcher struct {
	path    string
	watcher *fsnotify.Watcher
}

func newConfigWatcher(path string) (*configWatcher, error) {
	if path == "" {
		path = config.DefaultConfigFileName
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}
	logging.Info("Reload", "Watching %s for changes", abs)
	return &configWatcher{path: abs, watcher: watcher}, nil
}

// run calls onChange once per burst of changes until ctx ends, then closes
// the watcher. onChange runs on the watcher goroutine.
func (w *configWatcher) run(ctx context.Context, onChange func()) {
	defer w.watcher.Close()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logging.Debug("Reload", "Configuration event %s", event.Op)
			pending = time.After(reloadDebounce)

		case <-pending:
			pending = nil
			onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Reload", err, "Configuration watcher error")
		}
	}
}
