package assets

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Fahien/vkr-go/engine/core"
)

// Watcher observes files on disk and fires a core event when one of them
// is rewritten. The engine uses it for the configuration file only; asset
// hot-reload stays out of scope.
type Watcher struct {
	fsnotify *fsnotify.Watcher

	mu      sync.Mutex
	watched map[string]struct{}

	done     chan struct{}
	isClosed bool
}

func NewWatcher() (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		err = fmt.Errorf("failed to create file watcher: %w", err)
		core.LogError(err.Error())
		return nil, err
	}

	w := &Watcher{
		fsnotify: fsWatch,
		watched:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	go w.start()
	return w, nil
}

// Watch registers a file. The parent directory is observed rather than the
// file itself, so editors that replace the file on save keep the watch
// alive.
func (w *Watcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isClosed {
		return fmt.Errorf("watcher already closed")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if err := w.fsnotify.Add(filepath.Dir(abs)); err != nil {
		err = fmt.Errorf("failed to watch %s: %w", path, err)
		core.LogError(err.Error())
		return err
	}
	w.watched[abs] = struct{}{}
	core.LogDebug("watching %s", abs)
	return nil
}

func (w *Watcher) start() {
	for {
		select {
		case event, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			w.mu.Lock()
			_, interested := w.watched[abs]
			w.mu.Unlock()
			if !interested {
				continue
			}
			core.EventFire(core.EventContext{
				Type: core.EVENT_CODE_WATCHED_FILE_WRITTEN,
				Data: &core.FileEvent{Path: abs},
			})

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("file watcher: %s", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isClosed {
		return nil
	}
	w.isClosed = true
	close(w.done)
	return w.fsnotify.Close()
}
