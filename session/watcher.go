package session

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/edaniels/golog"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// A Watcher reports new session directories as they appear under a data
// directory, typically while a mirror run is landing them.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	sessions  chan string
	logger    golog.Logger

	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewWatcher starts watching dataDir. Close must be called to release the
// underlying notifier.
func NewWatcher(ctx context.Context, dataDir string, logger golog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create filesystem watcher")
	}
	if err := fsWatcher.Add(dataDir); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "cannot watch data directory %s", dataDir), fsWatcher.Close())
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		fsWatcher: fsWatcher,
		sessions:  make(chan string),
		logger:    logger,
		cancel:    cancel,
	}
	w.activeBackgroundWorkers.Add(1)
	utils.PanicCapturingGo(func() {
		defer w.activeBackgroundWorkers.Done()
		w.watch(cancelCtx)
	})
	return w, nil
}

// Sessions emits the names of session directories as they are created.
func (w *Watcher) Sessions() <-chan string {
	return w.sessions
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.sessions)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Base(event.Name)
			if !IsSessionDirName(name) {
				continue
			}
			w.logger.Debugw("new session directory appeared", "session", name)
			select {
			case <-ctx.Done():
				return
			case w.sessions <- name:
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorw("filesystem watcher error", "error", err)
		}
	}
}

// Close stops watching and waits for the background worker to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fsWatcher.Close()
	w.activeBackgroundWorkers.Wait()
	return err
}
