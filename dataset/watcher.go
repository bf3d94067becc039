package dataset

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/pointwalk/pointwalk/logging"
	"github.com/pointwalk/pointwalk/utils"
)

// Watcher reports writes to a single dataset file. The directory is watched rather than the file
// so editors that replace the file on save are still noticed.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  logging.Logger

	changes chan string
	workers utils.StoppableWorkers
}

// NewWatcher starts watching the file at path. Changes are sent on Changes until Close is called.
func NewWatcher(path string, logger logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "watching %q", path), fsWatcher.Close())
	}

	w := &Watcher{
		path:    abs,
		watcher: fsWatcher,
		logger:  logger,
		changes: make(chan string, 1),
	}
	w.workers = utils.NewStoppableWorkers(w.run)
	return w, nil
}

// Changes delivers the watched path after each write. Bursts of writes may be coalesced.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.changes)
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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debugw("dataset file changed", "path", w.path, "op", event.Op.String())
			select {
			case w.changes <- w.path:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("file watcher error", "path", w.path, "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	w.workers.Stop()
	return err
}
