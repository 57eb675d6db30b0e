package transform

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/tagpose/logging"
)

// CalibrationWatcher notices when a calibration file is written or replaced. The directory is
// watched rather than the file so editors that save through a rename are seen too.
type CalibrationWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	changed atomic.Bool
	logger  logging.Logger
}

// NewCalibrationWatcher starts watching path.
func NewCalibrationWatcher(path string, logger logging.Logger) (*CalibrationWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot resolve %q", path)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create file watcher")
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		//nolint:errcheck
		w.Close()
		return nil, errors.Wrapf(err, "cannot watch %q", path)
	}
	return &CalibrationWatcher{path: abs, watcher: w, logger: logger}, nil
}

// Run records changes until ctx is done or the watcher is closed.
func (cw *CalibrationWatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				cw.logger.Debugw("calibration file changed", "path", cw.path, "op", event.Op.String())
				cw.changed.Store(true)
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return nil
			}
			cw.logger.Warnw("calibration watcher error", "error", err)
		}
	}
}

// Changed reports whether the file changed since the last call.
func (cw *CalibrationWatcher) Changed() bool {
	return cw.changed.Swap(false)
}

// Close stops watching.
func (cw *CalibrationWatcher) Close() error {
	return cw.watcher.Close()
}
