package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// configWatcher calls onChange after the config file has been written,
// created or renamed into place. The parent directory is watched so that
// editors replacing the file atomically are noticed.
type configWatcher struct {
	log      logrus.FieldLogger
	path     string
	fs       *fsnotify.Watcher
	notify   func(f func())
	onChange func()
}

func newConfigWatcher(
	log logrus.FieldLogger,
	path string,
	delay time.Duration,
	onChange func(),
) (*configWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	if err := fs.Add(filepath.Dir(abs)); err != nil {
		_ = fs.Close()

		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	return &configWatcher{
		log:      log.WithField("component", "watcher"),
		path:     abs,
		fs:       fs,
		notify:   debounce.New(delay),
		onChange: onChange,
	}, nil
}

func (w *configWatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != w.path {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.log.WithField("op", event.Op.String()).Debug("Config file changed")
			w.notify(w.onChange)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}

			w.log.WithError(err).Warn("Config watcher error")
		}
	}
}

func (w *configWatcher) Close() error {
	return w.fs.Close()
}
