package publisher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher calls a function whenever a deck file is saved. The parent
// directory is watched so that editors replacing the file on save are seen
// too. Bursts of events are collapsed into one call.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(ctx context.Context) error
	logger   *zap.Logger
}

// NewWatcher creates a watcher for path. A zero debounce uses 250ms.
func NewWatcher(path string, debounce time.Duration, onChange func(ctx context.Context) error, logger *zap.Logger) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange cannot be nil")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{path: abs, debounce: debounce, onChange: onChange, logger: logger}, nil
}

// Run watches until ctx is cancelled. Errors from onChange are logged and
// watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}
	w.logger.Info("Watching deck file", zap.String("path", w.path))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))

		case <-timer.C:
			w.logger.Debug("Deck file changed", zap.String("path", w.path))
			if err := w.onChange(ctx); err != nil {
				w.logger.Error("Rebuild failed", zap.Error(err))
			}
		}
	}
}
