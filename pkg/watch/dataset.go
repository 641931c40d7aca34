// Package watch keeps a grouped view of a records file current: the file is
// watched with fsnotify and every change is reloaded into a new immutable
// Snapshot.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/coolbeans/redline/pkg/group"
	"github.com/coolbeans/redline/pkg/records"
	"go.uber.org/zap"
	"gopkg.in/fsnotify.v1"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 150 * time.Millisecond

// Snapshot is one load of the dataset. It is never mutated after it is
// published; a reload produces a new Snapshot.
type Snapshot struct {
	Path     string           `json:"path"`
	Records  []records.Record `json:"-"`
	Groups   []group.Group    `json:"-"`
	LoadedAt time.Time        `json:"loadedAt"`
}

// LoadSnapshot reads path and groups its records.
func LoadSnapshot(path string) (*Snapshot, error) {
	recs, err := records.Load(path)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Path:     path,
		Records:  recs,
		Groups:   group.Records(recs),
		LoadedAt: time.Now(),
	}, nil
}

// Watcher reloads a dataset file when it changes.
type Watcher struct {
	path     string
	logger   *zap.Logger
	debounce time.Duration
	onChange func(*Snapshot)

	mu      sync.RWMutex
	current *Snapshot

	fsWatcher *fsnotify.Watcher
	stopChan  chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for reload failures and watch errors.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce sets how long the watcher waits for events to settle before
// reloading.
func WithDebounce(debounce time.Duration) Option {
	return func(w *Watcher) {
		if debounce > 0 {
			w.debounce = debounce
		}
	}
}

// OnChange registers fn to receive every successfully reloaded snapshot.
// fn runs on the watch goroutine.
func OnChange(fn func(*Snapshot)) Option {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// New creates a Watcher for the dataset at path.
func New(path string, options ...Option) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("no dataset file configured for watching")
	}
	w := &Watcher{
		path:     filepath.Clean(path),
		logger:   zap.NewNop(),
		debounce: DefaultDebounce,
	}
	for _, option := range options {
		option(w)
	}
	return w, nil
}

// Current returns the latest snapshot, or nil before Start.
func (w *Watcher) Current() *Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Reload loads the dataset now and publishes it. On failure the previous
// snapshot stays current.
func (w *Watcher) Reload() (*Snapshot, error) {
	snapshot, err := LoadSnapshot(w.path)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.current = snapshot
	w.mu.Unlock()

	w.logger.Info("dataset loaded",
		zap.String("path", w.path),
		zap.Int("records", len(snapshot.Records)),
		zap.Int("groups", len(snapshot.Groups)),
	)
	if w.onChange != nil {
		w.onChange(snapshot)
	}
	return snapshot, nil
}

// Start loads the dataset and begins watching it. Watching ends and the file
// system watcher is released when ctx is done or Stop is called. The file's
// directory is watched rather than the
// file, since editors often save by replacing it.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := w.Reload(); err != nil {
		return fmt.Errorf("loading dataset %s: %w", w.path, err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		fsWatcher.Close()
		return fmt.Errorf("watching directory %s: %w", filepath.Dir(w.path), err)
	}

	w.fsWatcher = fsWatcher
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})

	go w.watchLoop(ctx)
	return nil
}

// Stop ends watching and waits for the watch goroutine to exit. It is safe
// to call more than once.
func (w *Watcher) Stop() {
	if w.stopChan == nil {
		return
	}
	w.stopOnce.Do(func() {
		close(w.stopChan)
		<-w.done
	})
}

// watchLoop handles file system events for the dataset file. It owns
// fsWatcher and closes it on exit.
func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.done)
	defer w.fsWatcher.Close()

	datasetName := filepath.Base(w.path)
	var reloadTimer *time.Timer
	var reloadDue <-chan time.Time
	defer func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopChan:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != datasetName {
				continue
			}

			switch {
			case event.Op&fsnotify.Create == fsnotify.Create,
				event.Op&fsnotify.Write == fsnotify.Write,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				if reloadTimer == nil {
					reloadTimer = time.NewTimer(w.debounce)
				} else {
					reloadTimer.Reset(w.debounce)
				}
				reloadDue = reloadTimer.C

			case event.Op&fsnotify.Remove == fsnotify.Remove:
				w.logger.Warn("dataset removed, keeping last snapshot", zap.String("path", w.path))
			}

		case <-reloadDue:
			reloadDue = nil
			if _, err := w.Reload(); err != nil {
				w.logger.Warn("dataset reload failed, keeping last snapshot",
					zap.String("path", w.path),
					zap.Error(err),
				)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.String("path", w.path), zap.Error(err))
		}
	}
}
