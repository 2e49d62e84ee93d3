// Package watch rebuilds the search index when collection files change on
// disk, so hand edits and external sync tools show up in search.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces bursts of writes (editor save, temp+rename).
const DefaultDebounce = 500 * time.Millisecond

// Rebuilder is triggered after a debounced change.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

// Config configures a Watcher.
type Config struct {
	Dir      string
	Debounce time.Duration
	// Match filters relevant paths. Nil accepts every path.
	Match func(path string) bool
}

// Watcher monitors one directory and triggers a rebuild after changes settle.
type Watcher struct {
	cfg    Config
	target Rebuilder
	logger *zap.Logger
	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// debounce state
	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	ctx     context.Context
}

// New creates a watcher. Call Start to begin watching.
func New(cfg Config, target Rebuilder, logger *zap.Logger) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{cfg: cfg, target: target, logger: logger, fsw: fsw}, nil
}

// Start begins watching. The context bounds the watcher and every rebuild it triggers.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Info("data watcher started", zap.String("dir", w.cfg.Dir), zap.Duration("debounce", w.cfg.Debounce))
	return nil
}

// Stop shuts down the watcher and drops any pending rebuild.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	_ = w.fsw.Close()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = false
	w.mu.Unlock()
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
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
			w.logger.Warn("data watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	if w.cfg.Match != nil && !w.cfg.Match(event.Name) {
		return
	}
	w.logger.Debug("data file changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
	w.schedule()
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.cfg.Debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	ctx := w.ctx
	w.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		return
	}
	if err := w.target.Rebuild(ctx); err != nil {
		w.logger.Warn("rebuild after file change failed", zap.Error(err))
		return
	}
	w.logger.Info("index rebuilt after file change")
}
