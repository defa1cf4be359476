package ruleset

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a rule set when any of its source files change.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	paths    string
	onReload func(RuleSet)
	log      *zap.Logger

	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a watcher for the ';'-separated rule paths. onReload is
// called with every successfully loaded rule set; failed reloads are logged
// and the previous rules stay active.
func NewWatcher(rulePaths string, onReload func(RuleSet), log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Watcher{
		watcher:  fw,
		paths:    rulePaths,
		onReload: onReload,
		log:      log,
		debounce: 250 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start registers the rule paths and begins watching in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	for _, p := range SplitPaths(w.paths) {
		if err := w.add(p); err != nil {
			return err
		}
	}

	w.running = true
	go w.run(ctx)
	return nil
}

// add watches p, or the directory holding p when it is a file, so that
// editors that replace files on save are still observed.
func (w *Watcher) add(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return filepath.Walk(p, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				return w.watcher.Add(path)
			}
			return nil
		})
	}
	return w.watcher.Add(filepath.Dir(p))
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isRuleFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("ruleset watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	rules, err := Load(w.paths)
	if err != nil {
		w.log.Warn("ruleset reload failed, keeping previous rules", zap.Error(err))
		return
	}
	w.log.Info("ruleset reloaded", zap.Int("rules", rules.Count()), zap.Strings("kinds", rules.Kinds()))
	if w.onReload != nil {
		w.onReload(rules)
	}
}
