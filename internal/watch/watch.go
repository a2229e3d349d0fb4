// Package watch reports save archives written under a directory. Save
// folders hold one subdirectory per campaign, so directories created while
// watching are added too.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// SaveExt is the extension of save archives.
const SaveExt = ".sav"

// Watcher calls OnChange once a save file has been quiet for Debounce.
type Watcher struct {
	Dir      string
	Debounce time.Duration
	OnChange func(ctx context.Context, path string)

	logger  *zap.Logger
	fsw     *fsnotify.Watcher
	mu      sync.Mutex
	pending map[string]time.Time
}

func New(dir string, debounce time.Duration, onChange func(context.Context, string), logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{
		Dir:      dir,
		Debounce: debounce,
		OnChange: onChange,
		logger:   logger.With(zap.String("dir", dir)),
		fsw:      fsw,
		pending:  make(map[string]time.Time),
	}
	if err := w.addTree(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Run delivers debounced changes until ctx is done, then releases the
// underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	tick := w.Debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		case now := <-ticker.C:
			for _, path := range w.due(now) {
				if w.OnChange != nil {
					w.OnChange(ctx, path)
				}
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("watch new directory", zap.Error(err))
			}
			return
		}
	}
	if !strings.EqualFold(filepath.Ext(ev.Name), SaveExt) {
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	w.mu.Lock()
	w.pending[ev.Name] = time.Now()
	w.mu.Unlock()
	w.logger.Debug("save changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
}

// due removes and returns the paths that have been quiet long enough.
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.Debounce {
			out = append(out, path)
			delete(w.pending, path)
		}
	}
	return out
}

// ErrNoSaves is returned by Latest when dir holds no save archive.
var ErrNoSaves = errors.New("watch: no save files")

// Latest returns the most recently modified save under dir.
func Latest(dir string) (string, error) {
	var best string
	var bestTime time.Time
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), SaveExt) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if best == "" || fi.ModTime().After(bestTime) {
			best, bestTime = path, fi.ModTime()
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if best == "" {
		return "", ErrNoSaves
	}
	return best, nil
}
