package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch rebuilds the catalog whenever one of files changes, until ctx is
// done. The parent directories are watched rather than the files so that
// editors replacing a file by rename are still noticed. Bursts of events
// collapse into one rebuild after the store's debounce interval.
func (s *Store) Watch(ctx context.Context, files ...string) error {
	if len(files) == 0 {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		_ = w.Close()
	}()

	wanted := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", f, err)
		}
		wanted[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	db := &debouncer{interval: s.debounce, fire: func() {
		if _, err := s.Rebuild(ctx); err != nil {
			s.log.WarnContext(ctx, "catalog.watch.rebuild.err", slog.String("err", err.Error()))
		}
	}}
	defer db.stop()

	s.log.InfoContext(ctx, "catalog.watch.start", slog.Int("files", len(wanted)))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !wanted[abs] {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			s.log.DebugContext(ctx, "catalog.watch.event", slog.String("file", abs), slog.String("op", ev.Op.String()))
			db.trigger()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.WarnContext(ctx, "catalog.watch.err", slog.String("err", err.Error()))
		}
	}
}

type debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	interval time.Duration
	stopped  bool
	fire     func()
}

func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.interval <= 0 {
		go d.fire()
		return
	}
	if d.timer == nil {
		d.timer = time.AfterFunc(d.interval, d.fire)
		return
	}
	d.timer.Reset(d.interval)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
