package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"mako/internal/logger"
)

// watchDebounce coalesces editor write bursts (truncate + write + rename)
// into one reload.
const watchDebounce = 500 * time.Millisecond

// Watch reloads the config file whenever it changes on disk and hands the
// validated result to onChange. A reload that fails to parse or validate
// is logged and dropped; the running config stays as it was. Watch blocks
// until the context is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors and atomic writers
	// replace the file, which drops a file-level watch.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(path)

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				resetTimer(timer, watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("config watch: %v", err)
		case <-timerC:
			timer = nil
			timerC = nil
			cfg, err := Load(path)
			if err != nil {
				logger.Warnf("config reload rejected: %v", err)
				continue
			}
			logger.Infof("config reloaded from %s", path)
			onChange(cfg)
		}
	}
}

// resetTimer restarts a timer whose fire may not have been consumed yet.
// The timer could have expired between the select cases, leaving a stale
// value in its channel that would cut the next debounce window short, so
// drain before Reset.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
