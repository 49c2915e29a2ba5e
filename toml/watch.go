package toml

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ssyqq/dream"
)

// DefaultDebounce is how long Watch waits for writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// Watch calls fn with the reloaded configuration each time the file at path
// changes, until ctx is done. Bursts of events within debounce are coalesced
// into one reload. Reload errors are passed to fn with a zero Config.
//
// The parent directory is watched so that editors replacing the file by
// rename are seen.
func Watch(ctx context.Context, path string, debounce time.Duration, fn func(dream.Config, error)) error {
	path = filepath.Clean(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("toml: watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("toml: watch: %w", err)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fn(dream.Config{}, fmt.Errorf("toml: watch: %w", err))
		case <-timer.C:
			fn(Load(path))
		}
	}
}
