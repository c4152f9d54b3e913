package fileservice

import (
	"context"
	"os"

	"github.com/fsnotify/fsnotify"
)

// WatchForTesting wires an fsnotify watcher over a bucket directory and
// invokes onChange whenever a file is created, written, removed, or
// renamed directly inside it; subdirectories are not watched. This exists purely to let local manual testing
// of MonitorBasedPubSub-driven flows react faster than the worker's 3s
// poll; it is never required for correctness and ships disabled unless a
// caller explicitly starts it.
func (s *LocalService) WatchForTesting(ctx context.Context, bucket string, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	root := s.path(bucket, "")
	if err := os.MkdirAll(root, 0o755); err != nil {
		_ = watcher.Close()
		return err
	}
	if err := watcher.Add(root); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					onChange(event.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("fsnotify watcher error", "bucket", bucket, "error", err)
			}
		}
	}()
	return nil
}
