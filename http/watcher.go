package http

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"flightprice/metrics"
)

// WatchArtifact reloads the local artifact whenever the file is
// replaced on disk, so a retrained fallback model goes live without a
// restart. Reload failures keep the current model active. The returned
// stop function closes the watcher.
func (api *API) WatchArtifact(logger *zap.SugaredLogger) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors and trainers replace the file, which
	// drops a watch set directly on it.
	dir := filepath.Dir(api.localPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	target := filepath.Clean(api.localPath)
	go func() {
		var last time.Time
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				// Debounce bursts from partial writes.
				if time.Since(last) < time.Second {
					continue
				}
				last = time.Now()

				active, err := api.loadLocal()
				if err != nil {
					logger.Warnw("artifact changed but reload failed", "path", target, "error", err)
					continue
				}
				api.state.Swap(active)
				metrics.ModelInfo.Reset()
				metrics.ModelInfo.WithLabelValues(active.Info.ModelName, active.Info.ModelVersion).Set(1)
				logger.Infow("local artifact reloaded", "path", target)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnw("artifact watcher error", "error", err)
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
