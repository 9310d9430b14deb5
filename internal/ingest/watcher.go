package ingest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
)

type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // if true, walk roots and emit existing documents
	Debounce    time.Duration // coalesce rapid write/rename bursts per file
}

// StartWatcher emits the path of every document created or rewritten under
// the roots. A path is emitted once its events have been quiet for Debounce.
// Both channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *zap.SugaredLogger) (<-chan string, <-chan error, error) {
	logger = common.OrNop(logger)
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Errorw("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	var initial []string
	for _, root := range cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && constants.IsDocumentPath(path) {
				initial = append(initial, path)
			}
			return nil
		})
		if err != nil {
			logger.Errorw("failed to add root directory", "root", root, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}
	sort.Strings(initial)

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warnw("watcher close failed", "error", err)
			}
		}()

		emit := func(path string) bool {
			select {
			case evCh <- path:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		// path -> last event time; flushed by the ticker
		pending := map[string]time.Time{}
		tick := cfg.Debounce / 2
		if tick <= 0 {
			tick = 50 * time.Millisecond
		}
		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						if err := w.Add(e.Name); err != nil {
							logger.Warnw("failed to watch new directory", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if constants.IsDocumentPath(e.Name) && (e.Has(fsnotify.Create) || e.Has(fsnotify.Write) || e.Has(fsnotify.Rename)) {
					pending[e.Name] = time.Now()
				}

			case <-ticker.C:
				now := time.Now()
				var ready []string
				for p, last := range pending {
					if now.Sub(last) >= cfg.Debounce {
						ready = append(ready, p)
					}
				}
				sort.Strings(ready)
				for _, p := range ready {
					delete(pending, p)
					// renamed away or deleted before it settled
					if _, err := os.Stat(p); err != nil {
						continue
					}
					if !emit(p) {
						return
					}
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Errorw("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}
