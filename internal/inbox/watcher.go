package inbox

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/romdo/go-debounce"
)

// Quiet periods for coalescing file events. Editors often write a file in
// several chunks; a draft is processed once it has been quiet for
// settleWait, and at least every settleMaxWait while it keeps changing.
const (
	settleWait    = 150 * time.Millisecond
	settleMaxWait = time.Second
	reconcileWait = 200 * time.Millisecond
)

// Watch starts an fsnotify watcher on root and processes draft changes
// until ctx is cancelled. It calls cb (if non-nil) after each output change.
//
// New directories created at runtime are added to the watch list. Renames
// trigger a reconciliation pass that removes outputs whose draft is gone.
func (in *Inbox) Watch(ctx context.Context, root string, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := os.MkdirAll(filepath.Join(root, OutputDir), 0o755); err != nil {
		return err
	}
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	in.logger.Info("inbox: watching", slog.String("root", root))

	var mu sync.Mutex
	pending := make(map[string]struct{})
	flush := func() {
		mu.Lock()
		paths := pending
		pending = make(map[string]struct{})
		mu.Unlock()
		for p := range paths {
			in.refresh(root, p, cb)
		}
	}
	settle, cancelSettle := debounce.NewWithMaxWait(settleWait, settleMaxWait, flush)
	defer cancelSettle()
	reconcile, cancelReconcile := debounce.New(reconcileWait, func() {
		if err := in.Sync(cb); err != nil {
			in.logger.Warn("inbox: reconcile failed", slog.String("error", err.Error()))
		}
	})
	defer cancelReconcile()

	enqueue := func(rel string) {
		mu.Lock()
		pending[rel] = struct{}{}
		mu.Unlock()
		settle()
	}

	for {
		select {
		case <-ctx.Done():
			in.logger.Info("inbox: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, abs); addErr != nil {
						in.logger.Warn("inbox: add new dir failed",
							slog.String("path", abs),
							slog.String("error", addErr.Error()))
					}
					// Drafts copied in together with their directory.
					reconcile()
					continue
				}
			}

			rel, relErr := filepath.Rel(root, abs)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if !in.Accepts(rel) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove) != 0:
				enqueue(rel)
			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports the old path only; the new one arrives
				// as a Create when it stays inside a watched directory.
				enqueue(rel)
				reconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// refresh processes rel if the draft exists and removes its output if not.
func (in *Inbox) refresh(root, rel string, cb EventCallback) {
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
		if err := in.Remove(rel); err != nil {
			in.logger.Warn("inbox: remove failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		in.logger.Debug("inbox: removed", slog.String("path", rel))
		notify(cb, "removed", rel)
		return
	}
	if err := in.Process(rel); err != nil {
		in.logger.Warn("inbox: normalize failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	in.logger.Debug("inbox: normalized", slog.String("path", rel))
	notify(cb, "normalized", rel)
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
