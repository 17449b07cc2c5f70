package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/fsnotify/fsnotify"
)

const (
	// DefaultReadAttempts bounds how often a frame file is re-read while its
	// writer may still be flushing it.
	DefaultReadAttempts = 5

	defaultReadDelay = 20 * time.Millisecond
)

// WatchSource turns JSON frame documents dropped into a directory into
// frames. Each file is consumed (removed) once read.
type WatchSource struct {
	dir       string
	attempts  uint
	readDelay time.Duration
	logger    *slog.Logger
}

// NewWatchSource creates a source watching dir.
func NewWatchSource(dir string, attempts uint, logger *slog.Logger) *WatchSource {
	if attempts == 0 {
		attempts = DefaultReadAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchSource{
		dir:       dir,
		attempts:  attempts,
		readDelay: defaultReadDelay,
		logger:    logger,
	}
}

// Frames emits files already present in the directory (in name order) and
// then every new *.json file until ctx is done.
func (w *WatchSource) Frames(ctx context.Context) (<-chan FrameDoc, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	existing, err := w.existing()
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}

	out := make(chan FrameDoc)
	go func() {
		defer close(out)
		defer watcher.Close()

		for _, path := range existing {
			if !w.consume(ctx, path, out) {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
					continue
				}
				if !isFrameFile(ev.Name) {
					continue
				}
				if !w.consume(ctx, ev.Name, out) {
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("frame watcher error", "dir", w.dir, "error", err)
			}
		}
	}()
	return out, nil
}

func (w *WatchSource) existing() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", w.dir, err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && isFrameFile(e.Name()) {
			paths = append(paths, filepath.Join(w.dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// consume reads, emits, and removes one frame file. It returns false once
// ctx is done.
func (w *WatchSource) consume(ctx context.Context, path string, out chan<- FrameDoc) bool {
	doc, err := w.read(ctx, path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		// Already consumed after an earlier event for the same file.
		return ctx.Err() == nil
	case ctx.Err() != nil:
		return false
	default:
		w.logger.Warn("skipping frame file", "path", path, "error", err)
		return true
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		w.logger.Warn("failed to remove consumed frame file", "path", path, "error", err)
	}

	select {
	case out <- doc:
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *WatchSource) read(ctx context.Context, path string) (FrameDoc, error) {
	var doc FrameDoc
	err := retry.Do(
		func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			d, err := DecodeFrame(data)
			if err != nil {
				var malformed *MalformedFrameError
				if errors.As(err, &malformed) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			doc = d
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(w.attempts),
		retry.Delay(w.readDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	return doc, err
}

func isFrameFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, ".json") && !strings.HasPrefix(base, ".")
}
