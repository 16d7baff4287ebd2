// Package file stores snapshot documents as files and reports external
// edits of them.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/crypto/blake2b"

	"github.com/codewandler/rigcore-go/ports/store"
)

type Options struct {
	// Debounce collapses bursts of file events. Defaults to 250ms.
	Debounce time.Duration
	Log      *slog.Logger
}

// Snapshot is a store.SnapshotStore backed by one file. Writes go to a
// temporary file that replaces the target, so readers never see a partial
// document.
type Snapshot struct {
	path     string
	debounce time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	digest [blake2b.Size256]byte
	known  bool
}

func NewSnapshot(path string, opts Options) *Snapshot {
	if opts.Debounce <= 0 {
		opts.Debounce = 250 * time.Millisecond
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Snapshot{
		path:     path,
		debounce: opts.Debounce,
		log:      opts.Log.With(slog.String("file", path)),
	}
}

func (s *Snapshot) Path() string { return s.path }

func (s *Snapshot) ReadAll(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.remember(data)
	return data, nil
}

func (s *Snapshot) WriteAll(_ context.Context, data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// the watcher's check waits for mu, so it never mistakes this write for an edit
	sum := blake2b.Sum256(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return err
	}
	s.digest, s.known = sum, true
	return nil
}

func (s *Snapshot) remember(data []byte) {
	sum := blake2b.Sum256(data)
	s.mu.Lock()
	s.digest, s.known = sum, true
	s.mu.Unlock()
}

// changed reports whether data differs from what this store last read or
// wrote.
func (s *Snapshot) changed(data []byte) bool {
	sum := blake2b.Sum256(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.known || sum != s.digest
}

// Watch calls onChange after the file was changed by someone else. It
// blocks until ctx is done.
func (s *Snapshot) Watch(ctx context.Context, onChange func(ctx context.Context)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// editors and WriteAll replace the file, so the directory is watched
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		return err
	}
	s.log.Debug("watching for changes")

	name := filepath.Base(s.path)
	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			data, err := os.ReadFile(s.path)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					s.log.Warn("read after change failed", slog.Any("error", err))
				}
				continue
			}
			if !s.changed(data) {
				continue
			}
			s.log.Info("file changed externally")
			onChange(ctx)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("watcher error", slog.Any("error", err))
		}
	}
}

var _ store.SnapshotStore = (*Snapshot)(nil)
