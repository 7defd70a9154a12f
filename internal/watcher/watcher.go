// Package watcher monitors the SQLite library files for changes and
// notifies the TUI to refetch. Another crate instance, the seed command or
// any other writer touching the database shows up here.
//
// The directory holding the database is watched rather than the file
// itself: SQLite in WAL mode writes to <db>-wal and <db>-shm, and some
// tools replace the file on save, which drops a file-level watch.
//
// Watched names inside that directory:
//   - <db>        → checkpoints, replacement
//   - <db>-wal    → every committed transaction
//   - <db>-journal → rollback-journal mode writers
package watcher

import (
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event is sent when the watcher detects a change to the library.
type Event struct{}

// Watch monitors the database at dbPath and sends Event values on the
// returned channel. Rapid bursts are coalesced via the debounce window.
//
// Call the returned stop function to tear down the watcher.
func Watch(dbPath string, debounce time.Duration, log *slog.Logger) (<-chan Event, func(), error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		_ = w.Close()
		return nil, nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, nil, err
	}
	base := filepath.Base(abs)

	ch := make(chan Event, 1)
	done := make(chan struct{})

	// jitterRange spreads refetches of several crate instances watching
	// the same database.
	jitterRange := debounce / 2 // 0 to 50% of debounce

	go func() {
		defer close(ch)
		var timer *time.Timer

		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !relevant(base, ev) {
					continue
				}
				d := debounce
				if jitterRange > 0 {
					d += time.Duration(rand.Int64N(int64(jitterRange)))
				}
				if timer == nil {
					timer = time.NewTimer(d)
				} else {
					timer.Reset(d)
				}
			case <-timerChan(timer):
				timer = nil
				select {
				case ch <- Event{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("watcher error", "path", abs, "error", err)
			case <-done:
				return
			}
		}
	}()

	stop := func() {
		close(done)
		_ = w.Close()
	}

	return ch, stop, nil
}

// timerChan returns the timer's channel, or a nil channel if timer is nil.
func timerChan(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// relevant reports whether ev touches the database named base.
func relevant(base string, ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(ev.Name)
	if name == base {
		return true
	}
	suffix, ok := strings.CutPrefix(name, base)
	if !ok {
		return false
	}
	switch suffix {
	case "-wal", "-journal":
		return true
	}
	// -shm changes on every read; readers would wake themselves up.
	return false
}
