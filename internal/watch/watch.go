// Package watch implements the `--watch` CLI flag's file-change
// collaborator (§4.B): re-run the entry whenever a file reachable from the
// module graph changes, debounced so a burst of saves from one editor
// write triggers a single re-run.
//
// Grounded on fsnotify's own recommended debounce idiom (a timer reset on
// every event, fired once it goes quiet) rather than anything in the
// teacher, which runs one-shot per request and has no watch mode of its
// own to generalize from.
package watch

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher debounces filesystem change notifications for a set of files
// into a single Changes channel signal.
type Watcher struct {
	fsw     *fsnotify.Watcher
	Changes chan struct{}
	Errors  chan error

	debounce time.Duration
}

// New creates a Watcher with the given debounce window (the time a burst
// of events must go quiet before a single Changes signal fires).
func New(debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		Changes:  make(chan struct{}, 1),
		Errors:   make(chan error, 1),
		debounce: debounce,
	}
	go w.loop()
	return w, nil
}

// Add registers a file (or directory) to watch. Safe to call repeatedly
// for the same path; fsnotify de-duplicates internally.
func (w *Watcher) Add(path string) error {
	return w.fsw.Add(path)
}

// AddAll registers every path in paths, stopping at the first error.
func (w *Watcher) AddAll(paths []string) error {
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			select {
			case w.Changes <- struct{}{}:
			default:
			}
			fire = nil
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
