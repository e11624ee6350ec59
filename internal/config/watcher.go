package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ssohub/internal/events"
	"ssohub/pkg/logging"
)

// debounceDelay coalesces the bursts of filesystem events editors emit
// for a single save.
const debounceDelay = 100 * time.Millisecond

// Watcher observes the sso-session file and publishes session-changed
// notifications for profiles that were added, modified, or removed.
type Watcher struct {
	path string
	bus  *events.Bus
	fsw  *fsnotify.Watcher

	mu    sync.Mutex
	known map[string]SessionProfile

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher creates a watcher for the session file at path. Call Start
// to begin watching and Resync to publish the file's current content as
// additions.
func NewWatcher(path string, bus *events.Bus) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files by rename
	// and a watch on the old inode would go stale.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	return &Watcher{
		path:  filepath.Clean(path),
		bus:   bus,
		fsw:   fsw,
		known: make(map[string]SessionProfile),
		done:  make(chan struct{}),
	}, nil
}

// Start begins delivering session-changed notifications.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Close stops the watcher and waits for the delivery goroutine to exit.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceDelay)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(debounceDelay)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			w.Resync()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warn("Config", "Session watcher error: %v", err)

		case <-w.done:
			return
		}
	}
}

// Resync reloads the session file, diffs it against the last known
// snapshot, and publishes one notification per changed session. The
// first call after creation publishes every session as an addition.
func (w *Watcher) Resync() {
	sessions, err := LoadSessions(w.path)
	if err != nil {
		// Keep the previous snapshot; a half-written file will trigger
		// another event when the write completes.
		logging.Warn("Config", "Could not reload sessions: %v", err)
		return
	}

	current := make(map[string]SessionProfile, len(sessions))
	for _, s := range sessions {
		current[s.Name] = s
	}

	w.mu.Lock()
	previous := w.known
	w.known = current
	w.mu.Unlock()

	for _, s := range sessions {
		prev, ok := previous[s.Name]
		if !ok {
			w.bus.PublishSessionChange(events.SessionChange{Op: events.SessionAdded, Profile: s.Profile()})
			continue
		}
		if !prev.Profile().Equal(s.Profile()) {
			w.bus.PublishSessionChange(events.SessionChange{Op: events.SessionModified, Profile: s.Profile()})
		}
	}

	removed := make([]string, 0)
	for name := range previous {
		if _, ok := current[name]; !ok {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	for _, name := range removed {
		w.bus.PublishSessionChange(events.SessionChange{Op: events.SessionRemoved, Profile: previous[name].Profile()})
	}
}
