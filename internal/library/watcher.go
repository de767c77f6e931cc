package library

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/irfansharif/markup/internal/logging"
)

// EventType classifies a change to the diagram directory.
type EventType int

const (
	Created EventType = iota
	Modified
	Deleted
)

func (t EventType) String() string {
	switch t {
	case Created:
		return "file_created"
	case Modified:
		return "file_modified"
	case Deleted:
		return "file_deleted"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

func (t EventType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *EventType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "file_created":
		*t = Created
	case "file_modified":
		*t = Modified
	case "file_deleted":
		*t = Deleted
	default:
		return fmt.Errorf("unknown event type %q", b)
	}
	return nil
}

// Event reports that a supported diagram changed.
type Event struct {
	Type     EventType `json:"type"`
	Filename string    `json:"filename"`
}

// Watcher emits Events for supported, non-hidden files in a single
// directory.
type Watcher struct {
	fs     *fsnotify.Watcher
	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewWatcher starts watching dir.
func NewWatcher(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		fs:     fw,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Events is closed once the watcher is closed.
func (w *Watcher) Events() <-chan Event { return w.events }

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	defer close(w.events)

	for {
		select {
		case <-w.done:
			return
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.Logger().Warn("library watcher", "err", err)
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			out, ok := translate(ev)
			if !ok {
				continue
			}
			logging.Logger().Debug("library change", "type", out.Type, "file", out.Filename)
			select {
			case w.events <- out:
			case <-w.done:
				return
			}
		}
	}
}

func translate(ev fsnotify.Event) (Event, bool) {
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || !Supported(name) {
		return Event{}, false
	}
	switch {
	case ev.Has(fsnotify.Create):
		return Event{Type: Created, Filename: name}, true
	case ev.Has(fsnotify.Write):
		return Event{Type: Modified, Filename: name}, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return Event{Type: Deleted, Filename: name}, true
	}
	return Event{}, false
}
