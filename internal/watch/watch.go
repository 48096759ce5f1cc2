// Package watch reports changes to a rule document and its input files so a
// coverage run can be repeated after every edit.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a path must stay quiet before its change is
// reported.
const DefaultDebounce = 100 * time.Millisecond

// ChangeKind describes the type of change detected.
type ChangeKind int

const (
	ChangeModified ChangeKind = iota // Written or created
	ChangeRemoved                    // Removed or renamed away
)

// Change is a debounced change to a watched path.
type Change struct {
	Kind ChangeKind
	Path string // Absolute path
}

// Watcher monitors a set of files and directories using fsnotify. Parent
// directories of watched files are watched so that editors replacing a file
// by rename are still noticed.
type Watcher struct {
	Debounce time.Duration
	Changes  <-chan Change // Read-only external channel

	changes chan Change // Internal write channel
	done    chan struct{}
	files   map[string]bool // watched files
	dirs    map[string]bool // watched directories, recursively by prefix
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for paths. Each path may name a file or a
// directory; a directory reports changes to anything beneath it.
func NewWatcher(paths ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: new watcher: %w", err)
	}

	ch := make(chan Change, 16)
	w := &Watcher{
		Debounce: DefaultDebounce,
		Changes:  ch,
		changes:  ch,
		done:     make(chan struct{}),
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		watcher:  fw,
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch: resolve %s: %w", p, err)
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			w.dirs[abs] = true
		} else {
			w.files[abs] = true
		}
	}
	return w, nil
}

// Start begins watching. Directories are watched with all their
// subdirectories as they exist now.
func (w *Watcher) Start() error {
	added := make(map[string]bool)
	add := func(dir string) error {
		if added[dir] {
			return nil
		}
		added[dir] = true
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch: add %s: %w", dir, err)
		}
		return nil
	}

	for file := range w.files {
		if err := add(filepath.Dir(file)); err != nil {
			return err
		}
	}
	for dir := range w.dirs {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return add(path)
		})
		if err != nil {
			return fmt.Errorf("watch: walk %s: %w", dir, err)
		}
	}

	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done // Wait for loop to exit
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	// Debounce: track last event time and kind per path.
	type mark struct {
		at   time.Time
		kind ChangeKind
	}
	pending := make(map[string]mark)
	ticker := time.NewTicker(debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				pending[event.Name] = mark{time.Now(), ChangeModified}
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				pending[event.Name] = mark{time.Now(), ChangeRemoved}
			}

		case now := <-ticker.C:
			for path, m := range pending {
				if now.Sub(m.at) >= debounce {
					w.emit(Change{Kind: m.kind, Path: path})
					delete(pending, path)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Ignore watch errors; they're non-fatal.
		}
	}
}

func (w *Watcher) relevant(name string) bool {
	if w.files[name] {
		return true
	}
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	for dir := range w.dirs {
		if strings.HasPrefix(name, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// emit drops the change when the buffer is full. A consumer that is behind
// recomputes everything on the changes it does receive.
func (w *Watcher) emit(c Change) {
	select {
	case w.changes <- c:
	default:
	}
}
