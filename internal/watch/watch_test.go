package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, paths ...string) *Watcher {
	t.Helper()
	w, err := NewWatcher(paths...)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.Debounce = 20 * time.Millisecond
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func waitChange(t *testing.T, w *Watcher) Change {
	t.Helper()
	select {
	case change := <-w.Changes:
		return change
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
	return Change{}
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "en-es.t1x")
	if err := os.WriteFile(rules, []byte("<transfer/>"), 0o644); err != nil {
		t.Fatalf("failed to create rules file: %v", err)
	}

	w := startWatcher(t, rules)

	if err := os.WriteFile(rules, []byte("<transfer><section-rules/></transfer>"), 0o644); err != nil {
		t.Fatalf("failed to update rules file: %v", err)
	}

	change := waitChange(t, w)
	if change.Path != rules {
		t.Errorf("expected path %q, got %q", rules, change.Path)
	}
	if change.Kind != ChangeModified {
		t.Errorf("expected ChangeModified, got %d", change.Kind)
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "en-es.t1x")
	if err := os.WriteFile(rules, []byte("<transfer/>"), 0o644); err != nil {
		t.Fatalf("failed to create rules file: %v", err)
	}

	w := startWatcher(t, rules)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	select {
	case change := <-w.Changes:
		t.Errorf("unexpected change event: %+v", change)
	case <-time.After(200 * time.Millisecond):
		// Expected: no events for unwatched files.
	}
}

func TestWatcher_DetectsRemoval(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "corpus.txt")
	if err := os.WriteFile(input, []byte("^a/a<n>$\n"), 0o644); err != nil {
		t.Fatalf("failed to create input file: %v", err)
	}

	w := startWatcher(t, input)

	if err := os.Remove(input); err != nil {
		t.Fatalf("failed to remove input file: %v", err)
	}

	change := waitChange(t, w)
	if change.Kind != ChangeRemoved {
		t.Errorf("expected ChangeRemoved, got %d", change.Kind)
	}
}

func TestWatcher_DirectoryTree(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "news")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	w := startWatcher(t, dir)

	file := filepath.Join(sub, "day1.txt")
	if err := os.WriteFile(file, []byte("^a/a<n>$\n"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	change := waitChange(t, w)
	if change.Path != file {
		t.Errorf("expected path %q, got %q", file, change.Path)
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.toml")
	if err := os.WriteFile(rules, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	w := startWatcher(t, rules)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(rules, []byte{byte('a' + i)}, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	waitChange(t, w)
	select {
	case change := <-w.Changes:
		t.Errorf("burst produced a second event: %+v", change)
	case <-time.After(150 * time.Millisecond):
	}
}
