//go:build linux || darwin

package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type notification struct {
	op   Op
	path string
}

func newTestWatcher(t *testing.T) (*Watcher, <-chan notification) {
	t.Helper()
	ch := make(chan notification, 64)
	w, err := New(func(op Op, path string) {
		select {
		case ch <- notification{op, path}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w, ch
}

func waitFor(t *testing.T, ch <-chan notification, path string) notification {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case n := <-ch:
			if n.path == path {
				return n
			}
		case <-deadline:
			t.Fatalf("no notification for %s", path)
			return notification{}
		}
	}
}

func TestAddIsIdempotent(t *testing.T) {
	w, _ := newTestWatcher(t)
	dir := t.TempDir()

	if err := w.Add(dir, dir); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := w.Add(dir); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got := w.Watched()
	if len(got) != 1 || got[0] != dir {
		t.Errorf("Watched() = %v, want [%s]", got, dir)
	}
}

func TestAddSkipsMissingPaths(t *testing.T) {
	w, _ := newTestWatcher(t)
	dir := t.TempDir()
	missing := filepath.Join(dir, "does-not-exist")

	if err := w.Add(missing, dir); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got := w.Watched()
	if len(got) != 1 || got[0] != dir {
		t.Errorf("Watched() = %v, want [%s]", got, dir)
	}

	if err := os.Mkdir(missing, 0o755); err != nil {
		t.Fatal(err)
	}
	w.Add(missing)
	if len(w.Watched()) != 2 {
		t.Errorf("Watched() = %v, want both paths after creation", w.Watched())
	}
}

func TestFileCreationNotifiesDirectory(t *testing.T) {
	w, ch := newTestWatcher(t)
	dir := t.TempDir()
	if err := w.Add(dir); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "wg0.conf"), []byte("[Interface]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	n := waitFor(t, ch, dir)
	if !n.op.Has(Write) {
		t.Errorf("op = %s, want write", n.op)
	}
}

func TestRemovedDirectoryCanBeWatchedAgain(t *testing.T) {
	w, ch := newTestWatcher(t)
	parent := t.TempDir()
	dir := filepath.Join(parent, "run")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	w.Add(dir)

	if err := os.Remove(dir); err != nil {
		t.Fatal(err)
	}
	waitFor(t, ch, dir)

	deadline := time.Now().Add(3 * time.Second)
	for len(w.Watched()) != 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if got := w.Watched(); len(got) != 0 {
		t.Fatalf("Watched() = %v after removal, want empty", got)
	}

	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	w.Add(dir)
	if got := w.Watched(); len(got) != 1 {
		t.Errorf("Watched() = %v, want [%s]", got, dir)
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	w, _ := newTestWatcher(t)
	w.Add(t.TempDir(), t.TempDir())

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(w.Watched()) != 0 {
		t.Errorf("Watched() not empty after Close")
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := w.Add(t.TempDir()); err != ErrClosed {
		t.Errorf("Add after Close = %v, want ErrClosed", err)
	}
}

func TestOpString(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{0, "none"},
		{Write, "write"},
		{Write | Delete, "write|delete"},
		{Rename | Revoke, "rename|revoke"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}
