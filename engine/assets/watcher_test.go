package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Fahien/vkr-go/engine/core"
)

func TestWatcherFiresOnWrite(t *testing.T) {
	core.EventSystemInitialize()
	events := make(chan core.EventContext, 4)
	core.EventRegister(core.EVENT_CODE_WATCHED_FILE_WRITTEN, func(e core.EventContext) {
		events <- e
	})
	go core.ProcessEvents()

	dir := t.TempDir()
	watched := filepath.Join(dir, "config.toml")
	sibling := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(watched, []byte("a = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()
	if err := w.Watch(watched); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	// The sibling lives in the watched directory but is not registered,
	// so the first event delivered has to be for the watched file.
	if err := os.WriteFile(sibling, []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(watched, []byte("a = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-events:
		fe, ok := e.Data.(*core.FileEvent)
		if !ok {
			t.Fatalf("event data is %T, want *core.FileEvent", e.Data)
		}
		abs, _ := filepath.Abs(watched)
		if fe.Path != abs {
			t.Errorf("event path is %s, want %s", fe.Path, abs)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event for the watched file")
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := w.Watch("anything"); err == nil {
		t.Error("Watch after Close should fail")
	}
}
