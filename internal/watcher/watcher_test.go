package watcher

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"playermap/internal/domain"
	"playermap/internal/scene"
)

var quiet = log.New(io.Discard, "", 0)

const lobby = `
materials: [Sprites-Default]
nodes:
  - name: Player Avatar Controller
    position: {x: 10, y: 0, z: 5}
`

const shop = `
nodes:
  - name: Shopkeeper
  - name: Counter
`

func writeScene(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lobby.yaml")
	writeScene(t, path, lobby)

	m := scene.NewMemory()
	var reasons []string
	w := New(path, m, func(reason string) { reasons = append(reasons, reason) }, quiet)

	if err := w.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 node, got %d", m.Len())
	}
	if len(reasons) != 1 || reasons[0] != "scene file changed: lobby.yaml" {
		t.Errorf("unexpected world-change reasons %v", reasons)
	}

	// Material from the fixture is registered
	nodes, _ := m.Enumerate(domain.KindTransform)
	h, err := m.CreateMarker(nodes[0], domain.MarkerSpec{Name: "dot"})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ApplyMaterial(h, "Sprites-Default"); err != nil {
		t.Errorf("expected material registered: %v", err)
	}
}

func TestReloadKeepsSceneOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lobby.yaml")
	writeScene(t, path, lobby)

	m := scene.NewMemory()
	called := 0
	w := New(path, m, func(string) { called++ }, quiet)
	if err := w.Reload(); err != nil {
		t.Fatal(err)
	}

	writeScene(t, path, "nodes: [\n")
	if err := w.Reload(); err == nil {
		t.Fatal("expected parse error")
	}
	if m.Len() != 1 {
		t.Errorf("expected previous scene kept, got %d nodes", m.Len())
	}
	if called != 1 {
		t.Errorf("failed reload must not report a world change, got %d calls", called)
	}
}

func TestWatchDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lobby.yaml")
	writeScene(t, path, lobby)

	m := scene.NewMemory()
	changes := make(chan string, 8)
	w := New(path, m, func(reason string) { changes <- reason }, quiet).
		WithDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Watch(ctx) }()

	// Give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)

	// Unrelated files are ignored
	writeScene(t, filepath.Join(dir, "other.yaml"), shop)
	for i := 0; i < 3; i++ {
		writeScene(t, path, shop)
	}

	select {
	case reason := <-changes:
		if reason != "scene file changed: lobby.yaml" {
			t.Errorf("unexpected reason %q", reason)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no world change reported")
	}
	if m.Len() != 2 {
		t.Errorf("expected reloaded scene with 2 nodes, got %d", m.Len())
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
