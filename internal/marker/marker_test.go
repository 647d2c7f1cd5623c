package marker

import (
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"playermap/internal/domain"
	"playermap/internal/scene"
)

var (
	quiet = log.New(io.Discard, "", 0)
	now   = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

// mapScene builds Map/Active/<slot>/Player Graphic for each slot
func mapScene(t *testing.T, slots ...string) (*scene.Memory, map[string]int64) {
	t.Helper()
	m := scene.NewMemory()
	m.RegisterMaterial("Sprites-Default")
	root := m.MustAdd(domain.GraphNode{Name: "Map", Active: true, SceneValid: true})
	active := m.MustAdd(domain.GraphNode{Name: "Active", Active: true, SceneValid: true, ParentID: root})

	anchors := make(map[string]int64)
	for i, slot := range slots {
		p := m.MustAdd(domain.GraphNode{Name: slot, Active: true, SceneValid: true, ParentID: active})
		anchors[slot] = m.MustAdd(domain.GraphNode{
			Name: "Player Graphic", Active: true, SceneValid: true,
			ParentID: p, Layer: 5 + i, Position: domain.Vec3{X: float64(i + 1)},
		})
	}
	return m, anchors
}

func TestReconcileTwoAnchors(t *testing.T) {
	m, anchors := mapScene(t, "P1", "P2")
	s := New(DefaultConfig(), m, quiet)

	res, err := s.Reconcile(m, now)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(res.Created) != 2 || s.Len() != 2 {
		t.Fatalf("expected 2 markers, got created=%d bound=%d", len(res.Created), s.Len())
	}

	for slot, anchorID := range anchors {
		b, ok := s.Binding(anchorID)
		if !ok {
			t.Errorf("%s: expected binding", slot)
			continue
		}
		info, ok := m.Marker(b.Marker)
		if !ok {
			t.Errorf("%s: expected marker %d in scene", slot, b.Marker)
			continue
		}
		if info.Node.ParentID != anchorID {
			t.Errorf("%s: expected marker parented to %d, got %d", slot, anchorID, info.Node.ParentID)
		}
		anchor, _ := m.Lookup(anchorID)
		if info.Node.Layer != anchor.Layer {
			t.Errorf("%s: expected layer %d, got %d", slot, anchor.Layer, info.Node.Layer)
		}
		if info.Offset != (domain.Vec3{Z: -0.01}) {
			t.Errorf("%s: unexpected offset %s", slot, info.Offset)
		}
		if info.Material != "Sprites-Default" || b.Material != "Sprites-Default" {
			t.Errorf("%s: expected material applied", slot)
		}
		want := "Map/Active/" + slot + "/Player Graphic"
		if b.AnchorPath != want {
			t.Errorf("%s: expected path %q, got %q", slot, want, b.AnchorPath)
		}
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	m, _ := mapScene(t, "P1", "P2")
	s := New(DefaultConfig(), m, quiet)

	for i := 0; i < 5; i++ {
		if _, err := s.Reconcile(m, now); err != nil {
			t.Fatalf("Reconcile: %v", err)
		}
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 bindings, got %d", s.Len())
	}
	if m.Markers() != 2 {
		t.Errorf("expected 2 markers in scene, got %d", m.Markers())
	}
}

func TestReconcilePicksUpNewAnchors(t *testing.T) {
	m, anchors := mapScene(t, "P1")
	s := New(DefaultConfig(), m, quiet)
	s.Reconcile(m, now)

	anchor, _ := m.Lookup(anchors["P1"])
	slot, _ := m.Lookup(anchor.ParentID)
	p2 := m.MustAdd(domain.GraphNode{Name: "P2", Active: true, SceneValid: true, ParentID: slot.ParentID})
	m.MustAdd(domain.GraphNode{Name: "Player Graphic", Active: true, SceneValid: true, ParentID: p2})

	res, _ := s.Reconcile(m, now)
	if len(res.Created) != 1 {
		t.Errorf("expected 1 new marker, got %d", len(res.Created))
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 bindings, got %d", s.Len())
	}
}

func TestAnchorsPathPredicate(t *testing.T) {
	m, _ := mapScene(t, "P1")
	// Same display name outside the overlay
	hud := m.MustAdd(domain.GraphNode{Name: "Lobby", Active: true, SceneValid: true})
	m.MustAdd(domain.GraphNode{Name: "Player Graphic", Active: true, SceneValid: true, ParentID: hud})
	// Right subtree, wrong name
	m.MustAdd(domain.GraphNode{Name: "Player Graphic (Clone)", Active: true, SceneValid: true})

	s := New(DefaultConfig(), m, quiet)
	anchors, err := s.Anchors(m)
	if err != nil {
		t.Fatalf("Anchors: %v", err)
	}
	if len(anchors) != 1 || anchors[0].Path != "Map/Active/P1/Player Graphic" {
		t.Errorf("expected only the overlay anchor, got %+v", anchors)
	}
}

func TestMarkerCountMatchesAnchors(t *testing.T) {
	m, anchors := mapScene(t, "P1", "P2", "P3", "P4")
	s := New(DefaultConfig(), m, quiet)
	s.Reconcile(m, now)

	live, _ := s.Anchors(m)
	if s.Len() != len(live) {
		t.Errorf("expected bindings == anchors (%d), got %d", len(live), s.Len())
	}
	for _, id := range anchors {
		if _, ok := s.Binding(id); !ok {
			t.Errorf("expected anchor %d bound", id)
		}
	}
}

func TestOrphanedBindingToleratedUntilReset(t *testing.T) {
	m, anchors := mapScene(t, "P1", "P2")
	s := New(DefaultConfig(), m, quiet)
	s.Reconcile(m, now)

	if err := m.Destroy(anchors["P1"]); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	s.Reconcile(m, now)

	if s.Len() != 2 {
		t.Errorf("expected orphaned binding kept until reset, got %d bindings", s.Len())
	}

	// The orphan's marker died with its anchor; reset must still clear it
	s.Reset()
	if s.Len() != 0 {
		t.Errorf("expected empty bindings after reset, got %d", s.Len())
	}
	if m.Markers() != 0 {
		t.Errorf("expected all markers destroyed, got %d", m.Markers())
	}
}

func TestResetDestroysMarkers(t *testing.T) {
	m, _ := mapScene(t, "P1", "P2")
	s := New(DefaultConfig(), m, quiet)
	s.Reconcile(m, now)

	if destroyed := s.Reset(); destroyed != 2 {
		t.Errorf("expected 2 destroyed, got %d", destroyed)
	}
	if s.Len() != 0 || m.Markers() != 0 {
		t.Errorf("expected nothing left, bindings=%d markers=%d", s.Len(), m.Markers())
	}

	// Reconcile after reset recreates
	s.Reconcile(m, now)
	if s.Len() != 2 {
		t.Errorf("expected markers recreated, got %d", s.Len())
	}
}

func TestMissingMaterialDegrades(t *testing.T) {
	m, _ := mapScene(t, "P1")
	cfg := DefaultConfig()
	cfg.Material = "Does-Not-Exist"
	s := New(cfg, m, quiet)

	res, err := s.Reconcile(m, now)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(res.Created) != 1 {
		t.Fatalf("expected marker created without material, got %d", len(res.Created))
	}
	if res.Created[0].Material != "" {
		t.Errorf("expected no material recorded, got %q", res.Created[0].Material)
	}
}

// flakyFactory fails creation for chosen anchors
type flakyFactory struct {
	*scene.Memory
	failFor map[int64]bool
}

func (f *flakyFactory) CreateMarker(anchor domain.GraphNode, spec domain.MarkerSpec) (domain.MarkerHandle, error) {
	if f.failFor[anchor.InstanceID] {
		return 0, errors.New("out of sprites")
	}
	return f.Memory.CreateMarker(anchor, spec)
}

func TestCreateFailureIsolated(t *testing.T) {
	m, anchors := mapScene(t, "P1", "P2")
	f := &flakyFactory{Memory: m, failFor: map[int64]bool{anchors["P1"]: true}}
	s := New(DefaultConfig(), f, quiet)

	res, err := s.Reconcile(m, now)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Failed != 1 || len(res.Created) != 1 {
		t.Errorf("expected 1 failed and 1 created, got %+v", res)
	}
	if _, ok := s.Binding(anchors["P2"]); !ok {
		t.Error("expected P2 bound despite P1 failure")
	}

	// Retried on the next pass
	f.failFor = nil
	s.Reconcile(m, now)
	if s.Len() != 2 {
		t.Errorf("expected P1 bound on retry, got %d bindings", s.Len())
	}
}

func TestBindingsReturnsCopy(t *testing.T) {
	m, _ := mapScene(t, "P1")
	s := New(DefaultConfig(), m, quiet)
	s.Reconcile(m, now)

	copied := s.Bindings()
	clear(copied)
	if s.Len() != 1 {
		t.Error("expected internal map untouched by caller")
	}
	if got := s.SortedBindings(); len(got) != 1 {
		t.Errorf("expected 1 sorted binding, got %d", len(got))
	}
}
