package panel

import (
	"testing"

	"playermap/internal/domain"
	"playermap/internal/scene"
)

func TestProjectRelativeToLocal(t *testing.T) {
	p := DefaultProjector()
	players := []domain.PlayerInfo{
		{Name: "you", Position: domain.Vec3{}, Color: domain.ColorGreen},
		{Name: "a", Position: domain.Vec3{X: 50, Y: 0, Z: 20}, Color: domain.ColorCyan},
		{Name: "b", Position: domain.Vec3{X: -40, Y: 3, Z: -15}, Color: domain.ColorMagenta},
	}

	dots := p.Project(players, LocalPlayer(players))
	if len(dots) != 3 {
		t.Fatalf("expected 3 dots, got %d", len(dots))
	}

	tests := []struct {
		label string
		x, y  float64
	}{
		{"Y", 145, 145},
		{"A", 147.5, 144},
		{"B", 143, 145.75},
	}
	for i, tt := range tests {
		d := dots[i]
		if d.Label != tt.label {
			t.Errorf("dot %d: label = %q, want %q", i, d.Label, tt.label)
		}
		if !near(d.X, tt.x) || !near(d.Y, tt.y) {
			t.Errorf("dot %d: at (%v,%v), want (%v,%v)", i, d.X, d.Y, tt.x, tt.y)
		}
	}

	if !dots[0].Local || dots[1].Local {
		t.Error("expected only the first dot marked local")
	}
	b := dots[0].Bounds
	if b.X != 135 || b.Y != 135 || b.Width != 20 || b.Height != 20 {
		t.Errorf("unexpected dot bounds %+v", b)
	}
}

func TestProjectClampsToPanel(t *testing.T) {
	p := DefaultProjector()
	players := []domain.PlayerInfo{
		{Name: "you"},
		{Name: "far", Position: domain.Vec3{X: 10000, Z: -10000}},
		{Name: "other way", Position: domain.Vec3{X: -10000, Z: 10000}},
	}

	dots := p.Project(players, LocalPlayer(players))
	if dots[1].X != 270 || dots[1].Y != 270 {
		t.Errorf("expected clamp to bottom-right corner, got (%v,%v)", dots[1].X, dots[1].Y)
	}
	if dots[2].X != 20 || dots[2].Y != 20 {
		t.Errorf("expected clamp to top-left corner, got (%v,%v)", dots[2].X, dots[2].Y)
	}
}

func TestProjectWithoutLocal(t *testing.T) {
	if dots := DefaultProjector().Project(nil, LocalPlayer(nil)); dots != nil {
		t.Errorf("expected no dots, got %v", dots)
	}
}

func TestInitial(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"alice", "A"},
		{"Bob", "B"},
		{"élan", "É"},
		{"", "?"},
		{"7even", "7"},
	}
	for _, tt := range tests {
		if got := Initial(tt.name); got != tt.want {
			t.Errorf("Initial(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestPlayersFromRoot(t *testing.T) {
	m := scene.NewMemory()
	mapID := m.MustAdd(domain.GraphNode{Name: "Map", Active: true, SceneValid: true})
	active := m.MustAdd(domain.GraphNode{Name: "Active", Active: true, SceneValid: true, ParentID: mapID})
	slot := m.MustAdd(domain.GraphNode{Name: "P2", Active: true, SceneValid: true, ParentID: active})
	anchor := m.MustAdd(domain.GraphNode{
		Name: "Player Graphic", Active: true, SceneValid: true, ParentID: slot,
		Position: domain.Vec3{X: 4, Z: 2},
	})

	root := &domain.GraphNode{Name: "Player Avatar Controller", Position: domain.Vec3{X: 1}}
	bindings := []domain.MarkerBinding{
		{AnchorID: anchor, AnchorPath: "Map/Active/P2/Player Graphic"},
		{AnchorID: 9999, AnchorPath: "Map/Active/P3/Player Graphic"},
	}

	players := PlayersFromRoot(m, root, bindings)
	if len(players) != 2 {
		t.Fatalf("expected root plus one live anchor, got %d", len(players))
	}
	if players[0].Name != root.Name || players[0].Color != domain.ColorGreen {
		t.Errorf("expected root first in green, got %+v", players[0])
	}
	if players[1].Name != "P2" || players[1].Position != (domain.Vec3{X: 4, Z: 2}) {
		t.Errorf("unexpected anchor player %+v", players[1])
	}
}

func near(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
