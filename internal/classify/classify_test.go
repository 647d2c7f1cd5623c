package classify

import (
	"errors"
	"fmt"
	"io"
	"log"
	"testing"

	"playermap/internal/domain"
	"playermap/internal/scene"
)

var quiet = log.New(io.Discard, "", 0)

// stubGraph serves fixed node lists and can fail a given kind
type stubGraph struct {
	nodes []domain.GraphNode
	fail  domain.NodeKind
}

func (s *stubGraph) Enumerate(kind domain.NodeKind) ([]domain.GraphNode, error) {
	if kind == s.fail {
		return nil, errors.New("host exploded")
	}
	var out []domain.GraphNode
	for _, n := range s.nodes {
		if kind == domain.KindBehaviour && !n.HasBehaviours() {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *stubGraph) Lookup(id int64) (domain.GraphNode, bool) {
	for _, n := range s.nodes {
		if n.InstanceID == id {
			return n, true
		}
	}
	return domain.GraphNode{}, false
}

func TestMatch(t *testing.T) {
	strict := New(Config{Keywords: StrictKeywords}, quiet)
	loose := New(Config{Keywords: LooseKeywords}, quiet)

	tests := []struct {
		input       string
		strictMatch bool
		looseMatch  bool
	}{
		{"PlayerAvatar", true, true},
		{"PLAYER", true, true},
		{"characterController", true, true},
		{"Avatar Root", true, true},
		{"PhotonView", false, true},
		{"NetworkManager", false, true},
		{"CameraRig", false, true},
		{"EnemyPawn", false, true},
		{"Door", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		if _, ok := strict.Match(tt.input); ok != tt.strictMatch {
			t.Errorf("strict.Match(%q) = %v, want %v", tt.input, ok, tt.strictMatch)
		}
		if _, ok := loose.Match(tt.input); ok != tt.looseMatch {
			t.Errorf("loose.Match(%q) = %v, want %v", tt.input, ok, tt.looseMatch)
		}
	}
}

func TestMatchReturnsConfiguredKeyword(t *testing.T) {
	c := New(Config{Keywords: []string{"Avatar"}}, quiet)
	kw, ok := c.Match("the playeravatar node")
	if !ok {
		t.Fatal("expected match")
	}
	if kw != "Avatar" {
		t.Errorf("expected keyword as configured, got %q", kw)
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{Keywords: []string{"player", " ", ""}}, nil)
	if c.PassCap() != DefaultPassCap {
		t.Errorf("expected default cap %d, got %d", DefaultPassCap, c.PassCap())
	}
	if got := c.Keywords(); len(got) != 1 {
		t.Errorf("expected blank keywords dropped, got %v", got)
	}
}

func TestClassify(t *testing.T) {
	c := New(DefaultConfig(), quiet)

	t.Run("type name wins over display name", func(t *testing.T) {
		hit, ok := c.Classify(domain.GraphNode{
			Name:      "PlayerRoot",
			TypeNames: []string{"Rigidbody", "PlayerHealth"},
		})
		if !ok {
			t.Fatal("expected match")
		}
		if hit.MatchedBy != domain.MatchTypeName || hit.TypeName != "PlayerHealth" {
			t.Errorf("expected type hit on PlayerHealth, got %+v", hit)
		}
	})

	t.Run("display name only", func(t *testing.T) {
		hit, ok := c.Classify(domain.GraphNode{Name: "Character Body"})
		if !ok || hit.MatchedBy != domain.MatchDisplayName {
			t.Errorf("expected display-name hit, got %+v ok=%v", hit, ok)
		}
	})

	t.Run("no match", func(t *testing.T) {
		if _, ok := c.Classify(domain.GraphNode{Name: "Door", TypeNames: []string{"Hinge"}}); ok {
			t.Error("expected no match")
		}
	})
}

func TestScan(t *testing.T) {
	c := New(DefaultConfig(), quiet)

	t.Run("empty graph yields nothing", func(t *testing.T) {
		report, hits, err := c.Scan(&stubGraph{}, domain.TriggerScheduled)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Found() || len(hits) != 0 {
			t.Errorf("expected no hits, got %d", len(hits))
		}
	})

	t.Run("both passes contribute", func(t *testing.T) {
		g := &stubGraph{nodes: []domain.GraphNode{
			{InstanceID: 1, Name: "PlayerAvatar", TypeNames: []string{"PlayerAvatar"}, SceneValid: true},
			{InstanceID: 2, Name: "Floor", SceneValid: true},
			{InstanceID: 3, Name: "Avatar Mesh", SceneValid: true},
		}}
		report, hits, err := c.Scan(g, domain.TriggerScheduled)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.TypeHits != 1 {
			t.Errorf("expected 1 type hit, got %d", report.TypeHits)
		}
		if report.NameHits != 2 {
			t.Errorf("expected 2 name hits, got %d", report.NameHits)
		}
		if len(hits) != 3 || hits[0].MatchedBy != domain.MatchTypeName {
			t.Errorf("expected type hits first, got %+v", hits)
		}
	})

	t.Run("invalid scene nodes are skipped", func(t *testing.T) {
		g := &stubGraph{nodes: []domain.GraphNode{
			{InstanceID: 1, Name: "PlayerAvatar", TypeNames: []string{"PlayerAvatar"}, SceneValid: false},
			{InstanceID: 0, Name: "Player Ghost", SceneValid: true},
		}}
		report, hits, err := c.Scan(g, domain.TriggerManual)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("expected no hits, got %+v", hits)
		}
		if report.Skipped != 3 {
			t.Errorf("expected 3 skips (1 type + 2 name), got %d", report.Skipped)
		}
		if report.Trigger != domain.TriggerManual {
			t.Errorf("expected manual trigger recorded, got %s", report.Trigger)
		}
	})

	t.Run("enumeration failure is returned", func(t *testing.T) {
		g := &stubGraph{fail: domain.KindTransform}
		_, _, err := c.Scan(g, domain.TriggerScheduled)
		if err == nil {
			t.Error("expected error")
		}
	})
}

func TestScanCapsEachPass(t *testing.T) {
	c := New(Config{Keywords: StrictKeywords, PassCap: 120}, quiet)

	g := &stubGraph{}
	for i := 1; i <= 300; i++ {
		g.nodes = append(g.nodes, domain.GraphNode{
			InstanceID: int64(i),
			Name:       fmt.Sprintf("Player Clone %d", i),
			TypeNames:  []string{"PlayerController"},
			SceneValid: true,
		})
	}

	report, hits, err := c.Scan(g, domain.TriggerScheduled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TypeHits != 120 || report.NameHits != 120 {
		t.Errorf("expected 120+120 hits, got %d+%d", report.TypeHits, report.NameHits)
	}
	if len(hits) != 240 {
		t.Errorf("expected 240 hits, got %d", len(hits))
	}
}

func TestScanAgainstMemory(t *testing.T) {
	m := scene.NewMemory()
	m.MustAdd(domain.GraphNode{Name: "Level", Active: true, SceneValid: true})
	m.MustAdd(domain.GraphNode{Name: "PlayerAvatar", TypeNames: []string{"PlayerAvatar"}, Active: true, SceneValid: true})

	c := New(DefaultConfig(), quiet)
	report, _, err := c.Scan(m, domain.TriggerScheduled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TypeHits != 1 || report.NameHits != 1 {
		t.Errorf("expected 1 type and 1 name hit, got %+v", report)
	}
}
