// Package marker keeps owned marker visuals in step with overlay anchors.
//
// Each reconciliation enumerates the host graph for anchors (a fixed display
// name under a fixed path prefix) and creates one marker per anchor that is
// not bound yet. Bindings are only torn down wholesale by Reset, which the
// controller calls on rearm. An anchor destroyed mid-epoch leaves an orphaned
// binding until then.
package marker

import (
	"fmt"
	"log"
	"maps"
	"sort"
	"strings"
	"time"

	"playermap/internal/domain"
	"playermap/internal/scene"
)

// Factory creates and destroys marker visuals in the host
type Factory interface {
	CreateMarker(anchor domain.GraphNode, spec domain.MarkerSpec) (domain.MarkerHandle, error)
	ApplyMaterial(h domain.MarkerHandle, material string) error
	DestroyMarker(h domain.MarkerHandle) error
}

// Config holds anchor matching and marker appearance
type Config struct {
	// AnchorLabel is the exact display name of an overlay anchor
	AnchorLabel string
	// PathPrefix must appear in the anchor's ancestor path
	PathPrefix string
	// MarkerName is the display name given to created markers
	MarkerName string
	// LocalOffset keeps the marker off the anchor's plane
	LocalOffset domain.Vec3
	// Scale of the marker relative to its anchor
	Scale domain.Vec3
	// Material is optional; failure to apply it is not fatal
	Material string
}

// DefaultConfig matches "Player Graphic" nodes under the active map overlay
func DefaultConfig() Config {
	return Config{
		AnchorLabel: "Player Graphic",
		PathPrefix:  "Map/Active/",
		MarkerName:  "Map Marker Dot",
		LocalOffset: domain.Vec3{Z: -0.01},
		Scale:       domain.Vec3{X: 0.6, Y: 0.6, Z: 0.6},
		Material:    "Sprites-Default",
	}
}

// Anchor is an overlay node matching the anchor predicate
type Anchor struct {
	Node domain.GraphNode
	Path string
}

// Result summarises one reconciliation pass
type Result struct {
	Anchors int
	Created []domain.MarkerBinding
	Failed  int
}

// Synchronizer owns the anchor -> marker binding map
type Synchronizer struct {
	cfg      Config
	factory  Factory
	bindings map[int64]domain.MarkerBinding
	logger   *log.Logger
}

// New creates a synchronizer with an empty binding map
func New(cfg Config, factory Factory, logger *log.Logger) *Synchronizer {
	if logger == nil {
		logger = log.Default()
	}
	return &Synchronizer{
		cfg:      cfg,
		factory:  factory,
		bindings: make(map[int64]domain.MarkerBinding),
		logger:   logger,
	}
}

// Anchors returns every node in g that matches the anchor predicate, in
// enumeration order. Nodes whose parent chain breaks mid-walk are skipped.
func (s *Synchronizer) Anchors(g scene.Graph) ([]Anchor, error) {
	nodes, err := g.Enumerate(domain.KindTransform)
	if err != nil {
		return nil, fmt.Errorf("enumerate anchors: %w", err)
	}

	var anchors []Anchor
	seen := make(map[int64]bool)
	for _, n := range nodes {
		if n.Name != s.cfg.AnchorLabel || n.InstanceID == 0 || seen[n.InstanceID] {
			continue
		}
		path, ok := scene.Path(g, n)
		if !ok {
			continue
		}
		if !strings.Contains(path, s.cfg.PathPrefix) {
			continue
		}
		seen[n.InstanceID] = true
		anchors = append(anchors, Anchor{Node: n, Path: path})
	}
	return anchors, nil
}

// Reconcile binds a marker to every anchor that does not have one yet.
// A failure for one anchor is logged and does not stop the others.
func (s *Synchronizer) Reconcile(g scene.Graph, now time.Time) (Result, error) {
	anchors, err := s.Anchors(g)
	if err != nil {
		return Result{}, err
	}

	res := Result{Anchors: len(anchors)}
	for _, a := range anchors {
		if _, bound := s.bindings[a.Node.InstanceID]; bound {
			continue
		}

		binding, err := s.bind(a, now)
		if err != nil {
			s.logger.Printf("marker: failed to create marker for %s (%d): %v", a.Path, a.Node.InstanceID, err)
			res.Failed++
			continue
		}
		s.bindings[a.Node.InstanceID] = binding
		res.Created = append(res.Created, binding)
		s.logger.Printf("marker: created marker %d on %s (anchor %d, layer %d)",
			binding.Marker, a.Path, a.Node.InstanceID, a.Node.Layer)
	}
	return res, nil
}

func (s *Synchronizer) bind(a Anchor, now time.Time) (domain.MarkerBinding, error) {
	spec := domain.MarkerSpec{
		Name:        s.cfg.MarkerName,
		LocalOffset: s.cfg.LocalOffset,
		Scale:       s.cfg.Scale,
		Layer:       a.Node.Layer,
		Material:    s.cfg.Material,
	}

	h, err := s.factory.CreateMarker(a.Node, spec)
	if err != nil {
		return domain.MarkerBinding{}, err
	}

	binding := domain.MarkerBinding{
		AnchorID:   a.Node.InstanceID,
		Marker:     h,
		AnchorPath: a.Path,
		Layer:      a.Node.Layer,
		CreatedAt:  now,
	}

	if s.cfg.Material != "" {
		if err := s.factory.ApplyMaterial(h, s.cfg.Material); err != nil {
			s.logger.Printf("marker: warning: marker %d left without material: %v", h, err)
		} else {
			binding.Material = s.cfg.Material
		}
	}
	return binding, nil
}

// Reset destroys every bound marker and empties the binding map. Destroy
// errors are logged; the binding is dropped regardless.
func (s *Synchronizer) Reset() int {
	destroyed := 0
	for id, b := range s.bindings {
		if err := s.factory.DestroyMarker(b.Marker); err != nil {
			s.logger.Printf("marker: destroy marker %d (anchor %d): %v", b.Marker, id, err)
		} else {
			destroyed++
		}
	}
	count := len(s.bindings)
	clear(s.bindings)
	if count > 0 {
		s.logger.Printf("marker: reset %d bindings (%d destroyed)", count, destroyed)
	}
	return destroyed
}

// Len returns the number of bindings
func (s *Synchronizer) Len() int {
	return len(s.bindings)
}

// Binding returns the binding for an anchor
func (s *Synchronizer) Binding(anchorID int64) (domain.MarkerBinding, bool) {
	b, ok := s.bindings[anchorID]
	return b, ok
}

// Bindings returns a copy of the binding map
func (s *Synchronizer) Bindings() map[int64]domain.MarkerBinding {
	return maps.Clone(s.bindings)
}

// SortedBindings returns bindings ordered by anchor ID
func (s *Synchronizer) SortedBindings() []domain.MarkerBinding {
	out := make([]domain.MarkerBinding, 0, len(s.bindings))
	for _, b := range s.bindings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AnchorID < out[j].AnchorID })
	return out
}
