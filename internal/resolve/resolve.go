// Package resolve collapses classification hits into a single tracked root.
//
// Hits are grouped by priority kind. For each candidate the resolver walks up
// the parent chain to the canonical root label, then runs the junk filter on
// the result. The first kind with a surviving candidate wins.
package resolve

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"playermap/internal/domain"
	"playermap/internal/scene"
)

// DefaultRootLabel is the display name of the canonical player root
const DefaultRootLabel = "Player Avatar Controller"

// DefaultKinds is the priority list: dedicated avatar type, then health, then
// the local viewpoint.
var DefaultKinds = []string{"PlayerAvatar", "PlayerHealth", "PlayerLocalCamera"}

// Config holds resolver settings
type Config struct {
	Kinds     []string
	RootLabel string
	Junk      JunkFilter
}

// DefaultConfig returns the standard kinds, root label and junk filter
func DefaultConfig() Config {
	return Config{
		Kinds:     append([]string(nil), DefaultKinds...),
		RootLabel: DefaultRootLabel,
		Junk:      DefaultJunkFilter(),
	}
}

// Rejection records why a candidate did not become the root
type Rejection struct {
	Kind        string  `json:"kind"`
	CandidateID int64   `json:"candidate_id"`
	RootID      int64   `json:"root_id,omitempty"`
	RootName    string  `json:"root_name,omitempty"`
	Verdict     Verdict `json:"verdict,omitempty"`
	Err         string  `json:"error,omitempty"`
}

func (r Rejection) String() string {
	if r.Err != "" {
		return fmt.Sprintf("%s candidate %d: %s", r.Kind, r.CandidateID, r.Err)
	}
	return fmt.Sprintf("%s candidate %d -> root %q (%d): %s", r.Kind, r.CandidateID, r.RootName, r.RootID, r.Verdict)
}

// Outcome describes a resolution attempt
type Outcome struct {
	Candidates int         `json:"candidates"`
	Rejections []Rejection `json:"rejections,omitempty"`
}

// Resolver picks the tracked root from a set of hits
type Resolver struct {
	cfg    Config
	kinds  []string // folded
	logger *log.Logger
}

// New creates a resolver
func New(cfg Config, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.RootLabel == "" {
		cfg.RootLabel = DefaultRootLabel
	}
	if len(cfg.Kinds) == 0 {
		cfg.Kinds = append([]string(nil), DefaultKinds...)
	}
	fold := cases.Fold()
	r := &Resolver{cfg: cfg, logger: logger}
	for _, k := range cfg.Kinds {
		r.kinds = append(r.kinds, fold.String(k))
	}
	return r
}

// Config returns the resolver settings
func (r *Resolver) Config() Config {
	return r.cfg
}

// Resolve walks kinds in priority order and returns the first candidate root
// that passes the junk filter. Each candidate is tried at most once.
func (r *Resolver) Resolve(g scene.Graph, hits []domain.ClassificationHit, now time.Time) (domain.TrackedRoot, bool, Outcome) {
	var outcome Outcome
	fold := cases.Fold()

	for ki, kind := range r.cfg.Kinds {
		seen := make(map[int64]bool)
		for _, hit := range hits {
			n := hit.Node
			if seen[n.InstanceID] || !r.belongs(fold, n, ki) {
				continue
			}
			seen[n.InstanceID] = true
			outcome.Candidates++

			root, err := r.WalkToRoot(g, n)
			if err != nil {
				outcome.Rejections = append(outcome.Rejections, Rejection{
					Kind: kind, CandidateID: n.InstanceID, Err: err.Error(),
				})
				continue
			}

			if v := r.cfg.Junk.Verdict(root); v != VerdictOK {
				outcome.Rejections = append(outcome.Rejections, Rejection{
					Kind: kind, CandidateID: n.InstanceID,
					RootID: root.InstanceID, RootName: root.Name, Verdict: v,
				})
				continue
			}

			r.logger.Printf("resolve: root %q (%d) via %s candidate %d at %s",
				root.Name, root.InstanceID, kind, n.InstanceID, root.Position)
			return domain.TrackedRoot{
				Node:        root,
				Kind:        kind,
				CandidateID: n.InstanceID,
				ResolvedAt:  now,
			}, true, outcome
		}
	}

	for _, rej := range outcome.Rejections {
		r.logger.Printf("resolve: rejected %s", rej)
	}
	r.logger.Printf("resolve: no root among %d candidates", outcome.Candidates)
	return domain.TrackedRoot{}, false, outcome
}

// belongs reports whether n matches kind index ki by type name or display name
func (r *Resolver) belongs(fold cases.Caser, n domain.GraphNode, ki int) bool {
	kind := r.kinds[ki]
	for _, tn := range n.TypeNames {
		if strings.Contains(fold.String(tn), kind) {
			return true
		}
	}
	return strings.Contains(fold.String(n.Name), kind)
}

// WalkToRoot follows parent links from n until a node named RootLabel. If the
// chain ends without one, n itself is the root. A vanished parent is reported
// as scene.ErrNodeGone.
func (r *Resolver) WalkToRoot(g scene.Graph, n domain.GraphNode) (domain.GraphNode, error) {
	if n.Name == r.cfg.RootLabel {
		return n, nil
	}

	root := n
	found := false
	err := scene.Ancestors(g, n, func(a domain.GraphNode) bool {
		if a.Name == r.cfg.RootLabel {
			root = a
			found = true
			return false
		}
		return true
	})
	if err != nil {
		if errors.Is(err, scene.ErrNodeGone) {
			return domain.GraphNode{}, fmt.Errorf("ancestor walk from %d: %w", n.InstanceID, err)
		}
		return domain.GraphNode{}, err
	}
	if !found {
		return n, nil
	}
	return root, nil
}
