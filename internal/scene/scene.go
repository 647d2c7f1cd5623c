package scene

import (
	"errors"
	"strings"

	"playermap/internal/domain"
)

// ErrNodeGone is returned when a node disappeared between enumeration and use
var ErrNodeGone = errors.New("node no longer exists")

// ErrMaterialNotFound is returned when no rendering material matches a name
var ErrMaterialNotFound = errors.New("material not found")

// maxDepth bounds ancestor walks so a corrupt parent chain cannot loop forever
const maxDepth = 256

// Graph is the poll-only view of the host object graph
type Graph interface {
	// Enumerate returns a snapshot of every live node of the given kind.
	// Order is unspecified but deterministic within one call.
	Enumerate(kind domain.NodeKind) ([]domain.GraphNode, error)

	// Lookup resolves a node by instance ID. ok is false when the node is gone.
	Lookup(id int64) (domain.GraphNode, bool)
}

// Path returns the slash-joined ancestor path of n, root first, ending with
// n's own name. ok is false when a parent vanished mid-walk or the chain is
// deeper than maxDepth.
func Path(g Graph, n domain.GraphNode) (string, bool) {
	names := []string{n.Name}
	cur := n
	for depth := 0; cur.HasParent(); depth++ {
		if depth >= maxDepth {
			return "", false
		}
		parent, ok := g.Lookup(cur.ParentID)
		if !ok {
			return "", false
		}
		names = append(names, parent.Name)
		cur = parent
	}

	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, "/"), true
}

// Ancestors calls visit for each ancestor of n, nearest first, until visit
// returns false or the root is reached. It returns ErrNodeGone when a parent
// link points at a node that no longer exists.
func Ancestors(g Graph, n domain.GraphNode, visit func(domain.GraphNode) bool) error {
	cur := n
	for depth := 0; cur.HasParent(); depth++ {
		if depth >= maxDepth {
			return errors.New("ancestor chain too deep")
		}
		parent, ok := g.Lookup(cur.ParentID)
		if !ok {
			return ErrNodeGone
		}
		if !visit(parent) {
			return nil
		}
		cur = parent
	}
	return nil
}
