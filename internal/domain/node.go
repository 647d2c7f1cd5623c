package domain

import "strings"

// NodeKind selects which part of the host graph an enumeration covers
type NodeKind string

const (
	// KindBehaviour covers nodes that carry at least one behaviour type
	KindBehaviour NodeKind = "behaviour"
	// KindTransform covers every node in the graph
	KindTransform NodeKind = "transform"
)

// GraphNode is a borrowed snapshot of one live node in the host graph.
// InstanceID is stable only while the node is alive; ParentID is 0 for roots.
type GraphNode struct {
	InstanceID int64    `json:"instance_id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	TypeNames  []string `json:"type_names,omitempty" yaml:"types,omitempty"`
	Active     bool     `json:"active" yaml:"active"`
	SceneValid bool     `json:"scene_valid" yaml:"scene_valid"`
	Position   Vec3     `json:"position" yaml:"position"`
	ParentID   int64    `json:"parent_id,omitempty" yaml:"parent,omitempty"`
	Layer      int      `json:"layer,omitempty" yaml:"layer,omitempty"`
}

// HasParent reports whether the node has a parent link
func (n GraphNode) HasParent() bool {
	return n.ParentID != 0
}

// HasBehaviours reports whether the node carries any behaviour types
func (n GraphNode) HasBehaviours() bool {
	return len(n.TypeNames) > 0
}

// HasType reports whether the node carries the named type (exact match)
func (n GraphNode) HasType(name string) bool {
	for _, t := range n.TypeNames {
		if t == name {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with n
func (n GraphNode) Clone() GraphNode {
	c := n
	if n.TypeNames != nil {
		c.TypeNames = append([]string(nil), n.TypeNames...)
	}
	return c
}

// Describe renders a short single-line description for log output
func (n GraphNode) Describe() string {
	var b strings.Builder
	b.WriteString(n.Name)
	if len(n.TypeNames) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(n.TypeNames, ","))
		b.WriteString("]")
	}
	return b.String()
}
