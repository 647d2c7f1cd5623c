package scene

import (
	"fmt"
	"slices"
	"sync"

	"playermap/internal/domain"
)

// entry is the host-side record of a node. active is the node's own flag;
// enumeration reports active-in-hierarchy.
type entry struct {
	node     domain.GraphNode
	active   bool
	owned    bool
	offset   domain.Vec3
	scale    domain.Vec3
	material string
}

// MarkerInfo describes an owned marker visual held by Memory
type MarkerInfo struct {
	Node     domain.GraphNode
	Offset   domain.Vec3
	Scale    domain.Vec3
	Material string
}

// Memory is an in-memory host graph. It is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	nodes     map[int64]*entry
	order     []int64
	nextID    int64
	materials map[string]bool
}

// NewMemory creates an empty host graph
func NewMemory() *Memory {
	return &Memory{
		nodes:     make(map[int64]*entry),
		nextID:    1,
		materials: make(map[string]bool),
	}
}

// Add inserts a node and returns its instance ID. A zero InstanceID is
// assigned automatically; an explicit one must not collide.
func (m *Memory) Add(node domain.GraphNode) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(node, false)
}

// MustAdd is Add for fixtures and tests; it panics on collision
func (m *Memory) MustAdd(node domain.GraphNode) int64 {
	id, err := m.Add(node)
	if err != nil {
		panic(err)
	}
	return id
}

func (m *Memory) addLocked(node domain.GraphNode, owned bool) (int64, error) {
	if node.InstanceID == 0 {
		for m.nodes[m.nextID] != nil {
			m.nextID++
		}
		node.InstanceID = m.nextID
		m.nextID++
	} else if _, exists := m.nodes[node.InstanceID]; exists {
		return 0, fmt.Errorf("node %d already exists", node.InstanceID)
	}
	if node.InstanceID >= m.nextID {
		m.nextID = node.InstanceID + 1
	}

	m.nodes[node.InstanceID] = &entry{
		node:   node.Clone(),
		active: node.Active,
		owned:  owned,
	}
	m.order = append(m.order, node.InstanceID)
	return node.InstanceID, nil
}

// Replace discards the whole graph, owned markers included, and loads nodes.
// This is what a scene transition looks like from the engine's side.
func (m *Memory) Replace(nodes []domain.GraphNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nodes = make(map[int64]*entry, len(nodes))
	m.order = m.order[:0]
	for _, n := range nodes {
		if _, err := m.addLocked(n, false); err != nil {
			return fmt.Errorf("load node %q: %w", n.Name, err)
		}
	}
	return nil
}

// Destroy removes a node and all of its descendants
func (m *Memory) Destroy(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyLocked(id)
}

func (m *Memory) destroyLocked(id int64) error {
	if _, ok := m.nodes[id]; !ok {
		return ErrNodeGone
	}

	doomed := map[int64]bool{id: true}
	// order is parent-before-child for fixtures, but markers can be added to
	// any anchor later, so iterate until no new descendants appear.
	for changed := true; changed; {
		changed = false
		for cid, e := range m.nodes {
			if !doomed[cid] && doomed[e.node.ParentID] {
				doomed[cid] = true
				changed = true
			}
		}
	}

	for did := range doomed {
		delete(m.nodes, did)
	}
	m.order = slices.DeleteFunc(m.order, func(oid int64) bool { return doomed[oid] })
	return nil
}

// SetActive sets a node's own active flag
func (m *Memory) SetActive(id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.nodes[id]
	if !ok {
		return ErrNodeGone
	}
	e.active = active
	return nil
}

// Move sets a node's world position
func (m *Memory) Move(id int64, pos domain.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.nodes[id]
	if !ok {
		return ErrNodeGone
	}
	e.node.Position = pos
	return nil
}

// RegisterMaterial makes rendering materials available to ApplyMaterial
func (m *Memory) RegisterMaterial(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		m.materials[n] = true
	}
}

// Len returns the number of live nodes, owned markers included
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// Snapshot returns every node that is not an owned marker, in insertion order
func (m *Memory) Snapshot() []domain.GraphNode {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.GraphNode, 0, len(m.order))
	for _, id := range m.order {
		e := m.nodes[id]
		if e.owned {
			continue
		}
		n := e.node.Clone()
		n.Active = e.active
		out = append(out, n)
	}
	return out
}

// Enumerate implements Graph
func (m *Memory) Enumerate(kind domain.NodeKind) ([]domain.GraphNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.GraphNode, 0, len(m.order))
	for _, id := range m.order {
		e := m.nodes[id]
		if kind == domain.KindBehaviour && !e.node.HasBehaviours() {
			continue
		}
		out = append(out, m.viewLocked(e))
	}
	return out, nil
}

// Lookup implements Graph
func (m *Memory) Lookup(id int64) (domain.GraphNode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.nodes[id]
	if !ok {
		return domain.GraphNode{}, false
	}
	return m.viewLocked(e), true
}

// viewLocked builds the borrowed snapshot, folding ancestor active flags into
// Active the way a host reports active-in-hierarchy.
func (m *Memory) viewLocked(e *entry) domain.GraphNode {
	n := e.node.Clone()
	n.Active = e.active
	cur := e
	for depth := 0; n.Active && cur.node.HasParent() && depth < maxDepth; depth++ {
		parent, ok := m.nodes[cur.node.ParentID]
		if !ok {
			break
		}
		if !parent.active {
			n.Active = false
		}
		cur = parent
	}
	return n
}

// CreateMarker adds an owned marker node parented to anchor
func (m *Memory) CreateMarker(anchor domain.GraphNode, spec domain.MarkerSpec) (domain.MarkerHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent, ok := m.nodes[anchor.InstanceID]
	if !ok {
		return 0, ErrNodeGone
	}

	id, err := m.addLocked(domain.GraphNode{
		Name:       spec.Name,
		Active:     true,
		SceneValid: parent.node.SceneValid,
		Position:   parent.node.Position.Add(spec.LocalOffset),
		ParentID:   anchor.InstanceID,
		Layer:      spec.Layer,
	}, true)
	if err != nil {
		return 0, err
	}

	e := m.nodes[id]
	e.offset = spec.LocalOffset
	e.scale = spec.Scale
	return domain.MarkerHandle(id), nil
}

// ApplyMaterial assigns a registered material to an owned marker
func (m *Memory) ApplyMaterial(h domain.MarkerHandle, material string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.nodes[int64(h)]
	if !ok || !e.owned {
		return ErrNodeGone
	}
	if !m.materials[material] {
		return fmt.Errorf("%w: %s", ErrMaterialNotFound, material)
	}
	e.material = material
	return nil
}

// DestroyMarker removes an owned marker
func (m *Memory) DestroyMarker(h domain.MarkerHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.nodes[int64(h)]
	if !ok {
		return ErrNodeGone
	}
	if !e.owned {
		return fmt.Errorf("node %d is not an owned marker", h)
	}
	return m.destroyLocked(int64(h))
}

// Marker returns details of an owned marker
func (m *Memory) Marker(h domain.MarkerHandle) (MarkerInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.nodes[int64(h)]
	if !ok || !e.owned {
		return MarkerInfo{}, false
	}
	return MarkerInfo{
		Node:     m.viewLocked(e),
		Offset:   e.offset,
		Scale:    e.scale,
		Material: e.material,
	}, true
}

// Markers returns the number of owned markers currently alive
func (m *Memory) Markers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, e := range m.nodes {
		if e.owned {
			count++
		}
	}
	return count
}
