package codec

import (
	"fmt"
	"io"

	"playermap/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles nested YAML scene fixtures
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlScene represents the YAML structure for a scene. Nodes nest through
// children; a top-level node may instead name its parent explicitly.
type yamlScene struct {
	Name      string     `yaml:"name,omitempty"`
	Materials []string   `yaml:"materials,omitempty"`
	Nodes     []yamlNode `yaml:"nodes"`
}

type yamlNode struct {
	ID         int64       `yaml:"id,omitempty"`
	Name       string      `yaml:"name"`
	Types      []string    `yaml:"types,omitempty"`
	Active     *bool       `yaml:"active,omitempty"`
	SceneValid *bool       `yaml:"scene_valid,omitempty"`
	Position   domain.Vec3 `yaml:"position,omitempty"`
	Layer      int         `yaml:"layer,omitempty"`
	Parent     int64       `yaml:"parent,omitempty"`
	Children   []yamlNode  `yaml:"children,omitempty"`
}

// Parse imports a scene from YAML. Active and scene_valid default to true.
func (c *YAMLCodec) Parse(r io.Reader) (*Scene, error) {
	var ys yamlScene
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&ys); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var next int64
	var maxID func([]yamlNode)
	maxID = func(nodes []yamlNode) {
		for _, n := range nodes {
			if n.ID > next {
				next = n.ID
			}
			maxID(n.Children)
		}
	}
	maxID(ys.Nodes)
	next++

	s := &Scene{Name: ys.Name, Materials: ys.Materials}

	var flatten func(nodes []yamlNode, parent int64)
	flatten = func(nodes []yamlNode, parent int64) {
		for _, yn := range nodes {
			id := yn.ID
			if id == 0 {
				id = next
				next++
			}
			parentID := parent
			if parentID == 0 {
				parentID = yn.Parent
			}
			s.Nodes = append(s.Nodes, domain.GraphNode{
				InstanceID: id,
				Name:       yn.Name,
				TypeNames:  yn.Types,
				Active:     boolOr(yn.Active, true),
				SceneValid: boolOr(yn.SceneValid, true),
				Position:   yn.Position,
				ParentID:   parentID,
				Layer:      yn.Layer,
			})
			flatten(yn.Children, id)
		}
	}
	flatten(ys.Nodes, 0)

	if err := normalize(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Export writes the scene as a nested YAML tree. Nodes whose parent is not
// part of the scene are written at the top level with an explicit parent.
func (c *YAMLCodec) Export(s *Scene, w io.Writer) error {
	present := make(map[int64]bool, len(s.Nodes))
	children := make(map[int64][]domain.GraphNode)
	for _, n := range s.Nodes {
		present[n.InstanceID] = true
	}
	var roots []domain.GraphNode
	for _, n := range s.Nodes {
		if n.ParentID != 0 && present[n.ParentID] {
			children[n.ParentID] = append(children[n.ParentID], n)
			continue
		}
		roots = append(roots, n)
	}

	var build func(n domain.GraphNode, nested bool) yamlNode
	build = func(n domain.GraphNode, nested bool) yamlNode {
		yn := yamlNode{
			ID:       n.InstanceID,
			Name:     n.Name,
			Types:    n.TypeNames,
			Position: n.Position,
			Layer:    n.Layer,
		}
		if !n.Active {
			yn.Active = &n.Active
		}
		if !n.SceneValid {
			yn.SceneValid = &n.SceneValid
		}
		if !nested {
			yn.Parent = n.ParentID
		}
		for _, child := range children[n.InstanceID] {
			yn.Children = append(yn.Children, build(child, true))
		}
		return yn
	}

	ys := yamlScene{
		Name:      s.Name,
		Materials: s.Materials,
		Nodes:     make([]yamlNode, 0, len(roots)),
	}
	for _, n := range roots {
		ys.Nodes = append(ys.Nodes, build(n, false))
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&ys); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
