package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"playermap/internal/domain"
)

// JSONCodec handles flat JSON scene fixtures, the same node shape the
// diagnostic API serves.
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

type jsonScene struct {
	Name      string             `json:"name,omitempty"`
	Materials []string           `json:"materials,omitempty"`
	Nodes     []domain.GraphNode `json:"nodes"`
}

// Parse imports a scene from JSON
func (c *JSONCodec) Parse(r io.Reader) (*Scene, error) {
	var js jsonScene
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&js); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	s := &Scene{Name: js.Name, Materials: js.Materials, Nodes: js.Nodes}
	if err := normalize(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Export exports a scene to JSON
func (c *JSONCodec) Export(s *Scene, w io.Writer) error {
	js := jsonScene{Name: s.Name, Materials: s.Materials, Nodes: s.Nodes}
	if js.Nodes == nil {
		js.Nodes = []domain.GraphNode{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(js); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
