package resolve

import (
	"math"

	"playermap/internal/domain"
)

// Verdict is the junk filter's judgement of a resolved root
type Verdict string

const (
	VerdictOK           Verdict = "ok"
	VerdictInactive     Verdict = "inactive"
	VerdictOutOfBounds  Verdict = "out_of_bounds"
	VerdictAtOrigin     Verdict = "at_origin"
	VerdictInvalidScene Verdict = "invalid_scene"
)

// JunkFilter rejects decoys: pooled copies, menu previews, placeholders
type JunkFilter struct {
	// DepthLimit is the absolute bound on the depth component
	DepthLimit float64
	// DepthAxis selects which component counts as depth
	DepthAxis domain.Axis
}

// DefaultJunkFilter rejects anything more than 500 units above or below the level
func DefaultJunkFilter() JunkFilter {
	return JunkFilter{DepthLimit: 500, DepthAxis: domain.AxisY}
}

// Verdict evaluates n. It only reads n's fields, so the same node always gets
// the same verdict.
func (f JunkFilter) Verdict(n domain.GraphNode) Verdict {
	switch {
	case !n.Active:
		return VerdictInactive
	case !n.SceneValid:
		return VerdictInvalidScene
	case math.Abs(n.Position.Component(f.DepthAxis)) > f.DepthLimit:
		return VerdictOutOfBounds
	case n.Position.IsZero():
		return VerdictAtOrigin
	}
	return VerdictOK
}

// IsJunk reports whether n should be rejected
func (f JunkFilter) IsJunk(n domain.GraphNode) bool {
	return f.Verdict(n) != VerdictOK
}
