// Package panel projects tracked players onto a fixed 2D overview panel.
//
// Positions are relative to the local player, which sits at the panel centre.
// World X maps to panel X and world Z (forward) maps to panel -Y. Dots that
// would fall outside the panel are pinned to its edge.
package panel

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"playermap/internal/domain"
	"playermap/internal/scene"
)

// Title is the caption drawn on the panel box
const Title = "Players"

// Rect is an axis-aligned screen rectangle
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// XMax returns the right edge
func (r Rect) XMax() float64 { return r.X + r.Width }

// YMax returns the bottom edge
func (r Rect) YMax() float64 { return r.Y + r.Height }

// Center returns the rectangle's midpoint
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Dot is one projected player
type Dot struct {
	Player domain.PlayerInfo `json:"player"`
	// X, Y is the dot centre after clamping
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Bounds Rect    `json:"bounds"`
	Label  string  `json:"label"`
	Local  bool    `json:"local"`
}

// Projector maps world positions into panel space
type Projector struct {
	Rect      Rect    `json:"rect"`
	Scale     float64 `json:"scale"`
	DotRadius float64 `json:"dot_radius"`
}

// DefaultProjector returns the stock 250x250 panel at (20,20)
func DefaultProjector() Projector {
	return Projector{
		Rect:      Rect{X: 20, Y: 20, Width: 250, Height: 250},
		Scale:     0.05,
		DotRadius: 10,
	}
}

// Project places every player relative to local. The result is empty when
// there is no local player.
func (p Projector) Project(players []domain.PlayerInfo, local *domain.PlayerInfo) []Dot {
	if local == nil {
		return nil
	}

	cx, cy := p.Rect.Center()
	dots := make([]Dot, 0, len(players))
	for i, pl := range players {
		delta := pl.Position.Sub(local.Position)
		x := clamp(cx+delta.X*p.Scale, p.Rect.X, p.Rect.XMax())
		y := clamp(cy-delta.Z*p.Scale, p.Rect.Y, p.Rect.YMax())

		dots = append(dots, Dot{
			Player: pl,
			X:      x,
			Y:      y,
			Bounds: Rect{
				X:      x - p.DotRadius,
				Y:      y - p.DotRadius,
				Width:  p.DotRadius * 2,
				Height: p.DotRadius * 2,
			},
			Label: Initial(pl.Name),
			Local: i == 0 && pl == *local,
		})
	}
	return dots
}

// LocalPlayer picks the first player as the local one
func LocalPlayer(players []domain.PlayerInfo) *domain.PlayerInfo {
	if len(players) == 0 {
		return nil
	}
	local := players[0]
	return &local
}

// Initial returns the upper-cased first rune of name, or "?" for an empty name
func Initial(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if size == 0 || r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

var palette = []domain.Color{domain.ColorCyan, domain.ColorMagenta, domain.ColorYellow, domain.ColorWhite}

// PlayersFromRoot builds the player list for the panel: the tracked root
// first (the local player), then one entry per live marker anchor. Anchors are
// named after the overlay slot that contains them.
func PlayersFromRoot(g scene.Graph, root *domain.GraphNode, bindings []domain.MarkerBinding) []domain.PlayerInfo {
	var players []domain.PlayerInfo
	if root != nil {
		players = append(players, domain.PlayerInfo{
			Name:     root.Name,
			Position: root.Position,
			Color:    domain.ColorGreen,
		})
	}

	for i, b := range bindings {
		anchor, ok := g.Lookup(b.AnchorID)
		if !ok {
			continue
		}
		players = append(players, domain.PlayerInfo{
			Name:     slotName(b.AnchorPath, anchor.Name),
			Position: anchor.Position,
			Color:    palette[i%len(palette)],
		})
	}
	return players
}

// slotName returns the path segment above the anchor itself
func slotName(anchorPath, fallback string) string {
	dir := path.Dir(strings.TrimSuffix(anchorPath, "/"))
	if dir == "." || dir == "/" || dir == "" {
		return fallback
	}
	return path.Base(dir)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
