package domain

// Color is an RGBA colour with components in [0,1]
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

var (
	ColorWhite   = Color{1, 1, 1, 1}
	ColorGreen   = Color{0, 1, 0, 1}
	ColorCyan    = Color{0, 1, 1, 1}
	ColorMagenta = Color{1, 0, 1, 1}
	ColorYellow  = Color{1, 0.92, 0.016, 1}
)

// PlayerInfo is what the panel renderer needs to draw one player
type PlayerInfo struct {
	Name     string `json:"name"`
	Position Vec3   `json:"position"`
	Color    Color  `json:"color"`
}
