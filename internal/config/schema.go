package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	Scan      ScanConfig      `yaml:"scan" envPrefix:"SCAN_"`
	Resolve   ResolveConfig   `yaml:"resolve" envPrefix:"RESOLVE_"`
	Markers   MarkerConfig    `yaml:"markers" envPrefix:"MARKER_"`
	Panel     PanelConfig     `yaml:"panel" envPrefix:"PANEL_"`
	Scene     SceneConfig     `yaml:"scene" envPrefix:"SCENE_"`
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"OTEL_"`
}

// ScanConfig holds classifier and scheduler settings
type ScanConfig struct {
	InitialDelay Duration `yaml:"initial_delay" env:"INITIAL_DELAY"`
	Interval     Duration `yaml:"interval" env:"INTERVAL"`
	MaxAttempts  int      `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	// Keywords replaces the built-in list when set
	Keywords []string `yaml:"keywords,omitempty" env:"KEYWORDS" envSeparator:","`
	// Loose selects the wider built-in keyword list
	Loose   bool `yaml:"loose" env:"LOOSE"`
	PassCap int  `yaml:"pass_cap" env:"PASS_CAP"`
	// RetryOnUnresolved keeps scanning when hits yield no usable root
	RetryOnUnresolved bool     `yaml:"retry_on_unresolved" env:"RETRY_ON_UNRESOLVED"`
	FrameInterval     Duration `yaml:"frame_interval" env:"FRAME_INTERVAL"`
}

// ResolveConfig holds root resolution settings
type ResolveConfig struct {
	Kinds      []string `yaml:"kinds,omitempty" env:"KINDS" envSeparator:","`
	RootLabel  string   `yaml:"root_label" env:"ROOT_LABEL"`
	DepthLimit float64  `yaml:"depth_limit" env:"DEPTH_LIMIT"`
	DepthAxis  string   `yaml:"depth_axis" env:"DEPTH_AXIS"` // x, y or z
}

// MarkerConfig holds overlay anchor matching and marker appearance
type MarkerConfig struct {
	AnchorLabel string  `yaml:"anchor_label" env:"ANCHOR_LABEL"`
	PathPrefix  string  `yaml:"path_prefix" env:"PATH_PREFIX"`
	Name        string  `yaml:"name" env:"NAME"`
	Material    string  `yaml:"material" env:"MATERIAL"`
	Scale       float64 `yaml:"scale" env:"SCALE"`
	OffsetZ     float64 `yaml:"offset_z" env:"OFFSET_Z"`
}

// PanelConfig holds the 2D overview layout
type PanelConfig struct {
	X         float64 `yaml:"x" env:"X"`
	Y         float64 `yaml:"y" env:"Y"`
	Width     float64 `yaml:"width" env:"WIDTH"`
	Height    float64 `yaml:"height" env:"HEIGHT"`
	Scale     float64 `yaml:"scale" env:"SCALE"`
	DotRadius float64 `yaml:"dot_radius" env:"DOT_RADIUS"`
}

// SceneConfig points at the scene fixture loaded into the in-memory host
type SceneConfig struct {
	Path     string   `yaml:"path" env:"PATH"`
	Watch    bool     `yaml:"watch" env:"WATCH"`
	Debounce Duration `yaml:"debounce" env:"DEBOUNCE"`
}

// ServerConfig holds the diagnostic HTTP listener
type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// TelemetryConfig enables OTLP trace export when Endpoint is set
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint,omitempty" env:"ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Duration wraps time.Duration for YAML and environment parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
