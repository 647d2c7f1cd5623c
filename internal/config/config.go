// Package config provides configuration management for playermap.
//
// Settings come from three layers, each overriding the last:
//   - built-in defaults
//   - the config file
//   - PLAYERMAP_* environment variables
//
// Config file locations (priority order):
//  1. $PLAYERMAP_CONFIG
//  2. ./playermap.yaml
//  3. $XDG_CONFIG_HOME/playermap/config.yaml
//  4. ~/.config/playermap/config.yaml
//  5. /etc/playermap/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"playermap/internal/classify"
	"playermap/internal/domain"
	"playermap/internal/marker"
	"playermap/internal/panel"
	"playermap/internal/resolve"
	"playermap/internal/scheduler"
	"playermap/internal/service"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "PLAYERMAP_"

// ErrInvalid is returned by Validate for unusable settings
var ErrInvalid = errors.New("invalid config")

// Load finds and loads the config file, or returns defaults if none found.
// Environment overrides are applied in both cases.
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		cfg := DefaultConfig()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.ApplyEnv(); err != nil {
		return nil, path, err
	}

	return cfg, path, nil
}

// ApplyEnv overlays PLAYERMAP_* environment variables. Unset variables leave
// the current value alone.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	c.applyDefaults()
	return nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the stock engine settings
func DefaultConfig() *Config {
	sched := scheduler.DefaultConfig()
	junk := resolve.DefaultJunkFilter()
	mk := marker.DefaultConfig()
	proj := panel.DefaultProjector()

	return &Config{
		Version: 1,
		Scan: ScanConfig{
			InitialDelay:  Duration(sched.InitialDelay),
			Interval:      Duration(sched.Interval),
			MaxAttempts:   sched.MaxAttempts,
			PassCap:       classify.DefaultPassCap,
			FrameInterval: Duration(100 * time.Millisecond),
		},
		Resolve: ResolveConfig{
			Kinds:      append([]string(nil), resolve.DefaultKinds...),
			RootLabel:  resolve.DefaultRootLabel,
			DepthLimit: junk.DepthLimit,
			DepthAxis:  "y",
		},
		Markers: MarkerConfig{
			AnchorLabel: mk.AnchorLabel,
			PathPrefix:  mk.PathPrefix,
			Name:        mk.MarkerName,
			Material:    mk.Material,
			Scale:       mk.Scale.X,
			OffsetZ:     mk.LocalOffset.Z,
		},
		Panel: PanelConfig{
			X:         proj.Rect.X,
			Y:         proj.Rect.Y,
			Width:     proj.Rect.Width,
			Height:    proj.Rect.Height,
			Scale:     proj.Scale,
			DotRadius: proj.DotRadius,
		},
		Scene: SceneConfig{
			Debounce: Duration(500 * time.Millisecond),
		},
		Server: ServerConfig{Addr: ":3000"},
		Telemetry: TelemetryConfig{
			ServiceName: "playermap",
		},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Version == 0 {
		c.Version = 1
	}
	if c.Scan.FrameInterval == 0 {
		c.Scan.FrameInterval = def.Scan.FrameInterval
	}
	if c.Scan.PassCap == 0 {
		c.Scan.PassCap = def.Scan.PassCap
	}
	if len(c.Resolve.Kinds) == 0 {
		c.Resolve.Kinds = def.Resolve.Kinds
	}
	if c.Resolve.RootLabel == "" {
		c.Resolve.RootLabel = def.Resolve.RootLabel
	}
	if c.Resolve.DepthAxis == "" {
		c.Resolve.DepthAxis = def.Resolve.DepthAxis
	}
	if c.Markers.AnchorLabel == "" {
		c.Markers.AnchorLabel = def.Markers.AnchorLabel
	}
	if c.Markers.Name == "" {
		c.Markers.Name = def.Markers.Name
	}
	if c.Scene.Debounce == 0 {
		c.Scene.Debounce = def.Scene.Debounce
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = def.Telemetry.ServiceName
	}
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	var problems []string

	if err := c.schedulerConfig().Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Scan.PassCap < 1 {
		problems = append(problems, "scan.pass_cap must be positive")
	}
	if c.Scan.FrameInterval.Duration() <= 0 {
		problems = append(problems, "scan.frame_interval must be positive")
	}
	if c.Resolve.DepthLimit <= 0 {
		problems = append(problems, "resolve.depth_limit must be positive")
	}
	switch strings.ToLower(c.Resolve.DepthAxis) {
	case "x", "y", "z":
	default:
		problems = append(problems, fmt.Sprintf("resolve.depth_axis %q is not one of x, y, z", c.Resolve.DepthAxis))
	}
	if c.Markers.Scale <= 0 {
		problems = append(problems, "markers.scale must be positive")
	}
	if c.Panel.Width <= 0 || c.Panel.Height <= 0 {
		problems = append(problems, "panel width and height must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) schedulerConfig() scheduler.Config {
	return scheduler.Config{
		InitialDelay: c.Scan.InitialDelay.Duration(),
		Interval:     c.Scan.Interval.Duration(),
		MaxAttempts:  c.Scan.MaxAttempts,
	}
}

// Keywords returns the classifier keyword list in effect
func (c *Config) Keywords() []string {
	switch {
	case len(c.Scan.Keywords) > 0:
		return c.Scan.Keywords
	case c.Scan.Loose:
		return classify.LooseKeywords
	default:
		return classify.StrictKeywords
	}
}

// Tracker converts the file settings into the engine configuration
func (c *Config) Tracker() service.Config {
	scale := c.Markers.Scale
	return service.Config{
		Classifier: classify.Config{
			Keywords: c.Keywords(),
			PassCap:  c.Scan.PassCap,
		},
		Scheduler: c.schedulerConfig(),
		Resolver: resolve.Config{
			Kinds:     c.Resolve.Kinds,
			RootLabel: c.Resolve.RootLabel,
			Junk: resolve.JunkFilter{
				DepthLimit: c.Resolve.DepthLimit,
				DepthAxis:  domain.ParseAxis(strings.ToLower(c.Resolve.DepthAxis)),
			},
		},
		Markers: marker.Config{
			AnchorLabel: c.Markers.AnchorLabel,
			PathPrefix:  c.Markers.PathPrefix,
			MarkerName:  c.Markers.Name,
			LocalOffset: domain.Vec3{Z: c.Markers.OffsetZ},
			Scale:       domain.Vec3{X: scale, Y: scale, Z: scale},
			Material:    c.Markers.Material,
		},
		RetryOnUnresolved: c.Scan.RetryOnUnresolved,
	}
}

// Projector returns the panel projection settings
func (c *Config) Projector() panel.Projector {
	return panel.Projector{
		Rect: panel.Rect{
			X:      c.Panel.X,
			Y:      c.Panel.Y,
			Width:  c.Panel.Width,
			Height: c.Panel.Height,
		},
		Scale:     c.Panel.Scale,
		DotRadius: c.Panel.DotRadius,
	}
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Scan: delay %s, every %s, max %d attempts, keywords %v\n",
		c.Scan.InitialDelay.Duration(), c.Scan.Interval.Duration(), c.Scan.MaxAttempts, c.Keywords())
	summary += fmt.Sprintf("Resolve: kinds %v, root %q, depth |%s| <= %g\n",
		c.Resolve.Kinds, c.Resolve.RootLabel, c.Resolve.DepthAxis, c.Resolve.DepthLimit)
	summary += fmt.Sprintf("Markers: %q under %q", c.Markers.AnchorLabel, c.Markers.PathPrefix)
	if c.Scene.Path != "" {
		summary += fmt.Sprintf("\nScene: %s (watch=%v)", c.Scene.Path, c.Scene.Watch)
	}
	return summary
}
