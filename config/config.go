package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/LdDl/scene-graph-go/events"
	"github.com/LdDl/scene-graph-go/graph"
	"github.com/LdDl/scene-graph-go/memory"
	"github.com/LdDl/scene-graph-go/scene"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is complete pipeline configuration
type Config struct {
	Scene    scene.Config   `yaml:"scene"`
	Taxonomy scene.Taxonomy `yaml:"taxonomy"`
	Events   events.Config  `yaml:"events"`
	Memory   memory.Config  `yaml:"memory"`
	Graph    graph.Config   `yaml:"graph"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
}

// OutputConfig contains location of per-run artifacts
type OutputConfig struct {
	Dir string `yaml:"dir"` // runs are written to <dir>/<run id>
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// Default returns configuration with every threshold at its default value
func Default() *Config {
	return &Config{
		Scene:    scene.DefaultConfig(),
		Taxonomy: scene.DefaultTaxonomy(),
		Events:   events.DefaultConfig(),
		Memory:   memory.DefaultConfig(),
		Graph:    graph.DefaultConfig(),
		Output: OutputConfig{
			Dir: "output",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads YAML file on top of defaults, so a file only needs to list overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// Validate checks configuration for consistency
func Validate(cfg *Config) error {
	sc := cfg.Scene
	if sc.NearThreshold <= 0 {
		return errors.New("scene.near_threshold_m must be positive")
	}
	if sc.FarThreshold <= sc.NearThreshold {
		return errors.Errorf("scene.far_threshold_m (%g) must be greater than near threshold (%g)", sc.FarThreshold, sc.NearThreshold)
	}
	if sc.DirectionDeadZoneX < 0 || sc.DirectionDeadZoneY < 0 {
		return errors.New("scene direction dead zones must be non-negative")
	}
	if sc.ContactIoU < 0 || sc.ContactIoU > 1 {
		return errors.Errorf("scene.contact_iou must be in [0, 1], got %g", sc.ContactIoU)
	}
	if sc.HandOverlap < 0 || sc.HandOverlap > 1 {
		return errors.Errorf("scene.hand_overlap must be in [0, 1], got %g", sc.HandOverlap)
	}
	if sc.HandDepth <= 0 {
		return errors.New("scene.hand_depth_m must be positive")
	}
	if !strings.Contains(sc.FrameNameFormat, "%") {
		return errors.Errorf("scene.frame_name_format '%s' has no verb for frame number", sc.FrameNameFormat)
	}

	if len(cfg.Taxonomy.Rules) == 0 {
		return errors.New("taxonomy must have at least one rule")
	}
	for i, rule := range cfg.Taxonomy.Rules {
		if rule.Category == "" {
			return errors.Errorf("taxonomy rule %d has no category", i)
		}
		if len(rule.Labels) == 0 && len(rule.Keywords) == 0 {
			return errors.Errorf("taxonomy rule %d (%s) matches nothing", i, rule.Category)
		}
	}

	ev := cfg.Events
	if ev.IdleDowntimeFrames < 0 {
		return errors.New("events.idle_downtime_frames must be non-negative")
	}
	if ev.IdleMinFrames < 1 {
		return errors.New("events.idle_min_frames must be at least 1")
	}
	if ev.RelocationWindow < 2 {
		return errors.New("events.relocation_window must be at least 2")
	}
	if ev.RelocationMinDistance <= 0 || ev.ToolProximity <= 0 {
		return errors.New("events distance thresholds must be positive")
	}
	if ev.DefaultFrameDt <= 0 {
		return errors.New("events.default_frame_dt_s must be positive")
	}
	if ev.Trail.Smooth && (ev.Trail.ProcessNoise <= 0 || ev.Trail.MeasurementNoise <= 0) {
		return errors.New("events.trail noise values must be positive when smoothing is enabled")
	}

	if ev.Performance.MinDistanceM <= 0 {
		return errors.New("events.performance.min_distance_m must be positive")
	}
	if ev.Performance.ProductionScale < 0 || ev.Performance.MovementScale < 0 || ev.Performance.ContinuityScale < 0 {
		return errors.New("events.performance scales must be non-negative")
	}

	switch cfg.Memory.Index {
	case memory.IndexFlat, memory.IndexDense:
	default:
		return errors.Errorf("memory.index must be '%s' or '%s', got '%s'", memory.IndexFlat, memory.IndexDense, cfg.Memory.Index)
	}

	if cfg.Graph.VisualizationFrames < 1 || cfg.Graph.DigestFrames < 1 || cfg.Graph.TopK < 1 {
		return errors.New("graph sizes must be positive")
	}
	if cfg.Output.Dir == "" {
		return errors.New("output.dir is required")
	}
	if _, err := cfg.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses configured log level
func (lc LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return level, errors.Wrapf(err, "log.level '%s'", lc.Level)
	}
	return level, nil
}
