package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/LdDl/scene-graph-go/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 1.0, cfg.Scene.NearThreshold)
	assert.Equal(t, 3.0, cfg.Scene.FarThreshold)
	assert.Equal(t, 8, cfg.Events.IdleMinFrames)
	assert.Equal(t, 15, cfg.Events.RelocationWindow)
	assert.Equal(t, memory.IndexFlat, cfg.Memory.Index)
	assert.Equal(t, 50, cfg.Graph.VisualizationFrames)
	assert.Equal(t, 1.0, cfg.Events.Performance.MinDistanceM)
}

func TestLoadOverridesKeepDefaults(t *testing.T) {
	path := writeConfig(t, `
scene:
  near_threshold_m: 0.8
events:
  idle_min_frames: 12
  trail:
    smooth: true
memory:
  index: dense
log:
  level: debug
  json: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.8, cfg.Scene.NearThreshold)
	assert.Equal(t, 3.0, cfg.Scene.FarThreshold)
	assert.Equal(t, 12, cfg.Events.IdleMinFrames)
	assert.Equal(t, 5, cfg.Events.IdleDowntimeFrames)
	assert.True(t, cfg.Events.Trail.Smooth)
	assert.Equal(t, 0.5, cfg.Events.Trail.ProcessNoise)
	assert.Equal(t, memory.IndexDense, cfg.Memory.Index)
	assert.NotEmpty(t, cfg.Taxonomy.Rules)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"far below near":    "scene:\n  far_threshold_m: 0.5\n",
		"unknown index":     "memory:\n  index: hnsw\n",
		"zero window":       "events:\n  relocation_window: 0\n",
		"bad log level":     "log:\n  level: loud\n",
		"empty taxonomy":    "taxonomy:\n  rules: []\n",
		"broken yaml":       "scene: [",
		"frame name verb":   "scene:\n  frame_name_format: frame.jpg\n",
		"zero min distance": "events:\n  performance:\n    min_distance_m: 0\n",
		"negative scale":    "events:\n  performance:\n    movement_scale: -1\n",
	}
	for name, content := range cases {
		_, err := Load(writeConfig(t, content))
		assert.Error(t, err, name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
