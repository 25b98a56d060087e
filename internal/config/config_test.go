package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-vignette/engine/effects"
	"github.com/Carmen-Shannon/oxy-vignette/engine/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vignette.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, BackendWGPU, cfg.Render.Backend)
	assert.Equal(t, timeline.DefaultClipSet(), cfg.Clips)
	assert.Equal(t, effects.DefaultBloomParams(), cfg.Bloom)
	assert.Equal(t, "animations/assets/winnerModel.glb", cfg.Assets.WinnerModel)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Profiling.Enabled)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[window]
title = "Arena"
width = 1280

[render]
backend = "headless"
frame_rate = 30

[clips]
power_attack = "uppercut"

[bloom]
strength = 2.0

[logging]
format = "json"

[profiling]
enabled = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Arena", cfg.Window.Title)
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, BackendHeadless, cfg.Render.Backend)
	assert.Equal(t, 30.0, cfg.Render.FrameRate)
	assert.Equal(t, "uppercut", cfg.Clips.PowerAttack)
	assert.Equal(t, "punch", cfg.Clips.Attack)
	assert.Equal(t, float32(2), cfg.Bloom.Strength)
	assert.Equal(t, float32(0.4), cfg.Bloom.Radius)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Profiling.Enabled)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[window]
width = 1280
`)
	t.Setenv("VIGNETTE_WINDOW_WIDTH", "1024")
	t.Setenv("VIGNETTE_RENDER_BACKEND", "headless")
	t.Setenv("VIGNETTE_ASSETS_ROOT", "/srv/vignette")
	t.Setenv("VIGNETTE_CLIPS_DEFENSE", "block")
	t.Setenv("VIGNETTE_BLOOM_THRESHOLD", "0.5")
	t.Setenv("VIGNETTE_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Window.Width)
	assert.Equal(t, BackendHeadless, cfg.Render.Backend)
	assert.Equal(t, "/srv/vignette", cfg.Assets.Root)
	assert.Equal(t, "block", cfg.Clips.Defense)
	assert.Equal(t, float32(0.5), cfg.Bloom.Threshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed toml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "[window\nwidth = "))
		assert.ErrorContains(t, err, "parse config")
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("VIGNETTE_WINDOW_HEIGHT", "tall")
		_, err := Load("")
		assert.ErrorContains(t, err, "parse env")
	})

	t.Run("invalid settings", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
[window]
width = 0

[render]
backend = "vulkan"

[clips]
defense = ""
`))
		require.Error(t, err)
		assert.ErrorContains(t, err, "window size")
		assert.ErrorContains(t, err, `unknown render backend "vulkan"`)
		assert.ErrorContains(t, err, "clips are required")
	})
}
