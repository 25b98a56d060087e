// Package config loads the vignette harness configuration from a TOML file with
// VIGNETTE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/Carmen-Shannon/oxy-vignette/engine/effects"
	"github.com/Carmen-Shannon/oxy-vignette/engine/timeline"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VIGNETTE_"

// Render backends.
const (
	BackendWGPU     = "wgpu"
	BackendHeadless = "headless"
)

type Config struct {
	Window    WindowConfig        `toml:"window" envPrefix:"WINDOW_"`
	Render    RenderConfig        `toml:"render" envPrefix:"RENDER_"`
	Assets    AssetsConfig        `toml:"assets" envPrefix:"ASSETS_"`
	Clips     timeline.ClipSet    `toml:"clips" envPrefix:"CLIPS_"`
	Bloom     effects.BloomParams `toml:"bloom" envPrefix:"BLOOM_"`
	Logging   LoggingConfig       `toml:"logging" envPrefix:"LOG_"`
	Profiling ProfilingConfig     `toml:"profiling" envPrefix:"PROFILING_"`
}

type WindowConfig struct {
	Title  string `toml:"title" env:"TITLE"`
	Width  int    `toml:"width" env:"WIDTH"`
	Height int    `toml:"height" env:"HEIGHT"`
}

type RenderConfig struct {
	Backend    string  `toml:"backend" env:"BACKEND"` // "wgpu" or "headless"
	VSync      bool    `toml:"vsync" env:"VSYNC"`
	FrameRate  float64 `toml:"frame_rate" env:"FRAME_RATE"` // 0 = uncapped
	ClearColor string  `toml:"clear_color" env:"CLEAR_COLOR"`
}

type AssetsConfig struct {
	Root        string `toml:"root" env:"ROOT"`
	WinnerModel string `toml:"winner_model" env:"WINNER_MODEL"`
	LoserModel  string `toml:"loser_model" env:"LOSER_MODEL"`
	Backgrounds string `toml:"backgrounds" env:"BACKGROUNDS"`
	Catalog     string `toml:"catalog" env:"CATALOG"` // optional YAML catalog replacing the embedded one
}

type LoggingConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"` // "json" or "console"
}

type ProfilingConfig struct {
	Enabled bool `toml:"enabled" env:"ENABLED"`
}

// Load reads the TOML file at path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv applies VIGNETTE_* environment variables to target. Unset variables leave the
// existing values alone.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	switch c.Render.Backend {
	case BackendWGPU, BackendHeadless:
	default:
		errs = append(errs, fmt.Errorf("unknown render backend %q", c.Render.Backend))
	}
	if c.Render.FrameRate < 0 {
		errs = append(errs, fmt.Errorf("frame rate must not be negative, got %v", c.Render.FrameRate))
	}
	if c.Clips.Attack == "" || c.Clips.PowerAttack == "" || c.Clips.Defense == "" {
		errs = append(errs, errors.New("attack, power attack and defense clips are required"))
	}
	if c.Bloom.Strength < 0 || c.Bloom.Radius < 0 {
		errs = append(errs, errors.New("bloom strength and radius must not be negative"))
	}
	return errors.Join(errs...)
}

func defaults() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Vignette",
			Width:  800,
			Height: 600,
		},
		Render: RenderConfig{
			Backend:    BackendWGPU,
			VSync:      true,
			FrameRate:  60,
			ClearColor: "#000000",
		},
		Assets: AssetsConfig{
			Root:        ".",
			WinnerModel: "animations/assets/winnerModel.glb",
			LoserModel:  "animations/assets/loserModel.glb",
			Backgrounds: "animations/assets/backgrounds",
		},
		Clips: timeline.DefaultClipSet(),
		Bloom: effects.DefaultBloomParams(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
