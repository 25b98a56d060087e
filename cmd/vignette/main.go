// Command vignette plays one fight vignette in a window, or headless, and exits when it
// finishes.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine"
	"github.com/Carmen-Shannon/oxy-vignette/engine/environment"
	"github.com/Carmen-Shannon/oxy-vignette/engine/loader"
	"github.com/Carmen-Shannon/oxy-vignette/engine/profiler"
	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer/wgpu_backend"
	"github.com/Carmen-Shannon/oxy-vignette/engine/session"
	"github.com/Carmen-Shannon/oxy-vignette/engine/window"
	"github.com/Carmen-Shannon/oxy-vignette/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	location := flag.String("location", "Asgard", "environment to play in")
	move := flag.String("move", "punch", `winning move; "Critical Hit" selects the power attack`)
	winner := flag.String("winner", "winner", "winner actor id")
	loser := flag.String("loser", "loser", "loser actor id")
	flag.Parse()

	if err := run(*configPath, session.SceneConfig{
		Location:      *location,
		MoveType:      *move,
		WinnerActorID: *winner,
		LoserActorID:  *loser,
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, sceneCfg session.SceneConfig) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// ── Host ────────────────────────────────────────────────────────────
	prof := profiler.NewProfiler(profiler.WithLogger(logger))
	engineOpts := []engine.EngineBuilderOption{
		engine.WithLogger(logger),
		engine.WithProfiler(prof),
		engine.WithProfiling(cfg.Profiling.Enabled),
		engine.WithFrameLimit(cfg.Render.FrameRate),
	}

	sessionOpts := []session.SessionBuilderOption{
		session.WithLogger(logger),
		session.WithClipSet(cfg.Clips),
		session.WithBloom(cfg.Bloom),
		session.WithProfiler(prof),
		session.WithFetcher(loader.NewFSFetcher(os.DirFS(cfg.Assets.Root))),
		session.WithResolver(loader.AssetResolver{
			WinnerModel:   cfg.Assets.WinnerModel,
			LoserModel:    cfg.Assets.LoserModel,
			BackgroundDir: cfg.Assets.Backgrounds,
		}),
		session.WithOnProgress(func(percent float64) {
			logger.Debug("loading", zap.Float64("percent", percent))
		}),
	}

	if cfg.Render.ClearColor != "" {
		clearColor, err := common.ParseHexColor(cfg.Render.ClearColor)
		if err != nil {
			return fmt.Errorf("invalid clear color: %w", err)
		}
		sessionOpts = append(sessionOpts, session.WithClearColor(clearColor))
	}

	if cfg.Assets.Catalog != "" {
		catalog, err := loadCatalog(cfg.Assets.Catalog)
		if err != nil {
			return err
		}
		sessionOpts = append(sessionOpts, session.WithCatalog(catalog))
	}

	// ── Window + Renderer ───────────────────────────────────────────────
	if cfg.Render.Backend == config.BackendWGPU {
		win, err := window.NewWindow(
			window.WithTitle(cfg.Window.Title),
			window.WithSize(cfg.Window.Width, cfg.Window.Height),
		)
		if err != nil {
			return fmt.Errorf("failed to create window: %w", err)
		}
		defer func() { _ = win.Close() }()

		presentMode := renderer.PresentModeUncapped
		if cfg.Render.VSync {
			presentMode = renderer.PresentModeVSync
		}
		engineOpts = append(engineOpts, engine.WithWindow(win))
		sessionOpts = append(sessionOpts,
			session.WithSurface(win),
			session.WithRendererFactory(func(width, height int) (renderer.Renderer, error) {
				backend, err := wgpu_backend.New(win.SurfaceDescriptor(), wgpu_backend.WithPresentMode(presentMode))
				if err != nil {
					return nil, err
				}
				return renderer.NewRenderer(backend, width, height,
					renderer.WithLogger(logger),
					renderer.WithBackendType(renderer.BackendTypeWGPU),
				)
			}),
		)
	}

	eng := engine.NewEngine(engineOpts...)

	// ── Session ─────────────────────────────────────────────────────────
	sceneCfg.OnComplete = eng.Quit
	sessionOpts = append(sessionOpts,
		session.WithHost(eng),
		session.WithOnStateChange(func(s session.State) {
			if s == session.StateError {
				eng.Quit()
			}
		}),
	)
	sess := session.New(sceneCfg, sessionOpts...)
	defer sess.Teardown()

	if err := eng.Run(); err != nil {
		return err
	}
	if err := sess.Err(); err != nil {
		return err
	}
	logger.Info("vignette finished", zap.Stringer("state", sess.State()))
	return nil
}

func loadCatalog(path string) (*environment.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return environment.LoadCatalog(f)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
