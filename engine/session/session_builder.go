package session

import (
	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/effects"
	"github.com/Carmen-Shannon/oxy-vignette/engine/environment"
	"github.com/Carmen-Shannon/oxy-vignette/engine/loader"
	"github.com/Carmen-Shannon/oxy-vignette/engine/profiler"
	"github.com/Carmen-Shannon/oxy-vignette/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-vignette/engine/timeline"
	"github.com/Carmen-Shannon/oxy-vignette/engine/viewport"
	"go.uber.org/zap"
)

// SessionBuilderOption is a functional option for configuring a Session via New.
type SessionBuilderOption func(*session)

// WithLogger sets the session's logger. Every component the session builds logs through a
// child of it. A nil logger keeps the no-op default.
//
// Parameters:
//   - logger: the parent logger
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) SessionBuilderOption {
	return func(s *session) {
		if logger != nil {
			s.logger = logger.Named("session")
		}
	}
}

// WithHost sets the frame host that runs ticks, load completion and resize handling.
// A session without a host fails to initialize.
//
// Parameters:
//   - host: the frame host, such as engine.Engine or scheduler.ManualHost
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithHost(host scheduler.Host) SessionBuilderOption {
	return func(s *session) {
		s.host = host
	}
}

// WithSurface sets the host surface whose size drives the viewport. Without one the
// session renders at 800x600 and never resizes.
func WithSurface(surface viewport.Surface) SessionBuilderOption {
	return func(s *session) {
		s.surface = surface
	}
}

// WithRendererFactory sets how the renderer is created. The default is a headless renderer.
func WithRendererFactory(fn RendererFactory) SessionBuilderOption {
	return func(s *session) {
		s.newRenderer = fn
	}
}

// WithFetcher sets the fetcher for actor bundles and backgrounds. The default reads from
// the working directory.
func WithFetcher(f loader.Fetcher) SessionBuilderOption {
	return func(s *session) {
		s.fetcher = f
	}
}

// WithResolver sets the asset URLs.
func WithResolver(r loader.AssetResolver) SessionBuilderOption {
	return func(s *session) {
		s.resolver = r
	}
}

// WithCatalog replaces the embedded location catalog.
func WithCatalog(c *environment.Catalog) SessionBuilderOption {
	return func(s *session) {
		s.catalog = c
	}
}

// WithClipSet sets the clip names the actor bundles use.
func WithClipSet(set timeline.ClipSet) SessionBuilderOption {
	return func(s *session) {
		s.clips = set
	}
}

// WithBloom sets the bloom pass parameters.
func WithBloom(params effects.BloomParams) SessionBuilderOption {
	return func(s *session) {
		s.bloom = params
	}
}

// WithHighlight sets the outline pass parameters.
func WithHighlight(params effects.HighlightParams) SessionBuilderOption {
	return func(s *session) {
		s.highlight = params
	}
}

// WithClearColor sets the color drawn behind the scene when the location has no background.
func WithClearColor(c common.Color) SessionBuilderOption {
	return func(s *session) {
		s.clearColor = c
	}
}

// WithWorkers sets the number of concurrent loads. Values <= 0 keep the loader default.
func WithWorkers(n int) SessionBuilderOption {
	return func(s *session) {
		s.workers = n
	}
}

// WithProfiler times the advance and render stages of every tick.
func WithProfiler(p *profiler.Profiler) SessionBuilderOption {
	return func(s *session) {
		s.profiler = p
	}
}

// WithOnProgress sets a callback for aggregate load progress in [0, 100]. It runs on the
// loader's worker goroutines, one call at a time.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithOnProgress(fn func(percent float64)) SessionBuilderOption {
	return func(s *session) {
		s.onProgress = fn
	}
}

// WithOnStateChange sets a callback for every state transition.
func WithOnStateChange(fn func(State)) SessionBuilderOption {
	return func(s *session) {
		s.onStateChange = fn
	}
}
