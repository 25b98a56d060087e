package wgpu_backend

import "github.com/Carmen-Shannon/oxy-vignette/engine/renderer"

type backendConfig struct {
	presentMode          renderer.PresentMode
	forceFallbackAdapter bool
}

// BackendOption is a functional option applied by New.
type BackendOption func(*backendConfig)

// WithPresentMode sets how frames are presented. Defaults to renderer.PresentModeVSync.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - BackendOption: a function that applies the present mode option
func WithPresentMode(mode renderer.PresentMode) BackendOption {
	return func(c *backendConfig) {
		c.presentMode = mode
	}
}

// WithForceFallbackAdapter requests the software adapter, useful on machines without a GPU.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - BackendOption: a function that applies the adapter option
func WithForceFallbackAdapter(force bool) BackendOption {
	return func(c *backendConfig) {
		c.forceFallbackAdapter = force
	}
}
