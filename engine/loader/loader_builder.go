package loader

import (
	"go.uber.org/zap"
)

// LoaderBuilderOption is a functional option for configuring an AssetLoader via NewAssetLoader.
type LoaderBuilderOption func(*assetLoader)

// WithLogger sets the loader's logger. A nil logger keeps the no-op default.
//
// Parameters:
//   - logger: the parent logger
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) LoaderBuilderOption {
	return func(l *assetLoader) {
		if logger != nil {
			l.logger = logger.Named("loader")
		}
	}
}

// WithLoopingClips marks the named clips as looping in every mixer the loader creates.
//
// Parameters:
//   - names: clip names, e.g. the idle clip
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithLoopingClips(names ...string) LoaderBuilderOption {
	return func(l *assetLoader) {
		for _, n := range names {
			if n != "" {
				l.looping[n] = true
			}
		}
	}
}

// WithWorkers sets the worker pool size used by LoadAll. Values <= 0 are ignored.
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *assetLoader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithBackendType selects the bundle format backend.
func WithBackendType(t LoaderBackendType) LoaderBuilderOption {
	return func(l *assetLoader) {
		l.backendType = t
	}
}
