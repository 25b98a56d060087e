package environment

import (
	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/loader"
	"go.uber.org/zap"
)

// BuilderOption is a functional option for configuring a Builder via NewBuilder.
type BuilderOption func(*builder)

// WithLogger sets the builder's logger. A nil logger keeps the no-op default.
//
// Parameters:
//   - logger: the parent logger
//
// Returns:
//   - BuilderOption: option function to apply
func WithLogger(logger *zap.Logger) BuilderOption {
	return func(b *builder) {
		if logger != nil {
			b.logger = logger.Named("environment")
		}
	}
}

// WithFetcher sets the fetcher used for background images. Without one, backgrounds are skipped.
func WithFetcher(f loader.Fetcher) BuilderOption {
	return func(b *builder) {
		b.fetcher = f
	}
}

// WithResolver sets how background names map to URLs.
func WithResolver(r loader.AssetResolver) BuilderOption {
	return func(b *builder) {
		b.resolver = r
	}
}

// WithCatalog replaces the embedded catalog. A nil catalog is ignored.
func WithCatalog(c *Catalog) BuilderOption {
	return func(b *builder) {
		if c != nil {
			b.catalog = c
		}
	}
}

// WithClearColor sets the color scenes clear to when they have no background.
func WithClearColor(c common.Color) BuilderOption {
	return func(b *builder) {
		b.clear = c
	}
}
