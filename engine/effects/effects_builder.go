package effects

import (
	"go.uber.org/zap"
)

// PipelineBuilderOption is a functional option for configuring a Pipeline via Build.
type PipelineBuilderOption func(*pipeline)

// WithLogger sets the pipeline's logger. A nil logger keeps the no-op default.
//
// Parameters:
//   - logger: the parent logger
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) PipelineBuilderOption {
	return func(p *pipeline) {
		if logger != nil {
			p.logger = logger.Named("effects")
		}
	}
}

// WithSize overrides the initial buffer size, which otherwise follows the renderer.
func WithSize(width, height int) PipelineBuilderOption {
	return func(p *pipeline) {
		p.width, p.height = width, height
	}
}

// WithHighlightParams sets the outline parameters used by AddHighlight.
func WithHighlightParams(params HighlightParams) PipelineBuilderOption {
	return func(p *pipeline) {
		p.highlight = params
	}
}
