package timeline

import "go.uber.org/zap"

// CoordinatorBuilderOption is a functional option for configuring a Coordinator.
type CoordinatorBuilderOption func(*coordinator)

// WithLogger sets the logger used for clip and sequence events.
//
// Parameters:
//   - logger: the zap logger; nil keeps the no-op default
//
// Returns:
//   - CoordinatorBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) CoordinatorBuilderOption {
	return func(c *coordinator) {
		if logger != nil {
			c.logger = logger.Named("timeline")
		}
	}
}
