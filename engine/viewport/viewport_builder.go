package viewport

import "go.uber.org/zap"

// MonitorBuilderOption is a functional option for configuring a Monitor via NewMonitor.
type MonitorBuilderOption func(*monitor)

// WithLogger sets the logger for resize events.
//
// Parameters:
//   - logger: the zap logger; nil keeps the no-op default
//
// Returns:
//   - MonitorBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) MonitorBuilderOption {
	return func(m *monitor) {
		if logger != nil {
			m.logger = logger.Named("viewport")
		}
	}
}
