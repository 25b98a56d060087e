package scheduler

import "go.uber.org/zap"

// FrameSchedulerBuilderOption is a functional option for configuring a FrameScheduler via NewFrameScheduler.
type FrameSchedulerBuilderOption func(*frameScheduler)

// WithLogger sets the logger used for recovered tick panics.
//
// Parameters:
//   - logger: the zap logger; nil keeps the no-op default
//
// Returns:
//   - FrameSchedulerBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) FrameSchedulerBuilderOption {
	return func(s *frameScheduler) {
		if logger != nil {
			s.logger = logger.Named("scheduler")
		}
	}
}

// WithErrorHandler sets the function called with the error of a failed tick, after the
// scheduler has stopped. It runs on the host loop.
//
// Parameters:
//   - fn: the handler
//
// Returns:
//   - FrameSchedulerBuilderOption: option function to apply
func WithErrorHandler(fn func(error)) FrameSchedulerBuilderOption {
	return func(s *frameScheduler) {
		s.onError = fn
	}
}
