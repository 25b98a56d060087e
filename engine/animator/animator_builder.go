package animator

import "go.uber.org/zap"

// MixerBuilderOption is a functional option for configuring a Mixer during construction.
type MixerBuilderOption func(*mixer)

// WithSpeed sets the initial playback rate.
//
// Parameters:
//   - speed: the playback rate, 1 is normal speed
//
// Returns:
//   - MixerBuilderOption: a function that applies the speed option to a mixer
func WithSpeed(speed float32) MixerBuilderOption {
	return func(m *mixer) {
		m.speed = max(speed, 0)
	}
}

// WithLogger sets the logger used for clip start and finish events.
//
// Parameters:
//   - logger: the zap logger; nil keeps the no-op default
//
// Returns:
//   - MixerBuilderOption: a function that applies the logger option to a mixer
func WithLogger(logger *zap.Logger) MixerBuilderOption {
	return func(m *mixer) {
		if logger != nil {
			m.logger = logger.Named("mixer")
		}
	}
}
