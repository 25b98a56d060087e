package session

import "fmt"

// State is the lifecycle position of a Session.
type State int

const (
	// StateIdle is the zero state, before New starts initializing.
	StateIdle State = iota

	// StateInitializing builds the renderer, environment, pipeline and viewport monitor.
	StateInitializing

	// StateLoading waits for both actor bundles.
	StateLoading

	// StateAnimating runs the frame scheduler until the fight sequence finishes.
	StateAnimating

	// StateComplete is reached once the sequence has finished and OnComplete has run.
	StateComplete

	// StateError is terminal. Err reports the cause.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateLoading:
		return "loading"
	case StateAnimating:
		return "animating"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError
}

// Initialization stages named by InitializationError.
const (
	StageConfig      = "config"
	StageRenderer    = "renderer"
	StageEnvironment = "environment"
	StageCamera      = "camera"
	StagePipeline    = "pipeline"
	StageViewport    = "viewport"
	StageLoader      = "loader"
	StageTimeline    = "timeline"
	StageScheduler   = "scheduler"
)

// InitializationError reports which stage of building a session failed.
type InitializationError struct {
	Stage string
	Cause error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("failed to initialize %s: %v", e.Stage, e.Cause)
}

func (e *InitializationError) Unwrap() error {
	return e.Cause
}

func initError(stage string, err error) error {
	return &InitializationError{Stage: stage, Cause: err}
}
