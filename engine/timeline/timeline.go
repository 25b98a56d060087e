package timeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-vignette/engine/animator"
	"github.com/Carmen-Shannon/oxy-vignette/engine/scene"
	"go.uber.org/zap"
)

var (
	// ErrUnknownActor is returned for an actor id that was never registered.
	ErrUnknownActor = errors.New("unknown actor")

	// ErrDuplicateActor is returned when registering an actor id twice.
	ErrDuplicateActor = errors.New("actor already registered")

	// ErrLoopingStep is returned when a sequence step names a clip that loops and would never finish.
	ErrLoopingStep = errors.New("sequence step names a looping clip")

	// ErrTickAlreadyAdvanced is returned when Advance is called twice for the same tick.
	ErrTickAlreadyAdvanced = errors.New("tick already advanced")

	// ErrSequenceRunning is returned when starting a sequence while another is pending.
	ErrSequenceRunning = errors.New("sequence already running")

	// ErrEmptySequence is returned by RunSequence for an empty step list.
	ErrEmptySequence = errors.New("sequence has no steps")
)

// PlayOptions controls how Play starts a clip.
type PlayOptions struct {
	// LoopOnce plays the clip a single time. Otherwise it repeats and never fires finished.
	LoopOnce bool
}

// FinishedFunc is called when an actor's one-shot clip completes.
type FinishedFunc func(actorID, clip string)

// Step is one entry of an ordered sequence: play Clip on ActorID once, then call OnDone.
type Step struct {
	ActorID string
	Clip    string
	OnDone  func()
}

// ActorState is a snapshot of one registered actor. The node and mixer are not owned by it.
type ActorState struct {
	ActorID    string
	ModelNode  *scene.Node
	Mixer      animator.Mixer
	ActiveClip string
	Finished   bool
}

type actor struct {
	state       ActorState
	listeners   map[uint64]FinishedFunc
	unsubscribe func()
}

// coordinator is the implementation of the Coordinator interface.
type coordinator struct {
	mu     *sync.Mutex
	logger *zap.Logger

	actors   map[string]*actor
	order    []string
	nextID   uint64
	steps    []Step
	ticked   bool
	lastTick uint64
}

// Coordinator owns the mixers of every actor in a vignette, advances them once per tick and
// sequences clips across actors with an ordered step list.
type Coordinator interface {
	// RegisterActor adds an actor. The coordinator subscribes to the mixer's finished events.
	//
	// Parameters:
	//   - actorID: the actor id
	//   - node: the actor's model root
	//   - mixer: the actor's mixer
	//
	// Returns:
	//   - error: ErrDuplicateActor if the id is taken
	RegisterActor(actorID string, node *scene.Node, mixer animator.Mixer) error

	// Actors returns the registered actor ids in registration order.
	//
	// Returns:
	//   - []string: the actor ids
	Actors() []string

	// ActorState returns a snapshot of an actor.
	//
	// Parameters:
	//   - actorID: the actor id
	//
	// Returns:
	//   - ActorState: the snapshot
	//   - bool: false if the actor is not registered
	ActorState(actorID string) (ActorState, bool)

	// Play starts a clip on an actor.
	//
	// Parameters:
	//   - actorID: the actor id
	//   - clip: the clip name
	//   - opts: playback options
	//
	// Returns:
	//   - error: ErrUnknownActor, or the mixer's error for an unknown clip
	Play(actorID, clip string, opts PlayOptions) error

	// OnFinished registers a listener for an actor's one-shot clip completions.
	//
	// Parameters:
	//   - actorID: the actor id
	//   - fn: the listener
	//
	// Returns:
	//   - func(): removes the listener
	//   - error: ErrUnknownActor if the actor is not registered
	OnFinished(actorID string, fn FinishedFunc) (func(), error)

	// Advance moves every mixer forward by dt. Finished listeners and sequence steps run
	// synchronously inside the call.
	//
	// Parameters:
	//   - tick: the scheduler tick number
	//   - dt: elapsed seconds
	//
	// Returns:
	//   - error: ErrTickAlreadyAdvanced if tick was already advanced
	Advance(tick uint64, dt float32) error

	// RunSequence validates the steps and starts the first one. Each following step starts
	// when the previous step's clip finishes, after the previous OnDone has run.
	//
	// Parameters:
	//   - steps: the ordered steps
	//
	// Returns:
	//   - error: ErrEmptySequence, ErrSequenceRunning, ErrUnknownActor, ErrLoopingStep
	//     or an unknown clip error
	RunSequence(steps []Step) error

	// PendingSteps returns the number of steps not yet finished.
	//
	// Returns:
	//   - int: the pending step count
	PendingSteps() int

	// UnsubscribeAll removes every listener, the mixer subscriptions and any pending sequence.
	// Safe to call more than once.
	UnsubscribeAll()
}

var _ Coordinator = &coordinator{}

// NewCoordinator creates an empty Coordinator.
//
// Parameters:
//   - options: functional options to configure the coordinator
//
// Returns:
//   - Coordinator: the new coordinator
func NewCoordinator(options ...CoordinatorBuilderOption) Coordinator {
	c := &coordinator{
		mu:     &sync.Mutex{},
		logger: zap.NewNop(),
		actors: make(map[string]*actor),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *coordinator) RegisterActor(actorID string, node *scene.Node, mixer animator.Mixer) error {
	if mixer == nil {
		return fmt.Errorf("actor %q has no mixer", actorID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.actors[actorID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateActor, actorID)
	}
	a := &actor{
		state:     ActorState{ActorID: actorID, ModelNode: node, Mixer: mixer},
		listeners: make(map[uint64]FinishedFunc),
	}
	a.unsubscribe = mixer.OnFinished(func(clip string) {
		c.handleFinished(actorID, clip)
	})
	c.actors[actorID] = a
	c.order = append(c.order, actorID)
	c.logger.Debug("actor registered", zap.String("actor", actorID), zap.Strings("clips", mixer.Clips()))
	return nil
}

func (c *coordinator) Actors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *coordinator) ActorState(actorID string) (ActorState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.actors[actorID]
	if !ok {
		return ActorState{}, false
	}
	return a.state, true
}

func (c *coordinator) Play(actorID, clip string, opts PlayOptions) error {
	c.mu.Lock()
	a, ok := c.actors[actorID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownActor, actorID)
	}
	return c.play(a, clip, opts)
}

func (c *coordinator) play(a *actor, clip string, opts PlayOptions) error {
	if err := a.state.Mixer.Play(clip, animator.PlayOptions{LoopOnce: opts.LoopOnce}); err != nil {
		return fmt.Errorf("failed to play %q on %q: %w", clip, a.state.ActorID, err)
	}
	c.mu.Lock()
	a.state.ActiveClip = clip
	a.state.Finished = false
	c.mu.Unlock()
	c.logger.Debug("clip started", zap.String("actor", a.state.ActorID), zap.String("clip", clip), zap.Bool("loop_once", opts.LoopOnce))
	return nil
}

func (c *coordinator) OnFinished(actorID string, fn FinishedFunc) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.actors[actorID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActor, actorID)
	}
	id := c.nextID
	c.nextID++
	a.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(a.listeners, id)
	}, nil
}

func (c *coordinator) Advance(tick uint64, dt float32) error {
	c.mu.Lock()
	if c.ticked && tick <= c.lastTick {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrTickAlreadyAdvanced, tick)
	}
	c.ticked = true
	c.lastTick = tick
	mixers := make([]animator.Mixer, 0, len(c.order))
	for _, id := range c.order {
		mixers = append(mixers, c.actors[id].state.Mixer)
	}
	c.mu.Unlock()

	for _, m := range mixers {
		m.Update(dt)
	}
	return nil
}

func (c *coordinator) RunSequence(steps []Step) error {
	if len(steps) == 0 {
		return ErrEmptySequence
	}
	c.mu.Lock()
	if len(c.steps) > 0 {
		c.mu.Unlock()
		return ErrSequenceRunning
	}
	for i, s := range steps {
		a, ok := c.actors[s.ActorID]
		if !ok {
			c.mu.Unlock()
			return fmt.Errorf("step %d: %w: %q", i, ErrUnknownActor, s.ActorID)
		}
		clip := a.state.Mixer.Clip(s.Clip)
		if clip == nil {
			c.mu.Unlock()
			return fmt.Errorf("step %d: %w: %q on %q", i, animator.ErrUnknownClip, s.Clip, s.ActorID)
		}
		if clip.Loop {
			c.mu.Unlock()
			return fmt.Errorf("step %d: %w: %q on %q", i, ErrLoopingStep, s.Clip, s.ActorID)
		}
	}
	c.steps = append([]Step(nil), steps...)
	first := c.steps[0]
	a := c.actors[first.ActorID]
	c.mu.Unlock()

	c.logger.Debug("sequence started", zap.Int("steps", len(steps)))
	return c.play(a, first.Clip, PlayOptions{LoopOnce: true})
}

func (c *coordinator) PendingSteps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.steps)
}

// handleFinished runs on the mixer's Update path for every finished one-shot clip.
func (c *coordinator) handleFinished(actorID, clip string) {
	c.mu.Lock()
	a, ok := c.actors[actorID]
	if !ok {
		c.mu.Unlock()
		return
	}
	if a.state.ActiveClip == clip {
		a.state.Finished = true
	}
	listeners := make([]FinishedFunc, 0, len(a.listeners))
	for id := uint64(0); id < c.nextID; id++ {
		if fn, ok := a.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}

	var done *Step
	var next *actor
	var nextClip string
	if len(c.steps) > 0 && c.steps[0].ActorID == actorID && c.steps[0].Clip == clip {
		step := c.steps[0]
		done = &step
		c.steps = c.steps[1:]
		if len(c.steps) > 0 {
			next = c.actors[c.steps[0].ActorID]
			nextClip = c.steps[0].Clip
		}
	}
	c.mu.Unlock()

	c.logger.Debug("clip finished", zap.String("actor", actorID), zap.String("clip", clip))
	for _, fn := range listeners {
		fn(actorID, clip)
	}
	if done == nil {
		return
	}
	if done.OnDone != nil {
		done.OnDone()
	}
	if next != nil {
		if err := c.play(next, nextClip, PlayOptions{LoopOnce: true}); err != nil {
			c.logger.Error("failed to start sequence step", zap.Error(err))
		}
	}
}

func (c *coordinator) UnsubscribeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.order {
		a := c.actors[id]
		if a.unsubscribe != nil {
			a.unsubscribe()
			a.unsubscribe = nil
		}
		a.listeners = make(map[uint64]FinishedFunc)
	}
	c.steps = nil
}
