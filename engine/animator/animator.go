package animator

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
	"github.com/Carmen-Shannon/oxy-vignette/engine/scene"
	"go.uber.org/zap"
)

// ErrUnknownClip is returned by Play for a clip the mixer does not have.
var ErrUnknownClip = errors.New("unknown animation clip")

// PlayOptions controls how a clip is played.
type PlayOptions struct {
	// LoopOnce plays the clip a single time and holds its last pose. Clips authored to
	// loop (model.AnimationClip.Loop) repeat regardless.
	LoopOnce bool
}

// FinishedFunc is called when a one-shot clip reaches its end.
type FinishedFunc func(clip string)

// action is the playback state of one clip.
type action struct {
	clip     *model.AnimationClip
	time     float32
	loop     bool
	finished bool
	order    uint64
}

// mixer is the implementation of the Mixer interface.
type mixer struct {
	mu     *sync.Mutex
	logger *zap.Logger

	clips   map[string]*model.AnimationClip
	nodes   []*scene.Node
	rest    []model.Transform
	actions map[string]*action
	speed   float32
	played  uint64

	listeners  map[uint64]FinishedFunc
	nextListen uint64
}

// Mixer drives the animation clips of one actor. It samples every active clip on Update and
// writes the result into the actor's scene nodes.
//
// Several clips may be active at once. Where two clips animate the same node, the one started
// last wins.
type Mixer interface {
	// Clips returns the names of every clip the mixer can play, sorted.
	//
	// Returns:
	//   - []string: the clip names
	Clips() []string

	// Clip returns the named clip, or nil.
	//
	// Parameters:
	//   - name: the clip name
	//
	// Returns:
	//   - *model.AnimationClip: the clip or nil
	Clip(name string) *model.AnimationClip

	// Play starts or restarts a clip from time zero.
	//
	// Parameters:
	//   - name: the clip to play
	//   - opts: playback options
	//
	// Returns:
	//   - error: ErrUnknownClip if the mixer has no such clip
	Play(name string, opts PlayOptions) error

	// Stop removes a clip from the active set. Affected nodes keep their current pose.
	//
	// Parameters:
	//   - name: the clip to stop
	Stop(name string)

	// Active returns the names of the active clips in start order.
	//
	// Returns:
	//   - []string: the active clip names
	Active() []string

	// Time returns the playback time of an active clip.
	//
	// Parameters:
	//   - name: the clip name
	//
	// Returns:
	//   - float32: the time in seconds
	//   - bool: false if the clip is not active
	Time(name string) (float32, bool)

	// SetSpeed scales the delta passed to Update. Negative values are clamped to zero.
	//
	// Parameters:
	//   - speed: the playback rate, 1 is normal speed
	SetSpeed(speed float32)

	// Update advances every active clip by dt seconds, applies the sampled poses and
	// notifies finished listeners. Listeners run after the mixer lock is released.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	//
	// Returns:
	//   - []string: the clips that finished during this update
	Update(dt float32) []string

	// OnFinished registers a listener for one-shot clip completion.
	//
	// Parameters:
	//   - fn: the listener
	//
	// Returns:
	//   - func(): removes the listener
	OnFinished(fn FinishedFunc) func()

	// ClearListeners removes every finished listener.
	ClearListeners()
}

var _ Mixer = &mixer{}

// NewMixer creates a Mixer over a model's clips and the scene nodes instantiated from it.
// nodes must follow the model's node order; channel NodeIndex values index into it.
// The nodes' current transforms become the rest pose.
//
// Parameters:
//   - clips: the available clips
//   - nodes: the animated nodes, in model order
//   - options: functional options to configure the mixer
//
// Returns:
//   - Mixer: the new mixer
//   - error: an error if a channel targets a node that does not exist
func NewMixer(clips []*model.AnimationClip, nodes []*scene.Node, options ...MixerBuilderOption) (Mixer, error) {
	m := &mixer{
		mu:        &sync.Mutex{},
		logger:    zap.NewNop(),
		clips:     make(map[string]*model.AnimationClip, len(clips)),
		nodes:     nodes,
		rest:      make([]model.Transform, len(nodes)),
		actions:   make(map[string]*action),
		speed:     1,
		listeners: make(map[uint64]FinishedFunc),
	}
	for i, n := range nodes {
		m.rest[i] = n.Transform()
	}
	for _, c := range clips {
		if c == nil {
			continue
		}
		for _, ch := range c.Channels {
			if ch.NodeIndex < 0 || int(ch.NodeIndex) >= len(nodes) {
				return nil, fmt.Errorf("clip %q targets node %d of %d", c.Name, ch.NodeIndex, len(nodes))
			}
		}
		m.clips[c.Name] = c
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

func (m *mixer) Clips() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.clips))
	for name := range m.clips {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *mixer) Clip(name string) *model.AnimationClip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clips[name]
}

func (m *mixer) Play(name string, opts PlayOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clip, ok := m.clips[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownClip, name)
	}
	m.played++
	m.actions[name] = &action{
		clip:  clip,
		loop:  clip.Loop || !opts.LoopOnce,
		order: m.played,
	}
	m.logger.Debug("clip started", zap.String("clip", name), zap.Float32("duration", clip.Duration))
	return nil
}

func (m *mixer) Stop(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.actions, name)
}

func (m *mixer) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ordered := m.orderedActions()
	names := make([]string, len(ordered))
	for i, a := range ordered {
		names[i] = a.clip.Name
	}
	return names
}

func (m *mixer) Time(name string) (float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[name]
	if !ok {
		return 0, false
	}
	return a.time, true
}

func (m *mixer) SetSpeed(speed float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speed = max(speed, 0)
}

func (m *mixer) Update(dt float32) []string {
	m.mu.Lock()
	dt *= m.speed

	var finished []string
	for _, a := range m.orderedActions() {
		if a.finished {
			continue
		}
		a.time += dt
		switch {
		case a.loop && a.clip.Duration > 0:
			for a.time >= a.clip.Duration {
				a.time -= a.clip.Duration
			}
		case !a.loop && a.time >= a.clip.Duration:
			a.time = a.clip.Duration
			a.finished = true
			finished = append(finished, a.clip.Name)
		}
		m.apply(a)
	}

	listeners := make([]FinishedFunc, 0, len(m.listeners))
	if len(finished) > 0 {
		ids := make([]uint64, 0, len(m.listeners))
		for id := range m.listeners {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			listeners = append(listeners, m.listeners[id])
		}
	}
	m.mu.Unlock()

	for _, name := range finished {
		m.logger.Debug("clip finished", zap.String("clip", name))
		for _, fn := range listeners {
			fn(name)
		}
	}
	return finished
}

// apply samples an action's channels into the target nodes. Caller must hold the mutex.
func (m *mixer) apply(a *action) {
	for i := range a.clip.Channels {
		ch := &a.clip.Channels[i]
		idx := int(ch.NodeIndex)
		m.nodes[idx].SetTransform(ch.Sample(a.time, m.rest[idx]))
	}
}

// orderedActions returns the active actions sorted by start order. Caller must hold the mutex.
func (m *mixer) orderedActions() []*action {
	out := make([]*action, 0, len(m.actions))
	for _, a := range m.actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

func (m *mixer) OnFinished(fn FinishedFunc) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextListen
	m.nextListen++
	m.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.listeners, id)
		})
	}
}

func (m *mixer) ClearListeners() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = make(map[uint64]FinishedFunc)
}
