package scene

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/light"
	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
	"go.uber.org/zap"
)

// ErrDisposed is returned when mutating a scene after Dispose.
var ErrDisposed = errors.New("scene disposed")

// scene is the implementation of the Scene interface.
type scene struct {
	mu     *sync.Mutex
	logger *zap.Logger

	name       string
	root       *Node
	lights     []light.Light
	background *renderer.Resource
	clearColor common.Color

	revision uint64
	disposed bool
}

// Scene is a single-owner scene graph: a root node, a light rig and an optional background.
// Every mesh, material texture and background attached to the scene is owned by it and
// released exactly once by Dispose.
//
// Structural changes (Add, Remove, Dispose) are serialized by an internal mutex and counted
// by Revision. Node transforms are updated by the host loop without locking.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Root returns the root node. Do not attach children to it directly; use Add so
	// the change is counted.
	//
	// Returns:
	//   - *Node: the root node
	Root() *Node

	// Add attaches a subtree under the root.
	//
	// Parameters:
	//   - node: the subtree to attach
	//
	// Returns:
	//   - error: ErrDisposed after Dispose
	Add(node *Node) error

	// Remove detaches a subtree from the root without disposing it.
	//
	// Parameters:
	//   - node: the subtree to detach
	//
	// Returns:
	//   - bool: true if the node was a child of the root
	Remove(node *Node) bool

	// AddLight appends a light to the rig.
	//
	// Parameters:
	//   - l: the light to add
	//
	// Returns:
	//   - error: ErrDisposed after Dispose
	AddLight(l light.Light) error

	// Lights returns a copy of the light rig.
	//
	// Returns:
	//   - []light.Light: the lights
	Lights() []light.Light

	// Lighting reduces the light rig for the mesh shader.
	//
	// Returns:
	//   - light.Lighting: the summarized rig
	Lighting() light.Lighting

	// SetBackground replaces the background texture. The previous one is released.
	//
	// Parameters:
	//   - tex: the new background, or nil to clear it
	//
	// Returns:
	//   - error: ErrDisposed after Dispose
	SetBackground(tex *renderer.Resource) error

	// Background returns the background texture, or nil.
	//
	// Returns:
	//   - *renderer.Resource: the background texture
	Background() *renderer.Resource

	// ClearColor returns the color the base pass clears to when there is no background.
	//
	// Returns:
	//   - common.Color: the clear color
	ClearColor() common.Color

	// Walk visits every node below the root, depth first. Returning false skips a node's children.
	//
	// Parameters:
	//   - fn: the visitor
	Walk(fn func(*Node) bool)

	// NodeCount returns the number of nodes below the root.
	//
	// Returns:
	//   - int: the node count
	NodeCount() int

	// Revision returns the number of structural changes made so far.
	//
	// Returns:
	//   - uint64: the revision counter
	Revision() uint64

	// Dispose releases every resource in the graph and the background. Safe to call more than once.
	//
	// Returns:
	//   - int: the number of resources released by this call
	Dispose() int

	// Disposed reports whether Dispose has been called.
	//
	// Returns:
	//   - bool: true once disposed
	Disposed() bool
}

var _ Scene = &scene{}

// NewScene creates an empty scene.
//
// Parameters:
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the new scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:         &sync.Mutex{},
		logger:     zap.NewNop(),
		name:       "scene",
		root:       NewNode("root"),
		clearColor: common.Black,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Root() *Node {
	return s.root
}

func (s *scene) Add(node *Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	s.root.Add(node)
	s.revision++
	s.logger.Debug("node attached", zap.String("node", node.Name()))
	return nil
}

func (s *scene) Remove(node *Node) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.root.Remove(node) {
		return false
	}
	s.revision++
	return true
}

func (s *scene) AddLight(l light.Light) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	s.lights = append(s.lights, l)
	s.revision++
	return nil
}

func (s *scene) Lights() []light.Light {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]light.Light, len(s.lights))
	copy(out, s.lights)
	return out
}

func (s *scene) Lighting() light.Lighting {
	return light.Summarize(s.Lights())
}

func (s *scene) SetBackground(tex *renderer.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	if s.background != nil && s.background != tex {
		s.background.Release()
	}
	s.background = tex
	s.revision++
	return nil
}

func (s *scene) Background() *renderer.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.background
}

func (s *scene) ClearColor() common.Color {
	return s.clearColor
}

func (s *scene) Walk(fn func(*Node) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.root.children {
		c.Walk(fn)
	}
}

func (s *scene) NodeCount() int {
	count := 0
	s.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}

func (s *scene) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

func (s *scene) Dispose() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return 0
	}
	s.disposed = true

	released := s.root.Dispose()
	if s.background != nil {
		s.background.Release()
		s.background = nil
		released++
	}
	s.lights = nil
	s.logger.Debug("scene disposed", zap.String("scene", s.name), zap.Int("released", released))
	return released
}

func (s *scene) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
