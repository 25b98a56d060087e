package scene

import (
	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// Material is the surface description of a drawable node.
type Material struct {
	// Color is the base color, multiplied with the texture when one is bound.
	Color common.Color

	// Texture is an optional diffuse texture owned by the material.
	Texture *renderer.Resource

	// Unlit draws Color as is, ignoring the light rig.
	Unlit bool
}

// Node is one element of a scene graph. A node optionally carries a mesh and a material,
// both of which it owns: Dispose releases them.
//
// Nodes are not safe for concurrent use. A detached subtree may be built on any goroutine;
// once attached to a Scene it belongs to the scene's host loop.
type Node struct {
	name      string
	transform model.Transform
	visible   bool

	mesh      *renderer.Resource
	material  *Material
	boundsMin mgl32.Vec3
	boundsMax mgl32.Vec3

	parent   *Node
	children []*Node
	disposed bool
}

// NodeOption configures a Node created with NewNode.
type NodeOption func(*Node)

// WithTransform sets the node's local transform.
func WithTransform(t model.Transform) NodeOption {
	return func(n *Node) {
		n.transform = t
	}
}

// WithMesh attaches a mesh and its local bounds to the node.
//
// Parameters:
//   - mesh: the uploaded mesh, owned by the node from now on
//   - boundsMin, boundsMax: the mesh's local axis-aligned bounds
//
// Returns:
//   - NodeOption: option function to apply
func WithMesh(mesh *renderer.Resource, boundsMin, boundsMax mgl32.Vec3) NodeOption {
	return func(n *Node) {
		n.mesh = mesh
		n.boundsMin = boundsMin
		n.boundsMax = boundsMax
	}
}

// WithMaterial sets the node's material. The node takes ownership of its texture.
func WithMaterial(m Material) NodeOption {
	return func(n *Node) {
		n.material = &m
	}
}

// NewNode creates a visible node with an identity transform and the default white material.
//
// Parameters:
//   - name: the node name
//   - options: functional options to configure the node
//
// Returns:
//   - *Node: the new node
func NewNode(name string, options ...NodeOption) *Node {
	n := &Node{
		name:      name,
		transform: model.IdentityTransform(),
		visible:   true,
	}
	for _, opt := range options {
		opt(n)
	}
	return n
}

// Name returns the node's name.
func (n *Node) Name() string {
	return n.name
}

// Transform returns the node's local transform.
func (n *Node) Transform() model.Transform {
	return n.transform
}

// SetTransform replaces the node's local transform.
func (n *Node) SetTransform(t model.Transform) {
	n.transform = t
}

// SetPosition sets the translation component of the local transform.
func (n *Node) SetPosition(p mgl32.Vec3) {
	n.transform.Translation = p
}

// SetUniformScale sets all three scale components of the local transform to s.
func (n *Node) SetUniformScale(s float32) {
	n.transform.Scale = mgl32.Vec3{s, s, s}
}

// Visible reports whether the node and its subtree are drawn.
func (n *Node) Visible() bool {
	return n.visible
}

// SetVisible shows or hides the node and its subtree.
func (n *Node) SetVisible(v bool) {
	n.visible = v
}

// Mesh returns the node's mesh, or nil.
func (n *Node) Mesh() *renderer.Resource {
	return n.mesh
}

// Material returns the node's material. Nodes without one report opaque white.
func (n *Node) Material() Material {
	if n.material == nil {
		return Material{Color: common.White}
	}
	return *n.material
}

// Bounds returns the local bounds of the node's mesh.
func (n *Node) Bounds() (mgl32.Vec3, mgl32.Vec3) {
	return n.boundsMin, n.boundsMax
}

// WorldBounds returns the node's mesh bounds transformed into world space.
func (n *Node) WorldBounds() (mgl32.Vec3, mgl32.Vec3) {
	return common.TransformAABB(n.WorldMatrix(), n.boundsMin, n.boundsMax)
}

// Parent returns the node's parent, or nil for a detached node or scene root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns a copy of the node's children.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Add appends child to the node, detaching it from any previous parent first.
// Adding a node to itself or to one of its descendants is ignored.
//
// Parameters:
//   - child: the node to attach
func (n *Node) Add(child *Node) {
	if child == nil || child == n || child.isAncestorOf(n) {
		return
	}
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

// Remove detaches child from the node.
//
// Returns:
//   - bool: true if child was a direct child of the node
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

func (n *Node) isAncestorOf(other *Node) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// LocalMatrix returns the node's local transform as a matrix.
func (n *Node) LocalMatrix() mgl32.Mat4 {
	return n.transform.Matrix()
}

// WorldMatrix composes the local matrices from the root down to this node.
func (n *Node) WorldMatrix() mgl32.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// Walk visits the node and its descendants depth first. Returning false from fn
// skips the visited node's children.
//
// Parameters:
//   - fn: the visitor
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// Find returns the first node in the subtree with the given name, or nil.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.name == name {
			found = c
			return false
		}
		return true
	})
	return found
}

// Dispose releases the mesh and material texture of every node in the subtree.
// Already disposed nodes are skipped, so repeated calls release nothing twice.
//
// Returns:
//   - int: the number of resources released by this call
func (n *Node) Dispose() int {
	released := 0
	n.Walk(func(c *Node) bool {
		if c.disposed {
			return true
		}
		c.disposed = true
		if c.mesh != nil {
			c.mesh.Release()
			released++
		}
		if c.material != nil && c.material.Texture != nil {
			c.material.Texture.Release()
			released++
		}
		return true
	})
	return released
}

// Disposed reports whether Dispose has reached this node.
func (n *Node) Disposed() bool {
	return n.disposed
}
