package model

import (
	"fmt"
	"sort"
)

// Clip returns the animation clip with the given name, or nil.
//
// Parameters:
//   - name: the clip name
//
// Returns:
//   - *AnimationClip: the clip or nil if the model has none by that name
func (m *ImportedModel) Clip(name string) *AnimationClip {
	for _, c := range m.Animations {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ClipNames returns the names of all animation clips, sorted.
func (m *ImportedModel) ClipNames() []string {
	names := make([]string, 0, len(m.Animations))
	for _, c := range m.Animations {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the hierarchy for dangling references.
//
// Returns:
//   - error: the first inconsistency found, or nil
func (m *ImportedModel) Validate() error {
	for i, n := range m.Nodes {
		if n.Parent >= len(m.Nodes) {
			return fmt.Errorf("node %d: parent %d out of range", i, n.Parent)
		}
		if n.MeshIndex >= len(m.Meshes) {
			return fmt.Errorf("node %d: mesh %d out of range", i, n.MeshIndex)
		}
		if n.MaterialIndex >= len(m.Materials) {
			return fmt.Errorf("node %d: material %d out of range", i, n.MaterialIndex)
		}
		for _, c := range n.Children {
			if c < 0 || c >= len(m.Nodes) {
				return fmt.Errorf("node %d: child %d out of range", i, c)
			}
		}
	}
	for _, r := range m.Roots {
		if r < 0 || r >= len(m.Nodes) {
			return fmt.Errorf("root %d out of range", r)
		}
	}
	for _, clip := range m.Animations {
		for _, ch := range clip.Channels {
			if int(ch.NodeIndex) >= len(m.Nodes) || ch.NodeIndex < 0 {
				return fmt.Errorf("clip %q: channel targets node %d out of range", clip.Name, ch.NodeIndex)
			}
		}
	}
	return nil
}

// ComputeBounds recalculates BoundingMin/BoundingMax from the vertex positions.
func (d *MeshData) ComputeBounds() {
	if len(d.Vertices) == 0 {
		return
	}
	lo := d.Vertices[0].Position
	hi := lo
	for _, v := range d.Vertices[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], v.Position[k])
			hi[k] = max(hi[k], v.Position[k])
		}
	}
	d.BoundingMin = lo
	d.BoundingMax = hi
}
