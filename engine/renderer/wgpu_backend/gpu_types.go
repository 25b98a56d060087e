package wgpu_backend

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
)

// meshShaderSource is the lit/unlit mesh program. Its MeshUniforms struct matches gpuMeshUniforms.
//
//go:embed assets/mesh.wgsl
var meshShaderSource string

// effectShaderSource is the fullscreen effect program. Its EffectUniforms struct matches gpuEffectUniforms.
//
//go:embed assets/effect.wgsl
var effectShaderSource string

const (
	meshUniformSize   = 192
	effectUniformSize = 80
)

// gpuMeshUniforms is the per-draw uniform block of the mesh pipeline.
// Size: 192 bytes (two mat4x4 followed by four vec4).
type gpuMeshUniforms struct {
	Model    [16]float32 // offset   0
	ViewProj [16]float32 // offset  64
	Color    [4]float32  // offset 128
	Ambient  [4]float32  // offset 144: rgb ambient, w = unlit flag
	KeyDir   [4]float32  // offset 160
	KeyColor [4]float32  // offset 176
}

func newGPUMeshUniforms(p renderer.DrawParams) gpuMeshUniforms {
	u := gpuMeshUniforms{
		Model:    p.Model,
		ViewProj: p.ViewProjection,
		Color:    p.Color,
	}
	amb := p.Lighting.Ambient
	u.Ambient = [4]float32{amb[0], amb[1], amb[2], 0}
	if p.Unlit {
		u.Ambient[3] = 1
	}
	dir := p.Lighting.KeyDirection
	u.KeyDir = [4]float32{dir[0], dir[1], dir[2], 0}
	col := p.Lighting.KeyColor
	u.KeyColor = [4]float32{col[0], col[1], col[2], 0}
	return u
}

// Marshal serializes the uniform block for queue upload.
//
// Returns:
//   - []byte: meshUniformSize bytes
func (u *gpuMeshUniforms) Marshal() []byte {
	buf := make([]byte, 0, meshUniformSize)
	buf = appendFloats(buf, u.Model[:]...)
	buf = appendFloats(buf, u.ViewProj[:]...)
	buf = appendFloats(buf, u.Color[:]...)
	buf = appendFloats(buf, u.Ambient[:]...)
	buf = appendFloats(buf, u.KeyDir[:]...)
	buf = appendFloats(buf, u.KeyColor[:]...)
	return buf
}

// gpuEffectUniforms is the uniform block of the fullscreen effect pipeline.
// Size: 80 bytes.
type gpuEffectUniforms struct {
	Mode       uint32     // offset  0
	Strength   float32    // offset  4
	Radius     float32    // offset  8
	Threshold  float32    // offset 12
	Direction  [2]float32 // offset 16
	Texel      [2]float32 // offset 24
	Thickness  float32    // offset 32
	Glow       float32    // offset 36
	_          [2]float32 // offset 40
	Edge       [4]float32 // offset 48
	HiddenEdge [4]float32 // offset 64
}

func newGPUEffectUniforms(effect renderer.Effect, p renderer.EffectParams, width, height int) gpuEffectUniforms {
	u := gpuEffectUniforms{
		Mode:       uint32(effect),
		Strength:   p.Strength,
		Radius:     p.Radius,
		Threshold:  p.Threshold,
		Direction:  p.Direction,
		Thickness:  p.Thickness,
		Glow:       p.Glow,
		Edge:       p.EdgeColor,
		HiddenEdge: p.HiddenEdgeColor,
	}
	if width > 0 && height > 0 {
		u.Texel = [2]float32{1 / float32(width), 1 / float32(height)}
	}
	return u
}

// Marshal serializes the uniform block for queue upload.
//
// Returns:
//   - []byte: effectUniformSize bytes
func (u *gpuEffectUniforms) Marshal() []byte {
	buf := make([]byte, 0, effectUniformSize)
	buf = binary.LittleEndian.AppendUint32(buf, u.Mode)
	buf = appendFloats(buf, u.Strength, u.Radius, u.Threshold)
	buf = appendFloats(buf, u.Direction[:]...)
	buf = appendFloats(buf, u.Texel[:]...)
	buf = appendFloats(buf, u.Thickness, u.Glow, 0, 0)
	buf = appendFloats(buf, u.Edge[:]...)
	buf = appendFloats(buf, u.HiddenEdge[:]...)
	return buf
}

func appendFloats(buf []byte, values ...float32) []byte {
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}
