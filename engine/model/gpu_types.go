package model

import (
	"encoding/binary"
	"math"
)

// MarshalVertices serializes vertices into the interleaved position/normal layout the mesh
// pipeline reads (VertexStride bytes per vertex, little endian).
//
// Parameters:
//   - vertices: the vertices to pack
//
// Returns:
//   - []byte: the packed vertex buffer
func MarshalVertices(vertices []Vertex) []byte {
	buf := make([]byte, len(vertices)*VertexStride)
	for i, v := range vertices {
		o := i * VertexStride
		binary.LittleEndian.PutUint32(buf[o+0:o+4], math.Float32bits(v.Position[0]))
		binary.LittleEndian.PutUint32(buf[o+4:o+8], math.Float32bits(v.Position[1]))
		binary.LittleEndian.PutUint32(buf[o+8:o+12], math.Float32bits(v.Position[2]))
		binary.LittleEndian.PutUint32(buf[o+12:o+16], math.Float32bits(v.Normal[0]))
		binary.LittleEndian.PutUint32(buf[o+16:o+20], math.Float32bits(v.Normal[1]))
		binary.LittleEndian.PutUint32(buf[o+20:o+24], math.Float32bits(v.Normal[2]))
	}
	return buf
}

// MarshalIndices serializes indices as little endian uint32 values.
//
// Parameters:
//   - indices: the triangle list indices
//
// Returns:
//   - []byte: the packed index buffer
func MarshalIndices(indices []uint32) []byte {
	buf := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], idx)
	}
	return buf
}
