package model

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// NewBox builds an axis-aligned box centered on the origin with per-face normals.
//
// Parameters:
//   - width, height, depth: the box extents along x, y and z
//
// Returns:
//   - MeshData: 24 vertices and 36 indices
func NewBox(width, height, depth float32) MeshData {
	hx, hy, hz := width/2, height/2, depth/2
	faces := []struct {
		normal  mgl32.Vec3
		corners [4]mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz}}},
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{hx, -hy, -hz}, {-hx, -hy, -hz}, {-hx, hy, -hz}, {hx, hy, -hz}}},
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{hx, -hy, hz}, {hx, -hy, -hz}, {hx, hy, -hz}, {hx, hy, hz}}},
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-hx, -hy, -hz}, {-hx, -hy, hz}, {-hx, hy, hz}, {-hx, hy, -hz}}},
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-hx, hy, hz}, {hx, hy, hz}, {hx, hy, -hz}, {-hx, hy, -hz}}},
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, -hy, hz}, {-hx, -hy, hz}}},
	}

	mesh := MeshData{Name: "box"}
	for _, f := range faces {
		base := uint32(len(mesh.Vertices))
		for _, c := range f.corners {
			mesh.Vertices = append(mesh.Vertices, Vertex{Position: c, Normal: f.normal})
		}
		mesh.Indices = append(mesh.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	mesh.ComputeBounds()
	return mesh
}

// NewCylinder builds a capped cylinder along the y axis centered on the origin.
//
// Parameters:
//   - radiusTop, radiusBottom: the cap radii
//   - height: the extent along y
//   - segments: radial subdivisions, at least 3
//
// Returns:
//   - MeshData: the cylinder geometry
func NewCylinder(radiusTop, radiusBottom, height float32, segments int) MeshData {
	segments = max(segments, 3)
	half := height / 2
	mesh := MeshData{Name: "cylinder"}

	// side normals tilt when the radii differ
	slope := (radiusBottom - radiusTop) / height
	for i := 0; i <= segments; i++ {
		theta := float64(i) / float64(segments) * 2 * math.Pi
		sin, cos := float32(math.Sin(theta)), float32(math.Cos(theta))
		n := mgl32.Vec3{sin, slope, cos}.Normalize()
		mesh.Vertices = append(mesh.Vertices,
			Vertex{Position: [3]float32{radiusTop * sin, half, radiusTop * cos}, Normal: n},
			Vertex{Position: [3]float32{radiusBottom * sin, -half, radiusBottom * cos}, Normal: n},
		)
	}
	for i := 0; i < segments; i++ {
		a := uint32(i * 2)
		mesh.Indices = append(mesh.Indices, a, a+1, a+3, a, a+3, a+2)
	}

	appendCap(&mesh, radiusTop, half, segments, 1)
	appendCap(&mesh, radiusBottom, -half, segments, -1)
	mesh.ComputeBounds()
	return mesh
}

// NewCircle builds a flat disc in the xy plane facing +z.
//
// Parameters:
//   - radius: the disc radius
//   - segments: radial subdivisions, at least 3
//
// Returns:
//   - MeshData: the disc geometry
func NewCircle(radius float32, segments int) MeshData {
	segments = max(segments, 3)
	mesh := MeshData{Name: "circle"}
	n := [3]float32{0, 0, 1}
	mesh.Vertices = append(mesh.Vertices, Vertex{Normal: n})
	for i := 0; i <= segments; i++ {
		theta := float64(i) / float64(segments) * 2 * math.Pi
		mesh.Vertices = append(mesh.Vertices, Vertex{
			Position: [3]float32{radius * float32(math.Cos(theta)), radius * float32(math.Sin(theta)), 0},
			Normal:   n,
		})
	}
	for i := 1; i <= segments; i++ {
		mesh.Indices = append(mesh.Indices, 0, uint32(i), uint32(i+1))
	}
	mesh.ComputeBounds()
	return mesh
}

// NewSphere builds a UV sphere centered on the origin.
//
// Parameters:
//   - radius: the sphere radius
//   - widthSegments: longitudinal subdivisions, at least 3
//   - heightSegments: latitudinal subdivisions, at least 2
//
// Returns:
//   - MeshData: the sphere geometry
func NewSphere(radius float32, widthSegments, heightSegments int) MeshData {
	widthSegments = max(widthSegments, 3)
	heightSegments = max(heightSegments, 2)
	mesh := MeshData{Name: "sphere"}

	for y := 0; y <= heightSegments; y++ {
		phi := float64(y) / float64(heightSegments) * math.Pi
		for x := 0; x <= widthSegments; x++ {
			theta := float64(x) / float64(widthSegments) * 2 * math.Pi
			n := mgl32.Vec3{
				float32(-math.Cos(theta) * math.Sin(phi)),
				float32(math.Cos(phi)),
				float32(math.Sin(theta) * math.Sin(phi)),
			}
			mesh.Vertices = append(mesh.Vertices, Vertex{Position: n.Mul(radius), Normal: n})
		}
	}

	row := uint32(widthSegments + 1)
	for y := 0; y < heightSegments; y++ {
		for x := 0; x < widthSegments; x++ {
			a := uint32(y)*row + uint32(x)
			b := a + row
			if y != 0 {
				mesh.Indices = append(mesh.Indices, a, b, a+1)
			}
			if y != heightSegments-1 {
				mesh.Indices = append(mesh.Indices, a+1, b, b+1)
			}
		}
	}
	mesh.ComputeBounds()
	return mesh
}

// appendCap adds a triangle fan cap at height y facing sign*y.
func appendCap(mesh *MeshData, radius, y float32, segments int, sign float32) {
	if radius <= 0 {
		return
	}
	n := [3]float32{0, sign, 0}
	center := uint32(len(mesh.Vertices))
	mesh.Vertices = append(mesh.Vertices, Vertex{Position: [3]float32{0, y, 0}, Normal: n})
	for i := 0; i <= segments; i++ {
		theta := float64(i) / float64(segments) * 2 * math.Pi
		mesh.Vertices = append(mesh.Vertices, Vertex{
			Position: [3]float32{radius * float32(math.Sin(theta)), y, radius * float32(math.Cos(theta))},
			Normal:   n,
		})
	}
	for i := uint32(1); i <= uint32(segments); i++ {
		if sign > 0 {
			mesh.Indices = append(mesh.Indices, center, center+i, center+i+1)
		} else {
			mesh.Indices = append(mesh.Indices, center, center+i+1, center+i)
		}
	}
}
