package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Perspective creates a right-handed perspective projection for WebGPU clip space,
// where depth maps to [0, 1] rather than OpenGL's [-1, 1].
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the projection matrix (column-major)
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))

	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// TransformAABB returns the axis-aligned bounds of the box (minV, maxV) after transforming
// its eight corners by m.
//
// Parameters:
//   - m: the transform
//   - minV, maxV: the local bounds
//
// Returns:
//   - mgl32.Vec3: the transformed minimum corner
//   - mgl32.Vec3: the transformed maximum corner
func TransformAABB(m mgl32.Mat4, minV, maxV mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	inf := float32(math.Inf(1))
	outMin := mgl32.Vec3{inf, inf, inf}
	outMax := mgl32.Vec3{-inf, -inf, -inf}
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{minV[0], minV[1], minV[2]}
		if i&1 != 0 {
			corner[0] = maxV[0]
		}
		if i&2 != 0 {
			corner[1] = maxV[1]
		}
		if i&4 != 0 {
			corner[2] = maxV[2]
		}
		p := mgl32.TransformCoordinate(corner, m)
		for a := 0; a < 3; a++ {
			outMin[a] = min(outMin[a], p[a])
			outMax[a] = max(outMax[a], p[a])
		}
	}
	return outMin, outMax
}
