package model

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Sample evaluates the channel at time t, overriding the animated components of base.
// Components without keyframes keep their base value. Times outside the keyframe range clamp
// to the first or last key.
//
// Parameters:
//   - t: the playback time in seconds
//   - base: the node's rest transform
//
// Returns:
//   - Transform: the animated transform
func (ch *AnimationChannel) Sample(t float32, base Transform) Transform {
	out := base
	if len(ch.PositionKeys) > 0 {
		out.Translation = sampleVec3(ch.PositionKeys, t, ch.Interpolation)
	}
	if len(ch.RotationKeys) > 0 {
		out.Rotation = sampleQuat(ch.RotationKeys, t, ch.Interpolation)
	}
	if len(ch.ScaleKeys) > 0 {
		out.Scale = sampleVec3(ch.ScaleKeys, t, ch.Interpolation)
	}
	return out
}

// bracket finds the keyframe pair surrounding t and the blend factor between them.
func bracket(n int, t float32, timeAt func(int) float32) (int, int, float32) {
	if n == 1 || t <= timeAt(0) {
		return 0, 0, 0
	}
	if t >= timeAt(n-1) {
		return n - 1, n - 1, 0
	}
	next := sort.Search(n, func(i int) bool { return timeAt(i) > t })
	prev := next - 1
	span := timeAt(next) - timeAt(prev)
	if span <= 0 {
		return prev, prev, 0
	}
	return prev, next, (t - timeAt(prev)) / span
}

func sampleVec3(keys []VectorKeyframe, t float32, mode Interpolation) mgl32.Vec3 {
	a, b, f := bracket(len(keys), t, func(i int) float32 { return keys[i].Time })
	if a == b || mode == InterpolationStep {
		return keys[a].Value
	}
	return keys[a].Value.Mul(1 - f).Add(keys[b].Value.Mul(f))
}

func sampleQuat(keys []QuaternionKeyframe, t float32, mode Interpolation) mgl32.Quat {
	a, b, f := bracket(len(keys), t, func(i int) float32 { return keys[i].Time })
	if a == b || mode == InterpolationStep {
		return keys[a].Value.Normalize()
	}
	from, to := keys[a].Value.Normalize(), keys[b].Value.Normalize()
	if from.Dot(to) < 0 {
		to = to.Scale(-1)
	}
	return mgl32.QuatSlerp(from, to, f)
}
