package loader

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	parser gltfParser
}

// gltfAnimationExtractor converts glTF animations into AnimationClips whose channels address
// nodes by their glTF node index. Morph target weight channels are skipped.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//
	// Returns:
	//   - *model.AnimationClip: the extracted animation clip
	//   - error: error if extraction fails
	ExtractAnimation(animIndex int) (*model.AnimationClip, error)

	// ExtractAllAnimations extracts every animation from the document.
	//
	// Returns:
	//   - []*model.AnimationClip: all extracted animation clips
	//   - error: error if extraction fails
	ExtractAllAnimations() ([]*model.AnimationClip, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a parsed document.
func newGLTFAnimationExtractor(parser gltfParser) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{parser: parser}
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int) (*model.AnimationClip, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if animIndex < 0 || animIndex >= len(doc.Animations) {
		return nil, fmt.Errorf("animation index %d out of range", animIndex)
	}

	anim := &doc.Animations[animIndex]

	// translation, rotation and scale channels of one node merge into a single AnimationChannel
	channelMap := make(map[int32]*model.AnimationChannel)
	var maxTime float32

	for i := range anim.Channels {
		ch := &anim.Channels[i]
		if ch.Target.Node == nil {
			continue
		}
		nodeIndex := *ch.Target.Node
		if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
			return nil, fmt.Errorf("animation %q channel %d: node %d out of range", anim.Name, i, nodeIndex)
		}
		if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
			return nil, fmt.Errorf("animation %q channel %d: invalid sampler index %d", anim.Name, i, ch.Sampler)
		}
		sampler := &anim.Samplers[ch.Sampler]

		var width int
		switch ch.Target.Path {
		case gltfAnimPathTranslation, gltfAnimPathScale:
			width = 3
		case gltfAnimPathRotation:
			width = 4
		default:
			continue
		}

		timestamps, err := e.parser.ReadFloats(sampler.Input, gltfAccessorTypeScalar)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: failed to read timestamps: %w", anim.Name, i, err)
		}
		accessorType := gltfAccessorTypeVec3
		if width == 4 {
			accessorType = gltfAccessorTypeVec4
		}
		values, err := e.parser.ReadFloats(sampler.Output, accessorType)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: failed to read %s values: %w", anim.Name, i, ch.Target.Path, err)
		}
		values = keyValues(values, width, sampler.Interpolation)

		if len(timestamps) > 0 {
			maxTime = max(maxTime, timestamps[len(timestamps)-1])
		}

		animCh, exists := channelMap[int32(nodeIndex)]
		if !exists {
			animCh = &model.AnimationChannel{NodeIndex: int32(nodeIndex)}
			channelMap[int32(nodeIndex)] = animCh
		}
		if sampler.Interpolation == gltfInterpolationStep {
			animCh.Interpolation = model.InterpolationStep
		}

		n := min(len(timestamps), len(values)/width)
		switch ch.Target.Path {
		case gltfAnimPathTranslation, gltfAnimPathScale:
			keys := make([]model.VectorKeyframe, n)
			for j := range keys {
				keys[j] = model.VectorKeyframe{Time: timestamps[j], Value: mgl32.Vec3{values[j*3], values[j*3+1], values[j*3+2]}}
			}
			if ch.Target.Path == gltfAnimPathTranslation {
				animCh.PositionKeys = keys
			} else {
				animCh.ScaleKeys = keys
			}
		case gltfAnimPathRotation:
			keys := make([]model.QuaternionKeyframe, n)
			for j := range keys {
				// glTF stores quaternions as (x, y, z, w)
				keys[j] = model.QuaternionKeyframe{
					Time:  timestamps[j],
					Value: mgl32.Quat{W: values[j*4+3], V: mgl32.Vec3{values[j*4], values[j*4+1], values[j*4+2]}},
				}
			}
			animCh.RotationKeys = keys
		}
	}

	channels := make([]model.AnimationChannel, 0, len(channelMap))
	for _, ch := range channelMap {
		channels = append(channels, *ch)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].NodeIndex < channels[j].NodeIndex })

	name := anim.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", animIndex)
	}

	return &model.AnimationClip{
		Name:     name,
		Duration: maxTime,
		Channels: channels,
	}, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAllAnimations() ([]*model.AnimationClip, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	clips := make([]*model.AnimationClip, len(doc.Animations))
	for i := range doc.Animations {
		clip, err := e.ExtractAnimation(i)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		clips[i] = clip
	}
	return clips, nil
}

// keyValues drops the in and out tangents of CUBICSPLINE output, keeping the value of each
// (in-tangent, value, out-tangent) triplet. The keys are then sampled linearly.
func keyValues(values []float32, width int, interpolation string) []float32 {
	if interpolation != gltfInterpolationCubicSpline {
		return values
	}
	out := make([]float32, 0, len(values)/3)
	for i := 0; i+3*width <= len(values); i += 3 * width {
		out = append(out, values[i+width:i+2*width]...)
	}
	return out
}
