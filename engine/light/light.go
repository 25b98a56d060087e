package light

import "github.com/go-gl/mathgl/mgl32"

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// Used for large distant sources like the sun. No distance attenuation.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from a position.
	// Attenuates with distance up to a configurable range.
	LightTypePoint

	// LightTypeSpot represents a light that emits in a cone from a position along a direction.
	// Attenuates with both distance and angle from the cone axis.
	LightTypeSpot

	// LightTypeAmbient represents a uniform fill light with no position or direction.
	LightTypeAmbient
)

// String returns the catalog name of the light type.
func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	case LightTypeAmbient:
		return "ambient"
	default:
		return "unknown"
	}
}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	lightType  LightType
	position   [3]float32
	direction  [3]float32
	color      [3]float32
	intensity  float32
	lightRange float32
	decay      float32
	innerCone  float32 // stored as cos(angle in radians)
	outerCone  float32 // stored as cos(angle in radians)
	enabled    bool
}

// Light defines the interface for a light source in an environment rig.
//
// All light types share this interface; type-specific properties (e.g. cone
// angles for spot lights) return zero values when not applicable.
type Light interface {
	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type
	Type() LightType

	// Position returns the world-space position of the light.
	// Meaningless for directional and ambient lights.
	//
	// Returns:
	//   - [3]float32: position as (x, y, z)
	Position() [3]float32

	// Direction returns the normalized direction the light travels in.
	// Meaningless for point and ambient lights.
	//
	// Returns:
	//   - [3]float32: normalized direction as (x, y, z)
	Direction() [3]float32

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - [3]float32: color as (r, g, b)
	Color() [3]float32

	// Intensity returns the scalar intensity multiplier for the light.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// Range returns the maximum attenuation distance for point and spot lights.
	// Zero means unlimited.
	//
	// Returns:
	//   - float32: the range value
	Range() float32

	// Decay returns the distance falloff exponent for point and spot lights.
	//
	// Returns:
	//   - float32: the decay exponent
	Decay() float32

	// InnerCone returns the cosine of the inner cone half-angle for spot lights.
	//
	// Returns:
	//   - float32: cos(inner half-angle)
	InnerCone() float32

	// OuterCone returns the cosine of the outer cone half-angle for spot lights.
	//
	// Returns:
	//   - float32: cos(outer half-angle)
	OuterCone() float32

	// Enabled returns whether this light contributes to rendering.
	//
	// Returns:
	//   - bool: true if the light is enabled
	Enabled() bool

	// SetEnabled enables or disables the light.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with sensible defaults and
// any provided options applied.
//
// Parameters:
//   - lightType: the kind of light to create
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType: lightType,
		direction: [3]float32{0, -1, 0},
		color:     [3]float32{1, 1, 1},
		intensity: 1.0,
		decay:     2.0,
		innerCone: 0.9063, // cos(25°)
		outerCone: 0.8192, // cos(35°)
		enabled:   true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() [3]float32 {
	return l.position
}

func (l *lightImpl) Direction() [3]float32 {
	return l.direction
}

func (l *lightImpl) Color() [3]float32 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) Range() float32 {
	return l.lightRange
}

func (l *lightImpl) Decay() float32 {
	return l.decay
}

func (l *lightImpl) InnerCone() float32 {
	return l.innerCone
}

func (l *lightImpl) OuterCone() float32 {
	return l.outerCone
}

func (l *lightImpl) Enabled() bool {
	return l.enabled
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}

// Lighting is the reduced form of a light rig consumed by the mesh shader:
// the summed ambient term plus the single strongest direct light.
type Lighting struct {
	// Ambient is the sum of every ambient light's color times intensity.
	Ambient [3]float32

	// KeyDirection is the normalized direction from a surface toward the key light.
	KeyDirection [3]float32

	// KeyColor is the key light's color times intensity.
	KeyColor [3]float32
}

// Summarize reduces a light rig into a Lighting block. Disabled lights are skipped.
// Point and spot lights are treated as directional from their position toward the origin.
//
// Parameters:
//   - lights: the rig to reduce
//
// Returns:
//   - Lighting: the reduced lighting
func Summarize(lights []Light) Lighting {
	var out Lighting
	out.KeyDirection = [3]float32{0, 1, 0}
	var best float32 = -1

	for _, l := range lights {
		if l == nil || !l.Enabled() {
			continue
		}
		c := mgl32.Vec3(l.Color()).Mul(l.Intensity())
		if l.Type() == LightTypeAmbient {
			out.Ambient = mgl32.Vec3(out.Ambient).Add(c)
			continue
		}
		if l.Intensity() <= best {
			continue
		}
		best = l.Intensity()

		var toLight mgl32.Vec3
		if l.Type() == LightTypeDirectional {
			toLight = mgl32.Vec3(l.Direction()).Mul(-1)
		} else {
			toLight = mgl32.Vec3(l.Position())
		}
		if toLight.Len() > 0 {
			toLight = toLight.Normalize()
		} else {
			toLight = mgl32.Vec3{0, 1, 0}
		}
		out.KeyDirection = toLight
		out.KeyColor = c
	}
	return out
}
