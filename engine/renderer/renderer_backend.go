package renderer

import (
	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/light"
	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeHeadless selects the in-memory backend that records every operation.
	// Used for tests and for running a vignette without a display.
	BackendTypeHeadless RendererBackendType = iota

	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU
)

// String returns the config name of the backend type.
func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeHeadless:
		return "headless"
	case BackendTypeWGPU:
		return "wgpu"
	default:
		return "unknown"
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// Handle identifies a GPU object owned by a backend. Zero is never a valid handle
// and stands for the presentation surface where a render target is expected.
type Handle uint64

// SurfaceHandle addresses the presentation surface as a render target.
const SurfaceHandle Handle = 0

// ResourceKind classifies a backend resource.
type ResourceKind int

const (
	// ResourceKindMesh is a vertex + index buffer pair.
	ResourceKindMesh ResourceKind = iota

	// ResourceKindTexture is a sampled image uploaded from pixel data.
	ResourceKindTexture

	// ResourceKindRenderTarget is an offscreen color attachment that can also be sampled.
	ResourceKindRenderTarget
)

// String returns a short name for the resource kind.
func (k ResourceKind) String() string {
	switch k {
	case ResourceKindMesh:
		return "mesh"
	case ResourceKindTexture:
		return "texture"
	case ResourceKindRenderTarget:
		return "render_target"
	default:
		return "unknown"
	}
}

// Effect selects a fullscreen shader program run by Blit.
type Effect int

const (
	// EffectCopy samples inputs[0] into the target.
	EffectCopy Effect = iota

	// EffectThreshold keeps only texels of inputs[0] brighter than EffectParams.Threshold.
	EffectThreshold

	// EffectBlur runs one separable gaussian pass over inputs[0] along EffectParams.Direction.
	EffectBlur

	// EffectComposite adds inputs[1] scaled by EffectParams.Strength onto inputs[0].
	EffectComposite

	// EffectOutline draws edges of the silhouette mask inputs[1] over inputs[0].
	EffectOutline
)

// String returns a short name for the effect.
func (e Effect) String() string {
	switch e {
	case EffectCopy:
		return "copy"
	case EffectThreshold:
		return "threshold"
	case EffectBlur:
		return "blur"
	case EffectComposite:
		return "composite"
	case EffectOutline:
		return "outline"
	default:
		return "unknown"
	}
}

// DrawParams carries the per-draw uniforms for a mesh.
type DrawParams struct {
	// Model is the object-to-world transform.
	Model mgl32.Mat4

	// ViewProjection is the camera's combined view and projection matrix.
	ViewProjection mgl32.Mat4

	// Color is the material base color.
	Color common.Color

	// Lighting is the reduced light rig. Ignored when Unlit is set.
	Lighting light.Lighting

	// Unlit writes Color directly, used for silhouette masks.
	Unlit bool
}

// EffectParams carries the uniforms for a fullscreen effect.
type EffectParams struct {
	// Strength scales the secondary input (composite) or the edge (outline).
	Strength float32

	// Radius is the blur radius in texels.
	Radius float32

	// Threshold is the luminance cutoff for EffectThreshold.
	Threshold float32

	// Direction is the blur axis, (1,0) or (0,1).
	Direction [2]float32

	// Thickness is the outline width in texels.
	Thickness float32

	// Glow adds a soft halo around the outline.
	Glow float32

	// EdgeColor is the outline color where the silhouette is visible.
	EdgeColor common.Color

	// HiddenEdgeColor is the outline color where the silhouette is occluded.
	HiddenEdgeColor common.Color
}

// RendererBackend is the contract a GPU API implementation satisfies for the Renderer.
// Backends are not required to be safe for concurrent use; the Renderer serializes access.
type RendererBackend interface {
	// ConfigureSurface (re)configures the presentation surface and its depth buffer.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the surface could not be configured
	ConfigureSurface(width, height int) error

	// MaxTextureDimension reports the largest texture side the device accepts.
	//
	// Returns:
	//   - uint32: the limit in texels
	MaxTextureDimension() uint32

	// CreateMesh uploads geometry into vertex and index buffers.
	//
	// Parameters:
	//   - label: a debug label
	//   - data: the geometry to upload
	//
	// Returns:
	//   - Handle: the new mesh
	//   - error: an error if buffer creation fails
	CreateMesh(label string, data model.MeshData) (Handle, error)

	// CreateTexture uploads RGBA pixels into a sampled texture.
	//
	// Parameters:
	//   - label: a debug label
	//   - data: the pixels to upload
	//
	// Returns:
	//   - Handle: the new texture
	//   - error: an error if texture creation fails
	CreateTexture(label string, data common.TextureStagingData) (Handle, error)

	// CreateRenderTarget allocates an offscreen color target.
	//
	// Parameters:
	//   - label: a debug label
	//   - width, height: the target size in pixels
	//
	// Returns:
	//   - Handle: the new target
	//   - error: an error if allocation fails
	CreateRenderTarget(label string, width, height int) (Handle, error)

	// ReleaseResource frees a mesh, texture or render target.
	//
	// Parameters:
	//   - h: the resource to free
	ReleaseResource(h Handle)

	// BeginFrame acquires the next surface image.
	//
	// Returns:
	//   - error: an error if no image could be acquired
	BeginFrame() error

	// BeginPass starts a render pass on target, clearing it when clear is non-nil.
	//
	// Parameters:
	//   - target: a render target, or SurfaceHandle
	//   - clear: the clear color, or nil to load existing contents
	//
	// Returns:
	//   - error: an error if the pass could not be started
	BeginPass(target Handle, clear *common.Color) error

	// DrawMesh records one indexed draw into the current pass.
	//
	// Parameters:
	//   - mesh: the mesh to draw
	//   - params: the per-draw uniforms
	DrawMesh(mesh Handle, params DrawParams)

	// EndPass ends and submits the current pass.
	EndPass()

	// Blit runs a fullscreen effect reading inputs and writing target in its own pass.
	//
	// Parameters:
	//   - effect: the effect program
	//   - inputs: sampled textures or render targets
	//   - target: the destination render target, or SurfaceHandle
	//   - params: the effect uniforms
	//
	// Returns:
	//   - error: an error if the effect could not be encoded
	Blit(effect Effect, inputs []Handle, target Handle, params EffectParams) error

	// EndFrame presents the acquired surface image.
	//
	// Returns:
	//   - error: an error if presentation fails
	EndFrame() error

	// DetachSurface unconfigures and releases the presentation surface. Further frames fail.
	DetachSurface()

	// Release frees the device and every backend-level object.
	Release()
}
