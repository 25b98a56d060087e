package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
	"go.uber.org/zap"
)

var (
	// ErrReleased is returned by every operation on a renderer after Release.
	ErrReleased = errors.New("renderer released")

	// ErrSurfaceDetached is returned by frame operations after DetachSurface.
	ErrSurfaceDetached = errors.New("render surface detached")

	// ErrForeignResource is returned when a resource from another renderer is passed in.
	ErrForeignResource = errors.New("resource belongs to a different renderer")
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	logger      *zap.Logger

	live     map[Handle]*Resource
	width    int
	height   int
	detached bool
	released bool
}

// Renderer defines the interface for the rendering system.
//
// This is a high-level API over a RendererBackend. The Renderer owns the lifetime bookkeeping
// of every Resource it creates and serializes access to the backend, so resources may be created
// from loader goroutines while frames are recorded on the host loop.
type Renderer interface {
	// BackendType returns the kind of backend in use.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	BackendType() RendererBackendType

	// Resize reconfigures the presentation surface.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if the surface could not be reconfigured
	Resize(width, height int) error

	// Size returns the current surface size.
	//
	// Returns:
	//   - int: width in pixels
	//   - int: height in pixels
	Size() (int, int)

	// MaxTextureDimension reports the largest texture side the device accepts.
	//
	// Returns:
	//   - uint32: the limit in texels
	MaxTextureDimension() uint32

	// CreateMesh uploads geometry and returns an owned mesh resource.
	//
	// Parameters:
	//   - label: a debug label
	//   - data: the geometry to upload
	//
	// Returns:
	//   - *Resource: the mesh
	//   - error: an error if the upload fails or the renderer is released
	CreateMesh(label string, data model.MeshData) (*Resource, error)

	// CreateTexture uploads pixels and returns an owned texture resource.
	//
	// Parameters:
	//   - label: a debug label
	//   - data: the RGBA pixels
	//
	// Returns:
	//   - *Resource: the texture
	//   - error: an error if the upload fails or the renderer is released
	CreateTexture(label string, data common.TextureStagingData) (*Resource, error)

	// CreateRenderTarget allocates an owned offscreen color target.
	//
	// Parameters:
	//   - label: a debug label
	//   - width, height: the target size in pixels
	//
	// Returns:
	//   - *Resource: the render target
	//   - error: an error if allocation fails or the renderer is released
	CreateRenderTarget(label string, width, height int) (*Resource, error)

	// BeginFrame acquires the next surface image.
	//
	// Returns:
	//   - error: an error if the frame could not be started
	BeginFrame() error

	// BeginPass starts a render pass. A nil target renders to the surface.
	//
	// Parameters:
	//   - target: the render target, or nil for the surface
	//   - clear: the clear color, or nil to keep existing contents
	//
	// Returns:
	//   - error: an error if the pass could not be started
	BeginPass(target *Resource, clear *common.Color) error

	// DrawMesh records one draw into the current pass.
	//
	// Parameters:
	//   - mesh: the mesh to draw
	//   - params: the per-draw uniforms
	//
	// Returns:
	//   - error: an error if the mesh is released or foreign
	DrawMesh(mesh *Resource, params DrawParams) error

	// EndPass ends and submits the current pass.
	EndPass()

	// Blit runs a fullscreen effect. A nil target writes to the surface.
	//
	// Parameters:
	//   - effect: the effect program
	//   - inputs: textures or render targets to sample
	//   - target: the destination, or nil for the surface
	//   - params: the effect uniforms
	//
	// Returns:
	//   - error: an error if the effect could not be recorded
	Blit(effect Effect, inputs []*Resource, target *Resource, params EffectParams) error

	// EndFrame presents the frame.
	//
	// Returns:
	//   - error: an error if presentation fails
	EndFrame() error

	// LiveResources returns the number of resources created and not yet released.
	//
	// Returns:
	//   - int: the live resource count
	LiveResources() int

	// DetachSurface releases the presentation surface. Resource creation still works,
	// frame operations return ErrSurfaceDetached. Safe to call more than once.
	DetachSurface()

	// Release frees every live resource and the backend. Safe to call more than once.
	Release()

	// Released reports whether Release has been called.
	//
	// Returns:
	//   - bool: true once released
	Released() bool
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer over the given backend and configures the surface
// to the initial size.
//
// Parameters:
//   - backend: the GPU backend; use NewHeadlessBackend for tests or display-less runs
//   - width, height: the initial surface size
//   - options: variadic list of RendererBuilderOption functions
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if the initial surface configuration fails
func NewRenderer(backend RendererBackend, width, height int, options ...RendererBuilderOption) (Renderer, error) {
	if backend == nil {
		return nil, errors.New("renderer backend is required")
	}
	r := &renderer{
		mu:      &sync.Mutex{},
		backend: backend,
		logger:  zap.NewNop(),
		live:    make(map[Handle]*Resource),
	}
	if _, ok := backend.(*HeadlessBackend); !ok {
		r.backendType = BackendTypeWGPU
	}
	for _, opt := range options {
		opt(r)
	}

	if err := backend.ConfigureSurface(width, height); err != nil {
		return nil, fmt.Errorf("failed to configure surface: %w", err)
	}
	r.width, r.height = width, height
	return r, nil
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return ErrReleased
	}
	if r.detached {
		r.width, r.height = width, height
		return nil
	}
	if err := r.backend.ConfigureSurface(width, height); err != nil {
		return fmt.Errorf("failed to resize surface: %w", err)
	}
	r.width, r.height = width, height
	return nil
}

func (r *renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) MaxTextureDimension() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return 0
	}
	return r.backend.MaxTextureDimension()
}

func (r *renderer) CreateMesh(label string, data model.MeshData) (*Resource, error) {
	if len(data.Vertices) == 0 || len(data.Indices) == 0 {
		return nil, fmt.Errorf("mesh %q has no geometry", label)
	}
	return r.create(ResourceKindMesh, label, 0, 0, len(data.Indices), func() (Handle, error) {
		return r.backend.CreateMesh(label, data)
	})
}

func (r *renderer) CreateTexture(label string, data common.TextureStagingData) (*Resource, error) {
	if data.Width == 0 || data.Height == 0 || len(data.Pixels) < int(data.Width*data.Height*4) {
		return nil, fmt.Errorf("texture %q has invalid pixel data", label)
	}
	return r.create(ResourceKindTexture, label, int(data.Width), int(data.Height), 0, func() (Handle, error) {
		return r.backend.CreateTexture(label, data)
	})
}

func (r *renderer) CreateRenderTarget(label string, width, height int) (*Resource, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render target %q has invalid size %dx%d", label, width, height)
	}
	return r.create(ResourceKindRenderTarget, label, width, height, 0, func() (Handle, error) {
		return r.backend.CreateRenderTarget(label, width, height)
	})
}

// create runs fn under the lock and registers the resulting handle.
func (r *renderer) create(kind ResourceKind, label string, width, height, indexCount int, fn func() (Handle, error)) (*Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return nil, ErrReleased
	}
	h, err := fn()
	if err != nil {
		return nil, fmt.Errorf("failed to create %s %q: %w", kind, label, err)
	}
	res := &Resource{
		owner:      r,
		handle:     h,
		kind:       kind,
		label:      label,
		width:      width,
		height:     height,
		indexCount: indexCount,
	}
	r.live[h] = res
	return res, nil
}

func (r *renderer) releaseResource(res *Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.released {
		return
	}
	res.released = true
	delete(r.live, res.handle)
	if !r.released {
		r.backend.ReleaseResource(res.handle)
	}
}

// checkOwned validates a resource argument. The caller holds the lock.
func (r *renderer) checkOwned(res *Resource) error {
	if res == nil {
		return nil
	}
	if res.owner != r {
		return ErrForeignResource
	}
	if res.released {
		return fmt.Errorf("%s %q already released", res.kind, res.label)
	}
	return nil
}

// frameReady reports whether frame operations may run. The caller holds the lock.
func (r *renderer) frameReady() error {
	if r.released {
		return ErrReleased
	}
	if r.detached {
		return ErrSurfaceDetached
	}
	return nil
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.frameReady(); err != nil {
		return err
	}
	return r.backend.BeginFrame()
}

func (r *renderer) BeginPass(target *Resource, clear *common.Color) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.frameReady(); err != nil {
		return err
	}
	if err := r.checkOwned(target); err != nil {
		return err
	}
	return r.backend.BeginPass(target.Handle(), clear)
}

func (r *renderer) DrawMesh(mesh *Resource, params DrawParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.frameReady(); err != nil {
		return err
	}
	if mesh == nil {
		return errors.New("mesh is nil")
	}
	if err := r.checkOwned(mesh); err != nil {
		return err
	}
	r.backend.DrawMesh(mesh.handle, params)
	return nil
}

func (r *renderer) EndPass() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frameReady() != nil {
		return
	}
	r.backend.EndPass()
}

func (r *renderer) Blit(effect Effect, inputs []*Resource, target *Resource, params EffectParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.frameReady(); err != nil {
		return err
	}
	if err := r.checkOwned(target); err != nil {
		return err
	}
	handles := make([]Handle, 0, len(inputs))
	for _, in := range inputs {
		if in == nil {
			return fmt.Errorf("%s effect: nil input", effect)
		}
		if err := r.checkOwned(in); err != nil {
			return err
		}
		handles = append(handles, in.handle)
	}
	return r.backend.Blit(effect, handles, target.Handle(), params)
}

func (r *renderer) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.frameReady(); err != nil {
		return err
	}
	return r.backend.EndFrame()
}

func (r *renderer) LiveResources() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

func (r *renderer) DetachSurface() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.detached || r.released {
		return
	}
	r.detached = true
	r.backend.DetachSurface()
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return
	}
	if len(r.live) > 0 {
		r.logger.Warn("releasing renderer with live resources", zap.Int("count", len(r.live)))
	}
	for h, res := range r.live {
		res.released = true
		r.backend.ReleaseResource(h)
	}
	r.live = map[Handle]*Resource{}
	if !r.detached {
		r.detached = true
		r.backend.DetachSurface()
	}
	r.backend.Release()
	r.released = true
}

func (r *renderer) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}
