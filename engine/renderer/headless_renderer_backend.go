package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
)

// Operation names recorded by HeadlessBackend.
const (
	OpConfigureSurface   = "configure_surface"
	OpCreateMesh         = "create_mesh"
	OpCreateTexture      = "create_texture"
	OpCreateRenderTarget = "create_render_target"
	OpReleaseResource    = "release_resource"
	OpBeginFrame         = "begin_frame"
	OpBeginPass          = "begin_pass"
	OpDrawMesh           = "draw_mesh"
	OpEndPass            = "end_pass"
	OpBlit               = "blit"
	OpEndFrame           = "end_frame"
	OpDetachSurface      = "detach_surface"
	OpRelease            = "release"
)

// headlessMaxTextureDimension mirrors the WebGPU default limit for 2D textures.
const headlessMaxTextureDimension = 8192

// Op is one recorded backend call.
type Op struct {
	Name   string
	Label  string
	Target Handle
	Effect Effect
	Inputs []Handle
	Params EffectParams
	Width  int
	Height int
}

// CreatedResource describes a resource the headless backend handed out.
type CreatedResource struct {
	Handle Handle
	Kind   ResourceKind
	Label  string
	Width  int
	Height int
}

// HeadlessBackend is an in-memory RendererBackend. It allocates no GPU memory, records
// every call, and counts releases per resource so lifetime bugs surface as counts != 1.
type HeadlessBackend struct {
	mu sync.Mutex

	next     Handle
	ops      []Op
	created  []CreatedResource
	sizes    map[Handle][2]int
	releases map[Handle]int
	failOn   map[string]error

	surfaceW, surfaceH int
	inFrame            bool
	inPass             bool
	detached           bool
	released           bool
}

var _ RendererBackend = &HeadlessBackend{}

// NewHeadlessBackend creates an empty HeadlessBackend.
//
// Returns:
//   - *HeadlessBackend: the backend
func NewHeadlessBackend() *HeadlessBackend {
	return &HeadlessBackend{
		sizes:    make(map[Handle][2]int),
		releases: make(map[Handle]int),
		failOn:   make(map[string]error),
	}
}

// FailOn makes every later call of the named operation return err. A nil err clears it.
//
// Parameters:
//   - op: one of the Op* names
//   - err: the error to inject
func (b *HeadlessBackend) FailOn(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failOn, op)
		return
	}
	b.failOn[op] = err
}

// Ops returns a copy of the recorded calls.
func (b *HeadlessBackend) Ops() []Op {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Op, len(b.ops))
	copy(out, b.ops)
	return out
}

// OpNames returns the names of the recorded calls, in order.
func (b *HeadlessBackend) OpNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.ops))
	for i, op := range b.ops {
		out[i] = op.Name
	}
	return out
}

// Created returns every resource handed out, in creation order.
func (b *HeadlessBackend) Created() []CreatedResource {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]CreatedResource, len(b.created))
	copy(out, b.created)
	return out
}

// ReleaseCount returns how many times h was released.
func (b *HeadlessBackend) ReleaseCount(h Handle) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.releases[h]
}

// TargetSize returns the size a render target was allocated with.
func (b *HeadlessBackend) TargetSize(h Handle) (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.sizes[h]
	return s[0], s[1]
}

// SurfaceSize returns the last configured surface size.
func (b *HeadlessBackend) SurfaceSize() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceW, b.surfaceH
}

// Detached reports whether DetachSurface was called.
func (b *HeadlessBackend) Detached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.detached
}

// Released reports whether Release was called.
func (b *HeadlessBackend) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

// record appends an op and returns the injected failure for it, if any. The caller holds the lock.
func (b *HeadlessBackend) record(op Op) error {
	b.ops = append(b.ops, op)
	return b.failOn[op.Name]
}

func (b *HeadlessBackend) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.record(Op{Name: OpConfigureSurface, Width: width, Height: height}); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid surface size %dx%d", width, height)
	}
	b.surfaceW, b.surfaceH = width, height
	return nil
}

func (b *HeadlessBackend) MaxTextureDimension() uint32 {
	return headlessMaxTextureDimension
}

// alloc hands out a new handle. The caller holds the lock.
func (b *HeadlessBackend) alloc(kind ResourceKind, label string, width, height int) Handle {
	b.next++
	h := b.next
	b.created = append(b.created, CreatedResource{Handle: h, Kind: kind, Label: label, Width: width, Height: height})
	b.sizes[h] = [2]int{width, height}
	return h
}

func (b *HeadlessBackend) CreateMesh(label string, data model.MeshData) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.record(Op{Name: OpCreateMesh, Label: label}); err != nil {
		return 0, err
	}
	return b.alloc(ResourceKindMesh, label, 0, 0), nil
}

func (b *HeadlessBackend) CreateTexture(label string, data common.TextureStagingData) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.record(Op{Name: OpCreateTexture, Label: label, Width: int(data.Width), Height: int(data.Height)}); err != nil {
		return 0, err
	}
	return b.alloc(ResourceKindTexture, label, int(data.Width), int(data.Height)), nil
}

func (b *HeadlessBackend) CreateRenderTarget(label string, width, height int) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.record(Op{Name: OpCreateRenderTarget, Label: label, Width: width, Height: height}); err != nil {
		return 0, err
	}
	return b.alloc(ResourceKindRenderTarget, label, width, height), nil
}

func (b *HeadlessBackend) ReleaseResource(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_ = b.record(Op{Name: OpReleaseResource, Target: h})
	b.releases[h]++
}

func (b *HeadlessBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.record(Op{Name: OpBeginFrame}); err != nil {
		return err
	}
	if b.detached {
		return errors.New("surface detached")
	}
	if b.inFrame {
		return errors.New("previous frame not yet presented")
	}
	b.inFrame = true
	return nil
}

// checkTarget validates a pass destination. The caller holds the lock.
func (b *HeadlessBackend) checkTarget(target Handle) error {
	if target == SurfaceHandle {
		return nil
	}
	if _, ok := b.sizes[target]; !ok {
		return fmt.Errorf("unknown render target %d", target)
	}
	if b.releases[target] > 0 {
		return fmt.Errorf("render target %d already released", target)
	}
	return nil
}

func (b *HeadlessBackend) BeginPass(target Handle, clear *common.Color) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.record(Op{Name: OpBeginPass, Target: target}); err != nil {
		return err
	}
	if !b.inFrame {
		return errors.New("begin pass outside of a frame")
	}
	if b.inPass {
		return errors.New("previous pass not ended")
	}
	if err := b.checkTarget(target); err != nil {
		return err
	}
	b.inPass = true
	return nil
}

func (b *HeadlessBackend) DrawMesh(mesh Handle, params DrawParams) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_ = b.record(Op{Name: OpDrawMesh, Target: mesh})
}

func (b *HeadlessBackend) EndPass() {
	b.mu.Lock()
	defer b.mu.Unlock()

	_ = b.record(Op{Name: OpEndPass})
	b.inPass = false
}

func (b *HeadlessBackend) Blit(effect Effect, inputs []Handle, target Handle, params EffectParams) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	in := make([]Handle, len(inputs))
	copy(in, inputs)
	if err := b.record(Op{Name: OpBlit, Effect: effect, Inputs: in, Target: target, Params: params}); err != nil {
		return err
	}
	if !b.inFrame {
		return errors.New("blit outside of a frame")
	}
	if b.inPass {
		return errors.New("blit inside an open pass")
	}
	for _, h := range inputs {
		if err := b.checkTarget(h); err != nil {
			return err
		}
	}
	return b.checkTarget(target)
}

func (b *HeadlessBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.inFrame = false
	b.inPass = false
	return b.record(Op{Name: OpEndFrame})
}

func (b *HeadlessBackend) DetachSurface() {
	b.mu.Lock()
	defer b.mu.Unlock()

	_ = b.record(Op{Name: OpDetachSurface})
	b.detached = true
}

func (b *HeadlessBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	_ = b.record(Op{Name: OpRelease})
	b.released = true
}
