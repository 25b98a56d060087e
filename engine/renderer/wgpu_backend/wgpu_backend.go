// Package wgpu_backend implements renderer.RendererBackend on WebGPU.
package wgpu_backend

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// offscreenFormat is the color format of every render target.
const offscreenFormat = wgpu.TextureFormatRGBA8Unorm

type gpuMesh struct {
	vertex     *wgpu.Buffer
	index      *wgpu.Buffer
	uniform    *wgpu.Buffer
	bindGroup  *wgpu.BindGroup
	indexCount uint32
}

func (m *gpuMesh) release() {
	m.bindGroup.Release()
	m.uniform.Release()
	m.index.Release()
	m.vertex.Release()
}

// gpuTexture backs both uploaded textures and render targets.
type gpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	format  wgpu.TextureFormat
	width   uint32
	height  uint32
}

func (t *gpuTexture) release() {
	t.view.Release()
	t.texture.Release()
}

type depthBuffer struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

type wgpuBackendImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	maxTexture    uint32
	width         uint32
	height        uint32

	next     renderer.Handle
	meshes   map[renderer.Handle]*gpuMesh
	textures map[renderer.Handle]*gpuTexture
	depths   map[[2]uint32]*depthBuffer

	meshShader      *wgpu.ShaderModule
	meshLayout      *wgpu.BindGroupLayout
	meshPipelines   map[wgpu.TextureFormat]*wgpu.RenderPipeline
	effectShader    *wgpu.ShaderModule
	effectLayout    *wgpu.BindGroupLayout
	effectPipelines map[wgpu.TextureFormat]*wgpu.RenderPipeline
	effectUniforms  *wgpu.Buffer
	sampler         *wgpu.Sampler

	// Frame state. Each pass and each blit records into its own encoder and is submitted
	// when it ends, so queued uniform writes land in draw order.
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	passEncoder  *wgpu.CommandEncoder
	pass         *wgpu.RenderPassEncoder

	detached bool
}

var _ renderer.RendererBackend = &wgpuBackendImpl{}

// New creates a WebGPU backend drawing to the surface described by surfaceDescriptor.
// The calling goroutine is locked to its OS thread; all later calls must come from it.
//
// Parameters:
//   - surfaceDescriptor: the platform surface, typically from window.Window.SurfaceDescriptor
//   - options: variadic list of BackendOption functions
//
// Returns:
//   - renderer.RendererBackend: the backend
//   - error: an error if no adapter or device could be acquired, or the built-in programs fail to compile
func New(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...BackendOption) (renderer.RendererBackend, error) {
	if surfaceDescriptor == nil {
		return nil, errors.New("surface descriptor is required")
	}
	runtime.LockOSThread()

	cfg := backendConfig{presentMode: renderer.PresentModeVSync}
	for _, opt := range options {
		opt(&cfg)
	}

	b := &wgpuBackendImpl{
		mu:              &sync.Mutex{},
		instance:        wgpu.CreateInstance(nil),
		presentMode:     toWGPUPresentMode(cfg.presentMode),
		meshes:          make(map[renderer.Handle]*gpuMesh),
		textures:        make(map[renderer.Handle]*gpuTexture),
		depths:          make(map[[2]uint32]*depthBuffer),
		meshPipelines:   make(map[wgpu.TextureFormat]*wgpu.RenderPipeline),
		effectPipelines: make(map[wgpu.TextureFormat]*wgpu.RenderPipeline),
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	b.adapter = adapter

	limits := wgpu.DefaultLimits()
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Vignette Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	b.device = device
	b.queue = device.GetQueue()
	b.maxTexture = limits.MaxTextureDimension2D

	if err := b.initPrograms(); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

// initPrograms compiles both shaders and creates their layouts and shared objects.
func (b *wgpuBackendImpl) initPrograms() error {
	var err error
	b.meshShader, err = b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "mesh.wgsl",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: meshShaderSource,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to compile mesh shader: %w", err)
	}
	b.effectShader, err = b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "effect.wgsl",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: effectShaderSource,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to compile effect shader: %w", err)
	}

	meshEntry := wgpu.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
	}
	meshEntry.Buffer.Type = wgpu.BufferBindingTypeUniform
	b.meshLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "Mesh Uniforms Layout",
		Entries: []wgpu.BindGroupLayoutEntry{meshEntry},
	})
	if err != nil {
		return fmt.Errorf("failed to create mesh bind group layout: %w", err)
	}

	effectEntries := make([]wgpu.BindGroupLayoutEntry, 4)
	for i := range effectEntries {
		effectEntries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: wgpu.ShaderStageFragment,
		}
	}
	effectEntries[0].Buffer.Type = wgpu.BufferBindingTypeUniform
	for _, i := range []int{1, 2} {
		effectEntries[i].Texture.SampleType = wgpu.TextureSampleTypeFloat
		effectEntries[i].Texture.ViewDimension = wgpu.TextureViewDimension2D
	}
	effectEntries[3].Sampler.Type = wgpu.SamplerBindingTypeFiltering
	b.effectLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "Effect Layout",
		Entries: effectEntries,
	})
	if err != nil {
		return fmt.Errorf("failed to create effect bind group layout: %w", err)
	}

	b.effectUniforms, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Effect Uniforms",
		Size:  effectUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create effect uniform buffer: %w", err)
	}

	b.sampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Effect Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create sampler: %w", err)
	}
	return nil
}

func (b *wgpuBackendImpl) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid surface size %dx%d", width, height)
	}
	if b.detached {
		return errors.New("surface detached")
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		return errors.New("surface reports no supported formats")
	}
	b.surfaceFormat = capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.width, b.height = uint32(width), uint32(height)

	for size, d := range b.depths {
		d.view.Release()
		d.texture.Release()
		delete(b.depths, size)
	}
	return nil
}

func (b *wgpuBackendImpl) MaxTextureDimension() uint32 {
	return b.maxTexture
}

func (b *wgpuBackendImpl) CreateMesh(label string, data model.MeshData) (renderer.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	vertexData := model.MarshalVertices(data.Vertices)
	indexData := model.MarshalIndices(data.Indices)

	vertex, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Vertex Buffer",
		Size:  uint64(len(vertexData)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return 0, err
	}
	b.queue.WriteBuffer(vertex, 0, vertexData)

	index, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Index Buffer",
		Size:  uint64(len(indexData)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		vertex.Release()
		return 0, err
	}
	b.queue.WriteBuffer(index, 0, indexData)

	uniform, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Uniforms",
		Size:  meshUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		index.Release()
		vertex.Release()
		return 0, err
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  label + " Bind Group",
		Layout: b.meshLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: uniform, Offset: 0, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		uniform.Release()
		index.Release()
		vertex.Release()
		return 0, err
	}

	b.next++
	b.meshes[b.next] = &gpuMesh{
		vertex:     vertex,
		index:      index,
		uniform:    uniform,
		bindGroup:  bindGroup,
		indexCount: uint32(len(data.Indices)),
	}
	return b.next, nil
}

func (b *wgpuBackendImpl) CreateTexture(label string, data common.TextureStagingData) (renderer.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return 0, err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, err
	}

	b.next++
	b.textures[b.next] = &gpuTexture{
		texture: tex,
		view:    view,
		format:  wgpu.TextureFormatRGBA8UnormSrgb,
		width:   data.Width,
		height:  data.Height,
	}
	return b.next, nil
}

func (b *wgpuBackendImpl) CreateRenderTarget(label string, width, height int) (renderer.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	w, h := uint32(width), uint32(height)
	if w > b.maxTexture || h > b.maxTexture {
		return 0, fmt.Errorf("render target %dx%d exceeds device limit %d", width, height, b.maxTexture)
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              w,
			Height:             h,
			DepthOrArrayLayers: 1,
		},
		Format:        offscreenFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return 0, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, err
	}

	b.next++
	b.textures[b.next] = &gpuTexture{
		texture: tex,
		view:    view,
		format:  offscreenFormat,
		width:   w,
		height:  h,
	}
	return b.next, nil
}

func (b *wgpuBackendImpl) ReleaseResource(h renderer.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if m, ok := b.meshes[h]; ok {
		m.release()
		delete(b.meshes, h)
		return
	}
	if t, ok := b.textures[h]; ok {
		t.release()
		delete(b.textures, h)
	}
}

func (b *wgpuBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.detached {
		return errors.New("surface detached")
	}
	// A held surface image means the previous frame was never presented; acquiring another
	// one makes wgpu-native fail with "Surface image is already acquired".
	if b.frameSurface != nil {
		return errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

// resolveTarget returns the view, format and size a pass writes to. The caller holds the lock.
func (b *wgpuBackendImpl) resolveTarget(target renderer.Handle) (*wgpu.TextureView, wgpu.TextureFormat, uint32, uint32, error) {
	if target == renderer.SurfaceHandle {
		if b.frameView == nil {
			return nil, 0, 0, 0, errors.New("no surface image acquired")
		}
		return b.frameView, b.surfaceFormat, b.width, b.height, nil
	}
	t, ok := b.textures[target]
	if !ok {
		return nil, 0, 0, 0, fmt.Errorf("unknown render target %d", target)
	}
	return t.view, t.format, t.width, t.height, nil
}

// depthFor returns a depth buffer of the given size, creating it on first use. The caller holds the lock.
func (b *wgpuBackendImpl) depthFor(width, height uint32) (*wgpu.TextureView, error) {
	key := [2]uint32{width, height}
	if d, ok := b.depths[key]; ok {
		return d.view, nil
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	b.depths[key] = &depthBuffer{texture: tex, view: view}
	return view, nil
}

func (b *wgpuBackendImpl) BeginPass(target renderer.Handle, clear *common.Color) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass != nil {
		return errors.New("previous pass not ended")
	}
	view, format, width, height, err := b.resolveTarget(target)
	if err != nil {
		return err
	}
	pipeline, err := b.meshPipeline(format)
	if err != nil {
		return err
	}
	depth, err := b.depthFor(width, height)
	if err != nil {
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}

	color := wgpu.RenderPassColorAttachment{
		View:    view,
		LoadOp:  wgpu.LoadOpLoad,
		StoreOp: wgpu.StoreOpStore,
	}
	if clear != nil {
		color.LoadOp = wgpu.LoadOpClear
		color.ClearValue = wgpu.Color{
			R: float64(clear[0]), G: float64(clear[1]), B: float64(clear[2]), A: float64(clear[3]),
		}
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            depth,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
	pass.SetPipeline(pipeline)

	b.passEncoder = encoder
	b.pass = pass
	return nil
}

func (b *wgpuBackendImpl) DrawMesh(mesh renderer.Handle, params renderer.DrawParams) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, ok := b.meshes[mesh]
	if !ok || b.pass == nil {
		return
	}
	uniforms := newGPUMeshUniforms(params)
	b.queue.WriteBuffer(m.uniform, 0, uniforms.Marshal())

	b.pass.SetBindGroup(0, m.bindGroup, nil)
	b.pass.SetVertexBuffer(0, m.vertex, 0, wgpu.WholeSize)
	b.pass.SetIndexBuffer(m.index, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.pass.DrawIndexed(m.indexCount, 1, 0, 0, 0)
}

func (b *wgpuBackendImpl) EndPass() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass == nil {
		return
	}
	b.pass.End()
	b.pass = nil
	encoder := b.passEncoder
	b.passEncoder = nil
	_ = b.submit(encoder)
}

// submit finishes encoder and submits it. The caller holds the lock.
func (b *wgpuBackendImpl) submit(encoder *wgpu.CommandEncoder) error {
	defer encoder.Release()
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuBackendImpl) Blit(effect renderer.Effect, inputs []renderer.Handle, target renderer.Handle, params renderer.EffectParams) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass != nil {
		return errors.New("blit inside an open pass")
	}
	if len(inputs) == 0 {
		return fmt.Errorf("%s effect: no inputs", effect)
	}
	src, ok := b.textures[inputs[0]]
	if !ok {
		return fmt.Errorf("%s effect: unknown input %d", effect, inputs[0])
	}
	aux := src
	if len(inputs) > 1 {
		if aux, ok = b.textures[inputs[1]]; !ok {
			return fmt.Errorf("%s effect: unknown input %d", effect, inputs[1])
		}
	}
	view, format, width, height, err := b.resolveTarget(target)
	if err != nil {
		return err
	}
	pipeline, err := b.effectPipeline(format)
	if err != nil {
		return err
	}

	uniforms := newGPUEffectUniforms(effect, params, int(width), int(height))
	b.queue.WriteBuffer(b.effectUniforms, 0, uniforms.Marshal())

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  effect.String() + " Bind Group",
		Layout: b.effectLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.effectUniforms, Offset: 0, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: src.view},
			{Binding: 2, TextureView: aux.view},
			{Binding: 3, Sampler: b.sampler},
		},
	})
	if err != nil {
		return err
	}
	defer bindGroup.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{A: 1},
		}},
	})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()
	return b.submit(encoder)
}

func (b *wgpuBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass != nil {
		b.pass.End()
		b.pass = nil
		_ = b.submit(b.passEncoder)
		b.passEncoder = nil
	}
	if b.frameSurface == nil {
		return nil
	}

	b.surface.Present()

	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
	return nil
}

func (b *wgpuBackendImpl) DetachSurface() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.detached {
		return
	}
	b.detached = true
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
}

func (b *wgpuBackendImpl) Release() {
	b.DetachSurface()

	b.mu.Lock()
	defer b.mu.Unlock()

	for h, m := range b.meshes {
		m.release()
		delete(b.meshes, h)
	}
	for h, t := range b.textures {
		t.release()
		delete(b.textures, h)
	}
	for size, d := range b.depths {
		d.view.Release()
		d.texture.Release()
		delete(b.depths, size)
	}
	for f, p := range b.meshPipelines {
		p.Release()
		delete(b.meshPipelines, f)
	}
	for f, p := range b.effectPipelines {
		p.Release()
		delete(b.effectPipelines, f)
	}
	if b.sampler != nil {
		b.sampler.Release()
		b.sampler = nil
	}
	if b.effectUniforms != nil {
		b.effectUniforms.Release()
		b.effectUniforms = nil
	}
	if b.effectLayout != nil {
		b.effectLayout.Release()
		b.effectLayout = nil
	}
	if b.meshLayout != nil {
		b.meshLayout.Release()
		b.meshLayout = nil
	}
	if b.effectShader != nil {
		b.effectShader.Release()
		b.effectShader = nil
	}
	if b.meshShader != nil {
		b.meshShader.Release()
		b.meshShader = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

func toWGPUPresentMode(mode renderer.PresentMode) wgpu.PresentMode {
	switch mode {
	case renderer.PresentModeUncapped:
		return wgpu.PresentModeImmediate
	case renderer.PresentModeVSync:
		fallthrough
	default:
		return wgpu.PresentModeFifo
	}
}
