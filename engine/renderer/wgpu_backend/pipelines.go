package wgpu_backend

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
	"github.com/cogentcore/webgpu/wgpu"
)

var meshVertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: model.VertexStride,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
	},
}

var alphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// meshPipeline returns the mesh pipeline writing to format, creating it on first use.
// The caller holds the lock.
func (b *wgpuBackendImpl) meshPipeline(format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	if p, ok := b.meshPipelines[format]; ok {
		return p, nil
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Mesh Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.meshLayout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mesh pipeline layout: %w", err)
	}
	defer layout.Release()

	p, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Mesh Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     b.meshShader,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{meshVertexLayout},
		},
		Fragment: &wgpu.FragmentState{
			Module:     b.meshShader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
				Blend:     &alphaBlend,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mesh pipeline for %v: %w", format, err)
	}
	b.meshPipelines[format] = p
	return p, nil
}

// effectPipeline returns the fullscreen effect pipeline writing to format, creating it on first use.
// The caller holds the lock.
func (b *wgpuBackendImpl) effectPipeline(format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	if p, ok := b.effectPipelines[format]; ok {
		return p, nil
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Effect Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.effectLayout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create effect pipeline layout: %w", err)
	}
	defer layout.Release()

	p, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Effect Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     b.effectShader,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     b.effectShader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create effect pipeline for %v: %w", format, err)
	}
	b.effectPipelines[format] = p
	return p, nil
}
