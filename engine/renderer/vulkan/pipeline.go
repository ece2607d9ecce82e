package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
)

var (
	_ gpu.ScenePipeline   = (*ScenePipeline)(nil)
	_ gpu.PresentPipeline = (*PresentPipeline)(nil)
	_ boundPipeline       = (*ScenePipeline)(nil)
	_ boundPipeline       = (*PresentPipeline)(nil)
)

// pipeline is the driver core shared by the concrete pipelines: the
// handle, its layout and the identity descriptor caches key groups by.
type pipeline struct {
	device   *Device
	handle   vk.Pipeline
	layout   vk.PipelineLayout
	layoutID uuid.UUID
}

func (p *pipeline) LayoutID() uuid.UUID {
	return p.layoutID
}

func (p *pipeline) pipelineHandle() vk.Pipeline {
	return p.handle
}

func (p *pipeline) pipelineLayout() vk.PipelineLayout {
	return p.layout
}

func (p *pipeline) destroy() {
	if p.handle != vk.NullPipeline {
		vk.DestroyPipeline(p.device.logical, p.handle, p.device.context.Allocator)
		p.handle = vk.NullPipeline
	}
	if p.layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(p.device.logical, p.layout, p.device.context.Allocator)
		p.layout = vk.NullPipelineLayout
	}
}

type pipelineConfig struct {
	renderPass vk.RenderPass
	subpass    uint32
	stride     uint32
	attributes []vk.VertexInputAttributeDescription
	setLayouts []vk.DescriptorSetLayout
	stages     []vk.PipelineShaderStageCreateInfo
	cullMode   vk.CullModeFlagBits
	depthTest  bool
	blend      bool
}

func newGraphicsPipeline(device *Device, config *pipelineConfig) (*pipeline, error) {
	// Viewport and scissor are dynamic; only the counts matter here.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{{}},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{{}},
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		LineWidth:   1.0,
		CullMode:    vk.CullModeFlags(config.cullMode),
		FrontFace:   vk.FrontFaceCounterClockwise,
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType: vk.StructureTypePipelineDepthStencilStateCreateInfo,
	}
	if config.depthTest {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthWriteEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
	}

	blendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
			vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	if config.blend {
		blendAttachment.BlendEnable = vk.True
		blendAttachment.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		blendAttachment.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		blendAttachment.ColorBlendOp = vk.BlendOpAdd
		blendAttachment.SrcAlphaBlendFactor = vk.BlendFactorSrcAlpha
		blendAttachment.DstAlphaBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		blendAttachment.AlphaBlendOp = vk.BlendOpAdd
	}

	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAttachment},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions: []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    config.stride,
			InputRate: vk.VertexInputRateVertex,
		}},
		VertexAttributeDescriptionCount: uint32(len(config.attributes)),
		PVertexAttributeDescriptions:    config.attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(config.setLayouts)),
		PSetLayouts:    config.setLayouts,
	}

	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(device.logical, &layoutInfo, device.context.Allocator, &layout); res != vk.Success {
		err := fmt.Errorf("failed to create pipeline layout: %w", vkError("vkCreatePipelineLayout", res))
		core.LogError(err.Error())
		return nil, err
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(config.stages)),
		PStages:             config.stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          config.renderPass,
		Subpass:             config.subpass,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	handles := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(device.logical, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{createInfo}, device.context.Allocator, handles); res != vk.Success {
		vk.DestroyPipelineLayout(device.logical, layout, device.context.Allocator)
		err := fmt.Errorf("failed to create graphics pipeline: %w", vkError("vkCreateGraphicsPipelines", res))
		core.LogError(err.Error())
		return nil, err
	}

	return &pipeline{
		device:   device,
		handle:   handles[0],
		layout:   layout,
		layoutID: uuid.New(),
	}, nil
}

// ScenePipeline draws entities in the scene subpass. Sets bind in role
// order: model at set 0, view at set 1, material at set 2.
type ScenePipeline struct {
	pipeline
	modelLayout    *SetLayout
	viewLayout     *SetLayout
	materialLayout *SetLayout
}

// NewScenePipeline builds the scene pipeline from compiled SPIR-V stages.
// The vertex layout is position, colour, normal and texcoord, matching
// scene.Vertex3D.
func NewScenePipeline(device *Device, surface *Swapchain, vertSPV, fragSPV []byte) (*ScenePipeline, error) {
	modelLayout, err := newSetLayout(device, []vk.DescriptorSetLayoutBinding{
		uniformBinding(0, vk.ShaderStageFlags(vk.ShaderStageVertexBit)),
		uniformBinding(1, vk.ShaderStageFlags(vk.ShaderStageVertexBit)),
	}, gpu.BindingCounts{Uniforms: 2})
	if err != nil {
		return nil, err
	}
	viewLayout, err := newSetLayout(device, []vk.DescriptorSetLayoutBinding{
		uniformBinding(0, vk.ShaderStageFlags(vk.ShaderStageVertexBit)),
		uniformBinding(1, vk.ShaderStageFlags(vk.ShaderStageVertexBit)),
	}, gpu.BindingCounts{Uniforms: 2})
	if err != nil {
		modelLayout.destroy()
		return nil, err
	}
	materialLayout, err := newSetLayout(device, []vk.DescriptorSetLayoutBinding{
		uniformBinding(0, vk.ShaderStageFlags(vk.ShaderStageFragmentBit)),
		samplerBinding(1),
	}, gpu.BindingCounts{Uniforms: 1, Samplers: 1})
	if err != nil {
		viewLayout.destroy()
		modelLayout.destroy()
		return nil, err
	}

	stages, err := device.newShaderStagePair(vertSPV, fragSPV)
	if err != nil {
		materialLayout.destroy()
		viewLayout.destroy()
		modelLayout.destroy()
		return nil, err
	}
	defer stages.destroy(device)

	base, err := newGraphicsPipeline(device, &pipelineConfig{
		renderPass: surface.renderPass,
		subpass:    0,
		stride:     48,
		attributes: []vk.VertexInputAttributeDescription{
			{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
			{Location: 1, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: 12},
			{Location: 2, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 28},
			{Location: 3, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 40},
		},
		setLayouts: []vk.DescriptorSetLayout{modelLayout.handle, viewLayout.handle, materialLayout.handle},
		stages:     stages.stageInfos(),
		cullMode:   vk.CullModeBackBit,
		depthTest:  true,
		blend:      true,
	})
	if err != nil {
		materialLayout.destroy()
		viewLayout.destroy()
		modelLayout.destroy()
		return nil, err
	}

	return &ScenePipeline{
		pipeline:       *base,
		modelLayout:    modelLayout,
		viewLayout:     viewLayout,
		materialLayout: materialLayout,
	}, nil
}

func (p *ScenePipeline) ModelSetLayouts() []gpu.SetLayout {
	return []gpu.SetLayout{p.modelLayout}
}

func (p *ScenePipeline) ViewSetLayouts() []gpu.SetLayout {
	return []gpu.SetLayout{p.viewLayout}
}

func (p *ScenePipeline) MaterialSetLayouts() []gpu.SetLayout {
	return []gpu.SetLayout{p.materialLayout}
}

func (p *ScenePipeline) WriteModelSet(group gpu.SetGroup, model gpu.Buffer, modelView gpu.Buffer) {
	set := firstSet(group)
	writeUniforms(p.device, set, bufferHandle(model), bufferHandle(modelView))
}

func (p *ScenePipeline) WriteViewSet(group gpu.SetGroup, view gpu.Buffer, proj gpu.Buffer) {
	set := firstSet(group)
	writeUniforms(p.device, set, bufferHandle(view), bufferHandle(proj))
}

func (p *ScenePipeline) WriteMaterialSet(group gpu.SetGroup, material gpu.Buffer, albedo gpu.Texture) {
	set := firstSet(group)
	texture := albedo.(*Texture)
	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: bufferHandle(material),
				Range:  vk.DeviceSize(vk.WholeSize),
			}},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			PImageInfo: []vk.DescriptorImageInfo{{
				Sampler:     texture.sampler,
				ImageView:   texture.image.view,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}},
		},
	}
	vk.UpdateDescriptorSets(p.device.logical, uint32(len(writes)), writes, 0, nil)
}

func (p *ScenePipeline) Destroy() {
	p.pipeline.destroy()
	p.materialLayout.destroy()
	p.viewLayout.destroy()
	p.modelLayout.destroy()
}

// PresentPipeline composites the offscreen attachments onto the chain
// image in the presentation subpass. Its vertex input is a bare vec2
// fullscreen triangle.
type PresentPipeline struct {
	pipeline
	presentLayout *SetLayout
}

func NewPresentPipeline(device *Device, surface *Swapchain, vertSPV, fragSPV []byte) (*PresentPipeline, error) {
	presentLayout, err := newSetLayout(device, []vk.DescriptorSetLayoutBinding{
		inputAttachmentBinding(0),
		inputAttachmentBinding(1),
	}, gpu.BindingCounts{InputAttachments: 2})
	if err != nil {
		return nil, err
	}

	stages, err := device.newShaderStagePair(vertSPV, fragSPV)
	if err != nil {
		presentLayout.destroy()
		return nil, err
	}
	defer stages.destroy(device)

	base, err := newGraphicsPipeline(device, &pipelineConfig{
		renderPass: surface.renderPass,
		subpass:    1,
		stride:     8,
		attributes: []vk.VertexInputAttributeDescription{
			{Location: 0, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 0},
		},
		setLayouts: []vk.DescriptorSetLayout{presentLayout.handle},
		stages:     stages.stageInfos(),
		cullMode:   vk.CullModeNone,
	})
	if err != nil {
		presentLayout.destroy()
		return nil, err
	}

	return &PresentPipeline{pipeline: *base, presentLayout: presentLayout}, nil
}

func (p *PresentPipeline) PresentSetLayouts() []gpu.SetLayout {
	return []gpu.SetLayout{p.presentLayout}
}

func (p *PresentPipeline) WritePresentSet(group gpu.SetGroup, target gpu.RenderTarget) {
	set := firstSet(group)
	rt := target.(*RenderTarget)
	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      0,
			DescriptorType:  vk.DescriptorTypeInputAttachment,
			DescriptorCount: 1,
			PImageInfo: []vk.DescriptorImageInfo{{
				ImageView:   rt.albedo.view,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      1,
			DescriptorType:  vk.DescriptorTypeInputAttachment,
			DescriptorCount: 1,
			PImageInfo: []vk.DescriptorImageInfo{{
				ImageView:   rt.depth.view,
				ImageLayout: vk.ImageLayoutDepthStencilReadOnlyOptimal,
			}},
		},
	}
	vk.UpdateDescriptorSets(p.device.logical, uint32(len(writes)), writes, 0, nil)
}

func (p *PresentPipeline) Destroy() {
	p.pipeline.destroy()
	p.presentLayout.destroy()
}

func firstSet(group gpu.SetGroup) vk.DescriptorSet {
	return group.(*SetGroup).sets[0]
}

func bufferHandle(b gpu.Buffer) vk.Buffer {
	return b.(*Buffer).handle
}

// writeUniforms points two consecutive uniform bindings of a set at two
// whole buffers.
func writeUniforms(device *Device, set vk.DescriptorSet, first, second vk.Buffer) {
	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: first,
				Range:  vk.DeviceSize(vk.WholeSize),
			}},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: second,
				Range:  vk.DeviceSize(vk.WholeSize),
			}},
		},
	}
	vk.UpdateDescriptorSets(device.logical, uint32(len(writes)), writes, 0, nil)
}
