package renderer

import (
	"log"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/edeleiter/vulkanmon/common"
	"github.com/edeleiter/vulkanmon/model"
)

// Pipeline bundles a graphics pipeline with the layout it was created against. It is immutable
// after construction; the hot-reload path replaces whole Pipeline values, never edits them.
type Pipeline struct {
	Handle vk.Pipeline
	Layout vk.PipelineLayout
}

func (p *Pipeline) Destroy(d vk.Device) {
	vk.DestroyPipeline(d, p.Handle, nil)
	vk.DestroyPipelineLayout(d, p.Layout, nil)
}

// PipelineBuilder assembles graphics pipelines for a fixed render pass and descriptor set
// layout. Build is pure with respect to existing pipelines: it neither destroys an old pipeline
// nor installs the new one as current. That responsibility stays with the caller, which is what
// makes rollback on a broken shader possible.
type PipelineBuilder struct {
	device     vk.Device
	renderPass vk.RenderPass
	setLayout  vk.DescriptorSetLayout
}

func NewPipelineBuilder(device vk.Device, renderPass vk.RenderPass, setLayout vk.DescriptorSetLayout) *PipelineBuilder {
	return &PipelineBuilder{
		device:     device,
		renderPass: renderPass,
		setLayout:  setLayout,
	}
}

// Build loads the two stage binaries and assembles a pipeline around the fixed vertex layout
// and fixed-function state of this renderer: depth test and write enabled with a "less"
// compare op, back-face culling, triangle lists, no blending. The shader modules only carry
// the code into the pipeline and are destroyed again before returning.
func (b *PipelineBuilder) Build(vertSpv string, fragSpv string) (*Pipeline, error) {
	vertShaderMod, vertStageInfo, err := LoadVert(b.device, vertSpv)
	if err != nil {
		return nil, err
	}
	defer DeleteShaderMod(b.device, vertShaderMod)
	fragShaderMod, fragStageInfo, err := LoadFrag(b.device, fragSpv)
	if err != nil {
		return nil, err
	}
	defer DeleteShaderMod(b.device, fragShaderMod)
	shaderStages := []vk.PipelineShaderStageCreateInfo{vertStageInfo, fragStageInfo}
	log.Printf("Shaders loaded successfully! Prepared %d shader stages for pipeline creation", len(shaderStages))

	// Viewport and scissor stay dynamic so the pipeline survives swap chain recreation.
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		PNext:             nil,
		Flags:             0,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}
	bindingDesc := []vk.VertexInputBindingDescription{model.GetVertexBindingDescription()}
	attributeDesc := model.GetVertexAttributeDescriptions()
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		PNext:                           nil,
		Flags:                           0,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      bindingDesc,
		VertexAttributeDescriptionCount: uint32(len(attributeDesc)),
		PVertexAttributeDescriptions:    attributeDesc,
	}
	inputAssemblyInfo := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		PNext:                  nil,
		Flags:                  0,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}
	viewportStateInfo := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		PNext:         nil,
		Flags:         0,
		ViewportCount: 1,
		PViewports:    nil,
		ScissorCount:  1,
		PScissors:     nil,
	}
	rasterizerInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		PNext:                   nil,
		Flags:                   0,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		CullMode:                vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
		DepthBiasConstantFactor: 0,
		DepthBiasClamp:          0,
		DepthBiasSlopeFactor:    0,
		LineWidth:               1.0,
	}
	multisamplingInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		PNext:                 nil,
		Flags:                 0,
		RasterizationSamples:  vk.SampleCount1Bit,
		SampleShadingEnable:   vk.False,
		MinSampleShading:      1.0,
		PSampleMask:           nil,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}
	colorBlendAttachmentInfo := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.False,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask:      vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	colorBlendingInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		PNext:           nil,
		Flags:           0,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentInfo},
		BlendConstants:  [4]float32{0, 0, 0, 0},
	}

	pipelineLayoutInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		PNext:                  nil,
		Flags:                  0,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{b.setLayout},
		PushConstantRangeCount: 0,
		PPushConstantRanges:    nil,
	}
	layout, err := common.VkCreatePipelineLayout(b.device, &pipelineLayoutInfo, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pipeline layout")
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		PNext:                 nil,
		Flags:                 0,
		DepthTestEnable:       vk.True,
		DepthWriteEnable:      vk.True,
		DepthCompareOp:        vk.CompareOpLess,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
		Front:                 vk.StencilOpState{},
		Back:                  vk.StencilOpState{},
		MinDepthBounds:        0,
		MaxDepthBounds:        1,
	}

	// The actual pipeline
	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:               nil,
		Flags:               0,
		StageCount:          2,
		PStages:             shaderStages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssemblyInfo,
		PTessellationState:  nil,
		PViewportState:      &viewportStateInfo,
		PRasterizationState: &rasterizerInfo,
		PMultisampleState:   &multisamplingInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendingInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              layout,
		RenderPass:          b.renderPass,
		Subpass:             0,
		BasePipelineHandle:  nil,
		BasePipelineIndex:   -1,
	}
	pipelineInfos := []vk.GraphicsPipelineCreateInfo{pipelineInfo}
	pipelines, err := common.VkCreateGraphicsPipelines(b.device, nil, 1, pipelineInfos, nil)
	if err != nil {
		vk.DestroyPipelineLayout(b.device, layout, nil)
		return nil, errors.Wrap(err, "failed to create graphics pipeline")
	}
	log.Printf("Graphics pipeline created successfully!")

	return &Pipeline{
		Handle: pipelines[0],
		Layout: layout,
	}, nil
}
