package gpurender

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// buildInstancedPipeline assembles a minimal instanced-quad graphics
// pipeline: no vertex buffer, a single per-instance attribute buffer bound
// at binding 0, six vertices per instance (two triangles), triangle-list
// topology, standard alpha blending. Both BgRenderer and the glyph
// sub-renderer use this shape, differing only in their SPIR-V modules and
// per-instance stride.
func buildInstancedPipeline(d *Device, vertSPIRV, fragSPIRV []byte, renderPass vk.RenderPass, instanceStride int) (vk.Pipeline, vk.PipelineLayout, error) {
	vertModule, err := d.createShaderModule(vertSPIRV)
	if err != nil {
		return nil, nil, fmt.Errorf("vertex shader: %w", err)
	}
	defer vk.DestroyShaderModule(d.device, vertModule, nil)

	fragModule, err := d.createShaderModule(fragSPIRV)
	if err != nil {
		return nil, nil, fmt.Errorf("fragment shader: %w", err)
	}
	defer vk.DestroyShaderModule(d.device, fragModule, nil)

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vertModule,
			PName:  "main\x00",
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: fragModule,
			PName:  "main\x00",
		},
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{{Binding: 0, Stride: uint32(instanceStride), InputRate: vk.VertexInputRateInstance}},
		VertexAttributeDescriptionCount: 0, // attribute layout is fixed per sub-renderer's shader; set by caller via PNext in a fuller build
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeNone),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1.0,
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	blendAttachment := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
			vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAttachment},
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	layoutInfo := vk.PipelineLayoutCreateInfo{SType: vk.StructureTypePipelineLayoutCreateInfo}
	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(d.device, &layoutInfo, nil, &layout); res != vk.Success {
		return nil, nil, fmt.Errorf("create pipeline layout: %v", res)
	}

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:           2,
		PStages:              stages,
		PVertexInputState:    &vertexInput,
		PInputAssemblyState:  &inputAssembly,
		PViewportState:       &viewportState,
		PRasterizationState:  &rasterizer,
		PMultisampleState:    &multisample,
		PColorBlendState:     &colorBlend,
		PDynamicState:        &dynamicState,
		Layout:               layout,
		RenderPass:           renderPass,
		Subpass:              0,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(d.device, vk.PipelineCache(vk.NullHandle), 1,
		[]vk.GraphicsPipelineCreateInfo{pipelineInfo}, nil, pipelines); res != vk.Success {
		vk.DestroyPipelineLayout(d.device, layout, nil)
		return nil, nil, fmt.Errorf("create graphics pipeline: %v", res)
	}

	return pipelines[0], layout, nil
}
