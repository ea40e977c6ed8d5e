// Package gpurender drives the instanced Vulkan draw calls that turn a
// frame's shaped text and background spans into pixels: one pipeline for
// cell background rectangles, one for glyph quads, sharing a single
// device/queue pair.
//
// Window-system glue (surface creation, event pumps) is a thin collaborator
// outside this core's scope, so NewRenderer takes an already-created
// vk.Surface rather than reaching into GLFW/SDL/platform APIs itself.
// Shader bytecode is likewise supplied as compiled SPIR-V ([]byte) rather
// than embedded source, since WGSL/GLSL authoring is out of scope too.
package gpurender

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Device holds the Vulkan handles shared by every sub-renderer in this
// package: one physical device, one logical device, one graphics queue.
type Device struct {
	instance       vk.Instance
	physicalDevice vk.PhysicalDevice
	device         vk.Device
	queue          vk.Queue
	queueFamily    uint32
	memProps       vk.PhysicalDeviceMemoryProperties
	commandPool    vk.CommandPool
}

// NewDevice creates a Vulkan instance, selects the first discrete (falling
// back to any) physical device, and opens a logical device with a single
// graphics queue.
func NewDevice(appName string) (*Device, error) {
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vulkan init: %w", err)
	}

	instInfo := vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   appName + "\x00",
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PEngineName:        "pterminal\x00",
			EngineVersion:      vk.MakeVersion(1, 0, 0),
			ApiVersion:         vk.ApiVersion11,
		},
	}
	var instance vk.Instance
	if res := vk.CreateInstance(&instInfo, nil, &instance); res != vk.Success {
		return nil, fmt.Errorf("create instance: %v", res)
	}
	vk.InitInstance(instance)

	physicalDevice, queueFamily, err := selectPhysicalDevice(instance)
	if err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, err
	}

	queuePriority := float32(1.0)
	deviceInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: queueFamily,
			QueueCount:       1,
			PQueuePriorities: []float32{queuePriority},
		}},
		EnabledExtensionCount:   1,
		PpEnabledExtensionNames: []string{"VK_KHR_swapchain\x00"},
	}

	var device vk.Device
	if res := vk.CreateDevice(physicalDevice, &deviceInfo, nil, &device); res != vk.Success {
		vk.DestroyInstance(instance, nil)
		return nil, fmt.Errorf("create device: %v", res)
	}

	var queue vk.Queue
	vk.GetDeviceQueue(device, queueFamily, 0, &queue)

	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &memProps)

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: queueFamily,
	}
	var commandPool vk.CommandPool
	if res := vk.CreateCommandPool(device, &poolInfo, nil, &commandPool); res != vk.Success {
		vk.DestroyDevice(device, nil)
		vk.DestroyInstance(instance, nil)
		return nil, fmt.Errorf("create command pool: %v", res)
	}

	return &Device{
		instance:       instance,
		physicalDevice: physicalDevice,
		device:         device,
		queue:          queue,
		queueFamily:    queueFamily,
		memProps:       memProps,
		commandPool:    commandPool,
	}, nil
}

func selectPhysicalDevice(instance vk.Instance) (vk.PhysicalDevice, uint32, error) {
	var count uint32
	vk.EnumeratePhysicalDevices(instance, &count, nil)
	if count == 0 {
		return nil, 0, fmt.Errorf("no Vulkan-capable GPU found")
	}
	devices := make([]vk.PhysicalDevice, count)
	vk.EnumeratePhysicalDevices(instance, &count, devices)

	// Prefer a discrete GPU; any device with a graphics queue will do as a
	// fallback (headless CI runners typically only expose a software one).
	var fallback vk.PhysicalDevice
	var fallbackFamily uint32
	haveFallback := false
	for _, pd := range devices {
		family, ok := graphicsQueueFamily(pd)
		if !ok {
			continue
		}
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &props)
		props.Deref()
		if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			return pd, family, nil
		}
		if !haveFallback {
			fallback, fallbackFamily, haveFallback = pd, family, true
		}
	}
	if haveFallback {
		return fallback, fallbackFamily, nil
	}
	return nil, 0, fmt.Errorf("no physical device exposes a graphics queue")
}

func graphicsQueueFamily(pd vk.PhysicalDevice) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, families)
	for i, f := range families {
		f.Deref()
		if f.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			return uint32(i), true
		}
	}
	return 0, false
}

// findMemoryType returns an index into Device's memory-type list matching
// typeFilter (the bitmask from VkMemoryRequirements) and properties.
func (d *Device) findMemoryType(typeFilter uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < d.memProps.MemoryTypeCount; i++ {
		memType := d.memProps.MemoryTypes[i]
		memType.Deref()
		if typeFilter&(1<<i) == 0 {
			continue
		}
		if memType.PropertyFlags&properties == properties {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no suitable memory type for filter %#x properties %#x", typeFilter, properties)
}

// createBuffer allocates a buffer and binds device memory with the given
// usage/property flags, returning the buffer and its backing memory.
func (d *Device) createBuffer(size uint64, usage vk.BufferUsageFlagBits, props vk.MemoryPropertyFlagBits) (vk.Buffer, vk.DeviceMemory, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if res := vk.CreateBuffer(d.device, &bufferInfo, nil, &buffer); res != vk.Success {
		return nil, nil, fmt.Errorf("create buffer: %v", res)
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.device, buffer, &req)
	req.Deref()

	memTypeIdx, err := d.findMemoryType(req.MemoryTypeBits, vk.MemoryPropertyFlags(props))
	if err != nil {
		vk.DestroyBuffer(d.device, buffer, nil)
		return nil, nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memTypeIdx,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(d.device, &allocInfo, nil, &memory); res != vk.Success {
		vk.DestroyBuffer(d.device, buffer, nil)
		return nil, nil, fmt.Errorf("allocate memory: %v", res)
	}
	if res := vk.BindBufferMemory(d.device, buffer, memory, 0); res != vk.Success {
		return nil, nil, fmt.Errorf("bind buffer memory: %v", res)
	}
	return buffer, memory, nil
}

// writeBuffer copies data into a host-visible buffer's memory, mirroring
// wgpu::Queue::write_buffer's map/copy/unmap round trip.
func (d *Device) writeBuffer(memory vk.DeviceMemory, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var mapped unsafe.Pointer
	if res := vk.MapMemory(d.device, memory, 0, vk.DeviceSize(len(data)), 0, &mapped); res != vk.Success {
		return fmt.Errorf("map memory: %v", res)
	}
	vk.Memcopy(mapped, data)
	vk.UnmapMemory(d.device, memory)
	return nil
}

// createSampledImage allocates a 2D image (single mip, single sample) with
// TRANSFER_DST | SAMPLED usage and a matching view, sized for CPU uploads via
// uploadImage — the glyph atlas texture's backing store.
func (d *Device) createSampledImage(width, height int, format vk.Format) (vk.Image, vk.DeviceMemory, vk.ImageView, error) {
	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent:    vk.Extent3D{Width: uint32(width), Height: uint32(height), Depth: 1},
		MipLevels: 1,
		ArrayLayers: 1,
		Samples:    vk.SampleCount1Bit,
		Tiling:     vk.ImageTilingOptimal,
		Usage:      vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		SharingMode: vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var image vk.Image
	if res := vk.CreateImage(d.device, &imageInfo, nil, &image); res != vk.Success {
		return nil, nil, nil, fmt.Errorf("create image: %v", res)
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.device, image, &req)
	req.Deref()
	memTypeIdx, err := d.findMemoryType(req.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(d.device, image, nil)
		return nil, nil, nil, err
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memTypeIdx,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(d.device, &allocInfo, nil, &memory); res != vk.Success {
		vk.DestroyImage(d.device, image, nil)
		return nil, nil, nil, fmt.Errorf("allocate image memory: %v", res)
	}
	if res := vk.BindImageMemory(d.device, image, memory, 0); res != vk.Success {
		return nil, nil, nil, fmt.Errorf("bind image memory: %v", res)
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(d.device, &viewInfo, nil, &view); res != vk.Success {
		return nil, nil, nil, fmt.Errorf("create image view: %v", res)
	}
	return image, memory, view, nil
}

// uploadImage copies pixel data into dst via a transient staging buffer and
// a one-off command buffer, the same staging-buffer round trip the Voodoo
// Vulkan backend uses for its framebuffer readback path, run in reverse
// (host→device instead of device→host).
func (d *Device) uploadImage(dst vk.Image, pixels []byte, width, height, bytesPerPixel int) error {
	stagingBuf, stagingMem, err := d.createBuffer(
		uint64(len(pixels)),
		vk.BufferUsageTransferSrcBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit,
	)
	if err != nil {
		return fmt.Errorf("staging buffer: %w", err)
	}
	defer func() {
		vk.DestroyBuffer(d.device, stagingBuf, nil)
		vk.FreeMemory(d.device, stagingMem, nil)
	}()
	if err := d.writeBuffer(stagingMem, pixels); err != nil {
		return err
	}

	cmd, err := d.beginOneShotCommands()
	if err != nil {
		return err
	}

	d.transitionImageLayout(cmd, dst, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: uint32(width), Height: uint32(height), Depth: 1},
	}
	vk.CmdCopyBufferToImage(cmd, stagingBuf, dst, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
	d.transitionImageLayout(cmd, dst, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)

	return d.endOneShotCommands(cmd)
}

func (d *Device) beginOneShotCommands() (vk.CommandBuffer, error) {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cmds := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(d.device, &allocInfo, cmds); res != vk.Success {
		return nil, fmt.Errorf("allocate command buffer: %v", res)
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	vk.BeginCommandBuffer(cmds[0], &beginInfo)
	return cmds[0], nil
}

func (d *Device) endOneShotCommands(cmd vk.CommandBuffer) error {
	vk.EndCommandBuffer(cmd)
	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}
	if res := vk.QueueSubmit(d.queue, 1, []vk.SubmitInfo{submit}, nil); res != vk.Success {
		return fmt.Errorf("submit one-shot commands: %v", res)
	}
	vk.QueueWaitIdle(d.queue)
	vk.FreeCommandBuffers(d.device, d.commandPool, 1, []vk.CommandBuffer{cmd})
	return nil
}

func (d *Device) transitionImageLayout(cmd vk.CommandBuffer, image vk.Image, from, to vk.ImageLayout) {
	barrier := vk.ImageMemoryBarrier{
		SType:     vk.StructureTypeImageMemoryBarrier,
		OldLayout: from,
		NewLayout: to,
		Image:     image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	vk.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func (d *Device) createShaderModule(spirv []byte) (vk.ShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(spirv)),
		PCode:    sliceUint32(spirv),
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(d.device, &createInfo, nil, &module); res != vk.Success {
		return nil, fmt.Errorf("create shader module: %v", res)
	}
	return module, nil
}

// Close releases the logical device and instance. Sub-renderers must be
// closed first since they own buffers/pipelines allocated against this
// device.
func (d *Device) Close() {
	vk.DeviceWaitIdle(d.device)
	vk.DestroyCommandPool(d.device, d.commandPool, nil)
	vk.DestroyDevice(d.device, nil)
	vk.DestroyInstance(d.instance, nil)
}
