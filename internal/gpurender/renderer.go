package gpurender

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"golang.org/x/image/font"

	"pterminal/internal/bgspan"
	"pterminal/internal/orchestrator"
	"pterminal/internal/vte"
)

// Shaders bundles the pre-compiled SPIR-V modules the two sub-renderers
// need. Compiling GLSL to SPIR-V is a build-time, out-of-core concern;
// callers own that step and hand the compiled bytes in here.
type Shaders struct {
	BgVert, BgFrag     []byte
	TextVert, TextFrag []byte
}

// Renderer owns the swapchain and drives one frame's worth of GPU work:
// acquire an image, run the bg and text sub-renderers into it, present.
type Renderer struct {
	device *Device

	surface      vk.Surface
	swapchain    vk.Swapchain
	images       []vk.Image
	imageViews   []vk.ImageView
	framebuffers []vk.Framebuffer
	renderPass   vk.RenderPass
	format       vk.Format
	presentMode  vk.PresentMode
	width, height uint32

	commandBuffer   vk.CommandBuffer
	imageAvailable   vk.Semaphore
	renderFinished   vk.Semaphore
	inFlight         vk.Fence

	bg   *BgRenderer
	text *TextRenderer
}

// NewRenderer builds the swapchain, render pass, and both sub-renderers
// against an already-created surface (window-system glue is out of this
// core's scope; the caller owns surface creation).
func NewRenderer(d *Device, surface vk.Surface, width, height uint32, face font.Face, shaders Shaders) (*Renderer, error) {
	r := &Renderer{device: d, surface: surface, width: width, height: height}

	if err := r.createSwapchain(vk.NullHandle); err != nil {
		return nil, err
	}
	if err := r.createRenderPass(); err != nil {
		return nil, err
	}
	if err := r.createFramebuffers(); err != nil {
		return nil, err
	}
	if err := r.createSync(); err != nil {
		return nil, err
	}

	bg, err := NewBgRenderer(d, shaders.BgVert, shaders.BgFrag, r.renderPass)
	if err != nil {
		return nil, fmt.Errorf("bg renderer: %w", err)
	}
	r.bg = bg

	text, err := NewTextRenderer(d, face, shaders.TextVert, shaders.TextFrag, r.renderPass)
	if err != nil {
		bg.Close()
		return nil, fmt.Errorf("text renderer: %w", err)
	}
	r.text = text

	return r, nil
}

func (r *Renderer) createSwapchain(old vk.Swapchain) error {
	var caps vk.SurfaceCapabilities
	vk.GetPhysicalDeviceSurfaceCapabilities(r.device.physicalDevice, r.surface, &caps)
	caps.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(r.device.physicalDevice, r.surface, &formatCount, nil)
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(r.device.physicalDevice, r.surface, &formatCount, formats)
	format := pickSRGBFormat(formats)

	var modeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(r.device.physicalDevice, r.surface, &modeCount, nil)
	modes := make([]vk.PresentMode, modeCount)
	vk.GetPhysicalDeviceSurfacePresentModes(r.device.physicalDevice, r.surface, &modeCount, modes)
	presentMode := pickPresentMode(modes)

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          r.surface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      vk.Extent2D{Width: r.width, Height: r.height},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}

	var swapchain vk.Swapchain
	if res := vk.CreateSwapchain(r.device.device, &createInfo, nil, &swapchain); res != vk.Success {
		return fmt.Errorf("create swapchain: %v", res)
	}
	if old != vk.NullHandle {
		vk.DestroySwapchain(r.device.device, old, nil)
	}
	r.swapchain = swapchain
	r.format = format.Format
	r.presentMode = presentMode

	var count uint32
	vk.GetSwapchainImages(r.device.device, swapchain, &count, nil)
	images := make([]vk.Image, count)
	vk.GetSwapchainImages(r.device.device, swapchain, &count, images)
	r.images = images

	views := make([]vk.ImageView, len(images))
	for i, img := range images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   format.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		if res := vk.CreateImageView(r.device.device, &viewInfo, nil, &views[i]); res != vk.Success {
			return fmt.Errorf("create swapchain image view %d: %v", i, res)
		}
	}
	r.imageViews = views
	return nil
}

// pickSRGBFormat prefers an sRGB surface format, falling back to the first
// one offered — same preference renderer.rs's surface_caps.formats search
// applies.
func pickSRGBFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		f.Deref()
		if f.Format == vk.FormatB8g8r8a8Srgb || f.Format == vk.FormatR8g8b8a8Srgb {
			return f
		}
	}
	if len(formats) > 0 {
		formats[0].Deref()
		return formats[0]
	}
	return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm}
}

// pickPresentMode prefers Mailbox (lowest latency, no vsync stall) like the
// original, falling back to Immediate and finally the always-available FIFO.
func pickPresentMode(modes []vk.PresentMode) vk.PresentMode {
	hasImmediate := false
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
		if m == vk.PresentModeImmediate {
			hasImmediate = true
		}
	}
	if hasImmediate {
		return vk.PresentModeImmediate
	}
	return vk.PresentModeFifo
}

func (r *Renderer) createRenderPass() error {
	colorAttachment := vk.AttachmentDescription{
		Format:         r.format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	colorRef := vk.AttachmentReference{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{colorRef},
	}
	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}
	var pass vk.RenderPass
	if res := vk.CreateRenderPass(r.device.device, &info, nil, &pass); res != vk.Success {
		return fmt.Errorf("create render pass: %v", res)
	}
	r.renderPass = pass
	return nil
}

func (r *Renderer) createFramebuffers() error {
	framebuffers := make([]vk.Framebuffer, len(r.imageViews))
	for i, view := range r.imageViews {
		info := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      r.renderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           r.width,
			Height:          r.height,
			Layers:          1,
		}
		if res := vk.CreateFramebuffer(r.device.device, &info, nil, &framebuffers[i]); res != vk.Success {
			return fmt.Errorf("create framebuffer %d: %v", i, res)
		}
	}
	r.framebuffers = framebuffers
	return nil
}

func (r *Renderer) createSync() error {
	semInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	if res := vk.CreateSemaphore(r.device.device, &semInfo, nil, &r.imageAvailable); res != vk.Success {
		return fmt.Errorf("create semaphore: %v", res)
	}
	if res := vk.CreateSemaphore(r.device.device, &semInfo, nil, &r.renderFinished); res != vk.Success {
		return fmt.Errorf("create semaphore: %v", res)
	}
	fenceInfo := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo, Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit)}
	if res := vk.CreateFence(r.device.device, &fenceInfo, nil, &r.inFlight); res != vk.Success {
		return fmt.Errorf("create fence: %v", res)
	}

	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        r.device.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cmds := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(r.device.device, &allocInfo, cmds); res != vk.Success {
		return fmt.Errorf("allocate command buffer: %v", res)
	}
	r.commandBuffer = cmds[0]
	return nil
}

// Resize recreates the swapchain and framebuffers for a new window size.
func (r *Renderer) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	vk.DeviceWaitIdle(r.device.device)
	r.width, r.height = width, height
	r.destroySwapchainResources()
	if err := r.createSwapchain(vk.NullHandle); err != nil {
		return err
	}
	return r.createFramebuffers()
}

func (r *Renderer) destroySwapchainResources() {
	for _, fb := range r.framebuffers {
		vk.DestroyFramebuffer(r.device.device, fb, nil)
	}
	for _, view := range r.imageViews {
		vk.DestroyImageView(r.device.device, view, nil)
	}
	r.framebuffers = nil
	r.imageViews = nil
}

// RenderFrame draws one orchestrator frame: bg spans first, then glyphs,
// into the currently-acquired swapchain image. Returns false (frame
// skipped, not an error) when the swapchain is momentarily out of date —
// the caller should retry next tick, mirroring render_frame's Ok(false).
func (r *Renderer) RenderFrame(bgColor vte.RgbColor, frames []orchestrator.PaneFrame, cellW, cellH float32) (bool, error) {
	vk.WaitForFences(r.device.device, 1, []vk.Fence{r.inFlight}, vk.True, ^uint64(0))

	var imageIndex uint32
	res := vk.AcquireNextImage(r.device.device, r.swapchain, ^uint64(0), r.imageAvailable, vk.NullHandle, &imageIndex)
	if res == vk.ErrorOutOfDate {
		return false, r.Resize(r.width, r.height)
	}
	if res != vk.Success && res != vk.Suboptimal {
		return false, fmt.Errorf("acquire next image: %v", res)
	}

	bgSpans, paneGlyphs := composeFrame(frames, bgColor, cellW, cellH)
	var selSpans []bgspan.Rect
	if err := r.bg.Prepare(bgSpans, selSpans, cellW, cellH, 0, 0); err != nil {
		return false, fmt.Errorf("bg prepare: %w", err)
	}
	if err := r.text.Prepare(paneGlyphs); err != nil {
		return false, fmt.Errorf("text prepare: %w", err)
	}

	vk.ResetFences(r.device.device, 1, []vk.Fence{r.inFlight})
	vk.ResetCommandBuffer(r.commandBuffer, 0)

	beginInfo := vk.CommandBufferBeginInfo{SType: vk.StructureTypeCommandBufferBeginInfo}
	vk.BeginCommandBuffer(r.commandBuffer, &beginInfo)

	clearColor := vk.NewClearValue([]float32{
		float32(bgColor.R) / 255, float32(bgColor.G) / 255, float32(bgColor.B) / 255, 1.0,
	})
	passInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  r.renderPass,
		Framebuffer: r.framebuffers[imageIndex],
		RenderArea:  vk.Rect2D{Extent: vk.Extent2D{Width: r.width, Height: r.height}},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{clearColor},
	}
	vk.CmdBeginRenderPass(r.commandBuffer, &passInfo, vk.SubpassContentsInline)

	viewport := vk.Viewport{Width: float32(r.width), Height: float32(r.height), MaxDepth: 1.0}
	vk.CmdSetViewport(r.commandBuffer, 0, 1, []vk.Viewport{viewport})
	scissor := vk.Rect2D{Extent: vk.Extent2D{Width: r.width, Height: r.height}}
	vk.CmdSetScissor(r.commandBuffer, 0, 1, []vk.Rect2D{scissor})

	r.bg.Render(r.commandBuffer)
	r.text.Render(r.commandBuffer)

	vk.CmdEndRenderPass(r.commandBuffer)
	vk.EndCommandBuffer(r.commandBuffer)

	waitStages := []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}
	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{r.imageAvailable},
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{r.commandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{r.renderFinished},
	}
	if res := vk.QueueSubmit(r.device.queue, 1, []vk.SubmitInfo{submit}, r.inFlight); res != vk.Success {
		return false, fmt.Errorf("queue submit: %v", res)
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{r.renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{r.swapchain},
		PImageIndices:      []uint32{imageIndex},
	}
	vk.QueuePresent(r.device.queue, &presentInfo)

	r.text.PostRender()
	return true, nil
}

// Close releases the sub-renderers, swapchain, and render pass. The shared
// Device is owned by the caller and outlives a Renderer.
func (r *Renderer) Close() {
	vk.DeviceWaitIdle(r.device.device)
	r.text.Close()
	r.bg.Close()
	vk.DestroyFence(r.device.device, r.inFlight, nil)
	vk.DestroySemaphore(r.device.device, r.renderFinished, nil)
	vk.DestroySemaphore(r.device.device, r.imageAvailable, nil)
	r.destroySwapchainResources()
	vk.DestroyRenderPass(r.device.device, r.renderPass, nil)
	vk.DestroySwapchain(r.device.device, r.swapchain, nil)
}
