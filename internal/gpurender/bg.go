package gpurender

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"pterminal/internal/bgspan"
)

// cellInstanceSize is the byte stride of one CellInstance: pos(2)+size(2)+
// color(4) float32s.
const cellInstanceSize = (2 + 2 + 4) * 4

// maxCellsPerBatch pre-allocates capacity for 65K cells to minimize buffer
// reallocations on a typical grid.
const maxCellsPerBatch = 65536

// BgRenderer draws cell background rectangles as instanced quads: one
// pipeline, one growable instance buffer, one draw call per frame.
type BgRenderer struct {
	device *Device

	pipeline       vk.Pipeline
	pipelineLayout vk.PipelineLayout

	instanceBuffer vk.Buffer
	instanceMemory vk.DeviceMemory
	capacity       int
	numInstances   int

	scratch []byte // reused across Prepare calls to avoid per-frame allocation
}

// NewBgRenderer builds the background pipeline from a pre-compiled SPIR-V
// vertex+fragment module pair and pre-allocates maxCellsPerBatch instances.
func NewBgRenderer(d *Device, vertSPIRV, fragSPIRV []byte, renderPass vk.RenderPass) (*BgRenderer, error) {
	r := &BgRenderer{device: d}

	pipeline, layout, err := buildInstancedPipeline(d, vertSPIRV, fragSPIRV, renderPass, cellInstanceSize)
	if err != nil {
		return nil, fmt.Errorf("bg pipeline: %w", err)
	}
	r.pipeline = pipeline
	r.pipelineLayout = layout

	if err := r.allocateInstanceBuffer(maxCellsPerBatch); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *BgRenderer) allocateInstanceBuffer(capacity int) error {
	if r.instanceBuffer != nil {
		vk.DestroyBuffer(r.device.device, r.instanceBuffer, nil)
		vk.FreeMemory(r.device.device, r.instanceMemory, nil)
	}
	buf, mem, err := r.device.createBuffer(
		uint64(capacity*cellInstanceSize),
		vk.BufferUsageVertexBufferBit|vk.BufferUsageTransferDstBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit,
	)
	if err != nil {
		return fmt.Errorf("bg instance buffer: %w", err)
	}
	r.instanceBuffer = buf
	r.instanceMemory = mem
	r.capacity = capacity
	return nil
}

// ensureCapacity doubles (or rounds up to the next power of two, whichever
// is larger) the instance buffer when a frame needs more rects than it
// currently holds, ported from bg.rs's ensure_capacity.
func (r *BgRenderer) ensureCapacity(needed int) error {
	if needed <= r.capacity {
		return nil
	}
	newCapacity := nextPowerOfTwo(needed)
	if doubled := r.capacity * 2; doubled > newCapacity {
		newCapacity = doubled
	}
	return r.allocateInstanceBuffer(newCapacity)
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// Prepare uploads the current frame's background rects (content spans first,
// then the active selection highlight) to GPU-visible memory.
func (r *BgRenderer) Prepare(content, selection []bgspan.Rect, cellW, cellH float32, originX, originY float32) error {
	total := len(content) + len(selection)
	if total == 0 {
		r.numInstances = 0
		return nil
	}
	if err := r.ensureCapacity(total); err != nil {
		return err
	}

	if cap(r.scratch) < total*cellInstanceSize {
		r.scratch = make([]byte, total*cellInstanceSize)
	}
	r.scratch = r.scratch[:total*cellInstanceSize]

	off := 0
	write := func(rects []bgspan.Rect) {
		for _, rect := range rects {
			x := originX + float32(rect.Col)*cellW
			y := originY + float32(rect.Row)*cellH
			w := float32(rect.Width) * cellW
			putFloat32(r.scratch, off, x)
			putFloat32(r.scratch, off+4, y)
			putFloat32(r.scratch, off+8, w)
			putFloat32(r.scratch, off+12, cellH)
			putFloat32(r.scratch, off+16, float32(rect.Color.R)/255)
			putFloat32(r.scratch, off+20, float32(rect.Color.G)/255)
			putFloat32(r.scratch, off+24, float32(rect.Color.B)/255)
			putFloat32(r.scratch, off+28, 1.0)
			off += cellInstanceSize
		}
	}
	write(content)
	write(selection)

	if err := r.device.writeBuffer(r.instanceMemory, r.scratch); err != nil {
		return fmt.Errorf("bg upload: %w", err)
	}
	r.numInstances = total
	return nil
}

// Render issues the instanced draw call for the rects uploaded by the last
// Prepare. A no-op when there was nothing to draw.
func (r *BgRenderer) Render(cmd vk.CommandBuffer) {
	if r.numInstances == 0 {
		return
	}
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, r.pipeline)
	offsets := []vk.DeviceSize{0}
	vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{r.instanceBuffer}, offsets)
	vk.CmdDraw(cmd, 6, uint32(r.numInstances), 0, 0)
}

// Close releases the pipeline and instance buffer.
func (r *BgRenderer) Close() {
	vk.DestroyBuffer(r.device.device, r.instanceBuffer, nil)
	vk.FreeMemory(r.device.device, r.instanceMemory, nil)
	vk.DestroyPipeline(r.device.device, r.pipeline, nil)
	vk.DestroyPipelineLayout(r.device.device, r.pipelineLayout, nil)
}
