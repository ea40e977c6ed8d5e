package gpurender

import (
	vk "github.com/goki/vulkan"
	"golang.org/x/image/font"

	"pterminal/internal/shaper"
	"pterminal/internal/vte"
)

// glyphInstanceSize is the byte stride of one glyph quad instance: dest
// pos(2) + atlas uv rect(4) + color(4) + boldFlag(1, padded to a float) as
// float32s.
const glyphInstanceSize = (2 + 4 + 4 + 1) * 4

// maxGlyphsPerBatch sizes the default glyph instance buffer for a generously
// large terminal (e.g. a 240x80 grid) without needing to grow mid-session.
const maxGlyphsPerBatch = 240 * 80

// TextRenderer shapes and draws every pane's glyphs in one pipeline, backed
// by a single glyph atlas shared across panes (most panes draw the same
// ASCII/box-drawing alphabet, so a shared atlas avoids redundant
// rasterization).
type TextRenderer struct {
	device *Device
	atlas  *glyphAtlas

	pipeline       vk.Pipeline
	pipelineLayout vk.PipelineLayout

	instanceBuffer vk.Buffer
	instanceMemory vk.DeviceMemory
	capacity       int
	numInstances   int

	scratch []byte
}

// NewTextRenderer builds the glyph pipeline and atlas. face may be nil to
// use the stdlib basicfont fallback (see newGlyphAtlas).
func NewTextRenderer(d *Device, face font.Face, vertSPIRV, fragSPIRV []byte, renderPass vk.RenderPass) (*TextRenderer, error) {
	atlas, err := newGlyphAtlas(d, face, 512)
	if err != nil {
		return nil, err
	}
	pipeline, layout, err := buildInstancedPipeline(d, vertSPIRV, fragSPIRV, renderPass, glyphInstanceSize)
	if err != nil {
		atlas.close()
		return nil, err
	}

	r := &TextRenderer{device: d, atlas: atlas, pipeline: pipeline, pipelineLayout: layout}
	if err := r.allocateInstanceBuffer(maxGlyphsPerBatch); err != nil {
		atlas.close()
		return nil, err
	}
	return r, nil
}

func (r *TextRenderer) allocateInstanceBuffer(capacity int) error {
	if r.instanceBuffer != nil {
		vk.DestroyBuffer(r.device.device, r.instanceBuffer, nil)
		vk.FreeMemory(r.device.device, r.instanceMemory, nil)
	}
	buf, mem, err := r.device.createBuffer(
		uint64(capacity*glyphInstanceSize),
		vk.BufferUsageVertexBufferBit|vk.BufferUsageTransferDstBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit,
	)
	if err != nil {
		return err
	}
	r.instanceBuffer = buf
	r.instanceMemory = mem
	r.capacity = capacity
	return nil
}

func (r *TextRenderer) ensureCapacity(needed int) error {
	if needed <= r.capacity {
		return nil
	}
	newCapacity := nextPowerOfTwo(needed)
	if doubled := r.capacity * 2; doubled > newCapacity {
		newCapacity = doubled
	}
	return r.allocateInstanceBuffer(newCapacity)
}

// PaneGlyphs is one pane's shaped lines, the origin its first cell is drawn
// at (in the same units as CellW/CellH), and the cell metrics to lay glyphs
// out with.
type PaneGlyphs struct {
	Lines     []shaper.Line
	OriginX   float32
	OriginY   float32
	CellW     float32
	CellH     float32
	DefaultFG vte.RgbColor
}

// Prepare rasterizes (on cache miss) and uploads every visible glyph
// instance across all panes for the current frame.
func (r *TextRenderer) Prepare(panes []PaneGlyphs) error {
	r.scratch = r.scratch[:0]
	count := 0

	for _, pane := range panes {
		for row, line := range pane.Lines {
			if line.IsBlank {
				continue
			}
			r.appendLine(pane, row, line, &count)
		}
	}

	if count == 0 {
		r.numInstances = 0
		return nil
	}
	if err := r.ensureCapacity(count); err != nil {
		return err
	}
	if err := r.atlas.flush(); err != nil {
		return err
	}
	if err := r.device.writeBuffer(r.instanceMemory, r.scratch); err != nil {
		return err
	}
	r.numInstances = count
	return nil
}

func (r *TextRenderer) appendLine(pane PaneGlyphs, row int, line shaper.Line, count *int) {
	spanIdx := 0
	col := 0
	for _, ch := range line.Text {
		fg := pane.DefaultFG
		bold := false
		for spanIdx < len(line.Spans) && col >= line.Spans[spanIdx].End {
			spanIdx++
		}
		if spanIdx < len(line.Spans) && col >= line.Spans[spanIdx].Start && col < line.Spans[spanIdx].End {
			fg = line.Spans[spanIdx].FG
			bold = line.Spans[spanIdx].Bold
		}

		if ch != ' ' {
			if slot, ok := r.atlas.glyph(ch, bold); ok {
				r.appendInstance(pane, row, col, slot, fg, bold)
				*count++
			}
		}
		col++
	}
}

func (r *TextRenderer) appendInstance(pane PaneGlyphs, row, col int, slot glyphSlot, fg vte.RgbColor, bold bool) {
	x := pane.OriginX + float32(col)*pane.CellW
	y := pane.OriginY + float32(row)*pane.CellH

	buf := make([]byte, glyphInstanceSize)
	putFloat32(buf, 0, x)
	putFloat32(buf, 4, y)
	putFloat32(buf, 8, float32(slot.rect.Min.X))
	putFloat32(buf, 12, float32(slot.rect.Min.Y))
	putFloat32(buf, 16, float32(slot.rect.Max.X))
	putFloat32(buf, 20, float32(slot.rect.Max.Y))
	putFloat32(buf, 24, float32(fg.R)/255)
	putFloat32(buf, 28, float32(fg.G)/255)
	putFloat32(buf, 32, float32(fg.B)/255)
	putFloat32(buf, 36, 1.0)
	if bold {
		putFloat32(buf, 40, 1.0)
	}
	r.scratch = append(r.scratch, buf...)
}

// Render issues the glyph draw call for the instances uploaded by the last
// Prepare.
func (r *TextRenderer) Render(cmd vk.CommandBuffer) {
	if r.numInstances == 0 {
		return
	}
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, r.pipeline)
	offsets := []vk.DeviceSize{0}
	vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{r.instanceBuffer}, offsets)
	vk.CmdDraw(cmd, 6, uint32(r.numInstances), 0, 0)
}

// PostRender advances the atlas's trim cadence, mirroring text.rs's
// post_render/atlas_trim_frames gate.
func (r *TextRenderer) PostRender() {
	r.atlas.trim()
}

// Close releases the glyph pipeline, instance buffer, and atlas.
func (r *TextRenderer) Close() {
	vk.DestroyBuffer(r.device.device, r.instanceBuffer, nil)
	vk.FreeMemory(r.device.device, r.instanceMemory, nil)
	vk.DestroyPipeline(r.device.device, r.pipeline, nil)
	vk.DestroyPipelineLayout(r.device.device, r.pipelineLayout, nil)
	r.atlas.close()
}
