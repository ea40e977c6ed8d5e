package gpurender

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	vk "github.com/goki/vulkan"
)

// atlasTrimInterval mirrors text.rs's post_render trim cadence: glyphon's
// atlas accumulates rasterized glyphs across frames and only needs
// compacting every couple of seconds, not every frame.
const atlasTrimInterval = 120

// glyphKey identifies one rasterized glyph cell in the atlas.
type glyphKey struct {
	r    rune
	bold bool
}

type glyphSlot struct {
	rect   image.Rectangle // pixel bounds within the atlas texture
	advance fixed.Int26_6
}

// glyphAtlas rasterizes and caches glyph bitmaps into a single GPU texture,
// packed left-to-right/top-to-bottom in fixed-size cells sized to the
// monospace face's advance/line height.
type glyphAtlas struct {
	device *Device
	face   font.Face

	cellW, cellH int
	cols         int
	texW, texH   int

	image  *image.Alpha
	texture vk.Image
	memory  vk.DeviceMemory
	view    vk.ImageView

	slots map[glyphKey]glyphSlot
	next  int // next free cell index

	framesSinceTrim int
	dirty           bool
}

// newGlyphAtlas sizes the atlas texture for capacity glyph cells using the
// given face's bounds (falling back to the stdlib basicfont when face is
// nil, so the renderer has a usable default without a bundled TTF).
func newGlyphAtlas(d *Device, face font.Face, capacity int) (*glyphAtlas, error) {
	if face == nil {
		face = basicfont.Face7x13
	}
	metrics := face.Metrics()
	cellW := 8
	if adv, ok := face.GlyphAdvance('M'); ok {
		cellW = adv.Ceil()
	}
	cellH := metrics.Height.Ceil()
	if cellH <= 0 {
		cellH = 16
	}

	cols := 64
	rows := (capacity + cols - 1) / cols
	texW, texH := cols*cellW, rows*cellH

	a := &glyphAtlas{
		device: d,
		face:   face,
		cellW:  cellW,
		cellH:  cellH,
		cols:   cols,
		texW:   texW,
		texH:   texH,
		image:  image.NewAlpha(image.Rect(0, 0, texW, texH)),
		slots:  make(map[glyphKey]glyphSlot, capacity),
	}

	tex, mem, view, err := d.createSampledImage(texW, texH, vk.FormatR8Unorm)
	if err != nil {
		return nil, fmt.Errorf("glyph atlas texture: %w", err)
	}
	a.texture, a.memory, a.view = tex, mem, view
	return a, nil
}

// glyph returns the atlas cell for (r, bold), rasterizing it on first use.
func (a *glyphAtlas) glyph(r rune, bold bool) (glyphSlot, bool) {
	key := glyphKey{r, bold}
	if slot, ok := a.slots[key]; ok {
		return slot, true
	}
	if a.next >= a.cols*(a.texH/a.cellH) {
		return glyphSlot{}, false // atlas full; caller should trim or skip
	}

	col := a.next % a.cols
	row := a.next / a.cols
	a.next++

	origin := image.Pt(col*a.cellW, row*a.cellH)
	dst := a.image
	face := a.face
	// Most monospace faces have no distinct bold variant without a second
	// embedded font; bold glyphs share the regular rasterization and the
	// text pipeline's shader applies a faux-bold (double-draw) pass instead.

	fixedOrigin := fixed.Point26_6{X: fixed.I(origin.X), Y: fixed.I(origin.Y + a.cellH - a.cellH/4)}
	d := font.Drawer{Dst: dst, Src: image.NewUniform(color.Alpha{A: 255}), Face: face, Dot: fixedOrigin}
	d.DrawString(string(r))

	adv, _ := face.GlyphAdvance(r)
	slot := glyphSlot{
		rect:    image.Rect(origin.X, origin.Y, origin.X+a.cellW, origin.Y+a.cellH),
		advance: adv,
	}
	a.slots[key] = slot
	a.dirty = true
	return slot, true
}

// flush uploads the CPU-side atlas image to the GPU texture if any glyph
// was rasterized since the last flush.
func (a *glyphAtlas) flush() error {
	if !a.dirty {
		return nil
	}
	if err := a.device.uploadImage(a.texture, a.image.Pix, a.texW, a.texH, 1); err != nil {
		return fmt.Errorf("glyph atlas upload: %w", err)
	}
	a.dirty = false
	return nil
}

// trim drops cached glyphs and resets the packer once enough frames have
// passed, bounding the atlas's steady-state memory the way glyphon's own
// trim() call does.
func (a *glyphAtlas) trim() {
	a.framesSinceTrim++
	if a.framesSinceTrim < atlasTrimInterval {
		return
	}
	a.framesSinceTrim = 0
	if len(a.slots) <= a.cols*(a.texH/a.cellH)/2 {
		return // atlas isn't under pressure; nothing to reclaim
	}
	a.slots = make(map[glyphKey]glyphSlot, len(a.slots))
	a.next = 0
	for i := range a.image.Pix {
		a.image.Pix[i] = 0
	}
	a.dirty = true
}

func (a *glyphAtlas) close() {
	vk.DestroyImageView(a.device.device, a.view, nil)
	vk.DestroyImage(a.device.device, a.texture, nil)
	vk.FreeMemory(a.device.device, a.memory, nil)
}
