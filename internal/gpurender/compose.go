package gpurender

import (
	"pterminal/internal/bgspan"
	"pterminal/internal/orchestrator"
	"pterminal/internal/vte"
)

// composeFrame flattens a frame's live panes into the bg-span and
// per-pane-glyph inputs the two sub-renderers consume. It touches no GPU
// state, so the orchestrator-to-renderer seam can be verified without a
// device: dead panes are dropped, each pane's background rects are
// concatenated in pane order, and each pane's shaped lines are wrapped with
// the screen-space origin and cell metrics the text renderer lays glyphs
// out with.
func composeFrame(frames []orchestrator.PaneFrame, defaultFG vte.RgbColor, cellW, cellH float32) ([]bgspan.Rect, []PaneGlyphs) {
	var bgSpans []bgspan.Rect
	var paneGlyphs []PaneGlyphs
	for _, pf := range frames {
		if pf.Dead {
			continue
		}
		bgSpans = append(bgSpans, pf.BG...)
		paneGlyphs = append(paneGlyphs, PaneGlyphs{
			Lines:     pf.Lines,
			OriginX:   float32(pf.Rect.X),
			OriginY:   float32(pf.Rect.Y),
			CellW:     cellW,
			CellH:     cellH,
			DefaultFG: defaultFG,
		})
	}
	return bgSpans, paneGlyphs
}
