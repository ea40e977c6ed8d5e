package gpurender

import (
	"testing"

	"pterminal/internal/bgspan"
	"pterminal/internal/orchestrator"
	"pterminal/internal/shaper"
	"pterminal/internal/splittree"
	"pterminal/internal/vte"
)

func TestComposeFrameDropsDeadPanes(t *testing.T) {
	frames := []orchestrator.PaneFrame{
		{Pane: 1, Rect: splittree.Rect{X: 0, Y: 0}, Dead: true, BG: []bgspan.Rect{{Row: 0, Col: 0, Width: 1}}},
		{Pane: 2, Rect: splittree.Rect{X: 5, Y: 5}, Lines: []shaper.Line{{Text: "hi"}}},
	}

	bgSpans, glyphs := composeFrame(frames, vte.RgbColor{R: 1}, 8, 16)

	if len(bgSpans) != 0 {
		t.Fatalf("bgSpans = %v, want none (only the dead pane had spans)", bgSpans)
	}
	if len(glyphs) != 1 {
		t.Fatalf("len(glyphs) = %d, want 1", len(glyphs))
	}
	if glyphs[0].OriginX != 5 || glyphs[0].OriginY != 5 {
		t.Fatalf("origin = (%v,%v), want (5,5)", glyphs[0].OriginX, glyphs[0].OriginY)
	}
}

func TestComposeFrameConcatenatesBackgroundSpansInPaneOrder(t *testing.T) {
	frames := []orchestrator.PaneFrame{
		{Pane: 1, Rect: splittree.Rect{}, BG: []bgspan.Rect{{Row: 0, Col: 0, Width: 3}}},
		{Pane: 2, Rect: splittree.Rect{}, BG: []bgspan.Rect{{Row: 1, Col: 0, Width: 2}, {Row: 2, Col: 0, Width: 1}}},
	}

	bgSpans, glyphs := composeFrame(frames, vte.RgbColor{}, 8, 16)

	if len(bgSpans) != 3 {
		t.Fatalf("len(bgSpans) = %d, want 3", len(bgSpans))
	}
	if bgSpans[0].Width != 3 || bgSpans[1].Width != 2 || bgSpans[2].Width != 1 {
		t.Fatalf("bgSpans = %+v, want pane-1's span before pane-2's", bgSpans)
	}
	if len(glyphs) != 2 {
		t.Fatalf("len(glyphs) = %d, want 2", len(glyphs))
	}
}

func TestComposeFramePropagatesCellMetricsAndDefaultFG(t *testing.T) {
	fg := vte.RgbColor{R: 10, G: 20, B: 30}
	frames := []orchestrator.PaneFrame{
		{Pane: 1, Rect: splittree.Rect{}, Lines: []shaper.Line{{}}},
	}

	_, glyphs := composeFrame(frames, fg, 9, 18)

	if len(glyphs) != 1 {
		t.Fatalf("len(glyphs) = %d, want 1", len(glyphs))
	}
	if glyphs[0].CellW != 9 || glyphs[0].CellH != 18 {
		t.Fatalf("cell metrics = (%v,%v), want (9,18)", glyphs[0].CellW, glyphs[0].CellH)
	}
	if glyphs[0].DefaultFG != fg {
		t.Fatalf("DefaultFG = %+v, want %+v", glyphs[0].DefaultFG, fg)
	}
}

func TestComposeFrameAllDeadYieldsNoSpansOrGlyphs(t *testing.T) {
	frames := []orchestrator.PaneFrame{
		{Pane: 1, Dead: true, BG: []bgspan.Rect{{Width: 1}}},
	}

	bgSpans, glyphs := composeFrame(frames, vte.RgbColor{}, 8, 16)

	if bgSpans != nil || glyphs != nil {
		t.Fatalf("bgSpans=%v glyphs=%v, want both nil", bgSpans, glyphs)
	}
}
