package bgspan

import (
	"testing"

	"pterminal/internal/vte"
)

func rowOf(bgs ...vte.RgbColor) vte.GridLine {
	cells := make([]vte.Cell, len(bgs))
	for i, bg := range bgs {
		cells[i] = vte.Cell{BG: bg}
	}
	return vte.GridLine{Cells: cells}
}

func TestUpdateContentMergesRuns(t *testing.T) {
	def := vte.RgbColor{}
	red := vte.RgbColor{R: 255}
	grid := []vte.GridLine{rowOf(def, red, red, def, red)}

	b := New()
	spans := b.UpdateContent(grid, []int{0}, true, def)
	if len(spans) != 2 {
		t.Fatalf("len(spans) = %d, want 2", len(spans))
	}
	if spans[0].Col != 1 || spans[0].Width != 2 {
		t.Fatalf("spans[0] = %+v", spans[0])
	}
	if spans[1].Col != 4 || spans[1].Width != 1 {
		t.Fatalf("spans[1] = %+v", spans[1])
	}
}

func TestUpdateContentIncrementalOnlyTouchesDirtyRows(t *testing.T) {
	def := vte.RgbColor{}
	red := vte.RgbColor{R: 255}
	grid := []vte.GridLine{rowOf(def, red), rowOf(def, red)}

	b := New()
	b.UpdateContent(grid, nil, true, def)

	grid[1] = rowOf(red, red)
	spans := b.UpdateContent(grid, []int{1}, false, def)

	var row0, row1 int
	for _, s := range spans {
		if s.Row == 0 {
			row0++
		}
		if s.Row == 1 {
			row1++
		}
	}
	if row0 != 1 {
		t.Fatalf("row 0 spans = %d, want 1 (untouched)", row0)
	}
	if row1 != 1 || spans[len(spans)-1].Width != 2 {
		t.Fatalf("row 1 not rebuilt correctly: %+v", spans)
	}
}

func TestUpdateContentFullRebuildOnDefaultBGChange(t *testing.T) {
	def := vte.RgbColor{}
	grid := []vte.GridLine{rowOf(def)}
	b := New()
	b.UpdateContent(grid, nil, true, def)

	newDef := vte.RgbColor{R: 1}
	grid[0] = rowOf(def) // now non-default relative to newDef
	spans := b.UpdateContent(grid, nil, false, newDef)
	if len(spans) != 1 {
		t.Fatalf("expected full rebuild to surface the now-non-default cell, got %+v", spans)
	}
}

func TestUpdateContentFullRebuildWhenMoreThanHalfDirty(t *testing.T) {
	def := vte.RgbColor{}
	red := vte.RgbColor{R: 255}
	grid := []vte.GridLine{rowOf(red), rowOf(red), rowOf(red)}
	b := New()
	b.UpdateContent(grid, nil, true, def)

	// Two of three rows dirty is more than half, so every row is rebuilt in
	// row order instead of rows 2 and 0 being re-appended after row 1.
	spans := b.UpdateContent(grid, []int{2, 0}, false, def)
	if len(spans) != 3 {
		t.Fatalf("expected full rebuild of 3 spans, got %d", len(spans))
	}
	for i, s := range spans {
		if s.Row != i {
			t.Fatalf("spans[%d].Row = %d, want %d (full rebuild keeps row order)", i, s.Row, i)
		}
	}
}

func TestUpdateSelectionSkipsRebuildWhenUnchanged(t *testing.T) {
	grid := []vte.GridLine{rowOf(vte.RgbColor{}, vte.RgbColor{}, vte.RgbColor{})}
	sel := &Selection{StartCol: 0, StartRow: 0, EndCol: 1, EndRow: 0}
	b := New()
	first := b.UpdateSelection(grid, sel, vte.RgbColor{R: 9})
	second := b.UpdateSelection(grid, &Selection{StartCol: 0, StartRow: 0, EndCol: 1, EndRow: 0}, vte.RgbColor{R: 9})
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one selection span both times, got %v and %v", first, second)
	}
	if &first[0] != &second[0] {
		t.Fatalf("selection spans were rebuilt for an unchanged selection")
	}
}

func TestUpdateSelectionNilClearsSpans(t *testing.T) {
	grid := []vte.GridLine{rowOf(vte.RgbColor{})}
	b := New()
	b.UpdateSelection(grid, &Selection{StartCol: 0, StartRow: 0, EndCol: 0, EndRow: 0}, vte.RgbColor{R: 1})
	out := b.UpdateSelection(grid, nil, vte.RgbColor{R: 1})
	if len(out) != 0 {
		t.Fatalf("expected cleared selection, got %v", out)
	}
}
