// Package bgspan merges non-default cell backgrounds into horizontal runs
// for instanced GPU rendering, with an incremental update path and a
// full-rebuild heuristic for when too many rows changed to bother.
package bgspan

import "pterminal/internal/vte"

// Rect is one horizontal run of same-colored cell backgrounds.
type Rect struct {
	Col, Row, Width int
	Color           vte.RgbColor
}

// Selection names an inclusive cell range, row-major, (start <= end).
type Selection struct {
	StartCol, StartRow int
	EndCol, EndRow     int
}

// Builder holds one pane's background-span cache across frames.
type Builder struct {
	content   []Rect
	selection []Rect

	haveDefaultBG   bool
	lastDefaultBG   vte.RgbColor
	lastSelection   *Selection
	lastSelectionBG vte.RgbColor
}

// New creates an empty builder.
func New() *Builder { return &Builder{} }

// UpdateContent rebuilds or incrementally updates the content background
// spans and returns the current set. A full rebuild happens when full is
// set, on the first call, when the default background changed, or when
// dirtyRows lists more than half of the grid's rows.
func (b *Builder) UpdateContent(grid []vte.GridLine, dirtyRows []int, full bool, defaultBG vte.RgbColor) []Rect {
	fullRebuild := full || !b.haveDefaultBG || b.lastDefaultBG != defaultBG
	b.haveDefaultBG = true
	b.lastDefaultBG = defaultBG

	if fullRebuild || len(dirtyRows) > len(grid)/2 {
		b.content = rebuildContent(grid, defaultBG)
		return b.content
	}
	if len(dirtyRows) == 0 {
		return b.content
	}
	b.content = incrementalUpdateContent(b.content, grid, defaultBG, dirtyRows)
	return b.content
}

// UpdateSelection rebuilds the selection highlight spans only when the
// selection range or color actually changed.
func (b *Builder) UpdateSelection(grid []vte.GridLine, sel *Selection, selectionBG vte.RgbColor) []Rect {
	if selectionEqual(b.lastSelection, sel) && b.lastSelectionBG == selectionBG {
		return b.selection
	}
	b.selection = rebuildSelection(grid, sel, selectionBG)
	b.lastSelection = sel
	b.lastSelectionBG = selectionBG
	return b.selection
}

func selectionEqual(a, b *Selection) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func rebuildContent(grid []vte.GridLine, defaultBG vte.RgbColor) []Rect {
	var out []Rect
	for row, line := range grid {
		out = emitRowSpans(out, line, row, defaultBG)
	}
	return out
}

func incrementalUpdateContent(spans []Rect, grid []vte.GridLine, defaultBG vte.RgbColor, dirtyRows []int) []Rect {
	dirty := make(map[int]bool, len(dirtyRows))
	for _, r := range dirtyRows {
		dirty[r] = true
	}
	kept := spans[:0]
	for _, s := range spans {
		if !dirty[s.Row] {
			kept = append(kept, s)
		}
	}
	for _, row := range dirtyRows {
		if row < 0 || row >= len(grid) {
			continue
		}
		kept = emitRowSpans(kept, grid[row], row, defaultBG)
	}
	return kept
}

func emitRowSpans(out []Rect, line vte.GridLine, row int, defaultBG vte.RgbColor) []Rect {
	col := 0
	for col < len(line.Cells) {
		bg := line.Cells[col].BG
		if bg == defaultBG {
			col++
			continue
		}
		end := col + 1
		for end < len(line.Cells) && line.Cells[end].BG == bg {
			end++
		}
		out = append(out, Rect{Col: col, Row: row, Width: end - col, Color: bg})
		col = end
	}
	return out
}

func rebuildSelection(grid []vte.GridLine, sel *Selection, selectionBG vte.RgbColor) []Rect {
	if sel == nil {
		return nil
	}
	var out []Rect
	for row := sel.StartRow; row <= sel.EndRow; row++ {
		if row < 0 || row >= len(grid) {
			break
		}
		line := grid[row]
		colStart := 0
		if row == sel.StartRow {
			colStart = sel.StartCol
		}
		colEnd := len(line.Cells)
		if row == sel.EndRow && sel.EndCol+1 < colEnd {
			colEnd = sel.EndCol + 1
		}
		if colEnd <= colStart {
			continue
		}
		out = append(out, Rect{Col: colStart, Row: row, Width: colEnd - colStart, Color: selectionBG})
	}
	return out
}
