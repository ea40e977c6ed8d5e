package vte

// Cell is a single terminal cell extracted for rendering, with colors fully
// resolved against the active theme.
type Cell struct {
	Codepoint  rune
	FG, BG     RgbColor
	Bold       bool
	Italic     bool
	Underline  bool
	WideSpacer bool // true when this cell is the trailing half of a wide rune
}

// GridLine is one row of resolved cells.
type GridLine struct {
	Cells []Cell
}

// Cursor is the emulator's reported cursor position, in grid coordinates.
type Cursor struct {
	Col, Row int
	Visible  bool
}

// GridDelta describes which rows changed since the previous extraction.
// Full means every row was rewritten (resize, scroll into history, mode
// change); otherwise DirtyRows names the rows rewritten in place.
type GridDelta struct {
	Full      bool
	DirtyRows []int
	Cursor    Cursor
}
