// Package shaper turns resolved grid rows into text runs ready for glyph
// layout, re-shaping a row only when its content or background actually
// changed.
package shaper

import (
	"hash/fnv"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"pterminal/internal/vte"
)

// Span is a run of codepoints in Line.Text sharing one fg/bold/italic
// attribute set.
type Span struct {
	Start, End int
	FG         vte.RgbColor
	Bold       bool
	Italic     bool
}

// Line is one row's shaped output.
type Line struct {
	Text     string
	Spans    []Span
	TextHash uint64
	BGHash   uint64
	IsBlank  bool
	AllASCII bool
	// Complex is true when any grapheme cluster spans multiple runes
	// (combining marks, ZWJ sequences) and therefore needs full shaping
	// even if every rune in it is otherwise ASCII.
	Complex bool
}

// rowScratch is one row's reusable text/span scratch buffers, cleared and
// rebuilt in place on each reshape of that row rather than reallocated.
type rowScratch struct {
	runes []rune
	spans []Span
}

// PaneShaper holds one pane's per-row shape cache and, in parallel, the
// scratch buffers each row's shaping reuses across frames.
type PaneShaper struct {
	lines   []Line
	scratch []rowScratch
}

// New creates an empty shaper.
func New() *PaneShaper { return &PaneShaper{} }

// Reshape re-derives shaped lines for the rows named by dirty (or every row,
// if full), skipping rows whose text/background hash didn't actually
// change. Returns the rows that were re-shaped.
func (p *PaneShaper) Reshape(grid []vte.GridLine, dirty []int, full bool) []int {
	for len(p.lines) < len(grid) {
		p.lines = append(p.lines, Line{})
		p.scratch = append(p.scratch, rowScratch{})
	}
	p.lines = p.lines[:len(grid)]
	p.scratch = p.scratch[:len(grid)]

	if full {
		dirty = make([]int, len(grid))
		for i := range grid {
			dirty[i] = i
		}
	}

	var changed []int
	for _, row := range dirty {
		if row < 0 || row >= len(grid) {
			continue
		}
		th := textHash(grid[row])
		bh := bgHash(grid[row])
		cur := &p.lines[row]
		if !full && th == cur.TextHash && bh == cur.BGHash {
			continue
		}
		shapeRowInto(grid[row], th, bh, &p.scratch[row], cur)
		changed = append(changed, row)
	}
	return changed
}

// Line returns the current shaped content of row, or the zero Line if out
// of range.
func (p *PaneShaper) Line(row int) Line {
	if row < 0 || row >= len(p.lines) {
		return Line{}
	}
	return p.lines[row]
}

// Lines returns every currently shaped row.
func (p *PaneShaper) Lines() []Line { return p.lines }

// shapeRowInto builds row's shaped text and spans into scratch (truncating
// and reusing its backing arrays rather than allocating fresh ones every
// frame) and writes the result into out. Single-span rows fall out of this
// as a one-element scratch.spans slice with no extra bookkeeping.
func shapeRowInto(row vte.GridLine, textHash, bgHash uint64, scratch *rowScratch, out *Line) {
	scratch.runes = scratch.runes[:0]
	scratch.spans = scratch.spans[:0]
	allASCII := true
	blank := true

	var cur Span
	haveCur := false

	flush := func(end int) {
		if haveCur {
			cur.End = end
			scratch.spans = append(scratch.spans, cur)
			haveCur = false
		}
	}

	for _, cell := range row.Cells {
		if cell.WideSpacer {
			continue
		}
		if cell.Codepoint != ' ' {
			blank = false
		}
		if cell.Codepoint > unicode.MaxASCII {
			allASCII = false
		}
		if !haveCur || cur.FG != cell.FG || cur.Bold != cell.Bold || cur.Italic != cell.Italic {
			flush(len(scratch.runes))
			cur = Span{Start: len(scratch.runes), FG: cell.FG, Bold: cell.Bold, Italic: cell.Italic}
			haveCur = true
		}
		scratch.runes = append(scratch.runes, cell.Codepoint)
	}
	flush(len(scratch.runes))

	s := string(scratch.runes)
	out.Text = s
	out.Spans = scratch.spans
	out.TextHash = textHash
	out.BGHash = bgHash
	out.IsBlank = blank
	out.AllASCII = allASCII
	out.Complex = hasMultiRuneCluster(s)
}

// hasMultiRuneCluster reports whether s contains any grapheme cluster made
// of more than one rune (combining marks, ZWJ emoji sequences, …), which
// the basic fixed-advance shaping path can't lay out correctly.
func hasMultiRuneCluster(s string) bool {
	state := -1
	for len(s) > 0 {
		cluster, rest, _, newState := uniseg.StepString(s, state)
		if utf8.RuneCountInString(cluster) > 1 {
			return true
		}
		s = rest
		state = newState
	}
	return false
}

func textHash(row vte.GridLine) uint64 {
	h := fnv.New64a()
	for _, c := range row.Cells {
		writeRune(h, c.Codepoint)
		writeColor(h, c.FG)
		writeBool(h, c.Bold)
		writeBool(h, c.Italic)
		writeBool(h, c.WideSpacer)
	}
	return h.Sum64()
}

func bgHash(row vte.GridLine) uint64 {
	h := fnv.New64a()
	for _, c := range row.Cells {
		writeColor(h, c.BG)
	}
	writeInt(h, len(row.Cells))
	return h.Sum64()
}

func writeRune(h interface{ Write([]byte) (int, error) }, r rune) {
	b := []byte(string(r))
	h.Write(b)
}

func writeBool(h interface{ Write([]byte) (int, error) }, b bool) {
	if b {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
}

func writeInt(h interface{ Write([]byte) (int, error) }, n int) {
	h.Write([]byte{byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)})
}

func writeColor(h interface{ Write([]byte) (int, error) }, c vte.RgbColor) {
	h.Write([]byte{c.R, c.G, c.B})
}
