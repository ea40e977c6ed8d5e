package vte

import "strings"

// cellsFromANSI converts an SGR-interleaved string (as produced by
// midterm.Line.Display, captured from a scrolled-off row) into resolved
// cells. It interprets exactly the same SGR subset as applySGR; any other
// escape sequence is dropped, which is safe here since captured scrollback
// lines carry only text and color/attribute codes.
func cellsFromANSI(s string, theme Theme) []Cell {
	cells := make([]Cell, 0, len(s))
	state := newAttrState()
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != 0x1B {
			fg, bg := state.resolve(theme)
			cells = append(cells, Cell{
				Codepoint: r,
				FG:        fg,
				BG:        bg,
				Bold:      state.bold,
				Italic:    state.italic,
				Underline: state.underline,
			})
			continue
		}
		// ESC '[' ... 'm'
		if i+1 >= len(runes) || runes[i+1] != '[' {
			continue
		}
		j := i + 2
		for j < len(runes) && runes[j] != 'm' {
			j++
		}
		if j >= len(runes) {
			break
		}
		params := string(runes[i+2 : j])
		if params == "" || strings.TrimSpace(params) == "0" {
			state = newAttrState()
		} else {
			state.applySGR(params)
		}
		i = j
	}
	return cells
}
