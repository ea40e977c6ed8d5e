package vte

import (
	"strconv"
	"strings"
)

// dimColor reduces brightness by roughly a third, for the ANSI "dim"
// (SGR 2) attribute on named colors.
func dimColor(c RgbColor) RgbColor {
	return RgbColor{
		R: uint8(uint16(c.R) * 2 / 3),
		G: uint8(uint16(c.G) * 2 / 3),
		B: uint8(uint16(c.B) * 2 / 3),
	}
}

// index256ToRGB resolves a 256-color palette index (16-255) to RGB. Indices
// below 16 are the theme's ANSI slots and are not handled here.
func index256ToRGB(idx int) RgbColor {
	switch {
	case idx < 16:
		return RgbColor{}
	case idx < 232:
		idx -= 16
		r := (idx / 36) % 6
		g := (idx / 6) % 6
		b := idx % 6
		return RgbColor{toCubeVal(r), toCubeVal(g), toCubeVal(b)}
	default:
		v := uint8(8 + 10*(idx-232))
		return RgbColor{v, v, v}
	}
}

func toCubeVal(v int) uint8 {
	if v == 0 {
		return 0
	}
	return uint8(55 + 40*v)
}

// attrState is the running SGR interpreter state threaded across a row's
// format regions: midterm hands us one SGR string per region via
// Format.Render(), and resolving theme colors means reinterpreting those
// codes rather than reaching into midterm's internal Format fields.
type attrState struct {
	fg, bg            int // -1 default, 0-15 ansi, 16-255 indexed, 256 truecolor
	fgRGB, bgRGB      RgbColor
	bold, dim         bool
	italic, underline bool
}

func newAttrState() attrState {
	return attrState{fg: -1, bg: -1}
}

// applySGR updates state from one CSI...m sequence's numeric parameters
// (e.g. "1;38;5;208"). Unrecognized codes are ignored.
func (s *attrState) applySGR(params string) {
	if params == "" {
		*s = newAttrState()
		return
	}
	parts := strings.Split(params, ";")
	for i := 0; i < len(parts); i++ {
		code, err := strconv.Atoi(parts[i])
		if err != nil {
			continue
		}
		switch {
		case code == 0:
			*s = newAttrState()
		case code == 1:
			s.bold = true
		case code == 2:
			s.dim = true
		case code == 3:
			s.italic = true
		case code == 4:
			s.underline = true
		case code == 22:
			s.bold, s.dim = false, false
		case code == 23:
			s.italic = false
		case code == 24:
			s.underline = false
		case code == 39:
			s.fg = -1
		case code == 49:
			s.bg = -1
		case code >= 30 && code <= 37:
			s.fg = code - 30
		case code >= 40 && code <= 47:
			s.bg = code - 40
		case code >= 90 && code <= 97:
			s.fg = code - 90 + 8
		case code >= 100 && code <= 107:
			s.bg = code - 100 + 8
		case code == 38 || code == 48:
			isFg := code == 38
			if i+1 >= len(parts) {
				break
			}
			mode, _ := strconv.Atoi(parts[i+1])
			switch mode {
			case 5: // indexed
				if i+2 >= len(parts) {
					break
				}
				idx, _ := strconv.Atoi(parts[i+2])
				if isFg {
					s.fg = idx
				} else {
					s.bg = idx
				}
				i += 2
			case 2: // truecolor
				if i+4 >= len(parts) {
					break
				}
				r, _ := strconv.Atoi(parts[i+2])
				g, _ := strconv.Atoi(parts[i+3])
				b, _ := strconv.Atoi(parts[i+4])
				rgb := RgbColor{uint8(r), uint8(g), uint8(b)}
				if isFg {
					s.fg = 256
					s.fgRGB = rgb
				} else {
					s.bg = 256
					s.bgRGB = rgb
				}
				i += 4
			}
		}
	}
}

// resolve turns the current attribute state into concrete colors against
// theme, applying the dim-intensity adjustment to ANSI slots 0-7 when the
// dim attribute is set. Default fg (NamedColor::Foreground) and default bg
// (NamedColor::Background) are distinct named colors, not the same slot.
func (s attrState) resolve(theme Theme) (fg, bg RgbColor) {
	fg = resolveSlot(s.fg, s.fgRGB, theme, s.dim, theme.Colors.Foreground)
	bg = resolveSlot(s.bg, s.bgRGB, theme, false, theme.Colors.Background)
	return fg, bg
}

func resolveSlot(slot int, truecolor RgbColor, theme Theme, dim bool, defaultColor RgbColor) RgbColor {
	switch {
	case slot == -1:
		return defaultColor
	case slot == 256:
		return truecolor
	case slot >= 0 && slot < 16:
		c := theme.Colors.Ansi[slot]
		if dim && slot < 8 {
			return dimColor(c)
		}
		return c
	case slot >= 16 && slot < 256:
		return index256ToRGB(slot)
	default:
		return defaultColor
	}
}

// parseSGRCodes concatenates the parameter lists of every CSI...m escape
// sequence in render, in order. Returns ok=false if render carried no SGR
// sequence at all (the region used entirely default attributes).
func parseSGRCodes(render string) (params string, ok bool) {
	var out []string
	rest := render
	for {
		start := strings.IndexByte(rest, '[')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start:], 'm')
		if end < 0 {
			break
		}
		out = append(out, rest[start+1:start+end])
		rest = rest[start+end+1:]
	}
	if len(out) == 0 {
		return "", false
	}
	return strings.Join(out, ";"), true
}
