// Package vte wraps a VTE-style terminal emulator with damage tracking and
// theme-aware color resolution.
package vte

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// RgbColor is an 8-bit-per-channel opaque color.
type RgbColor struct {
	R, G, B uint8
}

// ToFloat32 returns the color as normalized [0,1] RGBA, the form the GPU
// renderer's uniform buffers expect.
func (c RgbColor) ToFloat32() [4]float32 {
	return [4]float32{
		float32(c.R) / 255,
		float32(c.G) / 255,
		float32(c.B) / 255,
		1.0,
	}
}

func (c RgbColor) toColorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func fromColorful(c colorful.Color) RgbColor {
	r, g, b := c.Clamped().RGB255()
	return RgbColor{R: r, G: g, B: b}
}

// ParseHex parses a "#rrggbb" string. Reports an error on malformed input.
func ParseHex(hex string) (RgbColor, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return RgbColor{}, fmt.Errorf("vte: malformed hex color %q: %w", hex, err)
	}
	return fromColorful(c), nil
}

// ThemeColors is the resolved palette for one theme: the 16 ANSI slots plus
// the fixed foreground/background/cursor/selection colors.
type ThemeColors struct {
	Background   RgbColor
	Foreground   RgbColor
	Cursor       RgbColor
	SelectionBg  RgbColor
	SelectionFg  RgbColor
	Ansi         [16]RgbColor
}

// Theme names a ThemeColors palette.
type Theme struct {
	Name   string
	Colors ThemeColors
}

// ByName resolves a configured theme name to a Theme, falling back to
// DefaultTheme for anything unrecognized. "auto" is not resolved here —
// callers that want to honor it should detect terminal background darkness
// themselves and pass the resolved name (see internal/cmd's
// term_colors.go).
func ByName(name string) Theme {
	switch name {
	case "default-light", "catppuccin-latte", "light":
		return LightTheme()
	case "", "catppuccin-mocha", "default-dark", "auto":
		return DefaultTheme()
	default:
		return DefaultTheme()
	}
}

// DefaultTheme is the built-in Catppuccin Mocha palette.
func DefaultTheme() Theme {
	return Theme{
		Name: "default-dark",
		Colors: ThemeColors{
			Background:  RgbColor{30, 30, 46},
			Foreground:  RgbColor{205, 214, 244},
			Cursor:      RgbColor{245, 224, 220},
			SelectionBg: RgbColor{88, 91, 112},
			SelectionFg: RgbColor{205, 214, 244},
			Ansi: [16]RgbColor{
				{69, 71, 90}, {243, 139, 168}, {166, 227, 161}, {249, 226, 175},
				{137, 180, 250}, {245, 194, 231}, {148, 226, 213}, {186, 194, 222},
				{88, 91, 112}, {243, 139, 168}, {166, 227, 161}, {249, 226, 175},
				{137, 180, 250}, {245, 194, 231}, {148, 226, 213}, {205, 214, 244},
			},
		},
	}
}

// LightTheme mirrors the Catppuccin Latte palette, the light-background
// counterpart to DefaultTheme's Mocha. Chosen by callers that detect a
// light terminal background (see internal/cmd's term_colors.go).
func LightTheme() Theme {
	return Theme{
		Name: "default-light",
		Colors: ThemeColors{
			Background:  RgbColor{239, 241, 245},
			Foreground:  RgbColor{76, 79, 105},
			Cursor:      RgbColor{220, 138, 120},
			SelectionBg: RgbColor{204, 208, 218},
			SelectionFg: RgbColor{76, 79, 105},
			Ansi: [16]RgbColor{
				{92, 95, 119}, {210, 15, 57}, {64, 160, 43}, {223, 142, 27},
				{30, 102, 245}, {234, 118, 203}, {23, 146, 153}, {172, 176, 190},
				{108, 111, 133}, {210, 15, 57}, {64, 160, 43}, {223, 142, 27},
				{30, 102, 245}, {234, 118, 203}, {23, 146, 153}, {188, 192, 204},
			},
		},
	}
}
