package identity

import "github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/policy"

// Color is an RGB triple, per spec.md §3.
type Color struct {
	R, G, B uint8
}

// basePalette is the full 20-entry Pro palette; Basic and Plus see a
// prefix of it (sizes 6 and 12 respectively, per policy.PaletteSize).
var basePalette = []Color{
	{0xE6, 0x39, 0x46}, // red
	{0xF2, 0x99, 0x44}, // orange
	{0xF2, 0xD4, 0x4A}, // yellow
	{0x57, 0xB8, 0x6E}, // green
	{0x44, 0x8F, 0xE6}, // blue
	{0x8E, 0x6C, 0xE6}, // purple
	{0xE6, 0x6C, 0xB0}, // pink
	{0x4A, 0xC9, 0xC2}, // teal
	{0xA8, 0xB8, 0x3C}, // olive
	{0xE6, 0x7A, 0x44}, // amber
	{0x6C, 0x7A, 0xE6}, // indigo
	{0xB0, 0x5A, 0x3C}, // brown
	{0x3C, 0xB8, 0xA8}, // turquoise
	{0xE6, 0x44, 0x8E}, // magenta
	{0x7A, 0xE6, 0x44}, // lime
	{0x44, 0xE6, 0xC2}, // mint
	{0x9C, 0x44, 0xE6}, // violet
	{0xE6, 0xB8, 0x44}, // gold
	{0x44, 0x6C, 0xB0}, // steel
	{0xB8, 0x3C, 0x5A}, // maroon
}

// Palette returns the fixed palette available to tier.
func Palette(tier policy.Tier) []Color {
	n := policy.PaletteSize(tier)
	if n > len(basePalette) {
		n = len(basePalette)
	}
	return basePalette[:n]
}

// InPalette reports whether c is a member of tier's fixed palette.
func InPalette(tier policy.Tier, c Color) bool {
	for _, p := range Palette(tier) {
		if p == c {
			return true
		}
	}
	return false
}

// DefaultColor returns the palette entry assigned to the n-th created
// identity (cycling through the palette), used when no color is
// requested at creation time.
func DefaultColor(tier policy.Tier, n int) Color {
	pal := Palette(tier)
	if len(pal) == 0 {
		return Color{}
	}
	return pal[n%len(pal)]
}
