package collection

import (
	"fmt"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// boxAlpha is the default annotation transparency: boxes are drawn over
// the parent image and must not hide the features beneath them.
const boxAlpha = 180

// DefaultPalette returns the fixed ten-color annotation palette.
func DefaultPalette() []Color {
	return []Color{
		{255, 0, 0, boxAlpha},     // red
		{0, 255, 0, boxAlpha},     // green
		{0, 0, 255, boxAlpha},     // blue
		{255, 255, 0, boxAlpha},   // yellow
		{255, 0, 255, boxAlpha},   // magenta
		{0, 255, 255, boxAlpha},   // cyan
		{255, 128, 0, boxAlpha},   // orange
		{128, 0, 255, boxAlpha},   // purple
		{0, 128, 0, boxAlpha},     // dark green
		{128, 128, 255, boxAlpha}, // light blue
	}
}

// ParsePalette parses an ordered list of hex color strings into a
// palette. An empty list yields the default palette.
func ParsePalette(hexes []string) ([]Color, error) {
	if len(hexes) == 0 {
		return DefaultPalette(), nil
	}
	palette := make([]Color, 0, len(hexes))
	for _, h := range hexes {
		c, err := ParseColor(h)
		if err != nil {
			return nil, fmt.Errorf("palette entry %d: %w", len(palette), err)
		}
		palette = append(palette, c)
	}
	return palette, nil
}

// PaletteWarnings reports palette entry pairs that are perceptually too
// close to tell apart when rendered. Uses CIE Lab distance; anything
// under 0.02 is effectively the same color on screen.
func PaletteWarnings(palette []Color) []string {
	var warnings []string
	for i := 0; i < len(palette); i++ {
		for j := i + 1; j < len(palette); j++ {
			a := colorful.Color{R: float64(palette[i].R) / 255, G: float64(palette[i].G) / 255, B: float64(palette[i].B) / 255}
			b := colorful.Color{R: float64(palette[j].R) / 255, G: float64(palette[j].G) / 255, B: float64(palette[j].B) / 255}
			if a.DistanceLab(b) < 0.02 {
				warnings = append(warnings,
					fmt.Sprintf("palette entries %d (%s) and %d (%s) are nearly indistinguishable",
						i, palette[i].Hex(), j, palette[j].Hex()))
			}
		}
	}
	return warnings
}

// AssignColors maps every non-root member of the collection to a palette
// color. Colors are keyed to nesting depth: direct children of a root
// get palette[0], their children palette[1], wrapping modulo the palette
// length. Roots stay uncolored.
//
// Assignment iterates members in (depth, acquisition time, id) order, so
// re-running the analysis on an unchanged set reproduces identical
// colors — required for a persisted and reloaded collection to render
// the same way.
func AssignColors(c *Collection, palette []Color) {
	if len(palette) == 0 {
		palette = DefaultPalette()
	}
	depths := c.Depths()

	ordered := make([]string, 0, len(c.Images))
	for _, img := range c.Images {
		if depths[img.ID] > 0 {
			ordered = append(ordered, img.ID)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		if depths[ordered[i]] != depths[ordered[j]] {
			return depths[ordered[i]] < depths[ordered[j]]
		}
		a, _ := c.Image(ordered[i])
		b, _ := c.Image(ordered[j])
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})

	if c.Colors == nil {
		c.Colors = make(map[string]Color, len(ordered))
	}
	for _, id := range ordered {
		c.Colors[id] = palette[(depths[id]-1)%len(palette)]
	}
}
