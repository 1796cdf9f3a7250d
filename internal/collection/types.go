// Package collection implements the containment-detection engine: it
// resolves which images' fields of view nest inside which others,
// partitions images into collections, assigns rendering colors, and
// persists the result.
package collection

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/tclab/scalegrid/internal/geometry"
	"github.com/tclab/scalegrid/internal/metadata"
)

// Color is an 8-bit RGBA annotation color. It serializes as a
// "#RRGGBBAA" hex string so persisted color maps stay readable and
// byte-stable.
type Color struct {
	R, G, B, A uint8
}

// Hex returns the color as "#RRGGBBAA".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// MarshalJSON encodes the color as its hex string.
func (c Color) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(c.Hex())), nil
}

// UnmarshalJSON decodes "#RRGGBB" or "#RRGGBBAA" strings.
func (c *Color) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("color must be a hex string: %w", err)
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor parses "#RRGGBB" or "#RRGGBBAA". A six-digit color gets the
// default annotation alpha so boxes stay translucent over the image.
func ParseColor(s string) (Color, error) {
	if !strings.HasPrefix(s, "#") {
		return Color{}, fmt.Errorf("invalid color %q: must start with #", s)
	}
	switch len(s) {
	case 7:
		cf, err := colorful.Hex(s)
		if err != nil {
			return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		r, g, b := cf.RGB255()
		return Color{R: r, G: g, B: b, A: boxAlpha}, nil
	case 9:
		val, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		return Color{
			R: uint8(val >> 24),
			G: uint8(val >> 16),
			B: uint8(val >> 8),
			A: uint8(val),
		}, nil
	default:
		return Color{}, fmt.Errorf("invalid color %q: want #RRGGBB or #RRGGBBAA", s)
	}
}

// ContainmentEdge records that the child image was captured inside the
// parent image, with the pixel rectangle the child occupies in the
// parent's coordinate space.
type ContainmentEdge struct {
	ParentID string        `json:"parentId"`
	ChildID  string        `json:"childId"`
	BBox     geometry.BBox `json:"bbox"`
}

// Collection is one connected component of the containment forest: an
// ordered list of member images, the containment edges among them, and
// the color assigned to each non-root member. Isolated images form
// single-member collections.
type Collection struct {
	CollectionID string                   `json:"collectionId"`
	Name         string                   `json:"name"`
	SessionID    string                   `json:"sessionId"`
	SampleID     string                   `json:"sampleId"`
	Images       []metadata.ImageMetadata `json:"images"`
	Edges        []ContainmentEdge        `json:"edges"`
	Colors       map[string]Color         `json:"colors"`
}

// ParentOf returns the child → parent mapping induced by the edges.
func (c Collection) ParentOf() map[string]string {
	parents := make(map[string]string, len(c.Edges))
	for _, e := range c.Edges {
		parents[e.ChildID] = e.ParentID
	}
	return parents
}

// Roots returns the ids of members with no parent edge, sorted.
func (c Collection) Roots() []string {
	parents := c.ParentOf()
	var roots []string
	for _, img := range c.Images {
		if _, ok := parents[img.ID]; !ok {
			roots = append(roots, img.ID)
		}
	}
	sort.Strings(roots)
	return roots
}

// Depths returns each member's depth in the containment tree: roots are
// depth 0, their direct children depth 1, and so on.
func (c Collection) Depths() map[string]int {
	parents := c.ParentOf()
	depths := make(map[string]int, len(c.Images))
	for _, img := range c.Images {
		d := 0
		for id := img.ID; ; {
			p, ok := parents[id]
			if !ok {
				break
			}
			d++
			id = p
		}
		depths[img.ID] = d
	}
	return depths
}

// Image returns the member with the given id.
func (c Collection) Image(id string) (metadata.ImageMetadata, bool) {
	for _, img := range c.Images {
		if img.ID == id {
			return img, true
		}
	}
	return metadata.ImageMetadata{}, false
}

// EarliestTimestamp returns the earliest acquisition time among members.
func (c Collection) EarliestTimestamp() time.Time {
	var earliest time.Time
	for i, img := range c.Images {
		if i == 0 || img.Timestamp.Before(earliest) {
			earliest = img.Timestamp
		}
	}
	return earliest
}
