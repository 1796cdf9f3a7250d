// Package geometry implements the field-of-view rectangle math used to
// decide whether one microscope image was captured inside another.
//
// All stage-space values are in micrometers. The stage Y axis points up,
// while image pixel rows grow downward; PixelBBox performs that flip.
package geometry

import "math"

// FieldOfView is the physical area of the sample visible in one image,
// in stage coordinates. X and Y are the minimum corner; Width and Height
// are the extents. All values are micrometers.
type FieldOfView struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FromCenter builds a FieldOfView from its center point and extents.
// Stage positions recorded by the microscope refer to the center of the
// captured area, so this is the usual constructor.
func FromCenter(cx, cy, width, height float64) FieldOfView {
	return FieldOfView{
		X:      cx - width/2,
		Y:      cy - height/2,
		Width:  width,
		Height: height,
	}
}

// MaxX returns the right edge in stage coordinates.
func (f FieldOfView) MaxX() float64 { return f.X + f.Width }

// MaxY returns the top edge in stage coordinates (stage Y points up).
func (f FieldOfView) MaxY() float64 { return f.Y + f.Height }

// CenterX returns the horizontal center in stage coordinates.
func (f FieldOfView) CenterX() float64 { return f.X + f.Width/2 }

// CenterY returns the vertical center in stage coordinates.
func (f FieldOfView) CenterY() float64 { return f.Y + f.Height/2 }

// Area returns the covered sample area in square micrometers.
func (f FieldOfView) Area() float64 { return f.Width * f.Height }

// Overlaps reports whether the two fields of view intersect with
// positive area. Merely touching edges does not count.
func Overlaps(a, b FieldOfView) bool {
	return a.X < b.MaxX() && b.X < a.MaxX() &&
		a.Y < b.MaxY() && b.Y < a.MaxY()
}

// Contains reports whether inner lies within outer.
//
// Each inner edge may exceed the corresponding outer edge by at most
// toleranceUM micrometers, absorbing stage-positioning noise. In addition
// inner must cover strictly less area than outer: inner.Area() must not
// exceed minAreaRatio * outer.Area(). The area guard prevents two images
// of near-identical magnification from containing one another when their
// positions differ only by noise.
func Contains(outer, inner FieldOfView, toleranceUM, minAreaRatio float64) bool {
	if inner.Area() > minAreaRatio*outer.Area() {
		return false
	}
	return inner.X >= outer.X-toleranceUM &&
		inner.Y >= outer.Y-toleranceUM &&
		inner.MaxX() <= outer.MaxX()+toleranceUM &&
		inner.MaxY() <= outer.MaxY()+toleranceUM
}

// PixelSize is the pixel dimensions of a captured image.
type PixelSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BBox is a rectangle in a parent image's pixel coordinate space,
// with the origin at the top-left corner of the parent image.
type BBox struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right returns Left + Width.
func (b BBox) Right() int { return b.Left + b.Width }

// Bottom returns Top + Height.
func (b BBox) Bottom() int { return b.Top + b.Height }

// PixelBBox maps inner's stage rectangle into outer's pixel coordinate
// space. The affine transform scales each axis by the outer image's
// pixel-per-micrometer ratio and flips the Y axis, since stage Y grows
// upward while pixel rows grow downward.
//
// The result is clamped to the outer image's pixel bounds: containment
// tolerance may place a computed corner fractionally outside the image.
func PixelBBox(outer FieldOfView, outerPx PixelSize, inner FieldOfView) BBox {
	scaleX := float64(outerPx.Width) / outer.Width
	scaleY := float64(outerPx.Height) / outer.Height

	left := (inner.X - outer.X) * scaleX
	right := (inner.MaxX() - outer.X) * scaleX
	top := (outer.MaxY() - inner.MaxY()) * scaleY
	bottom := (outer.MaxY() - inner.Y) * scaleY

	l := clampInt(int(math.Round(left)), 0, outerPx.Width)
	r := clampInt(int(math.Round(right)), 0, outerPx.Width)
	t := clampInt(int(math.Round(top)), 0, outerPx.Height)
	b := clampInt(int(math.Round(bottom)), 0, outerPx.Height)

	return BBox{Left: l, Top: t, Width: r - l, Height: b - t}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
