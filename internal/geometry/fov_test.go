package geometry

import "testing"

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b FieldOfView
		want bool
	}{
		{
			"identical",
			FromCenter(0, 0, 100, 100),
			FromCenter(0, 0, 100, 100),
			true,
		},
		{
			"nested",
			FromCenter(0, 0, 1000, 1000),
			FromCenter(0, 0, 200, 200),
			true,
		},
		{
			"partial overlap",
			FromCenter(0, 0, 100, 100),
			FromCenter(80, 0, 100, 100),
			true,
		},
		{
			"disjoint",
			FromCenter(0, 0, 100, 100),
			FromCenter(500, 500, 100, 100),
			false,
		},
		{
			"edges touching",
			FromCenter(0, 0, 100, 100),
			FromCenter(100, 0, 100, 100),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Errorf("Overlaps: got %v, want %v", got, tt.want)
			}
			// Overlap is symmetric.
			if got := Overlaps(tt.b, tt.a); got != tt.want {
				t.Errorf("Overlaps reversed: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		name         string
		outer, inner FieldOfView
		tolerance    float64
		ratio        float64
		want         bool
	}{
		{
			"centered inner",
			FromCenter(0, 0, 1000, 1000),
			FromCenter(0, 0, 200, 200),
			1.0, 0.95,
			true,
		},
		{
			"inner off to a corner but inside",
			FromCenter(0, 0, 1000, 1000),
			FromCenter(380, 380, 200, 200),
			1.0, 0.95,
			true,
		},
		{
			"inner pokes out beyond tolerance",
			FromCenter(0, 0, 1000, 1000),
			FromCenter(450, 0, 200, 200),
			1.0, 0.95,
			false,
		},
		{
			"inner pokes out within tolerance",
			FromCenter(0, 0, 1000, 1000),
			FromCenter(400.4, 0, 200, 200),
			1.0, 0.95,
			true,
		},
		{
			"equal size never contains even with zero offset",
			FromCenter(0, 0, 500, 500),
			FromCenter(0, 0, 500, 500),
			0, 0.95,
			false,
		},
		{
			"near-equal size rejected by area ratio",
			FromCenter(0, 0, 500, 500),
			FromCenter(0, 0, 495, 495),
			5.0, 0.95,
			false,
		},
		{
			"partial overlap is not containment",
			FromCenter(0, 0, 500, 500),
			FromCenter(400, 0, 200, 200),
			1.0, 0.95,
			false,
		},
		{
			"disjoint",
			FromCenter(0, 0, 500, 500),
			FromCenter(2000, 0, 200, 200),
			1.0, 0.95,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Contains(tt.outer, tt.inner, tt.tolerance, tt.ratio)
			if got != tt.want {
				t.Errorf("Contains: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPixelBBox(t *testing.T) {
	tests := []struct {
		name    string
		outer   FieldOfView
		outerPx PixelSize
		inner   FieldOfView
		want    BBox
	}{
		{
			"centered child maps to centered box",
			FromCenter(0, 0, 1000, 1000),
			PixelSize{Width: 800, Height: 800},
			FromCenter(0, 0, 200, 200),
			BBox{Left: 320, Top: 320, Width: 160, Height: 160},
		},
		{
			// Stage Y grows up, pixel rows grow down: a child above the
			// parent center lands in the upper half of the parent image.
			"child above center lands in upper rows",
			FromCenter(0, 0, 1000, 1000),
			PixelSize{Width: 1000, Height: 1000},
			FromCenter(0, 300, 100, 100),
			BBox{Left: 450, Top: 150, Width: 100, Height: 100},
		},
		{
			"child left of center lands in left columns",
			FromCenter(0, 0, 1000, 1000),
			PixelSize{Width: 1000, Height: 1000},
			FromCenter(-300, 0, 100, 100),
			BBox{Left: 150, Top: 450, Width: 100, Height: 100},
		},
		{
			"corner outside parent is clamped",
			FromCenter(0, 0, 1000, 1000),
			PixelSize{Width: 1000, Height: 1000},
			FromCenter(490, 490, 100, 100),
			BBox{Left: 940, Top: 0, Width: 60, Height: 60},
		},
		{
			"non-square pixel grid scales per axis",
			FromCenter(0, 0, 1000, 500),
			PixelSize{Width: 2000, Height: 1000},
			FromCenter(0, 0, 100, 100),
			BBox{Left: 900, Top: 400, Width: 200, Height: 200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PixelBBox(tt.outer, tt.outerPx, tt.inner)
			if got != tt.want {
				t.Errorf("PixelBBox: got %+v, want %+v", got, tt.want)
			}
		})
	}
}

// Any pair accepted by Contains must produce a bbox within the parent's
// pixel bounds, whatever the tolerance did to the corners.
func TestPixelBBoxStaysInsideParent(t *testing.T) {
	outer := FromCenter(0, 0, 1000, 1000)
	px := PixelSize{Width: 800, Height: 600}

	inners := []FieldOfView{
		FromCenter(0, 0, 200, 200),
		FromCenter(400.9, 0, 200, 200),
		FromCenter(-400.9, 400.9, 200, 200),
		FromCenter(499, -499, 50, 50),
	}

	for _, inner := range inners {
		if !Contains(outer, inner, 2.0, 0.95) {
			continue
		}
		b := PixelBBox(outer, px, inner)
		if b.Left < 0 || b.Top < 0 {
			t.Errorf("bbox %+v has negative origin", b)
		}
		if b.Right() > px.Width || b.Bottom() > px.Height {
			t.Errorf("bbox %+v exceeds parent %dx%d", b, px.Width, px.Height)
		}
		if b.Width < 0 || b.Height < 0 {
			t.Errorf("bbox %+v has negative size", b)
		}
	}
}
