package render

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/tclab/scalegrid/internal/collection"
	"github.com/tclab/scalegrid/internal/geometry"
	"github.com/tclab/scalegrid/internal/metadata"
)

func TestParseLineStyle(t *testing.T) {
	tests := []struct {
		in      string
		want    LineStyle
		wantErr bool
	}{
		{in: "solid", want: LineSolid},
		{in: "dashed", want: LineDashed},
		{in: "dotted", want: LineDotted},
		{in: "wavy", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLineStyle(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLineStyle(%q): expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLineStyle(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLineStyle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// testCollection builds a two-member collection: child nested in the
// parent's center with a known bounding box.
func testCollection(t *testing.T) collection.Collection {
	t.Helper()

	ts := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	parent, err := metadata.New("parent", "scans/parent.tif", ts, 127.0,
		metadata.StagePosition{X: 500, Y: 500},
		geometry.PixelSize{Width: 200, Height: 200})
	if err != nil {
		t.Fatalf("building parent metadata: %v", err)
	}
	child, err := metadata.New("child", "scans/child.tif", ts.Add(time.Minute), 635.0,
		metadata.StagePosition{X: 500, Y: 500},
		geometry.PixelSize{Width: 200, Height: 200})
	if err != nil {
		t.Fatalf("building child metadata: %v", err)
	}

	return collection.Collection{
		CollectionID: "SEM1_TCL1_Collection_1",
		Name:         "Collection_1",
		SessionID:    "SEM1",
		SampleID:     "TCL1",
		Images:       []metadata.ImageMetadata{parent, child},
		Edges: []collection.ContainmentEdge{
			{ParentID: "parent", ChildID: "child", BBox: geometry.BBox{Left: 80, Top: 80, Width: 40, Height: 40}},
		},
		Colors: map[string]collection.Color{
			"child": {R: 255, G: 0, B: 0, A: 180},
		},
	}
}

func TestGridEmptyCollection(t *testing.T) {
	_, err := Grid(collection.Collection{CollectionID: "x"}, "", DefaultOptions())
	if err == nil {
		t.Fatal("expected error for collection without images")
	}
}

func TestGridWithMissingFiles(t *testing.T) {
	c := testCollection(t)

	img, err := Grid(c, t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}

	// Two members fit a 2x1 grid of 400-wide cells plus padding.
	wantW := 2 * (400 + 2*cellPadding)
	if img.Bounds().Dx() != wantW {
		t.Errorf("grid width = %d, want %d", img.Bounds().Dx(), wantW)
	}
	if img.Bounds().Dy() <= 0 {
		t.Errorf("grid height = %d, want > 0", img.Bounds().Dy())
	}
}

func TestGridDrawsBoundingBox(t *testing.T) {
	c := testCollection(t)
	dir := t.TempDir()

	for _, name := range []string{"parent.tif", "child.tif"} {
		blank := image.NewRGBA(image.Rect(0, 0, 200, 200))
		if err := imaging.Save(blank, filepath.Join(dir, name)); err != nil {
			t.Fatalf("writing fixture %s: %v", name, err)
		}
	}

	opts := DefaultOptions()
	opts.LineStyle = LineSolid
	img, err := Grid(c, dir, opts)
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}

	// The child box spans pixels 80..120 of a 200px parent scaled to a
	// 400px cell, so its top edge lands near cell y=160 in the first
	// cell. Resampling softens the stroke, so scan a small band for a
	// clearly red pixel.
	found := false
	for y := cellPadding + 155; y <= cellPadding+168 && !found; y++ {
		for x := cellPadding + 165; x <= cellPadding+235; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r>>8 > 100 && r > 3*g && r > 3*b {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("expected a red stroke along the box top edge, found none")
	}
}

func TestStrokeRectDashedLeavesGaps(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	strokeRect(img, image.Rect(10, 10, 90, 90), color.RGBA{255, 255, 255, 255}, LineDashed, 1)

	lit, dark := 0, 0
	for x := 10; x < 90; x++ {
		if _, _, _, a := img.At(x, 10).RGBA(); a > 0 {
			lit++
		} else {
			dark++
		}
	}
	if lit == 0 || dark == 0 {
		t.Errorf("dashed top edge should mix lit and unlit pixels, got lit=%d dark=%d", lit, dark)
	}
}

func TestStrokeRectSolidIsContinuous(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	strokeRect(img, image.Rect(10, 10, 90, 90), color.RGBA{255, 255, 255, 255}, LineSolid, 1)

	for x := 10; x < 90; x++ {
		if _, _, _, a := img.At(x, 10).RGBA(); a == 0 {
			t.Fatalf("solid top edge has a gap at x=%d", x)
		}
	}
}

func TestRendererCachesDecodedImages(t *testing.T) {
	c := testCollection(t)
	dir := t.TempDir()
	for _, name := range []string{"parent.tif", "child.tif"} {
		blank := image.NewRGBA(image.Rect(0, 0, 200, 200))
		if err := imaging.Save(blank, filepath.Join(dir, name)); err != nil {
			t.Fatalf("writing fixture %s: %v", name, err)
		}
	}

	r := NewRenderer(DefaultOptions())
	first, err := r.Grid(c, dir)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}

	// Remove the files; a second render must come out of the cache.
	for _, name := range []string{"parent.tif", "child.tif"} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			t.Fatalf("removing fixture: %v", err)
		}
	}
	second, err := r.Grid(c, dir)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !second.Bounds().Eq(first.Bounds()) {
		t.Errorf("cached render bounds %v differ from first %v", second.Bounds(), first.Bounds())
	}

	// After clearing, missing files fall back to placeholders instead
	// of erroring.
	r.ClearCache()
	if _, err := r.Grid(c, dir); err != nil {
		t.Fatalf("render after cache clear: %v", err)
	}
}

func TestSavePNG(t *testing.T) {
	c := testCollection(t)
	img, err := Grid(c, t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}

	out := filepath.Join(t.TempDir(), "grid.png")
	if err := SavePNG(img, out); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() == 0 {
		t.Error("saved grid is empty")
	}
}
