// Package render turns an analyzed collection into an annotated image
// grid: each member image is drawn as one cell, with the bounding boxes
// of its contained children overlaid in their assigned colors.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"path/filepath"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/tclab/scalegrid/internal/collection"
)

// LineStyle selects how bounding boxes are stroked. It is carried
// through from configuration; the analysis engine never interprets it.
type LineStyle string

const (
	LineSolid  LineStyle = "solid"
	LineDashed LineStyle = "dashed"
	LineDotted LineStyle = "dotted"
)

// ParseLineStyle validates a configured line style string.
func ParseLineStyle(s string) (LineStyle, error) {
	switch LineStyle(s) {
	case LineSolid, LineDashed, LineDotted:
		return LineStyle(s), nil
	default:
		return "", fmt.Errorf("unknown line style %q (want solid, dashed or dotted)", s)
	}
}

// dashPattern returns the on/off pixel run lengths for a style.
func (s LineStyle) dashPattern() (on, off int) {
	switch s {
	case LineDashed:
		return 8, 4
	case LineDotted:
		return 2, 2
	default:
		return 1, 0
	}
}

// Options configures grid composition.
type Options struct {
	// CellWidth is the width every member image is scaled to.
	CellWidth int

	// LineStyle strokes the bounding boxes.
	LineStyle LineStyle

	// PenWidth is the bounding box stroke width in pixels, at cell
	// resolution.
	PenWidth int
}

// DefaultOptions returns the renderer defaults.
func DefaultOptions() Options {
	return Options{CellWidth: 400, LineStyle: LineSolid, PenWidth: 2}
}

const (
	labelHeight = 18
	cellPadding = 4
)

// Renderer composes annotated grids. It caches decoded images, so one
// Renderer exporting several collections of a session reads each member
// file once.
type Renderer struct {
	cache *imageCache
	opts  Options
}

// NewRenderer returns a Renderer with the given options.
func NewRenderer(opts Options) *Renderer {
	if opts.CellWidth <= 0 {
		opts.CellWidth = DefaultOptions().CellWidth
	}
	if opts.PenWidth <= 0 {
		opts.PenWidth = DefaultOptions().PenWidth
	}
	return &Renderer{cache: newImageCache(), opts: opts}
}

// ClearCache drops the decoded-image cache.
func (r *Renderer) ClearCache() { r.cache.clear() }

// Grid renders a collection as an annotated image grid with a one-shot
// Renderer. Member image files are resolved inside imagesDir by their
// metadata path's base name; a member whose file is missing or
// unreadable gets a gray placeholder cell instead of failing the
// export.
func Grid(c collection.Collection, imagesDir string, opts Options) (image.Image, error) {
	return NewRenderer(opts).Grid(c, imagesDir)
}

// Grid renders one collection.
func (r *Renderer) Grid(c collection.Collection, imagesDir string) (image.Image, error) {
	if len(c.Images) == 0 {
		return nil, fmt.Errorf("collection %s has no images", c.CollectionID)
	}

	cells := make([]*image.RGBA, len(c.Images))
	maxCellHeight := 0
	for i, member := range c.Images {
		cell := r.renderCell(c, member.ID, imagesDir)
		cells[i] = cell
		if h := cell.Bounds().Dy(); h > maxCellHeight {
			maxCellHeight = h
		}
	}

	cols := int(math.Ceil(math.Sqrt(float64(len(cells)))))
	rows := (len(cells) + cols - 1) / cols

	cellW := r.opts.CellWidth + 2*cellPadding
	cellH := maxCellHeight + labelHeight + 2*cellPadding
	canvas := image.NewRGBA(image.Rect(0, 0, cols*cellW, rows*cellH))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.RGBA{32, 32, 32, 255}), image.Point{}, draw.Src)

	for i, cell := range cells {
		col, row := i%cols, i/cols
		x := col*cellW + cellPadding
		y := row*cellH + cellPadding

		dst := cell.Bounds().Add(image.Pt(x, y))
		draw.Draw(canvas, dst, cell, cell.Bounds().Min, draw.Src)

		drawLabel(canvas, x, y+cell.Bounds().Dy()+labelHeight-cellPadding, c.Images[i].ID)
	}

	return canvas, nil
}

// renderCell loads one member image, overlays the bounding boxes of its
// direct children, and scales the result to the configured cell width.
func (r *Renderer) renderCell(c collection.Collection, memberID, imagesDir string) *image.RGBA {
	member, _ := c.Image(memberID)

	src, err := r.cache.load(resolvePath(imagesDir, member.Path))
	if err != nil {
		src = placeholder(member.PixelSize.Width, member.PixelSize.Height)
	}

	annotated := imaging.Clone(src)

	// Box coordinates are in the parent's native pixel space; if the
	// file on disk was exported at another resolution, scale to match.
	sx := float64(annotated.Bounds().Dx()) / float64(member.PixelSize.Width)
	sy := float64(annotated.Bounds().Dy()) / float64(member.PixelSize.Height)

	for _, e := range c.Edges {
		if e.ParentID != memberID {
			continue
		}
		col, ok := c.Colors[e.ChildID]
		if !ok {
			continue
		}
		box := image.Rect(
			int(float64(e.BBox.Left)*sx),
			int(float64(e.BBox.Top)*sy),
			int(float64(e.BBox.Right())*sx),
			int(float64(e.BBox.Bottom())*sy),
		)
		strokeRect(annotated, box, color.RGBA{col.R, col.G, col.B, col.A}, r.opts.LineStyle, r.opts.PenWidth)
	}

	height := r.opts.CellWidth * annotated.Bounds().Dy() / annotated.Bounds().Dx()
	if height < 1 {
		height = 1
	}
	return transform.Resize(annotated, r.opts.CellWidth, height, transform.Linear)
}

func resolvePath(imagesDir, memberPath string) string {
	if imagesDir == "" {
		return memberPath
	}
	return filepath.Join(imagesDir, filepath.Base(memberPath))
}

// placeholder is the cell drawn when a member's image file is missing:
// the annotation layout must survive partially archived folders.
func placeholder(width, height int) image.Image {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{96, 96, 96, 255}), image.Point{}, draw.Src)
	return img
}

// strokeRect strokes the rectangle outline with the given style and pen
// width, clipped to the destination bounds.
func strokeRect(dst draw.Image, r image.Rectangle, col color.Color, style LineStyle, pen int) {
	on, off := style.dashPattern()
	period := on + off

	setIfOn := func(x, y, phase int) {
		if off > 0 && phase%period >= on {
			return
		}
		for dx := 0; dx < pen; dx++ {
			for dy := 0; dy < pen; dy++ {
				p := image.Pt(x+dx, y+dy)
				if p.In(dst.Bounds()) {
					dst.Set(p.X, p.Y, col)
				}
			}
		}
	}

	for x := r.Min.X; x < r.Max.X; x++ {
		setIfOn(x, r.Min.Y, x-r.Min.X)
		setIfOn(x, r.Max.Y-pen, x-r.Min.X)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		setIfOn(r.Min.X, y, y-r.Min.Y)
		setIfOn(r.Max.X-pen, y, y-r.Min.Y)
	}
}

// drawLabel prints a member id under its cell.
func drawLabel(dst *image.RGBA, x, baseline int, label string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(label)
}

// SavePNG writes a rendered grid to disk. The format follows the file
// extension; .png is the usual choice.
func SavePNG(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save grid image: %w", err)
	}
	return nil
}
