// Package metadata defines the per-image descriptor the analysis engine
// consumes, plus the persisted session-info and CSV metadata stores.
//
// Records are normally parsed out of microscope TIFF tags by an external
// collaborator; this package only validates and derives from them.
package metadata

import (
	"fmt"
	"time"

	"github.com/tclab/scalegrid/internal/geometry"
)

// ReferenceFieldWidthUM is the calibration constant tying magnification to
// field-of-view width: a magnification of 1 corresponds to a 127 mm wide
// field, so fovWidth = ReferenceFieldWidthUM / magnification. This matches
// the instrument's databar convention (mag = 127000 / fovWidth).
const ReferenceFieldWidthUM = 127000.0

// StagePosition is the sample-stage position of an image's center,
// in micrometers.
type StagePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ImageMetadata identifies one source image and the geometry needed to
// place its field of view on the sample stage. Immutable once built;
// FieldOfView is derived from the magnification and calibration constant
// at construction time and cached.
type ImageMetadata struct {
	ID            string               `json:"id"`
	Path          string               `json:"path"`
	Magnification float64              `json:"magnification"`
	StagePosition StagePosition        `json:"stagePosition"`
	PixelSize     geometry.PixelSize   `json:"pixelSize"`
	Timestamp     time.Time            `json:"timestamp"`
	FieldOfView   geometry.FieldOfView `json:"fieldOfView"`
}

// New validates the raw fields and builds a record with its derived
// field of view. The field is centered on the stage position; its height
// follows the pixel aspect ratio (square pixels).
func New(id, path string, ts time.Time, magnification float64, pos StagePosition, px geometry.PixelSize) (ImageMetadata, error) {
	m := ImageMetadata{
		ID:            id,
		Path:          path,
		Magnification: magnification,
		StagePosition: pos,
		PixelSize:     px,
		Timestamp:     ts,
	}
	if err := m.Validate(); err != nil {
		return ImageMetadata{}, err
	}

	fovWidth := ReferenceFieldWidthUM / magnification
	fovHeight := fovWidth * float64(px.Height) / float64(px.Width)
	m.FieldOfView = geometry.FromCenter(pos.X, pos.Y, fovWidth, fovHeight)
	return m, nil
}

// Validate checks the invariants every analysis input must satisfy.
func (m ImageMetadata) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("image record has no identifier")
	}
	if m.Magnification <= 0 {
		return fmt.Errorf("image %s: magnification must be > 0, got %g", m.ID, m.Magnification)
	}
	if m.PixelSize.Width <= 0 || m.PixelSize.Height <= 0 {
		return fmt.Errorf("image %s: pixel dimensions must be > 0, got %dx%d",
			m.ID, m.PixelSize.Width, m.PixelSize.Height)
	}
	return nil
}

// SampleInfo is external context attached to a folder of images. The
// analysis core treats every field as opaque.
type SampleInfo struct {
	SessionID         string    `json:"sessionId"`
	SampleID          string    `json:"sampleId"`
	Operator          string    `json:"operator,omitempty"`
	PreparationMethod string    `json:"preparationMethod,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}
