package collection

import (
	"github.com/tclab/scalegrid/internal/metadata"
)

// Options configures one analysis run. The zero value is not usable;
// start from DefaultOptions.
type Options struct {
	// ToleranceUM is the positional slack, in micrometers, allowed when
	// testing geometric containment.
	ToleranceUM float64

	// MinAreaRatio is the maximum inner/outer field-of-view area ratio
	// for a containment candidate. Keeps near-identical magnifications
	// from containing each other.
	MinAreaRatio float64

	// Palette is the ordered annotation palette. Empty means the
	// default ten-color palette.
	Palette []Color

	// SessionID and SampleID feed the derived collection identifiers.
	SessionID string
	SampleID  string
}

// DefaultOptions returns the engine defaults. The tolerance and area
// thresholds are starting points, not universal truths; callers working
// at unusual magnification ranges should tune them via configuration.
func DefaultOptions() Options {
	return Options{
		ToleranceUM:  1.0,
		MinAreaRatio: 0.95,
		Palette:      DefaultPalette(),
	}
}

func (o Options) normalized() Options {
	if o.MinAreaRatio <= 0 {
		o.MinAreaRatio = 0.95
	}
	if o.ToleranceUM < 0 {
		o.ToleranceUM = 0
	}
	if len(o.Palette) == 0 {
		o.Palette = DefaultPalette()
	}
	return o
}

// Analyze is the engine's single entry point: a pure function from an
// input metadata set and configuration to the full list of collections.
// It resolves containment, partitions the images into collections, and
// assigns colors in one atomic step — either the whole result is
// returned, or nothing is.
//
// Malformed records are excluded with a warning rather than failing the
// batch. An empty (or fully excluded) input yields zero collections and
// no error.
func Analyze(records []metadata.ImageMetadata, opts Options) ([]Collection, *Report, error) {
	opts = opts.normalized()
	report := &Report{}

	valid := make([]metadata.ImageMetadata, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, m := range records {
		if err := m.Validate(); err != nil {
			report.add(WarnMalformedMetadata, err.Error(), m.ID)
			continue
		}
		if seen[m.ID] {
			report.add(WarnMalformedMetadata, "duplicate image identifier", m.ID)
			continue
		}
		seen[m.ID] = true
		valid = append(valid, m)
	}

	if len(valid) == 0 {
		return nil, report, nil
	}

	edges := ResolveContainment(valid, opts.ToleranceUM, opts.MinAreaRatio, report)
	collections := BuildCollections(valid, edges, opts.SessionID, opts.SampleID)
	for i := range collections {
		AssignColors(&collections[i], opts.Palette)
	}
	return collections, report, nil
}
