package collection

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPersistenceConflict is returned when a persisted collection file is
// structurally incompatible with the current format. It is the only
// analysis-path error that must stop a run: merging on top of a corrupt
// file is never acceptable, while every other problem degrades to a
// warning. Callers should prompt for a fresh analysis.
var ErrPersistenceConflict = errors.New("persisted collection is structurally incompatible")

// WarningKind classifies a non-fatal analysis diagnostic.
type WarningKind string

const (
	// WarnMalformedMetadata marks a record missing required geometric
	// fields; the image is excluded and analysis proceeds.
	WarnMalformedMetadata WarningKind = "malformed-metadata"

	// WarnAmbiguousContainment marks a containment edge dropped by the
	// cycle guard.
	WarnAmbiguousContainment WarningKind = "ambiguous-containment"

	// WarnMissingImage marks an image present in a persisted collection
	// but absent from the fresh scan during reconciliation.
	WarnMissingImage WarningKind = "missing-image"
)

// Warning is a non-fatal diagnostic carrying enough context (the image
// ids involved) for a caller to present a precise message.
type Warning struct {
	Kind     WarningKind
	ImageIDs []string
	Reason   string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s [%s]: %s", w.Kind, strings.Join(w.ImageIDs, ", "), w.Reason)
}

// Report collects the warnings produced by one analysis or
// reconciliation run. A run never aborts on a warning; partial results
// are always preferable to a failed batch.
type Report struct {
	Warnings []Warning
}

func (r *Report) add(kind WarningKind, reason string, ids ...string) {
	r.Warnings = append(r.Warnings, Warning{Kind: kind, ImageIDs: ids, Reason: reason})
}

// Empty reports whether the run completed without diagnostics.
func (r *Report) Empty() bool { return len(r.Warnings) == 0 }
