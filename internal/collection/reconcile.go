package collection

import (
	"fmt"

	"github.com/tclab/scalegrid/internal/metadata"
)

// Reconcile merges a previously persisted collection with a freshly
// re-scanned metadata set.
//
// Containment is recomputed from scratch over the fresh set — a newly
// added image can change the tightest-parent choice for existing images,
// so incremental edge patching is never attempted. Previously assigned
// colors are then overlaid onto images that survived unchanged (same
// id), so an already-rendered relationship keeps its color; only newly
// introduced non-root images keep their freshly assigned colors.
//
// Images present in the old collection but missing from the fresh scan
// are dropped with a warning. The fresh partition may split or grow the
// old component; the resulting collection sharing the most members with
// the old one inherits its identity.
func Reconcile(old Collection, fresh []metadata.ImageMetadata, opts Options) ([]Collection, *Report, error) {
	if opts.SessionID == "" {
		opts.SessionID = old.SessionID
	}
	if opts.SampleID == "" {
		opts.SampleID = old.SampleID
	}

	collections, report, err := Analyze(fresh, opts)
	if err != nil {
		return nil, report, err
	}

	freshIDs := make(map[string]bool, len(fresh))
	for _, m := range fresh {
		freshIDs[m.ID] = true
	}
	for _, img := range old.Images {
		if !freshIDs[img.ID] {
			report.add(WarnMissingImage,
				"image from persisted collection is missing from the fresh scan and was dropped",
				img.ID)
		}
	}

	// The component with the largest member overlap continues the old
	// collection's identity.
	bestIdx, bestOverlap := -1, 0
	oldMembers := make(map[string]bool, len(old.Images))
	for _, img := range old.Images {
		oldMembers[img.ID] = true
	}
	for i, c := range collections {
		overlap := 0
		for _, img := range c.Images {
			if oldMembers[img.ID] {
				overlap++
			}
		}
		if overlap > bestOverlap {
			bestIdx, bestOverlap = i, overlap
		}
	}
	if bestIdx >= 0 {
		collections[bestIdx].CollectionID = old.CollectionID
		collections[bestIdx].Name = old.Name

		// A newly added component may have been numbered with the
		// inherited name this run; re-number any other component that
		// now shares the old id, or the store would write two
		// collections to one file.
		taken := map[string]bool{old.CollectionID: true}
		next := 1
		for i := range collections {
			if i == bestIdx {
				continue
			}
			c := &collections[i]
			if !taken[c.CollectionID] {
				taken[c.CollectionID] = true
				continue
			}
			for {
				name := fmt.Sprintf("Collection_%d", next)
				id := fmt.Sprintf("%s_%s_%s", opts.SessionID, opts.SampleID, name)
				next++
				if !taken[id] {
					c.Name, c.CollectionID = name, id
					taken[id] = true
					break
				}
			}
		}
	}

	for i := range collections {
		for id := range collections[i].Colors {
			if prev, ok := old.Colors[id]; ok {
				collections[i].Colors[id] = prev
			}
		}
	}

	return collections, report, nil
}
