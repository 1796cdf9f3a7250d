package collection

import (
	"math"
	"sort"

	"github.com/tclab/scalegrid/internal/geometry"
	"github.com/tclab/scalegrid/internal/metadata"
)

// areaEpsilon is the relative tolerance under which two candidate parent
// areas count as tied; ties fall back to image id ordering so edge
// selection never depends on map iteration order.
const areaEpsilon = 1e-9

// ResolveContainment computes the containment relation over a set of
// image records. The induced parent relation is a forest: each image
// gets at most one parent, chosen as the smallest-area image whose field
// of view contains it — the tightest enclosing context. Edges that would
// create a cycle are dropped with a warning.
//
// Output edges are sorted by (parentId, childId) and the whole selection
// is deterministic for a given input set and configuration.
func ResolveContainment(records []metadata.ImageMetadata, toleranceUM, minAreaRatio float64, report *Report) []ContainmentEdge {
	byID := make(map[string]metadata.ImageMetadata, len(records))
	ids := make([]string, 0, len(records))
	for _, m := range records {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)

	parentOf := make(map[string]string, len(ids))

	for _, childID := range ids {
		child := byID[childID]

		bestID := ""
		bestArea := math.Inf(1)
		for _, parentID := range ids {
			if parentID == childID {
				continue
			}
			parent := byID[parentID]
			if !geometry.Contains(parent.FieldOfView, child.FieldOfView, toleranceUM, minAreaRatio) {
				continue
			}
			area := parent.FieldOfView.Area()
			switch {
			case bestID == "" || area < bestArea-areaEpsilon*math.Max(area, bestArea):
				bestID, bestArea = parentID, area
			case math.Abs(area-bestArea) <= areaEpsilon*math.Max(area, bestArea) && parentID < bestID:
				bestID = parentID
			}
		}
		if bestID == "" {
			continue
		}

		// Contains is not guaranteed transitive-antisymmetric under
		// tolerance, so refuse any edge whose child is already a
		// transitive ancestor of the chosen parent.
		if isAncestor(parentOf, childID, bestID) {
			report.add(WarnAmbiguousContainment,
				"dropping containment edge: child is already an ancestor of the candidate parent",
				bestID, childID)
			continue
		}
		parentOf[childID] = bestID
	}

	edges := make([]ContainmentEdge, 0, len(parentOf))
	for childID, parentID := range parentOf {
		parent := byID[parentID]
		child := byID[childID]
		edges = append(edges, ContainmentEdge{
			ParentID: parentID,
			ChildID:  childID,
			BBox:     geometry.PixelBBox(parent.FieldOfView, parent.PixelSize, child.FieldOfView),
		})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].ParentID != edges[j].ParentID {
			return edges[i].ParentID < edges[j].ParentID
		}
		return edges[i].ChildID < edges[j].ChildID
	})
	return edges
}

// isAncestor reports whether ancestor is reachable from node by
// following parent links accepted so far.
func isAncestor(parentOf map[string]string, ancestor, node string) bool {
	for {
		p, ok := parentOf[node]
		if !ok {
			return false
		}
		if p == ancestor {
			return true
		}
		node = p
	}
}
