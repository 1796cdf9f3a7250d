package collection

import (
	"fmt"
	"sort"

	"github.com/tclab/scalegrid/internal/metadata"
)

// BuildCollections partitions images into disjoint collections: the
// connected components of the containment relation, treating edges as
// undirected for grouping. Every image lands in exactly one collection;
// images with no edges become single-member collections.
//
// Multi-image components are named Collection_1, Collection_2, … in
// order of earliest acquisition; singletons are named after their image.
// The output list is ordered by earliest member timestamp, ties broken
// by collection identifier.
func BuildCollections(records []metadata.ImageMetadata, edges []ContainmentEdge, sessionID, sampleID string) []Collection {
	uf := newUnionFind()
	for _, m := range records {
		uf.add(m.ID)
	}
	for _, e := range edges {
		uf.union(e.ParentID, e.ChildID)
	}

	members := make(map[string][]metadata.ImageMetadata)
	for _, m := range records {
		root := uf.find(m.ID)
		members[root] = append(members[root], m)
	}

	components := make([]Collection, 0, len(members))
	for _, imgs := range members {
		sort.Slice(imgs, func(i, j int) bool {
			if !imgs[i].Timestamp.Equal(imgs[j].Timestamp) {
				return imgs[i].Timestamp.Before(imgs[j].Timestamp)
			}
			return imgs[i].ID < imgs[j].ID
		})

		c := Collection{
			SessionID: sessionID,
			SampleID:  sampleID,
			Images:    imgs,
			Colors:    map[string]Color{},
		}
		inComponent := make(map[string]bool, len(imgs))
		for _, img := range imgs {
			inComponent[img.ID] = true
		}
		for _, e := range edges {
			if inComponent[e.ParentID] {
				c.Edges = append(c.Edges, e)
			}
		}
		components = append(components, c)
	}

	sort.Slice(components, func(i, j int) bool {
		ti, tj := components[i].EarliestTimestamp(), components[j].EarliestTimestamp()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return components[i].Images[0].ID < components[j].Images[0].ID
	})

	n := 0
	for i := range components {
		if len(components[i].Images) > 1 {
			n++
			components[i].Name = fmt.Sprintf("Collection_%d", n)
		} else {
			components[i].Name = "Single_" + components[i].Images[0].ID
		}
		components[i].CollectionID = fmt.Sprintf("%s_%s_%s", sessionID, sampleID, components[i].Name)
	}

	// Component naming depends on timestamp order, so re-sorting by
	// (timestamp, id) afterwards cannot reorder the list; the sort above
	// already established the final ordering.
	return components
}

// unionFind is a plain disjoint-set over image ids with path halving.
type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string)}
}

func (u *unionFind) add(id string) {
	if _, ok := u.parent[id]; !ok {
		u.parent[id] = id
	}
}

func (u *unionFind) find(id string) string {
	for u.parent[id] != id {
		u.parent[id] = u.parent[u.parent[id]]
		id = u.parent[id]
	}
	return id
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// Deterministic: the lexicographically smaller root wins.
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
