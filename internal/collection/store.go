package collection

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists collections as JSON files under a single directory,
// one file per collection, and reconciles persisted collections against
// fresh metadata scans.
type Store struct {
	Dir string
}

// NewStore creates the storage directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create collection dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// Path returns the backing file for a collection.
func (s *Store) Path(c Collection) string {
	name := strings.ReplaceAll(c.CollectionID, " ", "_")
	return filepath.Join(s.Dir, name+".json")
}

// Encode serializes a collection to its persisted JSON form. Encoding
// the same collection twice yields byte-identical output: struct fields
// have a fixed order and the color map marshals with sorted keys.
func Encode(c Collection) ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal collection: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses and structurally validates a persisted collection.
// Anything that would make a later merge unsafe — unparseable JSON,
// edges or colors referencing unknown images, a child with two parents,
// a containment cycle, a bbox outside its parent — is reported as
// ErrPersistenceConflict.
func Decode(data []byte) (Collection, error) {
	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return Collection{}, fmt.Errorf("%w: %v", ErrPersistenceConflict, err)
	}

	known := make(map[string]bool, len(c.Images))
	for _, img := range c.Images {
		if err := img.Validate(); err != nil {
			return Collection{}, fmt.Errorf("%w: image %s: %v", ErrPersistenceConflict, img.ID, err)
		}
		if known[img.ID] {
			return Collection{}, fmt.Errorf("%w: duplicate image %s", ErrPersistenceConflict, img.ID)
		}
		known[img.ID] = true
	}

	parents := make(map[string]string, len(c.Edges))
	for _, e := range c.Edges {
		if !known[e.ParentID] || !known[e.ChildID] {
			return Collection{}, fmt.Errorf("%w: edge %s->%s references unknown image",
				ErrPersistenceConflict, e.ParentID, e.ChildID)
		}
		if prev, ok := parents[e.ChildID]; ok {
			return Collection{}, fmt.Errorf("%w: image %s has two parents (%s, %s)",
				ErrPersistenceConflict, e.ChildID, prev, e.ParentID)
		}
		parents[e.ChildID] = e.ParentID

		parent, _ := c.Image(e.ParentID)
		if e.BBox.Left < 0 || e.BBox.Top < 0 ||
			e.BBox.Right() > parent.PixelSize.Width || e.BBox.Bottom() > parent.PixelSize.Height {
			return Collection{}, fmt.Errorf("%w: edge %s->%s bbox exceeds parent bounds",
				ErrPersistenceConflict, e.ParentID, e.ChildID)
		}
	}
	// Bounded walk: a cycle may not pass through the node being checked,
	// so cap the ancestor chain at the edge count instead of trusting it
	// to terminate.
	for child := range parents {
		node := child
		for steps := 0; ; steps++ {
			p, ok := parents[node]
			if !ok {
				break
			}
			if p == child || steps > len(parents) {
				return Collection{}, fmt.Errorf("%w: containment cycle reachable from %s",
					ErrPersistenceConflict, child)
			}
			node = p
		}
	}

	for id := range c.Colors {
		if !known[id] {
			return Collection{}, fmt.Errorf("%w: color assigned to unknown image %s",
				ErrPersistenceConflict, id)
		}
	}
	return c, nil
}

// Save writes a collection to its backing file atomically and returns
// the path.
func (s *Store) Save(c Collection) (string, error) {
	data, err := Encode(c)
	if err != nil {
		return "", err
	}

	path := s.Path(c)
	tmp, err := os.CreateTemp(s.Dir, ".collection-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write collection: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to replace collection file: %w", err)
	}
	return path, nil
}

// SaveLocked writes a collection while holding an exclusive lock on its
// backing file, for the reconciliation path where a previously persisted
// object is being replaced. A held lock is an error, not a wait.
func (s *Store) SaveLocked(c Collection) (string, error) {
	lockPath := s.Path(c) + ".lock"
	lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("collection %s is locked by another writer", c.CollectionID)
		}
		return "", fmt.Errorf("failed to acquire collection lock: %w", err)
	}
	lock.Close()
	defer os.Remove(lockPath)

	return s.Save(c)
}

// Load reads a persisted collection back.
func (s *Store) Load(path string) (Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Collection{}, fmt.Errorf("failed to read collection: %w", err)
	}
	return Decode(data)
}

// ListSession returns the backing files of all collections persisted for
// a session, sorted.
func (s *Store) ListSession(sessionID string) ([]string, error) {
	pattern := filepath.Join(s.Dir, sessionID+"_*.json")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return paths, nil
}
