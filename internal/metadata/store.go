package metadata

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/tclab/scalegrid/internal/geometry"
)

// csvColumns is the stable column order of the persisted metadata table.
// External spreadsheet tooling depends on this order not changing.
var csvColumns = []string{
	"id",
	"path",
	"timestamp",
	"magnification",
	"stage_x_um",
	"stage_y_um",
	"pixel_width",
	"pixel_height",
	"fov_width_um",
	"fov_height_um",
}

// SkippedRow describes a metadata row that was excluded from a load
// because it was missing or had malformed geometric fields.
type SkippedRow struct {
	ID     string
	Reason string
}

// Store persists session info (JSON) and per-image metadata (CSV) under
// a single directory, one pair of files per session.
type Store struct {
	Dir string
}

// NewStore creates the backing directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create metadata dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// InfoPath returns the session info JSON path for a session.
func (s *Store) InfoPath(sessionID string) string {
	return filepath.Join(s.Dir, sessionID+"_info.json")
}

// CSVPath returns the metadata CSV path for a session.
func (s *Store) CSVPath(sessionID string) string {
	return filepath.Join(s.Dir, sessionID+"_metadata.csv")
}

// SaveSessionInfo writes sample/session context to its JSON file.
func (s *Store) SaveSessionInfo(info SampleInfo) (string, error) {
	if info.SessionID == "" {
		return "", fmt.Errorf("session id is required")
	}
	if info.Timestamp.IsZero() {
		info.Timestamp = time.Now().UTC()
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal session info: %w", err)
	}

	path := s.InfoPath(info.SessionID)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("failed to write session info: %w", err)
	}
	return path, nil
}

// LoadSessionInfo reads sample/session context back. A missing file is
// not an error; it returns a zero SampleInfo and false.
func (s *Store) LoadSessionInfo(sessionID string) (SampleInfo, bool, error) {
	data, err := os.ReadFile(s.InfoPath(sessionID))
	if os.IsNotExist(err) {
		return SampleInfo{}, false, nil
	}
	if err != nil {
		return SampleInfo{}, false, fmt.Errorf("failed to read session info: %w", err)
	}

	var info SampleInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return SampleInfo{}, false, fmt.Errorf("failed to parse session info: %w", err)
	}
	return info, true, nil
}

// Append adds records to a session's metadata CSV. The table is
// append-only across reconciliation runs: rows for already-present image
// ids are kept as they are and only previously unseen images gain rows.
func (s *Store) Append(sessionID string, records []ImageMetadata) error {
	existing, _, err := s.Load(sessionID)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		seen[m.ID] = true
	}

	merged := existing
	for _, m := range records {
		if !seen[m.ID] {
			merged = append(merged, m)
			seen[m.ID] = true
		}
	}

	file, err := os.Create(s.CSVPath(sessionID))
	if err != nil {
		return fmt.Errorf("failed to create metadata csv: %w", err)
	}
	defer file.Close()

	if err := WriteCSV(file, merged); err != nil {
		return err
	}
	return nil
}

// Load reads a session's metadata CSV. Rows with malformed geometric
// fields are skipped and reported, never fatal. A missing file yields an
// empty set.
func (s *Store) Load(sessionID string) ([]ImageMetadata, []SkippedRow, error) {
	file, err := os.Open(s.CSVPath(sessionID))
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open metadata csv: %w", err)
	}
	defer file.Close()

	return ReadCSV(file)
}

// WriteCSV writes records as a metadata table with the stable column order.
// Records are written sorted by image id so re-exports are reproducible.
func WriteCSV(w io.Writer, records []ImageMetadata) error {
	sorted := make([]ImageMetadata, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, m := range sorted {
		row := []string{
			m.ID,
			m.Path,
			m.Timestamp.UTC().Format(time.RFC3339),
			formatFloat(m.Magnification),
			formatFloat(m.StagePosition.X),
			formatFloat(m.StagePosition.Y),
			strconv.Itoa(m.PixelSize.Width),
			strconv.Itoa(m.PixelSize.Height),
			formatFloat(m.FieldOfView.Width),
			formatFloat(m.FieldOfView.Height),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", m.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a metadata table. The field of view is re-derived from
// magnification and pixel size rather than trusted from the file, since
// it is a cached value.
func ReadCSV(r io.Reader) ([]ImageMetadata, []SkippedRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse metadata csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, required := range []string{"id", "magnification", "stage_x_um", "stage_y_um", "pixel_width", "pixel_height"} {
		if _, ok := col[required]; !ok {
			return nil, nil, fmt.Errorf("metadata csv is missing column %q", required)
		}
	}

	var records []ImageMetadata
	var skipped []SkippedRow

	for _, row := range rows[1:] {
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		id := get("id")
		m, err := parseRow(id, get)
		if err != nil {
			skipped = append(skipped, SkippedRow{ID: id, Reason: err.Error()})
			continue
		}
		records = append(records, m)
	}

	return records, skipped, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseRow(id string, get func(string) string) (ImageMetadata, error) {
	mag, err := strconv.ParseFloat(get("magnification"), 64)
	if err != nil {
		return ImageMetadata{}, fmt.Errorf("bad magnification: %w", err)
	}
	x, err := strconv.ParseFloat(get("stage_x_um"), 64)
	if err != nil {
		return ImageMetadata{}, fmt.Errorf("bad stage_x_um: %w", err)
	}
	y, err := strconv.ParseFloat(get("stage_y_um"), 64)
	if err != nil {
		return ImageMetadata{}, fmt.Errorf("bad stage_y_um: %w", err)
	}
	pw, err := strconv.Atoi(get("pixel_width"))
	if err != nil {
		return ImageMetadata{}, fmt.Errorf("bad pixel_width: %w", err)
	}
	ph, err := strconv.Atoi(get("pixel_height"))
	if err != nil {
		return ImageMetadata{}, fmt.Errorf("bad pixel_height: %w", err)
	}

	var ts time.Time
	if raw := get("timestamp"); raw != "" {
		ts, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return ImageMetadata{}, fmt.Errorf("bad timestamp: %w", err)
		}
	}

	return New(id, get("path"), ts, mag, StagePosition{X: x, Y: y}, geometry.PixelSize{Width: pw, Height: ph})
}
