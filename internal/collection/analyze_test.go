package collection

import (
	"bytes"
	"testing"

	"github.com/tclab/scalegrid/internal/geometry"
	"github.com/tclab/scalegrid/internal/metadata"
)

func TestAnalyzeEmptyInput(t *testing.T) {
	collections, report, err := Analyze(nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed on empty input: %v", err)
	}
	if len(collections) != 0 {
		t.Errorf("got %d collections, want 0", len(collections))
	}
	if !report.Empty() {
		t.Errorf("unexpected warnings: %v", report.Warnings)
	}
}

func TestAnalyzeExcludesMalformedRecords(t *testing.T) {
	good := record(t, "good", 1000, 0, 0, 0)
	bad := metadata.ImageMetadata{
		ID:            "bad",
		Path:          "bad.tif",
		Magnification: 0, // invalid
		PixelSize:     geometry.PixelSize{Width: 800, Height: 800},
	}

	collections, report, err := Analyze([]metadata.ImageMetadata{good, bad}, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(collections) != 1 || collections[0].Images[0].ID != "good" {
		t.Fatalf("expected a single collection holding %q, got %+v", "good", collections)
	}

	if len(report.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1: %v", len(report.Warnings), report.Warnings)
	}
	w := report.Warnings[0]
	if w.Kind != WarnMalformedMetadata {
		t.Errorf("warning kind: got %s, want %s", w.Kind, WarnMalformedMetadata)
	}
	if len(w.ImageIDs) != 1 || w.ImageIDs[0] != "bad" {
		t.Errorf("warning must name the offending image, got %v", w.ImageIDs)
	}
}

func TestAnalyzeFlagsDuplicateIDs(t *testing.T) {
	records := []metadata.ImageMetadata{
		record(t, "dup", 1000, 0, 0, 0),
		record(t, "dup", 200, 0, 0, 1),
	}

	collections, report, err := Analyze(records, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(collections) != 1 || len(collections[0].Images) != 1 {
		t.Errorf("duplicate id must be excluded, got %+v", collections)
	}
	if report.Empty() {
		t.Error("expected a duplicate-id warning")
	}
}

func TestAnalyzePartialOverlapYieldsSingletons(t *testing.T) {
	records := []metadata.ImageMetadata{
		record(t, "left", 500, 0, 0, 0),
		record(t, "right", 500, 250, 0, 1),
	}

	collections, _, err := Analyze(records, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(collections) != 2 {
		t.Fatalf("got %d collections, want 2 singletons", len(collections))
	}
	for _, c := range collections {
		if len(c.Images) != 1 || len(c.Edges) != 0 || len(c.Colors) != 0 {
			t.Errorf("expected bare singleton, got %+v", c)
		}
	}
}

func TestAnalyzeIsReproducible(t *testing.T) {
	build := func(shuffled bool) []metadata.ImageMetadata {
		records := []metadata.ImageMetadata{
			record(t, "Image1", 1000, 0, 0, 0),
			record(t, "Image2", 200, 100, -100, 1),
			record(t, "Image3", 50, 100, -100, 2),
			record(t, "loner", 400, 5000, 5000, 3),
		}
		if shuffled {
			records[0], records[3] = records[3], records[0]
			records[1], records[2] = records[2], records[1]
		}
		return records
	}

	opts := DefaultOptions()
	opts.SessionID, opts.SampleID = "SEM1-1", "TCL1"

	encode := func(records []metadata.ImageMetadata) []byte {
		collections, _, err := Analyze(records, opts)
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
		var buf bytes.Buffer
		for _, c := range collections {
			data, err := Encode(c)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			buf.Write(data)
		}
		return buf.Bytes()
	}

	first := encode(build(false))
	second := encode(build(true))
	if !bytes.Equal(first, second) {
		t.Error("two runs over the same metadata set produced different results")
	}
}
