// Package scalegrid groups microscope session images into collections by
// geometric containment of their fields of view.
//
// Given per-image metadata (stage position, magnification, pixel
// dimensions), the engine works out which images' fields of view nest
// inside others, partitions the session into disjoint collections,
// computes the pixel-space bounding box of every contained image in its
// parent, and assigns each nested image a stable depth-based color.
//
// Basic usage:
//
//	package main
//
//	import (
//		"fmt"
//		"log"
//		"os"
//
//		"github.com/tclab/scalegrid"
//	)
//
//	func main() {
//		f, err := os.Open("session.csv")
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer f.Close()
//
//		records, _, err := scalegrid.ReadCSV(f)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		opts := scalegrid.DefaultOptions()
//		opts.SessionID = "SEM1-123"
//		opts.SampleID = "TCL12345"
//
//		collections, report, err := scalegrid.Analyze(records, opts)
//		if err != nil {
//			log.Fatal(err)
//		}
//		for _, w := range report.Warnings {
//			fmt.Println("warning:", w)
//		}
//		for _, c := range collections {
//			fmt.Printf("%s: %d images\n", c.CollectionID, len(c.Images))
//		}
//	}
//
// The heavy lifting lives in the internal packages:
//
//  1. geometry: field-of-view math and pixel-space bounding boxes
//  2. metadata: per-image records, CSV and session-info persistence
//  3. collection: containment resolution, partitioning, colors, JSON store
//  4. render: annotated overview grids
//
// This file re-exports the engine's entry points for library use; the
// scalegrid command in cmd/scalegrid wraps the same calls.
package scalegrid

import (
	"io"

	"github.com/tclab/scalegrid/internal/collection"
	"github.com/tclab/scalegrid/internal/metadata"
)

// Collection is one disjoint group of geometrically related images.
type Collection = collection.Collection

// Options tunes the containment analysis.
type Options = collection.Options

// Report carries the non-fatal warnings of one analysis run.
type Report = collection.Report

// ImageMetadata describes one source image.
type ImageMetadata = metadata.ImageMetadata

// SkippedRow records a CSV row that could not be parsed.
type SkippedRow = metadata.SkippedRow

// ReadCSV parses per-image metadata from CSV, skipping malformed rows.
func ReadCSV(r io.Reader) ([]ImageMetadata, []SkippedRow, error) {
	return metadata.ReadCSV(r)
}

// DefaultOptions returns the analysis defaults.
func DefaultOptions() Options {
	return collection.DefaultOptions()
}

// Analyze partitions the given image records into collections.
func Analyze(records []ImageMetadata, opts Options) ([]Collection, *Report, error) {
	return collection.Analyze(records, opts)
}

// Reconcile re-analyzes a saved collection's images against current
// metadata, preserving the collection's identity and colors.
func Reconcile(old Collection, fresh []ImageMetadata, opts Options) ([]Collection, *Report, error) {
	return collection.Reconcile(old, fresh, opts)
}
