package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tclab/scalegrid/internal/collection"
	"github.com/tclab/scalegrid/internal/config"
	"github.com/tclab/scalegrid/internal/metadata"
)

var (
	analyzeMetadata string
	analyzeSession  string
	analyzeSample   string
	analyzeOperator string
	analyzeNotes    string
	analyzeSave     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Group a session's images into containment collections",
	Long: `Analyze reads per-image metadata from a CSV export and partitions the
images into collections of geometrically nested fields of view.

Examples:
  scalegrid analyze --metadata session.csv --session SEM1-123 --sample TCL12345
  scalegrid analyze --metadata session.csv --save`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeMetadata, "metadata", "", "CSV file with per-image metadata (required)")
	analyzeCmd.Flags().StringVar(&analyzeSession, "session", "", "session identifier (generated when empty)")
	analyzeCmd.Flags().StringVar(&analyzeSample, "sample", "", "sample identifier")
	analyzeCmd.Flags().StringVar(&analyzeOperator, "operator", "", "operator name for the session info record")
	analyzeCmd.Flags().StringVar(&analyzeNotes, "notes", "", "free-form notes for the session info record")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist collections and session metadata")
	analyzeCmd.MarkFlagRequired("metadata")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	sessionID := analyzeSession
	if sessionID == "" {
		sessionID = "run-" + uuid.NewString()[:8]
		log.Info().Str("session", sessionID).Msg("no session id given, generated one")
	}

	records, skipped, err := readMetadataCSV(analyzeMetadata)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		log.Warn().Str("id", s.ID).Msg(s.Reason)
	}

	settings := config.Load()
	opts, paletteWarnings, err := settings.AnalysisOptions(sessionID, analyzeSample)
	if err != nil {
		return err
	}
	for _, w := range paletteWarnings {
		log.Warn().Msg(w)
	}

	collections, report, err := collection.Analyze(records, opts)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	logWarnings(report)

	printCollections(os.Stdout, collections)
	fmt.Printf("%d images, %d collections\n", len(records), len(collections))

	if !analyzeSave {
		return nil
	}
	return saveSession(settings, sessionID, collections, records)
}

// readMetadataCSV loads and parses one CSV metadata export.
func readMetadataCSV(path string) ([]metadata.ImageMetadata, []metadata.SkippedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open metadata file: %w", err)
	}
	defer f.Close()

	records, skipped, err := metadata.ReadCSV(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, skipped, nil
}

// saveSession persists the analysis output: one JSON file per
// collection, the session's CSV metadata, and the session info record.
func saveSession(settings config.Settings, sessionID string, collections []collection.Collection, records []metadata.ImageMetadata) error {
	colStore, err := collection.NewStore(settings.CollectionsDir)
	if err != nil {
		return err
	}

	var saved []string
	for _, c := range collections {
		path, err := colStore.Save(c)
		if err != nil {
			return fmt.Errorf("failed to save collection %s: %w", c.CollectionID, err)
		}
		saved = append(saved, path)
	}

	metaStore, err := metadata.NewStore(settings.MetadataDir)
	if err != nil {
		return err
	}
	if err := metaStore.Append(sessionID, records); err != nil {
		return fmt.Errorf("failed to append session metadata: %w", err)
	}
	if _, err := metaStore.SaveSessionInfo(metadata.SampleInfo{
		SessionID:         sessionID,
		SampleID:          analyzeSample,
		Operator:          analyzeOperator,
		Notes:             analyzeNotes,
		PreparationMethod: "",
		Timestamp:         time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("failed to save session info: %w", err)
	}

	log.Info().
		Int("collections", len(saved)).
		Str("dir", settings.CollectionsDir).
		Msg("session saved")
	fmt.Printf("saved:\n  %s\n", strings.Join(saved, "\n  "))
	return nil
}
