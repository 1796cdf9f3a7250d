package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tclab/scalegrid/internal/collection"
	"github.com/tclab/scalegrid/internal/config"
)

var (
	reconcileMetadata string
	reconcileSave     bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <collection.json>",
	Short: "Re-analyze a saved collection against current metadata",
	Long: `Reconcile reloads a saved collection, re-runs the containment analysis
over the current metadata for its images, and carries the collection's
identity and any adjusted colors over to the recomputed result. Images
whose metadata has disappeared are dropped with a warning.

Example:
  scalegrid reconcile collections/SEM1-123_TCL12345_Collection_1.json --metadata session.csv --save`,
	Args: cobra.ExactArgs(1),
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVar(&reconcileMetadata, "metadata", "", "CSV file with current per-image metadata (required)")
	reconcileCmd.Flags().BoolVar(&reconcileSave, "save", false, "persist the reconciled collections")
	reconcileCmd.MarkFlagRequired("metadata")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	settings := config.Load()

	store, err := collection.NewStore(settings.CollectionsDir)
	if err != nil {
		return err
	}

	old, err := store.Load(args[0])
	if err != nil {
		if errors.Is(err, collection.ErrPersistenceConflict) {
			return fmt.Errorf("%s is not internally consistent (%w); run a fresh analysis instead of reconciling", args[0], err)
		}
		return err
	}

	records, skipped, err := readMetadataCSV(reconcileMetadata)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		log.Warn().Str("id", s.ID).Msg(s.Reason)
	}

	opts, paletteWarnings, err := settings.AnalysisOptions(old.SessionID, old.SampleID)
	if err != nil {
		return err
	}
	for _, w := range paletteWarnings {
		log.Warn().Msg(w)
	}

	collections, report, err := collection.Reconcile(old, records, opts)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}
	logWarnings(report)

	printCollections(os.Stdout, collections)

	if !reconcileSave {
		return nil
	}

	for _, c := range collections {
		var path string
		if c.CollectionID == old.CollectionID {
			// The surviving collection overwrites its own file; take
			// the lock so concurrent reconciles cannot interleave.
			path, err = store.SaveLocked(c)
		} else {
			path, err = store.Save(c)
		}
		if err != nil {
			return fmt.Errorf("failed to save collection %s: %w", c.CollectionID, err)
		}
		fmt.Printf("saved %s\n", path)
	}
	return nil
}
