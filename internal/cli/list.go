package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tclab/scalegrid/internal/collection"
	"github.com/tclab/scalegrid/internal/config"
)

var listSession string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved collections",
	Long: `List the collections in the configured collections directory, optionally
narrowed to one session.

Examples:
  scalegrid list
  scalegrid list --session SEM1-123`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listSession, "session", "", "only show collections of this session")
}

func runList(cmd *cobra.Command, args []string) error {
	settings := config.Load()

	store, err := collection.NewStore(settings.CollectionsDir)
	if err != nil {
		return err
	}

	var paths []string
	if listSession != "" {
		paths, err = store.ListSession(listSession)
	} else {
		paths, err = filepath.Glob(filepath.Join(settings.CollectionsDir, "*.json"))
	}
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	if len(paths) == 0 {
		fmt.Println("no collections found")
		return nil
	}

	for _, path := range paths {
		c, err := store.Load(path)
		if err != nil {
			if errors.Is(err, collection.ErrPersistenceConflict) {
				fmt.Printf("%-40s  (inconsistent: %v)\n", filepath.Base(path), err)
				continue
			}
			return err
		}
		fmt.Printf("%-40s  %s  %d images, %d nested\n",
			filepath.Base(path), c.EarliestTimestamp().Format("2006-01-02 15:04"),
			len(c.Images), len(c.Edges))
	}
	return nil
}
