package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tclab/scalegrid/internal/collection"
	"github.com/tclab/scalegrid/internal/config"
	"github.com/tclab/scalegrid/internal/render"
)

var (
	exportImagesDir string
	exportOut       string
)

var exportCmd = &cobra.Command{
	Use:   "export <collection.json>",
	Short: "Export a collection as an annotated overview grid",
	Long: `Export renders a saved collection as a PNG grid: one cell per member
image, with each contained child's bounding box drawn on its parent in
the child's assigned color.

Example:
  scalegrid export collections/SEM1-123_TCL12345_Collection_1.json --images-dir scans/ --out overview.png`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportImagesDir, "images-dir", "", "directory holding the member image files")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output PNG path (default <collection>.png)")
}

func runExport(cmd *cobra.Command, args []string) error {
	settings := config.Load()

	store, err := collection.NewStore(settings.CollectionsDir)
	if err != nil {
		return err
	}
	c, err := store.Load(args[0])
	if err != nil {
		if errors.Is(err, collection.ErrPersistenceConflict) {
			return fmt.Errorf("%s is not internally consistent (%w); reconcile or re-analyze before exporting", args[0], err)
		}
		return err
	}

	style, err := render.ParseLineStyle(settings.LineStyle)
	if err != nil {
		return fmt.Errorf("render.line_style: %w", err)
	}
	opts := render.DefaultOptions()
	opts.CellWidth = settings.CellWidth
	opts.LineStyle = style

	grid, err := render.Grid(c, exportImagesDir, opts)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", c.CollectionID, err)
	}

	out := exportOut
	if out == "" {
		out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".png"
	}
	if err := render.SavePNG(grid, out); err != nil {
		return err
	}

	log.Info().Str("collection", c.CollectionID).Str("out", out).Msg("grid exported")
	fmt.Printf("wrote %s\n", out)
	return nil
}
