// Package config maps the viper-backed configuration onto the typed
// options the engine and renderer consume.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/tclab/scalegrid/internal/collection"
)

// SetDefaults registers every recognized configuration key. The
// containment thresholds are deliberately configuration, not constants:
// no single tolerance suits every magnification range.
func SetDefaults() {
	viper.SetDefault("analysis.tolerance_um", 1.0)
	viper.SetDefault("analysis.min_area_ratio", 0.95)
	viper.SetDefault("render.palette", []string{})
	viper.SetDefault("render.line_style", "solid")
	viper.SetDefault("render.cell_width", 400)
	viper.SetDefault("storage.collections_dir", "collections")
	viper.SetDefault("storage.metadata_dir", "metadata")
}

// Settings is the resolved configuration for one invocation.
type Settings struct {
	ToleranceUM    float64
	MinAreaRatio   float64
	Palette        []string
	LineStyle      string
	CellWidth      int
	CollectionsDir string
	MetadataDir    string
}

// Load reads the current viper state into Settings.
func Load() Settings {
	return Settings{
		ToleranceUM:    viper.GetFloat64("analysis.tolerance_um"),
		MinAreaRatio:   viper.GetFloat64("analysis.min_area_ratio"),
		Palette:        viper.GetStringSlice("render.palette"),
		LineStyle:      viper.GetString("render.line_style"),
		CellWidth:      viper.GetInt("render.cell_width"),
		CollectionsDir: viper.GetString("storage.collections_dir"),
		MetadataDir:    viper.GetString("storage.metadata_dir"),
	}
}

// AnalysisOptions builds engine options from the settings. It also
// returns human-readable warnings about palette entries too similar to
// distinguish; those are advisory, never fatal.
func (s Settings) AnalysisOptions(sessionID, sampleID string) (collection.Options, []string, error) {
	if s.ToleranceUM < 0 {
		return collection.Options{}, nil, fmt.Errorf("analysis.tolerance_um must be >= 0, got %g", s.ToleranceUM)
	}
	if s.MinAreaRatio <= 0 || s.MinAreaRatio > 1 {
		return collection.Options{}, nil, fmt.Errorf("analysis.min_area_ratio must be in (0, 1], got %g", s.MinAreaRatio)
	}

	palette, err := collection.ParsePalette(s.Palette)
	if err != nil {
		return collection.Options{}, nil, fmt.Errorf("render.palette: %w", err)
	}

	return collection.Options{
		ToleranceUM:  s.ToleranceUM,
		MinAreaRatio: s.MinAreaRatio,
		Palette:      palette,
		SessionID:    sessionID,
		SampleID:     sampleID,
	}, collection.PaletteWarnings(palette), nil
}
