// Package cli wires the analysis engine, stores and renderer into the
// scalegrid command tree.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tclab/scalegrid/internal/collection"
	"github.com/tclab/scalegrid/internal/config"
)

var (
	cfgFile string
	verbose bool

	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

var rootCmd = &cobra.Command{
	Use:   "scalegrid",
	Short: "Containment analysis for microscope image sessions",
	Long: `scalegrid groups the images of a microscope session into collections by
working out, from stage position and magnification alone, which images'
fields of view sit inside others. It persists the resulting collections
as JSON, keeps the session metadata in CSV form, and can export each
collection as an annotated overview grid.`,
}

// Execute runs the command tree. Errors are printed once, here.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetVersion lets the build inject its version string.
func SetVersion(v string) {
	rootCmd.Version = v
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/scalegrid/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func initConfig() {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "scalegrid")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("SCALEGRID")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config.SetDefaults()

	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Str("file", viper.ConfigFileUsed()).Msg("using config file")
	}
}

// logWarnings emits every analysis warning at warn level.
func logWarnings(report *collection.Report) {
	if report == nil {
		return
	}
	for _, w := range report.Warnings {
		log.Warn().Str("kind", string(w.Kind)).Strs("images", w.ImageIDs).Msg(w.Reason)
	}
}

// printCollections writes a human-readable containment tree for each
// collection to w.
func printCollections(w *os.File, collections []collection.Collection) {
	for _, c := range collections {
		fmt.Fprintf(w, "%s (%d images)\n", c.CollectionID, len(c.Images))

		children := make(map[string][]string)
		for _, e := range c.Edges {
			children[e.ParentID] = append(children[e.ParentID], e.ChildID)
		}

		var walk func(id string, depth int)
		walk = func(id string, depth int) {
			indent := strings.Repeat("  ", depth+1)
			if col, ok := c.Colors[id]; ok {
				fmt.Fprintf(w, "%s%s %s\n", indent, id, col.Hex())
			} else {
				fmt.Fprintf(w, "%s%s\n", indent, id)
			}
			for _, child := range children[id] {
				walk(child, depth+1)
			}
		}
		for _, root := range c.Roots() {
			walk(root, 0)
		}
	}
}
