// creditgraph builds music credit graphs from public catalogs.
//
// Usage:
//
//	creditgraph track --artist=<name> --track=<title> [--album=<title>]
//	creditgraph discography --artist=<name>
//	creditgraph expand --id=<entity-id> --type=<album|track|artist>
//	creditgraph cache stats|clear
//	creditgraph export -o <file> --artist=<name> --track=<title>
//	creditgraph import <file>... [-o <file>]
//	creditgraph serve
//	creditgraph follow [--path=<now-playing.json>]
//	creditgraph providers
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sydlexius/creditgraph/internal/version"
)

var rootFlags struct {
	configPath string
}

var rootCmd = &cobra.Command{
	Use:   "creditgraph",
	Short: "Resolve who made a song into a graph of artists, tracks and credits",
	Long: "creditgraph resolves a track or artist against MusicBrainz, enriches\n" +
		"it with Discogs credit sheets and artist images, and emits the result\n" +
		"as an entity/relationship graph.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", defaultConfigPath(), "Path to the YAML config file")

	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(discographyCmd)
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.Version = version.Version + " (" + version.Commit + ")"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
