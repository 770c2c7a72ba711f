package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sydlexius/creditgraph/internal/assembler"
	"github.com/sydlexius/creditgraph/internal/graph"
)

var trackFlags struct {
	artist string
	track  string
	album  string
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Print the credit graph of one track",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			res, err := a.assembler.TrackGraph(ctx, assembler.TrackRequest{
				Artist: trackFlags.artist,
				Track:  trackFlags.track,
				Album:  trackFlags.album,
			})
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		})
	},
}

var discographyFlags struct {
	artist string
}

var discographyCmd = &cobra.Command{
	Use:   "discography",
	Short: "Print an artist and their release groups",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			res, err := a.assembler.Discography(ctx, discographyFlags.artist)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		})
	},
}

var expandFlags struct {
	id       string
	typ      string
	name     string
	sourceID string
	depth    int
}

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Print the children of a graph entity",
	Long: "expand opens one entity of an earlier graph: an album yields its\n" +
		"tracks, a track its personnel, an artist their release groups.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		e := graph.Entity{
			ID:       expandFlags.id,
			Name:     expandFlags.name,
			Type:     graph.EntityType(expandFlags.typ),
			SourceID: expandFlags.sourceID,
			Depth:    expandFlags.depth,
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			res, err := a.assembler.Expand(ctx, e)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		})
	},
}

func init() {
	f := trackCmd.Flags()
	f.StringVar(&trackFlags.artist, "artist", "", "Artist name (required)")
	f.StringVar(&trackFlags.track, "track", "", "Track title (required)")
	f.StringVar(&trackFlags.album, "album", "", "Album title")
	_ = trackCmd.MarkFlagRequired("artist")
	_ = trackCmd.MarkFlagRequired("track")

	discographyCmd.Flags().StringVar(&discographyFlags.artist, "artist", "", "Artist name (required)")
	_ = discographyCmd.MarkFlagRequired("artist")

	f = expandCmd.Flags()
	f.StringVar(&expandFlags.id, "id", "", "Entity ID (required)")
	f.StringVar(&expandFlags.typ, "type", "", "Entity type: album, track or artist (required)")
	f.StringVar(&expandFlags.name, "name", "", "Entity name")
	f.StringVar(&expandFlags.sourceID, "source-id", "", "Catalog ID, when it differs from the entity ID")
	f.IntVar(&expandFlags.depth, "depth", 0, "Depth of the entity in the caller's view")
	_ = expandCmd.MarkFlagRequired("id")
	_ = expandCmd.MarkFlagRequired("type")
}

// printResult writes res as indented JSON. A not-found result is printed
// and reported as an error so scripts can tell.
func printResult(w io.Writer, res *assembler.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	if !res.Found {
		return errNotFound
	}
	return nil
}

var errNotFound = errors.New("not found upstream")
