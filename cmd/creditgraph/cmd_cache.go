package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the persistent track cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show track cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			if err := a.requireCache(); err != nil {
				return err
			}
			st, err := a.cache.Stats(ctx)
			if err != nil {
				return fmt.Errorf("reading cache stats: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries:   %d / %d\n", st.Entries, st.Capacity)
			fmt.Fprintf(out, "TTL:       %s\n", st.TTL)
			fmt.Fprintf(out, "Bytes:     %d\n", st.Bytes)
			fmt.Fprintf(out, "Hits:      %d\n", st.TotalHits)
			if !st.Oldest.IsZero() {
				fmt.Fprintf(out, "Oldest:    %s\n", st.Oldest.Format(time.RFC3339))
				fmt.Fprintf(out, "Newest:    %s\n", st.Newest.Format(time.RFC3339))
			}
			fmt.Fprintf(out, "Format:    v%d\n", st.FormatVersion)

			ds, err := a.maint.Status(ctx)
			if err != nil {
				return fmt.Errorf("reading database status: %w", err)
			}
			fmt.Fprintf(out, "DB file:   %d bytes (WAL %d)\n", ds.DBFileSize, ds.WALFileSize)
			fmt.Fprintf(out, "Free:      %d bytes reclaimable\n", ds.Reclaimable())
			fmt.Fprintf(out, "Schema:    v%d\n", ds.SchemaVersion)
			if ds.LastCompactAt != "" {
				fmt.Fprintf(out, "Compacted: %s\n", ds.LastCompactAt)
			}
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached track graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			if err := a.requireCache(); err != nil {
				return err
			}
			if err := a.cache.Clear(ctx); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Track cache cleared")
			return nil
		})
	},
}

var cacheCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Return free pages of the cache database to the filesystem",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			if err := a.requireCache(); err != nil {
				return err
			}
			before, err := a.maint.Status(ctx)
			if err != nil {
				return err
			}
			if err := a.maint.Compact(ctx); err != nil {
				return fmt.Errorf("compacting cache database: %w", err)
			}
			after, err := a.maint.Status(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Compacted: %d -> %d bytes\n", before.DBFileSize, after.DBFileSize)
			return nil
		})
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheCompactCmd)
}
