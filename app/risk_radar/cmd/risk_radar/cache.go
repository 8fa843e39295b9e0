package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the monthly news cache",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "List cached months with article counts and age",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := cache.NewStore(cfg.Cache.Dir).Info()
		if err != nil {
			return err
		}
		printCacheInfo(cmd.OutOrStdout(), report)
		return nil
	},
}

var cacheHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report corrupted or stale cache files",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := cache.NewStore(cfg.Cache.Dir).Info()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !report.Exists {
			fmt.Fprintf(out, "Cache directory %s does not exist\n", report.Dir)
			return nil
		}
		h := cache.Health(report)
		if h.Healthy() {
			fmt.Fprintln(out, "Cache is healthy")
			return nil
		}
		for _, issue := range h.Issues {
			fmt.Fprintf(out, "ISSUE   %s\n", issue)
		}
		for _, w := range h.Warnings {
			fmt.Fprintf(out, "WARNING %s\n", w)
		}
		if len(h.Issues) > 0 {
			return fmt.Errorf("cache has %d issue(s)", len(h.Issues))
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached months",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		out := cmd.OutOrStdout()
		if !yes {
			fmt.Fprintf(out, "This deletes every cache file in %s. Re-run with --yes to confirm.\n", cfg.Cache.Dir)
			return nil
		}
		n, err := cache.NewStore(cfg.Cache.Dir).Clear()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %d cache file(s)\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheInfoCmd, cacheHealthCmd, cacheClearCmd)
	cacheClearCmd.Flags().Bool("yes", false, "confirm deletion")
}

func printCacheInfo(out io.Writer, r *cache.Report) {
	if !r.Exists {
		fmt.Fprintf(out, "Cache directory %s does not exist\n", r.Dir)
		return
	}
	fmt.Fprintf(out, "Cache directory: %s\n", r.Dir)
	fmt.Fprintf(out, "Files: %d, total articles: %d\n", len(r.Files), r.TotalArticles)
	if !r.Oldest.IsZero() {
		fmt.Fprintf(out, "Oldest: %s, newest: %s\n", r.Oldest.Format(time.DateTime), r.Newest.Format(time.DateTime))
	}
	for _, f := range r.Files {
		if f.Err != "" {
			fmt.Fprintf(out, "  %-32s corrupted: %s\n", f.File, f.Err)
			continue
		}
		fmt.Fprintf(out, "  %-8s %3d articles, cached %s (%d days old)\n", f.Month, f.Articles, f.CacheDate.Format(time.DateOnly), f.AgeDays)
	}
}
