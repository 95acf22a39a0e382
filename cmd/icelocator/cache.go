package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or purge the result cache",
}

var cacheInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print cache statistics",
	RunE:  runCacheInspect,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every cached search result",
	RunE:  runCachePurge,
}

func init() {
	cacheCmd.AddCommand(cacheInspectCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheInspect(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats := a.Cache.Stats()
	fmt.Fprintf(os.Stdout, "enabled:     %t\n", stats.Enabled)
	fmt.Fprintf(os.Stdout, "entry_count: %d\n", stats.EntryCount)
	fmt.Fprintf(os.Stdout, "max_entries: %d\n", stats.MaxEntries)
	return nil
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Cache.Purge(); err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	fmt.Fprintln(os.Stdout, "cache purged")
	return nil
}
