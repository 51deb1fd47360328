package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bsm/gdstash/pipeline"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newCacheCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "manage catalog snapshots",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "list catalog snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := cacheDir(cmd, flags)
			if err != nil || dir == "" {
				return err
			}
			files, err := pipeline.CacheFiles(dir)
			if err != nil {
				return err
			}
			return listCache(cmd.OutOrStdout(), files)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "remove every catalog snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := cacheDir(cmd, flags)
			if err != nil || dir == "" {
				return err
			}
			removed, err := pipeline.ClearCache(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snapshot(s) from %s.\n", len(removed), dir)
			return nil
		},
	})
	return cmd
}

func cacheDir(cmd *cobra.Command, flags *globalFlags) (string, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil || cfg == nil {
		return "", err
	}
	if cfg.CacheDir == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Caching is disabled.")
	}
	return cfg.CacheDir, nil
}

func listCache(w io.Writer, files []string) error {
	t := newTable(w, table.Row{"Snapshot", "Size", "Modified"})
	for _, name := range files {
		fi, err := os.Stat(name)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{filepath.Base(name), fi.Size(), fi.ModTime().Format("2006-01-02 15:04:05")})
	}
	t.Render()
	return nil
}
