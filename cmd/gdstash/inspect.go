package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bsm/gdstash/arc"
	"github.com/bsm/gdstash/arz"
	"github.com/bsm/gdstash/save"
	"github.com/bsm/gdstash/snapshot"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newInspectCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "print a summary of an archive, save or snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := flags.logger()
			if err != nil {
				return err
			}
			opt := &save.Options{Lenient: flags.lenient, Logger: log}
			return inspect(cmd.OutOrStdout(), args[0], opt)
		},
	}
}

func inspect(w io.Writer, path string, opt *save.Options) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".arc":
		return inspectArchive(w, path)
	case ".arz":
		return inspectDatabase(w, path)
	case ".gdc":
		return inspectCharacter(w, path, opt)
	case ".gst", ".gsh":
		return inspectStash(w, path, opt)
	case ".snt":
		return inspectSnapshot(w, path)
	default:
		return errors.Errorf("inspect: unknown file type %q", ext)
	}
}

func inspectArchive(w io.Writer, path string) error {
	a, err := arc.Open(path)
	if err != nil {
		return err
	}

	t := newTable(w, table.Row{"File", "Parts", "Stored", "Size"})
	t.SetTitle("%s (version %d)", filepath.Base(path), a.Header.Version)
	for i, r := range a.Records {
		t.AppendRow(table.Row{a.Names[i], r.PartCount, r.Compressed, r.Decompressed})
	}
	t.AppendFooter(table.Row{"total", len(a.Parts), "", len(a.Records)})
	t.Render()
	return nil
}

func inspectDatabase(w io.Writer, path string) error {
	db, err := arz.Open(path)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, r := range db.Records {
		counts[r.Type]++
	}
	types := make([]string, 0, len(counts))
	for typ := range counts {
		types = append(types, typ)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return types[i] < types[j]
	})

	t := newTable(w, table.Row{"Type", "Category", "Records"})
	t.SetTitle("%s (%d strings)", filepath.Base(path), len(db.Strings))
	for _, typ := range types {
		t.AppendRow(table.Row{typ, arz.DefaultFilter.Type(typ), counts[typ]})
	}
	t.AppendFooter(table.Row{"total", "", len(db.Records)})
	t.Render()
	return nil
}

func inspectCharacter(w io.Writer, path string, opt *save.Options) error {
	c, err := save.ReadCharacter(path, opt)
	if err != nil {
		return err
	}

	t := newTable(w, table.Row{"Location", "Items"})
	t.SetTitle("%s, level %d %s", c.Name, c.Level, c.Class)
	for i, b := range c.Inventory.Bags {
		t.AppendRow(table.Row{fmt.Sprintf("bag %d", i+1), len(b.Items)})
	}
	for i, tab := range c.Stash {
		t.AppendRow(table.Row{fmt.Sprintf("stash tab %d", i+1), len(tab.Items)})
	}
	t.AppendRow(table.Row{"equipped", len(c.Inventory.Equipped())})
	t.Render()
	return nil
}

func inspectStash(w io.Writer, path string, opt *save.Options) error {
	s, err := save.ReadStash(path, opt)
	if err != nil {
		return err
	}

	t := newTable(w, table.Row{"Tab", "Size", "Items"})
	t.SetTitle("%s (version %d)", filepath.Base(path), s.Version)
	for i, tab := range s.Tabs {
		t.AppendRow(table.Row{i + 1, fmt.Sprintf("%dx%d", tab.Width, tab.Height), len(tab.Items)})
	}
	t.Render()
	return nil
}

func inspectSnapshot(w io.Writer, path string) error {
	r, closer, err := snapshot.Open(path)
	if err != nil {
		return err
	}
	defer closer.Close()

	cat, err := r.Catalog()
	if err != nil {
		return err
	}

	t := newTable(w, table.Row{"Entries", "Count"})
	t.SetTitle("%s (%d blocks)", filepath.Base(path), r.NumBlocks())
	t.AppendRows([]table.Row{
		{"items", len(cat.Items)},
		{"affixes", len(cat.Affixes)},
		{"tags", len(cat.Tags)},
		{"unresolved", len(cat.Unresolved)},
	})
	t.Render()
	return nil
}
