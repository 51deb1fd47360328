package main

import (
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var rarityColors = map[string]*color.Color{
	"Magical":   color.New(color.FgYellow),
	"Rare":      color.New(color.FgGreen),
	"Epic":      color.New(color.FgBlue),
	"Legendary": color.New(color.FgMagenta),
	"Quest":     color.New(color.FgCyan),
	"Broken":    color.New(color.FgHiBlack),
}

var plain = color.New(color.Reset)

func rarityColor(rarity string) *color.Color {
	if c, ok := rarityColors[rarity]; ok {
		return c
	}
	return plain
}

// newTable returns a table that renders to w. Columns after the first are
// right aligned.
func newTable(w io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(header)

	cfgs := make([]table.ColumnConfig, 0, len(header))
	for i := range header {
		cfg := table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignCenter}
		if i != 0 {
			cfg.Align = text.AlignRight
		}
		cfgs = append(cfgs, cfg)
	}
	t.SetColumnConfigs(cfgs)
	return t
}
