package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/bsm/gdstash/config"
	"github.com/bsm/gdstash/pipeline"
	"github.com/bsm/gdstash/search"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// loadConfig loads the configuration and applies command line overrides.
// It returns nil without an error when the user has not configured the tool
// yet; a notice has been printed in that case.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if errors.Is(err, config.ErrNoConfig) {
		fmt.Fprintf(cmd.OutOrStdout(), "No configuration found at %s.\n", config.Locate(flags.configPath))
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("lenient") {
		cfg.LenientBlocks = flags.lenient
	}
	if flags.concurrency > 0 {
		cfg.Concurrency = flags.concurrency
	}
	if flags.noCache {
		cfg.CacheDir = ""
	}
	return cfg, nil
}

func runSearch(cmd *cobra.Command, flags *globalFlags, term string) error {
	log, err := flags.logger()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, flags)
	if err != nil || cfg == nil {
		return err
	}

	src, err := cfg.Sources()
	switch {
	case errors.Is(err, config.ErrMissingInstallDir):
		fmt.Fprintln(cmd.OutOrStdout(), "The game installation dir needs to be configured.")
		return nil
	case errors.Is(err, config.ErrMissingSaveDir):
		fmt.Fprintln(cmd.OutOrStdout(), "The save dir needs to be configured.")
		return nil
	case err != nil:
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := pipeline.Load(ctx, src, &pipeline.Options{
		Concurrency: cfg.Concurrency,
		Lenient:     cfg.LenientBlocks,
		CacheDir:    cfg.CacheDir,
		Logger:      log,
	})
	if err != nil {
		return err
	}

	found, err := res.Search(ctx, term, cfg.Concurrency)
	if err != nil {
		return err
	}
	printResults(cmd.OutOrStdout(), found)
	return nil
}

func printResults(w io.Writer, res *search.Results) {
	for _, r := range res.Found {
		for _, m := range r.Matches {
			fmt.Fprintf(w, "%s: %s\n", r.Location, rarityColor(m.Rarity).Sprint(m.String()))
		}
	}
	for _, name := range res.Unresolved {
		fmt.Fprintf(w, "No tag found for %s\n", name)
	}
}
