// Package pipeline loads every game archive and save file concurrently,
// merges the results and runs searches against them.
package pipeline

import (
	"context"
	"runtime"

	"github.com/bsm/gdstash/arc"
	"github.com/bsm/gdstash/arz"
	"github.com/bsm/gdstash/catalog"
	"github.com/bsm/gdstash/save"
	"github.com/bsm/gdstash/search"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Sources lists the input files. Databases and localizations are merged
// in order, so later files override earlier ones.
type Sources struct {
	Databases     []string
	Localizations []string
	Characters    []string
	Stash         string
	HardcoreStash string
}

// Kind names the category of an input file.
type Kind string

// Input kinds.
const (
	KindDatabase     Kind = "database"
	KindLocalization Kind = "localization"
	KindCharacter    Kind = "character"
	KindStash        Kind = "stash"
)

// Failure records an input file that could not be used.
type Failure struct {
	Kind Kind
	Path string
	Err  error
}

func (f *Failure) Error() string {
	return string(f.Kind) + " " + f.Path + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// Options configure loading.
type Options struct {
	// Concurrency limits the number of files decoded at once.
	// Default: runtime.GOMAXPROCS(0).
	Concurrency int

	// Filter selects database records. Default: arz.DefaultFilter.
	Filter *arz.Filter

	// Lenient downgrades save block failures to warnings.
	Lenient bool

	// CacheDir enables catalog snapshots when set.
	CacheDir string

	// Logger receives progress and failure messages.
	// Default: logrus.StandardLogger().
	Logger logrus.FieldLogger
}

func (o *Options) norm() *Options {
	var oo Options
	if o != nil {
		oo = *o
	}

	if oo.Concurrency < 1 {
		oo.Concurrency = runtime.GOMAXPROCS(0)
	}
	if oo.Filter == nil {
		oo.Filter = &arz.DefaultFilter
	}
	if oo.Logger == nil {
		oo.Logger = logrus.StandardLogger()
	}
	return &oo
}

// Result is the merged outcome of Load.
type Result struct {
	Catalog *catalog.Catalog

	// Characters holds the decoded saves in input order. Failed saves are
	// left out.
	Characters    []*save.Character
	Stash         *save.Stash
	HardcoreStash *save.Stash

	Failures []*Failure

	// Cached is true when the catalog came from a snapshot.
	Cached bool
}

// Locations returns every searchable location: shared stashes first, then
// each character in order.
func (r *Result) Locations() []search.Location {
	var locs []search.Location
	if r.Stash != nil {
		locs = append(locs, search.StashLocations(r.Stash, false)...)
	}
	if r.HardcoreStash != nil {
		locs = append(locs, search.StashLocations(r.HardcoreStash, true)...)
	}
	for _, c := range r.Characters {
		locs = append(locs, search.CharacterLocations(c)...)
	}
	return locs
}

// Search looks for term across all locations.
func (r *Result) Search(ctx context.Context, term string, concurrency int) (*search.Results, error) {
	return search.NewIndex(r.Catalog).Search(ctx, term, r.Locations(), concurrency)
}

// Load decodes every source with one task per file. A failing file is
// recorded in Result.Failures and never cancels the others. Results are
// merged only after every task has finished.
func Load(ctx context.Context, src *Sources, o *Options) (*Result, error) {
	o = o.norm()
	log := o.Logger

	res := new(Result)
	if o.CacheDir != "" {
		res.Catalog = loadSnapshot(o.CacheDir, src, log)
		res.Cached = res.Catalog != nil
	}

	var (
		ents   = make([]*arz.Entities, len(src.Databases))
		tags   = make([]map[string]string, len(src.Localizations))
		chars  = make([]*save.Character, len(src.Characters))
		stashs = make([]*save.Stash, 2)
		fails  = make([]*Failure, len(src.Databases)+len(src.Localizations)+len(src.Characters)+2)
	)
	saveOpt := &save.Options{Lenient: o.Lenient, Logger: log}

	g := new(errgroup.Group)
	g.SetLimit(o.Concurrency)

	slot := 0
	spawn := func(kind Kind, path string, fn func() error) {
		n := slot
		slot++
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(); err != nil {
				fails[n] = &Failure{Kind: kind, Path: path, Err: err}
			}
			return nil
		})
	}

	if !res.Cached {
		for i, path := range src.Databases {
			i, path := i, path
			spawn(KindDatabase, path, func() (err error) {
				ents[i], err = arz.Load(ctx, path, &arz.Options{Filter: o.Filter, Concurrency: o.Concurrency})
				return
			})
		}
		for i, path := range src.Localizations {
			i, path := i, path
			spawn(KindLocalization, path, func() (err error) {
				tags[i], err = arc.LoadTags(path)
				return
			})
		}
	}
	for i, path := range src.Characters {
		i, path := i, path
		spawn(KindCharacter, path, func() (err error) {
			chars[i], err = save.ReadCharacter(path, saveOpt)
			return
		})
	}
	for i, path := range []string{src.Stash, src.HardcoreStash} {
		i, path := i, path
		if path == "" {
			continue
		}
		spawn(KindStash, path, func() (err error) {
			stashs[i], err = save.ReadStash(path, saveOpt)
			return
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	archiveFailed := false
	for _, f := range fails {
		if f != nil {
			if f.Kind == KindDatabase || f.Kind == KindLocalization {
				archiveFailed = true
			}
			log.WithFields(logrus.Fields{"kind": f.Kind, "path": f.Path}).WithError(f.Err).Warn("skipping unreadable file")
			res.Failures = append(res.Failures, f)
		}
	}

	if !res.Cached {
		res.Catalog = merge(ents, tags)
		for _, name := range res.Catalog.Unresolved {
			log.WithField("record", name).Debug("item has no display tag, using record path")
		}
		if o.CacheDir != "" && !archiveFailed {
			storeSnapshot(o.CacheDir, src, res.Catalog, log)
		}
	}

	for _, c := range chars {
		if c != nil {
			res.Characters = append(res.Characters, c)
		}
	}
	res.Stash, res.HardcoreStash = stashs[0], stashs[1]
	return res, nil
}

// merge folds per-file results into one catalog in input order.
func merge(ents []*arz.Entities, tags []map[string]string) *catalog.Catalog {
	cat := catalog.New()
	for _, e := range ents {
		cat.MergeEntities(e)
	}
	for _, t := range tags {
		cat.MergeTags(t)
	}
	return cat
}
