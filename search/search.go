// Package search resolves inventory items against a catalog and finds the
// ones whose display name contains a search term.
package search

import (
	"context"
	"runtime"
	"strconv"
	"strings"

	"github.com/bsm/gdstash/catalog"
	"github.com/bsm/gdstash/save"
	"golang.org/x/sync/errgroup"
)

// colorCode prefixes some localized names.
const colorCode = "^k"

// Match is a resolved inventory item.
type Match struct {
	Name     string
	Prefix   string
	Suffix   string
	Level    uint32
	HasLevel bool
	Quantity uint32
	Rarity   string
}

// String formats m as "[lvl N] (xQ) Prefix Name Suffix", omitting absent
// parts. The quantity is only shown for stacks.
func (m Match) String() string {
	parts := make([]string, 0, 5)
	if m.HasLevel {
		parts = append(parts, "[lvl "+strconv.FormatUint(uint64(m.Level), 10)+"]")
	}
	if m.Quantity > 1 {
		parts = append(parts, "(x"+strconv.FormatUint(uint64(m.Quantity), 10)+")")
	}
	for _, s := range []string{m.Prefix, m.Name, m.Suffix} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Location is a named group of items, such as a stash tab or a bag.
type Location struct {
	Name  string
	Items []save.Item
}

// Result lists the matches found in one location.
type Result struct {
	Location string
	Matches  []Match
}

// Results are the outcome of a search.
type Results struct {
	// Found holds one entry per location with at least one match, in
	// location order.
	Found []Result
	// Unresolved lists base records that could not be resolved to a name.
	Unresolved []string
}

// Index resolves items against a read-only catalog. It is safe for
// concurrent use.
type Index struct {
	cat *catalog.Catalog
}

// NewIndex wraps a catalog.
func NewIndex(cat *catalog.Catalog) *Index {
	return &Index{cat: cat}
}

// Resolve looks up the display name of an item and its affixes. It returns
// false when the base record or its tag is unknown.
func (x *Index) Resolve(it save.Item) (Match, bool) {
	base, ok := x.cat.Item(it.BaseName)
	if !ok {
		return Match{}, false
	}
	name, ok := x.cat.Tag(base.Tag)
	if !ok {
		return Match{}, false
	}

	return Match{
		Name:     strings.TrimPrefix(name, colorCode),
		Prefix:   x.affix(it.PrefixName),
		Suffix:   x.affix(it.SuffixName),
		Level:    base.Level,
		HasLevel: base.HasLevel,
		Quantity: it.StackCount,
		Rarity:   base.Rarity,
	}, true
}

func (x *Index) affix(record string) string {
	if record == "" {
		return ""
	}
	a, ok := x.cat.Affix(record)
	if !ok {
		return ""
	}
	if a.Name != "" {
		return a.Name
	}
	s, _ := x.cat.Tag(a.Tag)
	return s
}

// Search runs one task per location, at most concurrency at a time, and
// collects the items whose formatted name contains term, ignoring case.
func (x *Index) Search(ctx context.Context, term string, locs []Location, concurrency int) (*Results, error) {
	if concurrency < 1 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	term = strings.ToLower(term)

	type slot struct {
		matches    []Match
		unresolved []string
	}
	out := make([]slot, len(locs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range locs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, it := range locs[i].Items {
				m, ok := x.Resolve(it)
				if !ok {
					if it.BaseName != "" {
						out[i].unresolved = append(out[i].unresolved, it.BaseName)
					}
					continue
				}
				if strings.Contains(strings.ToLower(m.String()), term) {
					out[i].matches = append(out[i].matches, m)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := new(Results)
	seen := make(map[string]struct{})
	for i, s := range out {
		if len(s.matches) != 0 {
			res.Found = append(res.Found, Result{Location: locs[i].Name, Matches: s.matches})
		}
		for _, name := range s.unresolved {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				res.Unresolved = append(res.Unresolved, name)
			}
		}
	}
	return res, nil
}
