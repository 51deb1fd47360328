// Package catalog holds the merged, read-only lookup maps that search runs
// against.
package catalog

import "github.com/bsm/gdstash/arz"

// Catalog maps record paths to items and affixes, and display tags to
// localized text. It is built by merging per-file results and must not be
// modified once searches start.
type Catalog struct {
	Items   map[string]arz.Item
	Affixes map[string]arz.Affix
	Tags    map[string]string

	// Unresolved lists item records that fell back to their own path.
	Unresolved []string
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		Items:   make(map[string]arz.Item),
		Affixes: make(map[string]arz.Affix),
		Tags:    make(map[string]string),
	}
}

// MergeEntities adds the entities of one database. Entries already present
// are overwritten.
func (c *Catalog) MergeEntities(ents *arz.Entities) {
	if ents == nil {
		return
	}
	for k, v := range ents.Items {
		c.Items[k] = v
	}
	for k, v := range ents.Affixes {
		c.Affixes[k] = v
	}
	c.Unresolved = append(c.Unresolved, ents.Unresolved...)
}

// MergeTags adds the tags of one localization archive. Entries already
// present are overwritten.
func (c *Catalog) MergeTags(tags map[string]string) {
	for k, v := range tags {
		c.Tags[k] = v
	}
}

// Item returns the item stored under a record path.
func (c *Catalog) Item(record string) (arz.Item, bool) {
	it, ok := c.Items[record]
	return it, ok
}

// Affix returns the affix stored under a record path.
func (c *Catalog) Affix(record string) (arz.Affix, bool) {
	a, ok := c.Affixes[record]
	return a, ok
}

// Tag returns the localized text of a display tag.
func (c *Catalog) Tag(tag string) (string, bool) {
	s, ok := c.Tags[tag]
	return s, ok
}

// Len returns the total number of entries.
func (c *Catalog) Len() int {
	return len(c.Items) + len(c.Affixes) + len(c.Tags)
}
