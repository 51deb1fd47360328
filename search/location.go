package search

import (
	"strconv"

	"github.com/bsm/gdstash/save"
)

// StashLocations returns one location per stash tab. Hardcore stashes are
// labeled separately.
func StashLocations(s *save.Stash, hardcore bool) []Location {
	label := "Shared stash tab "
	if hardcore {
		label = "Hardcore stash tab "
	}

	locs := make([]Location, 0, len(s.Tabs))
	for i, t := range s.Tabs {
		locs = append(locs, Location{Name: label + strconv.Itoa(i+1), Items: stashItems(t.Items)})
	}
	return locs
}

// CharacterLocations returns the bags, personal stash tabs and equipped
// items of a character.
func CharacterLocations(c *save.Character) []Location {
	var locs []Location
	for i, b := range c.Inventory.Bags {
		locs = append(locs, Location{Name: c.Name + " bag " + strconv.Itoa(i+1), Items: stashItems(b.Items)})
	}
	for i, t := range c.Stash {
		locs = append(locs, Location{Name: c.Name + " stash tab " + strconv.Itoa(i+1), Items: stashItems(t.Items)})
	}
	locs = append(locs, Location{Name: "Equipped by " + c.Name, Items: c.Inventory.Equipped()})
	return locs
}

func stashItems(items []save.StashItem) []save.Item {
	out := make([]save.Item, 0, len(items))
	for _, it := range items {
		out = append(out, it.Item)
	}
	return out
}
