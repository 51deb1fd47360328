package arz

import "strings"

// Category classifies a record by its type tag.
type Category int

// Record categories.
const (
	CategoryNone Category = iota
	CategoryItem
	CategoryAffix
)

func (c Category) String() string {
	switch c {
	case CategoryItem:
		return "item"
	case CategoryAffix:
		return "affix"
	default:
		return "none"
	}
}

// Filter selects the records worth decoding.
type Filter struct {
	// TypePrefixes select item records by type tag prefix.
	TypePrefixes []string
	// AffixType is the exact type tag of affix records.
	AffixType string
	// DeniedItemTypes drops "Item"-prefixed type tags exactly.
	DeniedItemTypes []string
	// PathPrefixes select records by path prefix.
	PathPrefixes []string
	// DeniedPaths drops records whose path starts with one of these.
	DeniedPaths []string
}

// DefaultFilter selects equipment, consumables, quest items and affixes
// that can end up in a player's inventory.
var DefaultFilter = Filter{
	TypePrefixes: []string{"Armor", "Item", "Weapon", "QuestItem", "OneShot_Scroll"},
	AffixType:    "LootRandomizer",
	DeniedItemTypes: []string{
		"ItemRandomSetFormula",
		"ItemTransmuter",
		"ItemTransmuterSet",
		"ItemDifficultyUnlock",
		"ItemAttributeReset",
		"ItemDevotionReset",
	},
	PathPrefixes: []string{
		"records/items/",
		"records/creatures/npcs/npcgear/",
		"records/storyelements/",
		"records/endlessdungeon/",
	},
	DeniedPaths: []string{
		"records/items/enemygear/",
		"records/items/transmutes/",
		"records/items/lootaffixes/crafting/",
		"records/items/lootaffixes/unique/",
	},
}

// Type classifies a record type tag.
func (f *Filter) Type(tag string) Category {
	if tag == f.AffixType {
		return CategoryAffix
	}
	if !hasAnyPrefix(tag, f.TypePrefixes) {
		return CategoryNone
	}
	if strings.HasPrefix(tag, "Item") {
		for _, t := range f.DeniedItemTypes {
			if tag == t {
				return CategoryNone
			}
		}
	}
	return CategoryItem
}

// Path reports whether a record path is selected.
func (f *Filter) Path(path string) bool {
	return hasAnyPrefix(path, f.PathPrefixes) && !hasAnyPrefix(path, f.DeniedPaths)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
