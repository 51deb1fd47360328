package save

// Item is an inventory item reference. Names are database record paths.
type Item struct {
	BaseName      string
	PrefixName    string
	SuffixName    string
	ModifierName  string
	TransmuteName string
	Seed          uint32

	ComponentName string
	RelicBonus    string
	RelicSeed     uint32

	AugmentName string
	Unknown     uint32
	AugmentSeed uint32

	Combines   uint32
	StackCount uint32
}

// StashItem is an item placed on a grid.
type StashItem struct {
	Item
	X, Y uint32
}

// Equipment is an item occupying an equipment slot.
type Equipment struct {
	Item
	Attached bool
}

// Bag is one inventory bag.
type Bag struct {
	Flag  bool
	Items []StashItem
}

// EquipmentSlots is the number of regular equipment slots.
const EquipmentSlots = 12

// Inventory is a character's carried and equipped items.
type Inventory struct {
	Flag     bool
	Focused  uint32
	Selected uint32
	Bags     []Bag

	UseAlternate bool
	Equipment    [EquipmentSlots]Equipment
	Alternate1   bool
	WeaponSet1   [2]Equipment
	Alternate2   bool
	WeaponSet2   [2]Equipment
}

// Equipped returns the items of every occupied equipment and weapon slot.
func (inv *Inventory) Equipped() []Item {
	var items []Item
	for _, set := range [][]Equipment{inv.Equipment[:], inv.WeaponSet1[:], inv.WeaponSet2[:]} {
		for _, e := range set {
			if e.BaseName != "" {
				items = append(items, e.Item)
			}
		}
	}
	return items
}

// Tab is one stash page.
type Tab struct {
	Width  uint32
	Height uint32
	Items  []StashItem
}

// Character is a decoded character save.
type Character struct {
	Name      string
	Male      bool
	Class     string
	Level     uint32
	Hardcore  bool
	Expansion bool
	UID       [16]byte

	Money   uint32
	Tribute uint32
	Texture string

	Inventory Inventory
	Stash     []Tab
}

// Stash is a decoded shared stash file.
type Stash struct {
	Version   uint32
	Mod       string
	Expansion bool
	Tabs      []Tab
}
