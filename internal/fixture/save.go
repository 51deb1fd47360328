package fixture

import "github.com/bsm/gdstash/save"

// Character encodes c as a character save. Flag fields are written so they
// decode to the same truth value; unnamed bytes are arbitrary.
func Character(c *save.Character) ([]byte, error) {
	return Encrypt(func(e *Encoder) {
		e.Int(save.CharacterMagic)
		e.Int(save.CharacterVersion)
		e.WideString(c.Name)
		e.Bool(c.Male)
		e.String(c.Class)
		e.Int(c.Level)
		e.Bool(c.Hardcore)
		e.Bool(c.Expansion)
		e.Next(0)
		e.Int(8)
		e.Any(len(c.UID))

		e.Begin(1)
		e.Int(5)
		e.Any(4)
		e.Int(c.Money)
		e.Any(1)
		e.Int(c.Tribute)
		e.Any(4)
		e.String(c.Texture)
		e.Int(39)
		e.Any(39)
		e.End()

		e.Begin(2)
		e.Int(8)
		e.Any(44)
		e.End()

		inv := &c.Inventory
		e.Begin(3)
		e.Int(4)
		e.Bool(inv.Flag)
		e.Int(uint32(len(inv.Bags)))
		e.Int(inv.Focused)
		e.Int(inv.Selected)
		for _, bag := range inv.Bags {
			e.Begin(0)
			e.Bool(bag.Flag)
			e.stashItems(bag.Items)
			e.End()
		}
		e.Bool(inv.UseAlternate)
		e.equipment(inv.Equipment[:])
		e.Bool(inv.Alternate1)
		e.equipment(inv.WeaponSet1[:])
		e.Bool(inv.Alternate2)
		e.equipment(inv.WeaponSet2[:])
		e.End()

		e.Begin(4)
		e.Int(6)
		e.tabs(c.Stash)
		e.End()
	})
}

// Stash encodes s as a stash file.
func Stash(s *save.Stash) ([]byte, error) {
	return Encrypt(func(e *Encoder) {
		e.Int(save.StashFileVersion)
		e.Begin(18)
		e.Int(s.Version)
		e.Next(0)
		e.String(s.Mod)
		if s.Version >= 5 {
			e.Bool(s.Expansion)
		}
		e.tabs(s.Tabs)
		e.End()
	})
}

// Item writes the fields of one item.
func (e *Encoder) Item(it *save.Item) {
	e.String(it.BaseName)
	e.String(it.PrefixName)
	e.String(it.SuffixName)
	e.String(it.ModifierName)
	e.String(it.TransmuteName)
	e.Int(it.Seed)
	e.String(it.ComponentName)
	e.String(it.RelicBonus)
	e.Int(it.RelicSeed)
	e.String(it.AugmentName)
	e.Int(it.Unknown)
	e.Int(it.AugmentSeed)
	e.Int(it.Combines)
	e.Int(it.StackCount)
}

func (e *Encoder) stashItems(items []save.StashItem) {
	e.Int(uint32(len(items)))
	for i := range items {
		e.Item(&items[i].Item)
		e.Int(items[i].X)
		e.Int(items[i].Y)
	}
}

func (e *Encoder) equipment(slots []save.Equipment) {
	for i := range slots {
		e.Item(&slots[i].Item)
		e.Bool(slots[i].Attached)
	}
}

func (e *Encoder) tabs(tabs []save.Tab) {
	e.Int(uint32(len(tabs)))
	for _, t := range tabs {
		e.Begin(0)
		e.Int(t.Width)
		e.Int(t.Height)
		e.stashItems(t.Items)
		e.End()
	}
}
