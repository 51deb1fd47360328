package save

import (
	"os"

	"github.com/pkg/errors"
)

// Character save constants.
const (
	CharacterMagic   = 0x58434447
	CharacterVersion = 2

	dataVersion      = 8
	infoVersion      = 5
	bioVersion       = 8
	bioSize          = 44
	inventoryVersion = 4
	charStashVersion = 6
)

// Block tags of a character save.
const (
	tagInfo      = 1
	tagBio       = 2
	tagInventory = 3
	tagCharStash = 4
	tagBag       = 0
)

// ReadCharacter reads and decodes the character save at path.
func ReadCharacter(path string, o *Options) (*Character, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := DecodeCharacter(buf, o)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return c, nil
}

// DecodeCharacter decodes a character save held in memory.
func DecodeCharacter(buf []byte, o *Options) (*Character, error) {
	d, err := newDecoder(buf, o)
	if err != nil {
		return nil, err
	}

	if magic := d.int(); d.err == nil && magic != CharacterMagic {
		return nil, errors.Wrapf(ErrBadMagic, "got %#x", magic)
	}
	d.expect("character", CharacterVersion)

	c := new(Character)
	c.Name = d.wide()
	c.Male = d.bool()
	c.Class = d.str()
	c.Level = d.int()
	c.Hardcore = d.bool()
	c.Expansion = d.bool()
	if z := d.next(); d.err == nil && z != 0 {
		d.fail(errors.Errorf("save: expected header terminator, got %#x", z))
	}
	d.expect("data", dataVersion)
	for i := range c.UID {
		c.UID[i] = d.byte()
	}

	d.readInfo(c)
	d.readBio()
	d.readInventory(&c.Inventory)

	d.begin(tagCharStash)
	d.expect("character stash", charStashVersion)
	c.Stash = d.tabs()
	d.end()

	if err := d.done(); err != nil {
		return nil, err
	}
	return c, nil
}

func (d *decoder) readInfo(c *Character) {
	d.begin(tagInfo)
	d.expect("info", infoVersion)
	d.skip(4) // quest and difficulty flags
	c.Money = d.int()
	d.skip(1)
	c.Tribute = d.int()
	d.skip(4) // compass and weapon swap flags
	c.Texture = d.str()
	if n := d.int(); n != 0 {
		d.skip(int(n))
	}
	d.end()
}

func (d *decoder) readBio() {
	d.begin(tagBio)
	d.expect("bio", bioVersion)
	d.skip(bioSize)
	d.end()
}

func (d *decoder) readInventory(inv *Inventory) {
	d.begin(tagInventory)
	d.expect("inventory", inventoryVersion)

	inv.Flag = d.bool()
	if d.err == nil && !inv.Flag {
		d.fail(ErrInventoryFlag)
		return
	}

	n := d.int()
	inv.Focused = d.int()
	inv.Selected = d.int()
	inv.Bags = make([]Bag, 0, capHint(n))
	for i := uint32(0); i < n && d.err == nil; i++ {
		d.begin(tagBag)
		bag := Bag{Flag: d.bool()}
		bag.Items = d.stashItems()
		d.end()
		inv.Bags = append(inv.Bags, bag)
	}

	inv.UseAlternate = d.bool()
	for i := range inv.Equipment {
		inv.Equipment[i] = d.equipment()
	}
	inv.Alternate1 = d.bool()
	for i := range inv.WeaponSet1 {
		inv.WeaponSet1[i] = d.equipment()
	}
	inv.Alternate2 = d.bool()
	for i := range inv.WeaponSet2 {
		inv.WeaponSet2[i] = d.equipment()
	}
	d.end()
}

func (d *decoder) equipment() Equipment {
	it := d.item()
	return Equipment{Item: it, Attached: d.bool()}
}
