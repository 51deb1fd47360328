package save_test

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/bsm/gdstash/crypt"
	"github.com/bsm/gdstash/internal/fixture"
	"github.com/bsm/gdstash/save"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func boots(x, y uint32) save.StashItem {
	return save.StashItem{
		Item: save.Item{
			BaseName:    "records/items/gearfeet/c01_feet.dbr",
			SuffixName:  "records/items/lootaffixes/suffix/b_fox.dbr",
			Seed:        123456,
			AugmentName: "records/items/enchants/a01.dbr",
			StackCount:  3,
		},
		X: x, Y: y,
	}
}

func equipped(base string) save.Equipment {
	return save.Equipment{Item: save.Item{BaseName: base, StackCount: 1}, Attached: true}
}

func character() *save.Character {
	c := &save.Character{
		Name:      "Ülfrida",
		Male:      true,
		Class:     "tagSkillClassName01",
		Level:     42,
		Hardcore:  true,
		Expansion: true,
		Money:     9000,
		Tribute:   17,
		Texture:   "creatures/pc/hero02.tex",
		Inventory: save.Inventory{
			Flag:     true,
			Focused:  1,
			Selected: 1,
			Bags: []save.Bag{
				{Flag: true, Items: []save.StashItem{boots(0, 0)}},
				{Flag: true},
			},
			UseAlternate: true,
			Alternate1:   true,
			Alternate2:   true,
		},
		Stash: []save.Tab{
			{Width: 10, Height: 18, Items: []save.StashItem{boots(4, 5)}},
		},
	}
	for i := range c.Inventory.Equipment {
		c.Inventory.Equipment[i].Attached = true
	}
	c.Inventory.Equipment[0] = equipped("records/items/gearhead/c02_head.dbr")
	c.Inventory.WeaponSet1 = [2]save.Equipment{equipped("records/items/gearweapons/swords1h/a01.dbr"), {Attached: true}}
	c.Inventory.WeaponSet2 = [2]save.Equipment{{Attached: true}, {Attached: true}}
	return c
}

var _ = Describe("DecodeCharacter", func() {
	It("should decode", func() {
		exp := character()
		buf, err := fixture.Character(exp)
		Expect(err).NotTo(HaveOccurred())

		act, err := save.DecodeCharacter(buf, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(act.Name).To(Equal("Ülfrida"))
		Expect(act.Male).To(BeTrue())
		Expect(act.Class).To(Equal("tagSkillClassName01"))
		Expect(act.Level).To(Equal(uint32(42)))
		Expect(act.Hardcore).To(BeTrue())
		Expect(act.Money).To(Equal(uint32(9000)))
		Expect(act.Tribute).To(Equal(uint32(17)))
		Expect(act.Texture).To(Equal("creatures/pc/hero02.tex"))

		inv := act.Inventory
		Expect(inv.Focused).To(Equal(uint32(1)))
		Expect(inv.Bags).To(HaveLen(2))
		Expect(inv.Bags[0].Items).To(Equal([]save.StashItem{boots(0, 0)}))
		Expect(inv.Bags[1].Items).To(BeEmpty())
		Expect(inv.Equipment).To(Equal(exp.Inventory.Equipment))
		Expect(inv.WeaponSet1).To(Equal(exp.Inventory.WeaponSet1))
		Expect(inv.WeaponSet2).To(Equal(exp.Inventory.WeaponSet2))
		Expect(inv.Equipped()).To(Equal([]save.Item{
			{BaseName: "records/items/gearhead/c02_head.dbr", StackCount: 1},
			{BaseName: "records/items/gearweapons/swords1h/a01.dbr", StackCount: 1},
		}))

		Expect(act.Stash).To(Equal(exp.Stash))
	})

	It("should reject bad magic", func() {
		e := fixture.NewEncoder(1)
		e.Int(0x12345678)
		e.Int(2)
		buf, err := e.Bytes()
		Expect(err).NotTo(HaveOccurred())

		_, err = save.DecodeCharacter(buf, nil)
		Expect(errors.Is(err, save.ErrBadMagic)).To(BeTrue())
	})

	It("should reject bad versions", func() {
		e := fixture.NewEncoder(1)
		e.Int(save.CharacterMagic)
		e.Int(1)
		buf, err := e.Bytes()
		Expect(err).NotTo(HaveOccurred())

		_, err = save.DecodeCharacter(buf, nil)
		Expect(errors.Is(err, save.ErrBadVersion)).To(BeTrue())
	})

	It("should reject a zero inventory flag", func() {
		c := character()
		c.Inventory.Flag = false
		buf, err := fixture.Character(c)
		Expect(err).NotTo(HaveOccurred())

		_, err = save.DecodeCharacter(buf, nil)
		Expect(errors.Is(err, save.ErrInventoryFlag)).To(BeTrue())
	})

	It("should reject truncated files", func() {
		buf, err := fixture.Character(character())
		Expect(err).NotTo(HaveOccurred())

		_, err = save.DecodeCharacter(buf[:len(buf)/2], nil)
		Expect(err).To(HaveOccurred())
		Expect(crypt.IsBlockError(err)).To(BeFalse())

		_, err = save.DecodeCharacter(buf[:3], nil)
		Expect(err).To(HaveOccurred())
	})

	It("should fail on a corrupt sentinel", func() {
		buf, err := fixture.Character(character())
		Expect(err).NotTo(HaveOccurred())
		buf[len(buf)-2] ^= 0xff

		_, err = save.DecodeCharacter(buf, nil)
		Expect(crypt.IsBlockError(err)).To(BeTrue())
	})

	It("should read from disk", func() {
		dir, err := os.MkdirTemp("", "save-test")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		buf, err := fixture.Character(character())
		Expect(err).NotTo(HaveOccurred())
		path := filepath.Join(dir, "player.gdc")
		Expect(os.WriteFile(path, buf, 0o644)).To(Succeed())

		c, err := save.ReadCharacter(path, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Name).To(Equal("Ülfrida"))

		_, err = save.ReadCharacter(filepath.Join(dir, "missing.gdc"), nil)
		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
	})
})

var _ = Describe("DecodeStash", func() {
	stash := &save.Stash{
		Version:   5,
		Mod:       "",
		Expansion: true,
		Tabs: []save.Tab{
			{Width: 8, Height: 16},
			{Width: 10, Height: 18, Items: []save.StashItem{boots(2, 3), boots(4, 3)}},
		},
	}

	// misaligned encodes a stash whose only tab carries a stray trailing int.
	misaligned := func() []byte {
		buf, err := fixture.Encrypt(func(e *fixture.Encoder) {
			e.Int(2)
			e.Begin(18)
			e.Int(5)
			e.Next(0)
			e.String("")
			e.Bool(true)
			e.Int(1)
			e.Begin(0)
			e.Int(8)
			e.Int(16)
			e.Int(0)
			e.Int(99)
			e.End()
			e.End()
		})
		Expect(err).NotTo(HaveOccurred())
		return buf
	}

	It("should decode", func() {
		buf, err := fixture.Stash(stash)
		Expect(err).NotTo(HaveOccurred())

		act, err := save.DecodeStash(buf, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(act).To(Equal(&save.Stash{
			Version:   5,
			Expansion: true,
			Tabs: []save.Tab{
				{Width: 8, Height: 16, Items: []save.StashItem{}},
				{Width: 10, Height: 18, Items: []save.StashItem{boots(2, 3), boots(4, 3)}},
			},
		}))
	})

	It("should reject bad versions", func() {
		s := *stash
		s.Version = 4
		buf, err := fixture.Stash(&s)
		Expect(err).NotTo(HaveOccurred())

		_, err = save.DecodeStash(buf, nil)
		Expect(errors.Is(err, save.ErrBadVersion)).To(BeTrue())
	})

	It("should reject unexpected blocks", func() {
		e := fixture.NewEncoder(3)
		e.Int(2)
		e.Begin(17)
		e.Int(5)
		e.End()
		buf, err := e.Bytes()
		Expect(err).NotTo(HaveOccurred())

		_, err = save.DecodeStash(buf, nil)
		Expect(errors.Is(err, save.ErrUnexpectedBlock)).To(BeTrue())
	})

	It("should fail on misaligned blocks", func() {
		_, err := save.DecodeStash(misaligned(), nil)
		Expect(crypt.IsBlockError(err)).To(BeTrue())

		var be *crypt.BlockError
		Expect(errors.As(err, &be)).To(BeTrue())
		Expect(be.Kind).To(Equal(crypt.Misaligned))
	})

	It("should skip block failures when lenient", func() {
		logger, hook := test.NewNullLogger()

		act, err := save.DecodeStash(misaligned(), &save.Options{Lenient: true, Logger: logger})
		Expect(err).NotTo(HaveOccurred())
		Expect(act.Tabs).To(HaveLen(1))
		Expect(act.Tabs[0].Width).To(Equal(uint32(8)))

		Expect(hook.Entries).To(HaveLen(2))
		Expect(hook.LastEntry().Level).To(Equal(logrus.WarnLevel))
		Expect(hook.LastEntry().Data).To(HaveKeyWithValue("tag", uint32(18)))
	})

	It("should skip bad sentinels when lenient", func() {
		buf, err := fixture.Stash(stash)
		Expect(err).NotTo(HaveOccurred())
		buf[len(buf)-1] ^= 0x80

		_, err = save.DecodeStash(buf, nil)
		Expect(crypt.IsBlockError(err)).To(BeTrue())

		logger, hook := test.NewNullLogger()
		act, err := save.DecodeStash(buf, &save.Options{Lenient: true, Logger: logger})
		Expect(err).NotTo(HaveOccurred())
		Expect(act.Tabs).To(HaveLen(2))
		Expect(hook.Entries).To(HaveLen(1))
	})

	It("should read from disk", func() {
		dir, err := os.MkdirTemp("", "save-test")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		buf, err := fixture.Stash(stash)
		Expect(err).NotTo(HaveOccurred())
		path := filepath.Join(dir, "transfer.gst")
		Expect(os.WriteFile(path, buf, 0o644)).To(Succeed())

		s, err := save.ReadStash(path, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Tabs).To(HaveLen(2))
	})
})
