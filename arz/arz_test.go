package arz_test

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"

	"github.com/bsm/gdstash/arz"
	"github.com/bsm/gdstash/cursor"
	"github.com/bsm/gdstash/internal/fixture"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Database", func() {
	ctx := context.Background()

	boots := fixture.ArzRecord{
		Path:     "records/items/gearfeet/c01_feet.dbr",
		Type:     "ArmorProtective_Feet",
		Compress: true,
		Fields: []fixture.ArzField{
			fixture.Float("defensiveProtection", 12.5),
			fixture.Str("itemNameTag", "tagBootsOfSwiftness"),
			fixture.Int("itemLevel", 42),
			fixture.Str("itemClassification", "Rare"),
			fixture.Str("bitmap", "items/gearfeet/bitmaps/c01.tex"),
		},
	}
	fox := fixture.ArzRecord{
		Path: "records/items/lootaffixes/suffix/b_fox.dbr",
		Type: "LootRandomizer",
		Fields: []fixture.ArzField{
			fixture.Str("lootRandomizerName", "tagSuffixFox"),
			fixture.Str("itemClassification", "Magical"),
		},
	}

	decode := func(records ...fixture.ArzRecord) (*arz.Entities, error) {
		buf, err := fixture.ARZ(records...)
		Expect(err).NotTo(HaveOccurred())

		db, err := arz.Parse(buf)
		if err != nil {
			return nil, err
		}
		return db.Entities(ctx, nil)
	}

	It("should parse tables", func() {
		buf, err := fixture.ARZ(boots, fox)
		Expect(err).NotTo(HaveOccurred())

		db, err := arz.Parse(buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(db.Header.RecordsCount).To(Equal(uint32(2)))
		Expect(db.Records).To(HaveLen(2))
		Expect(db.Records[0].Type).To(Equal("ArmorProtective_Feet"))
		Expect(db.Records[1].Type).To(Equal("LootRandomizer"))
		Expect(db.Path(db.Records[1])).To(Equal(fox.Path))
		Expect(db.Strings).To(ContainElement("tagSuffixFox"))

		fields, err := db.Fields(db.Records[0])
		Expect(err).NotTo(HaveOccurred())
		Expect(fields).To(HaveLen(5))
		Expect(fields[0].Key).To(Equal("defensiveProtection"))
		Expect(fields[0].Values[0].Float).To(Equal(float32(12.5)))
		Expect(fields[2].Values[0].String()).To(Equal("42"))
		Expect(fields[4].Values[0].Str).To(Equal("items/gearfeet/bitmaps/c01.tex"))
	})

	It("should reject bad headers", func() {
		buf, err := fixture.ARZWithHeader(fixture.ArzHeader{Reserved: 1, Version: 3}, boots)
		Expect(err).NotTo(HaveOccurred())
		_, err = arz.Parse(buf)
		Expect(errors.Is(err, arz.ErrBadHeader)).To(BeTrue())

		buf, err = fixture.ARZWithHeader(fixture.ArzHeader{Reserved: 2, Version: 4}, boots)
		Expect(err).NotTo(HaveOccurred())
		_, err = arz.Parse(buf)
		Expect(errors.Is(err, arz.ErrBadVersion)).To(BeTrue())
	})

	It("should reject truncated tables", func() {
		buf, err := fixture.ARZ(boots, fox)
		Expect(err).NotTo(HaveOccurred())

		_, err = arz.Parse(buf[:len(buf)-3])
		Expect(err).To(HaveOccurred())
	})

	It("should reject record counts beyond the buffer", func() {
		buf := make([]byte, 0, 24)
		buf = binary.LittleEndian.AppendUint16(buf, arz.Reserved)
		buf = binary.LittleEndian.AppendUint16(buf, arz.Version)
		for _, v := range []uint32{24, 0, 0xFFFFFFF0, 24, 0} {
			buf = binary.LittleEndian.AppendUint32(buf, v)
		}

		_, err := arz.Parse(buf)
		Expect(errors.Is(err, cursor.ErrShortBuffer)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("arz: record table")))
	})

	It("should decode items and affixes", func() {
		ents, err := decode(boots, fox)
		Expect(err).NotTo(HaveOccurred())

		Expect(ents.Items).To(Equal(map[string]arz.Item{
			boots.Path: {Record: boots.Path, Tag: "tagBootsOfSwiftness", Rarity: "Rare", Level: 42, HasLevel: true},
		}))
		Expect(ents.Affixes).To(Equal(map[string]arz.Affix{
			fox.Path: {Tag: "tagSuffixFox", Rarity: "Magical"},
		}))
		Expect(ents.Unresolved).To(BeEmpty())
	})

	It("should drop denied item types", func() {
		formula := fixture.ArzRecord{
			Path:   "records/items/crafting/blueprints/set_formula.dbr",
			Type:   "ItemRandomSetFormula",
			Fields: []fixture.ArzField{fixture.Str("itemNameTag", "tagFormula")},
		}
		ents, err := decode(formula, boots)
		Expect(err).NotTo(HaveOccurred())
		Expect(ents.Items).NotTo(HaveKey(formula.Path))
		Expect(ents.Items).To(HaveKey(boots.Path))
	})

	It("should drop denied paths", func() {
		gear := fixture.ArzRecord{
			Path:   "records/items/enemygear/boss_sword.dbr",
			Type:   "WeaponMelee_Sword",
			Fields: []fixture.ArzField{fixture.Str("itemNameTag", "tagBossSword")},
		}
		other := fixture.ArzRecord{
			Path:   "records/skills/playerclass01/skill.dbr",
			Type:   "Skill_Attack",
			Fields: []fixture.ArzField{fixture.Str("skillDisplayName", "tagSkill")},
		}
		table := fixture.ArzRecord{
			Path: "records/items/lootaffixes/tables/table.dbr",
			Type: "LootRandomizerTable",
		}
		ents, err := decode(gear, other, table, boots)
		Expect(err).NotTo(HaveOccurred())
		Expect(ents.Items).To(HaveLen(1))
		Expect(ents.Items).To(HaveKey(boots.Path))
		Expect(ents.Affixes).To(BeEmpty())
	})

	It("should keep story and npc gear records", func() {
		quest := fixture.ArzRecord{
			Path:   "records/storyelements/questitems/key.dbr",
			Type:   "QuestItem",
			Fields: []fixture.ArzField{fixture.Str("itemNameTag", "tagKey")},
		}
		scroll := fixture.ArzRecord{
			Path:   "records/endlessdungeon/items/scroll.dbr",
			Type:   "OneShot_Scroll",
			Fields: []fixture.ArzField{fixture.Str("description", "tagScrollDesc")},
		}
		ents, err := decode(quest, scroll)
		Expect(err).NotTo(HaveOccurred())
		Expect(ents.Items[quest.Path].Tag).To(Equal("tagKey"))
		Expect(ents.Items[quest.Path].HasLevel).To(BeFalse())
		Expect(ents.Items[scroll.Path].Tag).To(Equal("tagScrollDesc"))
		Expect(ents.Unresolved).To(BeEmpty())
	})

	It("should fall back to the record path", func() {
		bare := fixture.ArzRecord{
			Path:   "records/items/misc/bare.dbr",
			Type:   "ItemNote",
			Fields: []fixture.ArzField{fixture.Int("itemLevel", 1)},
		}
		ents, err := decode(bare)
		Expect(err).NotTo(HaveOccurred())
		Expect(ents.Items[bare.Path]).To(Equal(arz.Item{Record: bare.Path, Tag: bare.Path, Level: 1, HasLevel: true}))
		Expect(ents.Unresolved).To(ConsistOf(bare.Path))
	})

	It("should default affix rarity to empty", func() {
		plain := fixture.ArzRecord{
			Path:   "records/items/lootaffixes/prefix/a_plain.dbr",
			Type:   "LootRandomizer",
			Fields: []fixture.ArzField{fixture.Str("lootRandomizerName", "tagPlain")},
		}
		ents, err := decode(plain)
		Expect(err).NotTo(HaveOccurred())
		Expect(ents.Affixes[plain.Path]).To(Equal(arz.Affix{Tag: "tagPlain"}))
	})

	It("should stop scanning once attributes are known", func() {
		rec := fixture.ArzRecord{
			Path: "records/items/gearhead/c02_head.dbr",
			Type: "ArmorProtective_Head",
			Fields: []fixture.ArzField{
				fixture.Str("itemNameTag", "tagHelm"),
				fixture.Int("itemLevel", 7),
				fixture.Str("itemClassification", "Epic"),
				fixture.Broken(),
			},
		}
		ents, err := decode(rec)
		Expect(err).NotTo(HaveOccurred())
		Expect(ents.Items[rec.Path]).To(Equal(arz.Item{Record: rec.Path, Tag: "tagHelm", Rarity: "Epic", Level: 7, HasLevel: true}))

		affix := fixture.ArzRecord{
			Path: "records/items/lootaffixes/prefix/a_fiery.dbr",
			Type: "LootRandomizer",
			Fields: []fixture.ArzField{
				fixture.Str("itemClassification", "Magical"),
				fixture.Str("lootRandomizerName", "tagFiery"),
				fixture.Broken(),
			},
		}
		ents, err = decode(affix)
		Expect(err).NotTo(HaveOccurred())
		Expect(ents.Affixes[affix.Path].Tag).To(Equal("tagFiery"))
	})

	It("should fail on bad string indexes before completion", func() {
		rec := fixture.ArzRecord{
			Path: "records/items/gearhead/c03_head.dbr",
			Type: "ArmorProtective_Head",
			Fields: []fixture.ArzField{
				fixture.Str("itemNameTag", "tagHelm"),
				fixture.Broken(),
				fixture.Int("itemLevel", 7),
			},
		}
		_, err := decode(rec, boots)
		Expect(err).To(MatchError(ContainSubstring("string index out of range")))
	})

	It("should load from disk", func() {
		dir, err := os.MkdirTemp("", "arz-test")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		buf, err := fixture.ARZ(boots, fox)
		Expect(err).NotTo(HaveOccurred())
		path := filepath.Join(dir, "database.arz")
		Expect(os.WriteFile(path, buf, 0o644)).To(Succeed())

		ents, err := arz.Load(ctx, path, &arz.Options{Concurrency: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(ents.Items).To(HaveLen(1))
		Expect(ents.Affixes).To(HaveLen(1))

		_, err = arz.Load(ctx, filepath.Join(dir, "missing.arz"), nil)
		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
	})
})

var _ = Describe("Filter", func() {
	f := &arz.DefaultFilter

	It("should classify type tags", func() {
		Expect(f.Type("LootRandomizer")).To(Equal(arz.CategoryAffix))
		Expect(f.Type("LootRandomizerTable")).To(Equal(arz.CategoryNone))
		Expect(f.Type("WeaponMelee_Axe")).To(Equal(arz.CategoryItem))
		Expect(f.Type("ItemRelic")).To(Equal(arz.CategoryItem))
		Expect(f.Type("ItemRandomSetFormula")).To(Equal(arz.CategoryNone))
		Expect(f.Type("Skill_Buff")).To(Equal(arz.CategoryNone))
		Expect(f.Type("")).To(Equal(arz.CategoryNone))
	})

	It("should select paths", func() {
		Expect(f.Path("records/items/gearfeet/a.dbr")).To(BeTrue())
		Expect(f.Path("records/creatures/npcs/npcgear/a.dbr")).To(BeTrue())
		Expect(f.Path("records/items/enemygear/a.dbr")).To(BeFalse())
		Expect(f.Path("records/items/transmutes/a.dbr")).To(BeFalse())
		Expect(f.Path("records/creatures/enemies/a.dbr")).To(BeFalse())
	})
})
