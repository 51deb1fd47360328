package catalog_test

import (
	"github.com/bsm/gdstash/arz"
	"github.com/bsm/gdstash/catalog"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Catalog", func() {
	var subject *catalog.Catalog

	BeforeEach(func() {
		subject = catalog.New()
	})

	It("should merge entities, later wins", func() {
		subject.MergeEntities(&arz.Entities{
			Items: map[string]arz.Item{
				"records/items/a.dbr": {Record: "records/items/a.dbr", Tag: "tagA", Rarity: "Common"},
				"records/items/b.dbr": {Record: "records/items/b.dbr", Tag: "tagB"},
			},
			Affixes:    map[string]arz.Affix{"records/items/lootaffixes/x.dbr": {Tag: "tagX"}},
			Unresolved: []string{"records/items/c.dbr"},
		})
		subject.MergeEntities(&arz.Entities{
			Items: map[string]arz.Item{
				"records/items/a.dbr": {Record: "records/items/a.dbr", Tag: "tagA2", Rarity: "Epic"},
			},
		})
		subject.MergeEntities(nil)

		Expect(subject.Items).To(HaveLen(2))
		Expect(subject.Items).To(HaveKeyWithValue("records/items/a.dbr", arz.Item{Record: "records/items/a.dbr", Tag: "tagA2", Rarity: "Epic"}))
		Expect(subject.Affixes).To(HaveKeyWithValue("records/items/lootaffixes/x.dbr", arz.Affix{Tag: "tagX"}))
		Expect(subject.Unresolved).To(Equal([]string{"records/items/c.dbr"}))

		_, ok := subject.Affix("records/items/lootaffixes/y.dbr")
		Expect(ok).To(BeFalse())
	})

	It("should merge tags, later wins", func() {
		subject.MergeTags(map[string]string{"tagA": "Alpha", "tagB": "Beta"})
		subject.MergeTags(map[string]string{"tagA": "Alpha Prime"})

		s, ok := subject.Tag("tagA")
		Expect(ok).To(BeTrue())
		Expect(s).To(Equal("Alpha Prime"))
		Expect(subject.Tags).To(HaveKeyWithValue("tagB", "Beta"))
		Expect(subject.Len()).To(Equal(2))
	})
})
