package arc_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"

	"github.com/bsm/gdstash/arc"
	"github.com/bsm/gdstash/cursor"
	"github.com/bsm/gdstash/internal/fixture"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Archive", func() {
	manifest := []byte("tagBoots=Boots of Swiftness\r\n#tagOld=Old\n\ntagFox=of the Fox\nbroken line\n")
	long := bytes.Repeat([]byte("tagFiller=Lorem ipsum dolor sit amet\n"), 200)

	build := func(files ...fixture.ArcFile) *arc.Archive {
		buf, err := fixture.ARC(arc.Version, files...)
		Expect(err).NotTo(HaveOccurred())
		a, err := arc.Parse(buf)
		Expect(err).NotTo(HaveOccurred())
		return a
	}

	It("should parse tables", func() {
		a := build(
			fixture.ArcFile{Name: "ui.txt", Data: []byte("tagMenu=Menu\n")},
			fixture.ArcFile{Name: "tags_items.txt", Data: manifest, Parts: 2},
		)
		Expect(a.Header.Version).To(Equal(uint32(3)))
		Expect(a.Header.FileCount).To(Equal(uint32(2)))
		Expect(a.Names).To(Equal([]string{"ui.txt", "tags_items.txt"}))
		Expect(a.Parts).To(HaveLen(3))
		Expect(a.Records).To(HaveLen(2))
		Expect(a.Records[1].FirstPart).To(Equal(uint32(1)))
		Expect(a.Records[1].PartCount).To(Equal(uint32(2)))
		Expect(a.Index("tags_items.txt")).To(Equal(1))
		Expect(a.Index("missing.txt")).To(Equal(-1))
	})

	It("should reject unsupported versions", func() {
		buf, err := fixture.ARC(2, fixture.ArcFile{Name: "tags_items.txt", Data: manifest})
		Expect(err).NotTo(HaveOccurred())

		// tables are not read, so truncation is never reached
		_, err = arc.Parse(buf[:28])
		Expect(errors.Is(err, arc.ErrBadVersion)).To(BeTrue())
	})

	It("should reject truncated archives", func() {
		buf, err := fixture.ARC(arc.Version, fixture.ArcFile{Name: "tags_items.txt", Data: manifest})
		Expect(err).NotTo(HaveOccurred())

		_, err = arc.Parse(buf[:20])
		Expect(err).To(MatchError(ContainSubstring("arc: header")))
		_, err = arc.Parse(buf[:len(buf)-1])
		Expect(err).To(MatchError(ContainSubstring("arc: record table")))
	})

	It("should reject file counts beyond the buffer", func() {
		var buf []byte
		for _, v := range []uint32{0, arc.Version, 0xFFFFFFF0, 0, 0, 0, 28} {
			buf = binary.LittleEndian.AppendUint32(buf, v)
		}

		_, err := arc.Parse(buf)
		Expect(errors.Is(err, cursor.ErrShortBuffer)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("arc: name table")))
	})

	It("should read raw payloads", func() {
		a := build(fixture.ArcFile{Name: "tags_items.txt", Data: manifest})
		data, err := a.Payload("tags_items.txt")
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(manifest))

		_, err = a.Payload("nope.txt")
		Expect(errors.Is(err, arc.ErrNotFound)).To(BeTrue())
	})

	It("should read compressed multi-part payloads", func() {
		a := build(
			fixture.ArcFile{Name: "a.txt", Data: []byte("x=1\n")},
			fixture.ArcFile{Name: "tagsgdx1_items.txt", Data: long, Compress: true, Parts: 3},
		)
		Expect(a.Parts).To(HaveLen(4))
		Expect(a.Parts[1].Compressed).To(BeNumerically("<", a.Parts[1].Decompressed))

		data, err := a.Payload("tagsgdx1_items.txt")
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(long))
	})

	It("should read empty payloads", func() {
		a := build(fixture.ArcFile{Name: "tags_items.txt"})
		data, err := a.Payload("tags_items.txt")
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(BeEmpty())
	})

	It("should decode tags", func() {
		a := build(
			fixture.ArcFile{Name: "ui.txt", Data: []byte("tagMenu=Menu\n")},
			fixture.ArcFile{Name: "tags_items.txt", Data: manifest, Compress: true},
		)
		name, ok := a.Manifest()
		Expect(ok).To(BeTrue())
		Expect(name).To(Equal("tags_items.txt"))

		tags, err := a.Tags()
		Expect(err).NotTo(HaveOccurred())
		Expect(tags).To(Equal(map[string]string{
			"tagBoots": "Boots of Swiftness",
			"tagFox":   "of the Fox",
		}))
	})

	It("should find expansion manifests", func() {
		a := build(fixture.ArcFile{Name: "tagsgdx2_items.txt", Data: []byte("tagX=X\n")})
		tags, err := a.Tags()
		Expect(err).NotTo(HaveOccurred())
		Expect(tags).To(HaveKeyWithValue("tagX", "X"))
	})

	It("should fail without manifests", func() {
		a := build(fixture.ArcFile{Name: "ui.txt", Data: []byte("tagMenu=Menu\n")})
		_, err := a.Tags()
		Expect(err).To(MatchError(arc.ErrNoManifest))
	})

	It("should load tags from disk", func() {
		dir, err := os.MkdirTemp("", "arc-test")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		buf, err := fixture.ARC(arc.Version, fixture.ArcFile{Name: "tags_items.txt", Data: manifest})
		Expect(err).NotTo(HaveOccurred())
		path := filepath.Join(dir, "items.arc")
		Expect(os.WriteFile(path, buf, 0o644)).To(Succeed())

		tags, err := arc.LoadTags(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(tags).To(HaveLen(2))

		_, err = arc.LoadTags(filepath.Join(dir, "missing.arc"))
		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
	})
})

var _ = Describe("ParseTags", func() {
	It("should parse key/value lines", func() {
		tags := make(map[string]string)
		Expect(arc.ParseTags([]byte("a=1\nb=2\n#c\n\n"), tags)).To(Equal(0))
		Expect(tags).To(Equal(map[string]string{"a": "1", "b": "2"}))
	})

	It("should split on the first separator", func() {
		tags := make(map[string]string)
		arc.ParseTags([]byte("a=b=c\nd=\n"), tags)
		Expect(tags).To(Equal(map[string]string{"a": "b=c", "d": ""}))
	})

	It("should count malformed lines", func() {
		tags := map[string]string{"a": "0"}
		Expect(arc.ParseTags([]byte("junk\r\na=1\r\nmore junk"), tags)).To(Equal(2))
		Expect(tags).To(Equal(map[string]string{"a": "1"}))
	})
})
