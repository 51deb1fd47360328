package arz

import (
	"context"
	"os"
	"runtime"

	"github.com/bsm/gdstash/cursor"
	"github.com/bsm/gdstash/internal/block"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Expected header values.
const (
	Reserved = 2
	Version  = 3

	headerSize  = 24
	trailerSize = 8

	// index, tag length, offset, sizes and trailer of an untagged record
	minRecordSize = 4 + 4 + 3*4 + trailerSize
)

var (
	// ErrBadHeader is returned when the reserved header field is not Reserved.
	ErrBadHeader = errors.New("arz: bad header")
	// ErrBadVersion is returned when the header version is not Version.
	ErrBadVersion = errors.New("arz: unsupported database version")
)

var (
	errBadIndex    = errors.New("arz: string index out of range")
	errStringTable = errors.New("arz: string table overruns its declared size")
)

// Header is the fixed database header.
type Header struct {
	Reserved     uint16
	Version      uint16
	RecordsStart uint32
	RecordsLen   uint32
	RecordsCount uint32
	StringsStart uint32
	StringsSize  uint32
}

// RecordHeader locates one record's payload.
type RecordHeader struct {
	Index        uint32
	Type         string
	Offset       uint32
	Compressed   uint32
	Decompressed uint32
}

// Item is a decoded item record.
type Item struct {
	Record   string
	Tag      string
	Rarity   string
	Level    uint32
	HasLevel bool
}

// Affix is a decoded prefix/suffix record.
type Affix struct {
	Tag    string
	Rarity string
	// Name, when set, is shown instead of the localized Tag.
	Name string
}

// Entities are the items and affixes selected from one database, keyed by
// record path.
type Entities struct {
	Items   map[string]Item
	Affixes map[string]Affix
	// Unresolved lists item records that had neither a name tag nor a
	// description and fell back to their own path.
	Unresolved []string
}

// Options configure entity decoding.
type Options struct {
	// Filter selects records. Default: DefaultFilter.
	Filter *Filter

	// Concurrency limits parallel record decoding.
	// Default: runtime.GOMAXPROCS(0).
	Concurrency int
}

func (o *Options) norm() *Options {
	var oo Options
	if o != nil {
		oo = *o
	}

	if oo.Filter == nil {
		oo.Filter = &DefaultFilter
	}
	if oo.Concurrency < 1 {
		oo.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &oo
}

// Database is a parsed database. Strings is shared read-only by every
// record decode.
type Database struct {
	Header  Header
	Strings []string
	Records []RecordHeader

	c *cursor.Cursor
}

// Open reads and parses the database at path.
func Open(path string) (*Database, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	db, err := Parse(buf)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return db, nil
}

// Load opens the database at path and decodes its entities.
func Load(ctx context.Context, path string, o *Options) (*Entities, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	ents, err := db.Entities(ctx, o)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return ents, nil
}

// Parse parses the header, string table and record table of a database.
func Parse(buf []byte) (*Database, error) {
	c := cursor.New(buf)
	db := &Database{c: c}

	h, err := readHeader(c)
	if err != nil {
		return nil, err
	}
	db.Header = h

	if db.Strings, err = readStrings(c, h); err != nil {
		return nil, err
	}
	if db.Records, err = readRecords(c, h); err != nil {
		return nil, err
	}
	return db, nil
}

func readHeader(c *cursor.Cursor) (h Header, err error) {
	if h.Reserved, err = c.Uint16(); err != nil {
		return h, errors.Wrap(err, "arz: header")
	}
	if h.Version, err = c.Uint16(); err != nil {
		return h, errors.Wrap(err, "arz: header")
	}
	if h.Reserved != Reserved {
		return h, errors.Wrapf(ErrBadHeader, "reserved field %d", h.Reserved)
	}
	if h.Version != Version {
		return h, errors.Wrapf(ErrBadVersion, "expected %d, got %d", Version, h.Version)
	}

	for _, p := range []*uint32{&h.RecordsStart, &h.RecordsLen, &h.RecordsCount, &h.StringsStart, &h.StringsSize} {
		if *p, err = c.Uint32(); err != nil {
			return h, errors.Wrap(err, "arz: header")
		}
	}
	return h, nil
}

func readStrings(root *cursor.Cursor, h Header) ([]string, error) {
	c, err := root.At(int(h.StringsStart))
	if err != nil {
		return nil, errors.Wrap(err, "arz: string table")
	}

	end := int(h.StringsStart) + int(h.StringsSize)
	var strs []string
	for c.Offset() < end {
		n, err := c.Uint32()
		if err != nil {
			return nil, errors.Wrap(err, "arz: string table")
		}
		for i := uint32(0); i < n; i++ {
			s, err := c.LenString()
			if err != nil {
				return nil, errors.Wrapf(err, "arz: string %d", len(strs))
			}
			strs = append(strs, s)
		}
	}
	if c.Offset() != end {
		return nil, errors.Wrapf(errStringTable, "ended at %d, declared %d", c.Offset(), end)
	}
	return strs, nil
}

func readRecords(root *cursor.Cursor, h Header) ([]RecordHeader, error) {
	c, err := root.At(int(h.RecordsStart))
	if err != nil {
		return nil, errors.Wrap(err, "arz: record table")
	}
	if need := int(h.RecordsCount) * minRecordSize; c.Remaining() < need {
		return nil, errors.Wrapf(cursor.ErrShortBuffer, "arz: record table needs at least %d bytes", need)
	}

	recs := make([]RecordHeader, 0, h.RecordsCount)
	for i := uint32(0); i < h.RecordsCount; i++ {
		var r RecordHeader
		if r.Index, err = c.Uint32(); err != nil {
			return nil, errors.Wrapf(err, "arz: record %d", i)
		}
		if r.Type, err = c.LenString(); err != nil {
			return nil, errors.Wrapf(err, "arz: record %d", i)
		}
		for _, p := range []*uint32{&r.Offset, &r.Compressed, &r.Decompressed} {
			if *p, err = c.Uint32(); err != nil {
				return nil, errors.Wrapf(err, "arz: record %d", i)
			}
		}
		if err = c.Skip(trailerSize); err != nil {
			return nil, errors.Wrapf(err, "arz: record %d", i)
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// Path returns the record path of r.
func (db *Database) Path(r RecordHeader) (string, error) {
	return lookup(db.Strings, r.Index)
}

// Payload returns the expanded payload of r.
func (db *Database) Payload(r RecordHeader) ([]byte, error) {
	c, err := db.c.At(headerSize + int(r.Offset))
	if err != nil {
		return nil, errors.Wrap(err, "arz: payload")
	}
	raw, err := c.Bytes(int(r.Compressed))
	if err != nil {
		return nil, errors.Wrap(err, "arz: payload")
	}
	return block.Decompress(raw, int(r.Decompressed))
}

// Fields decodes every typed field of r.
func (db *Database) Fields(r RecordHeader) ([]Field, error) {
	payload, err := db.Payload(r)
	if err != nil {
		return nil, err
	}
	return decodeFields(payload, db.Strings)
}

type selected struct {
	rec  RecordHeader
	path string
	cat  Category
}

type decoded struct {
	item       Item
	affix      Affix
	unresolved bool
}

// Entities decodes the items and affixes selected by the options' filter.
// Records are decoded in parallel; any record failure fails the whole
// database since later indexes cannot be trusted.
func (db *Database) Entities(ctx context.Context, o *Options) (*Entities, error) {
	o = o.norm()

	var todo []selected
	for _, r := range db.Records {
		cat := o.Filter.Type(r.Type)
		if cat == CategoryNone {
			continue
		}
		path, err := db.Path(r)
		if err != nil {
			return nil, errors.Wrap(err, "arz: record path")
		}
		if !o.Filter.Path(path) {
			continue
		}
		todo = append(todo, selected{rec: r, path: path, cat: cat})
	}

	out := make([]decoded, len(todo))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Concurrency)
	for i := range todo {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := db.decode(todo[i])
			if err != nil {
				return errors.Wrapf(err, "arz: record %q", todo[i].path)
			}
			out[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ents := &Entities{
		Items:   make(map[string]Item),
		Affixes: make(map[string]Affix),
	}
	for i, s := range todo {
		d := out[i]
		switch s.cat {
		case CategoryAffix:
			ents.Affixes[s.path] = d.affix
		default:
			ents.Items[s.path] = d.item
			if d.unresolved {
				ents.Unresolved = append(ents.Unresolved, s.path)
			}
		}
	}
	return ents, nil
}

func (db *Database) decode(s selected) (decoded, error) {
	payload, err := db.Payload(s.rec)
	if err != nil {
		return decoded{}, err
	}

	a, err := scanAttrs(payload, int(s.rec.Decompressed/4), db.Strings, s.cat)
	if err != nil {
		return decoded{}, err
	}

	if s.cat == CategoryAffix {
		return decoded{affix: Affix{Tag: a.tag, Rarity: a.rarity}}, nil
	}

	item := Item{Record: s.path, Rarity: a.rarity, Level: a.level, HasLevel: a.hasLevel}
	var unresolved bool
	switch {
	case a.tag != "":
		item.Tag = a.tag
	case a.fallback != "":
		item.Tag = a.fallback
	default:
		item.Tag = s.path
		unresolved = true
	}
	return decoded{item: item, unresolved: unresolved}, nil
}
