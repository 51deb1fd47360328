package snapshot

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/bsm/gdstash/arz"
	"github.com/bsm/gdstash/catalog"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// Reader instances can seek and iterate across data in tables.
type Reader struct {
	r io.ReaderAt

	index     []blockInfo
	maxOffset int64
}

// Open opens the snapshot file at path. The returned closer releases the file.
func Open(path string) (*Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	r, err := NewReader(f, fi.Size())
	if err != nil {
		_ = f.Close()
		return nil, nil, errors.Wrap(err, path)
	}
	return r, f, nil
}

// NewReader opens a reader.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	if size < 16 {
		return nil, errBadMagic
	}
	tmp := make([]byte, 16+binary.MaxVarintLen64)

	// read footer
	footerOffset := size - 16
	if _, err := r.ReadAt(tmp[:16], footerOffset); err != nil {
		return nil, err
	}

	// parse footer
	if !bytes.Equal(tmp[8:16], magic) {
		return nil, errBadMagic
	}
	indexOffset := int64(binary.LittleEndian.Uint64(tmp[:8]))
	if indexOffset < 0 || indexOffset > footerOffset {
		return nil, errCorrupt
	}

	// read index
	var index []blockInfo
	var info blockInfo

	for pos := indexOffset; pos < footerOffset; {
		tmp = tmp[:2*binary.MaxVarintLen64]
		if x := footerOffset - pos; x < int64(len(tmp)) {
			tmp = tmp[:int(x)]
		}

		if _, err := r.ReadAt(tmp, pos); err != nil {
			return nil, err
		}

		u1, n := binary.Uvarint(tmp[0:])
		if n <= 0 {
			return nil, errCorrupt
		}
		pos += int64(n)

		u2, m := binary.Uvarint(tmp[n:])
		if m <= 0 {
			return nil, errCorrupt
		}
		pos += int64(m)

		info.MaxKey += u1
		info.Offset += int64(u2)
		index = append(index, info)
	}

	return &Reader{
		r: r,

		index:     index, // block offsets
		maxOffset: indexOffset,
	}, nil
}

// NumBlocks returns the number of stored blocks.
func (r *Reader) NumBlocks() int {
	return len(r.index)
}

// Item returns the item stored for a record path.
// It may return an ErrNotFound error.
func (r *Reader) Item(record string) (arz.Item, error) {
	e, err := r.lookup(kindItem, record)
	return e.item, err
}

// Affix returns the affix stored for a record path.
// It may return an ErrNotFound error.
func (r *Reader) Affix(record string) (arz.Affix, error) {
	e, err := r.lookup(kindAffix, record)
	return e.affix, err
}

// Tag returns the localized text stored for a display tag.
// It may return an ErrNotFound error.
func (r *Reader) Tag(tag string) (string, error) {
	e, err := r.lookup(kindTag, tag)
	return e.text, err
}

func (r *Reader) lookup(kind entryKind, name string) (entry, error) {
	val, err := r.Get(key(kind, name))
	if err != nil {
		return entry{}, err
	}
	ents, err := decodeEntries(val)
	if err != nil {
		return entry{}, err
	}
	for _, e := range ents {
		if e.kind == kind && e.name == name {
			return e, nil
		}
	}
	return entry{}, ErrNotFound
}

// Catalog loads every stored entry.
func (r *Reader) Catalog() (*catalog.Catalog, error) {
	iter, err := r.Seek(0)
	if err != nil {
		return nil, err
	}
	defer iter.Release()

	cat := catalog.New()
	for iter.Next() {
		ents, err := decodeEntries(iter.Value())
		if err != nil {
			return nil, errors.Wrapf(err, "key %d", iter.Key())
		}
		for _, e := range ents {
			switch e.kind {
			case kindItem:
				cat.Items[e.name] = e.item
			case kindAffix:
				cat.Affixes[e.name] = e.affix
			case kindTag:
				cat.Tags[e.name] = e.text
			case kindUnresolved:
				cat.Unresolved = append(cat.Unresolved, e.name)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(cat.Unresolved)
	return cat, nil
}

// Append retrieves a single value for a key and appends it to dst.
// It may return an ErrNotFound error.
func (r *Reader) Append(dst []byte, key uint64) ([]byte, error) {
	iter, err := r.Seek(key)
	if err != nil {
		return dst, err
	}
	defer iter.Release()

	if !iter.Next() || iter.Key() != key {
		if err := iter.Err(); err != nil {
			return dst, err
		}
		return dst, ErrNotFound
	}
	return append(dst, iter.Value()...), nil
}

// Get is a shortcut for Append(nil, key).
// It may return an ErrNotFound error.
func (r *Reader) Get(key uint64) ([]byte, error) {
	return r.Append(nil, key)
}

// Seek returns an iterator starting at the position >= key.
func (r *Reader) Seek(key uint64) (*Iterator, error) {
	b, err := r.seekBlock(key)
	if err != nil {
		return nil, err
	}

	s := b.seekSection(key)
	s.seek(key)
	if s.corrupt {
		b.release()
		return nil, errCorrupt
	}
	return &Iterator{r: r, b: b, s: s}, nil
}

func (r *Reader) getBlock(bpos int) (*blockReader, error) {
	if len(r.index) == 0 {
		return &blockReader{}, nil
	}
	if bpos < 0 {
		bpos = 0
	}
	if bpos >= len(r.index) {
		return &blockReader{
			bpos: len(r.index),
		}, nil
	}
	return r.readBlock(bpos)
}

// seekBlock seeks the block containing the key.
func (r *Reader) seekBlock(key uint64) (*blockReader, error) {
	bpos := sort.Search(len(r.index), func(i int) bool {
		return r.index[i].MaxKey >= key
	})
	return r.getBlock(bpos)
}

func (r *Reader) readBlock(bpos int) (*blockReader, error) {
	min := r.index[bpos].Offset
	max := r.maxOffset
	if next := bpos + 1; next < len(r.index) {
		max = r.index[next].Offset
	}
	if max-min < 1 {
		return nil, errCorrupt
	}

	raw := fetchBuffer(int(max - min))
	if _, err := r.r.ReadAt(raw, min); err != nil {
		releaseBuffer(raw)
		return nil, err
	}

	var block []byte
	switch cBitPos := len(raw) - 1; raw[cBitPos] {
	case blockNoCompression:
		block = raw[:cBitPos]
	case blockSnappyCompression:
		defer releaseBuffer(raw)

		sz, err := snappy.DecodedLen(raw[:cBitPos])
		if err != nil {
			return nil, err
		}

		plain := fetchBuffer(sz)
		if block, err = snappy.Decode(plain, raw[:cBitPos]); err != nil {
			releaseBuffer(plain)
			return nil, err
		}
	default:
		releaseBuffer(raw)
		return nil, errBadCompression
	}

	if len(block) < 4 {
		releaseBuffer(block)
		return nil, errCorrupt
	}
	scnt := int(binary.LittleEndian.Uint32(block[len(block)-4:]))
	if scnt*4 > len(block) {
		releaseBuffer(block)
		return nil, errCorrupt
	}

	return &blockReader{
		block:  block,
		bpos:   bpos,
		scnt:   scnt,
		maxKey: r.index[bpos].MaxKey,
	}, nil
}

// --------------------------------------------------------------------

// blockReader reads a single block.
type blockReader struct {
	block  []byte
	bpos   int // the current block position
	scnt   int // the section count
	maxKey uint64
}

func (r *blockReader) getSection(spos int) *sectionReader {
	if spos < 0 {
		spos = 0
	}
	if spos >= r.scnt {
		return &sectionReader{spos: r.scnt}
	}

	min := r.sectionOffset(spos)
	max := r.sectionOffset(spos + 1)
	return &sectionReader{section: r.block[min:max], spos: spos}
}

// seekSection seeks the section for a key.
func (r *blockReader) seekSection(key uint64) *sectionReader {
	if key > r.maxKey {
		return r.getSection(r.scnt)
	}

	spos := sort.Search(r.scnt, func(i int) bool {
		off := r.sectionOffset(i)
		first, _ := binary.Uvarint(r.block[off:]) // first key of the section
		return first > key
	}) - 1
	return r.getSection(spos)
}

func (r *blockReader) release() { releaseBuffer(r.block) }

// The starting offset of the section within the block.
func (r *blockReader) sectionOffset(spos int) int {
	if spos < 1 {
		return 0
	} else if spos >= r.scnt {
		return len(r.block) - r.scnt*4
	} else {
		nn := len(r.block) - r.scnt*4 + (spos-1)*4
		return int(binary.LittleEndian.Uint32(r.block[nn:]))
	}
}

// sectionReader reads an individual section within a block.
type sectionReader struct {
	section []byte

	spos int // the section
	read int // bytes read

	key uint64 // current key
	val []byte // current value

	corrupt bool
}

// seek positions the cursor before the key.
func (r *sectionReader) seek(key uint64) bool {
	for r.more() {
		inc, n := binary.Uvarint(r.section[r.read:])
		r.read += n
		r.key += inc
		if r.key >= key {
			r.read -= n
			r.key -= inc
			return true
		}

		if r.more() && !r.readValue() {
			return false
		}
	}
	return false
}

func (r *sectionReader) more() bool { return r.read < len(r.section) }

func (r *sectionReader) next() bool {
	if r.more() {
		inc, n := binary.Uvarint(r.section[r.read:])
		r.read += n
		r.key += inc
	}

	if r.more() {
		return r.readValue()
	}

	return false
}

func (r *sectionReader) readValue() bool {
	vln, n := binary.Uvarint(r.section[r.read:])
	if n <= 0 || vln > uint64(len(r.section)-r.read-n) {
		r.corrupt = true
		r.read = len(r.section)
		return false
	}
	r.read += n
	r.val = r.section[r.read : r.read+int(vln)]
	r.read += int(vln)
	return true
}

// --------------------------------------------------------------------

// Iterator (forward-) iterates over keys across block and section
// boundaries.
type Iterator struct {
	r *Reader
	b *blockReader
	s *sectionReader

	err error
}

// Key returns the key if the current entry.
func (i *Iterator) Key() uint64 { return i.s.key }

// Value returns the value of the current entry. Please note that values
// are temporary buffers and must be copied if used beyond the next cursor move.
func (i *Iterator) Value() []byte { return i.s.val }

// More returns true if more data can be read.
func (i *Iterator) More() bool {
	if i.err != nil {
		return false
	}

	return i.s.more() || i.s.spos+1 < i.b.scnt || i.b.bpos+1 < i.r.NumBlocks()
}

// Next advances the cursor to the next entry and returns true if successful.
func (i *Iterator) Next() bool {
	if i.err != nil {
		return false
	}

	// more entries in the section
	if i.s.more() {
		return i.advance()
	}

	// more sections in the block
	if n := i.s.spos + 1; n < i.b.scnt {
		i.s = i.b.getSection(n)
		return i.advance()
	}

	// more blocks
	if n := i.b.bpos + 1; n < i.r.NumBlocks() {
		b, err := i.r.getBlock(n)
		if err != nil {
			i.err = err
			return false
		}
		i.b.release()
		i.b = b
		i.s = i.b.getSection(0)
		return i.advance()
	}

	return false
}

func (i *Iterator) advance() bool {
	if i.s.next() {
		return true
	}
	if i.s.corrupt {
		i.err = errCorrupt
	}
	return false
}

// Err exposes iterator errors, if any.
func (i *Iterator) Err() error {
	if i.err == errReleased {
		return nil
	}
	return i.err
}

// Release releases the iterator and frees up resources. The iterator must not be used
// after this method is called.
func (i *Iterator) Release() {
	if i.err == errReleased {
		return
	}
	i.b.release()
	i.err = errReleased
}

// --------------------------------------------------------------------

var bufPool sync.Pool

func fetchBuffer(sz int) []byte {
	if v := bufPool.Get(); v != nil {
		if p := v.([]byte); sz <= cap(p) {
			return p[:sz]
		}
	}
	return make([]byte, sz)
}

func releaseBuffer(p []byte) {
	if cap(p) != 0 {
		bufPool.Put(p)
	}
}
