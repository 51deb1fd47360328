package snapshot

import (
	"encoding/binary"

	"github.com/bsm/gdstash/arz"
	farm "github.com/dgryski/go-farm"
)

type entryKind byte

const (
	kindItem entryKind = iota + 1
	kindAffix
	kindTag
	kindUnresolved
)

// key fingerprints a named entry.
func key(kind entryKind, name string) uint64 {
	p := make([]byte, 0, 1+len(name))
	p = append(p, byte(kind))
	p = append(p, name...)
	return farm.Fingerprint64(p)
}

type entry struct {
	kind  entryKind
	name  string
	item  arz.Item
	affix arz.Affix
	text  string
}

func (e *entry) key() uint64 { return key(e.kind, e.name) }

func appendEntries(dst []byte, ents []entry) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(ents)))
	for i := range ents {
		dst = ents[i].appendTo(dst)
	}
	return dst
}

func (e *entry) appendTo(dst []byte) []byte {
	dst = append(dst, byte(e.kind))
	dst = appendString(dst, e.name)

	switch e.kind {
	case kindItem:
		dst = appendString(dst, e.item.Tag)
		dst = appendString(dst, e.item.Rarity)
		dst = binary.AppendUvarint(dst, uint64(e.item.Level))
		if e.item.HasLevel {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	case kindAffix:
		dst = appendString(dst, e.affix.Tag)
		dst = appendString(dst, e.affix.Rarity)
		dst = appendString(dst, e.affix.Name)
	case kindTag:
		dst = appendString(dst, e.text)
	}
	return dst
}

func appendString(dst []byte, s string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

// entryDecoder reads entries from a value. Errors are sticky.
type entryDecoder struct {
	p   []byte
	err error
}

func (d *entryDecoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.p)
	if n <= 0 {
		d.err = errCorrupt
		return 0
	}
	d.p = d.p[n:]
	return v
}

func (d *entryDecoder) byte() byte {
	if d.err != nil {
		return 0
	}
	if len(d.p) == 0 {
		d.err = errCorrupt
		return 0
	}
	b := d.p[0]
	d.p = d.p[1:]
	return b
}

func (d *entryDecoder) string() string {
	n := d.uvarint()
	if d.err != nil {
		return ""
	}
	if uint64(len(d.p)) < n {
		d.err = errCorrupt
		return ""
	}
	s := string(d.p[:n])
	d.p = d.p[n:]
	return s
}

func (d *entryDecoder) entry() entry {
	e := entry{kind: entryKind(d.byte()), name: d.string()}

	switch e.kind {
	case kindItem:
		e.item = arz.Item{Record: e.name, Tag: d.string(), Rarity: d.string()}
		e.item.Level = uint32(d.uvarint())
		e.item.HasLevel = d.byte() != 0
	case kindAffix:
		e.affix = arz.Affix{Tag: d.string(), Rarity: d.string(), Name: d.string()}
	case kindTag:
		e.text = d.string()
	case kindUnresolved:
	default:
		if d.err == nil {
			d.err = errCorrupt
		}
	}
	return e
}

func decodeEntries(val []byte) ([]entry, error) {
	d := &entryDecoder{p: val}
	n := d.uvarint()

	ents := make([]entry, 0, min(n, 8))
	for i := uint64(0); i < n && d.err == nil; i++ {
		ents = append(ents, d.entry())
	}
	if d.err != nil {
		return nil, d.err
	}
	return ents, nil
}
