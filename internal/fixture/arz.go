package fixture

import (
	"encoding/binary"
	"math"

	"github.com/bsm/gdstash/internal/block"
)

// ArzField is one typed field entry of a database record.
type ArzField struct {
	Type    uint16
	Key     string
	Ints    []uint32
	Strings []string

	broken bool
}

// Str builds a string field.
func Str(key string, vals ...string) ArzField {
	return ArzField{Type: 2, Key: key, Strings: vals}
}

// Int builds an integer field.
func Int(key string, vals ...uint32) ArzField {
	return ArzField{Type: 0, Key: key, Ints: vals}
}

// Float builds a float field.
func Float(key string, vals ...float32) ArzField {
	f := ArzField{Type: 1, Key: key}
	for _, v := range vals {
		f.Ints = append(f.Ints, math.Float32bits(v))
	}
	return f
}

// Broken builds a field whose key index points past the string table.
func Broken() ArzField {
	return ArzField{Type: 0, Ints: []uint32{0}, broken: true}
}

// ArzRecord is one record of a generated database.
type ArzRecord struct {
	Path     string
	Type     string
	Fields   []ArzField
	Compress bool
}

// ArzHeader overrides the database header check values.
type ArzHeader struct {
	Reserved uint16
	Version  uint16
}

// ARZ builds a database with a valid header.
func ARZ(records ...ArzRecord) ([]byte, error) {
	return ARZWithHeader(ArzHeader{Reserved: 2, Version: 3}, records...)
}

// ARZWithHeader builds a database with the given header check values.
func ARZWithHeader(h ArzHeader, records ...ArzRecord) ([]byte, error) {
	var strs []string
	index := make(map[string]uint32)
	intern := func(s string) uint32 {
		if i, ok := index[s]; ok {
			return i
		}
		i := uint32(len(strs))
		index[s] = i
		strs = append(strs, s)
		return i
	}

	const headerSize = 24
	data := make([]byte, headerSize)

	type entry struct {
		path, off, stored, size uint32
		typ                     string
	}
	var entries []entry

	for _, r := range records {
		e := entry{path: intern(r.Path), typ: r.Type}

		var payload []byte
		for _, f := range r.Fields {
			key := uint32(math.MaxUint32)
			if !f.broken {
				key = intern(f.Key)
			}
			vals := f.Ints
			if f.Type == 2 {
				vals = nil
				for _, s := range f.Strings {
					vals = append(vals, intern(s))
				}
			}
			payload = binary.LittleEndian.AppendUint16(payload, f.Type)
			payload = binary.LittleEndian.AppendUint16(payload, uint16(len(vals)))
			payload = appendU32(payload, key)
			payload = appendU32(payload, vals...)
		}

		stored := payload
		if r.Compress {
			var err error
			if stored, err = block.Compress(payload); err != nil {
				return nil, err
			}
		}
		e.off = uint32(len(data) - headerSize)
		e.stored = uint32(len(stored))
		e.size = uint32(len(payload))
		data = append(data, stored...)
		entries = append(entries, e)
	}

	recordsStart := uint32(len(data))
	for _, e := range entries {
		data = appendU32(data, e.path, uint32(len(e.typ)))
		data = append(data, e.typ...)
		data = appendU32(data, e.off, e.stored, e.size)
		data = binary.LittleEndian.AppendUint64(data, 132537600000000000)
	}
	recordsLen := uint32(len(data)) - recordsStart

	// two groups, to exercise the group loop
	stringsStart := uint32(len(data))
	half := len(strs) / 2
	for _, group := range [][]string{strs[:half], strs[half:]} {
		data = appendU32(data, uint32(len(group)))
		for _, s := range group {
			data = appendU32(data, uint32(len(s)))
			data = append(data, s...)
		}
	}
	stringsSize := uint32(len(data)) - stringsStart

	header := binary.LittleEndian.AppendUint16(nil, h.Reserved)
	header = binary.LittleEndian.AppendUint16(header, h.Version)
	header = appendU32(header, recordsStart, recordsLen, uint32(len(entries)), stringsStart, stringsSize)
	copy(data, header)
	return data, nil
}
