package fixture

import (
	"encoding/binary"

	"github.com/bsm/gdstash/internal/block"
)

// ArcFile is one file stored in a generated localization archive.
type ArcFile struct {
	Name     string
	Data     []byte
	Compress bool
	// Parts splits Data into that many stored segments. Zero means one.
	Parts int
}

// ARC builds a localization archive with the given header version.
func ARC(version uint32, files ...ArcFile) ([]byte, error) {
	type part struct{ off, stored, size uint32 }
	type record struct{ first, count, stored, size uint32 }

	data := make([]byte, 28)
	var parts []part
	var records []record

	for _, f := range files {
		n := f.Parts
		if n < 1 {
			n = 1
		}

		rec := record{first: uint32(len(parts)), size: uint32(len(f.Data))}
		for i := 0; i < n; i++ {
			seg := f.Data[i*len(f.Data)/n : (i+1)*len(f.Data)/n]
			stored := seg
			if f.Compress {
				var err error
				if stored, err = block.Compress(seg); err != nil {
					return nil, err
				}
			}
			parts = append(parts, part{off: uint32(len(data)), stored: uint32(len(stored)), size: uint32(len(seg))})
			data = append(data, stored...)
			rec.stored += uint32(len(stored))
		}
		rec.count = uint32(n)
		records = append(records, rec)
	}

	partOffset := uint32(len(data))
	for _, p := range parts {
		data = appendU32(data, p.off, p.stored, p.size)
	}
	partLen := uint32(len(data)) - partOffset

	nameStart := len(data)
	var nameOffs []uint32
	for _, f := range files {
		nameOffs = append(nameOffs, uint32(len(data)-nameStart))
		data = append(data, f.Name...)
		data = append(data, 0)
	}
	nameLen := uint32(len(data) - nameStart)

	for i, r := range records {
		off := parts[r.first].off
		data = appendU32(data, 3, off, r.stored, r.size, 0)
		data = binary.LittleEndian.AppendUint64(data, 132537600000000000)
		data = appendU32(data, r.count, r.first, uint32(len(files[i].Name)), nameOffs[i])
	}

	header := appendU32(nil, 0x435241, version, uint32(len(files)), uint32(len(parts)), partLen, nameLen, partOffset)
	copy(data, header)
	return data, nil
}

func appendU32(p []byte, vv ...uint32) []byte {
	for _, v := range vv {
		p = binary.LittleEndian.AppendUint32(p, v)
	}
	return p
}
