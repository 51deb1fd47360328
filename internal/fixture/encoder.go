// Package fixture builds in-memory archives and cipher-framed save files for
// tests.
package fixture

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/bsm/gdstash/crypt"
	"github.com/pkg/errors"
)

// maxSeeds bounds the search in Encrypt. Roughly a third of byte values are
// unreachable from any given key, so files with many exact bytes need many
// attempts.
const maxSeeds = 1 << 16

var errUnreachable = errors.New("fixture: byte value unreachable under current key")

// Encoder is the inverse of crypt.Reader. Every call appends the ciphertext
// that decodes to the given plaintext with the matching Reader call.
type Encoder struct {
	buf   []byte
	table crypt.Table
	key   uint32
	open  []pending
	err   error
}

type pending struct {
	pos int
	key uint32
}

// NewEncoder starts a file with the given plaintext seed.
func NewEncoder(seed uint32) *Encoder {
	e := &Encoder{buf: binary.LittleEndian.AppendUint32(nil, seed)}
	e.table, e.key = crypt.NewTable(seed)
	return e
}

// Encrypt runs fn against encoders with successive seeds until one of them
// can represent every exact byte fn writes.
func Encrypt(fn func(*Encoder)) ([]byte, error) {
	var last error
	for seed := uint32(1); seed <= maxSeeds; seed++ {
		e := NewEncoder(seed * 2654435761)
		fn(e)
		out, err := e.Bytes()
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, errUnreachable) {
			return nil, err
		}
		last = err
	}
	return nil, last
}

// Bytes returns the encoded file.
func (e *Encoder) Bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	if len(e.open) != 0 {
		return nil, errors.Errorf("fixture: %d unclosed blocks", len(e.open))
	}
	return e.buf, nil
}

// Int is the inverse of ReadInt.
func (e *Encoder) Int(v uint32) {
	raw := v ^ e.key
	e.buf = binary.LittleEndian.AppendUint32(e.buf, raw)
	e.key ^= e.table[byte(raw>>24)]
	e.key ^= e.table[byte(raw>>16)]
	e.key ^= e.table[byte(raw>>8)]
	e.key ^= e.table[byte(raw)]
}

// Next is the inverse of NextInt.
func (e *Encoder) Next(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v^e.key)
}

// Byte is the inverse of ReadByte. Not every value is reachable from every
// key; unreachable values poison the encoder.
func (e *Encoder) Byte(b byte) {
	e.pickByte(func(v byte) bool { return v == b })
}

// Bool writes a byte that decodes to zero or to any non-zero value.
func (e *Encoder) Bool(v bool) {
	e.pickByte(func(b byte) bool { return (b != 0) == v })
}

// Any writes n bytes whose decoded values are irrelevant.
func (e *Encoder) Any(n int) {
	for i := 0; i < n; i++ {
		e.pickByte(func(byte) bool { return true })
	}
}

func (e *Encoder) pickByte(accept func(byte) bool) {
	if e.err != nil {
		return
	}
	for raw := 0; raw < 256; raw++ {
		k := e.key ^ e.table[raw]
		if accept(byte(raw) ^ byte(k)) {
			e.buf = append(e.buf, byte(raw))
			e.key = k
			return
		}
	}
	if e.err == nil {
		e.err = errUnreachable
	}
}

// Raw is the inverse of ReadBytes.
func (e *Encoder) Raw(p []byte) {
	for _, b := range p {
		raw := b ^ byte(e.key)
		e.buf = append(e.buf, raw)
		e.key ^= e.table[raw]
	}
}

// String is the inverse of ReadString.
func (e *Encoder) String(s string) {
	e.Int(uint32(len(s)))
	e.Raw([]byte(s))
}

// WideString is the inverse of ReadWideString.
func (e *Encoder) WideString(s string) {
	units := utf16.Encode([]rune(s))
	e.Int(uint32(len(units)))

	p := make([]byte, 0, 2*len(units))
	for _, u := range units {
		p = binary.LittleEndian.AppendUint16(p, u)
	}
	e.Raw(p)
}

// Begin opens a block. The length is patched in by End.
func (e *Encoder) Begin(tag uint32) {
	e.Int(tag)
	e.open = append(e.open, pending{pos: len(e.buf), key: e.key})
	e.buf = append(e.buf, 0, 0, 0, 0)
}

// End closes the innermost block and writes its zero sentinel.
func (e *Encoder) End() {
	if len(e.open) == 0 {
		e.err = errors.New("fixture: End without Begin")
		return
	}
	p := e.open[len(e.open)-1]
	e.open = e.open[:len(e.open)-1]

	n := uint32(len(e.buf) - p.pos - 4)
	binary.LittleEndian.PutUint32(e.buf[p.pos:], n^p.key)
	e.Next(0)
}
