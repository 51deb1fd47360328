// Package crypt reads the rolling substitution cipher that protects save and
// stash files.
//
// The first four bytes of a file are a plaintext seed. A 256-entry table is
// derived from it and every subsequent read XORs ciphertext with a running
// key which then evolves by table lookups on the ciphertext just consumed.
// Decoding is therefore strictly sequential: a Reader cannot rewind.
package crypt

import (
	"math/bits"

	"github.com/bsm/gdstash/cursor"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
)

const (
	seedMask = 0x55555555
	prime    = 39916801
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Table is the substitution table derived from a seed.
type Table [256]uint32

// NewTable derives the substitution table for seed and returns it together
// with the initial decode key, which equals the last table entry.
func NewTable(seed uint32) (Table, uint32) {
	var t Table
	k := seed ^ seedMask
	for i := range t {
		k = bits.RotateLeft32(k, -1) * prime
		t[i] = k
	}
	return t, k
}

// Reader decodes cipher-framed primitives from a buffer.
type Reader struct {
	c     *cursor.Cursor
	table Table
	key   uint32
}

// NewReader reads the seed from the start of buf and prepares the table.
func NewReader(buf []byte) (*Reader, error) {
	c := cursor.New(buf)
	seed, err := c.Uint32()
	if err != nil {
		return nil, errors.Wrap(err, "crypt: seed")
	}

	r := &Reader{c: c}
	r.table, r.key = NewTable(seed)
	return r, nil
}

// Offset returns the absolute read position within the buffer.
func (r *Reader) Offset() int { return r.c.Offset() }

// Key returns the current decode key.
func (r *Reader) Key() uint32 { return r.key }

// ReadInt decodes a uint32 and evolves the key by the four ciphertext bytes,
// most significant first.
func (r *Reader) ReadInt() (uint32, error) {
	raw, err := r.c.Uint32()
	if err != nil {
		return 0, err
	}

	v := raw ^ r.key
	r.key ^= r.table[byte(raw>>24)]
	r.key ^= r.table[byte(raw>>16)]
	r.key ^= r.table[byte(raw>>8)]
	r.key ^= r.table[byte(raw)]
	return v, nil
}

// NextInt decodes a uint32 without evolving the key. It is used for block
// lengths and sentinels.
func (r *Reader) NextInt() (uint32, error) {
	raw, err := r.c.Uint32()
	if err != nil {
		return 0, err
	}
	return raw ^ r.key, nil
}

// ReadByte decodes a single byte. The key evolves before it is applied.
func (r *Reader) ReadByte() (byte, error) {
	raw, err := r.c.Uint8()
	if err != nil {
		return 0, err
	}
	r.key ^= r.table[raw]
	return raw ^ byte(r.key), nil
}

// ReadBool decodes a byte and reports whether it is non-zero.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

// ReadBytes decodes n bytes into a new slice using the string rule: each
// byte is XORed with the current key, then the key evolves by that byte's
// ciphertext. Byte order is significant.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	raw, err := r.c.Bytes(n)
	if err != nil {
		return nil, err
	}

	out := make([]byte, n)
	for i, b := range raw {
		out[i] = b ^ byte(r.key)
		r.key ^= r.table[b]
	}
	return out, nil
}

// ReadString decodes a length-prefixed byte string.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadInt()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}

	p, err := r.ReadBytes(int(n))
	if err != nil {
		return "", errors.Wrapf(err, "crypt: string of %d bytes", n)
	}
	return string(p), nil
}

// ReadWideString decodes a length-prefixed UTF-16LE string. The prefix
// counts 16-bit units.
func (r *Reader) ReadWideString() (string, error) {
	n, err := r.ReadInt()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}

	p, err := r.ReadBytes(int(n) * 2)
	if err != nil {
		return "", errors.Wrapf(err, "crypt: wide string of %d units", n)
	}

	s, err := utf16le.NewDecoder().Bytes(p)
	if err != nil {
		return "", errors.Wrap(err, "crypt: wide string")
	}
	return string(s), nil
}

// Skip decodes and discards n bytes one ReadByte at a time, keeping the key
// in step.
func (r *Reader) Skip(n int) error {
	for i := 0; i < n; i++ {
		if _, err := r.ReadByte(); err != nil {
			return err
		}
	}
	return nil
}
