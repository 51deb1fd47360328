// Package cursor implements a bounds-checked little-endian reader over an
// immutable byte buffer.
//
// A Cursor never mutates its buffer. Clone returns an independent cursor
// sharing the same backing array, so several goroutines may decode disjoint
// regions of one buffer concurrently as long as each owns its cursor.
package cursor

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// ErrShortBuffer is returned when fewer bytes remain than a read requires.
var ErrShortBuffer = errors.New("cursor: insufficient bytes")

// Cursor reads primitives from a byte buffer, advancing its offset by
// exactly the number of bytes consumed. Failed reads do not move the offset.
type Cursor struct {
	buf []byte
	off int
}

// New wraps buf. The caller must not modify buf afterwards.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Clone returns a cursor over the same buffer at the same offset.
func (c *Cursor) Clone() *Cursor {
	return &Cursor{buf: c.buf, off: c.off}
}

// At returns a cursor over the same buffer positioned at off.
func (c *Cursor) At(off int) (*Cursor, error) {
	d := &Cursor{buf: c.buf}
	if err := d.Seek(off); err != nil {
		return nil, err
	}
	return d, nil
}

// Offset returns the current read position.
func (c *Cursor) Offset() int { return c.off }

// Len returns the total buffer length.
func (c *Cursor) Len() int { return len(c.buf) }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.off }

// Seek moves the cursor to an absolute offset within [0, Len()].
func (c *Cursor) Seek(off int) error {
	if off < 0 || off > len(c.buf) {
		return errors.Wrapf(ErrShortBuffer, "seek to %d of %d", off, len(c.buf))
	}
	c.off = off
	return nil
}

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n int) error {
	_, err := c.take(n)
	return err
}

func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || n > len(c.buf)-c.off {
		return nil, errors.Wrapf(ErrShortBuffer, "read %d bytes at offset %d of %d", n, c.off, len(c.buf))
	}
	p := c.buf[c.off : c.off+n : c.off+n]
	c.off += n
	return p, nil
}

// Uint8 reads one byte.
func (c *Cursor) Uint8() (uint8, error) {
	p, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// Uint16 reads a little-endian uint16.
func (c *Cursor) Uint16() (uint16, error) {
	p, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(p), nil
}

// Uint32 reads a little-endian uint32.
func (c *Cursor) Uint32() (uint32, error) {
	p, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

// Uint64 reads a little-endian uint64.
func (c *Cursor) Uint64() (uint64, error) {
	p, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

// Float32 reads a little-endian IEEE-754 float.
func (c *Cursor) Float32() (float32, error) {
	u, err := c.Uint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// Bytes returns the next n bytes. The result aliases the underlying buffer
// and must be treated as read-only.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	return c.take(n)
}

// String reads n bytes as a string.
func (c *Cursor) String(n int) (string, error) {
	p, err := c.take(n)
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// LenString reads a uint32 length followed by that many bytes.
func (c *Cursor) LenString() (string, error) {
	start := c.off
	n, err := c.Uint32()
	if err != nil {
		return "", err
	}
	s, err := c.String(int(n))
	if err != nil {
		c.off = start
		return "", err
	}
	return s, nil
}

// CString reads a null-terminated string. The terminator is consumed but
// not returned; a string running into the end of the buffer is returned
// as is. ok is false when the cursor is already at the end.
func (c *Cursor) CString() (s string, ok bool) {
	if c.off >= len(c.buf) {
		return "", false
	}

	rest := c.buf[c.off:]
	for i, b := range rest {
		if b == 0 {
			c.off += i + 1
			return string(rest[:i]), true
		}
	}
	c.off = len(c.buf)
	return string(rest), true
}
