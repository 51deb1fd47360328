package crypt

import (
	"fmt"

	"github.com/pkg/errors"
)

// Block marks an open length-framed region.
type Block struct {
	Tag uint32
	Len uint32
	End int
}

// BlockErrorKind distinguishes the two ways a block can fail to close.
type BlockErrorKind int

// Block failure kinds.
const (
	// Misaligned means the reader did not stop exactly at the declared end.
	Misaligned BlockErrorKind = iota + 1
	// BadSentinel means the terminating marker was not zero.
	BadSentinel
)

// BlockError reports a block that did not close cleanly. Decoding past a
// misaligned block is unreliable, but callers may choose to continue.
type BlockError struct {
	Kind     BlockErrorKind
	Tag      uint32
	Offset   int
	End      int
	Sentinel uint32
}

func (e *BlockError) Error() string {
	switch e.Kind {
	case Misaligned:
		return fmt.Sprintf("crypt: block %d ends at %d, reader at %d (delta %d)", e.Tag, e.End, e.Offset, e.Offset-e.End)
	case BadSentinel:
		return fmt.Sprintf("crypt: block %d terminated by %#x, expected 0", e.Tag, e.Sentinel)
	default:
		return fmt.Sprintf("crypt: block %d malformed", e.Tag)
	}
}

// IsBlockError reports whether err is, or wraps, a *BlockError.
func IsBlockError(err error) bool {
	var be *BlockError
	return errors.As(err, &be)
}

// ReadBlockStart decodes a block tag and its body length. The block ends
// length bytes after the length field.
func (r *Reader) ReadBlockStart() (Block, error) {
	tag, err := r.ReadInt()
	if err != nil {
		return Block{}, err
	}
	n, err := r.NextInt()
	if err != nil {
		return Block{}, err
	}
	return Block{Tag: tag, Len: n, End: r.Offset() + int(n)}, nil
}

// ReadBlockEnd verifies that the reader stopped exactly at the block end
// and consumes the zero sentinel. The sentinel is not read when the
// position is off.
func (r *Reader) ReadBlockEnd(b Block) error {
	if pos := r.Offset(); pos != b.End {
		return &BlockError{Kind: Misaligned, Tag: b.Tag, Offset: pos, End: b.End}
	}

	v, err := r.NextInt()
	if err != nil {
		return err
	}
	if v != 0 {
		return &BlockError{Kind: BadSentinel, Tag: b.Tag, Offset: r.Offset(), End: b.End, Sentinel: v}
	}
	return nil
}
