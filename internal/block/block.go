// Package block decodes the single block compression scheme used by game
// archives: a payload is either stored raw, when its compressed and
// decompressed lengths match, or as one LZ4 block.
package block

import (
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// ErrSizeMismatch is returned when a block does not expand to its declared size.
var ErrSizeMismatch = errors.New("block: decompressed size mismatch")

// Decompress expands src into a new buffer of exactly size bytes.
func Decompress(src []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Errorf("block: negative size %d", size)
	}

	dst := make([]byte, size)
	if len(src) == size {
		copy(dst, src)
		return dst, nil
	}

	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, errors.Wrap(err, "block: lz4")
	}
	if n != size {
		return nil, errors.Wrapf(ErrSizeMismatch, "got %d bytes, expected %d", n, size)
	}
	return dst, nil
}

// Compress encodes src as a single LZ4 block, falling back to the raw bytes
// when they do not compress.
func Compress(src []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(src)))

	n, err := lz4.CompressBlock(src, dst, nil)
	if err != nil {
		return nil, errors.Wrap(err, "block: lz4")
	}
	if n == 0 || n >= len(src) {
		return append([]byte(nil), src...), nil
	}
	return dst[:n], nil
}
