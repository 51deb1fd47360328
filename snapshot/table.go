package snapshot

import "github.com/pkg/errors"

var magic = []byte{'g', 'd', 's', 'n', 'a', 'p', 0, 1}

const (
	blockNoCompression     = 0
	blockSnappyCompression = 1
)

// ErrNotFound is returned by the reader when a key cannot be found.
var ErrNotFound = errors.New("snapshot: not found")

var (
	errClosed         = errors.New("snapshot: is closed")
	errBadMagic       = errors.New("snapshot: bad magic byte sequence")
	errBadCompression = errors.New("snapshot: bad compression codec")
	errCorrupt        = errors.New("snapshot: corrupt block")
	errReleased       = errors.New("snapshot: iterator was released")
)

type blockInfo struct {
	MaxKey uint64 // maximum key in the block
	Offset int64  // block offset position
}

// --------------------------------------------------------------------

// Compression is the block compression codec.
type Compression byte

func (c Compression) isValid() bool {
	return c >= SnappyCompression && c < unknownCompression
}

// Supported compression codecs
const (
	SnappyCompression Compression = iota
	NoCompression
	unknownCompression
)
