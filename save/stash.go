package save

import (
	"os"

	"github.com/pkg/errors"
)

// Stash file constants.
const (
	StashFileVersion = 2
	StashVersion     = 5

	tagStash = 18
)

// ReadStash reads and decodes the stash file at path.
func ReadStash(path string, o *Options) (*Stash, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := DecodeStash(buf, o)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return s, nil
}

// DecodeStash decodes a stash file held in memory.
func DecodeStash(buf []byte, o *Options) (*Stash, error) {
	d, err := newDecoder(buf, o)
	if err != nil {
		return nil, err
	}

	d.expect("stash file", StashFileVersion)
	d.begin(tagStash)

	s := new(Stash)
	s.Version = d.int()
	if d.err == nil && s.Version != StashVersion {
		return nil, errors.Wrapf(ErrBadVersion, "stash: expected %d, got %d", StashVersion, s.Version)
	}
	if z := d.next(); d.err == nil && z != 0 {
		d.fail(errors.Errorf("save: expected stash header terminator, got %#x", z))
	}
	s.Mod = d.str()
	if s.Version >= 5 {
		s.Expansion = d.bool()
	}
	s.Tabs = d.tabs()
	d.end()

	if err := d.done(); err != nil {
		return nil, err
	}
	return s, nil
}
