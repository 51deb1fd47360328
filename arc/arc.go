package arc

import (
	"bufio"
	"bytes"
	"os"
	"strings"

	"github.com/bsm/gdstash/cursor"
	"github.com/bsm/gdstash/internal/block"
	"github.com/pkg/errors"
)

// Version is the only supported archive version.
const Version = 3

const (
	partSize   = 3 * 4
	recordSize = 40
)

// ManifestNames lists the localization manifests that carry item tags, one
// per game release.
var ManifestNames = []string{"tags_items.txt", "tagsgdx1_items.txt", "tagsgdx2_items.txt"}

var (
	// ErrBadVersion is returned for archives whose version is not Version.
	ErrBadVersion = errors.New("arc: unsupported archive version")
	// ErrNotFound is returned by Payload for unknown file names.
	ErrNotFound = errors.New("arc: entry not found")
	// ErrNoManifest is returned when an archive holds no item tag manifest.
	ErrNoManifest = errors.New("arc: no item tag manifest")
)

var (
	errBadPart       = errors.New("arc: part index out of range")
	errNameTable     = errors.New("arc: truncated name table")
	errCountMismatch = errors.New("arc: record count does not match file count")
)

// Header is the fixed archive header at offset 0.
type Header struct {
	Reserved     uint32
	Version      uint32
	FileCount    uint32
	PartCount    uint32
	PartTableLen uint32
	NameTableLen uint32
	PartOffset   uint32
}

// Part describes one stored segment of a file.
type Part struct {
	Offset       uint32
	Compressed   uint32
	Decompressed uint32
}

// Record describes one stored file.
type Record struct {
	Type         uint32
	Offset       uint32
	Compressed   uint32
	Decompressed uint32
	Unknown      uint32
	FileTime     uint64
	PartCount    uint32
	FirstPart    uint32
	NameLen      uint32
	NameOffset   uint32
}

// Archive is a parsed archive. Name i belongs to Record i.
type Archive struct {
	Header  Header
	Parts   []Part
	Names   []string
	Records []Record

	c *cursor.Cursor
}

// Open reads and parses the archive at path.
func Open(path string) (*Archive, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := Parse(buf)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return a, nil
}

// Parse parses an archive held in memory. The header version is checked
// before any table is read.
func Parse(buf []byte) (*Archive, error) {
	c := cursor.New(buf)

	var h Header
	for _, p := range []*uint32{
		&h.Reserved, &h.Version, &h.FileCount, &h.PartCount,
		&h.PartTableLen, &h.NameTableLen, &h.PartOffset,
	} {
		v, err := c.Uint32()
		if err != nil {
			return nil, errors.Wrap(err, "arc: header")
		}
		*p = v
	}
	if h.Version != Version {
		return nil, errors.Wrapf(ErrBadVersion, "expected %d, got %d", Version, h.Version)
	}

	a := &Archive{Header: h, c: c}
	if err := a.readParts(); err != nil {
		return nil, err
	}
	if err := a.readNames(); err != nil {
		return nil, err
	}
	if err := a.readRecords(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Archive) readParts() error {
	c, err := a.c.At(int(a.Header.PartOffset))
	if err != nil {
		return errors.Wrap(err, "arc: part table")
	}
	if c.Remaining() < int(a.Header.PartCount)*partSize {
		return errors.Wrapf(cursor.ErrShortBuffer, "arc: part table needs %d bytes", int(a.Header.PartCount)*partSize)
	}

	a.Parts = make([]Part, 0, a.Header.PartCount)
	for i := uint32(0); i < a.Header.PartCount; i++ {
		var p Part
		for _, f := range []*uint32{&p.Offset, &p.Compressed, &p.Decompressed} {
			if *f, err = c.Uint32(); err != nil {
				return errors.Wrapf(err, "arc: part %d", i)
			}
		}
		a.Parts = append(a.Parts, p)
	}
	return nil
}

func (a *Archive) readNames() error {
	off := int(a.Header.PartOffset) + int(a.Header.PartTableLen)
	c, err := a.c.At(off)
	if err != nil {
		return errors.Wrap(err, "arc: name table")
	}
	// every name holds at least its terminator
	if c.Remaining() < int(a.Header.FileCount) {
		return errors.Wrapf(cursor.ErrShortBuffer, "arc: name table needs at least %d bytes", a.Header.FileCount)
	}

	a.Names = make([]string, 0, a.Header.FileCount)
	for i := uint32(0); i < a.Header.FileCount; i++ {
		name, ok := c.CString()
		if !ok {
			return errors.Wrapf(errNameTable, "name %d of %d", i, a.Header.FileCount)
		}
		a.Names = append(a.Names, name)
	}
	return nil
}

func (a *Archive) readRecords() error {
	off := int(a.Header.PartOffset) + int(a.Header.PartTableLen) + int(a.Header.NameTableLen)
	c, err := a.c.At(off)
	if err != nil {
		return errors.Wrap(err, "arc: record table")
	}
	if c.Remaining() < int(a.Header.FileCount)*recordSize {
		return errors.Wrapf(cursor.ErrShortBuffer, "arc: record table needs %d bytes", int(a.Header.FileCount)*recordSize)
	}

	a.Records = make([]Record, 0, a.Header.FileCount)
	for i := uint32(0); i < a.Header.FileCount; i++ {
		var r Record
		for _, f := range []*uint32{&r.Type, &r.Offset, &r.Compressed, &r.Decompressed, &r.Unknown} {
			*f, _ = c.Uint32()
		}
		r.FileTime, _ = c.Uint64()
		for _, f := range []*uint32{&r.PartCount, &r.FirstPart, &r.NameLen, &r.NameOffset} {
			*f, _ = c.Uint32()
		}
		a.Records = append(a.Records, r)
	}

	if len(a.Records) != len(a.Names) {
		return errCountMismatch
	}
	return nil
}

// Index returns the position of the named file, or -1.
func (a *Archive) Index(name string) int {
	for i, n := range a.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Payload returns the decompressed content of the named file: the
// concatenation of its parts, each stored raw or as an LZ4 block.
func (a *Archive) Payload(name string) ([]byte, error) {
	i := a.Index(name)
	if i < 0 {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	return a.payload(a.Records[i])
}

func (a *Archive) payload(r Record) ([]byte, error) {
	first, count := int(r.FirstPart), int(r.PartCount)
	if first+count > len(a.Parts) {
		return nil, errors.Wrapf(errBadPart, "parts %d..%d of %d", first, first+count, len(a.Parts))
	}

	var out []byte
	for _, p := range a.Parts[first : first+count] {
		data, err := a.segment(p)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = data
		} else {
			out = append(out, data...)
		}
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

func (a *Archive) segment(p Part) ([]byte, error) {
	c, err := a.c.At(int(p.Offset))
	if err != nil {
		return nil, errors.Wrap(err, "arc: segment")
	}
	raw, err := c.Bytes(int(p.Compressed))
	if err != nil {
		return nil, errors.Wrap(err, "arc: segment")
	}
	data, err := block.Decompress(raw, int(p.Decompressed))
	if err != nil {
		return nil, errors.Wrapf(err, "arc: segment at %d", p.Offset)
	}
	return data, nil
}

// Manifest returns the name of the first item tag manifest in the archive.
func (a *Archive) Manifest() (string, bool) {
	for _, name := range a.Names {
		for _, m := range ManifestNames {
			if name == m {
				return name, true
			}
		}
	}
	return "", false
}

// Tags decodes the archive's item tag manifest into a tag lookup.
func (a *Archive) Tags() (map[string]string, error) {
	name, ok := a.Manifest()
	if !ok {
		return nil, ErrNoManifest
	}
	data, err := a.Payload(name)
	if err != nil {
		return nil, err
	}

	tags := make(map[string]string)
	ParseTags(data, tags)
	return tags, nil
}

// LoadTags opens the archive at path and decodes its item tags.
func LoadTags(path string) (map[string]string, error) {
	a, err := Open(path)
	if err != nil {
		return nil, err
	}
	tags, err := a.Tags()
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return tags, nil
}

// ParseTags reads key=value lines into dst. Blank lines, comments starting
// with '#' and lines without '=' are skipped; later keys overwrite earlier
// ones. It returns the number of lines skipped for lacking a separator.
func ParseTags(data []byte, dst map[string]string) (malformed int) {
	s := bufio.NewScanner(bytes.NewReader(data))
	s.Buffer(make([]byte, 0, 4096), len(data)+1)

	for s.Scan() {
		line := strings.TrimSuffix(s.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			malformed++
			continue
		}
		dst[key] = val
	}
	return malformed
}
