package save

import (
	"github.com/bsm/gdstash/crypt"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrBadMagic is returned when a character save does not start with the
	// expected magic number.
	ErrBadMagic = errors.New("save: bad magic")
	// ErrBadVersion is returned when a file or section version is unsupported.
	ErrBadVersion = errors.New("save: unsupported version")
	// ErrUnexpectedBlock is returned when a block opens with the wrong tag.
	ErrUnexpectedBlock = errors.New("save: unexpected block")
	// ErrInventoryFlag is returned when the inventory flag byte is zero,
	// which leaves the rest of the layout unknown.
	ErrInventoryFlag = errors.New("save: inventory flag not set")
)

const maxPrealloc = 1024

// Options configure decoding.
type Options struct {
	// Lenient downgrades block framing failures to logged warnings.
	// Decoding continues from the current position.
	Lenient bool

	// Logger receives lenient mode warnings.
	// Default: logrus.StandardLogger().
	Logger logrus.FieldLogger
}

func (o *Options) norm() *Options {
	var oo Options
	if o != nil {
		oo = *o
	}

	if oo.Logger == nil {
		oo.Logger = logrus.StandardLogger()
	}
	return &oo
}

// decoder wraps a crypt.Reader with a sticky error and a stack of open
// blocks. Once an error is recorded every read returns zero values.
type decoder struct {
	r    *crypt.Reader
	opt  *Options
	open []crypt.Block
	err  error
}

func newDecoder(buf []byte, o *Options) (*decoder, error) {
	r, err := crypt.NewReader(buf)
	if err != nil {
		return nil, err
	}
	return &decoder{r: r, opt: o.norm()}, nil
}

func (d *decoder) fail(err error) {
	if err == nil || d.err != nil {
		return
	}
	d.err = errors.WithMessagef(err, "at offset %d", d.r.Offset())
}

func (d *decoder) int() uint32 {
	if d.err != nil {
		return 0
	}
	v, err := d.r.ReadInt()
	d.fail(err)
	return v
}

func (d *decoder) next() uint32 {
	if d.err != nil {
		return 0
	}
	v, err := d.r.NextInt()
	d.fail(err)
	return v
}

func (d *decoder) byte() byte {
	if d.err != nil {
		return 0
	}
	v, err := d.r.ReadByte()
	d.fail(err)
	return v
}

func (d *decoder) bool() bool {
	return d.byte() != 0
}

func (d *decoder) str() string {
	if d.err != nil {
		return ""
	}
	s, err := d.r.ReadString()
	d.fail(err)
	return s
}

func (d *decoder) wide() string {
	if d.err != nil {
		return ""
	}
	s, err := d.r.ReadWideString()
	d.fail(err)
	return s
}

func (d *decoder) skip(n int) {
	if d.err != nil {
		return
	}
	d.fail(d.r.Skip(n))
}

// expect reads an integer and checks it against want.
func (d *decoder) expect(what string, want uint32) {
	if got := d.int(); d.err == nil && got != want {
		d.fail(errors.Wrapf(ErrBadVersion, "%s: expected %d, got %d", what, want, got))
	}
}

// begin opens a block and checks its tag unless tag is negative.
func (d *decoder) begin(tag int64) {
	if d.err != nil {
		return
	}
	b, err := d.r.ReadBlockStart()
	if err != nil {
		d.fail(err)
		return
	}
	if tag >= 0 && int64(b.Tag) != tag {
		d.fail(errors.Wrapf(ErrUnexpectedBlock, "expected tag %d, got %d", tag, b.Tag))
		return
	}
	d.open = append(d.open, b)
}

// end closes the innermost open block.
func (d *decoder) end() {
	if d.err != nil {
		return
	}
	if len(d.open) == 0 {
		d.fail(errors.New("save: block end without start"))
		return
	}
	b := d.open[len(d.open)-1]
	d.open = d.open[:len(d.open)-1]

	err := d.r.ReadBlockEnd(b)
	if err != nil && d.opt.Lenient && crypt.IsBlockError(err) {
		d.opt.Logger.WithFields(logrus.Fields{
			"tag":    b.Tag,
			"offset": d.r.Offset(),
			"end":    b.End,
		}).WithError(err).Warn("ignoring malformed block")
		return
	}
	d.fail(err)
}

// done returns the first recorded error, if any.
func (d *decoder) done() error {
	if d.err == nil && len(d.open) != 0 {
		d.err = errors.Errorf("save: %d blocks left open", len(d.open))
	}
	return d.err
}

func capHint(n uint32) int {
	if n > maxPrealloc {
		return maxPrealloc
	}
	return int(n)
}

func (d *decoder) item() Item {
	return Item{
		BaseName:      d.str(),
		PrefixName:    d.str(),
		SuffixName:    d.str(),
		ModifierName:  d.str(),
		TransmuteName: d.str(),
		Seed:          d.int(),
		ComponentName: d.str(),
		RelicBonus:    d.str(),
		RelicSeed:     d.int(),
		AugmentName:   d.str(),
		Unknown:       d.int(),
		AugmentSeed:   d.int(),
		Combines:      d.int(),
		StackCount:    d.int(),
	}
}

func (d *decoder) stashItem() StashItem {
	it := d.item()
	return StashItem{Item: it, X: d.int(), Y: d.int()}
}

func (d *decoder) stashItems() []StashItem {
	n := d.int()
	items := make([]StashItem, 0, capHint(n))
	for i := uint32(0); i < n && d.err == nil; i++ {
		items = append(items, d.stashItem())
	}
	return items
}

func (d *decoder) tab() Tab {
	d.begin(-1)
	t := Tab{Width: d.int(), Height: d.int()}
	t.Items = d.stashItems()
	d.end()
	return t
}

func (d *decoder) tabs() []Tab {
	n := d.int()
	tabs := make([]Tab, 0, capHint(n))
	for i := uint32(0); i < n && d.err == nil; i++ {
		tabs = append(tabs, d.tab())
	}
	return tabs
}
