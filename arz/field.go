package arz

import (
	"math"
	"strconv"

	"github.com/bsm/gdstash/cursor"
	"github.com/pkg/errors"
)

// FieldType is the type code of a typed field entry.
type FieldType uint16

// Known field types. Any other code decodes as an integer.
const (
	TypeInt    FieldType = 0
	TypeFloat  FieldType = 1
	TypeString FieldType = 2
	TypeBool   FieldType = 3
)

// Value is a single decoded field value.
type Value struct {
	Type  FieldType
	Int   uint32
	Float float32
	Str   string
}

// Uint returns the value as an unsigned integer, truncating floats.
func (v Value) Uint() uint32 {
	if v.Type == TypeFloat {
		if v.Float <= 0 {
			return 0
		}
		return uint32(v.Float)
	}
	return v.Int
}

func (v Value) String() string {
	switch v.Type {
	case TypeFloat:
		return strconv.FormatFloat(float64(v.Float), 'g', -1, 32)
	case TypeString:
		return v.Str
	default:
		return strconv.FormatUint(uint64(v.Int), 10)
	}
}

// Field is one decoded typed field entry.
type Field struct {
	Key    string
	Type   FieldType
	Values []Value
}

type fieldHeader struct {
	typ   FieldType
	count int
	key   string
}

func readFieldHeader(c *cursor.Cursor, strs []string) (fieldHeader, error) {
	typ, err := c.Uint16()
	if err != nil {
		return fieldHeader{}, err
	}
	count, err := c.Uint16()
	if err != nil {
		return fieldHeader{}, err
	}
	idx, err := c.Uint32()
	if err != nil {
		return fieldHeader{}, err
	}
	key, err := lookup(strs, idx)
	if err != nil {
		return fieldHeader{}, errors.Wrap(err, "field key")
	}
	return fieldHeader{typ: FieldType(typ), count: int(count), key: key}, nil
}

func readValue(c *cursor.Cursor, typ FieldType, strs []string) (Value, error) {
	raw, err := c.Uint32()
	if err != nil {
		return Value{}, err
	}

	switch typ {
	case TypeFloat:
		return Value{Type: typ, Float: math.Float32frombits(raw)}, nil
	case TypeString:
		s, err := lookup(strs, raw)
		if err != nil {
			return Value{}, errors.Wrap(err, "field value")
		}
		return Value{Type: typ, Str: s}, nil
	default:
		return Value{Type: typ, Int: raw}, nil
	}
}

func lookup(strs []string, idx uint32) (string, error) {
	if uint64(idx) >= uint64(len(strs)) {
		return "", errors.Wrapf(errBadIndex, "%d of %d", idx, len(strs))
	}
	return strs[idx], nil
}

// decodeFields decodes every field entry of a payload.
func decodeFields(payload []byte, strs []string) ([]Field, error) {
	c := cursor.New(payload)
	words := len(payload) / 4

	var fields []Field
	for n := 0; n < words; {
		h, err := readFieldHeader(c, strs)
		if err != nil {
			return nil, err
		}
		n += 2 + h.count

		f := Field{Key: h.key, Type: h.typ, Values: make([]Value, 0, h.count)}
		for i := 0; i < h.count; i++ {
			v, err := readValue(c, h.typ, strs)
			if err != nil {
				return nil, errors.Wrapf(err, "field %q", h.key)
			}
			f.Values = append(f.Values, v)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// Field keys that carry entity attributes.
const (
	keyLootName       = "lootRandomizerName"
	keyItemName       = "itemNameTag"
	keyClassification = "itemClassification"
	keyDescription    = "description"
	keyItemLevel      = "itemLevel"
)

type attrs struct {
	tag, fallback, rarity string
	level                 uint32

	hasTag, hasRarity, hasLevel bool
}

func (a *attrs) set(key string, v Value) {
	switch key {
	case keyLootName, keyItemName:
		if v.Type == TypeString {
			a.tag, a.hasTag = v.Str, true
		}
	case keyClassification:
		if v.Type == TypeString {
			a.rarity, a.hasRarity = v.Str, true
		}
	case keyDescription:
		if v.Type == TypeString && a.fallback == "" {
			a.fallback = v.Str
		}
	case keyItemLevel:
		a.level, a.hasLevel = v.Uint(), true
	}
}

func (a *attrs) complete(cat Category) bool {
	switch cat {
	case CategoryAffix:
		return a.hasTag && a.hasRarity
	default:
		return a.hasTag && a.hasRarity && a.hasLevel
	}
}

// scanAttrs reads field entries until words 32-bit words have been
// accounted for, or stops as soon as every attribute cat needs is known.
// Bytes beyond that point are never inspected.
func scanAttrs(payload []byte, words int, strs []string, cat Category) (attrs, error) {
	c := cursor.New(payload)

	var a attrs
	for n := 0; n < words; {
		h, err := readFieldHeader(c, strs)
		if err != nil {
			return a, err
		}
		n += 2 + h.count

		for i := 0; i < h.count; i++ {
			v, err := readValue(c, h.typ, strs)
			if err != nil {
				return a, errors.Wrapf(err, "field %q", h.key)
			}
			a.set(h.key, v)
			if a.complete(cat) {
				return a, nil
			}
		}
	}
	return a, nil
}
