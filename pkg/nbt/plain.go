package nbt

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// ToPlain converts t to plain Go values: int8, int16, int32, int64,
// float32, float64, string, []byte, []int32, []int64, []any and
// map[string]any. End converts to nil.
func ToPlain(t Tag) any {
	switch t := t.(type) {
	case *ByteTag:
		return t.value
	case *ShortTag:
		return t.value
	case *IntTag:
		return t.value
	case *LongTag:
		return t.value
	case *FloatTag:
		return t.value
	case *DoubleTag:
		return t.value
	case *StringTag:
		return t.value
	case *ByteArrayTag:
		return slices.Clone(t.data)
	case *IntArrayTag:
		return slices.Clone(t.data)
	case *LongArrayTag:
		return slices.Clone(t.data)
	case List:
		out := make([]any, 0, t.Len())
		for _, e := range t.All() {
			out = append(out, ToPlain(e))
		}
		return out
	case Compound:
		out := make(map[string]any, t.Len())
		for name, e := range t.All() {
			out[name] = ToPlain(e)
		}
		return out
	}
	return nil
}

// FromPlain converts plain Go values, including the shapes produced by
// encoding/json, to an immutable tag tree. Integers become the narrowest
// of Int or Long that holds them; non-integral numbers become Double.
// Map entries are stored in sorted key order.
func FromPlain(v any) (Tag, error) {
	switch v := v.(type) {
	case Tag:
		return freeze(v), nil
	case bool:
		return Bool(v), nil
	case int8:
		return Byte(v), nil
	case int16:
		return Short(v), nil
	case int32:
		return Int(v), nil
	case int64:
		return integer(v), nil
	case int:
		return integer(int64(v)), nil
	case uint8:
		return Short(int16(v)), nil
	case uint16:
		return Int(int32(v)), nil
	case uint32:
		return Long(int64(v)), nil
	case float32:
		return Float(v), nil
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
			return integer(int64(v)), nil
		}
		return Double(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return integer(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("converting number %q: %w", v.String(), err)
		}
		return Double(f), nil
	case string:
		return String(v), nil
	case []byte:
		return ByteArray(slices.Clone(v)), nil
	case []int32:
		return IntArray(slices.Clone(v)), nil
	case []int64:
		return LongArray(slices.Clone(v)), nil
	case []any:
		return listFromPlain(v)
	case map[string]any:
		return compoundFromPlain(v)
	case nil:
		return nil, fmt.Errorf("%w: nil has no tag form", ErrUnsupportedOperation)
	}
	return nil, fmt.Errorf("%w: cannot convert %T to a tag", ErrUnsupportedOperation, v)
}

func integer(v int64) Tag {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		return Int(int32(v))
	}
	return Long(v)
}

func listFromPlain(values []any) (Tag, error) {
	tags := make([]Tag, len(values))
	for i, e := range values {
		t, err := FromPlain(e)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		tags[i] = t
	}
	promoteNumbers(tags)

	b := NewListBuilder()
	for _, t := range tags {
		b.Add(t)
	}
	l, err := b.BuildImmutable()
	if err != nil {
		return nil, fmt.Errorf("mixed element types: %w", err)
	}
	return l, nil
}

// promoteNumbers widens a mix of Int, Long and Double elements, the kinds
// FromPlain picks for bare numbers, to the widest of them. Other mixes are
// left for the list builder to reject.
func promoteNumbers(tags []Tag) {
	widest := TypeEnd
	for _, t := range tags {
		switch id := t.ID(); id {
		case TypeInt, TypeLong, TypeDouble:
			if widest == TypeEnd || rank(id) > rank(widest) {
				widest = id
			}
		default:
			return
		}
	}
	for i, t := range tags {
		if t.ID() == widest {
			continue
		}
		n := t.(NumberTag)
		if widest == TypeLong {
			tags[i] = Long(n.ToLong())
		} else {
			tags[i] = Double(n.ToDouble())
		}
	}
}

func rank(id TypeID) int {
	switch id {
	case TypeLong:
		return 1
	case TypeDouble:
		return 2
	}
	return 0
}

func compoundFromPlain(values map[string]any) (Tag, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)
	b := NewCompoundBuilder()
	for _, name := range names {
		t, err := FromPlain(values[name])
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", name, err)
		}
		if t.ID() == TypeEnd {
			return nil, fmt.Errorf("entry %q: %w: End value", name, ErrUnsupportedOperation)
		}
		b.Put(name, t)
	}
	return b.BuildImmutable(), nil
}
