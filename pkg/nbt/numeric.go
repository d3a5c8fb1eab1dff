package nbt

import (
	"math"

	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

// Short, Int and Long tags in [cacheLow, cacheHigh] are interned.
const (
	cacheLow  = -128
	cacheHigh = 1024
)

func buildCache[T any](mk func(v int) T) []T {
	c := make([]T, cacheHigh-cacheLow+1)
	for i := range c {
		c[i] = mk(i + cacheLow)
	}
	return c
}

func cached(v int64) bool { return v >= cacheLow && v <= cacheHigh }

var (
	byteCache = func() (c [256]*ByteTag) {
		for i := range c {
			c[i] = &ByteTag{value: int8(i)}
		}
		return c
	}()
	shortCache = buildCache(func(v int) *ShortTag { return &ShortTag{value: int16(v)} })
	intCache   = buildCache(func(v int) *IntTag { return &IntTag{value: int32(v)} })
	longCache  = buildCache(func(v int) *LongTag { return &LongTag{value: int64(v)} })
	floatZero  = &FloatTag{}
	doubleZero = &DoubleTag{}
)

// floorInt converts f to int32 rounding toward negative infinity,
// saturating at the int32 range. NaN converts to 0.
func floorInt(f float64) int32 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(math.Floor(f))
}

// floorLong is floorInt for the int64 range.
func floorLong(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(math.Floor(f))
}

// ByteTag holds an int8. Every value is interned.
type ByteTag struct{ value int8 }

// Byte returns the tag for v.
func Byte(v int8) *ByteTag { return byteCache[uint8(v)] }

// Bool returns Byte(1) for true and Byte(0) for false.
func Bool(b bool) *ByteTag {
	if b {
		return Byte(1)
	}
	return Byte(0)
}

func (t *ByteTag) Value() int8                  { return t.value }
func (t *ByteTag) Bool() bool                   { return t.value != 0 }
func (*ByteTag) ID() TypeID                     { return TypeByte }
func (*ByteTag) Type() TagType                  { return registry[TypeByte] }
func (t *ByteTag) Write(w *kaitai.Writer) error { return w.WriteS1(t.value) }
func (t *ByteTag) Copy() Tag                    { return t }
func (t *ByteTag) ToByte() int8                 { return t.value }
func (t *ByteTag) ToShort() int16               { return int16(t.value) }
func (t *ByteTag) ToInt() int32                 { return int32(t.value) }
func (t *ByteTag) ToLong() int64                { return int64(t.value) }
func (t *ByteTag) ToFloat() float32             { return float32(t.value) }
func (t *ByteTag) ToDouble() float64            { return float64(t.value) }

func (t *ByteTag) Equal(other Tag) bool {
	o, ok := other.(*ByteTag)
	return ok && o.value == t.value
}

// ShortTag holds an int16.
type ShortTag struct{ value int16 }

// Short returns the tag for v, interned for small values.
func Short(v int16) *ShortTag {
	if cached(int64(v)) {
		return shortCache[int(v)-cacheLow]
	}
	return &ShortTag{value: v}
}

func (t *ShortTag) Value() int16                 { return t.value }
func (*ShortTag) ID() TypeID                     { return TypeShort }
func (*ShortTag) Type() TagType                  { return registry[TypeShort] }
func (t *ShortTag) Write(w *kaitai.Writer) error { return w.WriteS2be(t.value) }
func (t *ShortTag) Copy() Tag                    { return t }
func (t *ShortTag) ToByte() int8                 { return int8(t.value) }
func (t *ShortTag) ToShort() int16               { return t.value }
func (t *ShortTag) ToInt() int32                 { return int32(t.value) }
func (t *ShortTag) ToLong() int64                { return int64(t.value) }
func (t *ShortTag) ToFloat() float32             { return float32(t.value) }
func (t *ShortTag) ToDouble() float64            { return float64(t.value) }

func (t *ShortTag) Equal(other Tag) bool {
	o, ok := other.(*ShortTag)
	return ok && o.value == t.value
}

// IntTag holds an int32.
type IntTag struct{ value int32 }

// Int returns the tag for v, interned for small values.
func Int(v int32) *IntTag {
	if cached(int64(v)) {
		return intCache[int(v)-cacheLow]
	}
	return &IntTag{value: v}
}

func (t *IntTag) Value() int32                 { return t.value }
func (*IntTag) ID() TypeID                     { return TypeInt }
func (*IntTag) Type() TagType                  { return registry[TypeInt] }
func (t *IntTag) Write(w *kaitai.Writer) error { return w.WriteS4be(t.value) }
func (t *IntTag) Copy() Tag                    { return t }
func (t *IntTag) ToByte() int8                 { return int8(t.value) }
func (t *IntTag) ToShort() int16               { return int16(t.value) }
func (t *IntTag) ToInt() int32                 { return t.value }
func (t *IntTag) ToLong() int64                { return int64(t.value) }
func (t *IntTag) ToFloat() float32             { return float32(t.value) }
func (t *IntTag) ToDouble() float64            { return float64(t.value) }

func (t *IntTag) Equal(other Tag) bool {
	o, ok := other.(*IntTag)
	return ok && o.value == t.value
}

// LongTag holds an int64.
type LongTag struct{ value int64 }

// Long returns the tag for v, interned for small values.
func Long(v int64) *LongTag {
	if cached(v) {
		return longCache[int(v)-cacheLow]
	}
	return &LongTag{value: v}
}

func (t *LongTag) Value() int64                 { return t.value }
func (*LongTag) ID() TypeID                     { return TypeLong }
func (*LongTag) Type() TagType                  { return registry[TypeLong] }
func (t *LongTag) Write(w *kaitai.Writer) error { return w.WriteS8be(t.value) }
func (t *LongTag) Copy() Tag                    { return t }
func (t *LongTag) ToByte() int8                 { return int8(t.value) }
func (t *LongTag) ToShort() int16               { return int16(t.value) }
func (t *LongTag) ToInt() int32                 { return int32(t.value) }
func (t *LongTag) ToLong() int64                { return t.value }
func (t *LongTag) ToFloat() float32             { return float32(t.value) }
func (t *LongTag) ToDouble() float64            { return float64(t.value) }

func (t *LongTag) Equal(other Tag) bool {
	o, ok := other.(*LongTag)
	return ok && o.value == t.value
}

// FloatTag holds a float32. Integral conversions floor.
type FloatTag struct{ value float32 }

// Float returns the tag for v. Positive zero is interned.
func Float(v float32) *FloatTag {
	if math.Float32bits(v) == 0 {
		return floatZero
	}
	return &FloatTag{value: v}
}

func (t *FloatTag) Value() float32               { return t.value }
func (*FloatTag) ID() TypeID                     { return TypeFloat }
func (*FloatTag) Type() TagType                  { return registry[TypeFloat] }
func (t *FloatTag) Write(w *kaitai.Writer) error { return w.WriteF4be(t.value) }
func (t *FloatTag) Copy() Tag                    { return t }
func (t *FloatTag) ToByte() int8                 { return int8(floorInt(float64(t.value))) }
func (t *FloatTag) ToShort() int16               { return int16(floorInt(float64(t.value))) }
func (t *FloatTag) ToInt() int32                 { return floorInt(float64(t.value)) }
func (t *FloatTag) ToLong() int64                { return floorLong(float64(t.value)) }
func (t *FloatTag) ToFloat() float32             { return t.value }
func (t *FloatTag) ToDouble() float64            { return float64(t.value) }

// Equal compares bit patterns, so NaN equals itself and -0 differs from 0.
func (t *FloatTag) Equal(other Tag) bool {
	o, ok := other.(*FloatTag)
	return ok && math.Float32bits(o.value) == math.Float32bits(t.value)
}

// DoubleTag holds a float64. Integral conversions floor.
type DoubleTag struct{ value float64 }

// Double returns the tag for v. Positive zero is interned.
func Double(v float64) *DoubleTag {
	if math.Float64bits(v) == 0 {
		return doubleZero
	}
	return &DoubleTag{value: v}
}

func (t *DoubleTag) Value() float64               { return t.value }
func (*DoubleTag) ID() TypeID                     { return TypeDouble }
func (*DoubleTag) Type() TagType                  { return registry[TypeDouble] }
func (t *DoubleTag) Write(w *kaitai.Writer) error { return w.WriteF8be(t.value) }
func (t *DoubleTag) Copy() Tag                    { return t }
func (t *DoubleTag) ToByte() int8                 { return int8(floorInt(t.value)) }
func (t *DoubleTag) ToShort() int16               { return int16(floorInt(t.value)) }
func (t *DoubleTag) ToInt() int32                 { return floorInt(t.value) }
func (t *DoubleTag) ToLong() int64                { return floorLong(t.value) }
func (t *DoubleTag) ToFloat() float32             { return float32(t.value) }
func (t *DoubleTag) ToDouble() float64            { return t.value }

// Equal compares bit patterns, so NaN equals itself and -0 differs from 0.
func (t *DoubleTag) Equal(other Tag) bool {
	o, ok := other.(*DoubleTag)
	return ok && math.Float64bits(o.value) == math.Float64bits(t.value)
}

func loadByte(s *kaitai.Stream) (Tag, error) {
	v, err := s.ReadS1()
	if err != nil {
		return nil, readErr(err)
	}
	return Byte(v), nil
}

func loadShort(s *kaitai.Stream) (Tag, error) {
	v, err := fixed(s, 2, s.ReadS2be)
	if err != nil {
		return nil, readErr(err)
	}
	return Short(v), nil
}

func loadInt(s *kaitai.Stream) (Tag, error) {
	v, err := fixed(s, 4, s.ReadS4be)
	if err != nil {
		return nil, readErr(err)
	}
	return Int(v), nil
}

func loadLong(s *kaitai.Stream) (Tag, error) {
	v, err := fixed(s, 8, s.ReadS8be)
	if err != nil {
		return nil, readErr(err)
	}
	return Long(v), nil
}

func loadFloat(s *kaitai.Stream) (Tag, error) {
	v, err := fixed(s, 4, s.ReadF4be)
	if err != nil {
		return nil, readErr(err)
	}
	return Float(v), nil
}

func loadDouble(s *kaitai.Stream) (Tag, error) {
	v, err := fixed(s, 8, s.ReadF8be)
	if err != nil {
		return nil, readErr(err)
	}
	return Double(v), nil
}

func parseByte(s *kaitai.Stream, v StreamingVisitor) (ValueResult, error) {
	x, err := s.ReadS1()
	if err != nil {
		return Halt, readErr(err)
	}
	return v.VisitByte(x), nil
}

func parseShort(s *kaitai.Stream, v StreamingVisitor) (ValueResult, error) {
	x, err := fixed(s, 2, s.ReadS2be)
	if err != nil {
		return Halt, readErr(err)
	}
	return v.VisitShort(x), nil
}

func parseInt(s *kaitai.Stream, v StreamingVisitor) (ValueResult, error) {
	x, err := fixed(s, 4, s.ReadS4be)
	if err != nil {
		return Halt, readErr(err)
	}
	return v.VisitInt(x), nil
}

func parseLong(s *kaitai.Stream, v StreamingVisitor) (ValueResult, error) {
	x, err := fixed(s, 8, s.ReadS8be)
	if err != nil {
		return Halt, readErr(err)
	}
	return v.VisitLong(x), nil
}

func parseFloat(s *kaitai.Stream, v StreamingVisitor) (ValueResult, error) {
	x, err := fixed(s, 4, s.ReadF4be)
	if err != nil {
		return Halt, readErr(err)
	}
	return v.VisitFloat(x), nil
}

func parseDouble(s *kaitai.Stream, v StreamingVisitor) (ValueResult, error) {
	x, err := fixed(s, 8, s.ReadF8be)
	if err != nil {
		return Halt, readErr(err)
	}
	return v.VisitDouble(x), nil
}
