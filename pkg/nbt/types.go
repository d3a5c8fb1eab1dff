package nbt

import (
	"fmt"
	"io"

	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

// TypeID is the one byte wire identifier of a tag kind.
type TypeID uint8

const (
	TypeEnd TypeID = iota
	TypeByte
	TypeShort
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeByteArray
	TypeString
	TypeList
	TypeCompound
	TypeIntArray
	TypeLongArray

	typeCount = int(TypeLongArray) + 1
)

// TypeAnyNumber is a query-only id accepted by Compound.ContainsType. It
// matches every numeric scalar kind and never appears on the wire.
const TypeAnyNumber TypeID = 99

// MaxDepth is the nesting ceiling for loading, parsing and skipping. The
// root value sits at depth 0, so a container at depth MaxDepth is rejected.
const MaxDepth = 512

// String returns the machine name of the kind, e.g. "COMPOUND".
func (id TypeID) String() string {
	return TypeOf(int(id)).Name()
}

// IsNumber reports whether id names a numeric scalar kind.
func (id TypeID) IsNumber() bool {
	return id >= TypeByte && id <= TypeDouble
}

// TagType describes how one tag kind is read, parsed and skipped.
// Descriptors are stateless and shared process-wide.
type TagType interface {
	ID() TypeID
	Name() string
	PrettyName() string

	// IsValue is true for scalar and string kinds. Values never need a
	// deep copy.
	IsValue() bool

	// Load materializes one value. depth is the nesting level of the
	// value being read.
	Load(s *kaitai.Stream, depth int) (Tag, error)

	// Parse feeds one value to a streaming visitor. The stream is left
	// positioned after the value whatever the visitor decides.
	Parse(s *kaitai.Stream, v StreamingVisitor) (ValueResult, error)

	// Skip advances past one value without decoding it.
	Skip(s *kaitai.Stream) error

	// SkipN advances past n consecutive values.
	SkipN(s *kaitai.Stream, n int) error

	parseAt(s *kaitai.Stream, v StreamingVisitor, depth int) (ValueResult, error)
	skipAt(s *kaitai.Stream, n, depth int) error
}

// StaticSizeType is implemented by kinds with a fixed encoded width.
type StaticSizeType interface {
	TagType
	Size() int
}

var registry [typeCount]TagType

func init() {
	registry = [typeCount]TagType{
		&staticType{
			descriptor: descriptor{TypeEnd, "END", "TAG_End", true},
			load:       func(*kaitai.Stream) (Tag, error) { return End, nil },
			parse: func(_ *kaitai.Stream, v StreamingVisitor) (ValueResult, error) {
				return v.VisitEnd(), nil
			},
		},
		&staticType{
			descriptor: descriptor{TypeByte, "BYTE", "TAG_Byte", true},
			size:       1,
			load:       loadByte,
			parse:      parseByte,
		},
		&staticType{
			descriptor: descriptor{TypeShort, "SHORT", "TAG_Short", true},
			size:       2,
			load:       loadShort,
			parse:      parseShort,
		},
		&staticType{
			descriptor: descriptor{TypeInt, "INT", "TAG_Int", true},
			size:       4,
			load:       loadInt,
			parse:      parseInt,
		},
		&staticType{
			descriptor: descriptor{TypeLong, "LONG", "TAG_Long", true},
			size:       8,
			load:       loadLong,
			parse:      parseLong,
		},
		&staticType{
			descriptor: descriptor{TypeFloat, "FLOAT", "TAG_Float", true},
			size:       4,
			load:       loadFloat,
			parse:      parseFloat,
		},
		&staticType{
			descriptor: descriptor{TypeDouble, "DOUBLE", "TAG_Double", true},
			size:       8,
			load:       loadDouble,
			parse:      parseDouble,
		},
		&variableType{
			descriptor: descriptor{TypeByteArray, "BYTE[]", "TAG_Byte_Array", false},
			load:       loadByteArray,
			parse:      parseByteArray,
			skip:       skipArray(1),
		},
		&variableType{
			descriptor: descriptor{TypeString, "STRING", "TAG_String", true},
			load:       loadString,
			parse:      parseString,
			skip:       func(s *kaitai.Stream, _ int) error { return skipString(s) },
		},
		&variableType{
			descriptor: descriptor{TypeList, "LIST", "TAG_List", false},
			load:       loadList,
			parse:      parseList,
			skip:       skipList,
		},
		&variableType{
			descriptor: descriptor{TypeCompound, "COMPOUND", "TAG_Compound", false},
			load:       loadCompound,
			parse:      parseCompound,
			skip:       skipCompound,
		},
		&variableType{
			descriptor: descriptor{TypeIntArray, "INT[]", "TAG_Int_Array", false},
			load:       loadIntArray,
			parse:      parseIntArray,
			skip:       skipArray(4),
		},
		&variableType{
			descriptor: descriptor{TypeLongArray, "LONG[]", "TAG_Long_Array", false},
			load:       loadLongArray,
			parse:      parseLongArray,
			skip:       skipArray(8),
		},
	}
}

// TypeOf returns the descriptor for id. Ids outside 0..12 yield a
// descriptor whose every operation fails with an *InvalidTypeError.
func TypeOf(id int) TagType {
	if id >= 0 && id < typeCount {
		return registry[id]
	}
	return &invalidType{id: id}
}

type descriptor struct {
	id     TypeID
	name   string
	pretty string
	value  bool
}

func (d *descriptor) ID() TypeID         { return d.id }
func (d *descriptor) Name() string       { return d.name }
func (d *descriptor) PrettyName() string { return d.pretty }
func (d *descriptor) IsValue() bool      { return d.value }
func (d *descriptor) String() string     { return d.pretty }

type staticType struct {
	descriptor
	size  int
	load  func(s *kaitai.Stream) (Tag, error)
	parse func(s *kaitai.Stream, v StreamingVisitor) (ValueResult, error)
}

func (t *staticType) Size() int { return t.size }

func (t *staticType) Load(s *kaitai.Stream, _ int) (Tag, error) { return t.load(s) }

func (t *staticType) Parse(s *kaitai.Stream, v StreamingVisitor) (ValueResult, error) {
	return t.parse(s, v)
}

func (t *staticType) Skip(s *kaitai.Stream) error { return t.skipAt(s, 1, 0) }

func (t *staticType) SkipN(s *kaitai.Stream, n int) error { return t.skipAt(s, n, 0) }

func (t *staticType) parseAt(s *kaitai.Stream, v StreamingVisitor, _ int) (ValueResult, error) {
	return t.parse(s, v)
}

func (t *staticType) skipAt(s *kaitai.Stream, n, _ int) error {
	return seek(s, int64(n)*int64(t.size))
}

type variableType struct {
	descriptor
	load  func(s *kaitai.Stream, depth int) (Tag, error)
	parse func(s *kaitai.Stream, v StreamingVisitor, depth int) (ValueResult, error)
	skip  func(s *kaitai.Stream, depth int) error
}

func (t *variableType) Load(s *kaitai.Stream, depth int) (Tag, error) { return t.load(s, depth) }

func (t *variableType) Parse(s *kaitai.Stream, v StreamingVisitor) (ValueResult, error) {
	return t.parse(s, v, 0)
}

func (t *variableType) Skip(s *kaitai.Stream) error { return t.skip(s, 0) }

func (t *variableType) SkipN(s *kaitai.Stream, n int) error { return t.skipAt(s, n, 0) }

func (t *variableType) parseAt(s *kaitai.Stream, v StreamingVisitor, depth int) (ValueResult, error) {
	return t.parse(s, v, depth)
}

func (t *variableType) skipAt(s *kaitai.Stream, n, depth int) error {
	for range n {
		if err := t.skip(s, depth); err != nil {
			return err
		}
	}
	return nil
}

type invalidType struct {
	id int
}

func (t *invalidType) ID() TypeID         { return TypeID(t.id) }
func (t *invalidType) Name() string       { return fmt.Sprintf("INVALID[%d]", t.id) }
func (t *invalidType) PrettyName() string { return fmt.Sprintf("UNKNOWN_%d", t.id) }
func (t *invalidType) IsValue() bool      { return false }
func (t *invalidType) String() string     { return t.PrettyName() }

func (t *invalidType) err() error { return &InvalidTypeError{ID: t.id} }

func (t *invalidType) Load(*kaitai.Stream, int) (Tag, error) { return nil, t.err() }

func (t *invalidType) Parse(*kaitai.Stream, StreamingVisitor) (ValueResult, error) {
	return Halt, t.err()
}

func (t *invalidType) Skip(*kaitai.Stream) error { return t.err() }

func (t *invalidType) SkipN(*kaitai.Stream, int) error { return t.err() }

func (t *invalidType) parseAt(*kaitai.Stream, StreamingVisitor, int) (ValueResult, error) {
	return Halt, t.err()
}

func (t *invalidType) skipAt(*kaitai.Stream, int, int) error { return t.err() }

func isInvalid(t TagType) bool {
	_, ok := t.(*invalidType)
	return ok
}

// remaining reports how many bytes are left after the cursor.
func remaining(s *kaitai.Stream) (int64, error) {
	pos, err := s.Pos()
	if err != nil {
		return 0, err
	}
	size, err := s.Size()
	if err != nil {
		return 0, err
	}
	return size - pos, nil
}

// seek advances the cursor by n bytes, failing if that runs past the end.
func seek(s *kaitai.Stream, n int64) error {
	if n == 0 {
		return nil
	}
	if err := need(s, n); err != nil {
		return err
	}
	_, err := s.Seek(n, io.SeekCurrent)
	return err
}

// fixed runs a fixed-width read of width bytes once need confirms they
// are all there. The stream fills short reads from a stale buffer
// without an error, so no multi-byte read may skip this check.
func fixed[T any](s *kaitai.Stream, width int64, read func() (T, error)) (T, error) {
	var zero T
	if err := need(s, width); err != nil {
		return zero, err
	}
	v, err := read()
	if err != nil {
		return zero, readErr(err)
	}
	return v, nil
}

// need fails with ErrMalformed unless at least n bytes remain.
func need(s *kaitai.Stream, n int64) error {
	left, err := remaining(s)
	if err != nil {
		return err
	}
	if n > left {
		return fmt.Errorf("%w: need %d bytes, %d left", ErrMalformed, n, left)
	}
	return nil
}
