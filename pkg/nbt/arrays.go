package nbt

import (
	"fmt"
	"slices"

	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

// array is the shared storage of the three array tags. Arrays are always
// mutable and change in place.
type array[E byte | int32 | int64] struct {
	data []E
}

// Len returns the number of elements.
func (a *array[E]) Len() int { return len(a.data) }

// Data returns the backing slice. Changes to it are visible in the tag.
func (a *array[E]) Data() []E { return a.data }

// Set replaces element i.
func (a *array[E]) Set(i int, v E) error {
	if i < 0 || i >= len(a.data) {
		return indexErr(i, len(a.data))
	}
	a.data[i] = v
	return nil
}

// Add appends v.
func (a *array[E]) Add(v E) { a.data = append(a.data, v) }

// Insert places v before element i. i may equal Len.
func (a *array[E]) Insert(i int, v E) error {
	if i < 0 || i > len(a.data) {
		return indexErr(i, len(a.data))
	}
	a.data = slices.Insert(a.data, i, v)
	return nil
}

// RemoveAt deletes element i.
func (a *array[E]) RemoveAt(i int) error {
	if i < 0 || i >= len(a.data) {
		return indexErr(i, len(a.data))
	}
	a.data = slices.Delete(a.data, i, i+1)
	return nil
}

// Clear removes every element.
func (a *array[E]) Clear() { a.data = a.data[:0] }

func (a *array[E]) writeLen(w *kaitai.Writer) error {
	return w.WriteS4be(int32(len(a.data)))
}

// ByteArrayTag is a sequence of raw bytes.
type ByteArrayTag struct{ array[byte] }

// ByteArray wraps data without copying it.
func ByteArray(data []byte) *ByteArrayTag {
	return &ByteArrayTag{array[byte]{data: data}}
}

// Get returns element i as a tag. It panics if i is out of range.
func (t *ByteArrayTag) Get(i int) *ByteTag { return Byte(int8(t.data[i])) }

func (*ByteArrayTag) ID() TypeID    { return TypeByteArray }
func (*ByteArrayTag) Type() TagType { return registry[TypeByteArray] }
func (t *ByteArrayTag) Copy() Tag   { return ByteArray(slices.Clone(t.data)) }

func (t *ByteArrayTag) Write(w *kaitai.Writer) error {
	if err := t.writeLen(w); err != nil {
		return err
	}
	return w.WriteBytes(t.data)
}

func (t *ByteArrayTag) Equal(other Tag) bool {
	o, ok := other.(*ByteArrayTag)
	return ok && slices.Equal(o.data, t.data)
}

// IntArrayTag is a sequence of int32.
type IntArrayTag struct{ array[int32] }

// IntArray wraps data without copying it.
func IntArray(data []int32) *IntArrayTag {
	return &IntArrayTag{array[int32]{data: data}}
}

// Get returns element i as a tag. It panics if i is out of range.
func (t *IntArrayTag) Get(i int) *IntTag { return Int(t.data[i]) }

func (*IntArrayTag) ID() TypeID    { return TypeIntArray }
func (*IntArrayTag) Type() TagType { return registry[TypeIntArray] }
func (t *IntArrayTag) Copy() Tag   { return IntArray(slices.Clone(t.data)) }

func (t *IntArrayTag) Write(w *kaitai.Writer) error {
	if err := t.writeLen(w); err != nil {
		return err
	}
	for _, v := range t.data {
		if err := w.WriteS4be(v); err != nil {
			return err
		}
	}
	return nil
}

func (t *IntArrayTag) Equal(other Tag) bool {
	o, ok := other.(*IntArrayTag)
	return ok && slices.Equal(o.data, t.data)
}

// LongArrayTag is a sequence of int64.
type LongArrayTag struct{ array[int64] }

// LongArray wraps data without copying it.
func LongArray(data []int64) *LongArrayTag {
	return &LongArrayTag{array[int64]{data: data}}
}

// Get returns element i as a tag. It panics if i is out of range.
func (t *LongArrayTag) Get(i int) *LongTag { return Long(t.data[i]) }

func (*LongArrayTag) ID() TypeID    { return TypeLongArray }
func (*LongArrayTag) Type() TagType { return registry[TypeLongArray] }
func (t *LongArrayTag) Copy() Tag   { return LongArray(slices.Clone(t.data)) }

func (t *LongArrayTag) Write(w *kaitai.Writer) error {
	if err := t.writeLen(w); err != nil {
		return err
	}
	for _, v := range t.data {
		if err := w.WriteS8be(v); err != nil {
			return err
		}
	}
	return nil
}

func (t *LongArrayTag) Equal(other Tag) bool {
	o, ok := other.(*LongArrayTag)
	return ok && slices.Equal(o.data, t.data)
}

// readCount reads a signed element count and checks that at least
// count*width bytes remain, so a corrupt count cannot force a huge
// allocation.
func readCount(s *kaitai.Stream, width int64) (int, error) {
	n, err := fixed(s, 4, s.ReadS4be)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative length %d", ErrMalformed, n)
	}
	if err := need(s, int64(n)*width); err != nil {
		return 0, err
	}
	return int(n), nil
}

func readByteArray(s *kaitai.Stream) ([]byte, error) {
	n, err := readCount(s, 1)
	if err != nil {
		return nil, err
	}
	b, err := s.ReadBytes(n)
	if err != nil {
		return nil, readErr(err)
	}
	return b, nil
}

func readIntArray(s *kaitai.Stream) ([]int32, error) {
	n, err := readCount(s, 4)
	if err != nil {
		return nil, err
	}
	data := make([]int32, n)
	for i := range data {
		if data[i], err = s.ReadS4be(); err != nil {
			return nil, readErr(err)
		}
	}
	return data, nil
}

func readLongArray(s *kaitai.Stream) ([]int64, error) {
	n, err := readCount(s, 8)
	if err != nil {
		return nil, err
	}
	data := make([]int64, n)
	for i := range data {
		if data[i], err = s.ReadS8be(); err != nil {
			return nil, readErr(err)
		}
	}
	return data, nil
}

func loadByteArray(s *kaitai.Stream, _ int) (Tag, error) {
	b, err := readByteArray(s)
	if err != nil {
		return nil, err
	}
	return ByteArray(b), nil
}

func loadIntArray(s *kaitai.Stream, _ int) (Tag, error) {
	data, err := readIntArray(s)
	if err != nil {
		return nil, err
	}
	return IntArray(data), nil
}

func loadLongArray(s *kaitai.Stream, _ int) (Tag, error) {
	data, err := readLongArray(s)
	if err != nil {
		return nil, err
	}
	return LongArray(data), nil
}

func parseByteArray(s *kaitai.Stream, v StreamingVisitor, _ int) (ValueResult, error) {
	b, err := readByteArray(s)
	if err != nil {
		return Halt, err
	}
	return v.VisitByteArray(b), nil
}

func parseIntArray(s *kaitai.Stream, v StreamingVisitor, _ int) (ValueResult, error) {
	data, err := readIntArray(s)
	if err != nil {
		return Halt, err
	}
	return v.VisitIntArray(data), nil
}

func parseLongArray(s *kaitai.Stream, v StreamingVisitor, _ int) (ValueResult, error) {
	data, err := readLongArray(s)
	if err != nil {
		return Halt, err
	}
	return v.VisitLongArray(data), nil
}

// skipArray returns a skipper for arrays of elements width bytes wide:
// one read of the count, then one seek.
func skipArray(width int64) func(*kaitai.Stream, int) error {
	return func(s *kaitai.Stream, _ int) error {
		n, err := fixed(s, 4, s.ReadS4be)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("%w: negative length %d", ErrMalformed, n)
		}
		return seek(s, int64(n)*width)
	}
}
