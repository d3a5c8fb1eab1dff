package nbt

import (
	"fmt"
	"iter"
	"slices"

	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"

	"github.com/twinfer/nbt-plugin/internal/persist"
)

// List is an ordered sequence of tags that all share one element type.
// The element type is End only while the list is empty.
type List interface {
	Tag
	ElementType() TypeID
	Len() int
	IsEmpty() bool

	// Get returns element i. It panics if i is out of range.
	Get(i int) Tag
	All() iter.Seq2[int, Tag]
	Contains(t Tag) bool

	// Typed getters return the zero value, or def for the Or forms, when
	// i is out of range or element i is not of the requested kind.
	GetBool(i int) bool
	GetBoolOr(i int, def bool) bool
	GetByte(i int) int8
	GetByteOr(i int, def int8) int8
	GetShort(i int) int16
	GetShortOr(i int, def int16) int16
	GetInt(i int) int32
	GetIntOr(i int, def int32) int32
	GetLong(i int) int64
	GetLongOr(i int, def int64) int64
	GetFloat(i int) float32
	GetFloatOr(i int, def float32) float32
	GetDouble(i int) float64
	GetDoubleOr(i int, def float64) float64
	GetString(i int) string
	GetStringOr(i int, def string) string
	GetByteArray(i int) []byte
	GetByteArrayOr(i int, def []byte) []byte
	GetIntArray(i int) []int32
	GetIntArrayOr(i int, def []int32) []int32
	GetLongArray(i int) []int64
	GetLongArrayOr(i int, def []int64) []int64
	GetList(i int) List
	GetListOr(i int, def List) List
	GetCompound(i int) Compound
	GetCompoundOr(i int, def Compound) Compound

	// AsMutable returns the receiver if it is mutable, else a mutable
	// copy sharing the elements.
	AsMutable() *MutableList
	// AsImmutable returns the receiver if it is immutable, else a deep
	// frozen copy.
	AsImmutable() *ImmutableList
	// ToBuilder returns a builder seeded with the current elements.
	ToBuilder() *ListBuilder
}

// elements is the storage a listView reads from.
type elements interface {
	elementType() TypeID
	size() int
	at(i int) Tag
	each(yield func(int, Tag) bool)
}

// listView implements the read side of List over either storage.
type listView struct {
	src elements
}

func (v listView) ID() TypeID          { return TypeList }
func (v listView) Type() TagType       { return registry[TypeList] }
func (v listView) ElementType() TypeID { return v.src.elementType() }
func (v listView) Len() int            { return v.src.size() }
func (v listView) IsEmpty() bool       { return v.src.size() == 0 }

func (v listView) Get(i int) Tag {
	if i < 0 || i >= v.src.size() {
		panic(fmt.Sprintf("nbt: list index %d out of range [0:%d]", i, v.src.size()))
	}
	return v.src.at(i)
}

func (v listView) All() iter.Seq2[int, Tag] { return v.src.each }

func (v listView) Contains(t Tag) bool {
	found := false
	v.src.each(func(_ int, e Tag) bool {
		found = e.Equal(t)
		return !found
	})
	return found
}

// Tags copies the elements into a slice.
func (v listView) Tags() []Tag {
	out := make([]Tag, 0, v.src.size())
	for _, t := range v.All() {
		out = append(out, t)
	}
	return out
}

func (v listView) Write(w *kaitai.Writer) error {
	if err := w.WriteU1(uint8(v.src.elementType())); err != nil {
		return err
	}
	if err := w.WriteS4be(int32(v.src.size())); err != nil {
		return err
	}
	var err error
	v.src.each(func(_ int, t Tag) bool {
		err = t.Write(w)
		return err == nil
	})
	return err
}

func (v listView) Equal(other Tag) bool {
	o, ok := other.(List)
	if !ok || o.ElementType() != v.ElementType() || o.Len() != v.Len() {
		return false
	}
	for i, t := range v.All() {
		if !t.Equal(o.Get(i)) {
			return false
		}
	}
	return true
}

func (v listView) lookup(i int) Tag {
	if i < 0 || i >= v.src.size() {
		return nil
	}
	return v.src.at(i)
}

func (v listView) GetBool(i int) bool { return v.GetBoolOr(i, false) }

func (v listView) GetBoolOr(i int, def bool) bool {
	if t, ok := v.lookup(i).(*ByteTag); ok {
		return t.Bool()
	}
	return def
}

func (v listView) GetByte(i int) int8 { return v.GetByteOr(i, 0) }

func (v listView) GetByteOr(i int, def int8) int8 {
	if t, ok := v.lookup(i).(*ByteTag); ok {
		return t.value
	}
	return def
}

func (v listView) GetShort(i int) int16 { return v.GetShortOr(i, 0) }

func (v listView) GetShortOr(i int, def int16) int16 {
	if t, ok := v.lookup(i).(*ShortTag); ok {
		return t.value
	}
	return def
}

func (v listView) GetInt(i int) int32 { return v.GetIntOr(i, 0) }

func (v listView) GetIntOr(i int, def int32) int32 {
	if t, ok := v.lookup(i).(*IntTag); ok {
		return t.value
	}
	return def
}

func (v listView) GetLong(i int) int64 { return v.GetLongOr(i, 0) }

func (v listView) GetLongOr(i int, def int64) int64 {
	if t, ok := v.lookup(i).(*LongTag); ok {
		return t.value
	}
	return def
}

func (v listView) GetFloat(i int) float32 { return v.GetFloatOr(i, 0) }

func (v listView) GetFloatOr(i int, def float32) float32 {
	if t, ok := v.lookup(i).(*FloatTag); ok {
		return t.value
	}
	return def
}

func (v listView) GetDouble(i int) float64 { return v.GetDoubleOr(i, 0) }

func (v listView) GetDoubleOr(i int, def float64) float64 {
	if t, ok := v.lookup(i).(*DoubleTag); ok {
		return t.value
	}
	return def
}

func (v listView) GetString(i int) string { return v.GetStringOr(i, "") }

func (v listView) GetStringOr(i int, def string) string {
	if t, ok := v.lookup(i).(*StringTag); ok {
		return t.value
	}
	return def
}

func (v listView) GetByteArray(i int) []byte { return v.GetByteArrayOr(i, nil) }

func (v listView) GetByteArrayOr(i int, def []byte) []byte {
	if t, ok := v.lookup(i).(*ByteArrayTag); ok {
		return t.data
	}
	return def
}

func (v listView) GetIntArray(i int) []int32 { return v.GetIntArrayOr(i, nil) }

func (v listView) GetIntArrayOr(i int, def []int32) []int32 {
	if t, ok := v.lookup(i).(*IntArrayTag); ok {
		return t.data
	}
	return def
}

func (v listView) GetLongArray(i int) []int64 { return v.GetLongArrayOr(i, nil) }

func (v listView) GetLongArrayOr(i int, def []int64) []int64 {
	if t, ok := v.lookup(i).(*LongArrayTag); ok {
		return t.data
	}
	return def
}

func (v listView) GetList(i int) List { return v.GetListOr(i, EmptyList) }

func (v listView) GetListOr(i int, def List) List {
	if t, ok := v.lookup(i).(List); ok {
		return t
	}
	return def
}

func (v listView) GetCompound(i int) Compound { return v.GetCompoundOr(i, EmptyCompound) }

func (v listView) GetCompoundOr(i int, def Compound) Compound {
	if t, ok := v.lookup(i).(Compound); ok {
		return t
	}
	return def
}

// checkElement validates t for a list currently typed elem holding n
// elements, and returns the element type the list has after accepting it.
func checkElement(elem TypeID, n int, t Tag) (TypeID, error) {
	if t == nil || t.ID() == TypeEnd {
		return elem, fmt.Errorf("%w: lists cannot hold End tags", ErrUnsupportedOperation)
	}
	if n == 0 {
		return t.ID(), nil
	}
	if t.ID() != elem {
		return elem, fmt.Errorf("%w: cannot add %s to a list of %s", ErrUnsupportedOperation, t.ID(), elem)
	}
	return elem, nil
}

// ImmutableList is a persistent list. Mutators return a new list and
// leave the receiver untouched; unchanged structure is shared.
type ImmutableList struct {
	listView
	vec  persist.Vector[Tag]
	elem TypeID
}

// EmptyList is the shared empty immutable list with element type End.
var EmptyList *ImmutableList

func init() {
	EmptyList = newImmutableList(persist.Vector[Tag]{}, TypeEnd)
	EmptyCompound = newImmutableCompound(persist.Map[Tag]{})
}

func newImmutableList(vec persist.Vector[Tag], elem TypeID) *ImmutableList {
	if vec.Len() == 0 && elem == TypeEnd && EmptyList != nil {
		return EmptyList
	}
	l := &ImmutableList{vec: vec, elem: elem}
	l.listView = listView{src: l}
	return l
}

// ListOf builds an immutable list of elem from tags. Every tag must have
// id elem; elem may be End only when tags is empty.
func ListOf(elem TypeID, tags ...Tag) (*ImmutableList, error) {
	if len(tags) == 0 {
		return newImmutableList(persist.Vector[Tag]{}, elem), nil
	}
	frozen := make([]Tag, len(tags))
	for i, t := range tags {
		if t == nil || t.ID() != elem || elem == TypeEnd {
			return nil, fmt.Errorf("%w: element %d does not match list type %s", ErrUnsupportedOperation, i, elem)
		}
		frozen[i] = freeze(t)
	}
	return newImmutableList(persist.VectorOf(frozen...), elem), nil
}

func (l *ImmutableList) elementType() TypeID { return l.elem }
func (l *ImmutableList) size() int           { return l.vec.Len() }
func (l *ImmutableList) at(i int) Tag        { return l.vec.Get(i) }

func (l *ImmutableList) each(yield func(int, Tag) bool) {
	for i, t := range l.vec.All() {
		if !yield(i, t) {
			return
		}
	}
}

// Copy returns the receiver.
func (l *ImmutableList) Copy() Tag { return l }

func (l *ImmutableList) AsImmutable() *ImmutableList { return l }

func (l *ImmutableList) AsMutable() *MutableList {
	return newMutableList(l.vec.Slice(), l.elem)
}

func (l *ImmutableList) ToBuilder() *ListBuilder {
	return &ListBuilder{list: l.AsMutable()}
}

// Add returns a list with t appended.
func (l *ImmutableList) Add(t Tag) (*ImmutableList, error) {
	return l.Insert(l.vec.Len(), t)
}

// AddAll returns a list with tags appended. Nothing is added if any tag
// is rejected.
func (l *ImmutableList) AddAll(tags ...Tag) (*ImmutableList, error) {
	vec, elem := l.vec, l.elem
	for _, t := range tags {
		var err error
		if elem, err = checkElement(elem, vec.Len(), t); err != nil {
			return l, err
		}
		vec = vec.Append(freeze(t))
	}
	return newImmutableList(vec, elem), nil
}

// Insert returns a list with t placed before element i. i may equal Len.
func (l *ImmutableList) Insert(i int, t Tag) (*ImmutableList, error) {
	if i < 0 || i > l.vec.Len() {
		return l, indexErr(i, l.vec.Len())
	}
	elem, err := checkElement(l.elem, l.vec.Len(), t)
	if err != nil {
		return l, err
	}
	return newImmutableList(l.vec.Insert(i, freeze(t)), elem), nil
}

// Set returns a list with element i replaced by t.
func (l *ImmutableList) Set(i int, t Tag) (*ImmutableList, error) {
	if i < 0 || i >= l.vec.Len() {
		return l, indexErr(i, l.vec.Len())
	}
	elem, err := checkElement(l.elem, l.vec.Len(), t)
	if err != nil {
		return l, err
	}
	return newImmutableList(l.vec.Set(i, freeze(t)), elem), nil
}

// RemoveAt returns a list without element i. Removing the last element
// yields EmptyList.
func (l *ImmutableList) RemoveAt(i int) (*ImmutableList, error) {
	if i < 0 || i >= l.vec.Len() {
		return l, indexErr(i, l.vec.Len())
	}
	if l.vec.Len() == 1 {
		return EmptyList, nil
	}
	return newImmutableList(l.vec.Delete(i), l.elem), nil
}

// Remove returns a list without the first element equal to t, or the
// receiver if there is none.
func (l *ImmutableList) Remove(t Tag) *ImmutableList {
	for i, e := range l.vec.All() {
		if e.Equal(t) {
			out, _ := l.RemoveAt(i)
			return out
		}
	}
	return l
}

// RemoveIf returns a list without the elements matching pred.
func (l *ImmutableList) RemoveIf(pred func(Tag) bool) *ImmutableList {
	kept := make([]Tag, 0, l.vec.Len())
	for _, e := range l.vec.All() {
		if !pred(e) {
			kept = append(kept, e)
		}
	}
	switch {
	case len(kept) == l.vec.Len():
		return l
	case len(kept) == 0:
		return EmptyList
	}
	return newImmutableList(persist.VectorOf(kept...), l.elem)
}

// MutableList is a list that changes in place.
type MutableList struct {
	listView
	tags []Tag
	elem TypeID
}

func newMutableList(tags []Tag, elem TypeID) *MutableList {
	if len(tags) == 0 {
		elem = TypeEnd
	}
	l := &MutableList{tags: tags, elem: elem}
	l.listView = listView{src: l}
	return l
}

// NewMutableList returns an empty mutable list.
func NewMutableList() *MutableList { return newMutableList(nil, TypeEnd) }

// MutableListOf returns a mutable list holding tags, which must all have
// the same id.
func MutableListOf(tags ...Tag) (*MutableList, error) {
	l := NewMutableList()
	if err := l.AddAll(tags...); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *MutableList) elementType() TypeID { return l.elem }
func (l *MutableList) size() int           { return len(l.tags) }
func (l *MutableList) at(i int) Tag        { return l.tags[i] }

func (l *MutableList) each(yield func(int, Tag) bool) {
	for i, t := range l.tags {
		if !yield(i, t) {
			return
		}
	}
}

// Copy returns a deep copy.
func (l *MutableList) Copy() Tag {
	tags := make([]Tag, len(l.tags))
	for i, t := range l.tags {
		tags[i] = t.Copy()
	}
	return newMutableList(tags, l.elem)
}

func (l *MutableList) AsMutable() *MutableList { return l }

// AsImmutable freezes l deeply. An empty list keeps its element type and
// collapses to EmptyList only when that type is End.
func (l *MutableList) AsImmutable() *ImmutableList {
	if len(l.tags) == 0 {
		return newImmutableList(persist.Vector[Tag]{}, l.elem)
	}
	frozen := make([]Tag, len(l.tags))
	for i, t := range l.tags {
		frozen[i] = freeze(t)
	}
	return newImmutableList(persist.VectorOf(frozen...), l.elem)
}

func (l *MutableList) ToBuilder() *ListBuilder {
	return &ListBuilder{list: newMutableList(slices.Clone(l.tags), l.elem)}
}

// Add appends t.
func (l *MutableList) Add(t Tag) error {
	return l.Insert(len(l.tags), t)
}

// AddAll appends tags. Nothing is added if any tag is rejected.
func (l *MutableList) AddAll(tags ...Tag) error {
	elem, n := l.elem, len(l.tags)
	for _, t := range tags {
		var err error
		if elem, err = checkElement(elem, n, t); err != nil {
			return err
		}
		n++
	}
	l.tags = append(l.tags, tags...)
	l.elem = elem
	return nil
}

// Insert places t before element i. i may equal Len.
func (l *MutableList) Insert(i int, t Tag) error {
	if i < 0 || i > len(l.tags) {
		return indexErr(i, len(l.tags))
	}
	elem, err := checkElement(l.elem, len(l.tags), t)
	if err != nil {
		return err
	}
	l.tags = slices.Insert(l.tags, i, t)
	l.elem = elem
	return nil
}

// Set replaces element i with t.
func (l *MutableList) Set(i int, t Tag) error {
	if i < 0 || i >= len(l.tags) {
		return indexErr(i, len(l.tags))
	}
	if _, err := checkElement(l.elem, len(l.tags), t); err != nil {
		return err
	}
	l.tags[i] = t
	return nil
}

// RemoveAt deletes element i.
func (l *MutableList) RemoveAt(i int) error {
	if i < 0 || i >= len(l.tags) {
		return indexErr(i, len(l.tags))
	}
	l.tags = slices.Delete(l.tags, i, i+1)
	if len(l.tags) == 0 {
		l.elem = TypeEnd
	}
	return nil
}

// Remove deletes the first element equal to t and reports whether one
// was found.
func (l *MutableList) Remove(t Tag) bool {
	i := slices.IndexFunc(l.tags, t.Equal)
	if i < 0 {
		return false
	}
	_ = l.RemoveAt(i)
	return true
}

// RemoveIf deletes the elements matching pred and returns how many were
// removed.
func (l *MutableList) RemoveIf(pred func(Tag) bool) int {
	n := len(l.tags)
	l.tags = slices.DeleteFunc(l.tags, pred)
	if len(l.tags) == 0 {
		l.elem = TypeEnd
	}
	return n - len(l.tags)
}

// Clear removes every element.
func (l *MutableList) Clear() {
	clear(l.tags)
	l.tags = l.tags[:0]
	l.elem = TypeEnd
}

// ListBuilder accumulates elements for a list. The first rejected element
// is remembered and reported by the Build methods.
type ListBuilder struct {
	list *MutableList
	err  error
}

// NewListBuilder returns an empty builder.
func NewListBuilder() *ListBuilder {
	return &ListBuilder{list: NewMutableList()}
}

// Add appends t.
func (b *ListBuilder) Add(t Tag) *ListBuilder {
	if b.err == nil {
		b.err = b.list.Add(t)
	}
	return b
}

func (b *ListBuilder) AddBool(v bool) *ListBuilder        { return b.Add(Bool(v)) }
func (b *ListBuilder) AddByte(v int8) *ListBuilder        { return b.Add(Byte(v)) }
func (b *ListBuilder) AddShort(v int16) *ListBuilder      { return b.Add(Short(v)) }
func (b *ListBuilder) AddInt(v int32) *ListBuilder        { return b.Add(Int(v)) }
func (b *ListBuilder) AddLong(v int64) *ListBuilder       { return b.Add(Long(v)) }
func (b *ListBuilder) AddFloat(v float32) *ListBuilder    { return b.Add(Float(v)) }
func (b *ListBuilder) AddDouble(v float64) *ListBuilder   { return b.Add(Double(v)) }
func (b *ListBuilder) AddString(v string) *ListBuilder    { return b.Add(String(v)) }
func (b *ListBuilder) AddByteArray(v []byte) *ListBuilder { return b.Add(ByteArray(v)) }
func (b *ListBuilder) AddIntArray(v []int32) *ListBuilder { return b.Add(IntArray(v)) }
func (b *ListBuilder) AddLongArray(v []int64) *ListBuilder {
	return b.Add(LongArray(v))
}

// AddCompound appends a compound filled in by fn.
func (b *ListBuilder) AddCompound(fn func(*CompoundBuilder)) *ListBuilder {
	cb := NewCompoundBuilder()
	fn(cb)
	return b.Add(cb.BuildMutable())
}

// Len returns the number of accumulated elements.
func (b *ListBuilder) Len() int { return b.list.Len() }

// BuildImmutable freezes the accumulated elements.
func (b *ListBuilder) BuildImmutable() (*ImmutableList, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.list.AsImmutable(), nil
}

// BuildMutable returns a mutable list holding the accumulated elements.
// The builder stays usable.
func (b *ListBuilder) BuildMutable() (*MutableList, error) {
	if b.err != nil {
		return nil, b.err
	}
	return newMutableList(slices.Clone(b.list.tags), b.list.elem), nil
}
