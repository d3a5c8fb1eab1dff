package nbt

import (
	"fmt"
	"iter"
	"slices"

	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"

	"github.com/twinfer/nbt-plugin/internal/persist"
)

// Compound maps names to tags and iterates in insertion order. It never
// holds an End tag.
type Compound interface {
	Tag
	Len() int
	IsEmpty() bool
	Keys() []string
	All() iter.Seq2[string, Tag]
	Get(name string) (Tag, bool)

	// TypeOf returns the id stored under name, or TypeEnd if absent.
	TypeOf(name string) TypeID
	Contains(name string) bool
	// ContainsType reports whether name holds a tag of kind id.
	// TypeAnyNumber matches every numeric kind.
	ContainsType(name string, id TypeID) bool

	// Numeric getters accept any numeric tag and convert it. The plain
	// forms return zero when name is absent or not numeric.
	GetBool(name string) bool
	GetBoolOr(name string, def bool) bool
	GetByte(name string) int8
	GetByteOr(name string, def int8) int8
	GetShort(name string) int16
	GetShortOr(name string, def int16) int16
	GetInt(name string) int32
	GetIntOr(name string, def int32) int32
	GetLong(name string) int64
	GetLongOr(name string, def int64) int64
	GetFloat(name string) float32
	GetFloatOr(name string, def float32) float32
	GetDouble(name string) float64
	GetDoubleOr(name string, def float64) float64

	GetString(name string) string
	GetStringOr(name string, def string) string
	GetByteArray(name string) []byte
	GetByteArrayOr(name string, def []byte) []byte
	GetIntArray(name string) []int32
	GetIntArrayOr(name string, def []int32) []int32
	GetLongArray(name string) []int64
	GetLongArrayOr(name string, def []int64) []int64

	// GetList returns the list under name if its elements are of kind
	// elem or it is empty.
	GetList(name string, elem TypeID) List
	GetListOr(name string, elem TypeID, def List) List
	GetCompound(name string) Compound
	GetCompoundOr(name string, def Compound) Compound

	AsMutable() *MutableCompound
	AsImmutable() *ImmutableCompound
	ToBuilder() *CompoundBuilder
}

// entries is the storage a compoundView reads from.
type entries interface {
	size() int
	lookup(name string) (Tag, bool)
	each(yield func(string, Tag) bool)
}

// compoundView implements the read side of Compound over either storage.
type compoundView struct {
	src entries
}

func (v compoundView) ID() TypeID    { return TypeCompound }
func (v compoundView) Type() TagType { return registry[TypeCompound] }
func (v compoundView) Len() int      { return v.src.size() }
func (v compoundView) IsEmpty() bool { return v.src.size() == 0 }

func (v compoundView) Get(name string) (Tag, bool) { return v.src.lookup(name) }

func (v compoundView) All() iter.Seq2[string, Tag] { return v.src.each }

func (v compoundView) Keys() []string {
	keys := make([]string, 0, v.src.size())
	for k := range v.All() {
		keys = append(keys, k)
	}
	return keys
}

func (v compoundView) TypeOf(name string) TypeID {
	if t, ok := v.src.lookup(name); ok {
		return t.ID()
	}
	return TypeEnd
}

func (v compoundView) Contains(name string) bool {
	_, ok := v.src.lookup(name)
	return ok
}

func (v compoundView) ContainsType(name string, id TypeID) bool {
	t, ok := v.src.lookup(name)
	switch {
	case !ok:
		return false
	case id == TypeAnyNumber:
		return t.ID().IsNumber()
	default:
		return t.ID() == id
	}
}

func (v compoundView) Write(w *kaitai.Writer) error {
	var err error
	v.src.each(func(name string, t Tag) bool {
		err = writeEntry(w, name, t)
		return err == nil
	})
	if err != nil {
		return err
	}
	return w.WriteU1(uint8(TypeEnd))
}

func writeEntry(w *kaitai.Writer, name string, t Tag) error {
	if err := w.WriteU1(uint8(t.ID())); err != nil {
		return err
	}
	if err := writeString(w, name); err != nil {
		return fmt.Errorf("entry name: %w", err)
	}
	return t.Write(w)
}

// Equal ignores entry order.
func (v compoundView) Equal(other Tag) bool {
	o, ok := other.(Compound)
	if !ok || o.Len() != v.Len() {
		return false
	}
	for name, t := range v.All() {
		ot, ok := o.Get(name)
		if !ok || !t.Equal(ot) {
			return false
		}
	}
	return true
}

func (v compoundView) number(name string) (NumberTag, bool) {
	t, ok := v.src.lookup(name)
	if !ok {
		return nil, false
	}
	n, ok := t.(NumberTag)
	return n, ok
}

func (v compoundView) GetBool(name string) bool { return v.GetBoolOr(name, false) }

func (v compoundView) GetBoolOr(name string, def bool) bool {
	if n, ok := v.number(name); ok {
		return n.ToByte() != 0
	}
	return def
}

func (v compoundView) GetByte(name string) int8 { return v.GetByteOr(name, 0) }

func (v compoundView) GetByteOr(name string, def int8) int8 {
	if n, ok := v.number(name); ok {
		return n.ToByte()
	}
	return def
}

func (v compoundView) GetShort(name string) int16 { return v.GetShortOr(name, 0) }

func (v compoundView) GetShortOr(name string, def int16) int16 {
	if n, ok := v.number(name); ok {
		return n.ToShort()
	}
	return def
}

func (v compoundView) GetInt(name string) int32 { return v.GetIntOr(name, 0) }

func (v compoundView) GetIntOr(name string, def int32) int32 {
	if n, ok := v.number(name); ok {
		return n.ToInt()
	}
	return def
}

func (v compoundView) GetLong(name string) int64 { return v.GetLongOr(name, 0) }

func (v compoundView) GetLongOr(name string, def int64) int64 {
	if n, ok := v.number(name); ok {
		return n.ToLong()
	}
	return def
}

func (v compoundView) GetFloat(name string) float32 { return v.GetFloatOr(name, 0) }

func (v compoundView) GetFloatOr(name string, def float32) float32 {
	if n, ok := v.number(name); ok {
		return n.ToFloat()
	}
	return def
}

func (v compoundView) GetDouble(name string) float64 { return v.GetDoubleOr(name, 0) }

func (v compoundView) GetDoubleOr(name string, def float64) float64 {
	if n, ok := v.number(name); ok {
		return n.ToDouble()
	}
	return def
}

func (v compoundView) GetString(name string) string { return v.GetStringOr(name, "") }

func (v compoundView) GetStringOr(name string, def string) string {
	if t, ok := v.src.lookup(name); ok {
		if s, ok := t.(*StringTag); ok {
			return s.value
		}
	}
	return def
}

func (v compoundView) GetByteArray(name string) []byte { return v.GetByteArrayOr(name, nil) }

func (v compoundView) GetByteArrayOr(name string, def []byte) []byte {
	if t, ok := v.src.lookup(name); ok {
		if a, ok := t.(*ByteArrayTag); ok {
			return a.data
		}
	}
	return def
}

func (v compoundView) GetIntArray(name string) []int32 { return v.GetIntArrayOr(name, nil) }

func (v compoundView) GetIntArrayOr(name string, def []int32) []int32 {
	if t, ok := v.src.lookup(name); ok {
		if a, ok := t.(*IntArrayTag); ok {
			return a.data
		}
	}
	return def
}

func (v compoundView) GetLongArray(name string) []int64 { return v.GetLongArrayOr(name, nil) }

func (v compoundView) GetLongArrayOr(name string, def []int64) []int64 {
	if t, ok := v.src.lookup(name); ok {
		if a, ok := t.(*LongArrayTag); ok {
			return a.data
		}
	}
	return def
}

func (v compoundView) GetList(name string, elem TypeID) List {
	return v.GetListOr(name, elem, EmptyList)
}

func (v compoundView) GetListOr(name string, elem TypeID, def List) List {
	if t, ok := v.src.lookup(name); ok {
		if l, ok := t.(List); ok && (l.IsEmpty() || l.ElementType() == elem) {
			return l
		}
	}
	return def
}

func (v compoundView) GetCompound(name string) Compound {
	return v.GetCompoundOr(name, EmptyCompound)
}

func (v compoundView) GetCompoundOr(name string, def Compound) Compound {
	if t, ok := v.src.lookup(name); ok {
		if c, ok := t.(Compound); ok {
			return c
		}
	}
	return def
}

func checkValue(name string, t Tag) {
	if t == nil || t.ID() == TypeEnd {
		panic(fmt.Errorf("%w: cannot store End under %q", ErrUnsupportedOperation, name))
	}
}

// ImmutableCompound is a persistent compound. Mutators return a new
// compound and leave the receiver untouched; unchanged structure is shared.
type ImmutableCompound struct {
	compoundView
	m persist.Map[Tag]
}

// EmptyCompound is the shared empty immutable compound.
var EmptyCompound *ImmutableCompound

func newImmutableCompound(m persist.Map[Tag]) *ImmutableCompound {
	if m.Len() == 0 && EmptyCompound != nil {
		return EmptyCompound
	}
	c := &ImmutableCompound{m: m}
	c.compoundView = compoundView{src: c}
	return c
}

func (c *ImmutableCompound) size() int                         { return c.m.Len() }
func (c *ImmutableCompound) lookup(name string) (Tag, bool)    { return c.m.Get(name) }
func (c *ImmutableCompound) each(yield func(string, Tag) bool) { c.m.All()(yield) }

// Copy returns the receiver.
func (c *ImmutableCompound) Copy() Tag { return c }

func (c *ImmutableCompound) AsImmutable() *ImmutableCompound { return c }

func (c *ImmutableCompound) AsMutable() *MutableCompound {
	m := NewMutableCompound()
	for name, t := range c.m.All() {
		m.set(name, t)
	}
	return m
}

func (c *ImmutableCompound) ToBuilder() *CompoundBuilder {
	return &CompoundBuilder{c: c.AsMutable()}
}

// Put returns a compound with name mapped to t. Storing nil or End
// panics with ErrUnsupportedOperation.
func (c *ImmutableCompound) Put(name string, t Tag) *ImmutableCompound {
	checkValue(name, t)
	return newImmutableCompound(c.m.With(name, freeze(t)))
}

// Remove returns a compound without name. Removing the only entry
// yields EmptyCompound.
func (c *ImmutableCompound) Remove(name string) *ImmutableCompound {
	m := c.m.Without(name)
	if m.Len() == c.m.Len() {
		return c
	}
	return newImmutableCompound(m)
}

// UpdateCompound replaces the compound under name, or an empty one, with
// the result of fn.
func (c *ImmutableCompound) UpdateCompound(name string, fn func(Compound) Compound) *ImmutableCompound {
	return c.Put(name, fn(c.GetCompound(name)))
}

// UpdateList replaces the list of elem under name, or an empty one, with
// the result of fn.
func (c *ImmutableCompound) UpdateList(name string, elem TypeID, fn func(List) List) *ImmutableCompound {
	return c.Put(name, fn(c.GetList(name, elem)))
}

func (c *ImmutableCompound) PutBool(name string, v bool) *ImmutableCompound {
	return c.Put(name, Bool(v))
}

func (c *ImmutableCompound) PutByte(name string, v int8) *ImmutableCompound {
	return c.Put(name, Byte(v))
}

func (c *ImmutableCompound) PutShort(name string, v int16) *ImmutableCompound {
	return c.Put(name, Short(v))
}

func (c *ImmutableCompound) PutInt(name string, v int32) *ImmutableCompound {
	return c.Put(name, Int(v))
}

func (c *ImmutableCompound) PutLong(name string, v int64) *ImmutableCompound {
	return c.Put(name, Long(v))
}

func (c *ImmutableCompound) PutFloat(name string, v float32) *ImmutableCompound {
	return c.Put(name, Float(v))
}

func (c *ImmutableCompound) PutDouble(name string, v float64) *ImmutableCompound {
	return c.Put(name, Double(v))
}

func (c *ImmutableCompound) PutString(name string, v string) *ImmutableCompound {
	return c.Put(name, String(v))
}

func (c *ImmutableCompound) PutByteArray(name string, v []byte) *ImmutableCompound {
	return c.Put(name, ByteArray(v))
}

func (c *ImmutableCompound) PutIntArray(name string, v []int32) *ImmutableCompound {
	return c.Put(name, IntArray(v))
}

func (c *ImmutableCompound) PutLongArray(name string, v []int64) *ImmutableCompound {
	return c.Put(name, LongArray(v))
}

// MutableCompound is a compound that changes in place. Mutators return
// the receiver for chaining.
type MutableCompound struct {
	compoundView
	index map[string]int
	names []string
	tags  []Tag
}

// NewMutableCompound returns an empty mutable compound.
func NewMutableCompound() *MutableCompound {
	c := &MutableCompound{index: make(map[string]int)}
	c.compoundView = compoundView{src: c}
	return c
}

func (c *MutableCompound) size() int { return len(c.tags) }

func (c *MutableCompound) lookup(name string) (Tag, bool) {
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.tags[i], true
}

func (c *MutableCompound) each(yield func(string, Tag) bool) {
	for i, name := range c.names {
		if !yield(name, c.tags[i]) {
			return
		}
	}
}

func (c *MutableCompound) set(name string, t Tag) {
	if i, ok := c.index[name]; ok {
		c.tags[i] = t
		return
	}
	c.index[name] = len(c.names)
	c.names = append(c.names, name)
	c.tags = append(c.tags, t)
}

// Copy returns a deep copy.
func (c *MutableCompound) Copy() Tag {
	out := NewMutableCompound()
	for i, name := range c.names {
		out.set(name, c.tags[i].Copy())
	}
	return out
}

func (c *MutableCompound) AsMutable() *MutableCompound { return c }

func (c *MutableCompound) AsImmutable() *ImmutableCompound {
	var m persist.Map[Tag]
	for i, name := range c.names {
		m = m.With(name, freeze(c.tags[i]))
	}
	return newImmutableCompound(m)
}

func (c *MutableCompound) ToBuilder() *CompoundBuilder {
	return &CompoundBuilder{c: c.shallow()}
}

func (c *MutableCompound) shallow() *MutableCompound {
	out := NewMutableCompound()
	for i, name := range c.names {
		out.set(name, c.tags[i])
	}
	return out
}

// Put maps name to t. Storing nil or End panics with
// ErrUnsupportedOperation.
func (c *MutableCompound) Put(name string, t Tag) *MutableCompound {
	checkValue(name, t)
	c.set(name, t)
	return c
}

// Remove deletes name if present.
func (c *MutableCompound) Remove(name string) *MutableCompound {
	i, ok := c.index[name]
	if !ok {
		return c
	}
	delete(c.index, name)
	c.names = slices.Delete(c.names, i, i+1)
	c.tags = slices.Delete(c.tags, i, i+1)
	for j := i; j < len(c.names); j++ {
		c.index[c.names[j]] = j
	}
	return c
}

// Clear removes every entry.
func (c *MutableCompound) Clear() {
	clear(c.index)
	clear(c.tags)
	c.names = c.names[:0]
	c.tags = c.tags[:0]
}

// UpdateCompound replaces the compound under name, or an empty one, with
// the result of fn.
func (c *MutableCompound) UpdateCompound(name string, fn func(Compound) Compound) *MutableCompound {
	return c.Put(name, fn(c.GetCompound(name)))
}

// UpdateList replaces the list of elem under name, or an empty one, with
// the result of fn.
func (c *MutableCompound) UpdateList(name string, elem TypeID, fn func(List) List) *MutableCompound {
	return c.Put(name, fn(c.GetList(name, elem)))
}

func (c *MutableCompound) PutBool(name string, v bool) *MutableCompound {
	return c.Put(name, Bool(v))
}

func (c *MutableCompound) PutByte(name string, v int8) *MutableCompound {
	return c.Put(name, Byte(v))
}

func (c *MutableCompound) PutShort(name string, v int16) *MutableCompound {
	return c.Put(name, Short(v))
}

func (c *MutableCompound) PutInt(name string, v int32) *MutableCompound {
	return c.Put(name, Int(v))
}

func (c *MutableCompound) PutLong(name string, v int64) *MutableCompound {
	return c.Put(name, Long(v))
}

func (c *MutableCompound) PutFloat(name string, v float32) *MutableCompound {
	return c.Put(name, Float(v))
}

func (c *MutableCompound) PutDouble(name string, v float64) *MutableCompound {
	return c.Put(name, Double(v))
}

func (c *MutableCompound) PutString(name string, v string) *MutableCompound {
	return c.Put(name, String(v))
}

func (c *MutableCompound) PutByteArray(name string, v []byte) *MutableCompound {
	return c.Put(name, ByteArray(v))
}

func (c *MutableCompound) PutIntArray(name string, v []int32) *MutableCompound {
	return c.Put(name, IntArray(v))
}

func (c *MutableCompound) PutLongArray(name string, v []int64) *MutableCompound {
	return c.Put(name, LongArray(v))
}

// CompoundBuilder accumulates entries for a compound.
type CompoundBuilder struct {
	c *MutableCompound
}

// NewCompoundBuilder returns an empty builder.
func NewCompoundBuilder() *CompoundBuilder {
	return &CompoundBuilder{c: NewMutableCompound()}
}

// Put maps name to t, panicking on nil or End like Compound puts.
func (b *CompoundBuilder) Put(name string, t Tag) *CompoundBuilder {
	b.c.Put(name, t)
	return b
}

// PutList stores l under name.
func (b *CompoundBuilder) PutList(name string, l List) *CompoundBuilder { return b.Put(name, l) }

// PutCompound stores a compound filled in by fn under name.
func (b *CompoundBuilder) PutCompound(name string, fn func(*CompoundBuilder)) *CompoundBuilder {
	nested := NewCompoundBuilder()
	fn(nested)
	return b.Put(name, nested.c)
}

func (b *CompoundBuilder) PutBool(name string, v bool) *CompoundBuilder {
	return b.Put(name, Bool(v))
}

func (b *CompoundBuilder) PutByte(name string, v int8) *CompoundBuilder {
	return b.Put(name, Byte(v))
}

func (b *CompoundBuilder) PutShort(name string, v int16) *CompoundBuilder {
	return b.Put(name, Short(v))
}

func (b *CompoundBuilder) PutInt(name string, v int32) *CompoundBuilder {
	return b.Put(name, Int(v))
}

func (b *CompoundBuilder) PutLong(name string, v int64) *CompoundBuilder {
	return b.Put(name, Long(v))
}

func (b *CompoundBuilder) PutFloat(name string, v float32) *CompoundBuilder {
	return b.Put(name, Float(v))
}

func (b *CompoundBuilder) PutDouble(name string, v float64) *CompoundBuilder {
	return b.Put(name, Double(v))
}

func (b *CompoundBuilder) PutString(name string, v string) *CompoundBuilder {
	return b.Put(name, String(v))
}

func (b *CompoundBuilder) PutByteArray(name string, v []byte) *CompoundBuilder {
	return b.Put(name, ByteArray(v))
}

func (b *CompoundBuilder) PutIntArray(name string, v []int32) *CompoundBuilder {
	return b.Put(name, IntArray(v))
}

func (b *CompoundBuilder) PutLongArray(name string, v []int64) *CompoundBuilder {
	return b.Put(name, LongArray(v))
}

// Remove deletes name.
func (b *CompoundBuilder) Remove(name string) *CompoundBuilder {
	b.c.Remove(name)
	return b
}

// From copies every entry of src into the builder.
func (b *CompoundBuilder) From(src Compound) *CompoundBuilder {
	for name, t := range src.All() {
		b.c.set(name, t)
	}
	return b
}

// Len returns the number of accumulated entries.
func (b *CompoundBuilder) Len() int { return b.c.Len() }

// BuildImmutable freezes the accumulated entries.
func (b *CompoundBuilder) BuildImmutable() *ImmutableCompound {
	return b.c.AsImmutable()
}

// BuildMutable returns a mutable compound holding the accumulated
// entries. The builder stays usable.
func (b *CompoundBuilder) BuildMutable() *MutableCompound {
	return b.c.shallow()
}
