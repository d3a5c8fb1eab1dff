// Package nbt implements a hierarchical, strongly typed binary tag format.
//
// A document is a tree of tags: numeric scalars, strings, arrays, lists
// and compounds. Lists and compounds come in an immutable form backed by
// persistent collections, a mutable in-place form, and a builder. Trees
// are read from a *kaitai.Stream either fully (Load) or selectively
// through a StreamingVisitor (Parse), and written to a *kaitai.Writer.
//
// Immutable tags may be shared between goroutines. Mutable tags and
// builders must not be used concurrently without external locking.
package nbt

import (
	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

// Tag is one node of a tag tree.
type Tag interface {
	// ID returns the wire type id.
	ID() TypeID

	// Type returns the descriptor of the tag's kind.
	Type() TagType

	// Write encodes the payload of the tag, without its type id.
	Write(w *kaitai.Writer) error

	// Copy returns the receiver for values and immutable containers, and
	// an independent deep copy for mutable containers and arrays.
	Copy() Tag

	// Equal reports structural equality.
	Equal(other Tag) bool
}

// NumberTag is implemented by the six numeric scalar tags.
type NumberTag interface {
	Tag
	ToByte() int8
	ToShort() int16
	ToInt() int32
	ToLong() int64
	ToFloat() float32
	ToDouble() float64
}

// EndTag terminates compounds on the wire. It carries no data.
type EndTag struct{}

// End is the only EndTag.
var End = &EndTag{}

func (*EndTag) ID() TypeID                 { return TypeEnd }
func (*EndTag) Type() TagType              { return registry[TypeEnd] }
func (*EndTag) Write(*kaitai.Writer) error { return nil }
func (t *EndTag) Copy() Tag                { return t }

func (*EndTag) Equal(other Tag) bool {
	_, ok := other.(*EndTag)
	return ok
}

// NamedTag pairs a root tag with the name it was stored under.
type NamedTag struct {
	Name string
	Tag  Tag
}

// freeze returns a form of t that no mutable handle can reach: containers
// become immutable and arrays are cloned.
func freeze(t Tag) Tag {
	switch t := t.(type) {
	case List:
		return t.AsImmutable()
	case Compound:
		return t.AsImmutable()
	case *ByteArrayTag, *IntArrayTag, *LongArrayTag:
		return t.Copy()
	default:
		return t
	}
}
