package tagpath

import (
	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"

	"github.com/twinfer/nbt-plugin/pkg/nbt"
)

// Extract resolves the path against an encoded document read from s.
// Only the addressed value is decoded; every sibling on the way is
// skipped, and parsing halts as soon as the value is complete, so s is
// generally left inside the document.
func (p *Path) Extract(s *kaitai.Stream) (nbt.Tag, bool, error) {
	x := NewExtractor(p)
	if _, err := nbt.ParseDocument(s, x); err != nil {
		return nil, false, err
	}
	t, ok := x.Result()
	return t, ok, nil
}

// Extractor is a streaming visitor that follows a path through a document
// and collects the value it addresses. Use it with any driver of
// nbt.StreamingVisitor; Result reports the outcome.
type Extractor struct {
	segs   []Segment
	level  int // index of the segment the next entry must match
	target int // resolved index for the list being walked
	c      *nbt.Collector
	active bool // feeding the collector
	result nbt.Tag
}

// NewExtractor returns an extractor for p.
func NewExtractor(p *Path) *Extractor {
	return &Extractor{segs: p.segments, target: -1, c: nbt.NewCollector()}
}

// Result returns the collected value. Containers are returned immutable.
func (x *Extractor) Result() (nbt.Tag, bool) {
	return x.result, x.result != nil
}

// accepts reports whether a value of type t can take segment seg.
func accepts(t nbt.TagType, seg Segment) bool {
	switch seg.(type) {
	case *Field:
		return t.ID() == nbt.TypeCompound
	case *Index:
		switch t.ID() {
		case nbt.TypeList, nbt.TypeByteArray, nbt.TypeIntArray, nbt.TypeLongArray:
			return true
		}
	}
	return false
}

// descend is called once the entry at the current level matched. It
// starts collecting at the last segment, otherwise checks the value can
// be walked further.
func (x *Extractor) descend(t nbt.TagType) nbt.EntryResult {
	x.level++
	if x.level == len(x.segs) {
		x.active = true
		x.c.VisitRootEntry(t)
		return nbt.Enter
	}
	if !accepts(t, x.segs[x.level]) {
		return nbt.EntryHalt
	}
	return nbt.Enter
}

// finish stores the collected value once the collector has closed it.
func (x *Extractor) finish(r nbt.ValueResult) nbt.ValueResult {
	if x.c.Depth() > 0 {
		return r
	}
	switch t := x.c.Result().(type) {
	case nbt.List:
		x.result = t.AsImmutable()
	case nbt.Compound:
		x.result = t.AsImmutable()
	default:
		x.result = t
	}
	return nbt.Halt
}

// index answers an array reached by a final index segment.
func (x *Extractor) index(n int, at func(int) nbt.Tag) nbt.ValueResult {
	if seg, ok := x.segs[x.level].(*Index); ok && x.level == len(x.segs)-1 {
		if i, ok := seg.resolve(n); ok {
			x.result = at(i)
		}
	}
	return nbt.Halt
}

func (x *Extractor) VisitRootEntry(t nbt.TagType) nbt.ValueResult {
	if len(x.segs) == 0 || !accepts(t, x.segs[0]) {
		return nbt.Break
	}
	return nbt.Continue
}

func (x *Extractor) VisitEntry(t nbt.TagType) nbt.EntryResult {
	if x.active {
		return x.c.VisitEntry(t)
	}
	return nbt.Enter
}

func (x *Extractor) VisitNamedEntry(t nbt.TagType, name string) nbt.EntryResult {
	if x.active {
		return x.c.VisitNamedEntry(t, name)
	}
	if f, ok := x.segs[x.level].(*Field); !ok || f.Name != name {
		return nbt.Skip
	}
	return x.descend(t)
}

func (x *Extractor) VisitList(elem nbt.TagType, size int) nbt.ValueResult {
	if x.active {
		return x.c.VisitList(elem, size)
	}
	seg, ok := x.segs[x.level].(*Index)
	if !ok {
		return nbt.Halt
	}
	i, ok := seg.resolve(size)
	if !ok {
		return nbt.Halt
	}
	x.target = i
	return nbt.Continue
}

func (x *Extractor) VisitElement(elem nbt.TagType, i int) nbt.EntryResult {
	if x.active {
		return x.c.VisitElement(elem, i)
	}
	if i != x.target {
		return nbt.Skip
	}
	return x.descend(elem)
}

func (x *Extractor) VisitContainerEnd() nbt.ValueResult {
	if x.active {
		return x.finish(x.c.VisitContainerEnd())
	}
	// the container on the path ended without a match
	return nbt.Halt
}

func (x *Extractor) VisitEnd() nbt.ValueResult {
	if x.active {
		return x.finish(x.c.VisitEnd())
	}
	return nbt.Halt
}

func (x *Extractor) VisitByte(v int8) nbt.ValueResult {
	if x.active {
		return x.finish(x.c.VisitByte(v))
	}
	return nbt.Halt
}

func (x *Extractor) VisitShort(v int16) nbt.ValueResult {
	if x.active {
		return x.finish(x.c.VisitShort(v))
	}
	return nbt.Halt
}

func (x *Extractor) VisitInt(v int32) nbt.ValueResult {
	if x.active {
		return x.finish(x.c.VisitInt(v))
	}
	return nbt.Halt
}

func (x *Extractor) VisitLong(v int64) nbt.ValueResult {
	if x.active {
		return x.finish(x.c.VisitLong(v))
	}
	return nbt.Halt
}

func (x *Extractor) VisitFloat(v float32) nbt.ValueResult {
	if x.active {
		return x.finish(x.c.VisitFloat(v))
	}
	return nbt.Halt
}

func (x *Extractor) VisitDouble(v float64) nbt.ValueResult {
	if x.active {
		return x.finish(x.c.VisitDouble(v))
	}
	return nbt.Halt
}

func (x *Extractor) VisitString(v string) nbt.ValueResult {
	if x.active {
		return x.finish(x.c.VisitString(v))
	}
	return nbt.Halt
}

func (x *Extractor) VisitByteArray(v []byte) nbt.ValueResult {
	if x.active {
		return x.finish(x.c.VisitByteArray(v))
	}
	return x.index(len(v), func(i int) nbt.Tag { return nbt.Byte(int8(v[i])) })
}

func (x *Extractor) VisitIntArray(v []int32) nbt.ValueResult {
	if x.active {
		return x.finish(x.c.VisitIntArray(v))
	}
	return x.index(len(v), func(i int) nbt.Tag { return nbt.Int(v[i]) })
}

func (x *Extractor) VisitLongArray(v []int64) nbt.ValueResult {
	if x.active {
		return x.finish(x.c.VisitLongArray(v))
	}
	return x.index(len(v), func(i int) nbt.Tag { return nbt.Long(v[i]) })
}
