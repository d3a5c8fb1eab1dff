package nbt

import (
	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

// ValueResult tells the parser what to do after a value or container
// boundary has been visited.
type ValueResult int

const (
	// Continue proceeds with the next sibling.
	Continue ValueResult = iota
	// Break abandons the remaining siblings of the enclosing container.
	Break
	// Halt stops parsing at once. It is a successful outcome, not an error.
	Halt
)

func (r ValueResult) String() string {
	switch r {
	case Continue:
		return "CONTINUE"
	case Break:
		return "BREAK"
	case Halt:
		return "HALT"
	}
	return "ValueResult(?)"
}

// EntryResult tells the parser how to handle a compound entry or list
// element before its value is read.
type EntryResult int

const (
	// Enter parses the value.
	Enter EntryResult = iota
	// Skip steps over the value.
	Skip
	// EntryBreak steps over the value and every remaining sibling.
	EntryBreak
	// EntryHalt stops parsing at once.
	EntryHalt
)

func (r EntryResult) String() string {
	switch r {
	case Enter:
		return "ENTER"
	case Skip:
		return "SKIP"
	case EntryBreak:
		return "BREAK"
	case EntryHalt:
		return "HALT"
	}
	return "EntryResult(?)"
}

// StreamingVisitor receives a document as it is decoded and steers the
// decoder. Whatever it answers, the stream is left positioned after the
// value or container being parsed.
type StreamingVisitor interface {
	VisitEnd() ValueResult
	VisitByte(v int8) ValueResult
	VisitShort(v int16) ValueResult
	VisitInt(v int32) ValueResult
	VisitLong(v int64) ValueResult
	VisitFloat(v float32) ValueResult
	VisitDouble(v float64) ValueResult
	VisitByteArray(v []byte) ValueResult
	VisitString(v string) ValueResult
	VisitIntArray(v []int32) ValueResult
	VisitLongArray(v []int64) ValueResult

	// VisitList is called once a list header is read, before any element.
	VisitList(elem TagType, size int) ValueResult
	// VisitElement is called before element index of the current list.
	VisitElement(elem TagType, index int) EntryResult
	// VisitEntry is called with the type of the next compound entry,
	// before its name is read.
	VisitEntry(t TagType) EntryResult
	// VisitNamedEntry is called once the entry name is known.
	VisitNamedEntry(t TagType, name string) EntryResult
	// VisitRootEntry gates the single top-level value: Continue parses
	// it, Break skips it and Halt stops.
	VisitRootEntry(t TagType) ValueResult
	// VisitContainerEnd is called when a list or compound is finished,
	// including when its remaining entries were skipped by a break.
	VisitContainerEnd() ValueResult
}

// BaseStreamingVisitor continues everywhere and enters everything.
// Embed it to override only the callbacks of interest.
type BaseStreamingVisitor struct{}

func (BaseStreamingVisitor) VisitEnd() ValueResult                       { return Continue }
func (BaseStreamingVisitor) VisitByte(int8) ValueResult                  { return Continue }
func (BaseStreamingVisitor) VisitShort(int16) ValueResult                { return Continue }
func (BaseStreamingVisitor) VisitInt(int32) ValueResult                  { return Continue }
func (BaseStreamingVisitor) VisitLong(int64) ValueResult                 { return Continue }
func (BaseStreamingVisitor) VisitFloat(float32) ValueResult              { return Continue }
func (BaseStreamingVisitor) VisitDouble(float64) ValueResult             { return Continue }
func (BaseStreamingVisitor) VisitByteArray([]byte) ValueResult           { return Continue }
func (BaseStreamingVisitor) VisitString(string) ValueResult              { return Continue }
func (BaseStreamingVisitor) VisitIntArray([]int32) ValueResult           { return Continue }
func (BaseStreamingVisitor) VisitLongArray([]int64) ValueResult          { return Continue }
func (BaseStreamingVisitor) VisitList(TagType, int) ValueResult          { return Continue }
func (BaseStreamingVisitor) VisitElement(TagType, int) EntryResult       { return Enter }
func (BaseStreamingVisitor) VisitEntry(TagType) EntryResult              { return Enter }
func (BaseStreamingVisitor) VisitNamedEntry(TagType, string) EntryResult { return Enter }
func (BaseStreamingVisitor) VisitRootEntry(TagType) ValueResult          { return Continue }
func (BaseStreamingVisitor) VisitContainerEnd() ValueResult              { return Continue }

func parseList(s *kaitai.Stream, v StreamingVisitor, depth int) (ValueResult, error) {
	if depth >= MaxDepth {
		return Halt, depthErr(depth)
	}
	elem, n, err := readListHeader(s)
	if err != nil {
		return Halt, err
	}
	switch v.VisitList(elem, n) {
	case Halt:
		return Halt, nil
	case Break:
		if err := elem.skipAt(s, n, depth+1); err != nil {
			return Halt, err
		}
		return v.VisitContainerEnd(), nil
	}
	for i := 0; i < n; i++ {
		switch v.VisitElement(elem, i) {
		case EntryHalt:
			return Halt, nil
		case EntryBreak:
			if err := elem.skipAt(s, n-i, depth+1); err != nil {
				return Halt, err
			}
			return v.VisitContainerEnd(), nil
		case Skip:
			if err := elem.skipAt(s, 1, depth+1); err != nil {
				return Halt, err
			}
			continue
		}
		r, err := elem.parseAt(s, v, depth+1)
		if err != nil {
			return Halt, err
		}
		switch r {
		case Halt:
			return Halt, nil
		case Break:
			if err := elem.skipAt(s, n-i-1, depth+1); err != nil {
				return Halt, err
			}
			return v.VisitContainerEnd(), nil
		}
	}
	return v.VisitContainerEnd(), nil
}

func parseCompound(s *kaitai.Stream, v StreamingVisitor, depth int) (ValueResult, error) {
	if depth >= MaxDepth {
		return Halt, depthErr(depth)
	}
	// abandon skips the current value and every later sibling, then
	// closes the container.
	abandon := func(t TagType) (ValueResult, error) {
		if t != nil {
			if err := t.skipAt(s, 1, depth+1); err != nil {
				return Halt, err
			}
		}
		if err := skipEntries(s, depth); err != nil {
			return Halt, err
		}
		return v.VisitContainerEnd(), nil
	}
	for {
		id, err := s.ReadU1()
		if err != nil {
			return Halt, readErr(err)
		}
		if TypeID(id) == TypeEnd {
			return v.VisitContainerEnd(), nil
		}
		t := TypeOf(int(id))
		if isInvalid(t) {
			return Halt, &InvalidTypeError{ID: int(id)}
		}

		switch v.VisitEntry(t) {
		case EntryHalt:
			return Halt, nil
		case EntryBreak:
			if err := skipString(s); err != nil {
				return Halt, err
			}
			return abandon(t)
		case Skip:
			if err := skipString(s); err != nil {
				return Halt, err
			}
			if err := t.skipAt(s, 1, depth+1); err != nil {
				return Halt, err
			}
			continue
		}

		name, err := readString(s)
		if err != nil {
			return Halt, err
		}
		switch v.VisitNamedEntry(t, name) {
		case EntryHalt:
			return Halt, nil
		case EntryBreak:
			return abandon(t)
		case Skip:
			if err := t.skipAt(s, 1, depth+1); err != nil {
				return Halt, err
			}
			continue
		}

		r, err := t.parseAt(s, v, depth+1)
		if err != nil {
			return Halt, err
		}
		switch r {
		case Halt:
			return Halt, nil
		case Break:
			return abandon(nil)
		}
	}
}

// ParseRoot feeds one top-level value of type t to v, as gated by
// VisitRootEntry.
func ParseRoot(t TagType, s *kaitai.Stream, v StreamingVisitor) (ValueResult, error) {
	switch v.VisitRootEntry(t) {
	case Halt:
		return Halt, nil
	case Break:
		if err := t.Skip(s); err != nil {
			return Halt, err
		}
		return Break, nil
	}
	return t.Parse(s, v)
}

// ParseDocument reads a root (type, name, value) triple and feeds the
// value to v. The root name is read and dropped. A bare End byte is
// reported through VisitRootEntry and VisitEnd.
func ParseDocument(s *kaitai.Stream, v StreamingVisitor) (ValueResult, error) {
	id, err := s.ReadU1()
	if err != nil {
		return Halt, readErr(err)
	}
	t := TypeOf(int(id))
	if isInvalid(t) {
		return Halt, &InvalidTypeError{ID: int(id)}
	}
	if t.ID() != TypeEnd {
		if err := skipString(s); err != nil {
			return Halt, err
		}
	}
	return ParseRoot(t, s, v)
}
