package main

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/twinfer/nbt-plugin/pkg/nbt"
)

// stats tallies a document while it streams past, without building it.
type stats struct {
	nbt.BaseStreamingVisitor

	kinds      map[nbt.TypeID]int
	depth      int
	maxDepth   int
	entries    int
	stringLen  int
	arrayElems int
}

func newStats() *stats {
	return &stats{kinds: make(map[nbt.TypeID]int)}
}

func (s *stats) value(t nbt.TagType) {
	s.kinds[t.ID()]++
	if t.ID() == nbt.TypeCompound {
		s.open()
	}
}

func (s *stats) open() {
	s.depth++
	s.maxDepth = max(s.maxDepth, s.depth)
}

func (s *stats) VisitRootEntry(t nbt.TagType) nbt.ValueResult {
	s.value(t)
	return nbt.Continue
}

func (s *stats) VisitNamedEntry(t nbt.TagType, _ string) nbt.EntryResult {
	s.entries++
	s.value(t)
	return nbt.Enter
}

func (s *stats) VisitElement(elem nbt.TagType, _ int) nbt.EntryResult {
	s.value(elem)
	return nbt.Enter
}

func (s *stats) VisitList(nbt.TagType, int) nbt.ValueResult {
	s.open()
	return nbt.Continue
}

func (s *stats) VisitContainerEnd() nbt.ValueResult {
	s.depth--
	return nbt.Continue
}

func (s *stats) VisitString(v string) nbt.ValueResult {
	s.stringLen += len(v)
	return nbt.Continue
}

func (s *stats) VisitByteArray(v []byte) nbt.ValueResult {
	s.arrayElems += len(v)
	return nbt.Continue
}

func (s *stats) VisitIntArray(v []int32) nbt.ValueResult {
	s.arrayElems += len(v)
	return nbt.Continue
}

func (s *stats) VisitLongArray(v []int64) nbt.ValueResult {
	s.arrayElems += len(v)
	return nbt.Continue
}

func (s *stats) report(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	ids := make([]nbt.TypeID, 0, len(s.kinds))
	for id := range s.kinds {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fmt.Fprintf(tw, "%s\t%d\n", nbt.TypeOf(int(id)).PrettyName(), s.kinds[id])
	}
	fmt.Fprintf(tw, "entries\t%d\n", s.entries)
	fmt.Fprintf(tw, "max depth\t%d\n", s.maxDepth)
	fmt.Fprintf(tw, "string bytes\t%d\n", s.stringLen)
	fmt.Fprintf(tw, "array elements\t%d\n", s.arrayElems)
	return tw.Flush()
}
