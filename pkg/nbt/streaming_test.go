package nbt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder notes entry names and int values, and steers the parser at
// configured names.
type recorder struct {
	BaseStreamingVisitor
	names   []string
	ints    []int32
	breakAt string
	skipAt  string
	haltAt  string
	ends    int
}

func (r *recorder) VisitNamedEntry(_ TagType, name string) EntryResult {
	r.names = append(r.names, name)
	switch name {
	case r.breakAt:
		return EntryBreak
	case r.skipAt:
		return Skip
	case r.haltAt:
		return EntryHalt
	}
	return Enter
}

func (r *recorder) VisitInt(v int32) ValueResult {
	r.ints = append(r.ints, v)
	return Continue
}

func (r *recorder) VisitContainerEnd() ValueResult {
	r.ends++
	return Continue
}

func abc(t *testing.T) []byte {
	t.Helper()
	data, err := Marshal(NewMutableCompound().PutInt("a", 1).PutInt("b", 2).PutInt("c", 3))
	require.NoError(t, err)
	return data
}

func TestParseBreakLeavesStreamAfterCompound(t *testing.T) {
	first := abc(t)
	second, err := Marshal(NewMutableCompound().PutString("next", "doc"))
	require.NoError(t, err)
	s := streamOf(append(bytes.Clone(first), second...))

	r := &recorder{breakAt: "b"}
	res, err := ParseDocument(s, r)
	require.NoError(t, err)
	assert.Equal(t, Continue, res)
	assert.Equal(t, []string{"a", "b"}, r.names)
	assert.Equal(t, []int32{1}, r.ints)
	assert.Equal(t, 1, r.ends, "container end still reported")

	pos, err := s.Pos()
	require.NoError(t, err)
	assert.Equal(t, int64(len(first)), pos)

	next, err := ReadCompound(s)
	require.NoError(t, err)
	assert.Equal(t, "doc", next.GetString("next"))
}

func TestParseSkipAndHalt(t *testing.T) {
	r := &recorder{skipAt: "b"}
	_, err := ParseDocument(streamOf(abc(t)), r)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 3}, r.ints)

	r = &recorder{haltAt: "b"}
	res, err := ParseDocument(streamOf(abc(t)), r)
	require.NoError(t, err)
	assert.Equal(t, Halt, res)
	assert.Equal(t, []int32{1}, r.ints)
	assert.Zero(t, r.ends)
}

// breakOnValue answers Break after seeing target.
type breakOnValue struct {
	BaseStreamingVisitor
	target int32
	seen   []int32
}

func (b *breakOnValue) VisitInt(v int32) ValueResult {
	b.seen = append(b.seen, v)
	if v == b.target {
		return Break
	}
	return Continue
}

func TestValueBreakSkipsSiblings(t *testing.T) {
	ints, err := ListOf(TypeInt, Int(1), Int(2), Int(3), Int(4))
	require.NoError(t, err)
	doc := NewMutableCompound().Put("list", ints).PutInt("after", 9)
	data, err := Marshal(doc)
	require.NoError(t, err)

	v := &breakOnValue{target: 2}
	_, err = ParseDocument(streamOf(data), v)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 9}, v.seen, "break leaves the list, not the compound")

	v = &breakOnValue{target: 2}
	assert.Equal(t, Continue, Stream(doc, v))
	assert.Equal(t, []int32{1, 2, 9}, v.seen, "in-memory driver agrees")
}

// listGate steers list traversal.
type listGate struct {
	BaseStreamingVisitor
	onList    ValueResult
	onElement func(int) EntryResult
	seen      []int32
}

func (g *listGate) VisitList(TagType, int) ValueResult { return g.onList }

func (g *listGate) VisitElement(_ TagType, i int) EntryResult {
	if g.onElement == nil {
		return Enter
	}
	return g.onElement(i)
}

func (g *listGate) VisitInt(v int32) ValueResult {
	g.seen = append(g.seen, v)
	return Continue
}

func TestParseListControl(t *testing.T) {
	ints, err := ListOf(TypeInt, Int(10), Int(20), Int(30))
	require.NoError(t, err)
	data, err := Marshal(NewMutableCompound().Put("l", ints).PutInt("tail", 99))
	require.NoError(t, err)

	tests := []struct {
		name string
		gate *listGate
		want []int32
	}{
		{"break at header", &listGate{onList: Break}, []int32{99}},
		{"skip odd", &listGate{onElement: func(i int) EntryResult {
			if i%2 == 1 {
				return Skip
			}
			return Enter
		}}, []int32{10, 30, 99}},
		{"break at element", &listGate{onElement: func(i int) EntryResult {
			if i == 1 {
				return EntryBreak
			}
			return Enter
		}}, []int32{10, 99}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument(streamOf(data), tt.gate)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.gate.seen)
		})
	}
}

func TestRootGate(t *testing.T) {
	data := abc(t)

	halt := &rootGate{res: Halt}
	res, err := ParseDocument(streamOf(data), halt)
	require.NoError(t, err)
	assert.Equal(t, Halt, res)

	s := streamOf(data)
	res, err = ParseDocument(s, &rootGate{res: Break})
	require.NoError(t, err)
	assert.Equal(t, Break, res)
	pos, err := s.Pos()
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), pos, "a skipped root is consumed")
}

type rootGate struct {
	BaseStreamingVisitor
	res ValueResult
}

func (g *rootGate) VisitRootEntry(TagType) ValueResult { return g.res }

func TestCollectorMatchesLoad(t *testing.T) {
	tree := sampleTree(t)
	data, err := Marshal(tree)
	require.NoError(t, err)

	c := NewCollector()
	res, err := ParseDocument(streamOf(data), c)
	require.NoError(t, err)
	assert.Equal(t, Continue, res)
	assert.True(t, tree.Equal(c.Result()))
	assert.Zero(t, c.Depth())

	typed := c.Result().(Compound).GetList("typed_empty", TypeString)
	assert.Equal(t, TypeString, typed.ElementType())

	c.Reset()
	Stream(tree, c)
	assert.True(t, tree.Equal(c.Result()), "streaming an in-memory tree collects the same tree")
}

func TestCollectorPartialOnHalt(t *testing.T) {
	c := &haltingCollector{Collector: NewCollector(), at: "b"}
	res, err := ParseDocument(streamOf(abc(t)), c)
	require.NoError(t, err)
	assert.Equal(t, Halt, res)

	got := c.Result().(Compound)
	assert.Equal(t, []string{"a"}, got.Keys())
}

type haltingCollector struct {
	*Collector
	at string
}

func (h *haltingCollector) VisitNamedEntry(t TagType, name string) EntryResult {
	if name == h.at {
		return EntryHalt
	}
	return h.Collector.VisitNamedEntry(t, name)
}

func TestSkipConsumesExactly(t *testing.T) {
	tree := sampleTree(t)
	for name, value := range tree.All() {
		t.Run(name, func(t *testing.T) {
			var payload []byte
			full, err := Marshal(value)
			require.NoError(t, err)
			payload = append(payload, full[3:]...) // drop id and empty name
			payload = append(payload, 0x7E)

			s := streamOf(payload)
			require.NoError(t, value.Type().Skip(s))
			sentinel, err := s.ReadU1()
			require.NoError(t, err)
			assert.Equal(t, uint8(0x7E), sentinel)
		})
	}

	s := streamOf(make([]byte, 13))
	require.NoError(t, TypeOf(int(TypeInt)).SkipN(s, 3))
	pos, err := s.Pos()
	require.NoError(t, err)
	assert.Equal(t, int64(12), pos)

	assert.ErrorIs(t, TypeOf(int(TypeLong)).SkipN(streamOf(make([]byte, 15)), 2), ErrMalformed)
}

func TestResultStrings(t *testing.T) {
	assert.Equal(t, "BREAK", Break.String())
	assert.Equal(t, "HALT", EntryHalt.String())
	assert.Equal(t, "SKIP", Skip.String())
}
