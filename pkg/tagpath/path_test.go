package tagpath

import (
	"bytes"
	"strings"
	"testing"

	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinfer/nbt-plugin/pkg/nbt"
)

func TestLexer(t *testing.T) {
	l := NewLexer(strings.NewReader(`Level.Sections[-1]."a b"`))

	var got []TokenType
	var lits []string
	for {
		tok := l.NextToken()
		got = append(got, tok.Type)
		lits = append(lits, tok.Literal)
		if tok.Type == TokEOF || tok.Type == TokIllegal {
			break
		}
	}
	assert.Equal(t, []TokenType{
		TokName, TokDot, TokName, TokLBracket, TokName, TokRBracket, TokDot, TokString, TokEOF,
	}, got)
	assert.Equal(t, "-1", lits[4])
	assert.Equal(t, "a b", lits[7])
}

func TestParse(t *testing.T) {
	tests := []struct {
		src  string
		want string
		segs int
	}{
		{"a", "a", 1},
		{"a.b.c", "a.b.c", 3},
		{"list[2]", "list[2]", 2},
		{"[0].name", "[0].name", 2},
		{"m[-1][0]", "m[-1][0]", 3},
		{`data."display name"`, `data."display name"`, 2},
		{`data["x"]`, "data.x", 2},
		{"minecraft:stone.count", "minecraft:stone.count", 2},
		{` a . b `, "a.b", 2},
		{`'it\'s'`, `"it's"`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			p, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.String())
			assert.Len(t, p.Segments(), tt.segs)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"", ".", "a.", "a..b", "a[", "a[]", "a[x]", "a[1", "a]", `"open`, "a b", "a[1.5]", "a?b",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
	assert.Panics(t, func() { MustParse("a[") })
}

func fixture(t *testing.T) *nbt.ImmutableCompound {
	t.Helper()
	sections, err := nbt.NewListBuilder().
		AddCompound(func(b *nbt.CompoundBuilder) { b.PutByte("Y", 0).PutString("name", "bottom") }).
		AddCompound(func(b *nbt.CompoundBuilder) { b.PutByte("Y", 1).PutString("name", "middle") }).
		AddCompound(func(b *nbt.CompoundBuilder) {
			b.PutByte("Y", 2).PutString("name", "top").PutLongArray("states", []int64{10, 20, 30})
		}).
		BuildImmutable()
	require.NoError(t, err)

	return nbt.NewCompoundBuilder().
		PutString("before", "skipped").
		PutCompound("Level", func(b *nbt.CompoundBuilder) {
			b.PutInt("xPos", -4).
				PutList("Sections", sections).
				PutString("display name", "spawn")
		}).
		PutInt("after", 7).
		BuildImmutable()
}

func document(t *testing.T, c nbt.Compound) *kaitai.Stream {
	t.Helper()
	data, err := nbt.Marshal(c)
	require.NoError(t, err)
	return kaitai.NewStream(bytes.NewReader(data))
}

var pathCases = []struct {
	path  string
	want  nbt.Tag
	found bool
}{
	{"after", nbt.Int(7), true},
	{"Level.xPos", nbt.Int(-4), true},
	{`Level."display name"`, nbt.String("spawn"), true},
	{"Level.Sections[1].name", nbt.String("middle"), true},
	{"Level.Sections[-1].Y", nbt.Byte(2), true},
	{"Level.Sections[2].states[1]", nbt.Long(20), true},
	{"Level.Sections[2].states[-3]", nbt.Long(10), true},
	{"Level.Sections[3]", nil, false},
	{"Level.Sections[2].states[3]", nil, false},
	{"Level.missing", nil, false},
	{"Level.xPos.deeper", nil, false},
	{"after[0]", nil, false},
	{"[0]", nil, false},
}

func TestLookup(t *testing.T) {
	root := fixture(t)
	for _, tt := range pathCases {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := MustParse(tt.path).Lookup(root)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.True(t, tt.want.Equal(got), "got %v", got)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	root := fixture(t)
	for _, tt := range pathCases {
		t.Run(tt.path, func(t *testing.T) {
			got, ok, err := MustParse(tt.path).Extract(document(t, root))
			require.NoError(t, err)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.True(t, tt.want.Equal(got), "got %v", got)
			}
		})
	}
}

func TestExtractContainer(t *testing.T) {
	root := fixture(t)
	want, ok := MustParse("Level.Sections[2]").Lookup(root)
	require.True(t, ok)

	got, ok, err := MustParse("Level.Sections[2]").Extract(document(t, root))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, want.Equal(got))
	_, immutable := got.(*nbt.ImmutableCompound)
	assert.True(t, immutable)

	list, ok, err := MustParse("Level.Sections").Extract(document(t, root))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, list.(nbt.List).Len())
	assert.Equal(t, nbt.TypeCompound, list.(nbt.List).ElementType())
}

func TestExtractTypedEmptyList(t *testing.T) {
	ints, err := nbt.ListOf(nbt.TypeInt)
	require.NoError(t, err)
	strs, err := nbt.ListOf(nbt.TypeString)
	require.NoError(t, err)
	root := nbt.NewCompoundBuilder().
		PutList("Tags", ints).
		PutCompound("Inner", func(b *nbt.CompoundBuilder) { b.PutList("Names", strs) }).
		BuildImmutable()

	got, ok, err := MustParse("Tags").Extract(document(t, root))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, nbt.TypeInt, got.(nbt.List).ElementType())
	assert.True(t, ints.Equal(got))

	want, err := nbt.Marshal(ints)
	require.NoError(t, err)
	encoded, err := nbt.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, want, encoded, "element type survives a re-encode")

	inner, ok, err := MustParse("Inner").Extract(document(t, root))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, nbt.TypeString, inner.(nbt.Compound).GetList("Names", nbt.TypeString).ElementType())
}

// entryCounter wraps an extractor and counts entries it decodes.
type entryCounter struct {
	*Extractor
	named []string
}

func (e *entryCounter) VisitNamedEntry(t nbt.TagType, name string) nbt.EntryResult {
	e.named = append(e.named, name)
	return e.Extractor.VisitNamedEntry(t, name)
}

func TestExtractStopsEarly(t *testing.T) {
	v := &entryCounter{Extractor: NewExtractor(MustParse("Level.xPos"))}
	res, err := nbt.ParseDocument(document(t, fixture(t)), v)
	require.NoError(t, err)
	assert.Equal(t, nbt.Halt, res)
	assert.Equal(t, []string{"before", "Level", "xPos"}, v.named, "nothing after the match is read")

	got, ok := v.Result()
	require.True(t, ok)
	assert.True(t, nbt.Int(-4).Equal(got))
}

func TestExtractInMemory(t *testing.T) {
	x := NewExtractor(MustParse("Level.Sections[0].name"))
	nbt.Stream(fixture(t), x)
	got, ok := x.Result()
	require.True(t, ok)
	assert.True(t, nbt.String("bottom").Equal(got))
}
