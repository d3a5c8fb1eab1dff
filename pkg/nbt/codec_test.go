package nbt

import (
	"bytes"
	"math"
	"strings"
	"testing"

	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamOf(b []byte) *kaitai.Stream {
	return kaitai.NewStream(bytes.NewReader(b))
}

func sampleTree(t *testing.T) *ImmutableCompound {
	t.Helper()
	ints, err := ListOf(TypeInt, Int(1), Int(2), Int(3))
	require.NoError(t, err)
	typedEmpty, err := ListOf(TypeString)
	require.NoError(t, err)
	compounds, err := NewListBuilder().
		AddCompound(func(b *CompoundBuilder) { b.PutByte("x", 1) }).
		AddCompound(func(b *CompoundBuilder) { b.PutString("y", "two") }).
		BuildImmutable()
	require.NoError(t, err)
	lists, err := NewListBuilder().Add(ints).Add(EmptyList).BuildImmutable()
	require.NoError(t, err)

	return NewCompoundBuilder().
		PutByte("byte", -5).
		PutBool("flag", true).
		PutShort("short", 300).
		PutInt("int", 1<<20).
		PutLong("long", -1<<50).
		PutFloat("float", 1.5).
		PutDouble("double", -2.25).
		PutString("str", "héllo\x00\U0001D11E").
		PutByteArray("bytes", []byte{1, 2, 255}).
		PutIntArray("ints", []int32{-1, 0, 1 << 30}).
		PutLongArray("longs", []int64{math.MinInt64, 7}).
		PutList("list", ints).
		PutList("compounds", compounds).
		PutList("lists", lists).
		PutList("empty", EmptyList).
		PutList("typed_empty", typedEmpty).
		PutCompound("inner", func(b *CompoundBuilder) {
			b.PutString("name", "inner").PutLong("big", 1<<40)
		}).
		BuildImmutable()
}

// nestedCompounds encodes levels compounds each holding the next under "a".
func nestedCompounds(levels int) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x0A, 0x00, 0x00})
	for i := 1; i < levels; i++ {
		buf.Write([]byte{0x0A, 0x00, 0x01, 'a'})
	}
	for i := 0; i < levels; i++ {
		buf.WriteByte(0x00)
	}
	return buf.Bytes()
}

// nestedLists encodes levels lists each holding the next as its only
// element.
func nestedLists(levels int) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x09, 0x00, 0x00})
	for i := 1; i < levels; i++ {
		buf.Write([]byte{0x09, 0x00, 0x00, 0x00, 0x01})
	}
	buf.Write([]byte{0x00, 0x00, 0x00, 0x00, 0x00})
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	tree := sampleTree(t)

	data, err := Marshal(tree)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, tree.Equal(got), "decoded tree differs")

	again, err := Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, data, again, "re-encoding must be byte identical")

	c, ok := got.(*ImmutableCompound)
	require.True(t, ok, "loaded compounds are immutable")
	assert.Equal(t, tree.Keys(), c.Keys(), "entry order is preserved")
	assert.Equal(t, TypeString, c.GetList("typed_empty", TypeString).ElementType())
}

func TestRoundTrip_EveryRootKind(t *testing.T) {
	ints, err := ListOf(TypeInt, Int(7))
	require.NoError(t, err)
	roots := []Tag{
		Byte(3), Short(-300), Int(70000), Long(math.MaxInt64),
		Float(float32(math.Inf(-1))), Double(math.NaN()),
		ByteArray([]byte{}), String("root"), ints, EmptyCompound,
		IntArray([]int32{1}), LongArray([]int64{2}),
	}
	for _, root := range roots {
		t.Run(root.Type().PrettyName(), func(t *testing.T) {
			data, err := Marshal(root)
			require.NoError(t, err)
			got, err := Unmarshal(data)
			require.NoError(t, err)
			assert.True(t, root.Equal(got))
		})
	}
}

func TestNameValueExample(t *testing.T) {
	c := NewMutableCompound().PutString("name", "test").PutInt("value", 42)

	data, err := Marshal(c)
	require.NoError(t, err)

	got, err := ReadCompound(streamOf(data))
	require.NoError(t, err)
	assert.Equal(t, "test", got.GetString("name"))
	assert.Equal(t, int32(42), got.GetInt("value"))
	assert.Equal(t, int32(-1), got.GetIntOr("missing", -1))
}

func TestReadNamed(t *testing.T) {
	t.Run("name is preserved", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteNamed(kaitai.NewWriter(&buf), "Level", EmptyCompound))

		named, err := ReadNamed(streamOf(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, "Level", named.Name)
		assert.Same(t, EmptyCompound, named.Tag)
	})

	t.Run("bare End byte", func(t *testing.T) {
		data, err := Marshal(End)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x00}, data)

		named, err := ReadNamed(streamOf(data))
		require.NoError(t, err)
		assert.Equal(t, NamedTag{Tag: End}, named)
	})

	t.Run("root must be a compound", func(t *testing.T) {
		data, err := Marshal(Int(1))
		require.NoError(t, err)
		_, err = ReadCompound(streamOf(data))
		assert.ErrorIs(t, err, ErrNotCompound)
	})
}

func TestDepthGuard(t *testing.T) {
	tests := []struct {
		name   string
		encode func(int) []byte
	}{
		{"compounds", nestedCompounds},
		{"lists", nestedLists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.encode(MaxDepth))
			require.NoError(t, err, "%d levels fit under the limit", MaxDepth)

			_, err = Unmarshal(tt.encode(MaxDepth + 1))
			require.ErrorIs(t, err, ErrDepthExceeded)

			_, err = ParseDocument(streamOf(tt.encode(MaxDepth+1)), BaseStreamingVisitor{})
			assert.ErrorIs(t, err, ErrDepthExceeded)

			s := streamOf(tt.encode(MaxDepth + 1)[3:])
			assert.ErrorIs(t, TypeOf(int(tt.encode(1)[0])).Skip(s), ErrDepthExceeded)
		})
	}
}

func TestMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty input", nil, ErrMalformed},
		{"truncated int", []byte{0x03, 0x00, 0x00, 0x00, 0x01}, ErrMalformed},
		{"truncated name", []byte{0x0A, 0x00, 0x05, 'a'}, ErrMalformed},
		{"unterminated compound", []byte{0x0A, 0x00, 0x00, 0x01, 0x00, 0x01, 'a', 0x05}, ErrMalformed},
		{"non-empty list of End", []byte{0x09, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02}, ErrMalformed},
		{"negative array length", []byte{0x07, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF}, ErrMalformed},
		{"oversized array length", []byte{0x0B, 0x00, 0x00, 0x7F, 0xFF, 0xFF, 0xFF}, ErrMalformed},
		{"invalid modified UTF-8", []byte{0x08, 0x00, 0x00, 0x00, 0x01, 0xFF}, ErrMalformed},
		{"invalid root id", []byte{0x0D}, ErrMalformed},
		{"invalid entry id", []byte{0x0A, 0x00, 0x00, 0x2A, 0x00, 0x00}, ErrMalformed},
		{"invalid list element id", []byte{0x09, 0x00, 0x00, 0x63, 0x00, 0x00, 0x00, 0x00}, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTruncatedFinalScalar(t *testing.T) {
	scalars := []Tag{Short(0x0102), Int(0x01020304), Long(0x0102030405060708), Float(1.5), Double(-2.25)}
	for _, tag := range scalars {
		t.Run(tag.Type().Name(), func(t *testing.T) {
			list, err := ListOf(tag.ID(), tag, tag)
			require.NoError(t, err)
			listData, err := Marshal(list)
			require.NoError(t, err)

			compoundData, err := Marshal(NewCompoundBuilder().Put("a", tag).Put("b", tag).BuildImmutable())
			require.NoError(t, err)

			for name, data := range map[string][]byte{
				"in list":     listData[:len(listData)-1],
				"in compound": compoundData[:len(compoundData)-2],
			} {
				_, err := Unmarshal(data)
				assert.ErrorIs(t, err, ErrMalformed, name)

				_, err = ParseDocument(streamOf(data), NewCollector())
				assert.ErrorIs(t, err, ErrMalformed, name)
			}

			whole, err := Marshal(tag)
			require.NoError(t, err)
			_, err = Unmarshal(whole[:len(whole)-1])
			assert.ErrorIs(t, err, ErrMalformed, "root")
		})
	}
}

func TestTruncatedHeaders(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"string length", []byte{0x08, 0x00, 0x00, 0x00}},
		{"list count", []byte{0x09, 0x00, 0x00, 0x03, 0x00, 0x00}},
		{"array count", []byte{0x0B, 0x00, 0x00, 0x00, 0x00, 0x01}},
		{"long array count", []byte{0x0C, 0x00, 0x00, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data)
			assert.ErrorIs(t, err, ErrMalformed)

			_, err = ParseDocument(streamOf(tt.data), BaseStreamingVisitor{})
			assert.ErrorIs(t, err, ErrMalformed)

			// the root header is complete, so skipping hits the short read
			assert.ErrorIs(t, TypeOf(int(tt.data[0])).Skip(streamOf(tt.data[3:])), ErrMalformed)
		})
	}
}

func TestInvalidTypeID(t *testing.T) {
	_, err := Unmarshal([]byte{0x0A, 0x00, 0x00, 0x2A, 0x00, 0x00})

	var invalid *InvalidTypeError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 42, invalid.ID)

	bad := TypeOf(200)
	assert.Equal(t, "INVALID[200]", bad.Name())
	_, err = bad.Load(streamOf([]byte{1, 2, 3}), 0)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Error(t, bad.Skip(streamOf(nil)))
	_, err = bad.Parse(streamOf(nil), BaseStreamingVisitor{})
	assert.Error(t, err)
}

func TestStringTooLong(t *testing.T) {
	_, err := Marshal(String(strings.Repeat("x", 1<<16)))
	assert.ErrorIs(t, err, ErrStringTooLong)

	// NUL takes two bytes in modified UTF-8
	_, err = Marshal(String(strings.Repeat("\x00", 40000)))
	assert.ErrorIs(t, err, ErrStringTooLong)

	_, err = Marshal(String(strings.Repeat("x", 65535)))
	assert.NoError(t, err)

	_, err = Marshal(String(strings.Repeat("é", 32768)))
	assert.ErrorIs(t, err, ErrStringTooLong)

	// six bytes per supplementary character
	data, err := Marshal(String(strings.Repeat("\U0001F600", 10922)))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFC}, data[3:5])
}

func TestModifiedUTF8OnTheWire(t *testing.T) {
	data, err := Marshal(String("\x00"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08, 0x00, 0x00, 0x00, 0x02, 0xC0, 0x80}, data)

	data, err = Marshal(String("\U0001F600"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08, 0x00, 0x00, 0x00, 0x06, 0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}, data)
}

func TestTypeRegistry(t *testing.T) {
	for id := 0; id < typeCount; id++ {
		tt := TypeOf(id)
		assert.Equal(t, TypeID(id), tt.ID())
		assert.Same(t, tt, TypeOf(id), "descriptors are canonical")
	}

	sizes := map[TypeID]int{TypeEnd: 0, TypeByte: 1, TypeShort: 2, TypeInt: 4, TypeLong: 8, TypeFloat: 4, TypeDouble: 8}
	for id, size := range sizes {
		st, ok := TypeOf(int(id)).(StaticSizeType)
		require.True(t, ok, "%s is static", id)
		assert.Equal(t, size, st.Size())
	}
	for _, id := range []TypeID{TypeByteArray, TypeString, TypeList, TypeCompound, TypeIntArray, TypeLongArray} {
		_, ok := TypeOf(int(id)).(StaticSizeType)
		assert.False(t, ok, "%s is variable", id)
	}

	assert.True(t, TypeOf(int(TypeString)).IsValue())
	assert.False(t, TypeOf(int(TypeList)).IsValue())
	assert.Equal(t, "TAG_Compound", TypeOf(int(TypeCompound)).PrettyName())
	assert.Equal(t, "LIST", TypeList.String())
}
