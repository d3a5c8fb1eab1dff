package nbtio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinfer/nbt-plugin/pkg/nbt"
	"github.com/twinfer/nbt-plugin/testutil"
)

func sampleRoot() *nbt.ImmutableCompound {
	return nbt.NewCompoundBuilder().
		PutString("LevelName", "world").
		PutLong("RandomSeed", -42).
		PutCompound("Player", func(b *nbt.CompoundBuilder) {
			b.PutFloat("Health", 20).PutIntArray("Pos", []int32{1, 64, -3})
		}).
		BuildImmutable()
}

func TestCompressionNames(t *testing.T) {
	for _, c := range []Compression{Auto, None, Gzip, Zlib, LZ4} {
		got, err := ParseCompression(strings.ToUpper(c.String()))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	got, err := ParseCompression("")
	require.NoError(t, err)
	assert.Equal(t, Auto, got)

	_, err = ParseCompression("brotli")
	assert.Error(t, err)
}

func TestRoundTripEveryCompression(t *testing.T) {
	codec := NewCodec()
	root := sampleRoot()
	ctx := context.Background()

	for _, c := range []Compression{None, Gzip, Zlib, LZ4} {
		t.Run(c.String(), func(t *testing.T) {
			data, err := codec.Encode(ctx, root, WithCompression(c), WithRootName("Data"))
			require.NoError(t, err)
			assert.Equal(t, c, DetectCompression(data))

			// detection
			named, err := codec.Decode(ctx, data)
			require.NoError(t, err)
			assert.Equal(t, "Data", named.Name)
			assert.True(t, root.Equal(named.Tag))

			// explicit
			got, err := codec.Read(ctx, bytes.NewReader(data), WithCompression(c))
			require.NoError(t, err)
			assert.True(t, root.Equal(got))
		})
	}
}

func TestAutoWritesGzip(t *testing.T) {
	data, err := Encode(sampleRoot())
	require.NoError(t, err)
	assert.Equal(t, Gzip, DetectCompression(data))
}

func TestDetectCompression(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Compression
	}{
		{"empty", nil, None},
		{"raw compound", []byte{0x0A, 0x00, 0x00, 0x00}, None},
		{"gzip", []byte{0x1F, 0x8B, 0x08}, Gzip},
		{"zlib default", []byte{0x78, 0x9C}, Zlib},
		{"zlib best", []byte{0x78, 0xDA}, Zlib},
		{"lz4 frame", []byte{0x04, 0x22, 0x4D, 0x18, 0x64}, LZ4},
		{"zlib window too large", []byte{0x88, 0x1C}, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCompression(tt.data))
		})
	}
}

func TestMaxSize(t *testing.T) {
	codec := NewCodec()
	ctx := context.Background()
	big := nbt.NewMutableCompound().PutByteArray("blob", make([]byte, 4096))

	for _, c := range []Compression{None, Gzip} {
		data, err := codec.Encode(ctx, big, WithCompression(c))
		require.NoError(t, err)

		_, err = codec.Decode(ctx, data, WithMaxSize(1024))
		assert.ErrorIs(t, err, ErrTooLarge, c.String())

		_, err = codec.Read(ctx, bytes.NewReader(data), WithCompression(c), WithMaxSize(1024))
		assert.ErrorIs(t, err, ErrTooLarge, c.String())

		_, err = codec.Decode(ctx, data, WithMaxSize(0))
		assert.NoError(t, err, "zero disables the limit")
	}
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestMaxSizeBoundsRawInput(t *testing.T) {
	big := nbt.NewMutableCompound().PutByteArray("blob", make([]byte, 1<<20))
	data, err := Encode(big, WithCompression(None))
	require.NoError(t, err)

	for _, c := range []Compression{Auto, None, Gzip} {
		src := &countingReader{r: bytes.NewReader(data)}
		_, err := NewCodec().Read(context.Background(), src, WithCompression(c), WithMaxSize(1024))
		assert.ErrorIs(t, err, ErrTooLarge, c.String())
		assert.LessOrEqual(t, src.n, 1025, c.String())
	}
}

func TestRawStringRootLooksLikeZlib(t *testing.T) {
	// a name length of 0x1D00 puts 0x08 0x1D up front, a valid CMF/FLG pair
	name := strings.Repeat("n", 0x1D00)
	data, err := Encode(nbt.String("value"), WithCompression(None), WithRootName(name))
	require.NoError(t, err)
	require.Equal(t, Zlib, DetectCompression(data))

	named, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, name, named.Name)
	assert.True(t, nbt.String("value").Equal(named.Tag))

	_, err = Decode(data, WithCompression(Zlib))
	assert.Error(t, err, "an explicit envelope is not second-guessed")
}

func TestReadRequiresCompound(t *testing.T) {
	data, err := Encode(nbt.Int(5), WithCompression(None))
	require.NoError(t, err)

	_, err = NewCodec().Read(context.Background(), bytes.NewReader(data))
	assert.ErrorIs(t, err, nbt.ErrNotCompound)

	named, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, nbt.Int(5).Equal(named.Tag))
}

func TestCorruptInput(t *testing.T) {
	_, err := Decode([]byte{0x0A, 0x00, 0x00, 0x03, 0x00})
	assert.ErrorIs(t, err, nbt.ErrMalformed)

	_, err = Decode([]byte{0x1F, 0x8B, 0x00, 0x01})
	assert.Error(t, err, "broken gzip header")
}

func TestExtract(t *testing.T) {
	codec := NewCodec()
	ctx := context.Background()
	data, err := codec.Encode(ctx, sampleRoot())
	require.NoError(t, err)

	got, ok, err := codec.Extract(ctx, bytes.NewReader(data), "Player.Pos[1]")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, nbt.Int(64).Equal(got))

	_, ok, err = codec.Extract(ctx, bytes.NewReader(data), "Player.Missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = codec.Extract(ctx, bytes.NewReader(data), "Player[")
	assert.Error(t, err)

	codec.ClearCache()
	_, ok, err = codec.Extract(ctx, bytes.NewReader(data), "Player.Pos[1]")
	require.NoError(t, err)
	assert.True(t, ok)
}

type entryCount struct {
	nbt.BaseStreamingVisitor
	n int
}

func (e *entryCount) VisitNamedEntry(nbt.TagType, string) nbt.EntryResult {
	e.n++
	return nbt.Enter
}

func TestParse(t *testing.T) {
	codec := NewCodec()
	data, err := codec.Encode(context.Background(), sampleRoot())
	require.NoError(t, err)

	v := &entryCount{}
	res, err := codec.Parse(context.Background(), bytes.NewReader(data), v)
	require.NoError(t, err)
	assert.Equal(t, nbt.Continue, res)
	assert.Equal(t, 5, v.n)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = codec.Parse(ctx, bytes.NewReader(data), &entryCount{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSON(t *testing.T) {
	data, err := Encode(sampleRoot(), WithCompression(Zlib))
	require.NoError(t, err)

	jsonData, err := ToJSON(data)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(jsonData, &decoded))
	assert.Equal(t, "world", decoded["LevelName"])
	assert.Equal(t, float64(-42), decoded["RandomSeed"])

	back, err := FromJSON([]byte(`{"name":"test","value":42,"ratio":0.5}`), WithCompression(None))
	require.NoError(t, err)
	named, err := Decode(back)
	require.NoError(t, err)
	c := named.Tag.(nbt.Compound)
	assert.Equal(t, "test", c.GetString("name"))
	assert.Equal(t, nbt.TypeInt, c.TypeOf("value"))
	assert.Equal(t, nbt.TypeDouble, c.TypeOf("ratio"))

	_, err = FromJSON([]byte(`[1,2]`))
	assert.Error(t, err, "root must be an object")
}

func TestFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level.dat")
	root := sampleRoot()

	require.NoError(t, WriteFile(path, root, WithCompression(LZ4)))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, LZ4, DetectCompression(raw))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.True(t, root.Equal(got))

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.dat"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	codec := NewCodec(WithLogger(logger), WithDebugMode(true))

	data, err := codec.Encode(context.Background(), sampleRoot(), WithCompression(Gzip))
	require.NoError(t, err)
	_, err = codec.Decode(context.Background(), data)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "encoded document")
	assert.Contains(t, out, "decompressed document")
	assert.Contains(t, out, "debug=true")
}

func TestLevelDocument(t *testing.T) {
	level := testutil.Level(t)
	for _, c := range []Compression{None, Gzip, Zlib, LZ4} {
		t.Run(c.String(), func(t *testing.T) {
			data, err := Encode(level, WithCompression(c))
			require.NoError(t, err)
			named, err := Decode(data)
			require.NoError(t, err)
			testutil.AssertTagEqual(t, level, named.Tag)
		})
	}

	data, err := Encode(level)
	require.NoError(t, err)
	jsonData, err := ToJSON(data)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(jsonData, &decoded))
	want := nbt.ToPlain(level.GetCompound("Data")).(map[string]any)
	delete(want, "BorderSize")
	got := testutil.FilterMapKeys(decoded["Data"].(map[string]any), want)

	// JSON arrays decode as []any
	want["SpawnPos"] = []any{int32(0), int32(64), int32(0)}
	if diff := cmp.Diff(want, got, testutil.NumericComparer); diff != "" {
		t.Errorf("json mismatch (-want +got):\n%s", diff)
	}
}
