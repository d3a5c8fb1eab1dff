package testutil

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/twinfer/nbt-plugin/pkg/nbt"
)

func TestNumericComparer(t *testing.T) {
	assert.True(t, cmp.Equal(any(int8(3)), any(float64(3)), NumericComparer))
	assert.True(t, cmp.Equal([]any{int32(-1), int64(2)}, []any{float64(-1), 2}, NumericComparer))
	assert.False(t, cmp.Equal(any(int8(3)), any(3.5), NumericComparer))
	assert.False(t, cmp.Equal(any(uint64(1<<63)), any(int64(-1)), NumericComparer))
}

func TestTagComparer(t *testing.T) {
	type holder struct{ T nbt.Tag }
	a := holder{nbt.NewMutableCompound().PutInt("x", 1)}
	b := holder{nbt.NewCompoundBuilder().PutInt("x", 1).BuildImmutable()}
	assert.True(t, cmp.Equal(a, b, TagComparer))
	assert.False(t, cmp.Equal(a, holder{nbt.Int(1)}, TagComparer))
}

func TestAssertTagEqual(t *testing.T) {
	level := Level(t)
	assert.True(t, AssertTagEqual(t, level, level.AsMutable()))

	probe := &recordingTB{TB: t}
	assert.False(t, AssertTagEqual(probe, nbt.Int(1), nbt.Long(1)))
	assert.False(t, AssertTagEqual(probe, level, level.PutString("extra", "x")))
	assert.Len(t, probe.errors, 2)
	assert.Contains(t, probe.errors[0], "kind mismatch")
}

type recordingTB struct {
	testing.TB
	errors []string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestFilterMapKeys(t *testing.T) {
	src := map[string]any{"a": 1, "b": map[string]any{"c": 2, "d": 3}, "e": 4}
	ref := map[string]any{"a": nil, "b": map[string]any{"c": nil}}
	assert.Equal(t, map[string]any{"a": 1, "b": map[string]any{"c": 2}}, FilterMapKeys(src, ref))
}
