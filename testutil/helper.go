// Package testutil holds assertions and fixtures shared by package tests.
package testutil

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/twinfer/nbt-plugin/pkg/nbt"
)

// ConvertToInt64 converts various numeric types to int64 for comparison.
// Returns the int64 value and a boolean indicating success.
func ConvertToInt64(i any) (int64, bool) {
	switch v := i.(type) {
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
			return int64(v), true
		}
		return 0, false
	case float32:
		if v == float32(math.Trunc(float64(v))) && v >= math.MinInt64 && v < math.MaxInt64 {
			return int64(v), true
		}
		return 0, false
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// NumericComparer compares plain values by numeric value, so an int8 from
// a byte tag equals the float64 encoding/json produced for it.
var NumericComparer = cmp.FilterValues(func(x, y any) bool {
	_, xOk := ConvertToInt64(x)
	_, yOk := ConvertToInt64(y)
	return xOk && yOk
}, cmp.Comparer(func(x, y any) bool {
	xInt, _ := ConvertToInt64(x)
	yInt, _ := ConvertToInt64(y)
	return xInt == yInt
}))

// TagComparer makes cmp treat nbt.Tag values as equal when Equal says so.
var TagComparer = cmp.Comparer(func(x, y nbt.Tag) bool {
	if x == nil || y == nil {
		return x == y
	}
	return x.Equal(y)
})

// AssertTagEqual fails t when got differs from want, reporting the
// difference between their plain renderings.
func AssertTagEqual(t testing.TB, want, got nbt.Tag) bool {
	t.Helper()
	if want == nil || got == nil {
		if want != got {
			t.Errorf("tag mismatch: want %v, got %v", want, got)
			return false
		}
		return true
	}
	if want.Equal(got) {
		return true
	}
	if want.ID() != got.ID() {
		t.Errorf("tag kind mismatch: want %s, got %s", want.Type().Name(), got.Type().Name())
		return false
	}
	t.Errorf("tag mismatch (-want +got):\n%s", cmp.Diff(nbt.ToPlain(want), nbt.ToPlain(got)))
	return false
}

// FilterMapKeys recursively creates a new map from 'source' containing only keys present in 'reference'.
func FilterMapKeys(source map[string]any, reference map[string]any) map[string]any {
	result := make(map[string]any)
	for key, refVal := range reference {
		if srcVal, ok := source[key]; ok {
			if refSubMap, refIsMap := refVal.(map[string]any); refIsMap {
				if srcSubMap, srcIsMap := srcVal.(map[string]any); srcIsMap {
					result[key] = FilterMapKeys(srcSubMap, refSubMap)
				} else {
					result[key] = srcVal // Type mismatch, will be caught by cmp.Diff
				}
			} else {
				result[key] = srcVal
			}
		}
	}
	return result
}

// Level builds a small world-save style document that exercises every
// tag kind.
func Level(t testing.TB) *nbt.ImmutableCompound {
	t.Helper()
	sections, err := nbt.NewListBuilder().
		AddCompound(func(b *nbt.CompoundBuilder) {
			b.PutByte("Y", 0).PutLongArray("BlockStates", []int64{1, -1, 1 << 40})
		}).
		AddCompound(func(b *nbt.CompoundBuilder) {
			b.PutByte("Y", 1).PutByteArray("SkyLight", []byte{0xF0, 0x0F})
		}).
		BuildImmutable()
	if err != nil {
		t.Fatalf("build sections: %v", err)
	}
	return nbt.NewCompoundBuilder().
		PutCompound("Data", func(b *nbt.CompoundBuilder) {
			b.PutString("LevelName", "world").
				PutLong("Time", 24000).
				PutInt("DataVersion", 3465).
				PutShort("Difficulty", 2).
				PutBool("hardcore", false).
				PutFloat("BorderSize", 5.9999968e7).
				PutDouble("BorderCenterX", -0.5).
				PutIntArray("SpawnPos", []int32{0, 64, 0})
		}).
		PutList("Sections", sections).
		BuildImmutable()
}
