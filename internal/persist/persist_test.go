package persist

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkBalanced[V any](t *testing.T, n *vnode[V]) int {
	t.Helper()
	if n == nil {
		return 0
	}
	hl := checkBalanced(t, n.left)
	hr := checkBalanced(t, n.right)
	require.LessOrEqual(t, hl-hr, 1)
	require.LessOrEqual(t, hr-hl, 1)
	require.Equal(t, vsize(n.left)+vsize(n.right)+1, n.size)
	return max(hl, hr) + 1
}

func TestVector_AppendGet(t *testing.T) {
	var v Vector[int]
	for i := 0; i < 200; i++ {
		v = v.Append(i)
	}
	require.Equal(t, 200, v.Len())
	for i := 0; i < 200; i++ {
		assert.Equal(t, i, v.Get(i))
	}
	checkBalanced(t, v.root)
}

func TestVector_StructuralSharing(t *testing.T) {
	base := VectorOf(1, 2, 3, 4, 5)
	updated := base.Set(2, 30)
	inserted := base.Insert(0, 0)
	deleted := base.Delete(4)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, base.Slice())
	assert.Equal(t, []int{1, 2, 30, 4, 5}, updated.Slice())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, inserted.Slice())
	assert.Equal(t, []int{1, 2, 3, 4}, deleted.Slice())
}

func TestVector_InsertDeleteMixed(t *testing.T) {
	var v Vector[int]
	var ref []int
	for i := 0; i < 100; i++ {
		pos := (i * 7) % (len(ref) + 1)
		v = v.Insert(pos, i)
		ref = append(ref[:pos], append([]int{i}, ref[pos:]...)...)
	}
	for i := 0; i < 40; i++ {
		pos := (i * 13) % len(ref)
		v = v.Delete(pos)
		ref = append(ref[:pos], ref[pos+1:]...)
	}
	assert.Equal(t, ref, v.Slice())
	checkBalanced(t, v.root)
}

func TestVector_OutOfRangePanics(t *testing.T) {
	v := VectorOf("a")
	assert.Panics(t, func() { v.Get(1) })
	assert.Panics(t, func() { v.Set(-1, "b") })
	assert.Panics(t, func() { v.Delete(1) })
	assert.Panics(t, func() { v.Insert(2, "b") })
}

func TestMap_InsertionOrder(t *testing.T) {
	var m Map[int]
	keys := []string{"zeta", "alpha", "mid", "beta"}
	for i, k := range keys {
		m = m.With(k, i)
	}
	assert.Equal(t, keys, m.Keys())

	m = m.With("alpha", 100)
	assert.Equal(t, keys, m.Keys(), "replacing a value keeps its position")
	v, ok := m.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, 100, v)
}

func TestMap_WithoutSharesOldRoot(t *testing.T) {
	var m Map[string]
	for i := 0; i < 50; i++ {
		m = m.With(fmt.Sprintf("k%02d", i), fmt.Sprint(i))
	}
	smaller := m.Without("k10").Without("k49")
	assert.Equal(t, 50, m.Len())
	assert.Equal(t, 48, smaller.Len())

	_, ok := m.Get("k10")
	assert.True(t, ok)
	_, ok = smaller.Get("k10")
	assert.False(t, ok)

	same := smaller.Without("missing")
	assert.Equal(t, smaller.Keys(), same.Keys())
}

func TestMap_ReinsertGoesLast(t *testing.T) {
	var m Map[int]
	m = m.With("a", 1).With("b", 2).With("c", 3)
	m = m.Without("a").With("a", 4)
	assert.Equal(t, []string{"b", "c", "a"}, m.Keys())
}
