package persist

import (
	"cmp"
	"fmt"
	"iter"
)

func indexPanic(i, n int) string {
	return fmt.Sprintf("persist: index %d out of range [0:%d]", i, n)
}

// knode is a node of a key-ordered AVL tree.
type knode[K cmp.Ordered, V any] struct {
	left, right *knode[K, V]
	key         K
	value       V
	height      int
}

func kheight[K cmp.Ordered, V any](n *knode[K, V]) int {
	if n == nil {
		return 0
	}
	return n.height
}

func kmake[K cmp.Ordered, V any](l *knode[K, V], k K, v V, r *knode[K, V]) *knode[K, V] {
	return &knode[K, V]{left: l, right: r, key: k, value: v, height: max(kheight(l), kheight(r)) + 1}
}

func kbalance[K cmp.Ordered, V any](l *knode[K, V], k K, v V, r *knode[K, V]) *knode[K, V] {
	hl, hr := kheight(l), kheight(r)
	switch {
	case hl > hr+1:
		if kheight(l.left) >= kheight(l.right) {
			return kmake(l.left, l.key, l.value, kmake(l.right, k, v, r))
		}
		lr := l.right
		return kmake(kmake(l.left, l.key, l.value, lr.left), lr.key, lr.value, kmake(lr.right, k, v, r))
	case hr > hl+1:
		if kheight(r.right) >= kheight(r.left) {
			return kmake(kmake(l, k, v, r.left), r.key, r.value, r.right)
		}
		rl := r.left
		return kmake(kmake(l, k, v, rl.left), rl.key, rl.value, kmake(rl.right, r.key, r.value, r.right))
	default:
		return kmake(l, k, v, r)
	}
}

func kget[K cmp.Ordered, V any](n *knode[K, V], k K) (V, bool) {
	for n != nil {
		switch c := cmp.Compare(k, n.key); {
		case c < 0:
			n = n.left
		case c > 0:
			n = n.right
		default:
			return n.value, true
		}
	}
	var zero V
	return zero, false
}

func kput[K cmp.Ordered, V any](n *knode[K, V], k K, v V) *knode[K, V] {
	if n == nil {
		return kmake(nil, k, v, nil)
	}
	switch c := cmp.Compare(k, n.key); {
	case c < 0:
		return kbalance(kput(n.left, k, v), n.key, n.value, n.right)
	case c > 0:
		return kbalance(n.left, n.key, n.value, kput(n.right, k, v))
	default:
		return &knode[K, V]{left: n.left, right: n.right, key: k, value: v, height: n.height}
	}
}

func kremoveMin[K cmp.Ordered, V any](n *knode[K, V]) (*knode[K, V], *knode[K, V]) {
	if n.left == nil {
		return n, n.right
	}
	m, l := kremoveMin(n.left)
	return m, kbalance(l, n.key, n.value, n.right)
}

func kdelete[K cmp.Ordered, V any](n *knode[K, V], k K) *knode[K, V] {
	if n == nil {
		return nil
	}
	switch c := cmp.Compare(k, n.key); {
	case c < 0:
		return kbalance(kdelete(n.left, k), n.key, n.value, n.right)
	case c > 0:
		return kbalance(n.left, n.key, n.value, kdelete(n.right, k))
	}
	if n.left == nil {
		return n.right
	}
	if n.right == nil {
		return n.left
	}
	m, r := kremoveMin(n.right)
	return kbalance(n.left, m.key, m.value, r)
}

func kwalk[K cmp.Ordered, V any](n *knode[K, V], yield func(K, V) bool) bool {
	if n == nil {
		return true
	}
	return kwalk(n.left, yield) && yield(n.key, n.value) && kwalk(n.right, yield)
}

type slot[V any] struct {
	key   string
	value V
}

// Map is a persistent string-keyed map that iterates in insertion order.
// Replacing the value of an existing key keeps its position. The zero
// value is an empty map ready to use.
type Map[V any] struct {
	index *knode[string, uint64]  // key -> sequence number
	order *knode[uint64, slot[V]] // sequence number -> entry
	next  uint64
	n     int
}

// Len returns the number of entries.
func (m Map[V]) Len() int { return m.n }

// Get returns the value stored under key.
func (m Map[V]) Get(key string) (V, bool) {
	seq, ok := kget(m.index, key)
	if !ok {
		var zero V
		return zero, false
	}
	s, _ := kget(m.order, seq)
	return s.value, true
}

// With returns a map where key maps to value.
func (m Map[V]) With(key string, value V) Map[V] {
	if seq, ok := kget(m.index, key); ok {
		m.order = kput(m.order, seq, slot[V]{key: key, value: value})
		return m
	}
	m.index = kput(m.index, key, m.next)
	m.order = kput(m.order, m.next, slot[V]{key: key, value: value})
	m.next++
	m.n++
	return m
}

// Without returns a map with key removed. The receiver is returned
// unchanged when key is absent.
func (m Map[V]) Without(key string) Map[V] {
	seq, ok := kget(m.index, key)
	if !ok {
		return m
	}
	m.index = kdelete(m.index, key)
	m.order = kdelete(m.order, seq)
	m.n--
	return m
}

// All iterates over entries in insertion order.
func (m Map[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		kwalk(m.order, func(_ uint64, s slot[V]) bool {
			return yield(s.key, s.value)
		})
	}
}

// Keys returns the keys in insertion order.
func (m Map[V]) Keys() []string {
	keys := make([]string, 0, m.n)
	for k := range m.All() {
		keys = append(keys, k)
	}
	return keys
}
