// Package persist provides small persistent collections used by the
// immutable tag containers. Every update returns a new root that shares
// all untouched nodes with the previous one; old roots stay valid.
package persist

import "iter"

// vnode is a node of an implicitly indexed AVL tree. The position of a
// value is given by the sizes of the subtrees to its left.
type vnode[V any] struct {
	left, right *vnode[V]
	value       V
	size        int
	height      int
}

func vsize[V any](n *vnode[V]) int {
	if n == nil {
		return 0
	}
	return n.size
}

func vheight[V any](n *vnode[V]) int {
	if n == nil {
		return 0
	}
	return n.height
}

func vmake[V any](l *vnode[V], v V, r *vnode[V]) *vnode[V] {
	return &vnode[V]{
		left:   l,
		right:  r,
		value:  v,
		size:   vsize(l) + vsize(r) + 1,
		height: max(vheight(l), vheight(r)) + 1,
	}
}

func vbalance[V any](l *vnode[V], v V, r *vnode[V]) *vnode[V] {
	hl, hr := vheight(l), vheight(r)
	switch {
	case hl > hr+1:
		if vheight(l.left) >= vheight(l.right) {
			return vmake(l.left, l.value, vmake(l.right, v, r))
		}
		lr := l.right
		return vmake(vmake(l.left, l.value, lr.left), lr.value, vmake(lr.right, v, r))
	case hr > hl+1:
		if vheight(r.right) >= vheight(r.left) {
			return vmake(vmake(l, v, r.left), r.value, r.right)
		}
		rl := r.left
		return vmake(vmake(l, v, rl.left), rl.value, vmake(rl.right, r.value, r.right))
	default:
		return vmake(l, v, r)
	}
}

func vget[V any](n *vnode[V], i int) V {
	for {
		ls := vsize(n.left)
		switch {
		case i < ls:
			n = n.left
		case i > ls:
			i -= ls + 1
			n = n.right
		default:
			return n.value
		}
	}
}

func vset[V any](n *vnode[V], i int, v V) *vnode[V] {
	ls := vsize(n.left)
	switch {
	case i < ls:
		return &vnode[V]{left: vset(n.left, i, v), right: n.right, value: n.value, size: n.size, height: n.height}
	case i > ls:
		return &vnode[V]{left: n.left, right: vset(n.right, i-ls-1, v), value: n.value, size: n.size, height: n.height}
	default:
		return &vnode[V]{left: n.left, right: n.right, value: v, size: n.size, height: n.height}
	}
}

func vinsert[V any](n *vnode[V], i int, v V) *vnode[V] {
	if n == nil {
		return vmake(nil, v, nil)
	}
	ls := vsize(n.left)
	if i <= ls {
		return vbalance(vinsert(n.left, i, v), n.value, n.right)
	}
	return vbalance(n.left, n.value, vinsert(n.right, i-ls-1, v))
}

func vremoveMin[V any](n *vnode[V]) (V, *vnode[V]) {
	if n.left == nil {
		return n.value, n.right
	}
	v, l := vremoveMin(n.left)
	return v, vbalance(l, n.value, n.right)
}

func vdelete[V any](n *vnode[V], i int) *vnode[V] {
	ls := vsize(n.left)
	switch {
	case i < ls:
		return vbalance(vdelete(n.left, i), n.value, n.right)
	case i > ls:
		return vbalance(n.left, n.value, vdelete(n.right, i-ls-1))
	}
	if n.left == nil {
		return n.right
	}
	if n.right == nil {
		return n.left
	}
	v, r := vremoveMin(n.right)
	return vbalance(n.left, v, r)
}

func vbuild[V any](values []V) *vnode[V] {
	if len(values) == 0 {
		return nil
	}
	mid := len(values) / 2
	return vmake(vbuild(values[:mid]), values[mid], vbuild(values[mid+1:]))
}

func vwalk[V any](n *vnode[V], i int, yield func(int, V) bool) (int, bool) {
	if n == nil {
		return i, true
	}
	i, ok := vwalk(n.left, i, yield)
	if !ok {
		return i, false
	}
	if !yield(i, n.value) {
		return i, false
	}
	return vwalk(n.right, i+1, yield)
}

// Vector is a persistent indexed sequence. The zero value is an empty
// vector ready to use.
type Vector[V any] struct {
	root *vnode[V]
}

// VectorOf builds a balanced vector holding a copy of values.
func VectorOf[V any](values ...V) Vector[V] {
	return Vector[V]{root: vbuild(values)}
}

// Len returns the number of elements.
func (v Vector[V]) Len() int { return vsize(v.root) }

// Get returns the element at index i. It panics if i is out of range,
// like a slice index.
func (v Vector[V]) Get(i int) V {
	if i < 0 || i >= v.Len() {
		panic(indexPanic(i, v.Len()))
	}
	return vget(v.root, i)
}

// Set returns a vector with the element at index i replaced.
func (v Vector[V]) Set(i int, value V) Vector[V] {
	if i < 0 || i >= v.Len() {
		panic(indexPanic(i, v.Len()))
	}
	return Vector[V]{root: vset(v.root, i, value)}
}

// Append returns a vector with value added at the end.
func (v Vector[V]) Append(value V) Vector[V] {
	return Vector[V]{root: vinsert(v.root, v.Len(), value)}
}

// Insert returns a vector with value inserted before index i.
// i may equal Len.
func (v Vector[V]) Insert(i int, value V) Vector[V] {
	if i < 0 || i > v.Len() {
		panic(indexPanic(i, v.Len()))
	}
	return Vector[V]{root: vinsert(v.root, i, value)}
}

// Delete returns a vector without the element at index i.
func (v Vector[V]) Delete(i int) Vector[V] {
	if i < 0 || i >= v.Len() {
		panic(indexPanic(i, v.Len()))
	}
	return Vector[V]{root: vdelete(v.root, i)}
}

// All iterates over index/value pairs in order.
func (v Vector[V]) All() iter.Seq2[int, V] {
	return func(yield func(int, V) bool) {
		vwalk(v.root, 0, yield)
	}
}

// Slice copies the vector into a new slice.
func (v Vector[V]) Slice() []V {
	out := make([]V, 0, v.Len())
	for _, value := range v.All() {
		out = append(out, value)
	}
	return out
}
