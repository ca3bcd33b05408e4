package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// rangeNode enumerates the selected indices of one axis. It carries the
// axis stride (the product of all lower dimensions), a counter and limit,
// and either a contiguous step or an explicit index list.
type rangeNode struct {
	counter int
	limit   int
	step    int
	stride  int
	base    int
	indices Indices
}

func (n *rangeNode) offset() int {
	if n.indices != nil {
		return n.stride * n.indices[n.counter]
	}
	return n.stride * (n.base + n.counter*n.step)
}

// contiguous reports whether the node emits consecutive offsets, which
// enables block copies of length limit.
func (n *rangeNode) contiguous() bool {
	return n.indices == nil && n.step == 1 && n.stride == 1
}

// RangeIterator enumerates flat buffer offsets of a multi-range selection
// in order of increasing axis number, the first axis varying fastest. It
// is a single-pass enumerator.
type RangeIterator struct {
	nodes []rangeNode
	done  bool
}

// newRangeIterator binds one range per axis of dims. It returns the
// iterator together with the shape of the selection, with squeezed axes
// removed.
func newRangeIterator(rs []Range, dims Dimensions) (*RangeIterator, Dimensions) {
	if len(rs) != len(dims) {
		panic(errors.Wrap(ErrDimensionsMismatch, fmt.Sprintf("%d ranges %v", len(rs), dims)))
	}
	it := &RangeIterator{nodes: make([]rangeNode, len(rs))}
	out := make(Dimensions, 0, len(rs))
	str := strides(dims)
	for k, r := range rs {
		first, step, count, ndx := r.resolve(dims[k])
		it.nodes[k] = rangeNode{limit: count, step: step, stride: str[k], base: first, indices: ndx}
		if ndx != nil {
			it.nodes[k].limit = len(ndx)
		}
		if it.nodes[k].limit == 0 {
			it.done = true
		}
		if !r.Squeezed() {
			out = append(out, it.nodes[k].limit)
		}
	}
	return it, out
}

// Size returns the total number of offsets the iterator emits.
func (it *RangeIterator) Size() int {
	size := 1
	for i := range it.nodes {
		size *= it.nodes[i].limit
	}
	return size
}

// Next returns the next flat offset. The second value is false when the
// enumeration is exhausted.
func (it *RangeIterator) Next() (int, bool) {
	if it.done {
		return 0, false
	}
	offset := 0
	for i := range it.nodes {
		offset += it.nodes[i].offset()
	}
	for i := range it.nodes {
		it.nodes[i].counter++
		if it.nodes[i].counter < it.nodes[i].limit {
			return offset, true
		}
		it.nodes[i].counter = 0
	}
	it.done = true
	return offset, true
}

// Contiguous reports whether the innermost node emits consecutive
// offsets, so that the selection can be walked in blocks of BlockSize.
func (it *RangeIterator) Contiguous() bool {
	return len(it.nodes) > 0 && it.nodes[0].contiguous()
}

// BlockSize returns the length of the contiguous blocks.
func (it *RangeIterator) BlockSize() int {
	if !it.Contiguous() {
		return 1
	}
	return it.nodes[0].limit
}

// NextBlock returns the offset of the next contiguous block. It must only
// be called when Contiguous() holds.
func (it *RangeIterator) NextBlock() (int, bool) {
	if it.done {
		return 0, false
	}
	offset := it.nodes[0].base
	for i := 1; i < len(it.nodes); i++ {
		offset += it.nodes[i].offset()
	}
	if len(it.nodes) == 1 {
		it.done = true
		return offset, true
	}
	for i := 1; i < len(it.nodes); i++ {
		it.nodes[i].counter++
		if it.nodes[i].counter < it.nodes[i].limit {
			return offset, true
		}
		it.nodes[i].counter = 0
	}
	it.done = true
	return offset, true
}
