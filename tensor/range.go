package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Range describes the subset of indices selected along one axis. The
// wraparound semantics follow Numpy: negative first/last positions are
// relative to the axis dimension, and last is inclusive.
type Range struct {
	first, last, step int
	indices           Indices
	full              bool
	list              bool
	squeezed          bool
}

// Full selects every index of the axis.
func Full() Range { return Range{full: true, step: 1} }

// NewRange selects the arithmetic progression first:step:last, with last
// included. A zero step is rejected.
func NewRange(first, last, step int) Range {
	if step == 0 {
		panic(errors.Wrap(ErrInvalidDimension, "zero step"))
	}
	return Range{first: first, last: last, step: step}
}

// Span selects the contiguous indices first through last, both included.
func Span(first, last int) Range { return NewRange(first, last, 1) }

// Only selects the single index pos and squeezes the axis out of the
// result.
func Only(pos int) Range {
	r := NewRange(pos, pos, 1)
	r.squeezed = true
	return r
}

// List selects an explicit vector of indices.
func List(ndx ...int) Range {
	return Range{indices: Indices(ndx), list: true, step: 1}
}

// Squeezed reports whether the axis disappears from the result.
func (r Range) Squeezed() bool { return r.squeezed }

// resolve binds the range to an axis of dimension n, normalizing negative
// positions and validating every generated offset.
func (r Range) resolve(n int) (first, step, count int, indices Indices) {
	if r.full {
		return 0, 1, n, nil
	}
	if r.list {
		out := make(Indices, len(r.indices))
		for i, k := range r.indices {
			out[i] = Normalize(k, n)
		}
		return 0, 1, len(out), out
	}
	first = r.first
	if first < 0 {
		first += n
	}
	last := r.last
	if last < 0 {
		last += n
	}
	d := last - first
	count = d / r.step
	if d%r.step != 0 && (d < 0) != (r.step < 0) {
		count--
	}
	count = max(0, count+1)
	if count > 0 {
		if first < 0 || first >= n {
			panic(errors.Wrap(ErrIndexOutOfBounds, fmt.Sprintf("%d %d", r.first, n)))
		}
		if end := first + (count-1)*r.step; end < 0 || end >= n {
			panic(errors.Wrap(ErrIndexOutOfBounds, fmt.Sprintf("%d %d", r.last, n)))
		}
	}
	return first, r.step, count, nil
}

// Size returns the number of indices that survive on an axis of
// dimension n.
func (r Range) Size(n int) int {
	_, _, count, ndx := r.resolve(n)
	if ndx != nil {
		return len(ndx)
	}
	return count
}
