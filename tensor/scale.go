package tensor

import (
	"fmt"
	"slices"
	"sort"

	"github.com/pkg/errors"
)

// Scale multiplies t along axis k by the vector v of matching length.
func Scale[T Element](t *Tensor[T], k int, v *Tensor[T]) *Tensor[T] {
	out := t.Share()
	ScaleInPlace(out, k, v)
	return out
}

// ScaleInPlace is the in-place variant of Scale.
func ScaleInPlace[T Element](t *Tensor[T], k int, v *Tensor[T]) {
	left, n, right := Surround(t.dims, k)
	if v.Size() != n {
		panic(errors.Wrap(ErrDimensionsMismatch, fmt.Sprintf("%v axis %d, vector %d", t.dims, k, v.Size())))
	}
	data, vd := t.unshare(), v.buf.data
	for r := 0; r < right; r++ {
		for x := 0; x < n; x++ {
			f := vd[x]
			base := left * (x + n*r)
			for l := 0; l < left; l++ {
				data[base+l] *= f
			}
		}
	}
}

// ChangeDimension truncates or zero-pads t along axis k to the new size
// n, copying the surviving data block by block.
func ChangeDimension[T Element](t *Tensor[T], k int, n int) *Tensor[T] {
	if n < 0 {
		panic(errors.Wrap(ErrInvalidDimension, fmt.Sprintf("%d", n)))
	}
	left, d, right := Surround(t.dims, k)
	k = t.dims.Normalize(k)
	dims := t.dims.clone()
	dims[k] = n
	out := New[T](dims...)
	src, dst := t.buf.data, out.buf.data
	keep := left * min(d, n)
	for r := 0; r < right; r++ {
		copy(dst[left*n*r:left*n*r+keep], src[left*d*r:left*d*r+keep])
	}
	return out
}

// Sort returns the elements of a rank-1 tensor in increasing order, or
// decreasing when reverse is set. Complex elements order by real part.
func Sort[T Element](v *Tensor[T], reverse ...bool) *Tensor[T] {
	data := make([]T, v.Size())
	copy(data, v.buf.data)
	slices.SortStableFunc(data, compareElem[T])
	if len(reverse) > 0 && reverse[0] {
		slices.Reverse(data)
	}
	return FromSlice(data, len(data))
}

// SortIndices returns the permutation that sorts a rank-1 tensor.
func SortIndices[T Element](v *Tensor[T], reverse ...bool) Indices {
	ndx := make(Indices, v.Size())
	for i := range ndx {
		ndx[i] = i
	}
	data := v.buf.data
	sort.SliceStable(ndx, func(i, j int) bool {
		return compareElem(data[ndx[i]], data[ndx[j]]) < 0
	})
	if len(reverse) > 0 && reverse[0] {
		slices.Reverse(ndx)
	}
	return ndx
}
