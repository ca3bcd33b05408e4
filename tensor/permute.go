package tensor

// Permute swaps two axes of a tensor. The shape decomposes as
// [L, di, M, dj, R] around the normalized axes i < j; the output stores
// the elements with the roles of di and dj exchanged. The work is done by
// one of four nested-loop kernels chosen by the degenerate values of L
// and M.
func Permute[T Element](t *Tensor[T], i, j int) *Tensor[T] {
	i, j = t.dims.Normalize(i), t.dims.Normalize(j)
	if i == j {
		return t.Share()
	}
	if i > j {
		i, j = j, i
	}
	left, di, _ := Surround(t.dims, i)
	_, dj, right := Surround(t.dims, j)
	mid := 1
	for _, n := range t.dims[i+1 : j] {
		mid *= n
	}

	dims := t.dims.clone()
	dims[i], dims[j] = dims[j], dims[i]
	out := New[T](dims...)
	if out.Size() == 0 {
		return out
	}

	src, dst := t.buf.data, out.buf.data
	switch {
	case left == 1 && mid == 1:
		permute12(dst, src, di, dj, right)
	case mid == 1:
		permute23(dst, src, left, di, dj, right)
	case left == 1:
		permute13(dst, src, di, mid, dj, right)
	default:
		permute24(dst, src, left, di, mid, dj, right)
	}
	return out
}

// permute12 swaps two adjacent leading axes.
func permute12[T Element](dst, src []T, di, dj, right int) {
	for r := 0; r < right; r++ {
		sr := di * dj * r
		for b := 0; b < dj; b++ {
			for a := 0; a < di; a++ {
				dst[b+dj*a+sr] = src[a+di*b+sr]
			}
		}
	}
}

// permute23 swaps two adjacent axes preceded by a fast block of length
// left, which is copied wholesale.
func permute23[T Element](dst, src []T, left, di, dj, right int) {
	for r := 0; r < right; r++ {
		for b := 0; b < dj; b++ {
			for a := 0; a < di; a++ {
				so := left * (a + di*(b+dj*r))
				do := left * (b + dj*(a+di*r))
				copy(dst[do:do+left], src[so:so+left])
			}
		}
	}
}

// permute13 swaps two leading axes separated by a middle block.
func permute13[T Element](dst, src []T, di, mid, dj, right int) {
	for r := 0; r < right; r++ {
		for b := 0; b < dj; b++ {
			for m := 0; m < mid; m++ {
				for a := 0; a < di; a++ {
					dst[b+dj*(m+mid*(a+di*r))] = src[a+di*(m+mid*(b+dj*r))]
				}
			}
		}
	}
}

// permute24 is the general kernel.
func permute24[T Element](dst, src []T, left, di, mid, dj, right int) {
	for r := 0; r < right; r++ {
		for b := 0; b < dj; b++ {
			for m := 0; m < mid; m++ {
				for a := 0; a < di; a++ {
					so := left * (a + di*(m+mid*(b+dj*r)))
					do := left * (b + dj*(m+mid*(a+di*r)))
					copy(dst[do:do+left], src[so:so+left])
				}
			}
		}
	}
}

// Transpose returns the matrix transpose of a rank-2 tensor.
func Transpose[T Element](t *Tensor[T]) *Tensor[T] {
	return Permute(t, 0, 1)
}

// Adjoint returns the conjugate transpose of a rank-2 tensor.
func Adjoint[T Element](t *Tensor[T]) *Tensor[T] {
	out := Permute(t, 0, 1)
	data := out.unshare()
	for i := range data {
		data[i] = conjOf(data[i])
	}
	return out
}
