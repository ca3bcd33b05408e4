package tensor

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT computes the unnormalized forward discrete Fourier transform of a
// complex tensor along the given axes.
func FFT(t *CTensor, axes ...int) *CTensor {
	out := t.Share()
	for _, k := range axes {
		out = fftAxis(out, k, false)
	}
	return out
}

// IFFT computes the unnormalized backward transform along the given axes.
// FFT followed by IFFT rescales the input by the product of the
// transformed axis lengths.
func IFFT(t *CTensor, axes ...int) *CTensor {
	out := t.Share()
	for _, k := range axes {
		out = fftAxis(out, k, true)
	}
	return out
}

func fftAxis(t *CTensor, k int, inverse bool) *CTensor {
	left, n, right := Surround(t.dims, k)
	if n == 0 {
		return t.Share()
	}
	fft := fourier.NewCmplxFFT(n)
	out := New[complex128](t.dims...)
	src, dst := t.buf.data, out.buf.data
	line := make([]complex128, n)
	coef := make([]complex128, n)
	for r := 0; r < right; r++ {
		for l := 0; l < left; l++ {
			for x := 0; x < n; x++ {
				line[x] = src[l+left*(x+n*r)]
			}
			var res []complex128
			if inverse {
				res = fft.Sequence(coef, line)
			} else {
				res = fft.Coefficients(coef, line)
			}
			for x := 0; x < n; x++ {
				dst[l+left*(x+n*r)] = res[x]
			}
		}
	}
	return out
}

// FFTShift rotates the spectrum along the given axes so that the zero
// frequency component moves to the middle.
func FFTShift[T Element](t *Tensor[T], axes ...int) *Tensor[T] {
	out := t.Share()
	for _, k := range axes {
		out = shiftAxis(out, k, out.Dimension(k)/2)
	}
	return out
}

// IFFTShift undoes FFTShift on axes of odd length.
func IFFTShift[T Element](t *Tensor[T], axes ...int) *Tensor[T] {
	out := t.Share()
	for _, k := range axes {
		n := out.Dimension(k)
		out = shiftAxis(out, k, n-n/2)
	}
	return out
}

func shiftAxis[T Element](t *Tensor[T], k, by int) *Tensor[T] {
	left, n, right := Surround(t.dims, k)
	if n == 0 {
		return t.Share()
	}
	out := New[T](t.dims...)
	src, dst := t.buf.data, out.buf.data
	for r := 0; r < right; r++ {
		for x := 0; x < n; x++ {
			y := (x + by) % n
			so := left * (x + n*r)
			do := left * (y + n*r)
			copy(dst[do:do+left], src[so:so+left])
		}
	}
	return out
}
