package tensor

import (
	"github.com/pkg/errors"
)

// Structural misuse of the tensor container panics with one of these
// sentinels wrapped in context. Numerical routines return errors instead.
var (
	// ErrInvalidDimension reports a negative axis size at construction.
	ErrInvalidDimension = errors.New("invalid dimension")
	// ErrIndexOutOfBounds reports an index outside [-r, r-1] or [0, n-1].
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	// ErrDimensionsMismatch reports a shape disagreement between operands.
	ErrDimensionsMismatch = errors.New("dimensions mismatch")
)
