package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Flags is a keyed store of numeric configuration values. A single
// process-wide instance exists; it is not safe for concurrent mutation,
// and callers who need isolation snapshot values before and restore them
// after.
type Flags struct {
	values []float64
}

// GlobalFlags is the process-wide configuration registry.
var GlobalFlags Flags

// Get returns the value registered under code.
func (f *Flags) Get(code int) float64 {
	if code < 0 || code >= len(f.values) {
		panic(errors.Wrap(ErrIndexOutOfBounds, fmt.Sprintf("flag %d", code)))
	}
	return f.values[code]
}

// Set overwrites the value registered under code.
func (f *Flags) Set(code int, value float64) *Flags {
	if code < 0 || code >= len(f.values) {
		panic(errors.Wrap(ErrIndexOutOfBounds, fmt.Sprintf("flag %d", code)))
	}
	f.values[code] = value
	return f
}

// CreateKey registers a new flag with a default value and returns its
// code.
func (f *Flags) CreateKey(value float64) int {
	f.values = append(f.values, value)
	return len(f.values) - 1
}
