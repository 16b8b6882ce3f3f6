package registry

import (
	"errors"
	"fmt"

	"github.com/rzbill/zkhook/internal/filter"
)

// ErrCorruptValue marks a stored value that does not decode as a set.
var ErrCorruptValue = errors.New("registry: corrupt stored value")

// StoreError reports a registry operation that failed after its retries.
type StoreError struct {
	Op     string
	Filter filter.Filter
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("registry: %s %s: %v", e.Op, e.Filter, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
