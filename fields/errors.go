package fields

import (
	"errors"
	"fmt"
)

// ErrCycle is the cause recorded in a DerivationError when a derived
// field's dependency chain loops back on itself.
var ErrCycle = errors.New("fields: dependency cycle")

// UnknownFieldError reports a lookup for a key with no registry entry.
type UnknownFieldError struct {
	Key Key
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("fields: no entry for %s", e.Key)
}

// DerivationError reports a derived field whose dependencies or
// combining function failed. It is distinct from UnknownFieldError: the
// requested field itself was registered.
type DerivationError struct {
	Key Key
	Err error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("fields: deriving %s: %v", e.Key, e.Err)
}

func (e *DerivationError) Unwrap() error { return e.Err }
