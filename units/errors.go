package units

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrUnknownUnit  = errors.New("units: unknown unit")
	ErrIncompatible = errors.New("units: incompatible dimensions")
	ErrBadExpr      = errors.New("units: malformed unit expression")
	ErrShape        = errors.New("units: operand lengths differ")
)

// ConversionError reports an attempted conversion between units of
// different dimensions (for example a time into a density).
type ConversionError struct {
	From Unit
	To   Unit
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("units: cannot convert %s (%s) to %s (%s)",
		e.From.Name, e.From.Dims, e.To.Name, e.To.Dims)
}

// Unwrap makes errors.Is(err, ErrIncompatible) hold for conversion errors.
func (e *ConversionError) Unwrap() error { return ErrIncompatible }
