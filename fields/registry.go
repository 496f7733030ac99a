package fields

import (
	"github.com/sacielo/yt/units"
)

// Registry is an immutable table of field rules. It is safe for
// concurrent use; resolution state lives entirely in the call.
type Registry struct {
	entries map[Key]entry
	stored  []Key
	derived []Key
}

// StoredKeys returns the on-disk field keys, sorted.
func (r *Registry) StoredKeys() []Key {
	out := make([]Key, len(r.stored))
	copy(out, r.stored)
	return out
}

// DerivedKeys returns the derived field keys, sorted.
func (r *Registry) DerivedKeys() []Key {
	out := make([]Key, len(r.derived))
	copy(out, r.derived)
	return out
}

// Has reports whether key has a registry entry of either kind.
func (r *Registry) Has(key Key) bool {
	_, ok := r.entries[key]
	return ok
}

// StoredUnit returns the unit expression registered for a stored field.
// The second result is false when key is not a stored field.
func (r *Registry) StoredUnit(key Key) (string, bool) {
	e, ok := r.entries[key].(storedEntry)
	if !ok {
		return "", false
	}
	return e.unitExpr, true
}

// Resolve produces the field array for key against src. Dependencies of
// derived fields are resolved recursively and memoized for the duration
// of this call only; nothing is cached across queries.
func (r *Registry) Resolve(key Key, src Source) (units.Quantity, error) {
	memo := make(map[Key]units.Quantity)
	visiting := make(map[Key]bool)
	return r.resolve(key, src, memo, visiting)
}

func (r *Registry) resolve(key Key, src Source, memo map[Key]units.Quantity, visiting map[Key]bool) (units.Quantity, error) {
	if q, ok := memo[key]; ok {
		return q, nil
	}
	e, ok := r.entries[key]
	if !ok {
		return units.Quantity{}, &UnknownFieldError{Key: key}
	}

	switch e := e.(type) {
	case storedEntry:
		q, err := src.Stored(key)
		if err != nil {
			return units.Quantity{}, err
		}
		memo[key] = q
		return q, nil

	case derivedEntry:
		if visiting[key] {
			return units.Quantity{}, &DerivationError{Key: key, Err: ErrCycle}
		}
		visiting[key] = true
		defer delete(visiting, key)

		deps := make(map[Key]units.Quantity, len(e.deps))
		for _, dep := range e.deps {
			q, err := r.resolve(dep, src, memo, visiting)
			if err != nil {
				// A failed or missing dependency is a derivation
				// failure of this field, not an unknown field.
				return units.Quantity{}, &DerivationError{Key: key, Err: err}
			}
			deps[dep] = q
		}
		q, err := e.fn(src, deps)
		if err != nil {
			return units.Quantity{}, &DerivationError{Key: key, Err: err}
		}
		memo[key] = q
		return q, nil
	}

	return units.Quantity{}, &UnknownFieldError{Key: key}
}
