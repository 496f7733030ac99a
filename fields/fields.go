// Package fields maps field keys to resolution rules. A field is either
// stored (read from the dataset's blocks) or derived (computed from other
// fields by a pure function). The registry is built once, before any
// dataset query, and is immutable afterwards.
package fields

import (
	"fmt"
	"sort"

	"github.com/sacielo/yt/units"
)

// Key identifies a field as a (category, name) pair. The category
// separates on-disk fields (e.g. "ramses") from synthesized groupings
// ("gas", "deposit", "index").
type Key struct {
	Category string
	Name     string
}

func (k Key) String() string {
	return fmt.Sprintf("(%s, %s)", k.Category, k.Name)
}

// less orders keys by category, then name.
func (k Key) less(o Key) bool {
	if k.Category != o.Category {
		return k.Category < o.Category
	}
	return k.Name < o.Name
}

// Source supplies raw data during field resolution. It is implemented by
// the data container issuing the query; all arrays it returns are already
// restricted to the container's selection, in block order.
type Source interface {
	// Stored reads the raw values for an on-disk field.
	Stored(key Key) (units.Quantity, error)

	// CellVolume returns the volume of each selected cell.
	CellVolume() (units.Quantity, error)

	// Deposit maps particles of the given type onto the selected cells.
	// Supported methods are "count" and "mass".
	Deposit(method, ptype string) (units.Quantity, error)
}

// DeriveFunc combines resolved dependencies into a new field array. It
// must be pure: no retained state, same inputs give the same output.
type DeriveFunc func(src Source, deps map[Key]units.Quantity) (units.Quantity, error)

type entry interface {
	key() Key
}

type storedEntry struct {
	k        Key
	unitExpr string
}

func (e storedEntry) key() Key { return e.k }

type derivedEntry struct {
	k    Key
	deps []Key
	fn   DeriveFunc
}

func (e derivedEntry) key() Key { return e.k }

// Builder accumulates field rules and produces an immutable Registry.
type Builder struct {
	entries map[Key]entry
	errs    []error
}

// NewBuilder returns an empty registry builder.
func NewBuilder() *Builder {
	return &Builder{entries: make(map[Key]entry)}
}

func (b *Builder) add(e entry) *Builder {
	k := e.key()
	if _, dup := b.entries[k]; dup {
		b.errs = append(b.errs, fmt.Errorf("fields: duplicate entry for %s", k))
		return b
	}
	b.entries[k] = e
	return b
}

// Stored registers an on-disk field. unitExpr names the unit the raw
// values are expressed in ("" for dimensionless).
func (b *Builder) Stored(k Key, unitExpr string) *Builder {
	return b.add(storedEntry{k: k, unitExpr: unitExpr})
}

// Derived registers a computed field with its dependency keys and
// combining function.
func (b *Builder) Derived(k Key, deps []Key, fn DeriveFunc) *Builder {
	if fn == nil {
		b.errs = append(b.errs, fmt.Errorf("fields: nil derive function for %s", k))
		return b
	}
	return b.add(derivedEntry{k: k, deps: deps, fn: fn})
}

// Build finalizes the registry. Duplicate keys or invalid rules recorded
// during building fail here.
func (b *Builder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	r := &Registry{entries: make(map[Key]entry, len(b.entries))}
	for k, e := range b.entries {
		r.entries[k] = e
		switch e.(type) {
		case storedEntry:
			r.stored = append(r.stored, k)
		case derivedEntry:
			r.derived = append(r.derived, k)
		}
	}
	sort.Slice(r.stored, func(i, j int) bool { return r.stored[i].less(r.stored[j]) })
	sort.Slice(r.derived, func(i, j int) bool { return r.derived[i].less(r.derived[j]) })
	return r, nil
}
