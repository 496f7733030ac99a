package fields

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sacielo/yt/units"
)

// fakeSource serves stored fields from a map and counts reads, so tests
// can observe per-query memoization.
type fakeSource struct {
	reg    *units.Registry
	stored map[Key][]float64
	reads  map[Key]int
}

func newFakeSource(data map[Key][]float64) *fakeSource {
	return &fakeSource{
		reg:    units.NewRegistry(),
		stored: data,
		reads:  make(map[Key]int),
	}
}

func (s *fakeSource) Stored(key Key) (units.Quantity, error) {
	vals, ok := s.stored[key]
	if !ok {
		return units.Quantity{}, fmt.Errorf("no data for %s", key)
	}
	s.reads[key]++
	u := units.Unit{Name: "dimensionless", Factor: 1}
	return units.New(vals, u, s.reg), nil
}

func (s *fakeSource) CellVolume() (units.Quantity, error) {
	u := units.Unit{Name: "cm**3", Dims: units.DimVolume, Factor: 1}
	return units.New([]float64{1, 1, 1}, u, s.reg), nil
}

func (s *fakeSource) Deposit(method, ptype string) (units.Quantity, error) {
	return units.Quantity{}, fmt.Errorf("no particles")
}

var (
	keyRaw     = Key{Category: "disk", Name: "raw"}
	keyDouble  = Key{Category: "gas", Name: "double"}
	keyQuad    = Key{Category: "gas", Name: "quad"}
	keyMissing = Key{Category: "gas", Name: "missing_dep"}
)

func buildTestRegistry(t *testing.T) *Registry {
	t.Helper()
	b := NewBuilder()
	b.Stored(keyRaw, "")
	b.Derived(keyDouble, []Key{keyRaw},
		func(_ Source, deps map[Key]units.Quantity) (units.Quantity, error) {
			return deps[keyRaw].Scale(2), nil
		})
	// Depends on the same stored field twice through different paths.
	b.Derived(keyQuad, []Key{keyDouble, keyRaw},
		func(_ Source, deps map[Key]units.Quantity) (units.Quantity, error) {
			return deps[keyDouble].Mul(deps[keyRaw])
		})
	b.Derived(keyMissing, []Key{{Category: "gas", Name: "nonexistent"}},
		func(_ Source, deps map[Key]units.Quantity) (units.Quantity, error) {
			return units.Quantity{}, nil
		})
	reg, err := b.Build()
	require.NoError(t, err)
	return reg
}

func TestResolveStored(t *testing.T) {
	reg := buildTestRegistry(t)
	src := newFakeSource(map[Key][]float64{keyRaw: {1, 2, 3}})

	q, err := reg.Resolve(keyRaw, src)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, q.Values())
}

func TestResolveDerivedChain(t *testing.T) {
	reg := buildTestRegistry(t)
	src := newFakeSource(map[Key][]float64{keyRaw: {1, 2, 3}})

	q, err := reg.Resolve(keyDouble, src)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6}, q.Values())
}

func TestResolveMemoizesWithinQuery(t *testing.T) {
	reg := buildTestRegistry(t)
	src := newFakeSource(map[Key][]float64{keyRaw: {1, 2, 3}})

	// keyQuad reaches keyRaw both directly and through keyDouble; the
	// stored field must be read once per query, not once per path.
	_, err := reg.Resolve(keyQuad, src)
	require.NoError(t, err)
	assert.Equal(t, 1, src.reads[keyRaw])

	// A second query starts fresh: memoization does not leak across calls.
	_, err = reg.Resolve(keyQuad, src)
	require.NoError(t, err)
	assert.Equal(t, 2, src.reads[keyRaw])
}

func TestResolveUnknownField(t *testing.T) {
	reg := buildTestRegistry(t)
	src := newFakeSource(nil)

	_, err := reg.Resolve(Key{Category: "gas", Name: "nope"}, src)
	require.Error(t, err)

	var unknown *UnknownFieldError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nope", unknown.Key.Name)

	var derivation *DerivationError
	assert.False(t, errors.As(err, &derivation))
}

func TestResolveMissingDependencyIsDerivationError(t *testing.T) {
	reg := buildTestRegistry(t)
	src := newFakeSource(nil)

	_, err := reg.Resolve(keyMissing, src)
	require.Error(t, err)

	var derivation *DerivationError
	require.True(t, errors.As(err, &derivation))
	assert.Equal(t, keyMissing, derivation.Key)

	// The unknown dependency is the cause, not the reported kind.
	var unknown *UnknownFieldError
	require.True(t, errors.As(derivation.Err, &unknown))
}

func TestResolveFailingFunctionIsDerivationError(t *testing.T) {
	boom := errors.New("boom")
	b := NewBuilder()
	b.Stored(keyRaw, "")
	k := Key{Category: "gas", Name: "exploding"}
	b.Derived(k, []Key{keyRaw},
		func(_ Source, _ map[Key]units.Quantity) (units.Quantity, error) {
			return units.Quantity{}, boom
		})
	reg, err := b.Build()
	require.NoError(t, err)

	src := newFakeSource(map[Key][]float64{keyRaw: {1}})
	_, err = reg.Resolve(k, src)
	require.Error(t, err)

	var derivation *DerivationError
	require.True(t, errors.As(err, &derivation))
	assert.ErrorIs(t, err, boom)
}

func TestResolveCycle(t *testing.T) {
	a := Key{Category: "gas", Name: "a"}
	bk := Key{Category: "gas", Name: "b"}
	pass := func(_ Source, deps map[Key]units.Quantity) (units.Quantity, error) {
		return units.Quantity{}, nil
	}
	b := NewBuilder()
	b.Derived(a, []Key{bk}, pass)
	b.Derived(bk, []Key{a}, pass)
	reg, err := b.Build()
	require.NoError(t, err)

	_, err = reg.Resolve(a, newFakeSource(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestBuilderRejectsDuplicateKeys(t *testing.T) {
	b := NewBuilder()
	b.Stored(keyRaw, "")
	b.Stored(keyRaw, "cm")
	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestRegistryKeyLists(t *testing.T) {
	reg := buildTestRegistry(t)

	stored := reg.StoredKeys()
	require.Len(t, stored, 1)
	assert.Equal(t, keyRaw, stored[0])

	derived := reg.DerivedKeys()
	require.Len(t, derived, 3)
	assert.True(t, derived[0].Category <= derived[1].Category)

	expr, ok := reg.StoredUnit(keyRaw)
	require.True(t, ok)
	assert.Equal(t, "", expr)
	_, ok = reg.StoredUnit(keyDouble)
	assert.False(t, ok)
}
