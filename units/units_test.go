package units

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleUnit(t *testing.T) {
	r := NewRegistry()

	u, err := r.Parse("km")
	require.NoError(t, err)
	assert.Equal(t, DimLength, u.Dims)
	assert.Equal(t, 1e5, u.Factor)
}

func TestParseCompoundExpressions(t *testing.T) {
	r := NewRegistry()

	cases := []struct {
		expr   string
		dims   Dimensions
		factor float64
	}{
		{"g/cm**3", DimDensity, 1},
		{"cm/s", DimVelocity, 1},
		{"km/s", DimVelocity, 1e5},
		{"cm**3", DimVolume, 1},
		{"dyne/cm**2", DimPressure, 1},
		{"g*cm**-3", DimDensity, 1},
		{"", Dimensionless, 1},
	}
	for _, tc := range cases {
		u, err := r.Parse(tc.expr)
		require.NoError(t, err, "expr %q", tc.expr)
		assert.Equal(t, tc.dims, u.Dims, "expr %q", tc.expr)
		assert.InEpsilon(t, tc.factor, u.Factor, 1e-15, "expr %q", tc.expr)
	}
}

func TestParseErrors(t *testing.T) {
	r := NewRegistry()

	_, err := r.Parse("furlong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownUnit)

	_, err = r.Parse("cm**x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadExpr)

	_, err = r.Parse("cm/")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadExpr)
}

func TestConvertRoundTrip(t *testing.T) {
	r := NewRegistry()

	pairs := [][2]string{
		{"cm", "km"},
		{"cm", "Mpc"},
		{"s", "Myr"},
		{"g", "Msun"},
		{"g/cm**3", "Msun/Mpc**3"},
		{"cm/s", "km/s"},
	}
	vals := []float64{1, 0.25, 3.5e10, 7.25e-9}
	for _, pair := range pairs {
		a, err := r.Parse(pair[0])
		require.NoError(t, err)
		b, err := r.Parse(pair[1])
		require.NoError(t, err)

		there, err := r.Convert(vals, a, b)
		require.NoError(t, err)
		back, err := r.Convert(there, b, a)
		require.NoError(t, err)
		for i := range vals {
			assert.InEpsilon(t, vals[i], back[i], 1e-12, "%s <-> %s", pair[0], pair[1])
		}
	}
}

func TestConvertIncompatibleDimensions(t *testing.T) {
	r := NewRegistry()
	sec, err := r.Lookup("s")
	require.NoError(t, err)
	rho, err := r.Parse("g/cm**3")
	require.NoError(t, err)

	_, err = r.Convert([]float64{1}, sec, rho)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompatible)

	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, "s", convErr.From.Name)
}

func TestDefineCodeUnits(t *testing.T) {
	r := NewRegistry()
	r.Define("code_length", 3.0857e21, DimLength)

	u, err := r.Parse("code_length**3")
	require.NoError(t, err)
	assert.Equal(t, DimVolume, u.Dims)
	assert.InEpsilon(t, 3.0857e21*3.0857e21*3.0857e21, u.Factor, 1e-12)
}
