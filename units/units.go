// Package units implements a closed algebraic unit system for simulation
// data: every unit carries an explicit dimension exponent vector, checked
// at conversion time. Conversion factors are relative to CGS base units
// (cm, g, s, K).
package units

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Dimensions is an exponent vector over the four base dimensions used by
// simulation outputs. Two units are convertible exactly when their
// Dimensions values are equal.
type Dimensions struct {
	Length      int8
	Mass        int8
	Time        int8
	Temperature int8
}

// Base dimension vectors.
var (
	Dimensionless = Dimensions{}
	DimLength     = Dimensions{Length: 1}
	DimMass       = Dimensions{Mass: 1}
	DimTime       = Dimensions{Time: 1}
	DimTemp       = Dimensions{Temperature: 1}
	DimVelocity   = Dimensions{Length: 1, Time: -1}
	DimDensity    = Dimensions{Length: -3, Mass: 1}
	DimPressure   = Dimensions{Length: -1, Mass: 1, Time: -2}
	DimEnergy     = Dimensions{Length: 2, Mass: 1, Time: -2}
	DimVolume     = Dimensions{Length: 3}
)

// Mul returns the dimensions of a product.
func (d Dimensions) Mul(o Dimensions) Dimensions {
	return Dimensions{
		Length:      d.Length + o.Length,
		Mass:        d.Mass + o.Mass,
		Time:        d.Time + o.Time,
		Temperature: d.Temperature + o.Temperature,
	}
}

// Div returns the dimensions of a quotient.
func (d Dimensions) Div(o Dimensions) Dimensions {
	return Dimensions{
		Length:      d.Length - o.Length,
		Mass:        d.Mass - o.Mass,
		Time:        d.Time - o.Time,
		Temperature: d.Temperature - o.Temperature,
	}
}

// Pow returns the dimensions raised to an integer power.
func (d Dimensions) Pow(n int) Dimensions {
	return Dimensions{
		Length:      d.Length * int8(n),
		Mass:        d.Mass * int8(n),
		Time:        d.Time * int8(n),
		Temperature: d.Temperature * int8(n),
	}
}

// IsDimensionless reports whether all exponents are zero.
func (d Dimensions) IsDimensionless() bool { return d == Dimensions{} }

func (d Dimensions) String() string {
	if d.IsDimensionless() {
		return "dimensionless"
	}
	var parts []string
	add := func(sym string, exp int8) {
		switch exp {
		case 0:
		case 1:
			parts = append(parts, sym)
		default:
			parts = append(parts, fmt.Sprintf("%s**%d", sym, exp))
		}
	}
	add("(length)", d.Length)
	add("(mass)", d.Mass)
	add("(time)", d.Time)
	add("(temperature)", d.Temperature)
	return strings.Join(parts, "*")
}

// Unit is a named scale of a dimension. Factor converts a value in this
// unit to CGS base units.
type Unit struct {
	Name   string
	Dims   Dimensions
	Factor float64
}

// Registry maps unit names to units and resolves symbolic unit
// expressions. A Registry is safe for concurrent readers once populated;
// Define must not race with lookups.
type Registry struct {
	units map[string]Unit
}

// NewRegistry returns a registry preloaded with CGS, SI and common
// astronomical units.
func NewRegistry() *Registry {
	r := &Registry{units: make(map[string]Unit)}
	base := []Unit{
		{"cm", DimLength, 1},
		{"m", DimLength, 100},
		{"km", DimLength, 1e5},
		{"pc", DimLength, 3.0856775814913673e18},
		{"kpc", DimLength, 3.0856775814913673e21},
		{"Mpc", DimLength, 3.0856775814913673e24},
		{"au", DimLength, 1.495978707e13},
		{"g", DimMass, 1},
		{"kg", DimMass, 1000},
		{"Msun", DimMass, 1.98892e33},
		{"s", DimTime, 1},
		{"min", DimTime, 60},
		{"hr", DimTime, 3600},
		{"day", DimTime, 86400},
		{"yr", DimTime, 3.1556952e7},
		{"Myr", DimTime, 3.1556952e13},
		{"Gyr", DimTime, 3.1556952e16},
		{"K", DimTemp, 1},
		{"dyne", Dimensions{Length: 1, Mass: 1, Time: -2}, 1},
		{"erg", DimEnergy, 1},
	}
	for _, u := range base {
		r.units[u.Name] = u
	}
	return r
}

// Define registers a named unit, replacing any previous definition of the
// same name.
func (r *Registry) Define(name string, factor float64, dims Dimensions) {
	r.units[name] = Unit{Name: name, Dims: dims, Factor: factor}
}

// Lookup returns the unit registered under name.
func (r *Registry) Lookup(name string) (Unit, error) {
	u, ok := r.units[name]
	if !ok {
		return Unit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, name)
	}
	return u, nil
}

// Names returns the registered unit names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.units))
	for n := range r.units {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Parse resolves a symbolic unit expression of the form
//
//	term (("*" | "/") term)*
//	term = name ["**" int]
//
// for example "g/cm**3" or "code_length**3". The empty expression is the
// dimensionless identity.
func (r *Registry) Parse(expr string) (Unit, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || expr == "dimensionless" {
		return Unit{Name: "dimensionless", Dims: Dimensionless, Factor: 1}, nil
	}

	out := Unit{Name: expr, Dims: Dimensionless, Factor: 1}
	rest := expr
	divide := false
	for {
		var term string
		if i := strings.IndexAny(rest, "*/"); i >= 0 && !strings.HasPrefix(rest[i:], "**") {
			term, rest = rest[:i], rest[i:]
		} else if i >= 0 {
			// "**" belongs to the term; find the next separator after it.
			j := strings.IndexAny(rest[i+2:], "*/")
			if j >= 0 {
				term, rest = rest[:i+2+j], rest[i+2+j:]
			} else {
				term, rest = rest, ""
			}
		} else {
			term, rest = rest, ""
		}

		u, err := r.parseTerm(strings.TrimSpace(term))
		if err != nil {
			return Unit{}, err
		}
		if divide {
			out.Dims = out.Dims.Div(u.Dims)
			out.Factor /= u.Factor
		} else {
			out.Dims = out.Dims.Mul(u.Dims)
			out.Factor *= u.Factor
		}

		if rest == "" {
			return out, nil
		}
		switch rest[0] {
		case '*':
			divide = false
		case '/':
			divide = true
		}
		rest = rest[1:]
		if strings.TrimSpace(rest) == "" {
			return Unit{}, fmt.Errorf("%w: %q", ErrBadExpr, expr)
		}
	}
}

func (r *Registry) parseTerm(term string) (Unit, error) {
	if term == "" {
		return Unit{}, fmt.Errorf("%w: empty term", ErrBadExpr)
	}
	name := term
	exp := 1
	if i := strings.Index(term, "**"); i >= 0 {
		name = strings.TrimSpace(term[:i])
		n, err := strconv.Atoi(strings.TrimSpace(term[i+2:]))
		if err != nil {
			return Unit{}, fmt.Errorf("%w: bad exponent in %q", ErrBadExpr, term)
		}
		exp = n
	}
	u, err := r.Lookup(name)
	if err != nil {
		return Unit{}, err
	}
	if exp != 1 {
		u = Unit{Name: term, Dims: u.Dims.Pow(exp), Factor: pow(u.Factor, exp)}
	}
	return u, nil
}

func pow(f float64, n int) float64 {
	if n < 0 {
		return 1 / pow(f, -n)
	}
	out := 1.0
	for i := 0; i < n; i++ {
		out *= f
	}
	return out
}

// Convert rescales vals from one unit to another of the same dimensions.
// The input slice is not modified.
func (r *Registry) Convert(vals []float64, from, to Unit) ([]float64, error) {
	if from.Dims != to.Dims {
		return nil, &ConversionError{From: from, To: to}
	}
	ratio := from.Factor / to.Factor
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = v * ratio
	}
	return out, nil
}
