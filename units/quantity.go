package units

import (
	"fmt"
	"math"
)

// Quantity is a scalar or array value paired with a unit. Arithmetic
// combines dimensions explicitly and conversion checks them, so a
// Quantity can never silently change meaning.
//
// A Quantity is immutable: every operation returns a new value.
type Quantity struct {
	vals []float64
	unit Unit
	reg  *Registry
}

// New wraps vals in a Quantity. The slice is owned by the Quantity
// afterwards and must not be modified by the caller.
func New(vals []float64, unit Unit, reg *Registry) Quantity {
	return Quantity{vals: vals, unit: unit, reg: reg}
}

// Scalar wraps a single value in a Quantity.
func Scalar(v float64, unit Unit, reg *Registry) Quantity {
	return Quantity{vals: []float64{v}, unit: unit, reg: reg}
}

// Unit returns the unit the values are expressed in.
func (q Quantity) Unit() Unit { return q.unit }

// Registry returns the unit registry the quantity resolves names against.
func (q Quantity) Registry() *Registry { return q.reg }

// Len returns the number of elements.
func (q Quantity) Len() int { return len(q.vals) }

// Value returns the first element, for scalar quantities.
func (q Quantity) Value() float64 {
	if len(q.vals) == 0 {
		return math.NaN()
	}
	return q.vals[0]
}

// Values returns the underlying elements. The slice must be treated as
// read-only.
func (q Quantity) Values() []float64 { return q.vals }

// Sum returns the sum of all elements, in the quantity's unit.
func (q Quantity) Sum() float64 {
	var s float64
	for _, v := range q.vals {
		s += v
	}
	return s
}

// Max returns the maximum element and its index.
func (q Quantity) Max() (float64, int) {
	best, at := math.Inf(-1), -1
	for i, v := range q.vals {
		if v > best {
			best, at = v, i
		}
	}
	return best, at
}

// InUnits converts the quantity to the unit named by expr, resolving expr
// against the quantity's registry. Fails when the dimensions differ.
func (q Quantity) InUnits(expr string) (Quantity, error) {
	if q.reg == nil {
		return Quantity{}, fmt.Errorf("%w: quantity has no unit registry", ErrUnknownUnit)
	}
	to, err := q.reg.Parse(expr)
	if err != nil {
		return Quantity{}, err
	}
	vals, err := q.reg.Convert(q.vals, q.unit, to)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{vals: vals, unit: to, reg: q.reg}, nil
}

func (q Quantity) String() string {
	if len(q.vals) == 1 {
		return fmt.Sprintf("%g %s", q.vals[0], q.unit.Name)
	}
	return fmt.Sprintf("[%d values] %s", len(q.vals), q.unit.Name)
}

// broadcast returns per-element accessors for a binary operation,
// allowing a scalar operand against an array.
func broadcast(a, b Quantity) (n int, av, bv func(int) float64, err error) {
	switch {
	case len(a.vals) == len(b.vals):
		return len(a.vals), func(i int) float64 { return a.vals[i] }, func(i int) float64 { return b.vals[i] }, nil
	case len(a.vals) == 1:
		return len(b.vals), func(int) float64 { return a.vals[0] }, func(i int) float64 { return b.vals[i] }, nil
	case len(b.vals) == 1:
		return len(a.vals), func(i int) float64 { return a.vals[i] }, func(int) float64 { return b.vals[0] }, nil
	default:
		return 0, nil, nil, fmt.Errorf("%w: %d vs %d", ErrShape, len(a.vals), len(b.vals))
	}
}

// Mul returns the element-wise product; dimensions multiply.
func (q Quantity) Mul(o Quantity) (Quantity, error) {
	n, av, bv, err := broadcast(q, o)
	if err != nil {
		return Quantity{}, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = av(i) * bv(i)
	}
	u := Unit{
		Name:   "(" + q.unit.Name + ")*(" + o.unit.Name + ")",
		Dims:   q.unit.Dims.Mul(o.unit.Dims),
		Factor: q.unit.Factor * o.unit.Factor,
	}
	return Quantity{vals: out, unit: u, reg: q.reg}, nil
}

// Div returns the element-wise quotient; dimensions divide.
func (q Quantity) Div(o Quantity) (Quantity, error) {
	n, av, bv, err := broadcast(q, o)
	if err != nil {
		return Quantity{}, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = av(i) / bv(i)
	}
	u := Unit{
		Name:   "(" + q.unit.Name + ")/(" + o.unit.Name + ")",
		Dims:   q.unit.Dims.Div(o.unit.Dims),
		Factor: q.unit.Factor / o.unit.Factor,
	}
	return Quantity{vals: out, unit: u, reg: q.reg}, nil
}

// Add returns the element-wise sum. The operand is converted into the
// receiver's unit first; incompatible dimensions fail.
func (q Quantity) Add(o Quantity) (Quantity, error) {
	return q.addScaled(o, 1)
}

// Sub returns the element-wise difference, with the same conversion
// rules as Add.
func (q Quantity) Sub(o Quantity) (Quantity, error) {
	return q.addScaled(o, -1)
}

func (q Quantity) addScaled(o Quantity, sign float64) (Quantity, error) {
	if q.unit.Dims != o.unit.Dims {
		return Quantity{}, &ConversionError{From: o.unit, To: q.unit}
	}
	ratio := o.unit.Factor / q.unit.Factor
	n, av, bv, err := broadcast(q, o)
	if err != nil {
		return Quantity{}, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = av(i) + sign*ratio*bv(i)
	}
	return Quantity{vals: out, unit: q.unit, reg: q.reg}, nil
}

// Scale multiplies every element by a dimensionless factor.
func (q Quantity) Scale(f float64) Quantity {
	out := make([]float64, len(q.vals))
	for i, v := range q.vals {
		out[i] = v * f
	}
	return Quantity{vals: out, unit: q.unit, reg: q.reg}
}

// Sqrt returns the element-wise square root. Every dimension exponent
// must be even, or the result would not be expressible as a unit.
func (q Quantity) Sqrt() (Quantity, error) {
	d := q.unit.Dims
	if d.Length%2 != 0 || d.Mass%2 != 0 || d.Time%2 != 0 || d.Temperature%2 != 0 {
		return Quantity{}, fmt.Errorf("%w: sqrt of %s", ErrIncompatible, d)
	}
	out := make([]float64, len(q.vals))
	factor := math.Sqrt(q.unit.Factor)
	for i, v := range q.vals {
		out[i] = math.Sqrt(v)
	}
	u := Unit{
		Name: "sqrt(" + q.unit.Name + ")",
		Dims: Dimensions{
			Length:      d.Length / 2,
			Mass:        d.Mass / 2,
			Time:        d.Time / 2,
			Temperature: d.Temperature / 2,
		},
		Factor: factor,
	}
	return Quantity{vals: out, unit: u, reg: q.reg}, nil
}
