package yt

import (
	"math"

	"github.com/sacielo/yt/fields"
	"github.com/sacielo/yt/units"
)

// Selector is a spatial membership predicate over cell centers in code
// length. Implementations must be stateless so containers can share them
// across concurrent queries.
type Selector interface {
	Contains(p [3]float64) bool
}

// sphereSelector selects cells whose centers lie within a ball.
type sphereSelector struct {
	center [3]float64
	r2     float64
}

func (s sphereSelector) Contains(p [3]float64) bool {
	var d2 float64
	for ax := 0; ax < 3; ax++ {
		d := p[ax] - s.center[ax]
		d2 += d * d
	}
	return d2 <= s.r2
}

// Center specifies the center of a spatial selection: either a literal
// point in code length, or a symbolic spec resolved against the dataset
// ("location of the maximum of a field").
type Center struct {
	symbolic bool
	point    [3]float64
	field    fields.Key
}

// Point is a literal center in code length.
func Point(x, y, z float64) Center {
	return Center{point: [3]float64{x, y, z}}
}

// MaxOf centers the selection at the location of a field's maximum.
func MaxOf(key fields.Key) Center {
	return Center{symbolic: true, field: key}
}

// MaxDensity is the conventional symbolic center: the location of the
// gas density maximum.
func MaxDensity() Center {
	return MaxOf(fields.Key{Category: "gas", Name: "density"})
}

// resolve turns a symbolic center into a concrete point.
func (c Center) resolve(ds *Dataset) ([3]float64, error) {
	if !c.symbolic {
		return c.point, nil
	}
	_, pos, err := ds.FindMax(c.field)
	if err != nil {
		return [3]float64{}, &InvalidSelectorError{
			Reason: "resolving symbolic center " + c.field.String(),
			Err:    err,
		}
	}
	return pos, nil
}

// Sphere returns a container selecting cells within radius of center.
// The radius may be in any length unit the dataset's registry resolves,
// including "unitary" (fraction of the domain width).
func (ds *Dataset) Sphere(center Center, radius units.Quantity) (*DataContainer, error) {
	r, err := radius.InUnits("code_length")
	if err != nil {
		return nil, &InvalidSelectorError{Reason: "sphere radius", Err: err}
	}
	rv := r.Value()
	if math.IsNaN(rv) || rv <= 0 {
		return nil, &InvalidSelectorError{Reason: "sphere radius must be positive"}
	}
	pt, err := center.resolve(ds)
	if err != nil {
		return nil, err
	}
	return &DataContainer{
		ds:   ds,
		sel:  sphereSelector{center: pt, r2: rv * rv},
		name: "sphere",
	}, nil
}
