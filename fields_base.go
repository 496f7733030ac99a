package yt

import (
	"github.com/sacielo/yt/fields"
	"github.com/sacielo/yt/units"
)

// Field keys every frontend exposes.
var (
	KeyOnes       = fields.Key{Category: "index", Name: "ones"}
	KeyCellVolume = fields.Key{Category: "index", Name: "cell_volume"}
)

// AddIndexFields registers the geometry-only derived fields shared by
// all frontends: "ones" (unity per selected cell, the canonical cell
// counter) and "cell_volume".
func AddIndexFields(b *fields.Builder) {
	b.Derived(KeyOnes, nil,
		func(src fields.Source, _ map[fields.Key]units.Quantity) (units.Quantity, error) {
			vol, err := src.CellVolume()
			if err != nil {
				return units.Quantity{}, err
			}
			ones := make([]float64, vol.Len())
			for i := range ones {
				ones[i] = 1
			}
			u := units.Unit{Name: "dimensionless", Factor: 1}
			return units.New(ones, u, vol.Registry()), nil
		})
	b.Derived(KeyCellVolume, nil,
		func(src fields.Source, _ map[fields.Key]units.Quantity) (units.Quantity, error) {
			return src.CellVolume()
		})
}
