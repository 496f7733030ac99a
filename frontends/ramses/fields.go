package ramses

import (
	"fmt"

	"github.com/sacielo/yt"
	"github.com/sacielo/yt/fields"
	"github.com/sacielo/yt/units"
)

// Physical constants in CGS.
const (
	massHydrogen  = 1.6737352238051868e-24 // g
	boltzmann     = 1.3806488e-16          // erg/K
	meanMolWeight = 0.59                   // fully ionized primordial mix
)

// storedUnits maps on-disk hydro variable names to the code unit their
// raw values are expressed in. Unlisted names are dimensionless.
var storedUnits = map[string]string{
	"Density":    "code_density",
	"x-velocity": "code_velocity",
	"y-velocity": "code_velocity",
	"z-velocity": "code_velocity",
	"Pressure":   "code_pressure",
	"Pres_IR":    "code_pressure",
}

// species drives the registration of ionization fields on
// radiative-transfer outputs: one row per ionization state, each mapping
// a stored abundance variable to derived fraction/density/mass fields.
var species = []struct {
	Name   string // derived field prefix, e.g. "H_p1"
	Stored string // on-disk abundance variable, e.g. "HII"
}{
	{Name: "H_p1", Stored: "HII"},
	{Name: "He_p1", Stored: "HeII"},
	{Name: "He_p2", Stored: "HeIII"},
}

func key(category, name string) fields.Key {
	return fields.Key{Category: category, Name: name}
}

// tempFromPressure builds a derive function turning a code pressure
// field and the gas density into a temperature: T = (P/rho) * mu*mH/kB.
func tempFromPressure(pressure fields.Key) fields.DeriveFunc {
	density := key("gas", "density")
	return func(_ fields.Source, deps map[fields.Key]units.Quantity) (units.Quantity, error) {
		ratio, err := deps[pressure].Div(deps[density])
		if err != nil {
			return units.Quantity{}, err
		}
		perK := units.Unit{
			Name:   "mu*mh/kb",
			Dims:   units.Dimensions{Length: -2, Time: 2, Temperature: 1},
			Factor: meanMolWeight * massHydrogen / boltzmann,
		}
		t, err := ratio.Mul(units.Scalar(1, perK, ratio.Registry()))
		if err != nil {
			return units.Quantity{}, err
		}
		return t.InUnits("K")
	}
}

// buildRegistry assembles the immutable field registry for one dataset:
// the stored hydro variables under the "ramses" category, the universal
// derived gas fields, particle deposit fields when the output has
// particles, and the radiative-transfer species fields when it is an RT
// variant. All rules are registered here, before the Dataset exists.
// ptypes names the output's particle populations; the "all" deposit
// fields aggregate every one of them.
func buildRegistry(stored []string, rt bool, ptypes []string) (*fields.Registry, error) {
	b := fields.NewBuilder()
	yt.AddIndexFields(b)

	present := make(map[string]bool, len(stored))
	for _, name := range stored {
		present[name] = true
		b.Stored(key("ramses", name), storedUnits[name])
	}

	gasDensity := key("gas", "density")
	if present["Density"] {
		dep := key("ramses", "Density")
		b.Derived(gasDensity, []fields.Key{dep},
			func(_ fields.Source, deps map[fields.Key]units.Quantity) (units.Quantity, error) {
				return deps[dep].InUnits("g/cm**3")
			})

		b.Derived(key("gas", "cell_mass"), []fields.Key{gasDensity},
			func(src fields.Source, deps map[fields.Key]units.Quantity) (units.Quantity, error) {
				vol, err := src.CellVolume()
				if err != nil {
					return units.Quantity{}, err
				}
				cm3, err := vol.InUnits("cm**3")
				if err != nil {
					return units.Quantity{}, err
				}
				m, err := deps[gasDensity].Mul(cm3)
				if err != nil {
					return units.Quantity{}, err
				}
				return m.InUnits("g")
			})
	}

	vx, vy, vz := key("ramses", "x-velocity"), key("ramses", "y-velocity"), key("ramses", "z-velocity")
	if present["x-velocity"] && present["y-velocity"] && present["z-velocity"] {
		b.Derived(key("gas", "velocity_magnitude"), []fields.Key{vx, vy, vz},
			func(_ fields.Source, deps map[fields.Key]units.Quantity) (units.Quantity, error) {
				sum, err := squares(deps[vx], deps[vy], deps[vz])
				if err != nil {
					return units.Quantity{}, err
				}
				mag, err := sum.Sqrt()
				if err != nil {
					return units.Quantity{}, err
				}
				return mag.InUnits("cm/s")
			})
	}

	if present["Pressure"] && present["Density"] {
		b.Derived(key("gas", "pressure"), []fields.Key{key("ramses", "Pressure")},
			func(_ fields.Source, deps map[fields.Key]units.Quantity) (units.Quantity, error) {
				return deps[key("ramses", "Pressure")].InUnits("dyne/cm**2")
			})
		b.Derived(key("gas", "temperature"),
			[]fields.Key{key("gas", "pressure"), gasDensity},
			tempFromPressure(key("gas", "pressure")))
	}

	if len(ptypes) > 0 {
		b.Derived(key("deposit", "all_count"), nil,
			func(src fields.Source, _ map[fields.Key]units.Quantity) (units.Quantity, error) {
				return depositAll(src, "count", ptypes)
			})
		b.Derived(key("deposit", "all_density"), nil,
			func(src fields.Source, _ map[fields.Key]units.Quantity) (units.Quantity, error) {
				m, err := depositAll(src, "mass", ptypes)
				if err != nil {
					return units.Quantity{}, err
				}
				vol, err := src.CellVolume()
				if err != nil {
					return units.Quantity{}, err
				}
				rho, err := m.Div(vol)
				if err != nil {
					return units.Quantity{}, err
				}
				return rho.InUnits("g/cm**3")
			})
	}

	if rt {
		if present["Pres_IR"] && present["Density"] {
			b.Derived(key("gas", "pres_IR"), []fields.Key{key("ramses", "Pres_IR")},
				func(_ fields.Source, deps map[fields.Key]units.Quantity) (units.Quantity, error) {
					return deps[key("ramses", "Pres_IR")].InUnits("dyne/cm**2")
				})
			b.Derived(key("gas", "temp_IR"),
				[]fields.Key{key("gas", "pres_IR"), gasDensity},
				tempFromPressure(key("gas", "pres_IR")))
		}
		for _, sp := range species {
			fraction := key("gas", sp.Name+"_fraction")
			density := key("gas", sp.Name+"_density")
			mass := key("gas", sp.Name+"_mass")
			abundance := key("ramses", sp.Stored)

			b.Derived(fraction, []fields.Key{abundance},
				func(_ fields.Source, deps map[fields.Key]units.Quantity) (units.Quantity, error) {
					return deps[abundance], nil
				})
			b.Derived(density, []fields.Key{fraction, gasDensity},
				func(_ fields.Source, deps map[fields.Key]units.Quantity) (units.Quantity, error) {
					rho, err := deps[fraction].Mul(deps[gasDensity])
					if err != nil {
						return units.Quantity{}, err
					}
					return rho.InUnits("g/cm**3")
				})
			b.Derived(mass, []fields.Key{density},
				func(src fields.Source, deps map[fields.Key]units.Quantity) (units.Quantity, error) {
					vol, err := src.CellVolume()
					if err != nil {
						return units.Quantity{}, err
					}
					cm3, err := vol.InUnits("cm**3")
					if err != nil {
						return units.Quantity{}, err
					}
					m, err := deps[density].Mul(cm3)
					if err != nil {
						return units.Quantity{}, err
					}
					return m.InUnits("g")
				})
		}
	}

	reg, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("building field registry: %w", err)
	}
	return reg, nil
}

// depositAll runs one deposit method over every particle population and
// sums the per-cell results.
func depositAll(src fields.Source, method string, ptypes []string) (units.Quantity, error) {
	total, err := src.Deposit(method, ptypes[0])
	if err != nil {
		return units.Quantity{}, err
	}
	for _, pt := range ptypes[1:] {
		q, err := src.Deposit(method, pt)
		if err != nil {
			return units.Quantity{}, err
		}
		if total, err = total.Add(q); err != nil {
			return units.Quantity{}, err
		}
	}
	return total, nil
}

// squares returns vx*vx + vy*vy + vz*vz.
func squares(vx, vy, vz units.Quantity) (units.Quantity, error) {
	x2, err := vx.Mul(vx)
	if err != nil {
		return units.Quantity{}, err
	}
	y2, err := vy.Mul(vy)
	if err != nil {
		return units.Quantity{}, err
	}
	z2, err := vz.Mul(vz)
	if err != nil {
		return units.Quantity{}, err
	}
	sum, err := x2.Add(y2)
	if err != nil {
		return units.Quantity{}, err
	}
	return sum.Add(z2)
}
