package yt

import (
	"fmt"

	"github.com/sacielo/yt/fields"
	"github.com/sacielo/yt/units"
)

// DataContainer restricts field queries to a sub-region of its dataset:
// the whole domain, a sphere, or any other Selector. It holds a
// non-owning reference to the Dataset and no mutable state, so one
// container can serve concurrent queries.
type DataContainer struct {
	ds   *Dataset
	sel  Selector // nil selects everything
	name string
}

// Dataset returns the owning dataset.
func (c *DataContainer) Dataset() *Dataset { return c.ds }

// Name describes the selection ("all_data", "sphere").
func (c *DataContainer) Name() string { return c.name }

// Blocks traverses the dataset's blocks lazily, calling fn with each
// block and the membership mask of its cells under this container's
// selection. Masks from one traversal partition the container's
// membership set exactly once. Returning ErrStopIteration from fn stops
// the traversal without error; any other error aborts it.
//
// Each traversal builds its masks independently, so Blocks may be
// iterated concurrently and restarted freely.
func (c *DataContainer) Blocks(fn func(b Block, mask Mask) error) error {
	if c.ds.source == nil {
		return ErrNoBlockSource
	}
	for _, b := range c.ds.source.Blocks() {
		mask := make(Mask, b.NumCells())
		if c.sel == nil {
			for i := range mask {
				mask[i] = true
			}
		} else {
			for i, p := range b.CellCenters() {
				mask[i] = c.sel.Contains(p)
			}
		}
		if err := fn(b, mask); err != nil {
			if errIsStop(err) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Field resolves a field key to its values over this container's
// selection. Intermediate results of derived-field resolution are
// memoized for this call only.
func (c *DataContainer) Field(key fields.Key) (units.Quantity, error) {
	return c.ds.freg.Resolve(key, c)
}

// CellCenters returns the centers of all selected cells in code length,
// in block traversal order, the same order every field array uses.
func (c *DataContainer) CellCenters() ([][3]float64, error) {
	var out [][3]float64
	err := c.Blocks(func(b Block, mask Mask) error {
		for i, p := range b.CellCenters() {
			if mask[i] {
				out = append(out, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Stored implements fields.Source: it reads one on-disk field block by
// block, keeping only selected cells, and attaches the registered unit.
func (c *DataContainer) Stored(key fields.Key) (units.Quantity, error) {
	expr, ok := c.ds.freg.StoredUnit(key)
	if !ok {
		return units.Quantity{}, &fields.UnknownFieldError{Key: key}
	}
	u, err := c.ds.ureg.Parse(expr)
	if err != nil {
		return units.Quantity{}, fmt.Errorf("unit of %s: %w", key, err)
	}

	var out []float64
	err = c.Blocks(func(b Block, mask Mask) error {
		vals, err := c.ds.source.CellField(b.Index, key.Name)
		if err != nil {
			return fmt.Errorf("reading %s from block %d: %w", key, b.Index, err)
		}
		if len(vals) != len(mask) {
			return fmt.Errorf("block %d: %s has %d values for %d cells", b.Index, key, len(vals), len(mask))
		}
		for i, v := range vals {
			if mask[i] {
				out = append(out, v)
			}
		}
		return nil
	})
	if err != nil {
		return units.Quantity{}, err
	}
	return units.New(out, u, c.ds.ureg), nil
}

// CellVolume implements fields.Source: the volume of each selected cell.
func (c *DataContainer) CellVolume() (units.Quantity, error) {
	u, err := c.ds.ureg.Parse("code_length**3")
	if err != nil {
		return units.Quantity{}, err
	}
	var out []float64
	err = c.Blocks(func(b Block, mask Mask) error {
		vol := b.CellVolume()
		for _, in := range mask {
			if in {
				out = append(out, vol)
			}
		}
		return nil
	})
	if err != nil {
		return units.Quantity{}, err
	}
	return units.New(out, u, c.ds.ureg), nil
}

// Deposit implements fields.Source: nearest-grid-point deposition of
// particles onto the selected cells. method "count" yields the number of
// particles per cell; "mass" yields the summed particle mass per cell in
// code mass.
func (c *DataContainer) Deposit(method, ptype string) (units.Quantity, error) {
	if c.ds.source == nil {
		return units.Quantity{}, ErrNoBlockSource
	}
	pos, mass, err := c.ds.source.Particles(ptype)
	if err != nil {
		return units.Quantity{}, fmt.Errorf("reading %q particles: %w", ptype, err)
	}

	var unitExpr string
	switch method {
	case "count":
		unitExpr = ""
	case "mass":
		unitExpr = "code_mass"
	default:
		return units.Quantity{}, fmt.Errorf("yt: unknown deposit method %q", method)
	}
	u, err := c.ds.ureg.Parse(unitExpr)
	if err != nil {
		return units.Quantity{}, err
	}

	var out []float64
	err = c.Blocks(func(b Block, mask Mask) error {
		cells := make([]float64, b.NumCells())
		for pi, p := range pos {
			ci := b.cellIndex(p, c.ds.domainRight)
			if ci < 0 {
				continue
			}
			switch method {
			case "count":
				cells[ci]++
			case "mass":
				cells[ci] += mass[pi]
			}
		}
		for i, v := range cells {
			if mask[i] {
				out = append(out, v)
			}
		}
		return nil
	})
	if err != nil {
		return units.Quantity{}, err
	}
	return units.New(out, u, c.ds.ureg), nil
}
