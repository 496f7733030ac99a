// Package stream builds datasets from in-memory arrays instead of disk
// output. It serves two purposes: embedding callers can analyze data
// they already hold, and other frontends' tests can inject it as the
// block source behind on-disk metadata.
package stream

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sacielo/yt"
	"github.com/sacielo/yt/fields"
	"github.com/sacielo/yt/units"
)

// Source is an in-memory yt.BlockSource.
type Source struct {
	blocks    []yt.Block
	data      []map[string][]float64
	particles map[string]particleSet
}

type particleSet struct {
	pos  [][3]float64
	mass []float64
}

// NewSource returns an empty source; populate it with AddBlock and
// SetParticles before wiring it into a dataset.
func NewSource() *Source {
	return &Source{particles: make(map[string]particleSet)}
}

// AddBlock appends one uniform block with its per-cell field arrays.
// Arrays are in block storage order (x fastest) and every array must
// have exactly dims[0]*dims[1]*dims[2] elements.
func (s *Source) AddBlock(left, right [3]float64, dims [3]int, level int, data map[string][]float64) error {
	b := yt.Block{
		Index:     len(s.blocks),
		LeftEdge:  left,
		RightEdge: right,
		Dims:      dims,
		Level:     level,
	}
	for ax := 0; ax < 3; ax++ {
		if dims[ax] <= 0 {
			return fmt.Errorf("stream: block %d has non-positive dims", b.Index)
		}
		if right[ax] <= left[ax] {
			return fmt.Errorf("stream: block %d has inverted edges", b.Index)
		}
	}
	n := b.NumCells()
	copied := make(map[string][]float64, len(data))
	for name, vals := range data {
		if len(vals) != n {
			return fmt.Errorf("stream: block %d field %q has %d values for %d cells", b.Index, name, len(vals), n)
		}
		cp := make([]float64, n)
		copy(cp, vals)
		copied[name] = cp
	}
	s.blocks = append(s.blocks, b)
	s.data = append(s.data, copied)
	return nil
}

// SetParticles installs the particle population for one type.
func (s *Source) SetParticles(ptype string, pos [][3]float64, mass []float64) error {
	if len(pos) != len(mass) {
		return fmt.Errorf("stream: %d positions for %d masses", len(pos), len(mass))
	}
	s.particles[ptype] = particleSet{pos: pos, mass: mass}
	return nil
}

// Blocks implements yt.BlockSource.
func (s *Source) Blocks() []yt.Block {
	out := make([]yt.Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// CellField implements yt.BlockSource.
func (s *Source) CellField(blockIndex int, name string) ([]float64, error) {
	if blockIndex < 0 || blockIndex >= len(s.blocks) {
		return nil, fmt.Errorf("stream: no block %d", blockIndex)
	}
	vals, ok := s.data[blockIndex][name]
	if !ok {
		return nil, fmt.Errorf("stream: block %d has no field %q", blockIndex, name)
	}
	return vals, nil
}

// Particles implements yt.BlockSource. An unknown type has an empty
// population, not an error.
func (s *Source) Particles(ptype string) ([][3]float64, []float64, error) {
	p := s.particles[ptype]
	return p.pos, p.mass, nil
}

// FieldNames returns the union of field names across blocks, sorted.
func (s *Source) FieldNames() []string {
	seen := make(map[string]bool)
	for _, d := range s.data {
		for name := range d {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParticleCounts returns the population size per particle type.
func (s *Source) ParticleCounts() map[string]int64 {
	out := make(map[string]int64, len(s.particles))
	for t, p := range s.particles {
		out[t] = int64(len(p.pos))
	}
	return out
}

// storedUnit guesses the code unit of a stream field from its name.
func storedUnit(name string) string {
	switch {
	case name == "density":
		return "code_density"
	case name == "pressure":
		return "code_pressure"
	case strings.HasPrefix(name, "velocity"):
		return "code_velocity"
	default:
		return ""
	}
}

// New builds a dataset over the source's blocks. Code units are identity
// (one code length is one centimeter), which keeps in-memory data exact
// under conversion while still exercising the full unit machinery.
func New(id string, src *Source, opts ...yt.Option) (*yt.Dataset, error) {
	if len(src.blocks) == 0 {
		return nil, fmt.Errorf("stream: dataset %q has no blocks", id)
	}
	cfg := yt.NewConfig(opts...)

	left, right := src.blocks[0].LeftEdge, src.blocks[0].RightEdge
	for _, b := range src.blocks[1:] {
		for ax := 0; ax < 3; ax++ {
			if b.LeftEdge[ax] < left[ax] {
				left[ax] = b.LeftEdge[ax]
			}
			if b.RightEdge[ax] > right[ax] {
				right[ax] = b.RightEdge[ax]
			}
		}
	}

	ureg := units.NewRegistry()
	ureg.Define("code_length", 1, units.DimLength)
	ureg.Define("code_mass", 1, units.DimMass)
	ureg.Define("code_time", 1, units.DimTime)
	ureg.Define("code_density", 1, units.DimDensity)
	ureg.Define("code_velocity", 1, units.DimVelocity)
	ureg.Define("code_pressure", 1, units.DimPressure)
	ureg.Define("unitary", right[0]-left[0], units.DimLength)

	fb := fields.NewBuilder()
	yt.AddIndexFields(fb)
	for _, name := range src.FieldNames() {
		fb.Stored(fields.Key{Category: "stream", Name: name}, storedUnit(name))
	}
	if _, ok := firstBlockField(src, "density"); ok {
		dep := fields.Key{Category: "stream", Name: "density"}
		fb.Derived(fields.Key{Category: "gas", Name: "density"}, []fields.Key{dep},
			func(_ fields.Source, deps map[fields.Key]units.Quantity) (units.Quantity, error) {
				return deps[dep].InUnits("g/cm**3")
			})
	}
	freg, err := fb.Build()
	if err != nil {
		return nil, fmt.Errorf("stream: building field registry: %w", err)
	}

	tu, err := ureg.Lookup("code_time")
	if err != nil {
		return nil, err
	}
	ds, err := yt.NewDataset(yt.DatasetParams{
		ID:             id,
		CurrentTime:    units.Scalar(0, tu, ureg),
		Units:          ureg,
		Fields:         freg,
		Source:         src,
		ParticleCounts: src.ParticleCounts(),
		DomainLeft:     left,
		DomainRight:    right,
		Logger:         cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func firstBlockField(src *Source, name string) ([]float64, bool) {
	for _, d := range src.data {
		if vals, ok := d[name]; ok {
			return vals, true
		}
	}
	return nil, false
}
