// Package ramses loads RAMSES simulation outputs. An output is a
// directory holding a textual info_NNNNN.txt header next to per-CPU
// amr/hydro/part data files; the header fixes the domain, the code-unit
// conversion factors and the snapshot time, and sibling text files
// describe the hydro variables and particle populations.
//
// Importing this package registers the frontend with yt.Load:
//
//	import _ "github.com/sacielo/yt/frontends/ramses"
package ramses

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sacielo/yt"
	"github.com/sacielo/yt/units"
)

var infoName = regexp.MustCompile(`^info_(\d{5})\.txt$`)

type frontend struct{}

func (frontend) Name() string { return "ramses" }

// Probe reports whether path names a RAMSES info file. It checks the
// filename convention and sniffs the first bytes for the header
// signature without parsing the whole file.
func (frontend) Probe(path string) bool {
	m := infoName.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	return strings.Contains(string(buf[:n]), "ncpu")
}

func (frontend) Open(path string, opts ...yt.Option) (*yt.Dataset, error) {
	return Open(path, opts...)
}

func init() { yt.Register(frontend{}) }

// Open loads the RAMSES output whose info file is at path. It fails
// atomically: any header, sibling-file or registry problem aborts the
// load and no partial dataset is returned.
func Open(path string, opts ...yt.Option) (*yt.Dataset, error) {
	cfg := yt.NewConfig(opts...)
	log := cfg.Logger

	base := filepath.Base(path)
	m := infoName.FindStringSubmatch(base)
	if m == nil {
		return nil, fmt.Errorf("%w: %s is not a RAMSES info file", yt.ErrFormat, path)
	}
	snap := m[1]
	dir := filepath.Dir(path)

	h, err := parseHeader(path)
	if err != nil {
		return nil, err
	}

	// Every output has at least the first CPU's amr and hydro files.
	for _, prefix := range []string{"amr", "hydro"} {
		sibling := filepath.Join(dir, fmt.Sprintf("%s_%s.out00001", prefix, snap))
		if _, err := os.Stat(sibling); err != nil {
			return nil, &yt.MissingFileError{Path: sibling}
		}
	}

	rt := exists(filepath.Join(dir, fmt.Sprintf("info_rt_%s.txt", snap)))

	storedNames, err := discoverFields(dir, rt, log)
	if err != nil {
		return nil, err
	}

	counts, err := particleCounts(dir, snap)
	if err != nil {
		return nil, err
	}

	if err := cfg.Override.Validate(); err != nil {
		return nil, err
	}
	ureg, err := buildUnits(h, cfg.Override)
	if err != nil {
		return nil, err
	}

	ptypes := make([]string, 0, len(counts))
	for typ := range counts {
		ptypes = append(ptypes, typ)
	}
	sort.Strings(ptypes)

	freg, err := buildRegistry(storedNames, rt, ptypes)
	if err != nil {
		return nil, err
	}

	timeUnit, err := ureg.Lookup("code_time")
	if err != nil {
		return nil, err
	}
	id := strings.TrimSuffix(base, ".txt")

	log.Info("loaded RAMSES dataset",
		zap.String("id", id),
		zap.Int("ncpu", h.NCPU),
		zap.Int("levelmin", h.LevelMin),
		zap.Int("levelmax", h.LevelMax),
		zap.Float64("time", h.Time),
		zap.Int("stored_fields", len(storedNames)),
		zap.Bool("rt", rt),
		zap.Any("particle_counts", counts))

	return yt.NewDataset(yt.DatasetParams{
		ID:             id,
		CurrentTime:    units.Scalar(h.Time, timeUnit, ureg),
		Units:          ureg,
		Fields:         freg,
		Source:         cfg.Source,
		ParticleCounts: counts,
		DomainLeft:     [3]float64{0, 0, 0},
		DomainRight:    [3]float64{h.BoxLen, h.BoxLen, h.BoxLen},
		Logger:         log,
	})
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// discoverFields reads the hydro variable names from the descriptor
// file, falling back to the standard variable tables when the output
// predates descriptors.
func discoverFields(dir string, rt bool, log *zap.Logger) ([]string, error) {
	desc := filepath.Join(dir, "hydro_file_descriptor.txt")
	if exists(desc) {
		return parseHydroDescriptor(desc)
	}
	log.Debug("no hydro descriptor, using default variable table", zap.Bool("rt", rt))
	if rt {
		return rtFieldTable, nil
	}
	return classicFieldTable, nil
}

// particleCounts derives the particle-type population map. The "io" type
// carries every particle not claimed by a more specific population, so
// the counts always sum to the total.
func particleCounts(dir, snap string) (map[string]int64, error) {
	headerPath := filepath.Join(dir, fmt.Sprintf("header_%s.txt", snap))
	if !exists(headerPath) {
		if exists(filepath.Join(dir, fmt.Sprintf("part_%s.out00001", snap))) {
			// Particle files without their census header.
			return nil, &yt.MissingFileError{Path: headerPath}
		}
		return nil, nil
	}
	total, star, sink, tracer, err := parseParticleHeader(headerPath)
	if err != nil {
		return nil, err
	}
	counts := map[string]int64{"io": total - star - sink - tracer}
	if star > 0 {
		counts["star"] = star
	}
	if sink > 0 {
		counts["sink"] = sink
	}
	if tracer > 0 {
		counts["tracer"] = tracer
	}
	return counts, nil
}

// buildUnits derives the dataset's unit registry from the header's
// code-to-CGS factors, applying any caller overrides to the base factors
// before the dependent code units are computed.
func buildUnits(h *header, ov yt.UnitsOverride) (*units.Registry, error) {
	reg := units.NewRegistry()

	ul, ud, ut := h.UnitL, h.UnitD, h.UnitT
	var err error
	if ul, err = overrideFactor(reg, ov, "length_unit", ul, units.DimLength); err != nil {
		return nil, err
	}
	if ud, err = overrideFactor(reg, ov, "density_unit", ud, units.DimDensity); err != nil {
		return nil, err
	}
	if ut, err = overrideFactor(reg, ov, "time_unit", ut, units.DimTime); err != nil {
		return nil, err
	}
	um := ud * ul * ul * ul
	if um, err = overrideFactor(reg, ov, "mass_unit", um, units.DimMass); err != nil {
		return nil, err
	}
	uv := ul / ut
	if uv, err = overrideFactor(reg, ov, "velocity_unit", uv, units.DimVelocity); err != nil {
		return nil, err
	}

	reg.Define("code_length", ul, units.DimLength)
	reg.Define("code_density", ud, units.DimDensity)
	reg.Define("code_time", ut, units.DimTime)
	reg.Define("code_mass", um, units.DimMass)
	reg.Define("code_velocity", uv, units.DimVelocity)
	reg.Define("code_pressure", ud*uv*uv, units.DimPressure)
	// One "unitary" is the full domain width; RAMSES domains are cubic,
	// so a single isotropic width covers all axes.
	reg.Define("unitary", h.BoxLen*ul, units.DimLength)
	return reg, nil
}

// overrideFactor replaces a base CGS factor with an override entry,
// checking that the override's unit has the expected dimensions.
func overrideFactor(reg *units.Registry, ov yt.UnitsOverride, name string, base float64, want units.Dimensions) (float64, error) {
	e, ok := ov[name]
	if !ok {
		return base, nil
	}
	u, err := reg.Parse(e.Unit)
	if err != nil {
		return 0, fmt.Errorf("units override %q: %w", name, err)
	}
	if u.Dims != want {
		return 0, fmt.Errorf("units override %q: %w: %s is %s, want %s",
			name, units.ErrIncompatible, e.Unit, u.Dims, want)
	}
	return e.Value * u.Factor, nil
}
