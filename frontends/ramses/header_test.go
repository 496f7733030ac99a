package ramses

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sacielo/yt"
)

func TestParseHeaderReadsFortranFloats(t *testing.T) {
	info := writeFixture(t, fixtureOpts{
		time:   0.0299468077820411,
		boxlen: 1,
		unitL:  3.08567758128200e21,
		unitD:  2.5e-27,
		unitT:  4.7e14,
	})

	h, err := parseHeader(info)
	require.NoError(t, err)
	assert.Equal(t, 2, h.NCPU)
	assert.Equal(t, 3, h.NDim)
	assert.Equal(t, 3, h.LevelMin)
	assert.Equal(t, 5, h.LevelMax)
	assert.Equal(t, 0.0299468077820411, h.Time)
	assert.Equal(t, 3.08567758128200e21, h.UnitL)
	assert.Equal(t, 2.5e-27, h.UnitD)
	assert.Equal(t, 4.7e14, h.UnitT)
	assert.Equal(t, "hilbert", h.Ordering)
}

func TestParseHeaderMissingRequiredKey(t *testing.T) {
	dir := t.TempDir()
	info := filepath.Join(dir, "info_00001.txt")
	require.NoError(t, os.WriteFile(info, []byte(
		"ncpu        =          2\n"+
			"ndim        =          3\n"+
			"levelmin    =          3\n"+
			"levelmax    =          5\n"+
			"boxlen      =  1.0E+00\n"+
			"time        =  0.0E+00\n"+
			"unit_l      =  1.0E+00\n"+
			"unit_d      =  1.0E+00\n"), 0o644))

	_, err := parseHeader(info)
	require.Error(t, err)
	assert.ErrorIs(t, err, yt.ErrFormat)
	assert.Contains(t, err.Error(), "unit_t")
}

func TestParseHeaderRejectsNonPositiveUnits(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "info_00001.txt")
	content := "ncpu        =          1\nndim        =          3\n" +
		"levelmin    =          1\nlevelmax    =          1\n" +
		"boxlen      =  1.0E+00\ntime        =  0.0E+00\n" +
		"unit_l      =  0.0E+00\nunit_d      =  1.0E+00\nunit_t      =  1.0E+00\n"
	require.NoError(t, os.WriteFile(bad, []byte(content), 0o644))

	_, err := parseHeader(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, yt.ErrFormat)
}

func TestParseParticleHeaderSameLineCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "header_00080.txt")
	require.NoError(t, os.WriteFile(path, []byte(
		"Total number of particles          1090895\n"+
			"Total number of dark matter particles    1090895\n"+
			"Total number of star particles           0\n"+
			"Total number of sink particles           0\n"), 0o644))

	total, star, sink, tracer, err := parseParticleHeader(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1090895), total)
	assert.Zero(t, star)
	assert.Zero(t, sink)
	assert.Zero(t, tracer)
}

func TestParseParticleHeaderNextLineCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "header_00080.txt")
	require.NoError(t, os.WriteFile(path, []byte(
		" Total number of particles\n        250\n"+
			" Total number of star particles\n         50\n"+
			" Total number of tracer particles\n         25\n"), 0o644))

	total, star, sink, tracer, err := parseParticleHeader(path)
	require.NoError(t, err)
	assert.Equal(t, int64(250), total)
	assert.Equal(t, int64(50), star)
	assert.Zero(t, sink)
	assert.Equal(t, int64(25), tracer)
}

func TestParseHydroDescriptor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hydro_file_descriptor.txt")
	require.NoError(t, os.WriteFile(path, []byte(
		"nvar        =          3\n"+
			"variable #  1 : Density\n"+
			"variable #  2 : x-velocity\n"+
			"variable #  3 : Pressure\n"), 0o644))

	names, err := parseHydroDescriptor(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Density", "x-velocity", "Pressure"}, names)
}

func TestParseHydroDescriptorMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hydro_file_descriptor.txt")
	require.NoError(t, os.WriteFile(path, []byte("variable #  1  Density\n"), 0o644))

	_, err := parseHydroDescriptor(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("nvar = 0\n"), 0o644))
	_, err = parseHydroDescriptor(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no variables")
}
