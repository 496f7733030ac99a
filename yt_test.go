package yt_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sacielo/yt"
	"github.com/sacielo/yt/fields"
	"github.com/sacielo/yt/frontends/stream"
)

// testDataset builds a two-block unit-cube dataset whose density
// increases with position, peaking in the last cell of the second block.
func testDataset(t *testing.T) *yt.Dataset {
	t.Helper()
	src := stream.NewSource()

	addBlock := func(left, right [3]float64) {
		dims := [3]int{2, 4, 4}
		n := dims[0] * dims[1] * dims[2]
		density := make([]float64, n)
		b := yt.Block{LeftEdge: left, RightEdge: right, Dims: dims}
		for i, p := range b.CellCenters() {
			density[i] = p[0] + p[1] + p[2]
		}
		require.NoError(t, src.AddBlock(left, right, dims, 0, map[string][]float64{
			"density": density,
		}))
	}
	addBlock([3]float64{0, 0, 0}, [3]float64{0.5, 1, 1})
	addBlock([3]float64{0.5, 0, 0}, [3]float64{1, 1, 1})

	ds, err := stream.New("stream_0001", src)
	require.NoError(t, err)
	return ds
}

func onesKey() fields.Key { return fields.Key{Category: "index", Name: "ones"} }

func TestAllDataOnesCountsEveryCell(t *testing.T) {
	ds := testDataset(t)

	ones, err := ds.AllData().Field(onesKey())
	require.NoError(t, err)
	assert.Equal(t, 64, ones.Len())
	assert.Equal(t, 64.0, ones.Sum())
}

func TestBlockMasksPartitionSelection(t *testing.T) {
	ds := testDataset(t)

	radius, err := ds.Quantity(0.25, "unitary")
	require.NoError(t, err)
	sphere, err := ds.Sphere(yt.Point(0.5, 0.5, 0.5), radius)
	require.NoError(t, err)

	for _, dobj := range []*yt.DataContainer{ds.AllData(), sphere} {
		ones, err := dobj.Field(onesKey())
		require.NoError(t, err)

		maskSum := 0
		require.NoError(t, dobj.Blocks(func(_ yt.Block, mask yt.Mask) error {
			maskSum += mask.Sum()
			return nil
		}))
		assert.Equal(t, ones.Sum(), float64(maskSum), "container %s", dobj.Name())
	}
}

func TestSphereMatchesGeometry(t *testing.T) {
	ds := testDataset(t)

	center := [3]float64{0.5, 0.5, 0.5}
	r := 0.3
	radius, err := ds.Quantity(r, "code_length")
	require.NoError(t, err)
	sphere, err := ds.Sphere(yt.Point(center[0], center[1], center[2]), radius)
	require.NoError(t, err)

	all, err := ds.AllData().CellCenters()
	require.NoError(t, err)
	want := 0
	for _, p := range all {
		d2 := 0.0
		for ax := 0; ax < 3; ax++ {
			d := p[ax] - center[ax]
			d2 += d * d
		}
		if d2 <= r*r {
			want++
		}
	}
	require.Greater(t, want, 0)

	ones, err := sphere.Field(onesKey())
	require.NoError(t, err)
	assert.Equal(t, float64(want), ones.Sum())
	assert.Less(t, ones.Len(), 64)
}

func TestBlocksIterationIsRestartable(t *testing.T) {
	ds := testDataset(t)
	ad := ds.AllData()

	count := func() int {
		n := 0
		require.NoError(t, ad.Blocks(func(yt.Block, yt.Mask) error {
			n++
			return nil
		}))
		return n
	}
	assert.Equal(t, 2, count())
	assert.Equal(t, 2, count())
}

func TestBlocksStopIteration(t *testing.T) {
	ds := testDataset(t)

	n := 0
	err := ds.AllData().Blocks(func(yt.Block, yt.Mask) error {
		n++
		return yt.ErrStopIteration
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFindMaxLocatesDensityPeak(t *testing.T) {
	ds := testDataset(t)

	v, pos, err := ds.FindMax(fields.Key{Category: "gas", Name: "density"})
	require.NoError(t, err)
	// Density is x+y+z, so the peak sits in the last cell's center.
	want := [3]float64{0.875, 0.875, 0.875}
	for ax := 0; ax < 3; ax++ {
		assert.InDelta(t, want[ax], pos[ax], 1e-12)
	}
	assert.InDelta(t, want[0]+want[1]+want[2], v.Value(), 1e-12)
}

func TestSphereAtMaxCenter(t *testing.T) {
	ds := testDataset(t)

	radius, err := ds.Quantity(0.1, "unitary")
	require.NoError(t, err)
	sphere, err := ds.Sphere(yt.MaxDensity(), radius)
	require.NoError(t, err)

	ones, err := sphere.Field(onesKey())
	require.NoError(t, err)
	assert.Greater(t, ones.Sum(), 0.0)
}

func TestSphereRejectsMalformedSpecs(t *testing.T) {
	ds := testDataset(t)

	var selErr *yt.InvalidSelectorError

	// Negative radius.
	radius, err := ds.Quantity(-0.1, "code_length")
	require.NoError(t, err)
	_, err = ds.Sphere(yt.Point(0.5, 0.5, 0.5), radius)
	require.Error(t, err)
	assert.True(t, errors.As(err, &selErr))

	// Radius with non-length dimensions.
	radius, err = ds.Quantity(1, "code_time")
	require.NoError(t, err)
	_, err = ds.Sphere(yt.Point(0.5, 0.5, 0.5), radius)
	require.Error(t, err)
	assert.True(t, errors.As(err, &selErr))

	// Symbolic center over a field that does not exist.
	radius, err = ds.Quantity(0.1, "unitary")
	require.NoError(t, err)
	_, err = ds.Sphere(yt.MaxOf(fields.Key{Category: "gas", Name: "entropy"}), radius)
	require.Error(t, err)
	assert.True(t, errors.As(err, &selErr))
}

func TestDepositCountsParticles(t *testing.T) {
	src := stream.NewSource()
	dims := [3]int{4, 4, 4}
	n := dims[0] * dims[1] * dims[2]
	require.NoError(t, src.AddBlock([3]float64{0, 0, 0}, [3]float64{1, 1, 1}, dims, 0,
		map[string][]float64{"density": make([]float64, n)}))

	pos := [][3]float64{
		{0.1, 0.1, 0.1},
		{0.11, 0.12, 0.13}, // same cell as the first
		{0.9, 0.9, 0.9},
	}
	require.NoError(t, src.SetParticles("io", pos, []float64{1, 2, 4}))

	ds, err := stream.New("stream_0002", src)
	require.NoError(t, err)
	ad := ds.AllData()

	count, err := ad.Deposit("count", "io")
	require.NoError(t, err)
	assert.Equal(t, 3.0, count.Sum())

	mass, err := ad.Deposit("mass", "io")
	require.NoError(t, err)
	assert.Equal(t, 7.0, mass.Sum())

	_, err = ad.Deposit("cloud", "io")
	require.Error(t, err)
}

func TestDepositKeepsDomainBoundaryParticles(t *testing.T) {
	src := stream.NewSource()
	dims := [3]int{2, 4, 4}
	n := dims[0] * dims[1] * dims[2]
	require.NoError(t, src.AddBlock([3]float64{0, 0, 0}, [3]float64{0.5, 1, 1}, dims, 0,
		map[string][]float64{"density": make([]float64, n)}))
	require.NoError(t, src.AddBlock([3]float64{0.5, 0, 0}, [3]float64{1, 1, 1}, dims, 0,
		map[string][]float64{"density": make([]float64, n)}))

	pos := [][3]float64{
		{1, 1, 1},       // domain corner
		{1, 0.5, 0.5},   // domain face
		{0.5, 0.5, 0.5}, // interior block boundary, second block only
	}
	require.NoError(t, src.SetParticles("io", pos, []float64{1, 1, 1}))

	ds, err := stream.New("stream_0004", src)
	require.NoError(t, err)

	count, err := ds.AllData().Deposit("count", "io")
	require.NoError(t, err)
	assert.Equal(t, 3.0, count.Sum())
}

func TestFieldListsAreStable(t *testing.T) {
	ds := testDataset(t)

	first := ds.FieldList()
	second := ds.FieldList()
	assert.Equal(t, first, second)
	require.NotEmpty(t, first)
	assert.Equal(t, fields.Key{Category: "stream", Name: "density"}, first[0])

	derived := ds.DerivedFieldList()
	assert.Contains(t, derived, onesKey())
	assert.Contains(t, derived, fields.Key{Category: "gas", Name: "density"})
}

func TestParticleTypeCountsCopies(t *testing.T) {
	src := stream.NewSource()
	require.NoError(t, src.AddBlock([3]float64{0, 0, 0}, [3]float64{1, 1, 1}, [3]int{2, 2, 2}, 0,
		map[string][]float64{"density": make([]float64, 8)}))
	require.NoError(t, src.SetParticles("io", [][3]float64{{0.5, 0.5, 0.5}}, []float64{1}))

	ds, err := stream.New("stream_0003", src)
	require.NoError(t, err)

	counts := ds.ParticleTypeCounts()
	assert.Equal(t, int64(1), counts["io"])
	counts["io"] = 99
	assert.Equal(t, int64(1), ds.ParticleTypeCounts()["io"])
}

func TestDatasetFieldShortcut(t *testing.T) {
	ds := testDataset(t)

	direct, err := ds.Field(fields.Key{Category: "stream", Name: "density"})
	require.NoError(t, err)
	viaContainer, err := ds.AllData().Field(fields.Key{Category: "stream", Name: "density"})
	require.NoError(t, err)
	assert.Equal(t, viaContainer.Values(), direct.Values())
	assert.False(t, math.IsNaN(direct.Value()))
}
