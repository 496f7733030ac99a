package yt

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sacielo/yt/fields"
	"github.com/sacielo/yt/units"
)

// Dataset is one loaded simulation snapshot. It is immutable after
// construction, except for lazily published field lists, so concurrent
// queries against the same Dataset are safe.
type Dataset struct {
	id             string
	currentTime    units.Quantity
	ureg           *units.Registry
	freg           *fields.Registry
	source         BlockSource
	particleCounts map[string]int64
	domainLeft     [3]float64
	domainRight    [3]float64
	log            *zap.Logger

	lists       singleflight.Group
	listMu      sync.Mutex
	fieldList   []fields.Key
	derivedList []fields.Key
}

// DatasetParams carries everything a frontend assembles during load.
type DatasetParams struct {
	ID             string
	CurrentTime    units.Quantity
	Units          *units.Registry
	Fields         *fields.Registry
	Source         BlockSource
	ParticleCounts map[string]int64
	DomainLeft     [3]float64
	DomainRight    [3]float64
	Logger         *zap.Logger
}

// NewDataset constructs a Dataset from frontend-parsed metadata.
func NewDataset(p DatasetParams) (*Dataset, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("yt: dataset has no id")
	}
	if p.Units == nil {
		return nil, fmt.Errorf("yt: dataset %s has no unit registry", p.ID)
	}
	if p.Fields == nil {
		return nil, fmt.Errorf("yt: dataset %s has no field registry", p.ID)
	}
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	counts := make(map[string]int64, len(p.ParticleCounts))
	for k, v := range p.ParticleCounts {
		counts[k] = v
	}
	return &Dataset{
		id:             p.ID,
		currentTime:    p.CurrentTime,
		ureg:           p.Units,
		freg:           p.Fields,
		source:         p.Source,
		particleCounts: counts,
		domainLeft:     p.DomainLeft,
		domainRight:    p.DomainRight,
		log:            log,
	}, nil
}

// ID returns the canonical dataset identifier, derived from the header
// filename.
func (ds *Dataset) ID() string { return ds.id }

func (ds *Dataset) String() string { return ds.id }

// CurrentTime returns the simulation time in code units; convert with
// InUnits for physical units.
func (ds *Dataset) CurrentTime() units.Quantity { return ds.currentTime }

// Units returns the dataset's unit registry, including its code units.
func (ds *Dataset) Units() *units.Registry { return ds.ureg }

// Fields returns the dataset's field registry.
func (ds *Dataset) Fields() *fields.Registry { return ds.freg }

// Quantity builds a quantity against this dataset's unit registry, so
// symbolic units such as "unitary" or "code_length" resolve.
func (ds *Dataset) Quantity(v float64, expr string) (units.Quantity, error) {
	u, err := ds.ureg.Parse(expr)
	if err != nil {
		return units.Quantity{}, err
	}
	return units.Scalar(v, u, ds.ureg), nil
}

// ParticleTypeCounts returns particle population counts by type name.
// The returned map is a copy.
func (ds *Dataset) ParticleTypeCounts() map[string]int64 {
	out := make(map[string]int64, len(ds.particleCounts))
	for k, v := range ds.particleCounts {
		out[k] = v
	}
	return out
}

// DomainLeftEdge returns the lower domain corner in code length.
func (ds *Dataset) DomainLeftEdge() [3]float64 { return ds.domainLeft }

// DomainRightEdge returns the upper domain corner in code length.
func (ds *Dataset) DomainRightEdge() [3]float64 { return ds.domainRight }

// DomainWidth returns the domain width in code length. RAMSES domains
// are cubic, so a single width describes all axes.
func (ds *Dataset) DomainWidth() (units.Quantity, error) {
	u, err := ds.ureg.Parse("code_length")
	if err != nil {
		return units.Quantity{}, err
	}
	return units.Scalar(ds.domainRight[0]-ds.domainLeft[0], u, ds.ureg), nil
}

// FieldList returns the on-disk field keys. The list is computed once
// and published for all callers, however many ask concurrently.
func (ds *Dataset) FieldList() []fields.Key {
	v, _, _ := ds.lists.Do("stored", func() (interface{}, error) {
		ds.listMu.Lock()
		defer ds.listMu.Unlock()
		if ds.fieldList == nil {
			ds.fieldList = ds.freg.StoredKeys()
		}
		return ds.fieldList, nil
	})
	return v.([]fields.Key)
}

// DerivedFieldList returns the derived field keys, with the same
// compute-once semantics as FieldList.
func (ds *Dataset) DerivedFieldList() []fields.Key {
	v, _, _ := ds.lists.Do("derived", func() (interface{}, error) {
		ds.listMu.Lock()
		defer ds.listMu.Unlock()
		if ds.derivedList == nil {
			ds.derivedList = ds.freg.DerivedKeys()
		}
		return ds.derivedList, nil
	})
	return v.([]fields.Key)
}

// HasField reports whether key resolves on this dataset.
func (ds *Dataset) HasField(key fields.Key) bool { return ds.freg.Has(key) }

// AllData returns a container selecting the whole domain.
func (ds *Dataset) AllData() *DataContainer {
	return &DataContainer{ds: ds, name: "all_data"}
}

// Field resolves a field over the whole domain; shorthand for
// AllData().Field(key).
func (ds *Dataset) Field(key fields.Key) (units.Quantity, error) {
	return ds.AllData().Field(key)
}

// FindMax returns the maximum value of a field over the whole domain and
// the cell center where it occurs, in code length.
func (ds *Dataset) FindMax(key fields.Key) (units.Quantity, [3]float64, error) {
	ad := ds.AllData()
	q, err := ad.Field(key)
	if err != nil {
		return units.Quantity{}, [3]float64{}, err
	}
	if q.Len() == 0 {
		return units.Quantity{}, [3]float64{}, fmt.Errorf("yt: %s has no values to maximize", key)
	}
	centers, err := ad.CellCenters()
	if err != nil {
		return units.Quantity{}, [3]float64{}, err
	}
	if len(centers) != q.Len() {
		return units.Quantity{}, [3]float64{}, fmt.Errorf("yt: %s has %d values for %d cells", key, q.Len(), len(centers))
	}
	v, at := q.Max()
	ds.log.Debug("found field maximum",
		zap.Stringer("field", key),
		zap.Float64("value", v),
		zap.Float64s("position", centers[at][:]))
	return units.Scalar(v, q.Unit(), ds.ureg), centers[at], nil
}

// errIsStop reports whether a Blocks callback asked to stop early.
func errIsStop(err error) bool { return errors.Is(err, ErrStopIteration) }
