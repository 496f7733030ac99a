package yt

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Option configures a dataset load.
type Option func(*Config)

// Config is the resolved option set a frontend receives.
type Config struct {
	Logger   *zap.Logger
	Source   BlockSource
	Override UnitsOverride
}

// NewConfig applies opts over the defaults (no-op logger, no block
// source, no unit overrides).
func NewConfig(opts ...Option) *Config {
	c := &Config{Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// WithLogger attaches a logger used during load and queries.
func WithLogger(log *zap.Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// WithBlockSource wires the data-access layer into the dataset. Without
// one, the dataset is metadata-only and stored-field reads fail with
// ErrNoBlockSource.
func WithBlockSource(src BlockSource) Option {
	return func(c *Config) { c.Source = src }
}

// WithUnitsOverride replaces base unit factors parsed from the header
// with caller-supplied values, before dependent code units are derived.
func WithUnitsOverride(ov UnitsOverride) Option {
	return func(c *Config) { c.Override = ov }
}

// OverrideEntry is a replacement value for one base unit: a magnitude and
// the unit it is expressed in (e.g. 1.0 "Mpc").
type OverrideEntry struct {
	Value float64 `yaml:"value"`
	Unit  string  `yaml:"unit"`
}

// UnitsOverride maps base unit names ("length_unit", "time_unit",
// "mass_unit", "density_unit", "velocity_unit") to replacement values.
type UnitsOverride map[string]OverrideEntry

var overrideKeys = map[string]bool{
	"length_unit":   true,
	"time_unit":     true,
	"mass_unit":     true,
	"density_unit":  true,
	"velocity_unit": true,
}

// Validate checks that every override key names a base unit.
func (ov UnitsOverride) Validate() error {
	for k, e := range ov {
		if !overrideKeys[k] {
			return fmt.Errorf("yt: unknown units override key %q", k)
		}
		if e.Value <= 0 {
			return fmt.Errorf("yt: units override %q must be positive, got %g", k, e.Value)
		}
		if e.Unit == "" {
			return fmt.Errorf("yt: units override %q has no unit", k)
		}
	}
	return nil
}

// ReadUnitsOverride loads a units override from a YAML file mapping base
// unit names to {value, unit} pairs.
func ReadUnitsOverride(path string) (UnitsOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading units override: %w", err)
	}
	var ov UnitsOverride
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("parsing units override: %w", err)
	}
	if err := ov.Validate(); err != nil {
		return nil, err
	}
	return ov, nil
}
