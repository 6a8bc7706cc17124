// Package config holds the comparison engine's run-time options: the
// knob exposed by the CLI's `exhaustive` command, plus everything
// loadable from an on-disk YAML profile (--config).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls the behavior of a comparison run. The zero value is
// not valid; use Default() or Load().
type Config struct {
	// Exhaustive, when set, disables the "stable size-2 class" early
	// exit during Iterate: size-2 classes keep fracturing, surfacing
	// property-only mismatches that topology alone would miss.
	Exhaustive bool `yaml:"exhaustive"`

	// PermuteTransistors / PermuteResistors / PermuteCapacitors are
	// carried in the profile only: no command reads them, and no
	// pin-permutation group is set up unless `permute` declares it.
	PermuteTransistors bool `yaml:"permute_transistors"`
	PermuteResistors   bool `yaml:"permute_resistors"`
	PermuteCapacitors  bool `yaml:"permute_capacitors"`

	// MaxWarnings is normalized by Validate (0 or less becomes 100);
	// no reader or command consults it, so it caps nothing.
	MaxWarnings int `yaml:"max_warnings"`

	// IncludePaths is the search path for SPICE `.INCLUDE`, tried in
	// order after the including file's own directory.
	IncludePaths []string `yaml:"include_paths"`

	// LogFile is carried in the profile; `log start` does not read it.
	LogFile string `yaml:"log_file"`

	// PropertyTolerance is checked for negative values by Validate;
	// property comparison uses each key's own Slop and never reads it.
	PropertyTolerance Tolerance `yaml:"property_tolerance"`
}

// Tolerance groups the per-type slop values of PropertyTolerance.
type Tolerance struct {
	Double float64 `yaml:"double"`
	Int    int64   `yaml:"int"`
	String int     `yaml:"string_prefix"`
}

// Default returns a Config with the engine's conventional defaults:
// no exhaustive mode, the three permute toggles set, and MaxWarnings
// of 100.
func Default() *Config {
	return &Config{
		Exhaustive:         false,
		PermuteTransistors: true,
		PermuteResistors:   true,
		PermuteCapacitors:  true,
		MaxWarnings:        100,
	}
}

// Validate normalizes zero/negative fields to their defaults and
// reports any genuinely invalid combination.
func (c *Config) Validate() error {
	if c.MaxWarnings <= 0 {
		c.MaxWarnings = 100
	}
	if c.PropertyTolerance.Double < 0 || c.PropertyTolerance.Int < 0 || c.PropertyTolerance.String < 0 {
		return fmt.Errorf("config: tolerances must be non-negative")
	}
	return nil
}

// Load reads a YAML profile from path, layering it over Default() so
// an omitted field keeps its default rather than zeroing out.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg out as YAML, for `log` transcripts that want to
// record the exact run configuration alongside their output.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
