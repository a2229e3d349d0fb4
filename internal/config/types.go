// types.go
package config

import (
	"github.com/xtding233/techdraw/internal/cascade"
	"github.com/xtding233/techdraw/internal/draws"
	"github.com/xtding233/techdraw/internal/facts"
	"github.com/xtding233/techdraw/internal/weight"
)

// RawConfig is one YAML file as written. Pointer fields distinguish
// "absent" from an explicit zero so profiles can override selectively.
type RawConfig struct {
	Version     string                `yaml:"version"`
	Engine      EngineConfig          `yaml:"engine"`
	Probability ProbabilityConfig     `yaml:"probability"`
	Draws       *DrawsConfig          `yaml:"draws,omitempty"`
	Scalars     []facts.ThresholdRule `yaml:"scalars,omitempty"`
	Derived     []cascade.DerivedFact `yaml:"derived,omitempty"`
	Extract     ExtractConfig         `yaml:"extract"`
	Notes       string                `yaml:"notes,omitempty"`
}

type EngineConfig struct {
	TierGate    *int                     `yaml:"tier_gate"`
	Milestone   *MilestoneConfig         `yaml:"milestone,omitempty"`
	Diminishing *DiminishingConfig       `yaml:"diminishing,omitempty"`
	Rare        *RareConfig              `yaml:"rare,omitempty"`
	Environment []weight.EnvironmentTier `yaml:"environment,omitempty"`
}

type MilestoneConfig struct {
	MinTier *int     `yaml:"min_tier"`
	MaxTier *int     `yaml:"max_tier"`
	Step    *float64 `yaml:"step"`
}

type DiminishingConfig struct {
	Base   *float64 `yaml:"base"`
	Bypass *string  `yaml:"bypass"`
}

type RareConfig struct {
	Fact  *string  `yaml:"fact"`
	Delta *float64 `yaml:"delta"`
}

type ProbabilityConfig struct {
	Batch         *int     `yaml:"batch"`
	Epsilon       *float64 `yaml:"epsilon"`
	Stable        *int     `yaml:"stable"`
	MaxIterations *int     `yaml:"max_iterations"`
	Seed          *uint64  `yaml:"seed"`
}

type DrawsConfig struct {
	Base    *int           `yaml:"base"`
	PerArea map[string]int `yaml:"per_area,omitempty"`
	Extras  []draws.Extra  `yaml:"extras,omitempty"`
}

type ExtractConfig struct {
	MaxBytes *int64 `yaml:"max_bytes"`
}
