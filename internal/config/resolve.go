// resolve.go
package config

import (
	"github.com/xtding233/techdraw/internal/cascade"
	"github.com/xtding233/techdraw/internal/draws"
	"github.com/xtding233/techdraw/internal/probability"
	"github.com/xtding233/techdraw/internal/save"
)

// Overrides carries per-run knobs like a fixed seed from a CLI flag.
type Overrides struct {
	Seed          *uint64
	TierGate      *int
	MaxIterations *int
	MaxBytes      *int64
}

// Params is the normalized configuration handed to the engine.
type Params struct {
	Cascade     cascade.Params
	Probability probability.Options
	Extract     save.Options
	Version     string // effective config version for tracing
}

type Resolver interface {
	// Returns merged RawConfig and normalized Params
	Resolve(profile string, o Overrides) (RawConfig, Params, error)
}

// Resolve loads, validates and normalizes a profile.
func (l *Loader) Resolve(profile string, o Overrides) (RawConfig, Params, error) {
	raw, err := l.LoadMerged(profile)
	if err != nil {
		return RawConfig{}, Params{}, err
	}
	if err := ValidateRaw(raw); err != nil {
		return raw, Params{}, err
	}
	return raw, Normalize(raw, o), nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Normalize fills unset fields from the package defaults and applies o.
func Normalize(raw RawConfig, o Overrides) Params {
	p := Params{
		Cascade:     cascade.DefaultParams(),
		Probability: probability.DefaultOptions(),
		Extract:     save.Options{MaxBytes: save.DefaultMaxBytes},
		Version:     raw.Version,
	}

	e := raw.Engine
	set(&p.Cascade.TierGate, e.TierGate)
	w := &p.Cascade.Weight
	if m := e.Milestone; m != nil {
		set(&w.MilestoneMinTier, m.MinTier)
		set(&w.MilestoneMaxTier, m.MaxTier)
		set(&w.MilestoneStep, m.Step)
	}
	if d := e.Diminishing; d != nil {
		set(&w.DiminishingBase, d.Base)
		set(&w.DiminishingBypass, d.Bypass)
	}
	if r := e.Rare; r != nil {
		set(&w.RareFact, r.Fact)
		set(&w.RareDelta, r.Delta)
	}
	if len(e.Environment) > 0 {
		w.Environment = e.Environment
	}

	if d := raw.Draws; d != nil {
		pol := draws.DefaultPolicy()
		set(&pol.Base, d.Base)
		pol.PerArea = d.PerArea
		pol.Extras = d.Extras
		p.Cascade.Draws = pol
	}
	p.Cascade.Thresholds = raw.Scalars
	p.Cascade.Derived = raw.Derived

	pr := raw.Probability
	set(&p.Probability.Batch, pr.Batch)
	set(&p.Probability.Epsilon, pr.Epsilon)
	set(&p.Probability.Stable, pr.Stable)
	set(&p.Probability.MaxIterations, pr.MaxIterations)
	set(&p.Probability.Seed, pr.Seed)

	set(&p.Extract.MaxBytes, raw.Extract.MaxBytes)

	set(&p.Probability.Seed, o.Seed)
	set(&p.Cascade.TierGate, o.TierGate)
	set(&p.Probability.MaxIterations, o.MaxIterations)
	set(&p.Extract.MaxBytes, o.MaxBytes)
	return p
}
