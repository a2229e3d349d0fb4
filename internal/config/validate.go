package config

import (
	"fmt"
	"strings"
)

// ValidateRaw checks semantic constraints of a RawConfig and reports every
// violation at once.
func ValidateRaw(cfg RawConfig) error {
	var errs []string

	// engine
	if g := cfg.Engine.TierGate; g != nil && *g < 0 {
		errs = append(errs, "engine.tier_gate must be >= 0")
	}
	if m := cfg.Engine.Milestone; m != nil {
		if m.Step != nil && *m.Step < 0 {
			errs = append(errs, "engine.milestone.step must be >= 0")
		}
		if m.MinTier != nil && m.MaxTier != nil && *m.MinTier > *m.MaxTier {
			errs = append(errs, "engine.milestone.min_tier must be <= max_tier")
		}
	}
	if d := cfg.Engine.Diminishing; d != nil && d.Base != nil {
		if *d.Base <= 0 || *d.Base > 1 {
			errs = append(errs, "engine.diminishing.base must be in (0,1]")
		}
	}
	if r := cfg.Engine.Rare; r != nil && r.Delta != nil && *r.Delta <= -1 {
		errs = append(errs, "engine.rare.delta must be > -1")
	}
	for i, e := range cfg.Engine.Environment {
		if e.Fact == "" {
			errs = append(errs, fmt.Sprintf("engine.environment[%d].fact is required", i))
		}
		if e.Delta <= -1 {
			errs = append(errs, fmt.Sprintf("engine.environment[%d].delta must be > -1", i))
		}
	}

	// probability
	p := cfg.Probability
	if p.Batch != nil && *p.Batch <= 0 {
		errs = append(errs, "probability.batch must be >= 1")
	}
	if p.Epsilon != nil && (*p.Epsilon <= 0 || *p.Epsilon >= 100) {
		errs = append(errs, "probability.epsilon must be in (0,100)")
	}
	if p.Stable != nil && *p.Stable <= 0 {
		errs = append(errs, "probability.stable must be >= 1")
	}
	if p.MaxIterations != nil && *p.MaxIterations <= 0 {
		errs = append(errs, "probability.max_iterations must be >= 1")
	}
	if p.Batch != nil && p.MaxIterations != nil && *p.Batch > *p.MaxIterations {
		errs = append(errs, "probability.batch must not exceed max_iterations")
	}

	// draws
	if d := cfg.Draws; d != nil {
		if d.Base != nil && *d.Base < 0 {
			errs = append(errs, "draws.base must be >= 0")
		}
		for area, n := range d.PerArea {
			if n < 0 {
				errs = append(errs, fmt.Sprintf("draws.per_area.%s must be >= 0", area))
			}
		}
		for i, e := range d.Extras {
			if e.Fact == "" {
				errs = append(errs, fmt.Sprintf("draws.extras[%d].fact is required", i))
			}
		}
	}

	for i, r := range cfg.Scalars {
		if r.Scalar == "" || r.Fact == "" {
			errs = append(errs, fmt.Sprintf("scalars[%d] needs scalar and fact", i))
		}
	}
	for i, d := range cfg.Derived {
		if d.Fact == "" || len(d.AnyAvailable) == 0 {
			errs = append(errs, fmt.Sprintf("derived[%d] needs fact and any_available", i))
		}
	}

	if m := cfg.Extract.MaxBytes; m != nil && *m <= 0 {
		errs = append(errs, "extract.max_bytes must be > 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
