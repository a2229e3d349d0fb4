package weight

import (
	"math"

	"github.com/xtding233/techdraw/internal/catalog"
)

// EnvironmentTier is one rung of the environment waterfall.
type EnvironmentTier struct {
	Fact  string  `yaml:"fact"`
	Delta float64 `yaml:"delta"`
}

// Params tunes the engine. See DefaultParams.
type Params struct {
	MilestoneMinTier int
	MilestoneMaxTier int
	MilestoneStep    float64

	// DiminishingBase^n scales items whose group already has n obtained members.
	DiminishingBase float64
	// DiminishingBypass is an item whose obtainment disables the penalty.
	DiminishingBypass string

	RareFact  string
	RareDelta float64

	// Environment is checked in order; only the first rung whose fact holds applies.
	Environment []EnvironmentTier
}

func DefaultParams() Params {
	return Params{
		MilestoneMinTier:  1,
		MilestoneMaxTier:  3,
		MilestoneStep:     0.2,
		DiminishingBase:   0.85,
		DiminishingBypass: "tech_repeatable_research_focus",
		RareFact:          "perk:ap_technological_ascendancy",
		RareDelta:         0.5,
		Environment: []EnvironmentTier{
			{Fact: "environment:shroud_breach", Delta: 9999},
			{Fact: "environment:relic_world", Delta: 1.0},
			{Fact: "environment:research_station", Delta: 0.5},
			{Fact: "environment:anomaly", Delta: 0.2},
		},
	}
}

// scriptDelta returns the 1+delta adjustment a named script applies.
func (e *Engine) scriptDelta(s catalog.Script, it *catalog.Item, ctx Context, hypothetical string) float64 {
	p := e.Params
	switch s {
	case catalog.ScriptRareTech:
		if it.Rare && p.RareFact != "" && ctx.Fact(p.RareFact) {
			return p.RareDelta
		}
		return 0
	case catalog.ScriptDiminishing:
		if it.Group == "" {
			return 0
		}
		if p.DiminishingBypass != "" && (hypothetical == p.DiminishingBypass || ctx.Obtained(p.DiminishingBypass)) {
			return 0
		}
		n := ctx.ObtainedInGroup(it.Group)
		return math.Pow(p.DiminishingBase, float64(n)) - 1
	case catalog.ScriptEnvironment:
		for _, tier := range p.Environment {
			if ctx.Fact(tier.Fact) {
				return tier.Delta
			}
		}
		return 0
	default:
		return 0
	}
}
