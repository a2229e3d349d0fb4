package weight

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xtding233/techdraw/internal/catalog"
	"github.com/xtding233/techdraw/internal/condition"
)

type fakeCtx struct {
	facts  map[string]bool
	items  map[string]bool
	groups map[string]int
	tiers  map[int]int
	bonus  map[string]float64
}

func (f fakeCtx) Fact(k string) bool { return f.facts[k] }
func (f fakeCtx) Obtained(id string) bool { return f.items[id] }
func (f fakeCtx) ObtainedInGroup(g string) int { return f.groups[g] }
func (f fakeCtx) ObtainedAtTier(t int) int { return f.tiers[t] }
func (f fakeCtx) CategoryBonus(c string) float64 { return f.bonus[c] }

func approx(t *testing.T, want, got float64) {
	t.Helper()
	if math.Abs(want-got) > 1e-9 {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestFactorChain(t *testing.T) {
	it := &catalog.Item{ID: "a", Category: "particles", Tier: 4, Weight: 100, Modifiers: []catalog.Modifier{
		catalog.Factor{Factor: 2, Condition: condition.Atom{Key: "civic:civic_technocracy", Want: true}},
		catalog.Factor{Factor: 0.5, Condition: condition.Atom{Key: "ethic:ethic_spiritualist", Want: true}},
		catalog.UnknownScript{Name: "nope"},
	}}
	e := New(DefaultParams())
	ctx := fakeCtx{facts: map[string]bool{"civic:civic_technocracy": true}, bonus: map[string]float64{"particles": 0.1}}
	approx(t, 220, e.Compute(it, ctx, Input{}))
}

func TestSkippedOverridesEverything(t *testing.T) {
	it := &catalog.Item{ID: "a", Tier: 1, Weight: 100, Modifiers: []catalog.Modifier{
		catalog.ScriptCall{Script: catalog.ScriptEnvironment},
	}}
	e := New(DefaultParams())
	ctx := fakeCtx{facts: map[string]bool{"environment:shroud_breach": true}, tiers: map[int]int{3: 4}}
	assert.Greater(t, e.Compute(it, ctx, Input{}), 0.0)
	assert.Equal(t, 0.0, e.Compute(it, ctx, Input{Skipped: true}))
}

func TestDiminishingReturns(t *testing.T) {
	it := &catalog.Item{ID: "lasers_3", Group: "lasers", Tier: 4, Weight: 100, Modifiers: []catalog.Modifier{
		catalog.ScriptCall{Script: catalog.ScriptDiminishing},
	}}
	e := New(DefaultParams())
	ctx := fakeCtx{groups: map[string]int{"lasers": 2}, items: map[string]bool{}}
	approx(t, 100*0.85*0.85, e.Compute(it, ctx, Input{}))

	ctx.items["tech_repeatable_research_focus"] = true
	approx(t, 100, e.Compute(it, ctx, Input{}))

	delete(ctx.items, "tech_repeatable_research_focus")
	approx(t, 100, e.Compute(it, ctx, Input{Hypothetical: "tech_repeatable_research_focus"}))
}

func TestEnvironmentWaterfallIsExclusive(t *testing.T) {
	it := &catalog.Item{ID: "psi", Tier: 5, Weight: 10, Modifiers: []catalog.Modifier{
		catalog.ScriptCall{Script: catalog.ScriptEnvironment},
	}}
	e := New(DefaultParams())

	ctx := fakeCtx{facts: map[string]bool{"environment:anomaly": true}}
	approx(t, 12, e.Compute(it, ctx, Input{}))

	ctx.facts["environment:research_station"] = true
	approx(t, 15, e.Compute(it, ctx, Input{}))

	ctx.facts["environment:shroud_breach"] = true
	approx(t, 100000, e.Compute(it, ctx, Input{}))

	approx(t, 10, e.Compute(it, fakeCtx{}, Input{}))
}

func TestRareBonus(t *testing.T) {
	rare := &catalog.Item{ID: "r", Tier: 5, Weight: 10, Rare: true, Modifiers: []catalog.Modifier{
		catalog.ScriptCall{Script: catalog.ScriptRareTech},
	}}
	common := &catalog.Item{ID: "c", Tier: 5, Weight: 10, Modifiers: rare.Modifiers}
	e := New(DefaultParams())
	ctx := fakeCtx{facts: map[string]bool{"perk:ap_technological_ascendancy": true}}
	approx(t, 15, e.Compute(rare, ctx, Input{}))
	approx(t, 10, e.Compute(common, ctx, Input{}))
}

func TestMilestoneBand(t *testing.T) {
	e := New(DefaultParams())
	ctx := fakeCtx{tiers: map[int]int{3: 2, 5: 7, 6: 9}}
	low := &catalog.Item{ID: "low", Tier: 1, Weight: 50}
	approx(t, 50*1.4, e.Compute(low, ctx, Input{}))

	mid := &catalog.Item{ID: "mid", Tier: 3, Weight: 50}
	approx(t, 50*(1+0.2*7), e.Compute(mid, ctx, Input{}))

	high := &catalog.Item{ID: "high", Tier: 4, Weight: 50}
	approx(t, 50, e.Compute(high, ctx, Input{}))

	zero := &catalog.Item{ID: "start", Tier: 0, Weight: 50}
	approx(t, 50, e.Compute(zero, ctx, Input{}))
}

func TestSwapOverridesCategoryAndScales(t *testing.T) {
	it := &catalog.Item{ID: "g", Category: "biology", Tier: 4, Weight: 40}
	swap := &catalog.Swap{Name: "hive_g", Category: "new_worlds", WeightFactor: 1.5}
	e := New(DefaultParams())
	ctx := fakeCtx{bonus: map[string]float64{"biology": 1, "new_worlds": 0.5}}
	approx(t, 80, e.Compute(it, ctx, Input{}))
	approx(t, 40*1.5*1.5, e.Compute(it, ctx, Input{Swap: swap}))
}

func TestNeverNegative(t *testing.T) {
	it := &catalog.Item{ID: "n", Tier: 4, Weight: 10, Modifiers: []catalog.Modifier{
		catalog.ScriptCall{Script: catalog.ScriptEnvironment},
	}}
	p := DefaultParams()
	p.Environment = []EnvironmentTier{{Fact: "bad", Delta: -3}}
	e := New(p)
	assert.Equal(t, 0.0, e.Compute(it, fakeCtx{facts: map[string]bool{"bad": true}}, Input{}))
}
