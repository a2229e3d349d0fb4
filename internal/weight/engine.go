// Package weight computes an item's relative draw weight.
//
// weight = base
//   - each modifier in chain order: factor entries multiply when their
//     condition holds, script entries multiply by 1+delta
//   - * (1 + category bonus) * active swap factor
//   - * (1 + step * obtained items two tiers higher), low-tier band only
//
// A skipped item always weighs exactly 0.
package weight

import (
	"math"

	"github.com/xtding233/techdraw/internal/catalog"
	"github.com/xtding233/techdraw/internal/condition"
)

// Context is the state a weight is computed against.
type Context interface {
	condition.Env
	// ObtainedInGroup counts obtained items sharing group.
	ObtainedInGroup(group string) int
	// ObtainedAtTier counts obtained items at tier across every area.
	ObtainedAtTier(tier int) int
	CategoryBonus(category string) float64
}

// Input carries the per-item switches that are not part of the shared context.
type Input struct {
	Skipped bool
	Swap    *catalog.Swap
	// Hypothetical is an item assumed obtained while evaluating conditions.
	Hypothetical string
}

type Engine struct {
	Params Params
}

func New(p Params) *Engine {
	return &Engine{Params: p}
}

// Compute returns the item's weight. The result is finite and >= 0.
func (e *Engine) Compute(it *catalog.Item, ctx Context, in Input) float64 {
	if in.Skipped {
		return 0
	}
	w := it.Weight
	for _, m := range it.Modifiers {
		switch mod := m.(type) {
		case catalog.Factor:
			if condition.Evaluate(mod.Condition, ctx, in.Hypothetical) {
				w *= 1 + (mod.Factor - 1)
			}
		case catalog.ScriptCall:
			w *= 1 + e.scriptDelta(mod.Script, it, ctx, in.Hypothetical)
		}
	}

	category := it.Category
	if in.Swap != nil {
		if in.Swap.Category != "" {
			category = in.Swap.Category
		}
		w *= in.Swap.WeightFactor
	}
	w *= 1 + ctx.CategoryBonus(category)
	w *= e.MilestoneFactor(it.Tier, ctx)

	if w < 0 || math.IsNaN(w) {
		return 0
	}
	if math.IsInf(w, 1) {
		return math.MaxFloat64
	}
	return w
}

// MilestoneFactor is the multiplier low-tier items get from obtained items
// two tiers higher.
func (e *Engine) MilestoneFactor(tier int, ctx Context) float64 {
	if !e.InMilestoneBand(tier) {
		return 1
	}
	return 1 + e.Params.MilestoneStep*float64(ctx.ObtainedAtTier(tier+2))
}

func (e *Engine) InMilestoneBand(tier int) bool {
	p := e.Params
	return p.MilestoneStep != 0 && tier >= p.MilestoneMinTier && tier <= p.MilestoneMaxTier
}
