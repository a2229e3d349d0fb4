package cascade

import (
	"sort"

	"github.com/xtding233/techdraw/internal/catalog"
	"github.com/xtding233/techdraw/internal/condition"
	"github.com/xtding233/techdraw/internal/probability"
	"github.com/xtding233/techdraw/internal/weight"
)

// Recompute runs the nine steps in order and returns s. Each step only
// writes a value when it differs from the stored one; LastStats records
// how many writes each step made.
func Recompute(s *State) *State {
	var st Stats
	st.Changed[0] = s.stepBonus()
	st.Changed[1] = s.stepCounts()
	st.Changed[2] = s.stepAvailability()
	st.Changed[3] = s.stepDerived()
	st.Changed[4] = s.stepPrereqs()
	st.Changed[5] = s.stepSwaps()
	st.Changed[6] = s.stepWeights()
	st.Changed[7] = s.stepDeltas()
	st.Changed[8] = s.stepDispatch()
	s.LastStats = st
	return s
}

func (s *State) stepBonus() int {
	// Sorted slots keep float sums reproducible.
	slots := make([]string, 0, len(s.Roster))
	for k := range s.Roster {
		slots = append(slots, k)
	}
	sort.Strings(slots)
	sum := make(map[string]float64)
	for _, k := range slots {
		slot := s.Roster[k]
		if slot.Category == "" {
			continue
		}
		sum[slot.Category] += slot.Bonus
	}
	n := 0
	for cat, v := range sum {
		if old, ok := s.Bonuses[cat]; !ok || old != v {
			s.Bonuses[cat] = v
			n++
		}
	}
	for cat := range s.Bonuses {
		if _, ok := sum[cat]; !ok {
			delete(s.Bonuses, cat)
			n++
		}
	}
	return n
}

func (s *State) stepCounts() int {
	maxTier := s.Catalog.MaxTier()
	tier := make([]int, maxTier+1)
	areaTier := make(map[string][]int, len(s.Catalog.Areas))
	for _, a := range s.Catalog.Areas {
		areaTier[a] = make([]int, maxTier+1)
	}
	group := make(map[string]int)
	for i, it := range s.Catalog.Items {
		if !s.Items[i].Owned() {
			continue
		}
		tier[it.Tier]++
		areaTier[it.Area][it.Tier]++
		if it.Group != "" {
			group[it.Group]++
		}
	}

	n := diffInts(s.tier, tier)
	for a, counts := range areaTier {
		n += diffInts(s.areaTier[a], counts)
	}
	for g, c := range group {
		if s.group[g] != c {
			n++
		}
	}
	for g := range s.group {
		if _, ok := group[g]; !ok {
			n++
		}
	}
	s.tier, s.areaTier, s.group = tier, areaTier, group
	return n
}

func diffInts(old, cur []int) int {
	n := 0
	for i, v := range cur {
		if i >= len(old) || old[i] != v {
			n++
		}
	}
	return n
}

func (s *State) stepAvailability() int {
	n := 0
	for i, it := range s.Catalog.Items {
		v := condition.Evaluate(it.Availability, s, "")
		if st := s.Items[i]; st.Available != v {
			st.Available = v
			n++
		}
	}
	return n
}

func (s *State) stepDerived() int {
	n := 0
	for _, d := range s.Params.Derived {
		v := false
		for _, id := range d.AnyAvailable {
			if st, ok := s.byID[id]; ok && st.Available {
				v = true
				break
			}
		}
		if s.Facts.Set(d.Fact, v) {
			n++
		}
	}
	return n
}

// tierGate reports whether it's tier is open in its area.
func (s *State) tierGate(it *catalog.Item) bool {
	if it.Tier <= 1 {
		return true
	}
	return s.ObtainedInArea(it.Area, it.Tier-1) >= s.Params.TierGate
}

func (s *State) stepPrereqs() int {
	n := 0
	for i, it := range s.Catalog.Items {
		st := s.Items[i]
		v := st.Available && s.tierGate(it) && condition.Evaluate(it.Prerequisites, s, "")
		if st.PrereqsMet != v {
			st.PrereqsMet = v
			n++
		}
	}
	return n
}

func (s *State) stepSwaps() int {
	n := 0
	for i, it := range s.Catalog.Items {
		active := -1
		for j := range it.Swaps {
			if condition.Evaluate(it.Swaps[j].Trigger, s, "") {
				active = j
				break
			}
		}
		st := s.Items[i]
		if st.swap == active {
			continue
		}
		st.swap = active
		st.DisplayName = ""
		if active >= 0 {
			st.DisplayName = it.Swaps[active].Name
		}
		n++
	}
	return n
}

func (s *State) activeSwap(i int) *catalog.Swap {
	st := s.Items[i]
	if st.swap < 0 {
		return nil
	}
	return &s.Catalog.Items[i].Swaps[st.swap]
}

func (s *State) eligible(st *ItemState) bool {
	return st.PrereqsMet && !st.Obtained && !st.Permanent
}

func (s *State) stepWeights() int {
	n := 0
	for i, it := range s.Catalog.Items {
		st := s.Items[i]
		w := 0.0
		if s.eligible(st) {
			w = s.engine.Compute(it, s, weight.Input{Skipped: st.SkippedLastRound, Swap: s.activeSwap(i)})
		}
		if st.CurrentWeight != w {
			st.CurrentWeight = w
			n++
		}
	}
	return n
}

// hypotheticalWeight is u's weight if id were obtained. Only direct
// has_technology references see the assumption; counts and gates do not.
func (s *State) hypotheticalWeight(u int, id string) float64 {
	it, st := s.Catalog.Items[u], s.Items[u]
	if st.Owned() || st.SkippedLastRound || !st.Available || !s.tierGate(it) {
		return 0
	}
	if !condition.Evaluate(it.Prerequisites, s, id) {
		return 0
	}
	return s.engine.Compute(it, s, weight.Input{Swap: s.activeSwap(u), Hypothetical: id})
}

// milestoneGain is how much weight the low-tier band gains when one more
// item at tier is obtained.
func (s *State) milestoneGain(tier int) float64 {
	low := tier - 2
	if !s.engine.InMilestoneBand(low) {
		return 0
	}
	step := s.Params.Weight.MilestoneStep
	ratio := step / (1 + step*float64(s.ObtainedAtTier(tier)))
	gain := 0.0
	for i, it := range s.Catalog.Items {
		if it.Tier == low && s.Items[i].CurrentWeight > 0 {
			gain += s.Items[i].CurrentWeight * ratio
		}
	}
	return gain
}

func (s *State) stepDeltas() int {
	gains := make(map[int]float64)
	n := 0
	for i, it := range s.Catalog.Items {
		st := s.Items[i]
		d := 0.0
		if !st.Owned() {
			d = -st.CurrentWeight
			for _, uid := range s.Catalog.Unlocks[it.ID] {
				u, ok := s.Catalog.Item(uid)
				if !ok {
					continue
				}
				d += s.hypotheticalWeight(u.Index, it.ID) - s.Items[u.Index].CurrentWeight
			}
			g, ok := gains[it.Tier]
			if !ok {
				g = s.milestoneGain(it.Tier)
				gains[it.Tier] = g
			}
			d += g
		}
		if st.DeltaWeight != d {
			st.DeltaWeight = d
			n++
		}
	}
	return n
}

func (s *State) snapshot() probability.Snapshot {
	snap := probability.Snapshot{Generation: s.lastGen, Pools: make(map[string]probability.Pool)}
	for i, it := range s.Catalog.Items {
		w := s.Items[i].CurrentWeight
		if w <= 0 {
			continue
		}
		p := snap.Pools[it.Area]
		p.IDs = append(p.IDs, it.ID)
		p.Weights = append(p.Weights, w)
		snap.Pools[it.Area] = p
	}
	for area, p := range snap.Pools {
		p.Draws = s.Params.Draws.Count(area, s)
		snap.Pools[area] = p
	}
	return snap
}

func (s *State) stepDispatch() int {
	n := 0
	for _, st := range s.Items {
		if st.CurrentWeight == 0 && st.HitChance != 0 {
			st.HitChance = 0
			n++
		}
	}
	s.lastGen++
	if s.dispatch != nil {
		s.dispatch.Dispatch(s.snapshot())
	}
	return n
}
