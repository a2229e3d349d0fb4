// Package cascade owns the mutable research state and the ordered
// recompute pipeline that keeps it consistent.
//
// Recompute runs nine steps in a fixed order:
//
//  1. roster contributions -> category bonus
//  2. obtained counts per area/tier, per tier, per group
//  3. availability trees -> Available
//  4. facts derived from availability
//  5. tier gate + prerequisite trees -> PrereqsMet
//  6. swap triggers -> display overrides
//  7. weights
//  8. opportunity-cost deltas
//  9. dispatch of the weight snapshot for estimation
//
// Everything here is synchronous and deterministic; only step 9 hands work
// to another goroutine, through the Dispatcher.
package cascade

import (
	"errors"
	"sort"

	"github.com/xtding233/techdraw/internal/catalog"
	"github.com/xtding233/techdraw/internal/draws"
	"github.com/xtding233/techdraw/internal/facts"
	"github.com/xtding233/techdraw/internal/probability"
	"github.com/xtding233/techdraw/internal/weight"
)

var (
	ErrUnknownItem = errors.New("cascade: unknown item")
	ErrPermanent   = errors.New("cascade: item is permanent")
)

// ItemState is the mutable per-item record. Created once per catalog item.
type ItemState struct {
	ID               string
	Available        bool
	PrereqsMet       bool
	Obtained         bool
	Permanent        bool
	SkippedLastRound bool

	CurrentWeight float64
	DeltaWeight   float64
	HitChance     float64

	// DisplayName is the active swap's name, empty when no swap applies.
	DisplayName string
	swap        int
}

// Owned reports whether the item counts as obtained.
func (s *ItemState) Owned() bool { return s.Obtained || s.Permanent }

// DerivedFact is asserted while any of the listed items is available.
type DerivedFact struct {
	Fact         string   `yaml:"fact"`
	AnyAvailable []string `yaml:"any_available"`
}

// RosterSlot is one contributor to the category bonus, e.g. a scientist's expertise.
type RosterSlot struct {
	Category string  `yaml:"category" json:"category"`
	Bonus    float64 `yaml:"bonus" json:"bonus"`
}

// Params are the tunables the cascade needs besides the catalog.
type Params struct {
	// TierGate is how many items of tier T-1 in the same area unlock tier T (T > 1).
	TierGate   int
	Weight     weight.Params
	Draws      draws.Policy
	Thresholds []facts.ThresholdRule
	Derived    []DerivedFact
}

func DefaultParams() Params {
	return Params{
		TierGate: 6,
		Weight:   weight.DefaultParams(),
		Draws:    draws.DefaultPolicy(),
	}
}

// Dispatcher receives the step 9 snapshot. Implementations must not block.
type Dispatcher interface {
	Dispatch(probability.Snapshot)
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(probability.Snapshot)

func (f DispatchFunc) Dispatch(s probability.Snapshot) { f(s) }

// Stats counts the writes each step made during the last Recompute.
type Stats struct {
	Changed [9]int
}

// State is everything the cascade reads and writes.
type State struct {
	Catalog *catalog.Catalog
	Params  Params
	Items   []*ItemState
	Facts   *facts.Store
	Scalars *facts.Scalars

	// Roster is keyed by slot name.
	Roster map[string]RosterSlot
	// Bonuses is step 1's output: category -> bonus.
	Bonuses map[string]float64

	areaTier  map[string][]int
	tier      []int
	group     map[string]int
	byID      map[string]*ItemState
	engine    *weight.Engine
	dispatch  Dispatcher
	lastGen   uint64
	LastStats Stats
}

// New creates the state for a loaded catalog. d may be nil.
func New(cat *catalog.Catalog, p Params, d Dispatcher) *State {
	s := &State{
		Catalog:       cat,
		Params:        p,
		Facts:         facts.NewStore(),
		Scalars:       facts.NewScalars(),
		Roster:        make(map[string]RosterSlot),
		Bonuses:       make(map[string]float64),
		byID:          make(map[string]*ItemState, cat.Len()),
		engine:        weight.New(p.Weight),
		dispatch:      d,
	}
	s.Items = make([]*ItemState, cat.Len())
	for i, it := range cat.Items {
		st := &ItemState{ID: it.ID, Permanent: it.Permanent, swap: -1}
		s.Items[i] = st
		s.byID[it.ID] = st
	}
	facts.ApplyThresholds(p.Thresholds, s.Scalars, s.Facts)
	return s
}

// Item returns the state for id.
func (s *State) Item(id string) (*ItemState, bool) {
	st, ok := s.byID[id]
	return st, ok
}

// Generation is the token of the most recent dispatch.
func (s *State) Generation() uint64 { return s.lastGen }

// condition.Env

func (s *State) Fact(key string) bool { return s.Facts.Get(key) }

func (s *State) Obtained(id string) bool {
	st, ok := s.byID[id]
	return ok && st.Owned()
}

// weight.Context

func (s *State) ObtainedInGroup(group string) int { return s.group[group] }

func (s *State) ObtainedAtTier(tier int) int {
	if tier < 0 || tier >= len(s.tier) {
		return 0
	}
	return s.tier[tier]
}

func (s *State) CategoryBonus(category string) float64 { return s.Bonuses[category] }

// ObtainedInArea counts obtained items at tier within area.
func (s *State) ObtainedInArea(area string, tier int) int {
	counts := s.areaTier[area]
	if tier < 0 || tier >= len(counts) {
		return 0
	}
	return counts[tier]
}

// Weights returns the current positive weights keyed by item id.
func (s *State) Weights() map[string]float64 {
	out := make(map[string]float64)
	for _, st := range s.Items {
		if st.CurrentWeight > 0 {
			out[st.ID] = st.CurrentWeight
		}
	}
	return out
}

// ObtainedIDs lists obtained (non-permanent) items in sorted order.
func (s *State) ObtainedIDs() []string {
	var out []string
	for _, st := range s.Items {
		if st.Obtained {
			out = append(out, st.ID)
		}
	}
	sort.Strings(out)
	return out
}
