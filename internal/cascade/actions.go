package cascade

import (
	"fmt"
	"sort"

	"github.com/xtding233/techdraw/internal/facts"
	"github.com/xtding233/techdraw/internal/probability"
)

// The actions below are the only mutations callers may make. Every one of
// them ends with a full Recompute.

func (s *State) lookup(id string) (*ItemState, error) {
	st, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	if st.Permanent {
		return nil, fmt.Errorf("%w: %s", ErrPermanent, id)
	}
	return st, nil
}

func (s *State) ToggleObtained(id string) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}
	st.Obtained = !st.Obtained
	Recompute(s)
	return nil
}

// SetObtained marks id obtained or not, leaving an item already in that
// state untouched apart from the recompute.
func (s *State) SetObtained(id string, v bool) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}
	st.Obtained = v
	Recompute(s)
	return nil
}

func (s *State) ToggleSkipped(id string) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}
	st.SkippedLastRound = !st.SkippedLastRound
	Recompute(s)
	return nil
}

// SetScalar stores v and re-derives the threshold facts.
func (s *State) SetScalar(key string, v float64) {
	s.Scalars.Set(key, v)
	facts.ApplyThresholds(s.Params.Thresholds, s.Scalars, s.Facts)
	Recompute(s)
}

// SetCategoryBonusInput sets one roster slot. An empty category clears the slot.
func (s *State) SetCategoryBonusInput(slot, category string, bonus float64) {
	if category == "" {
		delete(s.Roster, slot)
	} else {
		s.Roster[slot] = RosterSlot{Category: category, Bonus: bonus}
	}
	Recompute(s)
}

// SourceState is a bundle of externally sourced state, typically a save.
type SourceState struct {
	// ClearCategories are fact categories wiped before Facts are applied.
	ClearCategories []string
	Facts           map[string]bool
	Scalars         map[string]float64
	// Obtained, when non-nil, replaces the obtained set.
	Obtained []string
	// Roster, when non-nil, replaces every roster slot.
	Roster map[string]RosterSlot
}

// ApplySourceState swaps src into the state. It returns the obtained ids
// that are not in the catalog; those are skipped.
func (s *State) ApplySourceState(src SourceState) []string {
	for _, cat := range src.ClearCategories {
		s.Facts.ClearCategory(cat)
	}
	for k, v := range src.Facts {
		s.Facts.Set(k, v)
	}
	for k, v := range src.Scalars {
		s.Scalars.Set(k, v)
	}

	var unknown []string
	if src.Obtained != nil {
		want := make(map[string]bool, len(src.Obtained))
		for _, id := range src.Obtained {
			if _, ok := s.byID[id]; !ok {
				unknown = append(unknown, id)
				continue
			}
			want[id] = true
		}
		for _, st := range s.Items {
			if !st.Permanent {
				st.Obtained = want[st.ID]
			}
		}
	}
	if src.Roster != nil {
		s.Roster = make(map[string]RosterSlot, len(src.Roster))
		for k, v := range src.Roster {
			s.Roster[k] = v
		}
	}

	facts.ApplyThresholds(s.Params.Thresholds, s.Scalars, s.Facts)
	Recompute(s)
	sort.Strings(unknown)
	return unknown
}

// Reset returns every item, fact, scalar and roster slot to its initial
// value. The generation keeps counting so in-flight results stay stale.
func (s *State) Reset() {
	s.Facts.Reset()
	s.Scalars.Reset()
	s.Roster = make(map[string]RosterSlot)
	for _, st := range s.Items {
		*st = ItemState{ID: st.ID, Permanent: st.Permanent, swap: -1}
	}
	facts.ApplyThresholds(s.Params.Thresholds, s.Scalars, s.Facts)
	Recompute(s)
}

// ApplyHitChances stores o's chances if o answers the latest dispatch.
// It reports whether anything was applied.
func (s *State) ApplyHitChances(o probability.Outcome) bool {
	if o.Err != nil || o.Generation != s.lastGen {
		return false
	}
	for _, st := range s.Items {
		if st.CurrentWeight > 0 {
			st.HitChance = o.Chances[st.ID]
		} else {
			st.HitChance = 0
		}
	}
	return true
}
