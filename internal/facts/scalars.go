package facts

import "sort"

// ThresholdRule asserts Fact while Scalar >= AtLeast.
type ThresholdRule struct {
	Scalar  string  `yaml:"scalar"`
	AtLeast float64 `yaml:"at_least"`
	Fact    string  `yaml:"fact"`
}

// Scalars holds named numeric inputs. Missing scalars read as zero.
type Scalars struct {
	m map[string]float64
}

func NewScalars() *Scalars {
	return &Scalars{m: make(map[string]float64)}
}

func (s *Scalars) Get(key string) float64 {
	if s == nil {
		return 0
	}
	return s.m[key]
}

func (s *Scalars) Set(key string, v float64) bool {
	old, ok := s.m[key]
	s.m[key] = v
	return !ok || old != v
}

func (s *Scalars) Keys() []string {
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Scalars) Reset() {
	s.m = make(map[string]float64)
}

// ApplyThresholds sets every rule's fact from its scalar. Rules sharing a
// fact are OR-ed, so one crossed threshold keeps the fact asserted.
// It returns the number of facts whose value changed.
func ApplyThresholds(rules []ThresholdRule, sc *Scalars, st *Store) int {
	want := make(map[string]bool, len(rules))
	order := make([]string, 0, len(rules))
	for _, r := range rules {
		if _, seen := want[r.Fact]; !seen {
			order = append(order, r.Fact)
		}
		want[r.Fact] = want[r.Fact] || sc.Get(r.Scalar) >= r.AtLeast
	}
	changed := 0
	for _, f := range order {
		if st.Set(f, want[f]) {
			changed++
		}
	}
	return changed
}
