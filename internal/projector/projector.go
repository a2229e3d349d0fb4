// Package projector maps raw save values onto fact and scalar keys using
// static lookup tables.
package projector

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"

	"github.com/xtding233/techdraw/internal/cascade"
	"github.com/xtding233/techdraw/internal/diag"
	"github.com/xtding233/techdraw/internal/facts"
	"github.com/xtding233/techdraw/internal/save"
)

//go:embed tables.yaml
var defaultTables []byte

const source = "projector"

// Facet names used as keys under "facets" in the tables.
const (
	FacetEthics    = "ethics"
	FacetAuthority = "authority"
	FacetCivics    = "civics"
	FacetOrigin    = "origin"
	FacetPerks     = "perks"
	FacetTraits    = "traits"
)

// Expertise is what one leader trait contributes to the category bonus.
type Expertise struct {
	Category string  `yaml:"category"`
	Bonus    float64 `yaml:"bonus"`
}

type LeaderTable struct {
	Classes   []string             `yaml:"classes"`
	Expertise map[string]Expertise `yaml:"expertise"`
}

// Tables are the lookup tables. Facets maps facet -> raw value -> fact keys.
type Tables struct {
	Facets       map[string]map[string][]string `yaml:"facets"`
	Technologies map[string]string              `yaml:"technologies"`
	Leaders      LeaderTable                    `yaml:"leaders"`

	clear map[string][]string
}

// LoadTables parses YAML tables.
func LoadTables(b []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("projector tables: %w", err)
	}
	t.clear = make(map[string][]string, len(t.Facets))
	for facet, values := range t.Facets {
		seen := map[string]bool{}
		for _, keys := range values {
			for _, k := range keys {
				seen[facts.Category(k)] = true
			}
		}
		cats := make([]string, 0, len(seen))
		for c := range seen {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		t.clear[facet] = cats
	}
	return &t, nil
}

// DefaultTables returns the embedded tables.
func DefaultTables() *Tables {
	t, err := LoadTables(defaultTables)
	if err != nil {
		panic(err)
	}
	return t
}

// Bundle is the projected state plus provenance.
type Bundle struct {
	ClearCategories []string
	Facts           map[string]bool
	Scalars         map[string]float64
	Obtained        []string
	Roster          map[string]cascade.RosterSlot

	// Sourced lists every fact and scalar key that came from the save.
	Sourced     []string
	Diagnostics []diag.Entry
}

// Source converts the bundle for cascade.State.ApplySourceState.
func (b *Bundle) Source() cascade.SourceState {
	return cascade.SourceState{
		ClearCategories: b.ClearCategories,
		Facts:           b.Facts,
		Scalars:         b.Scalars,
		Obtained:        b.Obtained,
		Roster:          b.Roster,
	}
}

// Project maps ex through t. It never fails; unknown values are skipped
// with an info diagnostic.
func Project(ex *save.Extraction, t *Tables) *Bundle {
	b := &Bundle{
		Facts:   make(map[string]bool),
		Scalars: make(map[string]float64),
		Roster:  make(map[string]cascade.RosterSlot),
	}
	var log diag.Log

	raw := map[string][]string{
		FacetEthics:    ex.Ethics,
		FacetAuthority: nonEmpty(ex.Authority),
		FacetCivics:    ex.Civics,
		FacetOrigin:    nonEmpty(ex.Origin),
		FacetPerks:     ex.Perks,
		FacetTraits:    ex.Traits,
	}
	facets := make([]string, 0, len(t.Facets))
	for f := range t.Facets {
		facets = append(facets, f)
	}
	sort.Strings(facets)

	wipe := map[string]bool{}
	for _, facet := range facets {
		table := t.Facets[facet]
		for _, c := range t.clear[facet] {
			wipe[c] = true
		}
		for _, v := range raw[facet] {
			keys, ok := table[v]
			if !ok {
				unknown(&log, facet, v, table)
				continue
			}
			for _, k := range keys {
				b.Facts[k] = true
			}
		}
	}
	for c := range wipe {
		b.ClearCategories = append(b.ClearCategories, c)
	}
	sort.Strings(b.ClearCategories)

	b.Scalars["colonies"] = float64(ex.Colonies)
	if ex.Year > 0 {
		b.Scalars["year"] = float64(ex.Year)
	}

	if len(ex.Technologies) > 0 {
		b.Obtained = make([]string, 0, len(ex.Technologies))
		for _, id := range ex.Technologies {
			if to, ok := t.Technologies[id]; ok {
				id = to
			}
			b.Obtained = append(b.Obtained, id)
		}
	} else {
		log.Warnf(source, "save lists no technologies; obtained items left unchanged")
	}

	classes := map[string]bool{}
	for _, c := range t.Leaders.Classes {
		classes[c] = true
	}
	for _, l := range ex.Leaders {
		if !classes[l.Class] {
			continue
		}
		for _, tr := range l.Traits {
			if e, ok := t.Leaders.Expertise[tr]; ok {
				b.Roster["leader:"+l.ID+":"+tr] = cascade.RosterSlot{Category: e.Category, Bonus: e.Bonus}
			}
		}
	}

	for k := range b.Facts {
		b.Sourced = append(b.Sourced, k)
	}
	for k := range b.Scalars {
		b.Sourced = append(b.Sourced, k)
	}
	sort.Strings(b.Sourced)

	log.Successf(source, "projected %d facts, %d scalars, %d roster slots", len(b.Facts), len(b.Scalars), len(b.Roster))
	b.Diagnostics = log.Entries()
	return b
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

// hintLimit mirrors how forgiving a suggestion may be for a key of length n.
func hintLimit(n int) int {
	switch {
	case n <= 4:
		return 1
	case n <= 8:
		return 2
	default:
		return 3
	}
}

func unknown(log *diag.Log, facet, v string, table map[string][]string) {
	best, bestDist := "", -1
	for k := range table {
		d := levenshtein.ComputeDistance(v, k)
		if d > hintLimit(len(k)) {
			continue
		}
		if bestDist < 0 || d < bestDist || (d == bestDist && k < best) {
			best, bestDist = k, d
		}
	}
	if best != "" {
		log.Infof(source, "unknown %s value %q skipped (did you mean %q?)", facet, v, best)
		return
	}
	log.Infof(source, "unknown %s value %q skipped", facet, v)
}

// Apply writes b into st and sc. Every touched category is cleared first
// so values from an earlier import do not linger.
func Apply(b *Bundle, st *facts.Store, sc *facts.Scalars) {
	for _, c := range b.ClearCategories {
		st.ClearCategory(c)
	}
	for k, v := range b.Facts {
		st.Set(k, v)
	}
	for k, v := range b.Scalars {
		sc.Set(k, v)
	}
}
