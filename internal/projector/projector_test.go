package projector

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/techdraw/internal/cascade"
	"github.com/xtding233/techdraw/internal/diag"
	"github.com/xtding233/techdraw/internal/facts"
	"github.com/xtding233/techdraw/internal/save"
)

func sampleExtraction() *save.Extraction {
	return &save.Extraction{
		Ethics:       []string{"ethic_fanatic_materialist", "ethic_xenophil"},
		Authority:    "auth_machine_intelligence",
		Civics:       []string{"civic_technocracy"},
		Origin:       "origin_default",
		Perks:        []string{"ap_technological_ascendancy"},
		Traits:       []string{"trait_intelligent", "trait_made_up_entirely"},
		Technologies: []string{"tech_lasers_0", "tech_genome_mapping"},
		Leaders: []save.Leader{
			{ID: "7", Class: "scientist", Traits: []string{"leader_trait_expertise_particles"}},
			{ID: "8", Class: "admiral", Traits: []string{"leader_trait_expertise_biology"}},
		},
		Colonies: 6,
		Year:     2240,
	}
}

func TestProject(t *testing.T) {
	b := Project(sampleExtraction(), DefaultTables())

	for _, k := range []string{
		"ethic:ethic_materialist", "ethic:ethic_fanatic_materialist",
		"authority:auth_machine_intelligence", "empire:machine", "empire:gestalt",
		"civic:civic_technocracy", "origin:origin_default",
		"perk:ap_technological_ascendancy", "trait:trait_intelligent",
	} {
		assert.True(t, b.Facts[k], k)
	}
	assert.Len(t, b.Facts, 9)

	assert.Equal(t, []string{"tech_lasers_1", "tech_genome_mapping"}, b.Obtained)
	assert.Equal(t, map[string]float64{"colonies": 6, "year": 2240}, b.Scalars)
	if diff := cmp.Diff(map[string]cascade.RosterSlot{
		"leader:7:leader_trait_expertise_particles": {Category: "particles", Bonus: 0.25},
	}, b.Roster); diff != "" {
		t.Fatalf("roster (-want +got):\n%s", diff)
	}

	assert.Contains(t, b.ClearCategories, "ethic")
	assert.Contains(t, b.ClearCategories, "empire")
	assert.Contains(t, b.Sourced, "colonies")
	assert.Contains(t, b.Sourced, "empire:gestalt")
}

func TestUnknownValuesAreSkippedWithHint(t *testing.T) {
	b := Project(sampleExtraction(), DefaultTables())

	var infos []string
	for _, e := range b.Diagnostics {
		if e.Level == diag.Info {
			infos = append(infos, e.Message)
		}
	}
	require.Len(t, infos, 2)
	joined := strings.Join(infos, "\n")
	assert.Contains(t, joined, `did you mean "ethic_xenophile"`)
	assert.Contains(t, joined, `"trait_made_up_entirely" skipped`)
	assert.NotContains(t, joined, `trait_made_up_entirely" skipped (did you mean`)
}

func TestApplyClearsStaleCategories(t *testing.T) {
	st, sc := facts.NewStore(), facts.NewScalars()
	st.Set("ethic:ethic_pacifist", true)
	st.Set("empire:hive", true)
	st.Set("custom:keep", true)

	Apply(Project(sampleExtraction(), DefaultTables()), st, sc)

	assert.False(t, st.Get("ethic:ethic_pacifist"))
	assert.False(t, st.Get("empire:hive"))
	assert.True(t, st.Get("empire:machine"))
	assert.True(t, st.Get("custom:keep"))
	assert.Equal(t, 6.0, sc.Get("colonies"))
}

func TestNoTechnologiesLeavesObtainedAlone(t *testing.T) {
	ex := sampleExtraction()
	ex.Technologies = nil
	b := Project(ex, DefaultTables())
	assert.Nil(t, b.Obtained)
	assert.Nil(t, b.Source().Obtained)

	warned := false
	for _, e := range b.Diagnostics {
		warned = warned || e.Level == diag.Warning
	}
	assert.True(t, warned)
}

func TestCustomTables(t *testing.T) {
	tb, err := LoadTables([]byte(`
facets:
  ethics:
    ethic_a: ["ethic:a", "mood:calm"]
    ethic_b: ["ethic:a"]
`))
	require.NoError(t, err)
	b := Project(&save.Extraction{Ethics: []string{"ethic_b"}}, tb)
	assert.Equal(t, map[string]bool{"ethic:a": true}, b.Facts)
	assert.Equal(t, []string{"ethic", "mood"}, b.ClearCategories)

	_, err = LoadTables([]byte("facets: ["))
	assert.Error(t, err)
}
