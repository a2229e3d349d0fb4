package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreFailClosed(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Get("ethic:ethic_militarist"))

	var nilStore *Store
	assert.False(t, nilStore.Get("anything"))
}

func TestStoreSetReportsChange(t *testing.T) {
	s := NewStore()
	require.True(t, s.Set("civic:civic_technocracy", true))
	require.False(t, s.Set("civic:civic_technocracy", true))
	require.True(t, s.Set("civic:civic_technocracy", false))
	require.False(t, s.Set("civic:civic_technocracy", false))
	assert.Equal(t, 0, s.Len())
}

func TestClearCategory(t *testing.T) {
	s := NewStore()
	s.Set(Key("ethic", "ethic_pacifist"), true)
	s.Set(Key("ethic", "ethic_xenophile"), true)
	s.Set(Key("civic", "civic_technocracy"), true)
	s.Set("ethical", true)

	n := s.ClearCategory("ethic")
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"civic:civic_technocracy", "ethical"}, s.Keys())
}

func TestApplyThresholds(t *testing.T) {
	rules := []ThresholdRule{
		{Scalar: "colonies", AtLeast: 5, Fact: "colonies:5"},
		{Scalar: "colonies", AtLeast: 10, Fact: "colonies:10"},
		{Scalar: "year", AtLeast: 2300, Fact: "late_game"},
		{Scalar: "colonies", AtLeast: 30, Fact: "late_game"},
	}
	sc := NewScalars()
	st := NewStore()

	sc.Set("colonies", 6)
	assert.Equal(t, 1, ApplyThresholds(rules, sc, st))
	assert.True(t, st.Get("colonies:5"))
	assert.False(t, st.Get("colonies:10"))
	assert.False(t, st.Get("late_game"))

	sc.Set("colonies", 31)
	ApplyThresholds(rules, sc, st)
	assert.True(t, st.Get("late_game"))

	sc.Set("colonies", 2)
	ApplyThresholds(rules, sc, st)
	assert.False(t, st.Get("colonies:5"))
	assert.False(t, st.Get("late_game"))
}
