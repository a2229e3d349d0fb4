package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

const defaultYAML = `
version: "1"
engine:
  tier_gate: 6
  milestone: { min_tier: 1, max_tier: 3, step: 0.2 }
probability:
  batch: 500
  epsilon: 1.0
  max_iterations: 200000
draws:
  base: 3
  per_area: { physics: 3 }
scalars:
  - { scalar: colonies, at_least: 5, fact: "colonies:5" }
`

func TestProfileOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "default.yaml"), defaultYAML)
	writeFile(t, filepath.Join(dir, "profiles", "quick.yaml"), `
version: "1-quick"
engine:
  milestone: { step: 0.5 }
probability:
  epsilon: 2.5
draws:
  per_area: { society: 4 }
`)

	l := NewLoader(dir)
	raw, p, err := l.Resolve("quick", Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "1-quick", raw.Version)
	assert.Equal(t, 0.5, p.Cascade.Weight.MilestoneStep)
	assert.Equal(t, 1, p.Cascade.Weight.MilestoneMinTier, "untouched keys keep the default")
	assert.Equal(t, 2.5, p.Probability.Epsilon)
	assert.Equal(t, 500, p.Probability.Batch)
	assert.Equal(t, map[string]int{"physics": 3, "society": 4}, p.Cascade.Draws.PerArea)
	require.Len(t, p.Cascade.Thresholds, 1)

	_, def, err := l.Resolve("", Overrides{})
	require.NoError(t, err)
	assert.Equal(t, 0.2, def.Cascade.Weight.MilestoneStep)
}

func TestMissingFilesFallBackToDefaults(t *testing.T) {
	_, p, err := NewLoader(t.TempDir()).Resolve("nope", Overrides{})
	require.NoError(t, err)
	assert.Equal(t, 6, p.Cascade.TierGate)
	assert.Equal(t, 3, p.Cascade.Draws.Base)
	assert.Equal(t, 200_000, p.Probability.MaxIterations)
}

func TestOverridesWin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "default.yaml"), defaultYAML)
	seed := uint64(42)
	gate := 2
	_, p, err := NewLoader(dir).Resolve("", Overrides{Seed: &seed, TierGate: &gate})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), p.Probability.Seed)
	assert.Equal(t, 2, p.Cascade.TierGate)
}

func TestLoaderCachesUntilInvalidated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.yaml")
	writeFile(t, path, "version: a\n")
	l := NewLoader(dir)

	raw, err := l.LoadMerged("")
	require.NoError(t, err)
	assert.Equal(t, "a", raw.Version)

	writeFile(t, path, "version: b\n")
	raw, _ = l.LoadMerged("")
	assert.Equal(t, "a", raw.Version)

	l.Invalidate()
	raw, _ = l.LoadMerged("")
	assert.Equal(t, "b", raw.Version)
}

func TestValidateRawCollectsAll(t *testing.T) {
	neg, zero := -1, 0
	eps := 150.0
	err := ValidateRaw(RawConfig{
		Engine:      EngineConfig{TierGate: &neg},
		Probability: ProbabilityConfig{Batch: &zero, Epsilon: &eps},
		Draws:       &DrawsConfig{Base: &neg},
	})
	require.Error(t, err)
	for _, want := range []string{"engine.tier_gate", "probability.batch", "probability.epsilon", "draws.base"} {
		assert.Contains(t, err.Error(), want)
	}
	assert.NoError(t, ValidateRaw(RawConfig{}))
}

func TestResolveRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "default.yaml"), "probability: { stable: 0 }\n")
	_, _, err := NewLoader(dir).Resolve("", Overrides{})
	assert.ErrorContains(t, err, "probability.stable")
}

func TestBadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "default.yaml"), "engine: [")
	_, err := NewLoader(dir).LoadMerged("")
	assert.Error(t, err)
}

func TestShippedConfigs(t *testing.T) {
	for _, profile := range []string{"", "quick", "strict"} {
		_, _, err := NewLoader(filepath.Join("..", "..", "configs")).Resolve(profile, Overrides{})
		assert.NoError(t, err, profile)
	}
}

func TestParseEnv(t *testing.T) {
	t.Setenv("TECHDRAW_PROFILE", "quick")
	t.Setenv("TECHDRAW_SEED", "9")
	e, err := ParseEnv()
	require.NoError(t, err)
	assert.Equal(t, "configs", e.Dir)
	assert.Equal(t, "quick", e.Profile)
	require.NotNil(t, e.Overrides().Seed)
	assert.Equal(t, uint64(9), *e.Overrides().Seed)
}
