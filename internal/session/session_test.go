package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xtding233/techdraw/internal/cascade"
	"github.com/xtding233/techdraw/internal/catalog"
	"github.com/xtding233/techdraw/internal/config"
	"github.com/xtding233/techdraw/internal/save"
)

const techs = `{
  "tech_root": {"area": "physics", "category": "particles", "tier": 0, "weight": 1, "permanent": true},
  "tech_lasers_1": {"area": "physics", "category": "particles", "tier": 1, "weight": 50, "prerequisites": {"has_technology": "tech_root"}},
  "tech_magnetism": {"area": "physics", "category": "field_manipulation", "tier": 1, "weight": 30, "icon": "gfx/magnetism.dds"},
  "tech_genome_mapping": {"area": "society", "category": "biology", "tier": 1, "weight": 40},
  "tech_ai": {"area": "physics", "category": "computing", "tier": 1, "weight": 10,
    "potential": {"NOT": {"ethic": "ethic_spiritualist"}}},
  "tech_hydro": {"area": "engineering", "category": "industry", "tier": 1, "weight": 20}
}`

func testParams() config.Params {
	p := config.Normalize(config.RawConfig{}, config.Overrides{})
	p.Probability.Seed = 3
	return p
}

func newSession(t *testing.T) *Session {
	t.Helper()
	cat, err := catalog.Parse([]byte(techs), nil)
	require.NoError(t, err)
	s := New(cat, testParams(), nil, nil)
	t.Cleanup(s.Close)
	return s
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func view(t *testing.T, s *Session, id string) ItemView {
	t.Helper()
	for _, v := range s.Items() {
		if v.ID == id {
			return v
		}
	}
	t.Fatalf("no item %s", id)
	return ItemView{}
}

func TestSessionAppliesLatestChances(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	s := newSession(t)
	defer s.Close()
	ctx := waitCtx(t)

	require.NoError(t, s.Wait(ctx))
	// Three options per area and at most three items per area: all certain.
	assert.Equal(t, 100.0, view(t, s, "tech_lasers_1").HitChance)
	assert.Equal(t, 100.0, view(t, s, "tech_genome_mapping").HitChance)
	assert.Zero(t, view(t, s, "tech_root").HitChance)

	require.NoError(t, s.SetScalar(ctx, "colonies", 3))
	require.NoError(t, s.ToggleSkipped(ctx, "tech_magnetism"))
	require.NoError(t, s.ToggleObtained(ctx, "tech_hydro"))
	require.NoError(t, s.Wait(ctx))

	assert.Zero(t, view(t, s, "tech_magnetism").HitChance)
	assert.False(t, view(t, s, "tech_lasers_1").Provisional)
	assert.Equal(t, uint64(4), s.Generation())
}

func TestSessionActionErrors(t *testing.T) {
	s := newSession(t)
	ctx := waitCtx(t)
	assert.ErrorIs(t, s.ToggleObtained(ctx, "tech_root"), cascade.ErrPermanent)
	assert.ErrorIs(t, s.ToggleSkipped(ctx, "nope"), cascade.ErrUnknownItem)
	assert.ErrorIs(t, s.SetObtained(ctx, "nope", true), cascade.ErrUnknownItem)
	assert.Equal(t, "gfx/magnetism.dds", view(t, s, "tech_magnetism").Icon)

	s.Close()
	assert.ErrorIs(t, s.Reset(ctx), ErrClosed)
}

func saveArchive(t *testing.T, gamestate string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(save.GamestateMember)
	require.NoError(t, err)
	_, err = w.Write([]byte(gamestate))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const gamestate = `date="2230.01.01"
player={ { name="p" country=0 } }
country={
	0={
		ethos={ ethic="ethic_fanatic_spiritualist" }
		tech_status={ technology="tech_lasers_1" technology="tech_removed_long_ago" }
		owned_planets={ 1 2 }
	}
}
`

func TestSessionImport(t *testing.T) {
	s := newSession(t)
	ctx := waitCtx(t)

	b, err := s.Import(ctx, saveArchive(t, gamestate))
	require.NoError(t, err)
	assert.True(t, b.Facts["ethic:ethic_spiritualist"])

	assert.True(t, view(t, s, "tech_lasers_1").Obtained)
	assert.False(t, view(t, s, "tech_ai").Available)

	// Marking an imported item obtained again must not flip it back.
	require.NoError(t, s.SetObtained(ctx, "tech_lasers_1", true))
	assert.True(t, view(t, s, "tech_lasers_1").Obtained)
	assert.Contains(t, s.Facts(), "ethic:ethic_fanatic_spiritualist")
	assert.Contains(t, s.Sourced(), "colonies")

	found := false
	for _, d := range s.Diagnostics() {
		if d.Source == "projector" && strings.Contains(d.Message, "tech_removed_long_ago") {
			found = true
		}
	}
	assert.True(t, found, "unknown technology should be reported")

	require.NoError(t, s.Reset(ctx))
	assert.Empty(t, s.Sourced())
	assert.False(t, view(t, s, "tech_lasers_1").Obtained)
}

func TestSessionImportFatal(t *testing.T) {
	s := newSession(t)
	ctx := waitCtx(t)
	gen := s.Generation()

	_, err := s.Import(ctx, []byte("garbage"))
	assert.True(t, errors.Is(err, save.ErrMalformedArchive))
	_, err = s.Import(ctx, saveArchive(t, "country={ }\n"))
	assert.ErrorIs(t, err, save.ErrNoPlayer)

	assert.Equal(t, gen, s.Generation(), "failed imports leave the state alone")
	assert.NotEmpty(t, s.Diagnostics())
}

func TestManager(t *testing.T) {
	cat, err := catalog.Parse([]byte(techs), nil)
	require.NoError(t, err)
	m := NewManager(cat, testParams(), nil, nil)
	defer m.Close()

	s := m.Open()
	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownSession)

	require.NoError(t, m.CloseSession(s.ID))
	assert.ErrorIs(t, m.CloseSession(s.ID), ErrUnknownSession)
}
