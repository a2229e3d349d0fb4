package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcherDebouncesSaves(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	got := make(chan string, 8)
	w, err := New(dir, 50*time.Millisecond, func(_ context.Context, path string) {
		got <- path
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	path := filepath.Join(dir, "autosave.sav")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte(i)}, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case p := <-got:
		assert.Equal(t, path, p)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	select {
	case p := <-got:
		t.Fatalf("unexpected second report for %s", p)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	got := make(chan string, 8)
	w, err := New(dir, 20*time.Millisecond, func(_ context.Context, path string) {
		got <- path
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	sub := filepath.Join(dir, "unitedearth_12345")
	require.NoError(t, os.Mkdir(sub, 0o755))
	path := filepath.Join(sub, "2230.01.01.sav")
	// The new directory is added asynchronously; keep writing until seen.
	deadline := time.After(5 * time.Second)
	for {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		select {
		case p := <-got:
			assert.Equal(t, path, p)
			return
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("save in new directory not reported")
		}
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	_, err := Latest(dir)
	assert.ErrorIs(t, err, ErrNoSaves)

	old := filepath.Join(dir, "a", "old.sav")
	recent := filepath.Join(dir, "b", "recent.sav")
	require.NoError(t, os.MkdirAll(filepath.Dir(old), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(recent), 0o755))
	require.NoError(t, os.WriteFile(old, nil, 0o644))
	require.NoError(t, os.WriteFile(recent, nil, 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	got, err := Latest(dir)
	require.NoError(t, err)
	assert.Equal(t, recent, got)
}
