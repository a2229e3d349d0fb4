package probability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEstimateAreasKeepsPoolsApart(t *testing.T) {
	pools := map[string]Pool{
		"physics":     {IDs: []string{"p1", "p2", "p3"}, Weights: []float64{10, 10, 10}, Draws: 1},
		"society":     {IDs: []string{"s1"}, Weights: []float64{1}, Draws: 3},
		"engineering": {IDs: []string{"e1", "e2"}, Weights: []float64{5, 0}, Draws: 1},
	}
	res, err := EstimateAreas(context.Background(), pools, Options{Seed: 11})
	require.NoError(t, err)
	require.Len(t, res, 3)

	assert.Equal(t, 100.0, res["society"].Chances["s1"])
	assert.Equal(t, 0, res["society"].Iterations)
	assert.Equal(t, 100.0, res["engineering"].Chances["e1"])
	assert.Equal(t, 0.0, res["engineering"].Chances["e2"])

	sum := 0.0
	for _, c := range res["physics"].Chances {
		sum += c
	}
	assert.InDelta(t, 100, sum, 1e-6)
	assert.NotContains(t, res["physics"].Chances, "s1")
}

func TestEstimateAreasReproducibleWithSeed(t *testing.T) {
	pools := map[string]Pool{"physics": {IDs: []string{"a", "b", "c"}, Weights: []float64{3, 2, 1}, Draws: 1}}
	a, err := EstimateAreas(context.Background(), pools, Options{Seed: 5})
	require.NoError(t, err)
	b, err := EstimateAreas(context.Background(), pools, Options{Seed: 5})
	require.NoError(t, err)
	assert.Equal(t, a["physics"].Chances, b["physics"].Chances)
	assert.Equal(t, a["physics"].Iterations, b["physics"].Iterations)
}

func slowSnapshot(gen uint64) Snapshot {
	ids := make([]string, 200)
	ws := make([]float64, 200)
	for i := range ids {
		ids[i] = string(rune('A'+i%26)) + string(rune('a'+i/26))
		ws[i] = float64(i + 1)
	}
	return Snapshot{Generation: gen, Pools: map[string]Pool{"physics": {IDs: ids, Weights: ws, Draws: 3}}}
}

func TestWorkerSupersedesRunningJob(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Never converges, so the first job only ends through cancellation.
	w := NewWorker(Options{Batch: 50, Epsilon: 1e-12, Stable: 1000, MaxIterations: 1 << 30, Seed: 1})
	defer w.Close()

	first := w.Submit(slowSnapshot(1))
	second := w.Submit(Snapshot{Generation: 2, Pools: map[string]Pool{
		"society": {IDs: []string{"x"}, Weights: []float64{1}, Draws: 3},
	}})

	select {
	case o := <-first:
		assert.Equal(t, uint64(1), o.Generation)
		assert.ErrorIs(t, o.Err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("superseded job did not stop")
	}

	o := <-second
	require.NoError(t, o.Err)
	assert.Equal(t, uint64(2), o.Generation)
	assert.Equal(t, 100.0, o.Chances["x"])
	assert.NotEmpty(t, o.JobID)
}

func TestWorkerClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	w := NewWorker(Options{Batch: 50, Epsilon: 1e-12, Stable: 1000, MaxIterations: 1 << 30})
	running := w.Submit(slowSnapshot(1))
	w.Close()
	o := <-running
	assert.ErrorIs(t, o.Err, context.Canceled)

	after := <-w.Submit(slowSnapshot(2))
	assert.ErrorIs(t, after.Err, context.Canceled)
}
