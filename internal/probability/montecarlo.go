package probability

import (
	"context"
	"math"
	"time"
)

// Pool is one area's candidates. Draws never compete across pools.
type Pool struct {
	IDs     []string
	Weights []float64
	// Draws is how many distinct items are offered per round.
	Draws int
}

// Options controls convergence.
type Options struct {
	// Batch is the number of iterations between convergence checkpoints.
	Batch int
	// Epsilon is the largest per-item change, in percentage points, that
	// still counts as stable.
	Epsilon float64
	// Stable is how many consecutive stable checkpoints end the run.
	Stable int
	// MaxIterations is the hard cap.
	MaxIterations int
	// Seed makes runs reproducible; 0 seeds from crypto/rand.
	Seed uint64
}

func DefaultOptions() Options {
	return Options{
		Batch:         500,
		Epsilon:       1.0,
		Stable:        3,
		MaxIterations: 200_000,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.Batch <= 0 {
		o.Batch = d.Batch
	}
	if o.Epsilon <= 0 {
		o.Epsilon = d.Epsilon
	}
	if o.Stable <= 0 {
		o.Stable = d.Stable
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	return o
}

// Result reports hit chances in percent (0..100) per item id.
type Result struct {
	Chances    map[string]float64
	Iterations int
	Elapsed    time.Duration
	Converged  bool
}

// Estimate runs the Monte Carlo estimate for one pool. It is cancellable
// between checkpoints; on cancellation it returns ctx.Err().
func Estimate(ctx context.Context, pool Pool, opts Options, rng RandomSource) (Result, error) {
	start := time.Now()
	if err := pool.validate(); err != nil {
		return Result{}, err
	}
	opts = opts.normalized()
	if rng == nil {
		rng = DefaultRNG()
	}

	res := Result{Chances: make(map[string]float64, len(pool.IDs))}
	var (
		ids     []string
		weights []float64
	)
	for i, id := range pool.IDs {
		res.Chances[id] = 0
		if pool.Weights[i] > 0 {
			ids = append(ids, id)
			weights = append(weights, pool.Weights[i])
		}
	}
	n := len(ids)
	switch {
	case n == 0 || pool.Draws <= 0:
		res.Converged = true
		res.Elapsed = time.Since(start)
		return res, nil
	case pool.Draws >= n:
		for _, id := range ids {
			res.Chances[id] = 100
		}
		res.Converged = true
		res.Elapsed = time.Since(start)
		return res, nil
	}

	wins := make([]int, n)
	prev := make([]float64, n)
	cur := make([]float64, n)
	var ps prefixSums
	stable, haveCheckpoint := 0, false
	iter := 0
	for iter < opts.MaxIterations {
		ps.reset(weights)
		for k := 0; k < pool.Draws; k++ {
			i := ps.pick(rng)
			if i < 0 {
				break
			}
			wins[i]++
		}
		iter++

		if iter%opts.Batch != 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		maxDelta := 0.0
		for i := range wins {
			cur[i] = 100 * float64(wins[i]) / float64(iter)
			maxDelta = math.Max(maxDelta, math.Abs(cur[i]-prev[i]))
		}
		if haveCheckpoint && maxDelta < opts.Epsilon {
			stable++
		} else {
			stable = 0
		}
		haveCheckpoint = true
		prev, cur = cur, prev
		if stable >= opts.Stable {
			res.Converged = true
			break
		}
	}

	for i, id := range ids {
		res.Chances[id] = 100 * float64(wins[i]) / float64(iter)
	}
	res.Iterations = iter
	res.Elapsed = time.Since(start)
	return res, nil
}
