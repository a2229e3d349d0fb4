package probability

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/xtding233/techdraw/internal/probability")

// Snapshot is a self-contained estimation request. Pools are keyed by area.
type Snapshot struct {
	Generation uint64
	Pools      map[string]Pool
}

// Outcome is the answer to one Snapshot.
type Outcome struct {
	Generation uint64
	JobID      string
	Chances    map[string]float64
	Iterations map[string]int
	Elapsed    time.Duration
	Err        error
}

// EstimateAreas estimates every pool concurrently. Each area gets its own
// random source derived from opts.Seed.
func EstimateAreas(ctx context.Context, pools map[string]Pool, opts Options) (map[string]Result, error) {
	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	out := make(map[string]Result, len(pools))
	for area, pool := range pools {
		g.Go(func() error {
			res, err := Estimate(ctx, pool, opts, areaRNG(opts.Seed, area))
			if err != nil {
				return err
			}
			mu.Lock()
			out[area] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Worker runs estimates off the caller's goroutine. A new submission
// cancels whatever is still running; callers compare Outcome.Generation
// against the latest generation they dispatched.
type Worker struct {
	opts Options

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

func NewWorker(opts Options) *Worker {
	return &Worker{opts: opts}
}

// Submit starts estimating s and returns a channel that receives exactly
// one Outcome. Superseded runs resolve with context.Canceled.
func (w *Worker) Submit(s Snapshot) <-chan Outcome {
	out := make(chan Outcome, 1)
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		out <- Outcome{Generation: s.Generation, Err: context.Canceled}
		close(out)
		return out
	}
	if w.cancel != nil {
		w.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		defer close(out)
		out <- w.run(ctx, s)
	}()
	return out
}

func (w *Worker) run(ctx context.Context, s Snapshot) Outcome {
	start := time.Now()
	o := Outcome{Generation: s.Generation, JobID: uuid.NewString()}
	ctx, span := tracer.Start(ctx, "probability.estimate")
	span.SetAttributes(
		attribute.Int64("generation", int64(s.Generation)),
		attribute.Int("pools", len(s.Pools)),
	)
	defer span.End()

	results, err := EstimateAreas(ctx, s.Pools, w.opts)
	o.Elapsed = time.Since(start)
	if err != nil {
		span.RecordError(err)
		o.Err = err
		return o
	}
	o.Chances = make(map[string]float64)
	o.Iterations = make(map[string]int, len(results))
	for area, r := range results {
		o.Iterations[area] = r.Iterations
		for id, c := range r.Chances {
			o.Chances[id] = c
		}
	}
	return o
}

// Close cancels running work and waits for it to finish.
func (w *Worker) Close() {
	w.mu.Lock()
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()
	w.wg.Wait()
}
