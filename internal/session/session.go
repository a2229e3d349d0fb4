// Package session ties one cascade state to a probability worker. Actions
// recompute synchronously; hit chances arrive later and are applied only
// when they answer the latest dispatch.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xtding233/techdraw/internal/cascade"
	"github.com/xtding233/techdraw/internal/catalog"
	"github.com/xtding233/techdraw/internal/config"
	"github.com/xtding233/techdraw/internal/diag"
	"github.com/xtding233/techdraw/internal/probability"
	"github.com/xtding233/techdraw/internal/projector"
	"github.com/xtding233/techdraw/internal/save"
)

var tracer = otel.Tracer("github.com/xtding233/techdraw/internal/session")

var ErrClosed = errors.New("session: closed")

// ItemView is a read-only copy of one item's state.
type ItemView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Area        string  `json:"area"`
	Category    string  `json:"category"`
	Tier        int     `json:"tier"`
	Icon        string  `json:"icon,omitempty"`
	Available   bool    `json:"available"`
	PrereqsMet  bool    `json:"prereqs_met"`
	Obtained    bool    `json:"obtained"`
	Permanent   bool    `json:"permanent"`
	Skipped     bool    `json:"skipped"`
	Rare        bool    `json:"rare"`
	Dangerous   bool    `json:"dangerous"`
	Weight      float64 `json:"weight"`
	Delta       float64 `json:"delta"`
	HitChance   float64 `json:"hit_chance"`
	Provisional bool    `json:"provisional"`
}

type Session struct {
	ID string

	mu      sync.Mutex
	state   *cascade.State
	worker  *probability.Worker
	tables  *projector.Tables
	extract save.Options
	logger  *zap.Logger
	diags   diag.Log
	sourced []string
	applied uint64
	changed chan struct{}
	closed  bool

	wg sync.WaitGroup
}

// New builds a session over cat and runs the first recompute.
func New(cat *catalog.Catalog, p config.Params, tables *projector.Tables, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tables == nil {
		tables = projector.DefaultTables()
	}
	s := &Session{
		ID:      uuid.NewString(),
		worker:  probability.NewWorker(p.Probability),
		tables:  tables,
		extract: p.Extract,
		changed: make(chan struct{}),
	}
	s.logger = logger.With(zap.String("session", s.ID))
	for _, w := range cat.Warnings {
		s.diags.Warnf("catalog", "%s", w)
	}

	s.mu.Lock()
	s.state = cascade.New(cat, p.Cascade, s)
	cascade.Recompute(s.state)
	s.mu.Unlock()
	return s
}

// Dispatch implements cascade.Dispatcher. It runs with s.mu held.
func (s *Session) Dispatch(snap probability.Snapshot) {
	if s.closed {
		return
	}
	out := s.worker.Submit(snap)
	s.wg.Add(1)
	go s.collect(out)
}

func (s *Session) collect(out <-chan probability.Outcome) {
	defer s.wg.Done()
	o := <-out
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.ApplyHitChances(o) {
		if o.Err != nil && !errors.Is(o.Err, context.Canceled) {
			s.logger.Warn("estimate failed", zap.Uint64("generation", o.Generation), zap.Error(o.Err))
		} else {
			s.logger.Debug("stale estimate discarded", zap.Uint64("generation", o.Generation))
		}
		return
	}
	s.applied = o.Generation
	close(s.changed)
	s.changed = make(chan struct{})
	s.logger.Debug("hit chances applied",
		zap.Uint64("generation", o.Generation),
		zap.String("job", o.JobID),
		zap.Any("iterations", o.Iterations),
		zap.Duration("elapsed", o.Elapsed))
}

// Wait blocks until the hit chances of the latest dispatch are applied.
func (s *Session) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.applied == s.state.Generation() {
			s.mu.Unlock()
			return nil
		}
		ch := s.changed
		s.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// act runs one state action under the lock and logs what it did.
func (s *Session) act(ctx context.Context, name string, fn func(*cascade.State) error) error {
	_, span := tracer.Start(ctx, "session."+name)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := fn(s.state); err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int64("generation", int64(s.state.Generation())))
	s.logger.Debug(name,
		zap.Uint64("generation", s.state.Generation()),
		zap.Ints("changed", s.state.LastStats.Changed[:]))
	return nil
}

func (s *Session) ToggleObtained(ctx context.Context, id string) error {
	return s.act(ctx, "toggle_obtained", func(st *cascade.State) error { return st.ToggleObtained(id) })
}

func (s *Session) SetObtained(ctx context.Context, id string, v bool) error {
	return s.act(ctx, "set_obtained", func(st *cascade.State) error { return st.SetObtained(id, v) })
}

func (s *Session) ToggleSkipped(ctx context.Context, id string) error {
	return s.act(ctx, "toggle_skipped", func(st *cascade.State) error { return st.ToggleSkipped(id) })
}

func (s *Session) SetScalar(ctx context.Context, key string, v float64) error {
	return s.act(ctx, "set_scalar", func(st *cascade.State) error {
		st.SetScalar(key, v)
		return nil
	})
}

func (s *Session) SetCategoryBonus(ctx context.Context, slot, category string, bonus float64) error {
	return s.act(ctx, "set_category_bonus", func(st *cascade.State) error {
		st.SetCategoryBonusInput(slot, category, bonus)
		return nil
	})
}

func (s *Session) Reset(ctx context.Context) error {
	return s.act(ctx, "reset", func(st *cascade.State) error {
		st.Reset()
		s.sourced = nil
		return nil
	})
}

// Import extracts a save archive off the caller's goroutine, projects it
// and swaps the result into the state. Fatal save errors are returned and
// also recorded as diagnostics.
func (s *Session) Import(ctx context.Context, archive []byte) (*projector.Bundle, error) {
	ctx, span := tracer.Start(ctx, "session.import")
	defer span.End()

	type result struct {
		ex  *save.Extraction
		err error
	}
	done := make(chan result, 1)
	go func() {
		ex, err := save.ExtractFile(ctx, archive, s.extract)
		done <- result{ex, err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r = <-done:
	}

	s.mu.Lock()
	if r.ex != nil {
		s.diags.Append(r.ex.Diagnostics...)
	}
	s.mu.Unlock()
	if r.ex != nil {
		diag.Emit(s.logger, r.ex.Diagnostics)
	}
	if r.err != nil {
		span.RecordError(r.err)
		s.logger.Warn("save import failed", zap.Error(r.err))
		return nil, r.err
	}

	b := projector.Project(r.ex, s.tables)
	err := s.act(ctx, "apply_source_state", func(st *cascade.State) error {
		s.diags.Append(b.Diagnostics...)
		for _, id := range st.ApplySourceState(b.Source()) {
			s.diags.Infof("projector", "technology %q is not in the catalog; skipped", id)
		}
		s.sourced = b.Sourced
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("save imported",
		zap.String("player", r.ex.Player),
		zap.String("version", r.ex.Version),
		zap.Int("technologies", len(r.ex.Technologies)))
	return b, nil
}

// Items returns a copy of every item in catalog order.
func (s *Session) Items() []ItemView {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	provisional := s.applied != st.Generation()
	out := make([]ItemView, len(st.Items))
	for i, is := range st.Items {
		it := st.Catalog.Items[i]
		name := it.ID
		if is.DisplayName != "" {
			name = is.DisplayName
		}
		out[i] = ItemView{
			ID:          it.ID,
			Name:        name,
			Area:        it.Area,
			Category:    it.Category,
			Tier:        it.Tier,
			Icon:        it.Icon,
			Available:   is.Available,
			PrereqsMet:  is.PrereqsMet,
			Obtained:    is.Obtained,
			Permanent:   is.Permanent,
			Skipped:     is.SkippedLastRound,
			Rare:        it.Rare,
			Dangerous:   it.Dangerous,
			Weight:      is.CurrentWeight,
			Delta:       is.DeltaWeight,
			HitChance:   is.HitChance,
			Provisional: provisional && is.CurrentWeight > 0,
		}
	}
	return out
}

// Diagnostics returns the session's append-only log.
func (s *Session) Diagnostics() []diag.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diags.Entries()
}

// Sourced lists the fact and scalar keys set by the last import.
func (s *Session) Sourced() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sourced...)
}

// Facts lists the asserted facts.
func (s *Session) Facts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Facts.Keys()
}

func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Generation()
}

// Close stops the worker and waits for pending collectors.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.worker.Close()
	s.wg.Wait()
}
