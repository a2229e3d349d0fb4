package server

import (
	"context"
	"encoding/base64"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtding233/techdraw/internal/cascade"
	"github.com/xtding233/techdraw/internal/diag"
	"github.com/xtding233/techdraw/internal/save"
	"github.com/xtding233/techdraw/internal/session"
)

// Service implements ResearchServer over a session manager.
type Service struct {
	sessions *session.Manager
	logger   *zap.Logger
}

func NewService(m *session.Manager, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sessions: m, logger: logger}
}

// toStatus maps domain errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrUnknownSession), errors.Is(err, cascade.ErrUnknownItem):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, cascade.ErrPermanent),
		errors.Is(err, save.ErrMalformedArchive),
		errors.Is(err, save.ErrNoPlayer):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, session.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func field(req *structpb.Struct, key string) (*structpb.Value, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return v, nil
}

func stringField(req *structpb.Struct, key string) (string, error) {
	v, err := field(req, key)
	if err != nil {
		return "", err
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok || s.StringValue == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a non-empty string", key)
	}
	return s.StringValue, nil
}

func numberField(req *structpb.Struct, key string) (float64, error) {
	v, err := field(req, key)
	if err != nil {
		return 0, err
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", key)
	}
	return n.NumberValue, nil
}

// session looks up the request's session and tags the RPC span with it.
func (s *Service) session(ctx context.Context, req *structpb.Struct) (*session.Session, error) {
	id, err := stringField(req, "session_id")
	if err != nil {
		return nil, err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("techdraw.session", id))
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, toStatus(err)
	}
	return sess, nil
}

func generation(sess *session.Session) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"generation": float64(sess.Generation())})
}

func (s *Service) OpenSession(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sess := s.sessions.Open()
	return structpb.NewStruct(map[string]any{
		"session_id": sess.ID,
		"generation": float64(sess.Generation()),
	})
}

func (s *Service) toggle(ctx context.Context, req *structpb.Struct, fn func(*session.Session, context.Context, string) error) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	id, err := stringField(req, "item")
	if err != nil {
		return nil, err
	}
	if err := fn(sess, ctx, id); err != nil {
		return nil, toStatus(err)
	}
	return generation(sess)
}

func (s *Service) ToggleObtained(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.toggle(ctx, req, (*session.Session).ToggleObtained)
}

func (s *Service) ToggleSkipped(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.toggle(ctx, req, (*session.Session).ToggleSkipped)
}

func (s *Service) SetScalar(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	key, err := stringField(req, "key")
	if err != nil {
		return nil, err
	}
	v, err := numberField(req, "value")
	if err != nil {
		return nil, err
	}
	if err := sess.SetScalar(ctx, key, v); err != nil {
		return nil, toStatus(err)
	}
	return generation(sess)
}

func (s *Service) SetCategoryBonus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	slot, err := stringField(req, "slot")
	if err != nil {
		return nil, err
	}
	// A missing or empty category clears the slot.
	category := req.GetFields()["category"].GetStringValue()
	bonus := 0.0
	if category != "" {
		if bonus, err = numberField(req, "bonus"); err != nil {
			return nil, err
		}
	}
	if err := sess.SetCategoryBonus(ctx, slot, category, bonus); err != nil {
		return nil, toStatus(err)
	}
	return generation(sess)
}

func (s *Service) ImportSave(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	enc, err := stringField(req, "archive")
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "archive must be base64: %v", err)
	}
	b, err := sess.Import(ctx, data)
	if err != nil {
		s.logger.Info("import rejected", zap.String("session", sess.ID), zap.Error(err))
		return nil, toStatus(err)
	}
	sourced := make([]any, len(b.Sourced))
	for i, k := range b.Sourced {
		sourced[i] = k
	}
	return structpb.NewStruct(map[string]any{
		"generation":  float64(sess.Generation()),
		"sourced":     sourced,
		"diagnostics": diagnostics(b.Diagnostics),
	})
}

func (s *Service) Reset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := sess.Reset(ctx); err != nil {
		return nil, toStatus(err)
	}
	return generation(sess)
}

// Items returns every item. With "wait": true it first blocks until the
// latest hit chances are in.
func (s *Service) Items(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.GetFields()["wait"].GetBoolValue() {
		if err := sess.Wait(ctx); err != nil {
			return nil, toStatus(err)
		}
	}
	views := sess.Items()
	items := make([]any, len(views))
	for i, v := range views {
		items[i] = map[string]any{
			"id":          v.ID,
			"name":        v.Name,
			"area":        v.Area,
			"category":    v.Category,
			"tier":        float64(v.Tier),
			"icon":        v.Icon,
			"available":   v.Available,
			"prereqs_met": v.PrereqsMet,
			"obtained":    v.Obtained,
			"permanent":   v.Permanent,
			"skipped":     v.Skipped,
			"rare":        v.Rare,
			"dangerous":   v.Dangerous,
			"weight":      v.Weight,
			"delta":       v.Delta,
			"hit_chance":  v.HitChance,
			"provisional": v.Provisional,
		}
	}
	return structpb.NewStruct(map[string]any{
		"generation":  float64(sess.Generation()),
		"items":       items,
		"diagnostics": diagnostics(sess.Diagnostics()),
	})
}

func diagnostics(entries []diag.Entry) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = map[string]any{
			"level":   string(e.Level),
			"source":  e.Source,
			"message": e.Message,
		}
	}
	return out
}
