package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xtding233/techdraw/internal/catalog"
	"github.com/xtding233/techdraw/internal/config"
	"github.com/xtding233/techdraw/internal/logging"
	"github.com/xtding233/techdraw/internal/platform/otel"
	"github.com/xtding233/techdraw/internal/server"
	"github.com/xtding233/techdraw/internal/session"
	"github.com/xtding233/techdraw/internal/watch"
)

func main() {
	env, err := config.ParseEnv()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(env.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(env, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(env config.Env, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := otel.Setup(ctx, "techdraw", env.TraceEndpoint())
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	var resolver config.Resolver = config.NewLoader(env.Dir)
	raw, params, err := resolver.Resolve(env.Profile, env.Overrides())
	if err != nil {
		return err
	}
	cat, err := catalog.Load(env.Catalog)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded",
		zap.Int("items", cat.Len()),
		zap.Strings("areas", cat.Areas),
		zap.Int("warnings", len(cat.Warnings)),
		zap.String("config", params.Version),
		zap.String("notes", raw.Notes))

	manager := session.NewManager(cat, params, nil, logger)
	srv, err := server.New(env.Addr, manager, logger)
	if err != nil {
		manager.Close()
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx) })
	if env.SaveDir != "" {
		w, err := watch.New(env.SaveDir, env.Debounce, importInto(manager, logger), logger)
		if err != nil {
			srv.Close()
			return err
		}
		g.Go(func() error { return w.Run(ctx) })
	}
	return g.Wait()
}

// importInto returns a watch callback that feeds a changed save to every
// open session.
func importInto(m *session.Manager, logger *zap.Logger) func(context.Context, string) {
	return func(ctx context.Context, path string) {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("read save", zap.String("path", path), zap.Error(err))
			return
		}
		m.Each(func(s *session.Session) {
			if _, err := s.Import(ctx, data); err != nil && !errors.Is(err, session.ErrClosed) {
				logger.Warn("auto import", zap.String("session", s.ID), zap.String("path", path), zap.Error(err))
			}
		})
	}
}
