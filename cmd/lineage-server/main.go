// Command lineage-server serves transitive closure and bounded path queries
// over an edge relation held in PostgreSQL or SQLite.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/lineage/internal/api"
	"github.com/persistorai/lineage/internal/config"
	"github.com/persistorai/lineage/internal/db"
	"github.com/persistorai/lineage/internal/engine"
	"github.com/persistorai/lineage/internal/relstore"
	"github.com/persistorai/lineage/internal/service"
	"github.com/persistorai/lineage/internal/store"
	"github.com/persistorai/lineage/internal/workset"
	"github.com/persistorai/lineage/internal/ws"
)

const (
	shutdownTimeout = 15 * time.Second
	runQueueSize    = 256
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := run(log); err != nil {
		log.WithError(err).Fatal("lineage-server exited")
	}
}

func run(log *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, _ := logrus.ParseLevel(cfg.LogLevel) // validated by config.Load
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(cfg.OTelExporter)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	st, closeStore, err := relstore.Open(ctx, cfg.DatabaseURL.Value(), cfg.DBMaxConns, log)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer closeStore()

	if err := db.RunMigrations(ctx, st, log); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	hub := ws.NewHub(log)

	base := store.Base{Store: st, Log: log}

	edgeStore, err := store.NewEdgeStore(base, cfg.EdgeRelation)
	if err != nil {
		return err
	}

	runStore := store.NewRunStore(base)

	edgeNotifier := edgeEventPublisher(ctx, st, cfg.EdgeRelation, hub, log)

	recorder := service.NewRunRecorder(runStore, log, runQueueSize)

	eng := engine.New(log, engine.WithObserver(hub))

	factory := &workset.SQLFactory{
		Store:        st,
		Prefix:       cfg.RelationPrefix,
		EdgeRelation: cfg.EdgeRelation,
		Log:          log,
	}

	traversal := service.NewTraversalService(eng, factory, service.TraversalConfig{
		DefaultMaxRounds: cfg.DefaultMaxRounds,
		MaxRoundsLimit:   cfg.MaxRoundsLimit,
		BatchConcurrency: cfg.BatchConcurrency,
		RetainFailedRuns: cfg.RetainFailedRuns,
	}, recorder, hub, log)

	router := api.NewRouter(ctx, &api.RouterDeps{
		Log:         log,
		Store:       st,
		Hub:         hub,
		Traversal:   traversal,
		Edges:       service.NewEdgeService(edgeStore, edgeNotifier, log),
		Runs:        service.NewRunService(runStore, log),
		CORSOrigins: cfg.CORSOrigins,
		APIKey:      cfg.APIKey.Value(),
		Version:     config.Version,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr(),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		recorder.Run(gctx)
		return nil
	})

	for _, s := range []*http.Server{srv, metricsSrv} {
		g.Go(func() error {
			log.WithField("addr", s.Addr).Info("listening")

			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving %s: %w", s.Addr, err)
			}

			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		hub.Shutdown()

		return errors.Join(srv.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

// setupTracing installs a global tracer provider. With exporter "none" the
// otel no-op provider stays in place.
func setupTracing(exporter string) (func(), error) {
	if exporter != "stdout" {
		return func() {}, nil
	}

	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		tp.Shutdown(ctx) //nolint:errcheck // best effort on exit.
	}, nil
}

// edgeEventPublisher returns the notifier the edge service should publish
// through. It is nil when the PostgreSQL trigger already covers relation and
// the notify bridge is listening; otherwise the service publishes itself.
func edgeEventPublisher(ctx context.Context, st relstore.Store, relation string, hub *ws.Hub, log *logrus.Logger) service.EdgeNotifier {
	pg, ok := st.(*relstore.Postgres)
	if !ok {
		return hub
	}

	bridge := db.NewNotifyBridge(log, pg.Pool(), hub)
	if err := bridge.Start(ctx); err != nil {
		log.WithError(err).Warn("notify bridge unavailable, publishing edge changes from the service")
		return hub
	}

	if !bridge.Covers(relation) {
		log.WithField("relation", relation).Info("edge relation has no notify trigger, publishing edge changes from the service")
		return hub
	}

	return nil
}
