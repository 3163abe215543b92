package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Aleph-Alpha/wordembed/internal/config"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext"
	"github.com/Aleph-Alpha/wordembed/v1/logger"
	"github.com/Aleph-Alpha/wordembed/v1/metrics"
	"github.com/Aleph-Alpha/wordembed/v1/modelstore"
	"github.com/Aleph-Alpha/wordembed/v1/observability"
	"github.com/Aleph-Alpha/wordembed/v1/tracer"
	"github.com/Aleph-Alpha/wordembed/v1/vectorexport"
)

const shutdownTimeout = 5 * time.Second

// app holds the components shared by all subcommands.
type app struct {
	cfg     *config.AppConfig
	log     *logger.Logger
	tracer  *tracer.Tracer
	metrics *metrics.Metrics
	serving bool
}

func newApp(cfg *config.AppConfig, serveMetrics bool) (*app, error) {
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, err
	}
	t, err := tracer.NewClient(cfg.Tracer, log)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		log:     log,
		tracer:  t,
		metrics: metrics.NewMetrics(cfg.Metrics),
	}
	if serveMetrics {
		a.serveMetrics()
	}
	return a, nil
}

func (a *app) serveMetrics() {
	a.serving = true
	go func() {
		a.log.Info("serving metrics", nil, map[string]interface{}{"address": a.metrics.Server.Addr})
		if err := a.metrics.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", err, nil)
		}
	}()
}

func (a *app) observer() observability.Observer { return a.metrics }

// client returns a fasttext client for path, or for the configured model
// path when path is empty.
func (a *app) client(path string) (*fasttext.Client, error) {
	cfg := *a.cfg.FastText
	if path != "" {
		cfg.ModelPath = path
	}
	c, err := fasttext.NewClient(&cfg, a.log)
	if err != nil {
		return nil, err
	}
	return c.WithObserver(a.observer()).WithTracer(a.tracer), nil
}

func (a *app) store() (*modelstore.Store, error) {
	s, err := modelstore.NewClient(a.cfg.ModelStore, a.log)
	if err != nil {
		return nil, err
	}
	return s.WithObserver(a.observer()), nil
}

func (a *app) exporter() (*vectorexport.Exporter, error) {
	e, err := vectorexport.NewExporter(a.cfg.VectorExport, a.log)
	if err != nil {
		return nil, err
	}
	return e.WithObserver(a.observer()).WithMetrics(a.metrics), nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.serving {
		if err := a.metrics.Server.Shutdown(ctx); err != nil {
			a.log.Warn("failed to stop metrics server", err, nil)
		}
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.log.Warn("failed to flush traces", err, nil)
	}
	_ = a.log.Sync()
}
