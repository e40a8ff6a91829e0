package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	httpHandlers "github.com/Camillus83/eventmanager/internal/adapters/http/handlers"
	"github.com/Camillus83/eventmanager/internal/adapters/repo"
	"github.com/Camillus83/eventmanager/internal/adapters/storeclient"
	"github.com/Camillus83/eventmanager/internal/config"
	"github.com/Camillus83/eventmanager/internal/logging"
	"github.com/Camillus83/eventmanager/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.LogError("config load failed", err, logrus.Fields{})
		os.Exit(1)
	}
	logging.InitLogger(cfg.Log.Level)
	logging.LogInfo("starting event consumer", logrus.Fields{
		"pid":     os.Getpid(),
		"topic":   cfg.Kafka.Topic,
		"group":   cfg.Kafka.Group,
		"store":   cfg.Store.URL,
		"metrics": cfg.HTTP.MetricsPort,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storeclient.New(storeclient.Config{BaseURL: cfg.Store.URL, Timeout: cfg.Store.Timeout})
	if err != nil {
		logging.LogError("store client init failed", err, logrus.Fields{})
		os.Exit(1)
	}
	defer store.Close()

	var pool *pgxpool.Pool
	if cfg.Failures.Sink == "postgres" || cfg.Failures.Sink == "both" {
		pool, err = pgxpool.New(ctx, cfg.DB.DSN())
		if err != nil {
			logging.LogError("pgxpool.New failed", err, logrus.Fields{"host": cfg.DB.Host, "db_name": cfg.DB.Name})
			os.Exit(1)
		}
		defer pool.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p, err := pipeline.New(pipeline.Deps{Config: cfg, Store: store, Pool: pool, Registerer: reg})
	if err != nil {
		logging.LogError("ingest pipeline init failed", err, logrus.Fields{})
		os.Exit(1)
	}

	checks := map[string]httpHandlers.Check{"event_store": store.Ping}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", httpHandlers.HealthHandler(cfg.App.Name+"-consumer"))
	r.Get("/ready", httpHandlers.ReadyHandler(checks))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if pool != nil {
		r.Get("/failures", httpHandlers.FailuresHandler(repo.NewFailureRepo(pool)))
	}

	srv := &http.Server{Addr: ":" + cfg.HTTP.MetricsPort, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logging.LogInfo("metrics server listening", logrus.Fields{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.LogError("metrics server failed", err, logrus.Fields{"addr": srv.Addr})
		}
	}()

	// Run returns after cancel: in-flight attempts finish, failures drain, reader closes
	if err := p.Run(ctx); err != nil {
		logging.LogError("ingest pipeline stopped", err, logrus.Fields{})
	} else {
		logging.LogInfo("ingest pipeline exited gracefully", logrus.Fields{})
	}

	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	_ = srv.Shutdown(shCtx)
	logging.LogInfo("bye", logrus.Fields{})
}
