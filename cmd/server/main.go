package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/Camillus83/eventmanager/internal/adapters/cache"
	httpHandlers "github.com/Camillus83/eventmanager/internal/adapters/http/handlers"
	repoPkg "github.com/Camillus83/eventmanager/internal/adapters/repo"
	"github.com/Camillus83/eventmanager/internal/config"
	"github.com/Camillus83/eventmanager/internal/logging"
	"github.com/Camillus83/eventmanager/internal/metrics"
	"github.com/Camillus83/eventmanager/internal/pipeline"
	svcPkg "github.com/Camillus83/eventmanager/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.LogError("config load failed", err, logrus.Fields{})
		os.Exit(1)
	}
	logging.InitLogger(cfg.Log.Level)
	logging.LogInfo("starting event store", logrus.Fields{
		"pid":      os.Getpid(),
		"port":     cfg.HTTP.Port,
		"env":      cfg.App.Env,
		"embedded": cfg.Consumer.Embedded,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustPG(ctx, cfg)
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	checks := map[string]httpHandlers.Check{"postgres": pool.Ping}

	repo := repoPkg.NewEventRepo(pool)
	var cacheService cache.Cache
	if cfg.App.CacheBackend == "redis" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			logging.LogError("redis cache init failed", err, logrus.Fields{"addr": cfg.Redis.Addr})
			os.Exit(1)
		}
		defer rc.Close()
		cacheService = rc
		checks["redis"] = rc.Ping
		logging.LogInfo("redis cache enabled", logrus.Fields{"addr": cfg.Redis.Addr, "ttl": cfg.Redis.TTL.String()})
	} else {
		cacheService = cache.NewCacheService(cfg.App.CacheSize, cache.WithTTL(cfg.App.CacheTTL))
		logging.LogInfo("lru cache enabled", logrus.Fields{"capacity": cfg.App.CacheSize})
	}

	svc := svcPkg.NewEventService(repo, cacheService)
	h := httpHandlers.NewEventHandlers(svc)

	router := httpHandlers.NewRouter(h, httpHandlers.RouterConfig{
		Service:  cfg.App.Name,
		Checks:   checks,
		Metrics:  metrics.NewHTTP(reg),
		Gatherer: reg,
		Failures: repoPkg.NewFailureRepo(pool),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// встроенный консьюмер пишет напрямую в сервис, без HTTP
	var wg sync.WaitGroup
	if cfg.Consumer.Embedded {
		p, err := pipeline.New(pipeline.Deps{Config: cfg, Store: svc, Pool: pool, Registerer: reg})
		if err != nil {
			logging.LogError("ingest pipeline init failed", err, logrus.Fields{})
			os.Exit(1)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Run(ctx); err != nil {
				logging.LogError("ingest pipeline stopped", err, logrus.Fields{})
				return
			}
			logging.LogInfo("ingest pipeline exited gracefully", logrus.Fields{})
		}()
	}

	go func() {
		logging.LogInfo("http server listening", logrus.Fields{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.LogError("http server ListenAndServe failed", err, logrus.Fields{"addr": srv.Addr})
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logging.LogInfo("shutdown signal received", logrus.Fields{})

	// сначала дожидаемся консьюмера: ему ещё нужен сервис и пул
	wg.Wait()

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logging.LogError("http server shutdown failed", err, logrus.Fields{})
	} else {
		logging.LogInfo("http server shutdown complete", logrus.Fields{})
	}
	logging.LogInfo("bye", logrus.Fields{})
}

func mustPG(ctx context.Context, cfg config.Config) *pgxpool.Pool {
	fields := logrus.Fields{"source": "DATABASE_URL"}
	if cfg.DB.URL == "" {
		fields = logrus.Fields{
			"source":  "env/defaults",
			"host":    cfg.DB.Host,
			"port":    cfg.DB.Port,
			"db_name": cfg.DB.Name,
			"user":    cfg.DB.User,
			"sslmode": cfg.DB.SSLMode,
		}
	}

	pool, err := pgxpool.New(ctx, cfg.DB.DSN())
	if err != nil {
		logging.LogError("pgxpool.New failed", err, fields)
		os.Exit(1)
	}
	logging.LogInfo("pgx pool created", fields)
	return pool
}
