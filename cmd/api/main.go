package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/manishonc/car-rental/internal/core"
	transporthttp "github.com/manishonc/car-rental/internal/http"
	"github.com/manishonc/car-rental/internal/http/handlers"
	"github.com/manishonc/car-rental/internal/http/health"
	"github.com/manishonc/car-rental/internal/jobs"
	"github.com/manishonc/car-rental/internal/middleware"
	"github.com/manishonc/car-rental/internal/platform/config"
	"github.com/manishonc/car-rental/internal/platform/logging"
	"github.com/manishonc/car-rental/internal/platform/metrics"
	"github.com/manishonc/car-rental/internal/rentsyst"
	"github.com/manishonc/car-rental/internal/sessions"
	"github.com/manishonc/car-rental/internal/store/dynamo"
	"github.com/manishonc/car-rental/internal/store/memory"
	"github.com/manishonc/car-rental/internal/store/mongo"
	redisstore "github.com/manishonc/car-rental/internal/store/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.MustLoad()
	log := logging.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api stopped with error", "err", err)
		os.Exit(1)
	}
}

// stores holds the persistence chosen by STORE_TYPE.
type stores struct {
	drivers core.DriverInfoStore
	catalog core.CatalogRepo
	checks  health.Checks
	close   []func(context.Context) error
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("starting car-rental api", "env", cfg.Env, "store", cfg.StoreType, "port", cfg.Port)

	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		var err error
		rdb, err = redisstore.NewClient(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		log.Info("connected to redis", "addr", cfg.RedisAddr)
	}

	st, err := openStores(ctx, cfg, rdb, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, c := range st.close {
			if err := c(closeCtx); err != nil {
				log.Warn("store close failed", "err", err)
			}
		}
	}()

	// Booking API: instrumented client, cached geography when redis is available
	var orderAPI core.OrderAPI = metrics.InstrumentOrderAPI(rentsyst.New(rentsyst.Config{
		BaseURL:       cfg.RentsystAPIURL,
		AuthURL:       cfg.RentsystAuthURL,
		ClientID:      cfg.RentsystClientID,
		ClientSecret:  cfg.RentsystClientSecret,
		FallbackToken: cfg.RentsystFallbackToken,
		Timeout:       cfg.RentsystTimeout,
	}, log))
	if rdb != nil {
		orderAPI = redisstore.NewGeoCache(orderAPI, rdb, cfg.GeoCacheTTL, log)
	}
	if !cfg.HasOAuth() && cfg.RentsystFallbackToken == "" {
		log.Warn("no booking api credentials configured; requests will be unauthenticated")
	}

	catalog := core.RepoCatalog{Repo: st.catalog, Fallback: core.DefaultCatalog()}
	opts := core.OrchestratorOptions{
		ConfirmRetryDelay: cfg.ConfirmRetryDelay,
		SettleDelay:       cfg.SettleDelay,
		PaymentURL:        cfg.RentsystPayURL,
	}
	registry := sessions.NewRegistry(func(s *core.BookingSession) *core.Orchestrator {
		return core.NewOrchestrator(s, core.OrchestratorDeps{
			API:     orderAPI,
			Drivers: st.drivers,
			Catalog: catalog,
			Logger:  log,
			Options: opts,
		})
	}, cfg.SessionIdleTTL, log)

	var limiter middleware.Limiter
	if rdb != nil {
		limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitRPM, time.Minute)
	} else {
		ml := middleware.NewMemoryLimiter(cfg.RateLimitRPM, time.Minute)
		go ml.Run(ctx)
		limiter = ml
	}

	router := transporthttp.NewRouter(transporthttp.Deps{
		Log: log,
		Mounts: []handlers.Mountable{
			handlers.NewSessionHandler(registry, log),
			handlers.NewInsuranceHandler(core.NewQuoteService(catalog), log),
			handlers.NewCountryHandler(orderAPI, log),
		},
		Health:         health.New(log, st.checks, 2*time.Second),
		APIKey:         cfg.APIKey,
		AllowedOrigins: cfg.AllowedOrigins,
		Limiter:        limiter,
		RequestTimeout: time.Duration(cfg.HTTPRequestTimeoutSec) * time.Second,
	})

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	waitWorkers := jobs.StartAll(workerCtx,
		jobs.NewSessionSweeper(registry, time.Duration(cfg.WorkerIntervalSec)*time.Second, log),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.HTTPIdleTimeoutSec) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		cancelWorkers()
		waitWorkers()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", "err", err)
	}

	cancelWorkers()
	waitWorkers()

	// Release draft orders still held by open sessions.
	for _, orch := range registry.EvictAll() {
		orch.Abandon(shutdownCtx)
	}
	log.Info("shutdown complete")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, rdb *goredis.Client, log *slog.Logger) (*stores, error) {
	st := &stores{checks: health.Checks{}}
	if rdb != nil {
		st.checks["redis"] = redisstore.Pinger{Client: rdb}
	}

	switch cfg.StoreType {
	case config.StoreMemory:
		st.drivers = memory.NewDriverStore()
		st.catalog = memory.NewCatalogRepo(core.DefaultCatalog()...)

	case config.StoreRedis:
		st.drivers = redisstore.NewDriverStore(rdb, cfg.DriverInfoTTL)
		st.catalog = memory.NewCatalogRepo(core.DefaultCatalog()...)

	case config.StoreMongo:
		mc, err := mongo.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		st.close = append(st.close, mc.Close)
		if err := mongo.EnsureIndexes(ctx, mc.DB); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		st.drivers = mongo.NewDriverRepo(mc.DB, mc.OpTimeout)
		st.catalog = mongo.NewCatalogRepo(mc.DB, mc.OpTimeout)
		st.checks["mongo"] = mc
		log.Info("connected to mongo", "db", cfg.MongoDB)

	case config.StoreDynamo:
		dc, err := dynamo.NewClient(ctx, dynamo.Config{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.DynamoDBEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamodb: %w", err)
		}
		if err := dynamo.EnsureTables(ctx, dc.DB, log); err != nil {
			return nil, fmt.Errorf("dynamodb tables: %w", err)
		}
		st.drivers = dynamo.NewDriverRepo(dc.DB)
		st.catalog = dynamo.NewCatalogRepo(dc.DB)
		st.checks["dynamodb"] = dc
		log.Info("connected to dynamodb", "region", cfg.AWSRegion)

	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.StoreType)
	}
	return st, nil
}
