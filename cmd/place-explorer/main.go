package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/nitesh/place_explorer/internal/api"
	"github.com/nitesh/place_explorer/internal/cache"
	"github.com/nitesh/place_explorer/internal/config"
	"github.com/nitesh/place_explorer/internal/logger"
	"github.com/nitesh/place_explorer/internal/service"
	"github.com/nitesh/place_explorer/internal/store"
	"github.com/nitesh/place_explorer/internal/store/memstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	cacheStore, closeCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	gate := cache.NewGate(cacheStore, cfg.Engine.CacheTTL, log)
	svc := service.NewService(repo, gate, cfg.Engine, log)
	handler := api.NewHandler(svc, cfg.Engine, log)

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestID(), logger.AccessLog(log))
	api.RegisterRoutes(router, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr, "store", cfg.Store.Driver, "cache", cfg.Cache.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (service.PlaceStore, func(), error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		log.Warn("using in-memory sample store")
		return memstore.Sample(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	// db might still be starting in docker
	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		log.Warn("waiting for db", "attempt", i+1, "err", err)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("could not connect to db: %w", err)
	}

	if err := store.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return store.NewPgStore(db, log), func() { db.Close() }, nil
}

func openCache(ctx context.Context, cfg *config.Config, log *slog.Logger) (cache.Store, func(), error) {
	switch cfg.Cache.Driver {
	case config.CacheDriverRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis ping failed", "addr", cfg.Redis.Addr, "err", err)
		}
		return cache.NewRedisStore(rdb), func() { rdb.Close() }, nil
	case config.CacheDriverLocal:
		local, err := cache.NewLocalStore(cfg.Cache.LocalMaxBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("local cache: %w", err)
		}
		return local, local.Close, nil
	default:
		return cache.Nop{}, func() {}, nil
	}
}
