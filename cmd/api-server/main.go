package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-turnos/internal/api"
	"github.com/hackgods/clinic-turnos/internal/clinic"
	"github.com/hackgods/clinic-turnos/internal/config"
	"github.com/hackgods/clinic-turnos/internal/db"
	"github.com/hackgods/clinic-turnos/internal/logger"
	redisclient "github.com/hackgods/clinic-turnos/internal/redis"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := logger.New(cfg.Env, cfg.LogLevel)
	log.Info().Str("http_port", cfg.HTTPPort).Str("version", version).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		dir    clinic.Directory
		pgPool *pgxpool.Pool
		rdb    *redis.Client
		opts   = []clinic.Option{clinic.WithLogger(log)}
	)

	if cfg.PostgresDSN != "" {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		if err == nil {
			err = db.Prepare(pgCtx, pgPool, db.Migrate, func(ctx context.Context, pool *pgxpool.Pool) error {
				loaded, err := clinic.LoadDirectory(ctx, pool, time.Now())
				dir = loaded
				return err
			})
		}
		cancelPg()
		if err != nil {
			log.Fatal().Err(err).Msg("postgres setup error")
		}
		defer pgPool.Close()

		opts = append(opts,
			clinic.WithEventSink(clinic.NewPgEventLog(pgPool)),
			clinic.WithCatalog(clinic.NewPgCatalog(pgPool)),
		)
		log.Info().Msg("connected to Postgres")
	} else {
		mem := clinic.NewMemoryDirectory()
		if cfg.SeedDemo {
			if err := clinic.SeedDemo(mem, time.Now()); err != nil {
				log.Fatal().Err(err).Msg("seed demo clinic")
			}
			log.Info().Msg("loaded demo clinic")
		}
		dir = mem
	}

	if cfg.RedisEnabled {
		rdb, err = redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection error")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Error().Err(err).Msg("error closing redis")
			}
		}()

		opts = append(opts,
			clinic.WithLocker(redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL, cfg.LockWait)),
			clinic.WithSharedState(redisclient.NewSlotFlags(rdb), redisclient.NewSequence(rdb, "appointments")),
		)
		log.Info().Msg("connected to Redis")
	}

	scheduler := clinic.NewScheduler(dir, opts...)

	srv := &http.Server{
		Addr: net.JoinHostPort("", cfg.HTTPPort),
		Handler: api.NewRouter(api.RouterConfig{
			Scheduler: scheduler,
			Logger:    log,
			PgPool:    pgPool,
			Redis:     rdb,
			Env:       cfg.Env,
			Version:   version,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-rootCtx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
