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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Overland-East-Bay/user-accounts-api/internal/adapters/httpapi"
	memidempotency "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/memory/idempotency"
	memuserrepo "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/memory/userrepo"
	postgres "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/postgres"
	pgidempotency "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/postgres/idempotency"
	pguserrepo "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/postgres/userrepo"
	redisidempotency "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/redis/idempotency"
	"github.com/Overland-East-Bay/user-accounts-api/internal/app/users"
	"github.com/Overland-East-Bay/user-accounts-api/internal/platform/auth/bcrypthash"
	"github.com/Overland-East-Bay/user-accounts-api/internal/platform/auth/jwttoken"
	platformclock "github.com/Overland-East-Bay/user-accounts-api/internal/platform/clock"
	"github.com/Overland-East-Bay/user-accounts-api/internal/platform/config"
	"github.com/Overland-East-Bay/user-accounts-api/internal/platform/logging"
	idempotencyport "github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/idempotency"
	userrepoport "github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/userrepo"
)

const serviceName = "user-accounts-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("api exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	var pool *pgxpool.Pool
	if cfg.StorageBackend == config.BackendPostgres || cfg.IdempotencyBackend == config.BackendPostgres {
		p, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{ConnectTimeout: 5 * time.Second})
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer p.Close()
		if err := postgres.Migrate(ctx, p); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		pool = p
	}

	var userRepo userrepoport.Repository
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		userRepo = pguserrepo.NewRepo(pool)
	default:
		userRepo = memuserrepo.NewRepo()
	}

	var (
		idemStore idempotencyport.Store
		pgIdem    *pgidempotency.Store
	)
	switch cfg.IdempotencyBackend {
	case config.BackendPostgres:
		pgIdem = pgidempotency.NewStoreWithTTL(pool, cfg.IdempotencyTTL)
		idemStore = pgIdem
	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		idemStore = redisidempotency.NewStore(rdb, cfg.IdempotencyTTL)
	default:
		idemStore = memidempotency.NewStoreWithTTL(cfg.IdempotencyTTL)
	}

	tok := jwttoken.New(cfg.JWT)

	// Auth configuration:
	// - Production: bearer tokens signed with JWT_SECRET
	// - Local dev: AUTH_MODE=dev accepts X-Debug-Subject instead
	var authMW func(http.Handler) http.Handler
	switch cfg.AuthMode {
	case config.AuthModeDev:
		logger.Warn("dev auth mode enabled; bearer tokens are not verified")
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject)
	default:
		authMW = httpapi.NewAuthMiddleware(tok)
	}

	svc := users.NewService(userRepo, bcrypthash.New(cfg.BcryptCost), platformclock.NewSystemClock())
	svc.Logger = logger.Named("users")

	api := httpapi.NewServer(svc, tok, idemStore)
	api.Logger = logger.Named("http")

	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		Logger:         logger.Named("access"),
		Metrics:        httpapi.NewMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer),
		ServiceName:    serviceName,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.StorageBackend),
			zap.String("idempotency", cfg.IdempotencyBackend),
			zap.String("auth", cfg.AuthMode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	if pgIdem != nil {
		g.Go(func() error {
			purgeExpired(gctx, pgIdem, time.Hour, logger)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// purgeExpired removes stale replay rows until ctx is done. Memory and redis stores expire on their own.
func purgeExpired(ctx context.Context, s *pgidempotency.Store, every time.Duration, logger *zap.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Purge(ctx)
			if err != nil {
				logger.Warn("idempotency purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("idempotency purge", zap.Int64("deleted", n))
			}
		}
	}
}
