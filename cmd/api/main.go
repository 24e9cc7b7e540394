package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/httpapi"
	memidempotency "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/memory/idempotency"
	memprofilerepo "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/memory/profilerepo"
	memuserrepo "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/memory/userrepo"
	postgres "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/postgres"
	pgidempotency "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/postgres/idempotency"
	pgprofilerepo "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/postgres/profilerepo"
	pguserrepo "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/postgres/userrepo"
	redisadapter "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/redis"
	redisidempotency "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/redis/idempotency"
	redisprofilerepo "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/redis/profilerepo"
	redisuserrepo "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/redis/userrepo"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/app/profiles"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/app/users"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/Overland-East-Bay/profile-privacy-api/internal/platform/clock"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/platform/config"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/platform/logging"
	idempotencyport "github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/idempotency"
	profilerepoport "github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/profilerepo"
	userrepoport "github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/userrepo"
)

type storage struct {
	profiles profilerepoport.Repository
	users    userrepoport.Repository
	idem     idempotencyport.Store
	close    func()
}

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("invalid logging config: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Auth configuration:
	// - Production: require JWT_* env vars and enforce bearer auth
	// - Local dev: set AUTH_MODE=dev to bypass JWT verification and use X-Debug-Subject
	var authMW func(http.Handler) http.Handler
	switch cfg.AuthMode {
	case config.AuthModeDev:
		logger.Warn("dev auth enabled; X-Debug-Subject is trusted")
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject)
	default:
		authMW = httpapi.NewAuthMiddleware(jwtverifier.New(cfg.JWT))
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open storage", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	defer store.close()

	clk := platformclock.NewSystemClock()
	profileSvc := profiles.NewService(store.profiles, clk, logger)
	profileSvc.BatchConcurrency = cfg.BatchConcurrency
	userSvc := users.NewService(store.users, profileSvc, clk, logger)
	userSvc.LookupConcurrency = cfg.BatchConcurrency

	api := httpapi.NewServer(profileSvc, userSvc, store.idem, logger)
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.StorageBackend),
			zap.String("auth", cfg.AuthMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func openStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			return storage{}, err
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return storage{}, err
		}
		logger.Info("postgres storage ready")
		return storage{
			profiles: pgprofilerepo.NewRepo(pool),
			users:    pguserrepo.NewRepo(pool),
			idem:     pgidempotency.NewStore(pool),
			close:    pool.Close,
		}, nil
	case config.BackendRedis:
		client, err := redisadapter.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return storage{}, err
		}
		logger.Info("redis storage ready", zap.String("prefix", cfg.RedisPrefix))
		return storage{
			profiles: redisprofilerepo.NewRepo(client, cfg.RedisPrefix),
			users:    redisuserrepo.NewRepo(client, cfg.RedisPrefix),
			idem:     redisidempotency.NewStore(client, cfg.RedisPrefix, cfg.IdempotencyTTL),
			close:    func() { _ = client.Close() },
		}, nil
	default:
		logger.Warn("memory storage; data is lost on restart")
		return storage{
			profiles: memprofilerepo.NewRepo(),
			users:    memuserrepo.NewRepo(),
			idem:     memidempotency.NewStore(),
			close:    func() {},
		}, nil
	}
}
