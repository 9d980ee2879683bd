package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/app"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/auth"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/config"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/guidance"
	internalhttp "github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/http"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/identity"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/lifecycle"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/membership"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/repository"
)

func main() {
	cfg := config.Load()

	logger := app.NewLogger(cfg.Environment)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connection failed", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir)
	if err != nil {
		logger.Fatal("migrator init failed", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	_ = migrator.Close()

	// Redis backs the tenant login throttle; without it logins are not
	// rate limited but everything else works.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, login throttle disabled", zap.Error(err))
			redisClient = nil
		}
	}

	store := repository.NewStore(pool)
	throttle := auth.NewLoginThrottle(redisClient, cfg.LoginAttemptLimit, cfg.LoginAttemptWindow)
	resolver := auth.NewResolver(
		auth.NewTokenStrategy(cfg.JWTSecret, cfg.JWTIssuer, store),
		auth.NewTenantCredentialStrategy(store, throttle),
	)

	provider := identity.NewClient(cfg.IdentityBaseURL, cfg.IdentityToken, cfg.IdentityTimeout)
	engine := lifecycle.NewEngine(store, logger)
	coordinator := membership.NewCoordinator(store, provider, logger)
	scope := guidance.NewScope(store)

	server := internalhttp.NewServer(cfg, store, resolver, engine, coordinator, scope, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
