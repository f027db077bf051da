package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/evans-manyala/enxero/internal/core/port"
	"github.com/evans-manyala/enxero/internal/infra/config"
	"github.com/evans-manyala/enxero/internal/infra/database"
	"github.com/evans-manyala/enxero/internal/infra/events"
	kafkainfra "github.com/evans-manyala/enxero/internal/infra/kafka"
	"github.com/evans-manyala/enxero/internal/infra/logger"
	"github.com/evans-manyala/enxero/internal/infra/rabbitmq"
	redisinfra "github.com/evans-manyala/enxero/internal/infra/redis"
	"github.com/evans-manyala/enxero/internal/infra/security"
	"github.com/evans-manyala/enxero/internal/infra/telemetry"
	postgresrepo "github.com/evans-manyala/enxero/internal/repository/postgres"
	redisrepo "github.com/evans-manyala/enxero/internal/repository/redis"
	"github.com/evans-manyala/enxero/internal/transport/http/middleware"
	"github.com/evans-manyala/enxero/internal/transport/http/routes"
	"github.com/evans-manyala/enxero/internal/usecase"
)

// Version is stamped at build time with -ldflags "-X .../internal/infra/app.Version=...".
var Version = "dev"

const metricsNamespace = "enxero"

// Application owns the wired services and the resources they hold.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *goredis.Client
	tracer   *telemetry.TracerProvider
	sessions *usecase.SessionService
	closers  []func() error
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Application) build(ctx context.Context) error {
	cfg, log := a.cfg, a.logger

	tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, Version, log)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.tracer = tp

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	a.pool = pool

	var (
		revocations port.AccessRevocationStore
		rateLimiter *middleware.RateLimiter
	)
	if cfg.Redis.Enabled {
		client, err := redisinfra.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		a.redis = client
		revocations = redisrepo.NewRevocationStore(client, cfg.Redis.RevocationPrefix)
		rateLimiter = middleware.NewRateLimiter(redisrepo.NewRateLimitStore(client, cfg.RateLimit.KeyPrefix), log)
	} else {
		log.Info("redis disabled; access tokens stay valid until expiry and login is not rate limited")
	}

	publisher, err := a.newPublisher()
	if err != nil {
		return fmt.Errorf("init event publisher: %w", err)
	}

	authMetrics, err := telemetry.NewAuthMetrics(prometheus.DefaultRegisterer, metricsNamespace)
	if err != nil {
		return fmt.Errorf("init auth metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		Registerer: prometheus.DefaultRegisterer,
		Namespace:  metricsNamespace,
	})
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return fmt.Errorf("init password hasher: %w", err)
	}

	issuer, err := security.NewJWTIssuer(security.JWTIssuerConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Issuer:        cfg.App.Name,
		AccessTTL:     cfg.JWT.AccessTokenTTL,
		RefreshTTL:    cfg.JWT.RefreshTokenTTL,
	})
	if err != nil {
		return fmt.Errorf("init token issuer: %w", err)
	}

	policy := security.NewPasswordPolicy(security.PasswordPolicyConfig{
		MinLength:      cfg.PasswordPolicy.MinLength,
		MinCharClasses: cfg.PasswordPolicy.MinCharClasses,
		MinZxcvbnScore: cfg.PasswordPolicy.MinZxcvbnScore,
	})

	repos := postgresrepo.NewRepositories(pool)

	activity := usecase.NewActivityLogger(repos.Activities, publisher, log)

	lockout := usecase.NewLockoutTracker(repos.Accounts, repos.LoginAttempts, activity, usecase.LockoutConfig{
		Threshold:     cfg.Auth.LockoutThreshold,
		Window:        cfg.Auth.LockoutWindow,
		Duration:      cfg.Auth.LockoutDuration,
		RevocationTTL: cfg.JWT.AccessTokenTTL,
	}, log).WithMetrics(authMetrics)

	sessions := usecase.NewSessionService(repos.Sessions, repos.LoginAttempts, activity, usecase.SessionConfig{
		TTL:              cfg.Auth.SessionTTL,
		AttemptRetention: cfg.Auth.AttemptRetention,
		RevocationTTL:    cfg.JWT.AccessTokenTTL,
	}, log).WithMetrics(authMetrics)
	a.sessions = sessions

	accounts := usecase.NewAccountService(repos.Accounts, hasher, policy, activity, cfg.Auth.PasswordHistoryMax, log)

	auth := usecase.NewAuthService(usecase.AuthDependencies{
		Accounts: repos.Accounts,
		Roles:    repos.Roles,
		Tx:       repos.Tx,
		Hasher:   hasher,
		Policy:   policy,
		Issuer:   issuer,
		Lockout:  lockout,
		Sessions: sessions,
		Activity: activity,
		Logger:   log,
	}, usecase.AuthConfig{
		DefaultRole:     cfg.Auth.DefaultRole,
		HistorySize:     cfg.Auth.PasswordHistoryMax,
		AccessTokenTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTokenTTL: cfg.JWT.RefreshTokenTTL,
	}).WithMetrics(authMetrics)

	deps := routes.Dependencies{
		Config:         cfg,
		Logger:         log,
		Auth:           auth,
		Accounts:       accounts,
		Sessions:       sessions,
		RateLimiter:    rateLimiter,
		HTTPMetrics:    httpMetrics,
		TracerProvider: tp.Provider(),
		Gatherer:       prometheus.DefaultGatherer,
		Database:       pool,
	}

	if revocations != nil {
		lockout.WithRevocationStore(revocations)
		sessions.WithRevocationStore(revocations)
		auth.WithRevocationStore(revocations)
	}
	if a.redis != nil {
		client := a.redis
		deps.Cache = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	a.engine = routes.Register(deps)
	return nil
}

// newPublisher selects the security event transport named by events.driver.
func (a *Application) newPublisher() (port.EventPublisher, error) {
	cfg, log := a.cfg, a.logger

	switch cfg.Events.Driver {
	case "kafka":
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, producer.Close)
		return kafkainfra.NewEventPublisher(producer, cfg.App), nil
	case "rabbitmq":
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ, cfg.App, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, publisher.Close)
		return publisher, nil
	default:
		return events.NewLogPublisher(log), nil
	}
}

// Sweep runs one housekeeping pass over expired sessions and stale login attempts.
func (a *Application) Sweep(ctx context.Context) (usecase.SweepResult, error) {
	return a.sessions.Sweep(ctx)
}

// Logger returns the application logger.
func (a *Application) Logger() *zap.Logger {
	return a.logger
}

func (a *Application) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
		zap.String("version", Version),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		a.logger.Info("auth API stopped")
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// Close releases every resource acquired by New, in reverse order.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close publisher", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("shutdown tracer provider", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
