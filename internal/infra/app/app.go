package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/arklim/clientdesk/internal/core/port"
	"github.com/arklim/clientdesk/internal/infra/config"
	"github.com/arklim/clientdesk/internal/infra/database"
	"github.com/arklim/clientdesk/internal/infra/kafka"
	"github.com/arklim/clientdesk/internal/infra/logger"
	infraredis "github.com/arklim/clientdesk/internal/infra/redis"
	"github.com/arklim/clientdesk/internal/infra/security"
	"github.com/arklim/clientdesk/internal/infra/telemetry"
	"github.com/arklim/clientdesk/internal/repository/postgres"
	redisrepo "github.com/arklim/clientdesk/internal/repository/redis"
	"github.com/arklim/clientdesk/internal/transport/http/middleware"
	"github.com/arklim/clientdesk/internal/transport/http/routes"
	"github.com/arklim/clientdesk/internal/usecase"
)

// App owns every long-lived dependency and the HTTP server lifecycle.
type App struct {
	cfg    *config.AppConfig
	logger *zap.Logger

	pool     *pgxpool.Pool
	redis    *infraredis.Client
	producer *kafka.Producer
	tracer   *telemetry.TracerProvider

	server *http.Server
}

// New wires the whole service: infrastructure clients, repositories, services
// and the HTTP surface. Kafka and tracing are optional; when unconfigured the
// service runs with a logging stub publisher and no exporter.
func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	application := &App{cfg: cfg, logger: log}

	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		application.tracer = tracer
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		application.close(ctx)
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	application.pool = pool

	redisClient, err := infraredis.NewClient(cfg.Redis, log)
	if err != nil {
		application.close(ctx)
		return nil, fmt.Errorf("init redis: %w", err)
	}
	application.redis = redisClient

	var events port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka, log)
		if err != nil {
			application.close(ctx)
			return nil, fmt.Errorf("init kafka: %w", err)
		}
		application.producer = producer
		events = kafka.NewEventPublisher(producer, cfg.App, log)
	} else {
		log.Warn("kafka brokers not configured, using stub event publisher")
		events = kafka.NewStubPublisher(log)
	}

	sessionStore := redisrepo.NewSessionRepository(redisClient.Client(), redisrepo.SessionStoreConfig{
		SessionPrefix: cfg.Session.KeyPrefix,
		TokenPrefix:   cfg.Session.TokenPrefix,
		Timeout:       cfg.Session.StoreTimeout,
	})
	accounts := postgres.NewAccountRepository(pool)
	verifier := security.NewCredentialVerifier(accounts)

	sessionService := usecase.NewSessionService(sessionStore, events, log)
	authService := usecase.NewAuthService(accounts, verifier, sessionService,
		cfg.Session.DefaultTTL, cfg.Session.RememberMeTTL, log)

	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), "clientdesk:ratelimit", cfg.RateLimit.Window)
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	engine, err := routes.Register(routes.Dependencies{
		Config:         cfg,
		Logger:         log,
		AuthService:    authService,
		SessionService: sessionService,
		SessionStore:   sessionStore,
		Accounts:       accounts,
		RateLimiter:    rateLimiter,
		Registry:       prometheus.DefaultRegisterer,
		DatabaseCheck:  pool.Ping,
		CacheCheck:     redisClient.HealthCheck,
	})
	if err != nil {
		application.close(ctx)
		return nil, fmt.Errorf("init routes: %w", err)
	}

	application.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return application, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown failed", zap.Error(err))
	}

	a.close(shutdownCtx)
	return nil
}

func (a *App) close(ctx context.Context) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("failed to close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis client", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Error("failed to shut down tracer provider", zap.Error(err))
		}
	}
}
