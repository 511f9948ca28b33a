package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Skotchmaster/auth_gateway/internal/config"
	"github.com/Skotchmaster/auth_gateway/internal/db"
	"github.com/Skotchmaster/auth_gateway/internal/events"
	"github.com/Skotchmaster/auth_gateway/internal/hash"
	"github.com/Skotchmaster/auth_gateway/internal/httpserver"
	"github.com/Skotchmaster/auth_gateway/internal/logging"
	"github.com/Skotchmaster/auth_gateway/internal/metrics"
	"github.com/Skotchmaster/auth_gateway/internal/repo"
	"github.com/Skotchmaster/auth_gateway/internal/revocation"
	"github.com/Skotchmaster/auth_gateway/internal/service"
	"github.com/Skotchmaster/auth_gateway/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", "auth")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	registry, rdb, err := newRegistry(ctx, cfg)
	if err != nil {
		log.Fatalf("revocation registry: %v", err)
	}
	if mem, ok := registry.(*revocation.Memory); ok {
		sw := &revocation.Sweeper{Registry: mem, Interval: cfg.SweepInterval}
		go sw.Run(logging.IntoContext(ctx, logger))
	}

	ts, err := tokens.NewService(cfg.JWTSecret, cfg.TokenTTL, registry, tokens.WithIssuer(cfg.JWTIssuer))
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	sink := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaMaxAttempts)
	pub := events.NewAsyncPublisher(sink, events.Options{
		Buffer:  cfg.EventsBuffer,
		Workers: cfg.EventsWorkers,
		Timeout: cfg.EventsPublishTimeout,
		Logger:  logger,
	})

	metrics.Register(prometheus.DefaultRegisterer)

	svc := &service.AuthService{
		Store:  repo.NewGormRepo(gdb),
		Hasher: hash.Bcrypt{Cost: bcrypt.DefaultCost},
		Tokens: ts,
		Events: pub,
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
		Prefix:      cfg.APIPrefix,
		Logger:      logger,
		Ready:       readiness(gdb, rdb),
	})

	go func() {
		logger.Info("http_listen", "addr", cfg.ListenAddr)
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown_started")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown", "error", err)
	}
	if err := pub.Close(shutdownCtx); err != nil {
		logger.Warn("publisher_close", "error", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Warn("redis_close", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Warn("db_close", "error", err)
	}
	logger.Info("shutdown_complete")
}

// newRegistry returns the shared Redis registry when REDIS_ADDR is set and
// the process-local one otherwise.
func newRegistry(ctx context.Context, cfg *config.Config) (revocation.Registry, *redis.Client, error) {
	if cfg.RedisAddr == "" {
		return revocation.NewMemory(), nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	reg := revocation.NewRedis(rdb, "")

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := reg.Ping(pingCtx); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return reg, rdb, nil
}

func readiness(gdb *gorm.DB, rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := db.Ping(ctx, gdb); err != nil {
			return err
		}
		if rdb != nil {
			return rdb.Ping(ctx).Err()
		}
		return nil
	}
}
