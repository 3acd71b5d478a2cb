// Package cli wires configuration into the collaborators the brokemate
// server needs and runs it until a shutdown signal arrives.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"brokemate/internal/amqp"
	"brokemate/internal/cache"
	"brokemate/internal/classifier"
	"brokemate/internal/config"
	apphttp "brokemate/internal/http"
	"brokemate/internal/log"
	"brokemate/internal/session"
)

const classifierCacheTTL = time.Hour

// ShutdownTimeout bounds how long in-flight requests may take to finish.
const ShutdownTimeout = 30 * time.Second

// SetupLogger initializes structured logging at the configured level and
// sets it as the default logger.
func SetupLogger(cfg *config.Config) *log.Logger {
	c := log.DefaultConfig()
	c.Level = cfg.Level()
	logger := log.New(c)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads configuration and validates it.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SessionStore is a session.Store that can report readiness and be closed.
type SessionStore interface {
	session.Store
	apphttp.Pinger
	Close() error
}

type memoryStore struct {
	*session.MemoryStore
}

func (memoryStore) Ping(context.Context) error { return nil }

func (m memoryStore) Close() error {
	m.Stop()
	return nil
}

// OpenSessionStore returns the store selected by SESSION_BACKEND.
func OpenSessionStore(ctx context.Context, cfg *config.Config) (SessionStore, error) {
	switch cfg.SessionBackend {
	case "redis":
		client, err := session.NewRedisClient(ctx, session.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return session.NewRedisStore(client, cfg.SessionTTL), nil
	case "memory", "":
		return memoryStore{session.NewMemoryStore(cfg.SessionTTL)}, nil
	}
	return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
}

// NewCategorizer returns a categorizer backed by the remote classifier, or a
// disabled one that always answers the default category.
func NewCategorizer(cfg *config.Config, logger *log.Logger) *classifier.Categorizer {
	if !cfg.ClassifierEnabled || cfg.ClassifierURL == "" {
		logger.Info("Classifier disabled, all transactions will be categorized as General")
		return classifier.NewCategorizer(nil, 0)
	}
	logger.Info("Classifier enabled", "url", cfg.ClassifierURL, "timeout", cfg.ClassifierTimeout, "cache_size", cfg.ClassifierCacheSize)
	c := classifier.NewCategorizer(classifier.NewHuggingFaceClient(cfg.ClassifierURL, cfg.ClassifierToken), cfg.ClassifierTimeout)
	if cfg.ClassifierCacheSize > 0 {
		c.WithCache(cache.NewLRUCache[string](cfg.ClassifierCacheSize, classifierCacheTTL))
	}
	return c
}

// ConnectAMQP connects the optional event publisher. A nil client means
// events are disabled; connection failures are logged and not fatal.
func ConnectAMQP(cfg *config.Config, logger *log.Logger) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled, transaction events will not be published")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// Server is the part of *apphttp.Server that Run drives.
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts the
// server down within ShutdownTimeout.
func Run(ctx context.Context, logger *log.Logger, srv Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
