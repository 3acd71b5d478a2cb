package main

import (
	"context"
	"os"

	"brokemate/internal/auth"
	"brokemate/internal/cli"
	apphttp "brokemate/internal/http"
	"brokemate/internal/log"
	"brokemate/internal/services"
	"brokemate/internal/session"
	"brokemate/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(cfg)
	logger.Info("Starting brokemate", "port", cfg.Port, "db_driver", cfg.DBDriver, "session_backend", cfg.SessionBackend)

	ctx := context.Background()

	repo, err := storage.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to open database", "error", err, "driver", cfg.DBDriver)
		os.Exit(1)
	}
	defer repo.Close()

	sessions, err := cli.OpenSessionStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open session store", "error", err, "backend", cfg.SessionBackend)
		os.Exit(1)
	}
	defer sessions.Close()

	categorizer := cli.NewCategorizer(cfg, logger)
	defer categorizer.Close()

	// A nil *amqp.Client must not reach the service as a non-nil interface.
	var events services.EventPublisher
	if client := cli.ConnectAMQP(cfg, logger); client != nil {
		defer client.Close()
		events = client
	}

	codec := session.NewCodec([]byte(cfg.SessionSecret), cfg.SessionTTL)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Auth:               auth.NewService(repo, sessions, codec),
		Transactions:       services.NewTransactionService(repo, categorizer, events),
		Codec:              codec,
		CookieSecure:       cfg.CookieSecure,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(log.ComponentHTTP),
		Ready: map[string]apphttp.Pinger{
			"database": repo,
			"sessions": sessions,
		},
	})

	if err := cli.Run(ctx, logger, srv); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
