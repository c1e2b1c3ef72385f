package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/yashdave727/csc301-a2/internal/audit"
	"github.com/yashdave727/csc301-a2/internal/cache"
	"github.com/yashdave727/csc301-a2/internal/config"
	"github.com/yashdave727/csc301-a2/internal/events"
	"github.com/yashdave727/csc301-a2/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "audit").Logger()

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &audit.Service{
		Cache:       cache.New(rdb),
		ServiceName: cfg.ServiceName + "-audit",
	}

	group := getenv("AUDIT_GROUP", "audit-svc")
	workers := mustAtoi(os.Getenv("AUDIT_WORKERS"), 4)
	cons := events.NewConsumer(cfg.KafkaBrokers, group, events.TopicOrderPlaced, workers)

	logger.Info().Str("group", group).Str("topic", events.TopicOrderPlaced).
		Int("workers", workers).Msg("audit consumer started")
	if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
		logger.Error().Err(err).Msg("consumer exit")
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
