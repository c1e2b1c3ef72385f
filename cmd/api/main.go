package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yashdave727/csc301-a2/internal/cache"
	"github.com/yashdave727/csc301-a2/internal/config"
	"github.com/yashdave727/csc301-a2/internal/events"
	"github.com/yashdave727/csc301-a2/internal/httpx"
	"github.com/yashdave727/csc301-a2/internal/orders"
	"github.com/yashdave727/csc301-a2/internal/postgres"
	"github.com/yashdave727/csc301-a2/internal/redisx"
	"github.com/yashdave727/csc301-a2/internal/store"
)

func main() {
	_ = godotenv.Load()
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api").Logger()

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	st := store.New(db, cfg.PreserveOrderHistory)
	if err := st.Init(ctx); err != nil {
		logger.Fatal().Err(err).Msg("schema init")
	}

	ca := cache.New(rdb)

	var sink orders.EventSink
	var prod *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = events.NewProducer(cfg.KafkaBrokers, events.TopicOrderPlaced, 1024)
		prod.Start(context.Background())
		sink = &events.OrderSink{Producer: prod, ServiceName: cfg.ServiceName}
	}

	acc := orders.NewAccessor(st, ca)
	engine := orders.NewEngine(st, ca, acc, sink)

	router := httpx.NewRouter()
	h := &httpx.Handlers{Engine: engine, Reader: acc, Admin: st, Cache: ca}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server error")
	}

	if prod != nil {
		prod.Close()
		prod.WaitClosed()
	}
	logger.Info().Msg("shut down cleanly")
}
