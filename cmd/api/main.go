package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/productstore/backend/internal/accounts"
	"github.com/productstore/backend/internal/auth"
	"github.com/productstore/backend/internal/catalog"
	"github.com/productstore/backend/internal/config"
	"github.com/productstore/backend/internal/httpx"
	kafkax "github.com/productstore/backend/internal/kafka"
	"github.com/productstore/backend/internal/memstore"
	"github.com/productstore/backend/internal/orders"
	"github.com/productstore/backend/internal/postgres"
	"github.com/productstore/backend/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when reachable, otherwise the seeded memory fallback.
	var (
		catalogStore catalog.Store
		orderStore   orders.Store
		accountStore accounts.Store
		backend      = "memory"
	)
	if cfg.StoreBackend != "memory" {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Warn("postgres unavailable, using in-memory store", zap.Error(err))
		} else {
			defer db.Close()
			if err := postgres.Ensure(ctx, db); err != nil {
				log.Fatal("ensure schema", zap.Error(err))
			}
			catalogStore = catalog.NewPGStore(db)
			orderStore = orders.NewPGStore(db)
			accountStore = accounts.NewPGStore(db)
			backend = "postgres"
		}
	}
	if backend == "memory" {
		mem := memstore.New()
		mem.Seed()
		catalogStore, orderStore, accountStore = mem, mem, mem
	}

	// Redis is optional: without it sessions live in process memory and
	// order responses are not cached.
	var rdb *redis.Client
	var sessions auth.SessionStore
	if r := redisx.New(cfg.RedisAddr); redisx.Ping(r) == nil {
		rdb = r
		defer rdb.Close()
		sessions = &auth.RedisSessions{RDB: rdb}
	} else {
		log.Warn("redis unavailable, using in-memory sessions", zap.String("addr", cfg.RedisAddr))
		sessions = auth.NewMemorySessions()
	}

	gate := &auth.Gate{Sessions: sessions, Accounts: accountStore, TTL: redisx.TTLSession}

	var pPlaced, pCancelled *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		pPlaced = kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, log)
		pPlaced.Start(context.Background())
		pCancelled = kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024, log)
		pCancelled.Start(context.Background())
	}

	engine := &orders.Engine{Store: orderStore, Accounts: accountStore, Log: log}

	router := httpx.NewRouter(backend)
	(&httpx.AccountsHandler{
		Service: &accounts.Service{Store: accountStore, Log: log},
		Gate:    gate,
	}).Register(router)
	(&httpx.ProductsHandler{Store: catalogStore, Gate: gate}).Register(router)
	(&httpx.OrdersHandler{
		Engine:            engine,
		Gate:              gate,
		PlacedProducer:    pPlaced,
		CancelledProducer: pCancelled,
		Redis:             rdb,
		Service:           cfg.ServiceName,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("backend", backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", zap.Error(err))
	}

	for _, p := range []*kafkax.Producer{pPlaced, pCancelled} {
		if p != nil {
			p.Close()
			p.WaitClosed()
		}
	}
}
