package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/productstore/backend/internal/config"
	"github.com/productstore/backend/internal/fulfillment"
	kafkax "github.com/productstore/backend/internal/kafka"
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

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required for the fulfillment worker")
	}

	// The worker shares state with the API through postgres only; the
	// memory backend is process-local and cannot feed it.
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer db.Close()

	var rdb *redis.Client
	if r := redisx.New(cfg.RedisAddr); redisx.Ping(r) == nil {
		rdb = r
		defer rdb.Close()
	} else {
		log.Warn("redis unavailable, event dedup disabled", zap.String("addr", cfg.RedisAddr))
	}

	producer := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderFulfilled, 1024, log)
	producer.Start(context.Background())

	svc := &fulfillment.Service{
		Engine:      &orders.Engine{Store: orders.NewPGStore(db), Log: log},
		Redis:       rdb,
		Producer:    producer,
		ServiceName: cfg.ServiceName + "-fulfillment",
		Log:         log,
	}
	if rdb != nil {
		svc.Dedup = &fulfillment.RedisDedup{RDB: rdb, Service: "fulfillment"}
	}

	group := getenv("FULFILLMENT_GROUP", "fulfillment-svc")
	workers := mustAtoi(os.Getenv("FULFILLMENT_WORKERS"), 8)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderPlaced, workers, log)

	log.Info("fulfillment consumer started",
		zap.String("group", group), zap.String("topic", orders.TopicOrderPlaced), zap.Int("workers", workers))
	if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
		log.Error("consumer exit", zap.Error(err))
	}

	time.Sleep(500 * time.Millisecond)
	producer.Close()
	producer.WaitClosed()
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
