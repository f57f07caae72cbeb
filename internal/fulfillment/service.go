// Package fulfillment consumes order.placed events and moves orders
// pending -> fulfilled. Handlers are idempotent: replayed events dedup via
// redis, and an order already past pending is skipped, not retried.
package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/productstore/backend/internal/apperr"
	kafkax "github.com/productstore/backend/internal/kafka"
	"github.com/productstore/backend/internal/orders"
	"github.com/productstore/backend/internal/redisx"
)

// Dedup remembers event ids that finished processing, so replays of an
// already-applied event are skipped cheaply. An event is marked only after
// its transition succeeded; a transient failure leaves it unmarked so the
// redelivery is processed, not dropped.
type Dedup interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type RedisDedup struct {
	RDB     *redis.Client
	Service string
}

func (d *RedisDedup) Seen(ctx context.Context, eventID string) (bool, error) {
	return redisx.Exists(ctx, d.RDB, fmt.Sprintf(redisx.KeyDedup, d.Service, eventID))
}

func (d *RedisDedup) Mark(ctx context.Context, eventID string) error {
	return d.RDB.Set(ctx, fmt.Sprintf(redisx.KeyDedup, d.Service, eventID), "1", redisx.TTLDedup).Err()
}

type Service struct {
	Engine      *orders.Engine
	Dedup       Dedup
	Redis       *redis.Client
	Producer    *kafkax.Producer // publishes order.fulfilled
	ServiceName string
	Log         *zap.Logger
}

func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	if s.Dedup != nil {
		if seen, err := s.Dedup.Seen(ctx, env.EventID); err == nil && seen {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}

	o, err := s.Engine.MarkFulfilled(ctx, p.OrderID)
	if err != nil {
		// Cancelled or already fulfilled: nothing left to do for this event.
		if apperr.IsCode(err, apperr.CodeConflict) || apperr.IsCode(err, apperr.CodeNotFound) {
			s.Log.Info("skipping order", zap.String("order_id", p.OrderID), zap.Error(err))
			return nil
		}
		return err
	}

	if s.Dedup != nil {
		if err := s.Dedup.Mark(ctx, env.EventID); err != nil {
			s.Log.Warn("dedup mark failed", zap.String("event_id", env.EventID), zap.Error(err))
		}
	}
	if s.Redis != nil {
		_ = s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderBody, o.UserID+":"+o.ID)).Err()
	}
	s.publishFulfilled(o, env.TraceID)
	return nil
}

func (s *Service) publishFulfilled(o *orders.Order, trace string) {
	if s.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderFulfilled,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: o.ID,
		Payload:       kafkax.MustMarshal(orders.OrderFulfilledPayload{OrderID: o.ID, UserID: o.UserID}),
	}
	s.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderFulfilled)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
