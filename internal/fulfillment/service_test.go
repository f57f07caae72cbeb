package fulfillment_test

import (
	"context"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/productstore/backend/internal/accounts"
	"github.com/productstore/backend/internal/apperr"
	"github.com/productstore/backend/internal/catalog"
	"github.com/productstore/backend/internal/fulfillment"
	kafkax "github.com/productstore/backend/internal/kafka"
	"github.com/productstore/backend/internal/memstore"
	"github.com/productstore/backend/internal/orders"
)

func setup(t *testing.T) (*fulfillment.Service, *orders.Engine, *memstore.Store) {
	t.Helper()
	s := memstore.New()
	now := time.Now().UTC()
	require.NoError(t, s.CreateAccount(context.Background(), &accounts.Account{
		ID: "u1", Username: "alice", Email: "alice@example.com", CreatedAt: now,
	}))
	require.NoError(t, s.Create(context.Background(), &catalog.Product{
		ID: "p1", Name: "Widget", Description: "d", PriceCents: 100, Category: "C", Stock: 10,
		CreatedAt: now, UpdatedAt: now,
	}))
	engine := &orders.Engine{Store: s, Accounts: s, Log: zap.NewNop()}
	svc := &fulfillment.Service{Engine: engine, ServiceName: "test-fulfillment", Log: zap.NewNop()}
	return svc, engine, s
}

func placedMessage(t *testing.T, o *orders.Order) kafkago.Message {
	t.Helper()
	env := orders.Envelope{
		EventID:       "ev-1",
		EventType:     orders.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      "test-api",
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderPlacedPayload{
			OrderID: o.ID, UserID: o.UserID, Lines: o.Lines, TotalCents: o.TotalCents,
		}),
	}
	return kafkago.Message{Key: orders.PartitionKey(o.ID), Value: kafkax.MustMarshal(env)}
}

func TestHandleOrderPlaced_Fulfills(t *testing.T) {
	svc, engine, _ := setup(t)
	o, err := engine.PlaceOrder(context.Background(), "u1", []orders.CartLine{{ProductID: "p1", Qty: 2}})
	require.NoError(t, err)

	require.NoError(t, svc.HandleOrderPlaced(context.Background(), placedMessage(t, o)))

	got, err := engine.GetOrder(context.Background(), "u1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusFulfilled, got.Status)
}

func TestHandleOrderPlaced_SkipsForeignEventTypes(t *testing.T) {
	svc, engine, _ := setup(t)
	o, err := engine.PlaceOrder(context.Background(), "u1", []orders.CartLine{{ProductID: "p1", Qty: 1}})
	require.NoError(t, err)

	m := placedMessage(t, o)
	env := orders.Envelope{EventType: "SomethingElse"}
	m.Value = kafkax.MustMarshal(env)
	require.NoError(t, svc.HandleOrderPlaced(context.Background(), m))

	got, err := engine.GetOrder(context.Background(), "u1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, got.Status)
}

func TestHandleOrderPlaced_CancelledOrderIsSkippedNotRetried(t *testing.T) {
	svc, engine, _ := setup(t)
	o, err := engine.PlaceOrder(context.Background(), "u1", []orders.CartLine{{ProductID: "p1", Qty: 1}})
	require.NoError(t, err)
	_, err = engine.CancelOrder(context.Background(), "u1", o.ID)
	require.NoError(t, err)

	// nil return commits the offset; a cancelled order must not poison the
	// consumer with endless retries.
	require.NoError(t, svc.HandleOrderPlaced(context.Background(), placedMessage(t, o)))

	got, err := engine.GetOrder(context.Background(), "u1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, got.Status)
}

type memoryDedup struct{ seen map[string]bool }

func (d *memoryDedup) Seen(_ context.Context, id string) (bool, error) { return d.seen[id], nil }
func (d *memoryDedup) Mark(_ context.Context, id string) error         { d.seen[id] = true; return nil }

// flakyStore fails MarkFulfilled a fixed number of times before delegating.
type flakyStore struct {
	orders.Store
	failures int
}

func (s *flakyStore) MarkFulfilled(ctx context.Context, orderID string) (*orders.Order, error) {
	if s.failures > 0 {
		s.failures--
		return nil, apperr.New(apperr.CodeInternal, "store briefly down")
	}
	return s.Store.MarkFulfilled(ctx, orderID)
}

// An event whose transition failed transiently must stay unmarked, so the
// kafka redelivery is processed instead of being skipped as a duplicate.
func TestHandleOrderPlaced_TransientFailureNotMarkedProcessed(t *testing.T) {
	s := memstore.New()
	now := time.Now().UTC()
	require.NoError(t, s.CreateAccount(context.Background(), &accounts.Account{
		ID: "u1", Username: "alice", Email: "alice@example.com", CreatedAt: now,
	}))
	require.NoError(t, s.Create(context.Background(), &catalog.Product{
		ID: "p1", Name: "Widget", Description: "d", PriceCents: 100, Category: "C", Stock: 10,
		CreatedAt: now, UpdatedAt: now,
	}))

	flaky := &flakyStore{Store: s, failures: 1}
	engine := &orders.Engine{Store: flaky, Accounts: s, Log: zap.NewNop()}
	dedup := &memoryDedup{seen: map[string]bool{}}
	svc := &fulfillment.Service{Engine: engine, Dedup: dedup, ServiceName: "test-fulfillment", Log: zap.NewNop()}

	o, err := engine.PlaceOrder(context.Background(), "u1", []orders.CartLine{{ProductID: "p1", Qty: 1}})
	require.NoError(t, err)
	m := placedMessage(t, o)

	// First delivery hits the transient failure: the error propagates so the
	// offset is not committed, and the event is not remembered as processed.
	require.Error(t, svc.HandleOrderPlaced(context.Background(), m))
	assert.False(t, dedup.seen["ev-1"])

	// Redelivery goes through and only then marks the event.
	require.NoError(t, svc.HandleOrderPlaced(context.Background(), m))
	assert.True(t, dedup.seen["ev-1"])
	got, err := engine.GetOrder(context.Background(), "u1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusFulfilled, got.Status)

	// A replay of the processed event is now a cheap skip.
	require.NoError(t, svc.HandleOrderPlaced(context.Background(), m))
}

func TestHandleOrderPlaced_MalformedMessage(t *testing.T) {
	svc, _, _ := setup(t)
	err := svc.HandleOrderPlaced(context.Background(), kafkago.Message{Value: []byte("{not json")})
	assert.Error(t, err)
}
