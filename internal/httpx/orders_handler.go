package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/productstore/backend/internal/apperr"
	"github.com/productstore/backend/internal/auth"
	kafkax "github.com/productstore/backend/internal/kafka"
	"github.com/productstore/backend/internal/orders"
	"github.com/productstore/backend/internal/redisx"
)

type OrdersHandler struct {
	Engine *orders.Engine
	Gate   *auth.Gate

	// Producers and Redis are optional; without them the API still serves
	// orders, it just skips events and response caching.
	PlacedProducer    *kafkax.Producer
	CancelledProducer *kafkax.Producer
	Redis             *redis.Client
	Service           string
}

type createOrderReq struct {
	Items []orders.CartLine `json:"items"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(Authenticator(h.Gate))
		r.Post("/api/orders", h.create)
		r.Get("/api/orders", h.list)
		r.Get("/api/orders/{id}", h.get)
		r.Post("/api/orders/{id}/cancel", h.cancel)
	})
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.CodeInvalidArgument, "invalid json"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := AccountFrom(r.Context())
	o, err := h.Engine.PlaceOrder(ctx, user.ID, req.Items)
	if err != nil {
		writeError(w, err)
		return
	}

	h.publish(h.PlacedProducer, orders.EventOrderPlaced, o.ID, middleware.GetReqID(r.Context()),
		orders.OrderPlacedPayload{OrderID: o.ID, UserID: o.UserID, Lines: o.Lines, TotalCents: o.TotalCents})

	writeJSON(w, http.StatusCreated, map[string]any{"message": "Order created successfully", "order": o})
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	user := AccountFrom(r.Context())
	os, err := h.Engine.ListOrders(ctx, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if os == nil {
		os = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": os})
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	user := AccountFrom(r.Context())

	// Cached body first. Keys carry the owner id so one user can never read
	// another's cached order.
	key := fmt.Sprintf(redisx.KeyOrderBody, user.ID+":"+orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	o, err := h.Engine.GetOrder(ctx, user.ID, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	body := map[string]any{"order": o}
	if h.Redis != nil {
		b, _ := json.Marshal(body)
		_ = h.Redis.Set(ctx, key, b, redisx.TTLOrderCache).Err()
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := AccountFrom(r.Context())
	o, err := h.Engine.CancelOrder(ctx, user.ID, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderBody, user.ID+":"+orderID)).Err()
	}

	h.publish(h.CancelledProducer, orders.EventOrderCancelled, o.ID, middleware.GetReqID(r.Context()),
		orders.OrderCancelledPayload{OrderID: o.ID, UserID: o.UserID, Lines: o.Lines})

	writeJSON(w, http.StatusOK, map[string]any{"message": "Order cancelled successfully", "order": o})
}

func (h *OrdersHandler) publish(p *kafkax.Producer, eventType, orderID, traceID string, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
