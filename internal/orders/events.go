package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced    = "OrderPlaced"
	EventOrderCancelled = "OrderCancelled"
	EventOrderFulfilled = "OrderFulfilled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID    string      `json:"order_id"`
	UserID     string      `json:"user_id"`
	Lines      []OrderLine `json:"lines"`
	TotalCents int         `json:"total_cents"`
}

type OrderCancelledPayload struct {
	OrderID string      `json:"order_id"`
	UserID  string      `json:"user_id"`
	Lines   []OrderLine `json:"lines"` // restocked quantities
}

type OrderFulfilledPayload struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}
