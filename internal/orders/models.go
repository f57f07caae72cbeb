package orders

import "time"

// CartLine is one requested (product, quantity) pair. Ephemeral: it lives
// only for the duration of a single PlaceOrder call.
type CartLine struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// OrderLine snapshots the product's unit price at reservation time, so later
// catalog price changes never touch historical orders.
type OrderLine struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

func (l OrderLine) SubtotalCents() int { return l.Qty * l.PriceCents }

// Order is immutable once created except for status transitions.
type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Lines      []OrderLine `json:"lines"`
	TotalCents int         `json:"total_cents"`
	Status     Status      `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
