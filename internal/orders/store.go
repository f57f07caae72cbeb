package orders

import "context"

// Store is the order persistence capability. CreateOrder is the reservation
// protocol: checking stock, decrementing it, snapshotting prices, and
// persisting the order must be one atomic unit: either every line is
// reserved and the order is durable, or nothing changed. A concurrent-
// modification loss is reported as CodeConflict so the engine can retry the
// whole operation.
//
// Carts reaching CreateOrder are pre-validated: non-empty, positive
// quantities, no duplicated product ids.
type Store interface {
	CreateOrder(ctx context.Context, userID string, cart []CartLine) (*Order, error)

	// GetOrder is ownership-scoped: an order belonging to another user is
	// reported as not found, never as forbidden.
	GetOrder(ctx context.Context, userID, orderID string) (*Order, error)
	ListOrders(ctx context.Context, userID string) ([]Order, error)

	// CancelOrder transitions pending->cancelled and restocks every line as
	// one atomic compensation.
	CancelOrder(ctx context.Context, userID, orderID string) (*Order, error)

	// MarkFulfilled transitions pending->fulfilled. Not ownership-scoped:
	// it is driven by the fulfillment worker, not by callers.
	MarkFulfilled(ctx context.Context, orderID string) (*Order, error)
}
