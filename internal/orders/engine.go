package orders

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/productstore/backend/internal/accounts"
	"github.com/productstore/backend/internal/apperr"
)

const (
	placeAttempts = 3
	retryBackoff  = 25 * time.Millisecond
)

// Engine owns the order lifecycle. Validation happens here; atomicity is the
// store's contract. Conflict errors from the store retry the whole
// PlaceOrder, not just the decrement, so the price snapshot and total always
// come from one consistent attempt.
type Engine struct {
	Store    Store
	Accounts accounts.Store
	Log      *zap.Logger
}

func (e *Engine) PlaceOrder(ctx context.Context, userID string, cart []CartLine) (*Order, error) {
	if err := e.authorize(ctx, userID); err != nil {
		return nil, err
	}
	if err := validateCart(cart); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < placeAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, apperr.Wrap(apperr.CodeConflict, ctx.Err(), "order placement interrupted")
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}

		o, err := e.Store.CreateOrder(ctx, userID, cart)
		if err == nil {
			e.Log.Info("order placed",
				zap.String("order_id", o.ID),
				zap.String("user_id", userID),
				zap.Int("total_cents", o.TotalCents),
				zap.Int("lines", len(o.Lines)))
			return o, nil
		}
		if !apperr.IsCode(err, apperr.CodeConflict) {
			return nil, err
		}
		lastErr = err
		e.Log.Warn("order placement conflict, retrying",
			zap.String("user_id", userID), zap.Int("attempt", attempt+1))
	}
	return nil, lastErr
}

func (e *Engine) GetOrder(ctx context.Context, userID, orderID string) (*Order, error) {
	if err := e.authorize(ctx, userID); err != nil {
		return nil, err
	}
	return e.Store.GetOrder(ctx, userID, orderID)
}

func (e *Engine) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	if err := e.authorize(ctx, userID); err != nil {
		return nil, err
	}
	return e.Store.ListOrders(ctx, userID)
}

func (e *Engine) CancelOrder(ctx context.Context, userID, orderID string) (*Order, error) {
	if err := e.authorize(ctx, userID); err != nil {
		return nil, err
	}
	o, err := e.Store.CancelOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	e.Log.Info("order cancelled", zap.String("order_id", o.ID), zap.String("user_id", userID))
	return o, nil
}

// MarkFulfilled is the internal transition driven by the fulfillment worker.
func (e *Engine) MarkFulfilled(ctx context.Context, orderID string) (*Order, error) {
	o, err := e.Store.MarkFulfilled(ctx, orderID)
	if err != nil {
		return nil, err
	}
	e.Log.Info("order fulfilled", zap.String("order_id", o.ID))
	return o, nil
}

func (e *Engine) authorize(ctx context.Context, userID string) error {
	if userID == "" {
		return apperr.New(apperr.CodeUnauthorized, "missing identity")
	}
	if _, err := e.Accounts.ByID(ctx, userID); err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return apperr.New(apperr.CodeUnauthorized, "unknown identity")
		}
		return err
	}
	return nil
}

// validateCart rejects empty carts, non-positive quantities and duplicated
// product ids. Duplicates are rejected rather than merged to keep the
// contract unambiguous.
func validateCart(cart []CartLine) error {
	if len(cart) == 0 {
		return apperr.New(apperr.CodeInvalidArgument, "cart is empty")
	}
	seen := make(map[string]bool, len(cart))
	for _, l := range cart {
		if l.ProductID == "" {
			return apperr.New(apperr.CodeInvalidArgument, "missing product id")
		}
		if l.Qty <= 0 {
			return apperr.New(apperr.CodeInvalidArgument, "invalid qty for product %s", l.ProductID)
		}
		if seen[l.ProductID] {
			return apperr.New(apperr.CodeInvalidArgument, "duplicate product in cart: %s", l.ProductID)
		}
		seen[l.ProductID] = true
	}
	return nil
}

// sortedByProduct copies the cart ordered by product id, the lock-acquisition
// order every backend uses to avoid deadlock between multi-product orders.
func sortedByProduct(cart []CartLine) []CartLine {
	out := make([]CartLine, len(cart))
	copy(out, cart)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
