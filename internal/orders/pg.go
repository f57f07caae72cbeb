package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/productstore/backend/internal/apperr"
)

type PGStore struct{ DB *pgxpool.Pool }

func NewPGStore(db *pgxpool.Pool) *PGStore { return &PGStore{DB: db} }

// CreateOrder reserves stock with a conditional decrement per line
// (stock >= qty guard) inside one transaction, lines taken in sorted
// product-id order. The same UPDATE returns the unit price, so the snapshot
// and the decrement come from the same row version.
func (s *PGStore) CreateOrder(ctx context.Context, userID string, cart []CartLine) (*Order, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	prices := make(map[string]int, len(cart))
	for _, l := range sortedByProduct(cart) {
		var price int
		err := tx.QueryRow(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND stock >= $2
			RETURNING price_cents`, l.ProductID, l.Qty).Scan(&price)
		if errors.Is(err, pgx.ErrNoRows) {
			// Missing product or short stock; tell them apart.
			var available int
			err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, l.ProductID).Scan(&available)
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperr.New(apperr.CodeNotFound, "product not found: %s", l.ProductID)
			}
			if err != nil {
				return nil, classifyPg(err, "check stock")
			}
			return nil, apperr.Wrap(apperr.CodeInsufficientStock,
				&StockError{ProductID: l.ProductID, Requested: l.Qty, Available: available},
				"insufficient stock")
		}
		if err != nil {
			return nil, classifyPg(err, "reserve stock")
		}
		prices[l.ProductID] = price
	}

	now := time.Now().UTC()
	o := &Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// Lines keep the caller's cart order; sorting above was lock order only.
	for _, l := range cart {
		line := OrderLine{ProductID: l.ProductID, Qty: l.Qty, PriceCents: prices[l.ProductID]}
		o.Lines = append(o.Lines, line)
		o.TotalCents += line.SubtotalCents()
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, total_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.UserID, o.Status, o.TotalCents, o.CreatedAt, o.UpdatedAt); err != nil {
		return nil, classifyPg(err, "insert order")
	}
	for i, line := range o.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, line_no, product_id, qty, price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, i, line.ProductID, line.Qty, line.PriceCents); err != nil {
			return nil, classifyPg(err, "insert order line")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyPg(err, "commit order")
	}
	return o, nil
}

func (s *PGStore) GetOrder(ctx context.Context, userID, orderID string) (*Order, error) {
	o, err := s.scanOrder(ctx, s.DB, orderID, userID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PGStore) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT o.id, o.user_id, o.status, o.total_cents, o.created_at, o.updated_at,
		       i.product_id, i.qty, i.price_cents
		FROM orders o
		JOIN order_items i ON i.order_id = o.id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id, i.line_no`, userID)
	if err != nil {
		return nil, classifyPg(err, "list orders")
	}
	defer rows.Close()

	var out []Order
	idx := make(map[string]int)
	for rows.Next() {
		var o Order
		var line OrderLine
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt,
			&line.ProductID, &line.Qty, &line.PriceCents); err != nil {
			return nil, classifyPg(err, "scan order")
		}
		i, ok := idx[o.ID]
		if !ok {
			out = append(out, o)
			i = len(out) - 1
			idx[o.ID] = i
		}
		out[i].Lines = append(out[i].Lines, line)
	}
	return out, rows.Err()
}

func (s *PGStore) CancelOrder(ctx context.Context, userID, orderID string) (*Order, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 AND user_id=$2 FOR UPDATE`,
		orderID, userID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.CodeNotFound, "order not found: %s", orderID)
	}
	if err != nil {
		return nil, classifyPg(err, "lock order")
	}
	if !CanTransition(status, StatusCancelled) {
		return nil, apperr.New(apperr.CodeConflict, "order %s is %s and cannot be cancelled", orderID, status)
	}

	// Compensating restock, sorted like reservation.
	rows, err := tx.Query(ctx, `
		SELECT product_id, qty FROM order_items
		WHERE order_id=$1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, classifyPg(err, "read order lines")
	}
	type rec struct {
		pid string
		qty int
	}
	var recs []rec
	for rows.Next() {
		var x rec
		if err := rows.Scan(&x.pid, &x.qty); err != nil {
			rows.Close()
			return nil, classifyPg(err, "scan order line")
		}
		recs = append(recs, x)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, classifyPg(err, "read order lines")
	}
	for _, x := range recs {
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`,
			x.pid, x.qty); err != nil {
			return nil, classifyPg(err, "restock product")
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`,
		orderID, StatusCancelled); err != nil {
		return nil, classifyPg(err, "update order status")
	}

	o, err := s.scanOrder(ctx, tx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, classifyPg(err, "commit cancel")
	}
	return o, nil
}

func (s *PGStore) MarkFulfilled(ctx context.Context, orderID string) (*Order, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	var userID string
	err = tx.QueryRow(ctx, `SELECT status, user_id FROM orders WHERE id=$1 FOR UPDATE`, orderID).
		Scan(&status, &userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.CodeNotFound, "order not found: %s", orderID)
	}
	if err != nil {
		return nil, classifyPg(err, "lock order")
	}
	if !CanTransition(status, StatusFulfilled) {
		return nil, apperr.New(apperr.CodeConflict, "order %s is %s and cannot be fulfilled", orderID, status)
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`,
		orderID, StatusFulfilled); err != nil {
		return nil, classifyPg(err, "update order status")
	}
	o, err := s.scanOrder(ctx, tx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, classifyPg(err, "commit fulfil")
	}
	return o, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *PGStore) scanOrder(ctx context.Context, q querier, orderID, userID string) (*Order, error) {
	var o Order
	err := q.QueryRow(ctx, `
		SELECT id, user_id, status, total_cents, created_at, updated_at
		FROM orders WHERE id=$1 AND user_id=$2`, orderID, userID).
		Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.CodeNotFound, "order not found: %s", orderID)
	}
	if err != nil {
		return nil, classifyPg(err, "get order")
	}

	rows, err := q.Query(ctx, `
		SELECT product_id, qty, price_cents FROM order_items
		WHERE order_id=$1 ORDER BY line_no`, orderID)
	if err != nil {
		return nil, classifyPg(err, "get order lines")
	}
	defer rows.Close()
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ProductID, &l.Qty, &l.PriceCents); err != nil {
			return nil, classifyPg(err, "scan order line")
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPg(err, "get order lines")
	}
	return &o, nil
}

// classifyPg maps serialization failures and deadlocks to CodeConflict so
// the engine retries; everything else is internal.
func classifyPg(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return apperr.Wrap(apperr.CodeConflict, err, msg)
	}
	return apperr.Wrap(apperr.CodeInternal, err, msg)
}
