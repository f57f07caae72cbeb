package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Order items RESTRICT product deletion: a product referenced by an order
// can never disappear from under it.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
		category    TEXT NOT NULL,
		image_url   TEXT NOT NULL DEFAULT '',
		stock       INT NOT NULL CHECK (stock >= 0),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(id),
		status      TEXT NOT NULL,
		total_cents BIGINT NOT NULL CHECK (total_cents >= 0),
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id    TEXT NOT NULL REFERENCES orders(id),
		line_no     INT NOT NULL,
		product_id  TEXT NOT NULL REFERENCES products(id) ON DELETE RESTRICT,
		qty         INT NOT NULL CHECK (qty > 0),
		price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
		PRIMARY KEY (order_id, line_no)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id)`,
}

// Ensure creates the schema at startup when it does not exist.
func Ensure(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
