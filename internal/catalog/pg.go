package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/productstore/backend/internal/apperr"
)

const (
	pgUniqueViolation = "23505"
	pgFKViolation     = "23503"
)

type PGStore struct{ DB *pgxpool.Pool }

func NewPGStore(db *pgxpool.Pool) *PGStore { return &PGStore{DB: db} }

const productCols = `id, name, description, price_cents, category, image_url, stock, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Category, &p.ImageURL, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PGStore) Get(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(s.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.CodeNotFound, "product not found: %s", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "get product")
	}
	return p, nil
}

// buildWhere translates a Filter into a WHERE clause and its args.
func buildWhere(f Filter) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Search != "" {
		n := arg("%" + f.Search + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", n, n))
	}
	if f.Category != "" {
		conds = append(conds, "category ILIKE "+arg("%"+f.Category+"%"))
	}
	if f.MinPriceCents != nil {
		conds = append(conds, "price_cents >= "+arg(*f.MinPriceCents))
	}
	if f.MaxPriceCents != nil {
		conds = append(conds, "price_cents <= "+arg(*f.MaxPriceCents))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]Product, int, error) {
	f.Normalize()
	where, args := buildWhere(f)

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, err, "count products")
	}

	q := fmt.Sprintf(`SELECT `+productCols+` FROM products`+where+
		` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := s.DB.Query(ctx, q, append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, err, "list products")
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Category, &p.ImageURL, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, apperr.Wrap(apperr.CodeInternal, err, "scan product")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeInternal, err, "list products")
	}
	return out, total, nil
}

func (s *PGStore) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `SELECT DISTINCT category FROM products ORDER BY category`)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "list categories")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, err, "scan category")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGStore) Create(ctx context.Context, p *Product) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO products(id, name, description, price_cents, category, image_url, stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Category, p.ImageURL, p.Stock, p.CreatedAt, p.UpdatedAt)
	if isPgCode(err, pgUniqueViolation) {
		return apperr.New(apperr.CodeAlreadyExists, "product already exists: %s", p.ID)
	}
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "create product")
	}
	return nil
}

func (s *PGStore) Update(ctx context.Context, id string, u Update) (*Product, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if u.Name != nil {
		set("name", *u.Name)
	}
	if u.Description != nil {
		set("description", *u.Description)
	}
	if u.PriceCents != nil {
		set("price_cents", *u.PriceCents)
	}
	if u.Category != nil {
		set("category", *u.Category)
	}
	if u.ImageURL != nil {
		set("image_url", *u.ImageURL)
	}
	if u.Stock != nil {
		set("stock", *u.Stock)
	}
	if len(sets) == 0 {
		return s.Get(ctx, id)
	}
	sets = append(sets, "updated_at=now()")
	args = append(args, id)

	q := fmt.Sprintf(`UPDATE products SET %s WHERE id=$%d RETURNING `+productCols,
		strings.Join(sets, ", "), len(args))
	p, err := scanProduct(s.DB.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.CodeNotFound, "product not found: %s", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "update product")
	}
	return p, nil
}

// Delete refuses products referenced by order lines (RESTRICT fk).
func (s *PGStore) Delete(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if isPgCode(err, pgFKViolation) {
		return apperr.New(apperr.CodeConflict, "product %s is referenced by existing orders", id)
	}
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "delete product")
	}
	if ct.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "product not found: %s", id)
	}
	return nil
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
