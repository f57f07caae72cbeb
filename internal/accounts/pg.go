package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/productstore/backend/internal/apperr"
)

type PGStore struct{ DB *pgxpool.Pool }

func NewPGStore(db *pgxpool.Pool) *PGStore { return &PGStore{DB: db} }

func (s *PGStore) CreateAccount(ctx context.Context, a *Account) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO users(id, username, email, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		a.ID, a.Username, a.Email, a.PasswordHash, a.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.New(apperr.CodeAlreadyExists, "user already exists")
	}
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "create user")
	}
	return nil
}

func (s *PGStore) ByLogin(ctx context.Context, login string) (*Account, error) {
	return s.one(ctx, `SELECT id, username, email, password_hash, created_at
	                   FROM users WHERE username=$1 OR email=$1`, login)
}

func (s *PGStore) ByID(ctx context.Context, id string) (*Account, error) {
	return s.one(ctx, `SELECT id, username, email, password_hash, created_at
	                   FROM users WHERE id=$1`, id)
}

func (s *PGStore) one(ctx context.Context, q, arg string) (*Account, error) {
	var a Account
	err := s.DB.QueryRow(ctx, q, arg).Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "query user")
	}
	return &a, nil
}
