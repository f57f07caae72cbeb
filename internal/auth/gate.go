// Package auth is the access gate: it issues opaque bearer tokens and
// resolves them back to accounts. Tokens are server-side sessions, not
// signed claims, so revocation is just a delete.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/productstore/backend/internal/accounts"
	"github.com/productstore/backend/internal/apperr"
)

// SessionStore maps a token to the user id it was issued for.
type SessionStore interface {
	Put(ctx context.Context, token, userID string, ttl time.Duration) error
	Get(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

type Gate struct {
	Sessions SessionStore
	Accounts accounts.Store
	TTL      time.Duration
}

func (g *Gate) Issue(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	if err := g.Sessions.Put(ctx, token, userID, g.TTL); err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, err, "store session")
	}
	return token, nil
}

// Resolve turns a credential into the account it identifies. Every failure
// mode collapses into Unauthorized; callers never learn why a token failed.
func (g *Gate) Resolve(ctx context.Context, token string) (*accounts.Account, error) {
	if token == "" {
		return nil, apperr.New(apperr.CodeUnauthorized, "no token provided")
	}
	userID, err := g.Sessions.Get(ctx, token)
	if err != nil || userID == "" {
		return nil, apperr.New(apperr.CodeUnauthorized, "invalid token")
	}
	a, err := g.Accounts.ByID(ctx, userID)
	if err != nil {
		return nil, apperr.New(apperr.CodeUnauthorized, "invalid token")
	}
	return a, nil
}

func (g *Gate) Revoke(ctx context.Context, token string) error {
	return g.Sessions.Delete(ctx, token)
}
