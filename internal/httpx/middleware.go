package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/productstore/backend/internal/accounts"
	"github.com/productstore/backend/internal/apperr"
	"github.com/productstore/backend/internal/auth"
)

type ctxKey int

const accountKey ctxKey = 0

// Authenticator resolves the bearer credential and stores the account on the
// request context. Requests without a valid credential never reach the
// wrapped handler.
func Authenticator(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, apperr.New(apperr.CodeUnauthorized, "no token provided"))
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")
			a, err := gate.Resolve(r.Context(), token)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey, a)))
		})
	}
}

// AccountFrom returns the authenticated account, nil when the middleware
// did not run.
func AccountFrom(ctx context.Context) *accounts.Account {
	a, _ := ctx.Value(accountKey).(*accounts.Account)
	return a
}
