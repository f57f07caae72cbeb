package accounts

import "context"

// Store is the account directory. ByLogin accepts either username or email,
// like the original login form.
type Store interface {
	CreateAccount(ctx context.Context, a *Account) error
	ByLogin(ctx context.Context, login string) (*Account, error)
	ByID(ctx context.Context, id string) (*Account, error)
}
