package catalog

import "context"

// Store is the catalog capability each backend provides. List returns the
// page plus the total match count so callers can build pagination envelopes.
type Store interface {
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, f Filter) ([]Product, int, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, id string, u Update) (*Product, error)
	Delete(ctx context.Context, id string) error
}
