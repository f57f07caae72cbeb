package memstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productstore/backend/internal/accounts"
	"github.com/productstore/backend/internal/apperr"
	"github.com/productstore/backend/internal/catalog"
	"github.com/productstore/backend/internal/memstore"
	"github.com/productstore/backend/internal/orders"
)

func add(t *testing.T, s *memstore.Store, p catalog.Product) {
	t.Helper()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
		p.UpdatedAt = p.CreatedAt
	}
	require.NoError(t, s.Create(context.Background(), &p))
}

func intp(v int) *int { return &v }

func TestList_Filters(t *testing.T) {
	s := memstore.New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	add(t, s, catalog.Product{ID: "1", Name: "Wireless Headphones", Description: "noise cancelling", PriceCents: 9999, Category: "Electronics", Stock: 5, CreatedAt: base.Add(3 * time.Hour), UpdatedAt: base})
	add(t, s, catalog.Product{ID: "2", Name: "Coffee Mug", Description: "ceramic mug", PriceCents: 1499, Category: "Home & Kitchen", Stock: 5, CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base})
	add(t, s, catalog.Product{ID: "3", Name: "Wireless Mouse", Description: "ergonomic mouse", PriceCents: 3499, Category: "Electronics", Stock: 5, CreatedAt: base.Add(1 * time.Hour), UpdatedAt: base})

	tests := []struct {
		name    string
		f       catalog.Filter
		wantIDs []string
	}{
		{name: "no filter newest first", f: catalog.Filter{}, wantIDs: []string{"1", "2", "3"}},
		{name: "search name", f: catalog.Filter{Search: "wireless"}, wantIDs: []string{"1", "3"}},
		{name: "search description", f: catalog.Filter{Search: "CERAMIC"}, wantIDs: []string{"2"}},
		{name: "category substring", f: catalog.Filter{Category: "electron"}, wantIDs: []string{"1", "3"}},
		{name: "min price", f: catalog.Filter{MinPriceCents: intp(3000)}, wantIDs: []string{"1", "3"}},
		{name: "max price", f: catalog.Filter{MaxPriceCents: intp(1499)}, wantIDs: []string{"2"}},
		{name: "price band", f: catalog.Filter{MinPriceCents: intp(1500), MaxPriceCents: intp(5000)}, wantIDs: []string{"3"}},
		{name: "combined", f: catalog.Filter{Search: "mouse", Category: "Electronics"}, wantIDs: []string{"3"}},
		{name: "no match", f: catalog.Filter{Search: "typewriter"}, wantIDs: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, total, err := s.List(context.Background(), tc.f)
			require.NoError(t, err)
			assert.Equal(t, len(tc.wantIDs), total)
			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			if tc.wantIDs == nil {
				assert.Empty(t, ids)
			} else {
				assert.Equal(t, tc.wantIDs, ids)
			}
		})
	}
}

func TestList_Pagination(t *testing.T) {
	s := memstore.New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		add(t, s, catalog.Product{
			ID: string(rune('a' + i)), Name: "Item", Description: "d", PriceCents: 100,
			Category: "C", Stock: 1, CreatedAt: base, UpdatedAt: base,
		})
	}

	page1, total, err := s.List(context.Background(), catalog.Filter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page1, 2)

	page3, _, err := s.List(context.Background(), catalog.Filter{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page3, 1)

	beyond, _, err := s.List(context.Background(), catalog.Filter{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond)

	// Same timestamps: id order breaks the tie deterministically.
	assert.Equal(t, "a", page1[0].ID)
	assert.Equal(t, "b", page1[1].ID)
}

func TestCategories(t *testing.T) {
	s := memstore.New()
	add(t, s, catalog.Product{ID: "1", Name: "A", Description: "d", PriceCents: 1, Category: "Electronics", Stock: 1})
	add(t, s, catalog.Product{ID: "2", Name: "B", Description: "d", PriceCents: 1, Category: "Clothing", Stock: 1})
	add(t, s, catalog.Product{ID: "3", Name: "C", Description: "d", PriceCents: 1, Category: "Electronics", Stock: 1})

	cs, err := s.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Clothing", "Electronics"}, cs)
}

func TestUpdate_Partial(t *testing.T) {
	s := memstore.New()
	add(t, s, catalog.Product{ID: "1", Name: "Old", Description: "keep", PriceCents: 100, Category: "C", Stock: 3})

	name := "New"
	p, err := s.Update(context.Background(), "1", catalog.Update{Name: &name, PriceCents: intp(250)})
	require.NoError(t, err)
	assert.Equal(t, "New", p.Name)
	assert.Equal(t, 250, p.PriceCents)
	assert.Equal(t, "keep", p.Description)
	assert.Equal(t, 3, p.Stock)

	_, err = s.Update(context.Background(), "ghost", catalog.Update{Name: &name})
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestDelete_RefusedWhileReferenced(t *testing.T) {
	s := memstore.New()
	require.NoError(t, s.CreateAccount(context.Background(), &accounts.Account{
		ID: "u1", Username: "alice", Email: "a@example.com", CreatedAt: time.Now().UTC(),
	}))
	add(t, s, catalog.Product{ID: "1", Name: "A", Description: "d", PriceCents: 100, Category: "C", Stock: 5})
	add(t, s, catalog.Product{ID: "2", Name: "B", Description: "d", PriceCents: 100, Category: "C", Stock: 5})

	_, err := s.CreateOrder(context.Background(), "u1", []orders.CartLine{{ProductID: "1", Qty: 1}})
	require.NoError(t, err)

	err = s.Delete(context.Background(), "1")
	assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
	_, err = s.Get(context.Background(), "1")
	assert.NoError(t, err)

	// Unreferenced products delete fine.
	require.NoError(t, s.Delete(context.Background(), "2"))
	_, err = s.Get(context.Background(), "2")
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))

	err = s.Delete(context.Background(), "ghost")
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

// A reservation in flight must block deletion even in the window after the
// stock decrement and before the order lands in the order map. A create and
// a delete racing on the same product may each win, but never both.
func TestDelete_RefusedDuringReservation(t *testing.T) {
	for i := 0; i < 300; i++ {
		s := memstore.New()
		require.NoError(t, s.CreateAccount(context.Background(), &accounts.Account{
			ID: "u1", Username: "alice", Email: "a@example.com", CreatedAt: time.Now().UTC(),
		}))
		add(t, s, catalog.Product{ID: "1", Name: "A", Description: "d", PriceCents: 100, Category: "C", Stock: 1})

		var orderErr, deleteErr error
		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, orderErr = s.CreateOrder(context.Background(), "u1", []orders.CartLine{{ProductID: "1", Qty: 1}})
		}()
		go func() {
			defer wg.Done()
			<-start
			deleteErr = s.Delete(context.Background(), "1")
		}()
		close(start)
		wg.Wait()

		if orderErr == nil && deleteErr == nil {
			t.Fatalf("iteration %d: order placed against a deleted product", i)
		}
		if orderErr == nil {
			// The order won, so its product must still exist for restock.
			_, err := s.Get(context.Background(), "1")
			require.NoError(t, err)
		} else {
			assert.True(t, apperr.IsCode(orderErr, apperr.CodeNotFound), "got %v", orderErr)
		}
	}
}

func TestCreateOrder_DuplicateLinesRejected(t *testing.T) {
	s := memstore.New()
	require.NoError(t, s.CreateAccount(context.Background(), &accounts.Account{
		ID: "u1", Username: "alice", Email: "a@example.com", CreatedAt: time.Now().UTC(),
	}))
	add(t, s, catalog.Product{ID: "1", Name: "A", Description: "d", PriceCents: 100, Category: "C", Stock: 5})

	_, err := s.CreateOrder(context.Background(), "u1", []orders.CartLine{
		{ProductID: "1", Qty: 1},
		{ProductID: "1", Qty: 2},
	})
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument), "got %v", err)

	p, err := s.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}

func TestAccounts_DuplicateRejected(t *testing.T) {
	s := memstore.New()
	now := time.Now().UTC()
	require.NoError(t, s.CreateAccount(context.Background(), &accounts.Account{
		ID: "u1", Username: "alice", Email: "alice@example.com", CreatedAt: now,
	}))

	err := s.CreateAccount(context.Background(), &accounts.Account{
		ID: "u2", Username: "alice", Email: "other@example.com", CreatedAt: now,
	})
	assert.True(t, apperr.IsCode(err, apperr.CodeAlreadyExists))

	err = s.CreateAccount(context.Background(), &accounts.Account{
		ID: "u3", Username: "other", Email: "alice@example.com", CreatedAt: now,
	})
	assert.True(t, apperr.IsCode(err, apperr.CodeAlreadyExists))

	a, err := s.ByLogin(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", a.ID)
	a, err = s.ByLogin(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", a.ID)
}

func TestSeed(t *testing.T) {
	s := memstore.New()
	s.Seed()

	ps, total, err := s.List(context.Background(), catalog.Filter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Len(t, ps, 6)

	admin, err := s.ByLogin(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin@productstore.com", admin.Email)

	p, err := s.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 9999, p.PriceCents)
	assert.Equal(t, 50, p.Stock)
}
