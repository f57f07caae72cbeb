// Package memstore is the in-memory fallback backend. It implements the
// catalog, accounts and orders capability interfaces over process-local
// maps, with the same reservation guarantees as the postgres backend:
// per-product mutexes are acquired in sorted product-id order, so the
// check-then-decrement of one order is mutually exclusive with any
// competing order touching the same products, and multi-product orders
// cannot deadlock each other.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/productstore/backend/internal/accounts"
	"github.com/productstore/backend/internal/apperr"
	"github.com/productstore/backend/internal/catalog"
	"github.com/productstore/backend/internal/orders"
)

type productEntry struct {
	mu   sync.Mutex
	gone bool
	// reserving counts in-flight reservations that decremented stock but
	// whose order is not yet in s.orders. Delete refuses while nonzero.
	reserving int
	p         catalog.Product
}

type Store struct {
	mu       sync.RWMutex // guards the maps themselves
	products map[string]*productEntry
	orders   map[string]*orders.Order
	accounts map[string]*accounts.Account
}

func New() *Store {
	return &Store{
		products: make(map[string]*productEntry),
		orders:   make(map[string]*orders.Order),
		accounts: make(map[string]*accounts.Account),
	}
}

var (
	_ catalog.Store  = (*Store)(nil)
	_ accounts.Store = (*Store)(nil)
	_ orders.Store   = (*Store)(nil)
)

// ---- catalog.Store ----

func (s *Store) Get(_ context.Context, id string) (*catalog.Product, error) {
	s.mu.RLock()
	e, ok := s.products[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "product not found: %s", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone {
		return nil, apperr.New(apperr.CodeNotFound, "product not found: %s", id)
	}
	p := e.p
	return &p, nil
}

func (s *Store) List(_ context.Context, f catalog.Filter) ([]catalog.Product, int, error) {
	f.Normalize()

	s.mu.RLock()
	entries := make([]*productEntry, 0, len(s.products))
	for _, e := range s.products {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var matched []catalog.Product
	for _, e := range entries {
		e.mu.Lock()
		p, gone := e.p, e.gone
		e.mu.Unlock()
		if !gone && f.Matches(&p) {
			matched = append(matched, p)
		}
	}
	// Newest first, id as tie-break, same as the postgres ORDER BY.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	lo := f.Offset()
	if lo > total {
		lo = total
	}
	hi := lo + f.Limit
	if hi > total {
		hi = total
	}
	return matched[lo:hi], total, nil
}

func (s *Store) Categories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	seen := make(map[string]bool)
	for _, e := range s.products {
		e.mu.Lock()
		if !e.gone {
			seen[e.p.Category] = true
		}
		e.mu.Unlock()
	}
	s.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Create(_ context.Context, p *catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; ok {
		return apperr.New(apperr.CodeAlreadyExists, "product already exists: %s", p.ID)
	}
	s.products[p.ID] = &productEntry{p: *p}
	return nil
}

func (s *Store) Update(_ context.Context, id string, u catalog.Update) (*catalog.Product, error) {
	s.mu.RLock()
	e, ok := s.products[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "product not found: %s", id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone {
		return nil, apperr.New(apperr.CodeNotFound, "product not found: %s", id)
	}
	if u.Name != nil {
		e.p.Name = *u.Name
	}
	if u.Description != nil {
		e.p.Description = *u.Description
	}
	if u.PriceCents != nil {
		e.p.PriceCents = *u.PriceCents
	}
	if u.Category != nil {
		e.p.Category = *u.Category
	}
	if u.ImageURL != nil {
		e.p.ImageURL = *u.ImageURL
	}
	if u.Stock != nil {
		e.p.Stock = *u.Stock
	}
	e.p.UpdatedAt = time.Now().UTC()
	p := e.p
	return &p, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.products[id]
	if !ok {
		return apperr.New(apperr.CodeNotFound, "product not found: %s", id)
	}
	for _, o := range s.orders {
		for _, l := range o.Lines {
			if l.ProductID == id {
				return apperr.New(apperr.CodeConflict, "product %s is referenced by existing orders", id)
			}
		}
	}
	e.mu.Lock()
	if e.reserving > 0 {
		e.mu.Unlock()
		return apperr.New(apperr.CodeConflict, "product %s is referenced by existing orders", id)
	}
	e.gone = true
	e.mu.Unlock()
	delete(s.products, id)
	return nil
}

// ---- accounts.Store ----

func (s *Store) CreateAccount(_ context.Context, a *accounts.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Username == a.Username || existing.Email == a.Email {
			return apperr.New(apperr.CodeAlreadyExists, "user already exists")
		}
	}
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *Store) ByLogin(_ context.Context, login string) (*accounts.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Username == login || a.Email == login {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.CodeNotFound, "user not found")
}

func (s *Store) ByID(_ context.Context, id string) (*accounts.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, apperr.New(apperr.CodeNotFound, "user not found")
}

// ---- orders.Store ----

func (s *Store) CreateOrder(_ context.Context, userID string, cart []orders.CartLine) (*orders.Order, error) {
	sorted := make([]orders.CartLine, len(cart))
	copy(sorted, cart)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	// A duplicated product id would lock the same entry mutex twice.
	for i := 1; i < len(sorted); i++ {
		if sorted[i].ProductID == sorted[i-1].ProductID {
			return nil, apperr.New(apperr.CodeInvalidArgument, "duplicate product in cart: %s", sorted[i].ProductID)
		}
	}

	s.mu.RLock()
	entries := make([]*productEntry, 0, len(sorted))
	for _, l := range sorted {
		e, ok := s.products[l.ProductID]
		if !ok {
			s.mu.RUnlock()
			return nil, apperr.New(apperr.CodeNotFound, "product not found: %s", l.ProductID)
		}
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
	}
	unlock := func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}
	}

	// All-or-nothing: every line is checked before any stock moves.
	for i, l := range sorted {
		e := entries[i]
		if e.gone {
			unlock()
			return nil, apperr.New(apperr.CodeNotFound, "product not found: %s", l.ProductID)
		}
		if e.p.Stock < l.Qty {
			stockErr := &orders.StockError{ProductID: l.ProductID, Requested: l.Qty, Available: e.p.Stock}
			unlock()
			return nil, apperr.Wrap(apperr.CodeInsufficientStock, stockErr, "insufficient stock")
		}
	}

	// Reserved but not yet durable: reserving holds off Delete until the
	// order is visible in s.orders below.
	now := time.Now().UTC()
	prices := make(map[string]int, len(sorted))
	for i, l := range sorted {
		e := entries[i]
		e.p.Stock -= l.Qty
		e.p.UpdatedAt = now
		e.reserving++
		prices[l.ProductID] = e.p.PriceCents
	}
	unlock()

	o := &orders.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    orders.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, l := range cart {
		line := orders.OrderLine{ProductID: l.ProductID, Qty: l.Qty, PriceCents: prices[l.ProductID]}
		o.Lines = append(o.Lines, line)
		o.TotalCents += line.SubtotalCents()
	}

	s.mu.Lock()
	s.orders[o.ID] = o
	s.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		e.reserving--
		e.mu.Unlock()
	}
	return cloneOrder(o), nil
}

func (s *Store) GetOrder(_ context.Context, userID, orderID string) (*orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, apperr.New(apperr.CodeNotFound, "order not found: %s", orderID)
	}
	return cloneOrder(o), nil
}

func (s *Store) ListOrders(_ context.Context, userID string) ([]orders.Order, error) {
	s.mu.RLock()
	var out []orders.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CancelOrder(_ context.Context, userID, orderID string) (*orders.Order, error) {
	s.mu.Lock()
	o, ok := s.orders[orderID]
	if !ok || o.UserID != userID {
		s.mu.Unlock()
		return nil, apperr.New(apperr.CodeNotFound, "order not found: %s", orderID)
	}
	if !orders.CanTransition(o.Status, orders.StatusCancelled) {
		status := o.Status
		s.mu.Unlock()
		return nil, apperr.New(apperr.CodeConflict, "order %s is %s and cannot be cancelled", orderID, status)
	}
	o.Status = orders.StatusCancelled
	o.UpdatedAt = time.Now().UTC()
	lines := make([]orders.OrderLine, len(o.Lines))
	copy(lines, o.Lines)
	result := cloneOrder(o)
	s.mu.Unlock()

	// Compensating restock. Products cannot be gone: Delete refuses any
	// product referenced by an order.
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	for _, l := range lines {
		s.mu.RLock()
		e := s.products[l.ProductID]
		s.mu.RUnlock()
		if e == nil {
			continue
		}
		e.mu.Lock()
		e.p.Stock += l.Qty
		e.p.UpdatedAt = result.UpdatedAt
		e.mu.Unlock()
	}
	return result, nil
}

func (s *Store) MarkFulfilled(_ context.Context, orderID string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "order not found: %s", orderID)
	}
	if !orders.CanTransition(o.Status, orders.StatusFulfilled) {
		return nil, apperr.New(apperr.CodeConflict, "order %s is %s and cannot be fulfilled", orderID, o.Status)
	}
	o.Status = orders.StatusFulfilled
	o.UpdatedAt = time.Now().UTC()
	return cloneOrder(o), nil
}

func cloneOrder(o *orders.Order) *orders.Order {
	cp := *o
	cp.Lines = make([]orders.OrderLine, len(o.Lines))
	copy(cp.Lines, o.Lines)
	return &cp
}
