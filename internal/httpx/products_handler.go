package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/productstore/backend/internal/apperr"
	"github.com/productstore/backend/internal/auth"
	"github.com/productstore/backend/internal/catalog"
)

type ProductsHandler struct {
	Store catalog.Store
	Gate  *auth.Gate
}

type productPage struct {
	Products   []catalog.Product `json:"products"`
	Pagination pagination        `json:"pagination"`
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type productReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PriceCents  *int    `json:"price_cents"`
	Category    *string `json:"category"`
	ImageURL    *string `json:"image_url"`
	Stock       *int    `json:"stock"`
}

func (h *ProductsHandler) Register(r *chi.Mux) {
	r.Get("/api/products", h.list)
	r.Get("/api/products/categories", h.categories)
	r.Get("/api/products/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(Authenticator(h.Gate))
		r.Post("/api/products", h.create)
		r.Put("/api/products/{id}", h.update)
		r.Delete("/api/products/{id}", h.delete)
	})
}

func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	f := catalog.Filter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
	}
	intParam := func(name string) (*int, error) {
		v := q.Get(name)
		if v == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, apperr.New(apperr.CodeInvalidArgument, "invalid %s", name)
		}
		return &n, nil
	}
	var err error
	if f.MinPriceCents, err = intParam("min_price"); err != nil {
		return f, err
	}
	if f.MaxPriceCents, err = intParam("max_price"); err != nil {
		return f, err
	}
	page, err := intParam("page")
	if err != nil {
		return f, err
	}
	if page != nil {
		f.Page = *page
	}
	limit, err := intParam("limit")
	if err != nil {
		return f, err
	}
	if limit != nil {
		f.Limit = *limit
	}
	f.Normalize()
	return f, nil
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, total, err := h.Store.List(ctx, f)
	if err != nil {
		writeError(w, err)
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, productPage{
		Products: ps,
		Pagination: pagination{
			Page:  f.Page,
			Limit: f.Limit,
			Total: total,
			Pages: (total + f.Limit - 1) / f.Limit,
		},
	})
}

func (h *ProductsHandler) categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	cs, err := h.Store.Categories(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if cs == nil {
		cs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": cs})
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Store.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.CodeInvalidArgument, "invalid json"))
		return
	}
	if req.Name == nil || *req.Name == "" || req.Description == nil || *req.Description == "" ||
		req.PriceCents == nil || req.Category == nil || *req.Category == "" {
		writeError(w, apperr.New(apperr.CodeInvalidArgument, "name, description, price_cents and category are required"))
		return
	}
	if *req.PriceCents < 0 {
		writeError(w, apperr.New(apperr.CodeInvalidArgument, "price must be non-negative"))
		return
	}

	now := time.Now().UTC()
	p := &catalog.Product{
		ID:          uuid.NewString(),
		Name:        *req.Name,
		Description: *req.Description,
		PriceCents:  *req.PriceCents,
		Category:    *req.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.ImageURL != nil {
		p.ImageURL = *req.ImageURL
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			writeError(w, apperr.New(apperr.CodeInvalidArgument, "stock must be non-negative"))
			return
		}
		p.Stock = *req.Stock
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.Store.Create(ctx, p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Product created successfully", "product": p})
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.CodeInvalidArgument, "invalid json"))
		return
	}
	if req.PriceCents != nil && *req.PriceCents < 0 {
		writeError(w, apperr.New(apperr.CodeInvalidArgument, "price must be non-negative"))
		return
	}
	if req.Stock != nil && *req.Stock < 0 {
		writeError(w, apperr.New(apperr.CodeInvalidArgument, "stock must be non-negative"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	p, err := h.Store.Update(ctx, chi.URLParam(r, "id"), catalog.Update{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Product updated successfully", "product": p})
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.Store.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}
