package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/productstore/backend/internal/accounts"
	"github.com/productstore/backend/internal/apperr"
	"github.com/productstore/backend/internal/auth"
)

type AccountsHandler struct {
	Service *accounts.Service
	Gate    *auth.Gate
}

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResp struct {
	Message string            `json:"message"`
	Token   string            `json:"token"`
	User    *accounts.Account `json:"user"`
}

func (h *AccountsHandler) Register(r *chi.Mux) {
	r.Post("/api/auth/register", h.register)
	r.Post("/api/auth/login", h.login)
	r.Group(func(r chi.Router) {
		r.Use(Authenticator(h.Gate))
		r.Get("/api/auth/me", h.me)
	})
}

func (h *AccountsHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.CodeInvalidArgument, "invalid json"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	a, err := h.Service.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := h.Gate.Issue(ctx, a.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResp{Message: "User created successfully", Token: token, User: a})
}

func (h *AccountsHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.CodeInvalidArgument, "invalid json"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	a, err := h.Service.Login(ctx, req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := h.Gate.Issue(ctx, a.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResp{Message: "Login successful", Token: token, User: a})
}

func (h *AccountsHandler) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": AccountFrom(r.Context())})
}
