package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/productstore/backend/internal/apperr"
	"github.com/productstore/backend/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody distinguishes error causes by code, not by HTTP status alone.
type errorBody struct {
	Error   string              `json:"error"`
	Code    apperr.Code         `json:"code"`
	Details []orders.StockError `json:"details,omitempty"`
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperr.CodeInvalidArgument, apperr.CodeAlreadyExists, apperr.CodeInsufficientStock:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	body := errorBody{Code: code}

	switch code {
	case apperr.CodeInternal:
		body.Error = "internal server error"
	case apperr.CodeConflict:
		body.Error = "concurrent modification, please retry the request"
	default:
		var ae *apperr.Error
		if errors.As(err, &ae) {
			body.Error = ae.Message
		} else {
			body.Error = err.Error()
		}
	}

	var stockErr *orders.StockError
	if errors.As(err, &stockErr) {
		body.Error = stockErr.Error()
		body.Details = []orders.StockError{*stockErr}
	}
	writeJSON(w, statusFor(code), body)
}
