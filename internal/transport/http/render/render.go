package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/go-chi/chi/v5"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps a service error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrRestaurantNotFound),
		errors.Is(err, catalog.ErrItemNotFound),
		errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrInvalidInput),
		errors.Is(err, catalog.ErrInvalidItem):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, order.ErrInvalidStatusTransition),
		errors.Is(err, catalog.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Error sending response", "error", err)
	}
}

// Error writes err as a JSON error body. Internal errors are logged and their
// details are not exposed to the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	msg := err.Error()

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		msg = http.StatusText(status)
	} else {
		slog.InfoContext(r.Context(), "Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	JSON(w, r, status, ErrorResponse{Error: msg})
}

// Int64Param reads a positive integer path parameter.
func Int64Param(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", order.ErrInvalidInput, name, raw)
	}

	return id, nil
}

// DecodeJSON reads the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", order.ErrInvalidInput, err)
	}

	return nil
}

// Invalid wraps a request validation failure so it maps to 400.
func Invalid(err error) error {
	return fmt.Errorf("%w: %v", order.ErrInvalidInput, err)
}
