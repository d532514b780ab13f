package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/efreitasn/stocksim/internal/domain"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// ParseJSON decodes the request body as JSON into v.
// It validates that the Content-Type header is application/json and
// returns an error for missing/incorrect content type or malformed JSON.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	return nil
}

var errorMessages = map[error]string{
	domain.ErrUnknownInstrument: "Instrument not found",
	domain.ErrAlreadyLoaded:     "Catalog is already loaded",
	domain.ErrNotLoaded:         "Catalog is not loaded yet",
	domain.ErrEngineStopped:     "Engine is shutting down",
	domain.ErrWebhookNotFound:   "Webhook not found",
}

// writeServiceError maps domain errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	var status int
	switch {
	case errors.Is(err, domain.ErrUnknownInstrument), errors.Is(err, domain.ErrWebhookNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientHoldings),
		errors.Is(err, domain.ErrAlreadyLoaded):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotLoaded), errors.Is(err, domain.ErrEngineStopped):
		status = http.StatusServiceUnavailable
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	code := domain.ErrorCode(err)
	message := err.Error()
	var orderErr *domain.OrderError
	if !errors.As(err, &orderErr) {
		for sentinel, text := range errorMessages {
			if errors.Is(err, sentinel) {
				message = text
				break
			}
		}
	}
	WriteError(w, status, code, message)
}
