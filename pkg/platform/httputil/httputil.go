// Package httputil holds the JSON encoding and error mapping shared by all handlers.
package httputil

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	dErrors "carbonmint/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

// Validatable is implemented by request bodies that normalize and check
// themselves after decoding.
type Validatable interface {
	Validate() error
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status and writes the error body.
// Uncoded errors and internal codes never expose their message.
func WriteError(w http.ResponseWriter, err error) {
	de, ok := dErrors.As(err)
	if !ok {
		WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: string(dErrors.CodeInternal)})
		return
	}
	status := StatusFor(de.Code)
	resp := errorResponse{Error: string(de.Code)}
	if status != http.StatusInternalServerError {
		resp.ErrorDescription = de.Message
	}
	WriteJSON(w, status, resp)
}

// StatusFor maps a domain code to its HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	}
	switch code.Category() {
	case dErrors.CategoryValidation:
		return http.StatusBadRequest
	case dErrors.CategoryNotFound:
		return http.StatusNotFound
	case dErrors.CategoryAuthorization:
		return http.StatusForbidden
	case dErrors.CategoryLifecycle:
		return http.StatusConflict
	case dErrors.CategoryCapacity:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteUnauthenticated writes the 401 used when no caller identity is present.
func WriteUnauthenticated(w http.ResponseWriter, description string) {
	WriteJSON(w, http.StatusUnauthorized, errorResponse{Error: string(dErrors.CodeUnauthorized), ErrorDescription: description})
}

// DecodeAndPrepare decodes a JSON body into T and runs its Validate method.
// On failure the error response is already written and ok is false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid json payload"))
		return nil, false
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			logger.WarnContext(ctx, "invalid request",
				"request_id", requestID,
				"error", err,
			)
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}
