package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
	"github.com/emporia-labs/emporia-backend/internal/query"
)

const maxBodyBytes = 1 << 20

// Response is the envelope of every JSON response.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	respondJSON(w, status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, status int, message string, details map[string]string) {
	respondJSON(w, status, Response{
		Success: false,
		Message: message,
		Details: details,
	})
}

// respondAppError maps err through the apperror taxonomy. Server-side
// failures are logged with their cause; the client only sees a generic message.
func respondAppError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := apperror.Status(err)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	respondError(w, status, apperror.Message(err), apperror.Details(err))
}

// decodeJSON decodes the request body into dst. Malformed JSON is a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationError{Msg: "Request body is required", Err: err}
		}
		return apperror.ValidationError{Msg: "Invalid request body", Err: err}
	}
	return nil
}

// validationFailed wraps field errors from a DTO as a 422.
func validationFailed(details map[string]string) error {
	return apperror.ValidationError{
		Msg:          "Validation failed",
		Details:      details,
		RequestShape: true,
	}
}

func parseID(raw, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.InvalidID(resource)
	}
	return id, nil
}

// listPayload is the data of a list response: full items, or items reduced to
// the requested fields plus the requested derived attributes.
func listPayload[T any](items []T, total int64, rq query.ResolvedQuery) (interface{}, error) {
	if rq.Projection == nil {
		return query.NewPage(items, total, rq), nil
	}
	shaped, err := query.Project(items, rq.Projection, rq.Includes...)
	if err != nil {
		return nil, err
	}
	return query.NewPage(shaped, total, rq), nil
}
