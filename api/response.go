package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/seenimoa/optiscreen/internal/store"
	"github.com/seenimoa/optiscreen/pkg/models"
)

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool               `json:"success"`
	Data    any                `json:"data,omitempty"`
	Error   string             `json:"error,omitempty"`
	Errors  models.FieldErrors `json:"errors,omitempty"`
}

const (
	msgNotFound   = "Not found."
	msgValidation = "Validation failed."
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to write JSON response")
	}
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, r, status, APIResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, APIResponse{Error: msg})
}

func writeFieldErrors(w http.ResponseWriter, r *http.Request, errs models.FieldErrors) {
	writeJSON(w, r, http.StatusBadRequest, APIResponse{Error: msgValidation, Errors: errs})
}

// writeStoreError maps repository and validation errors to responses.
// conflict, when set, is reported for unique constraint violations.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, conflict models.FieldErrors) {
	var fe models.FieldErrors
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, msgNotFound)
	case errors.As(err, &fe):
		writeFieldErrors(w, r, fe)
	case errors.Is(err, store.ErrConflict) && conflict != nil:
		writeFieldErrors(w, r, conflict)
	case errors.Is(err, store.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

// idParam reads the {id} route parameter. Non-numeric ids are answered with
// 404 and ok is false.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusNotFound, msgNotFound)
		return 0, false
	}
	return id, true
}

// listOf keeps empty lists encoding as [] rather than null.
func listOf[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
