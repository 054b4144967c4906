package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/erazemk/darila/internal/catalog"
	"github.com/erazemk/darila/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Error("encoding response", zap.Error(err))
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// writeError maps an error from the catalog or store onto a response.
// notFound is the message used when the addressed record does not exist.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error, notFound string) {
	var verr *catalog.ValidationError
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &verr):
		jsonError(w, http.StatusBadRequest, verr.Error())
	case errors.As(err, &fieldErrs):
		jsonError(w, http.StatusBadRequest, formatValidationErrors(fieldErrs))
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrReference):
		jsonError(w, http.StatusBadRequest, "category does not exist")
	case errors.Is(err, store.ErrConflict):
		jsonError(w, http.StatusConflict, "already exists")
	default:
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
