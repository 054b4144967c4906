package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/darila/internal/catalog"
	"github.com/erazemk/darila/internal/model"
	"github.com/erazemk/darila/internal/store"
)

// BookingsHandler handles interest endpoints.
type BookingsHandler struct {
	DB      *sql.DB
	Catalog *catalog.Service
	Logger  *zap.Logger
}

type toggleRequest struct {
	ItemID int64  `json:"item_id" validate:"required,gt=0"`
	User   string `json:"user" validate:"required,max=100"`
}

type toggleResponse struct {
	Success bool `json:"success"`
	*model.ToggleResult
}

// Toggle handles POST /api/bookings. It answers 201 when interest was
// added and 200 when it was removed.
func (h *BookingsHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.User = strings.TrimSpace(req.User)
	if err := validate.Struct(req); err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}

	res, err := h.Catalog.Toggle(context.WithoutCancel(r.Context()), req.ItemID, req.User)
	if errors.Is(err, store.ErrReference) {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	if errors.Is(err, store.ErrConflict) {
		jsonError(w, http.StatusConflict, "interest changed concurrently, try again")
		return
	}
	if err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}

	status := http.StatusOK
	if res.Action == model.ToggleAdded {
		status = http.StatusCreated
	}
	jsonResponse(w, status, toggleResponse{Success: true, ToggleResult: res})
}

// List handles GET /api/bookings.
func (h *BookingsHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, 0, "")
}

// ListByItem handles GET /api/bookings/item/{id}.
func (h *BookingsHandler) ListByItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	h.list(w, r, id, "")
}

// ListByUser handles GET /api/bookings/user/{user}.
func (h *BookingsHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, 0, r.PathValue("user"))
}

func (h *BookingsHandler) list(w http.ResponseWriter, r *http.Request, itemID int64, user string) {
	bookings, err := store.ListBookings(r.Context(), h.DB, itemID, user)
	if err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	jsonResponse(w, http.StatusOK, bookings)
}

// Delete handles DELETE /api/bookings/{itemId}/{user}.
func (h *BookingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "itemId")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := store.DeleteBooking(r.Context(), h.DB, id, r.PathValue("user")); err != nil {
		writeError(w, r, h.Logger, err, "booking not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reset handles DELETE /api/bookings.
func (h *BookingsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	n, err := h.Catalog.ResetInterest(context.WithoutCancel(r.Context()))
	if err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "All bookings reset",
		"removed": n,
	})
}
