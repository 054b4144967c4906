package api

import (
	"context"
	"database/sql"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/darila/internal/catalog"
	"github.com/erazemk/darila/internal/model"
	"github.com/erazemk/darila/internal/store"
)

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	DB      *sql.DB
	Catalog *catalog.Service
	Logger  *zap.Logger
}

type categoryRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

func (req *categoryRequest) normalize() {
	req.Name = strings.TrimSpace(req.Name)
	if req.Description != nil && strings.TrimSpace(*req.Description) == "" {
		req.Description = nil
	}
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	jsonResponse(w, http.StatusOK, categories)
}

// Get handles GET /api/categories/{id}.
func (h *CategoriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	category, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}
	if category == nil {
		jsonError(w, http.StatusNotFound, "category not found")
		return
	}
	jsonResponse(w, http.StatusOK, category)
}

// Create handles POST /api/categories.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.normalize()
	if err := validate.Struct(req); err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}

	category, err := store.CreateCategory(r.Context(), h.DB, req.Name, req.Description)
	if err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}

	h.Logger.Info("category created", zap.Int64("id", category.ID), zap.String("name", category.Name))
	jsonResponse(w, http.StatusCreated, category)
}

// Update handles PUT /api/categories/{id}.
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.normalize()
	if err := validate.Struct(req); err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}

	if err := store.UpdateCategory(r.Context(), h.DB, id, req.Name, req.Description); err != nil {
		writeError(w, r, h.Logger, err, "category not found")
		return
	}

	category, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}
	jsonResponse(w, http.StatusOK, category)
}

// Delete handles DELETE /api/categories/{id}. Items of the category and
// their bookings and local images go with it.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if _, err := h.Catalog.DeleteCategory(context.WithoutCancel(r.Context()), id); err != nil {
		writeError(w, r, h.Logger, err, "category not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
