package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/erazemk/darila/internal/catalog"
	"github.com/erazemk/darila/internal/importer"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	Catalog        *catalog.Service
	Importer       *importer.Importer
	Logger         *zap.Logger
	MaxUploadBytes int64
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := catalog.ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}

	page, err := h.Catalog.Feed(r.Context(), q)
	if err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}
	jsonResponse(w, http.StatusOK, page)
}

// Carousels handles GET /api/items/carousels.
func (h *ItemsHandler) Carousels(w http.ResponseWriter, r *http.Request) {
	q, err := catalog.ParseDualQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}

	page, err := h.Catalog.DualFeed(r.Context(), q)
	if err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}
	jsonResponse(w, http.StatusOK, page)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.Catalog.Item(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Logger, err, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req catalog.NewItem
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Normalize()
	if err := validate.Struct(req); err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}

	// Image fetching and writes finish even if the client goes away.
	ctx := context.WithoutCancel(r.Context())
	item, err := h.Catalog.CreateItem(ctx, req)
	if err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Bulk handles POST /api/items/bulk. It answers 201 when every record was
// imported and 207 when some failed.
func (h *ItemsHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.MaxUploadBytes))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	raws, err := importer.ParsePayload(body)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.Importer.Import(context.WithoutCancel(r.Context()), raws)
	if err != nil {
		writeError(w, r, h.Logger, err, "")
		return
	}

	status := http.StatusCreated
	if !res.OK() {
		status = http.StatusMultiStatus
	}
	jsonResponse(w, status, res)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var patch catalog.ItemPatch
	if err := decodeJSON(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Catalog.UpdateItem(context.WithoutCancel(r.Context()), id, patch)
	if err != nil {
		writeError(w, r, h.Logger, err, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.Catalog.DeleteItem(context.WithoutCancel(r.Context()), id); err != nil {
		writeError(w, r, h.Logger, err, "item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Renew handles POST /api/items/{id}/renew.
func (h *ItemsHandler) Renew(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.Catalog.Renew(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Logger, err, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// UploadImage handles PUT /api/items/{id}/image with a multipart "image" file.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	// Allow for multipart overhead on top of the image itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	item, err := h.Catalog.SetImage(context.WithoutCancel(r.Context()), id, file, h.MaxUploadBytes)
	if err != nil {
		writeError(w, r, h.Logger, err, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}
