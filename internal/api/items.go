package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/loadout/internal/allocation"
	"github.com/erazemk/loadout/internal/imaging"
	"github.com/erazemk/loadout/internal/model"
	"github.com/erazemk/loadout/internal/schedule"
	"github.com/erazemk/loadout/internal/store"
)

// ItemsHandler handles item, stock and availability endpoints.
type ItemsHandler struct {
	DB        *sql.DB
	Engine    *allocation.Engine
	Projector *allocation.Projector
	Location  *time.Location
}

type createItemRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

type updateItemRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type stockRequest struct {
	Delta int    `json:"delta"`
	Notes string `json:"notes"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), h.DB, r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, err, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items. The initial quantity is booked as a stock
// adjustment so it shows up in the item's history.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}
	if req.Quantity < 0 {
		jsonError(w, http.StatusBadRequest, "quantity must not be negative")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, req.Name, strings.TrimSpace(req.Category), 0)
	if err != nil {
		writeError(w, err, "failed to create item")
		return
	}

	if req.Quantity > 0 {
		item, err = h.Engine.AdjustStock(r.Context(), item.ID, req.Quantity, "initial stock")
		if err != nil {
			writeError(w, err, "failed to set initial stock")
			return
		}
	}

	slog.Info("item created", "user", GetClaims(r.Context()).Username, "item", item.Name, "quantity", item.Quantity)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}. Quantity changes go through the stock
// endpoint.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	if err := store.UpdateItem(r.Context(), h.DB, id, req.Name, strings.TrimSpace(req.Category)); err != nil {
		writeError(w, err, "failed to update item")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "failed to get item")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, id); err != nil {
		writeError(w, err, "failed to delete item")
		return
	}

	slog.Info("item deleted", "user", GetClaims(r.Context()).Username, "item", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// AdjustStock handles POST /api/items/{id}/stock.
func (h *ItemsHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Engine.AdjustStock(r.Context(), id, req.Delta, req.Notes)
	if err != nil {
		writeError(w, err, "failed to adjust stock")
		return
	}

	slog.Info("stock adjusted", "user", GetClaims(r.Context()).Username, "item", item.Name,
		"delta", req.Delta, "quantity", item.Quantity)
	jsonResponse(w, http.StatusOK, item)
}

// Availability handles GET /api/items/{id}/availability?date=.
func (h *ItemsHandler) Availability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	a, err := h.Projector.Availability(r.Context(), id, h.day(r))
	if err != nil {
		writeError(w, err, "failed to get availability")
		return
	}
	jsonResponse(w, http.StatusOK, a)
}

// AvailabilityList handles GET /api/availability?date=&category=.
func (h *ItemsHandler) AvailabilityList(w http.ResponseWriter, r *http.Request) {
	list, err := h.Projector.AvailabilityByCategory(r.Context(), h.day(r), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, err, "failed to list availability")
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// Categories handles GET /api/categories.
func (h *ItemsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Projector.Categories(r.Context())
	if err != nil {
		writeError(w, err, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []string{}
	}
	jsonResponse(w, http.StatusOK, categories)
}

// GetHistory handles GET /api/items/{id}/history.
func (h *ItemsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	history, err := store.ListMovements(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "failed to get item history")
		return
	}
	if history == nil {
		history = []model.Movement{}
	}
	jsonResponse(w, http.StatusOK, history)
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	// Leave room for the multipart envelope.
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Normalize(file)
	if errors.Is(err, imaging.ErrTooLarge) {
		jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, id, photo.Data, photo.MIME); err != nil {
		writeError(w, err, "failed to save image")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"message": "image uploaded",
		"width":   photo.Width,
		"height":  photo.Height,
	})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// day is the ?date= query value, or today in the configured location.
func (h *ItemsHandler) day(r *http.Request) string {
	if d := r.URL.Query().Get("date"); d != "" {
		return d
	}
	return schedule.Today(time.Now(), h.Location)
}
