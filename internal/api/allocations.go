package api

import (
	"net/http"

	"github.com/erazemk/loadout/internal/transfer"
)

// AllocationsHandler turns list editor gestures into transfer changes.
type AllocationsHandler struct {
	Transfers *transfer.Coordinator
}

type addItemRequest struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

type stepRequest struct {
	By int `json:"by"`
}

type loadedRequest struct {
	Loaded *bool `json:"loaded"`
}

// Add handles POST /api/loading_lists/{id}/items (drag to list).
func (h *AllocationsHandler) Add(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid loading list id")
		return
	}

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID <= 0 {
		jsonError(w, http.StatusBadRequest, "item_id required")
		return
	}

	res, err := h.Transfers.DragToList(r.Context(), listID, req.ItemID, req.Quantity)
	writeChange(w, http.StatusCreated, res, err)
}

// Remove handles DELETE /api/loading_list_items/{id} (drag to pool).
func (h *AllocationsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid loading list item id")
		return
	}

	res, err := h.Transfers.DragToPool(r.Context(), id)
	writeChange(w, http.StatusOK, res, err)
}

// Increment handles POST /api/loading_list_items/{id}/increment. The body
// is optional and defaults to a step of one.
func (h *AllocationsHandler) Increment(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.step(w, r)
	if !ok {
		return
	}

	res, err := h.Transfers.Increment(r.Context(), id, req.By)
	writeChange(w, http.StatusOK, res, err)
}

// Decrement handles POST /api/loading_list_items/{id}/decrement.
func (h *AllocationsHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.step(w, r)
	if !ok {
		return
	}

	res, err := h.Transfers.Decrement(r.Context(), id, req.By)
	writeChange(w, http.StatusOK, res, err)
}

// SetLoaded handles PATCH /api/loading_list_items/{id}.
func (h *AllocationsHandler) SetLoaded(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid loading list item id")
		return
	}

	var req loadedRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Loaded == nil {
		jsonError(w, http.StatusBadRequest, "loaded required")
		return
	}

	res, err := h.Transfers.SetLoaded(r.Context(), id, *req.Loaded)
	writeChange(w, http.StatusOK, res, err)
}

// Pending handles GET /api/changes/pending.
func (h *AllocationsHandler) Pending(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.Transfers.Pending())
}

func (h *AllocationsHandler) step(w http.ResponseWriter, r *http.Request) (int64, stepRequest, bool) {
	var req stepRequest
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid loading list item id")
		return 0, req, false
	}
	if err := decodeOptionalJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return 0, req, false
	}
	if req.By < 0 {
		jsonError(w, http.StatusBadRequest, "by must not be negative")
		return 0, req, false
	}
	return id, req, true
}
