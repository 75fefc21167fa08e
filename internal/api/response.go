package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/loadout/internal/model"
	"github.com/erazemk/loadout/internal/store"
	"github.com/erazemk/loadout/internal/transfer"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorResponse{Error: message})
}

type errorResponse struct {
	Error  string           `json:"error"`
	Detail string           `json:"detail,omitempty"`
	Change *transfer.Change `json:"change,omitempty"`
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// decodeOptionalJSON is decodeJSON that accepts an empty body.
func decodeOptionalJSON(r *http.Request, target any) error {
	err := decodeJSON(r, target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// errorStatus maps store and engine errors to an HTTP status and a short
// message. Unknown errors are internal.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, store.ErrInsufficientStock):
		return http.StatusConflict, store.ErrInsufficientStock.Error()
	case errors.Is(err, store.ErrDuplicateAllocation):
		return http.StatusConflict, store.ErrDuplicateAllocation.Error()
	case errors.Is(err, store.ErrConflictingState):
		return http.StatusConflict, store.ErrConflictingState.Error()
	case errors.Is(err, store.ErrItemInUse):
		return http.StatusConflict, store.ErrItemInUse.Error()
	case errors.Is(err, store.ErrTeamNameTaken):
		return http.StatusConflict, store.ErrTeamNameTaken.Error()
	case errors.Is(err, store.ErrUsernameTaken):
		return http.StatusConflict, store.ErrUsernameTaken.Error()
	case errors.Is(err, model.ErrInvalid):
		return http.StatusBadRequest, "invalid input"
	}
	return http.StatusInternalServerError, "internal error"
}

// writeError writes err with its mapped status. Internal errors are logged
// with msg and their text is not sent to the client.
func writeError(w http.ResponseWriter, err error, msg string) {
	status, text := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error(msg, "error", err)
		jsonError(w, status, msg)
		return
	}
	jsonResponse(w, status, errorResponse{Error: text, Detail: err.Error()})
}

// writeChange writes the outcome of a gesture. Failed gestures carry the
// rolled back change so clients can drop their optimistic update.
func writeChange(w http.ResponseWriter, status int, res *transfer.Result, err error) {
	if err == nil {
		jsonResponse(w, status, res)
		return
	}

	code, text := errorStatus(err)
	body := errorResponse{Error: text, Detail: err.Error()}
	if code == http.StatusInternalServerError {
		slog.Error("change failed", "error", err)
		body = errorResponse{Error: "change failed"}
	}
	if res != nil {
		body.Change = &res.Change
	}
	jsonResponse(w, code, body)
}
