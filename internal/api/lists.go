package api

import (
	"bytes"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/loadout/internal/model"
	"github.com/erazemk/loadout/internal/printsheet"
	"github.com/erazemk/loadout/internal/schedule"
	"github.com/erazemk/loadout/internal/store"
	"github.com/erazemk/loadout/internal/transfer"
)

// ListsHandler handles loading list endpoints, the printable sheet and the
// schedule board.
type ListsHandler struct {
	DB        *sql.DB
	Transfers *transfer.Coordinator
	Printer   printsheet.Printer
	Archiver  printsheet.Archiver
	Location  *time.Location
}

type listRequest struct {
	SiteName   string `json:"site_name"`
	Date       string `json:"date"`
	ReturnDate string `json:"return_date"`
	Notes      string `json:"notes"`
	TeamID     *int64 `json:"team_id"`
}

// List handles GET /api/loading_lists?from=&to=&team_id=.
func (h *ListsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ListFilter{From: q.Get("from"), To: q.Get("to")}
	for _, d := range []string{filter.From, filter.To} {
		if d == "" {
			continue
		}
		if _, err := model.ParseDate(d); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if t := q.Get("team_id"); t != "" {
		id, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid team id")
			return
		}
		filter.TeamID = id
	}

	lists, err := store.ListLoadingLists(r.Context(), h.DB, filter)
	if err != nil {
		writeError(w, err, "failed to list loading lists")
		return
	}
	if lists == nil {
		lists = []model.LoadingList{}
	}
	jsonResponse(w, http.StatusOK, lists)
}

// Create handles POST /api/loading_lists.
func (h *ListsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	l, err := store.CreateLoadingList(r.Context(), h.DB, store.ListInput{
		SiteName:   req.SiteName,
		Date:       req.Date,
		ReturnDate: req.ReturnDate,
		Notes:      req.Notes,
		TeamID:     req.TeamID,
		UserID:     &claims.UserID,
	})
	if err != nil {
		writeError(w, err, "failed to create loading list")
		return
	}

	slog.Info("loading list created", "user", claims.Username, "list", l.ID, "site", l.SiteName, "date", l.Date)
	jsonResponse(w, http.StatusCreated, l)
}

// Get handles GET /api/loading_lists/{id}.
func (h *ListsHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, ok := h.load(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, l)
}

// Update handles PUT /api/loading_lists/{id}. Allocations are edited through
// the gesture endpoints.
func (h *ListsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid loading list id")
		return
	}

	var req listRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := store.UpdateLoadingList(r.Context(), h.DB, id, store.ListInput{
		SiteName:   req.SiteName,
		Date:       req.Date,
		ReturnDate: req.ReturnDate,
		Notes:      req.Notes,
		TeamID:     req.TeamID,
	})
	if err != nil {
		writeError(w, err, "failed to update loading list")
		return
	}

	l, ok := h.load(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, l)
}

// Delete handles DELETE /api/loading_lists/{id}. Allocations are reconciled
// against the pool before the list goes.
func (h *ListsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid loading list id")
		return
	}

	res, err := h.Transfers.DeleteList(r.Context(), id)
	writeChange(w, http.StatusOK, res, err)
}

// Copy handles POST /api/loading_lists/{id}/copy. Omitted fields other than
// the dates are taken from the source list.
func (h *ListsHandler) Copy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid loading list id")
		return
	}

	var req listRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	res, err := h.Transfers.CopyList(r.Context(), id, transfer.CopyInput{
		SiteName:   req.SiteName,
		Date:       req.Date,
		ReturnDate: req.ReturnDate,
		Notes:      req.Notes,
		TeamID:     req.TeamID,
		UserID:     &claims.UserID,
	})
	writeChange(w, http.StatusCreated, res, err)
}

// Sheet handles GET /api/loading_lists/{id}/sheet.
func (h *ListsHandler) Sheet(w http.ResponseWriter, r *http.Request) {
	l, ok := h.load(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := printsheet.Render(&buf, printsheet.FromList(l, time.Now().In(h.Location))); err != nil {
		writeError(w, err, "failed to render loading sheet")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// SheetPDF handles GET /api/loading_lists/{id}/sheet.pdf. When archiving is
// configured the PDF is also uploaded; an upload failure does not fail the
// download.
func (h *ListsHandler) SheetPDF(w http.ResponseWriter, r *http.Request) {
	if h.Printer == nil {
		jsonError(w, http.StatusServiceUnavailable, "pdf printing is not configured")
		return
	}

	l, ok := h.load(w, r)
	if !ok {
		return
	}

	sheet := printsheet.FromList(l, time.Now().In(h.Location))
	var buf bytes.Buffer
	if err := printsheet.Render(&buf, sheet); err != nil {
		writeError(w, err, "failed to render loading sheet")
		return
	}

	pdf, err := h.Printer.PrintPDF(r.Context(), buf.Bytes())
	if err != nil {
		writeError(w, err, "failed to print loading sheet")
		return
	}

	name := printsheet.FileName(sheet)
	if h.Archiver != nil {
		location, err := h.Archiver.Archive(r.Context(), name, pdf)
		if err != nil {
			slog.Warn("failed to archive loading sheet", "list", l.ID, "error", err)
		} else {
			w.Header().Set("X-Archive-Location", location)
			slog.Info("loading sheet archived", "list", l.ID, "location", location)
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(pdf)
}

// Board handles GET /api/board?date=.
func (h *ListsHandler) Board(w http.ResponseWriter, r *http.Request) {
	today := r.URL.Query().Get("date")
	if today == "" {
		today = schedule.Today(time.Now(), h.Location)
	}

	from, to, err := schedule.Window(today)
	if err != nil {
		writeError(w, err, "invalid date")
		return
	}

	lists, err := store.ListLoadingLists(r.Context(), h.DB, store.ListFilter{From: from, To: to})
	if err != nil {
		writeError(w, err, "failed to list loading lists")
		return
	}

	board, err := schedule.Build(lists, today)
	if err != nil {
		writeError(w, err, "failed to build board")
		return
	}
	jsonResponse(w, http.StatusOK, board)
}

// load reads the {id} list, writing the error response when it fails.
func (h *ListsHandler) load(w http.ResponseWriter, r *http.Request) (*model.LoadingList, bool) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid loading list id")
		return nil, false
	}

	l, err := store.GetLoadingList(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "failed to get loading list")
		return nil, false
	}
	if l == nil {
		jsonError(w, http.StatusNotFound, "loading list not found")
		return nil, false
	}
	return l, true
}
