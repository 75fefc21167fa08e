package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/loadout/internal/model"
	"github.com/erazemk/loadout/internal/store"
)

// TeamsHandler handles team endpoints.
type TeamsHandler struct {
	DB *sql.DB
}

type teamRequest struct {
	Name string `json:"name"`
}

// List handles GET /api/teams.
func (h *TeamsHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := store.ListTeams(r.Context(), h.DB)
	if err != nil {
		writeError(w, err, "failed to list teams")
		return
	}
	if teams == nil {
		teams = []model.Team{}
	}
	jsonResponse(w, http.StatusOK, teams)
}

// Create handles POST /api/teams.
func (h *TeamsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	team, err := store.CreateTeam(r.Context(), h.DB, req.Name)
	if err != nil {
		writeError(w, err, "failed to create team")
		return
	}

	slog.Info("team created", "user", GetClaims(r.Context()).Username, "team", team.Name)
	jsonResponse(w, http.StatusCreated, team)
}

// Get handles GET /api/teams/{id}.
func (h *TeamsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid team id")
		return
	}

	team, err := store.GetTeam(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "failed to get team")
		return
	}
	if team == nil {
		jsonError(w, http.StatusNotFound, "team not found")
		return
	}
	jsonResponse(w, http.StatusOK, team)
}

// Update handles PUT /api/teams/{id}.
func (h *TeamsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid team id")
		return
	}

	var req teamRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	if err := store.UpdateTeam(r.Context(), h.DB, id, req.Name); err != nil {
		writeError(w, err, "failed to update team")
		return
	}

	team, err := store.GetTeam(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "failed to get team")
		return
	}
	jsonResponse(w, http.StatusOK, team)
}
