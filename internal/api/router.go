package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/loadout/internal/allocation"
	"github.com/erazemk/loadout/internal/model"
	"github.com/erazemk/loadout/internal/printsheet"
	"github.com/erazemk/loadout/internal/store"
	"github.com/erazemk/loadout/internal/transfer"
)

// Options holds the collaborators of the API. Zero values get working
// defaults over the database.
type Options struct {
	Engine    *allocation.Engine
	Projector *allocation.Projector
	Transfers *transfer.Coordinator

	// Printer renders PDF sheets. Nil disables the PDF endpoint.
	Printer printsheet.Printer
	// Archiver keeps a copy of every printed PDF. Nil disables archiving.
	Archiver printsheet.Archiver

	// Location decides which calendar day is today.
	Location *time.Location
	TokenTTL time.Duration
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, opts Options) http.Handler {
	if opts.Engine == nil {
		opts.Engine = allocation.NewEngine(allocation.SQLBackend(db))
	}
	if opts.Projector == nil {
		opts.Projector = allocation.NewProjector(allocation.SQLBackend(db))
	}
	if opts.Transfers == nil {
		opts.Transfers = transfer.New(opts.Engine, store.Records{DB: db}, nil)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret, TokenTTL: opts.TokenTTL}
	usersHandler := &UsersHandler{DB: db}
	teamsHandler := &TeamsHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db, Engine: opts.Engine, Projector: opts.Projector, Location: opts.Location}
	listsHandler := &ListsHandler{
		DB:        db,
		Transfers: opts.Transfers,
		Printer:   opts.Printer,
		Archiver:  opts.Archiver,
		Location:  opts.Location,
	}
	allocationsHandler := &AllocationsHandler{Transfers: opts.Transfers}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Teams: read (all roles), write (manager+).
	mux.Handle("GET /api/teams", authMW(http.HandlerFunc(teamsHandler.List)))
	mux.Handle("POST /api/teams", authMW(requireManager(http.HandlerFunc(teamsHandler.Create))))
	mux.Handle("GET /api/teams/{id}", authMW(http.HandlerFunc(teamsHandler.Get)))
	mux.Handle("PUT /api/teams/{id}", authMW(requireManager(http.HandlerFunc(teamsHandler.Update))))

	// Items: read (all roles), write and stock (manager+).
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(requireManager(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(requireManager(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("DELETE /api/items/{id}", authMW(requireManager(http.HandlerFunc(itemsHandler.Delete))))
	mux.Handle("POST /api/items/{id}/stock", authMW(requireManager(http.HandlerFunc(itemsHandler.AdjustStock))))
	mux.Handle("GET /api/items/{id}/availability", authMW(http.HandlerFunc(itemsHandler.Availability)))
	mux.Handle("GET /api/items/{id}/history", authMW(http.HandlerFunc(itemsHandler.GetHistory)))
	mux.Handle("PUT /api/items/{id}/image", authMW(requireManager(http.HandlerFunc(itemsHandler.UploadImage))))
	mux.Handle("GET /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.GetImage)))
	mux.Handle("GET /api/availability", authMW(http.HandlerFunc(itemsHandler.AvailabilityList)))
	mux.Handle("GET /api/categories", authMW(http.HandlerFunc(itemsHandler.Categories)))

	// Loading lists (all roles).
	mux.Handle("GET /api/loading_lists", authMW(http.HandlerFunc(listsHandler.List)))
	mux.Handle("POST /api/loading_lists", authMW(http.HandlerFunc(listsHandler.Create)))
	mux.Handle("GET /api/loading_lists/{id}", authMW(http.HandlerFunc(listsHandler.Get)))
	mux.Handle("PUT /api/loading_lists/{id}", authMW(http.HandlerFunc(listsHandler.Update)))
	mux.Handle("DELETE /api/loading_lists/{id}", authMW(http.HandlerFunc(listsHandler.Delete)))
	mux.Handle("POST /api/loading_lists/{id}/copy", authMW(http.HandlerFunc(listsHandler.Copy)))
	mux.Handle("GET /api/loading_lists/{id}/sheet", authMW(http.HandlerFunc(listsHandler.Sheet)))
	mux.Handle("GET /api/loading_lists/{id}/sheet.pdf", authMW(http.HandlerFunc(listsHandler.SheetPDF)))
	mux.Handle("GET /api/board", authMW(http.HandlerFunc(listsHandler.Board)))

	// List editor gestures (all roles).
	mux.Handle("POST /api/loading_lists/{id}/items", authMW(http.HandlerFunc(allocationsHandler.Add)))
	mux.Handle("DELETE /api/loading_list_items/{id}", authMW(http.HandlerFunc(allocationsHandler.Remove)))
	mux.Handle("PATCH /api/loading_list_items/{id}", authMW(http.HandlerFunc(allocationsHandler.SetLoaded)))
	mux.Handle("POST /api/loading_list_items/{id}/increment", authMW(http.HandlerFunc(allocationsHandler.Increment)))
	mux.Handle("POST /api/loading_list_items/{id}/decrement", authMW(http.HandlerFunc(allocationsHandler.Decrement)))
	mux.Handle("GET /api/changes/pending", authMW(http.HandlerFunc(allocationsHandler.Pending)))

	return RecoverMiddleware(mux)
}
