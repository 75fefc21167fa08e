// Package allocation moves item quantities between the shared pool and
// loading lists. Every mutation keeps the pool quantity plus all allocations
// of an item equal to its total stock, using compensating actions instead of
// transactions.
package allocation

import (
	"context"
	"database/sql"

	"github.com/erazemk/loadout/internal/model"
	"github.com/erazemk/loadout/internal/store"
)

// Pool is the per-item unallocated quantity.
type Pool interface {
	Get(ctx context.Context, itemID int64) (*model.Item, error)
	Quantity(ctx context.Context, itemID int64) (int, error)
	AdjustQuantity(ctx context.Context, itemID int64, delta int) (*model.Item, error)
}

// Allocations is the store of list/item bindings.
type Allocations interface {
	Get(ctx context.Context, id int64) (*model.Allocation, error)
	Find(ctx context.Context, listID, itemID int64) (*model.Allocation, error)
	Create(ctx context.Context, listID, itemID int64, quantity int) (*model.Allocation, error)
	SetQuantity(ctx context.Context, id int64, quantity int) (*model.Allocation, error)
	SetLoaded(ctx context.Context, id int64, loaded bool) (*model.Allocation, error)
	Delete(ctx context.Context, id int64) error
	ListByList(ctx context.Context, listID int64) ([]model.Allocation, error)
	ListByItemAndReturnDate(ctx context.Context, itemID int64, date string) ([]model.Allocation, error)
}

// Lists is the loading list header store.
type Lists interface {
	Exists(ctx context.Context, listID int64) (bool, error)
	Delete(ctx context.Context, listID int64) error
}

// Journal records pool movements.
type Journal interface {
	Record(ctx context.Context, m model.Movement) error
}

// Catalog answers the bulk queries behind availability listings.
type Catalog interface {
	Items(ctx context.Context, category string) ([]model.Item, error)
	ReturningByItem(ctx context.Context, date string) (map[int64]int, error)
	Categories(ctx context.Context) ([]string, error)
}

// Backend groups the collaborators of an Engine and a Projector.
type Backend struct {
	Pool        Pool
	Allocations Allocations
	Lists       Lists
	Journal     Journal
	Catalog     Catalog
}

// SQLBackend wires every port to the SQLite record store.
func SQLBackend(db *sql.DB) Backend {
	pool := store.ItemPool{DB: db}
	allocations := store.AllocationTable{DB: db}
	return Backend{
		Pool:        pool,
		Allocations: allocations,
		Lists:       store.ListTable{DB: db},
		Journal:     store.MovementJournal{DB: db},
		Catalog: catalog{
			items:     pool,
			returning: allocations,
		},
	}
}

type catalog struct {
	items     store.ItemPool
	returning store.AllocationTable
}

func (c catalog) Items(ctx context.Context, category string) ([]model.Item, error) {
	return c.items.Items(ctx, category)
}

func (c catalog) ReturningByItem(ctx context.Context, date string) (map[int64]int, error) {
	return c.returning.ReturningByItem(ctx, date)
}

func (c catalog) Categories(ctx context.Context) ([]string, error) {
	return store.ListCategories(ctx, c.items.DB)
}
