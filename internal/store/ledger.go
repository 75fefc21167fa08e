package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/loadout/internal/model"
)

// The types below adapt the package-level record functions to the narrow
// interfaces the allocation engine consumes. Each call is its own statement;
// none of them spans a transaction.

// ItemPool is the items table seen as the shared stock pool.
type ItemPool struct {
	DB *sql.DB
}

// Get returns an item or ErrNotFound.
func (p ItemPool) Get(ctx context.Context, itemID int64) (*model.Item, error) {
	item, err := GetItem(ctx, p.DB, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	return item, nil
}

// Quantity returns the unallocated quantity of an item.
func (p ItemPool) Quantity(ctx context.Context, itemID int64) (int, error) {
	q, err := GetItemQuantity(ctx, p.DB, itemID)
	if err == ErrNotFound {
		return 0, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	return q, err
}

// AdjustQuantity applies delta to an item's quantity.
func (p ItemPool) AdjustQuantity(ctx context.Context, itemID int64, delta int) (*model.Item, error) {
	item, err := AdjustItemQuantity(ctx, p.DB, itemID, delta)
	if err == ErrNotFound {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	return item, err
}

// Items lists non-deleted items, optionally one category.
func (p ItemPool) Items(ctx context.Context, category string) ([]model.Item, error) {
	return ListItems(ctx, p.DB, category)
}

// AllocationTable is the loading_list_items table.
type AllocationTable struct {
	DB *sql.DB
}

// Get returns an allocation or ErrNotFound.
func (t AllocationTable) Get(ctx context.Context, id int64) (*model.Allocation, error) {
	a, err := GetAllocation(ctx, t.DB, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("allocation %d: %w", id, ErrNotFound)
	}
	return a, nil
}

// Find returns the allocation of itemID on listID, or nil.
func (t AllocationTable) Find(ctx context.Context, listID, itemID int64) (*model.Allocation, error) {
	return FindAllocation(ctx, t.DB, listID, itemID)
}

// Create inserts a new allocation.
func (t AllocationTable) Create(ctx context.Context, listID, itemID int64, quantity int) (*model.Allocation, error) {
	return CreateAllocation(ctx, t.DB, listID, itemID, quantity)
}

// SetQuantity updates or, for quantity <= 0, deletes an allocation.
func (t AllocationTable) SetQuantity(ctx context.Context, id int64, quantity int) (*model.Allocation, error) {
	return SetAllocationQuantity(ctx, t.DB, id, quantity)
}

// SetLoaded updates the loaded flag.
func (t AllocationTable) SetLoaded(ctx context.Context, id int64, loaded bool) (*model.Allocation, error) {
	a, err := SetAllocationLoaded(ctx, t.DB, id, loaded)
	if err == ErrNotFound {
		return nil, fmt.Errorf("allocation %d: %w", id, ErrNotFound)
	}
	return a, err
}

// Delete removes an allocation.
func (t AllocationTable) Delete(ctx context.Context, id int64) error {
	return DeleteAllocation(ctx, t.DB, id)
}

// ListByList returns a list's allocations in insertion order.
func (t AllocationTable) ListByList(ctx context.Context, listID int64) ([]model.Allocation, error) {
	return ListAllocationsByList(ctx, t.DB, listID)
}

// ListByItemAndReturnDate returns allocations of an item due back on date.
func (t AllocationTable) ListByItemAndReturnDate(ctx context.Context, itemID int64, date string) ([]model.Allocation, error) {
	return ListAllocationsByItemAndReturnDate(ctx, t.DB, itemID, date)
}

// ReturningByItem sums allocations due back on date per item.
func (t AllocationTable) ReturningByItem(ctx context.Context, date string) (map[int64]int, error) {
	return SumReturningByItem(ctx, t.DB, date)
}

// ListTable is the loading_lists table.
type ListTable struct {
	DB *sql.DB
}

// Exists reports whether a list exists.
func (t ListTable) Exists(ctx context.Context, listID int64) (bool, error) {
	return LoadingListExists(ctx, t.DB, listID)
}

// Delete removes a list row.
func (t ListTable) Delete(ctx context.Context, listID int64) error {
	err := DeleteLoadingList(ctx, t.DB, listID)
	if err == ErrNotFound {
		return fmt.Errorf("loading list %d: %w", listID, ErrNotFound)
	}
	return err
}

// MovementJournal is the movements table.
type MovementJournal struct {
	DB *sql.DB
}

// Record appends a movement.
func (j MovementJournal) Record(ctx context.Context, m model.Movement) error {
	return RecordMovement(ctx, j.DB, m)
}

// Records is the read side of the record store plus list creation, as used
// when refreshing client snapshots after a change.
type Records struct {
	DB *sql.DB
}

// GetItem returns an item or ErrNotFound.
func (r Records) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	return ItemPool{DB: r.DB}.Get(ctx, id)
}

// GetAllocation returns an allocation or ErrNotFound.
func (r Records) GetAllocation(ctx context.Context, id int64) (*model.Allocation, error) {
	return AllocationTable{DB: r.DB}.Get(ctx, id)
}

// GetList returns a list with its allocations or ErrNotFound.
func (r Records) GetList(ctx context.Context, id int64) (*model.LoadingList, error) {
	l, err := GetLoadingList(ctx, r.DB, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("loading list %d: %w", id, ErrNotFound)
	}
	return l, nil
}

// CreateList creates an empty list.
func (r Records) CreateList(ctx context.Context, in ListInput) (*model.LoadingList, error) {
	return CreateLoadingList(ctx, r.DB, in)
}

// DeleteList removes a list row and, by cascade, its allocations.
func (r Records) DeleteList(ctx context.Context, id int64) error {
	return ListTable{DB: r.DB}.Delete(ctx, id)
}
