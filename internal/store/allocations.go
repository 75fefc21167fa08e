package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/loadout/internal/model"
)

const allocationColumns = `a.id, a.loading_list_id, a.item_id, a.quantity, a.loaded, a.created_at,
	i.id, i.name, i.category, i.quantity, i.image_mime, i.created_at, i.updated_at, i.deleted_at`

const allocationFrom = ` FROM loading_list_items a JOIN items i ON i.id = a.item_id`

// CreateAllocation puts quantity of an item on a list. It does not touch the
// item's pool quantity. A second allocation of the same item on the same
// list fails with ErrDuplicateAllocation, and a deleted item fails with
// ErrNotFound.
func CreateAllocation(ctx context.Context, db *sql.DB, listID, itemID int64, quantity int) (*model.Allocation, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: allocation quantity must be positive", model.ErrInvalid)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO loading_list_items (loading_list_id, item_id, quantity)
		 SELECT ?, ?, ? WHERE EXISTS (SELECT 1 FROM items WHERE id = ? AND deleted_at IS NULL)`,
		listID, itemID, quantity, itemID,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("list %d, item %d: %w", listID, itemID, ErrDuplicateAllocation)
	}
	if isForeignKeyViolation(err) {
		return nil, fmt.Errorf("list %d or item %d: %w", listID, itemID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("creating allocation: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("creating allocation: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting allocation id: %w", err)
	}

	a, err := GetAllocation(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrConflictingState
	}
	return a, nil
}

// GetAllocation returns an allocation with its item, or nil if it does not
// exist.
func GetAllocation(ctx context.Context, db *sql.DB, id int64) (*model.Allocation, error) {
	a, err := scanAllocation(db.QueryRowContext(ctx,
		`SELECT `+allocationColumns+allocationFrom+` WHERE a.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting allocation: %w", err)
	}
	return a, nil
}

// FindAllocation returns the allocation of itemID on listID, or nil.
func FindAllocation(ctx context.Context, db *sql.DB, listID, itemID int64) (*model.Allocation, error) {
	a, err := scanAllocation(db.QueryRowContext(ctx,
		`SELECT `+allocationColumns+allocationFrom+` WHERE a.loading_list_id = ? AND a.item_id = ?`,
		listID, itemID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding allocation: %w", err)
	}
	return a, nil
}

// SetAllocationQuantity sets an allocation's quantity. A quantity of zero or
// less deletes the allocation and returns nil. A missing allocation yields
// ErrConflictingState.
func SetAllocationQuantity(ctx context.Context, db *sql.DB, id int64, quantity int) (*model.Allocation, error) {
	if quantity <= 0 {
		return nil, DeleteAllocation(ctx, db, id)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE loading_list_items SET quantity = ? WHERE id = ?`, quantity, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating allocation quantity: %w", err)
	}
	if err := requireRow(result, ErrConflictingState); err != nil {
		return nil, err
	}

	a, err := GetAllocation(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrConflictingState
	}
	return a, nil
}

// SetAllocationLoaded marks whether an allocation has left the warehouse.
func SetAllocationLoaded(ctx context.Context, db *sql.DB, id int64, loaded bool) (*model.Allocation, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE loading_list_items SET loaded = ? WHERE id = ?`, loaded, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating allocation loaded flag: %w", err)
	}
	if err := requireRow(result, ErrNotFound); err != nil {
		return nil, err
	}
	return GetAllocation(ctx, db, id)
}

// DeleteAllocation removes an allocation without touching item quantities.
// A missing allocation yields ErrConflictingState.
func DeleteAllocation(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM loading_list_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting allocation: %w", err)
	}
	return requireRow(result, ErrConflictingState)
}

// ListAllocationsByList returns a list's allocations in insertion order.
func ListAllocationsByList(ctx context.Context, db *sql.DB, listID int64) ([]model.Allocation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+allocationColumns+allocationFrom+` WHERE a.loading_list_id = ? ORDER BY a.id`, listID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing allocations: %w", err)
	}
	defer rows.Close()
	return scanAllocations(rows)
}

// ListAllocationsByItemAndReturnDate returns every allocation of itemID on a
// list due back on date, across all lists.
func ListAllocationsByItemAndReturnDate(ctx context.Context, db *sql.DB, itemID int64, date string) ([]model.Allocation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+allocationColumns+allocationFrom+`
		 JOIN loading_lists l ON l.id = a.loading_list_id
		 WHERE a.item_id = ? AND l.return_date = ?
		 ORDER BY a.id`, itemID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("listing returning allocations: %w", err)
	}
	defer rows.Close()
	return scanAllocations(rows)
}

// SumReturningByItem returns, per item id, the quantity on lists due back on
// date.
func SumReturningByItem(ctx context.Context, db *sql.DB, date string) (map[int64]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT a.item_id, SUM(a.quantity)
		 FROM loading_list_items a
		 JOIN loading_lists l ON l.id = a.loading_list_id
		 WHERE l.return_date = ?
		 GROUP BY a.item_id`, date,
	)
	if err != nil {
		return nil, fmt.Errorf("summing returning allocations: %w", err)
	}
	defer rows.Close()

	sums := make(map[int64]int)
	for rows.Next() {
		var itemID int64
		var sum int
		if err := rows.Scan(&itemID, &sum); err != nil {
			return nil, fmt.Errorf("scanning returning sum: %w", err)
		}
		sums[itemID] = sum
	}
	return sums, rows.Err()
}

func scanAllocations(rows *sql.Rows) ([]model.Allocation, error) {
	var allocations []model.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning allocation: %w", err)
		}
		allocations = append(allocations, *a)
	}
	return allocations, rows.Err()
}

func scanAllocation(row rowScanner) (*model.Allocation, error) {
	a := &model.Allocation{Item: &model.Item{}}
	var imageMime sql.NullString
	err := row.Scan(&a.ID, &a.LoadingListID, &a.ItemID, &a.Quantity, &a.Loaded, &a.CreatedAt,
		&a.Item.ID, &a.Item.Name, &a.Item.Category, &a.Item.Quantity, &imageMime,
		&a.Item.CreatedAt, &a.Item.UpdatedAt, &a.Item.DeletedAt)
	if err != nil {
		return nil, err
	}
	a.Item.ImageMime = imageMime.String
	return a, nil
}
