package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/loadout/internal/model"
)

const itemColumns = `id, name, category, quantity, image_mime, created_at, updated_at, deleted_at`

// CreateItem creates a new item with its initial warehouse quantity.
func CreateItem(ctx context.Context, db *sql.DB, name, category string, quantity int) (*model.Item, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", model.ErrInvalid)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO items (name, category, quantity) VALUES (?, ?, ?)`,
		name, category, quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, or nil if it does not exist.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all non-deleted items, optionally filtered by category.
func ListItems(ctx context.Context, db *sql.DB, category string) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE deleted_at IS NULL`
	var args []any
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListCategories returns the distinct categories of non-deleted items.
func ListCategories(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT DISTINCT category FROM items
		 WHERE deleted_at IS NULL AND category != '' ORDER BY category`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateItem updates an item's name and category. Quantity is owned by the
// allocation engine and is never written here.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, name, category string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, category = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		name, category, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return requireRow(result, ErrNotFound)
}

// DeleteItem soft-deletes an item. Fails while the item is on any list.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL
		   AND NOT EXISTS (SELECT 1 FROM loading_list_items WHERE item_id = ?)`,
		id, id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n > 0 {
		return nil
	}

	var count int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loading_list_items WHERE item_id = ?`, id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking item allocations: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: still on %d loading lists", ErrItemInUse, count)
	}
	return ErrNotFound
}

// GetItemQuantity returns the unallocated quantity of an item.
func GetItemQuantity(ctx context.Context, db *sql.DB, id int64) (int, error) {
	var quantity int
	err := db.QueryRowContext(ctx,
		`SELECT quantity FROM items WHERE id = ?`, id,
	).Scan(&quantity)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("getting item quantity: %w", err)
	}
	return quantity, nil
}

// AdjustItemQuantity applies delta to an item's pool quantity in a single
// conditional statement. It fails with ErrInsufficientStock instead of
// letting the quantity go negative, and with ErrNotFound for unknown items.
// Deleted items only accept credits, so lists still holding them can be
// cleared.
func AdjustItemQuantity(ctx context.Context, db *sql.DB, id int64, delta int) (*model.Item, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND quantity + ? >= 0 AND (? >= 0 OR deleted_at IS NULL)`,
		delta, id, delta, delta,
	)
	if err != nil {
		return nil, fmt.Errorf("adjusting item quantity: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("adjusting item quantity: %w", err)
	}
	if n == 0 {
		var current int
		var deleted bool
		err := db.QueryRowContext(ctx,
			`SELECT quantity, deleted_at IS NOT NULL FROM items WHERE id = ?`, id,
		).Scan(&current, &deleted)
		if err == sql.ErrNoRows || (err == nil && deleted) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("getting item quantity: %w", err)
		}
		return nil, fmt.Errorf("%w: item %d has %d, change is %d", ErrInsufficientStock, id, current, delta)
	}

	return GetItem(ctx, db, id)
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return requireRow(result, ErrNotFound)
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var imageMime sql.NullString
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.Quantity, &imageMime,
		&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt)
	if err != nil {
		return nil, err
	}
	item.ImageMime = imageMime.String
	return item, nil
}

// requireRow returns notFound when an UPDATE or DELETE touched no rows.
func requireRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
