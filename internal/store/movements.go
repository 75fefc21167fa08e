package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/loadout/internal/model"
)

// RecordMovement appends one entry to the pool movement journal.
func RecordMovement(ctx context.Context, db *sql.DB, m model.Movement) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO movements (item_id, loading_list_id, allocation_id, delta, kind, notes, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ItemID, m.LoadingListID, m.AllocationID, m.Delta, m.Kind, m.Notes, m.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("recording movement: %w", err)
	}
	return nil
}

// ListMovements returns journal entries, newest first, optionally limited to
// one item.
func ListMovements(ctx context.Context, db *sql.DB, itemID int64) ([]model.Movement, error) {
	query := `SELECT m.id, m.item_id, m.loading_list_id, m.allocation_id, m.delta, m.kind, m.notes,
	                 m.created_at, m.created_by, i.name
	          FROM movements m
	          JOIN items i ON i.id = m.item_id`
	var args []any
	if itemID > 0 {
		query += ` WHERE m.item_id = ?`
		args = append(args, itemID)
	}
	query += ` ORDER BY m.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	defer rows.Close()

	var movements []model.Movement
	for rows.Next() {
		var m model.Movement
		if err := rows.Scan(&m.ID, &m.ItemID, &m.LoadingListID, &m.AllocationID, &m.Delta, &m.Kind,
			&m.Notes, &m.CreatedAt, &m.CreatedBy, &m.ItemName); err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
