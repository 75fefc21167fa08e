package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/loadout/internal/model"
)

// ListInput holds the header fields of a loading list.
type ListInput struct {
	SiteName   string
	Date       string
	ReturnDate string
	Notes      string
	TeamID     *int64
	UserID     *int64
}

// ListFilter narrows ListLoadingLists. Zero values match everything.
// From and To bound the delivery date, inclusive.
type ListFilter struct {
	From   string
	To     string
	TeamID int64
}

const listColumns = `l.id, l.site_name, l.date, l.return_date, l.notes, l.team_id, l.user_id, l.created_at,
	COALESCE(t.name, '')`

const listFrom = ` FROM loading_lists l LEFT JOIN teams t ON t.id = l.team_id`

// CreateLoadingList creates a loading list with no allocations.
func CreateLoadingList(ctx context.Context, db *sql.DB, in ListInput) (*model.LoadingList, error) {
	if err := model.ValidateDates(in.Date, in.ReturnDate); err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO loading_lists (site_name, date, return_date, notes, team_id, user_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.SiteName, in.Date, in.ReturnDate, in.Notes, in.TeamID, in.UserID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("creating loading list: team or user %w", ErrNotFound)
		}
		return nil, fmt.Errorf("creating loading list: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting loading list id: %w", err)
	}
	return GetLoadingList(ctx, db, id)
}

// GetLoadingList returns a list with its allocations and their items, or nil
// if the list does not exist.
func GetLoadingList(ctx context.Context, db *sql.DB, id int64) (*model.LoadingList, error) {
	l, err := scanList(db.QueryRowContext(ctx,
		`SELECT `+listColumns+listFrom+` WHERE l.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting loading list: %w", err)
	}

	allocations, err := ListAllocationsByList(ctx, db, id)
	if err != nil {
		return nil, err
	}
	l.Allocations = allocations
	return l, nil
}

// LoadingListExists reports whether a list with the given id exists.
func LoadingListExists(ctx context.Context, db *sql.DB, id int64) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM loading_lists WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking loading list: %w", err)
	}
	return n > 0, nil
}

// ListLoadingLists returns the lists matching filter ordered by delivery date,
// each with its allocations and their items.
func ListLoadingLists(ctx context.Context, db *sql.DB, filter ListFilter) ([]model.LoadingList, error) {
	where, args := filter.where()

	rows, err := db.QueryContext(ctx,
		`SELECT `+listColumns+listFrom+where+` ORDER BY l.date, l.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing loading lists: %w", err)
	}
	defer rows.Close()

	var lists []model.LoadingList
	index := make(map[int64]int)
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning loading list: %w", err)
		}
		index[l.ID] = len(lists)
		lists = append(lists, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return lists, nil
	}

	arows, err := db.QueryContext(ctx,
		`SELECT `+allocationColumns+allocationFrom+
			` JOIN loading_lists l ON l.id = a.loading_list_id`+where+` ORDER BY a.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing allocations: %w", err)
	}
	defer arows.Close()

	for arows.Next() {
		a, err := scanAllocation(arows)
		if err != nil {
			return nil, fmt.Errorf("scanning allocation: %w", err)
		}
		if i, ok := index[a.LoadingListID]; ok {
			lists[i].Allocations = append(lists[i].Allocations, *a)
		}
	}
	return lists, arows.Err()
}

// UpdateLoadingList replaces a list's header fields.
func UpdateLoadingList(ctx context.Context, db *sql.DB, id int64, in ListInput) error {
	if err := model.ValidateDates(in.Date, in.ReturnDate); err != nil {
		return err
	}

	result, err := db.ExecContext(ctx,
		`UPDATE loading_lists SET site_name = ?, date = ?, return_date = ?, notes = ?, team_id = ?
		 WHERE id = ?`,
		in.SiteName, in.Date, in.ReturnDate, in.Notes, in.TeamID, id,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("updating loading list: team %w", ErrNotFound)
		}
		return fmt.Errorf("updating loading list: %w", err)
	}
	return requireRow(result, ErrNotFound)
}

// DeleteLoadingList deletes a list row. Remaining allocations cascade
// without touching item quantities; the allocation engine reconciles them
// first.
func DeleteLoadingList(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM loading_lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting loading list: %w", err)
	}
	return requireRow(result, ErrNotFound)
}

func (f ListFilter) where() (string, []any) {
	var conds []string
	var args []any
	if f.From != "" {
		conds = append(conds, "l.date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		conds = append(conds, "l.date <= ?")
		args = append(args, f.To)
	}
	if f.TeamID > 0 {
		conds = append(conds, "l.team_id = ?")
		args = append(args, f.TeamID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanList(row rowScanner) (*model.LoadingList, error) {
	l := &model.LoadingList{}
	err := row.Scan(&l.ID, &l.SiteName, &l.Date, &l.ReturnDate, &l.Notes, &l.TeamID, &l.UserID,
		&l.CreatedAt, &l.TeamName)
	if err != nil {
		return nil, err
	}
	return l, nil
}
