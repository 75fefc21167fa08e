package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/loadout/internal/model"
)

// CreateTeam creates a new team.
func CreateTeam(ctx context.Context, db *sql.DB, name string) (*model.Team, error) {
	result, err := db.ExecContext(ctx, `INSERT INTO teams (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %q", ErrTeamNameTaken, name)
		}
		return nil, fmt.Errorf("creating team: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting team id: %w", err)
	}
	return GetTeam(ctx, db, id)
}

// GetTeam returns a team by ID, or nil if it does not exist.
func GetTeam(ctx context.Context, db *sql.DB, id int64) (*model.Team, error) {
	t := &model.Team{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM teams WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting team: %w", err)
	}
	return t, nil
}

// ListTeams returns all teams ordered by name.
func ListTeams(ctx context.Context, db *sql.DB) ([]model.Team, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, created_at FROM teams ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	var teams []model.Team
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// UpdateTeam renames a team.
func UpdateTeam(ctx context.Context, db *sql.DB, id int64, name string) error {
	result, err := db.ExecContext(ctx, `UPDATE teams SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrTeamNameTaken, name)
		}
		return fmt.Errorf("updating team: %w", err)
	}
	return requireRow(result, ErrNotFound)
}
