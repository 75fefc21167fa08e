package store

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Ledger error kinds. Callers match them with errors.Is.
var (
	// ErrNotFound reports an unknown item, list or allocation id.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock reports a change that would drive an item's pool
	// quantity below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicateAllocation reports an item that is already on the list.
	ErrDuplicateAllocation = errors.New("item already on list")
	// ErrConflictingState reports an allocation that disappeared between
	// being read and being written, usually removed by another session.
	ErrConflictingState = errors.New("allocation no longer exists")
)

// Catalogue error kinds.
var (
	// ErrItemInUse reports an item that cannot be deleted while on a list.
	ErrItemInUse = errors.New("item is on a loading list")
	// ErrTeamNameTaken reports a duplicate team name.
	ErrTeamNameTaken = errors.New("team name already exists")
)

func isConstraint(err error, code int) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == code
}

func isUniqueViolation(err error) bool {
	return isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE)
}

func isForeignKeyViolation(err error) bool {
	return isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY)
}
