package allocation

import (
	"fmt"

	"github.com/erazemk/loadout/internal/store"
)

// Error kinds surfaced by the engine. They are the record store's sentinels,
// so errors.Is works on both layers.
var (
	ErrNotFound            = store.ErrNotFound
	ErrInsufficientStock   = store.ErrInsufficientStock
	ErrDuplicateAllocation = store.ErrDuplicateAllocation
	ErrConflictingState    = store.ErrConflictingState
)

// StepError reports a multi-step operation that failed part way. Compensated
// is true when the steps already applied were undone; CompensationErr is set
// when undoing them failed too, in which case stock may be inconsistent.
type StepError struct {
	Op              string
	Step            string
	Err             error
	Compensated     bool
	CompensationErr error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s: %s: %v", e.Op, e.Step, e.Err)
	if e.CompensationErr != nil {
		msg += fmt.Sprintf(" (compensation failed: %v)", e.CompensationErr)
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}
