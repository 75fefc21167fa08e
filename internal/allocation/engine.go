package allocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/erazemk/loadout/internal/model"
)

// RestockPolicy decides which allocations DestroyList credits back to the
// pool.
type RestockPolicy string

const (
	// RestockLoaded credits only allocations marked loaded. Unloaded
	// allocations are written off and logged.
	RestockLoaded RestockPolicy = "loaded"
	// RestockAll credits every allocation.
	RestockAll RestockPolicy = "all"
)

// ParseRestockPolicy validates a policy name.
func ParseRestockPolicy(s string) (RestockPolicy, error) {
	switch p := RestockPolicy(s); p {
	case RestockLoaded, RestockAll:
		return p, nil
	}
	return "", fmt.Errorf("invalid restock policy %q: must be loaded or all", s)
}

// Engine applies allocation operations against a Pool and an Allocations
// store. Mutations of the same item are serialized, and no commit reaches a
// list while it is being destroyed. Locks are taken list first, then item.
type Engine struct {
	pool        Pool
	allocations Allocations
	lists       Lists
	journal     Journal

	itemLocks keyedLocks
	listLocks keyedLocks
	restock   RestockPolicy
	log     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRestockPolicy sets the DestroyList policy. The default is RestockLoaded.
func WithRestockPolicy(p RestockPolicy) Option {
	return func(e *Engine) { e.restock = p }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an engine over b. b.Journal may be nil.
func NewEngine(b Backend, opts ...Option) *Engine {
	e := &Engine{
		pool:        b.Pool,
		allocations: b.Allocations,
		lists:       b.Lists,
		journal:     b.Journal,
		restock:     RestockLoaded,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RestockPolicy returns the configured DestroyList policy.
func (e *Engine) RestockPolicy() RestockPolicy {
	return e.restock
}

type actorKey struct{}

// WithActor attaches the id of the user performing an operation. It is
// stored on journal entries.
func WithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

func actorFrom(ctx context.Context) *int64 {
	if id, ok := ctx.Value(actorKey{}).(int64); ok {
		return &id
	}
	return nil
}

// Commit puts quantity of an item on a list, taking it out of the pool.
// A quantity of zero or less commits one. The pair must not already be
// allocated.
func (e *Engine) Commit(ctx context.Context, listID, itemID int64, quantity int) (*model.Allocation, error) {
	if quantity <= 0 {
		quantity = 1
	}

	unlockList := e.listLocks.rlock(listID)
	defer unlockList()
	unlock := e.itemLocks.lock(itemID)
	defer unlock()

	return e.commit(ctx, listID, itemID, quantity)
}

func (e *Engine) commit(ctx context.Context, listID, itemID int64, quantity int) (*model.Allocation, error) {
	ok, err := e.lists.Exists(ctx, listID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("loading list %d: %w", listID, ErrNotFound)
	}

	existing, err := e.allocations.Find(ctx, listID, itemID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("item %d on list %d: %w", itemID, listID, ErrDuplicateAllocation)
	}

	if _, err := e.pool.AdjustQuantity(ctx, itemID, -quantity); err != nil {
		return nil, err
	}

	a, err := e.allocations.Create(ctx, listID, itemID, quantity)
	if err != nil {
		return nil, e.compensate(ctx, "commit", "create allocation", err, func(ctx context.Context) error {
			_, err := e.pool.AdjustQuantity(ctx, itemID, quantity)
			return err
		})
	}

	e.record(ctx, model.Movement{
		ItemID:        itemID,
		LoadingListID: &listID,
		AllocationID:  &a.ID,
		Delta:         -quantity,
		Kind:          model.MovementCommit,
	})
	return a, nil
}

// IncreaseAllocation grows an allocation by n (default 1), taking the
// difference out of the pool.
func (e *Engine) IncreaseAllocation(ctx context.Context, allocationID int64, n int) (*model.Allocation, error) {
	if n <= 0 {
		n = 1
	}

	a, unlock, err := e.lockAllocation(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := e.pool.AdjustQuantity(ctx, a.ItemID, -n); err != nil {
		return nil, err
	}

	updated, err := e.allocations.SetQuantity(ctx, a.ID, a.Quantity+n)
	if err == nil && updated == nil {
		err = ErrConflictingState
	}
	if err != nil {
		return nil, e.compensate(ctx, "increase", "grow allocation", err, func(ctx context.Context) error {
			_, err := e.pool.AdjustQuantity(ctx, a.ItemID, n)
			return err
		})
	}

	e.record(ctx, model.Movement{
		ItemID:        a.ItemID,
		LoadingListID: &a.LoadingListID,
		AllocationID:  &a.ID,
		Delta:         -n,
		Kind:          model.MovementIncrease,
	})
	return updated, nil
}

// DecreaseAllocation shrinks an allocation by n (default 1) and credits the
// pool. When nothing would remain it releases the allocation and returns a
// nil allocation.
func (e *Engine) DecreaseAllocation(ctx context.Context, allocationID int64, n int) (*model.Allocation, error) {
	if n <= 0 {
		n = 1
	}

	a, unlock, err := e.lockAllocation(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if a.Quantity-n <= 0 {
		_, err := e.release(ctx, a, model.MovementRelease)
		return nil, err
	}

	updated, err := e.allocations.SetQuantity(ctx, a.ID, a.Quantity-n)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("allocation %d: %w", a.ID, ErrConflictingState)
	}

	if _, err := e.pool.AdjustQuantity(ctx, a.ItemID, n); err != nil {
		return nil, e.compensate(ctx, "decrease", "credit pool", err, func(ctx context.Context) error {
			_, err := e.allocations.SetQuantity(ctx, a.ID, a.Quantity)
			return err
		})
	}

	e.record(ctx, model.Movement{
		ItemID:        a.ItemID,
		LoadingListID: &a.LoadingListID,
		AllocationID:  &a.ID,
		Delta:         n,
		Kind:          model.MovementDecrease,
	})
	return updated, nil
}

// Release deletes an allocation and credits its whole quantity back to the
// pool. It returns the allocation as it was before deletion.
func (e *Engine) Release(ctx context.Context, allocationID int64) (*model.Allocation, error) {
	a, unlock, err := e.lockAllocation(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return e.release(ctx, a, model.MovementRelease)
}

// release deletes a and credits its quantity, journaled as kind.
func (e *Engine) release(ctx context.Context, a *model.Allocation, kind string) (*model.Allocation, error) {
	if err := e.allocations.Delete(ctx, a.ID); err != nil {
		return nil, err
	}

	if _, err := e.pool.AdjustQuantity(ctx, a.ItemID, a.Quantity); err != nil {
		return nil, e.compensate(ctx, "release", "credit pool", err, func(ctx context.Context) error {
			return e.restore(ctx, a)
		})
	}

	e.record(ctx, model.Movement{
		ItemID:        a.ItemID,
		LoadingListID: &a.LoadingListID,
		AllocationID:  &a.ID,
		Delta:         a.Quantity,
		Kind:          kind,
	})
	return a, nil
}

// restore recreates a deleted allocation, including its loaded flag. The
// recreated row gets a new id.
func (e *Engine) restore(ctx context.Context, a *model.Allocation) error {
	created, err := e.allocations.Create(ctx, a.LoadingListID, a.ItemID, a.Quantity)
	if err != nil {
		return err
	}
	if a.Loaded {
		_, err = e.allocations.SetLoaded(ctx, created.ID, true)
	}
	return err
}

// SetLoaded marks an allocation as loaded or not. The pool is not touched.
func (e *Engine) SetLoaded(ctx context.Context, allocationID int64, loaded bool) (*model.Allocation, error) {
	a, unlock, err := e.lockAllocation(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return e.allocations.SetLoaded(ctx, a.ID, loaded)
}

// AdjustStock changes an item's total stock by delta, for deliveries,
// breakage and stocktake corrections.
func (e *Engine) AdjustStock(ctx context.Context, itemID int64, delta int, notes string) (*model.Item, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: stock adjustment must be non-zero", model.ErrInvalid)
	}

	unlock := e.itemLocks.lock(itemID)
	defer unlock()

	item, err := e.pool.AdjustQuantity(ctx, itemID, delta)
	if err != nil {
		return nil, err
	}

	e.record(ctx, model.Movement{
		ItemID: itemID,
		Delta:  delta,
		Kind:   model.MovementAdjust,
		Notes:  notes,
	})
	return item, nil
}

// CloneList commits a copy of every allocation of sourceListID to
// newListID. The clone is all-or-nothing: if any item cannot be committed,
// the allocations already made on the new list are released and the error
// names the item.
func (e *Engine) CloneList(ctx context.Context, sourceListID, newListID int64) ([]model.Allocation, error) {
	ok, err := e.lists.Exists(ctx, newListID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("loading list %d: %w", newListID, ErrNotFound)
	}

	source, err := e.allocations.ListByList(ctx, sourceListID)
	if err != nil {
		return nil, err
	}

	created := make([]model.Allocation, 0, len(source))
	for _, s := range source {
		a, err := e.Commit(ctx, newListID, s.ItemID, s.Quantity)
		if err != nil {
			cause := fmt.Errorf("item %s: %w", itemLabel(s), err)
			return nil, e.compensate(ctx, "clone list", "commit "+itemLabel(s), cause, func(ctx context.Context) error {
				return e.unwind(ctx, created)
			})
		}
		created = append(created, *a)
	}

	e.log.Info("loading list cloned", "source", sourceListID, "list", newListID, "allocations", len(created))
	return created, nil
}

// unwind releases allocations in reverse order of creation.
func (e *Engine) unwind(ctx context.Context, created []model.Allocation) error {
	var errs []error
	for i := len(created) - 1; i >= 0; i-- {
		if _, err := e.Release(ctx, created[i].ID); err != nil {
			errs = append(errs, fmt.Errorf("releasing allocation %d: %w", created[i].ID, err))
		}
	}
	return errors.Join(errs...)
}

// DestroyReport lists what DestroyList did with each allocation.
type DestroyReport struct {
	ListID     int64              `json:"loading_list_id"`
	Policy     RestockPolicy      `json:"policy"`
	Restocked  []model.Allocation `json:"restocked"`
	WrittenOff []model.Allocation `json:"written_off"`
}

// DestroyList reconciles every allocation of a list and then deletes it.
// Restocked allocations are credited to the pool; under RestockLoaded the
// unloaded ones are deleted without credit and journaled as write-offs.
// Commits to the list wait until it is gone and then fail with ErrNotFound.
//
// On failure the list is left in place with the allocations not yet
// reconciled, and calling DestroyList again finishes the job.
func (e *Engine) DestroyList(ctx context.Context, listID int64) (*DestroyReport, error) {
	unlockList := e.listLocks.lock(listID)
	defer unlockList()

	ok, err := e.lists.Exists(ctx, listID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("loading list %d: %w", listID, ErrNotFound)
	}

	allocations, err := e.allocations.ListByList(ctx, listID)
	if err != nil {
		return nil, err
	}

	report := &DestroyReport{ListID: listID, Policy: e.restock}
	for _, listed := range allocations {
		a, restocked, err := e.reconcile(ctx, listed.ID, listed.ItemID)
		if err != nil {
			return report, fmt.Errorf("destroying loading list %d: %w", listID, err)
		}
		switch {
		case a == nil:
		case restocked:
			report.Restocked = append(report.Restocked, *a)
		default:
			report.WrittenOff = append(report.WrittenOff, *a)
		}
	}

	if err := e.lists.Delete(ctx, listID); err != nil {
		return report, err
	}
	e.listLocks.forget(listID)

	if len(report.WrittenOff) > 0 {
		e.log.Warn("loading list destroyed with unloaded allocations not restocked",
			"list", listID, "written_off", len(report.WrittenOff))
	}
	e.log.Info("loading list destroyed", "list", listID,
		"restocked", len(report.Restocked), "written_off", len(report.WrittenOff))
	return report, nil
}

// reconcile removes one allocation of a list being destroyed, deciding from
// its state as of holding the item lock. It returns a nil allocation when
// the allocation was already gone.
func (e *Engine) reconcile(ctx context.Context, allocationID, itemID int64) (*model.Allocation, bool, error) {
	unlock := e.itemLocks.lock(itemID)
	defer unlock()

	a, err := e.allocations.Get(ctx, allocationID)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if a.Loaded || e.restock == RestockAll {
		_, err := e.release(ctx, a, model.MovementRestock)
		if errors.Is(err, ErrConflictingState) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return a, true, nil
	}

	err = e.allocations.Delete(ctx, a.ID)
	if errors.Is(err, ErrConflictingState) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	e.record(ctx, model.Movement{
		ItemID:        a.ItemID,
		LoadingListID: &a.LoadingListID,
		AllocationID:  &a.ID,
		Kind:          model.MovementWriteOff,
		Notes:         "unloaded allocation of " + strconv.Itoa(a.Quantity) + " removed with its list",
	})
	return a, false, nil
}

// lockAllocation reads an allocation, locks its item and reads it again so
// the caller sees the quantity as of holding the lock.
func (e *Engine) lockAllocation(ctx context.Context, allocationID int64) (*model.Allocation, func(), error) {
	a, err := e.allocations.Get(ctx, allocationID)
	if err != nil {
		return nil, nil, err
	}

	unlock := e.itemLocks.lock(a.ItemID)
	a, err = e.allocations.Get(ctx, allocationID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return a, unlock, nil
}

// compensate runs undo after a failed step, detached from ctx cancellation,
// and builds the StepError to return.
func (e *Engine) compensate(ctx context.Context, op, step string, cause error, undo func(context.Context) error) error {
	undoErr := undo(context.WithoutCancel(ctx))
	if undoErr != nil {
		e.log.Error("compensation failed, stock may be inconsistent",
			"op", op, "step", step, "error", cause, "compensation_error", undoErr)
	} else {
		e.log.Warn("operation failed and was compensated", "op", op, "step", step, "error", cause)
	}
	return &StepError{
		Op:              op,
		Step:            step,
		Err:             cause,
		Compensated:     undoErr == nil,
		CompensationErr: undoErr,
	}
}

// record journals a movement. Journal failures are logged and do not fail
// the operation; the pool and allocations are already consistent.
func (e *Engine) record(ctx context.Context, m model.Movement) {
	if e.journal == nil {
		return
	}
	m.CreatedBy = actorFrom(ctx)
	if err := e.journal.Record(context.WithoutCancel(ctx), m); err != nil {
		e.log.Warn("failed to record movement", "item", m.ItemID, "kind", m.Kind, "delta", m.Delta, "error", err)
	}
}

func itemLabel(a model.Allocation) string {
	if a.Item != nil && a.Item.Name != "" {
		return strconv.Quote(a.Item.Name)
	}
	return strconv.FormatInt(a.ItemID, 10)
}
