// Package transfer turns list editor gestures into allocation engine calls
// and tracks each one as a change that is pending until the engine answers.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/loadout/internal/allocation"
	"github.com/erazemk/loadout/internal/model"
	"github.com/erazemk/loadout/internal/store"
)

// Gesture is an editor action.
type Gesture string

const (
	DragToList   Gesture = "drag_to_list"
	DragToPool   Gesture = "drag_to_pool"
	Increment    Gesture = "increment"
	Decrement    Gesture = "decrement"
	ToggleLoaded Gesture = "toggle_loaded"
	DeleteList   Gesture = "delete_list"
	CopyList     Gesture = "copy_list"
)

// State is the lifecycle of a change.
type State string

const (
	// StatePending means the engine has not answered yet.
	StatePending State = "pending"
	// StateConfirmed means the engine applied the change.
	StateConfirmed State = "confirmed"
	// StateSatisfied means the target was already gone, which is what a
	// removal wanted anyway.
	StateSatisfied State = "satisfied"
	// StateRolledBack means the engine refused or undid the change and the
	// client must drop its optimistic update.
	StateRolledBack State = "rolled_back"
)

// Change is one gesture on its way through the engine.
type Change struct {
	ID           uuid.UUID `json:"id"`
	Gesture      Gesture   `json:"gesture"`
	ListID       int64     `json:"loading_list_id,omitempty"`
	ItemID       int64     `json:"item_id,omitempty"`
	AllocationID int64     `json:"loading_list_item_id,omitempty"`
	Quantity     int       `json:"quantity,omitempty"`
	State        State     `json:"state"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	UserID       *int64    `json:"user_id,omitempty"`
}

// Result is the outcome of a change together with fresh copies of the
// records it touched, for clients to replace their cached ones.
type Result struct {
	Change     Change                    `json:"change"`
	Allocation *model.Allocation         `json:"loading_list_item,omitempty"`
	Item       *model.Item               `json:"item,omitempty"`
	List       *model.LoadingList        `json:"loading_list,omitempty"`
	Destroyed  *allocation.DestroyReport `json:"destroyed,omitempty"`
}

// Records reads back the records a change touched and creates lists for
// copies.
type Records interface {
	GetItem(ctx context.Context, id int64) (*model.Item, error)
	GetAllocation(ctx context.Context, id int64) (*model.Allocation, error)
	GetList(ctx context.Context, id int64) (*model.LoadingList, error)
	CreateList(ctx context.Context, in store.ListInput) (*model.LoadingList, error)
	DeleteList(ctx context.Context, id int64) error
}

// Coordinator maps gestures to the allocation engine. Gestures are not
// idempotent: replaying one applies it again.
type Coordinator struct {
	engine  *allocation.Engine
	records Records
	log     *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	pending map[uuid.UUID]Change
}

// New creates a coordinator. A nil logger means slog.Default().
func New(engine *allocation.Engine, records Records, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		engine:  engine,
		records: records,
		log:     logger,
		now:     time.Now,
		pending: make(map[uuid.UUID]Change),
	}
}

// Pending returns the changes currently in flight, oldest first.
func (c *Coordinator) Pending() []Change {
	c.mu.Lock()
	defer c.mu.Unlock()

	changes := make([]Change, 0, len(c.pending))
	for _, ch := range c.pending {
		changes = append(changes, ch)
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].StartedAt.Before(changes[j].StartedAt)
	})
	return changes
}

// DragToList commits quantity (default 1) of an item to a list.
func (c *Coordinator) DragToList(ctx context.Context, listID, itemID int64, quantity int) (*Result, error) {
	ch := Change{Gesture: DragToList, ListID: listID, ItemID: itemID, Quantity: quantity}
	return c.run(ctx, ch, func(ctx context.Context) (*Result, error) {
		a, err := c.engine.Commit(ctx, listID, itemID, quantity)
		if err != nil {
			return nil, err
		}
		res := &Result{Allocation: a}
		c.refresh(ctx, res, listID, itemID)
		return res, nil
	})
}

// DragToPool releases a whole allocation back to the pool.
func (c *Coordinator) DragToPool(ctx context.Context, allocationID int64) (*Result, error) {
	ch := Change{Gesture: DragToPool, AllocationID: allocationID}
	return c.run(ctx, ch, func(ctx context.Context) (*Result, error) {
		a, err := c.engine.Release(ctx, allocationID)
		if err != nil {
			return nil, err
		}
		res := &Result{}
		c.refresh(ctx, res, a.LoadingListID, a.ItemID)
		return res, nil
	})
}

// Increment grows an allocation by n.
func (c *Coordinator) Increment(ctx context.Context, allocationID int64, n int) (*Result, error) {
	ch := Change{Gesture: Increment, AllocationID: allocationID, Quantity: n}
	return c.run(ctx, ch, func(ctx context.Context) (*Result, error) {
		a, err := c.engine.IncreaseAllocation(ctx, allocationID, n)
		if err != nil {
			return nil, err
		}
		res := &Result{Allocation: a}
		c.refresh(ctx, res, a.LoadingListID, a.ItemID)
		return res, nil
	})
}

// Decrement shrinks an allocation by n, removing it at zero.
func (c *Coordinator) Decrement(ctx context.Context, allocationID int64, n int) (*Result, error) {
	ch := Change{Gesture: Decrement, AllocationID: allocationID, Quantity: n}
	return c.run(ctx, ch, func(ctx context.Context) (*Result, error) {
		before, err := c.records.GetAllocation(ctx, allocationID)
		if err != nil {
			return nil, err
		}
		a, err := c.engine.DecreaseAllocation(ctx, allocationID, n)
		if err != nil {
			return nil, err
		}
		res := &Result{Allocation: a}
		c.refresh(ctx, res, before.LoadingListID, before.ItemID)
		return res, nil
	})
}

// SetLoaded sets an allocation's loaded flag.
func (c *Coordinator) SetLoaded(ctx context.Context, allocationID int64, loaded bool) (*Result, error) {
	ch := Change{Gesture: ToggleLoaded, AllocationID: allocationID}
	return c.run(ctx, ch, func(ctx context.Context) (*Result, error) {
		a, err := c.engine.SetLoaded(ctx, allocationID, loaded)
		if err != nil {
			return nil, err
		}
		return &Result{Allocation: a}, nil
	})
}

// DeleteList reconciles and deletes a list.
func (c *Coordinator) DeleteList(ctx context.Context, listID int64) (*Result, error) {
	ch := Change{Gesture: DeleteList, ListID: listID}
	return c.run(ctx, ch, func(ctx context.Context) (*Result, error) {
		report, err := c.engine.DestroyList(ctx, listID)
		if err != nil {
			return nil, err
		}
		return &Result{Destroyed: report}, nil
	})
}

// CopyInput describes the list created by CopyList. Empty SiteName and
// Notes, and a nil TeamID, are taken from the source list.
type CopyInput struct {
	SiteName   string
	Date       string
	ReturnDate string
	Notes      string
	TeamID     *int64
	UserID     *int64
}

// CopyList creates a new list from in and commits fresh stock for every
// allocation of the source list. If the stock cannot be committed the new
// list is removed again.
func (c *Coordinator) CopyList(ctx context.Context, sourceID int64, in CopyInput) (*Result, error) {
	ch := Change{Gesture: CopyList, ListID: sourceID}
	return c.run(ctx, ch, func(ctx context.Context) (*Result, error) {
		src, err := c.records.GetList(ctx, sourceID)
		if err != nil {
			return nil, err
		}

		li := store.ListInput{
			SiteName:   in.SiteName,
			Date:       in.Date,
			ReturnDate: in.ReturnDate,
			Notes:      in.Notes,
			TeamID:     in.TeamID,
			UserID:     in.UserID,
		}
		if li.SiteName == "" {
			li.SiteName = src.SiteName
		}
		if li.Notes == "" {
			li.Notes = src.Notes
		}
		if li.TeamID == nil {
			li.TeamID = src.TeamID
		}

		dst, err := c.records.CreateList(ctx, li)
		if err != nil {
			return nil, err
		}

		if _, err := c.engine.CloneList(ctx, src.ID, dst.ID); err != nil {
			return nil, c.discardCopy(ctx, dst.ID, err)
		}

		fresh, err := c.records.GetList(ctx, dst.ID)
		if err != nil {
			return nil, err
		}
		return &Result{List: fresh}, nil
	})
}

// discardCopy deletes a list whose clone failed. When the clone could not
// release what it had committed the list is kept, since deleting it would
// drop those allocations without crediting the pool.
func (c *Coordinator) discardCopy(ctx context.Context, listID int64, cloneErr error) error {
	var se *allocation.StepError
	if errors.As(cloneErr, &se) && se.CompensationErr != nil {
		c.log.Error("copied list kept after failed clone", "list", listID, "error", cloneErr)
		return cloneErr
	}

	if err := c.records.DeleteList(context.WithoutCancel(ctx), listID); err != nil {
		c.log.Error("failed to remove copied list", "list", listID, "error", err)
		return errors.Join(cloneErr, fmt.Errorf("removing copied list %d: %w", listID, err))
	}
	return cloneErr
}

func (c *Coordinator) run(ctx context.Context, ch Change, apply func(context.Context) (*Result, error)) (*Result, error) {
	ch.ID = uuid.New()
	ch.State = StatePending
	ch.StartedAt = c.now()
	ch.UserID = actor(ctx)

	c.mu.Lock()
	c.pending[ch.ID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, ch.ID)
		c.mu.Unlock()
	}()

	res, err := apply(ctx)
	if err != nil {
		if removal(ch.Gesture) && (errors.Is(err, allocation.ErrNotFound) || errors.Is(err, allocation.ErrConflictingState)) {
			ch.State = StateSatisfied
			c.log.Info("change already satisfied", "change", ch.ID, "gesture", ch.Gesture,
				"allocation", ch.AllocationID)
			return &Result{Change: ch}, nil
		}

		ch.State = StateRolledBack
		ch.Error = err.Error()
		c.log.Warn("change rolled back", "change", ch.ID, "gesture", ch.Gesture, "error", err)
		return &Result{Change: ch}, err
	}

	ch.State = StateConfirmed
	res.Change = ch
	c.log.Info("change confirmed", "change", ch.ID, "gesture", ch.Gesture,
		"list", ch.ListID, "item", ch.ItemID, "allocation", ch.AllocationID)
	return res, nil
}

// refresh attaches the current item and list. Failures are logged; the
// change itself already happened.
func (c *Coordinator) refresh(ctx context.Context, res *Result, listID, itemID int64) {
	item, err := c.records.GetItem(ctx, itemID)
	if err != nil {
		c.log.Warn("failed to refresh item", "item", itemID, "error", err)
	} else {
		res.Item = item
	}

	list, err := c.records.GetList(ctx, listID)
	if err != nil {
		c.log.Warn("failed to refresh loading list", "list", listID, "error", err)
	} else {
		res.List = list
	}
}

// removal reports whether a gesture's goal is met when its target is gone.
func removal(g Gesture) bool {
	return g == DragToPool || g == Decrement
}

type actorKey struct{}

// WithUser attaches the acting user to ctx for both the change record and
// the engine's journal.
func WithUser(ctx context.Context, userID int64) context.Context {
	ctx = context.WithValue(ctx, actorKey{}, userID)
	return allocation.WithActor(ctx, userID)
}

func actor(ctx context.Context) *int64 {
	if id, ok := ctx.Value(actorKey{}).(int64); ok {
		return &id
	}
	return nil
}
