package allocation

import (
	"context"
	"fmt"

	"github.com/erazemk/loadout/internal/model"
)

// Projector computes the read-only availability forecast. Available is
// pool quantity plus what lists due back on the day will return; it may
// exceed physical stock and reserves nothing.
type Projector struct {
	pool        Pool
	allocations Allocations
	catalog     Catalog
}

// NewProjector creates a projector over b.
func NewProjector(b Backend) *Projector {
	return &Projector{
		pool:        b.Pool,
		allocations: b.Allocations,
		catalog:     b.Catalog,
	}
}

// ReturningToday sums the quantity of itemID on every list whose return
// date is today.
func (p *Projector) ReturningToday(ctx context.Context, itemID int64, today string) (int, error) {
	if _, err := model.ParseDate(today); err != nil {
		return 0, err
	}

	allocations, err := p.allocations.ListByItemAndReturnDate(ctx, itemID, today)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, a := range allocations {
		total += a.Quantity
	}
	return total, nil
}

// Availability returns the forecast for one item.
func (p *Projector) Availability(ctx context.Context, itemID int64, today string) (*model.Availability, error) {
	item, err := p.pool.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}

	returning, err := p.ReturningToday(ctx, itemID, today)
	if err != nil {
		return nil, err
	}

	return project(*item, returning, today), nil
}

// AvailabilityByCategory returns the forecast for every item, or for one
// category when category is non-empty, in catalogue order.
func (p *Projector) AvailabilityByCategory(ctx context.Context, today, category string) ([]model.Availability, error) {
	if _, err := model.ParseDate(today); err != nil {
		return nil, err
	}
	if p.catalog == nil {
		return nil, fmt.Errorf("availability listing is not configured")
	}

	items, err := p.catalog.Items(ctx, category)
	if err != nil {
		return nil, err
	}
	returning, err := p.catalog.ReturningByItem(ctx, today)
	if err != nil {
		return nil, err
	}

	out := make([]model.Availability, 0, len(items))
	for _, item := range items {
		out = append(out, *project(item, returning[item.ID], today))
	}
	return out, nil
}

// Categories returns the item categories to filter availability by.
func (p *Projector) Categories(ctx context.Context) ([]string, error) {
	if p.catalog == nil {
		return nil, fmt.Errorf("availability listing is not configured")
	}
	return p.catalog.Categories(ctx)
}

func project(item model.Item, returning int, today string) *model.Availability {
	return &model.Availability{
		ItemID:         item.ID,
		Name:           item.Name,
		Category:       item.Category,
		Pool:           item.Quantity,
		ReturningToday: returning,
		Available:      item.Quantity + returning,
		Date:           today,
	}
}
