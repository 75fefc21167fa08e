package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/loadout/internal/db"
)

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "Barrier", "Traffic", 12)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Name != "Barrier" || item.Category != "Traffic" {
		t.Errorf("unexpected item %+v", item)
	}
	if item.Quantity != 12 {
		t.Errorf("expected quantity 12, got %d", item.Quantity)
	}

	missing, err := GetItem(ctx, database, item.ID+100)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing item")
	}
}

func TestCreateItemNegativeQuantityFails(t *testing.T) {
	database := db.NewTestDB(t)

	if _, err := CreateItem(context.Background(), database, "Cone", "Traffic", -1); err == nil {
		t.Error("expected error for negative initial quantity")
	}
}

func TestListItemsByCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateItem(ctx, database, "Cone", "Traffic", 40)
	CreateItem(ctx, database, "Barrier", "Traffic", 10)
	CreateItem(ctx, database, "Generator", "Power", 2)

	all, _ := ListItems(ctx, database, "")
	if len(all) != 3 {
		t.Errorf("expected 3 items, got %d", len(all))
	}
	if all[0].Name != "Barrier" {
		t.Errorf("expected items ordered by name, first is %q", all[0].Name)
	}

	traffic, _ := ListItems(ctx, database, "Traffic")
	if len(traffic) != 2 {
		t.Errorf("expected 2 traffic items, got %d", len(traffic))
	}

	categories, err := ListCategories(ctx, database)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(categories) != 2 || categories[0] != "Power" || categories[1] != "Traffic" {
		t.Errorf("unexpected categories %v", categories)
	}
}

func TestAdjustItemQuantity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Cone", "Traffic", 5)

	updated, err := AdjustItemQuantity(ctx, database, item.ID, -3)
	if err != nil {
		t.Fatalf("AdjustItemQuantity: %v", err)
	}
	if updated.Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", updated.Quantity)
	}

	updated, err = AdjustItemQuantity(ctx, database, item.ID, -2)
	if err != nil {
		t.Fatalf("AdjustItemQuantity to zero: %v", err)
	}
	if updated.Quantity != 0 {
		t.Errorf("expected quantity 0, got %d", updated.Quantity)
	}
}

func TestAdjustItemQuantityNegativeResultFails(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Cone", "Traffic", 3)

	_, err := AdjustItemQuantity(ctx, database, item.ID, -5)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	q, _ := GetItemQuantity(ctx, database, item.ID)
	if q != 3 {
		t.Errorf("expected quantity unchanged at 3, got %d", q)
	}
}

func TestAdjustItemQuantityUnknownItem(t *testing.T) {
	database := db.NewTestDB(t)

	_, err := AdjustItemQuantity(context.Background(), database, 42, 1)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateItemKeepsQuantity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Cone", "Traffic", 7)
	if err := UpdateItem(ctx, database, item.ID, "Big cone", "Signage"); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Name != "Big cone" || got.Category != "Signage" || got.Quantity != 7 {
		t.Errorf("unexpected item after update %+v", got)
	}

	if err := UpdateItem(ctx, database, item.ID+1, "x", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing item, got %v", err)
	}
}

func TestSoftDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Delete Me", "", 0)
	if err := DeleteItem(ctx, database, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	items, _ := ListItems(ctx, database, "")
	if len(items) != 0 {
		t.Errorf("expected 0 items after soft delete, got %d", len(items))
	}

	// Still fetchable by ID for movement history.
	got, _ := GetItem(ctx, database, item.ID)
	if got == nil || got.DeletedAt == nil {
		t.Error("expected soft-deleted item to still be fetchable by ID")
	}
}

func TestDeleteAllocatedItemFails(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Cone", "Traffic", 5)
	list := mustCreateList(t, database, "2024-06-01", "2024-06-02")
	CreateAllocation(ctx, database, list.ID, item.ID, 1)

	if err := DeleteItem(ctx, database, item.ID); !errors.Is(err, ErrItemInUse) {
		t.Errorf("expected ErrItemInUse deleting an item that is on a list, got %v", err)
	}
}

func TestDeletedItemOnlyTakesCredits(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Cone", "Traffic", 5)
	if err := DeleteItem(ctx, database, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	if _, err := AdjustItemQuantity(ctx, database, item.ID, -1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound debiting a deleted item, got %v", err)
	}
	got, err := AdjustItemQuantity(ctx, database, item.ID, 2)
	if err != nil {
		t.Fatalf("crediting deleted item: %v", err)
	}
	if got.Quantity != 7 {
		t.Errorf("expected quantity 7 after credit, got %d", got.Quantity)
	}

	list := mustCreateList(t, database, "2024-06-01", "2024-06-02")
	if _, err := CreateAllocation(ctx, database, list.ID, item.ID, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound allocating a deleted item, got %v", err)
	}
	if err := DeleteItem(ctx, database, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestItemPoolQuantity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	pool := ItemPool{DB: database}

	item, _ := CreateItem(ctx, database, "Cone", "Traffic", 4)
	if q, err := pool.Quantity(ctx, item.ID); err != nil || q != 4 {
		t.Errorf("Quantity = %d, %v; want 4", q, err)
	}

	_, err := pool.Quantity(ctx, item.ID+100)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown item, got %v", err)
	}
}

func TestItemImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Photo Item", "", 1)
	SetItemImage(ctx, database, item.ID, []byte("fake image data"), "image/jpeg")

	data, mime, err := GetItemImage(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItemImage: %v", err)
	}
	if string(data) != "fake image data" {
		t.Errorf("expected image data, got %q", string(data))
	}
	if mime != "image/jpeg" {
		t.Errorf("expected mime 'image/jpeg', got %q", mime)
	}
}
