package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erazemk/cvetlicarna/internal/db"
	"github.com/erazemk/cvetlicarna/internal/model"
)

func TestInsertAndFindBouquet(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	b, err := InsertBouquet(ctx, database, model.SizeSmall, 1, "Peonies", 45, "file-1")
	if err != nil {
		t.Fatalf("InsertBouquet: %v", err)
	}
	if b.Title != "Peonies" {
		t.Errorf("expected title 'Peonies', got %q", b.Title)
	}
	if !b.InStock {
		t.Error("expected new bouquet to be in stock")
	}

	found, err := FindBouquet(ctx, database, model.SizeSmall, 1)
	if err != nil {
		t.Fatalf("FindBouquet: %v", err)
	}
	if found == nil || found.ID != b.ID {
		t.Fatalf("expected to find inserted bouquet, got %+v", found)
	}
}

func TestFindBouquetMissing(t *testing.T) {
	database := db.NewTestDB(t)

	b, err := FindBouquet(context.Background(), database, model.SizeBig, 99)
	if err != nil {
		t.Fatalf("FindBouquet: %v", err)
	}
	if b != nil {
		t.Errorf("expected nil for missing bouquet, got %+v", b)
	}
}

func TestInsertBouquetDuplicate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := InsertBouquet(ctx, database, model.SizeMedium, 2, "Roses", 60, "file-1"); err != nil {
		t.Fatalf("InsertBouquet: %v", err)
	}

	_, err := InsertBouquet(ctx, database, model.SizeMedium, 2, "Tulips", 30, "file-2")
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	// Same number under a different size is fine.
	if _, err := InsertBouquet(ctx, database, model.SizeBig, 2, "Tulips", 30, "file-2"); err != nil {
		t.Errorf("expected insert under different size to succeed, got %v", err)
	}
}

func TestInsertBouquetConcurrentDuplicate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = InsertBouquet(ctx, database, model.SizeSmall, 7, "Racing", 10, "file")
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicate):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly 1 successful insert, got %d", ok)
	}
	if dup != racers-1 {
		t.Errorf("expected %d duplicate errors, got %d", racers-1, dup)
	}
}

func TestListInStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	// Inserted out of number order to check the ordering.
	InsertBouquet(ctx, database, model.SizeSmall, 3, "Third", 30, "f3")
	InsertBouquet(ctx, database, model.SizeSmall, 1, "First", 10, "f1")
	hidden, _ := InsertBouquet(ctx, database, model.SizeSmall, 2, "Hidden", 20, "f2")
	InsertBouquet(ctx, database, model.SizeBig, 1, "Other size", 99, "f4")

	if err := SetInStock(ctx, database, hidden.ID, false); err != nil {
		t.Fatalf("SetInStock: %v", err)
	}

	items, err := ListInStock(ctx, database, model.SizeSmall)
	if err != nil {
		t.Fatalf("ListInStock: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 in-stock small bouquets, got %d", len(items))
	}
	if items[0].Number != 1 || items[1].Number != 3 {
		t.Errorf("expected numbers [1 3], got [%d %d]", items[0].Number, items[1].Number)
	}
}

func TestListInStockEmpty(t *testing.T) {
	database := db.NewTestDB(t)

	items, err := ListInStock(context.Background(), database, model.SizeMedium)
	if err != nil {
		t.Fatalf("ListInStock: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty list, got %d items", len(items))
	}
}

func TestSetInStockNotFound(t *testing.T) {
	database := db.NewTestDB(t)

	err := SetInStock(context.Background(), database, 12345, false)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListBouquetsIncludesOutOfStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	b, _ := InsertBouquet(ctx, database, model.SizeSmall, 1, "One", 10, "f")
	SetInStock(ctx, database, b.ID, false)
	InsertBouquet(ctx, database, model.SizeBig, 1, "Two", 20, "f")

	all, err := ListBouquets(ctx, database)
	if err != nil {
		t.Fatalf("ListBouquets: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 bouquets, got %d", len(all))
	}
}
