package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/rl1809/stockcanon/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/stockcanon?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := NewMySQLAdapter(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema setup failed: %v", err)
	}
	return db
}

func insertTestStock(t *testing.T, adapter *MySQLAdapter, productID, location string, q domain.QuantityTriple) domain.StockRecord {
	t.Helper()
	now := time.Now().Truncate(time.Second)
	record := domain.StockRecord{
		ID:        uuid.NewString(),
		ProductID: productID,
		Location:  location,
		Quantity:  q,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := adapter.CreateStock(context.Background(), record); err != nil {
		t.Fatalf("CreateStock failed: %v", err)
	}
	return record
}

func TestConversionRate_SaveAndGet(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	productID := "test-sku-" + uuid.NewString()
	defer db.ExecContext(ctx, `DELETE FROM conversion_rates WHERE product_id = ?`, productID)

	if err := adapter.SaveConversionRate(ctx, productID, domain.ConversionRate{Level1Rate: 24, Level2Rate: 12}); err != nil {
		t.Fatalf("SaveConversionRate failed: %v", err)
	}
	// upsert replaces
	if err := adapter.SaveConversionRate(ctx, productID, domain.ConversionRate{Level1Rate: 144, Level2Rate: 12}); err != nil {
		t.Fatalf("SaveConversionRate failed: %v", err)
	}

	rate, err := adapter.GetConversionRate(ctx, productID)
	if err != nil {
		t.Fatalf("GetConversionRate failed: %v", err)
	}
	if rate == nil {
		t.Fatal("expected rate, got nil")
	}
	if rate.Level1Rate != 144 || rate.Level2Rate != 12 {
		t.Errorf("expected 144/12, got %+v", rate)
	}
}

func TestConversionRate_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	rate, err := NewMySQLAdapter(db).GetConversionRate(context.Background(), "nonexistent-sku")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != nil {
		t.Error("expected nil for nonexistent product")
	}
}

func TestStock_CreateGetList(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	productID := "test-sku-" + uuid.NewString()
	defer db.ExecContext(ctx, `DELETE FROM stock_records WHERE product_id = ?`, productID)

	first := insertTestStock(t, adapter, productID, "A1/1", domain.QuantityTriple{Level1: 1, Level2: 2, Level3: 3})
	insertTestStock(t, adapter, productID, "B2/2", domain.QuantityTriple{Level3: 9})

	got, err := adapter.GetStock(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetStock failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if got.Location != "A1/1" || got.Quantity != first.Quantity {
		t.Errorf("unexpected record: %+v", got)
	}

	records, err := adapter.ListStockByProduct(ctx, productID)
	if err != nil {
		t.Fatalf("ListStockByProduct failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}

	missing, err := adapter.GetStock(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for nonexistent record")
	}
}

func TestListNonCanonicalLocations(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	productID := "test-sku-" + uuid.NewString()
	defer db.ExecContext(ctx, `DELETE FROM stock_records WHERE product_id = ?`, productID)

	canonical := insertTestStock(t, adapter, productID, "N4/20", domain.QuantityTriple{})
	legacy := insertTestStock(t, adapter, productID, "a/1/01", domain.QuantityTriple{})

	records, err := adapter.ListNonCanonicalLocations(ctx, "", 10000)
	if err != nil {
		t.Fatalf("ListNonCanonicalLocations failed: %v", err)
	}

	found := make(map[string]bool)
	for _, r := range records {
		found[r.ID] = true
	}
	if !found[legacy.ID] {
		t.Error("expected legacy location to be listed")
	}
	if found[canonical.ID] {
		t.Error("expected canonical location to be skipped")
	}

	after, err := adapter.ListNonCanonicalLocations(ctx, legacy.ID, 10000)
	if err != nil {
		t.Fatalf("ListNonCanonicalLocations failed: %v", err)
	}
	for _, r := range after {
		if r.ID <= legacy.ID {
			t.Errorf("expected only IDs after %s, got %s", legacy.ID, r.ID)
		}
	}
}

func TestRelabelLocation_OptimisticLock(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	productID := "test-sku-" + uuid.NewString()
	defer db.ExecContext(ctx, `DELETE FROM stock_records WHERE product_id = ?`, productID)

	record := insertTestStock(t, adapter, productID, "C-3-07", domain.QuantityTriple{})

	if err := adapter.RelabelLocation(ctx, record.ID, "C-3-07", "C3/7"); err != nil {
		t.Fatalf("RelabelLocation failed: %v", err)
	}

	got, _ := adapter.GetStock(ctx, record.ID)
	if got.Location != "C3/7" {
		t.Errorf("expected C3/7, got %s", got.Location)
	}
	if got.Version != 1 {
		t.Errorf("expected version 1, got %d", got.Version)
	}

	// stale source text
	err := adapter.RelabelLocation(ctx, record.ID, "C-3-07", "C3/7")
	if err != ErrOptimisticLock {
		t.Errorf("expected ErrOptimisticLock, got: %v", err)
	}
}
