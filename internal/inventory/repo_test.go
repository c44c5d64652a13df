package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/destelloperu/destello-backend/pkg/db/models"
	"github.com/destelloperu/destello-backend/pkg/enums"
	"github.com/destelloperu/destello-backend/pkg/pagination"
)

const inventorySchema = `
CREATE TABLE products (
	id text PRIMARY KEY DEFAULT (
		lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' ||
		lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' ||
		lower(hex(randomblob(6)))
	),
	sku text NOT NULL UNIQUE,
	name text NOT NULL,
	description text NOT NULL DEFAULT '',
	price numeric NOT NULL,
	stock_qty integer NOT NULL DEFAULT 0,
	low_stock_at integer NOT NULL DEFAULT 5,
	image_url text,
	tags text NOT NULL DEFAULT '{}',
	is_active boolean NOT NULL DEFAULT true,
	created_at datetime,
	updated_at datetime
);
CREATE TABLE inventory_transactions (
	id text PRIMARY KEY DEFAULT (
		lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' ||
		lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' ||
		lower(hex(randomblob(6)))
	),
	product_id text NOT NULL,
	type text NOT NULL,
	qty_change integer NOT NULL,
	stock_after integer NOT NULL,
	reason text,
	reference_id text,
	actor_user_id text,
	created_at datetime
);
`

func newInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.Exec(inventorySchema).Error; err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return conn
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) models.Product {
	t.Helper()
	product := models.Product{
		ID:       uuid.New(),
		SKU:      fmt.Sprintf("SKU-%s", uuid.NewString()[:8]),
		Name:     "Vela aromática",
		Price:    decimal.NewFromFloat(39.90),
		StockQty: stock,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	return product
}

func TestRepository_AdjustStock(t *testing.T) {
	db := newInventoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, 5)

	affected, err := repo.AdjustStock(ctx, product.ID, -3)
	if err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 affected row, got %d", affected)
	}
	stock, err := repo.GetStock(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetStock failed: %v", err)
	}
	if stock != 2 {
		t.Fatalf("expected stock 2, got %d", stock)
	}

	// Would go negative, so the guard keeps the row untouched.
	affected, err = repo.AdjustStock(ctx, product.ID, -5)
	if err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected 0 affected rows, got %d", affected)
	}
	stock, _ = repo.GetStock(ctx, product.ID)
	if stock != 2 {
		t.Fatalf("expected stock to stay at 2, got %d", stock)
	}

	affected, err = repo.AdjustStock(ctx, uuid.New(), 1)
	if err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected 0 affected rows for unknown product, got %d", affected)
	}
}

func TestRepository_GetStock_NotFound(t *testing.T) {
	db := newInventoryTestDB(t)
	repo := NewRepository(db)

	_, err := repo.GetStock(context.Background(), uuid.New())
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRepository_RepairStock(t *testing.T) {
	db := newInventoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, 12)

	affected, err := repo.RepairStock(ctx, product.ID, 12, 10)
	if err != nil {
		t.Fatalf("RepairStock failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 affected row, got %d", affected)
	}
	stock, _ := repo.GetStock(ctx, product.ID)
	if stock != 10 {
		t.Fatalf("expected stock 10, got %d", stock)
	}

	// Observed value no longer matches, so the compare-and-set skips.
	affected, err = repo.RepairStock(ctx, product.ID, 12, 7)
	if err != nil {
		t.Fatalf("RepairStock failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected 0 affected rows, got %d", affected)
	}
}

func TestRepository_SumQtyChanges(t *testing.T) {
	db := newInventoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, 0)
	other := seedProduct(t, db, 0)

	rows := []models.InventoryTransaction{
		{ProductID: product.ID, Type: enums.InventoryTxTypeRestock, QtyChange: 20, StockAfter: 20},
		{ProductID: product.ID, Type: enums.InventoryTxTypeSale, QtyChange: -6, StockAfter: 14},
		{ProductID: other.ID, Type: enums.InventoryTxTypeRestock, QtyChange: 99, StockAfter: 99},
	}
	for i := range rows {
		if err := repo.CreateTransaction(ctx, &rows[i]); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}
	}

	sum, err := repo.SumQtyChanges(ctx, product.ID)
	if err != nil {
		t.Fatalf("SumQtyChanges failed: %v", err)
	}
	if sum != 14 {
		t.Fatalf("expected sum 14, got %d", sum)
	}

	sum, err = repo.SumQtyChanges(ctx, uuid.New())
	if err != nil {
		t.Fatalf("SumQtyChanges failed: %v", err)
	}
	if sum != 0 {
		t.Fatalf("expected sum 0 for product without ledger rows, got %d", sum)
	}
}

func TestRepository_ListByProduct(t *testing.T) {
	db := newInventoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, 0)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		row := models.InventoryTransaction{
			ProductID:  product.ID,
			Type:       enums.InventoryTxTypeRestock,
			QtyChange:  i + 1,
			StockAfter: (i + 1) * (i + 2) / 2,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.CreateTransaction(ctx, &row); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}
	}

	page, err := repo.ListByProduct(ctx, product.ID, pagination.Params{Page: 1, Limit: 3})
	if err != nil {
		t.Fatalf("ListByProduct failed: %v", err)
	}
	if len(page.Transactions) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(page.Transactions))
	}
	// Newest first.
	if page.Transactions[0].QtyChange != 5 {
		t.Fatalf("expected newest row first, got qty_change %d", page.Transactions[0].QtyChange)
	}
	if page.Meta.Total != 5 {
		t.Fatalf("expected total 5, got %d", page.Meta.Total)
	}
	if page.Meta.TotalPages != 2 {
		t.Fatalf("expected 2 pages, got %d", page.Meta.TotalPages)
	}

	page, err = repo.ListByProduct(ctx, product.ID, pagination.Params{Page: 2, Limit: 3})
	if err != nil {
		t.Fatalf("ListByProduct failed: %v", err)
	}
	if len(page.Transactions) != 2 {
		t.Fatalf("expected 2 rows on second page, got %d", len(page.Transactions))
	}
}

func TestRepository_ListProductStocks(t *testing.T) {
	db := newInventoryTestDB(t)
	repo := NewRepository(db)

	first := seedProduct(t, db, 3)
	second := seedProduct(t, db, 8)

	stocks, err := repo.ListProductStocks(context.Background())
	if err != nil {
		t.Fatalf("ListProductStocks failed: %v", err)
	}
	if len(stocks) != 2 {
		t.Fatalf("expected 2 products, got %d", len(stocks))
	}
	byID := map[uuid.UUID]ProductStock{}
	for _, s := range stocks {
		byID[s.ID] = s
	}
	if byID[first.ID].StockQty != 3 || byID[second.ID].StockQty != 8 {
		t.Fatalf("unexpected stock projection: %+v", byID)
	}
}
