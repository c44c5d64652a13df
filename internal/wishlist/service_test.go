package wishlist

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/destelloperu/destello-backend/pkg/db/models"
	pkgerrors "github.com/destelloperu/destello-backend/pkg/errors"
	"github.com/destelloperu/destello-backend/pkg/pagination"
)

const wishlistSchema = `
CREATE TABLE products (
	id text PRIMARY KEY,
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
CREATE TABLE wishlist_items (
	id text PRIMARY KEY DEFAULT (
		lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' ||
		lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' ||
		lower(hex(randomblob(6)))
	),
	user_id text NOT NULL,
	product_id text NOT NULL,
	created_at datetime,
	CONSTRAINT wishlist_items_user_product_key UNIQUE (user_id, product_id)
);
`

type dbProductLoader struct {
	db *gorm.DB
}

func (l dbProductLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := l.db.WithContext(ctx).Take(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.Exec(wishlistSchema).Error; err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	svc, err := NewService(NewRepository(conn), dbProductLoader{db: conn})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc, conn
}

func seedProduct(t *testing.T, db *gorm.DB, active bool) models.Product {
	t.Helper()
	product := models.Product{
		ID:       uuid.New(),
		SKU:      fmt.Sprintf("SKU-%s", uuid.NewString()[:8]),
		Name:     "Pulsera tejida",
		Price:    decimal.RequireFromString("18.00"),
		StockQty: 4,
		IsActive: active,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	if !active {
		if err := db.Model(&models.Product{}).Where("id = ?", product.ID).Update("is_active", false).Error; err != nil {
			t.Fatalf("failed to deactivate product: %v", err)
		}
	}
	return product
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error with code %s, got %v", code, err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, typed.Code(), err)
	}
}

func TestAddAndList(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	product := seedProduct(t, db, true)
	if err := svc.Add(ctx, userID, product.ID); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Adding twice conflicts instead of duplicating.
	err := svc.Add(ctx, userID, product.ID)
	assertCode(t, err, pkgerrors.CodeConflict)

	result, err := svc.List(ctx, userID, pagination.Params{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Meta.Total != 1 || len(result.Items) != 1 {
		t.Fatalf("expected single item, got %+v", result)
	}
	if result.Items[0].Product == nil || result.Items[0].Product.ID != product.ID {
		t.Fatalf("expected preloaded product, got %+v", result.Items[0].Product)
	}

	found, err := svc.Contains(ctx, userID, product.ID)
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if !found {
		t.Fatal("expected product in wishlist")
	}
}

func TestAdd_UnknownOrInactiveProduct(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	err := svc.Add(ctx, userID, uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)

	inactive := seedProduct(t, db, false)
	err = svc.Add(ctx, userID, inactive.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestRemove(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	product := seedProduct(t, db, true)
	if err := svc.Add(ctx, userID, product.ID); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := svc.Remove(ctx, userID, product.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	err := svc.Remove(ctx, userID, product.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)

	found, err := svc.Contains(ctx, userID, product.ID)
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if found {
		t.Fatal("expected product removed from wishlist")
	}
}
