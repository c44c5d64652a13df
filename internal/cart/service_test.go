package cart

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
)

const cartSchema = `
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
CREATE TABLE carts (
	id text PRIMARY KEY,
	user_id text NOT NULL UNIQUE,
	created_at datetime,
	updated_at datetime
);
CREATE TABLE cart_items (
	id text PRIMARY KEY DEFAULT (
		lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' ||
		lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' ||
		lower(hex(randomblob(6)))
	),
	cart_id text NOT NULL,
	product_id text NOT NULL,
	quantity integer NOT NULL,
	unit_price numeric NOT NULL,
	created_at datetime,
	updated_at datetime,
	UNIQUE (cart_id, product_id)
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
	if err := conn.Exec(cartSchema).Error; err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	svc, err := NewService(NewRepository(conn), dbProductLoader{db: conn})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc, conn
}

func seedProduct(t *testing.T, db *gorm.DB, stock int, price string) models.Product {
	t.Helper()
	product := models.Product{
		ID:       uuid.New(),
		SKU:      fmt.Sprintf("SKU-%s", uuid.NewString()[:8]),
		Name:     "Jabón artesanal",
		Price:    decimal.RequireFromString(price),
		StockQty: stock,
		IsActive: true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
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

func TestGetCart_LazyCreate(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()

	cart, err := svc.GetCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if cart.UserID != userID {
		t.Fatalf("expected cart for user %s, got %s", userID, cart.UserID)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(cart.Items))
	}

	// A second read returns the same cart, not a new one.
	again, err := svc.GetCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if again.ID != cart.ID {
		t.Fatalf("expected cart %s, got %s", cart.ID, again.ID)
	}

	var count int64
	if err := db.Model(&models.Cart{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 cart row, got %d", count)
	}
}

func TestGetCart_PrunesUnavailableLines(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	healthy := seedProduct(t, db, 10, "20.00")
	inactive := seedProduct(t, db, 10, "15.00")
	depleted := seedProduct(t, db, 2, "10.00")

	for _, p := range []models.Product{healthy, inactive, depleted} {
		if _, err := svc.AddItem(ctx, userID, p.ID, 1); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
	}

	if err := db.Model(&models.Product{}).Where("id = ?", inactive.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if err := db.Model(&models.Product{}).Where("id = ?", depleted.ID).Update("stock_qty", 0).Error; err != nil {
		t.Fatalf("deplete failed: %v", err)
	}

	cart, err := svc.GetCart(ctx, userID)
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].ProductID != healthy.ID {
		t.Fatalf("expected only the healthy line, got %+v", cart.Items)
	}

	// The prune is persisted, not just filtered on read.
	var count int64
	if err := db.Model(&models.CartItem{}).Where("cart_id = ?", cart.ID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 persisted line, got %d", count)
	}
}

func TestAddItem_UpsertsAndChecksCombinedQuantity(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	product := seedProduct(t, db, 5, "20.00")

	cart, err := svc.AddItem(ctx, userID, product.ID, 2)
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 2 {
		t.Fatalf("expected single line with qty 2, got %+v", cart.Items)
	}

	cart, err = svc.AddItem(ctx, userID, product.ID, 3)
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 5 {
		t.Fatalf("expected combined qty 5, got %+v", cart.Items)
	}

	// Combined quantity would exceed stock.
	_, err = svc.AddItem(ctx, userID, product.ID, 1)
	assertCode(t, err, pkgerrors.CodeInsufficientStock)

	_, err = svc.AddItem(ctx, userID, uuid.New(), 1)
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.AddItem(ctx, userID, product.ID, 0)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestAddItem_ResyncsPriceSnapshot(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	product := seedProduct(t, db, 10, "20.00")
	if _, err := svc.AddItem(ctx, userID, product.ID, 1); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).Update("price", "25.00").Error; err != nil {
		t.Fatalf("price update failed: %v", err)
	}

	cart, err := svc.AddItem(ctx, userID, product.ID, 1)
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if !cart.Items[0].UnitPrice.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected re-synced price 25.00, got %s", cart.Items[0].UnitPrice)
	}
}

func TestUpdateItem(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	product := seedProduct(t, db, 5, "20.00")
	if _, err := svc.AddItem(ctx, userID, product.ID, 2); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	cart, err := svc.UpdateItem(ctx, userID, product.ID, 4)
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if cart.Items[0].Quantity != 4 {
		t.Fatalf("expected qty 4, got %d", cart.Items[0].Quantity)
	}

	_, err = svc.UpdateItem(ctx, userID, product.ID, 6)
	assertCode(t, err, pkgerrors.CodeInsufficientStock)

	// Zero quantity behaves as removal.
	cart, err = svc.UpdateItem(ctx, userID, product.ID, 0)
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", cart.Items)
	}

	_, err = svc.UpdateItem(ctx, userID, product.ID, 1)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestRemoveItem_NotFound(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	product := seedProduct(t, db, 5, "20.00")
	if _, err := svc.AddItem(ctx, userID, product.ID, 1); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	_, err := svc.RemoveItem(ctx, userID, uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)

	cart, err := svc.RemoveItem(ctx, userID, product.ID)
	if err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", cart.Items)
	}

	_, err = svc.RemoveItem(ctx, uuid.New(), product.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestClear_Idempotent(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	// No cart yet.
	if err := svc.Clear(ctx, userID); err != nil {
		t.Fatalf("Clear on missing cart failed: %v", err)
	}

	product := seedProduct(t, db, 5, "20.00")
	if _, err := svc.AddItem(ctx, userID, product.ID, 2); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	if err := svc.Clear(ctx, userID); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if err := svc.Clear(ctx, userID); err != nil {
		t.Fatalf("second Clear failed: %v", err)
	}

	cart, err := svc.GetCart(ctx, userID)
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", cart.Items)
	}
}

func TestTotal(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	first := seedProduct(t, db, 10, "20.00")
	second := seedProduct(t, db, 10, "7.50")

	if _, err := svc.AddItem(ctx, userID, first.ID, 2); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if _, err := svc.AddItem(ctx, userID, second.ID, 3); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	totals, err := svc.Total(ctx, userID)
	if err != nil {
		t.Fatalf("Total failed: %v", err)
	}
	if !totals.Total.Equal(decimal.RequireFromString("62.50")) {
		t.Fatalf("expected total 62.50, got %s", totals.Total)
	}
	if totals.ItemCount != 5 || totals.Lines != 2 {
		t.Fatalf("expected 5 units over 2 lines, got %+v", totals)
	}
}

func TestValidateForCheckout(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	valid := seedProduct(t, db, 10, "20.00")
	short := seedProduct(t, db, 5, "10.00")

	if _, err := svc.AddItem(ctx, userID, valid.ID, 2); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if _, err := svc.AddItem(ctx, userID, short.ID, 5); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	// Stock dropped below the cart line after it was added.
	if err := db.Model(&models.Product{}).Where("id = ?", short.ID).Update("stock_qty", 3).Error; err != nil {
		t.Fatalf("stock update failed: %v", err)
	}

	validation, err := svc.ValidateForCheckout(ctx, userID)
	if err != nil {
		t.Fatalf("ValidateForCheckout failed: %v", err)
	}
	if validation.IsValid {
		t.Fatal("expected invalid cart")
	}
	if len(validation.Errors) != 1 {
		t.Fatalf("expected 1 error, got %+v", validation.Errors)
	}
	if len(validation.Lines) != 1 || validation.Lines[0].Item.ProductID != valid.ID {
		t.Fatalf("expected only the valid line, got %+v", validation.Lines)
	}
	if !validation.Total.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("expected total 40.00 over valid lines, got %s", validation.Total)
	}

	// Once the short line is fixed the cart validates.
	if _, err := svc.UpdateItem(ctx, userID, short.ID, 3); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	validation, err = svc.ValidateForCheckout(ctx, userID)
	if err != nil {
		t.Fatalf("ValidateForCheckout failed: %v", err)
	}
	if !validation.IsValid || len(validation.Lines) != 2 {
		t.Fatalf("expected valid cart with 2 lines, got %+v", validation)
	}
}
