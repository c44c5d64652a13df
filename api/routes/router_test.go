package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	cartsvc "github.com/destelloperu/destello-backend/internal/cart"
	categorysvc "github.com/destelloperu/destello-backend/internal/categories"
	inventorysvc "github.com/destelloperu/destello-backend/internal/inventory"
	ordersvc "github.com/destelloperu/destello-backend/internal/orders"
	productsvc "github.com/destelloperu/destello-backend/internal/products"
	wishlistsvc "github.com/destelloperu/destello-backend/internal/wishlist"
	pkgAuth "github.com/destelloperu/destello-backend/pkg/auth"
	"github.com/destelloperu/destello-backend/pkg/config"
	"github.com/destelloperu/destello-backend/pkg/db/models"
	"github.com/destelloperu/destello-backend/pkg/enums"
	"github.com/destelloperu/destello-backend/pkg/logger"
	"github.com/destelloperu/destello-backend/pkg/pagination"
	"github.com/destelloperu/destello-backend/pkg/redis"
	"github.com/destelloperu/destello-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubProductService struct {
	listFn func(ctx context.Context, filters productsvc.ListFilters, params pagination.Params) (*productsvc.ListResult, error)
}

// Create implements [products.Service].
func (s stubProductService) Create(ctx context.Context, actorUserID uuid.UUID, input productsvc.CreateInput) (*models.Product, error) {
	panic("unimplemented")
}

// Get implements [products.Service].
func (s stubProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	panic("unimplemented")
}

// Update implements [products.Service].
func (s stubProductService) Update(ctx context.Context, id uuid.UUID, input productsvc.UpdateInput) (*models.Product, error) {
	panic("unimplemented")
}

// Deactivate implements [products.Service].
func (s stubProductService) Deactivate(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func (s stubProductService) List(ctx context.Context, filters productsvc.ListFilters, params pagination.Params) (*productsvc.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filters, params)
	}
	return &productsvc.ListResult{}, nil
}

type stubCategoryService struct{}

// Create implements [categories.Service].
func (s stubCategoryService) Create(ctx context.Context, input categorysvc.CreateInput) (*models.Category, error) {
	panic("unimplemented")
}

// Get implements [categories.Service].
func (s stubCategoryService) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	panic("unimplemented")
}

// Update implements [categories.Service].
func (s stubCategoryService) Update(ctx context.Context, id uuid.UUID, input categorysvc.UpdateInput) (*models.Category, error) {
	panic("unimplemented")
}

// Delete implements [categories.Service].
func (s stubCategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func (s stubCategoryService) List(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	return []models.Category{}, nil
}

type stubCartService struct{}

func (s stubCartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return &models.Cart{UserID: userID}, nil
}

// AddItem implements [cart.Service].
func (s stubCartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	panic("unimplemented")
}

// UpdateItem implements [cart.Service].
func (s stubCartService) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	panic("unimplemented")
}

// RemoveItem implements [cart.Service].
func (s stubCartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*models.Cart, error) {
	panic("unimplemented")
}

// Clear implements [cart.Service].
func (s stubCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	panic("unimplemented")
}

// ClearTx implements [cart.Service].
func (s stubCartService) ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	panic("unimplemented")
}

// Total implements [cart.Service].
func (s stubCartService) Total(ctx context.Context, userID uuid.UUID) (*cartsvc.Totals, error) {
	panic("unimplemented")
}

// ValidateForCheckout implements [cart.Service].
func (s stubCartService) ValidateForCheckout(ctx context.Context, userID uuid.UUID) (*cartsvc.Validation, error) {
	panic("unimplemented")
}

type stubCheckoutService struct{}

// CreateOrder implements [checkout.Service].
func (s stubCheckoutService) CreateOrder(ctx context.Context, userID uuid.UUID, address types.Address) (*ordersvc.View, error) {
	panic("unimplemented")
}

type stubOrderService struct {
	listAll func(ctx context.Context, filters ordersvc.ListFilters, params pagination.Params) (*ordersvc.ListResult, error)
}

// GetOrder implements [orders.Service].
func (s stubOrderService) GetOrder(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) (*ordersvc.View, error) {
	panic("unimplemented")
}

// ListMyOrders implements [orders.Service].
func (s stubOrderService) ListMyOrders(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus, params pagination.Params) (*ordersvc.ListResult, error) {
	return &ordersvc.ListResult{}, nil
}

// UpdateStatus implements [orders.Service].
func (s stubOrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus enums.OrderStatus, actorID uuid.UUID) (*ordersvc.View, error) {
	panic("unimplemented")
}

// CancelOrder implements [orders.Service].
func (s stubOrderService) CancelOrder(ctx context.Context, orderID, userID uuid.UUID) (*ordersvc.View, error) {
	panic("unimplemented")
}

// OrderSummary implements [orders.Service].
func (s stubOrderService) OrderSummary(ctx context.Context, orderID uuid.UUID) (*ordersvc.Summary, error) {
	panic("unimplemented")
}

// OrderStats implements [orders.Service].
func (s stubOrderService) OrderStats(ctx context.Context, filters ordersvc.StatsFilters) (*ordersvc.Stats, error) {
	panic("unimplemented")
}

func (s stubOrderService) ListAllOrders(ctx context.Context, filters ordersvc.ListFilters, params pagination.Params) (*ordersvc.ListResult, error) {
	if s.listAll != nil {
		return s.listAll(ctx, filters, params)
	}
	return &ordersvc.ListResult{}, nil
}

type stubInventoryService struct{}

// UpdateStock implements [inventory.Service].
func (s stubInventoryService) UpdateStock(ctx context.Context, input inventorysvc.UpdateStockInput) (*models.InventoryTransaction, error) {
	panic("unimplemented")
}

// ListTransactions implements [inventory.Service].
func (s stubInventoryService) ListTransactions(ctx context.Context, productID uuid.UUID, params pagination.Params) (*inventorysvc.LedgerPage, error) {
	panic("unimplemented")
}

// DeductTx implements [inventory.Service].
func (s stubInventoryService) DeductTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, orderID uuid.UUID) (int, error) {
	panic("unimplemented")
}

// RestoreTx implements [inventory.Service].
func (s stubInventoryService) RestoreTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, orderID uuid.UUID) error {
	panic("unimplemented")
}

// RestockTx implements [inventory.Service].
func (s stubInventoryService) RestockTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, reason *string, actorUserID *uuid.UUID) error {
	panic("unimplemented")
}

// Reconcile implements [inventory.Service].
func (s stubInventoryService) Reconcile(ctx context.Context, repair bool) ([]inventorysvc.Drift, error) {
	panic("unimplemented")
}

func (s stubInventoryService) CheckStock(ctx context.Context, productID uuid.UUID, qty int) error {
	return nil
}

type stubWishlistService struct{}

// Add implements [wishlist.Service].
func (s stubWishlistService) Add(ctx context.Context, userID, productID uuid.UUID) error {
	panic("unimplemented")
}

// Remove implements [wishlist.Service].
func (s stubWishlistService) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	panic("unimplemented")
}

// Contains implements [wishlist.Service].
func (s stubWishlistService) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	panic("unimplemented")
}

func (s stubWishlistService) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*wishlistsvc.ListResult, error) {
	return &wishlistsvc.ListResult{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},         // db.Pinger
		(*redis.Client)(nil), // *redis.Client
		stubProductService{},
		stubCategoryService{},
		stubCartService{},
		stubCheckoutService{},
		stubOrderService{},
		stubInventoryService{},
		stubWishlistService{},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "router@test.local",
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestPublicCatalogNeedsNoToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public listing got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for cart fetch got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	nonAdmin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestStockCheckIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+uuid.NewString()+"/stock?qty=2", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for stock check got %d", resp.Code)
	}
}
