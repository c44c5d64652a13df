package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/destelloperu/destello-backend/pkg/db"
	"github.com/destelloperu/destello-backend/pkg/db/models"
	pkgerrors "github.com/destelloperu/destello-backend/pkg/errors"
)

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Totals summarizes the cart off its price snapshots.
type Totals struct {
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
	Lines     int             `json:"lines"`
}

// Line pairs a cart item with the current catalog row it was checked against.
type Line struct {
	Item    models.CartItem
	Product models.Product
}

// Validation is the non-mutating checkout readiness report.
type Validation struct {
	CartID  uuid.UUID
	IsValid bool
	Errors  []string
	Lines   []Line
	Total   decimal.Decimal
}

// Service manages the single active cart per user.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
	Total(ctx context.Context, userID uuid.UUID) (*Totals, error)
	ValidateForCheckout(ctx context.Context, userID uuid.UUID) (*Validation, error)
}

type service struct {
	repo     Repository
	products productLoader
}

// NewService constructs a cart service instance.
func NewService(repo Repository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo, products: products}, nil
}

// GetCart lazily creates the user's cart and prunes lines whose product has
// gone inactive or out of stock, persisting the prune.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	var kept []models.CartItem
	var stale []uuid.UUID
	for _, item := range cart.Items {
		if item.Product == nil || !item.Product.IsActive || item.Product.StockQty <= 0 {
			stale = append(stale, item.ProductID)
			continue
		}
		kept = append(kept, item)
	}
	if len(stale) > 0 {
		if err := s.repo.DeleteItems(ctx, cart.ID, stale); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: prune cart items")
		}
		cart.Items = kept
	}

	return cart, nil
}

func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.availableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	item := findItem(cart, productID)
	requested := quantity
	if item != nil {
		requested += item.Quantity
	}
	if product.StockQty < requested {
		return nil, insufficientStock(product.StockQty, requested)
	}

	if item == nil {
		item = &models.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
		}
	}
	item.Quantity = requested
	item.UnitPrice = product.Price
	item.Product = nil
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save cart item")
	}

	return s.GetCart(ctx, userID)
}

func (s *service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	cart, err := s.findCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	item := findItem(cart, productID)
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
	}

	product, err := s.availableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.StockQty < quantity {
		return nil, insufficientStock(product.StockQty, quantity)
	}

	item.Quantity = quantity
	item.UnitPrice = product.Price
	item.Product = nil
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save cart item")
	}

	return s.GetCart(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*models.Cart, error) {
	cart, err := s.findCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	affected, err := s.repo.DeleteItem(ctx, cart.ID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart item")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
	}
	return s.GetCart(ctx, userID)
}

// Clear empties the cart and is a no-op for users without one.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.clearWith(ctx, s.repo, userID)
}

// ClearTx empties the cart on the caller's transaction; the checkout
// coordinator uses it so the cart survives a rolled-back order.
func (s *service) ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return s.clearWith(ctx, s.repo.WithTx(tx), userID)
}

func (s *service) clearWith(ctx context.Context, repo Repository, userID uuid.UUID) error {
	cart, err := repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	if err := repo.ClearItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
	}
	return nil
}

func (s *service) Total(ctx context.Context, userID uuid.UUID) (*Totals, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	totals := &Totals{Total: decimal.Zero, Lines: len(cart.Items)}
	for _, item := range cart.Items {
		totals.Total = totals.Total.Add(item.LineSubtotal())
		totals.ItemCount += item.Quantity
	}
	return totals, nil
}

// ValidateForCheckout re-checks every line against the live catalog without
// mutating the cart. Totals come from the snapshotted unit prices.
func (s *service) ValidateForCheckout(ctx context.Context, userID uuid.UUID) (*Validation, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	validation := &Validation{CartID: cart.ID, Total: decimal.Zero}
	for _, item := range cart.Items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				validation.Errors = append(validation.Errors, fmt.Sprintf("product %s is not available", item.ProductID))
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}
		if !product.IsActive {
			validation.Errors = append(validation.Errors, fmt.Sprintf("product %s is not available", item.ProductID))
			continue
		}
		if product.StockQty < item.Quantity {
			validation.Errors = append(validation.Errors, fmt.Sprintf(
				"insufficient stock for %s: available %d, requested %d",
				product.Name, product.StockQty, item.Quantity,
			))
			continue
		}
		validation.Lines = append(validation.Lines, Line{Item: item, Product: *product})
		validation.Total = validation.Total.Add(item.LineSubtotal())
	}
	validation.IsValid = len(validation.Errors) == 0

	return validation, nil
}

func (s *service) loadOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}

	created := &models.Cart{ID: uuid.New(), UserID: userID}
	if err := s.repo.Create(ctx, created); err != nil {
		// Lost the creation race, the winner's cart serves the request.
		if db.IsUniqueViolation(err, "carts_user_id_key") {
			cart, err = s.repo.FindByUser(ctx, userID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
			}
			return cart, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create cart")
	}
	created.Items = []models.CartItem{}
	return created, nil
}

func (s *service) findCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	return cart, nil
}

func (s *service) availableProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product not available")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product not available")
	}
	return product, nil
}

func findItem(cart *models.Cart, productID uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			return &cart.Items[i]
		}
	}
	return nil
}

func insufficientStock(available, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{"available": available, "requested": requested})
}
