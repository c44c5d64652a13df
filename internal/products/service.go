package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/destelloperu/destello-backend/pkg/db"
	"github.com/destelloperu/destello-backend/pkg/db/models"
	pkgerrors "github.com/destelloperu/destello-backend/pkg/errors"
	"github.com/destelloperu/destello-backend/pkg/pagination"
)

// Service exposes catalog product management operations.
type Service interface {
	Create(ctx context.Context, actorUserID uuid.UUID, input CreateInput) (*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// CreateInput holds the validated payload to create a product.
type CreateInput struct {
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	StockQty    int
	LowStockAt  int
	ImageURL    *string
	Tags        []string
	CategoryIDs []uuid.UUID
	IsActive    bool
}

// UpdateInput holds optional mutation values for a product.
type UpdateInput struct {
	SKU         *string
	Name        *string
	Description *string
	Price       *decimal.Decimal
	LowStockAt  *int
	ImageURL    *string
	Tags        *[]string
	CategoryIDs *[]uuid.UUID
	IsActive    *bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type categoryLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// initialStocker records the opening stock of a new product as a restock
// ledger entry inside the creation transaction.
type initialStocker interface {
	RestockTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, reason *string, actorUserID *uuid.UUID) error
}

type service struct {
	repo       Repository
	tx         txRunner
	categories categoryLoader
	inventory  initialStocker
}

// NewService constructs a product service instance.
func NewService(repo Repository, tx txRunner, categories categoryLoader, inventory initialStocker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	return &service{repo: repo, tx: tx, categories: categories, inventory: inventory}, nil
}

func (s *service) Create(ctx context.Context, actorUserID uuid.UUID, input CreateInput) (*models.Product, error) {
	sku := strings.TrimSpace(input.SKU)
	name := strings.TrimSpace(input.Name)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.StockQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}

	cats, err := s.loadCategories(ctx, input.CategoryIDs)
	if err != nil {
		return nil, err
	}

	var createdID uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		product := &models.Product{
			SKU:         sku,
			Name:        name,
			Description: strings.TrimSpace(input.Description),
			Price:       input.Price,
			StockQty:    0,
			LowStockAt:  input.LowStockAt,
			ImageURL:    input.ImageURL,
			Tags:        pq.StringArray(input.Tags),
			IsActive:    input.IsActive,
		}
		if product.Tags == nil {
			product.Tags = pq.StringArray{}
		}

		created, err := txRepo.Create(ctx, product)
		if err != nil {
			if db.IsUniqueViolation(err, "products_sku_key") {
				return pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		createdID = created.ID

		if len(cats) > 0 {
			if err := txRepo.ReplaceCategories(ctx, created, cats); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: link product categories")
			}
		}

		// Opening stock flows through the ledger so the reconciliation
		// sum always matches the live counter.
		if input.StockQty > 0 {
			reason := "initial stock"
			if err := s.inventory.RestockTx(ctx, tx, created.ID, input.StockQty, &reason, &actorUserID); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	return s.Get(ctx, createdID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	result, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	return result, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.SKU != nil {
		sku := strings.TrimSpace(*input.SKU)
		if sku == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku cannot be empty")
		}
		updates["sku"] = sku
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		updates["price"] = *input.Price
	}
	if input.LowStockAt != nil {
		updates["low_stock_at"] = *input.LowStockAt
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if input.Tags != nil {
		updates["tags"] = pq.StringArray(*input.Tags)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	var cats []models.Category
	if input.CategoryIDs != nil {
		cats, err = s.loadCategories(ctx, *input.CategoryIDs)
		if err != nil {
			return nil, err
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if len(updates) > 0 {
			if err := txRepo.Update(ctx, id, updates); err != nil {
				if db.IsUniqueViolation(err, "products_sku_key") {
					return pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
			}
		}
		if input.CategoryIDs != nil {
			if err := txRepo.ReplaceCategories(ctx, product, cats); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: link product categories")
			}
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	return s.Get(ctx, id)
}

// Deactivate soft-deletes a product. History (orders, ledger) keeps pointing
// at the row; carts drop it on their next read.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, map[string]any{"is_active": false}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: deactivate product")
	}
	return nil
}

func (s *service) loadCategories(ctx context.Context, ids []uuid.UUID) ([]models.Category, error) {
	cats := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		cat, err := s.categories.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown category %s", id))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load category")
		}
		cats = append(cats, *cat)
	}
	return cats, nil
}
