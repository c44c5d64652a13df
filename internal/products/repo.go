package products

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/destelloperu/destello-backend/pkg/db/models"
	"github.com/destelloperu/destello-backend/pkg/pagination"
)

// ListFilters describe the inputs supported by the product listing.
type ListFilters struct {
	CategoryID *uuid.UUID
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Search     string
	IsActive   *bool
	Tag        string
}

// ListResult wraps one page of products with its pagination metadata.
type ListResult struct {
	Products []models.Product
	Meta     pagination.Meta
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySKU(ctx context.Context, sku string) (*models.Product, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ReplaceCategories(ctx context.Context, product *models.Product, categories []models.Category) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a products repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	params = params.Normalize()

	q := r.db.WithContext(ctx).Model(&models.Product{})
	if filters.CategoryID != nil {
		q = q.Joins("JOIN product_categories pc ON pc.product_id = products.id").
			Where("pc.category_id = ?", *filters.CategoryID)
	}
	if filters.MinPrice != nil {
		q = q.Where("price >= ?", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		q = q.Where("price <= ?", *filters.MaxPrice)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		q = q.Where("name LIKE ? OR description LIKE ?", pattern, pattern)
	}
	if filters.IsActive != nil {
		q = q.Where("products.is_active = ?", *filters.IsActive)
	}
	if filters.Tag != "" {
		q = q.Where("? = ANY(tags)", filters.Tag)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.Product
	err := q.Preload("Categories").
		Order("products.created_at DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Products: rows,
		Meta:     pagination.NewMeta(params, total),
	}, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ReplaceCategories(ctx context.Context, product *models.Product, categories []models.Category) error {
	return r.db.WithContext(ctx).Model(product).Association("Categories").Replace(categories)
}
