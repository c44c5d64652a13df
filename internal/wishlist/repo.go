package wishlist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/destelloperu/destello-backend/pkg/db/models"
	"github.com/destelloperu/destello-backend/pkg/pagination"
)

// ListResult wraps one page of wishlist items with pagination metadata.
type ListResult struct {
	Items []models.WishlistItem
	Meta  pagination.Meta
}

// Repository defines persistence operations for wishlist items.
type Repository interface {
	Create(ctx context.Context, item *models.WishlistItem) error
	Delete(ctx context.Context, userID, productID uuid.UUID) (int64, error)
	Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a wishlist repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, item *models.WishlistItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) Delete(ctx context.Context, userID, productID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{})
	return result.RowsAffected, result.Error
}

func (r *repository) Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WishlistItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error) {
	params = params.Normalize()

	q := r.db.WithContext(ctx).Model(&models.WishlistItem{}).
		Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.WishlistItem
	err := q.Preload("Product").
		Order("created_at DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Items: rows,
		Meta:  pagination.NewMeta(params, total),
	}, nil
}
