package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/destelloperu/destello-backend/pkg/db/models"
	"github.com/destelloperu/destello-backend/pkg/enums"
	"github.com/destelloperu/destello-backend/pkg/pagination"
)

// ListFilters narrows order listings.
type ListFilters struct {
	UserID *uuid.UUID
	Status *enums.OrderStatus
}

// ListResult wraps one page of orders with pagination metadata.
type ListResult struct {
	Orders []models.Order
	Meta   pagination.Meta
}

// StatsFilters bounds the aggregate queries.
type StatsFilters struct {
	From   *time.Time
	To     *time.Time
	Status *enums.OrderStatus
}

// Stats aggregates order volume for the admin dashboard.
type Stats struct {
	TotalOrders       int64                       `json:"total_orders"`
	TotalAmount       decimal.Decimal             `json:"total_amount"`
	AverageOrderValue decimal.Decimal             `json:"average_order_value"`
	OrdersByStatus    map[enums.OrderStatus]int64 `json:"orders_by_status"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error)
	// UpdateStatus writes only while the order still holds the observed
	// status; the caller must check the affected row count.
	UpdateStatus(ctx context.Context, id uuid.UUID, from enums.OrderStatus, updates map[string]any) (int64, error)
	Stats(ctx context.Context, filters StatsFilters) (*Stats, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.created_at ASC")
		}).
		Take(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	params = params.Normalize()

	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Order{})
		if filters.UserID != nil {
			q = q.Where("user_id = ?", *filters.UserID)
		}
		if filters.Status != nil {
			q = q.Where("status = ?", *filters.Status)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.Order
	err := scoped().
		Preload("Items").
		Order("created_at DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Orders: rows,
		Meta:   pagination.NewMeta(params, total),
	}, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from enums.OrderStatus, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repository) Stats(ctx context.Context, filters StatsFilters) (*Stats, error) {
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Order{})
		if filters.From != nil {
			q = q.Where("created_at >= ?", *filters.From)
		}
		if filters.To != nil {
			q = q.Where("created_at <= ?", *filters.To)
		}
		if filters.Status != nil {
			q = q.Where("status = ?", *filters.Status)
		}
		return q
	}

	var agg struct {
		TotalOrders int64
		TotalAmount decimal.Decimal
	}
	err := scoped().
		Select("COUNT(*) AS total_orders, COALESCE(SUM(total), 0) AS total_amount").
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}

	var byStatus []struct {
		Status enums.OrderStatus
		Count  int64
	}
	if err := scoped().Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalOrders:       agg.TotalOrders,
		TotalAmount:       agg.TotalAmount,
		AverageOrderValue: decimal.Zero,
		OrdersByStatus:    map[enums.OrderStatus]int64{},
	}
	for _, row := range byStatus {
		stats.OrdersByStatus[row.Status] = row.Count
	}
	if agg.TotalOrders > 0 {
		stats.AverageOrderValue = agg.TotalAmount.
			Div(decimal.NewFromInt(agg.TotalOrders)).
			Round(2)
	}

	return stats, nil
}
