package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/destelloperu/destello-backend/pkg/db/models"
	"github.com/destelloperu/destello-backend/pkg/pagination"
)

// LedgerPage wraps one page of ledger rows with pagination metadata.
type LedgerPage struct {
	Transactions []models.InventoryTransaction
	Meta         pagination.Meta
}

// ProductStock is the projection used by the reconciliation job.
type ProductStock struct {
	ID       uuid.UUID
	SKU      string
	StockQty int
}

// Repository defines persistence operations for stock counters and the ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// AdjustStock applies the delta only when the resulting stock stays
	// non-negative; the caller must check the affected row count.
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (int64, error)
	GetStock(ctx context.Context, productID uuid.UUID) (int, error)
	// RepairStock rewrites the counter only when it still holds the
	// observed value, so a concurrent sale invalidates the repair.
	RepairStock(ctx context.Context, productID uuid.UUID, observed, next int) (int64, error)
	CreateTransaction(ctx context.Context, row *models.InventoryTransaction) error
	ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*LedgerPage, error)
	SumQtyChanges(ctx context.Context, productID uuid.UUID) (int64, error)
	ListProductStocks(ctx context.Context) ([]ProductStock, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock_qty + ? >= 0", productID, delta).
		UpdateColumn("stock_qty", gorm.Expr("stock_qty + ?", delta))
	return result.RowsAffected, result.Error
}

func (r *repository) GetStock(ctx context.Context, productID uuid.UUID) (int, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Select("stock_qty").
		Take(&product, "id = ?", productID).Error
	return product.StockQty, err
}

func (r *repository) RepairStock(ctx context.Context, productID uuid.UUID, observed, next int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock_qty = ?", productID, observed).
		UpdateColumn("stock_qty", next)
	return result.RowsAffected, result.Error
}

func (r *repository) CreateTransaction(ctx context.Context, row *models.InventoryTransaction) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*LedgerPage, error) {
	params = params.Normalize()

	q := r.db.WithContext(ctx).Model(&models.InventoryTransaction{}).
		Where("product_id = ?", productID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.InventoryTransaction
	err := q.Order("created_at DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return &LedgerPage{
		Transactions: rows,
		Meta:         pagination.NewMeta(params, total),
	}, nil
}

func (r *repository) SumQtyChanges(ctx context.Context, productID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&models.InventoryTransaction{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(qty_change), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *repository) ListProductStocks(ctx context.Context) ([]ProductStock, error) {
	var rows []ProductStock
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select("id", "sku", "stock_qty").
		Find(&rows).Error
	return rows, err
}
