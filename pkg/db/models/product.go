package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product represents a catalog listing with its live stock counter.
// stock_qty is only mutated through conditional updates in the inventory
// service so concurrent checkouts can never drive it negative.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU         string          `gorm:"column:sku;not null;uniqueIndex:products_sku_key"`
	Name        string          `gorm:"column:name;not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	StockQty    int             `gorm:"column:stock_qty;not null;default:0"`
	LowStockAt  int             `gorm:"column:low_stock_at;not null;default:5"`
	ImageURL    *string         `gorm:"column:image_url"`
	Tags        pq.StringArray  `gorm:"column:tags;type:text[];not null;default:'{}'"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	Categories  []Category      `gorm:"many2many:product_categories;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// IsLowStock reports whether the product sits at or below its alert threshold.
func (p Product) IsLowStock() bool {
	return p.StockQty <= p.LowStockAt
}
