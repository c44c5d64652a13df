package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/destelloperu/destello-backend/pkg/enums"
)

// InventoryTransaction is one row in the append-only stock ledger. Every
// stock mutation writes its delta and resulting level in the same database
// transaction, so summing qty_change per product reproduces stock_qty.
type InventoryTransaction struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID             `gorm:"column:product_id;type:uuid;not null;index:inventory_transactions_product_id_idx"`
	Type          enums.InventoryTxType `gorm:"column:type;type:inventory_tx_type;not null"`
	QtyChange     int                   `gorm:"column:qty_change;not null"`
	StockAfter    int                   `gorm:"column:stock_after;not null"`
	Reason        *string               `gorm:"column:reason"`
	ReferenceID   *uuid.UUID            `gorm:"column:reference_id;type:uuid;index:inventory_transactions_reference_id_idx"`
	ActorUserID   *uuid.UUID            `gorm:"column:actor_user_id;type:uuid"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime;index:inventory_transactions_created_at_idx"`
}
