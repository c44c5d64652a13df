package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/destelloperu/destello-backend/pkg/enums"
)

// OrderCreatedEvent signals a checkout produced a new order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	ItemCount   int             `json:"item_count"`
	Total       decimal.Decimal `json:"total"`
}

// OrderStatusChangedEvent is emitted on every lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	UserID      uuid.UUID         `json:"user_id"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	ToStatus    enums.OrderStatus `json:"to_status"`
}

// OrderCanceledEvent is emitted when an order is cancelled and its stock restored.
type OrderCanceledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	CanceledAt  time.Time `json:"canceled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// InventoryAdjustedEvent reports a manual stock change outside the order flow.
type InventoryAdjustedEvent struct {
	ProductID  uuid.UUID             `json:"product_id"`
	SKU        string                `json:"sku"`
	TxType     enums.InventoryTxType `json:"tx_type"`
	QtyChange  int                   `json:"qty_change"`
	StockAfter int                   `json:"stock_after"`
}

// StockDepletedEvent fires when a sale or adjustment drains a product to zero.
type StockDepletedEvent struct {
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
}
