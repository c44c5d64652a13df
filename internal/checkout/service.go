package checkout

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/destelloperu/destello-backend/internal/cart"
	"github.com/destelloperu/destello-backend/internal/orders"
	"github.com/destelloperu/destello-backend/pkg/config"
	"github.com/destelloperu/destello-backend/pkg/db/models"
	"github.com/destelloperu/destello-backend/pkg/enums"
	pkgerrors "github.com/destelloperu/destello-backend/pkg/errors"
	"github.com/destelloperu/destello-backend/pkg/outbox"
	"github.com/destelloperu/destello-backend/pkg/outbox/payloads"
	"github.com/destelloperu/destello-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// stockDeductor performs the conditional, ledger-paired decrement per line.
type stockDeductor interface {
	DeductTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, orderID uuid.UUID) (int, error)
}

type cartManager interface {
	ValidateForCheckout(ctx context.Context, userID uuid.UUID) (*cart.Validation, error)
	ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type orderGetter interface {
	GetOrder(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) (*orders.View, error)
}

// Service turns a validated cart into a pending order.
type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, address types.Address) (*orders.View, error)
}

type service struct {
	orderRepo orders.Repository
	tx        txRunner
	carts     cartManager
	inventory stockDeductor
	outbox    outboxPublisher
	orders    orderGetter

	shippingFlatFee  decimal.Decimal
	freeShippingOver decimal.Decimal
}

// NewService constructs the checkout coordinator.
func NewService(
	cfg config.CheckoutConfig,
	orderRepo orders.Repository,
	tx txRunner,
	carts cartManager,
	inventory stockDeductor,
	ob outboxPublisher,
	orderSvc orderGetter,
) (Service, error) {
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order service required")
	}

	flatFee, err := decimal.NewFromString(cfg.ShippingFlatFee)
	if err != nil {
		return nil, fmt.Errorf("parsing shipping flat fee: %w", err)
	}
	freeOver, err := decimal.NewFromString(cfg.FreeShippingOver)
	if err != nil {
		return nil, fmt.Errorf("parsing free shipping threshold: %w", err)
	}

	return &service{
		orderRepo:        orderRepo,
		tx:               tx,
		carts:            carts,
		inventory:        inventory,
		outbox:           ob,
		orders:           orderSvc,
		shippingFlatFee:  flatFee,
		freeShippingOver: freeOver,
	}, nil
}

// CreateOrder snapshots the cart into a pending order, decrements stock per
// line and clears the cart, all inside one transaction. Any line failing the
// conditional decrement rolls the whole checkout back.
func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, address types.Address) (*orders.View, error) {
	if err := address.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	validation, err := s.carts.ValidateForCheckout(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !validation.IsValid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is not valid for checkout").
			WithDetails(map[string]any{"errors": validation.Errors})
	}
	if len(validation.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     newOrderNumber(time.Now()),
		UserID:          userID,
		Status:          enums.OrderStatusPending,
		ShippingAddress: address,
	}

	subtotal := decimal.Zero
	for _, line := range validation.Lines {
		lineTotal := line.Item.LineSubtotal()
		subtotal = subtotal.Add(lineTotal)
		order.Items = append(order.Items, models.OrderItem{
			OrderID:     order.ID,
			ProductID:   line.Item.ProductID,
			ProductName: line.Product.Name,
			ProductSKU:  line.Product.SKU,
			Quantity:    line.Item.Quantity,
			UnitPrice:   line.Item.UnitPrice,
			TotalPrice:  lineTotal,
		})
	}
	order.Subtotal = subtotal
	order.ShippingFee = s.shippingFee(subtotal)
	order.Total = subtotal.Add(order.ShippingFee)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}

		for _, item := range order.Items {
			if _, err := s.inventory.DeductTx(ctx, tx, item.ProductID, item.Quantity, order.ID); err != nil {
				return err
			}
		}

		if err := s.carts.ClearTx(ctx, tx, userID); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.UserRoleCustomer)},
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      userID,
				ItemCount:   len(order.Items),
				Total:       order.Total,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: order created")
		}

		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	return s.orders.GetOrder(ctx, order.ID, nil)
}

func (s *service) shippingFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(s.freeShippingOver) {
		return decimal.Zero
	}
	return s.shippingFlatFee
}

// newOrderNumber yields a customer-facing reference like DP-20260301-4F2A9C.
func newOrderNumber(now time.Time) string {
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		// Fall back to the clock; uniqueness is enforced by the DB index.
		return fmt.Sprintf("DP-%s-%06d", now.Format("20060102"), now.UnixNano()%1000000)
	}
	return fmt.Sprintf("DP-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(suffix)))
}
