package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/destelloperu/destello-backend/internal/users"
	"github.com/destelloperu/destello-backend/pkg/db/models"
	"github.com/destelloperu/destello-backend/pkg/enums"
	pkgerrors "github.com/destelloperu/destello-backend/pkg/errors"
	"github.com/destelloperu/destello-backend/pkg/outbox"
	"github.com/destelloperu/destello-backend/pkg/outbox/payloads"
	"github.com/destelloperu/destello-backend/pkg/pagination"
	"github.com/destelloperu/destello-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// stockRestorer returns cancelled quantities to the live counter with a
// matching ledger entry, on the caller's transaction.
type stockRestorer interface {
	RestoreTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, orderID uuid.UUID) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// View pairs an order with its resolved user reference.
type View struct {
	Order models.Order   `json:"order"`
	User  *users.Summary `json:"user,omitempty"`
}

// Summary condenses an order for quick display.
type Summary struct {
	OrderID       uuid.UUID          `json:"order_id"`
	OrderNumber   string             `json:"order_number"`
	UserID        uuid.UUID          `json:"user_id"`
	Status        enums.OrderStatus  `json:"status"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	ShippingFee   decimal.Decimal    `json:"shipping_fee"`
	Total         decimal.Decimal    `json:"total"`
	ItemCount     int                `json:"item_count"`
	TotalQuantity int                `json:"total_quantity"`
	Address       types.Address      `json:"address"`
	Items         []models.OrderItem `json:"items"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Service manages the order lifecycle after checkout.
type Service interface {
	GetOrder(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) (*View, error)
	ListMyOrders(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus, params pagination.Params) (*ListResult, error)
	ListAllOrders(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus enums.OrderStatus, actorID uuid.UUID) (*View, error)
	CancelOrder(ctx context.Context, orderID, userID uuid.UUID) (*View, error)
	OrderSummary(ctx context.Context, orderID uuid.UUID) (*Summary, error)
	OrderStats(ctx context.Context, filters StatsFilters) (*Stats, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	inventory stockRestorer
	outbox    outboxPublisher
	users     userLoader
}

// NewService constructs an order service instance.
func NewService(repo Repository, tx txRunner, inventory stockRestorer, ob outboxPublisher, userRepo userLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo, tx: tx, inventory: inventory, outbox: ob, users: userRepo}, nil
}

// GetOrder loads an order. When userID is set the order must belong to that
// user; a mismatch reads as not found so ownership is never leaked.
func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) (*View, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != nil && order.UserID != *userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.view(ctx, order), nil
}

func (s *service) ListMyOrders(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus, params pagination.Params) (*ListResult, error) {
	return s.list(ctx, ListFilters{UserID: &userID, Status: status}, params)
}

func (s *service) ListAllOrders(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	return s.list(ctx, filters, params)
}

func (s *service) list(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", *filters.Status))
	}
	result, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	return result, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus enums.OrderStatus, actorID uuid.UUID) (*View, error) {
	if !newStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", newStatus))
	}

	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(newStatus) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot transition order from %s to %s", order.Status, newStatus))
	}

	actor := &outbox.ActorRef{UserID: actorID, Role: string(enums.UserRoleAdmin)}
	if err := s.transition(ctx, order, newStatus, actor, "cancelled by admin"); err != nil {
		return nil, err
	}

	updated, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, updated), nil
}

// CancelOrder is the customer-facing cancellation. It only applies while the
// order is pending or confirmed; later stages go through support.
func (s *service) CancelOrder(ctx context.Context, orderID, userID uuid.UUID) (*View, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !order.Status.IsCancellableByCustomer() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order in status %s can no longer be cancelled", order.Status))
	}

	actor := &outbox.ActorRef{UserID: userID, Role: string(enums.UserRoleCustomer)}
	if err := s.transition(ctx, order, enums.OrderStatusCancelled, actor, "cancelled by customer"); err != nil {
		return nil, err
	}

	updated, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, updated), nil
}

// transition writes the status change and, when entering cancelled, restores
// every line's stock in the same transaction. The write is conditional on the
// status observed at read time, so racing transitions resolve to exactly one
// winner.
func (s *service) transition(ctx context.Context, order *models.Order, newStatus enums.OrderStatus, actor *outbox.ActorRef, cancelReason string) error {
	now := time.Now()
	updates := map[string]any{"status": newStatus}
	switch newStatus {
	case enums.OrderStatusConfirmed:
		updates["confirmed_at"] = now
	case enums.OrderStatusShipped:
		updates["shipped_at"] = now
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		rows, err := txRepo.UpdateStatus(ctx, order.ID, order.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order status")
		}
		if rows == 0 {
			// The order left the observed status between the read and
			// this write; the stock restore below must not run.
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		if newStatus == enums.OrderStatusCancelled {
			for _, item := range order.Items {
				if err := s.inventory.RestoreTx(ctx, tx, item.ProductID, item.Quantity, order.ID); err != nil {
					return err
				}
			}
		}

		statusChanged := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				FromStatus:  order.Status,
				ToStatus:    newStatus,
			},
		}
		if err := s.outbox.Emit(ctx, tx, statusChanged); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: order status changed")
		}

		if newStatus == enums.OrderStatusCancelled {
			canceled := outbox.DomainEvent{
				EventType:     enums.EventOrderCanceled,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actor,
				Data: payloads.OrderCanceledEvent{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					UserID:      order.UserID,
					CanceledAt:  now,
					Reason:      cancelReason,
				},
			}
			if err := s.outbox.Emit(ctx, tx, canceled); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: order canceled")
			}
		}

		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order")
	}
	return nil
}

func (s *service) OrderSummary(ctx context.Context, orderID uuid.UUID) (*Summary, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		Subtotal:    order.Subtotal,
		ShippingFee: order.ShippingFee,
		Total:       order.Total,
		ItemCount:   len(order.Items),
		Address:     order.ShippingAddress,
		Items:       order.Items,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
	for _, item := range order.Items {
		summary.TotalQuantity += item.Quantity
	}
	return summary, nil
}

func (s *service) OrderStats(ctx context.Context, filters StatsFilters) (*Stats, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", *filters.Status))
	}
	stats, err := s.repo.Stats(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: order stats")
	}
	return stats, nil
}

func (s *service) findOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	return order, nil
}

// view resolves the order's user reference; a missing user row degrades to
// the bare order instead of failing the read.
func (s *service) view(ctx context.Context, order *models.Order) *View {
	v := &View{Order: *order}
	if user, err := s.users.FindByID(ctx, order.UserID); err == nil {
		summary := users.NewSummary(*user)
		v.User = &summary
	}
	return v
}
