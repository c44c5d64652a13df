package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/destelloperu/destello-backend/pkg/db/models"
	"github.com/destelloperu/destello-backend/pkg/enums"
	pkgerrors "github.com/destelloperu/destello-backend/pkg/errors"
	"github.com/destelloperu/destello-backend/pkg/outbox"
	"github.com/destelloperu/destello-backend/pkg/outbox/payloads"
	"github.com/destelloperu/destello-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// UpdateStockInput carries a manual stock adjustment.
type UpdateStockInput struct {
	ProductID   uuid.UUID
	QtyChange   int
	Type        enums.InventoryTxType
	Reason      *string
	ActorUserID *uuid.UUID
}

// Drift reports one product whose counter diverged from its ledger.
type Drift struct {
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	StockQty  int       `json:"stock_qty"`
	LedgerSum int64     `json:"ledger_sum"`
	Repaired  bool      `json:"repaired"`
}

// Service owns every stock mutation. Checkout, cancellation and the catalog
// all route their stock changes through here so each change lands paired
// with a ledger row in the same transaction.
type Service interface {
	UpdateStock(ctx context.Context, input UpdateStockInput) (*models.InventoryTransaction, error)
	CheckStock(ctx context.Context, productID uuid.UUID, qty int) error
	ListTransactions(ctx context.Context, productID uuid.UUID, params pagination.Params) (*LedgerPage, error)
	DeductTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, orderID uuid.UUID) (int, error)
	RestoreTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, orderID uuid.UUID) error
	RestockTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, reason *string, actorUserID *uuid.UUID) error
	Reconcile(ctx context.Context, repair bool) ([]Drift, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	products productLoader
}

// NewService constructs an inventory service instance.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo, tx: tx, outbox: ob, products: products}, nil
}

func (s *service) UpdateStock(ctx context.Context, input UpdateStockInput) (*models.InventoryTransaction, error) {
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", input.Type))
	}
	if input.QtyChange == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity change cannot be zero")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	var row *models.InventoryTransaction
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := s.applyChangeTx(ctx, tx, applyInput{
			productID:   input.ProductID,
			delta:       input.QtyChange,
			txType:      input.Type,
			reason:      input.Reason,
			actorUserID: input.ActorUserID,
		})
		if err != nil {
			return err
		}
		row = applied

		event := outbox.DomainEvent{
			EventType:     enums.EventInventoryAdjusted,
			AggregateType: enums.AggregateProduct,
			AggregateID:   input.ProductID,
			Data: payloads.InventoryAdjustedEvent{
				ProductID:  input.ProductID,
				SKU:        product.SKU,
				TxType:     input.Type,
				QtyChange:  input.QtyChange,
				StockAfter: applied.StockAfter,
			},
		}
		if input.ActorUserID != nil {
			event.Actor = &outbox.ActorRef{UserID: *input.ActorUserID}
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: inventory adjusted")
		}

		if applied.StockAfter == 0 {
			depleted := outbox.DomainEvent{
				EventType:     enums.EventStockDepleted,
				AggregateType: enums.AggregateProduct,
				AggregateID:   input.ProductID,
				Data:          payloads.StockDepletedEvent{ProductID: input.ProductID, SKU: product.SKU},
			}
			if err := s.outbox.Emit(ctx, tx, depleted); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: stock depleted")
			}
		}

		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
	}

	return row, nil
}

func (s *service) CheckStock(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "product is inactive")
	}
	if product.StockQty < qty {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{"available": product.StockQty, "requested": qty})
	}
	return nil
}

func (s *service) ListTransactions(ctx context.Context, productID uuid.UUID, params pagination.Params) (*LedgerPage, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	page, err := s.repo.ListByProduct(ctx, productID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list inventory transactions")
	}
	return page, nil
}

// DeductTx removes qty units as a sale for the given order, failing with
// INSUFFICIENT_STOCK when the conditional update matches no row.
func (s *service) DeductTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, orderID uuid.UUID) (int, error) {
	if qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	applied, err := s.applyChangeTx(ctx, tx, applyInput{
		productID:   productID,
		delta:       -qty,
		txType:      enums.InventoryTxTypeSale,
		referenceID: &orderID,
	})
	if err != nil {
		return 0, err
	}
	return applied.StockAfter, nil
}

// RestoreTx returns qty units to stock when an order is cancelled.
func (s *service) RestoreTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, orderID uuid.UUID) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	_, err := s.applyChangeTx(ctx, tx, applyInput{
		productID:   productID,
		delta:       qty,
		txType:      enums.InventoryTxTypeReturn,
		referenceID: &orderID,
	})
	return err
}

// RestockTx adds qty units outside the order flow, e.g. opening stock.
func (s *service) RestockTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, reason *string, actorUserID *uuid.UUID) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	_, err := s.applyChangeTx(ctx, tx, applyInput{
		productID:   productID,
		delta:       qty,
		txType:      enums.InventoryTxTypeRestock,
		reason:      reason,
		actorUserID: actorUserID,
	})
	return err
}

type applyInput struct {
	productID   uuid.UUID
	delta       int
	txType      enums.InventoryTxType
	reason      *string
	referenceID *uuid.UUID
	actorUserID *uuid.UUID
}

// applyChangeTx is the single write path for stock: a conditional counter
// update plus its ledger row, both on the caller's transaction.
func (s *service) applyChangeTx(ctx context.Context, tx *gorm.DB, input applyInput) (*models.InventoryTransaction, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	txRepo := s.repo.WithTx(tx)

	affected, err := txRepo.AdjustStock(ctx, input.productID, input.delta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: adjust stock")
	}
	if affected == 0 {
		if _, err := txRepo.GetStock(ctx, input.productID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
		}
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")
	}

	stockAfter, err := txRepo.GetStock(ctx, input.productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: read stock")
	}

	row := &models.InventoryTransaction{
		ProductID:   input.productID,
		Type:        input.txType,
		QtyChange:   input.delta,
		StockAfter:  stockAfter,
		Reason:      input.reason,
		ReferenceID: input.referenceID,
		ActorUserID: input.actorUserID,
	}
	if err := txRepo.CreateTransaction(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: append inventory transaction")
	}

	return row, nil
}

// Reconcile compares each product's counter against its ledger sum. The
// ledger is the source of truth, so a repair rewrites the counter to the
// sum without appending a ledger row. Per product errors are aggregated so
// one broken row does not hide the rest.
func (s *service) Reconcile(ctx context.Context, repair bool) ([]Drift, error) {
	stocks, err := s.repo.ListProductStocks(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list product stocks")
	}

	var drifts []Drift
	var errs error
	for _, stock := range stocks {
		sum, err := s.repo.SumQtyChanges(ctx, stock.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("product %s: sum ledger: %w", stock.ID, err))
			continue
		}
		if int64(stock.StockQty) == sum {
			continue
		}

		drift := Drift{
			ProductID: stock.ID,
			SKU:       stock.SKU,
			StockQty:  stock.StockQty,
			LedgerSum: sum,
		}
		if repair {
			if err := s.repairDrift(ctx, stock, sum); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("product %s: repair: %w", stock.ID, err))
			} else {
				drift.Repaired = true
			}
		}
		drifts = append(drifts, drift)
	}

	return drifts, errs
}

func (s *service) repairDrift(ctx context.Context, stock ProductStock, ledgerSum int64) error {
	if ledgerSum < 0 {
		return fmt.Errorf("ledger sum is negative (%d)", ledgerSum)
	}
	affected, err := s.repo.RepairStock(ctx, stock.ID, stock.StockQty, int(ledgerSum))
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New("counter changed since it was read, skipping repair")
	}
	return nil
}
