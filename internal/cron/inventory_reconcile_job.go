package cron

import (
	"context"
	"fmt"

	"github.com/destelloperu/destello-backend/internal/inventory"
	"github.com/destelloperu/destello-backend/pkg/logger"
)

// InventoryReconcileJobParams configures the stock reconciliation job.
type InventoryReconcileJobParams struct {
	Logger    *logger.Logger
	Inventory inventoryReconciler
	Repair    bool
}

type inventoryReconciler interface {
	Reconcile(ctx context.Context, repair bool) ([]inventory.Drift, error)
}

// NewInventoryReconcileJob constructs the job that checks every product's
// stock counter against its ledger sum.
func NewInventoryReconcileJob(params InventoryReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	return &inventoryReconcileJob{
		logg:      params.Logger,
		inventory: params.Inventory,
		repair:    params.Repair,
	}, nil
}

type inventoryReconcileJob struct {
	logg      *logger.Logger
	inventory inventoryReconciler
	repair    bool
}

func (j *inventoryReconcileJob) Name() string { return "inventory-reconcile" }

func (j *inventoryReconcileJob) Run(ctx context.Context) error {
	drifts, err := j.inventory.Reconcile(ctx, j.repair)
	if err != nil {
		return fmt.Errorf("inventory reconcile: %w", err)
	}
	repaired := 0
	for _, drift := range drifts {
		driftCtx := j.logg.WithFields(ctx, map[string]any{
			"product_id": drift.ProductID,
			"sku":        drift.SKU,
			"stock_qty":  drift.StockQty,
			"ledger_sum": drift.LedgerSum,
			"repaired":   drift.Repaired,
		})
		j.logg.Warn(driftCtx, "stock counter diverged from ledger")
		if drift.Repaired {
			repaired++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"drifts":      len(drifts),
		"repaired":    repaired,
		"repair_mode": j.repair,
	})
	j.logg.Info(logCtx, "inventory reconciliation complete")
	return nil
}
