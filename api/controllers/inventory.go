package controllers

import (
	"net/http"
	"strings"

	"github.com/destelloperu/destello-backend/api/responses"
	"github.com/destelloperu/destello-backend/api/validators"
	inventorysvc "github.com/destelloperu/destello-backend/internal/inventory"
	"github.com/destelloperu/destello-backend/pkg/enums"
	pkgerrors "github.com/destelloperu/destello-backend/pkg/errors"
	"github.com/destelloperu/destello-backend/pkg/logger"
)

// StockCheck is the public availability guard the storefront calls before
// enabling the buy button.
func StockCheck(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		qty, err := validators.ParseQueryInt(r, "qty", 1, 1, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.CheckStock(r.Context(), productID, qty); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"available": true, "quantity": qty})
	}
}

type stockAdjustRequest struct {
	QtyChange int     `json:"qty_change" validate:"required"`
	Type      string  `json:"type" validate:"required"`
	Reason    *string `json:"reason,omitempty"`
}

// AdminStockAdjust applies a manual stock movement and appends the matching
// ledger row.
func AdminStockAdjust(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		actorID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload stockAdjustRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txType, err := enums.ParseInventoryTxType(strings.TrimSpace(payload.Type))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction type"))
			return
		}

		entry, err := svc.UpdateStock(r.Context(), inventorysvc.UpdateStockInput{
			ProductID:   productID,
			QtyChange:   payload.QtyChange,
			Type:        txType,
			Reason:      payload.Reason,
			ActorUserID: &actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// AdminInventoryLedger pages through one product's stock movement history.
func AdminInventoryLedger(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListTransactions(r.Context(), productID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
