package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/destelloperu/destello-backend/api/responses"
	"github.com/destelloperu/destello-backend/api/validators"
	productsvc "github.com/destelloperu/destello-backend/internal/products"
	pkgerrors "github.com/destelloperu/destello-backend/pkg/errors"
	"github.com/destelloperu/destello-backend/pkg/logger"
)

// ProductList serves the public catalog with filters and pagination.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := parseProductFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		// storefront listings only ever show active products
		if !isAdmin(r) {
			active := true
			filters.IsActive = &active
		}

		result, err := svc.List(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ProductDetail returns a single product by id.
func ProductDetail(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !product.IsActive && !isAdmin(r) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type createProductRequest struct {
	SKU         string   `json:"sku" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Price       string   `json:"price" validate:"required"`
	StockQty    int      `json:"stock_qty" validate:"min=0"`
	LowStockAt  int      `json:"low_stock_at" validate:"min=0"`
	ImageURL    *string  `json:"image_url,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CategoryIDs []string `json:"category_ids,omitempty" validate:"omitempty,dive,uuid4"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

func (p createProductRequest) toCreateInput() (productsvc.CreateInput, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(p.Price))
	if err != nil {
		return productsvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	categoryIDs, err := parseUUIDList(p.CategoryIDs)
	if err != nil {
		return productsvc.CreateInput{}, err
	}
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return productsvc.CreateInput{
		SKU:         strings.TrimSpace(p.SKU),
		Name:        strings.TrimSpace(p.Name),
		Description: p.Description,
		Price:       price,
		StockQty:    p.StockQty,
		LowStockAt:  p.LowStockAt,
		ImageURL:    p.ImageURL,
		Tags:        p.Tags,
		CategoryIDs: categoryIDs,
		IsActive:    active,
	}, nil
}

// AdminProductCreate registers a new catalog listing. Opening stock is
// recorded through the inventory ledger, not written directly.
func AdminProductCreate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		actorID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), actorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateProductRequest struct {
	SKU         *string   `json:"sku,omitempty"`
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Price       *string   `json:"price,omitempty"`
	LowStockAt  *int      `json:"low_stock_at,omitempty" validate:"omitempty,min=0"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	CategoryIDs *[]string `json:"category_ids,omitempty" validate:"omitempty,dive,uuid4"`
	IsActive    *bool     `json:"is_active,omitempty"`
}

func (p updateProductRequest) toUpdateInput() (productsvc.UpdateInput, error) {
	input := productsvc.UpdateInput{
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		LowStockAt:  p.LowStockAt,
		ImageURL:    p.ImageURL,
		Tags:        p.Tags,
		IsActive:    p.IsActive,
	}
	if p.Price != nil {
		price, err := decimal.NewFromString(strings.TrimSpace(*p.Price))
		if err != nil {
			return productsvc.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
		}
		input.Price = &price
	}
	if p.CategoryIDs != nil {
		ids, err := parseUUIDList(*p.CategoryIDs)
		if err != nil {
			return productsvc.UpdateInput{}, err
		}
		input.CategoryIDs = &ids
	}
	return input, nil
}

// AdminProductUpdate applies a partial update to a listing.
func AdminProductUpdate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminProductDeactivate soft-deletes a listing so order history keeps its
// snapshots.
func AdminProductDeactivate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Deactivate(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deactivated": true})
	}
}

func parseProductFilters(r *http.Request) (productsvc.ListFilters, error) {
	filters := productsvc.ListFilters{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Tag:    strings.TrimSpace(r.URL.Query().Get("tag")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("category_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return productsvc.ListFilters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category id")
		}
		filters.CategoryID = &id
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("min_price")); raw != "" {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return productsvc.ListFilters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid min_price")
		}
		filters.MinPrice = &value
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("max_price")); raw != "" {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return productsvc.ListFilters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid max_price")
		}
		filters.MaxPrice = &value
	}
	return filters, nil
}

func parseUUIDList(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid uuid in list")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
