package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/destelloperu/destello-backend/api/controllers"
	"github.com/destelloperu/destello-backend/api/middleware"
	cartsvc "github.com/destelloperu/destello-backend/internal/cart"
	categorysvc "github.com/destelloperu/destello-backend/internal/categories"
	checkoutsvc "github.com/destelloperu/destello-backend/internal/checkout"
	inventorysvc "github.com/destelloperu/destello-backend/internal/inventory"
	ordersvc "github.com/destelloperu/destello-backend/internal/orders"
	productsvc "github.com/destelloperu/destello-backend/internal/products"
	wishlistsvc "github.com/destelloperu/destello-backend/internal/wishlist"
	"github.com/destelloperu/destello-backend/pkg/config"
	"github.com/destelloperu/destello-backend/pkg/db"
	"github.com/destelloperu/destello-backend/pkg/enums"
	"github.com/destelloperu/destello-backend/pkg/logger"
	"github.com/destelloperu/destello-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	productService productsvc.Service,
	categoryService categorysvc.Service,
	cartService cartsvc.Service,
	checkoutService checkoutsvc.Service,
	orderService ordersvc.Service,
	inventoryService inventorysvc.Service,
	wishlistService wishlistsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	// public storefront reads
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(productService, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(productService, logg))
		r.Get("/products/{productId}/stock", controllers.StockCheck(inventoryService, logg))
		r.Get("/categories", controllers.CategoryList(categoryService, logg))
		r.Get("/categories/{categoryId}", controllers.CategoryDetail(categoryService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(redisClient, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(cartService, logg))
				r.Delete("/", controllers.CartClear(cartService, logg))
				r.Get("/total", controllers.CartTotal(cartService, logg))
				r.Get("/validate", controllers.CartValidate(cartService, logg))
				r.Post("/items", controllers.CartAddItem(cartService, logg))
				r.Patch("/items/{productId}", controllers.CartUpdateItem(cartService, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(cartService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.CheckoutWindow, cfg.RateLimit.CheckoutLimit)
				r.With(middleware.RateLimit(checkoutPolicy, redisClient, logg)).
					Post("/", controllers.OrderCreate(checkoutService, logg))
				r.Get("/", controllers.OrderList(orderService, logg))
				r.Get("/{orderId}", controllers.OrderDetail(orderService, logg))
				r.Post("/{orderId}/cancel", controllers.OrderCancel(orderService, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistList(wishlistService, logg))
				r.Post("/", controllers.WishlistAdd(wishlistService, logg))
				r.Delete("/{productId}", controllers.WishlistRemove(wishlistService, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(productService, logg))
			r.Post("/", controllers.AdminProductCreate(productService, logg))
			r.Get("/{productId}", controllers.ProductDetail(productService, logg))
			r.Patch("/{productId}", controllers.AdminProductUpdate(productService, logg))
			r.Delete("/{productId}", controllers.AdminProductDeactivate(productService, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", controllers.AdminCategoryCreate(categoryService, logg))
			r.Patch("/{categoryId}", controllers.AdminCategoryUpdate(categoryService, logg))
			r.Delete("/{categoryId}", controllers.AdminCategoryDelete(categoryService, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/{productId}/adjust", controllers.AdminStockAdjust(inventoryService, logg))
			r.Get("/{productId}/transactions", controllers.AdminInventoryLedger(inventoryService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(orderService, logg))
			r.Get("/stats", controllers.AdminOrderStats(orderService, logg))
			r.Get("/{orderId}", controllers.AdminOrderDetail(orderService, logg))
			r.Get("/{orderId}/summary", controllers.AdminOrderSummary(orderService, logg))
			r.Patch("/{orderId}/status", controllers.AdminOrderUpdateStatus(orderService, logg))
		})
	})

	return r
}
