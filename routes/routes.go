package routes

import (
	"net/http"

	"storefront/auth"
	"storefront/middleware"
	"storefront/pay"
	"storefront/ratelim"

	"github.com/julienschmidt/httprouter"
)

func AddStaticRoutes(router *httprouter.Router, uploadDir string) {
	router.ServeFiles("/uploads/*filepath", http.Dir(uploadDir))
}

func AddProductRoutes(router *httprouter.Router, h Handlers) {
	router.GET("/api/products", h.Products.ListProducts)
	router.GET("/api/products/:id", h.Products.GetProduct)
	router.GET("/api/categories", h.Products.ListCategories)
}

func AddOrderRoutes(router *httprouter.Router, h Handlers, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/orders",
		middleware.Chain(
			rateLimiter.Limit,
			pay.Idempotent(h.Idempotency),
		)(h.Orders.CreateOrder),
	)
	router.GET("/api/orders/:id", h.Orders.GetOrder)
	router.GET("/api/orders/:id/cart-clear", h.Orders.CartClear)
	router.GET("/api/orders/:id/receipt", h.Receipt.Download)
	router.GET("/api/orders/:id/ws", h.Live.OrderStatus)
}

func AddPayRoutes(router *httprouter.Router, h Handlers, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/checkout",
		middleware.Chain(
			rateLimiter.Limit,
			pay.Idempotent(h.Idempotency),
		)(h.Pay.Checkout),
	)
	router.POST("/api/orders/:id/pay", rateLimiter.Limit(h.Pay.PayExisting))

	// gateway server-to-server callback; authenticity comes from the signature
	router.POST("/api/payments/webhook", h.Pay.Webhook)
}

func AddAddressRoutes(router *httprouter.Router, h Handlers, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/address/cities", rateLimiter.Limit(h.Address.Cities))
	router.POST("/api/address/warehouses", rateLimiter.Limit(h.Address.Warehouses))
}

func AddCartRoutes(router *httprouter.Router, h Handlers) {
	router.GET("/api/cart", h.Cart.GetCart)
	router.POST("/api/cart/items", h.Cart.AddItem)
	router.PUT("/api/cart/items/:productId", h.Cart.SetQuantity)
	router.DELETE("/api/cart", h.Cart.ClearCart)

	router.GET("/api/favorites", h.Cart.GetFavorites)
	router.POST("/api/favorites/:productId", h.Cart.ToggleFavorite)
}

func AddAuthRoutes(router *httprouter.Router, h Handlers, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/admin/login", rateLimiter.Limit(h.Auth.Login))
}

func AddAdminRoutes(router *httprouter.Router, h Handlers) {
	admin := middleware.Chain(middleware.Authenticate, middleware.RequireRoles(auth.RoleAdmin))

	router.POST("/api/admin/products", admin(h.Products.CreateProduct))
	router.PUT("/api/admin/products/:id", admin(h.Products.UpdateProduct))
	router.DELETE("/api/admin/products/:id", admin(h.Products.DeleteProduct))
	router.POST("/api/admin/products/:id/images", admin(h.Products.UploadImage))
	router.POST("/api/admin/categories", admin(h.Products.CreateCategory))

	router.GET("/api/admin/orders", admin(h.Orders.ListOrders))
	router.GET("/api/admin/notify/stats", admin(h.Notify.StatsHandler))
}
