package routes

import (
	"storefront/address"
	"storefront/auth"
	"storefront/cart"
	"storefront/live"
	"storefront/notify"
	"storefront/orders"
	"storefront/pay"
	"storefront/products"
	"storefront/ratelim"
	"storefront/receipt"

	"github.com/julienschmidt/httprouter"
)

// Handlers bundles every HTTP surface the server exposes.
type Handlers struct {
	Products *products.Handler
	Orders   *orders.Handler
	Pay      *pay.Handler
	Address  *address.Handler
	Cart     *cart.Handler
	Receipt  *receipt.Handler
	Live     *live.Handler
	Auth     *auth.Handler
	Notify   *notify.Queue

	Idempotency pay.IdempotencyStore
	UploadDir   string
}

func RoutesWrapper(router *httprouter.Router, h Handlers, rateLimiter *ratelim.RateLimiter) {
	AddStaticRoutes(router, h.UploadDir)
	AddProductRoutes(router, h)
	AddOrderRoutes(router, h, rateLimiter)
	AddPayRoutes(router, h, rateLimiter)
	AddAddressRoutes(router, h, rateLimiter)
	AddCartRoutes(router, h)
	AddAuthRoutes(router, h, rateLimiter)
	AddAdminRoutes(router, h)
}
