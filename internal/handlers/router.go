package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"example.com/shopcart/internal/service"
)

type Deps struct {
	Auth     service.AuthService
	Catalog  service.CatalogService
	Cart     service.CartService
	Checkout service.CheckoutService
	Orders   service.OrderService
	// SecureCookie marks the session cookie Secure; on when served over TLS.
	SecureCookie bool
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(), gin.Recovery())
	r.MaxMultipartMemory = maxImageBytes + 1<<20

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	auth := NewAuthHTTP(d.Auth, d.SecureCookie)
	catalog := &CatalogHTTP{S: d.Catalog}
	cart := &CartHTTP{S: d.Cart}
	checkout := &CheckoutHTTP{S: d.Checkout}
	orders := &OrdersHTTP{S: d.Orders}
	authMW := AuthRequired(d.Auth)

	api := r.Group("/api", noStore)
	api.POST("/register", auth.Register)
	api.POST("/login", auth.Login)
	api.POST("/logout", auth.Logout)
	api.GET("/me", authMW, auth.Me)

	api.GET("/products", catalog.List)
	api.POST("/add-product", authMW, catalog.Add)

	api.POST("/cart/add", authMW, cart.Add)
	api.GET("/cart/:userId", authMW, cart.List)
	api.DELETE("/cart/:cartId", authMW, cart.Remove)

	api.POST("/checkout", authMW, checkout.Checkout)
	api.GET("/orders", authMW, orders.List)
	api.GET("/orders.csv", authMW, orders.Export)
	api.GET("/orders/:orderId", authMW, orders.Get)

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			message(c, http.StatusNotFound, "Not found")
			return
		}
		c.Status(http.StatusNotFound)
	})
	return r
}
