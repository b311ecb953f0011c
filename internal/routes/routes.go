package routes

import (
	"github.com/gin-gonic/gin"

	"velours_back_end/internal/handlers"
	"velours_back_end/internal/handlers/payement"
	"velours_back_end/internal/handlers/product"
	"velours_back_end/internal/handlers/user"
	"velours_back_end/internal/middleware"
)

func RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")

	// --- Auth ---
	api.POST("/auth/register", user.Register)
	api.POST("/auth/login", middleware.LoginRateLimit(), user.Login)
	api.GET("/auth/:provider", handlers.BeginAuth)
	api.GET("/auth/:provider/callback", handlers.CallbackAuth)
	api.GET("/auth/me", middleware.AuthRequired(), user.Me)

	// --- Boutique (public) ---
	api.GET("/products", product.ListProducts)
	api.GET("/products/search", product.SearchProducts)
	api.GET("/products/:id", product.GetProduct)
	api.GET("/categories", product.ListCategories)
	api.GET("/settings", handlers.GetSettings)

	// --- Panier (authentifié) ---
	cart := api.Group("/cart", middleware.AuthRequired())
	{
		cart.GET("", user.GetCart)
		cart.POST("/add", user.AddToCart)
		cart.PUT("/update", user.UpdateCartItem)
		cart.DELETE("/clear", user.ClearCart)
		cart.GET("/ws", user.CartWebSocket)
	}

	// --- Paiement & commandes ---
	api.POST("/payment/intent", middleware.AuthRequired(), middleware.CheckoutRateLimit(), payement.CreatePaymentIntent)
	api.POST("/checkout", middleware.AuthRequired(), middleware.CheckoutRateLimit(), payement.Checkout)
	api.POST("/orders/place", middleware.AuthRequired(), payement.PlaceOrder)
	api.POST("/webhook/stripe", payement.StripeWebhook)
	api.GET("/orders", middleware.AuthRequired(), user.GetMyOrders)
	api.GET("/orders/:id", middleware.AuthRequired(), user.GetOrderByID)

	// --- Administration ---
	admin := api.Group("/admin", middleware.AuthRequired(), middleware.RequireAdmin)
	{
		admin.POST("/products", product.CreateProduct)
		admin.PUT("/products/:id", product.UpdateProduct)
		admin.DELETE("/products/:id", product.DeleteProduct)
		admin.PUT("/products/:id/stock", product.UpdateStock)
		admin.GET("/products/:id/movements", product.GetStockMovements)
		admin.POST("/categories", product.CreateCategory)
		admin.DELETE("/categories/:id", product.DeleteCategory)
		admin.GET("/orders/:id", payement.GetOrderAdmin)
		admin.PUT("/orders/:id/status", payement.UpdateOrderStatus)
		admin.PUT("/settings", handlers.UpdateSettings)
	}
}
