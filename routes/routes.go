package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	commonmw "marketplace-service/common/middleware"
	"marketplace-service/controllers"
	"marketplace-service/middleware"
	"marketplace-service/models"
)

// Handlers groups every controller mounted by RegisterRoutes.
type Handlers struct {
	Auth         *controllers.AuthController
	Profile      *controllers.ProfileController
	Products     *controllers.ProductController
	Stories      *controllers.StoryController
	Coupons      *controllers.CouponController
	Applications *controllers.ApplicationController
	Checkout     *controllers.CheckoutController
	Webhook      *controllers.WebhookController
	Orders       *controllers.OrderController
	GroupOrders  *controllers.GroupOrderController
	Cart         *controllers.CartController
	Reports      *controllers.ReportController
}

// Options tunes route-level middleware.
type Options struct {
	AuthRatePerMinute int
	AuthRateBurst     int
}

func RegisterRoutes(r *gin.Engine, h Handlers, sessions middleware.SessionResolver, opts Options) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Stripe signs the raw body; no session, CSRF or JSON binding here.
	r.POST("/webhook", h.Webhook.StripeWebhook)

	authn := middleware.AuthMiddleware(sessions)
	csrf := middleware.CSRFMiddleware()

	auth := r.Group("/auth")
	auth.Use(commonmw.RateLimitMiddleware(opts.AuthRatePerMinute, opts.AuthRateBurst))
	auth.POST("/register", h.Auth.Register)
	auth.POST("/verify-email", h.Auth.VerifyEmail)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/csrf-token", h.Auth.CSRFToken)
	auth.GET("/verify-session", authn, h.Auth.VerifySession)

	// Public catalog.
	r.GET("/products", h.Products.ListProducts)
	r.GET("/product/:id", h.Products.GetProduct)
	r.GET("/stories/:providerId", h.Stories.GetPublicStory)
	r.GET("/group-orders", h.GroupOrders.ListOpen)
	r.GET("/group-orders/:id", h.GroupOrders.Get)

	// Any signed-in user.
	user := r.Group("/")
	user.Use(authn, csrf)
	user.GET("/profile", h.Profile.GetProfile)
	user.PUT("/profile", h.Profile.UpdateProfile)
	user.GET("/orders/:id", h.Orders.GetOrder)

	consumer := r.Group("/")
	consumer.Use(authn, csrf, middleware.RequireRole(models.RoleConsumer, models.RoleProvider, models.RoleAdmin))
	consumer.POST("/create-checkout-session", h.Checkout.CreateCheckoutSession)
	consumer.POST("/consumer/join-group-order", h.Checkout.JoinGroupOrder)
	consumer.GET("/consumer/orders", h.Orders.ConsumerOrders)
	consumer.GET("/cart", h.Cart.GetCart)
	consumer.POST("/cart/items", h.Cart.AddItem)
	consumer.DELETE("/cart/items/:productId", h.Cart.RemoveItem)
	consumer.DELETE("/cart", h.Cart.ClearCart)
	consumer.POST("/applications", h.Applications.Submit)
	consumer.GET("/applications/me", h.Applications.GetMine)

	provider := r.Group("/")
	provider.Use(authn, csrf, middleware.RequireRole(models.RoleProvider, models.RoleAdmin))
	provider.POST("/product", h.Products.CreateProduct)
	provider.PUT("/product/:id", h.Products.UpdateProduct)
	provider.DELETE("/product/:id", h.Products.DeleteProduct)
	provider.POST("/product/:id/images", h.Products.UploadImage)
	provider.POST("/product/:id/images/presign", h.Products.PresignImage)
	provider.POST("/product/:id/images/attach", h.Products.AttachImage)
	provider.DELETE("/product/:id/images/:imageId", h.Products.DeleteImage)
	provider.GET("/provider/products", h.Products.ListMyProducts)
	provider.GET("/provider/story", h.Stories.GetMyStory)
	provider.PUT("/provider/story", h.Stories.UpsertStory)
	provider.DELETE("/provider/story", h.Stories.DeleteStory)
	provider.GET("/provider/revenue", h.Reports.ProviderRevenue)
	provider.GET("/provider/orders", h.Orders.ProviderOrders)
	provider.PATCH("/provider/orders/:id/fulfill", h.Orders.FulfillOrder)
	provider.POST("/provider/group-orders", h.GroupOrders.Create)
	provider.GET("/provider/group-orders", h.GroupOrders.ListMine)
	provider.PATCH("/provider/group-orders/:id/close", h.GroupOrders.Close)
	provider.GET("/provider/group-orders/:id/participants", h.GroupOrders.Participants)

	admin := r.Group("/admin")
	admin.Use(authn, csrf, middleware.RequireRole(models.RoleAdmin))
	admin.GET("/applications", h.Applications.List)
	admin.GET("/applications/:id", h.Applications.Get)
	admin.PATCH("/applications/:id/review", h.Applications.Review)
	admin.GET("/providers", h.Reports.ListProviders)
	admin.GET("/profits/:providerId", h.Reports.Profits)
	admin.POST("/generate-pdf", h.Reports.GeneratePDF)
	admin.POST("/coupons", h.Coupons.CreateCoupon)
	admin.GET("/coupons", h.Coupons.ListCoupons)
	admin.GET("/coupons/:id", h.Coupons.GetCoupon)
	admin.PATCH("/coupons/:id", h.Coupons.UpdateCoupon)
	admin.DELETE("/coupons/:id", h.Coupons.DeactivateCoupon)
}
