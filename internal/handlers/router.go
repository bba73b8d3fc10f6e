package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"storefront/internal/events"
	"storefront/internal/middleware"
	"storefront/internal/shop"
	"storefront/internal/store"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

type Deps struct {
	Store       store.Store
	Services    *shop.Services
	Hub         *events.Hub
	JWTSecret   string
	CORSOrigins []string
	ServiceName string
	Logger      *zap.Logger
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// NewRouter builds the gin engine with every route of the storefront API.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	serviceName := d.ServiceName
	if serviceName == "" {
		serviceName = "storefront"
	}
	hub := d.Hub
	if hub == nil {
		hub = events.NewHub(logger)
	}
	svc := d.Services

	r := gin.New()
	r.Use(
		gin.Recovery(),
		otelgin.Middleware(serviceName),
		middleware.LoggerMiddleware(logger),
		middleware.MetricsMiddleware(),
		corsMiddleware(d.CORSOrigins),
	)

	r.GET("/health", Health(d.Store))
	r.GET("/metrics", middleware.PrometheusHandler())

	userAuth := middleware.UserAuth(d.JWTSecret)
	adminAuth := middleware.AdminAuth(d.JWTSecret)
	canOrders := middleware.RequirePermission(middleware.PermissionOrders)
	canProducts := middleware.RequirePermission(middleware.PermissionProducts)

	products := r.Group("/products")
	{
		products.GET("", GetProducts(svc.Catalog))
		products.GET("/categories/list", GetProductCategories(svc.Catalog))
		products.GET("/brands/list", GetProductBrands(svc.Catalog))
		products.GET("/:identifier", GetProduct(svc.Catalog))
		products.POST("", adminAuth, canProducts, CreateProduct(svc.Catalog))
		products.PUT("/:id", adminAuth, canProducts, UpdateProduct(svc.Catalog))
		products.DELETE("/:id", adminAuth, canProducts, DeleteProduct(svc.Catalog))
	}

	categories := r.Group("/categories")
	{
		categories.GET("", GetCategories(svc.Categories))
		categories.GET("/:slug", GetCategory(svc.Categories))
		categories.POST("", adminAuth, canProducts, CreateCategory(svc.Categories))
		categories.PUT("/:id", adminAuth, canProducts, UpdateCategory(svc.Categories))
		categories.DELETE("/:id", adminAuth, canProducts, DeleteCategory(svc.Categories))
	}

	cart := r.Group("/cart", userAuth)
	{
		cart.GET("", GetCart(svc.Carts))
		cart.POST("/add", AddToCart(svc.Carts))
		cart.PUT("/update", UpdateCartItem(svc.Carts))
		cart.DELETE("/remove/:productId", RemoveFromCart(svc.Carts))
		cart.DELETE("/clear", ClearCart(svc.Carts))
	}

	orders := r.Group("/orders")
	{
		admin := orders.Group("/admin", adminAuth, canOrders)
		admin.GET("/all", GetAllOrders(svc.Orders))
		admin.GET("/export", ExportOrders(svc.Orders))
		admin.GET("/feed", OrderFeed(hub))
		admin.PUT("/:id/status", UpdateOrderStatus(svc.Orders))
		admin.PUT("/:id/payment-session", AttachPaymentSession(svc.Orders))

		orders.GET("", userAuth, GetMyOrders(svc.Orders))
		orders.POST("/create", userAuth, CreateOrder(svc.Orders))
		orders.GET("/:id", userAuth, GetMyOrder(svc.Orders))
		orders.PUT("/:id/cancel", userAuth, CancelOrder(svc.Orders))
	}

	reviews := r.Group("/reviews")
	{
		reviews.GET("/product/:productId", GetProductReviews(svc.Reviews))

		admin := reviews.Group("/admin", adminAuth, canProducts)
		admin.GET("/all", GetAllReviews(svc.Reviews))
		admin.PUT("/:id/approve", ApproveReview(svc.Reviews))

		reviews.POST("", userAuth, CreateReview(svc.Reviews))
		reviews.PUT("/:id", userAuth, UpdateReview(svc.Reviews))
		reviews.DELETE("/:id", userAuth, DeleteReview(svc.Reviews))
		reviews.POST("/:id/helpful", userAuth, MarkReviewHelpful(svc.Reviews))
	}

	wishlist := r.Group("/wishlist", userAuth)
	{
		wishlist.GET("", GetWishlist(svc.Wishlists))
		wishlist.POST("/add", AddToWishlist(svc.Wishlists))
		wishlist.DELETE("/remove/:productId", RemoveFromWishlist(svc.Wishlists))
		wishlist.DELETE("/clear", ClearWishlist(svc.Wishlists))
		wishlist.GET("/check/:productId", CheckWishlist(svc.Wishlists))
	}

	return r
}
