// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tradebridge/marketplace-backend/internal/config"
	"github.com/tradebridge/marketplace-backend/internal/handlers"
	"github.com/tradebridge/marketplace-backend/internal/metrics"
	"github.com/tradebridge/marketplace-backend/internal/middleware"
	"github.com/tradebridge/marketplace-backend/internal/services"
	"github.com/tradebridge/marketplace-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize collaborators
	settlementMetrics := metrics.NewSettlementMetrics()
	notificationService := services.NewNotificationService(db)
	storageService, _ := services.NewStorageService(cfg)
	cacheService := services.NewCacheService()
	trustProvider := services.NewCompanyTrustProvider(db)

	var paymentProvider services.PaymentProvider
	if cfg.Payment.Provider == "STRIPE" {
		paymentProvider = services.NewStripePaymentProvider(cfg.Payment.StripeSecretKey)
	} else {
		paymentProvider = services.NewMockPaymentProvider()
	}
	carrierClient := services.NewMockCarrierClient()

	// Initialize services
	authorizationService := services.NewAuthorizationService()
	cartService := services.NewCartService(db)
	checkoutService := services.NewCheckoutService(db, trustProvider, paymentProvider,
		notificationService, settlementMetrics, cfg.Payment.DefaultCurrency)
	escrowService := services.NewEscrowService(db, paymentProvider, notificationService, settlementMetrics)
	orderService := services.NewOrderService(db, escrowService)
	shipmentService := services.NewShipmentService(db, carrierClient, storageService,
		cacheService, notificationService, cfg)
	adminService := services.NewAdminService(db)

	// Initialize handlers
	cartHandler := handlers.NewCartHandler(cartService, authorizationService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, authorizationService)
	orderHandler := handlers.NewOrderHandler(orderService, authorizationService)
	shipmentHandler := handlers.NewShipmentHandler(shipmentService, orderService, authorizationService)
	paymentHandler := handlers.NewPaymentHandler(escrowService, orderService, authorizationService)
	adminHandler := handlers.NewAdminHandler(adminService, authorizationService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// Prometheus scrape endpoint
	r.GET("/metrics", metrics.Handler())

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Cart routes (buyer side)
		cart := v1.Group("/cart")
		cart.Use(middleware.AuthRequired())
		{
			cart.GET("", cartHandler.GetCart)
			cart.DELETE("", cartHandler.Clear)
			cart.POST("/lines", cartHandler.AddLine)
			cart.PUT("/lines/:id", cartHandler.UpdateLine)
			cart.DELETE("/lines/:id", cartHandler.RemoveLine)
		}

		// Checkout routes
		checkout := v1.Group("/checkout")
		checkout.Use(middleware.AuthRequired())
		{
			checkout.POST("/preview", checkoutHandler.Preview)
			checkout.POST("/commit", middleware.CheckoutRateLimit(), checkoutHandler.Commit)
		}

		// Order routes
		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.GET("/purchases", orderHandler.ListBuyerOrders)
			orders.GET("/sales", orderHandler.ListSellerOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.GET("/:id/shipments", shipmentHandler.ListForOrder)
			orders.GET("/:id/ledger", paymentHandler.GetLedger)
			orders.POST("/:id/payment-intent", paymentHandler.CreateIntent)
			orders.POST("/:id/confirm-delivery", orderHandler.ConfirmDelivery)
		}

		// Shipment routes (seller side)
		shipments := v1.Group("/shipments")
		shipments.Use(middleware.AuthRequired())
		{
			shipments.POST("", shipmentHandler.Create)
			shipments.POST("/:id/status", shipmentHandler.AdvanceStatus)
			shipments.POST("/:id/label", middleware.LabelRateLimit(), shipmentHandler.GenerateLabel)
		}

		// Payment provider callback (gateway-authenticated)
		v1.POST("/payments/callback", paymentHandler.Callback)

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired())
		admin.Use(middleware.AdminRequired())
		{
			admin.GET("/dashboard", adminHandler.GetDashboard)
			admin.GET("/audit-logs", adminHandler.ListAuditLogs)
			admin.GET("/notifications", adminHandler.ListNotifications)
			admin.PUT("/notifications/:id/read", adminHandler.MarkNotificationRead)

			admin.GET("/commission/plans", adminHandler.ListPlans)
			admin.POST("/commission/plans", adminHandler.CreatePlan)
			admin.GET("/commission/plans/:id", adminHandler.GetPlan)
			admin.PUT("/commission/plans/:id", adminHandler.UpdatePlan)
			admin.POST("/commission/plans/:id/rules", adminHandler.AddRule)
			admin.PUT("/commission/rules/:id", adminHandler.UpdateRule)
			admin.DELETE("/commission/rules/:id", adminHandler.DeleteRule)

			admin.POST("/orders/:id/force-release", paymentHandler.ForceRelease)
		}
	}

	return r
}
