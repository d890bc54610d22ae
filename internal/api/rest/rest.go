package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/tunestake/royalty-ledger/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Release endpoints (public read access)
		v1.GET("/releases", handler.ListReleases)
		v1.GET("/releases/:id", handler.GetRelease)
		v1.GET("/releases/:id/quote", handler.QuotePurchase)
		v1.GET("/releases/:id/holdings", handler.ListHoldings)
		v1.GET("/releases/:id/distributions", handler.ListDistributions)

		// Release registration and purchases (requires authentication)
		v1.POST("/releases", middleware.Auth(authCfg), handler.CreateRelease)
		v1.POST("/releases/:id/purchases", middleware.Auth(authCfg), handler.PurchaseShares)

		// Purchase endpoints (public read access)
		v1.GET("/purchases/:id", handler.GetPurchase)

		// Purchase settlement transitions (requires API key authentication;
		// called by the external settlement submitter)
		v1.POST("/purchases/:id/settle", middleware.APIKeyAuth(authCfg), handler.SettlePurchase)
		v1.POST("/purchases/:id/revert", middleware.APIKeyAuth(authCfg), handler.RevertPurchase)

		// Distribution record endpoints (public read access)
		v1.GET("/distributions/:id", handler.GetDistribution)

		// Synchronous stream ingestion (requires API key authentication;
		// the message broker is the primary ingest path)
		v1.POST("/streams", middleware.APIKeyAuth(authCfg), handler.IngestStream)

		// Rate configuration endpoints
		v1.GET("/rates", handler.GetRates)
		v1.PUT("/rates", middleware.Auth(authCfg), handler.UpdateRates)
	}
}
