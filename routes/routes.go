package routes

import (
	"time"

	"bloomify-insights/handlers"
	"bloomify-insights/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterProviderAnalyticsRoutes registers per-provider dashboard endpoints.
func RegisterProviderAnalyticsRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/analytics/providers/:id")
	{
		api.Use(middleware.JWTAuthProviderMiddleware(hb.JWTSecret))
		api.GET("/dashboard", hb.ProviderDashboardHandler)
		api.GET("/dashboard/export", hb.ExportDashboardHandler)
		api.GET("/stream", hb.StreamDashboardHandler)
	}
}

// RegisterBusinessAnalyticsRoutes registers marketplace-wide endpoints.
func RegisterBusinessAnalyticsRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/analytics")
	{
		admin := api.Group("")
		admin.Use(middleware.JWTAuthAdminMiddleware(hb.JWTSecret))
		admin.GET("/business/dashboard", hb.BusinessDashboardHandler)
		admin.GET("/metrics/:table", hb.MetricHandler)

		api.POST("/recommendations", hb.RecommendationsHandler)
		api.POST("/pricing", hb.PricingHandler)
		api.POST("/funnel", hb.FunnelHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-View-ID", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware(hb.MaxRequestsPerMin))

	RegisterHealthRoute(r, hb)
	RegisterProviderAnalyticsRoutes(r, hb)
	RegisterBusinessAnalyticsRoutes(r, hb)
}
