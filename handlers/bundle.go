package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	JWTSecret         string
	MaxRequestsPerMin int

	// Provider dashboard endpoints
	ProviderDashboardHandler gin.HandlerFunc
	ExportDashboardHandler   gin.HandlerFunc
	StreamDashboardHandler   gin.HandlerFunc

	// Marketplace endpoints
	BusinessDashboardHandler gin.HandlerFunc
	MetricHandler            gin.HandlerFunc

	// Suggestion endpoints
	RecommendationsHandler gin.HandlerFunc
	PricingHandler         gin.HandlerFunc
	FunnelHandler          gin.HandlerFunc

	HealthHandler gin.HandlerFunc
}

// NewHandlerBundle wires the analytics and stream handlers into a bundle.
func NewHandlerBundle(ah *AnalyticsHandler, sh *StreamHandler, jwtSecret string, maxRequestsPerMin int) *HandlerBundle {
	return &HandlerBundle{
		JWTSecret:                jwtSecret,
		MaxRequestsPerMin:        maxRequestsPerMin,
		ProviderDashboardHandler: ah.ProviderDashboardHandler,
		ExportDashboardHandler:   ah.ExportDashboardHandler,
		StreamDashboardHandler:   sh.StreamDashboardHandler,
		BusinessDashboardHandler: ah.BusinessDashboardHandler,
		MetricHandler:            ah.MetricHandler,
		RecommendationsHandler:   ah.RecommendationsHandler,
		PricingHandler:           ah.PricingHandler,
		FunnelHandler:            ah.FunnelHandler,
		HealthHandler:            HealthHandler,
	}
}
