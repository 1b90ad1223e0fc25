package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bloomify-insights/handlers"
	"bloomify-insights/utils"

	"github.com/gin-gonic/gin"
)

func stubBundle(secret string) *handlers.HandlerBundle {
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	return &handlers.HandlerBundle{
		JWTSecret:                secret,
		MaxRequestsPerMin:        1000,
		ProviderDashboardHandler: ok,
		ExportDashboardHandler:   ok,
		StreamDashboardHandler:   ok,
		BusinessDashboardHandler: ok,
		MetricHandler:            ok,
		RecommendationsHandler:   ok,
		PricingHandler:           ok,
		FunnelHandler:            ok,
		HealthHandler:            ok,
	}
}

func TestRegisterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	secret := "routes-secret"
	r := gin.New()
	RegisterRoutes(r, stubBundle(secret))

	provider, _ := utils.GenerateToken([]byte(secret), "p1", "", time.Hour)
	admin, _ := utils.GenerateToken([]byte(secret), "ops", utils.RoleAdmin, time.Hour)

	tests := []struct {
		method string
		path   string
		token  string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/analytics/providers/p1/dashboard", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/analytics/providers/p1/dashboard", provider, http.StatusOK},
		{http.MethodGet, "/api/analytics/providers/p1/dashboard/export", provider, http.StatusOK},
		{http.MethodGet, "/api/analytics/providers/p1/stream", provider, http.StatusOK},
		{http.MethodGet, "/api/analytics/providers/p2/dashboard", provider, http.StatusForbidden},
		{http.MethodGet, "/api/analytics/business/dashboard", provider, http.StatusForbidden},
		{http.MethodGet, "/api/analytics/business/dashboard", admin, http.StatusOK},
		{http.MethodGet, "/api/analytics/metrics/earnings", admin, http.StatusOK},
		{http.MethodPost, "/api/analytics/recommendations", "", http.StatusOK},
		{http.MethodPost, "/api/analytics/pricing", "", http.StatusOK},
		{http.MethodPost, "/api/analytics/funnel", "", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		if tt.token != "" {
			req.Header.Set("Authorization", "Bearer "+tt.token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, w.Code, tt.want)
		}
	}
}
