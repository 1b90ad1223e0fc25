package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bloomify-insights/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const testSecret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, subject, role string) map[string]string {
	t.Helper()
	tok, err := utils.GenerateToken([]byte(testSecret), subject, role, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + tok}
}

func TestJWTAuthProviderMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/providers/:id", JWTAuthProviderMiddleware(testSecret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("providerID"))
	})

	tests := []struct {
		name    string
		target  string
		headers map[string]string
		want    int
	}{
		{"own dashboard", "/providers/p1", bearer(t, "p1", ""), http.StatusOK},
		{"someone else's dashboard", "/providers/p2", bearer(t, "p1", ""), http.StatusForbidden},
		{"admin reads any", "/providers/p2", bearer(t, "ops", utils.RoleAdmin), http.StatusOK},
		{"missing header", "/providers/p1", nil, http.StatusUnauthorized},
		{"bad token", "/providers/p1", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := serve(r, tt.target, tt.headers); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestJWTAuthAdminMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/business", JWTAuthAdminMiddleware(testSecret), func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := serve(r, "/business", bearer(t, "p1", "")); w.Code != http.StatusForbidden {
		t.Errorf("provider token status = %d, want 403", w.Code)
	}
	if w := serve(r, "/business", bearer(t, "ops", utils.RoleAdmin)); w.Code != http.StatusOK {
		t.Errorf("admin token status = %d, want 200", w.Code)
	}
}

func TestAuthDisabledWithoutSecret(t *testing.T) {
	r := gin.New()
	r.GET("/providers/:id", JWTAuthProviderMiddleware(""), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/business", JWTAuthAdminMiddleware(""), func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, target := range []string{"/providers/p1", "/business"} {
		if w := serve(r, target, nil); w.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", target, w.Code)
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimitMiddleware(2), func(c *gin.Context) { c.Status(http.StatusOK) })

	client := map[string]string{"X-Forwarded-For": "203.0.113.5"}
	for i := 0; i < 2; i++ {
		if w := serve(r, "/", client); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, w.Code)
		}
	}
	if w := serve(r, "/", client); w.Code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", w.Code)
	}
	if w := serve(r, "/", map[string]string{"X-Forwarded-For": "203.0.113.9"}); w.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", w.Code)
	}
}

func TestRateLimiterStoreEvictsIdleClients(t *testing.T) {
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newRateLimiterStore(1)
	store.now = func() time.Time { return clock }

	idle := store.getLimiter("198.51.100.1")
	if !idle.Allow() {
		t.Fatal("fresh limiter should allow")
	}
	clock = clock.Add(5 * time.Minute)
	store.getLimiter("198.51.100.2")

	clock = clock.Add(limiterIdleTTL)
	store.getLimiter("198.51.100.2")
	if _, ok := store.limiters["198.51.100.1"]; ok {
		t.Error("idle client still tracked after the TTL")
	}
	if _, ok := store.limiters["198.51.100.2"]; !ok {
		t.Error("active client was evicted")
	}
	if got := store.getLimiter("198.51.100.1"); got == idle {
		t.Error("evicted client reused its old limiter")
	}
	if len(store.limiters) != 2 {
		t.Errorf("tracked clients = %d, want 2", len(store.limiters))
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, "198.51.100.1"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.2 "}, "198.51.100.2"},
		{"remote addr", nil, "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			r := gin.New()
			r.GET("/", func(c *gin.Context) { got = ClientIP(c) })
			serve(r, "/", tt.headers)
			if got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	var logger interface{}
	r.GET("/", func(c *gin.Context) {
		logger, _ = c.Get("logger")
		c.String(http.StatusOK, c.GetString("requestID"))
	})

	w := serve(r, "/", map[string]string{RequestIDHeader: "req-123"})
	if w.Header().Get(RequestIDHeader) != "req-123" || w.Body.String() != "req-123" {
		t.Errorf("request id not propagated: header %q body %q", w.Header().Get(RequestIDHeader), w.Body.String())
	}
	if _, ok := logger.(*zap.Logger); !ok {
		t.Errorf("logger key holds %T", logger)
	}

	w = serve(r, "/", nil)
	if len(w.Header().Get(RequestIDHeader)) != 36 {
		t.Errorf("generated request id = %q", w.Header().Get(RequestIDHeader))
	}
}
