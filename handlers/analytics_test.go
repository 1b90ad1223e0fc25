package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bloomify-insights/models"
	"bloomify-insights/services/analytics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var testWindow = models.Window{
	Start: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
}

type fakeService struct {
	err        error
	lastReq    analytics.DashboardRequest
	lastMetric analytics.MetricRequest
	lastQuery  analytics.RecommendationQuery
	pricedFor  string
}

func (f *fakeService) ProviderDashboard(_ context.Context, req analytics.DashboardRequest) (*models.ProviderDashboard, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.ProviderDashboard{ProviderID: req.ProviderID, Window: req.Window, Generation: 7}, nil
}

func (f *fakeService) BusinessDashboard(_ context.Context, req analytics.DashboardRequest) (*models.BusinessDashboard, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.BusinessDashboard{Window: req.Window}, nil
}

func (f *fakeService) Recommendations(_ context.Context, q analytics.RecommendationQuery) ([]models.ScoreSuggestion, error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, f.err
	}
	return []models.ScoreSuggestion{{SubjectID: q.ServiceIDs[0], SuggestedValue: 80}}, nil
}

func (f *fakeService) PricingSuggestions(_ context.Context, inputs []models.PricingInput) ([]models.ScoreSuggestion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.ScoreSuggestion{{SubjectID: inputs[0].ServiceID}}, nil
}

func (f *fakeService) ProviderPricing(_ context.Context, providerID string) ([]models.ScoreSuggestion, error) {
	f.pricedFor = providerID
	return nil, f.err
}

func (f *fakeService) Funnel(_ context.Context, steps []models.FunnelStep) ([]models.FunnelStepResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.FunnelStepResult, len(steps))
	for i, s := range steps {
		out[i] = models.FunnelStepResult{Name: s.Name, Count: s.Count}
	}
	return out, nil
}

func (f *fakeService) Metric(_ context.Context, req analytics.MetricRequest) (*models.DerivedMetric, error) {
	f.lastMetric = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.DerivedMetric{Name: req.Op + ":" + req.Field, Value: 42}, nil
}

func (f *fakeService) DefaultWindow() models.Window { return testWindow }

func newTestRouter(svc analytics.AnalyticsService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAnalyticsHandler(svc, time.UTC)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("logger", zap.NewNop())
		c.Next()
	})
	r.GET("/providers/:id/dashboard", h.ProviderDashboardHandler)
	r.GET("/providers/:id/dashboard/export", h.ExportDashboardHandler)
	r.GET("/business/dashboard", h.BusinessDashboardHandler)
	r.GET("/metrics/:table", h.MetricHandler)
	r.POST("/recommendations", h.RecommendationsHandler)
	r.POST("/pricing", h.PricingHandler)
	r.POST("/funnel", h.FunnelHandler)
	return r
}

func do(r http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestParseWindow(t *testing.T) {
	def := testWindow
	tests := []struct {
		name      string
		from, to  string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{"defaults", "", "", def.Start, def.End, false},
		{"dates", "2024-01-01", "2024-01-08", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), false},
		{"rfc3339", "2024-01-01T06:00:00Z", "2024-01-01T18:00:00Z", time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC), false},
		{"only to keeps default length", "", "2024-01-31", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC).Add(-def.Duration()), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), false},
		{"only from inside default", "2024-02-15", "", time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), def.End, false},
		{"only from after default end", "2024-05-01", "", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).Add(def.Duration()), false},
		{"inverted", "2024-01-08", "2024-01-01", time.Time{}, time.Time{}, true},
		{"empty range", "2024-01-08", "2024-01-08", time.Time{}, time.Time{}, true},
		{"garbage", "last week", "", time.Time{}, time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWindow(tt.from, tt.to, def, time.UTC)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWindow() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !got.Start.Equal(tt.wantStart) || !got.End.Equal(tt.wantEnd) {
				t.Errorf("ParseWindow() = [%v, %v), want [%v, %v)", got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestParseWindowUsesLocation(t *testing.T) {
	nairobi := time.FixedZone("EAT", 3*60*60)
	got, err := ParseWindow("2024-01-01", "2024-01-02", testWindow, nairobi)
	if err != nil {
		t.Fatalf("ParseWindow() error = %v", err)
	}
	if want := time.Date(2023, 12, 31, 21, 0, 0, 0, time.UTC); !got.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", got.Start.UTC(), want)
	}
}

func TestProviderDashboardHandler(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(svc)

	w := do(r, http.MethodGet, "/providers/p1/dashboard?from=2024-01-01&to=2024-01-31", "", map[string]string{viewIDHeader: "tab-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.lastReq.ProviderID != "p1" || svc.lastReq.ViewID != "tab-1" {
		t.Errorf("request = %+v", svc.lastReq)
	}
	var dash models.ProviderDashboard
	if err := json.Unmarshal(w.Body.Bytes(), &dash); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dash.Generation != 7 || dash.ProviderID != "p1" {
		t.Errorf("dashboard = %+v", dash)
	}

	w = do(r, http.MethodGet, "/providers/p1/dashboard?from=2024-02-01&to=2024-01-01", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("inverted window status = %d, want 400", w.Code)
	}
}

func TestViewIDFallsBackToClientIP(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(svc)
	do(r, http.MethodGet, "/providers/p1/dashboard", "", nil)
	if svc.lastReq.ViewID == "" {
		t.Error("expected a view id derived from the client address")
	}
}

func TestAnalyticsErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"contract violation", analytics.NewContractViolation("ProviderDashboard", "provider id is required"), http.StatusBadRequest},
		{"stale", analytics.ErrStaleGeneration, http.StatusConflict},
		{"all sources failed", analytics.FetchErrors{{Source: "earnings", Err: errors.New("down")}}, http.StatusBadGateway},
		{"single fetch", &analytics.DataFetchError{Source: "bookings", Err: errors.New("down")}, http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"canceled", context.Canceled, 499},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeService{err: tt.err})
			w := do(r, http.MethodGet, "/providers/p1/dashboard", "", nil)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestFetchErrorsListSections(t *testing.T) {
	svc := &fakeService{err: analytics.FetchErrors{
		{Source: "bookings", Err: errors.New("timeout")},
		{Source: "earnings", Err: errors.New("timeout")},
	}}
	w := do(newTestRouter(svc), http.MethodGet, "/business/dashboard", "", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Sections []models.SectionError `json:"sections"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Sections) != 2 || body.Sections[0].Section != "bookings" {
		t.Errorf("sections = %+v", body.Sections)
	}
}

func TestBusinessDashboardDays(t *testing.T) {
	tests := []struct {
		query    string
		want     int
		wantDays int
	}{
		{"", http.StatusOK, 0},
		{"?days=14", http.StatusOK, 14},
		{"?days=0", http.StatusBadRequest, 0},
		{"?days=400", http.StatusBadRequest, 0},
		{"?days=week", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		svc := &fakeService{}
		w := do(newTestRouter(svc), http.MethodGet, "/business/dashboard"+tt.query, "", nil)
		if w.Code != tt.want {
			t.Errorf("%q: status = %d, want %d", tt.query, w.Code, tt.want)
			continue
		}
		if tt.want == http.StatusOK && svc.lastReq.FunnelDays != tt.wantDays {
			t.Errorf("%q: FunnelDays = %d, want %d", tt.query, svc.lastReq.FunnelDays, tt.wantDays)
		}
	}
}

func TestRecommendationsHandler(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(svc)

	w := do(r, http.MethodPost, "/recommendations", `{"userId":"u1","serviceIds":["s1","s2"],"distancesKm":{"s1":3.5}}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if q := svc.lastQuery; q.UserID != "u1" || len(q.ServiceIDs) != 2 || q.DistancesKm["s1"] != 3.5 {
		t.Errorf("query = %+v", q)
	}
	if !strings.Contains(w.Body.String(), `"recommendations"`) {
		t.Errorf("body = %s", w.Body.String())
	}

	w = do(r, http.MethodPost, "/recommendations", `{"userId":"u1","serviceIds":[]}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty ids status = %d, want 400", w.Code)
	}
}

func TestPricingHandler(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(svc)

	w := do(r, http.MethodPost, "/pricing", `{"services":[{"serviceId":"s1","currentPrice":50}]}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, "/pricing", `{"providerId":"p9"}`, nil)
	if w.Code != http.StatusOK || svc.pricedFor != "p9" {
		t.Errorf("provider pricing status = %d, pricedFor = %q", w.Code, svc.pricedFor)
	}

	w = do(r, http.MethodPost, "/pricing", `{}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty request status = %d, want 400", w.Code)
	}

	w = do(r, http.MethodPost, "/pricing", `{"services":[{"currentPrice":50}]}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing service id status = %d, want 400", w.Code)
	}
}

func TestFunnelHandler(t *testing.T) {
	r := newTestRouter(&fakeService{})
	w := do(r, http.MethodPost, "/funnel", `{"steps":[{"name":"search","count":100},{"name":"book","count":10}]}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body struct {
		Steps []models.FunnelStepResult `json:"steps"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Steps) != 2 || body.Steps[1].Name != "book" {
		t.Errorf("steps = %+v", body.Steps)
	}

	w = do(r, http.MethodPost, "/funnel", `{"steps":[]}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty steps status = %d, want 400", w.Code)
	}
}

func TestMetricHandler(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(svc)
	w := do(r, http.MethodGet, "/metrics/earnings?field=netAmount&providerId=p1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	got := svc.lastMetric
	if got.Table != "earnings" || got.Op != "sum" || got.Field != "netAmount" || got.ProviderID != "p1" {
		t.Errorf("metric request = %+v", got)
	}
}

func TestExportDashboardHandler(t *testing.T) {
	r := newTestRouter(&fakeService{})
	w := do(r, http.MethodGet, "/providers/p1/dashboard/export", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "dashboard-p1-20240302.xlsx") {
		t.Errorf("Content-Disposition = %q", w.Header().Get("Content-Disposition"))
	}
	// XLSX files are zip archives.
	if !strings.HasPrefix(w.Body.String(), "PK") {
		t.Error("body is not an xlsx archive")
	}
}
