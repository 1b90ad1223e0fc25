package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bloomify-insights/middleware"
	"bloomify-insights/models"
	"bloomify-insights/services/analytics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const viewIDHeader = "X-View-ID"

// AnalyticsHandler serves dashboards and heuristic suggestions.
type AnalyticsHandler struct {
	Service  analytics.AnalyticsService
	Location *time.Location
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc analytics.AnalyticsService, loc *time.Location) *AnalyticsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsHandler{Service: svc, Location: loc}
}

// RecommendationRequest selects the services to rank for a user.
// DistancesKm is keyed by service id, as measured by the client.
type RecommendationRequest struct {
	UserID      string             `json:"userId"`
	ServiceIDs  []string           `json:"serviceIds" binding:"required,min=1"`
	DistancesKm map[string]float64 `json:"distancesKm"`
}

// PricingRequest carries explicit inputs, or a provider whose services
// should be priced from stored bookings.
type PricingRequest struct {
	ProviderID string                `json:"providerId"`
	Services   []models.PricingInput `json:"services" binding:"dive"`
}

// FunnelRequest is an ordered list of funnel steps.
type FunnelRequest struct {
	Steps []models.FunnelStep `json:"steps" binding:"required,min=1,dive"`
}

// ProviderDashboardHandler returns the provider dashboard for ?from&to.
func (h *AnalyticsHandler) ProviderDashboardHandler(c *gin.Context) {
	logger := getLogger(c)
	dash, ok := h.providerDashboard(c, logger)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dash)
}

// ExportDashboardHandler returns the provider dashboard as an XLSX workbook.
func (h *AnalyticsHandler) ExportDashboardHandler(c *gin.Context) {
	logger := getLogger(c)
	dash, ok := h.providerDashboard(c, logger)
	if !ok {
		return
	}
	data, err := analytics.ExportProviderDashboard(dash)
	if err != nil {
		logger.Error("Failed to export dashboard", zap.String("providerID", dash.ProviderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export dashboard"})
		return
	}
	filename := fmt.Sprintf("dashboard-%s-%s.xlsx", dash.ProviderID, dash.Window.End.Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *AnalyticsHandler) providerDashboard(c *gin.Context, logger *zap.Logger) (*models.ProviderDashboard, bool) {
	window, err := ParseWindow(c.Query("from"), c.Query("to"), h.Service.DefaultWindow(), h.Location)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	dash, err := h.Service.ProviderDashboard(c.Request.Context(), analytics.DashboardRequest{
		ProviderID: c.Param("id"),
		ViewID:     viewID(c),
		Window:     window,
	})
	if err != nil {
		writeAnalyticsError(c, logger, "provider dashboard", err)
		return nil, false
	}
	return dash, true
}

// BusinessDashboardHandler returns the marketplace dashboard.
func (h *AnalyticsHandler) BusinessDashboardHandler(c *gin.Context) {
	logger := getLogger(c)
	window, err := ParseWindow(c.Query("from"), c.Query("to"), h.Service.DefaultWindow(), h.Location)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	days := 0
	if raw := c.Query("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days <= 0 || days > 366 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 366"})
			return
		}
	}
	dash, err := h.Service.BusinessDashboard(c.Request.Context(), analytics.DashboardRequest{
		ViewID:     viewID(c),
		Window:     window,
		FunnelDays: days,
	})
	if err != nil {
		writeAnalyticsError(c, logger, "business dashboard", err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// RecommendationsHandler ranks the selected services for a user.
func (h *AnalyticsHandler) RecommendationsHandler(c *gin.Context) {
	logger := getLogger(c)
	var req RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Debug("Invalid recommendation request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	suggestions, err := h.Service.Recommendations(c.Request.Context(), analytics.RecommendationQuery{
		UserID:      req.UserID,
		ServiceIDs:  req.ServiceIDs,
		DistancesKm: req.DistancesKm,
	})
	if err != nil {
		writeAnalyticsError(c, logger, "recommendations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": suggestions})
}

// PricingHandler returns price suggestions.
func (h *AnalyticsHandler) PricingHandler(c *gin.Context) {
	logger := getLogger(c)
	var req PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Debug("Invalid pricing request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	var (
		suggestions []models.ScoreSuggestion
		err         error
	)
	switch {
	case len(req.Services) > 0:
		suggestions, err = h.Service.PricingSuggestions(c.Request.Context(), req.Services)
	case req.ProviderID != "":
		suggestions, err = h.Service.ProviderPricing(c.Request.Context(), req.ProviderID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Either services or providerId is required"})
		return
	}
	if err != nil {
		writeAnalyticsError(c, logger, "pricing", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// FunnelHandler computes conversion and drop-off for the given steps.
func (h *AnalyticsHandler) FunnelHandler(c *gin.Context) {
	logger := getLogger(c)
	var req FunnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	steps, err := h.Service.Funnel(c.Request.Context(), req.Steps)
	if err != nil {
		writeAnalyticsError(c, logger, "funnel", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"steps": steps})
}

// MetricHandler computes an ad-hoc aggregate over one table.
func (h *AnalyticsHandler) MetricHandler(c *gin.Context) {
	logger := getLogger(c)
	window, err := ParseWindow(c.Query("from"), c.Query("to"), h.Service.DefaultWindow(), h.Location)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	metric, err := h.Service.Metric(c.Request.Context(), analytics.MetricRequest{
		Table:      c.Param("table"),
		Op:         c.DefaultQuery("op", "sum"),
		Field:      c.Query("field"),
		TimeField:  c.Query("timeField"),
		ProviderID: c.Query("providerId"),
		Window:     window,
	})
	if err != nil {
		writeAnalyticsError(c, logger, "metric", err)
		return
	}
	c.JSON(http.StatusOK, metric)
}

// ParseWindow reads a [from, to) window from RFC3339 or YYYY-MM-DD values.
// Missing bounds come from def; a lone bound keeps def's length.
func ParseWindow(from, to string, def models.Window, loc *time.Location) (models.Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	w := def
	if to != "" {
		t, err := parseBound(to, loc)
		if err != nil {
			return models.Window{}, fmt.Errorf("invalid to: %w", err)
		}
		w.End = t
		if from == "" {
			w.Start = t.Add(-def.Duration())
		}
	}
	if from != "" {
		t, err := parseBound(from, loc)
		if err != nil {
			return models.Window{}, fmt.Errorf("invalid from: %w", err)
		}
		w.Start = t
		if to == "" && !t.Before(w.End) {
			w.End = t.Add(def.Duration())
		}
	}
	if !w.Start.Before(w.End) {
		return models.Window{}, errors.New("from must be before to")
	}
	return w, nil
}

func parseBound(v string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC3339 nor YYYY-MM-DD", v)
	}
	return t, nil
}

func viewID(c *gin.Context) string {
	if v := c.GetHeader(viewIDHeader); v != "" {
		return v
	}
	return middleware.ClientIP(c)
}

// writeAnalyticsError maps service errors onto HTTP responses.
func writeAnalyticsError(c *gin.Context, logger *zap.Logger, op string, err error) {
	var (
		violation *analytics.ContractViolation
		fetchErrs analytics.FetchErrors
		fetchErr  *analytics.DataFetchError
	)
	switch {
	case errors.As(err, &violation):
		c.JSON(http.StatusBadRequest, gin.H{"error": violation.Error()})
	case errors.Is(err, analytics.ErrStaleGeneration):
		c.JSON(http.StatusConflict, gin.H{"error": "Superseded by a newer request"})
	case errors.As(err, &fetchErrs):
		logger.Error("All dashboard sections failed", zap.String("op", op), zap.Error(err))
		sections := make([]models.SectionError, 0, len(fetchErrs))
		for _, e := range fetchErrs {
			sections = append(sections, models.SectionError{Section: e.Source, Message: e.Err.Error()})
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load analytics data", "sections": sections})
	case errors.As(err, &fetchErr):
		logger.Error("Analytics fetch failed", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load " + fetchErr.Source})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Analytics request timed out"})
	case errors.Is(err, context.Canceled):
		// Client went away.
		c.Status(499)
	default:
		logger.Error("Analytics request failed", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
