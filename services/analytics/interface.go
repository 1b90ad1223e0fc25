package analytics

import (
	"context"
	"sync"
	"time"

	recordsRepo "bloomify-insights/database/repository/records"
	"bloomify-insights/models"

	"go.uber.org/zap"
)

// AnalyticsService computes dashboards and heuristic suggestions from raw records.
type AnalyticsService interface {
	ProviderDashboard(ctx context.Context, req DashboardRequest) (*models.ProviderDashboard, error)
	BusinessDashboard(ctx context.Context, req DashboardRequest) (*models.BusinessDashboard, error)
	Recommendations(ctx context.Context, q RecommendationQuery) ([]models.ScoreSuggestion, error)
	PricingSuggestions(ctx context.Context, inputs []models.PricingInput) ([]models.ScoreSuggestion, error)
	ProviderPricing(ctx context.Context, providerID string) ([]models.ScoreSuggestion, error)
	Funnel(ctx context.Context, steps []models.FunnelStep) ([]models.FunnelStepResult, error)
	Metric(ctx context.Context, req MetricRequest) (*models.DerivedMetric, error)
	DefaultWindow() models.Window
}

// DashboardRequest identifies one dashboard view. Requests sharing a
// provider and view id supersede each other.
type DashboardRequest struct {
	ProviderID string
	ViewID     string
	Window     models.Window
	FunnelDays int // business dashboard only; zero uses the configured default
}

// RecommendationQuery selects the services to rank for a user. DistancesKm
// maps service ids to their distance from the user; services without an
// entry are scored with proximity unknown.
type RecommendationQuery struct {
	UserID      string
	ServiceIDs  []string
	DistancesKm map[string]float64
}

// MetricRequest is an ad-hoc aggregate over an untyped table.
type MetricRequest struct {
	Table      string
	Op         string // sum, avg or distinct
	Field      string
	TimeField  string
	ProviderID string
	Window     models.Window
}

// DefaultAnalyticsService implements AnalyticsService on top of an AnalyticsRepository.
type DefaultAnalyticsService struct {
	Repo              recordsRepo.AnalyticsRepository
	Generations       *Generations
	Logger            *zap.Logger
	FetchTimeout      time.Duration
	Location          *time.Location
	FunnelDays        int
	DefaultWindowDays int
	Now               func() time.Time

	genOnce sync.Once
}

func (s *DefaultAnalyticsService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *DefaultAnalyticsService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *DefaultAnalyticsService) generations() *Generations {
	s.genOnce.Do(func() {
		if s.Generations == nil {
			s.Generations = NewGenerations(nil)
		}
	})
	return s.Generations
}

func (s *DefaultAnalyticsService) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// DefaultWindow is the configured number of days ending now.
func (s *DefaultAnalyticsService) DefaultWindow() models.Window {
	days := s.DefaultWindowDays
	if days <= 0 {
		days = 30
	}
	return models.LastDays(s.now(), days)
}

func (s *DefaultAnalyticsService) dashboardOptions() DashboardOptions {
	return DashboardOptions{
		Location:   s.location(),
		FunnelDays: s.FunnelDays,
		Now:        s.now(),
	}
}
