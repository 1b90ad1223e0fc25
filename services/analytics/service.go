package analytics

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	recordsRepo "bloomify-insights/database/repository/records"
	"bloomify-insights/models"

	"go.uber.org/zap"
)

// RealtimeViewID is the view id used by background recomputation.
const RealtimeViewID = "realtime"

func validateWindow(op string, w models.Window) error {
	if w.Start.IsZero() || w.End.IsZero() || !w.End.After(w.Start) {
		return NewContractViolation(op, "window end must be after window start")
	}
	return nil
}

func dashboardKey(scope, id, viewID string) string {
	if viewID == "" {
		viewID = "default"
	}
	return scope + ":" + id + ":" + viewID
}

// ProviderDashboard fetches a provider's records for the window and derives
// the dashboard. Results superseded by a newer request for the same view are
// discarded with ErrStaleGeneration.
func (s *DefaultAnalyticsService) ProviderDashboard(ctx context.Context, req DashboardRequest) (*models.ProviderDashboard, error) {
	if req.ProviderID == "" {
		return nil, NewContractViolation("provider dashboard", "provider id is required")
	}
	if err := validateWindow("provider dashboard", req.Window); err != nil {
		return nil, err
	}
	key := dashboardKey("provider", req.ProviderID, req.ViewID)
	gens := s.generations()
	runCtx, gen, done, err := gens.Begin(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to start dashboard generation: %w", err)
	}
	defer done()

	snap := ProviderSnapshot{ProviderID: req.ProviderID}
	snap.Errors = settleAll(runCtx, s.FetchTimeout,
		fetchTask{source: SourceEarnings, run: func(ctx context.Context) (err error) {
			snap.Earnings, err = s.Repo.FinancialRecords(ctx, req.ProviderID, req.Window)
			return err
		}},
		fetchTask{source: SourceBookings, run: func(ctx context.Context) (err error) {
			snap.Bookings, err = s.Repo.Bookings(ctx, req.ProviderID, req.Window)
			return err
		}},
		fetchTask{source: SourceReviews, run: func(ctx context.Context) (err error) {
			snap.Reviews, err = s.Repo.Reviews(ctx, req.ProviderID, req.Window)
			return err
		}},
		fetchTask{source: SourceServices, run: func(ctx context.Context) (err error) {
			snap.Services, err = s.Repo.ServicesByProvider(ctx, req.ProviderID)
			return err
		}},
	)

	if !gens.Current(ctx, key, gen) {
		s.logger().Debug("Discarding stale provider dashboard", zap.String("key", key), zap.Uint64("generation", gen))
		return nil, ErrStaleGeneration
	}
	s.logFetchErrors("provider dashboard", snap.Errors)
	if len(snap.Errors) == 4 {
		return nil, snap.Errors
	}

	dash := ComputeProviderDashboard(snap, req.Window, s.dashboardOptions())
	dash.Generation = gen
	return &dash, nil
}

// BusinessDashboard derives the marketplace dashboard for the window.
func (s *DefaultAnalyticsService) BusinessDashboard(ctx context.Context, req DashboardRequest) (*models.BusinessDashboard, error) {
	if err := validateWindow("business dashboard", req.Window); err != nil {
		return nil, err
	}
	key := dashboardKey("business", "all", req.ViewID)
	gens := s.generations()
	runCtx, gen, done, err := gens.Begin(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to start dashboard generation: %w", err)
	}
	defer done()

	opts := s.dashboardOptions()
	if req.FunnelDays > 0 {
		opts.FunnelDays = req.FunnelDays
	}
	walk := WalkBackWindow(opts.funnelDays(), opts.now(), opts.Location)
	fetchWindow := req.Window
	if walk.Start.Before(fetchWindow.Start) {
		fetchWindow.Start = walk.Start
	}
	if walk.End.After(fetchWindow.End) {
		fetchWindow.End = walk.End
	}

	var snap BusinessSnapshot
	snap.Errors = settleAll(runCtx, s.FetchTimeout,
		fetchTask{source: SourceSearches, run: func(ctx context.Context) (err error) {
			snap.Searches, err = s.Repo.SearchEvents(ctx, fetchWindow)
			return err
		}},
		fetchTask{source: SourceBookings, run: func(ctx context.Context) (err error) {
			snap.Bookings, err = s.Repo.Bookings(ctx, "", fetchWindow)
			return err
		}},
		fetchTask{source: SourceServices, run: func(ctx context.Context) (err error) {
			snap.Services, err = s.Repo.Services(ctx, nil)
			return err
		}},
	)

	if !gens.Current(ctx, key, gen) {
		return nil, ErrStaleGeneration
	}
	s.logFetchErrors("business dashboard", snap.Errors)
	if len(snap.Errors) == 3 {
		return nil, snap.Errors
	}

	dash := ComputeBusinessDashboard(snap, req.Window, opts)
	dash.Generation = gen
	return &dash, nil
}

// Recommendations scores the selected services for a user.
func (s *DefaultAnalyticsService) Recommendations(ctx context.Context, q RecommendationQuery) ([]models.ScoreSuggestion, error) {
	userID, serviceIDs := q.UserID, q.ServiceIDs
	if len(serviceIDs) == 0 {
		return nil, NewContractViolation("recommend", "at least one service id is required")
	}

	var (
		pref     *models.UserPreference
		services []models.ServiceRecord
	)
	tasks := []fetchTask{{source: SourceServices, run: func(ctx context.Context) (err error) {
		services, err = s.Repo.Services(ctx, serviceIDs)
		return err
	}}}
	if userID != "" {
		tasks = append(tasks, fetchTask{source: "preferences", run: func(ctx context.Context) (err error) {
			pref, err = s.Repo.Preference(ctx, userID)
			return err
		}})
	}
	errs := settleAll(ctx, s.FetchTimeout, tasks...)
	if errs.Failed(SourceServices) {
		return nil, errs
	}
	if errs.Failed("preferences") {
		// Scoring falls back to equal weights.
		s.logger().Warn("Using default preference weights", zap.String("userID", userID), zap.Error(errs))
		pref = nil
	}
	if len(services) == 0 {
		return nil, NewContractViolation("recommend", "none of the selected services exist")
	}
	ranked := make([]models.ServiceRecord, len(services))
	copy(ranked, services)
	for i := range ranked {
		if km, ok := q.DistancesKm[ranked[i].ID]; ok && km >= 0 {
			ranked[i].DistanceKm = &km
		}
	}
	return Recommend(pref, ranked)
}

// PricingSuggestions scores caller-provided pricing inputs.
func (s *DefaultAnalyticsService) PricingSuggestions(_ context.Context, inputs []models.PricingInput) ([]models.ScoreSuggestion, error) {
	return SuggestPrices(inputs)
}

// ProviderPricing derives pricing inputs for every service of a provider
// from the trailing year of bookings and competitor prices.
func (s *DefaultAnalyticsService) ProviderPricing(ctx context.Context, providerID string) ([]models.ScoreSuggestion, error) {
	if providerID == "" {
		return nil, NewContractViolation("provider pricing", "provider id is required")
	}
	now := s.now()
	year := models.LastDays(now, 365)

	var (
		own      []models.ServiceRecord
		all      []models.ServiceRecord
		bookings []models.BookingRecord
	)
	errs := settleAll(ctx, s.FetchTimeout,
		fetchTask{source: SourceServices, run: func(ctx context.Context) (err error) {
			own, err = s.Repo.ServicesByProvider(ctx, providerID)
			return err
		}},
		fetchTask{source: "competitors", run: func(ctx context.Context) (err error) {
			all, err = s.Repo.Services(ctx, nil)
			return err
		}},
		fetchTask{source: SourceBookings, run: func(ctx context.Context) (err error) {
			bookings, err = s.Repo.Bookings(ctx, providerID, year)
			return err
		}},
	)
	if errs.Failed(SourceServices) || errs.Failed(SourceBookings) {
		return nil, errs
	}
	if errs.Failed("competitors") {
		s.logger().Warn("Pricing without competitor data", zap.String("providerID", providerID), zap.Error(errs))
		all = nil
	}
	if len(own) == 0 {
		return nil, NewContractViolation("provider pricing", "provider has no services")
	}
	return SuggestPrices(BuildPricingInputs(own, all, bookings, now, s.location()))
}

// Funnel computes conversion and drop-off for caller-provided steps.
func (s *DefaultAnalyticsService) Funnel(_ context.Context, steps []models.FunnelStep) ([]models.FunnelStepResult, error) {
	if len(steps) == 0 {
		return nil, NewContractViolation("funnel", "at least one step is required")
	}
	return Funnel(steps), nil
}

var metricTables = map[string]struct{}{
	recordsRepo.TableEarnings:      {},
	recordsRepo.TableBookings:      {},
	recordsRepo.TableReviews:       {},
	recordsRepo.TableSearchHistory: {},
}

// fieldName accepts plain top-level keys only, so caller input can never
// become an operator or a nested path in the store filter.
var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Metric computes an ad-hoc aggregate over an untyped table.
func (s *DefaultAnalyticsService) Metric(ctx context.Context, req MetricRequest) (*models.DerivedMetric, error) {
	if _, ok := metricTables[req.Table]; !ok {
		return nil, NewContractViolation("metric", "unsupported table "+strconv.Quote(req.Table))
	}
	if req.Field == "" {
		return nil, NewContractViolation("metric", "field is required")
	}
	if err := validateWindow("metric", req.Window); err != nil {
		return nil, err
	}
	if !fieldName.MatchString(req.Field) {
		return nil, NewContractViolation("metric", "invalid field "+strconv.Quote(req.Field))
	}
	timeField := req.TimeField
	if timeField == "" {
		timeField = "createdAt"
	}
	if !fieldName.MatchString(timeField) {
		return nil, NewContractViolation("metric", "invalid time field "+strconv.Quote(timeField))
	}
	filter := recordsRepo.Between(timeField, req.Window)
	if req.ProviderID != "" {
		filter["providerId"] = req.ProviderID
	}

	docs, err := s.Repo.Raw(ctx, req.Table, recordsRepo.Query{Filter: filter})
	if err != nil {
		return nil, &DataFetchError{Source: req.Table, Err: err}
	}

	var (
		value float64
		unit  string
	)
	switch req.Op {
	case "", "sum":
		value, unit = SumField(docs, req.Field, timeField, req.Window), "sum"
	case "avg":
		value, unit = AverageField(DocumentsIn(docs, timeField, req.Window), req.Field), "average"
	case "distinct":
		value, unit = float64(CountDistinctField(DocumentsIn(docs, timeField, req.Window), req.Field)), unitCount
	default:
		return nil, NewContractViolation("metric", "unsupported op "+strconv.Quote(req.Op))
	}
	m := Metric(req.Table+"."+req.Field, unit, value, req.Window)
	return &m, nil
}

func (s *DefaultAnalyticsService) logFetchErrors(op string, errs FetchErrors) {
	for _, e := range errs {
		level := s.logger().Warn
		if errors.Is(e.Err, context.Canceled) {
			level = s.logger().Debug
		}
		level("Dashboard section failed", zap.String("op", op), zap.String("section", e.Source), zap.Error(e.Err))
	}
}
