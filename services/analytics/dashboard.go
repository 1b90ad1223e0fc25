package analytics

import (
	"sort"
	"strings"
	"time"

	"bloomify-insights/models"
)

// Dashboard sources, also used as section names on error badges.
const (
	SourceEarnings = "earnings"
	SourceBookings = "bookings"
	SourceReviews  = "reviews"
	SourceServices = "services"
	SourceSearches = "searches"
)

// KPI names.
const (
	KPIGrossEarnings       = "gross_earnings"
	KPINetEarnings         = "net_earnings"
	KPIPlatformFees        = "platform_fees"
	KPITotalBookings       = "total_bookings"
	KPICompletedBookings   = "completed_bookings"
	KPICompletionRate      = "completion_rate"
	KPICancellationRate    = "cancellation_rate"
	KPIAverageBookingValue = "average_booking_value"
	KPIRepeatCustomers     = "repeat_customers"
	KPIAverageRating       = "average_rating"
	KPIReviewCount         = "review_count"

	KPISearches         = "searches"
	KPIUniqueSearchers  = "unique_searchers"
	KPIBookings         = "bookings"
	KPISearchConversion = "search_conversion"
)

// Aggregate names used in trend buckets.
const (
	AggGross      = "gross"
	AggNet        = "net"
	AggCount      = "count"
	AggBookings   = "bookings"
	AggCompleted  = "completed"
	AggCancelled  = "cancelled"
	AggRevenue    = "revenue"
	AggVisitors   = "visitors"
	AggConversion = "conversions"
)

const (
	unitCurrency = "currency"
	unitCount    = "count"
	unitPercent  = "percent"
	unitRating   = "stars"

	defaultTopN       = 5
	defaultFunnelDays = 7
)

// DashboardOptions tunes view-model composition.
type DashboardOptions struct {
	Location   *time.Location
	TopN       int
	FunnelDays int
	Now        time.Time
}

func (o DashboardOptions) topN() int {
	if o.TopN <= 0 {
		return defaultTopN
	}
	return o.TopN
}

func (o DashboardOptions) funnelDays() int {
	if o.FunnelDays <= 0 {
		return defaultFunnelDays
	}
	return o.FunnelDays
}

func (o DashboardOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// ProviderSnapshot is the raw input of a provider dashboard.
type ProviderSnapshot struct {
	ProviderID string
	Earnings   []models.FinancialRecord
	Bookings   []models.BookingRecord
	Reviews    []models.ReviewRecord
	Services   []models.ServiceRecord
	Errors     FetchErrors
}

// BusinessSnapshot is the raw input of the marketplace dashboard.
type BusinessSnapshot struct {
	Searches []models.SearchEvent
	Bookings []models.BookingRecord
	Services []models.ServiceRecord
	Errors   FetchErrors
}

// ComputeProviderDashboard derives the provider view model from a snapshot.
// KPIs whose source failed to load are left out and reported as section errors.
func ComputeProviderDashboard(snap ProviderSnapshot, w models.Window, opts DashboardOptions) models.ProviderDashboard {
	dash := models.ProviderDashboard{
		ProviderID:      snap.ProviderID,
		Window:          w,
		KPIs:            []models.DerivedMetric{},
		StatusBreakdown: []models.StatusCount{},
		EarningsTrend:   []models.TimeBucket{},
		BookingsTrend:   []models.TimeBucket{},
		TopServices:     []models.ServicePerformance{},
		Errors:          sectionErrors(snap.Errors),
	}
	bucketOpts := BucketOptions{Location: opts.Location}

	if !snap.Errors.Failed(SourceEarnings) {
		gross := Sum(snap.Earnings, func(r models.FinancialRecord) float64 { return r.GrossAmount }, w)
		net := Sum(snap.Earnings, func(r models.FinancialRecord) float64 { return r.NetAmount }, w)
		fees := gross - net
		if fees < 0 {
			fees = 0
		}
		dash.KPIs = append(dash.KPIs,
			Metric(KPIGrossEarnings, unitCurrency, roundMoney(gross), w),
			Metric(KPINetEarnings, unitCurrency, roundMoney(net), w),
			Metric(KPIPlatformFees, unitCurrency, roundMoney(fees), w),
		)
		bucketOpts.Metrics = []string{AggGross, AggNet, AggCount}
		dash.EarningsTrend = Dense(snap.Earnings, w, bucketOpts, Combine(
			SumInto(AggGross, func(r models.FinancialRecord) float64 { return r.GrossAmount }),
			SumInto(AggNet, func(r models.FinancialRecord) float64 { return r.NetAmount }),
			CountInto[models.FinancialRecord](AggCount, nil),
		))
	}

	if !snap.Errors.Failed(SourceBookings) {
		bookings := within(snap.Bookings, w)
		total := len(bookings)
		completed := countStatus(bookings, models.BookingStatusCompleted)
		cancelled := countStatus(bookings, models.BookingStatusCancelled)
		dash.KPIs = append(dash.KPIs,
			Metric(KPITotalBookings, unitCount, float64(total), w),
			Metric(KPICompletedBookings, unitCount, float64(completed), w),
			Metric(KPICompletionRate, unitPercent, round2(Rate(float64(completed), float64(total))), w),
			Metric(KPICancellationRate, unitPercent, round2(Rate(float64(cancelled), float64(total))), w),
			Metric(KPIAverageBookingValue, unitCurrency, roundMoney(Average(bookings, func(b models.BookingRecord) float64 { return b.TotalAmount })), w),
			Metric(KPIRepeatCustomers, unitCount, float64(RepeatCustomers(bookings)), w),
		)
		dash.StatusBreakdown = StatusBreakdown(bookings)

		bucketOpts.Metrics = []string{AggBookings, AggCompleted, AggCancelled, AggRevenue}
		dash.BookingsTrend = Dense(bookings, w, bucketOpts, Combine(
			CountInto[models.BookingRecord](AggBookings, nil),
			CountInto(AggCompleted, isStatus(models.BookingStatusCompleted)),
			CountInto(AggCancelled, isStatus(models.BookingStatusCancelled)),
			SumInto(AggRevenue, bookingRevenue),
		))

		if !snap.Errors.Failed(SourceServices) {
			dash.TopServices = TopServices(bookings, snap.Services, opts.topN())
		}
	}

	if !snap.Errors.Failed(SourceReviews) {
		reviews := within(snap.Reviews, w)
		avg := Average(reviews, func(r models.ReviewRecord) float64 { return clamp(r.Rating, 1, 5) })
		dash.KPIs = append(dash.KPIs,
			Metric(KPIAverageRating, unitRating, round2(avg), w),
			Metric(KPIReviewCount, unitCount, float64(len(reviews)), w),
		)
	}
	return dash
}

// ComputeBusinessDashboard derives the marketplace view model from a snapshot.
// The snapshot must cover both w and the daily funnel's walk-back window.
func ComputeBusinessDashboard(snap BusinessSnapshot, w models.Window, opts DashboardOptions) models.BusinessDashboard {
	dash := models.BusinessDashboard{
		Window:             w,
		KPIs:               []models.DerivedMetric{},
		Funnel:             []models.FunnelStepResult{},
		DailyFunnel:        []models.TimeBucket{},
		TopQueries:         []models.QueryCount{},
		CategoryConversion: []models.SegmentConversion{},
		Errors:             sectionErrors(snap.Errors),
	}
	searchesOK := !snap.Errors.Failed(SourceSearches)
	bookingsOK := !snap.Errors.Failed(SourceBookings)

	searches := within(snap.Searches, w)
	bookings := within(snap.Bookings, w)

	searchers := map[string]struct{}{}
	for _, s := range searches {
		if s.UserID != "" {
			searchers[s.UserID] = struct{}{}
		}
	}

	if searchesOK {
		dash.KPIs = append(dash.KPIs,
			Metric(KPISearches, unitCount, float64(len(searches)), w),
			Metric(KPIUniqueSearchers, unitCount, float64(len(searchers)), w),
		)
		dash.TopQueries = TopQueries(searches, opts.topN())
	}
	if bookingsOK {
		dash.KPIs = append(dash.KPIs, Metric(KPIBookings, unitCount, float64(len(bookings)), w))
	}
	if !searchesOK || !bookingsOK {
		return dash
	}

	booked := map[string]struct{}{}
	confirmed := map[string]struct{}{}
	completed := map[string]struct{}{}
	for _, b := range bookings {
		if _, ok := searchers[b.CustomerID]; !ok {
			continue
		}
		booked[b.CustomerID] = struct{}{}
		switch statusBucket(b.Status) {
		case models.BookingStatusConfirmed, models.BookingStatusInProgress:
			confirmed[b.CustomerID] = struct{}{}
		case models.BookingStatusCompleted:
			confirmed[b.CustomerID] = struct{}{}
			completed[b.CustomerID] = struct{}{}
		case models.BookingStatusPending, models.BookingStatusCancelled, models.BookingStatusUnknown:
		}
	}

	dash.KPIs = append(dash.KPIs, Metric(KPISearchConversion, unitPercent, round2(Rate(float64(len(booked)), float64(len(searchers)))), w))
	dash.Funnel = Funnel([]models.FunnelStep{
		{Name: "searched", Count: len(searches)},
		{Name: "unique_searchers", Count: len(searchers)},
		{Name: "booked", Count: len(booked)},
		{Name: "confirmed", Count: len(confirmed)},
		{Name: "completed", Count: len(completed)},
	})
	dash.DailyFunnel = DailyFunnel(snap.Searches, snap.Bookings, opts.funnelDays(), opts.now(), opts.Location)

	if !snap.Errors.Failed(SourceServices) {
		dash.CategoryConversion = CategoryConversion(searches, bookings, snap.Services)
	}
	return dash
}

// StatusBreakdown counts bookings per lifecycle status. Unknown statuses are
// listed last, and only when present.
func StatusBreakdown(bookings []models.BookingRecord) []models.StatusCount {
	counts := map[models.BookingStatus]int{}
	for _, b := range bookings {
		counts[statusBucket(b.Status)]++
	}
	out := make([]models.StatusCount, 0, len(counts))
	for _, s := range models.AllBookingStatuses() {
		out = append(out, models.StatusCount{Status: s, Count: counts[s]})
	}
	if n := counts[models.BookingStatusUnknown]; n > 0 {
		out = append(out, models.StatusCount{Status: models.BookingStatusUnknown, Count: n})
	}
	return out
}

// statusBucket is the one place every status must be listed.
func statusBucket(s models.BookingStatus) models.BookingStatus {
	switch s {
	case models.BookingStatusPending,
		models.BookingStatusConfirmed,
		models.BookingStatusInProgress,
		models.BookingStatusCompleted,
		models.BookingStatusCancelled:
		return s
	case models.BookingStatusUnknown:
		return models.BookingStatusUnknown
	default:
		return models.BookingStatusUnknown
	}
}

// TopServices joins bookings to services by id and ranks services by revenue.
func TopServices(bookings []models.BookingRecord, services []models.ServiceRecord, n int) []models.ServicePerformance {
	names := make(map[string]string, len(services))
	for _, s := range services {
		names[s.ID] = s.Name
	}
	perf := map[string]*models.ServicePerformance{}
	for _, b := range bookings {
		if b.ServiceID == "" {
			continue
		}
		p, ok := perf[b.ServiceID]
		if !ok {
			name := names[b.ServiceID]
			if name == "" {
				name = b.ServiceID
			}
			p = &models.ServicePerformance{ServiceID: b.ServiceID, Name: name}
			perf[b.ServiceID] = p
		}
		p.Bookings++
		p.Revenue += bookingRevenue(b)
	}
	out := make([]models.ServicePerformance, 0, len(perf))
	for _, p := range perf {
		p.Revenue = roundMoney(p.Revenue)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		if out[i].Bookings != out[j].Bookings {
			return out[i].Bookings > out[j].Bookings
		}
		return out[i].ServiceID < out[j].ServiceID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// TopQueries returns the most frequent normalised search queries.
func TopQueries(searches []models.SearchEvent, n int) []models.QueryCount {
	counts := map[string]int{}
	for _, s := range searches {
		q := normalizeQuery(s.Query)
		if q == "" {
			continue
		}
		counts[q]++
	}
	out := make([]models.QueryCount, 0, len(counts))
	for q, c := range counts {
		out = append(out, models.QueryCount{Query: q, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Query < out[j].Query
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// CategoryConversion is the share of each category's searchers who went on
// to book a service in that category.
func CategoryConversion(searches []models.SearchEvent, bookings []models.BookingRecord, services []models.ServiceRecord) []models.SegmentConversion {
	categoryOf := make(map[string]string, len(services))
	for _, s := range services {
		categoryOf[s.ID] = strings.ToLower(s.Category)
	}
	searchedIn := map[string]map[string]struct{}{}
	for _, s := range searches {
		cat := strings.ToLower(strings.TrimSpace(s.Category))
		if cat == "" || s.UserID == "" {
			continue
		}
		if searchedIn[cat] == nil {
			searchedIn[cat] = map[string]struct{}{}
		}
		searchedIn[cat][s.UserID] = struct{}{}
	}
	convertedIn := map[string]map[string]struct{}{}
	for _, b := range bookings {
		cat := categoryOf[b.ServiceID]
		if _, searched := searchedIn[cat][b.CustomerID]; !searched {
			continue
		}
		if convertedIn[cat] == nil {
			convertedIn[cat] = map[string]struct{}{}
		}
		convertedIn[cat][b.CustomerID] = struct{}{}
	}
	visitors := make(map[string]int, len(searchedIn))
	for cat, users := range searchedIn {
		visitors[cat] = len(users)
	}
	conversions := make(map[string]int, len(convertedIn))
	for cat, users := range convertedIn {
		conversions[cat] = len(users)
	}
	return SegmentConversions(visitors, conversions)
}

type funnelEvent struct {
	at        time.Time
	converted bool
}

func (e funnelEvent) Timestamp() time.Time { return e.at }

// DailyFunnel walks back the given number of days from now. Visitors are
// distinct searchers per day and conversions are bookings created that day.
func DailyFunnel(searches []models.SearchEvent, bookings []models.BookingRecord, days int, now time.Time, loc *time.Location) []models.TimeBucket {
	events := make([]funnelEvent, 0, len(searches)+len(bookings))
	seen := map[string]struct{}{}
	for _, s := range searches {
		day := BucketStart(s.CreatedAt, GranularityDay, loc)
		key := s.UserID + "|" + day.Format("2006-01-02")
		if _, dup := seen[key]; dup && s.UserID != "" {
			continue
		}
		seen[key] = struct{}{}
		events = append(events, funnelEvent{at: s.CreatedAt})
	}
	for _, b := range bookings {
		events = append(events, funnelEvent{at: b.CreatedAt, converted: true})
	}
	opts := BucketOptions{Location: loc, Metrics: []string{AggVisitors, AggConversion}}
	return WalkBack(events, days, now, opts, func(e funnelEvent, agg map[string]float64) {
		if e.converted {
			agg[AggConversion]++
		} else {
			agg[AggVisitors]++
		}
	})
}

func within[T Timestamped](records []T, w models.Window) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if w.Contains(r.Timestamp()) {
			out = append(out, r)
		}
	}
	return out
}

func countStatus(bookings []models.BookingRecord, status models.BookingStatus) int {
	n := 0
	for _, b := range bookings {
		if b.Status == status {
			n++
		}
	}
	return n
}

func isStatus(status models.BookingStatus) func(models.BookingRecord) bool {
	return func(b models.BookingRecord) bool { return b.Status == status }
}

// bookingRevenue counts what a booking brings in; cancelled bookings bring nothing.
func bookingRevenue(b models.BookingRecord) float64 {
	if b.Status == models.BookingStatusCancelled {
		return 0
	}
	return b.TotalAmount
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func sectionErrors(errs FetchErrors) []models.SectionError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]models.SectionError, 0, len(errs))
	for _, e := range errs {
		out = append(out, models.SectionError{Section: e.Source, Message: e.Err.Error()})
	}
	return out
}
