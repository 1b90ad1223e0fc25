package models

// SectionError is the badge shown on a dashboard section whose source failed to load.
type SectionError struct {
	Section string `json:"section"`
	Message string `json:"message"`
}

// StatusCount is the number of bookings currently in a given status.
type StatusCount struct {
	Status BookingStatus `json:"status"`
	Count  int           `json:"count"`
}

// ServicePerformance ranks a provider's services by what they brought in.
type ServicePerformance struct {
	ServiceID string  `json:"serviceId"`
	Name      string  `json:"name"`
	Bookings  int     `json:"bookings"`
	Revenue   float64 `json:"revenue"`
}

// QueryCount is a search query and how many times it was issued.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// ProviderDashboard is the full view model of a provider's earnings dashboard.
type ProviderDashboard struct {
	ProviderID      string               `json:"providerId"`
	Window          Window               `json:"window"`
	Generation      uint64               `json:"generation"`
	KPIs            []DerivedMetric      `json:"kpis"`
	StatusBreakdown []StatusCount        `json:"statusBreakdown"`
	EarningsTrend   []TimeBucket         `json:"earningsTrend"`
	BookingsTrend   []TimeBucket         `json:"bookingsTrend"`
	TopServices     []ServicePerformance `json:"topServices"`
	Errors          []SectionError       `json:"errors,omitempty"`
}

// BusinessDashboard is the marketplace-wide business intelligence view model.
type BusinessDashboard struct {
	Window             Window              `json:"window"`
	Generation         uint64              `json:"generation"`
	KPIs               []DerivedMetric     `json:"kpis"`
	Funnel             []FunnelStepResult  `json:"funnel"`
	DailyFunnel        []TimeBucket        `json:"dailyFunnel"`
	TopQueries         []QueryCount        `json:"topQueries"`
	CategoryConversion []SegmentConversion `json:"categoryConversion"`
	Errors             []SectionError      `json:"errors,omitempty"`
}

// KPI returns the metric with the given name and whether it was found.
func KPI(metrics []DerivedMetric, name string) (DerivedMetric, bool) {
	for _, m := range metrics {
		if m.Name == name {
			return m, true
		}
	}
	return DerivedMetric{}, false
}
