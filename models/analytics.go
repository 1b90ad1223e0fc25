package models

import "time"

// Window is a half-open [Start, End) reporting range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Duration returns the window length, zero for inverted windows.
func (w Window) Duration() time.Duration {
	if w.End.Before(w.Start) {
		return 0
	}
	return w.End.Sub(w.Start)
}

// LastDays returns the window covering the n days that end at now.
func LastDays(now time.Time, n int) Window {
	return Window{Start: now.AddDate(0, 0, -n), End: now}
}

// DerivedMetric is a named KPI computed from records inside a window.
type DerivedMetric struct {
	Name        string    `json:"name"`
	Value       float64   `json:"value"`
	Unit        string    `json:"unit"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`
}

// TimeBucket is one point of a charted time series.
type TimeBucket struct {
	Label       string             `json:"label"`
	WindowStart time.Time          `json:"windowStart"`
	WindowEnd   time.Time          `json:"windowEnd"`
	Aggregates  map[string]float64 `json:"aggregates"`
}

// Factor is one named input of a heuristic score.
type Factor struct {
	Name      string  `json:"name"`
	Magnitude float64 `json:"magnitude"`
}

// ScoreSuggestion is a bounded heuristic output with its explanation.
type ScoreSuggestion struct {
	SubjectID      string   `json:"subjectId"`
	SuggestedValue float64  `json:"suggestedValue"`
	Confidence     float64  `json:"confidence"` // Always within [0,100]
	Factors        []Factor `json:"factors"`
}

// FunnelStep is the number of users who reached a step of a journey.
type FunnelStep struct {
	Name  string `json:"name" binding:"required"`
	Count int    `json:"count"`
}

// FunnelStepResult adds conversion and drop-off percentages to a step.
type FunnelStepResult struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Conversion float64 `json:"conversion"` // Relative to the first step
	Dropoff    float64 `json:"dropoff"`    // Relative to the previous step
}

// SegmentConversion is the conversion rate of a single audience segment.
type SegmentConversion struct {
	Segment     string  `json:"segment"`
	Visitors    int     `json:"visitors"`
	Conversions int     `json:"conversions"`
	Rate        float64 `json:"rate"`
}

// PricingInput describes one service whose price should be re-evaluated.
type PricingInput struct {
	ServiceID          string  `json:"serviceId" binding:"required"`
	CurrentPrice       float64 `json:"currentPrice"`
	RecentBookings     int     `json:"recentBookings"`     // Bookings in the latest period
	PreviousBookings   int     `json:"previousBookings"`   // Bookings in the period before
	MonthBookings      int     `json:"monthBookings"`      // Bookings in the current calendar month
	YearBookings       int     `json:"yearBookings"`       // Bookings over the trailing year
	CompetitorAvgPrice float64 `json:"competitorAvgPrice"` // Zero when unknown
}
