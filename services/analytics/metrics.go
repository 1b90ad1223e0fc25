package analytics

import (
	"math"
	"time"

	"bloomify-insights/models"
)

// Timestamped is any record that carries a creation time.
type Timestamped interface {
	Timestamp() time.Time
}

// Sum adds value(r) for every record created inside w. Non-finite values count as zero.
func Sum[T Timestamped](records []T, value func(T) float64, w models.Window) float64 {
	total := 0.0
	for _, r := range records {
		if !w.Contains(r.Timestamp()) {
			continue
		}
		total += finite(value(r))
	}
	return total
}

// Count returns the number of records created inside w that satisfy match.
// A nil match counts every in-window record.
func Count[T Timestamped](records []T, w models.Window, match func(T) bool) int {
	n := 0
	for _, r := range records {
		if !w.Contains(r.Timestamp()) {
			continue
		}
		if match == nil || match(r) {
			n++
		}
	}
	return n
}

// Rate returns numerator as a percentage of denominator, 0 when denominator is not positive.
func Rate(numerator, denominator float64) float64 {
	if denominator <= 0 || math.IsNaN(numerator) || math.IsNaN(denominator) {
		return 0
	}
	r := numerator / denominator * 100
	if r < 0 || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Average returns the arithmetic mean of value over records, 0 for no records.
func Average[T any](records []T, value func(T) float64) float64 {
	if len(records) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range records {
		total += finite(value(r))
	}
	return total / float64(len(records))
}

// CountDistinct returns the number of distinct keys among records.
func CountDistinct[T any, K comparable](records []T, key func(T) K) int {
	seen := make(map[K]struct{}, len(records))
	for _, r := range records {
		seen[key(r)] = struct{}{}
	}
	return len(seen)
}

// RepeatCustomers counts bookings made by customers who had already booked.
func RepeatCustomers(bookings []models.BookingRecord) int {
	return len(bookings) - CountDistinct(bookings, func(b models.BookingRecord) string { return b.CustomerID })
}

// SumField is Sum over untyped documents; timeField names the creation timestamp.
func SumField(docs []models.Document, field, timeField string, w models.Window) float64 {
	total := 0.0
	for _, d := range docs {
		if !w.Contains(d.Time(timeField)) {
			continue
		}
		total += d.Number(field)
	}
	return total
}

// DocumentsIn keeps the documents whose timeField falls inside w.
func DocumentsIn(docs []models.Document, timeField string, w models.Window) []models.Document {
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if w.Contains(d.Time(timeField)) {
			out = append(out, d)
		}
	}
	return out
}

// AverageField is Average over untyped documents.
func AverageField(docs []models.Document, field string) float64 {
	return Average(docs, func(d models.Document) float64 { return d.Number(field) })
}

// CountDistinctField is CountDistinct over untyped documents.
func CountDistinctField(docs []models.Document, field string) int {
	return CountDistinct(docs, func(d models.Document) string { return d.String(field) })
}

// Metric builds a fresh DerivedMetric for w.
func Metric(name, unit string, value float64, w models.Window) models.DerivedMetric {
	return models.DerivedMetric{
		Name:        name,
		Value:       finite(value),
		Unit:        unit,
		WindowStart: w.Start,
		WindowEnd:   w.End,
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
