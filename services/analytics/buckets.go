package analytics

import (
	"time"

	"bloomify-insights/models"
)

// Granularity is the width of a trend bucket.
type Granularity int

const (
	// GranularityAuto picks Day or Week from the window length.
	GranularityAuto Granularity = iota
	GranularityDay
	GranularityWeek
)

func (g Granularity) String() string {
	switch g {
	case GranularityDay:
		return "day"
	case GranularityWeek:
		return "week"
	default:
		return "auto"
	}
}

const (
	labelLayout         = "Jan 2"
	labelLayoutWithYear = "Jan 2, 2006"
	dayGranularityLimit = 7 * 24 * time.Hour
)

// GranularityFor returns Day for windows of at most seven days and Week otherwise.
func GranularityFor(w models.Window) Granularity {
	if w.Duration() <= dayGranularityLimit {
		return GranularityDay
	}
	return GranularityWeek
}

// BucketStart aligns t to local midnight, and to the preceding Sunday for weekly buckets.
func BucketStart(t time.Time, g Granularity, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	if g == GranularityWeek {
		day = day.AddDate(0, 0, -int(day.Weekday()))
	}
	return day
}

func nextBucket(start time.Time, g Granularity) time.Time {
	if g == GranularityWeek {
		return start.AddDate(0, 0, 7)
	}
	return start.AddDate(0, 0, 1)
}

// Accumulator folds one record into the aggregates of its bucket.
type Accumulator[T any] func(rec T, agg map[string]float64)

// SumInto adds value(rec) to the aggregate called name.
func SumInto[T any](name string, value func(T) float64) Accumulator[T] {
	return func(rec T, agg map[string]float64) {
		agg[name] += finite(value(rec))
	}
}

// CountInto increments the aggregate called name for records satisfying match.
// A nil match counts every record.
func CountInto[T any](name string, match func(T) bool) Accumulator[T] {
	return func(rec T, agg map[string]float64) {
		if match == nil || match(rec) {
			agg[name]++
		}
	}
}

// Combine applies every accumulator in order.
func Combine[T any](accs ...Accumulator[T]) Accumulator[T] {
	return func(rec T, agg map[string]float64) {
		for _, acc := range accs {
			acc(rec, agg)
		}
	}
}

// BucketOptions controls how records are grouped.
type BucketOptions struct {
	Granularity Granularity
	Location    *time.Location
	// Metrics are pre-seeded with zero in every bucket.
	Metrics []string
}

func (o BucketOptions) granularity(w models.Window) Granularity {
	if o.Granularity == GranularityAuto {
		return GranularityFor(w)
	}
	return o.Granularity
}

func (o BucketOptions) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

type bucketBuilder struct {
	window  models.Window
	gran    Granularity
	loc     *time.Location
	layout  string
	metrics []string
	buckets []models.TimeBucket
	index   map[int64]int
}

func newBucketBuilder(w models.Window, opts BucketOptions) *bucketBuilder {
	b := &bucketBuilder{
		window:  w,
		gran:    opts.granularity(w),
		loc:     opts.location(),
		layout:  labelLayout,
		metrics: opts.Metrics,
		buckets: []models.TimeBucket{},
		index:   map[int64]int{},
	}
	if w.Duration() > 0 {
		first := BucketStart(w.Start, b.gran, b.loc)
		last := BucketStart(w.End.Add(-time.Nanosecond), b.gran, b.loc)
		if first.Year() != last.Year() {
			b.layout = labelLayoutWithYear
		}
	}
	return b
}

// bucketFor returns the index of the bucket starting at start, creating it when needed.
func (b *bucketBuilder) bucketFor(start time.Time) int {
	key := start.Unix()
	if i, ok := b.index[key]; ok {
		return i
	}
	winStart, winEnd := start, nextBucket(start, b.gran)
	if winStart.Before(b.window.Start) {
		winStart = b.window.Start
	}
	if winEnd.After(b.window.End) {
		winEnd = b.window.End
	}
	agg := make(map[string]float64, len(b.metrics))
	for _, m := range b.metrics {
		agg[m] = 0
	}
	b.buckets = append(b.buckets, models.TimeBucket{
		Label:       start.Format(b.layout),
		WindowStart: winStart,
		WindowEnd:   winEnd,
		Aggregates:  agg,
	})
	b.index[key] = len(b.buckets) - 1
	return len(b.buckets) - 1
}

// Bucket groups in-window records into buckets in first-seen order.
// Callers pass records sorted by ascending creation time to get a chronological series.
func Bucket[T Timestamped](records []T, w models.Window, opts BucketOptions, acc Accumulator[T]) []models.TimeBucket {
	b := newBucketBuilder(w, opts)
	for _, r := range records {
		ts := r.Timestamp()
		if !w.Contains(ts) {
			continue
		}
		i := b.bucketFor(BucketStart(ts, b.gran, b.loc))
		acc(r, b.buckets[i].Aggregates)
	}
	return b.buckets
}

// Dense emits every bucket of the window in ascending order, empty ones included.
func Dense[T Timestamped](records []T, w models.Window, opts BucketOptions, acc Accumulator[T]) []models.TimeBucket {
	b := newBucketBuilder(w, opts)
	if w.Duration() == 0 {
		return b.buckets
	}
	for start := BucketStart(w.Start, b.gran, b.loc); start.Before(w.End); start = nextBucket(start, b.gran) {
		b.bucketFor(start)
	}
	for _, r := range records {
		ts := r.Timestamp()
		if !w.Contains(ts) {
			continue
		}
		i := b.bucketFor(BucketStart(ts, b.gran, b.loc))
		acc(r, b.buckets[i].Aggregates)
	}
	return b.buckets
}

// WalkBackWindow returns the window spanning the given number of calendar days ending today.
func WalkBackWindow(days int, now time.Time, loc *time.Location) models.Window {
	today := BucketStart(now, GranularityDay, loc)
	if days <= 0 {
		return models.Window{Start: today, End: today}
	}
	return models.Window{Start: today.AddDate(0, 0, -(days - 1)), End: today.AddDate(0, 0, 1)}
}

// WalkBack produces exactly days daily buckets ending today, in ascending order.
func WalkBack[T Timestamped](records []T, days int, now time.Time, opts BucketOptions, acc Accumulator[T]) []models.TimeBucket {
	opts.Granularity = GranularityDay
	return Dense(records, WalkBackWindow(days, now, opts.location()), opts, acc)
}
