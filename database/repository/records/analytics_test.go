package recordsRepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"bloomify-insights/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeStore struct {
	docs    map[string][]models.Document
	err     error
	queries map[string]Query
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string][]models.Document{}, queries: map[string]Query{}}
}

func (f *fakeStore) Query(_ context.Context, table string, q Query) ([]models.Document, error) {
	f.queries[table] = q
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[table], nil
}

func (f *fakeStore) Insert(_ context.Context, table string, record models.Document) (models.Document, error) {
	f.docs[table] = append(f.docs[table], record)
	return record, nil
}

func (f *fakeStore) Update(context.Context, string, string, models.Document) (models.Document, error) {
	return nil, ErrNotFound
}

func (f *fakeStore) Delete(context.Context, string, string) error { return ErrNotFound }

func (f *fakeStore) Subscribe(ctx context.Context, _ string, _ bson.M, _ InsertHandler) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestBookingsDecodesRecords(t *testing.T) {
	store := newFakeStore()
	created := time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)
	store.docs[TableBookings] = []models.Document{
		{"id": "b1", "providerId": "p1", "status": "completed", "totalAmount": 120.5, "createdAt": created},
		{"id": "b2", "providerId": "p1", "status": "in-progress", "totalAmount": int32(80), "createdAt": created.Add(time.Hour)},
	}
	repo := NewAnalyticsRepository(store)

	w := models.Window{Start: created.AddDate(0, 0, -1), End: created.AddDate(0, 0, 1)}
	got, err := repo.Bookings(context.Background(), "p1", w)
	if err != nil {
		t.Fatalf("Bookings() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Bookings() returned %d records, want 2", len(got))
	}
	if got[0].Status != models.BookingStatusCompleted || got[0].TotalAmount != 120.5 || !got[0].CreatedAt.Equal(created) {
		t.Errorf("first booking = %+v", got[0])
	}
	if got[1].Status != models.BookingStatusInProgress {
		t.Errorf("second booking status = %v", got[1].Status)
	}

	q := store.queries[TableBookings]
	if q.Filter["providerId"] != "p1" {
		t.Errorf("filter providerId = %v", q.Filter["providerId"])
	}
	rng, ok := q.Filter["createdAt"].(bson.M)
	if !ok || rng["$gte"] != w.Start || rng["$lt"] != w.End {
		t.Errorf("filter createdAt = %v", q.Filter["createdAt"])
	}
	if len(q.Order) != 1 || q.Order[0].Field != "createdAt" || q.Order[0].Descending {
		t.Errorf("order = %+v", q.Order)
	}
}

func TestWindowFilterWithoutProvider(t *testing.T) {
	w := models.Window{Start: time.Unix(0, 0), End: time.Unix(60, 0)}
	filter := windowFilter("", w)
	if _, ok := filter["providerId"]; ok {
		t.Error("empty provider should not filter on providerId")
	}
	if _, ok := filter["createdAt"]; !ok {
		t.Error("missing createdAt range")
	}
}

func TestServicesFilter(t *testing.T) {
	store := newFakeStore()
	repo := NewAnalyticsRepository(store)

	if _, err := repo.Services(context.Background(), nil); err != nil {
		t.Fatalf("Services() error = %v", err)
	}
	if len(store.queries[TableServices].Filter) != 0 {
		t.Errorf("nil ids should match every service, got %v", store.queries[TableServices].Filter)
	}

	if _, err := repo.Services(context.Background(), []string{"s1", "s2"}); err != nil {
		t.Fatalf("Services() error = %v", err)
	}
	in, ok := store.queries[TableServices].Filter["id"].(bson.M)
	if !ok {
		t.Fatalf("filter = %v", store.queries[TableServices].Filter)
	}
	if ids, _ := in["$in"].([]string); len(ids) != 2 {
		t.Errorf("$in = %v", in["$in"])
	}
}

func TestPreference(t *testing.T) {
	store := newFakeStore()
	repo := NewAnalyticsRepository(store)

	pref, err := repo.Preference(context.Background(), "u1")
	if err != nil || pref != nil {
		t.Fatalf("Preference() = %v, %v; want nil, nil", pref, err)
	}
	if store.queries[TablePreferences].Limit != 1 {
		t.Errorf("limit = %d, want 1", store.queries[TablePreferences].Limit)
	}

	store.docs[TablePreferences] = []models.Document{{"userId": "u1", "priceImportance": 0.9, "ratingImportance": 0.4}}
	pref, err = repo.Preference(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Preference() error = %v", err)
	}
	if pref == nil || pref.PriceImportance != 0.9 || pref.RatingImportance != 0.4 || pref.SpeedImportance != 0 {
		t.Errorf("Preference() = %+v", pref)
	}
}

func TestRepositoryPropagatesStoreErrors(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection reset")
	repo := NewAnalyticsRepository(store)
	w := models.Window{Start: time.Unix(0, 0), End: time.Unix(60, 0)}

	if _, err := repo.FinancialRecords(context.Background(), "p1", w); !errors.Is(err, store.err) {
		t.Errorf("FinancialRecords() error = %v", err)
	}
	if _, err := repo.Reviews(context.Background(), "p1", w); !errors.Is(err, store.err) {
		t.Errorf("Reviews() error = %v", err)
	}
	if _, err := repo.SearchEvents(context.Background(), w); !errors.Is(err, store.err) {
		t.Errorf("SearchEvents() error = %v", err)
	}
}

func TestMalformedRowsReadAsZero(t *testing.T) {
	store := newFakeStore()
	created := time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)
	store.docs[TableBookings] = []models.Document{
		{"id": "b1", "status": "completed", "totalAmount": 100.0, "createdAt": created},
		{"id": "b2", "status": 7, "totalAmount": "n/a", "createdAt": "yesterday"},
		{"id": "b3", "status": "pending", "totalAmount": "42.5", "createdAt": primitive.NewDateTimeFromTime(created)},
	}
	store.docs[TableReviews] = []models.Document{{"rating": "five", "createdAt": created}, {"rating": int32(4), "createdAt": created}}
	repo := NewAnalyticsRepository(store)
	w := models.Window{Start: created.AddDate(0, 0, -1), End: created.AddDate(0, 0, 1)}

	bookings, err := repo.Bookings(context.Background(), "p1", w)
	if err != nil {
		t.Fatalf("Bookings() error = %v", err)
	}
	if len(bookings) != 3 {
		t.Fatalf("Bookings() returned %d records, want 3", len(bookings))
	}
	bad := bookings[1]
	if bad.TotalAmount != 0 || bad.Status != models.BookingStatusUnknown || !bad.CreatedAt.IsZero() {
		t.Errorf("malformed booking = %+v, want zero amount, unknown status, zero time", bad)
	}
	if bookings[0].TotalAmount != 100 || bookings[2].TotalAmount != 42.5 || !bookings[2].CreatedAt.Equal(created) {
		t.Errorf("well-formed bookings = %+v / %+v", bookings[0], bookings[2])
	}

	reviews, err := repo.Reviews(context.Background(), "p1", w)
	if err != nil {
		t.Fatalf("Reviews() error = %v", err)
	}
	if len(reviews) != 2 || reviews[0].Rating != 0 || reviews[1].Rating != 4 {
		t.Errorf("Reviews() = %+v", reviews)
	}
}

func TestIndexPlanCoversAnalyticsTables(t *testing.T) {
	plan := IndexPlan()
	for _, table := range []string{TableEarnings, TableBookings, TableReviews, TableSearchHistory, TableServices, TablePreferences} {
		if len(plan[table]) == 0 {
			t.Errorf("no indexes planned for %s", table)
		}
	}
}
