package recordsRepo

import (
	"context"

	"bloomify-insights/models"

	"go.mongodb.org/mongo-driver/bson"
)

// AnalyticsRepository is the typed read side the dashboards fetch from.
type AnalyticsRepository interface {
	// FinancialRecords returns payouts inside w, oldest first. An empty providerID means all providers.
	FinancialRecords(ctx context.Context, providerID string, w models.Window) ([]models.FinancialRecord, error)
	// Bookings returns bookings created inside w, oldest first.
	Bookings(ctx context.Context, providerID string, w models.Window) ([]models.BookingRecord, error)
	// Reviews returns reviews left inside w, oldest first.
	Reviews(ctx context.Context, providerID string, w models.Window) ([]models.ReviewRecord, error)
	// SearchEvents returns marketplace searches inside w, oldest first.
	SearchEvents(ctx context.Context, w models.Window) ([]models.SearchEvent, error)
	// Services returns the services with the given ids; an empty id list means every service.
	Services(ctx context.Context, ids []string) ([]models.ServiceRecord, error)
	// ServicesByProvider returns all services listed by a provider.
	ServicesByProvider(ctx context.Context, providerID string) ([]models.ServiceRecord, error)
	// Preference returns the stored preference of a user, nil when none exists.
	Preference(ctx context.Context, userID string) (*models.UserPreference, error)
	// Raw exposes untyped records for ad-hoc metrics.
	Raw(ctx context.Context, table string, q Query) ([]models.Document, error)
}

type storeAnalyticsRepo struct {
	store RecordStore
}

// NewAnalyticsRepository layers typed fetchers on top of a RecordStore.
func NewAnalyticsRepository(store RecordStore) AnalyticsRepository {
	return &storeAnalyticsRepo{store: store}
}

var oldestFirst = []Order{{Field: "createdAt"}}

func windowFilter(providerID string, w models.Window) bson.M {
	filter := Between("createdAt", w)
	if providerID != "" {
		filter["providerId"] = providerID
	}
	return filter
}

func (r *storeAnalyticsRepo) FinancialRecords(ctx context.Context, providerID string, w models.Window) ([]models.FinancialRecord, error) {
	docs, err := r.store.Query(ctx, TableEarnings, Query{Filter: windowFilter(providerID, w), Order: oldestFirst})
	if err != nil {
		return nil, err
	}
	return mapAll(docs, financialRecordFrom), nil
}

func (r *storeAnalyticsRepo) Bookings(ctx context.Context, providerID string, w models.Window) ([]models.BookingRecord, error) {
	docs, err := r.store.Query(ctx, TableBookings, Query{Filter: windowFilter(providerID, w), Order: oldestFirst})
	if err != nil {
		return nil, err
	}
	return mapAll(docs, bookingRecordFrom), nil
}

func (r *storeAnalyticsRepo) Reviews(ctx context.Context, providerID string, w models.Window) ([]models.ReviewRecord, error) {
	docs, err := r.store.Query(ctx, TableReviews, Query{Filter: windowFilter(providerID, w), Order: oldestFirst})
	if err != nil {
		return nil, err
	}
	return mapAll(docs, reviewRecordFrom), nil
}

func (r *storeAnalyticsRepo) SearchEvents(ctx context.Context, w models.Window) ([]models.SearchEvent, error) {
	docs, err := r.store.Query(ctx, TableSearchHistory, Query{Filter: windowFilter("", w), Order: oldestFirst})
	if err != nil {
		return nil, err
	}
	return mapAll(docs, searchEventFrom), nil
}

func (r *storeAnalyticsRepo) Services(ctx context.Context, ids []string) ([]models.ServiceRecord, error) {
	filter := bson.M{}
	if len(ids) > 0 {
		filter["id"] = bson.M{"$in": ids}
	}
	docs, err := r.store.Query(ctx, TableServices, Query{Filter: filter})
	if err != nil {
		return nil, err
	}
	return mapAll(docs, serviceRecordFrom), nil
}

func (r *storeAnalyticsRepo) ServicesByProvider(ctx context.Context, providerID string) ([]models.ServiceRecord, error) {
	docs, err := r.store.Query(ctx, TableServices, Query{Filter: bson.M{"providerId": providerID}})
	if err != nil {
		return nil, err
	}
	return mapAll(docs, serviceRecordFrom), nil
}

func (r *storeAnalyticsRepo) Preference(ctx context.Context, userID string) (*models.UserPreference, error) {
	docs, err := r.store.Query(ctx, TablePreferences, Query{Filter: bson.M{"userId": userID}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	pref := userPreferenceFrom(docs[0])
	return &pref, nil
}

func (r *storeAnalyticsRepo) Raw(ctx context.Context, table string, q Query) ([]models.Document, error) {
	return r.store.Query(ctx, table, q)
}
