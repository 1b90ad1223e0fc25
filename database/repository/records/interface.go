package recordsRepo

import (
	"context"
	"errors"
	"time"

	"bloomify-insights/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Tables read by the analytics layer.
const (
	TableEarnings      = "earnings"
	TableBookings      = "bookings"
	TableReviews       = "reviews"
	TableSearchHistory = "search_history"
	TableServices      = "services"
	TablePreferences   = "user_preferences"
)

// ErrNotFound is returned when an id does not match any record.
var ErrNotFound = errors.New("record not found")

// Order sorts query results on a single field.
type Order struct {
	Field      string
	Descending bool
}

// Query is a filterable, orderable, limitable collection fetch.
type Query struct {
	Filter bson.M
	Order  []Order
	Limit  int64
}

// Between returns a filter matching field values inside the half-open window.
func Between(field string, w models.Window) bson.M {
	return bson.M{field: bson.M{"$gte": w.Start, "$lt": w.End}}
}

// InsertHandler is invoked for every record inserted into a watched table.
type InsertHandler func(ctx context.Context, record models.Document)

// RecordStore is the generic record store the dashboards read from.
type RecordStore interface {
	Query(ctx context.Context, table string, q Query) ([]models.Document, error)
	Insert(ctx context.Context, table string, record models.Document) (models.Document, error)
	Update(ctx context.Context, table, id string, patch models.Document) (models.Document, error)
	Delete(ctx context.Context, table, id string) error
	// Subscribe blocks, calling onInsert for each new record matching filter, until ctx is done.
	Subscribe(ctx context.Context, table string, filter bson.M, onInsert InsertHandler) error
}

type mongoRecordStore struct {
	db      *mongo.Database
	timeout time.Duration
}

// NewMongoRecordStore returns a RecordStore backed by the given database.
func NewMongoRecordStore(db *mongo.Database, timeout time.Duration) RecordStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &mongoRecordStore{db: db, timeout: timeout}
}
