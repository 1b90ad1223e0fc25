package recordsRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bloomify-insights/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Query fetches the records of table matching q.
func (s *mongoRecordStore) Query(ctx context.Context, table string, q Query) ([]models.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := q.Filter
	if filter == nil {
		filter = bson.M{}
	}
	opts := options.Find()
	if len(q.Order) > 0 {
		sort := bson.D{}
		for _, o := range q.Order {
			dir := 1
			if o.Descending {
				dir = -1
			}
			sort = append(sort, bson.E{Key: o.Field, Value: dir})
		}
		opts.SetSort(sort)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := s.db.Collection(table).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %w", table, err)
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("error decoding %s records: %w", table, err)
	}
	docs := make([]models.Document, 0, len(raw))
	for _, r := range raw {
		docs = append(docs, models.Document(r))
	}
	return docs, nil
}

// Insert stores record, assigning an id and creation time when missing.
func (s *mongoRecordStore) Insert(ctx context.Context, table string, record models.Document) (models.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc := models.Document{}
	for k, v := range record {
		doc[k] = v
	}
	if doc.String("id") == "" {
		doc["id"] = uuid.New().String()
	}
	if doc.Time("createdAt").IsZero() {
		doc["createdAt"] = time.Now()
	}
	if _, err := s.db.Collection(table).InsertOne(ctx, bson.M(doc)); err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return doc, nil
}

// Update applies patch to the record with the given id and returns the updated record.
func (s *mongoRecordStore) Update(ctx context.Context, table, id string, patch models.Document) (models.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	set := bson.M{}
	for k, v := range patch {
		if k == "id" || k == "_id" {
			continue
		}
		set[k] = v
	}
	set["updatedAt"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated bson.M
	err := s.db.Collection(table).FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update %s record %s: %w", table, id, err)
	}
	return models.Document(updated), nil
}

// Delete removes the record with the given id.
func (s *mongoRecordStore) Delete(ctx context.Context, table, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.Collection(table).DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s record %s: %w", table, id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
