package recordsRepo

import (
	"context"
	"errors"
	"fmt"

	"bloomify-insights/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type changeEvent struct {
	FullDocument bson.M `bson:"fullDocument"`
}

// Subscribe watches table for inserts through a change stream.
// Filter keys refer to fields of the inserted record.
func (s *mongoRecordStore) Subscribe(ctx context.Context, table string, filter bson.M, onInsert InsertHandler) error {
	match := bson.M{"operationType": "insert"}
	for k, v := range filter {
		match["fullDocument."+k] = v
	}
	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}

	stream, err := s.db.Collection(table).Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", table, err)
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var event changeEvent
		if err := stream.Decode(&event); err != nil {
			return fmt.Errorf("error decoding %s change event: %w", table, err)
		}
		onInsert(ctx, models.Document(event.FullDocument))
	}
	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("change stream on %s stopped: %w", table, err)
	}
	return nil
}
