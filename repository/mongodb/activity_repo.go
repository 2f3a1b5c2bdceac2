package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
)

type activityRepository struct {
	coll *mongo.Collection
}

// NewActivityRepository returns the MongoDB audit trail. Entries are keyed by
// their id, so replaying a spooled entry is harmless.
func NewActivityRepository(db *mongo.Database) repository.ActivityRepository {
	return &activityRepository{coll: db.Collection(ActivityCollection)}
}

func (r *activityRepository) Append(ctx context.Context, entry *domain.ActivityLogEntry) error {
	if entry == nil || entry.ID == "" {
		return domain.ErrInvalidPayload
	}
	_, err := r.coll.InsertOne(ctx, newActivityDoc(entry))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (r *activityRepository) ListByTask(ctx context.Context, taskID string, limit, skip int) ([]domain.ActivityLogEntry, int, error) {
	filter := bson.M{"taskId": taskID}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(skip))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var docs []activityDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}

	entries := make([]domain.ActivityLogEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, d.toDomain())
	}
	return entries, int(total), nil
}
