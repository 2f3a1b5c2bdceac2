package mongodb

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
)

type taskRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewTaskRepository returns a MongoDB-backed implementation of TaskRepository.
func NewTaskRepository(db *mongo.Database) repository.TaskRepository {
	return &taskRepository{
		coll: db.Collection(TasksCollection),
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var doc taskDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	task := doc.toDomain()
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, int, error) {
	query := buildTaskFilter(filter)

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(buildTaskSort(filter.Sort))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	tasks, err := r.find(ctx, query, opts)
	return tasks, int(total), err
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := r.now()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Comments == nil {
		task.Comments = []domain.Comment{}
	}

	if _, err := r.coll.InsertOne(ctx, newTaskDoc(task)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.NewError(domain.ErrCodeConflict, "task already exists")
		}
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}
	doc := newTaskDoc(task)
	doc.UpdatedAt = r.now()

	set := bson.M{
		"title":        doc.Title,
		"description":  doc.Description,
		"status":       doc.Status,
		"priority":     doc.Priority,
		"priorityRank": doc.PriorityRank,
		"dueDate":      doc.DueDate,
		"noDueDate":    doc.NoDueDate,
		"tags":         doc.Tags,
		"isDeleted":    doc.IsDeleted,
		"updatedAt":    doc.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if doc.Assignee == "" {
		update["$unset"] = bson.M{"assignee": ""}
	} else {
		set["assignee"] = doc.Assignee
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"createdBy": 1, "createdAt": 1, "updatedAt": 1})

	var stored taskDoc
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": task.ID}, update, opts).Decode(&stored); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrTaskNotFound
		}
		return err
	}

	task.CreatedBy = stored.CreatedBy
	task.CreatedAt = stored.CreatedAt.UTC()
	task.UpdatedAt = stored.UpdatedAt.UTC()
	return nil
}

func (r *taskRepository) AppendComment(ctx context.Context, taskID string, comment domain.Comment) ([]domain.Comment, error) {
	update := bson.M{
		"$push": bson.M{"comments": newCommentDoc(comment)},
		"$set":  bson.M{"updatedAt": r.now()},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"comments": 1})

	var stored taskDoc
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": taskID}, update, opts).Decode(&stored); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return commentsToDomain(stored.Comments), nil
}

func (r *taskRepository) FindOwned(ctx context.Context, ids []string, ownerID string) ([]domain.Task, error) {
	opts := options.Find().SetSort(buildTaskSort(repository.SortCreatedAt))
	return r.find(ctx, ownedFilter(ids, ownerID), opts)
}

// BulkUpdate updates one document at a time so the result names exactly the
// tasks that were still live when the write landed.
func (r *taskRepository) BulkUpdate(ctx context.Context, ids []string, ownerID string, change repository.BulkChange) ([]string, error) {
	set := bson.M{"updatedAt": r.now()}
	if change.Status != nil {
		set["status"] = string(*change.Status)
	}
	if change.Delete {
		set["isDeleted"] = true
	}

	var affected []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		res, err := r.coll.UpdateOne(ctx, ownedFilter([]string{id}, ownerID), bson.M{"$set": set})
		if err != nil {
			return affected, err
		}
		if res.MatchedCount > 0 {
			affected = append(affected, id)
		}
	}
	return affected, nil
}

type statsRow struct {
	Key struct {
		Status   string `bson:"status"`
		Priority string `bson:"priority"`
	} `bson:"_id"`
	Count   int `bson:"count"`
	Overdue int `bson:"overdue"`
}

func (r *taskRepository) Stats(ctx context.Context, ownerID string, now time.Time) (*domain.TaskStats, error) {
	match := bson.M{"isDeleted": false}
	if ownerID != "" {
		match["createdBy"] = ownerID
	}

	overdue := bson.M{"$cond": bson.A{
		bson.M{"$and": bson.A{
			bson.M{"$eq": bson.A{"$noDueDate", false}},
			bson.M{"$lt": bson.A{"$dueDate", now}},
			bson.M{"$ne": bson.A{"$status", string(domain.StatusCompleted)}},
		}},
		1,
		0,
	}}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":     bson.M{"status": "$status", "priority": "$priority"},
			"count":   bson.M{"$sum": 1},
			"overdue": bson.M{"$sum": overdue},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []statsRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	stats := &domain.TaskStats{}
	byStatus := map[string]int{}
	byPriority := map[string]int{}
	for _, row := range rows {
		stats.Total += row.Count
		stats.Overdue += row.Overdue
		byStatus[row.Key.Status] += row.Count
		byPriority[row.Key.Priority] += row.Count
	}
	stats.ByStatus = groupCounts(byStatus)
	stats.ByPriority = groupCounts(byPriority)
	return stats, nil
}

func (r *taskRepository) Recent(ctx context.Context, limit int) ([]domain.Task, error) {
	opts := options.Find().SetSort(buildTaskSort(repository.SortCreatedAt))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, buildTaskFilter(repository.TaskFilter{}), opts)
}

func (r *taskRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]domain.Task, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []taskDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.toDomain())
	}
	return tasks, nil
}

// buildTaskFilter renders the listing filter. Soft-deleted tasks are always excluded.
func buildTaskFilter(f repository.TaskFilter) bson.D {
	filter := bson.D{{Key: "isDeleted", Value: false}}
	if f.CreatedBy != "" {
		filter = append(filter, bson.E{Key: "createdBy", Value: f.CreatedBy})
	}
	if f.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: string(f.Status)})
	}
	if f.Priority != "" {
		filter = append(filter, bson.E{Key: "priority", Value: string(f.Priority)})
	}
	if f.Assignee != "" {
		filter = append(filter, bson.E{Key: "assignee", Value: f.Assignee})
	}
	if f.Search != "" {
		pattern := regexPattern(f.Search)
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}})
	}
	return filter
}

func buildTaskSort(key string) bson.D {
	newest := bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	switch repository.NormalizeSort(key) {
	case repository.SortUpdatedAt:
		return append(bson.D{{Key: "updatedAt", Value: -1}}, newest...)
	case repository.SortDueDate:
		return append(bson.D{{Key: "noDueDate", Value: 1}, {Key: "dueDate", Value: 1}}, newest...)
	case repository.SortPriority:
		return append(bson.D{{Key: "priorityRank", Value: 1}}, newest...)
	case repository.SortTitle:
		return append(bson.D{{Key: "title", Value: -1}}, newest...)
	case repository.SortStatus:
		return append(bson.D{{Key: "status", Value: -1}}, newest...)
	}
	return newest
}

func ownedFilter(ids []string, ownerID string) bson.D {
	if ids == nil {
		ids = []string{}
	}
	return bson.D{
		{Key: "_id", Value: bson.M{"$in": ids}},
		{Key: "createdBy", Value: ownerID},
		{Key: "isDeleted", Value: false},
	}
}

// regexPattern matches s literally and case-insensitively.
func regexPattern(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}
