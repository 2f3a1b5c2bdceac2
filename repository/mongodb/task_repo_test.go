package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
)

func TestBuildTaskFilter(t *testing.T) {
	filter := buildTaskFilter(repository.TaskFilter{
		CreatedBy: "u1",
		Priority:  domain.PriorityHigh,
		Search:    "a.b",
	})

	want := bson.D{
		{Key: "isDeleted", Value: false},
		{Key: "createdBy", Value: "u1"},
		{Key: "priority", Value: "high"},
		{Key: "$or", Value: bson.A{
			bson.M{"title": bson.M{"$regex": `a\.b`, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": `a\.b`, "$options": "i"}},
		}},
	}
	assert.Equal(t, want, filter)
}

func TestBuildTaskSort(t *testing.T) {
	assert.Equal(t, bson.D{
		{Key: "priorityRank", Value: 1},
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	}, buildTaskSort(repository.SortPriority))

	assert.Equal(t, bson.D{
		{Key: "noDueDate", Value: 1},
		{Key: "dueDate", Value: 1},
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	}, buildTaskSort(repository.SortDueDate))

	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}, buildTaskSort("bogus"))
}

func TestTaskDocRoundTrip(t *testing.T) {
	due := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	task := &domain.Task{
		ID:        "t1",
		Title:     "x",
		Status:    domain.StatusTodo,
		Priority:  domain.PriorityUrgent,
		DueDate:   &due,
		CreatedBy: "u1",
		Comments:  []domain.Comment{{ID: "c1", AuthorID: "u1", Content: "hi", CreatedAt: due}},
	}

	doc := newTaskDoc(task)
	assert.Equal(t, 0, doc.PriorityRank)
	assert.False(t, doc.NoDueDate)
	assert.Equal(t, []string{}, doc.Tags)

	back := doc.toDomain()
	assert.Equal(t, task.Comments, back.Comments)
	require.NotNil(t, back.DueDate)
	assert.True(t, due.Equal(*back.DueDate))

	assert.True(t, newTaskDoc(&domain.Task{}).NoDueDate)
}

func TestChangesKeepOrderInBSON(t *testing.T) {
	c := domain.NewChangeSet()
	c.Set("title", "new")
	c.Set("status", "completed")
	c.Set("dueDate", "")

	doc := changesToBSON(c)
	raw, err := bson.Marshal(bson.D{{Key: "changes", Value: doc}})
	require.NoError(t, err)

	var decoded struct {
		Changes bson.D `bson:"changes"`
	}
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	back := changesFromBSON(decoded.Changes)
	assert.Equal(t, []string{"title", "status", "dueDate"}, back.Fields())
	assert.Nil(t, changesToBSON(nil))
	assert.Nil(t, changesFromBSON(nil))
}
