package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
)

func seed(t *testing.T, repo *TaskRepository, tasks ...domain.Task) []*domain.Task {
	t.Helper()
	out := make([]*domain.Task, 0, len(tasks))
	for i := range tasks {
		task := tasks[i]
		task.ApplyDefaults()
		created, err := repo.Create(context.Background(), &task)
		require.NoError(t, err)
		out = append(out, created)
	}
	return out
}

func TestTaskRepositoryListExcludesDeleted(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()
	created := seed(t, repo,
		domain.Task{Title: "live", CreatedBy: "u1"},
		domain.Task{Title: "gone", CreatedBy: "u1"},
	)

	gone := created[1]
	gone.IsDeleted = true
	require.NoError(t, repo.Update(ctx, gone))

	tasks, total, err := repo.List(ctx, repository.TaskFilter{CreatedBy: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "live", tasks[0].Title)

	stored, err := repo.GetByID(ctx, gone.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted)

	stats, err := repo.Stats(ctx, "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestTaskRepositoryPriorityRankOrder(t *testing.T) {
	repo := NewTaskRepository()
	seed(t, repo,
		domain.Task{Title: "l", CreatedBy: "u", Priority: domain.PriorityLow},
		domain.Task{Title: "u", CreatedBy: "u", Priority: domain.PriorityUrgent},
		domain.Task{Title: "m", CreatedBy: "u", Priority: domain.PriorityMedium},
		domain.Task{Title: "h", CreatedBy: "u", Priority: domain.PriorityHigh},
	)

	tasks, _, err := repo.List(context.Background(), repository.TaskFilter{Sort: repository.SortPriority})
	require.NoError(t, err)
	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"u", "h", "m", "l"}, titles)
}

func TestTaskRepositoryPagination(t *testing.T) {
	repo := NewTaskRepository()
	for i := 1; i <= 25; i++ {
		seed(t, repo, domain.Task{Title: fmt.Sprintf("%02d", i), CreatedBy: "u"})
	}

	tasks, total, err := repo.List(context.Background(), repository.TaskFilter{Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	require.Len(t, tasks, 5)
	assert.Equal(t, "05", tasks[0].Title)
	assert.Equal(t, "01", tasks[4].Title)

	tasks, total, err = repo.List(context.Background(), repository.TaskFilter{Limit: 10, Offset: 40})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Empty(t, tasks)
}

func TestTaskRepositoryUpdateKeepsCommentsAndOwner(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()
	task := seed(t, repo, domain.Task{Title: "x", CreatedBy: "owner"})[0]

	_, err := repo.AppendComment(ctx, task.ID, domain.Comment{ID: "c1", AuthorID: "owner", Content: "hi"})
	require.NoError(t, err)

	stale := *task
	stale.CreatedBy = "intruder"
	stale.Comments = nil
	stale.Title = "y"
	require.NoError(t, repo.Update(ctx, &stale))

	stored, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "y", stored.Title)
	assert.Equal(t, "owner", stored.CreatedBy)
	assert.Len(t, stored.Comments, 1)
}

func TestTaskRepositoryBulkUpdateIsOwnerScoped(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()
	created := seed(t, repo,
		domain.Task{Title: "a", CreatedBy: "u1"},
		domain.Task{Title: "b", CreatedBy: "u2"},
	)
	status := domain.StatusArchived

	affected, err := repo.BulkUpdate(ctx, []string{created[0].ID, created[1].ID, "missing"}, "u1", repository.BulkChange{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, []string{created[0].ID}, affected)

	b, err := repo.GetByID(ctx, created[1].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTodo, b.Status)
}

func TestTaskRepositoryReadsAreCopies(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()
	task := seed(t, repo, domain.Task{Title: "x", CreatedBy: "u", Tags: []string{"a"}})[0]

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	got.Tags[0] = "mutated"

	again, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Tags)
}

func TestTaskRepositoryListDuringConcurrentUpdates(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()
	created := seed(t, repo,
		domain.Task{Title: "a", CreatedBy: "u1", Tags: []string{"x"}},
		domain.Task{Title: "b", CreatedBy: "u1"},
		domain.Task{Title: "c", CreatedBy: "u1"},
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			page, total, err := repo.List(ctx, repository.TaskFilter{Sort: repository.SortTitle})
			assert.NoError(t, err)
			assert.Equal(t, 3, total)
			assert.Len(t, page, 3)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			task, err := repo.GetByID(ctx, created[i%len(created)].ID)
			if !assert.NoError(t, err) {
				return
			}
			task.Title = fmt.Sprintf("title %03d", i)
			task.Tags = append(task.Tags, "y")
			assert.NoError(t, repo.Update(ctx, task))
		}
	}()
	wg.Wait()

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}
