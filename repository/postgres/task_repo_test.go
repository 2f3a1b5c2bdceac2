package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
)

func TestBuildListQueryFilters(t *testing.T) {
	query, args := buildListQuery(repository.TaskFilter{
		CreatedBy: "u1",
		Status:    domain.StatusTodo,
		Search:    "50%_off",
		Sort:      repository.SortPriority,
		Limit:     10,
		Offset:    20,
	})

	assert.Contains(t, query, "WHERE NOT is_deleted AND created_by = $1 AND status = $2 AND (title ILIKE $3 OR description ILIKE $3)")
	assert.Contains(t, query, "ORDER BY CASE priority WHEN 'urgent' THEN 0")
	assert.Contains(t, query, "LIMIT $4 OFFSET $5")
	assert.Equal(t, []interface{}{"u1", "todo", `%50\%\_off%`, 10, 20}, args)
}

func TestBuildListQueryAlwaysExcludesDeleted(t *testing.T) {
	query, args := buildListQuery(repository.TaskFilter{})
	assert.Contains(t, query, "WHERE NOT is_deleted ORDER BY created_at DESC, id DESC")
	assert.NotContains(t, query, "LIMIT")
	assert.Empty(t, args)
}

func TestTaskOrderBy(t *testing.T) {
	assert.Equal(t, "due_date ASC NULLS LAST, created_at DESC, id DESC", taskOrderBy(repository.SortDueDate))
	assert.Equal(t, "created_at DESC, id DESC", taskOrderBy("nonsense"))
	assert.Equal(t, "title DESC, created_at DESC, id DESC", taskOrderBy(repository.SortTitle))
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%a\\b%`, likePattern(`a\b`))
	assert.Equal(t, "%report%", likePattern("report"))
}
