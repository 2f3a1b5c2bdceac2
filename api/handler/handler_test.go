package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/pkg/httpcontext"
	"github.com/fastygo/taskflow/repository/memory"
	activityUC "github.com/fastygo/taskflow/usecase/activity"
	taskUC "github.com/fastygo/taskflow/usecase/task"
)

type env struct {
	tasks    *TaskHandler
	activity *ActivityHandler
	owner    domain.Principal
	other    domain.Principal
}

func newEnv(t *testing.T) *env {
	t.Helper()
	users := memory.NewUserRepository()
	taskRepo := memory.NewTaskRepository()
	activityRepo := memory.NewActivityRepository()

	mk := func(name string) domain.Principal {
		u := &domain.User{Name: name, Email: name + "@example.com", Role: domain.RoleUser, IsActive: true}
		require.NoError(t, users.Create(context.Background(), u))
		return u.Principal()
	}

	recorder := activityUC.NewRecorder(activityRepo, nil, nil)
	adapter := httpcontext.NewAdapter(0)
	return &env{
		tasks:    NewTaskHandler(taskUC.New(taskRepo, users, recorder, nil), adapter, nil),
		activity: NewActivityHandler(activityUC.NewService(activityRepo, users, nil), adapter, nil),
		owner:    mk("owner"),
		other:    mk("other"),
	}
}

func request(method, uri, body string, p *domain.Principal) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.SetBodyString(body)
		ctx.Request.Header.SetContentType("application/json")
	}
	if p != nil {
		httpcontext.SetPrincipal(ctx, *p, "session")
	}
	return ctx
}

func withID(ctx *fasthttp.RequestCtx, id string) *fasthttp.RequestCtx {
	ctx.SetUserValue("id", id)
	return ctx
}

func (e *env) createTask(t *testing.T, body string) string {
	t.Helper()
	ctx := request(fasthttp.MethodPost, "/api/v1/tasks", body, &e.owner)
	e.tasks.CreateTask(ctx)
	require.Equal(t, http.StatusCreated, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	return gjson.GetBytes(ctx.Response.Body(), "data.id").String()
}

func TestCreateTaskResponds201WithEnvelope(t *testing.T) {
	e := newEnv(t)
	ctx := request(fasthttp.MethodPost, "/api/v1/tasks",
		`{"title":"Write report","priority":"high","due_date":"2030-01-02","tags":["work"]}`, &e.owner)

	e.tasks.CreateTask(ctx)

	require.Equal(t, http.StatusCreated, ctx.Response.StatusCode())
	body := ctx.Response.Body()
	assert.Equal(t, "success", gjson.GetBytes(body, "status").String())
	assert.Equal(t, "Write report", gjson.GetBytes(body, "data.title").String())
	assert.Equal(t, "todo", gjson.GetBytes(body, "data.status").String())
	assert.Equal(t, "high", gjson.GetBytes(body, "data.priority").String())
	assert.Equal(t, "2030-01-02T00:00:00Z", gjson.GetBytes(body, "data.due_date").String())
	assert.Equal(t, "owner", gjson.GetBytes(body, "data.created_by.name").String())
	assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))
}

func TestCreateTaskRejectsBadInput(t *testing.T) {
	e := newEnv(t)

	tests := map[string]string{
		"malformed json": `{"title":`,
		"missing title":  `{"description":"x"}`,
		"bad priority":   `{"title":"x","priority":"asap"}`,
		"bad date":       `{"title":"x","due_date":"next week"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := request(fasthttp.MethodPost, "/api/v1/tasks", body, &e.owner)
			e.tasks.CreateTask(ctx)
			assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
			assert.Equal(t, "INVALID", gjson.GetBytes(ctx.Response.Body(), "code").String())
		})
	}
}

func TestRequestsWithoutPrincipalAre401(t *testing.T) {
	e := newEnv(t)
	ctx := request(fasthttp.MethodGet, "/api/v1/tasks", "", nil)

	e.tasks.ListTasks(ctx)

	assert.Equal(t, http.StatusUnauthorized, ctx.Response.StatusCode())
	assert.Equal(t, "UNAUTHORIZED", gjson.GetBytes(ctx.Response.Body(), "code").String())
}

func TestUpdateTaskAppliesOnlyPresentFields(t *testing.T) {
	e := newEnv(t)
	id := e.createTask(t, `{"title":"Draft","description":"keep me","due_date":"2030-01-02T10:00:00Z"}`)

	ctx := withID(request(fasthttp.MethodPut, "/api/v1/tasks/"+id, `{"status":"in-progress","due_date":null}`, &e.owner), id)
	e.tasks.UpdateTask(ctx)

	require.Equal(t, http.StatusOK, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	body := ctx.Response.Body()
	assert.Equal(t, "in-progress", gjson.GetBytes(body, "data.status").String())
	assert.Equal(t, "keep me", gjson.GetBytes(body, "data.description").String())
	assert.Equal(t, gjson.Null, gjson.GetBytes(body, "data.due_date").Type)

	logCtx := withID(request(fasthttp.MethodGet, "/api/v1/tasks/"+id+"/activity", "", &e.owner), id)
	e.activity.GetLog(logCtx)

	require.Equal(t, http.StatusOK, logCtx.Response.StatusCode())
	logBody := logCtx.Response.Body()
	assert.Equal(t, int64(2), gjson.GetBytes(logBody, "meta.total").Int())
	assert.Equal(t, "updated", gjson.GetBytes(logBody, "data.0.action").String())
	assert.Equal(t, `{"status":"in-progress","dueDate":""}`, gjson.GetBytes(logBody, "data.0.changes").Raw)
	assert.Equal(t, "owner", gjson.GetBytes(logBody, "data.0.actor.name").String())
	assert.Equal(t, "created", gjson.GetBytes(logBody, "data.1.action").String())
}

func TestUpdateTaskByNonOwnerIs403(t *testing.T) {
	e := newEnv(t)
	id := e.createTask(t, `{"title":"Mine"}`)

	ctx := withID(request(fasthttp.MethodPut, "/api/v1/tasks/"+id, `{"title":"Theirs"}`, &e.other), id)
	e.tasks.UpdateTask(ctx)

	assert.Equal(t, http.StatusForbidden, ctx.Response.StatusCode())
	assert.Equal(t, "FORBIDDEN", gjson.GetBytes(ctx.Response.Body(), "code").String())
}

func TestGetUnknownTaskIs404(t *testing.T) {
	e := newEnv(t)
	ctx := withID(request(fasthttp.MethodGet, "/api/v1/tasks/missing", "", &e.owner), "missing")

	e.tasks.GetTask(ctx)

	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())
}

func TestListTasksCarriesPaginationMeta(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 3; i++ {
		e.createTask(t, `{"title":"task"}`)
	}

	ctx := request(fasthttp.MethodGet, "/api/v1/tasks?limit=2&page=2", "", &e.owner)
	e.tasks.ListTasks(ctx)

	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	body := ctx.Response.Body()
	assert.Len(t, gjson.GetBytes(body, "data").Array(), 1)
	assert.Equal(t, int64(3), gjson.GetBytes(body, "meta.pagination.total").Int())
	assert.Equal(t, int64(2), gjson.GetBytes(body, "meta.pagination.page").Int())
	assert.Equal(t, int64(2), gjson.GetBytes(body, "meta.pagination.pages").Int())

	bad := request(fasthttp.MethodGet, "/api/v1/tasks?limit=ten", "", &e.owner)
	e.tasks.ListTasks(bad)
	assert.Equal(t, http.StatusBadRequest, bad.Response.StatusCode())
}

func TestBulkEndpoints(t *testing.T) {
	e := newEnv(t)
	a := e.createTask(t, `{"title":"a"}`)
	b := e.createTask(t, `{"title":"b"}`)

	ctx := request(fasthttp.MethodPut, "/api/v1/tasks/bulk/status",
		`{"task_ids":["`+a+`","`+b+`","nope"],"status":"completed"}`, &e.owner)
	e.tasks.BulkUpdateStatus(ctx)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	assert.Equal(t, int64(2), gjson.GetBytes(ctx.Response.Body(), "data.affected").Int())

	ctx = request(fasthttp.MethodDelete, "/api/v1/tasks/bulk", `{"task_ids":["`+a+`"]}`, &e.other)
	e.tasks.BulkDelete(ctx)
	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())

	ctx = request(fasthttp.MethodDelete, "/api/v1/tasks/bulk", `{"task_ids":[]}`, &e.owner)
	e.tasks.BulkDelete(ctx)
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
}

func TestAddCommentAndDelete(t *testing.T) {
	e := newEnv(t)
	id := e.createTask(t, `{"title":"discuss"}`)

	ctx := withID(request(fasthttp.MethodPost, "/api/v1/tasks/"+id+"/comments", `{"content":"looks good"}`, &e.owner), id)
	e.tasks.AddComment(ctx)
	require.Equal(t, http.StatusCreated, ctx.Response.StatusCode())
	assert.Equal(t, "looks good", gjson.GetBytes(ctx.Response.Body(), "data.0.content").String())
	assert.Equal(t, "owner", gjson.GetBytes(ctx.Response.Body(), "data.0.author.name").String())

	ctx = withID(request(fasthttp.MethodDelete, "/api/v1/tasks/"+id, "", &e.owner), id)
	e.tasks.DeleteTask(ctx)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())

	ctx = withID(request(fasthttp.MethodGet, "/api/v1/tasks/"+id, "", &e.owner), id)
	e.tasks.GetTask(ctx)
	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())
}

func TestActivityLogRejectsBadPaging(t *testing.T) {
	e := newEnv(t)
	id := e.createTask(t, `{"title":"x"}`)

	for _, q := range []string{"limit=-1", "skip=-5", "skip=abc"} {
		ctx := withID(request(fasthttp.MethodGet, "/api/v1/tasks/"+id+"/activity?"+q, "", &e.owner), id)
		e.activity.GetLog(ctx)
		assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode(), q)
	}
}

func TestInternalErrorsHideDetailUnlessExposed(t *testing.T) {
	h := newBaseHandler(nil, nil)

	ctx := request(fasthttp.MethodGet, "/x", "", nil)
	h.respondError(ctx, errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, ctx.Response.StatusCode())
	assert.Equal(t, "internal error", gjson.GetBytes(ctx.Response.Body(), "error").String())

	h.ExposeErrors(true)
	ctx = request(fasthttp.MethodGet, "/x", "", nil)
	h.respondError(ctx, errors.New("pq: connection refused"))
	assert.Equal(t, "pq: connection refused", gjson.GetBytes(ctx.Response.Body(), "error").String())
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.Validation("bad"), http.StatusBadRequest, "INVALID"},
		{domain.Forbidden("no"), http.StatusForbidden, "FORBIDDEN"},
		{domain.ErrTaskNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrEmailTaken, http.StatusConflict, "CONFLICT"},
		{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		status, code := mapError(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
