package handler

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskflow/api/transport"
	"github.com/fastygo/taskflow/pkg/httpcontext"
	activityUC "github.com/fastygo/taskflow/usecase/activity"
)

type ActivityHandler struct {
	baseHandler
	service *activityUC.Service
}

func NewActivityHandler(service *activityUC.Service, adapter *httpcontext.Adapter, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		baseHandler: newBaseHandler(adapter, logger),
		service:     service,
	}
}

// @Summary Audit trail of a task, newest first
// @Tags activity
// @Param limit query int false "page size, default 50"
// @Param skip query int false "entries to skip"
// @Router /api/v1/tasks/{id}/activity [get]
func (h *ActivityHandler) GetLog(ctx *fasthttp.RequestCtx) {
	if _, ok := h.principal(ctx); !ok {
		return
	}
	id, ok := h.pathID(ctx)
	if !ok {
		return
	}
	limit, err := queryInt(ctx, "limit", 0)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	skip, err := queryInt(ctx, "skip", 0)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	page, err := h.service.GetLog(stdCtx, id, limit, skip)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondPage(ctx, page.Entries, transport.ActivityMeta{
		Total: page.Total,
		Limit: page.Limit,
		Skip:  page.Skip,
	})
}
