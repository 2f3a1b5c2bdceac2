package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskflow/api/transport"
	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/pkg/httpcontext"
	adminUC "github.com/fastygo/taskflow/usecase/admin"
)

type AdminHandler struct {
	baseHandler
	uc *adminUC.UseCase
}

func NewAdminHandler(uc *adminUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List users
// @Tags admin
// @Router /api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(ctx *fasthttp.RequestCtx) {
	p, ok := h.principal(ctx)
	if !ok {
		return
	}
	page, err := queryInt(ctx, "page", 1)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	limit, err := queryInt(ctx, "limit", 0)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.ListUsers(stdCtx, p, page, limit, string(ctx.QueryArgs().Peek("search")))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondPage(ctx, result.Users, transport.PageMeta{Pagination: result.Pagination})
}

// @Summary Change a user's role
// @Tags admin
// @Router /api/v1/admin/users/{id}/role [put]
func (h *AdminHandler) UpdateRole(ctx *fasthttp.RequestCtx) {
	p, ok := h.principal(ctx)
	if !ok {
		return
	}
	id, ok := h.pathID(ctx)
	if !ok {
		return
	}

	var req transport.RoleRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.UpdateRole(stdCtx, p, id, domain.Role(req.Role))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

// @Summary Activate or deactivate a user
// @Tags admin
// @Router /api/v1/admin/users/{id}/status [put]
func (h *AdminHandler) UpdateStatus(ctx *fasthttp.RequestCtx) {
	p, ok := h.principal(ctx)
	if !ok {
		return
	}
	id, ok := h.pathID(ctx)
	if !ok {
		return
	}

	var req transport.StatusRequest
	if !h.decode(ctx, &req) {
		return
	}
	if req.IsActive == nil {
		h.respondInvalid(ctx, "is_active must be a boolean")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.UpdateStatus(stdCtx, p, id, *req.IsActive)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

// @Summary System statistics
// @Tags admin
// @Router /api/v1/admin/stats [get]
func (h *AdminHandler) Stats(ctx *fasthttp.RequestCtx) {
	p, ok := h.principal(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	stats, err := h.uc.SystemStats(stdCtx, p)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, stats)
}
